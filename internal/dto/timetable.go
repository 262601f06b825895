package dto

import (
	"time"

	"github.com/campusgrid/timetable-api/internal/models"
)

// GenerateTimetableRequest triggers a generation cycle. All fields are
// optional overrides on top of the configured defaults.
type GenerateTimetableRequest struct {
	Days             []string               `json:"days" binding:"omitempty,dive,required" validate:"omitempty,dive,required"`
	StartTime        string                 `json:"start_time" binding:"omitempty"`
	EndTime          string                 `json:"end_time" binding:"omitempty"`
	PeriodDuration   int                    `json:"period_duration" binding:"omitempty,gt=0" validate:"omitempty,gt=0"`
	Mode             string                 `json:"mode" binding:"omitempty,oneof=STRICT_WEEKLY_CAPS FILL_ALL_PERIODS" validate:"omitempty,oneof=STRICT_WEEKLY_CAPS FILL_ALL_PERIODS"`
	BranchingLimit   int                    `json:"branching_limit" binding:"omitempty,gt=0" validate:"omitempty,gt=0"`
	PerDaySubjectCap int                    `json:"per_day_subject_cap" binding:"omitempty,gt=0" validate:"omitempty,gt=0"`
	SpecialPeriods   []models.SpecialPeriod `json:"special_periods" binding:"omitempty,dive"`
	Seed             *int64                 `json:"seed" binding:"omitempty"`

	// Sync makes the request wait for the cycle instead of queueing it.
	Sync bool `json:"sync"`
}

// GenerationRunResponse reports the state of a generation run.
type GenerationRunResponse struct {
	RunID         string     `json:"run_id"`
	Status        string     `json:"status"`
	Mode          string     `json:"mode"`
	AssignedCells int        `json:"assigned_cells"`
	ActivityCells int        `json:"activity_cells"`
	FreeCells     int        `json:"free_cells"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`

	Feasibility *FeasibilityResponse `json:"feasibility,omitempty"`
}

// FeasibilityResponse surfaces structural problems detected after a run.
type FeasibilityResponse struct {
	SubjectsWithoutTeachers []string       `json:"subjects_without_teachers"`
	FreeCellsByClass        map[string]int `json:"free_cells_by_class"`
}

// ClassTimetableResponse is the full schedule of one class.
type ClassTimetableResponse struct {
	ClassID   string                `json:"class_id"`
	ClassName string                `json:"class_name"`
	Room      string                `json:"room"`
	Rows      []models.ClassViewRow `json:"rows"`
}

// TeacherTimetableResponse is the weekly view of one teacher.
type TeacherTimetableResponse struct {
	TeacherID   string                  `json:"teacher_id"`
	TeacherName string                  `json:"teacher_name"`
	Rows        []models.TeacherViewRow `json:"rows"`
}

// StudentTimetableResponse merges class schedule, activity plan and progress.
type StudentTimetableResponse struct {
	StudentID   string                  `json:"student_id"`
	StudentName string                  `json:"student_name"`
	ClassID     string                  `json:"class_id"`
	Rows        []models.StudentViewRow `json:"rows"`
}

// StudentPlanResponse exposes the raw slot-to-activity plan.
type StudentPlanResponse struct {
	StudentID string                     `json:"student_id"`
	Plan      models.StudentActivityPlan `json:"plan"`
}

// UpdateProgressRequest records a student's progress on one activity occurrence.
type UpdateProgressRequest struct {
	ActivityKey string `json:"activity_key" binding:"required"`
	Status      string `json:"status" binding:"omitempty,oneof=pending in_progress completed skipped"`
	Notes       string `json:"notes" binding:"omitempty,max=2000"`
}

// ProgressEntryResponse is one persisted progress record.
type ProgressEntryResponse struct {
	ActivityKey string    `json:"activity_key"`
	Activity    string    `json:"activity"`
	SlotKey     string    `json:"slot_key"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	LastUpdated time.Time `json:"last_updated"`
}

// StudentProgressResponse is the full history of one student.
type StudentProgressResponse struct {
	StudentID string                  `json:"student_id"`
	Entries   []ProgressEntryResponse `json:"entries"`
}
