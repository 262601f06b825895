package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
)

const (
	// SpecialSubjectPrefix marks synthetic subjects standing in for special periods.
	SpecialSubjectPrefix = "SP:"
	// ActivitySubjectPrefix marks synthetic subjects standing in for backfilled activity periods.
	ActivitySubjectPrefix = "ACT:"
	// ActivityTeacherID is the placeholder teacher attached to activity periods.
	ActivityTeacherID = "ACT"
)

// TimeSlot is a fixed (day, start, end) interval in the weekly grid.
type TimeSlot struct {
	Day             string `json:"day"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	IsSpecialPeriod bool   `json:"is_special_period"`
	SpecialType     string `json:"special_type,omitempty"`
}

// Key returns the stable identifier addressing a schedule cell for this slot.
func (s TimeSlot) Key() string {
	return SlotKey(s.Day, s.StartTime)
}

// SlotKey builds the canonical "{day}_{startTime}" cell address.
func SlotKey(day, startTime string) string {
	return day + "_" + startTime
}

// SlotKeyDay extracts the day component of a slot key.
func SlotKeyDay(key string) string {
	if idx := strings.IndexByte(key, '_'); idx >= 0 {
		return key[:idx]
	}
	return key
}

// SpecialPeriod is a configured non-teaching window (e.g. lunch).
type SpecialPeriod struct {
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Type      string `json:"type"`
}

// SubjectRef is the subject half of a schedule cell.
type SubjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IsActivity reports whether the ref is an activity placeholder.
func (r SubjectRef) IsActivity() bool {
	return strings.HasPrefix(r.ID, ActivitySubjectPrefix)
}

// TeacherRef is the teacher half of a schedule cell.
type TeacherRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ScheduleCell holds one class-slot assignment. Teacher and Subject are nil
// for free periods; special periods carry a synthetic subject and no teacher.
type ScheduleCell struct {
	Teacher         *TeacherRef `json:"teacher"`
	Subject         *SubjectRef `json:"subject"`
	Room            string      `json:"room"`
	IsSpecialPeriod bool        `json:"is_special_period"`
	SpecialType     string      `json:"special_type,omitempty"`
}

// IsFree reports whether the cell has no assignment and is eligible for one.
func (c *ScheduleCell) IsFree() bool {
	return c != nil && !c.IsSpecialPeriod && c.Subject == nil
}

// IsActivityPeriod reports whether the cell holds an activity placeholder.
func (c *ScheduleCell) IsActivityPeriod() bool {
	return c != nil && !c.IsSpecialPeriod && c.Subject != nil && c.Subject.IsActivity()
}

// ClassTimetable is the generated schedule for a single class.
type ClassTimetable struct {
	ClassID   string                   `json:"class_id"`
	ClassName string                   `json:"class_name"`
	Room      string                   `json:"room"`
	Schedule  map[string]*ScheduleCell `json:"schedule"`
}

// StudentActivityPlan maps slot keys to a concrete activity name. Slots that
// are not activity periods map to the empty string.
type StudentActivityPlan map[string]string

// ActivityOccurrenceKey builds the "{activity}|{slotKey}" progress ledger key.
func ActivityOccurrenceKey(activity, slotKey string) string {
	return fmt.Sprintf("%s|%s", activity, slotKey)
}

// ActivityFromOccurrenceKey returns the activity-name component of a ledger key.
func ActivityFromOccurrenceKey(key string) string {
	if idx := strings.IndexByte(key, '|'); idx >= 0 {
		return key[:idx]
	}
	return key
}

// ProgressRecord tracks a student's interaction with one activity occurrence.
type ProgressRecord struct {
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	LastUpdated time.Time `json:"last_updated"`
}

// StudentViewRow is one flattened entry of a student's merged timetable.
type StudentViewRow struct {
	Day                string `json:"day"`
	Time               string `json:"time"`
	Subject            string `json:"subject"`
	Teacher            string `json:"teacher"`
	Room               string `json:"room"`
	Type               string `json:"type"`
	IndividualActivity string `json:"individual_activity"`
	ProgressStatus     string `json:"progress_status"`
	Notes              string `json:"notes"`
	SlotKey            string `json:"slot_key"`
	ActivityKey        string `json:"activity_key"`
}

// TeacherViewRow is one flattened entry of a teacher's weekly schedule.
type TeacherViewRow struct {
	Day      string `json:"day"`
	Time     string `json:"time"`
	Class    string `json:"class"`
	Subject  string `json:"subject"`
	Room     string `json:"room"`
	Teaching bool   `json:"teaching"`
}

// ClassViewRow is one flattened entry of a class timetable.
type ClassViewRow struct {
	Day     string `json:"day"`
	Time    string `json:"time"`
	Subject string `json:"subject"`
	Teacher string `json:"teacher"`
	Room    string `json:"room"`
	Type    string `json:"type"`
}

// GenerationRunStatus enumerates lifecycle states of a generation run.
type GenerationRunStatus string

const (
	GenerationRunStatusPending   GenerationRunStatus = "PENDING"
	GenerationRunStatusCompleted GenerationRunStatus = "COMPLETED"
	GenerationRunStatusFailed    GenerationRunStatus = "FAILED"
)

// GenerationRun records one timetable generation cycle.
type GenerationRun struct {
	ID            string              `db:"id" json:"id"`
	Status        GenerationRunStatus `db:"status" json:"status"`
	Mode          string              `db:"mode" json:"mode"`
	AssignedCells int                 `db:"assigned_cells" json:"assigned_cells"`
	ActivityCells int                 `db:"activity_cells" json:"activity_cells"`
	FreeCells     int                 `db:"free_cells" json:"free_cells"`
	Meta          types.JSONText      `db:"meta" json:"meta,omitempty"`
	StartedAt     time.Time           `db:"started_at" json:"started_at"`
	CompletedAt   *time.Time          `db:"completed_at" json:"completed_at,omitempty"`
}

// TimetableCellRow is the persisted form of a schedule cell.
type TimetableCellRow struct {
	RunID       string  `db:"run_id" json:"run_id"`
	ClassID     string  `db:"class_id" json:"class_id"`
	SlotKey     string  `db:"slot_key" json:"slot_key"`
	Day         string  `db:"day" json:"day"`
	StartTime   string  `db:"start_time" json:"start_time"`
	EndTime     string  `db:"end_time" json:"end_time"`
	SubjectID   *string `db:"subject_id" json:"subject_id,omitempty"`
	SubjectName *string `db:"subject_name" json:"subject_name,omitempty"`
	TeacherID   *string `db:"teacher_id" json:"teacher_id,omitempty"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
	Room        string  `db:"room" json:"room"`
	IsSpecial   bool    `db:"is_special" json:"is_special"`
	SpecialType *string `db:"special_type" json:"special_type,omitempty"`
}

// StudentProgressRow is the persisted form of one progress record.
type StudentProgressRow struct {
	StudentID   string    `db:"student_id" json:"student_id"`
	ActivityKey string    `db:"activity_key" json:"activity_key"`
	Status      string    `db:"status" json:"status"`
	Notes       string    `db:"notes" json:"notes"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}
