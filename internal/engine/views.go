package engine

import (
	"github.com/campusgrid/timetable-api/internal/models"
)

// Cell type labels used by the flattened views.
const (
	cellTypeLesson   = "lesson"
	cellTypeActivity = "activity"
	cellTypeSpecial  = "special"
	cellTypeFree     = "free"
)

func cellType(cell *models.ScheduleCell) string {
	switch {
	case cell == nil:
		return cellTypeFree
	case cell.IsSpecialPeriod:
		return cellTypeSpecial
	case cell.IsActivityPeriod():
		return cellTypeActivity
	case cell.Subject != nil:
		return cellTypeLesson
	default:
		return cellTypeFree
	}
}

// StudentView merges the class timetable with the student's activity plan and
// progress history into one flattened weekly view. Activity periods show the
// student's individually planned activity instead of the class placeholder.
// Projections are read-only: calling a view never mutates the result.
func StudentView(result *Result, classID string, plan models.StudentActivityPlan, history map[string]models.ProgressRecord) []models.StudentViewRow {
	tt, ok := result.Timetables[classID]
	if !ok {
		return nil
	}

	rows := make([]models.StudentViewRow, 0, len(result.Slots))
	for _, slot := range result.Slots {
		key := slot.Key()
		cell := tt.Schedule[key]
		row := models.StudentViewRow{
			Day:     slot.Day,
			Time:    slot.StartTime + " - " + slot.EndTime,
			Room:    tt.Room,
			Type:    cellType(cell),
			SlotKey: key,
		}
		if cell != nil {
			if cell.Subject != nil {
				row.Subject = cell.Subject.Name
			}
			if cell.Teacher != nil {
				row.Teacher = cell.Teacher.Name
			}
			if cell.Room != "" {
				row.Room = cell.Room
			}
		}
		if row.Type == cellTypeActivity {
			if activity, planned := plan[key]; planned && activity != "" {
				row.IndividualActivity = activity
				row.ActivityKey = models.ActivityOccurrenceKey(activity, key)
				if rec, exists := history[row.ActivityKey]; exists {
					row.ProgressStatus = rec.Status
					row.Notes = rec.Notes
				} else {
					row.ProgressStatus = DefaultProgressStatus
				}
			} else {
				row.IndividualActivity = row.Subject
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// TeacherView flattens one teacher's week across every class. Slots where the
// teacher is not assigned anywhere appear once as non-teaching rows, so the
// view always covers the full grid.
func TeacherView(result *Result, teacherID string) []models.TeacherViewRow {
	rows := make([]models.TeacherViewRow, 0, len(result.Slots))
	for _, slot := range result.Slots {
		key := slot.Key()
		teaching := false
		for _, class := range result.Classes {
			cell := result.Cell(class.ID, key)
			if cell == nil || cell.Teacher == nil || cell.Teacher.ID != teacherID {
				continue
			}
			rows = append(rows, models.TeacherViewRow{
				Day:      slot.Day,
				Time:     slot.StartTime + " - " + slot.EndTime,
				Class:    class.Name,
				Subject:  cell.Subject.Name,
				Room:     cell.Room,
				Teaching: true,
			})
			teaching = true
		}
		if !teaching {
			rows = append(rows, models.TeacherViewRow{
				Day:  slot.Day,
				Time: slot.StartTime + " - " + slot.EndTime,
			})
		}
	}
	return rows
}

// ClassView flattens one class timetable in grid order.
func ClassView(result *Result, classID string) []models.ClassViewRow {
	tt, ok := result.Timetables[classID]
	if !ok {
		return nil
	}

	rows := make([]models.ClassViewRow, 0, len(result.Slots))
	for _, slot := range result.Slots {
		cell := tt.Schedule[slot.Key()]
		row := models.ClassViewRow{
			Day:  slot.Day,
			Time: slot.StartTime + " - " + slot.EndTime,
			Room: tt.Room,
			Type: cellType(cell),
		}
		if cell != nil {
			if cell.Subject != nil {
				row.Subject = cell.Subject.Name
			}
			if cell.Teacher != nil {
				row.Teacher = cell.Teacher.Name
			}
			if cell.Room != "" {
				row.Room = cell.Room
			}
		}
		rows = append(rows, row)
	}
	return rows
}
