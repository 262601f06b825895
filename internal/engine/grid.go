package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/campusgrid/timetable-api/internal/models"
)

const (
	lunchType  = "Lunch Break"
	lunchStart = "12:00"
	lunchEnd   = "13:00"
)

// BuildTimeSlots expands the weekly configuration into the ordered slot grid.
// Each day runs from StartTime to EndTime in PeriodDuration-minute steps; a
// trailing partial period is dropped. Slots matching a special period on exact
// day and start time are flagged. An empty day list yields an empty grid.
func BuildTimeSlots(cfg Config) ([]models.TimeSlot, error) {
	if cfg.PeriodDuration <= 0 {
		return nil, fmt.Errorf("period duration must be positive, got %d", cfg.PeriodDuration)
	}
	start, err := clockToMinutes(cfg.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q: %w", cfg.StartTime, err)
	}
	end, err := clockToMinutes(cfg.EndTime)
	if err != nil {
		return nil, fmt.Errorf("invalid end time %q: %w", cfg.EndTime, err)
	}

	specials, err := withDefaultLunch(cfg.Days, cfg.SpecialPeriods)
	if err != nil {
		return nil, err
	}

	var slots []models.TimeSlot
	for _, day := range cfg.Days {
		for cur := start; cur+cfg.PeriodDuration <= end; cur += cfg.PeriodDuration {
			slot := models.TimeSlot{
				Day:       day,
				StartTime: minutesToClock(cur),
				EndTime:   minutesToClock(cur + cfg.PeriodDuration),
			}
			if sp, ok := matchSpecial(specials, day, slot.StartTime); ok {
				slot.IsSpecialPeriod = true
				slot.SpecialType = sp.Type
			}
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// SlotsPerDay derives the per-day slot count from the configured window.
func SlotsPerDay(cfg Config) int {
	start, err1 := clockToMinutes(cfg.StartTime)
	end, err2 := clockToMinutes(cfg.EndTime)
	if err1 != nil || err2 != nil || cfg.PeriodDuration <= 0 {
		return defaultSlotsPerDay
	}
	n := (end - start) / cfg.PeriodDuration
	if n < 1 {
		return 1
	}
	return n
}

// withDefaultLunch injects the 12:00-13:00 lunch break for every configured
// day unless an identical entry already exists.
func withDefaultLunch(days []string, specials []models.SpecialPeriod) ([]models.SpecialPeriod, error) {
	out := make([]models.SpecialPeriod, 0, len(specials)+len(days))
	for _, sp := range specials {
		if _, err := clockToMinutes(sp.StartTime); err != nil {
			return nil, fmt.Errorf("invalid special period start %q: %w", sp.StartTime, err)
		}
		if _, err := clockToMinutes(sp.EndTime); err != nil {
			return nil, fmt.Errorf("invalid special period end %q: %w", sp.EndTime, err)
		}
		out = append(out, sp)
	}
	for _, day := range days {
		day = strings.TrimSpace(day)
		found := false
		for _, sp := range out {
			if sp.Day == day && sp.StartTime == lunchStart && sp.EndTime == lunchEnd && sp.Type == lunchType {
				found = true
				break
			}
		}
		if !found {
			out = append(out, models.SpecialPeriod{Day: day, StartTime: lunchStart, EndTime: lunchEnd, Type: lunchType})
		}
	}
	return out, nil
}

func matchSpecial(specials []models.SpecialPeriod, day, startTime string) (models.SpecialPeriod, bool) {
	for _, sp := range specials {
		if sp.Day == day && sp.StartTime == startTime {
			return sp, true
		}
	}
	return models.SpecialPeriod{}, false
}

// clockToMinutes parses "HH:MM" into minutes since midnight.
func clockToMinutes(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM")
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("bad hour component: %w", err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("bad minute component: %w", err)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock value out of range")
	}
	return hours*60 + minutes, nil
}

func minutesToClock(total int) string {
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// withinWindow reports whether [slotStart, slotEnd] falls inside the window
// [winStart, winEnd], all in "HH:MM". Malformed values are treated as no-fit.
func withinWindow(slotStart, slotEnd, winStart, winEnd string) bool {
	ss, err1 := clockToMinutes(slotStart)
	se, err2 := clockToMinutes(slotEnd)
	ws, err3 := clockToMinutes(winStart)
	we, err4 := clockToMinutes(winEnd)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	return ss >= ws && se <= we
}
