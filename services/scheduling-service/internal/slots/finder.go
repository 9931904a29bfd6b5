// Package slots computes the free bookable windows of one staff member's day.
// The day is partitioned into fixed 30-minute increments (half-hour production
// blocks) and a window is emitted for every aligned start where the required
// duration fits without touching an existing event or blocked time.
package slots

import (
	"time"

	"github.com/printdesk/printdesk/services/scheduling-service/internal/model"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/timeutil"
)

// slotMinutes is the atomic scheduling increment.
const slotMinutes = 30

// Find returns the windows of exactly requiredMinutes that fit into the staff
// member's date without overlapping their events or blocked times. date is
// "YYYY-MM-DD". The result is ordered by start time and never nil; an unknown
// member, an off day, or a bad date yields an empty list.
func Find(staffID, date string, staff []model.StaffMember, events []model.ScheduleEvent, requiredMinutes int) []model.Slot {
	out := []model.Slot{}
	if requiredMinutes <= 0 {
		return out
	}

	member, ok := findStaff(staff, staffID)
	if !ok {
		return out
	}
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return out
	}
	window, ok := member.WorkingWindow(day.Weekday())
	if !ok {
		return out
	}

	starts := freeSlotStarts(member, date, day, window, events)
	need := (requiredMinutes + slotMinutes - 1) / slotMinutes

	for i := 0; i+need <= len(starts); i++ {
		run := true
		for j := 1; j < need; j++ {
			// Contiguous means each slot ends where the next begins.
			if starts[i+j] != starts[i+j-1]+slotMinutes {
				run = false
				break
			}
		}
		if !run {
			continue
		}
		end := starts[i] + requiredMinutes
		if end > window.EndMinute {
			continue
		}
		out = append(out, model.Slot{
			Start: timeutil.FormatMinutes(starts[i]),
			End:   timeutil.FormatMinutes(end),
		})
	}
	return out
}

// freeSlotStarts returns the minute-of-day starts of the atomic slots that
// survive the member's busy intervals, ascending.
func freeSlotStarts(member model.StaffMember, date string, day time.Time, window model.DayWindow, events []model.ScheduleEvent) []int {
	busy := busyIntervals(member, date, day, events)

	var starts []int
	for s := window.StartMinute; s+slotMinutes <= window.EndMinute; s += slotMinutes {
		if !overlapsAny(s, s+slotMinutes, busy) {
			starts = append(starts, s)
		}
	}
	return starts
}

type interval struct {
	start int
	end   int
}

func busyIntervals(member model.StaffMember, date string, day time.Time, events []model.ScheduleEvent) []interval {
	var busy []interval
	for _, ev := range events {
		if ev.StaffID != member.ID {
			continue
		}
		start := ev.Start.Truncate(time.Minute)
		if start.Format("2006-01-02") != date {
			continue
		}
		end := ev.End.Truncate(time.Minute)
		busy = append(busy, interval{
			start: start.Hour()*60 + start.Minute(),
			end:   minuteOfDayEnd(day, end),
		})
	}
	for _, b := range member.BlockedOn(date) {
		busy = append(busy, interval{start: b.StartMinute, end: b.EndMinute})
	}
	return busy
}

// minuteOfDayEnd clamps an event end to the day boundary so an overnight
// event blocks the remainder of its starting day.
func minuteOfDayEnd(day time.Time, end time.Time) int {
	if end.Year() != day.Year() || end.YearDay() != day.YearDay() {
		return 24 * 60
	}
	return end.Hour()*60 + end.Minute()
}

func overlapsAny(start, end int, busy []interval) bool {
	for _, b := range busy {
		// Half-open intervals: touching boundaries are free.
		if start < b.end && b.start < end {
			return true
		}
	}
	return false
}

func findStaff(staff []model.StaffMember, id string) (model.StaffMember, bool) {
	for _, m := range staff {
		if m.ID == id {
			return m, true
		}
	}
	return model.StaffMember{}, false
}
