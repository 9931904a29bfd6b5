// Package conflict validates candidate schedule events against the roster and
// the existing schedule. Detection is pure and never fails: every violation
// becomes a Conflict entry and the caller decides acceptance policy from the
// severities.
package conflict

import (
	"fmt"
	"time"

	"github.com/printdesk/printdesk/services/scheduling-service/internal/model"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/timeutil"
)

// Detect checks a candidate event against the staff roster and existing
// schedule. When isUpdate is true the candidate's own stored version is
// excluded, so rescheduling an event never conflicts with itself.
//
// All rules run; an invalid time range does not short-circuit the rest.
func Detect(candidate model.ScheduleEvent, existing []model.ScheduleEvent, staff []model.StaffMember, isUpdate bool) []model.Conflict {
	conflicts := []model.Conflict{}

	start := candidate.Start.Truncate(time.Minute)
	end := candidate.End.Truncate(time.Minute)

	others := make([]model.ScheduleEvent, 0, len(existing))
	for _, ev := range existing {
		if isUpdate && ev.ID == candidate.ID {
			continue
		}
		others = append(others, ev)
	}

	if !end.After(start) {
		conflicts = append(conflicts, model.Conflict{
			Kind:     model.ConflictInvalidTimeRange,
			Severity: model.SeverityError,
			Message:  "end time must be after start time",
			EventID:  candidate.ID,
		})
	}

	if candidate.StaffID != "" {
		if member, ok := findStaff(staff, candidate.StaffID); ok {
			conflicts = append(conflicts, availabilityConflicts(candidate, member, start, end)...)
		}
		conflicts = append(conflicts, doubleBookings(candidate, others, start, end, matchStaff)...)
	}

	if candidate.MachineID != "" {
		conflicts = append(conflicts, doubleBookings(candidate, others, start, end, matchMachine)...)
	}

	return conflicts
}

func availabilityConflicts(candidate model.ScheduleEvent, member model.StaffMember, start, end time.Time) []model.Conflict {
	var out []model.Conflict

	weekday := start.Weekday()
	if !member.Available[weekday] {
		return append(out, model.Conflict{
			Kind:     model.ConflictAvailability,
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("%s is not available on %s", member.Name, weekday),
			StaffID:  member.ID,
			EventID:  candidate.ID,
		})
	}

	// Only explicit hours are enforced here; members on shop-default hours are
	// constrained by slot search, not by the detector.
	if window, ok := member.Hours[weekday]; ok {
		winStart := atMinute(start, window.StartMinute)
		winEnd := atMinute(start, window.EndMinute)
		if start.Before(winStart) || end.After(winEnd) {
			out = append(out, model.Conflict{
				Kind:     model.ConflictAvailability,
				Severity: model.SeverityError,
				Message: fmt.Sprintf("%s works %s-%s on %s", member.Name,
					timeutil.FormatMinutes(window.StartMinute), timeutil.FormatMinutes(window.EndMinute), weekday),
				StaffID: member.ID,
				EventID: candidate.ID,
			})
		}
	}

	date := start.Format("2006-01-02")
	for _, block := range member.BlockedOn(date) {
		blockStart := atMinute(start, block.StartMinute)
		blockEnd := atMinute(start, block.EndMinute)
		if overlaps(start, end, blockStart, blockEnd) {
			msg := fmt.Sprintf("%s is blocked %s-%s on %s", member.Name,
				timeutil.FormatMinutes(block.StartMinute), timeutil.FormatMinutes(block.EndMinute), date)
			if block.Reason != "" {
				msg += " (" + block.Reason + ")"
			}
			out = append(out, model.Conflict{
				Kind:     model.ConflictAvailability,
				Severity: model.SeverityError,
				Message:  msg,
				StaffID:  member.ID,
				EventID:  candidate.ID,
			})
		}
	}

	return out
}

type matcher func(candidate, other model.ScheduleEvent) (model.ConflictKind, bool)

func matchStaff(candidate, other model.ScheduleEvent) (model.ConflictKind, bool) {
	return model.ConflictStaffDoubleBooking, other.StaffID != "" && other.StaffID == candidate.StaffID
}

func matchMachine(candidate, other model.ScheduleEvent) (model.ConflictKind, bool) {
	return model.ConflictMachineDoubleBooking, other.MachineID != "" && other.MachineID == candidate.MachineID
}

func doubleBookings(candidate model.ScheduleEvent, others []model.ScheduleEvent, start, end time.Time, match matcher) []model.Conflict {
	var out []model.Conflict
	for _, other := range others {
		kind, ok := match(candidate, other)
		if !ok {
			continue
		}
		otherStart := other.Start.Truncate(time.Minute)
		otherEnd := other.End.Truncate(time.Minute)
		if !overlaps(start, end, otherStart, otherEnd) {
			continue
		}
		c := model.Conflict{
			Kind:     kind,
			Severity: model.SeverityError,
			EventID:  other.ID,
		}
		if kind == model.ConflictMachineDoubleBooking {
			c.MachineID = candidate.MachineID
			c.Message = fmt.Sprintf("machine already booked %s-%s (event %s)",
				otherStart.Format("2006-01-02 15:04"), otherEnd.Format("15:04"), other.ID)
		} else {
			c.StaffID = candidate.StaffID
			c.Message = fmt.Sprintf("staff member already booked %s-%s (event %s)",
				otherStart.Format("2006-01-02 15:04"), otherEnd.Format("15:04"), other.ID)
		}
		out = append(out, c)
	}
	return out
}

// overlaps uses half-open interval semantics: touching boundaries
// (aEnd == bStart) do not overlap, so back-to-back bookings are allowed.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func atMinute(day time.Time, minuteOfDay int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minuteOfDay/60, minuteOfDay%60, 0, 0, day.Location())
}

func findStaff(staff []model.StaffMember, id string) (model.StaffMember, bool) {
	for _, m := range staff {
		if m.ID == id {
			return m, true
		}
	}
	return model.StaffMember{}, false
}
