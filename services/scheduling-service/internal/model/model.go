package model

import "time"

// JobType classifies production jobs. Suggestion ranking keys its skill
// keyword sets off this value.
type JobType string

const (
	JobEmbroidery      JobType = "embroidery"
	JobScreenPrinting  JobType = "screen_printing"
	JobDigitalPrinting JobType = "digital_printing"
	JobWideFormat      JobType = "wide_format"
	JobCentralFacility JobType = "central_facility"
)

// Job is the descriptor consumed by the suggestion engine. Jobs are owned by
// the host application; the scheduler only reads them.
type Job struct {
	ID             string
	Title          string
	Type           JobType
	EstimatedHours float64
}

// DayWindow is a working window within a single day, as minutes from midnight.
// Half-open: [StartMinute, EndMinute).
type DayWindow struct {
	StartMinute int
	EndMinute   int
}

// DefaultDayWindow applies when a staff member has no explicit hours for an
// available weekday (08:00-17:00 shop hours).
var DefaultDayWindow = DayWindow{StartMinute: 8 * 60, EndMinute: 17 * 60}

// BlockedTime is an ad hoc unavailable interval on a specific date
// ("YYYY-MM-DD"), e.g. an appointment or vacation day.
type BlockedTime struct {
	Date        string
	StartMinute int
	EndMinute   int
	Reason      string
}

// StaffMember is a read-only roster snapshot entry. Available is indexed by
// time.Weekday (Sunday = 0). Hours holds explicit per-weekday windows; a
// weekday with Available=true and no Hours entry uses DefaultDayWindow.
type StaffMember struct {
	ID        string
	Name      string
	Role      string
	Skills    []string
	Available [7]bool
	Hours     map[time.Weekday]DayWindow
	Blocked   []BlockedTime
}

// WorkingWindow returns the member's window for the weekday, falling back to
// shop defaults. ok is false when the member is off that weekday.
func (m StaffMember) WorkingWindow(d time.Weekday) (DayWindow, bool) {
	if !m.Available[d] {
		return DayWindow{}, false
	}
	if w, ok := m.Hours[d]; ok {
		return w, true
	}
	return DefaultDayWindow, true
}

// BlockedOn returns the member's blocked intervals for a "YYYY-MM-DD" date.
func (m StaffMember) BlockedOn(date string) []BlockedTime {
	var out []BlockedTime
	for _, b := range m.Blocked {
		if b.Date == date {
			out = append(out, b)
		}
	}
	return out
}

// ScheduleEvent is a booked (or proposed) block of work. StaffID and
// MachineID are optional; empty means unassigned. Times carry local
// wall-clock semantics and are truncated to the minute before comparison.
type ScheduleEvent struct {
	ID            string
	JobID         string
	StaffID       string
	MachineID     string
	Start         time.Time
	End           time.Time
	Notes         string
	AutoScheduled bool
}

type ConflictKind string

const (
	ConflictInvalidTimeRange     ConflictKind = "invalid_time_range"
	ConflictAvailability         ConflictKind = "availability_violation"
	ConflictStaffDoubleBooking   ConflictKind = "staff_double_booking"
	ConflictMachineDoubleBooking ConflictKind = "machine_double_booking"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Conflict reports one rule violation for a candidate event. Only error
// severity blocks acceptance; warnings are surfaced but do not block.
type Conflict struct {
	Kind     ConflictKind
	Severity Severity
	Message  string

	// Optional back-references for UI highlighting.
	StaffID   string
	MachineID string
	EventID   string
}

// Blocking reports whether this conflict must prevent the write.
func (c Conflict) Blocking() bool {
	return c.Severity == SeverityError
}

// HasBlocking reports whether any conflict in the list is an error.
func HasBlocking(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Blocking() {
			return true
		}
	}
	return false
}

// Slot is a free window on a specific staff member's day, with 24-hour
// "HH:MM" boundary strings.
type Slot struct {
	Start string
	End   string
}

// Suggestion is a ranked auto-scheduling proposal. Relevance and Utilization
// are 0-100; Score is the weighted combination used for ordering.
type Suggestion struct {
	StaffID     string
	StaffName   string
	Date        string
	Start       string
	End         string
	Relevance   float64
	Utilization float64
	Score       float64
}
