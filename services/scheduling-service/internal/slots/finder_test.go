package slots

import (
	"testing"
	"time"

	"github.com/printdesk/printdesk/services/scheduling-service/internal/model"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/timeutil"
)

func nineToFiveStaff(id string) model.StaffMember {
	m := model.StaffMember{
		ID:    id,
		Name:  "Alex",
		Hours: map[time.Weekday]model.DayWindow{},
	}
	for d := time.Monday; d <= time.Friday; d++ {
		m.Available[d] = true
		m.Hours[d] = model.DayWindow{StartMinute: 9 * 60, EndMinute: 17 * 60}
	}
	return m
}

func slotStartsOf(slots []model.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start)
	}
	return out
}

func TestFindDurationExact(t *testing.T) {
	staff := []model.StaffMember{nineToFiveStaff("s1")}
	for _, required := range []int{30, 45, 60, 90, 120} {
		for _, s := range Find("s1", "2024-06-03", staff, nil, required) {
			start, _ := timeutil.ParseMinutes(s.Start)
			end, _ := timeutil.ParseMinutes(s.End)
			if end-start != required {
				t.Fatalf("required %d: slot %s-%s is %d minutes", required, s.Start, s.End, end-start)
			}
		}
	}
}

func TestFindCompletenessOnFreeDay(t *testing.T) {
	member := nineToFiveStaff("s1")
	// Default shop hours 08:00-17:00.
	member.Hours = nil
	staff := []model.StaffMember{member}

	slots := Find("s1", "2024-06-03", staff, nil, 60)
	// 9-hour window, 60-minute duration: one slot per aligned start 08:00..16:00.
	if len(slots) != 17 {
		t.Fatalf("expected 17 slots, got %d: %v", len(slots), slotStartsOf(slots))
	}
	if slots[0].Start != "08:00" || slots[len(slots)-1].Start != "16:00" {
		t.Fatalf("unexpected boundary slots: first %s last %s", slots[0].Start, slots[len(slots)-1].Start)
	}
}

func TestFindAroundLunchBlock(t *testing.T) {
	member := nineToFiveStaff("s1")
	member.Blocked = []model.BlockedTime{
		{Date: "2024-06-03", StartMinute: 12 * 60, EndMinute: 13 * 60, Reason: "lunch"},
	}
	staff := []model.StaffMember{member}

	slots := Find("s1", "2024-06-03", staff, nil, 120)
	got := map[string]bool{}
	for _, s := range slots {
		got[s.Start] = true
	}

	for _, want := range []string{"09:00", "09:30", "10:00", "13:00", "15:00"} {
		if !got[want] {
			t.Fatalf("expected slot starting %s, got %v", want, slotStartsOf(slots))
		}
	}
	for _, bad := range []string{"11:30", "12:00", "12:30", "15:30"} {
		if got[bad] {
			t.Fatalf("slot starting %s would overlap lunch or overrun the day: %v", bad, slotStartsOf(slots))
		}
	}
	// Morning run ends with 10:00-12:00 touching the block; afternoon resumes
	// at 13:00 and the last fit before 17:00 starts at 15:00.
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d: %v", len(slots), slotStartsOf(slots))
	}
}

func TestFindExcludesBookedTime(t *testing.T) {
	staff := []model.StaffMember{nineToFiveStaff("s1")}
	events := []model.ScheduleEvent{
		{
			ID:      "e1",
			StaffID: "s1",
			Start:   time.Date(2024, 6, 3, 10, 0, 0, 0, time.Local),
			End:     time.Date(2024, 6, 3, 11, 0, 0, 0, time.Local),
		},
		// Different staff member: must not constrain s1.
		{
			ID:      "e2",
			StaffID: "s2",
			Start:   time.Date(2024, 6, 3, 14, 0, 0, 0, time.Local),
			End:     time.Date(2024, 6, 3, 15, 0, 0, 0, time.Local),
		},
	}

	slots := Find("s1", "2024-06-03", staff, events, 30)
	for _, s := range slots {
		if s.Start == "10:00" || s.Start == "10:30" {
			t.Fatalf("booked time offered as free: %v", slotStartsOf(slots))
		}
	}
	found14 := false
	for _, s := range slots {
		if s.Start == "14:00" {
			found14 = true
		}
	}
	if !found14 {
		t.Fatalf("another member's booking must not block s1: %v", slotStartsOf(slots))
	}
}

func TestFindEmptyCases(t *testing.T) {
	staff := []model.StaffMember{nineToFiveStaff("s1")}

	if got := Find("missing", "2024-06-03", staff, nil, 60); got == nil || len(got) != 0 {
		t.Fatalf("unknown staff must yield empty non-nil list, got %v", got)
	}
	// 2024-06-02 is a Sunday.
	if got := Find("s1", "2024-06-02", staff, nil, 60); len(got) != 0 {
		t.Fatalf("off day must yield no slots, got %v", got)
	}
	if got := Find("s1", "not-a-date", staff, nil, 60); len(got) != 0 {
		t.Fatalf("bad date must yield no slots, got %v", got)
	}
	// Longer than the whole day.
	if got := Find("s1", "2024-06-03", staff, nil, 10*60); len(got) != 0 {
		t.Fatalf("oversized duration must yield no slots, got %v", got)
	}
}

func TestFindShortDurationUsesAtomicSlots(t *testing.T) {
	staff := []model.StaffMember{nineToFiveStaff("s1")}
	slots := Find("s1", "2024-06-03", staff, nil, 15)
	// 16 atomic slots between 09:00 and 17:00, each trimmed to 15 minutes.
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	if slots[0].Start != "09:00" || slots[0].End != "09:15" {
		t.Fatalf("unexpected first slot %s-%s", slots[0].Start, slots[0].End)
	}
}
