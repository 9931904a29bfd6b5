package suggest

import (
	"testing"
	"time"

	"github.com/printdesk/printdesk/services/scheduling-service/internal/model"
)

// 2024-06-03 is a Monday.
var monday = time.Date(2024, 6, 3, 0, 0, 0, 0, time.Local)

func operator(id, name string, skills ...string) model.StaffMember {
	m := model.StaffMember{
		ID:     id,
		Name:   name,
		Role:   "operator",
		Skills: skills,
		Hours:  map[time.Weekday]model.DayWindow{},
	}
	for d := time.Monday; d <= time.Friday; d++ {
		m.Available[d] = true
		m.Hours[d] = model.DayWindow{StartMinute: 9 * 60, EndMinute: 17 * 60}
	}
	return m
}

func TestGenerateFiltersUnskilledStaff(t *testing.T) {
	staff := []model.StaffMember{
		operator("s1", "Dana", "embroidery"),
		operator("s2", "Kim", "bookkeeping"),
	}
	job := model.Job{ID: "j1", Type: model.JobEmbroidery, EstimatedHours: 1}

	for _, s := range Generate(job, staff, nil, 20, 1, monday) {
		if s.StaffID != "s1" {
			t.Fatalf("unskilled member suggested: %+v", s)
		}
	}
}

func TestGenerateCatchAllAdmitsEveryone(t *testing.T) {
	staff := []model.StaffMember{
		operator("s1", "Dana", "embroidery"),
		operator("s2", "Kim", "bookkeeping"),
	}
	job := model.Job{ID: "j1", Type: model.JobCentralFacility, EstimatedHours: 1}

	seen := map[string]bool{}
	for _, s := range Generate(job, staff, nil, 100, 1, monday) {
		seen[s.StaffID] = true
		if s.Relevance != neutralRelevance {
			t.Fatalf("catch-all relevance must be neutral, got %v", s.Relevance)
		}
	}
	if !seen["s1"] || !seen["s2"] {
		t.Fatalf("catch-all job must consider all staff, saw %v", seen)
	}
}

func TestGenerateRanksSkillMatchFirst(t *testing.T) {
	staff := []model.StaffMember{
		// Listed after the specialist to rule out input-order wins.
		operator("s2", "Kim", "sewing"),
		operator("s1", "Dana", "embroidery", "sewing", "digitizing"),
	}
	job := model.Job{ID: "j1", Type: model.JobEmbroidery, EstimatedHours: 1}

	got := Generate(job, staff, nil, 5, 1, monday)
	if len(got) == 0 {
		t.Fatal("expected suggestions")
	}
	if got[0].StaffID != "s1" {
		t.Fatalf("full skill match must rank first, got %+v", got[0])
	}
}

func TestGeneratePrefersBusyDays(t *testing.T) {
	staff := []model.StaffMember{operator("s1", "Dana", "embroidery")}
	// Tuesday holds one booking; Monday is empty.
	events := []model.ScheduleEvent{
		{ID: "e1", StaffID: "s1", Start: monday.Add(24*time.Hour + 10*time.Hour), End: monday.Add(24*time.Hour + 11*time.Hour)},
	}
	job := model.Job{ID: "j1", Type: model.JobEmbroidery, EstimatedHours: 1}

	got := Generate(job, staff, events, 1, 2, monday)
	if len(got) != 1 {
		t.Fatalf("expected one suggestion, got %d", len(got))
	}
	if got[0].Date != "2024-06-04" {
		t.Fatalf("slot adjacent to an existing booking must win, got %+v", got[0])
	}
	if got[0].Utilization != utilizationMax {
		t.Fatalf("adjacent slot must score full utilization, got %v", got[0].Utilization)
	}
}

func TestGenerateDefaultsAndCap(t *testing.T) {
	staff := []model.StaffMember{operator("s1", "Dana", "embroidery")}
	job := model.Job{ID: "j1", Type: model.JobEmbroidery, EstimatedHours: 1}

	if got := Generate(job, staff, nil, 0, 0, monday); len(got) != defaultMaxSuggestions {
		t.Fatalf("expected default cap of %d, got %d", defaultMaxSuggestions, len(got))
	}
	if got := Generate(job, staff, nil, 3, 0, monday); len(got) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(got))
	}
}

func TestGenerateDeterministic(t *testing.T) {
	staff := []model.StaffMember{
		operator("s1", "Dana", "embroidery"),
		operator("s2", "Kim", "embroidery"),
	}
	job := model.Job{ID: "j1", Type: model.JobEmbroidery, EstimatedHours: 1.5}

	first := Generate(job, staff, nil, 10, 3, monday)
	second := Generate(job, staff, nil, 10, 3, monday)
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("rank %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestGenerateEmptyOutcomes(t *testing.T) {
	staff := []model.StaffMember{operator("s1", "Dana", "embroidery")}

	if got := Generate(model.Job{ID: "j1", Type: model.JobEmbroidery}, staff, nil, 5, 10, monday); got == nil || len(got) != 0 {
		t.Fatalf("zero-duration job must yield empty non-nil list, got %v", got)
	}
	if got := Generate(model.Job{ID: "j1", Type: model.JobEmbroidery, EstimatedHours: 1}, nil, nil, 5, 10, monday); len(got) != 0 {
		t.Fatalf("empty roster must yield no suggestions, got %v", got)
	}
}

func TestRelevanceScoreTiers(t *testing.T) {
	keywords := jobSkillKeywords[model.JobEmbroidery]

	full := operator("s1", "Dana", "embroidery", "sewing", "digitizing")
	if got := relevanceScore(full, keywords); got != 100 {
		t.Fatalf("all keywords matched exactly must score 100, got %v", got)
	}

	// One substring match: full coverage of a one-skill list, weak quality.
	partial := operator("s2", "Kim", "machine embroidery")
	got := relevanceScore(partial, keywords)
	if got <= 50 || got >= 100 {
		t.Fatalf("substring-only match must land between 50 and 100, got %v", got)
	}

	none := operator("s3", "Ona")
	if got := relevanceScore(none, keywords); got != 0 {
		t.Fatalf("no skills must score 0, got %v", got)
	}
}

func TestUtilizationEmptyDayFavorsMidday(t *testing.T) {
	member := operator("s1", "Dana", "embroidery")
	window := model.DayWindow{StartMinute: 9 * 60, EndMinute: 17 * 60}

	mid := utilizationScore(member, "2024-06-03", model.Slot{Start: "13:00", End: "14:00"}, window, nil)
	edge := utilizationScore(member, "2024-06-03", model.Slot{Start: "09:00", End: "10:00"}, window, nil)
	if mid != idleDayMax {
		t.Fatalf("window midpoint must score %v on an empty day, got %v", idleDayMax, mid)
	}
	if edge >= mid {
		t.Fatalf("edge slot must score below midpoint: edge %v mid %v", edge, mid)
	}
	if mid >= utilizationMax {
		t.Fatal("empty day must never outrank an adjacent slot on a busy day")
	}
}

func TestUtilizationDecayFromBookings(t *testing.T) {
	member := operator("s1", "Dana", "embroidery")
	window := model.DayWindow{StartMinute: 9 * 60, EndMinute: 17 * 60}
	events := []model.ScheduleEvent{
		{ID: "e1", StaffID: "s1", Start: monday.Add(10 * time.Hour), End: monday.Add(11 * time.Hour)},
	}

	adjacent := utilizationScore(member, "2024-06-03", model.Slot{Start: "11:00", End: "12:00"}, window, events)
	if adjacent != utilizationMax {
		t.Fatalf("back-to-back slot must score %v, got %v", utilizationMax, adjacent)
	}

	near := utilizationScore(member, "2024-06-03", model.Slot{Start: "11:30", End: "12:30"}, window, events)
	if near >= adjacent || near <= utilizationFloor {
		t.Fatalf("30-minute gap must decay between floor and max, got %v", near)
	}

	far := utilizationScore(member, "2024-06-03", model.Slot{Start: "14:00", End: "15:00"}, window, events)
	if far != utilizationFloor {
		t.Fatalf("distant slot must hit the floor %v, got %v", utilizationFloor, far)
	}
}

func TestBuildEvent(t *testing.T) {
	s := model.Suggestion{StaffID: "s1", Date: "2024-06-03", Start: "09:00", End: "10:30"}
	job := model.Job{ID: "j1", Type: model.JobEmbroidery, EstimatedHours: 1.5}

	ev, ok := BuildEvent(s, job, "ev-1")
	if !ok {
		t.Fatal("expected event from valid suggestion")
	}
	if ev.ID != "ev-1" || ev.JobID != "j1" || ev.StaffID != "s1" || !ev.AutoScheduled {
		t.Fatalf("unexpected event fields: %+v", ev)
	}
	if !ev.Start.Equal(time.Date(2024, 6, 3, 9, 0, 0, 0, time.Local)) {
		t.Fatalf("unexpected start %v", ev.Start)
	}
	if !ev.End.Equal(time.Date(2024, 6, 3, 10, 30, 0, 0, time.Local)) {
		t.Fatalf("unexpected end %v", ev.End)
	}

	if _, ok := BuildEvent(model.Suggestion{Date: "bad", Start: "09:00", End: "10:00"}, job, "ev-2"); ok {
		t.Fatal("bad date must fail")
	}
	if _, ok := BuildEvent(model.Suggestion{Date: "2024-06-03", Start: "9am", End: "10:00"}, job, "ev-3"); ok {
		t.Fatal("bad start time must fail")
	}
}
