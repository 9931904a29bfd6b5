package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/model"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/outbox"
)

type fakeEventStore struct {
	events []model.ScheduleEvent
}

func (f *fakeEventStore) Begin(context.Context) (pgx.Tx, error) { return nil, nil }

func (f *fakeEventStore) ListAll(context.Context, int) ([]model.ScheduleEvent, error) {
	return f.events, nil
}

func (f *fakeEventStore) ListBetween(_ context.Context, from, to time.Time) ([]model.ScheduleEvent, error) {
	var out []model.ScheduleEvent
	for _, ev := range f.events {
		if ev.Start.Before(to) && from.Before(ev.End) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeEventStore) Create(context.Context, pgx.Tx, *model.ScheduleEvent) (string, error) {
	return "", nil
}

func (f *fakeEventStore) GetForUpdate(context.Context, pgx.Tx, string) (model.ScheduleEvent, error) {
	return model.ScheduleEvent{}, pgx.ErrNoRows
}

func (f *fakeEventStore) Update(context.Context, pgx.Tx, *model.ScheduleEvent) error { return nil }

type fakeRoster struct {
	staff []model.StaffMember
}

func (f *fakeRoster) Snapshot(context.Context) ([]model.StaffMember, error) {
	return f.staff, nil
}

type fakeOutbox struct{}

func (fakeOutbox) Insert(context.Context, pgx.Tx, outbox.Event) error { return nil }

func testStaff() []model.StaffMember {
	m := model.StaffMember{
		ID:     "s1",
		Name:   "Dana",
		Role:   "operator",
		Skills: []string{"embroidery"},
		Hours:  map[time.Weekday]model.DayWindow{},
	}
	for d := time.Monday; d <= time.Friday; d++ {
		m.Available[d] = true
		m.Hours[d] = model.DayWindow{StartMinute: 9 * 60, EndMinute: 17 * 60}
	}
	return []model.StaffMember{m}
}

func newTestHandler(events []model.ScheduleEvent) *ScheduleHandler {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	return NewScheduleHandler(&fakeEventStore{events: events}, &fakeRoster{staff: testStaff()}, fakeOutbox{}, nil, logger)
}

func TestConflictsDryRun(t *testing.T) {
	// 2024-06-03 is a Monday; the existing booking occupies 10:00-11:00.
	existing := []model.ScheduleEvent{
		{
			ID:      "e1",
			StaffID: "s1",
			Start:   time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
			End:     time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC),
		},
	}
	h := newTestHandler(existing)

	body := `{"job_id":"j1","staff_id":"s1","start_time":"2024-06-03T10:30:00Z","end_time":"2024-06-03T11:30:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/conflicts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Conflicts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp conflictResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if !resp.Blocking {
		t.Fatalf("overlapping booking must block: %+v", resp)
	}
	found := false
	for _, c := range resp.Conflicts {
		if c.Kind == string(model.ConflictStaffDoubleBooking) && c.EventID == "e1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected staff double-booking against e1, got %+v", resp.Conflicts)
	}
}

func TestConflictsCleanCandidate(t *testing.T) {
	h := newTestHandler(nil)

	body := `{"job_id":"j1","staff_id":"s1","start_time":"2024-06-03T10:00:00Z","end_time":"2024-06-03T11:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/conflicts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Conflicts(rec, req)

	var resp conflictResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Blocking || len(resp.Conflicts) != 0 {
		t.Fatalf("clean candidate must pass, got %+v", resp)
	}
}

func TestConflictsRejectsBadTimes(t *testing.T) {
	h := newTestHandler(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/conflicts",
		strings.NewReader(`{"job_id":"j1","start_time":"tomorrow","end_time":"later"}`))
	rec := httptest.NewRecorder()
	h.Conflicts(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSlotsEndpoint(t *testing.T) {
	h := newTestHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedule/slots?staff_id=s1&date=2024-06-03&required_minutes=60", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var items []slotItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	// 9-17 window, 60-minute duration: aligned starts 09:00..16:00.
	if len(items) != 15 {
		t.Fatalf("expected 15 slots, got %d", len(items))
	}
	if items[0].Start != "09:00" || items[0].End != "10:00" {
		t.Fatalf("unexpected first slot %+v", items[0])
	}
}

func TestSlotsValidation(t *testing.T) {
	h := newTestHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedule/slots?date=2024-06-03", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing staff_id must 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/schedule/slots?staff_id=s1&date=2024-06-03&required_minutes=-5", nil)
	rec = httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative duration must 400, got %d", rec.Code)
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	h := newTestHandler(nil)

	body := `{"job":{"id":"j1","type":"embroidery","estimated_hours":1},"max_suggestions":3,"days_to_check":7}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/suggestions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Suggestions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var items []suggestionItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(items) == 0 || len(items) > 3 {
		t.Fatalf("expected 1-3 suggestions, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].Score > items[i-1].Score {
			t.Fatalf("suggestions out of order at %d: %+v", i, items)
		}
	}
}

func TestSuggestionsRequiresDuration(t *testing.T) {
	h := newTestHandler(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/suggestions",
		strings.NewReader(`{"job":{"id":"j1","type":"embroidery"}}`))
	rec := httptest.NewRecorder()
	h.Suggestions(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListEventsRange(t *testing.T) {
	events := []model.ScheduleEvent{
		{ID: "e1", JobID: "j1", Start: time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)},
		{ID: "e2", JobID: "j2", Start: time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 10, 11, 0, 0, 0, time.UTC)},
	}
	h := newTestHandler(events)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/schedule/events?from=2024-06-03T00:00:00Z&to=2024-06-04T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	h.ListEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var items []eventPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(items) != 1 || items[0].ID != "e1" {
		t.Fatalf("expected only e1 in range, got %+v", items)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/schedule/events?from=bad&to=worse", nil)
	rec = httptest.NewRecorder()
	h.ListEvents(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad range must 400, got %d", rec.Code)
	}
}

func TestTimeOptionsEndpoint(t *testing.T) {
	h := newTestHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedule/time-options?start_hour=8&end_hour=17", nil)
	rec := httptest.NewRecorder()
	h.TimeOptions(rec, req)

	var options []string
	if err := json.Unmarshal(rec.Body.Bytes(), &options); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(options) != 19 {
		t.Fatalf("expected 19 options for 8-17, got %d", len(options))
	}
	if options[0] != "8:00 AM" || options[len(options)-1] != "5:00 PM" {
		t.Fatalf("unexpected boundary options: %q .. %q", options[0], options[len(options)-1])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/schedule/time-options?format=24", nil)
	rec = httptest.NewRecorder()
	h.TimeOptions(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &options); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if options[0] != "08:00" {
		t.Fatalf("24-hour format expected, got %q", options[0])
	}
}
