// Package handlers exposes the scheduling core over HTTP. Write paths run
// detect-then-commit: the roster and schedule are re-fetched, the candidate is
// validated, and the insert plus its outbox event commit in one transaction.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/conflict"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/model"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/outbox"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/roster"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/slots"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/storage"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/suggest"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/timeutil"
)

// eventStore is the slice of ScheduleRepository the handler needs; narrowed
// so read-path tests can run against in-memory fakes.
type eventStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	ListAll(ctx context.Context, limit int) ([]model.ScheduleEvent, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.ScheduleEvent, error)
	Create(ctx context.Context, tx pgx.Tx, ev *model.ScheduleEvent) (string, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.ScheduleEvent, error)
	Update(ctx context.Context, tx pgx.Tx, ev *model.ScheduleEvent) error
}

type rosterSource interface {
	Snapshot(ctx context.Context) ([]model.StaffMember, error)
}

type outboxStore interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type ScheduleHandler struct {
	repo       eventStore
	rosterRepo rosterSource
	outboxRepo outboxStore
	provider   roster.Provider
	logger     *slog.Logger
}

func NewScheduleHandler(repo eventStore, rosterRepo rosterSource, outboxRepo outboxStore, provider roster.Provider, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		repo:       repo,
		rosterRepo: rosterRepo,
		outboxRepo: outboxRepo,
		provider:   provider,
		logger:     logger,
	}
}

type eventPayload struct {
	ID            string `json:"id,omitempty"`
	JobID         string `json:"job_id"`
	StaffID       string `json:"staff_id,omitempty"`
	MachineID     string `json:"machine_id,omitempty"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Notes         string `json:"notes,omitempty"`
	AutoScheduled bool   `json:"auto_scheduled,omitempty"`
}

type conflictItem struct {
	Kind      string `json:"kind"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	StaffID   string `json:"staff_id,omitempty"`
	MachineID string `json:"machine_id,omitempty"`
	EventID   string `json:"event_id,omitempty"`
}

type conflictResponse struct {
	Conflicts []conflictItem `json:"conflicts"`
	Blocking  bool           `json:"blocking"`
}

type slotItem struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type suggestionItem struct {
	StaffID     string  `json:"staff_id"`
	StaffName   string  `json:"staff_name"`
	Date        string  `json:"date"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Relevance   float64 `json:"relevance"`
	Utilization float64 `json:"utilization"`
	Score       float64 `json:"score"`
}

type jobPayload struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Type           string  `json:"type"`
	EstimatedHours float64 `json:"estimated_hours"`
}

// Conflicts is the dry-run endpoint: detection without persistence.
func (h *ScheduleHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		eventPayload
		IsUpdate bool `json:"is_update"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	candidate, ok := req.eventPayload.toEvent()
	if !ok {
		http.Error(w, "invalid start_time or end_time", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	staff, err := h.loadRoster(ctx)
	if err != nil {
		http.Error(w, "failed to load roster", http.StatusInternalServerError)
		return
	}
	existing, err := h.repo.ListAll(ctx, 0)
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}

	conflicts := conflict.Detect(candidate, existing, staff, req.IsUpdate)
	writeJSON(w, http.StatusOK, toConflictResponse(conflicts))
}

// CreateEvent gates the insert on conflict detection. Blocking conflicts give
// 422 with the full list so the client can surface them.
func (h *ScheduleHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req eventPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ID = ""
	candidate, ok := req.toEvent()
	if !ok {
		http.Error(w, "invalid start_time or end_time", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(candidate.JobID) == "" {
		http.Error(w, "job_id required", http.StatusBadRequest)
		return
	}

	h.commitEvent(w, r, candidate, outbox.TopicEventBooked, false)
}

// UpdateEvent reschedules an existing event; detection excludes the stored
// version so moving an event never conflicts with itself.
func (h *ScheduleHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req eventPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	candidate, ok := req.toEvent()
	if !ok {
		http.Error(w, "invalid start_time or end_time", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(candidate.ID) == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	h.commitEvent(w, r, candidate, outbox.TopicEventRescheduled, true)
}

func (h *ScheduleHandler) commitEvent(w http.ResponseWriter, r *http.Request, candidate model.ScheduleEvent, topic string, isUpdate bool) {
	ctx := r.Context()

	staff, err := h.loadRoster(ctx)
	if err != nil {
		http.Error(w, "failed to load roster", http.StatusInternalServerError)
		return
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if isUpdate {
		stored, err := h.repo.GetForUpdate(ctx, tx, candidate.ID)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "event not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load event", http.StatusInternalServerError)
			return
		}
		candidate.AutoScheduled = stored.AutoScheduled
		if candidate.JobID == "" {
			candidate.JobID = stored.JobID
		}
	}

	existing, err := h.repo.ListAll(ctx, 0)
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}

	conflicts := conflict.Detect(candidate, existing, staff, isUpdate)
	if model.HasBlocking(conflicts) {
		writeJSON(w, http.StatusUnprocessableEntity, toConflictResponse(conflicts))
		return
	}

	id := candidate.ID
	if isUpdate {
		if err := h.repo.Update(ctx, tx, &candidate); err != nil {
			http.Error(w, "failed to update event", http.StatusInternalServerError)
			return
		}
	} else {
		id, err = h.repo.Create(ctx, tx, &candidate)
		if err != nil {
			http.Error(w, "failed to create event", http.StatusInternalServerError)
			return
		}
		candidate.ID = id
	}

	payload, err := json.Marshal(map[string]any{
		"event_id":       id,
		"job_id":         candidate.JobID,
		"staff_id":       candidate.StaffID,
		"machine_id":     candidate.MachineID,
		"start_time":     candidate.Start.Format(time.RFC3339),
		"end_time":       candidate.End.Format(time.RFC3339),
		"auto_scheduled": candidate.AutoScheduled,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "schedule_event",
		AggregateID:   id,
		EventType:     topic,
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	status := http.StatusCreated
	if isUpdate {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"event_id":  id,
		"conflicts": toConflictItems(conflicts),
	})
}

// ListEvents returns events overlapping [from, to).
func (h *ScheduleHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	from, err := time.Parse(time.RFC3339, strings.TrimSpace(r.URL.Query().Get("from")))
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := time.Parse(time.RFC3339, strings.TrimSpace(r.URL.Query().Get("to")))
	if err != nil || !to.After(from) {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}

	events, err := h.repo.ListBetween(r.Context(), from, to)
	if err != nil {
		http.Error(w, "failed to list events", http.StatusInternalServerError)
		return
	}

	items := make([]eventPayload, 0, len(events))
	for _, ev := range events {
		items = append(items, eventPayload{
			ID:            ev.ID,
			JobID:         ev.JobID,
			StaffID:       ev.StaffID,
			MachineID:     ev.MachineID,
			StartTime:     ev.Start.Format(time.RFC3339),
			EndTime:       ev.End.Format(time.RFC3339),
			Notes:         ev.Notes,
			AutoScheduled: ev.AutoScheduled,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Slots runs the free-slot finder for one staff member and date.
func (h *ScheduleHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if staffID == "" || date == "" {
		http.Error(w, "staff_id and date are required", http.StatusBadRequest)
		return
	}
	required := 60
	if raw := strings.TrimSpace(r.URL.Query().Get("required_minutes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 24*60 {
			http.Error(w, "invalid required_minutes", http.StatusBadRequest)
			return
		}
		required = n
	}

	ctx := r.Context()
	staff, err := h.loadRoster(ctx)
	if err != nil {
		http.Error(w, "failed to load roster", http.StatusInternalServerError)
		return
	}
	events, err := h.repo.ListAll(ctx, 0)
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}

	found := slots.Find(staffID, date, staff, events, required)
	items := make([]slotItem, 0, len(found))
	for _, s := range found {
		items = append(items, slotItem{Start: s.Start, End: s.End})
	}
	writeJSON(w, http.StatusOK, items)
}

// Suggestions ranks auto-scheduling proposals for a job descriptor.
func (h *ScheduleHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Job            jobPayload `json:"job"`
		MaxSuggestions int        `json:"max_suggestions"`
		DaysToCheck    int        `json:"days_to_check"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Job.EstimatedHours <= 0 {
		http.Error(w, "estimated_hours must be positive", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	staff, err := h.loadRoster(ctx)
	if err != nil {
		http.Error(w, "failed to load roster", http.StatusInternalServerError)
		return
	}
	events, err := h.repo.ListAll(ctx, 0)
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}

	suggestions := suggest.Generate(req.Job.toJob(), staff, events, req.MaxSuggestions, req.DaysToCheck, time.Now())
	items := make([]suggestionItem, 0, len(suggestions))
	for _, s := range suggestions {
		items = append(items, suggestionItem{
			StaffID:     s.StaffID,
			StaffName:   s.StaffName,
			Date:        s.Date,
			Start:       s.Start,
			End:         s.End,
			Relevance:   s.Relevance,
			Utilization: s.Utilization,
			Score:       s.Score,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// AcceptSuggestion turns a chosen suggestion into a persisted auto-scheduled
// event, re-running conflict detection in case the schedule moved since the
// suggestion was generated.
func (h *ScheduleHandler) AcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Job        jobPayload     `json:"job"`
		Suggestion suggestionItem `json:"suggestion"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Job.ID) == "" {
		http.Error(w, "job id required", http.StatusBadRequest)
		return
	}

	candidate, ok := suggest.BuildEvent(model.Suggestion{
		StaffID: req.Suggestion.StaffID,
		Date:    req.Suggestion.Date,
		Start:   req.Suggestion.Start,
		End:     req.Suggestion.End,
	}, req.Job.toJob(), uuid.NewString())
	if !ok {
		http.Error(w, "invalid suggestion", http.StatusBadRequest)
		return
	}

	h.commitEvent(w, r, candidate, outbox.TopicEventBooked, false)
}

// TimeOptions serves the half-hour option lists for scheduling forms.
func (h *ScheduleHandler) TimeOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startHour := 8
	endHour := 17
	if raw := strings.TrimSpace(r.URL.Query().Get("start_hour")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 23 {
			http.Error(w, "invalid start_hour", http.StatusBadRequest)
			return
		}
		startHour = n
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("end_hour")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < startHour || n > 23 {
			http.Error(w, "invalid end_hour", http.StatusBadRequest)
			return
		}
		endHour = n
	}
	use12 := strings.TrimSpace(r.URL.Query().Get("format")) != "24"

	writeJSON(w, http.StatusOK, timeutil.TimeOptions(startHour, endHour, use12))
}

// loadRoster prefers the live people-service roster when the provider is
// compiled in and reachable; otherwise the Postgres snapshot is the source.
func (h *ScheduleHandler) loadRoster(ctx context.Context) ([]model.StaffMember, error) {
	if h.provider != nil {
		reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		staff, err := h.provider.ListStaff(reqCtx)
		if err == nil {
			return staff, nil
		}
		h.logger.Warn("roster provider fetch failed; using snapshot", "err", err)
	}
	return h.rosterRepo.Snapshot(ctx)
}

func (p eventPayload) toEvent() (model.ScheduleEvent, bool) {
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(p.StartTime))
	if err != nil {
		return model.ScheduleEvent{}, false
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(p.EndTime))
	if err != nil {
		return model.ScheduleEvent{}, false
	}
	return model.ScheduleEvent{
		ID:            strings.TrimSpace(p.ID),
		JobID:         strings.TrimSpace(p.JobID),
		StaffID:       strings.TrimSpace(p.StaffID),
		MachineID:     strings.TrimSpace(p.MachineID),
		Start:         start,
		End:           end,
		Notes:         p.Notes,
		AutoScheduled: p.AutoScheduled,
	}, true
}

func (p jobPayload) toJob() model.Job {
	return model.Job{
		ID:             strings.TrimSpace(p.ID),
		Title:          strings.TrimSpace(p.Title),
		Type:           model.JobType(strings.TrimSpace(p.Type)),
		EstimatedHours: p.EstimatedHours,
	}
}

func toConflictItems(conflicts []model.Conflict) []conflictItem {
	items := make([]conflictItem, 0, len(conflicts))
	for _, c := range conflicts {
		items = append(items, conflictItem{
			Kind:      string(c.Kind),
			Severity:  string(c.Severity),
			Message:   c.Message,
			StaffID:   c.StaffID,
			MachineID: c.MachineID,
			EventID:   c.EventID,
		})
	}
	return items
}

func toConflictResponse(conflicts []model.Conflict) conflictResponse {
	return conflictResponse{
		Conflicts: toConflictItems(conflicts),
		Blocking:  model.HasBlocking(conflicts),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
