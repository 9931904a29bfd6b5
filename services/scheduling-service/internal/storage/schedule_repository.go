package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/printdesk/printdesk/libs/db"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/model"
)

const eventColumns = `id::text, COALESCE(job_id, ''), COALESCE(staff_id::text, ''),
	COALESCE(machine_id, ''), start_time, end_time, COALESCE(notes, ''), auto_scheduled`

// ScheduleRepository persists schedule events. Writes go through a caller-held
// transaction so the conflict gate, the insert, and the outbox entry commit
// atomically.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// ListAll returns events ordered by start time, bounded by limit (default 500).
func (r *ScheduleRepository) ListAll(ctx context.Context, limit int) ([]model.ScheduleEvent, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM schedule_events
		ORDER BY start_time ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// ListBetween returns events overlapping [from, to).
func (r *ScheduleRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.ScheduleEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM schedule_events
		WHERE start_time < $2 AND end_time > $1
		ORDER BY start_time ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// Create inserts the event, honoring a caller-assigned id (the accepted
// suggestion path pre-generates one) and minting one otherwise.
func (r *ScheduleRepository) Create(ctx context.Context, tx pgx.Tx, ev *model.ScheduleEvent) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO schedule_events (id, job_id, staff_id, machine_id, start_time, end_time, notes, auto_scheduled)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, NULLIF($3, '')::uuid, NULLIF($4, ''), $5, $6, $7, $8)
		RETURNING id
	`, ev.ID, ev.JobID, ev.StaffID, ev.MachineID, ev.Start, ev.End, ev.Notes, ev.AutoScheduled).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetForUpdate locks the stored event row for the rescheduling path.
func (r *ScheduleRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.ScheduleEvent, error) {
	var ev model.ScheduleEvent
	err := tx.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM schedule_events
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&ev.ID, &ev.JobID, &ev.StaffID, &ev.MachineID, &ev.Start, &ev.End, &ev.Notes, &ev.AutoScheduled)
	if err != nil {
		return model.ScheduleEvent{}, err
	}
	return ev, nil
}

func (r *ScheduleRepository) Update(ctx context.Context, tx pgx.Tx, ev *model.ScheduleEvent) error {
	tag, err := tx.Exec(ctx, `
		UPDATE schedule_events
		SET job_id = $2,
			staff_id = NULLIF($3, '')::uuid,
			machine_id = NULLIF($4, ''),
			start_time = $5,
			end_time = $6,
			notes = $7,
			updated_at = now()
		WHERE id = $1
	`, ev.ID, ev.JobID, ev.StaffID, ev.MachineID, ev.Start, ev.End, ev.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func scanEvents(rows pgx.Rows) ([]model.ScheduleEvent, error) {
	defer rows.Close()

	var events []model.ScheduleEvent
	for rows.Next() {
		var ev model.ScheduleEvent
		if err := rows.Scan(&ev.ID, &ev.JobID, &ev.StaffID, &ev.MachineID, &ev.Start, &ev.End, &ev.Notes, &ev.AutoScheduled); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}
