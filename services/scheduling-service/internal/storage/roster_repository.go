package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/printdesk/printdesk/libs/db"
	"github.com/printdesk/printdesk/services/scheduling-service/internal/model"
)

// RosterRepository reads the staff roster snapshot used by conflict detection
// and slot search, and applies staff sync events from the people service.
type RosterRepository struct {
	pool *db.Pool
}

func NewRosterRepository(pool *db.Pool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

// WorkingHoursRecord mirrors one staff_working_hours row. A row with
// is_working=true and zero minutes means "available on shop-default hours".
type WorkingHoursRecord struct {
	Weekday     int
	IsWorking   bool
	StartMinute int
	EndMinute   int
}

type BlockedTimeRecord struct {
	Date        string
	StartMinute int
	EndMinute   int
	Reason      string
}

// StaffRecord is the sync payload shape applied by the roster consumer.
type StaffRecord struct {
	ID      string
	Name    string
	Role    string
	Skills  []string
	Active  bool
	Hours   []WorkingHoursRecord
	Blocked []BlockedTimeRecord
}

// Snapshot loads the active roster with hours and blocked times assembled into
// domain members. Inactive staff are excluded entirely.
func (r *RosterRepository) Snapshot(ctx context.Context) ([]model.StaffMember, error) {
	members, order, err := r.loadStaff(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.loadWorkingHours(ctx, members); err != nil {
		return nil, err
	}
	if err := r.loadBlockedTimes(ctx, members); err != nil {
		return nil, err
	}

	out := make([]model.StaffMember, 0, len(order))
	for _, id := range order {
		out = append(out, *members[id])
	}
	return out, nil
}

func (r *RosterRepository) loadStaff(ctx context.Context) (map[string]*model.StaffMember, []string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, COALESCE(role, ''), COALESCE(skills, '{}')
		FROM staff
		WHERE active
		ORDER BY name, id
	`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	members := map[string]*model.StaffMember{}
	var order []string
	for rows.Next() {
		var m model.StaffMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &m.Skills); err != nil {
			return nil, nil, err
		}
		m.Hours = map[time.Weekday]model.DayWindow{}
		members[m.ID] = &m
		order = append(order, m.ID)
	}
	if rows.Err() != nil {
		return nil, nil, rows.Err()
	}
	return members, order, nil
}

func (r *RosterRepository) loadWorkingHours(ctx context.Context, members map[string]*model.StaffMember) error {
	rows, err := r.pool.Query(ctx, `
		SELECT staff_id::text, weekday, is_working, start_minute, end_minute
		FROM staff_working_hours
		ORDER BY staff_id, weekday
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var staffID string
		var rec WorkingHoursRecord
		if err := rows.Scan(&staffID, &rec.Weekday, &rec.IsWorking, &rec.StartMinute, &rec.EndMinute); err != nil {
			return err
		}
		m, ok := members[staffID]
		if !ok || rec.Weekday < 0 || rec.Weekday > 6 {
			continue
		}
		m.Available[time.Weekday(rec.Weekday)] = rec.IsWorking
		// Zero minutes means the member follows shop-default hours that day.
		if rec.IsWorking && rec.EndMinute > rec.StartMinute {
			m.Hours[time.Weekday(rec.Weekday)] = model.DayWindow{
				StartMinute: rec.StartMinute,
				EndMinute:   rec.EndMinute,
			}
		}
	}
	return rows.Err()
}

func (r *RosterRepository) loadBlockedTimes(ctx context.Context, members map[string]*model.StaffMember) error {
	rows, err := r.pool.Query(ctx, `
		SELECT staff_id::text, to_char(date, 'YYYY-MM-DD'), start_minute, end_minute, COALESCE(reason, '')
		FROM staff_blocked_times
		WHERE date >= CURRENT_DATE - 1
		ORDER BY staff_id, date, start_minute
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var staffID string
		var b model.BlockedTime
		if err := rows.Scan(&staffID, &b.Date, &b.StartMinute, &b.EndMinute, &b.Reason); err != nil {
			return err
		}
		if m, ok := members[staffID]; ok {
			m.Blocked = append(m.Blocked, b)
		}
	}
	return rows.Err()
}

// SyncStaff upserts one member and replaces their hours and blocked times.
// Runs inside the consumer's transaction so a failed sync leaves the previous
// roster intact.
func (r *RosterRepository) SyncStaff(ctx context.Context, tx pgx.Tx, rec StaffRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO staff (id, name, role, skills, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			role = EXCLUDED.role,
			skills = EXCLUDED.skills,
			active = EXCLUDED.active,
			updated_at = now()
	`, rec.ID, rec.Name, rec.Role, rec.Skills, rec.Active)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM staff_working_hours WHERE staff_id = $1`, rec.ID); err != nil {
		return err
	}
	for _, h := range rec.Hours {
		if h.Weekday < 0 || h.Weekday > 6 {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO staff_working_hours (staff_id, weekday, is_working, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5)
		`, rec.ID, h.Weekday, h.IsWorking, h.StartMinute, h.EndMinute); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM staff_blocked_times WHERE staff_id = $1`, rec.ID); err != nil {
		return err
	}
	for _, b := range rec.Blocked {
		if b.EndMinute <= b.StartMinute {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO staff_blocked_times (staff_id, date, start_minute, end_minute, reason)
			VALUES ($1, $2, $3, $4, $5)
		`, rec.ID, b.Date, b.StartMinute, b.EndMinute, b.Reason); err != nil {
			return err
		}
	}
	return nil
}
