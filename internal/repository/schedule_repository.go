package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// ScheduleRepo provides access to venue_schedules and date_overrides.
// Schedule rows are append-only versions keyed by (weekday, effective_from);
// the calendar picks whichever version is in force on a given date, so a
// manager publishing new hours never rewrites history.  All dates and times
// are venue-local wall-clock values stored as DATE and TIME columns.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo returns a ScheduleRepo bound to the given database.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

// scanSchedule reads one venue_schedules row.  open_time/close_time are
// selected via TIME_FORMAT and effective_from via DATE_FORMAT so the values
// arrive as plain strings regardless of driver time parsing.
func scanSchedule(row interface{ Scan(...interface{}) error }) (*model.VenueSchedule, error) {
	var (
		s          model.VenueSchedule
		weekday    int
		open, clos string
	)
	if err := row.Scan(&s.ID, &weekday, &open, &clos, &s.SlotMinutes, &s.BaseCapacity, &s.EffectiveFrom, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Weekday = time.Weekday(weekday)
	var err error
	if s.OpenTime, err = model.ParseClock(open); err != nil {
		return nil, err
	}
	if s.CloseTime, err = model.ParseClock(clos); err != nil {
		return nil, err
	}
	return &s, nil
}

const scheduleCols = `id, weekday, TIME_FORMAT(open_time, '%H:%i'), TIME_FORMAT(close_time, '%H:%i'),
       slot_minutes, base_capacity, DATE_FORMAT(effective_from, '%Y-%m-%d'), created_at`

// VersionsFor returns every schedule version for a weekday, oldest first.
func (r *ScheduleRepo) VersionsFor(ctx context.Context, weekday time.Weekday) ([]model.VenueSchedule, error) {
	q := `SELECT ` + scheduleCols + ` FROM venue_schedules WHERE weekday = ? ORDER BY effective_from`
	rows, err := r.db.QueryContext(ctx, q, int(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.VenueSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ListAll returns every schedule version across all weekdays, for the staff
// schedule view.
func (r *ScheduleRepo) ListAll(ctx context.Context) ([]model.VenueSchedule, error) {
	q := `SELECT ` + scheduleCols + ` FROM venue_schedules ORDER BY weekday, effective_from`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.VenueSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// CreateVersion inserts a new schedule version.  A version already
// published for the same weekday and effective date yields ErrDuplicate.
func (r *ScheduleRepo) CreateVersion(ctx context.Context, s *model.VenueSchedule) error {
	const q = `INSERT INTO venue_schedules (weekday, open_time, close_time, slot_minutes, base_capacity, effective_from)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		int(s.Weekday), s.OpenTime.String(), s.CloseTime.String(), s.SlotMinutes, s.BaseCapacity, s.EffectiveFrom)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// OverrideFor returns the override for a date, or (nil, nil) when the date
// has none and the weekday default applies.
func (r *ScheduleRepo) OverrideFor(ctx context.Context, date string) (*model.DateOverride, error) {
	const q = `SELECT id, DATE_FORMAT(override_date, '%Y-%m-%d'), closed,
	                  TIME_FORMAT(open_time, '%H:%i'), TIME_FORMAT(close_time, '%H:%i'),
	                  slot_minutes, base_capacity, reason, created_at
	           FROM date_overrides WHERE override_date = ?`
	var (
		ov         model.DateOverride
		open, clos sql.NullString
		slotMin    sql.NullInt64
		capacity   sql.NullInt64
		reason     sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, date).Scan(
		&ov.ID, &ov.Date, &ov.Closed, &open, &clos, &slotMin, &capacity, &reason, &ov.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if open.Valid {
		if ov.OpenTime, err = model.ParseClock(open.String); err != nil {
			return nil, err
		}
	}
	if clos.Valid {
		if ov.CloseTime, err = model.ParseClock(clos.String); err != nil {
			return nil, err
		}
	}
	ov.SlotMinutes = int(slotMin.Int64)
	ov.BaseCapacity = int(capacity.Int64)
	ov.Reason = reason.String
	return &ov, nil
}

// UpsertOverride creates or replaces the override for ov.Date.
func (r *ScheduleRepo) UpsertOverride(ctx context.Context, ov *model.DateOverride) error {
	const q = `INSERT INTO date_overrides (override_date, closed, open_time, close_time, slot_minutes, base_capacity, reason)
	           VALUES (?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE closed = VALUES(closed), open_time = VALUES(open_time),
	               close_time = VALUES(close_time), slot_minutes = VALUES(slot_minutes),
	               base_capacity = VALUES(base_capacity), reason = VALUES(reason)`
	var open, clos interface{}
	var slotMin, capacity interface{}
	if !ov.Closed {
		open, clos = ov.OpenTime.String(), ov.CloseTime.String()
		slotMin, capacity = ov.SlotMinutes, ov.BaseCapacity
	}
	_, err := r.db.ExecContext(ctx, q, ov.Date, ov.Closed, open, clos, slotMin, capacity, ov.Reason)
	return err
}

// DeleteOverride removes the override for a date, restoring the weekday
// default.  Deleting a date without an override returns ErrNotFound.
func (r *ScheduleRepo) DeleteOverride(ctx context.Context, date string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM date_overrides WHERE override_date = ?`, date)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOverrides returns overrides within [from, to] for the staff calendar.
func (r *ScheduleRepo) ListOverrides(ctx context.Context, from, to string) ([]model.DateOverride, error) {
	const q = `SELECT id, DATE_FORMAT(override_date, '%Y-%m-%d'), closed,
	                  TIME_FORMAT(open_time, '%H:%i'), TIME_FORMAT(close_time, '%H:%i'),
	                  slot_minutes, base_capacity, reason, created_at
	           FROM date_overrides WHERE override_date BETWEEN ? AND ? ORDER BY override_date`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DateOverride
	for rows.Next() {
		var (
			ov         model.DateOverride
			open, clos sql.NullString
			slotMin    sql.NullInt64
			capacity   sql.NullInt64
			reason     sql.NullString
		)
		if err := rows.Scan(&ov.ID, &ov.Date, &ov.Closed, &open, &clos, &slotMin, &capacity, &reason, &ov.CreatedAt); err != nil {
			return nil, err
		}
		if open.Valid {
			if ov.OpenTime, err = model.ParseClock(open.String); err != nil {
				return nil, err
			}
		}
		if clos.Valid {
			if ov.CloseTime, err = model.ParseClock(clos.String); err != nil {
				return nil, err
			}
		}
		ov.SlotMinutes = int(slotMin.Int64)
		ov.BaseCapacity = int(capacity.Int64)
		ov.Reason = reason.String
		out = append(out, ov)
	}
	return out, rows.Err()
}
