package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// ReservationRepo owns the reservations table and orchestrates the
// transactions that pair a reservation row with its capacity commitment.
// Reservation rows are never deleted; terminal states (cancelled, no_show,
// completed) are kept for lookup and reporting.  All capacity arithmetic is
// delegated to the CapacityLedgerRepo inside the same transaction, so a
// failed capacity check rolls back the reservation row too and leaves zero
// residual state.
type ReservationRepo struct {
	db     *sql.DB
	ledger *CapacityLedgerRepo
}

// NewReservationRepo returns a ReservationRepo sharing its database handle
// with the given ledger.
func NewReservationRepo(db *sql.DB, l *CapacityLedgerRepo) *ReservationRepo {
	return &ReservationRepo{db: db, ledger: l}
}

const reservationCols = `id, confirmation_code, first_name, last_name, email, phone,
       DATE_FORMAT(reservation_date, '%Y-%m-%d'), TIME_FORMAT(slot_time, '%H:%i'),
       party_size, occasion, special_requests, dietary_restrictions, status, created_at, updated_at`

// scanReservation reads one reservations row selected with reservationCols.
func scanReservation(row interface{ Scan(...interface{}) error }) (*model.Reservation, error) {
	var (
		r        model.Reservation
		slotTime string
		status   string
	)
	err := row.Scan(&r.ID, &r.ConfirmationCode, &r.FirstName, &r.LastName, &r.Email, &r.Phone,
		&r.Date, &slotTime, &r.PartySize, &r.Occasion, &r.SpecialRequests, &r.DietaryRestrictions,
		&status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if r.SlotTime, err = model.ParseClock(slotTime); err != nil {
		return nil, err
	}
	r.Status = model.Status(status)
	return &r, nil
}

// CreateWithCommitment inserts the reservation in pending state together
// with its HOLDING capacity commitment, all in one transaction.  The
// capacity check runs under the slot lock; on ledger.ErrCapacityExceeded or
// ledger.ErrConflict the transaction rolls back and no reservation row
// survives.  On success the generated ID and timestamps are populated on r.
func (s *ReservationRepo) CreateWithCommitment(ctx context.Context, r *model.Reservation, baseCapacity int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const ins = `INSERT INTO reservations
	    (confirmation_code, first_name, last_name, email, phone, reservation_date, slot_time,
	     party_size, occasion, special_requests, dietary_restrictions, status)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins,
		r.ConfirmationCode, r.FirstName, r.LastName, r.Email, r.Phone, r.Date, r.SlotTime.String(),
		r.PartySize, r.Occasion, r.SpecialRequests, r.DietaryRestrictions, string(model.StatusPending))
	if err != nil {
		return mapLedgerErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	r.Status = model.StatusPending

	if _, err := s.ledger.ReserveTx(ctx, tx, r.Date, r.SlotTime, baseCapacity, r.PartySize, r.ID); err != nil {
		return err
	}

	// Query back timestamps set by the database.
	const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, r.ID).Scan(&r.CreatedAt, &r.UpdatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapLedgerErr(err)
	}
	committed = true
	return nil
}

// GetByID returns one reservation or ErrNotFound.
func (s *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	r, err := scanReservation(s.db.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

// GetByCode returns one reservation by its public confirmation code or
// ErrNotFound.
func (s *ReservationRepo) GetByCode(ctx context.Context, code string) (*model.Reservation, error) {
	r, err := scanReservation(s.db.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE confirmation_code = ?`, code))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

// Transition moves a reservation from one of the allowed statuses to the
// target status, optionally releasing its capacity commitment in the same
// transaction.  The reservation row is locked first so concurrent
// transitions serialize; a reservation in a status outside from yields
// ErrInvalidTransition and no change.  The updated reservation is returned.
func (s *ReservationRepo) Transition(ctx context.Context, id uint64, from []model.Status, to model.Status, release bool) (*model.Reservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM reservations WHERE id = ? FOR UPDATE`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapLedgerErr(err)
	}
	allowed := false
	for _, f := range from {
		if model.Status(current) == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrInvalidTransition
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = ? WHERE id = ?`, string(to), id); err != nil {
		return nil, mapLedgerErr(err)
	}
	if release {
		if err := s.ledger.ReleaseByReservationTx(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	r, err := scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, mapLedgerErr(err)
	}
	committed = true
	return r, nil
}

// AdjustPartySize changes the party size of a pending or confirmed
// reservation, re-validating capacity headroom under the slot lock.  The
// reservation row and its commitment are updated in one transaction.
func (s *ReservationRepo) AdjustPartySize(ctx context.Context, id uint64, newSize, baseCapacity int) (*model.Reservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	r, err := s.lockForChange(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.AdjustTx(ctx, tx, r.Date, r.SlotTime, baseCapacity, newSize, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET party_size = ? WHERE id = ?`, newSize, id); err != nil {
		return nil, mapLedgerErr(err)
	}

	r, err = scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, mapLedgerErr(err)
	}
	committed = true
	return r, nil
}

// MoveSlot moves a pending or confirmed reservation to a different slot:
// the old commitment is released and a new one reserved at the target, both
// under their slot locks in one transaction, so the global invariant holds
// throughout.  Locks are taken in (date, time) order to avoid deadlock with
// a concurrent move in the opposite direction.
func (s *ReservationRepo) MoveSlot(ctx context.Context, id uint64, date string, slot model.ClockTime, baseCapacity int) (*model.Reservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	r, err := s.lockForChange(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	first, second := slotKey{r.Date, r.SlotTime}, slotKey{date, slot}
	if second.less(first) {
		first, second = second, first
	}
	if err := s.ledger.LockSlotTx(ctx, tx, first.date, first.time); err != nil {
		return nil, err
	}
	if first != second {
		if err := s.ledger.LockSlotTx(ctx, tx, second.date, second.time); err != nil {
			return nil, err
		}
	}

	if err := s.ledger.ReleaseByReservationTx(ctx, tx, id); err != nil {
		return nil, err
	}
	if _, err := s.ledger.ReserveTx(ctx, tx, date, slot, baseCapacity, r.PartySize, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE reservations SET reservation_date = ?, slot_time = ? WHERE id = ?`,
		date, slot.String(), id); err != nil {
		return nil, mapLedgerErr(err)
	}

	r, err = scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, mapLedgerErr(err)
	}
	committed = true
	return r, nil
}

type slotKey struct {
	date string
	time model.ClockTime
}

func (k slotKey) less(o slotKey) bool {
	if k.date != o.date {
		return k.date < o.date
	}
	return k.time < o.time
}

// lockForChange loads and row-locks a reservation that is still open to
// party-size or slot changes (pending or confirmed).
func (s *ReservationRepo) lockForChange(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	r, err := scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = ? FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapLedgerErr(err)
	}
	if r.Status != model.StatusPending && r.Status != model.StatusConfirmed {
		return nil, ErrInvalidTransition
	}
	return r, nil
}

// ListByContact returns all reservations matching both email and phone,
// newest first.  Phone numbers are compared digits-only so formatting
// differences do not hide a booking.
func (s *ReservationRepo) ListByContact(ctx context.Context, email, phone string) ([]model.Reservation, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	const q = `SELECT ` + reservationCols + ` FROM reservations
	           WHERE email = ? AND REGEXP_REPLACE(phone, '[^0-9]', '') = ?
	           ORDER BY reservation_date DESC, slot_time DESC`
	rows, err := s.db.QueryContext(ctx, q, strings.ToLower(strings.TrimSpace(email)), digits)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListByDate returns the day sheet: every reservation for a date ordered by
// slot time.
func (s *ReservationRepo) ListByDate(ctx context.Context, date string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
	           WHERE reservation_date = ? ORDER BY slot_time, id`
	rows, err := s.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	out := make([]model.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// StatusCount is one row of the stats projection.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DayCount is one row of the per-day stats projection.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CountByStatus returns reservation counts grouped by status for dates in
// [from, to].  Read-only; not part of the capacity invariant.
func (s *ReservationRepo) CountByStatus(ctx context.Context, from, to string) ([]StatusCount, error) {
	const q = `SELECT status, COUNT(*) FROM reservations
	           WHERE reservation_date BETWEEN ? AND ? GROUP BY status ORDER BY status`
	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]StatusCount, 0)
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountByDay returns reservation counts grouped by date for dates in
// [from, to].
func (s *ReservationRepo) CountByDay(ctx context.Context, from, to string) ([]DayCount, error) {
	const q = `SELECT DATE_FORMAT(reservation_date, '%Y-%m-%d'), COUNT(*) FROM reservations
	           WHERE reservation_date BETWEEN ? AND ? GROUP BY reservation_date ORDER BY reservation_date`
	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]DayCount, 0)
	for rows.Next() {
		var c DayCount
		if err := rows.Scan(&c.Date, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
