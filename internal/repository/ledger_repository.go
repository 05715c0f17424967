package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/restaurant-reservation/internal/ledger"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// CapacityLedgerRepo is the MySQL capacity ledger.  Atomicity per
// (date, slot) comes from a guard row in slot_locks taken with
// SELECT ... FOR UPDATE inside the operation's transaction: every
// check-then-write against one slot serializes on that row lock while
// distinct slots proceed in parallel.  The commitment rows themselves are
// never deleted; releasing flips state to RELEASED so history stays
// available for reporting.
//
// Every mutation runs inside a caller-owned transaction (the ...Tx
// variants) so that ReservationRepo can pair a commitment with its
// reservation row in one atomic unit.  The only self-contained read is
// CommittedByDate, which the availability query uses.
type CapacityLedgerRepo struct {
	db *sql.DB
}

// NewCapacityLedgerRepo returns a CapacityLedgerRepo bound to the given
// database.
func NewCapacityLedgerRepo(db *sql.DB) *CapacityLedgerRepo {
	return &CapacityLedgerRepo{db: db}
}

// DB exposes the underlying handle so orchestrating repositories can open
// transactions spanning the ledger and their own tables.
func (r *CapacityLedgerRepo) DB() *sql.DB { return r.db }

// mapLedgerErr converts MySQL lock errors (deadlock victim 1213, lock wait
// timeout 1205) into ledger.ErrConflict so the booking service can retry.
func mapLedgerErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "1213") || strings.Contains(msg, "1205") {
		return ledger.ErrConflict
	}
	return err
}

// LockSlotTx takes the per-slot mutex: it ensures the guard row exists and
// locks it for the remainder of tx.  Every capacity check-then-write for
// (date, slot) must call this first.
func (r *CapacityLedgerRepo) LockSlotTx(ctx context.Context, tx *sql.Tx, date string, slot model.ClockTime) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO slot_locks (slot_date, slot_time) VALUES (?, ?)`,
		date, slot.String()); err != nil {
		return mapLedgerErr(err)
	}
	var id uint64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM slot_locks WHERE slot_date = ? AND slot_time = ? FOR UPDATE`,
		date, slot.String()).Scan(&id)
	return mapLedgerErr(err)
}

// CommittedTx sums HOLDING commitments for a slot inside tx.  Call
// LockSlotTx first when the sum feeds a capacity decision.
func (r *CapacityLedgerRepo) CommittedTx(ctx context.Context, tx *sql.Tx, date string, slot model.ClockTime) (int, error) {
	var sum int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(party_size), 0) FROM capacity_commitments
		 WHERE slot_date = ? AND slot_time = ? AND state = ?`,
		date, slot.String(), model.CommitmentHolding).Scan(&sum)
	return sum, mapLedgerErr(err)
}

// ReserveTx performs the atomic capacity check and inserts a HOLDING
// commitment for reservationID.  The caller owns tx and must have room for
// the reservation row in the same transaction so failure is all-or-nothing.
func (r *CapacityLedgerRepo) ReserveTx(ctx context.Context, tx *sql.Tx, date string, slot model.ClockTime, baseCapacity, partySize int, reservationID uint64) (uint64, error) {
	if err := r.LockSlotTx(ctx, tx, date, slot); err != nil {
		return 0, err
	}
	sum, err := r.CommittedTx(ctx, tx, date, slot)
	if err != nil {
		return 0, err
	}
	if sum+partySize > baseCapacity {
		return 0, ledger.ErrCapacityExceeded
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO capacity_commitments (slot_date, slot_time, reservation_id, party_size, state)
		 VALUES (?, ?, ?, ?, ?)`,
		date, slot.String(), reservationID, partySize, model.CommitmentHolding)
	if err != nil {
		return 0, mapLedgerErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ReleaseByReservationTx flips the reservation's HOLDING commitment to
// RELEASED inside tx.  Releasing a reservation without a holding commitment
// affects zero rows and is not an error.
func (r *CapacityLedgerRepo) ReleaseByReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE capacity_commitments SET state = ? WHERE reservation_id = ? AND state = ?`,
		model.CommitmentReleased, reservationID, model.CommitmentHolding)
	return mapLedgerErr(err)
}

// AdjustTx re-validates headroom for a new party size on the reservation's
// holding commitment and applies it.  The slot lock serializes the check
// against concurrent reserves.
func (r *CapacityLedgerRepo) AdjustTx(ctx context.Context, tx *sql.Tx, date string, slot model.ClockTime, baseCapacity, newPartySize int, reservationID uint64) error {
	if err := r.LockSlotTx(ctx, tx, date, slot); err != nil {
		return err
	}
	var current int
	err := tx.QueryRowContext(ctx,
		`SELECT party_size FROM capacity_commitments
		 WHERE reservation_id = ? AND state = ? FOR UPDATE`,
		reservationID, model.CommitmentHolding).Scan(&current)
	if err == sql.ErrNoRows {
		return ledger.ErrNotHeld
	}
	if err != nil {
		return mapLedgerErr(err)
	}
	sum, err := r.CommittedTx(ctx, tx, date, slot)
	if err != nil {
		return err
	}
	if sum-current+newPartySize > baseCapacity {
		return ledger.ErrCapacityExceeded
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE capacity_commitments SET party_size = ? WHERE reservation_id = ? AND state = ?`,
		newPartySize, reservationID, model.CommitmentHolding)
	return mapLedgerErr(err)
}

// CommittedByDate returns holding sums for every slot of a date that has
// at least one commitment.  It reads without locking; booking decisions
// always re-check under the slot lock.
func (r *CapacityLedgerRepo) CommittedByDate(ctx context.Context, date string) (map[model.ClockTime]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT TIME_FORMAT(slot_time, '%H:%i'), COALESCE(SUM(party_size), 0)
		 FROM capacity_commitments
		 WHERE slot_date = ? AND state = ?
		 GROUP BY slot_time`,
		date, model.CommitmentHolding)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sums := make(map[model.ClockTime]int)
	for rows.Next() {
		var (
			ts  string
			sum int
		)
		if err := rows.Scan(&ts, &sum); err != nil {
			return nil, err
		}
		t, err := model.ParseClock(ts)
		if err != nil {
			return nil, err
		}
		sums[t] = sum
	}
	return sums, rows.Err()
}
