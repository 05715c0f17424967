package ledger

import (
	"context"
	"sync"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// Memory is an in-process Ledger keeping commitments in a map guarded by a
// single mutex.  It backs the booking service in tests and is the reference
// for the semantics the MySQL implementation must match: the mutex plays the
// role of the per-slot row lock, making every Reserve/Adjust a serialized
// check-then-write.
type Memory struct {
	mu     sync.Mutex
	nextID uint64
	// commitments by ID; holding-ness tracked via State.
	commitments map[uint64]*model.CapacityCommitment
}

var _ Ledger = (*Memory)(nil)

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{commitments: make(map[uint64]*model.CapacityCommitment)}
}

func (m *Memory) holdingSum(date string, slot model.ClockTime) int {
	sum := 0
	for _, c := range m.commitments {
		if c.SlotDate == date && c.SlotTime == slot && c.State == model.CommitmentHolding {
			sum += c.PartySize
		}
	}
	return sum
}

// Reserve implements Ledger.
func (m *Memory) Reserve(ctx context.Context, date string, slot model.ClockTime, baseCapacity, partySize int, reservationID uint64) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.holdingSum(date, slot)+partySize > baseCapacity {
		return Handle{}, ErrCapacityExceeded
	}
	m.nextID++
	c := &model.CapacityCommitment{
		ID:            m.nextID,
		SlotDate:      date,
		SlotTime:      slot,
		ReservationID: reservationID,
		PartySize:     partySize,
		State:         model.CommitmentHolding,
	}
	m.commitments[c.ID] = c
	return Handle{CommitmentID: c.ID, ReservationID: reservationID, Date: date, Slot: slot}, nil
}

// Release implements Ledger.  Unknown or already-released handles are
// no-ops.
func (m *Memory) Release(ctx context.Context, h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.commitments[h.CommitmentID]; ok {
		c.State = model.CommitmentReleased
	}
	return nil
}

// Adjust implements Ledger.
func (m *Memory) Adjust(ctx context.Context, h Handle, baseCapacity, newPartySize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commitments[h.CommitmentID]
	if !ok || c.State != model.CommitmentHolding {
		return ErrNotHeld
	}
	others := m.holdingSum(c.SlotDate, c.SlotTime) - c.PartySize
	if others+newPartySize > baseCapacity {
		return ErrCapacityExceeded
	}
	c.PartySize = newPartySize
	return nil
}

// Committed implements Ledger.
func (m *Memory) Committed(ctx context.Context, date string, slot model.ClockTime) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holdingSum(date, slot), nil
}

// CommittedByDate implements Ledger.
func (m *Memory) CommittedByDate(ctx context.Context, date string) (map[model.ClockTime]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sums := make(map[model.ClockTime]int)
	for _, c := range m.commitments {
		if c.SlotDate == date && c.State == model.CommitmentHolding {
			sums[c.SlotTime] += c.PartySize
		}
	}
	return sums, nil
}
