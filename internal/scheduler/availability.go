package scheduler

import (
	"errors"
	"fmt"
)

// Kind names the resource dimensions tracked by the availability index.
type Kind string

const (
	KindRoom    Kind = "room"
	KindFaculty Kind = "faculty"
	KindCohort  Kind = "cohort"
)

// ErrCellReserved signals a double reservation. The engine never reserves
// an occupied cell during normal operation, so surfacing this error means
// a search bookkeeping defect and aborts the run.
var ErrCellReserved = errors.New("scheduler: cell already reserved")

type cell struct {
	kind   Kind
	entity string
	day    int
	slot   int
}

// AvailabilityIndex tracks which (entity, day, slot) cells are occupied by
// committed assignments. It is exclusively owned by a single engine run
// and is not safe for concurrent use.
type AvailabilityIndex struct {
	reserved map[cell]struct{}
}

// NewAvailabilityIndex returns an empty index.
func NewAvailabilityIndex() *AvailabilityIndex {
	return &AvailabilityIndex{reserved: make(map[cell]struct{})}
}

// IsFree reports whether the cell has no reservation.
func (x *AvailabilityIndex) IsFree(kind Kind, entity string, day, slot int) bool {
	_, busy := x.reserved[cell{kind: kind, entity: entity, day: day, slot: slot}]
	return !busy
}

// Reserve marks the cell occupied. Reserving an occupied cell returns
// ErrCellReserved.
func (x *AvailabilityIndex) Reserve(kind Kind, entity string, day, slot int) error {
	key := cell{kind: kind, entity: entity, day: day, slot: slot}
	if _, busy := x.reserved[key]; busy {
		return fmt.Errorf("%w: %s %s day=%d slot=%d", ErrCellReserved, kind, entity, day, slot)
	}
	x.reserved[key] = struct{}{}
	return nil
}

// Release frees the cell. Releasing an unreserved cell is a no-op so that
// backtracking may release speculatively.
func (x *AvailabilityIndex) Release(kind Kind, entity string, day, slot int) {
	delete(x.reserved, cell{kind: kind, entity: entity, day: day, slot: slot})
}

// Len returns the number of reserved cells.
func (x *AvailabilityIndex) Len() int {
	return len(x.reserved)
}
