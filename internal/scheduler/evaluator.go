package scheduler

import (
	"fmt"
	"strconv"

	"github.com/schedulo-hq/schedulo-api/internal/models"
)

// ViolationCode identifies the hard constraint a candidate failed.
type ViolationCode string

const (
	CodeRoomBusy          ViolationCode = "ROOM_BUSY"
	CodeFacultyBusy       ViolationCode = "FACULTY_BUSY"
	CodeCohortBusy        ViolationCode = "COHORT_BUSY"
	CodeRoomTooSmall      ViolationCode = "ROOM_TOO_SMALL"
	CodeRoomTypeMismatch  ViolationCode = "ROOM_TYPE_MISMATCH"
	CodeFacultyBlackout   ViolationCode = "FACULTY_BLACKOUT"
	CodeFacultyOverloaded ViolationCode = "FACULTY_OVERLOADED"
	CodeFacultyUnknown    ViolationCode = "FACULTY_UNKNOWN"
)

// Violation is a hard-constraint rejection for one candidate.
type Violation struct {
	Code    ViolationCode
	Message string
}

// candidate is a prospective placement for one session of a section. The
// faculty member is fixed by the section itself.
type candidate struct {
	day  int
	slot int
	room *models.Room
}

func (c candidate) String() string {
	return fmt.Sprintf("day=%d slot=%d room=%d", c.day, c.slot, c.room.ID)
}

// Evaluator applies hard-constraint checks and ranks legal candidates by
// soft cost. It reads the availability index and the engine's running
// tallies but never mutates them; reservations happen only after the
// engine accepts a candidate.
type Evaluator struct {
	index   *AvailabilityIndex
	faculty map[int64]models.Faculty
	slack   float64
}

// NewEvaluator wires an evaluator over the run's index and faculty
// universe. slack is the permitted fractional capacity overrun.
func NewEvaluator(index *AvailabilityIndex, faculty map[int64]models.Faculty, slack float64) *Evaluator {
	return &Evaluator{index: index, faculty: faculty, slack: slack}
}

// CheckHard returns the first hard-constraint violation for the candidate,
// or nil when the placement is legal. state supplies the running faculty
// load tallies for the weekly cap check.
func (e *Evaluator) CheckHard(state *runState, sec models.Section, cand candidate) *Violation {
	if !e.index.IsFree(KindRoom, roomRef(cand.room.ID), cand.day, cand.slot) {
		return &Violation{Code: CodeRoomBusy, Message: fmt.Sprintf("room %s occupied at %s", cand.room.RoomNumber, cand)}
	}
	if !e.index.IsFree(KindFaculty, facultyRef(sec.FacultyID), cand.day, cand.slot) {
		return &Violation{Code: CodeFacultyBusy, Message: fmt.Sprintf("faculty %d occupied at day=%d slot=%d", sec.FacultyID, cand.day, cand.slot)}
	}
	if !e.index.IsFree(KindCohort, sec.CohortKey(), cand.day, cand.slot) {
		return &Violation{Code: CodeCohortBusy, Message: fmt.Sprintf("cohort %s occupied at day=%d slot=%d", sec.CohortKey(), cand.day, cand.slot)}
	}
	if v := e.checkStatic(sec, cand); v != nil {
		return v
	}
	fac, ok := e.faculty[sec.FacultyID]
	if !ok {
		return &Violation{Code: CodeFacultyUnknown, Message: fmt.Sprintf("faculty %d not in loaded universe", sec.FacultyID)}
	}
	if fac.MaxWeeklyLoad > 0 && state.facultyWeeklyLoad(sec.FacultyID) >= fac.MaxWeeklyLoad {
		return &Violation{Code: CodeFacultyOverloaded, Message: fmt.Sprintf("faculty %d at weekly load cap %d", sec.FacultyID, fac.MaxWeeklyLoad)}
	}
	return nil
}

// checkStatic covers the constraints that do not depend on reservations:
// capacity, room type, and faculty blackout. The engine also uses it to
// diagnose sections that can never be placed.
func (e *Evaluator) checkStatic(sec models.Section, cand candidate) *Violation {
	if e.effectiveCapacity(cand.room) < sec.CohortSize {
		return &Violation{
			Code:    CodeRoomTooSmall,
			Message: fmt.Sprintf("room %s capacity %d below cohort size %d", cand.room.RoomNumber, cand.room.Capacity, sec.CohortSize),
		}
	}
	if sec.Course != nil && sec.Course.RequiredRoomType != "" && cand.room.Type != sec.Course.RequiredRoomType {
		return &Violation{
			Code:    CodeRoomTypeMismatch,
			Message: fmt.Sprintf("room %s type %s does not satisfy required type %s", cand.room.RoomNumber, cand.room.Type, sec.Course.RequiredRoomType),
		}
	}
	if fac, ok := e.faculty[sec.FacultyID]; ok && fac.IsBlackedOut(cand.day, cand.slot) {
		return &Violation{
			Code:    CodeFacultyBlackout,
			Message: fmt.Sprintf("faculty %d unavailable at day=%d slot=%d", sec.FacultyID, cand.day, cand.slot),
		}
	}
	return nil
}

// SoftCost ranks a legal candidate; lower is better. It combines
// room-capacity waste, cohort daily-load imbalance, and the idle gap the
// placement would open in the faculty member's day.
func (e *Evaluator) SoftCost(state *runState, sec models.Section, cand candidate) float64 {
	cost := e.capacityWaste(sec, cand.room)
	cost += 0.5 * float64(state.cohortDayCount(sec.CohortKey(), cand.day))
	cost += e.facultyGapPenalty(state, sec.FacultyID, cand.day, cand.slot)
	return cost
}

func (e *Evaluator) capacityWaste(sec models.Section, room *models.Room) float64 {
	if room.Capacity <= 0 {
		return 1
	}
	if room.Capacity >= sec.CohortSize {
		return float64(room.Capacity-sec.CohortSize) / float64(room.Capacity)
	}
	// Overrun permitted by slack: undesirable, rank behind any fitting room.
	return 0.75
}

func (e *Evaluator) facultyGapPenalty(state *runState, facultyID int64, day, slot int) float64 {
	nearest := state.facultyNearestSlot(facultyID, day, slot)
	if nearest == 0 {
		// First session of the day carries a nominal spread cost.
		return 0.1
	}
	gap := slot - nearest
	if gap < 0 {
		gap = -gap
	}
	if gap <= 1 {
		return 0
	}
	return 0.25 * float64(gap-1)
}

func (e *Evaluator) effectiveCapacity(room *models.Room) int {
	if e.slack <= 0 {
		return room.Capacity
	}
	return room.Capacity + int(float64(room.Capacity)*e.slack)
}

func roomRef(id int64) string {
	return strconv.FormatInt(id, 10)
}

func facultyRef(id int64) string {
	return strconv.FormatInt(id, 10)
}
