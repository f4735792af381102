package scheduler

import (
	"github.com/schedulo-hq/schedulo-api/internal/models"
)

// runState is the in-progress schedule owned by a single run: the
// committed assignment stack plus the tallies the soft-cost terms and the
// weekly load cap read. Assignments push on commit and pop on backtrack.
type runState struct {
	assignments []models.Assignment

	cohortDays   map[string]map[int]int
	facultySlots map[int64]map[int]map[int]bool
	facultyWeek  map[int64]int
}

func newRunState() *runState {
	return &runState{
		cohortDays:   make(map[string]map[int]int),
		facultySlots: make(map[int64]map[int]map[int]bool),
		facultyWeek:  make(map[int64]int),
	}
}

func (s *runState) commit(a models.Assignment, cohortKey string) {
	s.assignments = append(s.assignments, a)

	if s.cohortDays[cohortKey] == nil {
		s.cohortDays[cohortKey] = make(map[int]int)
	}
	s.cohortDays[cohortKey][a.DayOfWeek]++

	if s.facultySlots[a.FacultyID] == nil {
		s.facultySlots[a.FacultyID] = make(map[int]map[int]bool)
	}
	if s.facultySlots[a.FacultyID][a.DayOfWeek] == nil {
		s.facultySlots[a.FacultyID][a.DayOfWeek] = make(map[int]bool)
	}
	s.facultySlots[a.FacultyID][a.DayOfWeek][a.SlotIndex] = true
	s.facultyWeek[a.FacultyID]++
}

// undo pops the most recent commit. The engine only backtracks in strict
// reverse commit order, so popping the stack head is always correct.
func (s *runState) undo(cohortKey string) {
	if len(s.assignments) == 0 {
		return
	}
	a := s.assignments[len(s.assignments)-1]
	s.assignments = s.assignments[:len(s.assignments)-1]

	if days := s.cohortDays[cohortKey]; days != nil && days[a.DayOfWeek] > 0 {
		days[a.DayOfWeek]--
	}
	if days := s.facultySlots[a.FacultyID]; days != nil && days[a.DayOfWeek] != nil {
		delete(days[a.DayOfWeek], a.SlotIndex)
	}
	if s.facultyWeek[a.FacultyID] > 0 {
		s.facultyWeek[a.FacultyID]--
	}
}

func (s *runState) cohortDayCount(cohortKey string, day int) int {
	return s.cohortDays[cohortKey][day]
}

func (s *runState) facultyWeeklyLoad(facultyID int64) int {
	return s.facultyWeek[facultyID]
}

// facultyNearestSlot returns the occupied slot index closest to slot on
// the given day for the faculty member, or 0 when the day is empty.
func (s *runState) facultyNearestSlot(facultyID int64, day, slot int) int {
	occupied := s.facultySlots[facultyID][day]
	if len(occupied) == 0 {
		return 0
	}
	nearest := 0
	bestDist := 0
	for taken := range occupied {
		dist := slot - taken
		if dist < 0 {
			dist = -dist
		}
		if nearest == 0 || dist < bestDist || (dist == bestDist && taken < nearest) {
			nearest = taken
			bestDist = dist
		}
	}
	return nearest
}
