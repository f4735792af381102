package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulo-hq/schedulo-api/internal/models"
)

func evaluatorFixture(t *testing.T, slack float64, faculty ...models.Faculty) (*Evaluator, *AvailabilityIndex, *runState) {
	t.Helper()
	index := NewAvailabilityIndex()
	byID := make(map[int64]models.Faculty, len(faculty))
	for _, f := range faculty {
		byID[f.ID] = f
	}
	return NewEvaluator(index, byID, slack), index, newRunState()
}

func testSection(cohort int) models.Section {
	return models.Section{
		ID:           1,
		CourseID:     10,
		FacultyID:    5,
		CohortSize:   cohort,
		DepartmentID: 1,
		Semester:     3,
		Year:         2026,
		Course:       &models.Course{ID: 10, Code: "CS101", WeeklySessions: 1},
	}
}

func TestEvaluatorRejectsUndersizedRoom(t *testing.T) {
	eval, _, state := evaluatorFixture(t, 0, models.Faculty{ID: 5})
	room := models.Room{ID: 2, RoomNumber: "A101", Capacity: 30, Type: models.RoomTypeLecture}

	v := eval.CheckHard(state, testSection(40), candidate{day: 1, slot: 1, room: &room})
	require.NotNil(t, v)
	assert.Equal(t, CodeRoomTooSmall, v.Code)
}

func TestEvaluatorCapacitySlackPermitsBoundedOverrun(t *testing.T) {
	eval, _, state := evaluatorFixture(t, 0.1, models.Faculty{ID: 5})
	room := models.Room{ID: 2, RoomNumber: "A101", Capacity: 30, Type: models.RoomTypeLecture}

	assert.Nil(t, eval.CheckHard(state, testSection(32), candidate{day: 1, slot: 1, room: &room}))

	v := eval.CheckHard(state, testSection(40), candidate{day: 1, slot: 1, room: &room})
	require.NotNil(t, v)
	assert.Equal(t, CodeRoomTooSmall, v.Code)
}

func TestEvaluatorRejectsRoomTypeMismatch(t *testing.T) {
	eval, _, state := evaluatorFixture(t, 0, models.Faculty{ID: 5})
	sec := testSection(20)
	sec.Course.RequiredRoomType = models.RoomTypeLab
	lectureHall := models.Room{ID: 2, RoomNumber: "A101", Capacity: 60, Type: models.RoomTypeLecture}
	lab := models.Room{ID: 3, RoomNumber: "C301", Capacity: 25, Type: models.RoomTypeLab}

	v := eval.CheckHard(state, sec, candidate{day: 1, slot: 1, room: &lectureHall})
	require.NotNil(t, v)
	assert.Equal(t, CodeRoomTypeMismatch, v.Code)

	assert.Nil(t, eval.CheckHard(state, sec, candidate{day: 1, slot: 1, room: &lab}))
}

func TestEvaluatorRejectsFacultyBlackout(t *testing.T) {
	eval, _, state := evaluatorFixture(t, 0, models.Faculty{
		ID:        5,
		Blackouts: []models.BlackoutSlot{{DayOfWeek: 2, SlotIndex: 4}},
	})
	room := models.Room{ID: 2, RoomNumber: "A101", Capacity: 30, Type: models.RoomTypeLecture}

	v := eval.CheckHard(state, testSection(20), candidate{day: 2, slot: 4, room: &room})
	require.NotNil(t, v)
	assert.Equal(t, CodeFacultyBlackout, v.Code)

	assert.Nil(t, eval.CheckHard(state, testSection(20), candidate{day: 2, slot: 5, room: &room}))
}

func TestEvaluatorRejectsBusyCells(t *testing.T) {
	eval, index, state := evaluatorFixture(t, 0, models.Faculty{ID: 5})
	room := models.Room{ID: 2, RoomNumber: "A101", Capacity: 30, Type: models.RoomTypeLecture}
	sec := testSection(20)

	require.NoError(t, index.Reserve(KindRoom, roomRef(room.ID), 1, 1))
	v := eval.CheckHard(state, sec, candidate{day: 1, slot: 1, room: &room})
	require.NotNil(t, v)
	assert.Equal(t, CodeRoomBusy, v.Code)

	require.NoError(t, index.Reserve(KindFaculty, facultyRef(sec.FacultyID), 1, 2))
	v = eval.CheckHard(state, sec, candidate{day: 1, slot: 2, room: &room})
	require.NotNil(t, v)
	assert.Equal(t, CodeFacultyBusy, v.Code)

	require.NoError(t, index.Reserve(KindCohort, sec.CohortKey(), 1, 3))
	v = eval.CheckHard(state, sec, candidate{day: 1, slot: 3, room: &room})
	require.NotNil(t, v)
	assert.Equal(t, CodeCohortBusy, v.Code)
}

func TestEvaluatorEnforcesWeeklyLoadCap(t *testing.T) {
	eval, _, state := evaluatorFixture(t, 0, models.Faculty{ID: 5, MaxWeeklyLoad: 1})
	room := models.Room{ID: 2, RoomNumber: "A101", Capacity: 30, Type: models.RoomTypeLecture}
	sec := testSection(20)

	assert.Nil(t, eval.CheckHard(state, sec, candidate{day: 1, slot: 1, room: &room}))

	state.commit(models.Assignment{SectionID: sec.ID, FacultyID: sec.FacultyID, RoomID: room.ID, DayOfWeek: 1, SlotIndex: 1}, sec.CohortKey())
	v := eval.CheckHard(state, sec, candidate{day: 2, slot: 1, room: &room})
	require.NotNil(t, v)
	assert.Equal(t, CodeFacultyOverloaded, v.Code)
}

func TestEvaluatorSoftCostPrefersTighterRoom(t *testing.T) {
	eval, _, state := evaluatorFixture(t, 0, models.Faculty{ID: 5})
	sec := testSection(20)
	snug := models.Room{ID: 2, RoomNumber: "A101", Capacity: 24, Type: models.RoomTypeLecture}
	oversized := models.Room{ID: 3, RoomNumber: "B201", Capacity: 120, Type: models.RoomTypeLecture}

	snugCost := eval.SoftCost(state, sec, candidate{day: 1, slot: 1, room: &snug})
	bigCost := eval.SoftCost(state, sec, candidate{day: 1, slot: 1, room: &oversized})
	assert.Less(t, snugCost, bigCost)
}

func TestEvaluatorSoftCostSpreadsCohortAcrossDays(t *testing.T) {
	eval, _, state := evaluatorFixture(t, 0, models.Faculty{ID: 5})
	sec := testSection(20)
	room := models.Room{ID: 2, RoomNumber: "A101", Capacity: 30, Type: models.RoomTypeLecture}

	state.commit(models.Assignment{SectionID: 9, FacultyID: 8, RoomID: 4, DayOfWeek: 1, SlotIndex: 1}, sec.CohortKey())

	sameDay := eval.SoftCost(state, sec, candidate{day: 1, slot: 3, room: &room})
	otherDay := eval.SoftCost(state, sec, candidate{day: 2, slot: 3, room: &room})
	assert.Greater(t, sameDay, otherDay)
}

func TestEvaluatorSoftCostPenalisesFacultyGaps(t *testing.T) {
	eval, _, state := evaluatorFixture(t, 0, models.Faculty{ID: 5})
	sec := testSection(20)
	room := models.Room{ID: 2, RoomNumber: "A101", Capacity: 30, Type: models.RoomTypeLecture}

	state.commit(models.Assignment{SectionID: 9, FacultyID: sec.FacultyID, RoomID: 4, DayOfWeek: 1, SlotIndex: 1}, "other-cohort")

	adjacent := eval.SoftCost(state, sec, candidate{day: 1, slot: 2, room: &room})
	gapped := eval.SoftCost(state, sec, candidate{day: 1, slot: 5, room: &room})
	assert.Greater(t, gapped, adjacent)
}
