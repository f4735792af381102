package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schedulo-hq/schedulo-api/internal/dto"
	"github.com/schedulo-hq/schedulo-api/internal/models"
	"github.com/schedulo-hq/schedulo-api/internal/scheduler"
	"github.com/schedulo-hq/schedulo-api/pkg/config"
	appErrors "github.com/schedulo-hq/schedulo-api/pkg/errors"
)

func TestTimetableServiceGenerateSuccess(t *testing.T) {
	service, _ := newTimetableServiceFixture(t, timetableFixtureConfig{})

	resp, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 3, Year: 2026})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, string(scheduler.StatusScheduled), resp.Status)
	assert.Len(t, resp.Assignments, 3)
	assert.Empty(t, resp.Unplaced)
	assert.Equal(t, 3, resp.Stats.PlacedCount)
}

func TestTimetableServiceGenerateValidation(t *testing.T) {
	service, _ := newTimetableServiceFixture(t, timetableFixtureConfig{})

	_, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 0, Year: 2026})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGenerateNoSections(t *testing.T) {
	service, _ := newTimetableServiceFixture(t, timetableFixtureConfig{})

	_, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 9, Year: 2030})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGenerateUnplacedIncludesCourseCode(t *testing.T) {
	service, _ := newTimetableServiceFixture(t, timetableFixtureConfig{oversizedCohort: true})

	resp, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 3, Year: 2026})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Unplaced)
	assert.Equal(t, "CS900", resp.Unplaced[0].CourseCode)
	assert.NotEmpty(t, resp.Unplaced[0].Reason)
}

func TestTimetableServiceSaveAndActivate(t *testing.T) {
	tx, mock := newTimetableTxMock(t)
	service, store := newTimetableServiceFixture(t, timetableFixtureConfig{tx: tx})

	resp, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 3, Year: 2026})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	saved, err := service.Save(context.Background(), dto.SaveTimetableRequest{RunID: resp.RunID, Activate: true})
	require.NoError(t, err)
	assert.True(t, saved.IsActive)
	assert.Equal(t, 3, saved.SlotCount)
	assert.NotZero(t, saved.TimetableID)
	assert.Len(t, store.slots[saved.TimetableID], 3)
	assert.NoError(t, mock.ExpectationsWereMet())

	// A saved run is consumed; replaying the save must fail.
	_, err = service.Save(context.Background(), dto.SaveTimetableRequest{RunID: resp.RunID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceSaveUnknownRun(t *testing.T) {
	tx, _ := newTimetableTxMock(t)
	service, _ := newTimetableServiceFixture(t, timetableFixtureConfig{tx: tx})

	_, err := service.Save(context.Background(), dto.SaveTimetableRequest{RunID: "3e8b4f44-9416-4d52-a3f7-7e9a4a1f3c21"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceSaveRejectsUnsatisfiableRun(t *testing.T) {
	tx, _ := newTimetableTxMock(t)
	service, _ := newTimetableServiceFixture(t, timetableFixtureConfig{tx: tx, onlyOversized: true})

	resp, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 3, Year: 2026})
	require.NoError(t, err)
	require.Equal(t, string(scheduler.StatusUnsatisfiable), resp.Status)

	_, err = service.Save(context.Background(), dto.SaveTimetableRequest{RunID: resp.RunID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsatisfiable.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceDeleteActiveRefused(t *testing.T) {
	service, store := newTimetableServiceFixture(t, timetableFixtureConfig{})
	store.items[1] = models.Timetable{ID: 1, Semester: 3, Year: 2026, IsActive: true}

	err := service.Delete(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceListFallsThroughToStore(t *testing.T) {
	service, store := newTimetableServiceFixture(t, timetableFixtureConfig{})
	store.items[4] = models.Timetable{ID: 4, Semester: 3, Year: 2026}

	list, err := service.List(context.Background(), dto.TimetableQuery{Semester: 3, Year: 2026})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(4), list[0].ID)
}

func TestTimetableServiceGenerateBatch(t *testing.T) {
	service, _ := newTimetableServiceFixture(t, timetableFixtureConfig{secondDepartment: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.StartBatchWorkers(ctx)
	defer service.StopBatchWorkers()

	resp, err := service.GenerateBatch(context.Background(), dto.BatchGenerateRequest{Semester: 3, Year: 2026})
	require.NoError(t, err)
	require.Len(t, resp.Runs, 2)
	assert.True(t, sort.SliceIsSorted(resp.Runs, func(i, j int) bool {
		return resp.Runs[i].DepartmentID < resp.Runs[j].DepartmentID
	}))
	for _, run := range resp.Runs {
		assert.Equal(t, string(scheduler.StatusScheduled), run.Status)
		assert.NotEmpty(t, run.RunID)
		assert.Empty(t, run.Error)
	}
}

// --- Fixtures ---

type timetableFixtureConfig struct {
	tx               txProvider
	oversizedCohort  bool
	onlyOversized    bool
	secondDepartment bool
}

func newTimetableServiceFixture(t *testing.T, cfg timetableFixtureConfig) (*TimetableService, *timetableStoreStub) {
	t.Helper()

	course := &models.Course{ID: 101, Code: "CS301", WeeklySessions: 1}
	sections := []models.Section{
		{ID: 1, CourseID: 101, FacultyID: 1, CohortSize: 30, DepartmentID: 1, Semester: 3, Year: 2026, Course: course},
		{ID: 2, CourseID: 101, FacultyID: 2, CohortSize: 25, DepartmentID: 1, Semester: 3, Year: 2026, Course: course},
		{ID: 3, CourseID: 101, FacultyID: 1, CohortSize: 20, DepartmentID: 1, Semester: 3, Year: 2026, Course: course},
	}
	if cfg.oversizedCohort {
		big := &models.Course{ID: 900, Code: "CS900", WeeklySessions: 1}
		sections = append(sections, models.Section{
			ID: 9, CourseID: 900, FacultyID: 1, CohortSize: 500, DepartmentID: 1, Semester: 3, Year: 2026, Course: big,
		})
	}
	if cfg.onlyOversized {
		big := &models.Course{ID: 900, Code: "CS900", WeeklySessions: 1}
		sections = []models.Section{
			{ID: 9, CourseID: 900, FacultyID: 1, CohortSize: 500, DepartmentID: 1, Semester: 3, Year: 2026, Course: big},
		}
	}
	if cfg.secondDepartment {
		sections = append(sections, models.Section{
			ID: 20, CourseID: 101, FacultyID: 2, CohortSize: 28, DepartmentID: 2, Semester: 3, Year: 2026, Course: course,
		})
	}

	store := newTimetableStoreStub()
	tx := cfg.tx
	if tx == nil {
		tx = failingTxProvider{}
	}

	service, err := NewTimetableService(
		sectionListerStub{items: sections},
		roomListerStub{items: []models.Room{
			{ID: 1, RoomNumber: "A101", Capacity: 40, Type: models.RoomTypeLecture},
			{ID: 2, RoomNumber: "A102", Capacity: 60, Type: models.RoomTypeLecture},
		}},
		facultyListerStub{items: []models.Faculty{{ID: 1, Name: "Dr. Rao"}, {ID: 2, Name: "Dr. Iyer"}}},
		store,
		tx,
		NewCacheService(nil, nil, 0, nil, false),
		nil,
		validator.New(),
		zap.NewNop(),
		config.SchedulerConfig{
			DaysPerWeek:       3,
			SlotTimes:         []string{"09:00-09:50", "10:00-10:50", "11:00-11:50"},
			MaxBacktrackSteps: 200,
			TimeBudget:        5 * time.Second,
			RunTTL:            time.Hour,
			BatchWorkers:      2,
		},
	)
	require.NoError(t, err)
	return service, store
}

type sectionListerStub struct {
	items []models.Section
}

func (s sectionListerStub) ListForTerm(ctx context.Context, semester, year int) ([]models.Section, error) {
	var out []models.Section
	for _, sec := range s.items {
		if sec.Semester == semester && sec.Year == year {
			out = append(out, sec)
		}
	}
	return out, nil
}

func (s sectionListerStub) ListByDepartment(ctx context.Context, semester, year int, departmentID int64) ([]models.Section, error) {
	var out []models.Section
	for _, sec := range s.items {
		if sec.Semester == semester && sec.Year == year && sec.DepartmentID == departmentID {
			out = append(out, sec)
		}
	}
	return out, nil
}

func (s sectionListerStub) DepartmentsForTerm(ctx context.Context, semester, year int) ([]int64, error) {
	seen := make(map[int64]bool)
	var out []int64
	for _, sec := range s.items {
		if sec.Semester == semester && sec.Year == year && !seen[sec.DepartmentID] {
			seen[sec.DepartmentID] = true
			out = append(out, sec.DepartmentID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

type roomListerStub struct {
	items []models.Room
}

func (s roomListerStub) ListAll(ctx context.Context) ([]models.Room, error) {
	return s.items, nil
}

type facultyListerStub struct {
	items []models.Faculty
}

func (s facultyListerStub) ListAll(ctx context.Context) ([]models.Faculty, error) {
	return s.items, nil
}

type timetableStoreStub struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]models.Timetable
	slots  map[int64][]models.Assignment
}

func newTimetableStoreStub() *timetableStoreStub {
	return &timetableStoreStub{
		items: make(map[int64]models.Timetable),
		slots: make(map[int64][]models.Assignment),
	}
}

func (s *timetableStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, tt *models.Timetable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	tt.ID = s.nextID
	s.items[tt.ID] = *tt
	return nil
}

func (s *timetableStoreStub) InsertAssignments(ctx context.Context, exec sqlx.ExtContext, timetableID int64, assignments []models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[timetableID] = append(s.slots[timetableID], assignments...)
	return nil
}

func (s *timetableStoreStub) FindByID(ctx context.Context, id int64) (*models.Timetable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tt, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &tt, nil
}

func (s *timetableStoreStub) ListByTerm(ctx context.Context, semester, year int) ([]models.Timetable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Timetable
	for _, tt := range s.items {
		if tt.Semester == semester && tt.Year == year {
			out = append(out, tt)
		}
	}
	return out, nil
}

func (s *timetableStoreStub) ListAssignments(ctx context.Context, timetableID int64) ([]models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[timetableID], nil
}

func (s *timetableStoreStub) Activate(ctx context.Context, exec sqlx.ExtContext, id int64, semester, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return sql.ErrNoRows
	}
	for key, tt := range s.items {
		if tt.Semester == semester && tt.Year == year {
			tt.IsActive = key == id
			s.items[key] = tt
		}
	}
	return nil
}

func (s *timetableStoreStub) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.items, id)
	delete(s.slots, id)
	return nil
}

type failingTxProvider struct{}

func (failingTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

func newTimetableTxMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return timetableTxMock{db: sqlxdb}, mock
}

type timetableTxMock struct {
	db *sqlx.DB
}

func (m timetableTxMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, opts)
}
