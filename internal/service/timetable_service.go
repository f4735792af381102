package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/schedulo-hq/schedulo-api/internal/dto"
	"github.com/schedulo-hq/schedulo-api/internal/models"
	"github.com/schedulo-hq/schedulo-api/internal/scheduler"
	"github.com/schedulo-hq/schedulo-api/pkg/config"
	appErrors "github.com/schedulo-hq/schedulo-api/pkg/errors"
	"github.com/schedulo-hq/schedulo-api/pkg/jobs"
)

type sectionLister interface {
	ListForTerm(ctx context.Context, semester, year int) ([]models.Section, error)
	ListByDepartment(ctx context.Context, semester, year int, departmentID int64) ([]models.Section, error)
	DepartmentsForTerm(ctx context.Context, semester, year int) ([]int64, error)
}

type roomLister interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

type facultyLister interface {
	ListAll(ctx context.Context) ([]models.Faculty, error)
}

type timetableStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, tt *models.Timetable) error
	InsertAssignments(ctx context.Context, exec sqlx.ExtContext, timetableID int64, assignments []models.Assignment) error
	FindByID(ctx context.Context, id int64) (*models.Timetable, error)
	ListByTerm(ctx context.Context, semester, year int) ([]models.Timetable, error)
	ListAssignments(ctx context.Context, timetableID int64) ([]models.Assignment, error)
	Activate(ctx context.Context, exec sqlx.ExtContext, id int64, semester, year int) error
	Delete(ctx context.Context, id int64) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableService orchestrates scheduling runs: it snapshots the section,
// room and faculty universes, executes the engine, keeps previewed runs in
// memory until saved, and persists accepted runs transactionally.
type TimetableService struct {
	sections   sectionLister
	rooms      roomLister
	faculty    facultyLister
	timetables timetableStore
	tx         txProvider
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger

	grid  models.SlotGrid
	cfg   config.SchedulerConfig
	store *runStore
	batch *jobs.Queue
}

// NewTimetableService wires scheduling dependencies. It parses the slot
// grid eagerly so a malformed configuration fails at startup.
func NewTimetableService(
	sections sectionLister,
	rooms roomLister,
	faculty facultyLister,
	timetables timetableStore,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.SchedulerConfig,
) (*TimetableService, error) {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 30 * time.Minute
	}

	grid, err := models.ParseSlotGrid(cfg.DaysPerWeek, cfg.SlotTimes)
	if err != nil {
		return nil, fmt.Errorf("scheduler slot grid: %w", err)
	}

	s := &TimetableService{
		sections:   sections,
		rooms:      rooms,
		faculty:    faculty,
		timetables: timetables,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		grid:       grid,
		cfg:        cfg,
		store:      newRunStore(cfg.RunTTL),
	}
	s.batch = jobs.NewQueue("timetable-batch", s.handleBatchJob, jobs.QueueConfig{
		Workers:    cfg.BatchWorkers,
		MaxRetries: 1,
		Logger:     logger,
	})
	return s, nil
}

// StartBatchWorkers launches the background queue for batch generation.
func (s *TimetableService) StartBatchWorkers(ctx context.Context) {
	s.batch.Start(ctx)
}

// StopBatchWorkers drains the background queue.
func (s *TimetableService) StopBatchWorkers() {
	s.batch.Stop()
}

// Generate runs the engine for a term and stores the result as a preview
// run. Nothing is persisted until Save references the returned run id.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}

	sections, err := s.sections.ListForTerm(ctx, req.Semester, req.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	if len(sections) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no sections defined for this term")
	}

	result, err := s.runEngine(ctx, sections, s.engineConfig(req))
	if err != nil {
		return nil, err
	}

	run := scheduledRun{
		RunID:       uuid.NewString(),
		Name:        req.Name,
		Semester:    req.Semester,
		Year:        req.Year,
		Result:      result,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(run)

	return &dto.GenerateTimetableResponse{
		RunID:       run.RunID,
		Status:      string(result.Status),
		Semester:    req.Semester,
		Year:        req.Year,
		Assignments: result.Assignments,
		Unplaced:    unplacedViews(sections, result.Unplaced),
		Stats:       statsView(result.Stats),
	}, nil
}

// Save persists a previewed run as a timetable, optionally activating it
// for its term in the same transaction.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save timetable payload")
	}
	run, ok := s.store.Get(req.RunID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found or expired")
	}
	if run.Result.Status == scheduler.StatusUnsatisfiable {
		return nil, appErrors.Clone(appErrors.ErrUnsatisfiable, "run produced no usable schedule")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	name := run.Name
	if name == "" {
		name = fmt.Sprintf("Semester %d / %d", run.Semester, run.Year)
	}
	record := &models.Timetable{Name: name, Semester: run.Semester, Year: run.Year}
	if err = s.timetables.Create(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
		return nil, err
	}
	if err = s.timetables.InsertAssignments(ctx, tx, record.ID, run.Result.Assignments); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable slots")
		return nil, err
	}
	if req.Activate {
		if err = s.timetables.Activate(ctx, tx, record.ID, record.Semester, record.Year); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate timetable")
			return nil, err
		}
		record.IsActive = true
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return nil, err
	}

	s.store.Delete(req.RunID)
	s.invalidateTerm(ctx, record.Semester, record.Year)

	return &dto.SaveTimetableResponse{
		TimetableID: record.ID,
		Status:      string(run.Result.Status),
		IsActive:    record.IsActive,
		SlotCount:   len(run.Result.Assignments),
	}, nil
}

// List returns stored timetable headers for a term, read through cache.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}

	key := fmt.Sprintf("timetables:%d:%d:list", query.Semester, query.Year)
	var cached []models.Timetable
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	list, err := s.timetables.ListByTerm(ctx, query.Semester, query.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	_ = s.cache.Set(ctx, key, list, s.cfg.CacheTTL)
	return list, nil
}

// Get returns one stored timetable with its slots, read through cache.
func (s *TimetableService) Get(ctx context.Context, id int64) (*dto.TimetableView, error) {
	key := fmt.Sprintf("timetables:id:%d", id)
	var cached dto.TimetableView
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	slots, err := s.timetables.ListAssignments(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable slots")
	}

	view := &dto.TimetableView{Timetable: *record, Slots: slots}
	_ = s.cache.Set(ctx, key, view, s.cfg.CacheTTL)
	return view, nil
}

// Activate marks a stored timetable active, deactivating its term siblings.
func (s *TimetableService) Activate(ctx context.Context, id int64) error {
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.Activate(ctx, tx, record.ID, record.Semester, record.Year); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate timetable")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit activation")
		return err
	}

	s.invalidateTerm(ctx, record.Semester, record.Year)
	return nil
}

// Delete removes a stored timetable. Active timetables must be replaced
// before deletion so the term never loses its published schedule.
func (s *TimetableService) Delete(ctx context.Context, id int64) error {
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if record.IsActive {
		return appErrors.Clone(appErrors.ErrConflict, "active timetable cannot be deleted")
	}
	if err := s.timetables.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.invalidateTerm(ctx, record.Semester, record.Year)
	return nil
}

// GenerateBatch schedules each department of the term as an independent
// run on the background queue and waits for all outcomes.
func (s *TimetableService) GenerateBatch(ctx context.Context, req dto.BatchGenerateRequest) (*dto.BatchGenerateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch generation payload")
	}

	departments, err := s.sections.DepartmentsForTerm(ctx, req.Semester, req.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	if len(departments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no sections defined for this term")
	}

	out := make(chan dto.BatchRunView, len(departments))
	var wg sync.WaitGroup
	for _, dep := range departments {
		wg.Add(1)
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: "generate-department",
			Payload: batchJobPayload{
				semester:     req.Semester,
				year:         req.Year,
				name:         req.Name,
				departmentID: dep,
				out:          out,
				done:         wg.Done,
			},
		}
		if err := s.batch.Enqueue(job); err != nil {
			wg.Done()
			out <- dto.BatchRunView{DepartmentID: dep, Status: "error", Error: err.Error()}
		}
	}

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-ctx.Done():
		return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "batch generation interrupted")
	}
	close(out)

	runs := make([]dto.BatchRunView, 0, len(departments))
	for view := range out {
		runs = append(runs, view)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].DepartmentID < runs[j].DepartmentID })

	return &dto.BatchGenerateResponse{Semester: req.Semester, Year: req.Year, Runs: runs}, nil
}

type batchJobPayload struct {
	semester     int
	year         int
	name         string
	departmentID int64
	out          chan<- dto.BatchRunView
	done         func()
}

// handleBatchJob runs one department on a queue worker. Failures surface
// in the batch view rather than through queue retries.
func (s *TimetableService) handleBatchJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(batchJobPayload)
	if !ok {
		return fmt.Errorf("unexpected batch payload type %T", job.Payload)
	}
	defer payload.done()

	view := dto.BatchRunView{DepartmentID: payload.departmentID}

	sections, err := s.sections.ListByDepartment(ctx, payload.semester, payload.year, payload.departmentID)
	if err != nil {
		view.Status = "error"
		view.Error = err.Error()
		payload.out <- view
		return nil
	}
	if len(sections) == 0 {
		view.Status = "skipped"
		payload.out <- view
		return nil
	}

	result, err := s.runEngine(ctx, sections, s.defaultEngineConfig())
	if err != nil {
		view.Status = "error"
		view.Error = err.Error()
		payload.out <- view
		return nil
	}

	run := scheduledRun{
		RunID:       uuid.NewString(),
		Name:        payload.name,
		Semester:    payload.semester,
		Year:        payload.year,
		Result:      result,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(run)

	view.RunID = run.RunID
	view.Status = string(result.Status)
	view.PlacedCount = result.Stats.PlacedCount
	view.Unplaced = len(result.Unplaced)
	payload.out <- view
	return nil
}

// runEngine snapshots rooms and faculty, executes one run and records
// metrics. Engine failures are configuration defects, not user errors.
func (s *TimetableService) runEngine(ctx context.Context, sections []models.Section, engineCfg scheduler.Config) (*scheduler.Result, error) {
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no rooms defined")
	}
	faculty, err := s.faculty.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}

	engine, err := scheduler.New(s.grid, rooms, faculty, engineCfg, s.logger)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build scheduler")
	}
	result, err := engine.Run(ctx, sections)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "scheduling run failed")
	}
	s.metrics.ObserveSchedulerRun(result)
	return result, nil
}

func (s *TimetableService) defaultEngineConfig() scheduler.Config {
	return scheduler.Config{
		MaxBacktrackSteps: s.cfg.MaxBacktrackSteps,
		TimeBudget:        s.cfg.TimeBudget,
		TieBreakSeed:      s.cfg.TieBreakSeed,
		RoomCapacitySlack: s.cfg.RoomCapacitySlack,
	}
}

func (s *TimetableService) engineConfig(req dto.GenerateTimetableRequest) scheduler.Config {
	cfg := s.defaultEngineConfig()
	if req.MaxBacktrackSteps != nil {
		cfg.MaxBacktrackSteps = *req.MaxBacktrackSteps
	}
	if req.TimeBudgetMs != nil {
		cfg.TimeBudget = time.Duration(*req.TimeBudgetMs) * time.Millisecond
	}
	if req.RoomCapacitySlack != nil {
		cfg.RoomCapacitySlack = *req.RoomCapacitySlack
	}
	return cfg
}

func (s *TimetableService) invalidateTerm(ctx context.Context, semester, year int) {
	_ = s.cache.Invalidate(ctx, fmt.Sprintf("timetables:%d:%d:*", semester, year))
	_ = s.cache.Invalidate(ctx, "timetables:id:*")
}

func unplacedViews(sections []models.Section, unplaced []scheduler.UnplacedSection) []dto.UnplacedSessionView {
	codes := make(map[int64]string, len(sections))
	for _, sec := range sections {
		if sec.Course != nil {
			codes[sec.ID] = sec.Course.Code
		}
	}
	return lo.Map(unplaced, func(u scheduler.UnplacedSection, _ int) dto.UnplacedSessionView {
		return dto.UnplacedSessionView{
			SectionID:  u.SectionID,
			CourseCode: codes[u.SectionID],
			Occurrence: u.Occurrence,
			Reason:     u.Reason,
		}
	})
}

func statsView(s scheduler.Stats) dto.RunStatsView {
	return dto.RunStatsView{
		TotalSections:  s.TotalSections,
		TotalSessions:  s.TotalSessions,
		PlacedCount:    s.PlacedCount,
		BacktrackCount: s.BacktrackCount,
		ElapsedMs:      s.ElapsedMs,
	}
}

// --- Run cache ---

type scheduledRun struct {
	RunID       string
	Name        string
	Semester    int
	Year        int
	Result      *scheduler.Result
	RequestedAt time.Time
}

type runStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]scheduledRun
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{
		ttl:   ttl,
		items: make(map[string]scheduledRun),
	}
}

func (s *runStore) Save(run scheduledRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[run.RunID] = run
}

func (s *runStore) Get(id string) (scheduledRun, bool) {
	s.mu.RLock()
	run, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return scheduledRun{}, false
	}
	if time.Since(run.RequestedAt) > s.ttl {
		s.Delete(id)
		return scheduledRun{}, false
	}
	return run, true
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
