package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/schedulo-hq/schedulo-api/internal/models"
)

// Status is the terminal outcome of a scheduling run.
type Status string

const (
	StatusScheduled     Status = "scheduled"
	StatusPartial       Status = "partial"
	StatusUnsatisfiable Status = "unsatisfiable"
)

// Config bounds a single scheduling run. TieBreakSeed is validated and
// carried but not yet consulted; it reserves the knob for a future
// randomized tie-break extension without breaking the result contract.
type Config struct {
	MaxBacktrackSteps int           `json:"max_backtrack_steps"`
	TimeBudget        time.Duration `json:"time_budget"`
	TieBreakSeed      int64         `json:"tie_break_seed"`
	RoomCapacitySlack float64       `json:"room_capacity_slack"`
}

// Validate fails fast on malformed configuration before any search starts.
func (c Config) Validate() error {
	if c.MaxBacktrackSteps < 0 {
		return fmt.Errorf("max backtrack steps must be >= 0, got %d", c.MaxBacktrackSteps)
	}
	if c.TimeBudget < 0 {
		return fmt.Errorf("time budget must be >= 0, got %s", c.TimeBudget)
	}
	if c.TieBreakSeed < 0 {
		return fmt.Errorf("tie break seed must be >= 0, got %d", c.TieBreakSeed)
	}
	if c.RoomCapacitySlack < 0 || c.RoomCapacitySlack > 1 {
		return fmt.Errorf("room capacity slack must be within [0, 1], got %g", c.RoomCapacitySlack)
	}
	return nil
}

// UnplacedSection diagnoses one session the engine could not place.
type UnplacedSection struct {
	SectionID  int64  `json:"section_id"`
	Occurrence int    `json:"occurrence"`
	Reason     string `json:"last_failure_reason"`
}

// Stats summarises a run for callers and metrics.
type Stats struct {
	TotalSections  int   `json:"total_sections"`
	TotalSessions  int   `json:"total_sessions"`
	PlacedCount    int   `json:"placed_count"`
	BacktrackCount int   `json:"backtrack_count"`
	ElapsedMs      int64 `json:"elapsed_ms"`
}

// Result is the frozen output of one run. Assignments are ordered by
// (day, slot, room id) and identical across runs with identical inputs.
type Result struct {
	Status      Status              `json:"status"`
	Assignments []models.Assignment `json:"assignments"`
	Unplaced    []UnplacedSection   `json:"unplaced"`
	Stats       Stats               `json:"stats"`
}

// Engine performs constructive search with bounded chronological
// backtracking over one section universe. An Engine is reusable; each Run
// owns a fresh availability index and schedule.
type Engine struct {
	grid    models.SlotGrid
	rooms   []models.Room
	faculty map[int64]models.Faculty
	cfg     Config
	logger  *zap.Logger
}

// New builds an engine over immutable room/faculty/grid universes.
func New(grid models.SlotGrid, rooms []models.Room, faculty []models.Faculty, cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler config: %w", err)
	}
	if grid.Days < 1 || len(grid.Slots) == 0 {
		return nil, fmt.Errorf("scheduler config: empty time-slot grid")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sorted := make([]models.Room, len(rooms))
	copy(sorted, rooms)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Capacity != sorted[j].Capacity {
			return sorted[i].Capacity < sorted[j].Capacity
		}
		return sorted[i].ID < sorted[j].ID
	})

	return &Engine{
		grid:    grid,
		rooms:   sorted,
		faculty: lo.SliceToMap(faculty, func(f models.Faculty) (int64, models.Faculty) { return f.ID, f }),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// item is one weekly session of a section awaiting placement.
type item struct {
	sec        models.Section
	occurrence int
	static     int // statically feasible (day, slot, room) count

	chosen     *candidate
	excluded   map[string]bool
	tally      map[ViolationCode]int
	failReason string
}

// Run schedules every weekly session of the given sections. Per-session
// failures are collected in the result; only engine defects return a
// non-nil error.
func (e *Engine) Run(ctx context.Context, sections []models.Section) (*Result, error) {
	start := time.Now()
	index := NewAvailabilityIndex()
	eval := NewEvaluator(index, e.faculty, e.cfg.RoomCapacitySlack)
	state := newRunState()

	items, unplaced := e.buildItems(eval, sections)
	e.logger.Debug("scheduling run started",
		zap.Int("sections", len(sections)),
		zap.Int("items", len(items)),
		zap.Int("pre_diagnosed", len(unplaced)),
	)

	var deadline time.Time
	if e.cfg.TimeBudget > 0 {
		deadline = start.Add(e.cfg.TimeBudget)
	}

	backtracks := 0
	stoppedEarly := false
	backtrackingEnabled := true

	i := 0
	for i < len(items) {
		if err := ctx.Err(); err != nil {
			e.markRemaining(items[i:], "run cancelled before attempt")
			stoppedEarly = true
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			e.markRemaining(items[i:], "time budget exhausted before attempt")
			stoppedEarly = true
			break
		}

		it := items[i]
		if it.failReason != "" {
			// Abandoned at its root earlier; never retried.
			i++
			continue
		}

		cand := e.bestCandidate(eval, state, it)
		if cand != nil {
			if err := e.commit(index, state, it, *cand); err != nil {
				return nil, err
			}
			it.chosen = cand
			i++
			continue
		}

		// Dead end for the head item.
		if !backtrackingEnabled {
			e.diagnose(it)
			i++
			continue
		}

		j := lastCommitted(items, i)
		if j < 0 {
			// Root exhausted for this item; diagnose and move on so one
			// unschedulable section never aborts the batch.
			e.diagnose(it)
			i++
			continue
		}
		if backtracks >= e.cfg.MaxBacktrackSteps {
			e.diagnose(it)
			stoppedEarly = true
			backtrackingEnabled = false
			i++
			continue
		}

		backtracks++
		prev := items[j]
		e.undo(index, state, prev)
		prev.exclude(*prev.chosen)
		prev.chosen = nil
		for k := j + 1; k < len(items); k++ {
			items[k].excluded = nil
		}
		i = j
	}

	for _, it := range items {
		if it.chosen == nil && it.failReason != "" {
			unplaced = append(unplaced, UnplacedSection{SectionID: it.sec.ID, Occurrence: it.occurrence, Reason: it.failReason})
		}
	}

	placed := lo.Filter(items, func(it *item, _ int) bool { return it.chosen != nil })
	totalSessions := len(items) + preDiagnosedSessions(sections, items)
	result := &Result{
		Status:      runStatus(len(placed), totalSessions, stoppedEarly),
		Assignments: e.exportAssignments(state),
		Unplaced:    unplaced,
		Stats: Stats{
			TotalSections:  len(sections),
			TotalSessions:  totalSessions,
			PlacedCount:    len(placed),
			BacktrackCount: backtracks,
			ElapsedMs:      time.Since(start).Milliseconds(),
		},
	}

	e.logger.Info("scheduling run finished",
		zap.String("status", string(result.Status)),
		zap.Int("placed", result.Stats.PlacedCount),
		zap.Int("unplaced", len(result.Unplaced)),
		zap.Int("backtracks", result.Stats.BacktrackCount),
		zap.Int64("elapsed_ms", result.Stats.ElapsedMs),
	)
	return result, nil
}

// buildItems expands sections into session items ordered
// most-constrained-first and pre-diagnoses sections with no statically
// feasible placement at all.
func (e *Engine) buildItems(eval *Evaluator, sections []models.Section) ([]*item, []UnplacedSection) {
	ordered := make([]models.Section, len(sections))
	copy(ordered, sections)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var items []*item
	var unplaced []UnplacedSection
	for _, sec := range ordered {
		sessions := 1
		if sec.Course != nil && sec.Course.WeeklySessions > 0 {
			sessions = sec.Course.WeeklySessions
		}

		static, tally := e.staticFeasibility(eval, sec)
		if static == 0 {
			reason := reasonFromTally(sec, tally)
			for occ := 1; occ <= sessions; occ++ {
				unplaced = append(unplaced, UnplacedSection{SectionID: sec.ID, Occurrence: occ, Reason: reason})
			}
			continue
		}
		for occ := 1; occ <= sessions; occ++ {
			items = append(items, &item{sec: sec, occurrence: occ, static: static})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].static != items[j].static {
			return items[i].static < items[j].static
		}
		if items[i].sec.ID != items[j].sec.ID {
			return items[i].sec.ID < items[j].sec.ID
		}
		return items[i].occurrence < items[j].occurrence
	})
	return items, unplaced
}

// staticFeasibility counts placements that survive the
// reservation-independent constraints and tallies why the rest fail.
func (e *Engine) staticFeasibility(eval *Evaluator, sec models.Section) (int, map[ViolationCode]int) {
	tally := make(map[ViolationCode]int)
	if _, ok := e.faculty[sec.FacultyID]; !ok {
		tally[CodeFacultyUnknown]++
		return 0, tally
	}
	count := 0
	for day := 1; day <= e.grid.Days; day++ {
		for slot := 1; slot <= len(e.grid.Slots); slot++ {
			for r := range e.rooms {
				v := eval.checkStatic(sec, candidate{day: day, slot: slot, room: &e.rooms[r]})
				if v == nil {
					count++
				} else {
					tally[v.Code]++
				}
			}
		}
	}
	return count, tally
}

// bestCandidate enumerates the full grid for the item, filters through the
// hard checks, and returns the cheapest surviving candidate. Ties break by
// (day, slot, room id) ascending so runs stay deterministic.
func (e *Engine) bestCandidate(eval *Evaluator, state *runState, it *item) *candidate {
	it.tally = make(map[ViolationCode]int)
	var best *candidate
	var bestCost float64

	for day := 1; day <= e.grid.Days; day++ {
		for slot := 1; slot <= len(e.grid.Slots); slot++ {
			for r := range e.rooms {
				cand := candidate{day: day, slot: slot, room: &e.rooms[r]}
				if it.excluded[cand.String()] {
					continue
				}
				if v := eval.CheckHard(state, it.sec, cand); v != nil {
					it.tally[v.Code]++
					continue
				}
				cost := eval.SoftCost(state, it.sec, cand)
				if best == nil || cost < bestCost || (cost == bestCost && lessCandidate(cand, *best)) {
					c := cand
					best = &c
					bestCost = cost
				}
			}
		}
	}
	return best
}

func lessCandidate(a, b candidate) bool {
	if a.day != b.day {
		return a.day < b.day
	}
	if a.slot != b.slot {
		return a.slot < b.slot
	}
	return a.room.ID < b.room.ID
}

func (e *Engine) commit(index *AvailabilityIndex, state *runState, it *item, cand candidate) error {
	if err := index.Reserve(KindRoom, roomRef(cand.room.ID), cand.day, cand.slot); err != nil {
		return err
	}
	if err := index.Reserve(KindFaculty, facultyRef(it.sec.FacultyID), cand.day, cand.slot); err != nil {
		return err
	}
	if err := index.Reserve(KindCohort, it.sec.CohortKey(), cand.day, cand.slot); err != nil {
		return err
	}

	slot, _ := e.grid.SlotByIndex(cand.slot)
	state.commit(models.Assignment{
		SectionID: it.sec.ID,
		CourseID:  it.sec.CourseID,
		FacultyID: it.sec.FacultyID,
		RoomID:    cand.room.ID,
		DayOfWeek: cand.day,
		SlotIndex: cand.slot,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
	}, it.sec.CohortKey())
	return nil
}

func (e *Engine) undo(index *AvailabilityIndex, state *runState, it *item) {
	cand := it.chosen
	index.Release(KindRoom, roomRef(cand.room.ID), cand.day, cand.slot)
	index.Release(KindFaculty, facultyRef(it.sec.FacultyID), cand.day, cand.slot)
	index.Release(KindCohort, it.sec.CohortKey(), cand.day, cand.slot)
	state.undo(it.sec.CohortKey())
}

func (e *Engine) diagnose(it *item) {
	it.failReason = reasonFromTally(it.sec, it.tally)
	e.logger.Warn("session unplaced",
		zap.Int64("section_id", it.sec.ID),
		zap.Int("occurrence", it.occurrence),
		zap.String("reason", it.failReason),
	)
}

func (e *Engine) markRemaining(rest []*item, reason string) {
	for _, it := range rest {
		if it.chosen == nil && it.failReason == "" {
			it.failReason = reason
		}
	}
}

func (e *Engine) exportAssignments(state *runState) []models.Assignment {
	out := make([]models.Assignment, len(state.assignments))
	copy(out, state.assignments)
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		if out[i].SlotIndex != out[j].SlotIndex {
			return out[i].SlotIndex < out[j].SlotIndex
		}
		return out[i].RoomID < out[j].RoomID
	})
	return out
}

func (it *item) exclude(cand candidate) {
	if it.excluded == nil {
		it.excluded = make(map[string]bool)
	}
	it.excluded[cand.String()] = true
}

func lastCommitted(items []*item, before int) int {
	for j := before - 1; j >= 0; j-- {
		if items[j].chosen != nil {
			return j
		}
	}
	return -1
}

func runStatus(placed, totalSessions int, stoppedEarly bool) Status {
	if stoppedEarly {
		return StatusUnsatisfiable
	}
	if placed == totalSessions {
		return StatusScheduled
	}
	if placed == 0 && totalSessions > 0 {
		return StatusUnsatisfiable
	}
	return StatusPartial
}

func preDiagnosedSessions(sections []models.Section, items []*item) int {
	counted := len(items)
	total := 0
	for _, sec := range sections {
		sessions := 1
		if sec.Course != nil && sec.Course.WeeklySessions > 0 {
			sessions = sec.Course.WeeklySessions
		}
		total += sessions
	}
	return total - counted
}

// reasonFromTally folds a violation tally into the single most telling
// failure reason for diagnostics. Faculty-side causes collapse into one
// message because callers act on them identically.
func reasonFromTally(sec models.Section, tally map[ViolationCode]int) string {
	if len(tally) == 0 {
		// Every statically feasible candidate was tried and undone by
		// backtracking, so no single constraint is to blame.
		return "all candidate placements exhausted during search"
	}

	facultySide := tally[CodeFacultyBlackout] + tally[CodeFacultyBusy] + tally[CodeFacultyOverloaded]
	type cause struct {
		count  int
		reason string
	}
	causes := []cause{
		{tally[CodeRoomTooSmall], fmt.Sprintf("room capacity insufficient for cohort size %d", sec.CohortSize)},
		{tally[CodeRoomTypeMismatch], requiredTypeReason(sec)},
		{tally[CodeFacultyUnknown], fmt.Sprintf("faculty %d missing from loaded universe", sec.FacultyID)},
		{facultySide, "no faculty availability remaining"},
		{tally[CodeCohortBusy], "no conflict-free slot remaining for student cohort"},
		{tally[CodeRoomBusy], "no free room remaining in any slot"},
	}

	best := causes[0]
	for _, c := range causes[1:] {
		if c.count > best.count {
			best = c
		}
	}
	return best.reason
}

func requiredTypeReason(sec models.Section) string {
	if sec.Course != nil && sec.Course.RequiredRoomType != "" {
		return fmt.Sprintf("no room of required type %s", sec.Course.RequiredRoomType)
	}
	return "no room of required type"
}
