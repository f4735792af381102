package dto

import (
	"github.com/schedulo-hq/schedulo-api/internal/models"
)

// GenerateTimetableRequest asks the engine to build a timetable run for a
// term. The optional knobs override the configured scheduler defaults.
type GenerateTimetableRequest struct {
	Semester int    `json:"semester" validate:"required,min=1,max=12"`
	Year     int    `json:"year" validate:"required,min=2000,max=2100"`
	Name     string `json:"name" validate:"omitempty,max=120"`

	MaxBacktrackSteps *int     `json:"maxBacktrackSteps" validate:"omitempty,min=0"`
	TimeBudgetMs      *int     `json:"timeBudgetMs" validate:"omitempty,min=0,max=300000"`
	RoomCapacitySlack *float64 `json:"roomCapacitySlack" validate:"omitempty,min=0,max=1"`
}

// UnplacedSessionView explains one session the run could not place.
type UnplacedSessionView struct {
	SectionID  int64  `json:"section_id"`
	CourseCode string `json:"course_code,omitempty"`
	Occurrence int    `json:"occurrence"`
	Reason     string `json:"last_failure_reason"`
}

// RunStatsView summarises engine effort for a run.
type RunStatsView struct {
	TotalSections  int   `json:"total_sections"`
	TotalSessions  int   `json:"total_sessions"`
	PlacedCount    int   `json:"placed_count"`
	BacktrackCount int   `json:"backtrack_count"`
	ElapsedMs      int64 `json:"elapsed_ms"`
}

// GenerateTimetableResponse returns a preview run. The run is held in
// memory until saved or expired; RunID references it on save.
type GenerateTimetableResponse struct {
	RunID       string                `json:"run_id"`
	Status      string                `json:"status"`
	Semester    int                   `json:"semester"`
	Year        int                   `json:"year"`
	Assignments []models.Assignment   `json:"assignments"`
	Unplaced    []UnplacedSessionView `json:"unplaced,omitempty"`
	Stats       RunStatsView          `json:"stats"`
}

// SaveTimetableRequest persists a previewed run as a timetable.
type SaveTimetableRequest struct {
	RunID    string `json:"run_id" validate:"required,uuid4"`
	Activate bool   `json:"activate"`
}

// SaveTimetableResponse acknowledges a persisted run.
type SaveTimetableResponse struct {
	TimetableID int64  `json:"timetable_id"`
	Status      string `json:"status"`
	IsActive    bool   `json:"is_active"`
	SlotCount   int    `json:"slot_count"`
}

// TimetableQuery filters stored timetables by term.
type TimetableQuery struct {
	Semester int `form:"semester" json:"semester" validate:"required,min=1,max=12"`
	Year     int `form:"year" json:"year" validate:"required,min=2000,max=2100"`
}

// TimetableView is a stored timetable header with optional slots.
type TimetableView struct {
	Timetable models.Timetable    `json:"timetable"`
	Slots     []models.Assignment `json:"slots,omitempty"`
}

// BatchGenerateRequest schedules every department of a term as independent
// runs executed on the background queue.
type BatchGenerateRequest struct {
	Semester int    `json:"semester" validate:"required,min=1,max=12"`
	Year     int    `json:"year" validate:"required,min=2000,max=2100"`
	Name     string `json:"name" validate:"omitempty,max=120"`
}

// BatchRunView is the per-department outcome of a batch generation.
type BatchRunView struct {
	DepartmentID int64  `json:"department_id"`
	RunID        string `json:"run_id,omitempty"`
	Status       string `json:"status"`
	PlacedCount  int    `json:"placed_count"`
	Unplaced     int    `json:"unplaced_count"`
	Error        string `json:"error,omitempty"`
}

// BatchGenerateResponse aggregates the batch outcome.
type BatchGenerateResponse struct {
	Semester int            `json:"semester"`
	Year     int            `json:"year"`
	Runs     []BatchRunView `json:"runs"`
}
