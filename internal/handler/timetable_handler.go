package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/schedulo-hq/schedulo-api/internal/dto"
	"github.com/schedulo-hq/schedulo-api/internal/models"
	"github.com/schedulo-hq/schedulo-api/internal/scheduler"
	"github.com/schedulo-hq/schedulo-api/internal/service"
	appErrors "github.com/schedulo-hq/schedulo-api/pkg/errors"
	"github.com/schedulo-hq/schedulo-api/pkg/response"
)

type timetableScheduler interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	GenerateBatch(ctx context.Context, req dto.BatchGenerateRequest) (*dto.BatchGenerateResponse, error)
	Save(ctx context.Context, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error)
	List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, error)
	Get(ctx context.Context, id int64) (*dto.TimetableView, error)
	Activate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// TimetableHandler exposes timetable generation and lifecycle endpoints.
type TimetableHandler struct {
	service timetableScheduler
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate a timetable preview run for a term
// @Description Runs the constraint engine and returns a preview held in memory until saved. Partial runs return 200 with warnings metadata; unsatisfiable runs return 422 with per-session diagnostics.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generate timetable payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	switch result.Status {
	case string(scheduler.StatusUnsatisfiable):
		response.JSON(c, http.StatusUnprocessableEntity, result, nil)
	case string(scheduler.StatusPartial):
		response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{
			"warning":        "timetable is partial; some sessions could not be placed",
			"unplaced_count": len(result.Unplaced),
			"placed_count":   result.Stats.PlacedCount,
			"total_sessions": result.Stats.TotalSessions,
		})
	default:
		response.JSON(c, http.StatusOK, result, nil)
	}
}

// GenerateBatch godoc
// @Summary Generate per-department timetable runs for a term
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.BatchGenerateRequest true "Batch generate payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/generate/batch [post]
func (h *TimetableHandler) GenerateBatch(c *gin.Context) {
	var req dto.BatchGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}
	result, err := h.service.GenerateBatch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Save godoc
// @Summary Persist a previewed run as a timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.SaveTimetableRequest true "Save timetable payload"
// @Success 201 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Save(c *gin.Context) {
	var req dto.SaveTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	result, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List stored timetables for a term
// @Tags Timetables
// @Produce json
// @Param semester query int true "Semester"
// @Param year query int true "Year"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var query dto.TimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable query"))
		return
	}
	result, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get one stored timetable with its slots
// @Tags Timetables
// @Produce json
// @Param id path int true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Activate godoc
// @Summary Activate a stored timetable for its term
// @Description Marks the timetable active and deactivates other timetables of the same semester and year.
// @Tags Timetables
// @Produce json
// @Param id path int true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/activate [post]
func (h *TimetableHandler) Activate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Activate(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"timetable_id": id, "is_active": true}, nil)
}

// Delete godoc
// @Summary Delete a stored timetable
// @Tags Timetables
// @Produce json
// @Param id path int true "Timetable ID"
// @Success 204 "No Content"
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}
