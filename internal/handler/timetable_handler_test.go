package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedulo-hq/schedulo-api/internal/dto"
	internalmiddleware "github.com/schedulo-hq/schedulo-api/internal/middleware"
	"github.com/schedulo-hq/schedulo-api/internal/models"
	"github.com/schedulo-hq/schedulo-api/internal/scheduler"
	appErrors "github.com/schedulo-hq/schedulo-api/pkg/errors"
)

type timetableSchedulerMock struct {
	captured dto.GenerateTimetableRequest
	status   string
	unplaced []dto.UnplacedSessionView
	saveErr  error
}

func (m *timetableSchedulerMock) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	m.captured = req
	status := m.status
	if status == "" {
		status = string(scheduler.StatusScheduled)
	}
	return &dto.GenerateTimetableResponse{
		RunID:    "run-1",
		Status:   status,
		Semester: req.Semester,
		Year:     req.Year,
		Unplaced: m.unplaced,
		Stats:    dto.RunStatsView{PlacedCount: 3, TotalSessions: 3 + len(m.unplaced)},
	}, nil
}

func (m *timetableSchedulerMock) GenerateBatch(ctx context.Context, req dto.BatchGenerateRequest) (*dto.BatchGenerateResponse, error) {
	return &dto.BatchGenerateResponse{Semester: req.Semester, Year: req.Year}, nil
}

func (m *timetableSchedulerMock) Save(ctx context.Context, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	return &dto.SaveTimetableResponse{TimetableID: 7, Status: string(scheduler.StatusScheduled)}, nil
}

func (m *timetableSchedulerMock) List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, error) {
	return []models.Timetable{{ID: 7, Semester: query.Semester, Year: query.Year}}, nil
}

func (m *timetableSchedulerMock) Get(ctx context.Context, id int64) (*dto.TimetableView, error) {
	return &dto.TimetableView{Timetable: models.Timetable{ID: id}}, nil
}

func (m *timetableSchedulerMock) Activate(ctx context.Context, id int64) error { return nil }

func (m *timetableSchedulerMock) Delete(ctx context.Context, id int64) error { return nil }

func postJSON(t *testing.T, h gin.HandlerFunc, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	h(c)
	return w
}

func TestTimetableHandlerGenerateScheduled(t *testing.T) {
	mockSvc := &timetableSchedulerMock{}
	h := &TimetableHandler{service: mockSvc}

	w := postJSON(t, h.Generate, "/timetables/generate", `{"semester":3,"year":2026,"name":"Fall"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, mockSvc.captured.Semester)
	assert.Equal(t, "Fall", mockSvc.captured.Name)
}

func TestTimetableHandlerGeneratePartialCarriesWarning(t *testing.T) {
	mockSvc := &timetableSchedulerMock{
		status:   string(scheduler.StatusPartial),
		unplaced: []dto.UnplacedSessionView{{SectionID: 9, Occurrence: 1, Reason: "no faculty availability remaining"}},
	}
	h := &TimetableHandler{service: mockSvc}

	w := postJSON(t, h.Generate, "/timetables/generate", `{"semester":3,"year":2026}`)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Meta["warning"])
	assert.EqualValues(t, 1, envelope.Meta["unplaced_count"])
}

func TestTimetableHandlerGenerateUnsatisfiable(t *testing.T) {
	mockSvc := &timetableSchedulerMock{status: string(scheduler.StatusUnsatisfiable)}
	h := &TimetableHandler{service: mockSvc}

	w := postJSON(t, h.Generate, "/timetables/generate", `{"semester":3,"year":2026}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTimetableHandlerGenerateMalformedBody(t *testing.T) {
	h := &TimetableHandler{service: &timetableSchedulerMock{}}

	w := postJSON(t, h.Generate, "/timetables/generate", `{"semester":`)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerSaveCreated(t *testing.T) {
	h := &TimetableHandler{service: &timetableSchedulerMock{}}

	w := postJSON(t, h.Save, "/timetables", `{"run_id":"3e8b4f44-9416-4d52-a3f7-7e9a4a1f3c21","activate":true}`)

	require.Equal(t, http.StatusCreated, w.Code)
}

func TestTimetableHandlerSavePropagatesServiceError(t *testing.T) {
	h := &TimetableHandler{service: &timetableSchedulerMock{
		saveErr: appErrors.Clone(appErrors.ErrNotFound, "run not found or expired"),
	}}

	w := postJSON(t, h.Save, "/timetables", `{"run_id":"3e8b4f44-9416-4d52-a3f7-7e9a4a1f3c21"}`)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerGetRejectsBadID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{service: &timetableSchedulerMock{}}
	router := gin.New()
	router.GET("/timetables/:id", h.Get)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/abc", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGenerateUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{service: &timetableSchedulerMock{}}
	router := gin.New()
	router.POST("/timetables/generate", internalmiddleware.RBAC(string(models.RoleAdmin)), h.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader([]byte(`{"semester":3,"year":2026}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTimetableHandlerGenerateForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{service: &timetableSchedulerMock{}}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
		c.Next()
	})
	router.POST("/timetables/generate", internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleScheduler)), h.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader([]byte(`{"semester":3,"year":2026}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}
