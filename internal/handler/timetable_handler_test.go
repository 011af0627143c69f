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

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/engine"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type timetableServiceMock struct {
	generated dto.GenerateTimetableRequest
	replanned string
	undone    string
	saved     dto.SaveTimetableRequest
	format    dto.ExportFormat
	deleteErr error
}

func (m *timetableServiceMock) Generate(_ context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	m.generated = req
	return &dto.GenerateTimetableResponse{ProposalID: "proposal-1", Status: engine.StatusPartial, Strategy: "greedy"}, nil
}

func (m *timetableServiceMock) Replan(_ context.Context, id string, _ dto.ReplanRequest) (*dto.GenerateTimetableResponse, error) {
	m.replanned = id
	return &dto.GenerateTimetableResponse{ProposalID: "proposal-2", Status: engine.StatusSuccess}, nil
}

func (m *timetableServiceMock) UndoOverrides(_ context.Context, id string) (*dto.GenerateTimetableResponse, error) {
	if id != "proposal-2" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "proposal has no override batch to undo")
	}
	m.undone = id
	return &dto.GenerateTimetableResponse{ProposalID: "proposal-3", Status: engine.StatusSuccess, Cached: true}, nil
}

func (m *timetableServiceMock) GetProposal(id string) (*dto.GenerateTimetableResponse, error) {
	if id != "proposal-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	return &dto.GenerateTimetableResponse{ProposalID: id, Status: engine.StatusNoResult}, nil
}

func (m *timetableServiceMock) Save(_ context.Context, req dto.SaveTimetableRequest) (string, error) {
	m.saved = req
	return "tt-1", nil
}

func (m *timetableServiceMock) List(context.Context, dto.TimetableQuery) ([]models.Timetable, error) {
	return []models.Timetable{{ID: "tt-1", Term: "2024-1"}}, nil
}

func (m *timetableServiceMock) GetPlacements(context.Context, string) ([]models.Placement, error) {
	return []models.Placement{{Day: "Mon", CourseID: "CS101", Kind: models.KindLecture}}, nil
}

func (m *timetableServiceMock) Delete(context.Context, string) error { return m.deleteErr }

func (m *timetableServiceMock) Publish(context.Context, string) error { return nil }

func (m *timetableServiceMock) Export(_ context.Context, _ string, format dto.ExportFormat) (*dto.ExportFile, error) {
	m.format = format
	return &dto.ExportFile{Filename: "timetable-2024-1-v1.csv", ContentType: "text/csv", Body: []byte("Day\nMon\n")}, nil
}

func (m *timetableServiceMock) Catalog() []dto.CatalogSlot {
	return []dto.CatalogSlot{{ID: "MWF_1_L", Group: "MWF_1"}}
}

func (m *timetableServiceMock) SubmitOptimization(context.Context, dto.GenerateTimetableRequest) (*dto.OptimizationJob, error) {
	return &dto.OptimizationJob{ID: "job-1", State: dto.JobQueued}, nil
}

func (m *timetableServiceMock) Job(id string) (*dto.OptimizationJob, error) {
	return &dto.OptimizationJob{ID: id, State: dto.JobRunning}, nil
}

func newTimetableRouter(svc *timetableServiceMock, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTimetableHandler(svc, "/api/v1")
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(internalmiddleware.ContextUserKey, claims)
		}
		c.Next()
	})
	g := r.Group("/api/v1/timetables")
	g.POST("/generate", h.Generate)
	g.GET("/proposals/:id", h.Proposal)
	g.POST("/proposals/:id/overrides", h.Replan)
	g.DELETE("/proposals/:id/overrides/last", h.Undo)
	g.POST("/save", h.Save)
	g.POST("/optimize", h.Optimize)
	g.GET("/jobs/:id", h.Job)
	g.GET("/catalog", h.Catalog)
	g.GET("", h.List)
	g.GET("/:id/placements", h.Placements)
	g.GET("/:id/export", h.Export)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/publish", h.Publish)
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTimetableHandlerGenerate(t *testing.T) {
	svc := &timetableServiceMock{}
	r := newTimetableRouter(svc, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/timetables/generate", map[string]interface{}{
		"term":    "2024-1",
		"courses": []map[string]interface{}{{"id": "CS101", "kind": "L"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-1", svc.generated.Term)

	var body struct {
		Data dto.GenerateTimetableResponse `json:"data"`
		Meta map[string]interface{}        `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "proposal-1", body.Data.ProposalID)
	assert.Equal(t, true, body.Meta["usable"])
}

func TestTimetableHandlerGenerateBadJSON(t *testing.T) {
	r := newTimetableRouter(&timetableServiceMock{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/timetables/generate", bytes.NewReader([]byte(`{"term":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerProposalAndReplan(t *testing.T) {
	svc := &timetableServiceMock{}
	r := newTimetableRouter(svc, nil)

	w := doJSON(r, http.MethodGet, "/api/v1/timetables/proposals/proposal-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"usable":false`)

	w = doJSON(r, http.MethodGet, "/api/v1/timetables/proposals/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/timetables/proposals/proposal-1/overrides", map[string]interface{}{
		"overrides": []map[string]interface{}{{"course_id": "CS101", "component": "L", "day": "Mon", "time": "08:00-08:55"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "proposal-1", svc.replanned)
}

func TestTimetableHandlerUndo(t *testing.T) {
	svc := &timetableServiceMock{}
	r := newTimetableRouter(svc, nil)

	w := doJSON(r, http.MethodDelete, "/api/v1/timetables/proposals/proposal-2/overrides/last", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "proposal-2", svc.undone)
	assert.Contains(t, w.Body.String(), `"proposal_id":"proposal-3"`)
	assert.Contains(t, w.Body.String(), `"cached":true`)

	w = doJSON(r, http.MethodDelete, "/api/v1/timetables/proposals/proposal-1/overrides/last", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTimetableHandlerCatalogReportsOverrideRight(t *testing.T) {
	w := doJSON(newTimetableRouter(&timetableServiceMock{}, nil), http.MethodGet, "/api/v1/timetables/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"can_override":false`)

	viewer := newTimetableRouter(&timetableServiceMock{}, &models.JWTClaims{UserID: "v", Role: models.RoleViewer})
	assert.Contains(t, doJSON(viewer, http.MethodGet, "/api/v1/timetables/catalog", nil).Body.String(), `"can_override":false`)

	scheduler := newTimetableRouter(&timetableServiceMock{}, &models.JWTClaims{UserID: "s", Role: models.RoleScheduler})
	assert.Contains(t, doJSON(scheduler, http.MethodGet, "/api/v1/timetables/catalog", nil).Body.String(), `"can_override":true`)
}

func TestTimetableHandlerSaveRecordsUser(t *testing.T) {
	svc := &timetableServiceMock{}
	r := newTimetableRouter(svc, &models.JWTClaims{UserID: "user-9", Role: models.RoleAdmin})

	w := doJSON(r, http.MethodPost, "/api/v1/timetables/save", map[string]interface{}{"proposal_id": "proposal-1", "publish": true})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user-9", svc.saved.CreatedBy)
	assert.True(t, svc.saved.Publish)
	assert.Contains(t, w.Body.String(), `"timetable_id":"tt-1"`)
}

func TestTimetableHandlerOptimizeAndJob(t *testing.T) {
	r := newTimetableRouter(&timetableServiceMock{}, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/timetables/optimize", map[string]interface{}{
		"term":    "2024-1",
		"courses": []map[string]interface{}{{"id": "CS101", "kind": "L"}},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/api/v1/timetables/jobs/job-1", w.Header().Get("Location"))

	w = doJSON(r, http.MethodGet, "/api/v1/timetables/jobs/job-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"running"`)
}

func TestTimetableHandlerReadEndpoints(t *testing.T) {
	svc := &timetableServiceMock{}
	r := newTimetableRouter(svc, nil)

	w := doJSON(r, http.MethodGet, "/api/v1/timetables?term=2024-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_count":1`)

	w = doJSON(r, http.MethodGet, "/api/v1/timetables/tt-1/placements", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CS101")

	w = doJSON(r, http.MethodGet, "/api/v1/timetables/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "MWF_1")

	w = doJSON(r, http.MethodGet, "/api/v1/timetables/tt-1/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ExportCSV, svc.format)
	assert.Equal(t, `attachment; filename="timetable-2024-1-v1.csv"`, w.Header().Get("Content-Disposition"))
}

func TestTimetableHandlerDeleteAndPublish(t *testing.T) {
	svc := &timetableServiceMock{}
	r := newTimetableRouter(svc, nil)

	w := doJSON(r, http.MethodPost, "/api/v1/timetables/tt-1/publish", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	svc.deleteErr = appErrors.Clone(appErrors.ErrConflict, "only draft timetables can be deleted")
	w = doJSON(r, http.MethodDelete, "/api/v1/timetables/tt-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTimetableHandlerRequiresRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewTimetableHandler(&timetableServiceMock{}, "/api/v1")
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "u", Role: models.RoleViewer})
		c.Next()
	})
	r.POST("/generate", internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleScheduler), h.Generate)

	w := doJSON(r, http.MethodPost, "/generate", map[string]interface{}{"term": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
