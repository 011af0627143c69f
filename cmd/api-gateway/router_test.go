package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/config"
)

func testRouter(t *testing.T, env string) (*gin.Engine, *service.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Env:       env,
		APIPrefix: "/api/v1",
		Timetable: config.TimetableConfig{Enabled: true},
	}
	tokens := service.NewTokenService(service.TokenConfig{Secret: "test-secret"})
	metrics := service.NewMetricsService()
	timetables := service.NewTimetableService(nil, nil, nil, nil, metrics, nil, zap.NewNop(), service.TimetableServiceConfig{})
	return newRouter(cfg, zap.NewNop(), routerDeps{metrics: metrics, tokens: tokens, timetables: timetables}), tokens
}

func call(r http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouterHealthEndpoints(t *testing.T) {
	r, _ := testRouter(t, config.EnvDevelopment)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/ready", "", nil).Code)

	w := call(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRouterRequiresToken(t *testing.T) {
	r, tokens := testRouter(t, config.EnvProduction)

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/v1/timetables", "", nil).Code)

	viewer, err := tokens.Issue("v1", models.RoleViewer, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodDelete, "/api/v1/timetables/proposals/p1/overrides/last", viewer, nil).Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/api/v1/timetables/generate", viewer, []byte(`{}`)).Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/docs/index.html", "", nil).Code)
}

func TestRouterCatalogIsPublic(t *testing.T) {
	r, tokens := testRouter(t, config.EnvProduction)

	w := call(r, http.MethodGet, "/api/v1/timetables/catalog", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "overlap_group")
	assert.Contains(t, w.Body.String(), `"can_override":false`)

	w = call(r, http.MethodGet, "/api/v1/timetables/catalog", "not-a-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"can_override":false`)

	scheduler, err := tokens.Issue("s1", models.RoleScheduler, time.Minute)
	require.NoError(t, err)
	w = call(r, http.MethodGet, "/api/v1/timetables/catalog", scheduler, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"can_override":true`)
	assert.Contains(t, w.Body.String(), `"conflicts_with":["MWF_1"]`)
}

func TestRouterUndoWithoutProposal(t *testing.T) {
	r, tokens := testRouter(t, config.EnvDevelopment)
	admin, err := tokens.Issue("a1", models.RoleAdmin, time.Minute)
	require.NoError(t, err)

	w := call(r, http.MethodDelete, "/api/v1/timetables/proposals/missing/overrides/last", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterGenerate(t *testing.T) {
	r, tokens := testRouter(t, config.EnvDevelopment)
	admin, err := tokens.Issue("a1", models.RoleAdmin, time.Minute)
	require.NoError(t, err)

	body := []byte(`{"term":"2024-1","courses":[{"id":"CS101","kind":"LEC1","student_group":"G1","faculty_id":"F1"}]}`)
	w := call(r, http.MethodPost, "/api/v1/timetables/generate", admin, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)
	assert.Contains(t, w.Body.String(), `"proposal_id"`)
}
