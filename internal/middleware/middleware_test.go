package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func newProtectedRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		role := ""
		if v, ok := c.Get(ContextUserKey); ok {
			role = string(v.(*models.JWTClaims).Role)
		}
		c.String(http.StatusOK, role)
	})
	r.GET("/secure", handlers...)
	return r
}

func get(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	validator := validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleScheduler}}
	r := newProtectedRouter(JWT(validator))

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer bad").Code)

	w := get(r, "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SCHEDULER", w.Body.String())
}

func TestOptionalJWT(t *testing.T) {
	validator := validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleViewer}}
	r := newProtectedRouter(OptionalJWT(validator))

	w := get(r, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = get(r, "Bearer bad")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	assert.Equal(t, "VIEWER", get(r, "bearer good").Body.String())
}

func TestRBAC(t *testing.T) {
	cases := []struct {
		name   string
		role   models.UserRole
		status int
	}{
		{"scheduler allowed", models.RoleScheduler, http.StatusOK},
		{"superadmin bypass", models.RoleSuperAdmin, http.StatusOK},
		{"viewer forbidden", models.RoleViewer, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			validator := validatorStub{claims: &models.JWTClaims{UserID: "u", Role: tc.role}}
			r := newProtectedRouter(JWT(validator), RequireRoles(models.RoleAdmin, models.RoleScheduler))
			assert.Equal(t, tc.status, get(r, "Bearer good").Code)
		})
	}

	r := newProtectedRouter(RBAC(string(models.RoleAdmin)))
	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
}

func TestJWTWithTokenService(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret", Issuer: "timetable"})
	token, err := tokens.Issue("u7", models.RoleAdmin, time.Minute)
	require.NoError(t, err)

	r := newProtectedRouter(JWT(tokens))
	w := get(r, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ADMIN", w.Body.String())
}

func TestMetricsMiddleware(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newProtectedRouter(Metrics(metrics))
	require.Equal(t, http.StatusOK, get(r, "").Code)

	families, err := metrics.Gatherer().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "http_requests_total" {
			found = true
		}
	}
	assert.True(t, found, "http_requests_total not gathered")

	require.Equal(t, http.StatusOK, get(newProtectedRouter(Metrics(nil)), "").Code)
}

func TestAuditLogsSuccessfulRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
		c.Next()
	})
	r.POST("/timetables/:id/publish", Audit(zap.New(core), "timetable.publish", "timetable"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.DELETE("/timetables/:id", Audit(zap.New(core), "timetable.delete", "timetable"), func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/timetables/tt-1/publish", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/timetables/tt-1", nil))
	require.Equal(t, http.StatusConflict, w.Code)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "timetable.publish", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "tt-1", fields["resource_id"])
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "ADMIN", fields["role"])
}

func TestMetricsMiddlewareLabelsUnmatchedRoutes(t *testing.T) {
	metrics := service.NewMetricsService()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/timetables/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/timetables/a", "/timetables/b", "/nope/1", "/nope/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := metrics.Gatherer().Gather()
	require.NoError(t, err)
	paths := map[string]bool{}
	for _, f := range families {
		if f.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "path" {
					paths[l.GetValue()] = true
				}
			}
		}
	}
	assert.Equal(t, map[string]bool{"/timetables/:id": true, "unmatched": true}, paths)
}
