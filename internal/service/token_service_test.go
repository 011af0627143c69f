package service

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "timetable"})

	token, err := svc.Issue("user-1", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestTokenServiceRejectsTamperedOrExpired(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "s3cret"})
	other := NewTokenService(TokenConfig{Secret: "different"})

	token, err := other.Issue("user-1", models.RoleViewer, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)

	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }
	token, err = svc.Issue("user-1", models.RoleViewer, time.Minute)
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenServiceIssueRequiresUser(t *testing.T) {
	_, err := NewTokenService(TokenConfig{Secret: "x"}).Issue("", models.RoleAdmin, 0)
	assert.Error(t, err)
}

func TestTokenServiceIssuerMismatch(t *testing.T) {
	token, err := NewTokenService(TokenConfig{Secret: "x", Issuer: "other"}).Issue("u", models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = NewTokenService(TokenConfig{Secret: "x", Issuer: "timetable"}).ValidateToken(token)
	assert.Error(t, err)
}
