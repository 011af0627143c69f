package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Timetable.Enabled)
	assert.Equal(t, "greedy", cfg.Timetable.Strategy)
	assert.True(t, cfg.Timetable.FallbackToGreedy)
	assert.Equal(t, 30*time.Minute, cfg.Timetable.ProposalTTL)
	assert.Equal(t, 1, cfg.Jobs.Workers)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("TIMETABLE_STRATEGY", " Optimizer ")
	t.Setenv("TIMETABLE_PROPOSAL_TTL", "5m")
	t.Setenv("TIMETABLE_CACHE_TTL", "not-a-duration")
	t.Setenv("TIMETABLE_FORBID_BACK_TO_BACK", "true")
	t.Setenv("JOBS_WORKERS", "0")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "optimizer", cfg.Timetable.Strategy)
	assert.Equal(t, 5*time.Minute, cfg.Timetable.ProposalTTL)
	assert.Equal(t, 10*time.Minute, cfg.Timetable.CacheTTL)
	assert.True(t, cfg.Timetable.ForbidBackToBack)
	assert.Equal(t, 1, cfg.Jobs.Workers)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

// chdirTemp keeps a developer's local .env out of the test.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
