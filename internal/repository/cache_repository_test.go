package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "timetable", nil)
	ctx := context.Background()

	assert.False(t, repo.Enabled())
	assert.Equal(t, "timetable:proposal:abc", repo.Key("proposal:abc"))

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "proposal:abc", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "proposal:abc", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "proposal:*"))
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryKeyWithoutNamespace(t *testing.T) {
	assert.Equal(t, "plain", NewCacheRepository(nil, "", nil).Key("plain"))
}
