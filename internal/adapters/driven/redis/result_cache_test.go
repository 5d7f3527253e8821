package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// setupTestCache creates a test Redis client and ResultCache
func setupTestCache(t *testing.T) (*ResultCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewResultCache(client), mr
}

func sampleResponse() *domain.SearchResponse {
	return &domain.SearchResponse{
		Results: []domain.RankedHit{
			{Index: "patients", DocumentID: "patient_1", FusedScore: 0.032, FusedRank: 1},
		},
		TotalResults: 1,
		TookMS:       12,
	}
}

func TestResultCacheRoundTrip(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "search:abc", sampleResponse(), time.Minute))

	got, err := cache.Get(ctx, "search:abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.TotalResults)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "patient_1", got.Results[0].DocumentID)
}

func TestResultCacheMiss(t *testing.T) {
	cache, _ := setupTestCache(t)

	got, err := cache.Get(context.Background(), "search:unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResultCacheExpiry(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "search:abc", sampleResponse(), time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, "search:abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}
