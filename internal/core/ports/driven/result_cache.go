package driven

import (
	"context"
	"time"

	"github.com/mediquery/mediquery-core/internal/core/domain"
)

// ResultCache caches fused result pages for identical requests.
// A cache miss or error is never fatal to the search path.
type ResultCache interface {
	// Get returns the cached response for a request key, or nil on miss.
	Get(ctx context.Context, key string) (*domain.SearchResponse, error)

	// Set stores a response under a request key with a TTL.
	Set(ctx context.Context, key string, resp *domain.SearchResponse, ttl time.Duration) error
}
