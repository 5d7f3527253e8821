package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mediquery/mediquery-core/internal/core/domain"
	"github.com/mediquery/mediquery-core/internal/core/ports/driven"
)

// defaultFanoutTimeout bounds the whole fan-out round trip when the
// caller's context carries no deadline.
const defaultFanoutTimeout = 5 * time.Second

// FanOut dispatches the query plans to every requested index
// concurrently under one shared deadline. Each index fails
// independently; the returned map always holds an entry per requested
// index, failed or not.
type FanOut struct {
	index   driven.SearchIndex
	timeout time.Duration
	logger  *slog.Logger
}

// NewFanOut creates the fan-out dispatcher. A non-positive timeout
// falls back to the default.
func NewFanOut(index driven.SearchIndex, timeout time.Duration, logger *slog.Logger) *FanOut {
	if timeout <= 0 {
		timeout = defaultFanoutTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FanOut{index: index, timeout: timeout, logger: logger}
}

// Execute queries every kind's index with both plans. Every
// (index, plan) pair runs in its own goroutine under the shared
// deadline. An index is marked failed only when every leg it attempted
// failed; a single healthy leg keeps its hits.
func (f *FanOut) Execute(ctx context.Context, kinds []domain.DocumentKind, plans domain.QueryPlans) map[string]*domain.IndexResult {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	results := make(map[string]*domain.IndexResult, len(kinds))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		index := kind.Index()
		g.Go(func() error {
			result := f.queryIndex(gctx, index, plans)
			mu.Lock()
			results[index] = result
			mu.Unlock()
			// Index failures degrade the result set, never the group.
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (f *FanOut) queryIndex(ctx context.Context, index string, plans domain.QueryPlans) *domain.IndexResult {
	result := &domain.IndexResult{Index: index}

	var wg sync.WaitGroup
	var lexErr, semErr error

	if plans.Lexical != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := f.index.SearchLexical(ctx, index, *plans.Lexical)
			if err != nil {
				f.logger.Warn("lexical search failed", "index", index, "error", err)
				lexErr = err
				return
			}
			result.LexicalHits = hits
		}()
	}

	if plans.Semantic != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := f.index.SearchSemantic(ctx, index, *plans.Semantic)
			if err != nil {
				f.logger.Warn("semantic search failed", "index", index, "error", err)
				semErr = err
				return
			}
			result.SemanticHits = hits
		}()
	}

	wg.Wait()

	attempted, failed := 0, 0
	var errs []string
	if plans.Lexical != nil {
		attempted++
		if lexErr != nil {
			failed++
			errs = append(errs, lexErr.Error())
		}
	}
	if plans.Semantic != nil {
		attempted++
		if semErr != nil {
			failed++
			errs = append(errs, semErr.Error())
		}
	}
	if attempted > 0 && failed == attempted {
		result.Failed = true
		result.Error = strings.Join(errs, "; ")
	}

	return result
}
