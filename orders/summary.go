package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jeffsasaki/regression-lab/model"
)

const (
	DefaultSummaryLimit = 50
	MaxSummaryLimit     = 1000
)

// Summary ranks active customers by the total of their paid, non-archived
// orders. Customers without such orders appear with zero totals, always
// after every positive spender; ties break by ascending customer id.
func (s *Service) Summary(ctx context.Context, limit int) (_ []model.SpenderRow, err error) {
	ctx, span := s.start(ctx, "Summary", attribute.Int("limit", limit))
	defer func() { finish(span, err) }()

	if limit < 0 || limit > MaxSummaryLimit {
		return nil, model.Invalid("limit must be between 0 and %d, got %d", MaxSummaryLimit, limit)
	}

	key := s.summaryKey(ctx, limit)
	if key != "" {
		if rows, ok := s.cachedSummary(ctx, key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return rows, nil
		}
	}

	rows, err := s.store.TopSpenders(ctx, limit)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if body, err := json.Marshal(rows); err == nil {
			if err := s.cache.Set(ctx, key, body, s.cacheTTL); err != nil {
				s.log.WithError(err).Warn("store summary in cache")
			}
		}
	}
	return rows, nil
}

func (s *Service) generationKey() string {
	return s.cache.GenerateKey("summary", "generation")
}

// summaryKey names the cache entry for limit under the current generation.
// It returns "" when caching is off or the generation cannot be read.
func (s *Service) summaryKey(ctx context.Context, limit int) string {
	if s.cache == nil {
		return ""
	}
	gen, err := s.cache.Get(ctx, s.generationKey())
	if err != nil {
		s.log.WithError(err).Warn("read summary cache generation")
		return ""
	}
	if gen == "" {
		gen = "0"
	}
	return s.cache.GenerateKey("summary", fmt.Sprintf("%s:%d", gen, limit))
}

func (s *Service) cachedSummary(ctx context.Context, key string) ([]model.SpenderRow, bool) {
	val, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).Warn("read summary cache")
		return nil, false
	}
	if val == "" {
		return nil, false
	}
	var rows []model.SpenderRow
	if err := json.Unmarshal([]byte(val), &rows); err != nil {
		s.log.WithError(err).Warn("decode cached summary")
		return nil, false
	}
	return rows, true
}

// invalidateSummary moves the cache to a new generation so that no summary
// computed before the current write is served again.
func (s *Service) invalidateSummary(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, s.generationKey()); err != nil {
		s.log.WithError(err).Warn("invalidate summary cache")
	}
}
