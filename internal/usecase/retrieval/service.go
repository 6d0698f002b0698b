// Package retrieval implements the hybrid retrieval and ranking engine: a
// heuristic lexical stage and a pure vector stage run concurrently, then
// their result lists are fused into a single deduplicated ranking.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tsurugi-io/kensaku/internal/domain"
	"github.com/tsurugi-io/kensaku/internal/metrics"
	"github.com/tsurugi-io/kensaku/internal/query"
)

// Options tune a single Retrieve call. Zero values fall back to Params.
type Options struct {
	Limit        int
	SparseWeight *float64
	DenseWeight  *float64
	Debug        bool
}

// Service orchestrates one hybrid retrieval call: query processing, the two
// concurrent stages, and fusion. It holds no mutable state; concurrent calls
// are independent.
type Service struct {
	processor *query.Processor
	lexical   *LexicalSearcher
	vector    *VectorSearcher
	params    Params
	logger    *zap.Logger
}

// New creates the orchestrator.
func New(
	processor *query.Processor,
	lexical *LexicalSearcher,
	vector *VectorSearcher,
	params Params,
	logger *zap.Logger,
) *Service {
	return &Service{
		processor: processor,
		lexical:   lexical,
		vector:    vector,
		params:    params,
		logger:    logger,
	}
}

// Retrieve runs both stages concurrently and fuses their results.
//
// Either stage may fail or be cancelled on its own: its list degrades to
// empty and the other stage still counts. Only when both stages fail does
// the call return an error, wrapping domain.ErrRetrievalFailed.
func (s *Service) Retrieve(ctx context.Context, rawQuery string, opts Options) ([]domain.HybridResult, error) {
	if strings.TrimSpace(rawQuery) == "" {
		return nil, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = s.params.DefaultLimit
	}

	// The lexical stage works best on reduced keywords; the vector stage
	// benefits from the full natural-language phrasing.
	processed := s.processor.Process(rawQuery)
	lexicalQuery := processed.RecommendedQuery

	s.logger.Debug("query processed",
		zap.String("original", rawQuery),
		zap.String("lexical_query", lexicalQuery),
		zap.Strings("keywords", processed.Keywords),
		zap.Strings("technical_terms", processed.TechnicalTerms),
	)

	// Each stage fetches twice the requested limit so fusion has overlap to
	// work with.
	fanout := limit * 2

	var (
		lexResults, vecResults []domain.ScoredResult
		lexErr, vecErr         error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		lexResults, lexErr = s.lexical.Search(gctx, lexicalQuery, fanout, opts.Debug)
		metrics.StageDuration.WithLabelValues("lexical").Observe(time.Since(start).Seconds())
		if lexErr != nil {
			metrics.StageFailuresTotal.WithLabelValues("lexical").Inc()
			s.logger.Warn("lexical stage failed", zap.Error(lexErr))
			lexResults = nil
			return nil // recovered locally, the vector stage still counts
		}
		metrics.StageResults.WithLabelValues("lexical").Observe(float64(len(lexResults)))
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		vecResults, vecErr = s.vector.Search(gctx, rawQuery, fanout)
		metrics.StageDuration.WithLabelValues("vector").Observe(time.Since(start).Seconds())
		if vecErr != nil {
			metrics.StageFailuresTotal.WithLabelValues("vector").Inc()
			s.logger.Warn("vector stage failed", zap.Error(vecErr))
			vecResults = nil
			return nil
		}
		metrics.StageResults.WithLabelValues("vector").Observe(float64(len(vecResults)))
		return nil
	})
	_ = g.Wait() // closures always return nil

	if lexErr != nil && vecErr != nil {
		return nil, fmt.Errorf("lexical: %v; vector: %v: %w", lexErr, vecErr, domain.ErrRetrievalFailed)
	}

	params := s.params
	if opts.SparseWeight != nil {
		params.SparseWeight = *opts.SparseWeight
	}
	if opts.DenseWeight != nil {
		params.DenseWeight = *opts.DenseWeight
	}

	fused := Fuse(lexResults, vecResults, limit, params)
	for _, r := range fused {
		metrics.FusedResultsTotal.WithLabelValues(string(r.Contribution)).Inc()
	}
	if len(fused) == 0 {
		metrics.EmptyResultsTotal.Inc()
	}

	s.logger.Info("hybrid retrieval completed",
		zap.String("query", rawQuery),
		zap.Int("lexical_results", len(lexResults)),
		zap.Int("vector_results", len(vecResults)),
		zap.Int("fused_results", len(fused)),
	)
	return fused, nil
}

// Process exposes query analysis for debugging endpoints.
func (s *Service) Process(rawQuery string) query.Result {
	return s.processor.Process(rawQuery)
}
