package embbudget

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tsurugi-io/kensaku/internal/domain"
)

// maxAPIBatchSize caps the number of texts sent to the provider in one call.
const maxAPIBatchSize = 256

// GuardedEmbedder wraps an embedder with token budget enforcement. Large
// batches are split into provider-sized chunks with the budget re-checked
// between chunks, so a runaway batch cannot blow past the limit in one call.
type GuardedEmbedder struct {
	inner     domain.Embedder
	tracker   *Tracker
	remaining *prometheus.GaugeVec
	logger    *zap.Logger
}

// Guard wraps inner with budget enforcement. remaining may be nil.
func Guard(inner domain.Embedder, tracker *Tracker, remaining *prometheus.GaugeVec, logger *zap.Logger) *GuardedEmbedder {
	return &GuardedEmbedder{
		inner:     inner,
		tracker:   tracker,
		remaining: remaining,
		logger:    logger,
	}
}

// Embed checks the budget, delegates, and records consumed tokens.
func (g *GuardedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := g.tracker.Check(ctx); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("budget check: %w", err)
	}

	result, err := g.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	g.record(result.TotalTokens)
	return result, nil
}

// BatchEmbed checks the budget, then embeds texts in chunks of maxAPIBatchSize.
func (g *GuardedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	if err := g.tracker.Check(ctx); err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("budget check: %w", err)
	}

	var all [][]float32
	var totalPrompt, totalTokens int

	for offset := 0; offset < len(texts); offset += maxAPIBatchSize {
		if offset > 0 {
			if err := g.tracker.Check(ctx); err != nil {
				return domain.BatchEmbeddingResult{}, fmt.Errorf("budget check (chunk %d): %w", offset, err)
			}
		}

		end := offset + maxAPIBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		chunk, err := g.embedInner(ctx, texts[offset:end])
		if err != nil {
			g.logger.Error("Batch embedding failed",
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", end-offset),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, err
		}

		all = append(all, chunk.Embeddings...)
		totalPrompt += chunk.PromptTokens
		totalTokens += chunk.TotalTokens
		g.record(chunk.TotalTokens)
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   all,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (g *GuardedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := g.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (g *GuardedEmbedder) embedInner(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := g.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, g.inner, texts)
}

func (g *GuardedEmbedder) record(tokens int) {
	if tokens <= 0 {
		return
	}
	g.tracker.Record(int64(tokens))
	if g.remaining != nil {
		g.remaining.WithLabelValues(g.tracker.provider, "daily").Set(float64(g.tracker.RemainingDaily()))
		g.remaining.WithLabelValues(g.tracker.provider, "monthly").Set(float64(g.tracker.RemainingMonthly()))
	}
}
