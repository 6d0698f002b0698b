// Package ingest writes documents into the store: clean the body, embed the
// title and text together, and persist the result. Retrieval reads what this
// package writes and nothing else writes to the store.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tsurugi-io/kensaku/internal/domain"
	"github.com/tsurugi-io/kensaku/internal/store"
)

// Service indexes documents.
type Service struct {
	store  store.DocumentStore
	embed  domain.Embedder
	logger *zap.Logger
	now    func() time.Time
}

// New creates the ingest service.
func New(s store.DocumentStore, embed domain.Embedder, logger *zap.Logger) *Service {
	return &Service{store: s, embed: embed, logger: logger, now: time.Now}
}

// Index cleans, embeds, and stores one document. The embedding input is
// "title body" so title terms pull semantically related queries toward the
// document even when the body never repeats them.
func (s *Service) Index(ctx context.Context, doc domain.Document) error {
	if doc.Title == "" {
		return fmt.Errorf("document %d has no title", doc.ID)
	}

	doc.ProcessedText = CleanMarkdown(doc.Body)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now()
	}
	doc.UpdatedAt = s.now()

	if len(doc.Embedding) == 0 {
		res, err := s.embed.Embed(ctx, doc.Title+" "+doc.ProcessedText)
		if err != nil {
			return fmt.Errorf("embed document %d: %w", doc.ID, err)
		}
		doc.Embedding = res.Embedding
	}

	if err := s.store.Put(ctx, doc); err != nil {
		return fmt.Errorf("store document %d: %w", doc.ID, err)
	}

	s.logger.Info("document indexed",
		zap.Int("document_id", doc.ID),
		zap.String("title", doc.Title),
		zap.Int("dimensions", len(doc.Embedding)),
	)
	return nil
}

// IndexBatch indexes documents in one batch-embedding round-trip, falling
// back to per-document embedding when the provider has no batch endpoint.
func (s *Service) IndexBatch(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, 0, len(docs))
	missing := make([]int, 0, len(docs)) // indexes of docs still needing a vector
	for i := range docs {
		docs[i].ProcessedText = CleanMarkdown(docs[i].Body)
		if len(docs[i].Embedding) == 0 {
			texts = append(texts, docs[i].Title+" "+docs[i].ProcessedText)
			missing = append(missing, i)
		}
	}

	if len(missing) > 0 {
		var batch domain.BatchEmbeddingResult
		var err error
		if be, ok := s.embed.(domain.BatchEmbedder); ok {
			batch, err = be.BatchEmbed(ctx, texts)
		} else {
			batch, err = domain.BatchFallback(ctx, s.embed, texts)
		}
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		for j, i := range missing {
			docs[i].Embedding = batch.Embeddings[j]
		}
	}

	for i := range docs {
		if err := s.Index(ctx, docs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a document from the store.
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	s.logger.Info("document deleted", zap.Int("document_id", id))
	return nil
}
