package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRetrievalFailed signals that both retrieval stages failed.
	ErrRetrievalFailed = errors.New("retrieval failed")
	// ErrEmptyQuery signals a blank search query.
	ErrEmptyQuery = errors.New("empty query")
	// ErrEmbeddingQuotaExceeded signals the token budget is spent.
	ErrEmbeddingQuotaExceeded = errors.New("embedding token quota exceeded")
)
