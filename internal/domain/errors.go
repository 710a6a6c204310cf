package domain

import "errors"

var (
	// ErrHandNotFound signals a missing hand record.
	ErrHandNotFound = errors.New("hand not found")
	// ErrMalformedHand signals a hand record missing required fields.
	ErrMalformedHand = errors.New("malformed hand record")
	// ErrUnknownStrategy signals an unrecognized chunking strategy.
	ErrUnknownStrategy = errors.New("unknown chunking strategy")
	// ErrNoChunkOverlap signals that a query and a candidate share no chunk types.
	// A zero-overlap comparison is meaningless, not merely low-similarity.
	ErrNoChunkOverlap = errors.New("no overlapping chunk types")
	// ErrVectorDimMismatch signals a vector dimension mismatch between query and candidate.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrNegativeWeight signals a negative chunk-type weight in a search request.
	ErrNegativeWeight = errors.New("negative chunk weight")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRerankerUnavailable signals a reranking service failure.
	// Search degrades to stage-1 ordering instead of failing the request.
	ErrRerankerUnavailable = errors.New("reranker unavailable")
	// ErrExtractionFailed signals that the structured extraction service
	// returned an unusable record.
	ErrExtractionFailed = errors.New("extraction failed")
)
