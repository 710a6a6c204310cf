package domain

import (
	"context"
	"fmt"
)

// InputMode distinguishes short search queries from full corpus documents.
// Providers tune representations per mode; the orchestrator also truncates
// query-mode text to a bounded prefix.
type InputMode string

const (
	// ModeQuery marks text coming from a live search query.
	ModeQuery InputMode = "query"
	// ModeDocument marks full-length corpus text.
	ModeDocument InputMode = "document"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call, order-preserving.
type BatchEmbedder interface {
	Embedder
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// BatchFallback calls Embed one text at a time. Safety net for providers
// without a native batch endpoint.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

// RankedDocument is one reranker hit: the index of the document in the
// submitted candidate list plus its relevance score.
type RankedDocument struct {
	Index int
	Score float64
}

// Reranker reorders an oversampled candidate set using a relevance model
// operating on full text rather than chunk embeddings.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RankedDocument, error)
}
