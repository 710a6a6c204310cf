// Package embedding batches chunk text to the embedding provider and owns
// the budget/observability decorators around it.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
)

// Defaults for the orchestrator. Queries carry single-digit chunk counts, so
// their batch stays small; document batches serve bulk corpus ingestion.
const (
	DefaultQueryBatchSize    = 8
	DefaultDocumentBatchSize = 128
	DefaultQueryPrefixRunes  = 512
)

// Orchestrator maps chunk sequences to embedding maps through a batch
// embedder, preserving the 1:1 chunk-type-to-vector correspondence even when
// batches span multiple network calls. Failure of any batch call aborts the
// whole request; retries are caller policy, not built in here.
type Orchestrator struct {
	embedder    domain.BatchEmbedder
	queryBatch  int
	docBatch    int
	queryPrefix int
	logger      *zap.Logger
}

// NewOrchestrator creates an orchestrator with default batch sizes.
func NewOrchestrator(embedder domain.BatchEmbedder, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		embedder:    embedder,
		queryBatch:  DefaultQueryBatchSize,
		docBatch:    DefaultDocumentBatchSize,
		queryPrefix: DefaultQueryPrefixRunes,
		logger:      logger,
	}
}

// WithBatchSizes overrides the per-mode batch sizes. Non-positive values
// keep the current setting.
func (o *Orchestrator) WithBatchSizes(query, document int) *Orchestrator {
	if query > 0 {
		o.queryBatch = query
	}
	if document > 0 {
		o.docBatch = document
	}
	return o
}

// WithQueryPrefix overrides the query-mode truncation length in runes.
func (o *Orchestrator) WithQueryPrefix(runes int) *Orchestrator {
	if runes > 0 {
		o.queryPrefix = runes
	}
	return o
}

// MapChunks embeds every chunk and returns the chunk-type-to-vector map.
// mode=query truncates each chunk text to a bounded prefix before sending;
// mode=document sends full text. No partial map is ever returned.
func (o *Orchestrator) MapChunks(
	ctx context.Context, chunks []chunk.Chunk, mode domain.InputMode,
) (chunk.EmbeddingMap, error) {
	if len(chunks) == 0 {
		return chunk.EmbeddingMap{}, nil
	}

	batchSize := o.docBatch
	if mode == domain.ModeQuery {
		batchSize = o.queryBatch
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		text := c.Text
		if mode == domain.ModeQuery {
			text = truncateRunes(text, o.queryPrefix)
		}
		texts[i] = text
	}

	out := make(chunk.EmbeddingMap, len(chunks))
	for offset := 0; offset < len(texts); offset += batchSize {
		end := offset + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		res, err := o.embedder.BatchEmbed(ctx, texts[offset:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", offset, err)
		}
		if len(res.Embeddings) != end-offset {
			return nil, fmt.Errorf("%w: batch at %d returned %d vectors for %d texts",
				domain.ErrEmbeddingProviderError, offset, len(res.Embeddings), end-offset)
		}

		for i, vec := range res.Embeddings {
			out[chunks[offset+i].Type] = vec
		}
	}

	o.logger.Debug("Chunks embedded",
		zap.String("mode", string(mode)),
		zap.Int("chunks", len(chunks)),
	)

	return out, nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
