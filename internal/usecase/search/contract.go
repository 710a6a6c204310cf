package search

import (
	"context"

	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
)

// HandReader is the corpus contract for search: hand identifiers, records,
// and precomputed per-strategy embedding maps.
type HandReader interface {
	ListIDs(ctx context.Context) ([]string, error)
	GetRecord(ctx context.Context, id string) (hand.Record, error)
	GetEmbeddings(ctx context.Context, id string, strategy chunk.Strategy) (chunk.EmbeddingMap, error)
}

// ChunkEmbedder turns a chunk sequence into an embedding map.
type ChunkEmbedder interface {
	MapChunks(ctx context.Context, chunks []chunk.Chunk, mode domain.InputMode) (chunk.EmbeddingMap, error)
}
