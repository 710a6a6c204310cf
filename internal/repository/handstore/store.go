// Package handstore persists hand records and their precomputed per-strategy
// embedding maps.
package handstore

import (
	"context"

	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
)

// Store is the persistence contract for the hand corpus. Implementations
// must return domain.ErrHandNotFound for unknown IDs.
type Store interface {
	Put(ctx context.Context, rec hand.Record) error
	PutEmbeddings(ctx context.Context, id string, strategy chunk.Strategy, em chunk.EmbeddingMap) error
	GetRecord(ctx context.Context, id string) (hand.Record, error)
	GetEmbeddings(ctx context.Context, id string, strategy chunk.Strategy) (chunk.EmbeddingMap, error)
	ListIDs(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}
