// Package ingest computes and persists per-strategy embeddings for hand
// records entering the corpus.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sidepot-cloud/handex/internal/chunker"
	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
	"github.com/sidepot-cloud/handex/internal/repository/handstore"
)

// DefaultConcurrency bounds parallel hand ingestion in IngestAll.
const DefaultConcurrency = 4

// ChunkEmbedder turns a chunk sequence into an embedding map.
type ChunkEmbedder interface {
	MapChunks(ctx context.Context, chunks []chunk.Chunk, mode domain.InputMode) (chunk.EmbeddingMap, error)
}

// Service writes hands into the corpus. Every hand is embedded under all
// three chunking strategies at ingest time so searches never embed corpus
// documents on the hot path.
type Service struct {
	store       handstore.Store
	embed       ChunkEmbedder
	concurrency int
	logger      *zap.Logger
}

// New creates an ingest service.
func New(store handstore.Store, embed ChunkEmbedder, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		embed:       embed,
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
}

// WithConcurrency overrides the IngestAll parallelism. Non-positive values
// keep the current setting.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Ingest validates and stores one hand with embeddings for every strategy.
// The record is written first so a mid-ingest failure leaves a record whose
// embeddings can be recomputed, never embeddings without a record.
func (s *Service) Ingest(ctx context.Context, rec hand.Record) error {
	if err := s.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("store hand %s: %w", rec.ID, err)
	}

	for _, strategy := range chunk.Strategies() {
		chunks, err := chunker.HandChunks(strategy, &rec)
		if err != nil {
			return fmt.Errorf("chunk hand %s (%s): %w", rec.ID, strategy, err)
		}

		em, err := s.embed.MapChunks(ctx, chunks, domain.ModeDocument)
		if err != nil {
			return fmt.Errorf("embed hand %s (%s): %w", rec.ID, strategy, err)
		}

		if err := s.store.PutEmbeddings(ctx, rec.ID, strategy, em); err != nil {
			return fmt.Errorf("store embeddings %s (%s): %w", rec.ID, strategy, err)
		}
	}

	s.logger.Info("Hand ingested", zap.String("hand_id", rec.ID))
	return nil
}

// IngestAll ingests hands concurrently with bounded parallelism. The first
// failure cancels the remaining work and is returned.
func (s *Service) IngestAll(ctx context.Context, recs []hand.Record) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, rec := range recs {
		rec := rec
		g.Go(func() error {
			return s.Ingest(ctx, rec)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("ingest batch: %w", err)
	}

	s.logger.Info("Batch ingested", zap.Int("hands", len(recs)))
	return nil
}
