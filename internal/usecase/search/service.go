// Package search implements the two-stage hand retrieval pipeline:
// parse, chunk, embed, score the full corpus, then optionally rerank an
// oversampled candidate set through an external relevance model.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sidepot-cloud/handex/internal/chunker"
	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
	"github.com/sidepot-cloud/handex/internal/metrics"
	"github.com/sidepot-cloud/handex/internal/queryparse"
)

// DefaultResults is the result count when the caller does not specify one.
const DefaultResults = 5

// DefaultOversample is the stage-1 candidate multiplier fed to the reranker,
// giving it room to promote lower-ranked-but-more-relevant candidates.
const DefaultOversample = 2

// Options tunes one search call. Zero values fall back to defaults.
type Options struct {
	Strategy    chunk.Strategy
	NResults    int
	Weights     chunk.Weights
	UseReranker bool
}

// Result is one ranked hit: the hand identifier and either the aggregate
// similarity (stage 1) or the reranker's relevance score (stage 2).
type Result struct {
	HandID string  `json:"hand_id"`
	Score  float64 `json:"score"`
}

// Service executes searches over the hand corpus. Each call is independent
// and idempotent given an unchanged corpus; no state persists across requests.
type Service struct {
	hands       HandReader
	embed       ChunkEmbedder
	reranker    domain.Reranker
	norm        NormalizationPolicy
	defStrategy chunk.Strategy
	oversample  int
	logger      *zap.Logger
}

// New creates a search service. The reranker is optional; pass nil to run
// stage 1 only.
func New(hands HandReader, embed ChunkEmbedder, logger *zap.Logger) *Service {
	return &Service{
		hands:       hands,
		embed:       embed,
		norm:        NormOverlap,
		defStrategy: chunk.Hybrid,
		oversample:  DefaultOversample,
		logger:      logger,
	}
}

// WithDefaultStrategy overrides the strategy used when a request names none.
func (s *Service) WithDefaultStrategy(strategy chunk.Strategy) *Service {
	if strategy != "" {
		s.defStrategy = strategy
	}
	return s
}

// WithReranker attaches the optional second-stage reranker.
func (s *Service) WithReranker(r domain.Reranker) *Service {
	s.reranker = r
	return s
}

// WithNormalization overrides the weighted-mean normalization policy.
func (s *Service) WithNormalization(p NormalizationPolicy) *Service {
	s.norm = p
	return s
}

// WithOversample overrides the stage-1 candidate multiplier. Non-positive
// values keep the current setting.
func (s *Service) WithOversample(n int) *Service {
	if n > 0 {
		s.oversample = n
	}
	return s
}

// Search runs the full pipeline for one query text and returns the ranked
// hand list, sorted by descending score with stable tie order. An empty
// result means "no similar hands"; failures of the embedding provider abort
// the call, while per-candidate problems only drop that candidate.
func (s *Service) Search(ctx context.Context, queryText string, opts Options) ([]Result, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = s.defStrategy
	}
	n := opts.NResults
	if n <= 0 {
		n = DefaultResults
	}
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}

	parsed := queryparse.Parse(queryText)
	chunks, err := chunker.QueryChunks(strategy, &parsed)
	if err != nil {
		return nil, err
	}

	queryEmb, err := s.embed.MapChunks(ctx, chunks, domain.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ranked, err := s.scoreCorpus(ctx, queryEmb, strategy, opts.Weights)
	if err != nil {
		return nil, err
	}

	if !opts.UseReranker || s.reranker == nil {
		return truncate(ranked, n), nil
	}

	return s.rerank(ctx, queryText, ranked, n), nil
}

// scoreCorpus scores every stored hand against the query embeddings.
// Candidates without embeddings for the strategy, or sharing no chunk types
// with the query, are skipped with a warning: one bad candidate must not
// fail an entire search.
func (s *Service) scoreCorpus(
	ctx context.Context, queryEmb chunk.EmbeddingMap,
	strategy chunk.Strategy, weights chunk.Weights,
) ([]Result, error) {
	ids, err := s.hands.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list hands: %w", err)
	}

	ranked := make([]Result, 0, len(ids))
	for _, id := range ids {
		candidateEmb, err := s.hands.GetEmbeddings(ctx, id, strategy)
		if err != nil {
			s.logger.Warn("Skipping candidate without embeddings",
				zap.String("hand_id", id),
				zap.String("strategy", string(strategy)),
				zap.Error(err),
			)
			continue
		}

		score, err := Score(queryEmb, candidateEmb, weights, strategy, s.norm)
		if err != nil {
			if errors.Is(err, domain.ErrNoChunkOverlap) {
				s.logger.Warn("Skipping candidate with no chunk overlap",
					zap.String("hand_id", id),
					zap.String("strategy", string(strategy)),
				)
				continue
			}
			return nil, fmt.Errorf("score hand %s: %w", id, err)
		}

		ranked = append(ranked, Result{HandID: id, Score: score})
	}

	// Stable: ties keep corpus iteration order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked, nil
}

// rerank feeds the top oversample*n stage-1 candidates through the external
// reranking service and remaps its indices back to hand identifiers. Any
// reranker failure degrades to the stage-1 ordering: reranking is an
// enhancement, not a correctness requirement.
func (s *Service) rerank(
	ctx context.Context, queryText string, ranked []Result, n int,
) []Result {
	pool := truncate(ranked, s.oversample*n)

	ids := make([]string, 0, len(pool))
	docs := make([]string, 0, len(pool))
	for _, r := range pool {
		rec, err := s.hands.GetRecord(ctx, r.HandID)
		if err != nil {
			s.logger.Warn("Skipping rerank candidate without record",
				zap.String("hand_id", r.HandID), zap.Error(err))
			continue
		}
		ids = append(ids, r.HandID)
		docs = append(docs, rec.FlatText())
	}

	if len(docs) == 0 {
		return truncate(ranked, n)
	}

	hits, err := s.reranker.Rerank(ctx, queryText, docs, n)
	if err != nil {
		s.logger.Warn("Reranker unavailable, falling back to stage-1 ranking",
			zap.Error(err))
		metrics.RerankFallbacksTotal.Inc()
		return truncate(ranked, n)
	}

	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		if h.Index < 0 || h.Index >= len(ids) {
			s.logger.Warn("Reranker returned out-of-range index",
				zap.Int("index", h.Index), zap.Int("documents", len(ids)))
			continue
		}
		out = append(out, Result{HandID: ids[h.Index], Score: h.Score})
	}
	if len(out) == 0 {
		return truncate(ranked, n)
	}
	return truncate(out, n)
}

// Hydrate joins ranked results back to their hand records for presentation.
// Hands that disappeared between scoring and hydration are skipped.
func (s *Service) Hydrate(ctx context.Context, results []Result) []HandResult {
	out := make([]HandResult, 0, len(results))
	for _, r := range results {
		rec, err := s.hands.GetRecord(ctx, r.HandID)
		if err != nil {
			s.logger.Warn("Ranked hand has no record",
				zap.String("hand_id", r.HandID), zap.Error(err))
			continue
		}
		out = append(out, HandResult{Result: r, Hand: rec})
	}
	return out
}

// HandResult is a ranked hit joined with its full record.
type HandResult struct {
	Result
	Hand hand.Record `json:"hand"`
}

func truncate(results []Result, n int) []Result {
	if len(results) > n {
		return results[:n]
	}
	return results
}
