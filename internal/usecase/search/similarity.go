package search

import (
	"fmt"
	"math"

	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
)

// NormalizationPolicy selects the denominator of the weighted mean.
//
// Candidates with different missing-chunk sets are not comparable on one
// scale under "overlap" (a candidate matching only one chunk type can still
// score 1.0); "query" normalizes by the query's full chunk set instead, so
// missing candidate chunks pull the score down. Overlap is the default:
// partial matches are rewarded proportionally, which suits sparse hands.
type NormalizationPolicy string

const (
	// NormOverlap divides by the summed weights of chunk types present in
	// both maps.
	NormOverlap NormalizationPolicy = "overlap"
	// NormQuery divides by the summed weights of all the query's chunk types.
	NormQuery NormalizationPolicy = "query"
)

// ParseNormalization validates a normalization policy name.
func ParseNormalization(s string) (NormalizationPolicy, error) {
	switch NormalizationPolicy(s) {
	case NormOverlap, NormQuery:
		return NormalizationPolicy(s), nil
	}
	return "", fmt.Errorf("unknown normalization policy %q", s)
}

// Cosine computes the cosine similarity of two vectors.
// A zero-length vector has no direction and yields similarity 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrVectorDimMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Score combines per-chunk cosine similarities between a query's and a
// candidate's embedding maps into one scalar via a weighted arithmetic mean.
// Chunk types present in only one map are discarded: asymmetric chunk sets
// are expected (a query without river data has no river_decision chunk while
// a stored hand does). Iteration follows the strategy vocabulary order so
// scoring is deterministic. Zero overlap is an error, never a default score.
func Score(
	queryEmb, candidateEmb chunk.EmbeddingMap,
	weights chunk.Weights,
	strategy chunk.Strategy,
	policy NormalizationPolicy,
) (float64, error) {
	if err := weights.Validate(); err != nil {
		return 0, err
	}

	var weightedSum, overlapWeight, queryWeight float64
	overlap := 0

	for _, t := range chunk.Vocabulary(strategy) {
		qv, inQuery := queryEmb[t]
		if !inQuery {
			continue
		}
		queryWeight += weights.Of(t)

		cv, inCandidate := candidateEmb[t]
		if !inCandidate {
			continue
		}

		sim, err := Cosine(qv, cv)
		if err != nil {
			return 0, fmt.Errorf("chunk %q: %w", t, err)
		}

		w := weights.Of(t)
		weightedSum += sim * w
		overlapWeight += w
		overlap++
	}

	if overlap == 0 {
		return 0, domain.ErrNoChunkOverlap
	}

	denominator := overlapWeight
	if policy == NormQuery {
		denominator = queryWeight
	}
	if denominator == 0 {
		return 0, fmt.Errorf("all overlapping chunk weights are zero")
	}

	return weightedSum / denominator, nil
}
