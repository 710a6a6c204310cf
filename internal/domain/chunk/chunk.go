// Package chunk defines the named text fragments a hand or query is
// decomposed into, and the per-strategy chunk-type vocabulary shared by the
// corpus side and the query side. The vocabulary is an explicit contract:
// a chunk with a type outside its strategy's vocabulary fails at construction
// time rather than silently zero-weighting at scoring time.
package chunk

import (
	"fmt"

	"github.com/sidepot-cloud/handex/internal/domain"
)

// Strategy is one of the alternative ways to decompose a hand or query.
type Strategy string

const (
	// StreetBased emits a context chunk plus one chunk per played street.
	StreetBased Strategy = "street_based"
	// ComponentBased emits exactly three chunks: context, actions, commentary.
	ComponentBased Strategy = "component_based"
	// Hybrid emits a situation chunk, an action sequence chunk, and one
	// decision chunk per street with commentary.
	Hybrid Strategy = "hybrid"
)

// Strategies returns all supported strategies.
func Strategies() []Strategy {
	return []Strategy{StreetBased, ComponentBased, Hybrid}
}

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StreetBased, ComponentBased, Hybrid:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, s)
}

// Type names a chunk within a strategy's vocabulary.
type Type string

// Chunk type constants across all strategies.
const (
	TypeContext        Type = "context"
	TypePreflop        Type = "preflop"
	TypeFlop           Type = "flop"
	TypeTurn           Type = "turn"
	TypeRiver          Type = "river"
	TypeActions        Type = "actions"
	TypeCommentary     Type = "commentary"
	TypeSituation      Type = "situation"
	TypeActionSequence Type = "action_sequence"
	TypePreflopDecis   Type = "preflop_decision"
	TypeFlopDecis      Type = "flop_decision"
	TypeTurnDecis      Type = "turn_decision"
	TypeRiverDecis     Type = "river_decision"
)

// vocabularies maps each strategy to its permitted chunk types, in the
// canonical order consumers iterate in. Order matters: the first entry is
// always the context/situation summary.
var vocabularies = map[Strategy][]Type{
	StreetBased:    {TypeContext, TypePreflop, TypeFlop, TypeTurn, TypeRiver},
	ComponentBased: {TypeContext, TypeActions, TypeCommentary},
	Hybrid: {
		TypeSituation, TypeActionSequence,
		TypePreflopDecis, TypeFlopDecis, TypeTurnDecis, TypeRiverDecis,
	},
}

// Vocabulary returns the strategy's chunk types in canonical order.
func Vocabulary(s Strategy) []Type {
	return vocabularies[s]
}

// InVocabulary reports whether t belongs to the strategy's vocabulary.
func InVocabulary(s Strategy, t Type) bool {
	for _, v := range vocabularies[s] {
		if v == t {
			return true
		}
	}
	return false
}

// Chunk is a named text fragment, the unit of embedding.
type Chunk struct {
	Type Type
	Text string
}

// New creates a chunk, enforcing the strategy's vocabulary.
func New(s Strategy, t Type, text string) (Chunk, error) {
	if !InVocabulary(s, t) {
		return Chunk{}, fmt.Errorf("chunk type %q not in %s vocabulary", t, s)
	}
	return Chunk{Type: t, Text: text}, nil
}

// EmbeddingMap maps chunk types to their embedding vectors. One map exists
// per (hand, strategy) in the corpus and per (query, strategy) per search.
// Vectors from different embedding models must never be compared; the design
// assumes one model per deployed corpus.
type EmbeddingMap map[Type][]float32

// Weights maps chunk types to non-negative aggregation weights.
// A missing entry defaults to 1.0.
type Weights map[Type]float64

// Of returns the weight for a chunk type, defaulting to 1.0.
func (w Weights) Of(t Type) float64 {
	if w == nil {
		return 1.0
	}
	if v, ok := w[t]; ok {
		return v
	}
	return 1.0
}

// Validate rejects negative weights.
func (w Weights) Validate() error {
	for t, v := range w {
		if v < 0 {
			return fmt.Errorf("%w: %q = %f", domain.ErrNegativeWeight, t, v)
		}
	}
	return nil
}
