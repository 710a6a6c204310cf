// Package query holds the structured interpretation of free-text search queries.
package query

import "github.com/sidepot-cloud/handex/internal/domain/hand"

// GameInfo carries stakes and game-type details mentioned in a query.
type GameInfo struct {
	Stakes   string
	GameType string
	Straddle bool
	// Mandatory marks a mandatory straddle game.
	Mandatory bool
}

// PlayerInfo carries table-size and villain details mentioned in a query.
type PlayerInfo struct {
	// TableSize is the matched numeral as written, e.g. "6" for "6-handed".
	TableSize   string
	VillainType string
}

// Parsed is the structured interpretation of a free-text query. Every field
// is optional: a nil pointer or empty string means the query did not mention
// it, never "mentioned but blank". Parsers must leave unmatched fields unset.
type Parsed struct {
	Position  string
	HeroCards string
	// StackSize is the matched numeral as written, without unit normalization.
	StackSize     string
	Game          *GameInfo
	Players       *PlayerInfo
	ActionHistory map[hand.Street]string
}

// IsZero reports whether no sub-extractor matched anything.
func (p *Parsed) IsZero() bool {
	return p.Position == "" && p.HeroCards == "" && p.StackSize == "" &&
		p.Game == nil && p.Players == nil && len(p.ActionHistory) == 0
}
