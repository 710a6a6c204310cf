package hand

import (
	"fmt"
	"strings"

	"github.com/sidepot-cloud/handex/internal/domain"
)

// Street is one of the four betting rounds of a hand.
type Street string

// Betting rounds in play order.
const (
	Preflop Street = "preflop"
	Flop    Street = "flop"
	Turn    Street = "turn"
	River   Street = "river"
)

// Streets returns the betting rounds in play order.
func Streets() []Street {
	return []Street{Preflop, Flop, Turn, River}
}

// Record is one played poker hand as produced by the structured extraction
// service. Immutable once extracted: later-street fields are present only if
// that street occurred (flop absent implies turn and river absent).
type Record struct {
	ID           string `json:"id"`
	GameLocation string `json:"game_location"`
	Stakes       string `json:"stakes"`
	// CallerCards holds the two hole cards, lower rank first,
	// e.g. "Ace of Clubs and Ace of Spades".
	CallerCards string `json:"caller_cards"`

	PreflopAction     string `json:"preflop_action"`
	PreflopCommentary string `json:"preflop_commentary"`

	FlopCards      string `json:"flop_cards,omitempty"`
	FlopAction     string `json:"flop_action,omitempty"`
	FlopCommentary string `json:"flop_commentary,omitempty"`

	TurnCard       string `json:"turn_card,omitempty"`
	TurnAction     string `json:"turn_action,omitempty"`
	TurnCommentary string `json:"turn_commentary,omitempty"`

	RiverCard       string `json:"river_card,omitempty"`
	RiverAction     string `json:"river_action,omitempty"`
	RiverCommentary string `json:"river_commentary,omitempty"`
}

// Action returns the action text for the given street.
func (r *Record) Action(s Street) string {
	switch s {
	case Preflop:
		return r.PreflopAction
	case Flop:
		return r.FlopAction
	case Turn:
		return r.TurnAction
	case River:
		return r.RiverAction
	}
	return ""
}

// Commentary returns the commentary text for the given street.
func (r *Record) Commentary(s Street) string {
	switch s {
	case Preflop:
		return r.PreflopCommentary
	case Flop:
		return r.FlopCommentary
	case Turn:
		return r.TurnCommentary
	case River:
		return r.RiverCommentary
	}
	return ""
}

// Cards returns the board card(s) revealed on the given street.
// Preflop has no board cards.
func (r *Record) Cards(s Street) string {
	switch s {
	case Flop:
		return r.FlopCards
	case Turn:
		return r.TurnCard
	case River:
		return r.RiverCard
	}
	return ""
}

// hasStreet reports whether any field of the street is populated.
func (r *Record) hasStreet(s Street) bool {
	return r.Action(s) != "" || r.Commentary(s) != "" || r.Cards(s) != ""
}

// Validate checks the record invariants: preflop fields are always present,
// and a later street may only be populated when every earlier street is.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", domain.ErrMalformedHand)
	}
	if r.GameLocation == "" || r.Stakes == "" || r.CallerCards == "" {
		return fmt.Errorf("%w: %s: missing game context", domain.ErrMalformedHand, r.ID)
	}
	if r.PreflopAction == "" && r.PreflopCommentary == "" {
		return fmt.Errorf("%w: %s: missing preflop", domain.ErrMalformedHand, r.ID)
	}
	if r.hasStreet(Turn) && !r.hasStreet(Flop) {
		return fmt.Errorf("%w: %s: turn without flop", domain.ErrMalformedHand, r.ID)
	}
	if r.hasStreet(River) && !r.hasStreet(Turn) {
		return fmt.Errorf("%w: %s: river without turn", domain.ErrMalformedHand, r.ID)
	}
	return nil
}

// FlatText flattens the record into one plain-text block for the reranker:
// game context first, then each played street's action and commentary in
// order. Streets that did not occur are omitted. This is deliberately a
// simpler serialization than the chunked representation used for embedding.
func (r *Record) FlatText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game: %s, Stakes: %s\n", r.GameLocation, r.Stakes)
	fmt.Fprintf(&b, "Hero Cards: %s\n", r.CallerCards)

	for _, s := range Streets() {
		if !r.hasStreet(s) {
			continue
		}
		label := strings.ToUpper(string(s))
		if cards := r.Cards(s); cards != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, cards)
		} else {
			fmt.Fprintf(&b, "%s:\n", label)
		}
		if a := r.Action(s); a != "" {
			fmt.Fprintf(&b, "Action: %s\n", a)
		}
		if c := r.Commentary(s); c != "" {
			fmt.Fprintf(&b, "Commentary: %s\n", c)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
