// Package chunker converts hand records and parsed queries into ordered
// chunk sequences under the three interchangeable strategies. Both sides of
// a strategy emit the same chunk-type vocabulary so that query chunks can be
// compared against corpus chunks by type.
package chunker

import (
	"fmt"
	"strings"

	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
	"github.com/sidepot-cloud/handex/internal/domain/query"
)

// streetTypes maps streets to their street_based chunk types.
var streetTypes = map[hand.Street]chunk.Type{
	hand.Preflop: chunk.TypePreflop,
	hand.Flop:    chunk.TypeFlop,
	hand.Turn:    chunk.TypeTurn,
	hand.River:   chunk.TypeRiver,
}

// decisionTypes maps streets to their hybrid decision chunk types.
var decisionTypes = map[hand.Street]chunk.Type{
	hand.Preflop: chunk.TypePreflopDecis,
	hand.Flop:    chunk.TypeFlopDecis,
	hand.Turn:    chunk.TypeTurnDecis,
	hand.River:   chunk.TypeRiverDecis,
}

// HandChunks decomposes a hand record under the given strategy.
// Deterministic and pure; the first chunk is always the context/situation
// summary. The record is validated first so a malformed hand fails here,
// not midway through corpus scoring.
func HandChunks(s chunk.Strategy, rec *hand.Record) ([]chunk.Chunk, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	switch s {
	case chunk.StreetBased:
		return handStreetBased(rec), nil
	case chunk.ComponentBased:
		return handComponentBased(rec), nil
	case chunk.Hybrid:
		return handHybrid(rec), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, s)
}

// handStreetBased emits a context chunk plus one chunk per street that has
// non-empty action or commentary. Streets with neither are omitted.
func handStreetBased(rec *hand.Record) []chunk.Chunk {
	context := fmt.Sprintf("Game: %s, Stakes: %s, Hero Cards: %s",
		rec.GameLocation, rec.Stakes, rec.CallerCards)

	chunks := []chunk.Chunk{{Type: chunk.TypeContext, Text: context}}

	for _, street := range hand.Streets() {
		action := rec.Action(street)
		commentary := rec.Commentary(street)
		if action == "" && commentary == "" {
			continue
		}
		chunks = append(chunks, chunk.Chunk{
			Type: streetTypes[street],
			Text: fmt.Sprintf("%s: Action: %s Commentary: %s",
				strings.ToUpper(string(street)), action, commentary),
		})
	}

	return chunks
}

// handComponentBased always emits exactly three chunks regardless of data
// sparsity: empty streets contribute empty labeled segments.
func handComponentBased(rec *hand.Record) []chunk.Chunk {
	context := fmt.Sprintf("Game: %s, Stakes: %s", rec.GameLocation, rec.Stakes)

	actions := make([]string, 0, 4)
	commentary := make([]string, 0, 4)
	for _, street := range hand.Streets() {
		actions = append(actions, fmt.Sprintf("%s: %s", street, rec.Action(street)))
		commentary = append(commentary, fmt.Sprintf("%s: %s", street, rec.Commentary(street)))
	}

	return []chunk.Chunk{
		{Type: chunk.TypeContext, Text: context},
		{Type: chunk.TypeActions, Text: strings.Join(actions, " ")},
		{Type: chunk.TypeCommentary, Text: strings.Join(commentary, " ")},
	}
}

// handHybrid emits a situation chunk, an action sequence chunk with empty
// streets kept as empty segments to preserve street alignment, and one
// decision chunk per street that has commentary. Action-only streets produce
// no decision chunk.
func handHybrid(rec *hand.Record) []chunk.Chunk {
	situation := fmt.Sprintf("Game: %s, Stakes: %s, Hero Cards: %s",
		rec.GameLocation, rec.Stakes, rec.CallerCards)

	sequence := make([]string, 0, 4)
	for _, street := range hand.Streets() {
		sequence = append(sequence, fmt.Sprintf("%s: %s", street, rec.Action(street)))
	}

	chunks := []chunk.Chunk{
		{Type: chunk.TypeSituation, Text: situation},
		{Type: chunk.TypeActionSequence, Text: strings.Join(sequence, " -> ")},
	}

	for _, street := range hand.Streets() {
		commentary := rec.Commentary(street)
		if commentary == "" {
			continue
		}
		chunks = append(chunks, chunk.Chunk{
			Type: decisionTypes[street],
			Text: fmt.Sprintf("%s decision point: %s", street, commentary),
		})
	}

	return chunks
}

// QueryChunks decomposes a parsed query under the given strategy, emitting
// the same chunk-type vocabulary as HandChunks does for that strategy.
// Chunks whose source fields are unset are omitted; the similarity stage
// handles the resulting asymmetric chunk sets.
func QueryChunks(s chunk.Strategy, p *query.Parsed) ([]chunk.Chunk, error) {
	switch s {
	case chunk.StreetBased:
		return queryStreetBased(p), nil
	case chunk.ComponentBased:
		return queryComponentBased(p), nil
	case chunk.Hybrid:
		return queryHybrid(p), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, s)
}

func queryStreetBased(p *query.Parsed) []chunk.Chunk {
	chunks := []chunk.Chunk{{Type: chunk.TypeContext, Text: querySituation(p)}}

	for _, street := range hand.Streets() {
		action, ok := p.ActionHistory[street]
		if !ok || action == "" {
			continue
		}
		chunks = append(chunks, chunk.Chunk{
			Type: streetTypes[street],
			Text: fmt.Sprintf("%s: Action: %s Commentary: ",
				strings.ToUpper(string(street)), action),
		})
	}

	return chunks
}

func queryComponentBased(p *query.Parsed) []chunk.Chunk {
	chunks := []chunk.Chunk{{Type: chunk.TypeContext, Text: querySituation(p)}}

	if len(p.ActionHistory) > 0 {
		actions := make([]string, 0, 4)
		for _, street := range hand.Streets() {
			actions = append(actions, fmt.Sprintf("%s: %s", street, p.ActionHistory[street]))
		}
		chunks = append(chunks, chunk.Chunk{
			Type: chunk.TypeActions,
			Text: strings.Join(actions, " "),
		})
	}

	// Queries carry no commentary, so the commentary chunk is always omitted.
	return chunks
}

func queryHybrid(p *query.Parsed) []chunk.Chunk {
	chunks := []chunk.Chunk{{Type: chunk.TypeSituation, Text: querySituation(p)}}

	if len(p.ActionHistory) > 0 {
		sequence := make([]string, 0, 4)
		for _, street := range hand.Streets() {
			sequence = append(sequence, fmt.Sprintf("%s: %s", street, p.ActionHistory[street]))
		}
		chunks = append(chunks, chunk.Chunk{
			Type: chunk.TypeActionSequence,
			Text: strings.Join(sequence, " -> "),
		})
	}

	// Decision chunks only for streets the query actually describes an
	// action on; position and stack framing alone name no decision point.
	for _, street := range hand.Streets() {
		if action, ok := p.ActionHistory[street]; !ok || action == "" {
			continue
		}
		chunks = append(chunks, chunk.Chunk{
			Type: decisionTypes[street],
			Text: fmt.Sprintf("%s decision point: %s", street, queryDecisionContext(p, street)),
		})
	}

	return chunks
}

// querySituation synthesizes the context/situation text from whatever parsed
// fields are present, mirroring the shape of the corpus-side context chunks.
func querySituation(p *query.Parsed) string {
	var components []string

	if p.Game != nil {
		var game []string
		if p.Game.Stakes != "" {
			game = append(game, "Stakes: "+p.Game.Stakes)
		}
		if p.Game.GameType != "" {
			game = append(game, "Game Type: "+p.Game.GameType)
		}
		if p.Game.Straddle {
			game = append(game, "Straddle: Yes")
		}
		if len(game) > 0 {
			components = append(components, strings.Join(game, ", "))
		}
	}

	var position []string
	if p.Position != "" {
		position = append(position, "Position: "+p.Position)
	}
	if p.StackSize != "" {
		position = append(position, "Stack Size: "+p.StackSize)
	}
	if len(position) > 0 {
		components = append(components, strings.Join(position, ", "))
	}

	if p.Players != nil {
		var players []string
		if p.Players.TableSize != "" {
			players = append(players, p.Players.TableSize+"-handed")
		}
		if p.Players.VillainType != "" {
			players = append(players, "Villain: "+p.Players.VillainType)
		}
		if len(players) > 0 {
			components = append(components, strings.Join(players, ", "))
		}
	}

	if p.HeroCards != "" {
		components = append(components, "Hero Cards: "+p.HeroCards)
	}

	return strings.Join(components, " | ")
}

// queryDecisionContext assembles decision-point context for one street from
// the parsed query: the street's action (preflop only in practice) plus
// position and stack size framing.
func queryDecisionContext(p *query.Parsed, street hand.Street) string {
	var parts []string

	if action, ok := p.ActionHistory[street]; ok && action != "" {
		parts = append(parts, action)
	}
	if p.Position != "" {
		parts = append(parts, "from "+p.Position)
	}
	if p.StackSize != "" {
		parts = append(parts, "with "+p.StackSize+" stack")
	}

	return strings.Join(parts, " ")
}
