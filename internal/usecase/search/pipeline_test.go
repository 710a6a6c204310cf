package search

import (
	"context"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
	"github.com/sidepot-cloud/handex/internal/repository/handstore"
	"github.com/sidepot-cloud/handex/internal/usecase/ingest"
)

// textEmbedder derives each vector from the chunk text itself by bucketing
// rune values, so the same text always embeds to the same vector and
// different texts rarely collide. No external provider involved.
type textEmbedder struct{}

func (textEmbedder) MapChunks(
	_ context.Context, chunks []chunk.Chunk, _ domain.InputMode,
) (chunk.EmbeddingMap, error) {
	em := make(chunk.EmbeddingMap, len(chunks))
	for _, c := range chunks {
		vec := make([]float32, 8)
		for _, r := range c.Text {
			vec[int(r)%8]++
		}
		em[c.Type] = vec
	}
	return em, nil
}

// seedCorpus ingests three hands of differing street depth through the real
// ingest path (validation, chunking, embedding, persistence) and returns a
// search service over the same store.
func seedCorpus(t *testing.T) *Service {
	t.Helper()

	hands := []hand.Record{
		{
			ID:                "full-hand",
			GameLocation:      "bellagio",
			Stakes:            "$5/$10",
			CallerCards:       "Ace of Clubs and Ace of Spades",
			PreflopAction:     "Hero opens to $30 from the button, big blind calls",
			PreflopCommentary: "Standard open with the best hand",
			FlopCards:         "King of Hearts, Seven of Clubs, Two of Diamonds",
			FlopAction:        "Hero bets $40, villain calls",
			FlopCommentary:    "Dry board, small bet gets called by worse",
			TurnCard:          "Nine of Spades",
			TurnAction:        "Hero bets $120, villain calls",
			RiverCard:         "Three of Hearts",
			RiverAction:       "Hero bets $300, villain folds",
			RiverCommentary:   "River blank, betting for thin value",
		},
		{
			ID:                "flop-hand",
			GameLocation:      "aria",
			Stakes:            "$2/$5",
			CallerCards:       "King of Diamonds and King of Hearts",
			PreflopAction:     "Hero opens to $20, cutoff three-bets, hero calls",
			PreflopCommentary: "Flatting the three-bet in position",
			FlopCards:         "Queen of Spades, Eight of Hearts, Four of Clubs",
			FlopAction:        "Cutoff bets $35, hero raises to $110, cutoff folds",
		},
		{
			ID:                "preflop-hand",
			GameLocation:      "home game",
			Stakes:            "$1/$2",
			CallerCards:       "Seven of Clubs and Seven of Spades",
			PreflopAction:     "Hero opens to $8, everyone folds",
			PreflopCommentary: "Steal from the button goes through",
		},
	}

	store := handstore.NewMemory()
	ing := ingest.New(store, textEmbedder{}, zap.NewNop())
	for _, rec := range hands {
		if err := ing.Ingest(context.Background(), rec); err != nil {
			t.Fatalf("ingest %s: %v", rec.ID, err)
		}
	}
	return New(store, textEmbedder{}, zap.NewNop())
}

func TestSearch_EndToEndAcrossStreetDepths(t *testing.T) {
	svc := seedCorpus(t)

	results, err := svc.Search(context.Background(),
		"I'm in the big blind with two black aces and open to $20 with a 150bb stack",
		Options{Strategy: chunk.Hybrid, NResults: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	known := map[string]bool{"full-hand": true, "flop-hand": true, "preflop-hand": true}
	seen := map[string]bool{}
	for i, r := range results {
		if !known[r.HandID] {
			t.Errorf("result %d has unknown hand id %q", i, r.HandID)
		}
		if seen[r.HandID] {
			t.Errorf("hand %q returned twice", r.HandID)
		}
		seen[r.HandID] = true
		if i > 0 && results[i].Score > results[i-1].Score {
			t.Errorf("scores increase at %d: %v then %v", i, results[i-1].Score, results[i].Score)
		}
	}
}

func TestSearch_EndToEndIdempotent(t *testing.T) {
	svc := seedCorpus(t)
	query := "button opens to $15 with two red kings against a loose reg"

	for _, strategy := range chunk.Strategies() {
		t.Run(string(strategy), func(t *testing.T) {
			opts := Options{Strategy: strategy, NResults: 2}

			first, err := svc.Search(context.Background(), query, opts)
			if err != nil {
				t.Fatalf("first search: %v", err)
			}
			second, err := svc.Search(context.Background(), query, opts)
			if err != nil {
				t.Fatalf("second search: %v", err)
			}

			if !reflect.DeepEqual(first, second) {
				t.Errorf("repeated search diverged:\nfirst  = %v\nsecond = %v", first, second)
			}
		})
	}
}
