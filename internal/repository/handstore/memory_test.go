package handstore

import (
	"context"
	"errors"
	"testing"

	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/domain/chunk"
	"github.com/sidepot-cloud/handex/internal/domain/hand"
)

func validRecord(id string) hand.Record {
	return hand.Record{
		ID:            id,
		GameLocation:  "Bellagio",
		Stakes:        "$5/$10",
		CallerCards:   "Ace of Clubs and Ace of Spades",
		PreflopAction: "Hero raises to $30, villain calls",
	}
}

func TestMemory_PutGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec := validRecord("h1")
	if err := m.Put(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.GetRecord(ctx, "h1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Stakes != "$5/$10" {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestMemory_PutRejectsMalformed(t *testing.T) {
	m := NewMemory()

	rec := validRecord("h1")
	rec.TurnCard = "King of Hearts" // turn without flop

	err := m.Put(context.Background(), rec)
	if !errors.Is(err, domain.ErrMalformedHand) {
		t.Fatalf("expected ErrMalformedHand, got %v", err)
	}
}

func TestMemory_GetRecordNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.GetRecord(context.Background(), "missing")
	if !errors.Is(err, domain.ErrHandNotFound) {
		t.Fatalf("expected ErrHandNotFound, got %v", err)
	}
}

func TestMemory_ListIDsInsertionOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := m.Put(ctx, validRecord(id)); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	// Replacing keeps the original position.
	if err := m.Put(ctx, validRecord("a")); err != nil {
		t.Fatalf("replace a: %v", err)
	}

	ids, err := m.ListIDs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"c", "a", "b"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}
}

func TestMemory_Embeddings(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Put(ctx, validRecord("h1")); err != nil {
		t.Fatalf("put: %v", err)
	}

	em := chunk.EmbeddingMap{
		chunk.TypeContext: {0.1, 0.2},
		chunk.TypePreflop: {0.3, 0.4},
	}
	if err := m.PutEmbeddings(ctx, "h1", chunk.StreetBased, em); err != nil {
		t.Fatalf("put embeddings: %v", err)
	}

	got, err := m.GetEmbeddings(ctx, "h1", chunk.StreetBased)
	if err != nil {
		t.Fatalf("get embeddings: %v", err)
	}
	if len(got) != 2 || got[chunk.TypePreflop][0] != 0.3 {
		t.Errorf("unexpected embeddings: %v", got)
	}

	// Same hand, other strategy: not stored.
	if _, err := m.GetEmbeddings(ctx, "h1", chunk.Hybrid); !errors.Is(err, domain.ErrHandNotFound) {
		t.Errorf("expected ErrHandNotFound for missing strategy, got %v", err)
	}
}

func TestMemory_PutEmbeddingsUnknownHand(t *testing.T) {
	m := NewMemory()

	err := m.PutEmbeddings(context.Background(), "ghost", chunk.StreetBased, chunk.EmbeddingMap{})
	if !errors.Is(err, domain.ErrHandNotFound) {
		t.Fatalf("expected ErrHandNotFound, got %v", err)
	}
}

func TestMemory_Delete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Put(ctx, validRecord("h1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := m.Delete(ctx, "h1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := m.GetRecord(ctx, "h1"); !errors.Is(err, domain.ErrHandNotFound) {
		t.Errorf("expected ErrHandNotFound after delete, got %v", err)
	}
	ids, _ := m.ListIDs(ctx)
	if len(ids) != 0 {
		t.Errorf("expected no ids after delete, got %v", ids)
	}

	if err := m.Delete(ctx, "h1"); !errors.Is(err, domain.ErrHandNotFound) {
		t.Errorf("expected ErrHandNotFound on double delete, got %v", err)
	}
}
