package chunk

import (
	"errors"
	"testing"

	"github.com/sidepot-cloud/handex/internal/domain"
)

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies() {
		got, err := ParseStrategy(string(s))
		if err != nil {
			t.Errorf("ParseStrategy(%q) error = %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStrategy(%q) = %q", s, got)
		}
	}

	_, err := ParseStrategy("semantic")
	if !errors.Is(err, domain.ErrUnknownStrategy) {
		t.Errorf("ParseStrategy(semantic) error = %v, want ErrUnknownStrategy", err)
	}

	_, err = ParseStrategy("")
	if !errors.Is(err, domain.ErrUnknownStrategy) {
		t.Errorf("ParseStrategy(\"\") error = %v, want ErrUnknownStrategy", err)
	}
}

func TestNew_EnforcesVocabulary(t *testing.T) {
	c, err := New(Hybrid, TypeSituation, "some text")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Type != TypeSituation || c.Text != "some text" {
		t.Errorf("New() = %+v", c)
	}

	// situation belongs to hybrid, not street_based
	if _, err := New(StreetBased, TypeSituation, "x"); err == nil {
		t.Error("New(street_based, situation) error = nil, want vocabulary error")
	}
	if _, err := New(ComponentBased, TypeFlopDecis, "x"); err == nil {
		t.Error("New(component_based, flop_decision) error = nil, want vocabulary error")
	}
}

func TestVocabulary_ContextFirst(t *testing.T) {
	tests := []struct {
		strategy Strategy
		first    Type
		size     int
	}{
		{StreetBased, TypeContext, 5},
		{ComponentBased, TypeContext, 3},
		{Hybrid, TypeSituation, 6},
	}

	for _, tt := range tests {
		vocab := Vocabulary(tt.strategy)
		if len(vocab) != tt.size {
			t.Errorf("Vocabulary(%s) has %d types, want %d", tt.strategy, len(vocab), tt.size)
		}
		if vocab[0] != tt.first {
			t.Errorf("Vocabulary(%s)[0] = %q, want %q", tt.strategy, vocab[0], tt.first)
		}
	}
}

func TestWeights_Of(t *testing.T) {
	var nilWeights Weights
	if got := nilWeights.Of(TypeContext); got != 1.0 {
		t.Errorf("nil Weights.Of() = %f, want 1.0", got)
	}

	w := Weights{TypeContext: 2.5, TypeActions: 0}
	if got := w.Of(TypeContext); got != 2.5 {
		t.Errorf("Of(context) = %f, want 2.5", got)
	}
	if got := w.Of(TypeActions); got != 0 {
		t.Errorf("Of(actions) = %f, want explicit 0", got)
	}
	if got := w.Of(TypeCommentary); got != 1.0 {
		t.Errorf("Of(commentary) = %f, want default 1.0", got)
	}
}

func TestWeights_Validate(t *testing.T) {
	if err := (Weights{TypeContext: 0, TypeActions: 3}).Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	if err := (Weights)(nil).Validate(); err != nil {
		t.Errorf("nil Validate() error = %v, want nil", err)
	}

	err := (Weights{TypeContext: -0.5}).Validate()
	if !errors.Is(err, domain.ErrNegativeWeight) {
		t.Errorf("Validate() error = %v, want ErrNegativeWeight", err)
	}
}
