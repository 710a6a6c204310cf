package hand

import (
	"errors"
	"strings"
	"testing"

	"github.com/sidepot-cloud/handex/internal/domain"
)

func validRecord() *Record {
	return &Record{
		ID:                "h1",
		GameLocation:      "Aria",
		Stakes:            "$2/$5",
		CallerCards:       "King of Hearts and King of Diamonds",
		PreflopAction:     "Hero 3bets to $60",
		PreflopCommentary: "Standard against a button open",
		FlopCards:         "Ten of Spades, Six of Hearts, Three of Clubs",
		FlopAction:        "Hero bets $70",
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validRecord().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"missing id", func(r *Record) { r.ID = "" }},
		{"missing stakes", func(r *Record) { r.Stakes = "" }},
		{"missing hero cards", func(r *Record) { r.CallerCards = "" }},
		{"missing preflop", func(r *Record) {
			r.PreflopAction, r.PreflopCommentary = "", ""
		}},
		{"turn without flop", func(r *Record) {
			r.FlopCards, r.FlopAction = "", ""
			r.TurnCard = "Ace of Spades"
		}},
		{"river without turn", func(r *Record) {
			r.RiverAction = "Hero checks"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)
			if err := rec.Validate(); !errors.Is(err, domain.ErrMalformedHand) {
				t.Errorf("Validate() error = %v, want ErrMalformedHand", err)
			}
		})
	}
}

func TestValidate_PreflopCommentaryAloneSuffices(t *testing.T) {
	rec := validRecord()
	rec.PreflopAction = ""
	if err := rec.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestAccessors(t *testing.T) {
	rec := validRecord()

	if got := rec.Action(Preflop); got != "Hero 3bets to $60" {
		t.Errorf("Action(preflop) = %q", got)
	}
	if got := rec.Commentary(Flop); got != "" {
		t.Errorf("Commentary(flop) = %q, want empty", got)
	}
	if got := rec.Cards(Flop); got != "Ten of Spades, Six of Hearts, Three of Clubs" {
		t.Errorf("Cards(flop) = %q", got)
	}
	if got := rec.Cards(Preflop); got != "" {
		t.Errorf("Cards(preflop) = %q, want empty", got)
	}
}

func TestFlatText(t *testing.T) {
	rec := validRecord()
	text := rec.FlatText()

	for _, want := range []string{
		"Game: Aria, Stakes: $2/$5",
		"Hero Cards: King of Hearts and King of Diamonds",
		"PREFLOP:",
		"Action: Hero 3bets to $60",
		"Commentary: Standard against a button open",
		"FLOP: Ten of Spades, Six of Hearts, Three of Clubs",
		"Action: Hero bets $70",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("FlatText() missing %q:\n%s", want, text)
		}
	}

	// Streets that did not occur are omitted entirely.
	if strings.Contains(text, "TURN") || strings.Contains(text, "RIVER") {
		t.Errorf("FlatText() includes unplayed streets:\n%s", text)
	}
	if strings.HasSuffix(text, "\n") {
		t.Error("FlatText() has trailing newline")
	}
}

func TestStreets_Order(t *testing.T) {
	want := []Street{Preflop, Flop, Turn, River}
	got := Streets()
	if len(got) != len(want) {
		t.Fatalf("Streets() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Streets() = %v, want %v", got, want)
		}
	}
}
