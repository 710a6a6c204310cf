// Package queryparse extracts structured poker fields from free-text queries.
//
// Every field has its own ordered cascade of (pattern, build) rules evaluated
// left to right; the first rule whose pattern matches wins and the rest are
// skipped. Parsing is pure: no side effects, no external calls, and fields
// that match nothing stay unset on the result.
package queryparse

import (
	"regexp"
	"strings"

	"github.com/sidepot-cloud/handex/internal/domain/hand"
	"github.com/sidepot-cloud/handex/internal/domain/query"
)

// positionLexicon maps query substrings to canonical position names,
// in match-priority order. Compound names come before their prefixes
// ("utg+1" before "utg") so the longest intent wins.
var positionLexicon = []struct {
	term     string
	position string
}{
	{"utg+1", "UTG+1"},
	{"utg+2", "UTG+2"},
	{"under the gun", "UTG"},
	{"utg", "UTG"},
	{"low-jack", "LowJack"},
	{"lowjack", "LowJack"},
	{"hijack", "HJ"},
	{"cutoff", "cutoff"},
	{"button", "button"},
	{"small blind", "SB"},
	{"big blind", "BB"},
	{"straddle", "straddle"},
}

// villainLexicon maps tendency mentions to canonical villain types,
// in match-priority order. "reg" stays last: it is a substring trap.
var villainLexicon = []struct {
	term    string
	villain string
}{
	{"maniac", "aggressive"},
	{"tight", "tight"},
	{"loose", "loose"},
	{"passive", "passive"},
	{"aggressive", "aggressive"},
	{"recreational", "recreational"},
	{"reg", "regular"},
}

var rankWords = map[string]string{
	"2": "Two", "3": "Three", "4": "Four", "5": "Five",
	"6": "Six", "7": "Seven", "8": "Eight", "9": "Nine",
	"10": "Ten", "j": "Jack", "q": "Queen", "k": "King",
	"a": "Ace",
}

var suitWords = map[string]string{
	"h": "Hearts", "heart": "Hearts", "hearts": "Hearts",
	"d": "Diamonds", "diamond": "Diamonds", "diamonds": "Diamonds",
	"c": "Clubs", "club": "Clubs", "clubs": "Clubs",
	"s": "Spades", "spade": "Spades", "spades": "Spades",
}

// pairRanks maps the colloquial plural to the spelled-out rank.
var pairRanks = map[string]string{
	"aces": "Ace", "kings": "King", "queens": "Queen", "jacks": "Jack",
}

var (
	rePairIdiom = regexp.MustCompile(`two (black|red) (aces|kings|queens|jacks)`)
	reCardPair  = regexp.MustCompile(`(\w+) of (\w+) and (\w+) of (\w+)`)

	reStackBB     = regexp.MustCompile(`(\d+)\s*bb\b`)
	reStackDollar = regexp.MustCompile(`\$(\d+k?)\s+stack`)

	reStakesSlash = regexp.MustCompile(`(?:\$?\d+/){1,2}\$?\d+`)
	reStakesBuyin = regexp.MustCompile(`\$\d+ max buy-?in`)
	reStakesNL    = regexp.MustCompile(`(?:nl\s?\d+|pot limit \d+)`)

	reTableSize = regexp.MustCompile(`(\d+)[- ](?:handed|player)`)

	rePreflopOpen  = regexp.MustCompile(`open(?:s|ed)?(?: to)? \$\d+`)
	rePreflop3Bet  = regexp.MustCompile(`3-?bet(?:s)?(?: to)? \$\d+`)
	rePreflopCall  = regexp.MustCompile(`call(?:s|ed)? (?:the )?\$\d+`)
	rePreflopRaise = regexp.MustCompile(`raise(?:s|d)?(?: to)? \$\d+`)
)

// Parse extracts every recognizable structured field from the query text.
// Sub-extractors are independent and order-independent with respect to each
// other; fields absent from the input are left unset on the result.
func Parse(text string) query.Parsed {
	lower := strings.ToLower(text)

	p := query.Parsed{
		Position:  parsePosition(lower),
		HeroCards: parseCards(lower),
		StackSize: parseStackSize(lower),
		Game:      parseGameInfo(lower),
		Players:   parsePlayerInfo(lower),
	}
	p.ActionHistory = parseActionHistory(lower)
	return p
}

// parsePosition returns the first lexicon hit, case-insensitive substring match.
func parsePosition(lower string) string {
	for _, entry := range positionLexicon {
		if strings.Contains(lower, entry.term) {
			return entry.position
		}
	}
	return ""
}

// parseCards recognizes the colloquial pair idiom ("two black aces") before
// falling back to the generic "<rank> of <suit> and <rank> of <suit>" form.
// The output is always "<Rank1> of <Suit1> and <Rank2> of <Suit2>" with the
// cards in the order they were written — no reordering by rank.
func parseCards(lower string) string {
	if m := rePairIdiom.FindStringSubmatch(lower); m != nil {
		rank := pairRanks[m[2]]
		if m[1] == "black" {
			return rank + " of Clubs and " + rank + " of Spades"
		}
		return rank + " of Hearts and " + rank + " of Diamonds"
	}

	if m := reCardPair.FindStringSubmatch(lower); m != nil {
		card1 := normalizeRank(m[1]) + " of " + normalizeSuit(m[2])
		card2 := normalizeRank(m[3]) + " of " + normalizeSuit(m[4])
		return card1 + " and " + card2
	}

	return ""
}

func normalizeRank(rank string) string {
	if w, ok := rankWords[strings.ToLower(rank)]; ok {
		return w
	}
	return titleWord(rank)
}

func normalizeSuit(suit string) string {
	if w, ok := suitWords[strings.ToLower(suit)]; ok {
		return w
	}
	return titleWord(suit)
}

func titleWord(w string) string {
	if w == "" {
		return ""
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}

// parseStackSize matches "<N>bb" or "$<N> stack" and returns the amount as
// written. No unit normalization: "150" from "150bb", "300" from
// "$300 stack", and "2k" from "$2k stack" all keep their original form.
func parseStackSize(lower string) string {
	if m := reStackBB.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	if m := reStackDollar.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	return ""
}

// stakesCascade lists the alternative stakes shapes; the first match wins.
var stakesCascade = []*regexp.Regexp{reStakesSlash, reStakesBuyin, reStakesNL}

func parseGameInfo(lower string) *query.GameInfo {
	info := query.GameInfo{}
	matched := false

	for _, re := range stakesCascade {
		if m := re.FindString(lower); m != "" {
			info.Stakes = m
			matched = true
			break
		}
	}

	if gt := parseGameType(lower); gt != "" {
		info.GameType = gt
		matched = true
	}

	if strings.Contains(lower, "straddle") {
		info.Straddle = true
		matched = true
		if strings.Contains(lower, "mandatory") {
			info.Mandatory = true
		}
	}

	if !matched {
		return nil
	}
	return &info
}

func parseGameType(lower string) string {
	switch {
	case strings.Contains(lower, "tournament"), strings.Contains(lower, "mtt"):
		return "tournament"
	case strings.Contains(lower, "sit-and-go"), strings.Contains(lower, "sit and go"),
		strings.Contains(lower, "sng"):
		return "sit-n-go"
	case strings.Contains(lower, "cash"):
		return "cash"
	}
	return ""
}

func parsePlayerInfo(lower string) *query.PlayerInfo {
	info := query.PlayerInfo{}
	matched := false

	if m := reTableSize.FindStringSubmatch(lower); m != nil {
		info.TableSize = m[1]
		matched = true
	}

	for _, entry := range villainLexicon {
		if strings.Contains(lower, entry.term) {
			info.VillainType = entry.villain
			matched = true
			break
		}
	}

	if !matched {
		return nil
	}
	return &info
}

// actionCascade lists the preflop action shapes; the first match wins.
// Only preflop actions are parsed from free text: flop, turn, and river
// actions in a query read as prose, not as a recognizable bet grammar.
var actionCascade = []*regexp.Regexp{rePreflopOpen, rePreflop3Bet, rePreflopCall, rePreflopRaise}

func parseActionHistory(lower string) map[hand.Street]string {
	for _, re := range actionCascade {
		if m := re.FindString(lower); m != "" {
			return map[hand.Street]string{hand.Preflop: m}
		}
	}
	return nil
}
