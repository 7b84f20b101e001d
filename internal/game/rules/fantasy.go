package rules

import (
	"fmt"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
)

// FantasyLand decides who enters fantasy land, who stays there, and
// whether a fantasy hand was set legally. Qualification always assumes
// the layout is clean; fouled layouts never qualify and the game layer
// checks that before asking.
type FantasyLand struct {
	evaluator *Evaluator
}

func NewFantasyLand(evaluator *Evaluator) *FantasyLand {
	return &FantasyLand{evaluator: evaluator}
}

// CheckEntryQualification reports whether a completed top row earns
// fantasy land: a pair of queens or better, or any three of a kind.
func (f *FantasyLand) CheckEntryQualification(top []deck.Card) (bool, error) {
	ranking, err := f.evaluator.Evaluate(top)
	if err != nil {
		return false, fmt.Errorf("evaluating top row: %w", err)
	}
	return topQualifies(ranking), nil
}

// EntryQualifiesByAnyRow is the wider standard-game sweep: besides the
// top row threshold, trips or better in the middle and a straight or
// better on the bottom also earn entry.
func (f *FantasyLand) EntryQualifiesByAnyRow(top, middle, bottom []deck.Card) (bool, error) {
	topRanking, err := f.evaluator.Evaluate(top)
	if err != nil {
		return false, fmt.Errorf("evaluating top row: %w", err)
	}
	if topQualifies(topRanking) {
		return true, nil
	}

	middleRanking, err := f.evaluator.Evaluate(middle)
	if err != nil {
		return false, fmt.Errorf("evaluating middle row: %w", err)
	}
	if middleRanking.Type >= Trips {
		return true, nil
	}

	bottomRanking, err := f.evaluator.Evaluate(bottom)
	if err != nil {
		return false, fmt.Errorf("evaluating bottom row: %w", err)
	}
	return bottomRanking.Type >= Straight, nil
}

// CheckStayQualification reports whether a player already in fantasy
// land keeps it for another round. Standard games demand a stronger
// layout than entry did: trips up top, a full house or better in the
// middle, or quads or better on the bottom. Pineapple re-applies the
// entry threshold.
func (f *FantasyLand) CheckStayQualification(top, middle, bottom []deck.Card, variant Variant) (bool, error) {
	if variant.IsPineapple() {
		return f.CheckEntryQualification(top)
	}

	topRanking, err := f.evaluator.Evaluate(top)
	if err != nil {
		return false, fmt.Errorf("evaluating top row: %w", err)
	}
	if topRanking.Type == Trips {
		return true, nil
	}

	middleRanking, err := f.evaluator.Evaluate(middle)
	if err != nil {
		return false, fmt.Errorf("evaluating middle row: %w", err)
	}
	if middleRanking.Type >= FullHouse {
		return true, nil
	}

	bottomRanking, err := f.evaluator.Evaluate(bottom)
	if err != nil {
		return false, fmt.Errorf("evaluating bottom row: %w", err)
	}
	return bottomRanking.Type >= Quads, nil
}

// CardCount is how many cards a fantasy land player is dealt.
func (f *FantasyLand) CardCount(variant Variant) int {
	if variant.IsPineapple() {
		return 14
	}
	return 13
}

// ValidateSetting checks a fantasy land deal before any placement: the
// right number of cards for the variant, all of them real, none repeated.
func (f *FantasyLand) ValidateSetting(cards []deck.Card, variant Variant) error {
	want := f.CardCount(variant)
	if len(cards) != want {
		return fmt.Errorf("fantasy land deal has %d cards, want %d", len(cards), want)
	}
	seen := make(map[deck.Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return fmt.Errorf("invalid card %v in fantasy land deal", c)
		}
		if seen[c] {
			return fmt.Errorf("duplicate card %s in fantasy land deal", c)
		}
		seen[c] = true
	}
	return nil
}

// ValidateFantasyPlacement checks a full fantasy land setting against
// the cards that were dealt. Rows must hold 3/5/5 cards, every placed
// card must come from the deal, and no card may appear twice. Pineapple
// deals 14 and places 13, so exactly one card is left behind; standard
// places the whole deal.
func (f *FantasyLand) ValidateFantasyPlacement(dealt, top, middle, bottom []deck.Card, variant Variant) error {
	if err := f.ValidateSetting(dealt, variant); err != nil {
		return err
	}
	if len(top) != RowTop.Capacity() {
		return fmt.Errorf("top row has %d cards, want %d", len(top), RowTop.Capacity())
	}
	if len(middle) != RowMiddle.Capacity() {
		return fmt.Errorf("middle row has %d cards, want %d", len(middle), RowMiddle.Capacity())
	}
	if len(bottom) != RowBottom.Capacity() {
		return fmt.Errorf("bottom row has %d cards, want %d", len(bottom), RowBottom.Capacity())
	}

	available := make(map[deck.Card]bool, len(dealt))
	for _, c := range dealt {
		available[c] = true
	}

	placed := make([]deck.Card, 0, 13)
	placed = append(placed, top...)
	placed = append(placed, middle...)
	placed = append(placed, bottom...)

	used := make(map[deck.Card]bool, len(placed))
	for _, c := range placed {
		if used[c] {
			return fmt.Errorf("card %s placed twice", c)
		}
		used[c] = true
		if !available[c] {
			return fmt.Errorf("card %s was not dealt to this player", c)
		}
	}
	return nil
}

func topQualifies(r Ranking) bool {
	if r.Type == Trips {
		return true
	}
	return r.Type == Pair && r.Primary >= deck.Queen
}

// FantasyLandState tracks one player's fantasy land status across rounds.
type FantasyLandState struct {
	Active           bool `json:"active"`
	EnteredRound     int  `json:"entered_round,omitempty"`
	ConsecutiveStays int  `json:"consecutive_stays,omitempty"`
}

// Enter puts the player in fantasy land starting from the given round.
// Re-entering while already active counts as a stay.
func (s *FantasyLandState) Enter(round int) {
	if s.Active {
		s.ConsecutiveStays++
		return
	}
	s.Active = true
	s.EnteredRound = round
	s.ConsecutiveStays = 0
}

// Exit drops the player back to normal play.
func (s *FantasyLandState) Exit() {
	s.Active = false
	s.EnteredRound = 0
	s.ConsecutiveStays = 0
}
