package rules

import (
	"fmt"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
)

// Position identifies a single card slot on the board by row and
// 0-based index within the row.
type Position struct {
	Row   Row `json:"row"`
	Index int `json:"index"`
}

// Valid reports whether the position names a real slot.
func (p Position) Valid() bool {
	return p.Row.Valid() && p.Index >= 0 && p.Index < p.Row.Capacity()
}

func (p Position) String() string {
	return fmt.Sprintf("%s[%d]", p.Row, p.Index)
}

// Placement assigns a card to a board position.
type Placement struct {
	Card     deck.Card `json:"card"`
	Position Position  `json:"position"`
}

// PineappleAction is one 3-pick-2 turn: three dealt cards of which two
// are placed and one is discarded face down.
type PineappleAction struct {
	PlayerID   string      `json:"player_id"`
	Dealt      []deck.Card `json:"dealt"`
	Placements []Placement `json:"placements"`
	Discard    deck.Card   `json:"discard"`
}

// InitialPlacement sets the first five cards of a layout in one action.
type InitialPlacement struct {
	PlayerID   string      `json:"player_id"`
	Placements []Placement `json:"placements"`
}

// PineappleValidator layers the pineapple-only checks on top of the
// base Checker: 3-pick-2 selection, initial five-card placement, and
// discard tracking. Discards stay hidden from opponents but still count
// toward the 52-card accounting, so the validator remembers them.
type PineappleValidator struct {
	gameState GameStateAccessor
	fantasy   *FantasyLand
	discarded map[deck.Card]bool
}

// NewPineappleValidator creates a pineapple validator over the given
// game state.
func NewPineappleValidator(gameState GameStateAccessor) *PineappleValidator {
	return &PineappleValidator{
		gameState: gameState,
		fantasy:   NewFantasyLand(NewEvaluator()),
		discarded: make(map[deck.Card]bool),
	}
}

// ValidatePineappleAction checks a 3-pick-2 action: the acting player
// must be the current player, exactly 3 distinct cards dealt, exactly 2
// placed and 1 discarded covering the deal exactly, none of the cards
// used before, and every placement slot open.
func (pv *PineappleValidator) ValidatePineappleAction(action PineappleAction) ValidationResult {
	if current := pv.gameState.CurrentPlayer(); current != action.PlayerID {
		return invalid("not %s's turn", action.PlayerID)
	}
	ps, ok := pv.gameState.PlayerState(action.PlayerID)
	if !ok {
		return invalid("unknown player %s", action.PlayerID)
	}

	if len(action.Dealt) != 3 {
		return invalid("must deal 3 cards, got %d", len(action.Dealt))
	}
	if len(action.Placements) != 2 {
		return invalid("must place 2 cards, got %d", len(action.Placements))
	}

	dealt := make(map[deck.Card]bool, 3)
	for _, card := range action.Dealt {
		if dealt[card] {
			return invalid("card %s dealt twice", card)
		}
		dealt[card] = true
	}

	used := make(map[deck.Card]bool, 3)
	for _, pl := range action.Placements {
		if used[pl.Card] {
			return invalid("card %s placed twice", pl.Card)
		}
		used[pl.Card] = true
	}
	if used[action.Discard] {
		return invalid("card %s both placed and discarded", action.Discard)
	}
	used[action.Discard] = true

	for card := range used {
		if !dealt[card] {
			return invalid("card %s was not dealt this turn", card)
		}
	}

	for _, card := range action.Dealt {
		if pv.cardAlreadyUsed(card) {
			return invalid("card %s already used in game", card)
		}
	}

	return pv.checkPlacementSlots(ps, action.Placements)
}

// ValidateInitialPlacement checks the street-zero placement: exactly 5
// distinct cards into 5 distinct open slots.
func (pv *PineappleValidator) ValidateInitialPlacement(placement InitialPlacement) ValidationResult {
	ps, ok := pv.gameState.PlayerState(placement.PlayerID)
	if !ok {
		return invalid("unknown player %s", placement.PlayerID)
	}

	if len(placement.Placements) != 5 {
		return invalid("must place 5 cards initially, got %d", len(placement.Placements))
	}

	positions := make(map[Position]bool, 5)
	cards := make(map[deck.Card]bool, 5)
	for _, pl := range placement.Placements {
		if positions[pl.Position] {
			return invalid("duplicate position %s in placement", pl.Position)
		}
		positions[pl.Position] = true
		if cards[pl.Card] {
			return invalid("card %s placed twice", pl.Card)
		}
		cards[pl.Card] = true
		if pv.cardAlreadyUsed(pl.Card) {
			return invalid("card %s already used in game", pl.Card)
		}
	}

	return pv.checkPlacementSlots(ps, placement.Placements)
}

// ValidateFantasyLandEntry checks whether a player with a complete,
// not-yet-fantasy layout qualifies to enter.
func (pv *PineappleValidator) ValidateFantasyLandEntry(playerID string, state FantasyLandState) ValidationResult {
	if state.Active {
		return invalid("player %s already in fantasy land", playerID)
	}
	ps, ok := pv.gameState.PlayerState(playerID)
	if !ok {
		return invalid("unknown player %s", playerID)
	}
	if !ps.LayoutComplete() {
		return invalid("layout of %s is not complete", playerID)
	}

	qualifies, err := pv.fantasy.CheckEntryQualification(ps.Top)
	if err != nil {
		return invalid("checking qualification: %v", err)
	}
	if !qualifies {
		return invalid("top row does not qualify for fantasy land (need QQ or better)")
	}
	return valid()
}

// ValidateFantasyLandStay checks whether a fantasy land player keeps
// their seat there for the next round.
func (pv *PineappleValidator) ValidateFantasyLandStay(playerID string, state FantasyLandState) ValidationResult {
	if !state.Active {
		return invalid("player %s not in fantasy land", playerID)
	}
	ps, ok := pv.gameState.PlayerState(playerID)
	if !ok {
		return invalid("unknown player %s", playerID)
	}
	if !ps.LayoutComplete() {
		return invalid("layout of %s is not complete", playerID)
	}

	stays, err := pv.fantasy.CheckStayQualification(ps.Top, ps.Middle, ps.Bottom, VariantPineapple)
	if err != nil {
		return invalid("checking qualification: %v", err)
	}
	if !stays {
		return invalid("does not meet requirements to stay in fantasy land")
	}
	return valid()
}

// ValidateFantasyLandPlacement checks a 14-card fantasy land setting.
func (pv *PineappleValidator) ValidateFantasyLandPlacement(dealt, top, middle, bottom []deck.Card) ValidationResult {
	if err := pv.fantasy.ValidateFantasyPlacement(dealt, top, middle, bottom, VariantPineapple); err != nil {
		return invalid("%v", err)
	}
	return valid()
}

// TrackDiscard records a face-down discard.
func (pv *PineappleValidator) TrackDiscard(card deck.Card) {
	pv.discarded[card] = true
}

// DiscardCount returns how many cards have been discarded so far.
func (pv *PineappleValidator) DiscardCount() int {
	return len(pv.discarded)
}

// IsDiscarded reports whether the card has been discarded.
func (pv *PineappleValidator) IsDiscarded(card deck.Card) bool {
	return pv.discarded[card]
}

// ClearDiscards resets discard tracking for a new game.
func (pv *PineappleValidator) ClearDiscards() {
	pv.discarded = make(map[deck.Card]bool)
}

// cardAlreadyUsed reports whether the card sits in any player's rows or
// in the discard record. Cards still in hands are not used: they came
// from the deal under validation.
func (pv *PineappleValidator) cardAlreadyUsed(card deck.Card) bool {
	if pv.discarded[card] {
		return true
	}
	for _, id := range pv.gameState.PlayerIDs() {
		ps, ok := pv.gameState.PlayerState(id)
		if !ok {
			continue
		}
		for _, row := range Rows() {
			for _, placed := range ps.Row(row) {
				if placed == card {
					return true
				}
			}
		}
	}
	return false
}

// checkPlacementSlots verifies every placement names a real, open slot,
// counting the batch itself against row capacity.
func (pv *PineappleValidator) checkPlacementSlots(ps PlayerState, placements []Placement) ValidationResult {
	added := make(map[Row]int, 3)
	for _, pl := range placements {
		if !pl.Position.Valid() {
			return invalid("invalid position %s", pl.Position)
		}
		row := pl.Position.Row
		if len(ps.Row(row))+added[row] >= row.Capacity() {
			return invalid("cannot place card at %s: row is full", pl.Position)
		}
		added[row]++
	}
	return valid()
}
