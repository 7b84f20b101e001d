package rules

import (
	"fmt"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
)

// Checker re-derives game invariants from a snapshot of game state. It
// never mutates anything and never raises for expected rule violations:
// callers probe legality through ValidationResult values instead of
// exception-driven control flow.
type Checker struct {
	gameState GameStateAccessor
	evaluator *Evaluator
}

// GameStateAccessor provides access to game state needed for validation.
type GameStateAccessor interface {
	// GameID returns the game identity.
	GameID() string
	// GameStatus returns the lifecycle status string.
	GameStatus() string
	// GameVariant returns the rules variant in play.
	GameVariant() Variant
	// CurrentRound returns the 1-based round counter.
	CurrentRound() int
	// CurrentPlayer returns the id of the player to act, or "".
	CurrentPlayer() string
	// PlayerIDs returns the seating order.
	PlayerIDs() []string
	// PlayerState returns the visible state of one player.
	PlayerState(playerID string) (PlayerState, bool)
	// DeckRemaining returns the undealt cards.
	DeckRemaining() []deck.Card
}

// PlayerState provides information about a player for validation.
type PlayerState struct {
	PlayerID      string
	Top           []deck.Card
	Middle        []deck.Card
	Bottom        []deck.Card
	Hand          []deck.Card
	Discards      []deck.Card
	Fouled        bool
	InFantasyLand bool
}

// PlacedCount returns how many cards the player has set in rows.
func (ps PlayerState) PlacedCount() int {
	return len(ps.Top) + len(ps.Middle) + len(ps.Bottom)
}

// LayoutComplete reports whether all 13 row slots are filled.
func (ps PlayerState) LayoutComplete() bool {
	return len(ps.Top) == RowTop.Capacity() &&
		len(ps.Middle) == RowMiddle.Capacity() &&
		len(ps.Bottom) == RowBottom.Capacity()
}

// Row returns the cards in the named row.
func (ps PlayerState) Row(row Row) []deck.Card {
	switch row {
	case RowTop:
		return ps.Top
	case RowMiddle:
		return ps.Middle
	default:
		return ps.Bottom
	}
}

// ValidationResult represents the outcome of a single named check.
type ValidationResult struct {
	Valid   bool   `json:"is_valid"`
	Error   string `json:"error_message,omitempty"`
	Warning string `json:"warning_message,omitempty"`
}

func valid() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalid(format string, args ...any) ValidationResult {
	return ValidationResult{Valid: false, Error: fmt.Sprintf(format, args...)}
}

// Game status strings the checker recognizes.
// Note: these must match the status constants in the game package exactly.
const (
	statusWaiting    = "WAITING"
	statusInProgress = "IN_PROGRESS"
	statusCompleted  = "COMPLETED"
	statusCancelled  = "CANCELLED"
	statusPaused     = "PAUSED"
)

// NewChecker creates a validator over the given game state.
func NewChecker(gameState GameStateAccessor) *Checker {
	return &Checker{
		gameState: gameState,
		evaluator: NewEvaluator(),
	}
}

// Summary runs every named check and returns the results keyed by check
// name. Per-player checks appear under "player_<id>".
func (c *Checker) Summary() map[string]ValidationResult {
	results := make(map[string]ValidationResult)
	if c == nil || c.gameState == nil {
		results["game_state"] = invalid("no game state to validate")
		return results
	}

	results["game_state"] = c.CheckGameState()
	results["completion"] = c.CheckCompletion()
	results["turn_order"] = c.CheckTurnOrder()
	for _, id := range c.gameState.PlayerIDs() {
		results["player_"+id] = c.CheckPlayer(id)
	}
	return results
}

// CheckGameState validates the lifecycle status and the whole-game card
// accounting: the deck, every hand, every row, and every discard pile
// must together hold 52 distinct cards.
func (c *Checker) CheckGameState() ValidationResult {
	status := c.gameState.GameStatus()
	switch status {
	case statusWaiting, statusInProgress, statusCompleted, statusCancelled, statusPaused:
	default:
		return invalid("unknown game status %q", status)
	}

	seen := make(map[deck.Card]string, 52)
	count := 0

	note := func(cards []deck.Card, where string) string {
		for _, card := range cards {
			if !card.Valid() {
				return fmt.Sprintf("invalid card %v in %s", card, where)
			}
			if prev, dup := seen[card]; dup {
				return fmt.Sprintf("card %s appears in both %s and %s", card, prev, where)
			}
			seen[card] = where
			count++
		}
		return ""
	}

	if msg := note(c.gameState.DeckRemaining(), "deck"); msg != "" {
		return invalid("%s", msg)
	}
	for _, id := range c.gameState.PlayerIDs() {
		ps, ok := c.gameState.PlayerState(id)
		if !ok {
			return invalid("player %s listed but has no state", id)
		}
		for _, row := range Rows() {
			if msg := note(ps.Row(row), fmt.Sprintf("%s row of %s", row, id)); msg != "" {
				return invalid("%s", msg)
			}
		}
		if msg := note(ps.Hand, fmt.Sprintf("hand of %s", id)); msg != "" {
			return invalid("%s", msg)
		}
		if msg := note(ps.Discards, fmt.Sprintf("discards of %s", id)); msg != "" {
			return invalid("%s", msg)
		}
	}

	if count != 52 {
		return invalid("game accounts for %d cards, want 52", count)
	}
	return valid()
}

// CheckCompletion validates that the completion status agrees with the
// layouts on the table.
func (c *Checker) CheckCompletion() ValidationResult {
	allComplete := true
	for _, id := range c.gameState.PlayerIDs() {
		ps, ok := c.gameState.PlayerState(id)
		if !ok {
			return invalid("player %s listed but has no state", id)
		}
		if !ps.LayoutComplete() {
			allComplete = false
			if c.gameState.GameStatus() == statusCompleted {
				return invalid("game is completed but player %s has %d cards placed", id, ps.PlacedCount())
			}
		}
	}

	result := valid()
	if allComplete && c.gameState.GameStatus() == statusInProgress {
		result.Warning = "all layouts are complete but the game has not been scored"
	}
	return result
}

// CheckTurnOrder validates that the turn pointer refers to a seated
// player who can still act.
func (c *Checker) CheckTurnOrder() ValidationResult {
	current := c.gameState.CurrentPlayer()
	if current == "" {
		for _, id := range c.gameState.PlayerIDs() {
			ps, ok := c.gameState.PlayerState(id)
			if ok && !ps.LayoutComplete() {
				return invalid("no current player while %s still has cards to place", id)
			}
		}
		return valid()
	}

	ps, ok := c.gameState.PlayerState(current)
	if !ok {
		return invalid("current player %s is not seated", current)
	}
	if ps.LayoutComplete() && c.gameState.GameStatus() == statusInProgress {
		return invalid("current player %s already completed their layout", current)
	}
	return valid()
}

// CheckPlayer validates one player's rows, hand, and status flags.
// A fouled layout is not an error: it reports as valid with a warning,
// since fouling only affects scoring.
func (c *Checker) CheckPlayer(playerID string) ValidationResult {
	ps, ok := c.gameState.PlayerState(playerID)
	if !ok {
		return invalid("unknown player %s", playerID)
	}

	for _, row := range Rows() {
		if got, max := len(ps.Row(row)), row.Capacity(); got > max {
			return invalid("%s row holds %d cards, capacity %d", row, got, max)
		}
	}

	seen := make(map[deck.Card]bool, 17)
	held := append([]deck.Card{}, ps.Top...)
	held = append(held, ps.Middle...)
	held = append(held, ps.Bottom...)
	held = append(held, ps.Hand...)
	for _, card := range held {
		if seen[card] {
			return invalid("card %s held twice by %s", card, playerID)
		}
		seen[card] = true
	}

	if !ps.LayoutComplete() {
		if ps.Fouled {
			return invalid("player %s marked fouled with an incomplete layout", playerID)
		}
		return valid()
	}

	clean, err := c.evaluator.ValidProgression(ps.Top, ps.Middle, ps.Bottom)
	if err != nil {
		return invalid("evaluating layout of %s: %v", playerID, err)
	}

	result := valid()
	if !clean {
		result.Warning = fmt.Sprintf("layout of %s fouls: rows must strengthen from top to bottom", playerID)
	}
	return result
}

// ValidatePlacement is the advisory pre-placement probe: it checks that
// the player holds the card and the row has room, and warns when the
// placement would complete the layout as a foul.
func (c *Checker) ValidatePlacement(playerID string, card deck.Card, row Row) ValidationResult {
	if !row.Valid() {
		return invalid("unknown row %d", int(row))
	}
	ps, ok := c.gameState.PlayerState(playerID)
	if !ok {
		return invalid("unknown player %s", playerID)
	}

	held := false
	for _, h := range ps.Hand {
		if h == card {
			held = true
			break
		}
	}
	if !held {
		return invalid("player %s does not hold %s", playerID, card)
	}
	if len(ps.Row(row)) >= row.Capacity() {
		return invalid("%s row is full", row)
	}

	result := valid()
	if fouls, known := c.placementFouls(ps, card, row); known && fouls {
		result.Warning = "this placement completes the layout as a foul"
	}
	return result
}

// placementFouls simulates the placement and reports whether it fills
// the final row slot of a layout that breaks progression. The second
// return is false while the layout would still be partial.
func (c *Checker) placementFouls(ps PlayerState, card deck.Card, row Row) (bool, bool) {
	top := append([]deck.Card{}, ps.Top...)
	middle := append([]deck.Card{}, ps.Middle...)
	bottom := append([]deck.Card{}, ps.Bottom...)

	switch row {
	case RowTop:
		top = append(top, card)
	case RowMiddle:
		middle = append(middle, card)
	case RowBottom:
		bottom = append(bottom, card)
	}

	if len(top) != RowTop.Capacity() || len(middle) != RowMiddle.Capacity() || len(bottom) != RowBottom.Capacity() {
		return false, false
	}
	clean, err := c.evaluator.ValidProgression(top, middle, bottom)
	if err != nil {
		return false, false
	}
	return !clean, true
}
