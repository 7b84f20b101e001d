package game

import (
	"errors"
	"fmt"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
)

// Sentinel errors for errors.Is matching. The typed errors below carry
// the detail; the sentinels classify.
var (
	ErrGameState        = errors.New("invalid game state")
	ErrInvalidPlacement = errors.New("invalid card placement")
)

// GameStateError reports an operation that is invalid for the game's
// current state: wrong turn, completed game, wrong deal size, unknown
// player. Always fatal to the single operation, never retried.
type GameStateError struct {
	Op     string
	Reason string
}

func (e *GameStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *GameStateError) Is(target error) bool {
	return target == ErrGameState
}

func stateErrorf(op, format string, args ...any) error {
	return &GameStateError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// InvalidCardPlacementError reports a placement that violates capacity
// or ownership rules.
type InvalidCardPlacementError struct {
	PlayerID string
	Card     deck.Card
	Row      rules.Row
	Reason   string
}

func (e *InvalidCardPlacementError) Error() string {
	if !e.Card.Valid() {
		return fmt.Sprintf("invalid placement for %s: %s", e.PlayerID, e.Reason)
	}
	return fmt.Sprintf("cannot place %s on %s for %s: %s", e.Card.Code(), e.Row, e.PlayerID, e.Reason)
}

func (e *InvalidCardPlacementError) Is(target error) bool {
	return target == ErrInvalidPlacement
}

func placementErrorf(playerID string, card deck.Card, row rules.Row, format string, args ...any) error {
	return &InvalidCardPlacementError{
		PlayerID: playerID,
		Card:     card,
		Row:      row,
		Reason:   fmt.Sprintf(format, args...),
	}
}
