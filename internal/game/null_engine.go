package game

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// NullEngine is a stub game engine implementation that logs player
// actions. It satisfies the same transport-facing surface as Engine,
// for wiring tests and load probes that don't need real games.
type NullEngine struct {
	logger *zap.Logger

	mu    sync.RWMutex
	games map[string]*nullGameState
}

type nullGameState struct {
	Rules   Rules
	Seats   []Seat
	Ended   bool
	Actions []PlayerAction
}

// NewNullEngine creates a new null engine.
func NewNullEngine(logger *zap.Logger) *NullEngine {
	return &NullEngine{
		logger: logger,
		games:  make(map[string]*nullGameState),
	}
}

// StartGame records a new game.
func (n *NullEngine) StartGame(gameID string, seats []Seat, gameRules Rules) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.games[gameID] = &nullGameState{
		Rules:   gameRules,
		Seats:   append([]Seat(nil), seats...),
		Actions: make([]PlayerAction, 0, 32),
	}

	if n.logger != nil {
		n.logger.Info("null engine started game",
			zap.String("game_id", gameID),
			zap.Int("seats", len(seats)),
			zap.String("variant", string(gameRules.Variant)),
		)
	}

	return nil
}

// ProcessAction records the action for later inspection.
func (n *NullEngine) ProcessAction(gameID string, action PlayerAction) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	state, ok := n.games[gameID]
	if !ok {
		return fmt.Errorf("game %s not found", gameID)
	}

	state.Actions = append(state.Actions, action)
	if len(state.Actions) > 200 {
		state.Actions = state.Actions[len(state.Actions)-200:]
	}

	if n.logger != nil {
		n.logger.Debug("null engine processed action",
			zap.String("game_id", gameID),
			zap.String("player_id", action.PlayerID),
			zap.String("action_type", action.ActionType),
		)
	}
	return nil
}

// GameView synthesizes a view from the recorded state. Every layout is
// empty; only the roster and lifecycle are meaningful.
func (n *NullEngine) GameView(gameID, _ string) (GameView, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	state, ok := n.games[gameID]
	if !ok {
		return GameView{}, fmt.Errorf("game %s not found", gameID)
	}

	view := GameView{
		GameID:  gameID,
		Status:  StatusInProgress,
		Variant: state.Rules.Variant,
		Round:   1,
		Players: make([]PlayerView, 0, len(state.Seats)),
	}
	if state.Ended {
		view.Status = StatusCancelled
	}
	for _, seat := range state.Seats {
		view.Players = append(view.Players, PlayerView{
			ID:     seat.ID,
			Name:   seat.Name,
			Status: PlayerStatusActive,
		})
	}
	return view, nil
}

// Actions returns the recorded actions for a game.
func (n *NullEngine) Actions(gameID string) []PlayerAction {
	n.mu.RLock()
	defer n.mu.RUnlock()

	state, ok := n.games[gameID]
	if !ok {
		return nil
	}
	out := make([]PlayerAction, len(state.Actions))
	copy(out, state.Actions)
	return out
}

// CancelGame marks the recorded game ended.
func (n *NullEngine) CancelGame(gameID, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	state, ok := n.games[gameID]
	if !ok {
		return fmt.Errorf("game %s not found", gameID)
	}
	state.Ended = true

	if n.logger != nil {
		n.logger.Info("null engine cancelled game",
			zap.String("game_id", gameID),
			zap.String("reason", reason),
		)
	}
	return nil
}

// PauseGame logs a pause event.
func (n *NullEngine) PauseGame(gameID string) error {
	if n.logger != nil {
		n.logger.Info("null engine pause game", zap.String("game_id", gameID))
	}
	return nil
}

// ResumeGame logs a resume event.
func (n *NullEngine) ResumeGame(gameID string) error {
	if n.logger != nil {
		n.logger.Info("null engine resume game", zap.String("game_id", gameID))
	}
	return nil
}

// SetNotificationHandler accepts and discards the handler; the null
// engine never notifies.
func (n *NullEngine) SetNotificationHandler(NotificationHandler) {}
