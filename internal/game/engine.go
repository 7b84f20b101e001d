package game

import (
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
)

// GameNotification is a push update for UI/websocket clients.
type GameNotification struct {
	Type      string                 // Notification type, mirrors the event type (e.g. "CARD_PLACED")
	GameID    string                 // Game ID
	PlayerID  string                 // Player the update concerns (empty for broadcast)
	Timestamp time.Time              // When the notification was created
	Data      map[string]interface{} // Notification-specific data
}

// NotificationHandler is a function that handles game notifications
type NotificationHandler func(notification GameNotification)

// Player action types understood by ProcessAction.
const (
	ActionPlaceCard        = "PLACE_CARD"
	ActionPineappleTurn    = "PINEAPPLE_TURN"
	ActionInitialPlacement = "INITIAL_PLACEMENT"
	ActionSetFantasyHand   = "SET_FANTASY_HAND"
)

// PlayerAction is a uniform envelope for player moves, used by
// transports that funnel everything through one entry point. Data
// holds the matching payload struct for the action type.
type PlayerAction struct {
	PlayerID   string      `json:"player_id"`
	ActionType string      `json:"action_type"`
	Data       interface{} `json:"data,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// PlaceCardAction is the payload for ActionPlaceCard.
type PlaceCardAction struct {
	Card deck.Card `json:"card"`
	Row  rules.Row `json:"row"`
}

// PineappleTurnAction is the payload for ActionPineappleTurn.
type PineappleTurnAction struct {
	Placements []rules.Placement `json:"placements"`
	Discard    deck.Card         `json:"discard"`
}

// InitialPlacementAction is the payload for ActionInitialPlacement.
type InitialPlacementAction struct {
	Placements []rules.Placement `json:"placements"`
}

// FantasySetAction is the payload for ActionSetFantasyHand.
type FantasySetAction struct {
	Top    []deck.Card `json:"top"`
	Middle []deck.Card `json:"middle"`
	Bottom []deck.Card `json:"bottom"`
}

// Engine hosts concurrent games and is the single entry point for
// transports. Each game serializes its own mutations; the engine lock
// only guards the registry and the notification handler.
type Engine struct {
	logger *zap.Logger
	clock  quartz.Clock

	mu                  sync.RWMutex
	games               map[string]*Game
	analytics           map[string]*gameAnalytics
	forwarders          map[string]int // gameID -> bus subscription handle
	notificationHandler NotificationHandler
	replays             *ReplayRecorder
}

// NewEngine creates an engine. A nil logger disables logging; a nil
// clock uses the real one.
func NewEngine(logger *zap.Logger, clock quartz.Clock) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Engine{
		logger:     logger,
		clock:      clock,
		games:      make(map[string]*Game),
		analytics:  make(map[string]*gameAnalytics),
		forwarders: make(map[string]int),
	}
}

// SetNotificationHandler sets the handler for game notifications.
// This allows external systems (UI, websockets) to receive real-time
// game updates.
func (e *Engine) SetNotificationHandler(handler NotificationHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notificationHandler = handler
}

// EnableReplayRecording turns on per-game replay capture. Games created
// after the call record a snapshot per applied move; SaveReplay writes
// them under saveDir. Recording is off by default.
func (e *Engine) EnableReplayRecording(saveDir string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.replays == nil {
		e.replays = NewReplayRecorder(e.logger, saveDir)
	}
}

func (e *Engine) recorder() *ReplayRecorder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.replays
}

// captureReplay records the game's current snapshot. Must be called
// after the mutating call returns: Snapshot takes the game's read lock.
func (e *Engine) captureReplay(g *Game) {
	rr := e.recorder()
	if rr == nil {
		return
	}
	rr.RecordState(g.ID(), g.Snapshot())
}

// Replay returns the in-memory replay for a game, if recording is on.
func (e *Engine) Replay(gameID string) (*Replay, bool) {
	rr := e.recorder()
	if rr == nil {
		return nil, false
	}
	return rr.GetReplay(gameID)
}

// SaveReplay persists a game's replay to the recording directory and
// releases it from memory.
func (e *Engine) SaveReplay(gameID string) error {
	rr := e.recorder()
	if rr == nil {
		return stateErrorf("save replay", "replay recording is not enabled")
	}
	return rr.SaveReplay(gameID)
}

// emitNotification sends a notification to the registered handler. The
// handler runs in its own goroutine, so emitting while a game lock is
// held never blocks and the handler may call back into the engine.
func (e *Engine) emitNotification(notification GameNotification) {
	e.mu.RLock()
	handler := e.notificationHandler
	e.mu.RUnlock()

	if handler != nil {
		go handler(notification)
	}
}

// CreateGame constructs a game from the config, registers it, and
// starts forwarding its events as notifications. The config's bus and
// clock default to engine-provided ones.
func (e *Engine) CreateGame(cfg Config) (*Game, error) {
	if cfg.GameID == "" {
		cfg.GameID = uuid.New().String()
	}
	if cfg.Clock == nil {
		cfg.Clock = e.clock
	}
	if cfg.Bus == nil {
		cfg.Bus = rules.NewEventBus()
	}

	// Subscribe before construction so the opening deal and round 1
	// events flow through the forwarder too.
	analytics := newGameAnalytics(cfg.GameID, e.clock.Now())
	handle := cfg.Bus.Subscribe(func(evt rules.Event) {
		analytics.track(evt)
		e.logEvent(evt)
		e.emitNotification(notificationFromEvent(evt))
	})

	g, err := NewGame(cfg)
	if err != nil {
		cfg.Bus.Unsubscribe(handle)
		e.logger.Warn("game creation failed",
			zap.String("game_id", cfg.GameID),
			zap.Error(err))
		return nil, err
	}

	e.mu.Lock()
	if _, exists := e.games[cfg.GameID]; exists {
		e.mu.Unlock()
		cfg.Bus.Unsubscribe(handle)
		return nil, stateErrorf("create game", "game %s already exists", cfg.GameID)
	}
	e.games[cfg.GameID] = g
	e.analytics[cfg.GameID] = analytics
	e.forwarders[cfg.GameID] = handle
	e.mu.Unlock()

	if rr := e.recorder(); rr != nil {
		rr.StartRecording(g.ID())
		rr.RecordState(g.ID(), g.Snapshot())
	}

	e.logger.Info("game created",
		zap.String("game_id", g.ID()),
		zap.String("variant", string(g.Rules().Variant)),
		zap.Int("players", len(cfg.Seats)))

	e.notifyGameCreated(g)
	return g, nil
}

// StartGame is the transport-facing shorthand for CreateGame: defaults
// for everything but the roster and rules.
func (e *Engine) StartGame(gameID string, seats []Seat, gameRules Rules) error {
	_, err := e.CreateGame(Config{GameID: gameID, Seats: seats, Rules: gameRules})
	return err
}

// GetGame returns the registered game with the given id.
func (e *Engine) GetGame(gameID string) (*Game, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.games[gameID]
	if !ok {
		return nil, stateErrorf("get game", "game %s not found", gameID)
	}
	return g, nil
}

// ListGames returns the registered game ids in stable order.
func (e *Engine) ListGames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.games))
	for id := range e.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GameCount returns the number of registered games.
func (e *Engine) GameCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.games)
}

// RemoveGame unregisters a finished game. Running games must be
// cancelled first.
func (e *Engine) RemoveGame(gameID string) error {
	e.mu.RLock()
	g, ok := e.games[gameID]
	e.mu.RUnlock()
	if !ok {
		return stateErrorf("remove game", "game %s not found", gameID)
	}

	// Completed and cancelled are terminal, so the check stays valid
	// after the lock is released.
	switch g.Status() {
	case StatusCompleted, StatusCancelled:
	default:
		return stateErrorf("remove game", "game %s is %s", gameID, g.Status())
	}

	e.mu.Lock()
	if e.games[gameID] != g {
		e.mu.Unlock()
		return stateErrorf("remove game", "game %s not found", gameID)
	}
	handle := e.forwarders[gameID]
	delete(e.games, gameID)
	delete(e.analytics, gameID)
	delete(e.forwarders, gameID)
	e.mu.Unlock()

	g.Bus().Unsubscribe(handle)
	if rr := e.recorder(); rr != nil {
		rr.ClearReplay(gameID)
	}
	e.logger.Info("game removed", zap.String("game_id", gameID))
	return nil
}

// PlaceCard places one card for the active player of a game.
func (e *Engine) PlaceCard(gameID, playerID string, card deck.Card, row rules.Row) error {
	g, err := e.GetGame(gameID)
	if err != nil {
		return err
	}
	if err := g.PlaceCard(playerID, card, row); err != nil {
		e.logActionError("place card", gameID, playerID, err)
		return err
	}
	e.captureReplay(g)
	return nil
}

// PlayPineappleTurn resolves a pineapple street for the active player.
func (e *Engine) PlayPineappleTurn(gameID, playerID string, placements []rules.Placement, discard deck.Card) error {
	g, err := e.GetGame(gameID)
	if err != nil {
		return err
	}
	if err := g.PlayPineappleTurn(playerID, placements, discard); err != nil {
		e.logActionError("pineapple turn", gameID, playerID, err)
		return err
	}
	e.captureReplay(g)
	return nil
}

// ApplyInitialPlacement places a player's opening five cards.
func (e *Engine) ApplyInitialPlacement(gameID, playerID string, placements []rules.Placement) error {
	g, err := e.GetGame(gameID)
	if err != nil {
		return err
	}
	if err := g.ApplyInitialPlacement(playerID, placements); err != nil {
		e.logActionError("initial placement", gameID, playerID, err)
		return err
	}
	e.captureReplay(g)
	return nil
}

// SetFantasyLandHand installs a fantasy land player's full layout.
func (e *Engine) SetFantasyLandHand(gameID, playerID string, top, middle, bottom []deck.Card) error {
	g, err := e.GetGame(gameID)
	if err != nil {
		return err
	}
	if err := g.SetFantasyLandHand(playerID, top, middle, bottom); err != nil {
		e.logActionError("set fantasy land hand", gameID, playerID, err)
		return err
	}
	e.captureReplay(g)
	return nil
}

// ProcessAction routes a uniform action envelope to the matching game
// operation. The payload must match the action type.
func (e *Engine) ProcessAction(gameID string, action PlayerAction) error {
	if action.PlayerID == "" {
		return stateErrorf("process action", "action missing player id")
	}

	switch action.ActionType {
	case ActionPlaceCard:
		payload, ok := action.Data.(PlaceCardAction)
		if !ok {
			return stateErrorf("process action", "%s action carries %T payload", action.ActionType, action.Data)
		}
		return e.PlaceCard(gameID, action.PlayerID, payload.Card, payload.Row)
	case ActionPineappleTurn:
		payload, ok := action.Data.(PineappleTurnAction)
		if !ok {
			return stateErrorf("process action", "%s action carries %T payload", action.ActionType, action.Data)
		}
		return e.PlayPineappleTurn(gameID, action.PlayerID, payload.Placements, payload.Discard)
	case ActionInitialPlacement:
		payload, ok := action.Data.(InitialPlacementAction)
		if !ok {
			return stateErrorf("process action", "%s action carries %T payload", action.ActionType, action.Data)
		}
		return e.ApplyInitialPlacement(gameID, action.PlayerID, payload.Placements)
	case ActionSetFantasyHand:
		payload, ok := action.Data.(FantasySetAction)
		if !ok {
			return stateErrorf("process action", "%s action carries %T payload", action.ActionType, action.Data)
		}
		return e.SetFantasyLandHand(gameID, action.PlayerID, payload.Top, payload.Middle, payload.Bottom)
	default:
		return stateErrorf("process action", "unsupported action type %q", action.ActionType)
	}
}

// CancelGame cancels a running game.
func (e *Engine) CancelGame(gameID, reason string) error {
	g, err := e.GetGame(gameID)
	if err != nil {
		return err
	}
	if err := g.Cancel(reason); err != nil {
		return err
	}
	e.captureReplay(g)
	e.logger.Info("game cancelled",
		zap.String("game_id", gameID),
		zap.String("reason", reason))
	return nil
}

// PauseGame suspends a running game.
func (e *Engine) PauseGame(gameID string) error {
	g, err := e.GetGame(gameID)
	if err != nil {
		return err
	}
	if err := g.Pause(); err != nil {
		return err
	}
	e.logger.Info("game paused", zap.String("game_id", gameID))
	return nil
}

// ResumeGame restarts a paused game.
func (e *Engine) ResumeGame(gameID string) error {
	g, err := e.GetGame(gameID)
	if err != nil {
		return err
	}
	if err := g.Resume(); err != nil {
		return err
	}
	e.logger.Info("game resumed", zap.String("game_id", gameID))
	return nil
}

// GameView renders a game for one observer.
func (e *Engine) GameView(gameID, observerID string) (GameView, error) {
	g, err := e.GetGame(gameID)
	if err != nil {
		return GameView{}, err
	}
	return g.View(observerID), nil
}

// GameSnapshot captures a game's full state for persistence.
func (e *Engine) GameSnapshot(gameID string) (GameSnapshot, error) {
	g, err := e.GetGame(gameID)
	if err != nil {
		return GameSnapshot{}, err
	}
	return g.Snapshot(), nil
}

// GameAnalysis returns the per-player rules breakdown of a game: row
// rankings, royalties, progression validity, fantasy land standing.
func (e *Engine) GameAnalysis(gameID string) (map[string]AnalysisPlayer, error) {
	g, err := e.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	return g.Analysis(), nil
}

// GetGameAnalytics returns the tracked metrics for a game.
func (e *Engine) GetGameAnalytics(gameID string) (map[string]interface{}, error) {
	e.mu.RLock()
	analytics, ok := e.analytics[gameID]
	e.mu.RUnlock()
	if !ok {
		return nil, stateErrorf("get game analytics", "game %s not found", gameID)
	}
	return analytics.summary(), nil
}

func (e *Engine) notifyGameCreated(g *Game) {
	e.emitNotification(GameNotification{
		Type:      string(rules.EventGameCreated),
		GameID:    g.ID(),
		Timestamp: e.clock.Now(),
		Data: map[string]interface{}{
			"variant": string(g.Rules().Variant),
			"players": g.PlayerIDs(),
		},
	})
}

func (e *Engine) logEvent(evt rules.Event) {
	e.logger.Debug("game event",
		zap.String("game_id", evt.GameID),
		zap.String("type", string(evt.Type)),
		zap.String("player_id", evt.PlayerID),
		zap.Int("round", evt.Round))
}

func (e *Engine) logActionError(op, gameID, playerID string, err error) {
	e.logger.Warn("action rejected",
		zap.String("op", op),
		zap.String("game_id", gameID),
		zap.String("player_id", playerID),
		zap.Error(err))
}

// notificationFromEvent converts a domain event into the transport
// notification shape.
func notificationFromEvent(evt rules.Event) GameNotification {
	data := map[string]interface{}{
		"round": evt.Round,
	}
	if evt.Card != "" {
		data["card"] = evt.Card
	}
	if evt.Row != "" {
		data["row"] = evt.Row
	}
	if evt.Amount != 0 {
		data["amount"] = evt.Amount
	}
	if evt.Data != "" {
		data["data"] = evt.Data
	}
	return GameNotification{
		Type:      string(evt.Type),
		GameID:    evt.GameID,
		PlayerID:  evt.PlayerID,
		Timestamp: evt.Timestamp,
		Data:      data,
	}
}

// gameAnalytics tracks per-game metrics off the event stream.
type gameAnalytics struct {
	mu              sync.Mutex
	gameID          string
	createdAt       time.Time
	lastEventAt     time.Time
	cardsDealt      int
	cardsPlaced     int
	cardsDiscarded  int
	roundsPlayed    int
	foulCount       int
	fantasyEntries  int
	fantasyStays    int
	actionsByPlayer map[string]int
	completed       bool
	cancelled       bool
	winnerID        string
	winnerTotal     int
}

func newGameAnalytics(gameID string, now time.Time) *gameAnalytics {
	return &gameAnalytics{
		gameID:          gameID,
		createdAt:       now,
		actionsByPlayer: make(map[string]int),
	}
}

func (ga *gameAnalytics) track(evt rules.Event) {
	if ga == nil {
		return
	}
	ga.mu.Lock()
	defer ga.mu.Unlock()

	ga.lastEventAt = evt.Timestamp
	switch evt.Type {
	case rules.EventCardsDealt:
		ga.cardsDealt += evt.Amount
	case rules.EventCardPlaced:
		ga.cardsPlaced++
		ga.actionsByPlayer[evt.PlayerID]++
	case rules.EventCardDiscarded:
		ga.cardsDiscarded++
	case rules.EventRoundCompleted:
		ga.roundsPlayed++
	case rules.EventPlayerFouled:
		ga.foulCount++
	case rules.EventFantasyLandEntered:
		ga.fantasyEntries++
	case rules.EventFantasyLandStayed:
		ga.fantasyStays++
	case rules.EventGameCompleted:
		ga.completed = true
		ga.winnerID = evt.PlayerID
		ga.winnerTotal = evt.Amount
	case rules.EventGameCancelled:
		ga.cancelled = true
	}
}

func (ga *gameAnalytics) summary() map[string]interface{} {
	ga.mu.Lock()
	defer ga.mu.Unlock()

	actions := make(map[string]int, len(ga.actionsByPlayer))
	for id, n := range ga.actionsByPlayer {
		actions[id] = n
	}
	return map[string]interface{}{
		"game_id":           ga.gameID,
		"created_at":        ga.createdAt,
		"last_event_at":     ga.lastEventAt,
		"cards_dealt":       ga.cardsDealt,
		"cards_placed":      ga.cardsPlaced,
		"cards_discarded":   ga.cardsDiscarded,
		"rounds_played":     ga.roundsPlayed,
		"foul_count":        ga.foulCount,
		"fantasy_entries":   ga.fantasyEntries,
		"fantasy_stays":     ga.fantasyStays,
		"actions_by_player": actions,
		"completed":         ga.completed,
		"cancelled":         ga.cancelled,
		"winner_id":         ga.winnerID,
		"winner_total":      ga.winnerTotal,
	}
}
