package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/openfacepoker/ofc-server-go/internal/config"
	"github.com/openfacepoker/ofc-server-go/internal/deck"
	"github.com/openfacepoker/ofc-server-go/internal/game"
	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
)

// GameEngine is the engine surface the websocket gateway drives.
// Both game.Engine and game.NullEngine satisfy it.
type GameEngine interface {
	StartGame(gameID string, seats []game.Seat, gameRules game.Rules) error
	ProcessAction(gameID string, action game.PlayerAction) error
	GameView(gameID, observerID string) (game.GameView, error)
	CancelGame(gameID, reason string) error
	PauseGame(gameID string) error
	ResumeGame(gameID string) error
	SetNotificationHandler(game.NotificationHandler)
}

// Client message types.
const (
	MsgCreateGame       = "create_game"
	MsgJoinView         = "join_view"
	MsgGetView          = "get_view"
	MsgGetAnalytics     = "get_analytics"
	MsgGetAnalysis      = "get_analysis"
	MsgPlaceCard        = "place_card"
	MsgPineappleTurn    = "pineapple_turn"
	MsgInitialPlacement = "initial_placement"
	MsgSetFantasyHand   = "set_fantasy_hand"
	MsgPauseGame        = "pause_game"
	MsgResumeGame       = "resume_game"
	MsgCancelGame       = "cancel_game"
)

// Server message types.
const (
	MsgGameCreated = "game_created"
	MsgGameState   = "game_state"
	MsgAnalytics   = "analytics"
	MsgAnalysis    = "analysis"
	MsgEvent       = "event"
	MsgError       = "error"
)

// Message is the wire envelope for client requests. Data stays raw
// until the message type selects a payload shape.
type Message struct {
	Type     string          `json:"type"`
	GameID   string          `json:"game_id,omitempty"`
	PlayerID string          `json:"player_id,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Response is the wire envelope for replies and fanned-out events.
type Response struct {
	Type     string      `json:"type"`
	GameID   string      `json:"game_id,omitempty"`
	PlayerID string      `json:"player_id,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// ErrorPayload carries the reason of a rejected request.
type ErrorPayload struct {
	Error string `json:"error"`
}

// EventPayload carries one engine notification to watching clients.
type EventPayload struct {
	Event     string                 `json:"event"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// CreateGameRequest is the payload for create_game. An empty variant
// uses the server default, an empty game id gets a generated one.
type CreateGameRequest struct {
	GameID  string     `json:"game_id,omitempty"`
	Variant string     `json:"variant,omitempty"`
	Seats   []SeatSpec `json:"seats"`
}

// SeatSpec names one player in a create_game request.
type SeatSpec struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	FantasyLand bool   `json:"fantasy_land,omitempty"`
}

// PlacementSpec is one card-to-row assignment in wire form.
type PlacementSpec struct {
	Card string `json:"card"`
	Row  string `json:"row"`
}

// PlaceCardRequest is the payload for place_card.
type PlaceCardRequest struct {
	Card string `json:"card"`
	Row  string `json:"row"`
}

// PineappleTurnRequest is the payload for pineapple_turn.
type PineappleTurnRequest struct {
	Placements []PlacementSpec `json:"placements"`
	Discard    string          `json:"discard"`
}

// InitialPlacementRequest is the payload for initial_placement.
type InitialPlacementRequest struct {
	Placements []PlacementSpec `json:"placements"`
}

// FantasyHandRequest is the payload for set_fantasy_hand. Each row is
// a card list such as "Qs Qh 9d".
type FantasyHandRequest struct {
	Top    string `json:"top"`
	Middle string `json:"middle"`
	Bottom string `json:"bottom"`
}

// CancelGameRequest is the payload for cancel_game.
type CancelGameRequest struct {
	Reason string `json:"reason,omitempty"`
}

const clientSendBuffer = 256

// Server is the websocket gateway in front of a game engine. Clients
// exchange JSON envelopes over a single connection; engine events fan
// out to every client watching the game they concern.
type Server struct {
	cfg      *config.Config
	engine   GameEngine
	logger   *zap.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu      sync.RWMutex
	clients map[*client]bool
}

// New creates a websocket server over the given engine and registers
// itself as the engine's notification handler.
func New(cfg *config.Config, engine GameEngine, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.Server.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.Server.WebSocket.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[*client]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.httpSrv = &http.Server{
		Addr:              cfg.Server.WebSocket.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	engine.SetNotificationHandler(s.ForwardNotification)
	return s
}

// Start serves websocket connections until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("websocket server listening",
		zap.String("address", s.cfg.Server.WebSocket.Address))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket server: %w", err)
	}
	return nil
}

// Shutdown stops the listener and closes every client connection.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)

	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()

	return err
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleWebSocket upgrades the request and serves the client until the
// connection drops.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:    conn,
		send:    make(chan []byte, clientSendBuffer),
		watched: make(map[string]bool),
	}
	s.register(c)

	go c.writePump(s.writeTimeout())
	s.readPump(c)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) writeTimeout() time.Duration {
	if t := s.cfg.Server.WebSocket.WriteTimeout; t > 0 {
		return t
	}
	return 10 * time.Second
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c] = true
	s.mu.Unlock()
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
}

// readPump decodes envelopes off the connection and dispatches them.
// It owns the connection: when it returns the client is gone.
func (s *Server) readPump(c *client) {
	defer func() {
		s.unregister(c)
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.respondError(c, Message{}, fmt.Sprintf("malformed message: %v", err))
			continue
		}
		s.dispatch(c, msg)
	}
}

// dispatch routes one client message. Every path answers the client:
// either the requested state or an error envelope.
func (s *Server) dispatch(c *client, msg Message) {
	var err error
	switch msg.Type {
	case MsgCreateGame:
		err = s.handleCreateGame(c, msg)
	case MsgJoinView:
		err = s.handleJoinView(c, msg)
	case MsgGetView:
		err = s.respondView(c, msg, MsgGameState)
	case MsgGetAnalytics:
		err = s.handleGetAnalytics(c, msg)
	case MsgGetAnalysis:
		err = s.handleGetAnalysis(c, msg)
	case MsgPlaceCard:
		err = s.handlePlaceCard(c, msg)
	case MsgPineappleTurn:
		err = s.handlePineappleTurn(c, msg)
	case MsgInitialPlacement:
		err = s.handleInitialPlacement(c, msg)
	case MsgSetFantasyHand:
		err = s.handleSetFantasyHand(c, msg)
	case MsgPauseGame:
		if err = s.engine.PauseGame(msg.GameID); err == nil {
			err = s.respondView(c, msg, MsgGameState)
		}
	case MsgResumeGame:
		if err = s.engine.ResumeGame(msg.GameID); err == nil {
			err = s.respondView(c, msg, MsgGameState)
		}
	case MsgCancelGame:
		err = s.handleCancelGame(c, msg)
	default:
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}

	if err != nil {
		s.respondError(c, msg, err.Error())
	}
}

func (s *Server) handleCreateGame(c *client, msg Message) error {
	var req CreateGameRequest
	if err := decodePayload(msg.Data, &req); err != nil {
		return err
	}
	if len(req.Seats) == 0 {
		return errors.New("create_game needs at least one seat")
	}

	if counter, ok := s.engine.(interface{ GameCount() int }); ok {
		if max := s.cfg.Server.MaxGames; max > 0 && counter.GameCount() >= max {
			return fmt.Errorf("server at capacity (%d games)", max)
		}
	}

	gameRules, err := s.rulesFor(req.Variant)
	if err != nil {
		return err
	}
	gameRules.PlayerCount = len(req.Seats)

	seats := make([]game.Seat, 0, len(req.Seats))
	for _, spec := range req.Seats {
		if spec.ID == "" {
			return errors.New("seat without player id")
		}
		seats = append(seats, game.Seat{
			ID:            spec.ID,
			Name:          spec.Name,
			InFantasyLand: spec.FantasyLand,
		})
	}

	gameID := req.GameID
	if gameID == "" {
		gameID = uuid.New().String()
	}

	if err := s.engine.StartGame(gameID, seats, gameRules); err != nil {
		return err
	}
	c.watch(gameID)

	s.logger.Info("game created over websocket",
		zap.String("game_id", gameID),
		zap.String("variant", string(gameRules.Variant)),
		zap.Int("players", len(seats)))

	created := msg
	created.GameID = gameID
	return s.respondView(c, created, MsgGameCreated)
}

func (s *Server) handleJoinView(c *client, msg Message) error {
	if msg.GameID == "" {
		return errors.New("join_view needs a game id")
	}
	if err := s.respondView(c, msg, MsgGameState); err != nil {
		return err
	}
	c.watch(msg.GameID)
	return nil
}

func (s *Server) handleGetAnalytics(c *client, msg Message) error {
	provider, ok := s.engine.(interface {
		GetGameAnalytics(gameID string) (map[string]interface{}, error)
	})
	if !ok {
		return errors.New("engine does not report analytics")
	}
	summary, err := provider.GetGameAnalytics(msg.GameID)
	if err != nil {
		return err
	}
	s.respond(c, Response{Type: MsgAnalytics, GameID: msg.GameID, Data: summary})
	return nil
}

func (s *Server) handleGetAnalysis(c *client, msg Message) error {
	provider, ok := s.engine.(interface {
		GameAnalysis(gameID string) (map[string]game.AnalysisPlayer, error)
	})
	if !ok {
		return errors.New("engine does not report layout analysis")
	}
	analysis, err := provider.GameAnalysis(msg.GameID)
	if err != nil {
		return err
	}
	s.respond(c, Response{Type: MsgAnalysis, GameID: msg.GameID, Data: analysis})
	return nil
}

func (s *Server) handlePlaceCard(c *client, msg Message) error {
	var req PlaceCardRequest
	if err := decodePayload(msg.Data, &req); err != nil {
		return err
	}
	card, err := deck.ParseCard(req.Card)
	if err != nil {
		return err
	}
	row, err := rules.ParseRow(req.Row)
	if err != nil {
		return err
	}

	if err := s.processAction(msg, game.ActionPlaceCard, game.PlaceCardAction{Card: card, Row: row}); err != nil {
		return err
	}
	return s.respondView(c, msg, MsgGameState)
}

func (s *Server) handlePineappleTurn(c *client, msg Message) error {
	var req PineappleTurnRequest
	if err := decodePayload(msg.Data, &req); err != nil {
		return err
	}
	placements, err := parsePlacements(req.Placements)
	if err != nil {
		return err
	}
	discard, err := deck.ParseCard(req.Discard)
	if err != nil {
		return err
	}

	payload := game.PineappleTurnAction{Placements: placements, Discard: discard}
	if err := s.processAction(msg, game.ActionPineappleTurn, payload); err != nil {
		return err
	}
	return s.respondView(c, msg, MsgGameState)
}

func (s *Server) handleInitialPlacement(c *client, msg Message) error {
	var req InitialPlacementRequest
	if err := decodePayload(msg.Data, &req); err != nil {
		return err
	}
	placements, err := parsePlacements(req.Placements)
	if err != nil {
		return err
	}

	payload := game.InitialPlacementAction{Placements: placements}
	if err := s.processAction(msg, game.ActionInitialPlacement, payload); err != nil {
		return err
	}
	return s.respondView(c, msg, MsgGameState)
}

func (s *Server) handleSetFantasyHand(c *client, msg Message) error {
	var req FantasyHandRequest
	if err := decodePayload(msg.Data, &req); err != nil {
		return err
	}
	top, err := deck.ParseCards(req.Top)
	if err != nil {
		return fmt.Errorf("top row: %w", err)
	}
	middle, err := deck.ParseCards(req.Middle)
	if err != nil {
		return fmt.Errorf("middle row: %w", err)
	}
	bottom, err := deck.ParseCards(req.Bottom)
	if err != nil {
		return fmt.Errorf("bottom row: %w", err)
	}

	payload := game.FantasySetAction{Top: top, Middle: middle, Bottom: bottom}
	if err := s.processAction(msg, game.ActionSetFantasyHand, payload); err != nil {
		return err
	}
	return s.respondView(c, msg, MsgGameState)
}

func (s *Server) handleCancelGame(c *client, msg Message) error {
	var req CancelGameRequest
	if len(msg.Data) > 0 {
		if err := decodePayload(msg.Data, &req); err != nil {
			return err
		}
	}
	if req.Reason == "" {
		req.Reason = "cancelled by client"
	}
	if err := s.engine.CancelGame(msg.GameID, req.Reason); err != nil {
		return err
	}
	return s.respondView(c, msg, MsgGameState)
}

func (s *Server) processAction(msg Message, actionType string, payload interface{}) error {
	if msg.PlayerID == "" {
		return errors.New("action needs a player id")
	}
	return s.engine.ProcessAction(msg.GameID, game.PlayerAction{
		PlayerID:   msg.PlayerID,
		ActionType: actionType,
		Data:       payload,
		Timestamp:  time.Now(),
	})
}

// respondView answers with the observer-filtered view of the game.
func (s *Server) respondView(c *client, msg Message, responseType string) error {
	view, err := s.engine.GameView(msg.GameID, msg.PlayerID)
	if err != nil {
		return err
	}
	s.respond(c, Response{
		Type:     responseType,
		GameID:   msg.GameID,
		PlayerID: msg.PlayerID,
		Data:     view,
	})
	return nil
}

func (s *Server) respondError(c *client, msg Message, reason string) {
	s.respond(c, Response{
		Type:     MsgError,
		GameID:   msg.GameID,
		PlayerID: msg.PlayerID,
		Data:     ErrorPayload{Error: reason},
	})
}

func (s *Server) respond(c *client, resp Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", zap.Error(err))
		return
	}
	if !c.enqueue(payload) {
		s.logger.Warn("dropping response for slow client",
			zap.String("type", resp.Type),
			zap.String("game_id", resp.GameID))
	}
}

// ForwardNotification fans one engine notification out to every client
// watching that game. New registers it as the engine's handler; callers
// composing their own handler chain can invoke it directly.
func (s *Server) ForwardNotification(n game.GameNotification) {
	payload, err := json.Marshal(Response{
		Type:     MsgEvent,
		GameID:   n.GameID,
		PlayerID: n.PlayerID,
		Data: EventPayload{
			Event:     n.Type,
			Timestamp: n.Timestamp,
			Data:      n.Data,
		},
	})
	if err != nil {
		s.logger.Error("marshal notification", zap.Error(err))
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		if !c.watching(n.GameID) {
			continue
		}
		if !c.enqueue(payload) {
			s.logger.Warn("dropping event for slow client",
				zap.String("event", n.Type),
				zap.String("game_id", n.GameID))
		}
	}
}

// rulesFor maps a wire variant name onto a rule set. The config's
// default variant fills in when the request leaves it empty.
func (s *Server) rulesFor(variant string) (game.Rules, error) {
	name := strings.ToLower(strings.TrimSpace(variant))
	if name == "" {
		name = s.cfg.Game.DefaultVariant
	}

	var gameRules game.Rules
	switch rules.Variant(name) {
	case rules.VariantStandard:
		gameRules = game.StandardRules()
	case rules.VariantPineapple:
		gameRules = game.PineappleRules()
	case rules.Variant27Pine:
		gameRules = game.PineappleRules()
		gameRules.Variant = rules.Variant27Pine
	default:
		return game.Rules{}, fmt.Errorf("unknown variant %q", variant)
	}

	if s.cfg.Game.TimeLimitSeconds > 0 {
		gameRules.TimeLimitSeconds = s.cfg.Game.TimeLimitSeconds
	}
	return gameRules, nil
}

func decodePayload(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("bad payload: %w", err)
	}
	return nil
}

// parsePlacements turns wire placements into engine placements. Slot
// indexes are assigned in batch order per row; capacity checks count
// cards, not slot identities.
func parsePlacements(specs []PlacementSpec) ([]rules.Placement, error) {
	placements := make([]rules.Placement, 0, len(specs))
	fill := make(map[rules.Row]int, 3)
	for _, spec := range specs {
		card, err := deck.ParseCard(spec.Card)
		if err != nil {
			return nil, err
		}
		row, err := rules.ParseRow(spec.Row)
		if err != nil {
			return nil, err
		}
		placements = append(placements, rules.Placement{
			Card:     card,
			Position: rules.Position{Row: row, Index: fill[row]},
		})
		fill[row]++
	}
	return placements, nil
}

// client is one websocket connection. Writes go through the buffered
// send channel so the read loop and event fan-out never write the
// connection concurrently.
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu      sync.RWMutex
	watched map[string]bool
}

func (c *client) watch(gameID string) {
	c.mu.Lock()
	c.watched[gameID] = true
	c.mu.Unlock()
}

func (c *client) watching(gameID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.watched[gameID]
}

func (c *client) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// writePump drains the send channel onto the connection. It exits when
// the channel closes on unregister and leaves closing the connection
// to the read side.
func (c *client) writePump(timeout time.Duration) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
