package game

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
)

// Status represents the lifecycle state of a game.
// Note: these strings must match the status constants in the rules
// package exactly.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusPaused     Status = "PAUSED"
)

// Seat describes one participant joining a game. A seat flagged
// InFantasyLand belongs to a player carrying fantasy land over from the
// previous hand; they are dealt the full fantasy count up front.
type Seat struct {
	ID            string
	Name          string
	InFantasyLand bool
}

// Config carries everything needed to construct a game. Zero values
// get sensible defaults: a random game id, a real clock, a
// clock-seeded deck, and a private event bus.
type Config struct {
	GameID string
	Seats  []Seat
	Rules  Rules
	Clock  quartz.Clock
	Seed   int64
	Bus    *rules.EventBus
}

// Game is the aggregate root for one OFC session: the deck, the seated
// players, the turn rotation, and the completion/scoring flow. All
// mutations go through its methods under the internal lock; reads
// return copies.
type Game struct {
	id    string
	rules Rules

	status      Status
	players     map[string]*Player
	playerOrder []string
	deck        *deck.Deck
	turns       *rules.TurnManager

	evaluator *rules.Evaluator
	fantasy   *rules.FantasyLand
	pineapple *rules.PineappleValidator
	checker   *rules.Checker
	bus       *rules.EventBus
	clock     quartz.Clock

	fantasyStates map[string]*rules.FantasyLandState

	version     int
	startedAt   time.Time
	completedAt *time.Time
	finalScores map[string]Score
	winnerID    string

	mu sync.RWMutex
}

// NewGame constructs and starts a game: validates the configuration,
// seats the players, deals the opening cards, and begins round 1.
// Construction failures are unrecoverable; no partially built game is
// ever returned.
func NewGame(cfg Config) (*Game, error) {
	gameRules := cfg.Rules
	gameRules.PlayerCount = len(cfg.Seats)
	if err := gameRules.Validate(); err != nil {
		return nil, stateErrorf("create game", "%v", err)
	}

	order := make([]string, 0, len(cfg.Seats))
	seen := make(map[string]bool, len(cfg.Seats))
	for _, seat := range cfg.Seats {
		if seat.ID == "" {
			return nil, stateErrorf("create game", "seat with empty player id")
		}
		if seen[seat.ID] {
			return nil, stateErrorf("create game", "duplicate player id %q", seat.ID)
		}
		seen[seat.ID] = true
		order = append(order, seat.ID)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = rules.NewEventBus()
	}
	id := cfg.GameID
	if id == "" {
		id = uuid.New().String()
	}

	var gameDeck *deck.Deck
	if cfg.Seed != 0 {
		gameDeck = deck.NewDeckWithRNG(rand.New(rand.NewSource(cfg.Seed)))
	} else {
		gameDeck = deck.NewDeck()
	}

	turns, err := rules.NewTurnManager(order)
	if err != nil {
		return nil, stateErrorf("create game", "%v", err)
	}

	evaluator := rules.NewEvaluator()
	g := &Game{
		id:            id,
		rules:         gameRules,
		status:        StatusWaiting,
		players:       make(map[string]*Player, len(cfg.Seats)),
		playerOrder:   order,
		deck:          gameDeck,
		turns:         turns,
		evaluator:     evaluator,
		fantasy:       rules.NewFantasyLand(evaluator),
		bus:           bus,
		clock:         clock,
		fantasyStates: make(map[string]*rules.FantasyLandState, len(cfg.Seats)),
	}

	accessor := &stateAccessor{g: g}
	g.checker = rules.NewChecker(accessor)
	g.pineapple = rules.NewPineappleValidator(accessor)

	for _, seat := range cfg.Seats {
		name := seat.Name
		if name == "" {
			name = seat.ID
		}
		player := NewPlayer(seat.ID, name, evaluator)
		state := &rules.FantasyLandState{}
		if seat.InFantasyLand && gameRules.SupportsFantasyLand() {
			player.EnterFantasyLand()
			state.Enter(1)
		}
		g.players[seat.ID] = player
		g.fantasyStates[seat.ID] = state
	}

	if err := g.start(); err != nil {
		return nil, err
	}
	return g, nil
}

// start deals the opening cards and moves the game into progress.
func (g *Game) start() error {
	for _, id := range g.playerOrder {
		player := g.players[id]
		var dealt []deck.Card
		var err error
		if player.InFantasyLand() {
			want := g.rules.FantasyLandCardCount()
			if dealt, err = g.deck.DealN(want); err != nil {
				return stateErrorf("start game", "dealing fantasy hand to %s: %v", id, err)
			}
			if err = player.ReceiveFantasyLandCards(dealt, want); err != nil {
				return err
			}
		} else {
			if dealt, err = g.deck.DealN(g.rules.InitialCardCount()); err != nil {
				return stateErrorf("start game", "dealing to %s: %v", id, err)
			}
			if err = player.ReceiveInitialCards(dealt); err != nil {
				return err
			}
		}
		g.publish(rules.NewEventWithAmount(rules.EventCardsDealt, g.id, id, len(dealt)))
	}

	g.status = StatusInProgress
	g.startedAt = g.clock.Now()
	g.version++

	g.publish(rules.NewEvent(rules.EventGameStarted, g.id, ""))
	g.publishRoundStarted(1)
	return nil
}

// ID returns the game's identity.
func (g *Game) ID() string { return g.id }

// Rules returns the game's rules configuration.
func (g *Game) Rules() Rules { return g.rules }

// Bus returns the game's event bus for subscription.
func (g *Game) Bus() *rules.EventBus { return g.bus }

// Status returns the game's lifecycle state.
func (g *Game) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

// Round returns the current round number (1-based).
func (g *Game) Round() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.turns.Round()
}

// Version returns the mutation counter. A changed version between two
// reads means the state they observed is stale.
func (g *Game) Version() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// StartedAt returns when the game began.
func (g *Game) StartedAt() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.startedAt
}

// CompletedAt returns the completion timestamp, or nil while the game
// is still running.
func (g *Game) CompletedAt() *time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.completedAt == nil {
		return nil
	}
	t := *g.completedAt
	return &t
}

// PlayerIDs returns the seating order.
func (g *Game) PlayerIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.playerOrder))
	copy(out, g.playerOrder)
	return out
}

// Player returns the player with the given id.
func (g *Game) Player(id string) (*Player, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.players[id]
	return p, ok
}

// CurrentPlayer returns the player whose turn it is. Completed games
// have no current player.
func (g *Game) CurrentPlayer() (*Player, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.status == StatusCompleted {
		return nil, stateErrorf("get current player", "game %s is already completed", g.id)
	}
	id := g.turns.ActivePlayer()
	if id == "" {
		return nil, stateErrorf("get current player", "no player has an incomplete layout")
	}
	return g.players[id], nil
}

// CurrentPlayerID returns the active player's id, or "" when every
// layout is complete.
func (g *Game) CurrentPlayerID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.turns.ActivePlayer()
}

// FinalScores returns the settled scores once the game has completed.
func (g *Game) FinalScores() map[string]Score {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]Score, len(g.finalScores))
	for id, s := range g.finalScores {
		out[id] = s
	}
	return out
}

// WinnerID returns the winning player's id once the game has completed.
func (g *Game) WinnerID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.winnerID
}

// FantasyLandState returns a copy of the player's fantasy land state.
func (g *Game) FantasyLandState(playerID string) (rules.FantasyLandState, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	state, ok := g.fantasyStates[playerID]
	if !ok {
		return rules.FantasyLandState{}, false
	}
	return *state, true
}

// ValidateLayout checks a player's current layout. Unknown players are
// invalid.
func (g *Game) ValidateLayout(playerID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	player, ok := g.players[playerID]
	if !ok {
		return false
	}
	return player.ValidateLayout()
}

// ValidationSummary re-derives every game invariant and returns the
// named check results.
func (g *Game) ValidationSummary() map[string]rules.ValidationResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.checker.Summary()
}

// ValidatePlacement is the advisory placement probe: it reports whether
// the placement would be accepted, without mutating anything.
func (g *Game) ValidatePlacement(playerID string, card deck.Card, row rules.Row) rules.ValidationResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.checker.ValidatePlacement(playerID, card, row)
}

// PlaceCard places one card from the player's hand into a row. The
// placement must come from the active player; it advances the turn,
// deals the next street when due, and drives round and game completion.
func (g *Game) PlaceCard(playerID string, card deck.Card, row rules.Row) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireInProgress("place card"); err != nil {
		return err
	}
	player, ok := g.players[playerID]
	if !ok {
		return stateErrorf("place card", "player %s not in game", playerID)
	}
	if active := g.turns.ActivePlayer(); active != playerID {
		return stateErrorf("place card", "it's not player %s's turn", playerID)
	}
	if !row.Valid() {
		return placementErrorf(playerID, card, row, "unknown row")
	}
	if !player.CanPlaceCard(card, row) {
		return placementErrorf(playerID, card, row, "card not held or row full")
	}

	if err := player.PlaceCard(card, row); err != nil {
		return err
	}
	g.version++
	g.publish(rules.NewCardEvent(rules.EventCardPlaced, g.id, playerID, card.Code(), row.String()))

	g.afterAction(player)
	return nil
}

// PlayPineappleTurn resolves one pineapple street atomically: of the
// three dealt cards, two are placed and one is discarded. The action
// validates as a whole and counts as a single turn.
func (g *Game) PlayPineappleTurn(playerID string, placements []rules.Placement, discard deck.Card) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireInProgress("pineapple turn"); err != nil {
		return err
	}
	if !g.rules.Variant.IsPineapple() {
		return stateErrorf("pineapple turn", "variant %s does not deal pineapple streets", g.rules.Variant)
	}
	player, ok := g.players[playerID]
	if !ok {
		return stateErrorf("pineapple turn", "player %s not in game", playerID)
	}
	if active := g.turns.ActivePlayer(); active != playerID {
		return stateErrorf("pineapple turn", "it's not player %s's turn", playerID)
	}

	action := rules.PineappleAction{
		PlayerID:   playerID,
		Dealt:      player.Hand(),
		Placements: placements,
		Discard:    discard,
	}
	if res := g.pineapple.ValidatePineappleAction(action); !res.Valid {
		return placementErrorf(playerID, discard, 0, "%s", res.Error)
	}

	for _, pl := range placements {
		if err := player.PlaceCard(pl.Card, pl.Position.Row); err != nil {
			return err
		}
	}
	if err := player.DiscardFromPool(discard); err != nil {
		return err
	}
	g.pineapple.TrackDiscard(discard)
	g.version++

	for _, pl := range placements {
		g.publish(rules.NewCardEvent(rules.EventCardPlaced, g.id, playerID, pl.Card.Code(), pl.Position.Row.String()))
	}
	g.publish(rules.NewCardEvent(rules.EventCardDiscarded, g.id, playerID, discard.Code(), ""))

	g.afterAction(player)
	return nil
}

// ApplyInitialPlacement places the whole opening deal in one atomic
// action: five cards into five distinct open slots.
func (g *Game) ApplyInitialPlacement(playerID string, placements []rules.Placement) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireInProgress("initial placement"); err != nil {
		return err
	}
	player, ok := g.players[playerID]
	if !ok {
		return stateErrorf("initial placement", "player %s not in game", playerID)
	}
	if active := g.turns.ActivePlayer(); active != playerID {
		return stateErrorf("initial placement", "it's not player %s's turn", playerID)
	}
	if player.PlacedCount() != 0 {
		return stateErrorf("initial placement", "player %s has already placed cards", playerID)
	}

	for _, pl := range placements {
		if !player.holds(pl.Card) {
			return placementErrorf(playerID, pl.Card, pl.Position.Row, "card not held")
		}
	}
	res := g.pineapple.ValidateInitialPlacement(rules.InitialPlacement{
		PlayerID:   playerID,
		Placements: placements,
	})
	if !res.Valid {
		return placementErrorf(playerID, deck.Card{}, 0, "%s", res.Error)
	}

	for _, pl := range placements {
		if err := player.PlaceCard(pl.Card, pl.Position.Row); err != nil {
			return err
		}
		g.publish(rules.NewCardEvent(rules.EventCardPlaced, g.id, playerID, pl.Card.Code(), pl.Position.Row.String()))
	}
	g.version++

	g.afterAction(player)
	return nil
}

// SetFantasyLandHand installs a fantasy land player's complete layout
// in one action. Pineapple deals fourteen and places thirteen; the
// leftover card is discarded face down.
func (g *Game) SetFantasyLandHand(playerID string, top, middle, bottom []deck.Card) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.requireInProgress("set fantasy land hand"); err != nil {
		return err
	}
	player, ok := g.players[playerID]
	if !ok {
		return stateErrorf("set fantasy land hand", "player %s not in game", playerID)
	}
	if !player.InFantasyLand() {
		return stateErrorf("set fantasy land hand", "player %s is not in fantasy land", playerID)
	}
	if active := g.turns.ActivePlayer(); active != playerID {
		return stateErrorf("set fantasy land hand", "it's not player %s's turn", playerID)
	}

	dealt := player.Hand()
	if err := g.fantasy.ValidateFantasyPlacement(dealt, top, middle, bottom, g.rules.Variant); err != nil {
		return stateErrorf("set fantasy land hand", "%v", err)
	}

	placed := make(map[deck.Card]bool, 13)
	for _, c := range top {
		placed[c] = true
	}
	for _, c := range middle {
		placed[c] = true
	}
	for _, c := range bottom {
		placed[c] = true
	}
	leftover := make([]deck.Card, 0, 1)
	for _, c := range dealt {
		if !placed[c] {
			leftover = append(leftover, c)
		}
	}

	player.applyFantasyLayout(top, middle, bottom, leftover)
	for _, c := range leftover {
		g.pineapple.TrackDiscard(c)
		g.publish(rules.NewCardEvent(rules.EventCardDiscarded, g.id, playerID, c.Code(), ""))
	}
	g.version++

	g.afterAction(player)
	return nil
}

// Cancel ends a running game without scores.
func (g *Game) Cancel(reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusInProgress {
		return stateErrorf("cancel game", "game %s is %s", g.id, g.status)
	}
	g.status = StatusCancelled
	g.version++

	evt := rules.NewEvent(rules.EventGameCancelled, g.id, "")
	evt.Data = reason
	g.publish(evt)
	return nil
}

// Pause suspends a running game.
func (g *Game) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusInProgress {
		return stateErrorf("pause game", "game %s is %s", g.id, g.status)
	}
	g.status = StatusPaused
	g.version++
	g.publish(rules.NewEvent(rules.EventGamePaused, g.id, ""))
	return nil
}

// Resume restarts a paused game.
func (g *Game) Resume() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusPaused {
		return stateErrorf("resume game", "game %s is %s", g.id, g.status)
	}
	g.status = StatusInProgress
	g.version++
	g.publish(rules.NewEvent(rules.EventGameResumed, g.id, ""))
	return nil
}

// afterAction runs the shared post-mutation flow: round bookkeeping,
// turn advancement, street dealing, and completion checks. Callers hold
// the lock.
func (g *Game) afterAction(player *Player) {
	g.turns.MarkPlaced(player.ID())

	if player.LayoutComplete() {
		g.turns.MarkComplete(player.ID())
		g.publish(rules.NewEvent(rules.EventLayoutCompleted, g.id, player.ID()))
		if player.Fouled() {
			g.publish(rules.NewEvent(rules.EventPlayerFouled, g.id, player.ID()))
		}
	}

	if g.turns.AllComplete() {
		g.completeGame()
		return
	}

	roundDone := g.turns.RoundComplete()
	if roundDone {
		g.publish(rules.NewEvent(rules.EventRoundCompleted, g.id, ""))
	}

	next := g.turns.Advance()
	if roundDone {
		round := g.turns.BeginRound()
		for _, id := range g.playerOrder {
			g.players[id].StartNewRound()
		}
		g.publishRoundStarted(round)
	}
	if next != "" {
		g.publish(rules.NewEvent(rules.EventTurnAdvanced, g.id, next))
		g.autoDeal(g.players[next])
	}
}

// autoDeal serves the incoming player their street cards once their
// hand is empty. Fantasy land players were dealt everything up front.
func (g *Game) autoDeal(player *Player) {
	if player.InFantasyLand() || player.LayoutComplete() {
		return
	}
	if len(player.Hand()) > 0 {
		return
	}

	n := g.rules.CardsPerTurn()
	if g.deck.CardsRemaining() < n {
		return
	}
	if player.PlacedCount()+n > 13+discardAllowance(n) {
		return
	}

	cards, err := g.deck.DealN(n)
	if err != nil {
		return
	}
	if err := player.ReceiveCards(cards); err != nil {
		return
	}
	g.version++
	g.publish(rules.NewEventWithAmount(rules.EventCardsDealt, g.id, player.ID(), len(cards)))
}

// completeGame freezes the finished game: fantasy land transitions,
// completion timestamp, settled scores, winner. Callers hold the lock.
func (g *Game) completeGame() {
	if g.status == StatusCompleted {
		return
	}

	g.sweepFantasyLand()

	now := g.clock.Now()
	g.completedAt = &now
	g.status = StatusCompleted
	g.finalScores = g.computeScores()
	g.winnerID = winnerOf(g.finalScores, g.playerOrder)
	g.version++

	winnerTotal := g.finalScores[g.winnerID].Total()
	g.publish(rules.NewEventWithAmount(rules.EventScoresSettled, g.id, g.winnerID, winnerTotal))

	completed := rules.NewEventWithAmount(rules.EventGameCompleted, g.id, g.winnerID, winnerTotal)
	if encoded, err := json.Marshal(g.finalScores); err == nil {
		completed.Data = string(encoded)
	}
	completed.Metadata["duration_seconds"] = durationSeconds(g.startedAt, now)
	g.publish(completed)
}

// sweepFantasyLand applies the end-of-hand fantasy land transitions:
// clean qualifying layouts enter, sitting players who miss the stay
// threshold exit.
func (g *Game) sweepFantasyLand() {
	if !g.rules.SupportsFantasyLand() {
		return
	}

	round := g.turns.Round()
	for _, id := range g.playerOrder {
		player := g.players[id]
		state := g.fantasyStates[id]
		if state == nil {
			state = &rules.FantasyLandState{}
			g.fantasyStates[id] = state
		}

		if player.InFantasyLand() {
			stay := false
			if player.LayoutComplete() && !player.Fouled() {
				stay, _ = g.fantasy.CheckStayQualification(player.Top(), player.Middle(), player.Bottom(), g.rules.Variant)
			}
			if stay {
				state.Enter(round)
				g.publish(rules.NewEvent(rules.EventFantasyLandStayed, g.id, id))
			} else {
				state.Exit()
				player.ExitFantasyLand()
				g.publish(rules.NewEvent(rules.EventFantasyLandExited, g.id, id))
			}
			continue
		}

		if !player.LayoutComplete() || player.Fouled() {
			continue
		}

		var qualified bool
		if g.rules.Variant.IsPineapple() {
			qualified, _ = g.fantasy.CheckEntryQualification(player.Top())
		} else {
			qualified, _ = g.fantasy.EntryQualifiesByAnyRow(player.Top(), player.Middle(), player.Bottom())
		}
		if qualified {
			state.Enter(round)
			player.EnterFantasyLand()
			g.publish(rules.NewEvent(rules.EventFantasyLandEntered, g.id, id))
		}
	}
}

func (g *Game) requireInProgress(op string) error {
	switch g.status {
	case StatusInProgress:
		return nil
	case StatusCompleted:
		return stateErrorf(op, "game %s is already completed", g.id)
	case StatusPaused:
		return stateErrorf(op, "game %s is paused", g.id)
	case StatusCancelled:
		return stateErrorf(op, "game %s was cancelled", g.id)
	default:
		return stateErrorf(op, "game %s has not started", g.id)
	}
}

func (g *Game) publishRoundStarted(round int) {
	evt := rules.NewEvent(rules.EventRoundStarted, g.id, g.turns.ActivePlayer())
	evt.Round = round
	evt.Amount = g.deck.CardsRemaining()
	g.publish(evt)
}

func (g *Game) publish(evt rules.Event) {
	evt.ID = uuid.New().String()
	if evt.Round == 0 {
		evt.Round = g.turns.Round()
	}
	evt.Timestamp = g.clock.Now()
	g.bus.Publish(evt)
}

func durationSeconds(from, to time.Time) string {
	return to.Sub(from).Round(time.Second).String()
}

// stateAccessor adapts the aggregate to the read-only interface the
// rules checkers consume. Its methods run under the game's lock.
type stateAccessor struct {
	g *Game
}

func (a *stateAccessor) GameID() string             { return a.g.id }
func (a *stateAccessor) GameStatus() string         { return string(a.g.status) }
func (a *stateAccessor) GameVariant() rules.Variant { return a.g.rules.Variant }
func (a *stateAccessor) CurrentRound() int          { return a.g.turns.Round() }
func (a *stateAccessor) CurrentPlayer() string      { return a.g.turns.ActivePlayer() }
func (a *stateAccessor) DeckRemaining() []deck.Card { return a.g.deck.Remaining() }

func (a *stateAccessor) PlayerIDs() []string {
	out := make([]string, len(a.g.playerOrder))
	copy(out, a.g.playerOrder)
	return out
}

func (a *stateAccessor) PlayerState(playerID string) (rules.PlayerState, bool) {
	player, ok := a.g.players[playerID]
	if !ok {
		return rules.PlayerState{}, false
	}
	return player.State(), true
}
