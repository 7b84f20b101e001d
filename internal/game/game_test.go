package game

import (
	"errors"
	"testing"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
)

// newTestGame builds a seeded game on a mock clock so deals and
// timestamps are reproducible.
func newTestGame(t *testing.T, gameRules Rules, seats ...Seat) *Game {
	t.Helper()
	if len(seats) == 0 {
		seats = []Seat{{ID: "alice"}, {ID: "bob"}}
	}
	g, err := NewGame(Config{
		GameID: "game-1",
		Seats:  seats,
		Rules:  gameRules,
		Clock:  quartz.NewMock(t),
		Seed:   42,
	})
	require.NoError(t, err)
	return g
}

// craftedGame assembles a game around pre-built players, for tests
// that need exact layouts instead of seeded deals.
func craftedGame(t *testing.T, gameRules Rules, players ...*Player) *Game {
	t.Helper()
	order := make([]string, 0, len(players))
	seated := make(map[string]*Player, len(players))
	states := make(map[string]*rules.FantasyLandState, len(players))
	for _, p := range players {
		order = append(order, p.ID())
		seated[p.ID()] = p
		states[p.ID()] = &rules.FantasyLandState{}
	}
	turns, err := rules.NewTurnManager(order)
	require.NoError(t, err)

	evaluator := rules.NewEvaluator()
	g := &Game{
		id:            "crafted",
		rules:         gameRules,
		status:        StatusInProgress,
		players:       seated,
		playerOrder:   order,
		deck:          deck.NewDeck(),
		turns:         turns,
		evaluator:     evaluator,
		fantasy:       rules.NewFantasyLand(evaluator),
		bus:           rules.NewEventBus(),
		clock:         quartz.NewMock(t),
		fantasyStates: states,
	}
	accessor := &stateAccessor{g: g}
	g.checker = rules.NewChecker(accessor)
	g.pineapple = rules.NewPineappleValidator(accessor)
	return g
}

// completePlayer builds a player with a finished layout.
func completePlayer(t *testing.T, id, top, middle, bottom string) *Player {
	t.Helper()
	p := NewPlayer(id, id, rules.NewEvaluator())
	p.applyFantasyLayout(
		deck.MustParseCards(top),
		deck.MustParseCards(middle),
		deck.MustParseCards(bottom),
		nil,
	)
	require.True(t, p.LayoutComplete())
	return p
}

// openPlacements assigns the given cards to open slots, bottom row
// first.
func openPlacements(player *Player, cards []deck.Card) []rules.Placement {
	rows := []rules.Row{rules.RowBottom, rules.RowMiddle, rules.RowTop}
	added := make(map[rules.Row]int, 3)
	placements := make([]rules.Placement, 0, len(cards))
	for _, card := range cards {
		for _, row := range rows {
			filled := len(player.RowCards(row)) + added[row]
			if filled < row.Capacity() {
				placements = append(placements, rules.Placement{
					Card:     card,
					Position: rules.Position{Row: row, Index: filled},
				})
				added[row]++
				break
			}
		}
	}
	return placements
}

// playAnyTurn makes one legal move for the active player.
func playAnyTurn(t *testing.T, g *Game) {
	t.Helper()
	player, err := g.CurrentPlayer()
	require.NoError(t, err)

	hand := player.Hand()
	require.NotEmpty(t, hand, "active player must hold cards")

	if g.Rules().Variant.IsPineapple() {
		if player.PlacedCount() == 0 {
			require.NoError(t, g.ApplyInitialPlacement(player.ID(), openPlacements(player, hand)))
			return
		}
		require.Len(t, hand, 3)
		placements := openPlacements(player, hand[:2])
		require.NoError(t, g.PlayPineappleTurn(player.ID(), placements, hand[2]))
		return
	}

	rows := player.AvailableRows()
	require.NotEmpty(t, rows)
	require.NoError(t, g.PlaceCard(player.ID(), hand[0], rows[len(rows)-1]))
}

// driveToCompletion plays legal moves until the game finishes.
func driveToCompletion(t *testing.T, g *Game) {
	t.Helper()
	for i := 0; i < 100 && g.Status() == StatusInProgress; i++ {
		playAnyTurn(t, g)
	}
	require.Equal(t, StatusCompleted, g.Status(), "game did not finish")
}

// TestNewGameDealsOpeningHands verifies construction deals five cards
// to each seat and starts round 1
func TestNewGameDealsOpeningHands(t *testing.T) {
	g := newTestGame(t, StandardRules())

	assert.Equal(t, StatusInProgress, g.Status())
	assert.Equal(t, 1, g.Round())
	assert.Equal(t, "alice", g.CurrentPlayerID())
	assert.Equal(t, []string{"alice", "bob"}, g.PlayerIDs())

	for _, id := range g.PlayerIDs() {
		p, ok := g.Player(id)
		require.True(t, ok)
		assert.Len(t, p.Hand(), 5)
	}

	snap := g.Snapshot()
	assert.Len(t, snap.DeckRemaining, 42)
}

// TestNewGameRejectsBadConfigs verifies construction errors
func TestNewGameRejectsBadConfigs(t *testing.T) {
	mock := quartz.NewMock(t)

	_, err := NewGame(Config{Seats: []Seat{{ID: "a"}}, Rules: StandardRules(), Clock: mock})
	require.Error(t, err, "one seat is not a game")

	_, err = NewGame(Config{Seats: []Seat{{ID: "a"}, {ID: "a"}}, Rules: StandardRules(), Clock: mock})
	require.Error(t, err, "duplicate seat ids")

	_, err = NewGame(Config{Seats: []Seat{{ID: "a"}, {ID: ""}}, Rules: StandardRules(), Clock: mock})
	require.Error(t, err, "empty seat id")

	_, err = NewGame(Config{
		Seats: []Seat{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
		Rules: PineappleRules(),
		Clock: mock,
	})
	require.Error(t, err, "pineapple cannot deal four players")
}

// TestFantasySeatDealtFullHand verifies a carried-over fantasy land
// seat receives the whole hand up front
func TestFantasySeatDealtFullHand(t *testing.T) {
	g := newTestGame(t, StandardRules(),
		Seat{ID: "alice", InFantasyLand: true},
		Seat{ID: "bob"},
	)

	alice, _ := g.Player("alice")
	bob, _ := g.Player("bob")
	assert.Len(t, alice.Hand(), 13)
	assert.True(t, alice.InFantasyLand())
	assert.Len(t, bob.Hand(), 5)

	state, ok := g.FantasyLandState("alice")
	require.True(t, ok)
	assert.True(t, state.Active)

	snap := g.Snapshot()
	assert.Len(t, snap.DeckRemaining, 52-13-5)
}

// TestPlaceCardEnforcesTurnOrder verifies out-of-turn placements are
// rejected as state errors
func TestPlaceCardEnforcesTurnOrder(t *testing.T) {
	g := newTestGame(t, StandardRules())

	bob, _ := g.Player("bob")
	err := g.PlaceCard("bob", bob.Hand()[0], rules.RowBottom)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGameState))

	err = g.PlaceCard("carol", deck.MustParseCards("As")[0], rules.RowBottom)
	require.Error(t, err, "unknown player")
}

// TestPlaceCardAdvancesTurn verifies placement rotates the turn and
// bumps the version
func TestPlaceCardAdvancesTurn(t *testing.T) {
	g := newTestGame(t, StandardRules())

	alice, _ := g.Player("alice")
	v := g.Version()
	require.NoError(t, g.PlaceCard("alice", alice.Hand()[0], rules.RowBottom))

	assert.Equal(t, "bob", g.CurrentPlayerID())
	assert.Greater(t, g.Version(), v)
	assert.Len(t, alice.Hand(), 4)
}

// TestAutoDealAfterInitialHand verifies the engine deals one card per
// turn once the opening hand runs out
func TestAutoDealAfterInitialHand(t *testing.T) {
	g := newTestGame(t, StandardRules())

	// Both players place their whole opening hand.
	for i := 0; i < 10; i++ {
		playAnyTurn(t, g)
	}

	player, err := g.CurrentPlayer()
	require.NoError(t, err)
	assert.Len(t, player.Hand(), 1, "street deal is one card in standard")
	assert.Equal(t, 6, g.Round())
}

// TestStandardGameCompletes verifies a full two-player game settles
// scores and conserves all 52 cards
func TestStandardGameCompletes(t *testing.T) {
	g := newTestGame(t, StandardRules())
	driveToCompletion(t, g)

	assert.Equal(t, 13, g.Round())
	require.NotNil(t, g.CompletedAt())

	scores := g.FinalScores()
	require.Len(t, scores, 2)
	assert.Contains(t, []string{"alice", "bob"}, g.WinnerID())

	total := 0
	placed := 0
	for _, id := range g.PlayerIDs() {
		p, _ := g.Player(id)
		assert.True(t, p.LayoutComplete())
		placed += p.PlacedCount()
		total += scores[id].Total()
	}
	assert.Equal(t, 0, total, "two-player settlement is zero sum")

	snap := g.Snapshot()
	assert.Equal(t, 52, placed+len(snap.DeckRemaining))

	_, err := g.CurrentPlayer()
	require.Error(t, err, "completed games have no current player")

	err = g.PlaceCard("alice", deck.MustParseCards("As")[0], rules.RowTop)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGameState))
}

// TestPineappleGameCompletes verifies the 3-pick-2 flow: batch initial
// placement, four streets, one discard per street
func TestPineappleGameCompletes(t *testing.T) {
	g := newTestGame(t, PineappleRules())
	driveToCompletion(t, g)

	assert.Equal(t, 5, g.Round(), "initial round plus four streets")

	placed, discarded := 0, 0
	for _, id := range g.PlayerIDs() {
		p, _ := g.Player(id)
		assert.True(t, p.LayoutComplete())
		assert.Len(t, p.Discards(), 4)
		placed += p.PlacedCount()
		discarded += len(p.Discards())
	}
	assert.Equal(t, 8, g.pineapple.DiscardCount())

	snap := g.Snapshot()
	assert.Equal(t, 52, placed+discarded+len(snap.DeckRemaining))
}

// TestPineappleTurnRejectsBadSelections verifies the street action
// validates as a whole
func TestPineappleTurnRejectsBadSelections(t *testing.T) {
	g := newTestGame(t, PineappleRules())

	// Finish the initial round so alice holds a 3-card street.
	playAnyTurn(t, g)
	playAnyTurn(t, g)

	alice, _ := g.Player("alice")
	hand := alice.Hand()
	require.Len(t, hand, 3)

	// Discarding a card that is also placed is rejected.
	placements := openPlacements(alice, hand[:2])
	err := g.PlayPineappleTurn("alice", placements, hand[0])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPlacement))

	// Single placement is rejected.
	err = g.PlayPineappleTurn("alice", placements[:1], hand[2])
	require.Error(t, err)

	// Pineapple streets on a standard game are rejected.
	std := newTestGame(t, StandardRules())
	stdAlice, _ := std.Player("alice")
	err = std.PlayPineappleTurn("alice", openPlacements(stdAlice, stdAlice.Hand()[:2]), stdAlice.Hand()[2])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGameState))
}

// TestInitialPlacementBatch verifies the opening five cards can land as
// one atomic action
func TestInitialPlacementBatch(t *testing.T) {
	g := newTestGame(t, StandardRules())

	alice, _ := g.Player("alice")
	hand := alice.Hand()
	require.NoError(t, g.ApplyInitialPlacement("alice", openPlacements(alice, hand)))

	assert.Equal(t, 5, alice.PlacedCount())
	assert.Empty(t, alice.Hand())
	assert.Equal(t, "bob", g.CurrentPlayerID())

	// A second batch is rejected: cards are already down.
	err := g.ApplyInitialPlacement("alice", openPlacements(alice, hand))
	require.Error(t, err)
}

// TestPauseResume verifies the pause lifecycle gates play
func TestPauseResume(t *testing.T) {
	g := newTestGame(t, StandardRules())

	require.NoError(t, g.Pause())
	assert.Equal(t, StatusPaused, g.Status())

	alice, _ := g.Player("alice")
	err := g.PlaceCard("alice", alice.Hand()[0], rules.RowBottom)
	require.Error(t, err, "paused games accept no placements")

	require.Error(t, g.Pause(), "pausing a paused game")
	require.NoError(t, g.Resume())
	assert.Equal(t, StatusInProgress, g.Status())
	require.Error(t, g.Resume(), "resuming a running game")

	require.NoError(t, g.PlaceCard("alice", alice.Hand()[0], rules.RowBottom))
}

// TestCancel verifies cancellation is terminal and scoreless
func TestCancel(t *testing.T) {
	g := newTestGame(t, StandardRules())

	require.NoError(t, g.Cancel("table closed"))
	assert.Equal(t, StatusCancelled, g.Status())
	assert.Empty(t, g.FinalScores())

	require.Error(t, g.Cancel("again"))
	require.Error(t, g.Resume())

	alice, _ := g.Player("alice")
	err := g.PlaceCard("alice", alice.Hand()[0], rules.RowBottom)
	require.Error(t, err)
}

// TestFantasyLandEntrySweep verifies completion moves qualifying clean
// layouts into fantasy land
func TestFantasyLandEntrySweep(t *testing.T) {
	a := completePlayer(t, "alice",
		"Qs Qh 2c",
		"5s 6s 7s 9s Js",
		"4d 6d 8d Td Ad",
	)
	require.False(t, a.Fouled())
	b := completePlayer(t, "bob",
		"2h 3h 5c",
		"4c 6c 8h 9c Jh",
		"Kc Qc 7h 4h 2s",
	)
	require.False(t, b.Fouled())

	g := craftedGame(t, StandardRules(), a, b)
	g.completeGame()

	assert.Equal(t, StatusCompleted, g.Status())
	assert.True(t, a.InFantasyLand(), "top queens enter fantasy land")
	assert.False(t, b.InFantasyLand())

	state, _ := g.FantasyLandState("alice")
	assert.True(t, state.Active)
	assert.Equal(t, 1, state.EnteredRound)

	assert.Equal(t, "alice", g.WinnerID())
}

// TestFantasyLandStayAndExit verifies sitting players re-qualify or
// drop out at completion
func TestFantasyLandStayAndExit(t *testing.T) {
	stay := completePlayer(t, "alice",
		"Qs Qh 2c",
		"5s 6s 7s 9s Js",
		"4d 6d 8d Td Ad",
	)
	stay.EnterFantasyLand()
	leave := completePlayer(t, "bob",
		"2h 3h 5c",
		"4c 6c 8h 9c Jh",
		"Kc Qc 7h 4h 2s",
	)
	leave.EnterFantasyLand()

	g := craftedGame(t, PineappleRules(), stay, leave)
	g.fantasyStates["alice"].Enter(1)
	g.fantasyStates["bob"].Enter(1)
	g.completeGame()

	assert.True(t, stay.InFantasyLand(), "top queens hold the seat")
	assert.Equal(t, 1, g.fantasyStates["alice"].ConsecutiveStays)

	assert.False(t, leave.InFantasyLand())
	assert.False(t, g.fantasyStates["bob"].Active)
	assert.Equal(t, PlayerStatusActive, leave.Status())
}

// TestSetFantasyLandHand verifies the all-at-once fantasy land setting
// with the pineapple fourteenth card discarded
func TestSetFantasyLandHand(t *testing.T) {
	a := NewPlayer("alice", "alice", rules.NewEvaluator())
	a.EnterFantasyLand()
	dealt := deck.MustParseCards("Qs Qh 2c 5s 6s 7s 9s Js 4d 6d 8d Td Ad 3h")
	require.NoError(t, a.ReceiveFantasyLandCards(dealt, 14))

	b := NewPlayer("bob", "bob", rules.NewEvaluator())
	require.NoError(t, b.ReceiveInitialCards(deck.MustParseCards("2h 4h 5c 6c 8h")))

	g := craftedGame(t, PineappleRules(), a, b)

	err := g.SetFantasyLandHand("bob",
		deck.MustParseCards("2h 4h 5c"), nil, nil)
	require.Error(t, err, "only fantasy land players set whole hands")

	err = g.SetFantasyLandHand("alice",
		deck.MustParseCards("Qs Qh 2c"),
		deck.MustParseCards("5s 6s 7s 9s Js"),
		deck.MustParseCards("4d 6d 8d Td Ac"),
	)
	require.Error(t, err, "Ac was not dealt")

	require.NoError(t, g.SetFantasyLandHand("alice",
		deck.MustParseCards("Qs Qh 2c"),
		deck.MustParseCards("5s 6s 7s 9s Js"),
		deck.MustParseCards("4d 6d 8d Td Ad"),
	))

	assert.True(t, a.LayoutComplete())
	assert.False(t, a.Fouled())
	assert.Equal(t, deck.MustParseCards("3h"), a.Discards())
	assert.True(t, g.pineapple.IsDiscarded(deck.MustParseCards("3h")[0]))
	assert.Equal(t, "bob", g.CurrentPlayerID())
	assert.True(t, a.InFantasyLand(), "seat holds until the hand settles")
}

// TestValidationSummary verifies a fresh game passes every invariant
// check
func TestValidationSummary(t *testing.T) {
	g := newTestGame(t, StandardRules())

	summary := g.ValidationSummary()
	require.NotEmpty(t, summary)
	for name, result := range summary {
		assert.True(t, result.Valid, "check %s failed: %s", name, result.Error)
	}
}

// TestGameEventsFlow verifies the bus carries the lifecycle events in
// order
func TestGameEventsFlow(t *testing.T) {
	bus := rules.NewEventBus()
	var types []rules.EventType
	bus.Subscribe(func(evt rules.Event) {
		types = append(types, evt.Type)
	})

	g, err := NewGame(Config{
		GameID: "game-events",
		Seats:  []Seat{{ID: "alice"}, {ID: "bob"}},
		Rules:  StandardRules(),
		Clock:  quartz.NewMock(t),
		Seed:   7,
		Bus:    bus,
	})
	require.NoError(t, err)

	require.Equal(t, []rules.EventType{
		rules.EventCardsDealt,
		rules.EventCardsDealt,
		rules.EventGameStarted,
		rules.EventRoundStarted,
	}, types)

	types = types[:0]
	alice, _ := g.Player("alice")
	require.NoError(t, g.PlaceCard("alice", alice.Hand()[0], rules.RowBottom))
	require.Equal(t, []rules.EventType{
		rules.EventCardPlaced,
		rules.EventTurnAdvanced,
	}, types)
}
