package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
)

func newTestPlayer(t *testing.T) *Player {
	t.Helper()
	return NewPlayer("p1", "Player One", rules.NewEvaluator())
}

// dealInitial gives the player a known opening hand.
func dealInitial(t *testing.T, p *Player, codes string) {
	t.Helper()
	require.NoError(t, p.ReceiveInitialCards(deck.MustParseCards(codes)))
}

// TestReceiveInitialCards verifies the opening deal is exactly five
// cards, exactly once
func TestReceiveInitialCards(t *testing.T) {
	p := newTestPlayer(t)

	err := p.ReceiveInitialCards(deck.MustParseCards("As Ks Qs"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGameState))

	dealInitial(t, p, "As Ks Qs Js Ts")
	assert.Len(t, p.Hand(), 5)

	err = p.ReceiveInitialCards(deck.MustParseCards("2c 3c 4c 5c 6c"))
	require.Error(t, err, "second opening deal must be rejected")
}

// TestPlaceCardMovesFromHand verifies placement moves the card out of
// the hand and into the row
func TestPlaceCardMovesFromHand(t *testing.T) {
	p := newTestPlayer(t)
	dealInitial(t, p, "As Ks Qs Js Ts")

	v := p.Version()
	require.NoError(t, p.PlaceCard(deck.MustParseCards("As")[0], rules.RowBottom))

	assert.Len(t, p.Hand(), 4)
	assert.Equal(t, deck.MustParseCards("As"), p.Bottom())
	assert.Equal(t, 1, p.PlacedCount())
	assert.True(t, p.HasPlacedThisRound())
	assert.Greater(t, p.Version(), v)
}

// TestPlaceCardRejectsUnheldCard verifies a card outside the player's
// pool cannot be placed
func TestPlaceCardRejectsUnheldCard(t *testing.T) {
	p := newTestPlayer(t)
	dealInitial(t, p, "As Ks Qs Js Ts")

	err := p.PlaceCard(deck.MustParseCards("2c")[0], rules.RowBottom)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPlacement))
}

// TestPlaceCardRejectsFullRow verifies row capacity is enforced
func TestPlaceCardRejectsFullRow(t *testing.T) {
	p := newTestPlayer(t)
	dealInitial(t, p, "2c 3c 4c 5c 6c")

	for _, code := range []string{"2c", "3c", "4c"} {
		require.NoError(t, p.PlaceCard(deck.MustParseCards(code)[0], rules.RowTop))
	}

	err := p.PlaceCard(deck.MustParseCards("5c")[0], rules.RowTop)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPlacement))
	assert.False(t, p.CanPlaceCard(deck.MustParseCards("5c")[0], rules.RowTop))
}

// TestDiscardFromPool verifies discarding removes the card from the
// hand and records it
func TestDiscardFromPool(t *testing.T) {
	p := newTestPlayer(t)
	dealInitial(t, p, "As Ks Qs Js Ts")

	require.NoError(t, p.DiscardFromPool(deck.MustParseCards("Ts")[0]))
	assert.Len(t, p.Hand(), 4)
	assert.Equal(t, deck.MustParseCards("Ts"), p.Discards())

	err := p.DiscardFromPool(deck.MustParseCards("2c")[0])
	require.Error(t, err, "cannot discard a card the player does not hold")
}

// TestReceiveCardsCapacity verifies street deals cannot push the pool
// past what a layout can absorb
func TestReceiveCardsCapacity(t *testing.T) {
	p := newTestPlayer(t)
	dealInitial(t, p, "2c 3c 4c 5c 6c")

	require.NoError(t, p.ReceiveCards(deck.MustParseCards("7c 8c 9c")))
	require.NoError(t, p.ReceiveCards(deck.MustParseCards("2d 3d 4d")))
	require.NoError(t, p.ReceiveCards(deck.MustParseCards("5d 6d 7d")))

	err := p.ReceiveCards(deck.MustParseCards("8d 9d Td"))
	require.Error(t, err, "a fourth street would overflow the layout")
	assert.True(t, errors.Is(err, ErrGameState))
}

// TestFoulDetectionOnCompletion verifies a completed layout that breaks
// row progression flips the player to fouled
func TestFoulDetectionOnCompletion(t *testing.T) {
	p := newTestPlayer(t)

	// Top pair of aces over a middle pair of twos fouls.
	p.applyFantasyLayout(
		deck.MustParseCards("As Ah Kc"),
		deck.MustParseCards("2s 2h 4c 5c 7h"),
		deck.MustParseCards("3s 3h 8c 9c Jh"),
		nil,
	)

	assert.True(t, p.LayoutComplete())
	assert.True(t, p.Fouled())
	assert.False(t, p.ValidateLayout())
	assert.Equal(t, 0, p.Royalties(rules.VariantStandard), "fouled layouts earn nothing")
}

// TestCleanLayoutRoyalties verifies royalties sum across rows for a
// valid layout
func TestCleanLayoutRoyalties(t *testing.T) {
	p := newTestPlayer(t)

	// Top QQ = 7, middle and bottom pairs earn nothing.
	p.applyFantasyLayout(
		deck.MustParseCards("Qs Qh 2c"),
		deck.MustParseCards("Ks Kh 4d 5d 9h"),
		deck.MustParseCards("Ac Ad 6h 7h Jc"),
		nil,
	)

	assert.True(t, p.LayoutComplete())
	assert.False(t, p.Fouled())
	assert.True(t, p.ValidateLayout())
	assert.Equal(t, 7, p.Royalties(rules.VariantStandard))
}

// TestFantasyLandDealFlow verifies the all-at-once fantasy land deal
func TestFantasyLandDealFlow(t *testing.T) {
	p := newTestPlayer(t)

	cards := deck.MustParseCards("As Ah Kc Qs Qh 2c 3c 4c 5c 6c 7c 8c 9c")
	err := p.ReceiveFantasyLandCards(cards, 13)
	require.Error(t, err, "deal requires fantasy land status")

	p.EnterFantasyLand()
	assert.Equal(t, PlayerStatusFantasyLand, p.Status())

	err = p.ReceiveFantasyLandCards(cards[:12], 13)
	require.Error(t, err, "short deal must be rejected")

	require.NoError(t, p.ReceiveFantasyLandCards(cards, 13))
	assert.Len(t, p.Hand(), 13)

	err = p.ReceiveFantasyLandCards(cards, 13)
	require.Error(t, err, "double deal must be rejected")
}

// TestExitFantasyLand verifies exiting restores active status but
// never clears a foul
func TestExitFantasyLand(t *testing.T) {
	p := newTestPlayer(t)
	p.EnterFantasyLand()
	p.ExitFantasyLand()
	assert.False(t, p.InFantasyLand())
	assert.Equal(t, PlayerStatusActive, p.Status())

	fouled := newTestPlayer(t)
	fouled.EnterFantasyLand()
	fouled.applyFantasyLayout(
		deck.MustParseCards("As Ah Kc"),
		deck.MustParseCards("2s 2h 4c 5c 7h"),
		deck.MustParseCards("3s 3h 8c 9c Jh"),
		nil,
	)
	require.True(t, fouled.Fouled())

	fouled.ExitFantasyLand()
	assert.False(t, fouled.InFantasyLand())
	assert.Equal(t, PlayerStatusFouled, fouled.Status(), "foul survives leaving fantasy land")
}

// TestAvailableRows verifies rows drop out as they fill
func TestAvailableRows(t *testing.T) {
	p := newTestPlayer(t)
	dealInitial(t, p, "2c 3c 4c 5c 6c")

	assert.Equal(t, []rules.Row{rules.RowTop, rules.RowMiddle, rules.RowBottom}, p.AvailableRows())

	for _, code := range []string{"2c", "3c", "4c"} {
		require.NoError(t, p.PlaceCard(deck.MustParseCards(code)[0], rules.RowTop))
	}
	assert.Equal(t, []rules.Row{rules.RowMiddle, rules.RowBottom}, p.AvailableRows())
}

// TestStateSnapshot verifies the rules-facing state reflects the
// player's pools
func TestStateSnapshot(t *testing.T) {
	p := newTestPlayer(t)
	dealInitial(t, p, "As Ks Qs Js Ts")
	require.NoError(t, p.PlaceCard(deck.MustParseCards("As")[0], rules.RowBottom))

	state := p.State()
	assert.Equal(t, "p1", state.PlayerID)
	assert.Len(t, state.Hand, 4)
	assert.Equal(t, deck.MustParseCards("As"), state.Bottom)
	assert.False(t, state.InFantasyLand)
}
