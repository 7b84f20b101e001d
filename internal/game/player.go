package game

import (
	"github.com/openfacepoker/ofc-server-go/internal/deck"
	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
)

// PlayerStatus represents a player's standing within a game.
type PlayerStatus string

const (
	PlayerStatusActive      PlayerStatus = "ACTIVE"
	PlayerStatusFouled      PlayerStatus = "FOULED"
	PlayerStatusFantasyLand PlayerStatus = "FANTASY_LAND"
	PlayerStatusEliminated  PlayerStatus = "ELIMINATED"
)

// Player owns one participant's three rows and held cards. All methods
// mutate local state only; the owning Game serializes access and drives
// cross-player effects. A completed layout is validated immediately and
// fouls on a broken progression.
type Player struct {
	id     string
	name   string
	status PlayerStatus

	top    []deck.Card
	middle []deck.Card
	bottom []deck.Card

	hand     []deck.Card
	discards []deck.Card

	placedThisRound bool

	inFantasyLand bool
	fantasyCards  []deck.Card

	version   int
	evaluator *rules.Evaluator
}

// NewPlayer creates a player with an empty layout. The evaluator is
// shared and stateless; the Game injects one instance for all players.
func NewPlayer(id, name string, evaluator *rules.Evaluator) *Player {
	return &Player{
		id:        id,
		name:      name,
		status:    PlayerStatusActive,
		top:       make([]deck.Card, 0, 3),
		middle:    make([]deck.Card, 0, 5),
		bottom:    make([]deck.Card, 0, 5),
		hand:      make([]deck.Card, 0, 5),
		evaluator: evaluator,
	}
}

// ID returns the player's identity.
func (p *Player) ID() string { return p.id }

// Name returns the player's display name.
func (p *Player) Name() string { return p.name }

// Status returns the player's current standing.
func (p *Player) Status() PlayerStatus { return p.status }

// Version returns the player's mutation counter.
func (p *Player) Version() int { return p.version }

// Fouled reports whether the player's completed layout broke row
// progression.
func (p *Player) Fouled() bool { return p.status == PlayerStatusFouled }

// InFantasyLand reports whether the player is playing a fantasy hand.
func (p *Player) InFantasyLand() bool { return p.inFantasyLand }

// Top returns a copy of the top row.
func (p *Player) Top() []deck.Card { return copyCards(p.top) }

// Middle returns a copy of the middle row.
func (p *Player) Middle() []deck.Card { return copyCards(p.middle) }

// Bottom returns a copy of the bottom row.
func (p *Player) Bottom() []deck.Card { return copyCards(p.bottom) }

// Hand returns a copy of the held, unplaced cards. Fantasy land deals
// are reported here too; they are held cards like any others.
func (p *Player) Hand() []deck.Card {
	out := make([]deck.Card, 0, len(p.hand)+len(p.fantasyCards))
	out = append(out, p.hand...)
	out = append(out, p.fantasyCards...)
	return out
}

// Discards returns a copy of the player's discarded cards.
func (p *Player) Discards() []deck.Card { return copyCards(p.discards) }

// RowCards returns a copy of the cards in the given row.
func (p *Player) RowCards(row rules.Row) []deck.Card {
	switch row {
	case rules.RowTop:
		return copyCards(p.top)
	case rules.RowMiddle:
		return copyCards(p.middle)
	case rules.RowBottom:
		return copyCards(p.bottom)
	default:
		return nil
	}
}

// PlacedCount returns the number of cards placed across all rows.
func (p *Player) PlacedCount() int {
	return len(p.top) + len(p.middle) + len(p.bottom)
}

// LayoutComplete reports whether all 13 cards are placed.
func (p *Player) LayoutComplete() bool {
	return p.PlacedCount() == 13
}

// HasPlacedThisRound reports whether the player has acted this round.
func (p *Player) HasPlacedThisRound() bool { return p.placedThisRound }

// StartNewRound clears the acted-this-round flag.
func (p *Player) StartNewRound() { p.placedThisRound = false }

// ReceiveInitialCards accepts the opening five-card deal. The deal is
// one-shot: a second deal, or one of the wrong size, is a state error.
func (p *Player) ReceiveInitialCards(cards []deck.Card) error {
	if len(p.hand) > 0 {
		return stateErrorf("receive initial cards", "player %s already holds cards", p.id)
	}
	if len(cards) != 5 {
		return stateErrorf("receive initial cards", "initial deal must be exactly 5 cards, got %d", len(cards))
	}
	p.hand = append(p.hand, cards...)
	p.version++
	return nil
}

// ReceiveCards accepts a street deal into the hand pool. Fantasy land
// players bank incoming cards in their fantasy pool instead.
func (p *Player) ReceiveCards(cards []deck.Card) error {
	if p.PlacedCount()+len(p.Hand())+len(cards) > 13+discardAllowance(len(cards)) {
		return stateErrorf("receive cards", "player %s cannot use %d more cards", p.id, len(cards))
	}
	if p.inFantasyLand {
		p.fantasyCards = append(p.fantasyCards, cards...)
	} else {
		p.hand = append(p.hand, cards...)
	}
	p.version++
	return nil
}

// discardAllowance is how many of an incoming street deal may legally
// end up discarded rather than placed: pineapple streets deal three and
// discard one, single-card streets discard nothing.
func discardAllowance(dealt int) int {
	if dealt == 3 {
		return 1
	}
	return 0
}

// ReceiveFantasyLandCards accepts the whole fantasy land deal at once.
func (p *Player) ReceiveFantasyLandCards(cards []deck.Card, want int) error {
	if !p.inFantasyLand {
		return stateErrorf("receive fantasy land cards", "player %s is not in fantasy land", p.id)
	}
	if len(p.fantasyCards) > 0 {
		return stateErrorf("receive fantasy land cards", "player %s already holds a fantasy deal", p.id)
	}
	if len(cards) != want {
		return stateErrorf("receive fantasy land cards", "fantasy deal must be exactly %d cards, got %d", want, len(cards))
	}
	p.fantasyCards = append(p.fantasyCards, cards...)
	p.version++
	return nil
}

// CanPlaceCard reports whether the card is held and the row has room.
func (p *Player) CanPlaceCard(card deck.Card, row rules.Row) bool {
	if !p.holds(card) {
		return false
	}
	switch row {
	case rules.RowTop:
		return len(p.top) < 3
	case rules.RowMiddle:
		return len(p.middle) < 5
	case rules.RowBottom:
		return len(p.bottom) < 5
	default:
		return false
	}
}

// PlaceCard moves a held card into a row. Placing the thirteenth card
// validates the finished layout and fouls the player if the rows are
// out of order.
func (p *Player) PlaceCard(card deck.Card, row rules.Row) error {
	if !p.CanPlaceCard(card, row) {
		return placementErrorf(p.id, card, row, "card not held or row full")
	}

	p.removeFromPool(card)
	switch row {
	case rules.RowTop:
		p.top = append(p.top, card)
	case rules.RowMiddle:
		p.middle = append(p.middle, card)
	case rules.RowBottom:
		p.bottom = append(p.bottom, card)
	}

	p.placedThisRound = true
	p.version++

	if p.LayoutComplete() && !p.ValidateLayout() {
		p.status = PlayerStatusFouled
	}
	return nil
}

// DiscardFromPool removes a held card without placing it. The card
// stays attributed to the player for card-conservation accounting.
func (p *Player) DiscardFromPool(card deck.Card) error {
	if !p.holds(card) {
		return stateErrorf("discard", "player %s does not hold %s", p.id, card.Code())
	}
	p.removeFromPool(card)
	p.discards = append(p.discards, card)
	p.version++
	return nil
}

// ValidateLayout checks the current layout. Partial layouts are always
// valid; a complete layout must rank bottom over middle over top.
func (p *Player) ValidateLayout() bool {
	if !p.LayoutComplete() {
		return true
	}
	ok, err := p.evaluator.ValidProgression(p.top, p.middle, p.bottom)
	if err != nil {
		return false
	}
	return ok
}

// AvailableRows returns the rows still accepting cards, in
// top/middle/bottom order.
func (p *Player) AvailableRows() []rules.Row {
	out := make([]rules.Row, 0, 3)
	if len(p.top) < 3 {
		out = append(out, rules.RowTop)
	}
	if len(p.middle) < 5 {
		out = append(out, rules.RowMiddle)
	}
	if len(p.bottom) < 5 {
		out = append(out, rules.RowBottom)
	}
	return out
}

// Royalties sums the player's row royalties for the variant. Incomplete
// layouts earn nothing; fouled layouts are zeroed by the scorer, not
// here.
func (p *Player) Royalties(variant rules.Variant) int {
	if !p.LayoutComplete() {
		return 0
	}

	total := 0
	for _, row := range rules.Rows() {
		ranking, err := p.evaluator.EvaluateForRow(p.RowCards(row), row, variant)
		if err != nil {
			return 0
		}
		total += ranking.Royalty
	}
	return total
}

// EnterFantasyLand moves the player into fantasy land.
func (p *Player) EnterFantasyLand() {
	p.inFantasyLand = true
	p.status = PlayerStatusFantasyLand
	p.version++
}

// ExitFantasyLand returns the player to normal play and drops any
// pending fantasy deal. A fouled status survives the exit.
func (p *Player) ExitFantasyLand() {
	p.inFantasyLand = false
	if p.status == PlayerStatusFantasyLand {
		p.status = PlayerStatusActive
	}
	p.fantasyCards = nil
	p.version++
}

// State snapshots the player into the accessor form the rules checkers
// consume.
func (p *Player) State() rules.PlayerState {
	return rules.PlayerState{
		PlayerID:      p.id,
		Top:           p.Top(),
		Middle:        p.Middle(),
		Bottom:        p.Bottom(),
		Hand:          p.Hand(),
		Discards:      p.Discards(),
		Fouled:        p.Fouled(),
		InFantasyLand: p.inFantasyLand,
	}
}

// applyFantasyLayout installs a validated full fantasy land setting:
// rows wholesale, leftovers discarded, pools cleared. The caller has
// already checked the cards against the deal.
func (p *Player) applyFantasyLayout(top, middle, bottom, leftover []deck.Card) {
	p.top = copyCards(top)
	p.middle = copyCards(middle)
	p.bottom = copyCards(bottom)
	p.discards = append(p.discards, leftover...)
	p.fantasyCards = nil
	p.hand = nil
	p.placedThisRound = true
	p.version++

	if !p.ValidateLayout() {
		p.status = PlayerStatusFouled
	}
}

func (p *Player) holds(card deck.Card) bool {
	for _, c := range p.hand {
		if c == card {
			return true
		}
	}
	for _, c := range p.fantasyCards {
		if c == card {
			return true
		}
	}
	return false
}

func (p *Player) removeFromPool(card deck.Card) {
	for i, c := range p.hand {
		if c == card {
			p.hand = append(p.hand[:i], p.hand[i+1:]...)
			return
		}
	}
	for i, c := range p.fantasyCards {
		if c == card {
			p.fantasyCards = append(p.fantasyCards[:i], p.fantasyCards[i+1:]...)
			return
		}
	}
}

func copyCards(cards []deck.Card) []deck.Card {
	out := make([]deck.Card, len(cards))
	copy(out, cards)
	return out
}
