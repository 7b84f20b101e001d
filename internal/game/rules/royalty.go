package rules

import "github.com/openfacepoker/ofc-server-go/internal/deck"

// Royalty tables. The five-card table applies to Middle and Bottom in
// the standard game and to Bottom in Pineapple; Pineapple pays a richer
// schedule for the Middle row and scales Top trips by rank. A royal
// flush is the ace-high straight flush and earns its own payout.

var standardFiveCard = map[HandType]int{
	Straight:      2,
	Flush:         4,
	FullHouse:     6,
	Quads:         10,
	StraightFlush: 15,
}

var pineappleMiddle = map[HandType]int{
	Trips:         2,
	Straight:      4,
	Flush:         8,
	FullHouse:     12,
	Quads:         20,
	StraightFlush: 30,
}

const (
	standardRoyalFlush   = 25
	pineappleMiddleRoyal = 50
	topTripsStandard     = 10
)

// Royalty returns the royalty bonus for a ranking in a given row under
// a given variant. Hands below the row's qualifying threshold pay
// nothing: Top needs a pair of sixes, five-card rows need at least the
// weakest hand in their table.
func (e *Evaluator) Royalty(r Ranking, row Row, variant Variant) int {
	if row == RowTop {
		return topRoyalty(r, variant)
	}

	if variant.IsPineapple() && row == RowMiddle {
		if r.Type == StraightFlush && r.Primary == deck.Ace {
			return pineappleMiddleRoyal
		}
		return pineappleMiddle[r.Type]
	}

	return fiveCardRoyalty(r)
}

func topRoyalty(r Ranking, variant Variant) int {
	switch r.Type {
	case Trips:
		if variant.IsPineapple() {
			// 222 pays 10, each rank above adds one, up to 22 for AAA
			return topTripsStandard + int(r.Primary-deck.Two)
		}
		return topTripsStandard
	case Pair:
		if r.Primary >= deck.Six {
			return int(r.Primary) - 5
		}
	}
	return 0
}

func fiveCardRoyalty(r Ranking) int {
	if r.Type == StraightFlush && r.Primary == deck.Ace {
		return standardRoyalFlush
	}
	return standardFiveCard[r.Type]
}

// baseRoyalty is the row-independent royalty attached by Evaluate:
// 3-card hands score on the standard top-row schedule, 5-card hands on
// the standard five-card schedule.
func baseRoyalty(r Ranking, cardCount int) int {
	if cardCount == 3 {
		return topRoyalty(r, VariantStandard)
	}
	return fiveCardRoyalty(r)
}
