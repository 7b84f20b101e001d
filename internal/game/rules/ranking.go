package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
)

// HandType classifies a poker hand from weakest to strongest. The
// ordering spans both the 3-card and 5-card scales, so rankings from
// different rows compare directly. A royal flush is the ace-high
// straight flush; royalty tables special-case it, ranking does not.
type HandType int

const (
	HighCard HandType = iota
	Pair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
	StraightFlush
)

var handTypeNames = map[HandType]string{
	HighCard:      "HIGH_CARD",
	Pair:          "PAIR",
	TwoPair:       "TWO_PAIR",
	Trips:         "THREE_OF_A_KIND",
	Straight:      "STRAIGHT",
	Flush:         "FLUSH",
	FullHouse:     "FULL_HOUSE",
	Quads:         "FOUR_OF_A_KIND",
	StraightFlush: "STRAIGHT_FLUSH",
}

func (h HandType) String() string {
	if name, ok := handTypeNames[h]; ok {
		return name
	}
	return fmt.Sprintf("HAND_TYPE_%d", int(h))
}

// Row identifies one of the three OFC rows. Bottom must rank strongest
// and Top weakest among a player's rows.
type Row int

const (
	RowTop Row = iota
	RowMiddle
	RowBottom
)

var rowNames = map[Row]string{
	RowTop:    "TOP",
	RowMiddle: "MIDDLE",
	RowBottom: "BOTTOM",
}

func (r Row) String() string {
	if name, ok := rowNames[r]; ok {
		return name
	}
	return fmt.Sprintf("ROW_%d", int(r))
}

// Capacity returns the number of cards the row holds when complete
func (r Row) Capacity() int {
	if r == RowTop {
		return 3
	}
	return 5
}

// Valid reports whether r is one of the three OFC rows
func (r Row) Valid() bool {
	return r >= RowTop && r <= RowBottom
}

// Rows returns the three rows in Top/Middle/Bottom order
func Rows() []Row {
	return []Row{RowTop, RowMiddle, RowBottom}
}

// ParseRow parses a row name such as "top" or "BOTTOM"
func ParseRow(s string) (Row, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TOP":
		return RowTop, nil
	case "MIDDLE":
		return RowMiddle, nil
	case "BOTTOM":
		return RowBottom, nil
	default:
		return 0, fmt.Errorf("invalid row %q", s)
	}
}

// Variant selects the OFC rule set in play
type Variant string

const (
	VariantStandard  Variant = "standard"
	VariantPineapple Variant = "pineapple"
	Variant27Pine    Variant = "2-7-pineapple"
)

// Valid reports whether the variant is a known rule set
func (v Variant) Valid() bool {
	return v == VariantStandard || v == VariantPineapple || v == Variant27Pine
}

// IsPineapple reports whether the variant deals three cards per street
func (v Variant) IsPineapple() bool {
	return v == VariantPineapple || v == Variant27Pine
}

// Ranking is the totally ordered strength of an evaluated 3- or 5-card
// hand. Strength packs the hand type and tiebreak ranks into a single
// int, so comparison is one integer compare:
//
//	type<<20 | primary<<16 | kicker nibbles, strongest first
//
// Royalty holds the row-independent royalty for the hand (3-card hands
// score on the top-row table, 5-card hands on the standard five-card
// table); position- and variant-aware royalties come from
// Evaluator.Royalty.
type Ranking struct {
	Type     HandType
	Primary  deck.Rank
	Kickers  []deck.Rank
	Strength int
	Royalty  int
}

// String renders the ranking for logs and views, e.g. "PAIR (A high)"
func (r Ranking) String() string {
	return fmt.Sprintf("%s (%s high)", r.Type, r.Primary)
}

func packStrength(t HandType, primary deck.Rank, kickers []deck.Rank) int {
	s := int(t)<<20 | int(primary)<<16
	shift := 12
	for _, k := range kickers {
		s |= int(k) << shift
		shift -= 4
	}
	return s
}

// Evaluator ranks OFC hands, computes royalties, and checks row
// progression. It is stateless and safe for concurrent use; construct
// one and inject it wherever rankings are needed.
type Evaluator struct{}

// NewEvaluator creates a hand evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate ranks a 3- or 5-card hand. Any other count, or a repeated
// card, is an error; the evaluator never coerces malformed hands.
func (e *Evaluator) Evaluate(cards []deck.Card) (Ranking, error) {
	n := len(cards)
	if n != 3 && n != 5 {
		return Ranking{}, fmt.Errorf("hand must contain 3 or 5 cards, got %d", n)
	}

	seen := make(map[deck.Card]bool, n)
	counts := make(map[deck.Rank]int, n)
	for _, c := range cards {
		if seen[c] {
			return Ranking{}, fmt.Errorf("duplicate card %s in hand", c.Code())
		}
		seen[c] = true
		counts[c.Rank]++
	}

	groups := rankGroups(counts)

	var ranking Ranking
	if n == 3 {
		ranking = classifyThree(groups)
	} else {
		flush := sameSuit(cards)
		straight, high := straightHigh(counts)
		ranking = classifyFive(groups, flush, straight, high)
	}

	ranking.Strength = packStrength(ranking.Type, ranking.Primary, ranking.Kickers)
	ranking.Royalty = baseRoyalty(ranking, n)
	return ranking, nil
}

// EvaluateForRow ranks a complete row and attaches the royalty for that
// row under the given variant. The card count must match the row's
// capacity.
func (e *Evaluator) EvaluateForRow(cards []deck.Card, row Row, variant Variant) (Ranking, error) {
	if !row.Valid() {
		return Ranking{}, fmt.Errorf("invalid row %d", int(row))
	}
	if len(cards) != row.Capacity() {
		return Ranking{}, fmt.Errorf("%s row requires %d cards, got %d", row, row.Capacity(), len(cards))
	}

	ranking, err := e.Evaluate(cards)
	if err != nil {
		return Ranking{}, err
	}
	ranking.Royalty = e.Royalty(ranking, row, variant)
	return ranking, nil
}

// Compare orders two rankings: -1 if a is weaker, 1 if stronger, 0 if
// equal. The packed strength makes this a single integer compare.
func (e *Evaluator) Compare(a, b Ranking) int {
	switch {
	case a.Strength < b.Strength:
		return -1
	case a.Strength > b.Strength:
		return 1
	default:
		return 0
	}
}

// ValidProgression checks the OFC row constraint: bottom strictly
// stronger than middle, middle strictly stronger than top. Equal
// strength at either boundary fouls. Rows must be complete (3/5/5).
func (e *Evaluator) ValidProgression(top, middle, bottom []deck.Card) (bool, error) {
	if len(top) != 3 {
		return false, fmt.Errorf("top row requires 3 cards, got %d", len(top))
	}
	if len(middle) != 5 {
		return false, fmt.Errorf("middle row requires 5 cards, got %d", len(middle))
	}
	if len(bottom) != 5 {
		return false, fmt.Errorf("bottom row requires 5 cards, got %d", len(bottom))
	}

	topRank, err := e.Evaluate(top)
	if err != nil {
		return false, err
	}
	midRank, err := e.Evaluate(middle)
	if err != nil {
		return false, err
	}
	botRank, err := e.Evaluate(bottom)
	if err != nil {
		return false, err
	}

	return e.Compare(botRank, midRank) > 0 && e.Compare(midRank, topRank) > 0, nil
}

// IsFouled reports whether a complete layout violates row progression.
// Partial layouts never foul.
func (e *Evaluator) IsFouled(top, middle, bottom []deck.Card) bool {
	ok, err := e.ValidProgression(top, middle, bottom)
	if err != nil {
		return false
	}
	return !ok
}

type rankGroup struct {
	rank  deck.Rank
	count int
}

// rankGroups orders rank multiplicities by count then rank, both
// descending, so the defining group always sorts first.
func rankGroups(counts map[deck.Rank]int) []rankGroup {
	groups := make([]rankGroup, 0, len(counts))
	for rank, count := range counts {
		groups = append(groups, rankGroup{rank: rank, count: count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})
	return groups
}

func sameSuit(cards []deck.Card) bool {
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			return false
		}
	}
	return true
}

// straightHigh detects a 5-card straight from rank counts. The wheel
// A-2-3-4-5 is the one hand where the ace plays low; its high card is
// the five.
func straightHigh(counts map[deck.Rank]int) (bool, deck.Rank) {
	if len(counts) != 5 {
		return false, 0
	}

	ranks := make([]deck.Rank, 0, 5)
	for rank := range counts {
		ranks = append(ranks, rank)
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] > ranks[j] })

	if ranks[0]-ranks[4] == 4 {
		return true, ranks[0]
	}
	if ranks[0] == deck.Ace && ranks[1] == deck.Five && ranks[1]-ranks[4] == 3 {
		return true, deck.Five
	}
	return false, 0
}

func classifyThree(groups []rankGroup) Ranking {
	switch groups[0].count {
	case 3:
		return Ranking{Type: Trips, Primary: groups[0].rank}
	case 2:
		return Ranking{
			Type:    Pair,
			Primary: groups[0].rank,
			Kickers: []deck.Rank{groups[1].rank},
		}
	default:
		return Ranking{
			Type:    HighCard,
			Primary: groups[0].rank,
			Kickers: []deck.Rank{groups[1].rank, groups[2].rank},
		}
	}
}

func classifyFive(groups []rankGroup, flush, straight bool, high deck.Rank) Ranking {
	if straight && flush {
		return Ranking{Type: StraightFlush, Primary: high}
	}
	if groups[0].count == 4 {
		return Ranking{
			Type:    Quads,
			Primary: groups[0].rank,
			Kickers: []deck.Rank{groups[1].rank},
		}
	}
	if groups[0].count == 3 && groups[1].count == 2 {
		return Ranking{
			Type:    FullHouse,
			Primary: groups[0].rank,
			Kickers: []deck.Rank{groups[1].rank},
		}
	}
	if flush {
		return Ranking{
			Type:    Flush,
			Primary: groups[0].rank,
			Kickers: groupRanks(groups[1:]),
		}
	}
	if straight {
		return Ranking{Type: Straight, Primary: high}
	}
	if groups[0].count == 3 {
		return Ranking{
			Type:    Trips,
			Primary: groups[0].rank,
			Kickers: groupRanks(groups[1:]),
		}
	}
	if groups[0].count == 2 && groups[1].count == 2 {
		return Ranking{
			Type:    TwoPair,
			Primary: groups[0].rank,
			Kickers: []deck.Rank{groups[1].rank, groups[2].rank},
		}
	}
	if groups[0].count == 2 {
		return Ranking{
			Type:    Pair,
			Primary: groups[0].rank,
			Kickers: groupRanks(groups[1:]),
		}
	}
	return Ranking{
		Type:    HighCard,
		Primary: groups[0].rank,
		Kickers: groupRanks(groups[1:]),
	}
}

func groupRanks(groups []rankGroup) []deck.Rank {
	ranks := make([]deck.Rank, len(groups))
	for i, g := range groups {
		ranks[i] = g.rank
	}
	return ranks
}
