package rules

import (
	"testing"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
)

func TestTopRowRoyalties(t *testing.T) {
	tests := []struct {
		cards   string
		variant Variant
		want    int
	}{
		// Pairs below sixes earn nothing.
		{"2s 2h Kd", VariantStandard, 0},
		{"5s 5h Ad", VariantStandard, 0},
		// Sixes start the schedule at 1 and it climbs by rank.
		{"6s 6h Kd", VariantStandard, 1},
		{"9s 9h 2d", VariantStandard, 4},
		{"Qs Qh 2d", VariantStandard, 7},
		{"Ks Kh 2d", VariantStandard, 8},
		{"As Ah Kd", VariantStandard, 9},
		// Standard trips pay a flat 10.
		{"2s 2h 2d", VariantStandard, 10},
		{"As Ah Ad", VariantStandard, 10},
		// Pineapple trips scale with rank, 222 pays 10 up to AAA at 22.
		{"2s 2h 2d", VariantPineapple, 10},
		{"7s 7h 7d", VariantPineapple, 15},
		{"Ks Kh Kd", VariantPineapple, 21},
		{"As Ah Ad", VariantPineapple, 22},
		// Pineapple pairs follow the standard schedule.
		{"As Ah Kd", VariantPineapple, 9},
		// High card never pays.
		{"As Kh Qd", VariantStandard, 0},
	}

	e := NewEvaluator()
	for _, tt := range tests {
		ranking, err := e.EvaluateForRow(deck.MustParseCards(tt.cards), RowTop, tt.variant)
		if err != nil {
			t.Fatalf("EvaluateForRow(%s): %v", tt.cards, err)
		}
		if ranking.Royalty != tt.want {
			t.Errorf("%s %s royalty = %d, want %d", tt.cards, tt.variant, ranking.Royalty, tt.want)
		}
	}
}

func TestFiveCardRoyalties(t *testing.T) {
	tests := []struct {
		name    string
		cards   string
		row     Row
		variant Variant
		want    int
	}{
		{"straight pays 2 on the bottom", "9s 8h 7d 6c 5s", RowBottom, VariantStandard, 2},
		{"wheel pays like any straight", "As 2h 3d 4c 5s", RowBottom, VariantStandard, 2},
		{"flush pays 4", "Ad Td 8d 5d 3d", RowBottom, VariantStandard, 4},
		{"full house pays 6", "5s 5h 5c 2d 2s", RowBottom, VariantStandard, 6},
		{"quads pay 10", "9s 9h 9d 9c 2s", RowBottom, VariantStandard, 10},
		{"straight flush pays 15", "Kh Qh Jh Th 9h", RowBottom, VariantStandard, 15},
		{"royal flush pays 25", "As Ks Qs Js Ts", RowBottom, VariantStandard, 25},
		{"trips pay nothing in five-card rows", "7s 7h 7d Kc 2s", RowBottom, VariantStandard, 0},
		{"two pair pays nothing", "As Ah Kd Kc Qs", RowBottom, VariantStandard, 0},

		// The standard middle uses the same schedule as the bottom.
		{"standard middle straight", "9s 8h 7d 6c 5s", RowMiddle, VariantStandard, 2},
		{"standard middle full house", "5s 5h 5c 2d 2s", RowMiddle, VariantStandard, 6},

		// Pineapple doubles the middle and adds trips.
		{"pineapple middle trips", "7s 7h 7d Kc 2s", RowMiddle, VariantPineapple, 2},
		{"pineapple middle straight", "9s 8h 7d 6c 5s", RowMiddle, VariantPineapple, 4},
		{"pineapple middle flush", "Ad Td 8d 5d 3d", RowMiddle, VariantPineapple, 8},
		{"pineapple middle full house", "5s 5h 5c 2d 2s", RowMiddle, VariantPineapple, 12},
		{"pineapple middle quads", "9s 9h 9d 9c 2s", RowMiddle, VariantPineapple, 20},
		{"pineapple middle straight flush", "Kh Qh Jh Th 9h", RowMiddle, VariantPineapple, 30},
		{"pineapple middle royal", "As Ks Qs Js Ts", RowMiddle, VariantPineapple, 50},

		// The pineapple bottom keeps the standard schedule.
		{"pineapple bottom flush", "Ad Td 8d 5d 3d", RowBottom, VariantPineapple, 4},
		{"pineapple bottom royal", "As Ks Qs Js Ts", RowBottom, VariantPineapple, 25},
	}

	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranking, err := e.EvaluateForRow(deck.MustParseCards(tt.cards), tt.row, tt.variant)
			if err != nil {
				t.Fatalf("EvaluateForRow: %v", err)
			}
			if ranking.Royalty != tt.want {
				t.Errorf("royalty = %d, want %d", ranking.Royalty, tt.want)
			}
		})
	}
}

func TestRoyaltyMonotoneInTopPairRank(t *testing.T) {
	e := NewEvaluator()

	pairs := []string{
		"6s 6h 2d", "7s 7h 2d", "8s 8h 2d", "9s 9h 2d", "Ts Th 2d",
		"Js Jh 2d", "Qs Qh 2d", "Ks Kh 2d", "As Ah 2d",
	}
	prev := 0
	for _, cards := range pairs {
		ranking, err := e.EvaluateForRow(deck.MustParseCards(cards), RowTop, VariantStandard)
		if err != nil {
			t.Fatalf("EvaluateForRow(%s): %v", cards, err)
		}
		if ranking.Royalty != prev+1 {
			t.Errorf("%s royalty = %d, want %d", cards, ranking.Royalty, prev+1)
		}
		prev = ranking.Royalty
	}
	if prev != 9 {
		t.Errorf("aces royalty = %d, want 9", prev)
	}
}

func TestEvaluateAttachesBaseRoyalty(t *testing.T) {
	e := NewEvaluator()

	ranking, err := e.Evaluate(deck.MustParseCards("As Ah Kd"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ranking.Royalty != 9 {
		t.Errorf("bare Evaluate top pair royalty = %d, want 9", ranking.Royalty)
	}

	ranking, err = e.Evaluate(deck.MustParseCards("Kh Qh Jh Th 9h"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ranking.Royalty != 15 {
		t.Errorf("bare Evaluate straight flush royalty = %d, want 15", ranking.Royalty)
	}
}
