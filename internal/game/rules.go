package game

import (
	"fmt"

	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
)

// Rules is the immutable rules configuration for one game session.
// Construct through the factory functions and treat as a value.
type Rules struct {
	Variant            rules.Variant `json:"variant"`
	PlayerCount        int           `json:"player_count"`
	FantasyLandEnabled bool          `json:"fantasy_land_enabled"`
	ScoringSystem      string        `json:"scoring_system"`
	TimeLimitSeconds   int           `json:"time_limit_seconds,omitempty"`
	AllowScooping      bool          `json:"allow_scooping"`
	ScoreMultiplier    float64       `json:"score_multiplier"`
}

// StandardRules creates standard OFC rules for two players.
func StandardRules() Rules {
	return Rules{
		Variant:            rules.VariantStandard,
		PlayerCount:        2,
		FantasyLandEnabled: true,
		ScoringSystem:      "traditional",
		AllowScooping:      true,
		ScoreMultiplier:    1.0,
	}
}

// PineappleRules creates Pineapple OFC rules for two players. Pineapple
// settlements pay double.
func PineappleRules() Rules {
	return Rules{
		Variant:            rules.VariantPineapple,
		PlayerCount:        2,
		FantasyLandEnabled: true,
		ScoringSystem:      "traditional",
		AllowScooping:      true,
		ScoreMultiplier:    2.0,
	}
}

// TournamentRules creates tournament rules for the given variant: timed
// turns, no scooping, raised stakes.
func TournamentRules(variant rules.Variant) Rules {
	return Rules{
		Variant:            variant,
		PlayerCount:        2,
		FantasyLandEnabled: true,
		ScoringSystem:      "progressive",
		TimeLimitSeconds:   300,
		AllowScooping:      false,
		ScoreMultiplier:    1.5,
	}
}

// Validate checks the configuration for internal consistency.
func (r Rules) Validate() error {
	if !r.Variant.Valid() {
		return fmt.Errorf("invalid variant %q", r.Variant)
	}
	if r.PlayerCount < 2 || r.PlayerCount > 4 {
		return fmt.Errorf("player count must be 2-4, got %d", r.PlayerCount)
	}
	if r.Variant.IsPineapple() && r.PlayerCount > 3 {
		// 4 pineapple players would need 68 cards from a 52-card deck.
		return fmt.Errorf("pineapple supports at most 3 players, got %d", r.PlayerCount)
	}
	if r.ScoreMultiplier < 0 {
		return fmt.Errorf("score multiplier cannot be negative")
	}
	if r.TimeLimitSeconds < 0 {
		return fmt.Errorf("time limit cannot be negative")
	}
	return nil
}

// InitialCardCount is the size of the opening deal.
func (r Rules) InitialCardCount() int {
	return 5
}

// CardsPerTurn is the street deal size: one card in standard play,
// three in pineapple (place two, discard one).
func (r Rules) CardsPerTurn() int {
	if r.Variant.IsPineapple() {
		return 3
	}
	return 1
}

// MaxHandSize is the number of placed cards in a complete layout.
func (r Rules) MaxHandSize() int {
	return 13
}

// FantasyLandCardCount is the size of a fantasy land deal.
func (r Rules) FantasyLandCardCount() int {
	if r.Variant.IsPineapple() {
		return 14
	}
	return 13
}

// SupportsFantasyLand reports whether fantasy land is in play.
func (r Rules) SupportsFantasyLand() bool {
	return r.FantasyLandEnabled && r.Variant.Valid()
}
