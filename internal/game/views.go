package game

import (
	"time"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
)

// PlayerView is one seat as an observer sees it. Rows are always
// visible; the hand and discards only populate for the observer's own
// seat, everyone else gets counts.
type PlayerView struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Status        PlayerStatus `json:"status"`
	Top           []deck.Card  `json:"top"`
	Middle        []deck.Card  `json:"middle"`
	Bottom        []deck.Card  `json:"bottom"`
	Hand          []deck.Card  `json:"hand,omitempty"`
	HandCount     int          `json:"hand_count"`
	Discards      []deck.Card  `json:"discards,omitempty"`
	DiscardCount  int          `json:"discard_count"`
	PlacedCount   int          `json:"placed_count"`
	InFantasyLand bool         `json:"in_fantasy_land"`
	Fouled        bool         `json:"fouled"`
}

// GameView is a consistent snapshot of a game for transport to
// clients. It is safe to marshal and hand out; nothing in it aliases
// live game state.
type GameView struct {
	GameID        string           `json:"game_id"`
	Status        Status           `json:"status"`
	Variant       rules.Variant    `json:"variant"`
	Round         int              `json:"round"`
	CurrentPlayer string           `json:"current_player,omitempty"`
	Players       []PlayerView     `json:"players"`
	DeckRemaining int              `json:"deck_remaining"`
	Version       int              `json:"version"`
	StartedAt     time.Time        `json:"started_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	FinalScores   map[string]Score `json:"final_scores,omitempty"`
	WinnerID      string           `json:"winner_id,omitempty"`
}

// View renders the game for one observer. An empty observer id yields
// the spectator view with every hand hidden.
func (g *Game) View(observerID string) GameView {
	g.mu.RLock()
	defer g.mu.RUnlock()

	view := GameView{
		GameID:        g.id,
		Status:        g.status,
		Variant:       g.rules.Variant,
		Round:         g.turns.Round(),
		CurrentPlayer: g.turns.ActivePlayer(),
		Players:       make([]PlayerView, 0, len(g.playerOrder)),
		DeckRemaining: g.deck.CardsRemaining(),
		Version:       g.version,
		StartedAt:     g.startedAt,
		WinnerID:      g.winnerID,
	}
	if g.completedAt != nil {
		t := *g.completedAt
		view.CompletedAt = &t
	}
	if len(g.finalScores) > 0 {
		view.FinalScores = make(map[string]Score, len(g.finalScores))
		for id, s := range g.finalScores {
			view.FinalScores[id] = s
		}
	}

	for _, id := range g.playerOrder {
		player := g.players[id]
		pv := PlayerView{
			ID:            player.ID(),
			Name:          player.Name(),
			Status:        player.Status(),
			Top:           player.Top(),
			Middle:        player.Middle(),
			Bottom:        player.Bottom(),
			HandCount:     len(player.Hand()),
			DiscardCount:  len(player.Discards()),
			PlacedCount:   player.PlacedCount(),
			InFantasyLand: player.InFantasyLand(),
			Fouled:        player.Fouled(),
		}
		if id == observerID {
			pv.Hand = player.Hand()
			pv.Discards = player.Discards()
		}
		view.Players = append(view.Players, pv)
	}
	return view
}

// AnalysisPosition is one evaluated row in a layout analysis.
type AnalysisPosition struct {
	Row      string      `json:"row"`
	Cards    []deck.Card `json:"cards"`
	Hand     string      `json:"hand"`
	Strength int         `json:"strength"`
	Royalty  int         `json:"royalty"`
}

// AnalysisPlayer is the full rules breakdown of one player's layout:
// per-row rankings and royalties, progression validity, and fantasy
// land standing.
type AnalysisPlayer struct {
	PlayerID        string             `json:"player_id"`
	Positions       []AnalysisPosition `json:"positions"`
	Royalties       int                `json:"royalties"`
	Fouled          bool               `json:"fouled"`
	LayoutComplete  bool               `json:"layout_complete"`
	InFantasyLand   bool               `json:"in_fantasy_land"`
	FantasyEligible bool               `json:"fantasy_eligible"`
}

// Analysis evaluates every seated layout. Partial rows are skipped;
// the breakdown only ranks rows at full capacity.
func (g *Game) Analysis() map[string]AnalysisPlayer {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]AnalysisPlayer, len(g.playerOrder))
	for _, id := range g.playerOrder {
		player := g.players[id]
		analysis := AnalysisPlayer{
			PlayerID:       id,
			Positions:      make([]AnalysisPosition, 0, 3),
			Fouled:         player.Fouled(),
			LayoutComplete: player.LayoutComplete(),
			InFantasyLand:  player.InFantasyLand(),
		}

		for _, row := range rules.Rows() {
			cards := player.RowCards(row)
			if len(cards) != row.Capacity() {
				continue
			}
			ranking, err := g.evaluator.EvaluateForRow(cards, row, g.rules.Variant)
			if err != nil {
				continue
			}
			analysis.Positions = append(analysis.Positions, AnalysisPosition{
				Row:      row.String(),
				Cards:    cards,
				Hand:     ranking.String(),
				Strength: ranking.Strength,
				Royalty:  ranking.Royalty,
			})
			analysis.Royalties += ranking.Royalty
		}

		if analysis.LayoutComplete && !analysis.Fouled && g.rules.SupportsFantasyLand() {
			if g.rules.Variant.IsPineapple() {
				analysis.FantasyEligible, _ = g.fantasy.CheckEntryQualification(player.Top())
			} else {
				analysis.FantasyEligible, _ = g.fantasy.EntryQualifiesByAnyRow(player.Top(), player.Middle(), player.Bottom())
			}
		}

		out[id] = analysis
	}
	return out
}
