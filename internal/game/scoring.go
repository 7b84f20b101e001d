package game

import (
	"math"

	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
)

// Score aggregates one player's settled result. Points carry the
// head-to-head row exchanges and can go negative; Royalties and
// Penalties are the bonus units received and paid.
type Score struct {
	Points    int `json:"points"`
	Royalties int `json:"royalties"`
	Penalties int `json:"penalties"`
}

// Total returns the score used to rank players.
func (s Score) Total() int {
	return s.Points + s.Royalties - s.Penalties
}

// scoopBonus is the extra exchange for winning all three rows against
// one opponent, on top of the three row points.
const scoopBonus = 6

// rowResult caches one layout's per-row rankings and royalty sum so
// pairwise settlement evaluates each hand once.
type rowResult struct {
	fouled    bool
	rows      [3]rules.Ranking
	royalties int
}

// computeScores settles every head-to-head pairing. Callers hold the
// lock and guarantee all layouts are complete.
func (g *Game) computeScores() map[string]Score {
	scores := make(map[string]Score, len(g.playerOrder))
	results := make(map[string]rowResult, len(g.playerOrder))
	for _, id := range g.playerOrder {
		scores[id] = Score{}
		results[id] = g.evaluateLayout(g.players[id])
	}

	for i := 0; i < len(g.playerOrder); i++ {
		for j := i + 1; j < len(g.playerOrder); j++ {
			a, b := g.playerOrder[i], g.playerOrder[j]
			sa, sb := scores[a], scores[b]
			g.settlePair(results[a], results[b], &sa, &sb)
			scores[a], scores[b] = sa, sb
		}
	}
	return scores
}

func (g *Game) evaluateLayout(player *Player) rowResult {
	res := rowResult{fouled: player.Fouled()}
	if res.fouled {
		return res
	}

	top, err := g.evaluator.EvaluateForRow(player.Top(), rules.RowTop, g.rules.Variant)
	if err != nil {
		return rowResult{fouled: true}
	}
	middle, err := g.evaluator.EvaluateForRow(player.Middle(), rules.RowMiddle, g.rules.Variant)
	if err != nil {
		return rowResult{fouled: true}
	}
	bottom, err := g.evaluator.EvaluateForRow(player.Bottom(), rules.RowBottom, g.rules.Variant)
	if err != nil {
		return rowResult{fouled: true}
	}

	res.rows = [3]rules.Ranking{top, middle, bottom}
	res.royalties = top.Royalty + middle.Royalty + bottom.Royalty
	return res
}

// settlePair applies one head-to-head settlement. A fouled layout
// scores zero rows and zero royalties and pays the clean side a full
// sweep plus the clean side's royalties. Two fouls exchange nothing.
func (g *Game) settlePair(ra, rb rowResult, sa, sb *Score) {
	mult := g.rules.ScoreMultiplier

	switch {
	case ra.fouled && rb.fouled:
		return
	case ra.fouled:
		g.settleFoul(rb, sb, sa, mult)
		return
	case rb.fouled:
		g.settleFoul(ra, sa, sb, mult)
		return
	}

	aRows, bRows := 0, 0
	for i := range ra.rows {
		switch cmp := g.evaluator.Compare(ra.rows[i], rb.rows[i]); {
		case cmp > 0:
			aRows++
		case cmp < 0:
			bRows++
		}
	}

	net := aRows - bRows
	if g.rules.AllowScooping {
		if aRows == len(ra.rows) {
			net += scoopBonus
		}
		if bRows == len(rb.rows) {
			net -= scoopBonus
		}
	}
	if pts := scale(float64(net), mult); pts != 0 {
		sa.Points += pts
		sb.Points -= pts
	}

	switch royNet := scale(float64(ra.royalties-rb.royalties), mult); {
	case royNet > 0:
		sa.Royalties += royNet
		sb.Penalties += royNet
	case royNet < 0:
		sb.Royalties += -royNet
		sa.Penalties += -royNet
	}
}

// settleFoul credits the clean side with a sweep against the fouler and
// makes the fouler pay the clean side's royalties.
func (g *Game) settleFoul(clean rowResult, winner, fouler *Score, mult float64) {
	sweep := len(clean.rows)
	if g.rules.AllowScooping {
		sweep += scoopBonus
	}

	pts := scale(float64(sweep), mult)
	winner.Points += pts
	fouler.Points -= pts

	if roy := scale(float64(clean.royalties), mult); roy > 0 {
		winner.Royalties += roy
		fouler.Penalties += roy
	}
}

// scale applies the score multiplier, rounding half away from zero so
// both sides of an exchange settle to the same magnitude.
func scale(x, mult float64) int {
	v := x * mult
	if v < 0 {
		return -int(math.Floor(-v + 0.5))
	}
	return int(math.Floor(v + 0.5))
}

// winnerOf returns the id with the highest total. Ties go to the
// earliest seat.
func winnerOf(scores map[string]Score, order []string) string {
	winner := ""
	best := 0
	for _, id := range order {
		total := scores[id].Total()
		if winner == "" || total > best {
			winner = id
			best = total
		}
	}
	return winner
}
