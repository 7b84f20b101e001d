package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRowSplitSettlement verifies the one-point-per-row exchange when
// the rows split
func TestRowSplitSettlement(t *testing.T) {
	a := completePlayer(t, "alice",
		"5s 5h 2c",
		"7s 7h 3c 4c 9h",
		"8s 8h 5c Tc Jh",
	)
	b := completePlayer(t, "bob",
		"4d 3h 2h",
		"9s 9d 3d 6d Th",
		"Ts Td 4h Jc Qc",
	)
	require.False(t, a.Fouled())
	require.False(t, b.Fouled())

	g := craftedGame(t, StandardRules(), a, b)
	scores := g.computeScores()

	// Alice takes the top, bob takes middle and bottom.
	assert.Equal(t, Score{Points: -1}, scores["alice"])
	assert.Equal(t, Score{Points: 1}, scores["bob"])
	assert.Equal(t, "bob", winnerOf(scores, g.playerOrder))
}

// TestScoopSettlement verifies winning all three rows pays the scoop
// bonus and nets the royalty difference
func TestScoopSettlement(t *testing.T) {
	a := completePlayer(t, "alice",
		"As Ah 3c",
		"4s 4h 4d 2d 5c",
		"6s 6h 6d 7d 8c",
	)
	b := completePlayer(t, "bob",
		"2c 3d 5h",
		"6c 7h 9d Jc 2h",
		"Kd Qh Th 4c 3s",
	)
	require.False(t, a.Fouled())
	require.False(t, b.Fouled())

	g := craftedGame(t, StandardRules(), a, b)
	scores := g.computeScores()

	// Three rows plus the scoop bonus, and top aces pay 9.
	assert.Equal(t, Score{Points: 9, Royalties: 9}, scores["alice"])
	assert.Equal(t, Score{Points: -9, Penalties: 9}, scores["bob"])
	assert.Equal(t, 18, scores["alice"].Total())
	assert.Equal(t, -18, scores["bob"].Total())
	assert.Equal(t, "alice", winnerOf(scores, g.playerOrder))
}

// TestFoulPaysSweepAndRoyalties verifies a fouled layout scores
// nothing and pays the clean side in full
func TestFoulPaysSweepAndRoyalties(t *testing.T) {
	a := completePlayer(t, "alice",
		"Qs Qh 2c",
		"Ks Kh 4d 5d 9h",
		"Ac Ad 6h 7h Jc",
	)
	require.False(t, a.Fouled())

	// Top aces over a middle pair of twos breaks progression.
	b := completePlayer(t, "bob",
		"As Ah Kc",
		"2s 2h 3c 4c 5h",
		"3s 3h 8c 9c Jh",
	)
	require.True(t, b.Fouled())

	g := craftedGame(t, StandardRules(), a, b)
	scores := g.computeScores()

	assert.Equal(t, Score{Points: 9, Royalties: 7}, scores["alice"])
	assert.Equal(t, Score{Points: -9, Penalties: 7}, scores["bob"])
	assert.Equal(t, "alice", winnerOf(scores, g.playerOrder))
}

// TestBothFouledNoExchange verifies two fouled layouts settle to
// nothing
func TestBothFouledNoExchange(t *testing.T) {
	a := completePlayer(t, "alice",
		"As Ah Kc",
		"2s 2h 3c 4c 5h",
		"3s 3h 8c 9c Jh",
	)
	b := completePlayer(t, "bob",
		"Ks Kh Qc",
		"4s 4h 5c 6c 7h",
		"5s 5d 8d 9d Jc",
	)
	require.True(t, a.Fouled())
	require.True(t, b.Fouled())

	g := craftedGame(t, StandardRules(), a, b)
	scores := g.computeScores()

	assert.Equal(t, Score{}, scores["alice"])
	assert.Equal(t, Score{}, scores["bob"])
	assert.Equal(t, "alice", winnerOf(scores, g.playerOrder), "ties go to the earliest seat")
}

// TestMultiplierScalesSettlement verifies tournament scoring scales
// exchanges by 1.5 with rounding away from zero, and that disabling
// scooping drops the bonus
func TestMultiplierScalesSettlement(t *testing.T) {
	t.Run("split rows round up", func(t *testing.T) {
		a := completePlayer(t, "alice",
			"5s 5h 2c",
			"7s 7h 3c 4c 9h",
			"8s 8h 5c Tc Jh",
		)
		b := completePlayer(t, "bob",
			"4d 3h 2h",
			"9s 9d 3d 6d Th",
			"Ts Td 4h Jc Qc",
		)

		g := craftedGame(t, TournamentRules(StandardRules().Variant), a, b)
		scores := g.computeScores()

		// Net one row at 1.5 rounds to two points.
		assert.Equal(t, Score{Points: -2}, scores["alice"])
		assert.Equal(t, Score{Points: 2}, scores["bob"])
	})

	t.Run("scoop without bonus", func(t *testing.T) {
		a := completePlayer(t, "alice",
			"As Ah 3c",
			"4s 4h 4d 2d 5c",
			"6s 6h 6d 7d 8c",
		)
		b := completePlayer(t, "bob",
			"2c 3d 5h",
			"6c 7h 9d Jc 2h",
			"Kd Qh Th 4c 3s",
		)

		g := craftedGame(t, TournamentRules(StandardRules().Variant), a, b)
		require.False(t, g.rules.AllowScooping)
		scores := g.computeScores()

		// Three rows at 1.5 is 4.5, rounded to 5; top aces pay
		// 9 scaled to 14. No scoop bonus in tournament play.
		assert.Equal(t, Score{Points: 5, Royalties: 14}, scores["alice"])
		assert.Equal(t, Score{Points: -5, Penalties: 14}, scores["bob"])
	})
}

// TestThreeWaySettlement verifies pairwise exchange across three seats
func TestThreeWaySettlement(t *testing.T) {
	a := completePlayer(t, "alice",
		"5s 5h 2c",
		"7s 7h 3c 4c 9h",
		"8s 8h 5c Tc Jh",
	)
	b := completePlayer(t, "bob",
		"4d 3h 2h",
		"9s 9d 3d 6d Th",
		"Ts Td 4h Jc Qc",
	)
	c := completePlayer(t, "carol",
		"6s 6h 2d",
		"Ks Kh 5d 7c 2s",
		"As Ah 8c 9c Jd",
	)
	require.False(t, c.Fouled())

	g := craftedGame(t, StandardRules(), a, b, c)
	scores := g.computeScores()

	// Carol scoops both opponents and collects the pair-of-sixes
	// royalty twice; alice and bob still trade their split.
	assert.Equal(t, Score{Points: -10, Penalties: 1}, scores["alice"])
	assert.Equal(t, Score{Points: -8, Penalties: 1}, scores["bob"])
	assert.Equal(t, Score{Points: 18, Royalties: 2}, scores["carol"])

	total := 0
	for _, s := range scores {
		total += s.Total()
	}
	assert.Equal(t, 0, total)
	assert.Equal(t, "carol", winnerOf(scores, g.playerOrder))
}

// TestScaleRounding verifies half-away-from-zero rounding on both
// sides of zero
func TestScaleRounding(t *testing.T) {
	cases := []struct {
		x    float64
		mult float64
		want int
	}{
		{1, 1.5, 2},
		{-1, 1.5, -2},
		{3, 1.5, 5},
		{-3, 1.5, -5},
		{2, 1.5, 3},
		{9, 2, 18},
		{0, 1.5, 0},
		{9, 1, 9},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, scale(tc.x, tc.mult), "scale(%v, %v)", tc.x, tc.mult)
	}
}

// TestWinnerTieBreak verifies equal totals resolve to the earliest
// seat
func TestWinnerTieBreak(t *testing.T) {
	scores := map[string]Score{
		"carol": {Points: 3},
		"alice": {Points: 2, Royalties: 1},
		"bob":   {Points: 5, Penalties: 2},
	}
	assert.Equal(t, "alice", winnerOf(scores, []string{"alice", "bob", "carol"}))
	assert.Equal(t, "carol", winnerOf(scores, []string{"carol", "bob", "alice"}))
}
