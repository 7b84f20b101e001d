package main

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
	"github.com/openfacepoker/ofc-server-go/internal/game"
	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
	"github.com/openfacepoker/ofc-server-go/internal/tournament"
)

type CLI struct {
	Games    int    `default:"1000" help:"Number of games to simulate"`
	Variant  string `default:"pineapple" help:"Variant: standard, pineapple, 2-7-pineapple"`
	Players  int    `default:"2" help:"Players per game (2-4, pineapple caps at 3)"`
	Parallel int    `short:"p" default:"4" help:"Concurrent games"`
	Seed     int64  `default:"0" help:"RNG seed (0 for random)"`
	Verbose  bool   `short:"v" help:"Print every game result"`

	Tournament bool `short:"t" help:"Run a Swiss event under tournament rules instead of independent games"`
	Entrants   int  `default:"8" help:"Tournament entrants"`
	Rounds     int  `default:"3" help:"Tournament rounds"`
}

var (
	// Style definitions
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	seatStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))
)

func main() {
	var cli CLI
	ctx := kong.Parse(&cli)

	if cli.Seed == 0 {
		cli.Seed = time.Now().UnixNano()
	}

	if cli.Tournament {
		if err := runTournament(cli); err != nil {
			fmt.Fprintf(os.Stderr, "Tournament failed: %v\n", err)
			ctx.Exit(1)
		}
		return
	}

	gameRules, err := variantRules(cli.Variant, cli.Players)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		ctx.Exit(1)
	}

	fmt.Printf("Simulating %d %s games, %d players (seed: %d)\n\n",
		cli.Games, gameRules.Variant, cli.Players, cli.Seed)

	startTime := time.Now()
	stats, err := runSimulation(cli, gameRules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Simulation failed: %v\n", err)
		ctx.Exit(1)
	}
	duration := time.Since(startTime)

	printResults(stats, string(gameRules.Variant), duration)
}

func variantRules(name string, players int) (game.Rules, error) {
	var gameRules game.Rules
	switch rules.Variant(name) {
	case rules.VariantStandard:
		gameRules = game.StandardRules()
	case rules.VariantPineapple:
		gameRules = game.PineappleRules()
	case rules.Variant27Pine:
		gameRules = game.PineappleRules()
		gameRules.Variant = rules.Variant27Pine
	default:
		return game.Rules{}, fmt.Errorf("unknown variant %q", name)
	}
	gameRules.PlayerCount = players
	if err := gameRules.Validate(); err != nil {
		return game.Rules{}, err
	}
	return gameRules, nil
}

// GameResult summarizes one finished self-play game.
type GameResult struct {
	Seed            int64
	Winner          string
	Turns           int
	Scores          map[string]game.Score
	Fouled          []string
	FantasyEntrants []string
}

// Statistics accumulates results across the run.
type Statistics struct {
	Games          int
	Seats          int
	Turns          int
	Fouls          int
	FantasyEntries int
	RoyaltyPoints  int
	WinsBySeat     map[string]int
	NetBySeat      map[string]int
	LedgerErrors   int
	MaxSwing       int
	MaxSwingSeed   int64
}

func newStatistics(seats int) *Statistics {
	return &Statistics{
		Seats:      seats,
		WinsBySeat: make(map[string]int),
		NetBySeat:  make(map[string]int),
	}
}

func (s *Statistics) Add(r GameResult) {
	s.Games++
	s.Turns += r.Turns
	s.Fouls += len(r.Fouled)
	s.FantasyEntries += len(r.FantasyEntrants)
	s.WinsBySeat[r.Winner]++

	ledger := 0
	for id, score := range r.Scores {
		total := score.Total()
		s.NetBySeat[id] += total
		s.RoyaltyPoints += score.Royalties
		ledger += total
		if swing := abs(total); swing > s.MaxSwing {
			s.MaxSwing = swing
			s.MaxSwingSeed = r.Seed
		}
	}
	if ledger != 0 {
		s.LedgerErrors++
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func runSimulation(cli CLI, gameRules game.Rules) (*Statistics, error) {
	// Master RNG hands every game an independent, reproducible seed.
	masterRng := rand.New(rand.NewSource(cli.Seed))
	seeds := make([]int64, cli.Games)
	for i := range seeds {
		seeds[i] = masterRng.Int63()
	}

	stats := newStatistics(gameRules.PlayerCount)
	var mu sync.Mutex

	seatIDs := make([]string, gameRules.PlayerCount)
	for i := range seatIDs {
		seatIDs[i] = fmt.Sprintf("seat%d", i+1)
	}

	var eg errgroup.Group
	eg.SetLimit(cli.Parallel)
	for i := 0; i < cli.Games; i++ {
		seed := seeds[i]
		eg.Go(func() error {
			result, err := playGame(gameRules, seed, seatIDs)
			if err != nil {
				return fmt.Errorf("game with seed %d: %w", seed, err)
			}

			mu.Lock()
			stats.Add(result)
			done := stats.Games
			mu.Unlock()

			if cli.Verbose {
				fmt.Printf("seed %d: winner %s after %d turns\n", seed, result.Winner, result.Turns)
			} else if done%1000 == 0 {
				fmt.Printf("%d games completed\n", done)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// playGame runs one game to completion with a greedy bottom-first
// policy for every seat and collects the settled result.
func playGame(gameRules game.Rules, seed int64, seatIDs []string) (GameResult, error) {
	seats := make([]game.Seat, len(seatIDs))
	for i, id := range seatIDs {
		seats[i] = game.Seat{ID: id, Name: id}
	}

	g, err := game.NewGame(game.Config{
		GameID: fmt.Sprintf("sim-%x", seed),
		Seats:  seats,
		Rules:  gameRules,
		Seed:   seed,
	})
	if err != nil {
		return GameResult{}, err
	}

	turns := 0
	for g.Status() == game.StatusInProgress {
		turns++
		if turns > 200 {
			return GameResult{}, fmt.Errorf("no completion after %d turns", turns)
		}
		player, err := g.CurrentPlayer()
		if err != nil {
			return GameResult{}, err
		}
		if err := playTurn(g, player); err != nil {
			return GameResult{}, err
		}
	}
	if g.Status() != game.StatusCompleted {
		return GameResult{}, fmt.Errorf("game ended %s", g.Status())
	}

	snap := g.Snapshot()
	result := GameResult{
		Seed:   seed,
		Winner: snap.WinnerID,
		Turns:  turns,
		Scores: snap.FinalScores,
	}
	for _, p := range snap.Players {
		if p.Status == game.PlayerStatusFouled {
			result.Fouled = append(result.Fouled, p.ID)
		}
	}
	for id, state := range snap.FantasyStates {
		if state.Active {
			result.FantasyEntrants = append(result.FantasyEntrants, id)
		}
	}
	return result, nil
}

func playTurn(g *game.Game, player *game.Player) error {
	hand := player.Hand()
	if len(hand) == 0 {
		return fmt.Errorf("active player %s holds no cards", player.ID())
	}

	if g.Rules().Variant.IsPineapple() {
		if player.PlacedCount() == 0 {
			return g.ApplyInitialPlacement(player.ID(), fillPlacements(player, hand))
		}
		if len(hand) != 3 {
			return fmt.Errorf("pineapple street dealt %d cards to %s", len(hand), player.ID())
		}
		return g.PlayPineappleTurn(player.ID(), fillPlacements(player, hand[:2]), hand[2])
	}

	rows := player.AvailableRows()
	if len(rows) == 0 {
		return fmt.Errorf("no open rows for %s", player.ID())
	}
	return g.PlaceCard(player.ID(), hand[0], rows[len(rows)-1])
}

// fillPlacements assigns cards bottom-first into the open slots.
func fillPlacements(player *game.Player, cards []deck.Card) []rules.Placement {
	order := []rules.Row{rules.RowBottom, rules.RowMiddle, rules.RowTop}
	added := make(map[rules.Row]int, 3)
	placements := make([]rules.Placement, 0, len(cards))
	for _, card := range cards {
		for _, row := range order {
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

func printResults(stats *Statistics, variant string, duration time.Duration) {
	gamesPerSec := float64(stats.Games) / duration.Seconds()

	fmt.Printf("\n%s\n", headerStyle.Render(fmt.Sprintf("%s results", variant)))
	fmt.Printf("%d games in %v (%.0f games/sec)\n\n",
		stats.Games, duration.Truncate(time.Millisecond), gamesPerSec)

	seatIDs := make([]string, 0, len(stats.NetBySeat))
	for id := range stats.NetBySeat {
		seatIDs = append(seatIDs, id)
	}
	sort.Strings(seatIDs)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		headerStyle.Render("seat"),
		headerStyle.Render("wins"),
		headerStyle.Render("net"),
		headerStyle.Render("net/game"))
	for _, id := range seatIDs {
		net := stats.NetBySeat[id]
		netStyle := winStyle
		if net < 0 {
			netStyle = lossStyle
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			seatStyle.Render(id),
			winStyle.Render(fmt.Sprintf("%d", stats.WinsBySeat[id])),
			netStyle.Render(fmt.Sprintf("%+d", net)),
			netStyle.Render(fmt.Sprintf("%+.3f", float64(net)/float64(stats.Games))))
	}
	w.Flush()

	layouts := stats.Games * stats.Seats
	fmt.Printf("\n")
	fmt.Printf("%s %d (%.1f%% of layouts)\n",
		labelStyle.Render("fouls:"), stats.Fouls, pct(stats.Fouls, layouts))
	fmt.Printf("%s %d (%.1f%% of layouts)\n",
		labelStyle.Render("fantasy land entries:"), stats.FantasyEntries, pct(stats.FantasyEntries, layouts))
	fmt.Printf("%s %d points\n",
		labelStyle.Render("royalties awarded:"), stats.RoyaltyPoints)
	fmt.Printf("%s %d points (seed %d)\n",
		labelStyle.Render("largest swing:"), stats.MaxSwing, stats.MaxSwingSeed)
	fmt.Printf("%s %.1f\n",
		labelStyle.Render("avg turns/game:"), float64(stats.Turns)/float64(stats.Games))

	if stats.LedgerErrors > 0 {
		fmt.Printf("\n❌ %d games settled non-zero-sum\n", stats.LedgerErrors)
	} else {
		fmt.Printf("\n✅ every settlement was zero-sum\n")
	}
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// runTournament seats the entrants in a Swiss event and plays every
// pairing as a heads-up game under tournament rules.
func runTournament(cli CLI) error {
	if cli.Rounds < 1 {
		return fmt.Errorf("need at least one round")
	}

	variant := rules.Variant(cli.Variant)
	gameRules := game.TournamentRules(variant)
	if err := gameRules.Validate(); err != nil {
		return err
	}

	manager := tournament.NewManager(nil)
	tourney := manager.CreateTournament(
		fmt.Sprintf("sim-%d", cli.Seed), variant, "simulator", cli.Rounds)
	for i := 1; i <= cli.Entrants; i++ {
		if err := tourney.AddPlayer(fmt.Sprintf("entrant%d", i)); err != nil {
			return err
		}
	}
	if err := tourney.Start(); err != nil {
		return err
	}

	fmt.Printf("Swiss event: %d entrants, %d rounds of %s (seed: %d)\n",
		cli.Entrants, cli.Rounds, gameRules.Variant, cli.Seed)

	masterRng := rand.New(rand.NewSource(cli.Seed))

	for round := 1; ; round++ {
		snap := tourney.Snapshot()
		pairings := snap.Rounds[round-1].Pairings

		fmt.Printf("\n%s\n", headerStyle.Render(fmt.Sprintf("round %d", round)))

		// Seeds drawn up front so results depend only on --seed, not
		// on goroutine scheduling.
		seeds := make([]int64, len(pairings))
		for i := range seeds {
			seeds[i] = masterRng.Int63()
		}

		results := make([]GameResult, len(pairings))
		var eg errgroup.Group
		eg.SetLimit(cli.Parallel)
		for i, pairing := range pairings {
			gameID := fmt.Sprintf("%s-r%d-m%d", tourney.ID, round, i+1)
			if err := tourney.AssignGame(round, pairing.Player1, pairing.Player2, gameID); err != nil {
				return err
			}

			i, pairing := i, pairing
			eg.Go(func() error {
				result, err := playGame(gameRules, seeds[i], []string{pairing.Player1, pairing.Player2})
				if err != nil {
					return fmt.Errorf("round %d, %s vs %s: %w", round, pairing.Player1, pairing.Player2, err)
				}
				results[i] = result
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}

		for i, pairing := range pairings {
			result := results[i]
			p1Total := result.Scores[pairing.Player1].Total()
			p2Total := result.Scores[pairing.Player2].Total()

			// Level chips is a drawn match, whatever the table's
			// seat-order tiebreak said.
			winner := result.Winner
			if p1Total == p2Total {
				winner = ""
			}

			if err := tourney.RecordMatchResult(round, pairing.Player1, pairing.Player2, winner, p1Total, p2Total); err != nil {
				return err
			}
			for _, name := range result.Fouled {
				tourney.RecordFoul(name)
			}
			for _, name := range result.FantasyEntrants {
				tourney.RecordFantasyEntry(name)
			}
			printMatch(pairing.Player1, pairing.Player2, winner, p1Total, p2Total)
		}

		if round == cli.Rounds {
			break
		}
		if _, err := tourney.CreateRound(); err != nil {
			return err
		}
	}

	if err := tourney.Finish(); err != nil {
		return err
	}
	printStandings(tourney.Standings(), tourney.Snapshot().Winner)
	return nil
}

func printMatch(player1, player2, winner string, p1Total, p2Total int) {
	switch winner {
	case player1:
		fmt.Printf("  %s def. %s  %s / %s\n",
			seatStyle.Render(player1), player2,
			winStyle.Render(fmt.Sprintf("%+d", p1Total)),
			lossStyle.Render(fmt.Sprintf("%+d", p2Total)))
	case player2:
		fmt.Printf("  %s def. %s  %s / %s\n",
			seatStyle.Render(player2), player1,
			winStyle.Render(fmt.Sprintf("%+d", p2Total)),
			lossStyle.Render(fmt.Sprintf("%+d", p1Total)))
	default:
		fmt.Printf("  %s drew %s\n", player1, player2)
	}
}

func printStandings(standings []tournament.PlayerSnapshot, winner string) {
	fmt.Printf("\n%s\n", headerStyle.Render("final standings"))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("player"),
		headerStyle.Render("points"),
		headerStyle.Render("record"),
		headerStyle.Render("chips"),
		headerStyle.Render("fouls"),
		headerStyle.Render("fantasy"))
	for _, p := range standings {
		chipStyle := winStyle
		if p.ChipTotal < 0 {
			chipStyle = lossStyle
		}
		fmt.Fprintf(w, "%s\t%d\t%d-%d-%d\t%s\t%d\t%d\n",
			seatStyle.Render(p.Name),
			p.Points,
			p.Wins, p.Losses, p.Draws,
			chipStyle.Render(fmt.Sprintf("%+d", p.ChipTotal)),
			p.Fouls,
			p.FantasyEntries)
	}
	w.Flush()

	fmt.Printf("\n%s %s\n", labelStyle.Render("winner:"), winStyle.Render(winner))
}
