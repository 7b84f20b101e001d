// Package tournament organizes heads-up OFC play into multi-round
// events: a roster, Swiss pairings per round, and standings fed from
// settled hand results.
package tournament

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
)

// State represents the lifecycle of a tournament.
type State int

const (
	StateWaiting State = iota
	StateInProgress
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateInProgress:
		return "IN_PROGRESS"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Format selects how players advance between rounds.
type Format string

const (
	FormatSwiss       Format = "SWISS"
	FormatElimination Format = "ELIMINATION"
)

// Match points per pairing result.
const (
	winPoints  = 3
	drawPoints = 1
	byePoints  = 3
)

// Player is a tournament participant. Points rank the standings;
// ChipTotal accumulates the settled totals of every hand the player
// played and breaks ties.
type Player struct {
	Name           string
	Points         int
	Wins           int
	Losses         int
	Draws          int
	ChipTotal      int
	Fouls          int
	FantasyEntries int
	Eliminated     bool
	Quit           bool
}

// Pairing is one heads-up table in a round. GameID links it to the
// engine game that plays it out; the totals are each side's settled
// score for the hand.
type Pairing struct {
	Player1      string
	Player2      string
	GameID       string
	Winner       string // empty until recorded; stays empty on a draw
	Player1Total int
	Player2Total int
	Finished     bool
}

// Round is one set of pairings.
type Round struct {
	Number   int
	Pairings []*Pairing
	Started  bool
	Finished bool
}

// PlayerSnapshot captures tournament player data for external use.
type PlayerSnapshot struct {
	Name           string
	Points         int
	Wins           int
	Losses         int
	Draws          int
	ChipTotal      int
	Fouls          int
	FantasyEntries int
	Eliminated     bool
	Quit           bool
}

// PairingSnapshot captures pairing data for external use.
type PairingSnapshot struct {
	Player1      string
	Player2      string
	GameID       string
	Winner       string
	Player1Total int
	Player2Total int
	Finished     bool
}

// RoundSnapshot captures round data for external use.
type RoundSnapshot struct {
	Number   int
	Started  bool
	Finished bool
	Pairings []PairingSnapshot
}

// Snapshot captures a consistent view of a tournament.
type Snapshot struct {
	ID           string
	Name         string
	Format       Format
	Variant      rules.Variant
	State        State
	HostName     string
	Players      []PlayerSnapshot
	Rounds       []RoundSnapshot
	CurrentRound int
	NumRounds    int
	Winner       string
	CreateTime   time.Time
	StartTime    *time.Time
	EndTime      *time.Time
}

// Tournament is the aggregate for one event. All access goes through
// its methods under the internal lock.
type Tournament struct {
	ID           string
	Name         string
	Format       Format
	Variant      rules.Variant
	State        State
	HostName     string
	Players      map[string]*Player
	PlayerOrder  []string // insertion order, keeps pairings stable
	Rounds       []*Round
	CurrentRound int
	NumRounds    int
	Winner       string
	Watchers     map[string]bool
	CreateTime   time.Time

	mu        sync.RWMutex
	startTime *time.Time
	endTime   *time.Time
}

// NewTournament creates a tournament in the waiting state.
func NewTournament(name string, variant rules.Variant, hostName string, numRounds int) *Tournament {
	return &Tournament{
		ID:          uuid.New().String(),
		Name:        name,
		Format:      FormatSwiss,
		Variant:     variant,
		State:       StateWaiting,
		HostName:    hostName,
		Players:     make(map[string]*Player),
		PlayerOrder: make([]string, 0),
		Rounds:      make([]*Round, 0),
		NumRounds:   numRounds,
		CreateTime:  time.Now(),
		Watchers:    make(map[string]bool),
	}
}

// AddPlayer seats a player. Only possible before the start.
func (t *Tournament) AddPlayer(playerName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State != StateWaiting {
		return fmt.Errorf("tournament already started")
	}

	if _, exists := t.Players[playerName]; exists {
		return fmt.Errorf("player already joined")
	}

	t.Players[playerName] = &Player{Name: playerName}
	t.PlayerOrder = append(t.PlayerOrder, playerName)

	return nil
}

// RemovePlayer unseats a player. Only possible before the start; after
// that, QuitPlayer.
func (t *Tournament) RemovePlayer(playerName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State != StateWaiting {
		return fmt.Errorf("tournament already started")
	}

	if _, exists := t.Players[playerName]; !exists {
		return fmt.Errorf("player not found")
	}

	delete(t.Players, playerName)

	for i, name := range t.PlayerOrder {
		if name == playerName {
			t.PlayerOrder = append(t.PlayerOrder[:i], t.PlayerOrder[i+1:]...)
			break
		}
	}

	return nil
}

// GetPlayerCount returns the number of players.
func (t *Tournament) GetPlayerCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.Players)
}

// AddWatcher registers an observer for the tournament.
func (t *Tournament) AddWatcher(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Watchers[name] = true
}

// RemoveWatcher removes an observer from the tournament.
func (t *Tournament) RemoveWatcher(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.Watchers[name]; exists {
		delete(t.Watchers, name)
		return true
	}
	return false
}

// GetWatchers returns all observers currently following the tournament.
func (t *Tournament) GetWatchers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	watchers := make([]string, 0, len(t.Watchers))
	for watcher := range t.Watchers {
		watchers = append(watchers, watcher)
	}
	return watchers
}

// GetPlayers returns all players in seating order.
func (t *Tournament) GetPlayers() []*Player {
	t.mu.RLock()
	defer t.mu.RUnlock()

	players := make([]*Player, 0, len(t.Players))
	for _, name := range t.PlayerOrder {
		if player, ok := t.Players[name]; ok {
			players = append(players, player)
		}
	}
	return players
}

// QuitPlayer marks a player as having quit an active tournament. They
// keep their record but are not paired again.
func (t *Tournament) QuitPlayer(playerName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	player, exists := t.Players[playerName]
	if !exists {
		return fmt.Errorf("player not found")
	}

	player.Quit = true
	return nil
}

// EliminatePlayer knocks a player out of an elimination-format event.
func (t *Tournament) EliminatePlayer(playerName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	player, exists := t.Players[playerName]
	if !exists {
		return fmt.Errorf("player not found")
	}

	player.Eliminated = true
	return nil
}

// GetState returns the current tournament state.
func (t *Tournament) GetState() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.State
}

// IsHost checks whether the given player created the tournament.
func (t *Tournament) IsHost(playerName string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.HostName == playerName
}

// Start transitions the tournament into progress and pairs round 1.
func (t *Tournament) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State != StateWaiting {
		return fmt.Errorf("tournament already started")
	}

	if len(t.Players) < 2 {
		return fmt.Errorf("not enough players")
	}

	now := time.Now()
	t.startTime = &now
	t.State = StateInProgress
	t.CurrentRound = 0

	t.startRound()
	return nil
}

// CreateRound pairs and starts the next round.
func (t *Tournament) CreateRound() (*Round, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State != StateInProgress {
		return nil, fmt.Errorf("tournament is %s", t.State)
	}
	if t.CurrentRound > 0 && !t.Rounds[t.CurrentRound-1].Finished {
		return nil, fmt.Errorf("round %d still running", t.CurrentRound)
	}
	if t.CurrentRound >= t.NumRounds {
		return nil, fmt.Errorf("all %d rounds played", t.NumRounds)
	}

	return t.startRound(), nil
}

// startRound pairs the active players and appends the round. Caller
// holds the lock.
func (t *Tournament) startRound() *Round {
	t.CurrentRound++
	round := &Round{
		Number:   t.CurrentRound,
		Pairings: t.generatePairings(),
		Started:  true,
	}
	t.Rounds = append(t.Rounds, round)
	return round
}

// generatePairings builds Swiss pairings: actives sorted by points,
// adjacent players paired. An odd player out gets a bye worth a win.
// Caller holds the lock.
func (t *Tournament) generatePairings() []*Pairing {
	active := make([]*Player, 0, len(t.Players))
	for _, name := range t.PlayerOrder {
		player := t.Players[name]
		if !player.Eliminated && !player.Quit {
			active = append(active, player)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Points != active[j].Points {
			return active[i].Points > active[j].Points
		}
		return active[i].ChipTotal > active[j].ChipTotal
	})

	pairings := make([]*Pairing, 0, len(active)/2)
	for i := 0; i+1 < len(active); i += 2 {
		pairings = append(pairings, &Pairing{
			Player1: active[i].Name,
			Player2: active[i+1].Name,
		})
	}

	// The lowest-ranked player sits out with a bye.
	if len(active)%2 == 1 {
		bye := active[len(active)-1]
		bye.Points += byePoints
		bye.Wins++
	}

	return pairings
}

// AssignGame links an engine game to the pairing that plays it.
func (t *Tournament) AssignGame(roundNum int, player1, player2, gameID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pairing, err := t.findPairing(roundNum, player1, player2)
	if err != nil {
		return err
	}
	pairing.GameID = gameID
	return nil
}

// RecordMatchResult settles a pairing: the winner takes three match
// points, a draw pays one each, and both chip totals accumulate. An
// empty winner means a draw.
func (t *Tournament) RecordMatchResult(roundNum int, player1, player2, winner string, player1Total, player2Total int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pairing, err := t.findPairing(roundNum, player1, player2)
	if err != nil {
		return err
	}
	if pairing.Finished {
		return fmt.Errorf("pairing %s vs %s already recorded", pairing.Player1, pairing.Player2)
	}
	if winner != "" && winner != pairing.Player1 && winner != pairing.Player2 {
		return fmt.Errorf("winner %s is not part of the pairing", winner)
	}

	// Totals follow the pairing's seat order, not the argument order.
	if pairing.Player1 != player1 {
		player1Total, player2Total = player2Total, player1Total
	}
	pairing.Winner = winner
	pairing.Player1Total = player1Total
	pairing.Player2Total = player2Total
	pairing.Finished = true

	p1 := t.Players[pairing.Player1]
	p2 := t.Players[pairing.Player2]
	p1.ChipTotal += player1Total
	p2.ChipTotal += player2Total

	switch winner {
	case pairing.Player1:
		p1.Wins++
		p1.Points += winPoints
		p2.Losses++
	case pairing.Player2:
		p2.Wins++
		p2.Points += winPoints
		p1.Losses++
	default:
		p1.Draws++
		p1.Points += drawPoints
		p2.Draws++
		p2.Points += drawPoints
	}

	t.finishRoundIfDone(roundNum)
	return nil
}

// RecordFoul bumps a player's foul count.
func (t *Tournament) RecordFoul(playerName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if player, ok := t.Players[playerName]; ok {
		player.Fouls++
	}
}

// RecordFantasyEntry bumps a player's fantasy land count.
func (t *Tournament) RecordFantasyEntry(playerName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if player, ok := t.Players[playerName]; ok {
		player.FantasyEntries++
	}
}

// findPairing locates the pairing of two players in a round, in either
// seat order. Caller holds the lock.
func (t *Tournament) findPairing(roundNum int, player1, player2 string) (*Pairing, error) {
	if roundNum <= 0 || roundNum > len(t.Rounds) {
		return nil, fmt.Errorf("invalid round number %d", roundNum)
	}
	for _, pairing := range t.Rounds[roundNum-1].Pairings {
		if (pairing.Player1 == player1 && pairing.Player2 == player2) ||
			(pairing.Player1 == player2 && pairing.Player2 == player1) {
			return pairing, nil
		}
	}
	return nil, fmt.Errorf("no pairing for %s vs %s in round %d", player1, player2, roundNum)
}

// finishRoundIfDone marks the round finished once every pairing has a
// recorded result. Caller holds the lock.
func (t *Tournament) finishRoundIfDone(roundNum int) {
	round := t.Rounds[roundNum-1]
	for _, pairing := range round.Pairings {
		if !pairing.Finished {
			return
		}
	}
	round.Finished = true
}

// RoundFinished reports whether every pairing of a round is settled.
func (t *Tournament) RoundFinished(roundNum int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if roundNum <= 0 || roundNum > len(t.Rounds) {
		return false
	}
	return t.Rounds[roundNum-1].Finished
}

// Finish closes the tournament and crowns the standings leader.
func (t *Tournament) Finish() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State != StateInProgress {
		return fmt.Errorf("tournament is %s", t.State)
	}

	t.State = StateFinished
	now := time.Now()
	t.endTime = &now

	if standings := t.standingsLocked(); len(standings) > 0 {
		t.Winner = standings[0].Name
	}
	return nil
}

// Standings returns the players ranked by match points, chip totals
// breaking ties, seating order breaking the rest.
func (t *Tournament) Standings() []PlayerSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.standingsLocked()
}

func (t *Tournament) standingsLocked() []PlayerSnapshot {
	standings := make([]PlayerSnapshot, 0, len(t.PlayerOrder))
	for _, name := range t.PlayerOrder {
		if player, ok := t.Players[name]; ok {
			standings = append(standings, snapshotPlayer(player))
		}
	}
	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Points != standings[j].Points {
			return standings[i].Points > standings[j].Points
		}
		return standings[i].ChipTotal > standings[j].ChipTotal
	})
	return standings
}

// Snapshot returns a consistent copy of the tournament state.
func (t *Tournament) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	players := make([]PlayerSnapshot, 0, len(t.PlayerOrder))
	for _, name := range t.PlayerOrder {
		if player, ok := t.Players[name]; ok {
			players = append(players, snapshotPlayer(player))
		}
	}

	rounds := make([]RoundSnapshot, 0, len(t.Rounds))
	for _, r := range t.Rounds {
		pairings := make([]PairingSnapshot, 0, len(r.Pairings))
		for _, p := range r.Pairings {
			pairings = append(pairings, PairingSnapshot{
				Player1:      p.Player1,
				Player2:      p.Player2,
				GameID:       p.GameID,
				Winner:       p.Winner,
				Player1Total: p.Player1Total,
				Player2Total: p.Player2Total,
				Finished:     p.Finished,
			})
		}

		rounds = append(rounds, RoundSnapshot{
			Number:   r.Number,
			Started:  r.Started,
			Finished: r.Finished,
			Pairings: pairings,
		})
	}

	return Snapshot{
		ID:           t.ID,
		Name:         t.Name,
		Format:       t.Format,
		Variant:      t.Variant,
		State:        t.State,
		HostName:     t.HostName,
		Players:      players,
		Rounds:       rounds,
		CurrentRound: t.CurrentRound,
		NumRounds:    t.NumRounds,
		Winner:       t.Winner,
		CreateTime:   t.CreateTime,
		StartTime:    cloneTime(t.startTime),
		EndTime:      cloneTime(t.endTime),
	}
}

func snapshotPlayer(player *Player) PlayerSnapshot {
	return PlayerSnapshot{
		Name:           player.Name,
		Points:         player.Points,
		Wins:           player.Wins,
		Losses:         player.Losses,
		Draws:          player.Draws,
		ChipTotal:      player.ChipTotal,
		Fouls:          player.Fouls,
		FantasyEntries: player.FantasyEntries,
		Eliminated:     player.Eliminated,
		Quit:           player.Quit,
	}
}

func cloneTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	cp := *src
	return &cp
}

// Manager hosts concurrent tournaments.
type Manager struct {
	tournaments map[string]*Tournament
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewManager creates a tournament manager. A nil logger disables
// logging.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		tournaments: make(map[string]*Tournament),
		logger:      logger,
	}
}

// CreateTournament creates and registers a tournament.
func (m *Manager) CreateTournament(name string, variant rules.Variant, hostName string, numRounds int) *Tournament {
	m.mu.Lock()
	defer m.mu.Unlock()

	tournament := NewTournament(name, variant, hostName, numRounds)
	m.tournaments[tournament.ID] = tournament

	m.logger.Info("tournament created",
		zap.String("tournament_id", tournament.ID),
		zap.String("name", name),
		zap.String("variant", string(variant)),
		zap.String("host", hostName),
		zap.Int("rounds", numRounds),
	)

	return tournament
}

// GetTournament retrieves a tournament by ID.
func (m *Manager) GetTournament(tournamentID string) (*Tournament, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tournament, ok := m.tournaments[tournamentID]
	return tournament, ok
}

// RemoveTournament removes a tournament.
func (m *Manager) RemoveTournament(tournamentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tournaments, tournamentID)

	m.logger.Info("tournament removed", zap.String("tournament_id", tournamentID))
}

// GetAllTournaments returns all tournaments.
func (m *Manager) GetAllTournaments() []*Tournament {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tournaments := make([]*Tournament, 0, len(m.tournaments))
	for _, tournament := range m.tournaments {
		tournaments = append(tournaments, tournament)
	}
	return tournaments
}

// GetActiveTournamentCount returns the count of unfinished tournaments.
func (m *Manager) GetActiveTournamentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, tournament := range m.tournaments {
		if tournament.State != StateFinished {
			count++
		}
	}
	return count
}
