package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openfacepoker/ofc-server-go/internal/deck"
	"github.com/openfacepoker/ofc-server-go/internal/game/rules"
)

// serializationVersion tags snapshots so format changes can be
// detected on load.
const serializationVersion = 1

const checksumTimeFormat = "2006-01-02T15:04:05.000Z"

// PlayerSnapshot is the persistable projection of one seat, including
// the private hand and discards.
type PlayerSnapshot struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Status        PlayerStatus `json:"status"`
	Top           []deck.Card  `json:"top"`
	Middle        []deck.Card  `json:"middle"`
	Bottom        []deck.Card  `json:"bottom"`
	Hand          []deck.Card  `json:"hand"`
	Discards      []deck.Card  `json:"discards"`
	InFantasyLand bool         `json:"in_fantasy_land"`
	Version       int          `json:"version"`
}

// GameSnapshot is the full persistable state of a game at one version.
// It is a value copy; mutating it never touches the live game.
type GameSnapshot struct {
	GameID        string                            `json:"game_id"`
	Status        Status                            `json:"status"`
	Rules         Rules                             `json:"rules"`
	Round         int                               `json:"round"`
	CurrentPlayer string                            `json:"current_player,omitempty"`
	Version       int                               `json:"version"`
	StartedAt     time.Time                         `json:"started_at"`
	CompletedAt   *time.Time                        `json:"completed_at,omitempty"`
	DeckRemaining []deck.Card                       `json:"deck_remaining"`
	Players       []PlayerSnapshot                  `json:"players"`
	FinalScores   map[string]Score                  `json:"final_scores,omitempty"`
	WinnerID      string                            `json:"winner_id,omitempty"`
	FantasyStates map[string]rules.FantasyLandState `json:"fantasy_states,omitempty"`
}

// SerializationChecksum identifies one snapshot's content. Two
// snapshots with the same Hash hold the same game state; Timestamp
// records when the checksum was computed and is not part of the hash.
type SerializationChecksum struct {
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
	Version   int    `json:"version"`
}

// Snapshot captures the game's complete current state.
func (g *Game) Snapshot() GameSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := GameSnapshot{
		GameID:        g.id,
		Status:        g.status,
		Rules:         g.rules,
		Round:         g.turns.Round(),
		CurrentPlayer: g.turns.ActivePlayer(),
		Version:       g.version,
		StartedAt:     g.startedAt,
		DeckRemaining: g.deck.Remaining(),
		Players:       make([]PlayerSnapshot, 0, len(g.playerOrder)),
		WinnerID:      g.winnerID,
	}
	if g.completedAt != nil {
		t := *g.completedAt
		snap.CompletedAt = &t
	}
	if len(g.finalScores) > 0 {
		snap.FinalScores = make(map[string]Score, len(g.finalScores))
		for id, s := range g.finalScores {
			snap.FinalScores[id] = s
		}
	}
	if len(g.fantasyStates) > 0 {
		snap.FantasyStates = make(map[string]rules.FantasyLandState, len(g.fantasyStates))
		for id, state := range g.fantasyStates {
			snap.FantasyStates[id] = *state
		}
	}

	for _, id := range g.playerOrder {
		player := g.players[id]
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:            player.ID(),
			Name:          player.Name(),
			Status:        player.Status(),
			Top:           player.Top(),
			Middle:        player.Middle(),
			Bottom:        player.Bottom(),
			Hand:          player.Hand(),
			Discards:      player.Discards(),
			InFantasyLand: player.InFantasyLand(),
			Version:       player.Version(),
		})
	}
	return snap
}

// buildDeterministicRepresentation renders the snapshot as canonical
// text: fixed line order, map keys sorted, card order preserved (deal
// and placement order are state). Equal states produce equal text
// regardless of map iteration order.
func (s *GameSnapshot) buildDeterministicRepresentation() string {
	var b strings.Builder

	fmt.Fprintf(&b, "GAME:%s|%s|%d|%s|%d|%d|%s\n",
		s.GameID, s.Status, s.Round, s.CurrentPlayer, s.Version,
		s.StartedAt.UnixNano(), s.WinnerID)
	if s.CompletedAt != nil {
		fmt.Fprintf(&b, "COMPLETED:%d\n", s.CompletedAt.UnixNano())
	}
	fmt.Fprintf(&b, "RULES:%s|%d|%t|%s|%g|%t\n",
		s.Rules.Variant, s.Rules.PlayerCount, s.Rules.FantasyLandEnabled,
		s.Rules.ScoringSystem, s.Rules.ScoreMultiplier, s.Rules.AllowScooping)
	fmt.Fprintf(&b, "DECK:%d|%s\n", len(s.DeckRemaining), cardCodes(s.DeckRemaining))

	players := make([]PlayerSnapshot, len(s.Players))
	copy(players, s.Players)
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	for _, p := range players {
		fmt.Fprintf(&b, "PLAYER:%s|%s|%s|%t|%d\n",
			p.ID, p.Name, p.Status, p.InFantasyLand, p.Version)
		fmt.Fprintf(&b, "  ROWS:%s/%s/%s\n",
			cardCodes(p.Top), cardCodes(p.Middle), cardCodes(p.Bottom))
		fmt.Fprintf(&b, "  POOL:%s|%s\n", cardCodes(p.Hand), cardCodes(p.Discards))
	}

	scoreIDs := make([]string, 0, len(s.FinalScores))
	for id := range s.FinalScores {
		scoreIDs = append(scoreIDs, id)
	}
	sort.Strings(scoreIDs)
	for _, id := range scoreIDs {
		score := s.FinalScores[id]
		fmt.Fprintf(&b, "SCORE:%s|%d|%d|%d\n",
			id, score.Points, score.Royalties, score.Penalties)
	}

	fantasyIDs := make([]string, 0, len(s.FantasyStates))
	for id := range s.FantasyStates {
		fantasyIDs = append(fantasyIDs, id)
	}
	sort.Strings(fantasyIDs)
	for _, id := range fantasyIDs {
		state := s.FantasyStates[id]
		fmt.Fprintf(&b, "FANTASY:%s|%t|%d|%d\n",
			id, state.Active, state.EnteredRound, state.ConsecutiveStays)
	}

	return b.String()
}

// ComputeChecksum hashes the canonical representation.
func (s *GameSnapshot) ComputeChecksum() SerializationChecksum {
	sum := sha256.Sum256([]byte(s.buildDeterministicRepresentation()))
	return SerializationChecksum{
		Hash:      hex.EncodeToString(sum[:]),
		Timestamp: time.Now().UTC().Format(checksumTimeFormat),
		Version:   serializationVersion,
	}
}

// SerializeToBytes encodes the snapshot with gob for compact storage.
func (s *GameSnapshot) SerializeToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("encoding game snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeFromBytes decodes a snapshot produced by
// SerializeToBytes.
func DeserializeFromBytes(data []byte) (*GameSnapshot, error) {
	var snap GameSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding game snapshot: %w", err)
	}
	return &snap, nil
}

// ValidateSerializationRoundtrip encodes the snapshot, decodes it
// back, and verifies both sides hash identically. A mismatch means
// lossy serialization.
func (s *GameSnapshot) ValidateSerializationRoundtrip() error {
	data, err := s.SerializeToBytes()
	if err != nil {
		return err
	}
	restored, err := DeserializeFromBytes(data)
	if err != nil {
		return err
	}

	if want, got := s.ComputeChecksum(), restored.ComputeChecksum(); want.Hash != got.Hash {
		return fmt.Errorf("serialization roundtrip changed state: %s != %s", want.Hash, got.Hash)
	}
	return nil
}

func cardCodes(cards []deck.Card) string {
	codes := make([]string, len(cards))
	for i, c := range cards {
		codes[i] = c.Code()
	}
	return strings.Join(codes, ",")
}
