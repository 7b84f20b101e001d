package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/openfacepoker/ofc-server-go/internal/game"
)

// ErrNotFound is returned when a requested game has no stored record.
var ErrNotFound = errors.New("game not found")

// StoredGame is one finished game as persisted in the history store.
type StoredGame struct {
	ID          string
	Variant     string
	Status      string
	WinnerID    string
	Scores      map[string]game.Score
	Snapshot    game.GameSnapshot
	Checksum    string
	CompletedAt time.Time
	CreatedAt   time.Time
}

// GameRepository stores completed games.
type GameRepository struct {
	db *DB
}

// NewGameRepository creates a game history repository.
func NewGameRepository(db *DB) *GameRepository {
	return &GameRepository{db: db}
}

// SaveCompletedGame persists a finished game's snapshot, scores, and
// checksum. Saving the same game twice is a no-op.
func (r *GameRepository) SaveCompletedGame(ctx context.Context, snap game.GameSnapshot) error {
	if snap.Status != game.StatusCompleted {
		return fmt.Errorf("game %s is %s, only completed games are stored", snap.GameID, snap.Status)
	}
	if snap.CompletedAt == nil {
		return fmt.Errorf("game %s has no completion timestamp", snap.GameID)
	}

	scores, err := json.Marshal(snap.FinalScores)
	if err != nil {
		return fmt.Errorf("encoding scores for game %s: %w", snap.GameID, err)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot for game %s: %w", snap.GameID, err)
	}
	checksum := snap.ComputeChecksum()

	tag, err := r.db.pool.Exec(ctx, `
		INSERT INTO games (id, variant, status, winner_id, scores, snapshot, checksum, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`,
		snap.GameID,
		string(snap.Rules.Variant),
		string(snap.Status),
		snap.WinnerID,
		scores,
		payload,
		checksum.Hash,
		*snap.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("saving game %s: %w", snap.GameID, err)
	}
	if tag.RowsAffected() == 0 {
		r.db.logger.Debug("game already stored", zap.String("game_id", snap.GameID))
		return nil
	}

	r.db.logger.Info("game stored",
		zap.String("game_id", snap.GameID),
		zap.String("winner_id", snap.WinnerID))
	return nil
}

// GetGame loads one stored game by id.
func (r *GameRepository) GetGame(ctx context.Context, gameID string) (*StoredGame, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT id, variant, status, winner_id, scores, snapshot, checksum, completed_at, created_at
		FROM games WHERE id = $1
	`, gameID)

	stored, err := scanStoredGame(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading game %s: %w", gameID, err)
	}
	return stored, nil
}

// RecentGames returns the most recently completed games, newest first.
func (r *GameRepository) RecentGames(ctx context.Context, limit int) ([]StoredGame, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT id, variant, status, winner_id, scores, snapshot, checksum, completed_at, created_at
		FROM games ORDER BY completed_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent games: %w", err)
	}
	defer rows.Close()

	games := make([]StoredGame, 0, limit)
	for rows.Next() {
		stored, err := scanStoredGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning game row: %w", err)
		}
		games = append(games, *stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating game rows: %w", err)
	}
	return games, nil
}

func scanStoredGame(row pgx.Row) (*StoredGame, error) {
	var (
		stored     StoredGame
		scoresJSON []byte
		snapJSON   []byte
	)
	err := row.Scan(
		&stored.ID,
		&stored.Variant,
		&stored.Status,
		&stored.WinnerID,
		&scoresJSON,
		&snapJSON,
		&stored.Checksum,
		&stored.CompletedAt,
		&stored.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(scoresJSON, &stored.Scores); err != nil {
		return nil, fmt.Errorf("decoding scores: %w", err)
	}
	if err := json.Unmarshal(snapJSON, &stored.Snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &stored, nil
}
