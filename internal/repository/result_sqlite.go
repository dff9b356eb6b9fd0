package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/hexgame-server/internal/apperror"
	"github.com/rocketscienceinc/hexgame-server/internal/entity"
)

type sqliteResults struct {
	conn *sql.DB
}

// NewSQLiteResultRepository expects the game_results table created by storage.Init.
func NewSQLiteResultRepository(conn *sql.DB) ResultRepository {
	return &sqliteResults{
		conn: conn,
	}
}

func (that *sqliteResults) Save(ctx context.Context, result *entity.GameResult) error {
	moves, err := json.Marshal(result.Moves)
	if err != nil {
		return fmt.Errorf("could not marshal moves: %w", err)
	}

	query := `INSERT OR REPLACE INTO game_results
		(id, size, time_control, with_ai, player1, player2, winner, winner_seat, reason, moves, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = that.conn.ExecContext(ctx, query,
		result.ID, result.Size, result.TimeControl, result.WithAI,
		result.Player1, result.Player2, result.Winner, result.WinnerSeat,
		string(result.Reason), string(moves), result.EndedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}

func (that *sqliteResults) GetByID(ctx context.Context, id string) (*entity.GameResult, error) {
	query := `SELECT id, size, time_control, with_ai, player1, player2, winner, winner_seat, reason, moves, ended_at
		FROM game_results WHERE id = ?`

	var (
		result  entity.GameResult
		reason  string
		moves   string
		endedAt string
	)

	err := that.conn.QueryRowContext(ctx, query, id).Scan(
		&result.ID, &result.Size, &result.TimeControl, &result.WithAI,
		&result.Player1, &result.Player2, &result.Winner, &result.WinnerSeat,
		&reason, &moves, &endedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get result by id: %w", err)
	}

	result.Reason = entity.EndReason(reason)

	if err = json.Unmarshal([]byte(moves), &result.Moves); err != nil {
		return nil, fmt.Errorf("failed to unmarshal moves: %w", err)
	}

	if result.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
		return nil, fmt.Errorf("failed to parse end time: %w", err)
	}

	return &result, nil
}
