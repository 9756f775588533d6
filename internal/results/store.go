// internal/results/store.go
//
// Finished rounds and per-level leaderboards.
// Responsibilities:
//   - Record one row per finished game (game_id is unique; replays of the
//     same insert are ignored).
//   - Rank a level's results: score DESC, elapsed ASC, created_at ASC.

package results

import (
	"context"
	"database/sql"
	"fmt"
)

// DefaultLimit caps leaderboard size when the caller passes <= 0.
const DefaultLimit = 20

// Result is one finished round.
type Result struct {
	GameID    string `json:"gameId"`
	LevelID   string `json:"levelId"`
	PlayerID  string `json:"playerId"`
	Score     int    `json:"score"`
	Attempts  int    `json:"attempts"`
	Found     int    `json:"found"`
	Total     int    `json:"total"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Row is one leaderboard line.
type Row struct {
	PlayerID  string `json:"playerId"`
	Score     int    `json:"score"`
	Found     int    `json:"found"`
	Total     int    `json:"total"`
	ElapsedMs int64  `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Insert records r. A second insert for the same game id is ignored.
func (s *Store) Insert(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO results
            (game_id, level_id, player_id, score, attempts, found, total, elapsed_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.GameID, r.LevelID, r.PlayerID, r.Score, r.Attempts, r.Found, r.Total, r.ElapsedMs,
	)
	if err != nil {
		return fmt.Errorf("insert result %s: %w", r.GameID, err)
	}
	return nil
}

// Leaderboard returns the top results for levelID.
func (s *Store) Leaderboard(ctx context.Context, levelID string, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT player_id, score, found, total, elapsed_ms
        FROM results
        WHERE level_id=?
        ORDER BY score DESC, elapsed_ms ASC, created_at ASC, id ASC
        LIMIT ?`, levelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard %s: %w", levelID, err)
	}
	defer rows.Close()

	out := make([]Row, 0, limit)
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.PlayerID, &r.Score, &r.Found, &r.Total, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
