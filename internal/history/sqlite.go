// internal/history/sqlite.go
//
// SQLite-backed record of finished games.
// Responsibilities:
//   - Opening SQLite database with safe defaults (WAL, busy timeout).
//   - Applying embedded migrations (assets/sql/*.sql), recorded in _migrations.
//   - Recording results, daily leaderboard, and per-player history.

package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessing-game/assets"
	"github.com/robalobadob/guessing-game/internal/game"
)

const defaultLimit = 20

// Result is one finished game.
type Result struct {
	Player    string    `json:"player"`
	Mode      game.Mode `json:"mode"`
	Date      string    `json:"date"` // "YYYY-MM-DD" (UTC)
	Secret    int       `json:"secret"`
	Attempts  int       `json:"attempts"`
	ElapsedMs int64     `json:"elapsedMs"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromGame builds a Result from a won game.
func FromGame(g *game.Game) Result {
	date := g.Date
	if date == "" {
		date = g.FinishedAt.UTC().Format("2006-01-02")
	}
	return Result{
		Player:    g.Player,
		Mode:      g.Mode,
		Date:      date,
		Secret:    g.Secret.Value(),
		Attempts:  g.Attempts.Value(),
		ElapsedMs: g.Elapsed().Milliseconds(),
		CreatedAt: g.FinishedAt,
	}
}

// Store persists results in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if missing) the database at dsn and migrates it.
func Open(dsn string) (*Store, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// openDB ensures the parent directory exists and opens the file
// with a busy timeout and WAL journaling.
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// migrate applies each embedded migration once, in lexical order,
// each inside its own transaction.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := assets.Migrations()
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("query _migrations: %w", err)
		}

		sqlBytes, err := assets.FS.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

// Record inserts a result.
// A second daily result for the same player and date is ignored; the
// returned bool reports whether a row was written.
func (s *Store) Record(ctx context.Context, r Result) (bool, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO results
            (player, mode, date, secret, attempts, elapsed_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Player, string(r.Mode), r.Date, r.Secret, r.Attempts, r.ElapsedMs,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("insert result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AlreadyPlayed reports whether player has a daily result for date.
func (s *Store) AlreadyPlayed(ctx context.Context, player, date string) (bool, error) {
	var cnt int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM results WHERE mode='daily' AND player=? AND date=?`,
		player, date,
	).Scan(&cnt); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// Leaderboard returns the best daily results for date:
// fewest attempts, then fastest, then earliest recorded.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.query(ctx, `
        SELECT player, mode, date, secret, attempts, elapsed_ms, created_at
        FROM results
        WHERE mode='daily' AND date=?
        ORDER BY attempts ASC, elapsed_ms ASC, id ASC
        LIMIT ?`, date, limit)
}

// Recent returns a player's results, newest first.
func (s *Store) Recent(ctx context.Context, player string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.query(ctx, `
        SELECT player, mode, date, secret, attempts, elapsed_ms, created_at
        FROM results
        WHERE player=?
        ORDER BY id DESC
        LIMIT ?`, player, limit)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		var (
			r       Result
			mode    string
			created string
		)
		if err := rows.Scan(&r.Player, &mode, &r.Date, &r.Secret, &r.Attempts, &r.ElapsedMs, &created); err != nil {
			return nil, err
		}
		r.Mode = game.Mode(mode)
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, r)
	}
	return out, rows.Err()
}
