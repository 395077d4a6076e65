// internal/store/sqlite.go
//
// SQLite-backed Store.
// Responsibilities:
//   - Open the database with safe defaults (WAL, busy timeout, foreign keys).
//   - Apply embedded migrations (idempotent, recorded in _migrations).
//   - Per-game atomic guess persistence: one transaction, guarded by a
//     compare-and-swap on the game row.

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/wordblitz/wordblitz/internal/game"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if missing) the database at path, sets pragmas,
// and applies pending migrations.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// migrate applies embedded migrations in lexical order, recording each in the
// _migrations table so reruns are no-ops.
func (s *SQLite) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var done int
		err := s.db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, name).Scan(&done)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		sqlBytes, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", name, err)
		}
		log.Info().Str("migration", name).Msg("applied")
	}
	return nil
}

// --------------------------------- players ---------------------------------

func (s *SQLite) CreatePlayer(ctx context.Context, p *game.Player) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, name, fingerprint, created_at) VALUES (?,?,?,?)`,
		p.ID, p.Name, p.Fingerprint, p.CreatedAt.UTC().Format(time.RFC3339))
	if isUniqueViolation(err) {
		return ErrFingerprintTaken
	}
	return err
}

const playerCols = `id, name, fingerprint, created_at,
	games_played, games_won, win_guess_total, current_streak, best_streak`

func (s *SQLite) PlayerByID(ctx context.Context, id string) (*game.Player, error) {
	return scanPlayer(s.db.QueryRowContext(ctx,
		`SELECT `+playerCols+` FROM players WHERE id=?`, id))
}

func (s *SQLite) PlayerByFingerprint(ctx context.Context, fp string) (*game.Player, error) {
	return scanPlayer(s.db.QueryRowContext(ctx,
		`SELECT `+playerCols+` FROM players WHERE fingerprint=?`, fp))
}

func scanPlayer(row *sql.Row) (*game.Player, error) {
	var p game.Player
	var created string
	err := row.Scan(&p.ID, &p.Name, &p.Fingerprint, &created,
		&p.GamesPlayed, &p.GamesWon, &p.WinGuessTotal, &p.CurrentStreak, &p.BestStreak)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &p, nil
}

// ---------------------------------- words ----------------------------------

func (s *SQLite) SeedWords(ctx context.Context, ws []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	added := 0
	for _, w := range ws {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO words (word) VALUES (?)`, w)
		if err != nil {
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, tx.Commit()
}

func (s *SQLite) PickWord(ctx context.Context, playerID string) (*game.Word, error) {
	// Prefer a word the player has never played.
	var w game.Word
	err := s.db.QueryRowContext(ctx, `
		SELECT id, word FROM words
		WHERE id NOT IN (SELECT word_id FROM games WHERE player_id=?)
		ORDER BY RANDOM() LIMIT 1`, playerID).Scan(&w.ID, &w.Text)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.QueryRowContext(ctx,
			`SELECT id, word FROM words ORDER BY RANDOM() LIMIT 1`).Scan(&w.ID, &w.Text)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ---------------------------------- games ----------------------------------

func (s *SQLite) CreateGame(ctx context.Context, g *game.Game) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, player_id, word_id, status, num_guesses, created_at)
		VALUES (?,?,?,?,?,?)`,
		g.ID, g.PlayerID, g.WordID, string(g.Status), g.NumGuesses,
		g.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *SQLite) ActiveGame(ctx context.Context, playerID string) (*game.Game, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT g.id, g.player_id, g.word_id, w.word, g.status, g.num_guesses,
		       g.created_at, COALESCE(g.completed_at, '')
		FROM games g JOIN words w ON w.id = g.word_id
		WHERE g.player_id=? AND g.status=?`, playerID, string(game.GameActive))

	var g game.Game
	var status, created, completed string
	err := row.Scan(&g.ID, &g.PlayerID, &g.WordID, &g.Target, &status,
		&g.NumGuesses, &created, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	g.Status = game.Status(status)
	g.CreatedAt, _ = time.Parse(time.RFC3339, created)
	if completed != "" {
		t, _ := time.Parse(time.RFC3339, completed)
		g.CompletedAt = &t
	}
	return &g, nil
}

func (s *SQLite) AbandonActiveGames(ctx context.Context, playerID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE games SET status=?, completed_at=?
		WHERE player_id=? AND status=?`,
		string(game.GameAbandoned), at.UTC().Format(time.RFC3339),
		playerID, string(game.GameActive))
	return err
}

func (s *SQLite) AppendGuess(ctx context.Context, g *game.Game, gu *game.Guess) error {
	resultJSON, err := json.Marshal(gu.Result)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var completed any
	if g.CompletedAt != nil {
		completed = g.CompletedAt.UTC().Format(time.RFC3339)
	}

	// CAS: only advance a row that is still active at the pre-guess counter.
	res, err := tx.ExecContext(ctx, `
		UPDATE games SET status=?, num_guesses=?, completed_at=?
		WHERE id=? AND status=? AND num_guesses=?`,
		string(g.Status), g.NumGuesses, completed,
		g.ID, string(game.GameActive), gu.Number-1)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO guesses (game_id, guess_word, guess_number, result, created_at)
		VALUES (?,?,?,?,?)`,
		gu.GameID, gu.Word, gu.Number, string(resultJSON),
		gu.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}

	if g.Status == game.GameWon || g.Status == game.GameLost {
		if err := bumpStatsTx(ctx, tx, g.PlayerID, g.Status == game.GameWon, gu.Number); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// bumpStatsTx updates the player's counters for one completed game, inside
// the same transaction that finished it.
func bumpStatsTx(ctx context.Context, tx *sql.Tx, playerID string, won bool, numGuesses int) error {
	var gp, gw, wgt, cur, best int
	row := tx.QueryRowContext(ctx, `
		SELECT games_played, games_won, win_guess_total, current_streak, best_streak
		FROM players WHERE id=?`, playerID)
	if err := row.Scan(&gp, &gw, &wgt, &cur, &best); err != nil {
		return err
	}
	gp++
	if won {
		gw++
		wgt += numGuesses
		cur++
		if cur > best {
			best = cur
		}
	} else {
		cur = 0
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE players SET games_played=?, games_won=?, win_guess_total=?,
		                   current_streak=?, best_streak=?
		WHERE id=?`, gp, gw, wgt, cur, best, playerID)
	return err
}

func (s *SQLite) Guesses(ctx context.Context, gameID string) ([]game.Guess, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, guess_word, guess_number, result, created_at
		FROM guesses WHERE game_id=? ORDER BY guess_number`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []game.Guess{}
	for rows.Next() {
		var gu game.Guess
		var result, created string
		if err := rows.Scan(&gu.GameID, &gu.Word, &gu.Number, &result, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(result), &gu.Result); err != nil {
			return nil, fmt.Errorf("decode result for guess %d: %w", gu.Number, err)
		}
		gu.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, gu)
	}
	return out, rows.Err()
}

// ------------------------------- leaderboard -------------------------------

const statsCols = `id, name, games_won, games_played, win_guess_total,
	current_streak, best_streak`

func (s *SQLite) Champions(ctx context.Context, minWins, limit int) ([]PlayerStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+statsCols+` FROM players
		WHERE games_won >= ?
		ORDER BY CAST(win_guess_total AS REAL) / games_won ASC
		LIMIT ?`, minWins, limit)
	if err != nil {
		return nil, err
	}
	return scanStats(rows)
}

func (s *SQLite) Prolific(ctx context.Context, limit int) ([]PlayerStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+statsCols+` FROM players
		ORDER BY games_won DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return scanStats(rows)
}

func (s *SQLite) StatsForPlayer(ctx context.Context, playerID string) (*PlayerStats, error) {
	p, err := s.PlayerByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	st := playerStatsFrom(p.ID, p.Name, p.GamesWon, p.GamesPlayed, p.WinGuessTotal,
		p.CurrentStreak, p.BestStreak)
	return &st, nil
}

func scanStats(rows *sql.Rows) ([]PlayerStats, error) {
	defer rows.Close()
	out := []PlayerStats{}
	for rows.Next() {
		var id, name string
		var won, played, wgt, cur, best int
		if err := rows.Scan(&id, &name, &won, &played, &wgt, &cur, &best); err != nil {
			return nil, err
		}
		out = append(out, playerStatsFrom(id, name, won, played, wgt, cur, best))
	}
	return out, rows.Err()
}

func playerStatsFrom(id, name string, won, played, winGuessTotal, cur, best int) PlayerStats {
	st := PlayerStats{
		PlayerID:      id,
		Name:          name,
		GamesWon:      won,
		GamesPlayed:   played,
		CurrentStreak: cur,
		BestStreak:    best,
	}
	if won > 0 {
		avg := float64(winGuessTotal) / float64(won)
		st.AvgGuessesPerWin = &avg
	}
	return st
}

// isUniqueViolation reports whether err is a SQLite unique-constraint error.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
