// internal/store/store.go
//
// Persistence interface for players, words, games, and guesses.
// Implementations: memory (dev/tests) and sqlite (durable).

package store

import (
	"context"
	"errors"
	"time"

	"github.com/wordblitz/wordblitz/internal/game"
)

var (
	// ErrNotFound is returned for missing players, games, or words.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when AppendGuess loses the compare-and-swap on
	// the game row: someone else advanced or finished the game first.
	ErrConflict = errors.New("conflict")

	// ErrFingerprintTaken is returned when a fingerprint already has a player.
	ErrFingerprintTaken = errors.New("fingerprint already registered")
)

// PlayerStats is one leaderboard/stats row. AvgGuessesPerWin is nil when the
// player has no wins.
type PlayerStats struct {
	PlayerID         string   `json:"-"`
	Name             string   `json:"name"`
	GamesWon         int      `json:"games_won"`
	GamesPlayed      int      `json:"games_played"`
	AvgGuessesPerWin *float64 `json:"avg_guesses_per_win"`
	CurrentStreak    int      `json:"current_streak"`
	BestStreak       int      `json:"best_streak"`
}

// Store is the durable backing for the game lifecycle. Mutations touching a
// game row must be atomic per game; AppendGuess in particular performs its
// writes in one transaction guarded by a compare-and-swap on num_guesses.
type Store interface {
	// CreatePlayer inserts p. Returns ErrFingerprintTaken if the fingerprint
	// is already registered.
	CreatePlayer(ctx context.Context, p *game.Player) error
	PlayerByID(ctx context.Context, id string) (*game.Player, error)
	PlayerByFingerprint(ctx context.Context, fp string) (*game.Player, error)

	// SeedWords inserts words, skipping duplicates; returns how many are new.
	SeedWords(ctx context.Context, ws []string) (int, error)
	// PickWord selects a uniform random word the player has not played yet,
	// falling back to any word once the player has seen them all.
	PickWord(ctx context.Context, playerID string) (*game.Word, error)

	CreateGame(ctx context.Context, g *game.Game) error
	// ActiveGame returns the player's single active game with the target
	// word loaded, or ErrNotFound.
	ActiveGame(ctx context.Context, playerID string) (*game.Game, error)
	// AbandonActiveGames marks any active games for the player as abandoned.
	AbandonActiveGames(ctx context.Context, playerID string, at time.Time) error

	// AppendGuess persists one accepted guess and the updated game row.
	// g carries the post-guess state (num_guesses = gu.Number); the update
	// only applies while the stored row is still active with
	// num_guesses = gu.Number-1, otherwise ErrConflict. When the game just
	// completed (won/lost), the player's stats row is updated in the same
	// transaction; abandoned games never reach this path.
	AppendGuess(ctx context.Context, g *game.Game, gu *game.Guess) error
	Guesses(ctx context.Context, gameID string) ([]game.Guess, error)

	// Champions lists players with at least minWins wins, best (lowest)
	// average guesses per win first. Prolific lists by wins, most first.
	Champions(ctx context.Context, minWins, limit int) ([]PlayerStats, error)
	Prolific(ctx context.Context, limit int) ([]PlayerStats, error)
	StatsForPlayer(ctx context.Context, playerID string) (*PlayerStats, error)

	Close() error
}
