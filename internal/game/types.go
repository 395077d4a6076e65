// internal/game/types.go
//
// Core type definitions for the word game engine.
// Defines:
//   - LetterStatus: per-letter evaluation of a guess (correct/present/absent).
//   - Status: lifecycle state of a game (active/won/lost/abandoned).
//   - Game, Guess: state for a single game and its submitted guesses.

package game

import "time"

// WordLength and MaxGuesses fix the board dimensions (5 letters, 6 tries).
const (
	WordLength = 5
	MaxGuesses = 6
)

// LetterStatus is the evaluation result for a single letter position.
// Possible values:
//   - "correct": right letter, right position.
//   - "present": letter occurs in the target, different position.
//   - "absent":  letter does not occur (accounting for occurrences already claimed).
type LetterStatus string

const (
	StatusCorrect LetterStatus = "correct"
	StatusPresent LetterStatus = "present"
	StatusAbsent  LetterStatus = "absent"
)

// Status is the lifecycle state of a game. Won and lost are terminal.
// Abandoned marks a game superseded by a newer one for the same player;
// it is terminal too and counts toward no statistics.
type Status string

const (
	GameActive    Status = "active"
	GameWon       Status = "won"
	GameLost      Status = "lost"
	GameAbandoned Status = "abandoned"
)

// Terminal reports whether s accepts no further guesses.
func (s Status) Terminal() bool { return s != GameActive }

// Game holds the state of a single game for one player.
// The target word is loaded alongside the row but never serialized out;
// it is revealed to callers exactly once, on the transition to lost.
type Game struct {
	ID          string     `json:"game_id"`
	PlayerID    string     `json:"-"`
	WordID      int64      `json:"-"`
	Target      string     `json:"-"`
	Status      Status     `json:"status"`
	NumGuesses  int        `json:"num_guesses"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Guess is one submitted guess. Append-only; Number is 1-based and strictly
// sequential within a game.
type Guess struct {
	GameID    string         `json:"-"`
	Word      string         `json:"guess"`
	Number    int            `json:"guess_number"`
	Result    []LetterStatus `json:"result"`
	CreatedAt time.Time      `json:"-"`
}

// Player is a fingerprint-identified player. Referenced by Game; stats live
// on the row and are maintained transactionally as games complete.
type Player struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`

	GamesPlayed   int `json:"-"`
	GamesWon      int `json:"-"`
	WinGuessTotal int `json:"-"` // sum of NumGuesses over won games, for avg-per-win
	CurrentStreak int `json:"-"`
	BestStreak    int `json:"-"`
}

// Word is a dictionary entry as stored (id for games.word_id references).
type Word struct {
	ID   int64
	Text string
}

// Dictionary is the membership test the engine needs from the word list.
type Dictionary interface {
	IsValidWord(w string) bool
}
