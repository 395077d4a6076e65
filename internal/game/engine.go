// internal/game/engine.go
//
// Guess evaluator and game state machine.
// Responsibilities:
//   - Evaluate guesses against the target with the classic two-pass algorithm
//     (correct handling of repeated letters).
//   - Validate and apply guesses: length, alphabet, dictionary membership.
//   - Track state transitions: active → won/lost.
//
// Notes:
//   - The dictionary is injected; this package owns no word lists.
//   - Persistence is the caller's concern; ApplyGuess mutates the in-memory
//     Game and hands back the Guess record to be stored.

package game

import (
	"strings"
	"time"
)

// Evaluate scores guess against target, returning one status per position.
//
// Pass 1: mark exact matches as correct and count the remaining (non-exact)
// target letters. Pass 2: resolve the rest left to right — present while the
// letter still has remaining count, absent otherwise.
//
// Earlier positions claim shared occurrences first, so a letter repeated in
// the guess shows correct/present only as many times as it occurs in the
// target. Pure and deterministic; inputs are assumed validated (same length,
// lowercase a-z).
func Evaluate(target, guess string) []LetterStatus {
	n := len(guess)
	res := make([]LetterStatus, n)

	// Remaining (non-exact) target letter counts, a-z.
	var counts [26]int

	for i := 0; i < n; i++ {
		if guess[i] == target[i] {
			res[i] = StatusCorrect
		} else {
			counts[target[i]-'a']++
		}
	}

	for i := 0; i < n; i++ {
		if res[i] == StatusCorrect {
			continue
		}
		j := int(guess[i] - 'a')
		if j >= 0 && j < 26 && counts[j] > 0 {
			res[i] = StatusPresent
			counts[j]--
		} else {
			res[i] = StatusAbsent
		}
	}
	return res
}

// Result is the outcome of a single accepted guess.
type Result struct {
	Guess  *Guess
	Status Status
	// Answer is the target word, set only when this guess has just lost the
	// game. Empty in every other case.
	Answer string
}

// ApplyGuess validates word, scores it, and advances the game.
//
// Validation rules:
//   - Game must be active (ErrInvalidState).
//   - Word must be exactly 5 lowercase letters and in the dictionary
//     (ErrInvalidWord).
//   - Guess counter must be below the maximum (ErrGuessLimitExceeded;
//     unreachable through normal transitions).
//
// Transitions:
//   - All five statuses correct → won, CompletedAt set.
//   - Sixth guess without a win → lost, CompletedAt set, Result.Answer
//     carries the revealed target.
//   - Otherwise the game stays active.
func (g *Game) ApplyGuess(word string, dict Dictionary, now time.Time) (*Result, error) {
	if g.Status != GameActive {
		return nil, ErrInvalidState
	}
	if g.NumGuesses >= MaxGuesses {
		return nil, ErrGuessLimitExceeded
	}
	word = strings.ToLower(strings.TrimSpace(word))
	if len(word) != WordLength || !isLower(word) || !dict.IsValidWord(word) {
		return nil, ErrInvalidWord
	}

	statuses := Evaluate(g.Target, word)
	gu := &Guess{
		GameID:    g.ID,
		Word:      word,
		Number:    g.NumGuesses + 1,
		Result:    statuses,
		CreatedAt: now,
	}
	g.NumGuesses++

	res := &Result{Guess: gu}
	switch {
	case allCorrect(statuses):
		g.Status = GameWon
		g.CompletedAt = &now
	case g.NumGuesses >= MaxGuesses:
		g.Status = GameLost
		g.CompletedAt = &now
		res.Answer = g.Target
	}
	res.Status = g.Status
	return res, nil
}

// allCorrect reports whether every status is StatusCorrect.
func allCorrect(statuses []LetterStatus) bool {
	for _, s := range statuses {
		if s != StatusCorrect {
			return false
		}
	}
	return true
}

// isLower reports whether s consists only of lowercase ASCII letters.
func isLower(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
