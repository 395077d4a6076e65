package game

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDict map[string]bool

func (d fakeDict) IsValidWord(w string) bool { return d[w] }

var testDict = fakeDict{
	"crane": true, "speed": true, "erase": true, "allee": true,
	"stone": true, "pious": true, "gamer": true, "candy": true,
	"light": true, "mount": true, "berry": true, "eerie": true,
	"robot": true, "spool": true, "loops": true,
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name   string
		target string
		guess  string
		want   []LetterStatus
	}{
		{
			name:   "exact match",
			target: "crane",
			guess:  "crane",
			want:   []LetterStatus{StatusCorrect, StatusCorrect, StatusCorrect, StatusCorrect, StatusCorrect},
		},
		{
			name:   "no overlap",
			target: "crane",
			guess:  "spool",
			want:   []LetterStatus{StatusAbsent, StatusAbsent, StatusAbsent, StatusAbsent, StatusAbsent},
		},
		{
			name:   "anagram all present",
			target: "spool",
			guess:  "loops",
			want:   []LetterStatus{StatusPresent, StatusPresent, StatusCorrect, StatusPresent, StatusPresent},
		},
		{
			// Target has two e's and one s; both guessed e's and the s land
			// as present, everything else is absent.
			name:   "duplicate letters within target capacity",
			target: "speed",
			guess:  "erase",
			want:   []LetterStatus{StatusPresent, StatusAbsent, StatusAbsent, StatusPresent, StatusPresent},
		},
		{
			// Guess has three e's, target "stone" only one: the exact match
			// claims it, the other two are absent.
			name:   "exact match claims shared occurrence first",
			target: "stone",
			guess:  "eerie",
			want:   []LetterStatus{StatusAbsent, StatusAbsent, StatusAbsent, StatusAbsent, StatusCorrect},
		},
		{
			// Two r's in the guess, one r in the target, no exact match:
			// only the leftmost r is present.
			name:   "leftmost duplicate wins",
			target: "gamer",
			guess:  "berry",
			want:   []LetterStatus{StatusAbsent, StatusPresent, StatusPresent, StatusAbsent, StatusAbsent},
		},
		{
			// Double letter in target, single in guess.
			name:   "target duplicate single guess letter",
			target: "allee",
			guess:  "light",
			want:   []LetterStatus{StatusPresent, StatusAbsent, StatusAbsent, StatusAbsent, StatusAbsent},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.target, tc.guess)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateCorrectCountMatchesPositions(t *testing.T) {
	pairs := [][2]string{
		{"crane", "candy"}, {"speed", "erase"}, {"stone", "eerie"},
		{"mount", "mount"}, {"pious", "robot"},
	}
	for _, p := range pairs {
		target, guess := p[0], p[1]
		got := Evaluate(target, guess)
		require.Len(t, got, WordLength)

		wantCorrect := 0
		for i := 0; i < WordLength; i++ {
			if target[i] == guess[i] {
				wantCorrect++
			}
		}
		gotCorrect := 0
		for _, s := range got {
			if s == StatusCorrect {
				gotCorrect++
			}
		}
		assert.Equal(t, wantCorrect, gotCorrect, "%s vs %s", target, guess)
	}
}

func newTestGame(target string) *Game {
	return &Game{
		ID:        "g1",
		PlayerID:  "p1",
		Target:    target,
		Status:    GameActive,
		CreatedAt: time.Now(),
	}
}

func TestApplyGuessWinsOnExactMatch(t *testing.T) {
	g := newTestGame("crane")
	res, err := g.ApplyGuess("crane", testDict, time.Now())
	require.NoError(t, err)

	assert.Equal(t, GameWon, res.Status)
	assert.Equal(t, GameWon, g.Status)
	assert.Equal(t, 1, g.NumGuesses)
	assert.Equal(t, 1, res.Guess.Number)
	assert.Empty(t, res.Answer)
	require.NotNil(t, g.CompletedAt)
}

func TestApplyGuessLosesAfterSixAndRevealsOnce(t *testing.T) {
	g := newTestGame("crane")
	for i := 1; i <= 5; i++ {
		res, err := g.ApplyGuess("stone", testDict, time.Now())
		require.NoError(t, err)
		assert.Equal(t, GameActive, res.Status)
		assert.Equal(t, i, res.Guess.Number)
		assert.Empty(t, res.Answer, "answer must not leak before the loss")
		assert.Nil(t, g.CompletedAt)
	}

	res, err := g.ApplyGuess("stone", testDict, time.Now())
	require.NoError(t, err)
	assert.Equal(t, GameLost, res.Status)
	assert.Equal(t, 6, res.Guess.Number)
	assert.Equal(t, "crane", res.Answer)
	require.NotNil(t, g.CompletedAt)
}

func TestApplyGuessRejectsTerminalGames(t *testing.T) {
	g := newTestGame("crane")
	_, err := g.ApplyGuess("crane", testDict, time.Now())
	require.NoError(t, err)

	_, err = g.ApplyGuess("stone", testDict, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)

	var ge *Error
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, KindInvalidState, ge.Kind)
}

func TestApplyGuessRejectsInvalidWords(t *testing.T) {
	g := newTestGame("crane")
	for _, w := range []string{"", "cran", "cranes", "cr4ne", "CRXNE", "zzzzz"} {
		_, err := g.ApplyGuess(w, testDict, time.Now())
		assert.ErrorIs(t, err, ErrInvalidWord, "word %q", w)
	}
	assert.Equal(t, 0, g.NumGuesses, "rejected guesses must not advance the counter")
	assert.Equal(t, GameActive, g.Status)
}

func TestApplyGuessNormalizesInput(t *testing.T) {
	g := newTestGame("crane")
	res, err := g.ApplyGuess("  CRANE ", testDict, time.Now())
	require.NoError(t, err)
	assert.Equal(t, GameWon, res.Status)
	assert.Equal(t, "crane", res.Guess.Word)
}

func TestApplyGuessGuardsGuessLimit(t *testing.T) {
	g := newTestGame("crane")
	// Force an inconsistent row: active but already at the cap.
	g.NumGuesses = MaxGuesses
	_, err := g.ApplyGuess("stone", testDict, time.Now())
	assert.ErrorIs(t, err, ErrGuessLimitExceeded)
}

func TestGuessNumbersAreSequential(t *testing.T) {
	g := newTestGame("crane")
	words := []string{"stone", "pious", "gamer", "candy"}
	for i, w := range words {
		res, err := g.ApplyGuess(w, testDict, time.Now())
		require.NoError(t, err)
		assert.Equal(t, i+1, res.Guess.Number)
	}
	assert.Equal(t, len(words), g.NumGuesses)
	assert.Equal(t, GameActive, g.Status)
}
