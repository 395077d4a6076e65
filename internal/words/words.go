// internal/words/words.go
//
// Dictionary for the game engine.
//
// Responsibilities:
//   - Load the word list from a configured file or fall back to the embedded
//     default list.
//   - Membership tests for guess validation and uniform random selection for
//     target words.
//
// Constraints:
//   - Words are exactly 5 alphabetic letters (a-z), normalized to lowercase.
//   - A List is immutable once built; construct it at startup and inject it
//     wherever a dictionary is needed.

package words

import (
	"bufio"
	"crypto/rand"
	_ "embed"
	"errors"
	"math/big"
	"os"
	"strings"
)

//go:embed default_words.txt
var embeddedWords string

// List is an immutable dictionary of 5-letter words.
type List struct {
	words []string
	set   map[string]struct{}
}

// Load reads one word per line from path, keeping valid 5-letter alphabetic
// words (lowercased, trimmed). Blank lines and #-comments are skipped.
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w, ok := normalize(sc.Text()); ok {
			out = append(out, w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return New(out)
}

// Default builds a List from the embedded word list.
func Default() (*List, error) {
	var out []string
	for _, line := range strings.Split(embeddedWords, "\n") {
		if w, ok := normalize(line); ok {
			out = append(out, w)
		}
	}
	return New(out)
}

// New builds a List from ws, dropping anything that is not a valid 5-letter
// word and deduplicating. Errors if nothing survives.
func New(ws []string) (*List, error) {
	l := &List{set: make(map[string]struct{}, len(ws))}
	for _, raw := range ws {
		w, ok := normalize(raw)
		if !ok {
			continue
		}
		if _, dup := l.set[w]; dup {
			continue
		}
		l.set[w] = struct{}{}
		l.words = append(l.words, w)
	}
	if len(l.words) == 0 {
		return nil, errors.New("words: list is empty")
	}
	return l, nil
}

// normalize lowercases and trims a candidate line; ok is false for comments,
// blanks, and anything that is not 5 lowercase letters.
func normalize(line string) (string, bool) {
	w := strings.TrimSpace(strings.ToLower(line))
	if w == "" || strings.HasPrefix(w, "#") {
		return "", false
	}
	if len(w) != 5 || !isAlpha(w) {
		return "", false
	}
	return w, true
}

// isAlpha reports whether s is all lowercase ASCII letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// IsValidWord reports whether w belongs to the dictionary.
func (l *List) IsValidWord(w string) bool {
	_, ok := l.set[strings.ToLower(strings.TrimSpace(w))]
	return ok
}

// Random returns a uniformly random word from the list (crypto/rand, so
// selection bias is not a concern even for small lists).
func (l *List) Random() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(l.words))))
	return l.words[n.Int64()]
}

// Words returns a copy of the full list, in load order.
func (l *List) Words() []string {
	out := make([]string, len(l.words))
	copy(out, l.words)
	return out
}

// Count returns the number of words in the list.
func (l *List) Count() int { return len(l.words) }
