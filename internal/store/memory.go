// internal/store/memory.go
//
// In-memory Store implementation. Used for tests and for running the server
// without a database file; state is lost when the process exits.
//
// A single mutex serializes all mutations, which trivially satisfies the
// per-game atomicity requirement: the compare-and-swap in AppendGuess runs
// under the same lock as the guess append and the stats update.

package store

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/wordblitz/wordblitz/internal/game"
)

// Memory is a map-backed Store.
type Memory struct {
	mu         sync.Mutex
	players    map[string]*game.Player // by id
	byFP       map[string]string       // fingerprint -> player id
	words      []game.Word
	wordIDs    map[string]int64 // word text -> id
	games      map[string]*game.Game
	guesses    map[string][]game.Guess // by game id
	nextWordID int64
}

var _ Store = (*Memory)(nil)

// NewMemory constructs an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		players: make(map[string]*game.Player),
		byFP:    make(map[string]string),
		wordIDs: make(map[string]int64),
		games:   make(map[string]*game.Game),
		guesses: make(map[string][]game.Guess),
	}
}

func (m *Memory) Close() error { return nil }

// --------------------------------- players ---------------------------------

func (m *Memory) CreatePlayer(ctx context.Context, p *game.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byFP[p.Fingerprint]; taken {
		return ErrFingerprintTaken
	}
	cp := *p
	m.players[p.ID] = &cp
	m.byFP[p.Fingerprint] = p.ID
	return nil
}

func (m *Memory) PlayerByID(ctx context.Context, id string) (*game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) PlayerByFingerprint(ctx context.Context, fp string) (*game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byFP[fp]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.players[id]
	return &cp, nil
}

// ---------------------------------- words ----------------------------------

func (m *Memory) SeedWords(ctx context.Context, ws []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	added := 0
	for _, w := range ws {
		if _, dup := m.wordIDs[w]; dup {
			continue
		}
		m.nextWordID++
		m.wordIDs[w] = m.nextWordID
		m.words = append(m.words, game.Word{ID: m.nextWordID, Text: w})
		added++
	}
	return added, nil
}

func (m *Memory) PickWord(ctx context.Context, playerID string) (*game.Word, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.words) == 0 {
		return nil, ErrNotFound
	}

	seen := make(map[int64]struct{})
	for _, g := range m.games {
		if g.PlayerID == playerID {
			seen[g.WordID] = struct{}{}
		}
	}
	var unseen []game.Word
	for _, w := range m.words {
		if _, ok := seen[w.ID]; !ok {
			unseen = append(unseen, w)
		}
	}
	pool := unseen
	if len(pool) == 0 {
		pool = m.words
	}
	w := pool[rand.IntN(len(pool))]
	return &w, nil
}

// ---------------------------------- games ----------------------------------

func (m *Memory) CreateGame(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.games[g.ID] = &cp
	return nil
}

func (m *Memory) ActiveGame(ctx context.Context, playerID string) (*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if g.PlayerID == playerID && g.Status == game.GameActive {
			cp := *g
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) AbandonActiveGames(ctx context.Context, playerID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if g.PlayerID == playerID && g.Status == game.GameActive {
			g.Status = game.GameAbandoned
			t := at
			g.CompletedAt = &t
		}
	}
	return nil
}

func (m *Memory) AppendGuess(ctx context.Context, g *game.Game, gu *game.Guess) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.games[g.ID]
	if !ok {
		return ErrNotFound
	}
	// CAS: the stored row must still be active at the pre-guess counter.
	if stored.Status != game.GameActive || stored.NumGuesses != gu.Number-1 {
		return ErrConflict
	}

	stored.Status = g.Status
	stored.NumGuesses = g.NumGuesses
	stored.CompletedAt = g.CompletedAt

	cp := *gu
	cp.Result = append([]game.LetterStatus(nil), gu.Result...)
	m.guesses[g.ID] = append(m.guesses[g.ID], cp)

	if g.Status == game.GameWon || g.Status == game.GameLost {
		m.bumpStats(stored.PlayerID, g.Status == game.GameWon, gu.Number)
	}
	return nil
}

// bumpStats updates the player's counters for one completed game.
// Caller holds the lock.
func (m *Memory) bumpStats(playerID string, won bool, numGuesses int) {
	p, ok := m.players[playerID]
	if !ok {
		return
	}
	p.GamesPlayed++
	if won {
		p.GamesWon++
		p.WinGuessTotal += numGuesses
		p.CurrentStreak++
		if p.CurrentStreak > p.BestStreak {
			p.BestStreak = p.CurrentStreak
		}
	} else {
		p.CurrentStreak = 0
	}
}

func (m *Memory) Guesses(ctx context.Context, gameID string) ([]game.Guess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]game.Guess, len(m.guesses[gameID]))
	copy(out, m.guesses[gameID])
	return out, nil
}

// ------------------------------- leaderboard -------------------------------

func (m *Memory) Champions(ctx context.Context, minWins, limit int) ([]PlayerStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []PlayerStats{}
	for _, p := range m.players {
		if p.GamesWon >= minWins {
			out = append(out, statsOf(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return *out[i].AvgGuessesPerWin < *out[j].AvgGuessesPerWin
	})
	return clip(out, limit), nil
}

func (m *Memory) Prolific(ctx context.Context, limit int) ([]PlayerStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []PlayerStats{}
	for _, p := range m.players {
		out = append(out, statsOf(p))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GamesWon > out[j].GamesWon
	})
	return clip(out, limit), nil
}

func (m *Memory) StatsForPlayer(ctx context.Context, playerID string) (*PlayerStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	s := statsOf(p)
	return &s, nil
}

func statsOf(p *game.Player) PlayerStats {
	s := PlayerStats{
		PlayerID:      p.ID,
		Name:          p.Name,
		GamesWon:      p.GamesWon,
		GamesPlayed:   p.GamesPlayed,
		CurrentStreak: p.CurrentStreak,
		BestStreak:    p.BestStreak,
	}
	if p.GamesWon > 0 {
		avg := float64(p.WinGuessTotal) / float64(p.GamesWon)
		s.AvgGuessesPerWin = &avg
	}
	return s
}

func clip(ss []PlayerStats, limit int) []PlayerStats {
	if limit > 0 && len(ss) > limit {
		return ss[:limit]
	}
	return ss
}
