// internal/leaderboard/leaderboard.go
//
// Leaderboards and per-player stats.
// Two boards, both limited to 20 rows:
//   - champions: players with at least 5 wins, best average guesses per win.
//   - prolific:  most wins.
//
// The boards are read far more often than they change, so reads go through
// an optional Redis cache with a short TTL; game completion invalidates it.
// With no Redis configured the service reads straight from the store.

package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/wordblitz/wordblitz/internal/store"
)

const (
	championsMinWins = 5
	boardLimit       = 20

	cacheKey = "wordblitz:leaderboard"
)

// Boards is the full leaderboard payload.
type Boards struct {
	Champions []store.PlayerStats `json:"champions"`
	Prolific  []store.PlayerStats `json:"prolific"`
}

// PlayerStats is the per-player stats payload.
type PlayerStats struct {
	GamesWon      int      `json:"games_won"`
	GamesLost     int      `json:"games_lost"`
	AvgGuesses    *float64 `json:"avg_guesses"`
	CurrentStreak int      `json:"current_streak"`
	BestStreak    int      `json:"best_streak"`
}

// Service serves leaderboards, optionally cached in Redis.
type Service struct {
	store store.Store
	cache *redis.Client // nil disables caching
	ttl   time.Duration
}

// New constructs a Service. cache may be nil.
func New(st store.Store, cache *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{store: st, cache: cache, ttl: ttl}
}

// Boards returns both leaderboards, from cache when fresh.
func (s *Service) Boards(ctx context.Context) (*Boards, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var b Boards
			if err := json.Unmarshal(data, &b); err == nil {
				return &b, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			// Cache trouble is not a reason to fail the request.
			log.Warn().Err(err).Msg("leaderboard cache read")
		}
	}

	champions, err := s.store.Champions(ctx, championsMinWins, boardLimit)
	if err != nil {
		return nil, err
	}
	prolific, err := s.store.Prolific(ctx, boardLimit)
	if err != nil {
		return nil, err
	}
	b := &Boards{Champions: champions, Prolific: prolific}

	if s.cache != nil {
		if data, err := json.Marshal(b); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, s.ttl).Err(); err != nil {
				log.Warn().Err(err).Msg("leaderboard cache write")
			}
		}
	}
	return b, nil
}

// Invalidate drops the cached boards; called when a game completes.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		log.Warn().Err(err).Msg("leaderboard cache invalidate")
	}
}

// ForPlayer returns one player's stats in the API shape, zero-valued when
// the player has not finished a game yet.
func (s *Service) ForPlayer(ctx context.Context, playerID string) (*PlayerStats, error) {
	st, err := s.store.StatsForPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return &PlayerStats{
		GamesWon:      st.GamesWon,
		GamesLost:     st.GamesPlayed - st.GamesWon,
		AvgGuesses:    st.AvgGuessesPerWin,
		CurrentStreak: st.CurrentStreak,
		BestStreak:    st.BestStreak,
	}, nil
}
