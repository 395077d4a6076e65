// internal/play/service.go
//
// Game lifecycle service: start games, resume the active game, submit
// guesses. Sits between the HTTP layer and the engine, owning word selection
// and persistence so every mutation funnels through one place.
//
// Atomicity: the engine runs against a loaded copy of the game row; the
// store's AppendGuess only commits if the row is unchanged underneath
// (compare-and-swap on num_guesses). A lost race surfaces as InvalidState
// to the caller, which matches what actually happened: by the time the
// second request landed, the game was no longer in the state it read.

package play

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wordblitz/wordblitz/internal/game"
	"github.com/wordblitz/wordblitz/internal/store"
)

// Service owns the game lifecycle for all players.
type Service struct {
	store store.Store
	dict  game.Dictionary
	now   func() time.Time

	// onComplete is invoked after a game reaches won/lost; used to
	// invalidate the leaderboard cache. May be nil.
	onComplete func(ctx context.Context)
}

// New constructs a Service over the given store and dictionary.
func New(st store.Store, dict game.Dictionary) *Service {
	return &Service{store: st, dict: dict, now: time.Now}
}

// OnComplete registers a hook called whenever a game completes.
func (s *Service) OnComplete(fn func(ctx context.Context)) { s.onComplete = fn }

// GameView is a game plus its guess history, as returned to callers.
type GameView struct {
	Game    *game.Game
	Guesses []game.Guess
}

// StartGame creates a fresh active game for the player, superseding any
// prior active game (which is marked abandoned). The target is a uniformly
// random word the player has not played before when one remains.
func (s *Service) StartGame(ctx context.Context, playerID string) (*GameView, error) {
	now := s.now().UTC()
	if err := s.store.AbandonActiveGames(ctx, playerID, now); err != nil {
		return nil, err
	}

	w, err := s.store.PickWord(ctx, playerID)
	if err != nil {
		return nil, err
	}

	g := &game.Game{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		WordID:    w.ID,
		Target:    w.Text,
		Status:    game.GameActive,
		CreatedAt: now,
	}
	if err := s.store.CreateGame(ctx, g); err != nil {
		return nil, err
	}
	log.Info().Str("game_id", g.ID).Str("player_id", playerID).Msg("game started")
	return &GameView{Game: g, Guesses: []game.Guess{}}, nil
}

// CurrentGame returns the player's active game with its guess history, or
// store.ErrNotFound when there is none.
func (s *Service) CurrentGame(ctx context.Context, playerID string) (*GameView, error) {
	g, err := s.store.ActiveGame(ctx, playerID)
	if err != nil {
		return nil, err
	}
	guesses, err := s.store.Guesses(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	return &GameView{Game: g, Guesses: guesses}, nil
}

// SubmitResult is the outcome of one accepted guess: the engine result, the
// updated game, and the full guess history including the new guess.
type SubmitResult struct {
	Result  *game.Result
	Game    *game.Game
	Guesses []game.Guess
}

// SubmitGuess applies word to the player's active game.
//
// Engine errors (InvalidWord, InvalidState, GuessLimitExceeded) pass through
// typed; a missing active game and a lost persistence race both come back as
// InvalidState, since in either case there is no active game in the state
// the caller assumed.
func (s *Service) SubmitGuess(ctx context.Context, playerID, word string) (*SubmitResult, error) {
	g, err := s.store.ActiveGame(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, game.ErrInvalidState
	}
	if err != nil {
		return nil, err
	}

	res, err := g.ApplyGuess(word, s.dict, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendGuess(ctx, g, res.Guess); err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Warn().Str("game_id", g.ID).Int("guess_number", res.Guess.Number).
				Msg("concurrent guess lost the race")
			return nil, game.ErrInvalidState
		}
		return nil, err
	}

	if res.Status.Terminal() {
		log.Info().Str("game_id", g.ID).Str("status", string(res.Status)).
			Int("num_guesses", g.NumGuesses).Msg("game finished")
		if s.onComplete != nil {
			s.onComplete(ctx)
		}
	}

	guesses, err := s.store.Guesses(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Result: res, Game: g, Guesses: guesses}, nil
}
