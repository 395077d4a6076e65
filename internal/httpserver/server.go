// internal/httpserver/server.go
//
// HTTP wiring for the wordblitz API.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, panic recovery, timeouts,
//     JSON content type, credentialed CORS).
//   - Registration/identity endpoints: POST /api/register, GET /api/me.
//   - Game endpoints: POST /api/game/new, GET /api/game/current,
//     POST /api/game/guess.
//   - Leaderboard + stats: GET /api/leaderboard, GET /api/stats.
//
// Response field names follow the public API (game_id, num_guesses, result
// as [{letter,status}]); any aliasing between the wire shape and the engine's
// types lives here and nowhere deeper.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wordblitz/wordblitz/internal/game"
	"github.com/wordblitz/wordblitz/internal/identity"
	"github.com/wordblitz/wordblitz/internal/leaderboard"
	"github.com/wordblitz/wordblitz/internal/play"
	"github.com/wordblitz/wordblitz/internal/store"
	"github.com/wordblitz/wordblitz/internal/words"
)

// Server bundles the router with the services it fronts.
type Server struct {
	r        *chi.Mux
	store    store.Store
	play     *play.Service
	boards   *leaderboard.Service
	resolver *identity.Resolver
	dict     *words.List
}

// Config for a Server.
type Config struct {
	Store        store.Store
	Play         *play.Service
	Boards       *leaderboard.Service
	Resolver     *identity.Resolver
	Dict         *words.List
	ClientOrigin string
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg Config) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		store:    cfg.Store,
		play:     cfg.Play,
		boards:   cfg.Boards,
		resolver: cfg.Resolver,
		dict:     cfg.Dict,
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(cors(cfg.ClientOrigin))

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "wordblitz",
			"endpoints": []string{
				"POST /api/register", "GET /api/me",
				"POST /api/game/new", "GET /api/game/current", "POST /api/game/guess",
				"GET /api/leaderboard", "GET /api/stats",
			},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"words": s.dict.Count()})
	})

	s.r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Get("/me", s.handleMe)
		r.Post("/game/new", s.handleNewGame)
		r.Get("/game/current", s.handleCurrentGame)
		r.Post("/game/guess", s.handleGuess)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/stats", s.handleStats)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router for tests.
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------ payloads -----------------------------------

type registerReq struct {
	Name string `json:"name"`
}

type playerRes struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// letterMark is the wire shape of one evaluated letter.
type letterMark struct {
	Letter string            `json:"letter"`
	Status game.LetterStatus `json:"status"`
}

type guessRes struct {
	Guess       string       `json:"guess"`
	GuessNumber int          `json:"guess_number"`
	Result      []letterMark `json:"result"`
}

type gameRes struct {
	GameID     string      `json:"game_id"`
	Status     game.Status `json:"status"`
	NumGuesses int         `json:"num_guesses"`
	Guesses    []guessRes  `json:"guesses"`
	// Guess is the guess just submitted; only on POST /api/game/guess.
	Guess *guessRes `json:"guess,omitempty"`
	// Answer is the revealed target; only on the response that loses the game.
	Answer string `json:"answer,omitempty"`
}

func marksOf(gu *game.Guess) guessRes {
	res := guessRes{Guess: gu.Word, GuessNumber: gu.Number, Result: make([]letterMark, len(gu.Result))}
	for i, st := range gu.Result {
		res.Result[i] = letterMark{Letter: string(gu.Word[i]), Status: st}
	}
	return res
}

func gameResOf(g *game.Game, guesses []game.Guess) gameRes {
	out := gameRes{
		GameID:     g.ID,
		Status:     g.Status,
		NumGuesses: g.NumGuesses,
		Guesses:    make([]guessRes, len(guesses)),
	}
	for i := range guesses {
		out.Guesses[i] = marksOf(&guesses[i])
	}
	return out
}

func playerResOf(p *game.Player) playerRes {
	return playerRes{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339)}
}

// ------------------------------ handlers -----------------------------------

// handleRegister creates a player for the request's fingerprint and sets the
// player-token cookie. One player per fingerprint.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	p := &game.Player{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Fingerprint: identity.Fingerprint(r),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreatePlayer(r.Context(), p); err != nil {
		if errors.Is(err, store.ErrFingerprintTaken) {
			writeError(w, http.StatusConflict, "already_registered", "player already registered from this browser")
			return
		}
		s.internalError(w, err, "create player")
		return
	}
	if err := s.resolver.SetPlayerCookie(w, p); err != nil {
		s.internalError(w, err, "sign player token")
		return
	}
	writeJSON(w, http.StatusCreated, playerResOf(p))
}

// handleMe echoes the resolved player.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := s.resolvePlayer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, playerResOf(p))
}

// handleNewGame starts a fresh game, superseding any active one.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	p, ok := s.resolvePlayer(w, r)
	if !ok {
		return
	}
	v, err := s.play.StartGame(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.internalError(w, err, "no words seeded")
			return
		}
		s.internalError(w, err, "start game")
		return
	}
	writeJSON(w, http.StatusCreated, gameResOf(v.Game, v.Guesses))
}

// handleCurrentGame resumes the active game with its guess history.
func (s *Server) handleCurrentGame(w http.ResponseWriter, r *http.Request) {
	p, ok := s.resolvePlayer(w, r)
	if !ok {
		return
	}
	v, err := s.play.CurrentGame(r.Context(), p.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no_active_game", "no active game")
		return
	}
	if err != nil {
		s.internalError(w, err, "load current game")
		return
	}
	writeJSON(w, http.StatusOK, gameResOf(v.Game, v.Guesses))
}

type guessReq struct {
	Guess string `json:"guess"`
}

// handleGuess submits a guess against the player's active game.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	p, ok := s.resolvePlayer(w, r)
	if !ok {
		return
	}
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	res, err := s.play.SubmitGuess(r.Context(), p.ID, req.Guess)
	if err != nil {
		var ge *game.Error
		if errors.As(err, &ge) {
			writeError(w, statusForKind(ge.Kind), string(ge.Kind), ge.Message)
			return
		}
		s.internalError(w, err, "submit guess")
		return
	}

	out := gameResOf(res.Game, res.Guesses)
	gr := marksOf(res.Result.Guess)
	out.Guess = &gr
	out.Answer = res.Result.Answer
	writeJSON(w, http.StatusOK, out)
}

// handleLeaderboard serves both boards.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	b, err := s.boards.Boards(r.Context())
	if err != nil {
		s.internalError(w, err, "load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleStats serves the resolved player's stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	p, ok := s.resolvePlayer(w, r)
	if !ok {
		return
	}
	st, err := s.boards.ForPlayer(r.Context(), p.ID)
	if err != nil {
		s.internalError(w, err, "load stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ------------------------------- helpers -----------------------------------

// resolvePlayer maps the request to a registered player, writing the 401
// itself when there is none.
func (s *Server) resolvePlayer(w http.ResponseWriter, r *http.Request) (*game.Player, bool) {
	p, err := s.resolver.Resolve(r.Context(), r)
	if errors.Is(err, identity.ErrUnknownPlayer) {
		writeError(w, http.StatusUnauthorized, "not_registered", "player not registered")
		return nil, false
	}
	if err != nil {
		s.internalError(w, err, "resolve player")
		return nil, false
	}
	return p, true
}

// statusForKind maps engine error kinds to HTTP statuses. The guess-limit
// guard is an internal-consistency fault, not a user error.
func statusForKind(k game.ErrorKind) int {
	switch k {
	case game.KindInvalidWord:
		return http.StatusBadRequest
	case game.KindInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error, msg string) {
	log.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, "internal_error", msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"error": kind, "message": message})
}
