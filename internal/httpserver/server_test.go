package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/wordblitz/wordblitz/internal/identity"
	"github.com/wordblitz/wordblitz/internal/leaderboard"
	"github.com/wordblitz/wordblitz/internal/play"
	"github.com/wordblitz/wordblitz/internal/store"
	"github.com/wordblitz/wordblitz/internal/words"
)

type ServerSuite struct {
	suite.Suite
	server  *Server
	cookies []*http.Cookie
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	mem := store.NewMemory()
	dict, err := words.New([]string{"crane", "stone", "pious", "gamer", "candy", "mount", "robot"})
	s.Require().NoError(err)
	_, err = mem.SeedWords(context.Background(), []string{"crane"})
	s.Require().NoError(err)

	svc := play.New(mem, dict)
	boards := leaderboard.New(mem, nil, time.Minute)
	svc.OnComplete(boards.Invalidate)
	resolver := identity.NewResolver(mem, identity.Config{Secret: "test-secret"})

	s.server = New(Config{
		Store:    mem,
		Play:     svc,
		Boards:   boards,
		Resolver: resolver,
		Dict:     dict,
	})
	s.cookies = nil
}

// do issues a request as a fixed browser identity, carrying cookies forward.
func (s *ServerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.RemoteAddr = "203.0.113.7:40000"
	r.Header.Set("User-Agent", "test-browser")
	r.Header.Set("Accept-Language", "en")
	for _, c := range s.cookies {
		r.AddCookie(c)
	}

	w := httptest.NewRecorder()
	s.server.Router().ServeHTTP(w, r)
	if cs := w.Result().Cookies(); len(cs) > 0 {
		s.cookies = append(s.cookies, cs...)
	}
	return w
}

func (s *ServerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *ServerSuite) register(name string) {
	w := s.do(http.MethodPost, "/api/register", map[string]string{"name": name})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
}

func (s *ServerSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(true, s.decode(w)["ok"])
}

func (s *ServerSuite) TestRegisterAndMe() {
	w := s.do(http.MethodPost, "/api/register", map[string]string{"name": "alice"})
	s.Require().Equal(http.StatusCreated, w.Code)
	body := s.decode(w)
	s.Equal("alice", body["name"])
	s.NotEmpty(body["id"])
	s.NotEmpty(s.cookies, "registration must set the player token cookie")

	w = s.do(http.MethodGet, "/api/me", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("alice", s.decode(w)["name"])
}

func (s *ServerSuite) TestRegisterRequiresName() {
	w := s.do(http.MethodPost, "/api/register", map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ServerSuite) TestRegisterTwiceConflicts() {
	s.register("alice")
	s.cookies = nil // same browser, fresh cookie jar

	w := s.do(http.MethodPost, "/api/register", map[string]string{"name": "alice2"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("already_registered", s.decode(w)["error"])
}

func (s *ServerSuite) TestUnregisteredRequestsRejected() {
	for _, path := range []string{"/api/me", "/api/game/current", "/api/stats"} {
		w := s.do(http.MethodGet, path, nil)
		s.Equal(http.StatusUnauthorized, w.Code, path)
		s.Equal("not_registered", s.decode(w)["error"])
	}
	w := s.do(http.MethodPost, "/api/game/new", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *ServerSuite) TestGameFlowWin() {
	s.register("alice")

	w := s.do(http.MethodPost, "/api/game/new", nil)
	s.Require().Equal(http.StatusCreated, w.Code)
	body := s.decode(w)
	s.Equal("active", body["status"])
	s.Equal(float64(0), body["num_guesses"])
	s.NotContains(body, "answer")

	w = s.do(http.MethodPost, "/api/game/guess", map[string]string{"guess": "stone"})
	s.Require().Equal(http.StatusOK, w.Code)
	body = s.decode(w)
	s.Equal("active", body["status"])
	s.Equal(float64(1), body["num_guesses"])
	guess := body["guess"].(map[string]any)
	s.Equal("stone", guess["guess"])
	result := guess["result"].([]any)
	s.Require().Len(result, 5)
	first := result[0].(map[string]any)
	s.Equal("s", first["letter"])
	s.Contains([]string{"correct", "present", "absent"}, first["status"])

	w = s.do(http.MethodPost, "/api/game/guess", map[string]string{"guess": "crane"})
	s.Require().Equal(http.StatusOK, w.Code)
	body = s.decode(w)
	s.Equal("won", body["status"])
	s.Equal(float64(2), body["num_guesses"])
	s.NotContains(body, "answer", "winning reveals nothing")
	s.Len(body["guesses"].([]any), 2)
}

func (s *ServerSuite) TestGameFlowLossRevealsAnswer() {
	s.register("alice")
	s.do(http.MethodPost, "/api/game/new", nil)

	var body map[string]any
	for i := 0; i < 6; i++ {
		w := s.do(http.MethodPost, "/api/game/guess", map[string]string{"guess": "stone"})
		s.Require().Equal(http.StatusOK, w.Code)
		body = s.decode(w)
		if i < 5 {
			s.NotContains(body, "answer")
		}
	}
	s.Equal("lost", body["status"])
	s.Equal("crane", body["answer"])

	// Terminal game: further guesses conflict.
	w := s.do(http.MethodPost, "/api/game/guess", map[string]string{"guess": "stone"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("invalid_state", s.decode(w)["error"])
}

func (s *ServerSuite) TestInvalidGuessRejected() {
	s.register("alice")
	s.do(http.MethodPost, "/api/game/new", nil)

	w := s.do(http.MethodPost, "/api/game/guess", map[string]string{"guess": "zzzzz"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("invalid_word", s.decode(w)["error"])
}

func (s *ServerSuite) TestGuessWithoutGame() {
	s.register("alice")
	w := s.do(http.MethodPost, "/api/game/guess", map[string]string{"guess": "crane"})
	s.Equal(http.StatusConflict, w.Code)
}

func (s *ServerSuite) TestCurrentGameResume() {
	s.register("alice")
	w := s.do(http.MethodGet, "/api/game/current", nil)
	s.Equal(http.StatusNotFound, w.Code)

	s.do(http.MethodPost, "/api/game/new", nil)
	s.do(http.MethodPost, "/api/game/guess", map[string]string{"guess": "stone"})

	w = s.do(http.MethodGet, "/api/game/current", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal("active", body["status"])
	s.Len(body["guesses"].([]any), 1)
}

func (s *ServerSuite) TestNewGameSupersedesOld() {
	s.register("alice")
	w := s.do(http.MethodPost, "/api/game/new", nil)
	firstID := s.decode(w)["game_id"]

	w = s.do(http.MethodPost, "/api/game/new", nil)
	secondID := s.decode(w)["game_id"]
	s.NotEqual(firstID, secondID)

	w = s.do(http.MethodGet, "/api/game/current", nil)
	s.Equal(secondID, s.decode(w)["game_id"])
}

func (s *ServerSuite) TestStatsAndLeaderboard() {
	s.register("alice")
	s.do(http.MethodPost, "/api/game/new", nil)
	s.do(http.MethodPost, "/api/game/guess", map[string]string{"guess": "crane"})

	w := s.do(http.MethodGet, "/api/stats", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body := s.decode(w)
	s.Equal(float64(1), body["games_won"])
	s.Equal(float64(0), body["games_lost"])
	s.Equal(float64(1), body["avg_guesses"])

	w = s.do(http.MethodGet, "/api/leaderboard", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	body = s.decode(w)
	s.Len(body["prolific"].([]any), 1)
	s.Empty(body["champions"], "one win is below the champions threshold")
}

func (s *ServerSuite) TestUnknownRouteIsJSON404() {
	w := s.do(http.MethodGet, "/nope", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("not_found", s.decode(w)["error"])
}
