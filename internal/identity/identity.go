// internal/identity/identity.go
//
// Player identity resolution.
// Responsibilities:
//   - Fingerprint: stable hash of client attributes (first X-Forwarded-For
//     hop, User-Agent, Accept-Language) for registration and fallback lookup.
//   - Player token: signed HS256 JWT set as a cookie at registration, checked
//     first on later requests so identity survives fingerprint drift (new IP,
//     browser update).
//
// The token is also accepted as an Authorization bearer for non-browser
// clients.

package identity

import (
	"context"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/blake2b"

	"github.com/wordblitz/wordblitz/internal/game"
	"github.com/wordblitz/wordblitz/internal/store"
)

// ErrUnknownPlayer means neither token nor fingerprint matched a player.
var ErrUnknownPlayer = errors.New("player not registered")

// Resolver maps HTTP requests to registered players.
type Resolver struct {
	store      store.Store
	secret     []byte
	cookieName string
	secure     bool
	tokenTTL   time.Duration
}

// Config for a Resolver. CookieName defaults to "wordblitz_token" and
// TokenTTL to 180 days.
type Config struct {
	Secret     string
	CookieName string
	Secure     bool
	TokenTTL   time.Duration
}

// NewResolver constructs a Resolver over the player store.
func NewResolver(st store.Store, cfg Config) *Resolver {
	if cfg.CookieName == "" {
		cfg.CookieName = "wordblitz_token"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 180 * 24 * time.Hour
	}
	return &Resolver{
		store:      st,
		secret:     []byte(cfg.Secret),
		cookieName: cfg.CookieName,
		secure:     cfg.Secure,
		tokenTTL:   cfg.TokenTTL,
	}
}

// Fingerprint hashes the request's client attributes to a stable hex id.
// The first X-Forwarded-For hop wins over RemoteAddr so the fingerprint
// survives proxies, matching how the rest of the stack sees client IPs.
func Fingerprint(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
	}
	if i := strings.IndexByte(ip, ','); i >= 0 {
		ip = strings.TrimSpace(ip[:i])
	}
	sum := blake2b.Sum256([]byte(ip + r.Header.Get("User-Agent") + r.Header.Get("Accept-Language")))
	return hex.EncodeToString(sum[:])
}

// Resolve returns the player for the request: a valid player token first,
// then the fingerprint. ErrUnknownPlayer when neither matches.
func (rv *Resolver) Resolve(ctx context.Context, r *http.Request) (*game.Player, error) {
	if id := rv.playerIDFromToken(r); id != "" {
		p, err := rv.store.PlayerByID(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		// Stale token for a deleted player: fall through to the fingerprint.
	}
	p, err := rv.store.PlayerByFingerprint(ctx, Fingerprint(r))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownPlayer
	}
	return p, err
}

// playerIDFromToken extracts and verifies the player token from the
// Authorization header or the cookie; empty on any failure.
func (rv *Resolver) playerIDFromToken(r *http.Request) string {
	tok := ""
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		tok = strings.TrimSpace(a[7:])
	} else if c, err := r.Cookie(rv.cookieName); err == nil {
		tok = c.Value
	}
	if tok == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return rv.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !t.Valid {
		return ""
	}
	id, _ := claims["id"].(string)
	return id
}

// SetPlayerCookie signs a token for the player and writes it as a cookie.
func (rv *Resolver) SetPlayerCookie(w http.ResponseWriter, p *game.Player) error {
	exp := time.Now().Add(rv.tokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  p.ID,
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
	})
	ss, err := t.SignedString(rv.secret)
	if err != nil {
		return err
	}
	sameSite := http.SameSiteLaxMode
	if rv.secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     rv.cookieName,
		Value:    ss,
		Path:     "/",
		HttpOnly: true,
		Secure:   rv.secure,
		SameSite: sameSite,
		Expires:  exp,
	})
	return nil
}
