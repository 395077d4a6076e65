// cmd/wordblitz/main.go
//
// CLI entrypoint. Subcommands:
//   serve   — run the HTTP API server.
//   migrate — apply database migrations and exit.
//   seed    — load the word list into the database and exit.
//
// Configuration is environment-driven (.env supported in development).

package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wordblitz/wordblitz/internal/httpserver"
	"github.com/wordblitz/wordblitz/internal/identity"
	"github.com/wordblitz/wordblitz/internal/leaderboard"
	"github.com/wordblitz/wordblitz/internal/play"
	"github.com/wordblitz/wordblitz/internal/store"
	"github.com/wordblitz/wordblitz/internal/words"
)

func main() {
	root := &cobra.Command{
		Use:   "wordblitz",
		Short: "Word-guessing game server",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
				zerolog.SetGlobalLevel(lvl)
			}
		},
	}

	var useMemory bool
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(useMemory)
		},
	}
	serve.Flags().BoolVar(&useMemory, "memory", false, "run with the in-memory store (no database file)")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.OpenSQLite(getEnv("DATABASE_PATH", "./data/wordblitz.db"))
			if err != nil {
				return err
			}
			defer st.Close()
			log.Info().Msg("migrations up to date")
			return nil
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load the word list into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			dict, err := loadDictionary()
			if err != nil {
				return err
			}
			st, err := store.OpenSQLite(getEnv("DATABASE_PATH", "./data/wordblitz.db"))
			if err != nil {
				return err
			}
			defer st.Close()

			added, err := st.SeedWords(context.Background(), dict.Words())
			if err != nil {
				return err
			}
			log.Info().Int("added", added).Int("total", dict.Count()).Msg("words seeded")
			return nil
		},
	}

	root.AddCommand(serve, migrate, seed)
	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func runServe(useMemory bool) error {
	dict, err := loadDictionary()
	if err != nil {
		return err
	}
	log.Info().Int("words", dict.Count()).Msg("dictionary loaded")

	var st store.Store
	if useMemory {
		st = store.NewMemory()
		log.Warn().Msg("using in-memory store; state is lost on restart")
	} else {
		st, err = store.OpenSQLite(getEnv("DATABASE_PATH", "./data/wordblitz.db"))
		if err != nil {
			return err
		}
	}
	defer st.Close()

	// Keep the words table in sync with the dictionary so target selection
	// always has the full list to draw from.
	if _, err := st.SeedWords(context.Background(), dict.Words()); err != nil {
		return err
	}

	var cache *redis.Client
	if url := os.Getenv("REDIS_URL"); url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return err
		}
		cache = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; leaderboard cache disabled")
			cache = nil
		}
	}

	boards := leaderboard.New(st, cache, 30*time.Second)
	svc := play.New(st, dict)
	svc.OnComplete(boards.Invalidate)

	resolver := identity.NewResolver(st, identity.Config{
		Secret:     getEnv("JWT_SECRET", "dev_secret_change_me"),
		CookieName: getEnv("COOKIE_NAME", "wordblitz_token"),
		Secure:     os.Getenv("ENV") == "production",
	})

	srv := httpserver.New(httpserver.Config{
		Store:        st,
		Play:         svc,
		Boards:       boards,
		Resolver:     resolver,
		Dict:         dict,
		ClientOrigin: os.Getenv("CLIENT_ORIGIN"),
	})

	port := getEnv("PORT", "8080")
	log.Info().Str("port", port).Msg("starting wordblitz server")
	return srv.Start(":" + port)
}

// loadDictionary reads WORDS_FILE when set, otherwise the embedded list.
func loadDictionary() (*words.List, error) {
	if path := os.Getenv("WORDS_FILE"); path != "" {
		return words.Load(path)
	}
	return words.Default()
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
