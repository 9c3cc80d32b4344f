package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/daretna/daretna/internal/auth"
	"github.com/daretna/daretna/internal/calculator"
	"github.com/daretna/daretna/internal/daret"
	"github.com/daretna/daretna/internal/models"
	"github.com/daretna/daretna/internal/notify"
	"github.com/daretna/daretna/internal/payments"
	"github.com/daretna/daretna/internal/scoring"
	"github.com/daretna/daretna/internal/server"
	"github.com/daretna/daretna/internal/social"
	"github.com/daretna/daretna/internal/storage"
	"github.com/daretna/daretna/internal/storage/sqlite"
	"github.com/daretna/daretna/pkg/logging"
)

const defaultTokenTTL = 24 * time.Hour

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/daretna.db")
	port := getEnv("PORT", "8080")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET must be set")
		os.Exit(1)
	}

	tokenTTL := defaultTokenTTL
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			slog.Error("Invalid TOKEN_TTL", "value", raw, "error", err)
			os.Exit(1)
		}
		tokenTTL = parsed
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	scorer := buildScorer()
	notifier := notify.NewStoreNotifier(store)
	engine := daret.New(store, scorer, notifier)
	socialService := social.NewService(store)
	gateway := payments.NewGateway(engine)
	authenticator := auth.NewPasswordAuthenticator(store)
	jwtManager := auth.NewJWTManager(jwtSecret, tokenTTL)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@hourly", func() { sweepGroups(store, engine, socialService) }); err != nil {
		slog.Error("Failed to schedule group sweep", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(engine, socialService, gateway, authenticator, jwtManager, scorer, store)

	addr := fmt.Sprintf(":%s", port)
	slog.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// buildScorer picks the LLM scorer when an API key is configured, otherwise
// the deterministic heuristic.
func buildScorer() scoring.Scorer {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		slog.Info("Using heuristic trust scorer")
		return scoring.NewHeuristicScorer()
	}

	scorer, err := scoring.NewRemoteLLMScorer(apiKey, os.Getenv("OPENAI_MODEL"))
	if err != nil {
		slog.Warn("Failed to build LLM scorer, using heuristic", "error", err)
		return scoring.NewHeuristicScorer()
	}
	slog.Info("Using LLM trust scorer")
	return scorer
}

// sweepGroups is the periodic maintenance pass: mark overdue payments late
// and close expired votes across all groups.
func sweepGroups(store storage.Store, engine *daret.Engine, socialService *social.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	groups, err := store.ListGroups(ctx)
	if err != nil {
		slog.Error("Group sweep failed to list groups", "error", err)
		return
	}

	for _, group := range groups {
		if _, err := socialService.CloseExpiredVotes(ctx, group.ID); err != nil {
			slog.Warn("Failed to close expired votes", "group_id", group.ID, "error", err)
		}

		if group.Status != models.GroupActive {
			continue
		}
		schedule, err := calculator.Schedule(group)
		if err != nil || group.CurrentTurnIndex >= len(schedule) {
			continue
		}
		if time.Now().Before(schedule[group.CurrentTurnIndex].Date) {
			continue
		}

		marked, err := engine.MarkLatePayments(ctx, group.ID)
		if err != nil {
			slog.Warn("Failed to mark late payments", "group_id", group.ID, "error", err)
			continue
		}
		if marked > 0 {
			slog.Info("Overdue payments marked late", "group_id", group.ID, "count", marked)
		}
	}
}
