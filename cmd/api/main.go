package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/dungeon-master/internal/config"
	"github.com/jwebster45206/dungeon-master/internal/dungeonmaster"
	"github.com/jwebster45206/dungeon-master/internal/handlers"
	"github.com/jwebster45206/dungeon-master/internal/logger"
	"github.com/jwebster45206/dungeon-master/internal/middleware"
	"github.com/jwebster45206/dungeon-master/internal/services"
	"github.com/jwebster45206/dungeon-master/internal/services/events"
	"github.com/jwebster45206/dungeon-master/internal/storage"
	"github.com/jwebster45206/dungeon-master/pkg/normalize"
	"github.com/jwebster45206/dungeon-master/pkg/textfilter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Dungeon Master API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"aux_model_name", cfg.AuxModelName)

	llmService, err := newLLMService(cfg, log)
	if err != nil {
		log.Error("Invalid LLM provider specified", "error", err, "provider", cfg.LLMProvider)
		os.Exit(1)
	}
	log.Info("Using LLM provider", "backend", llmService.Name(), "mode", llmService.Mode())

	store, err := storage.NewRedisStorage(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	dispatcher, err := dungeonmaster.New(dungeonmaster.Config{
		LLM:           llmService,
		Model:         cfg.ModelName,
		AuxModel:      cfg.AuxModelName,
		Timeout:       cfg.GenerationTimeout,
		Classifier:    normalize.KeywordClassifier{},
		Filter:        textfilter.ForRating(cfg.ContentRating),
		ContentRating: cfg.ContentRating,
		Logger:        log,
	})
	if err != nil {
		log.Error("Failed to create dispatcher", "error", err)
		os.Exit(1)
	}

	broadcaster := events.NewBroadcaster(store.Client(), log)
	sessions := dungeonmaster.NewSessions(dungeonmaster.SessionsConfig{
		Store:            store,
		Dispatcher:       dispatcher,
		Events:           broadcaster,
		EnforceTurnOrder: cfg.EnforceTurnOrder,
		LockTTL:          cfg.GenerationTimeout + 30*time.Second,
		Logger:           log,
	})

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, llmService, log)
	mux.Handle("/health", healthHandler)
	mux.Handle("/health/detailed", healthHandler)

	dmHandler := handlers.NewDMHandler(dispatcher, log)
	mux.Handle("/v1/dm/", dmHandler)

	gamesHandler := handlers.NewGamesHandler(sessions, log)
	mux.Handle("/v1/games", gamesHandler)
	mux.Handle("/v1/games/", gamesHandler)

	mux.Handle("/v1/events/games/", handlers.NewEventsHandler(broadcaster, log))

	limiter := middleware.NewRateLimiter(store.Client(), cfg.RateLimitWindow, []middleware.RateRule{
		{Name: "dm", Prefix: "/v1/dm/", Limit: cfg.RateLimitDM},
		{Name: "general", Prefix: "/v1/", Limit: cfg.RateLimitGeneral},
	}, log)
	limiter.TrustProxy = cfg.TrustProxy

	handler := middleware.Chain(mux,
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recover(log),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.FrontendURL),
		limiter.Middleware(),
	)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the event stream stays open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}

func newLLMService(cfg *config.Config, log *slog.Logger) (services.LLMService, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return services.NewOpenAIService(cfg.OpenAIAPIKey, log), nil
	case config.ProviderVenice:
		return services.NewVeniceService(cfg.VeniceAPIKey, log), nil
	case config.ProviderGemini:
		return services.NewGeminiService(cfg.GeminiAPIKey, log), nil
	case config.ProviderAnthropic:
		return services.NewAnthropicService(cfg.AnthropicAPIKey, log), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.LLMProvider)
	}
}
