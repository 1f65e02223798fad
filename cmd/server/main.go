package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"slidegraph/internal/config"
	"slidegraph/internal/domain/repositories"
	"slidegraph/internal/handler"
	"slidegraph/internal/handler/sse"
	"slidegraph/internal/middleware"
	"slidegraph/internal/repository/postgres"
	"slidegraph/internal/repository/sqlite"
	"slidegraph/internal/service/generation"
	"slidegraph/internal/service/graph"
	"slidegraph/internal/service/image"
	serviceLLM "slidegraph/internal/service/llm"
	"slidegraph/internal/service/llm/tools"
	"slidegraph/internal/service/llm/tools/external"
	"slidegraph/internal/service/pregen"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store", cfg.StoreDriver,
	)

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open graph store: %v", err)
	}
	defer closeStore()

	prompts, err := config.LoadPrompts(cfg.PromptFile)
	if err != nil {
		log.Fatalf("Failed to load prompts: %v", err)
	}

	slideModel, err := serviceLLM.NewModelClient(cfg, cfg.SlideModel, logger)
	if err != nil {
		log.Fatalf("Failed to create slide model client: %v", err)
	}
	chatModel, err := serviceLLM.NewModelClient(cfg, cfg.ChatModel, logger)
	if err != nil {
		log.Fatalf("Failed to create chat model client: %v", err)
	}
	slideModelID, err := serviceLLM.RequestModel(cfg.SlideModel, cfg.ModelBaseURL)
	if err != nil {
		log.Fatalf("Invalid SLIDE_MODEL: %v", err)
	}
	chatModelID, err := serviceLLM.RequestModel(cfg.ChatModel, cfg.ModelBaseURL)
	if err != nil {
		log.Fatalf("Invalid CHAT_MODEL: %v", err)
	}

	// Tools
	searcher := external.NewSearcherFromConfig(cfg, logger)
	toolRegistry := tools.NewToolRegistryBuilder(prompts).
		WithRenderSlide().
		WithWebSearch(searcher).
		Build()

	engine := generation.NewEngine(slideModel, toolRegistry, prompts, generation.EngineConfig{
		Model:           slideModelID,
		MaxTokens:       cfg.MaxTokens,
		MaxTurns:        cfg.MaxTurns,
		PartialInterval: cfg.PartialInterval,
		RenderAck:       prompts.RenderAck,
	}, logger)

	var coordinator *pregen.Coordinator
	if cfg.PregenEnabled {
		coordinator = pregen.NewCoordinator(engine, cfg.PregenMaxConcurrent, logger)
		defer coordinator.Close()
		logger.Info("speculative generation enabled", "max_concurrent", cfg.PregenMaxConcurrent)
	}

	// Services
	slideService := graph.NewSlideService(store, logger)
	linkService := graph.NewLinkService(store, logger)
	chatService := graph.NewChatService(store, chatModel, prompts, graph.ChatConfig{
		Model:     chatModelID,
		MaxTokens: cfg.ChatMaxTokens,
	}, logger)
	flow := graph.NewFlow(slideService, chatService, engine, coordinator, prompts.ContinuePrompt, logger)
	resolver := image.NewResolverFromKeys(cfg.UnsplashAccessKey, cfg.OpenAIAPIKey, logger)

	// Handlers
	sseConfig := sse.DefaultConfig()
	sseConfig.KeepAliveInterval = cfg.SSEKeepAlive

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Handlers{
		Slides: handler.NewSlideHandler(slideService, linkService, flow, sseConfig, logger),
		Chats:  handler.NewChatHandler(chatService, flow, sseConfig, logger),
		Pregen: handler.NewPregenHandler(flow, logger),
		Images: handler.NewImageHandler(resolver),
	})

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → RequestLogger → Routes
	h = middleware.RequestLogger(logger)(h)
	h = middleware.Recovery(logger)(h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Last-Event-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
}

// openStore opens the configured graph store and returns its closer
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("database connected", "driver", "postgres", "table_prefix", cfg.TablePrefix)
		store := postgres.NewStore(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		})
		return store, pool.Close, nil

	default:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("database opened", "driver", "sqlite", "path", cfg.SQLitePath)
		return db.Store(), func() { _ = db.Close() }, nil
	}
}
