// Archive brain server — routes chat, runs the agents, and manages the
// surprise-gated memory store.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/archive-ai/brain/pkg/agent"
	"github.com/archive-ai/brain/pkg/api"
	"github.com/archive-ai/brain/pkg/archive"
	"github.com/archive-ai/brain/pkg/config"
	"github.com/archive-ai/brain/pkg/embed"
	"github.com/archive-ai/brain/pkg/library"
	"github.com/archive-ai/brain/pkg/llm"
	"github.com/archive-ai/brain/pkg/memory"
	"github.com/archive-ai/brain/pkg/metrics"
	"github.com/archive-ai/brain/pkg/personas"
	"github.com/archive-ai/brain/pkg/sandbox"
	"github.com/archive-ai/brain/pkg/services"
	"github.com/archive-ai/brain/pkg/stream"
	"github.com/archive-ai/brain/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "."),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	ctx := context.Background()

	// 1. Resolve configuration
	cfg := config.Load()
	slog.Info("Starting archive brain",
		"version", version.Full(),
		"addr", cfg.Addr(),
		"fast_engine", cfg.FastEngineURL,
		"deep_engine", cfg.DeepEngineURL)

	// 2. Connect to Redis Stack
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("Invalid Redis URL", "url", cfg.RedisURL, "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() {
		if err := rdb.Close(); err != nil {
			slog.Error("Error closing Redis client", "error", err)
		}
	}()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		slog.Error("Failed to connect to Redis", "url", cfg.RedisURL, "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to Redis", "url", cfg.RedisURL)

	// 3. Vector memory store
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	embedder := embed.NewHTTPEmbedder(cfg.EmbedURL, cfg.EmbedModel, cfg.EmbeddingDim, httpClient)
	store := memory.NewStore(rdb, embedder, cfg.MemoryIndex, cfg.MemoryPrefix)
	if err := store.EnsureIndex(ctx); err != nil {
		slog.Error("Failed to ensure vector index", "index", cfg.MemoryIndex, "error", err)
		os.Exit(1)
	}
	slog.Info("Vector index ready", "index", cfg.MemoryIndex, "dim", cfg.EmbeddingDim)

	// 4. LLM engines
	fastEngine := llm.NewClient("fast", cfg.FastEngineURL, cfg.FastEngineModel, httpClient)
	var deepEngine *llm.Client
	if cfg.DeepEngineConfigured() {
		deepEngine = llm.NewClient("deep", cfg.DeepEngineURL, cfg.DeepEngineModel, httpClient)
	}
	engines := llm.NewEngines(fastEngine, deepEngine)
	engineTag := "fast/" + cfg.FastEngineModel
	slog.Info("LLM engines initialized",
		"fast_model", cfg.FastEngineModel, "deep_configured", cfg.DeepEngineConfigured())

	// 5. Domain services and agents
	personaStore, err := personas.NewStore(cfg.PersonasDir)
	if err != nil {
		slog.Error("Failed to initialize persona store", "dir", cfg.PersonasDir, "error", err)
		os.Exit(1)
	}
	capture := stream.NewCapture(rdb, cfg.StreamKey, cfg.StreamMaxLen)
	chatService := services.NewChatService(engines, personaStore, store, capture)

	completer := engines.Bind("")
	sandboxClient := sandbox.NewClient(cfg.SandboxURL, httpClient)
	callbacks := sandbox.NewCallbackRegistry(0)
	recursive := agent.NewRecursive(completer, sandboxClient, callbacks, cfg.CallbackBaseURL)

	var libraryClient *library.Client
	if cfg.LibraryURL != "" {
		libraryClient = library.NewClient(cfg.LibraryURL, httpClient)
	}
	var librarySearcher agent.LibrarySearcher
	if libraryClient != nil {
		librarySearcher = libraryClient
	}
	researcher := agent.NewResearcher(completer, librarySearcher, store)
	codeAssistant := agent.NewCodeAssistant(completer, sandboxClient)
	slog.Info("Services and agents initialized", "library_configured", libraryClient != nil)

	// 6. Surprise worker
	worker := memory.NewWorker(rdb, store, fastEngine, memory.WorkerConfig{
		StreamKey:       cfg.StreamKey,
		LastIDKey:       cfg.LastIDKey,
		StartFromLatest: cfg.StartFromLatest,
		Threshold:       cfg.SurpriseThreshold,
		Alpha:           cfg.SurpriseAlpha,
		NormDivisor:     cfg.PerplexityNormDivisor,
	})
	worker.Start(ctx)

	// 7. Metrics
	recorder := metrics.NewRecorder()
	var deepEngineProbe metrics.Prober
	if deepEngine != nil {
		deepEngineProbe = deepEngine
	}
	collector := metrics.NewCollector(rdb, recorder, fastEngine, deepEngineProbe, sandboxClient, cfg.MetricsInterval)
	collector.Start()

	// 8. Cold-storage archiver
	var coldStorage *archive.ColdStorage
	var archiveWorker *archive.Worker
	if cfg.ArchiveEnabled {
		coldStorage, err = archive.NewColdStorage(rdb, cfg.ArchiveDir, cfg.MemoryPrefix)
		if err != nil {
			slog.Error("Failed to initialize cold storage", "dir", cfg.ArchiveDir, "error", err)
			os.Exit(1)
		}
		archiveWorker = archive.NewWorker(coldStorage,
			cfg.ArchiveHour, cfg.ArchiveMinute,
			cfg.ArchiveOlderThanDays, cfg.ArchiveKeepRecent)
		archiveWorker.Start(ctx)
	}

	// 9. HTTP server
	server := api.NewServer(cfg, chatService, store, personaStore)
	server.SetEngines(engines, completer, engineTag)
	server.SetSandbox(sandboxClient, callbacks)
	server.SetAgents(recursive, researcher, codeAssistant)
	server.SetCapture(capture)
	server.SetWorker(worker)
	server.SetMetrics(collector, recorder)
	if coldStorage != nil {
		server.SetArchive(coldStorage)
	}
	var deepProbe api.Prober
	if deepEngine != nil {
		deepProbe = deepEngine
	}
	server.SetProbes(fastEngine, deepProbe, sandboxClient)

	errCh := make(chan error, 1)
	go func() {
		addr := cfg.Addr()
		slog.Info("HTTP server listening", "addr", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Archive brain started successfully")

	// 10. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 11. Graceful shutdown: background workers first, then the server
	if archiveWorker != nil {
		archiveWorker.Stop()
	}
	worker.Stop()
	collector.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
