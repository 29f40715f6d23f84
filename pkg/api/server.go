// Package api exposes the orchestrator over HTTP: routed chat, the agent
// endpoints, memory and persona management, metrics, and admin archival.
package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/archive-ai/brain/pkg/agent"
	"github.com/archive-ai/brain/pkg/agent/controller"
	"github.com/archive-ai/brain/pkg/archive"
	"github.com/archive-ai/brain/pkg/config"
	"github.com/archive-ai/brain/pkg/llm"
	"github.com/archive-ai/brain/pkg/memory"
	"github.com/archive-ai/brain/pkg/metrics"
	"github.com/archive-ai/brain/pkg/models"
	"github.com/archive-ai/brain/pkg/personas"
	"github.com/archive-ai/brain/pkg/sandbox"
	"github.com/archive-ai/brain/pkg/stream"
)

// ChatProcessor handles one routed chat turn; services.ChatService
// satisfies it.
type ChatProcessor interface {
	ProcessChat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// MemoryStore is the vector store surface the handlers need;
// memory.Store satisfies it.
type MemoryStore interface {
	List(ctx context.Context, offset, limit int) ([]models.Memory, int64, error)
	Search(ctx context.Context, query string, topK int, sessionID string) ([]models.Memory, error)
	Get(ctx context.Context, id string) (*models.Memory, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// MetricsSource provides current and historical metrics snapshots;
// metrics.Collector satisfies it.
type MetricsSource interface {
	Collect(ctx context.Context) models.MetricsSnapshot
	History(ctx context.Context, hours int) ([]models.MetricsSnapshot, error)
}

// ArchiveStore is the cold-storage surface the admin handlers need;
// archive.ColdStorage satisfies it.
type ArchiveStore interface {
	Archive(ctx context.Context, olderThanDays, keepRecent int) (*archive.Stats, error)
	Search(query string, maxResults int) ([]map[string]string, error)
	Stats() (*archive.HoldingsStats, error)
}

// Prober is a bounded health check against a dependent service.
type Prober interface {
	Health(ctx context.Context) error
}

// WorkerStatuser reports the surprise worker's state for /health.
type WorkerStatuser interface {
	Status(ctx context.Context) memory.WorkerStatus
}

// Server is the HTTP server wiring handlers to the domain services.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	cfg        *config.Config
	startTime  time.Time

	chat     ChatProcessor
	memory   MemoryStore
	personas *personas.Store

	engines   *llm.Engines
	completer controller.Completer
	engineTag string

	sandboxClient *sandbox.Client
	callbacks     *sandbox.CallbackRegistry
	recursive     *agent.Recursive
	researcher    *agent.Researcher
	codeAssistant *agent.CodeAssistant

	capture  *stream.Capture
	worker   WorkerStatuser
	metrics  MetricsSource
	recorder *metrics.Recorder
	archive  ArchiveStore

	fastProbe    Prober
	deepProbe    Prober
	sandboxProbe Prober

	limiter *rateLimiter
}

// NewServer creates the server with the core dependencies. Optional
// collaborators are attached with the SetX methods before Start.
func NewServer(cfg *config.Config, chat ChatProcessor, store MemoryStore, personaStore *personas.Store) *Server {
	s := &Server{
		cfg:       cfg,
		startTime: time.Now(),
		chat:      chat,
		memory:    store,
		personas:  personaStore,
		limiter:   newRateLimiter(cfg.RateLimitPerMinute, time.Minute),
	}
	s.echo = s.buildEcho()
	return s
}

// SetEngines attaches the engine pair. completer is the bound engine the
// agents and verification reason with; engineTag names it in responses
// (e.g. "fast/Qwen2.5-3B-Instruct").
func (s *Server) SetEngines(engines *llm.Engines, completer controller.Completer, engineTag string) {
	s.engines = engines
	s.completer = completer
	s.engineTag = engineTag
}

// SetSandbox attaches the code sandbox and the ask_llm callback registry.
func (s *Server) SetSandbox(client *sandbox.Client, callbacks *sandbox.CallbackRegistry) {
	s.sandboxClient = client
	s.callbacks = callbacks
}

// SetAgents attaches the recursive, research, and code-assist agents.
func (s *Server) SetAgents(recursive *agent.Recursive, researcher *agent.Researcher, assistant *agent.CodeAssistant) {
	s.recursive = recursive
	s.researcher = researcher
	s.codeAssistant = assistant
}

// SetCapture attaches the input-stream capture used by the agent and verify
// endpoints.
func (s *Server) SetCapture(capture *stream.Capture) {
	s.capture = capture
}

// SetWorker attaches the surprise worker for /health reporting.
func (s *Server) SetWorker(worker WorkerStatuser) {
	s.worker = worker
}

// SetMetrics attaches the metrics source and the request recorder the
// middleware feeds.
func (s *Server) SetMetrics(source MetricsSource, recorder *metrics.Recorder) {
	s.metrics = source
	s.recorder = recorder
}

// SetArchive attaches cold storage for the admin endpoints.
func (s *Server) SetArchive(store ArchiveStore) {
	s.archive = store
}

// SetProbes attaches the health probes for the engine and sandbox services.
// Any probe may be nil when the service is not configured.
func (s *Server) SetProbes(fast, deep, sandboxProbe Prober) {
	s.fastProbe = fast
	s.deepProbe = deep
	s.sandboxProbe = sandboxProbe
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(securityHeaders())
	e.Use(s.requestMetrics())

	e.GET("/", s.rootHandler)
	e.GET("/health", s.healthHandler)

	e.POST("/chat", s.chatHandler, s.rateLimit())
	e.POST("/verify", s.verifyHandler, s.rateLimit())

	e.POST("/agent", s.agentHandler)
	e.POST("/agent/advanced", s.agentAdvancedHandler)
	e.POST("/agent/react", s.agentAdvancedHandler)
	e.POST("/agent/recursive", s.agentRecursiveHandler)
	e.POST("/code_assist", s.codeAssistHandler)

	e.POST("/research", s.researchHandler)
	e.POST("/research/multi", s.researchMultiHandler)

	e.GET("/memories", s.listMemoriesHandler)
	e.POST("/memories/search", s.searchMemoriesHandler)
	e.GET("/memories/:id", s.getMemoryHandler)
	e.DELETE("/memories/:id", s.deleteMemoryHandler)

	e.GET("/metrics", s.metricsHandler)
	e.GET("/metrics/history", s.metricsHistoryHandler)

	e.GET("/personas", s.listPersonasHandler)
	e.POST("/personas", s.createPersonaHandler)
	e.PUT("/personas/:id", s.updatePersonaHandler)
	e.DELETE("/personas/:id", s.deletePersonaHandler)
	e.POST("/personas/activate/:id", s.activatePersonaHandler)
	e.POST("/personas/deactivate", s.deactivatePersonaHandler)
	e.GET("/personas/active", s.activePersonaHandler)

	e.POST("/internal/ask_llm", s.askLLMHandler)

	e.POST("/admin/archive_old_memories", s.archiveRunHandler)
	e.GET("/admin/archive_stats", s.archiveStatsHandler)
	e.POST("/admin/search_archive", s.archiveSearchHandler)

	return e
}

// ServeHTTP makes the server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start begins serving on addr and blocks until the server exits.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// uptime returns seconds since the server was constructed.
func (s *Server) uptime() float64 {
	return time.Since(s.startTime).Seconds()
}
