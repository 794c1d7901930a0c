package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ragserve/ragserve/pkg/config"
	"github.com/ragserve/ragserve/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Dependencies carries the services the HTTP layer exposes.
type Dependencies struct {
	Ingest  IngestService
	Chat    ChatService
	Counter PassageCounter
	Version string
}

// Server hosts the HTTP API.
type Server struct {
	cfg    *config.Config
	log    logger.Logger
	engine *gin.Engine
}

// NewServer builds the router and wires every route group.
func NewServer(cfg *config.Config, log logger.Logger, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	if log == nil {
		return nil, errors.New("server: logger is required")
	}
	if deps.Ingest == nil || deps.Chat == nil || deps.Counter == nil {
		return nil, errors.New("server: ingest, chat, and counter dependencies are required")
	}
	srv := &Server{cfg: cfg, log: log}
	srv.engine = srv.buildRouter(deps)
	return srv, nil
}

func (s *Server) buildRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggerMiddleware(s.log))
	engine.Use(corsMiddleware(s.cfg.Server.CORSAllowOrigins))
	h := &handlers{
		ingest:  deps.Ingest,
		chat:    deps.Chat,
		counter: deps.Counter,
		version: deps.Version,
	}
	registerRoutes(engine, h)
	return engine
}

func registerRoutes(engine *gin.Engine, h *handlers) {
	engine.GET("/", h.banner)
	engine.GET("/health", h.health)
	api := engine.Group("/api/v0")
	api.GET("/health", h.health)
	{
		api.POST("/documents/upload", h.uploadDocuments)
		api.GET("/documents", h.listDocuments)
		api.POST("/chat", h.chatComplete)
		api.GET("/chat/stream", h.chatStream)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully. In-flight
// requests get shutdownTimeout to finish.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}
	s.log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return <-errCh
}
