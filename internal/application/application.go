package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/linomassaro/SyncStream/internal/config"
	"github.com/linomassaro/SyncStream/internal/handler"
	"github.com/linomassaro/SyncStream/internal/router"
	"github.com/linomassaro/SyncStream/internal/service"
	"github.com/linomassaro/SyncStream/internal/store"
	"go.uber.org/zap"
)

// API is the HTTP + WebSocket application.
type API struct {
	cfg    *config.Config
	srv    *http.Server
	logger *zap.Logger
}

// NewAPI creates the API application: validates config and wires the sync
// core (store, registry, multiplexer, protocol engine) behind the router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	}

	sessions := store.NewSessionStore()
	viewers := store.NewViewerRegistry()
	mux := service.NewMultiplexer(logger)
	protocol := service.NewProtocol(sessions, viewers, mux, logger)
	sessionSvc := service.NewSessionService(sessions, mux, logger)

	sessionHandler := handler.NewSessionHandler(sessionSvc)
	syncWS := handler.NewSyncWSHandler(mux, protocol, sessionSvc,
		cfg.WSReadBufferSize, cfg.WSWriteBufferSize, cfg.WSMaxMessageSize, cfg.SessionMaxViewers, logger)
	health := handler.NewHealthHandler()
	var proxy *handler.MediaProxyHandler
	if cfg.EnableProxy {
		proxy = handler.NewMediaProxyHandler(logger)
	}

	r := router.New(sessionHandler, syncWS, health, proxy, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, logger: logger}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled; then shuts
// down gracefully.
func (a *API) Run(ctx context.Context) error {
	defer a.logger.Sync()

	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", a.srv.Addr)
	log.Printf("  Health:    %s/health", base)
	log.Printf("  Sessions:  %s/sessions", base)
	log.Printf("  WebSocket: ws://%s:%s/ws?sessionId=..&viewerId=..", host, a.cfg.HTTPPort)

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
