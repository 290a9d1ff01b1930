// Package api exposes the engine over HTTP.
// Package api 通过 HTTP 暴露引擎。
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/netxfw/netguard/internal/config"
	"github.com/netxfw/netguard/internal/core"
	"github.com/netxfw/netguard/internal/rollback"
	"github.com/netxfw/netguard/internal/utils/logger"
	"github.com/netxfw/netguard/pkg/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is what the API drives. *core.Engine satisfies it.
// Engine 是 API 驱动的对象，*core.Engine 实现了它。
type Engine interface {
	ExecuteDirective(ctx context.Context, d core.Directive) (core.Outcome, error)
	ListBlocked(ctx context.Context) ([]storage.BlockedEntry, error)
	Rollback(ctx context.Context) (rollback.Result, error)
	SafeMode(ctx context.Context) (bool, error)
	SetSafeMode(ctx context.Context, on bool) error
}

// Server serves the management API.
// Server 提供管理 API。
type Server struct {
	engine Engine
	config *config.ConfigManager
	server *http.Server
}

func NewServer(engine Engine, cfg *config.ConfigManager) *Server {
	return &Server{engine: engine, config: cfg}
}

// Handler returns the routed API. /metrics is mounted when metrics are enabled.
// Handler 返回路由后的 API。启用指标时挂载 /metrics。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/version", s.handleVersion)

	mux.Handle("/api/execute", s.withAuth(http.HandlerFunc(s.handleExecute)))
	mux.Handle("/api/blocked", s.withAuth(http.HandlerFunc(s.handleBlocked)))
	mux.Handle("/api/rollback", s.withAuth(http.HandlerFunc(s.handleRollback)))
	mux.Handle("/api/safe-mode", s.withAuth(http.HandlerFunc(s.handleSafeMode)))
	mux.Handle("/api/logs", s.withAuth(http.HandlerFunc(s.handleLogs)))

	if s.config.GetMetricsConfig().Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}

// Start serves until ctx is done, then shuts down gracefully.
// Start 持续提供服务直到 ctx 结束，然后优雅关闭。
func (s *Server) Start(ctx context.Context) error {
	web := s.config.GetWebConfig()
	log := logger.Get(ctx)

	s.server = &http.Server{
		Addr:              web.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("[OK] Management API listening on http://%s", web.Listen)
		if web.Token == "" {
			log.Warnf("[WARN]  web.token is empty; the API accepts unauthenticated requests")
		}
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop shuts the server down.
// Stop 关闭服务器。
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
