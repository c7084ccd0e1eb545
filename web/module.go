package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skekre98/autorun/config"
	"github.com/skekre98/autorun/core"
)

const Name = "web"

// Engine returns the gin engine registered by the web component.
func Engine(s *core.Scheduler) *gin.Engine {
	return core.Get[*gin.Engine](s)
}

// Component serves HTTP on config.Root.Server. It expects config.Root and
// *slog.Logger to be registered with core.Put before the app runs.
func Component(opts ...Option) core.Component {
	var options Options
	for _, o := range opts {
		o(&options)
	}
	return &webComponent{opts: options}
}

type webComponent struct {
	opts   Options
	server *http.Server
	logger *slog.Logger
}

func (m *webComponent) Name() string        { return Name }
func (m *webComponent) DependsOn() []string { return nil }

func (m *webComponent) Configure(s *core.Scheduler) error {
	cfg := core.Get[config.Root](s)
	l := core.Get[*slog.Logger](s)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Middlewares: request ID, recovery, access log
	r.Use(RequestID(l))
	r.Use(RecoveryProblem(l))
	r.Use(AccessLog(l))
	r.Use(m.opts.Middlewares...)
	if len(m.opts.Await) > 0 {
		r.Use(Await(s, m.opts.Await...))
	}

	for _, reg := range m.opts.Routes {
		reg(r)
	}

	m.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	m.logger = l

	if err := core.Put(s, r); err != nil {
		return err
	}
	return core.Put(s, m.server)
}

// Start binds the listener before returning so a busy port fails startup.
func (m *webComponent) Start(ctx context.Context, s *core.Scheduler) error {
	ln, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	go func() {
		m.logger.Info("http server starting", "addr", ln.Addr().String())
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

func (m *webComponent) Stop(ctx context.Context, s *core.Scheduler) error {
	if err := m.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
