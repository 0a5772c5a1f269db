package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
	"github.com/KaramelBytes/datahub-cli/internal/ingest"
	"github.com/KaramelBytes/datahub-cli/internal/live"
	"github.com/KaramelBytes/datahub-cli/internal/parser"
	"github.com/KaramelBytes/datahub-cli/internal/store"
)

// Config wires a Server. Store is optional.
type Config struct {
	Ingest       *ingest.Service
	Composer     *dashboard.Composer
	Simulator    *live.Simulator
	Store        *store.Store
	CacheTTL     time.Duration
	LiveInterval time.Duration
	Log          zerolog.Logger
}

// Server exposes ingestion, composition and live updates over HTTP.
type Server struct {
	svc      *ingest.Service
	comp     *dashboard.Composer
	sim      *live.Simulator
	store    *store.Store
	ttl      time.Duration
	interval time.Duration
	log      zerolog.Logger
	started  time.Time
}

// New builds a server from cfg.
func New(cfg Config) *Server {
	return &Server{
		svc:      cfg.Ingest,
		comp:     cfg.Composer,
		sim:      cfg.Simulator,
		store:    cfg.Store,
		ttl:      cfg.CacheTTL,
		interval: cfg.LiveInterval,
		log:      cfg.Log,
		started:  time.Now(),
	}
}

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	r.GET("/ping", Ping())
	r.POST("/upload", s.Upload())
	r.GET("/datasets", s.ListDatasets())
	r.DELETE("/datasets", s.ResetDatasets())
	r.DELETE("/datasets/:id", s.DeleteDataset())
	r.GET("/dashboard", s.Dashboard())
	r.GET("/status", s.Status())
	r.GET("/history", s.History())
	r.POST("/live/start", s.StartLive())
	r.POST("/live/stop", s.StopLive())
	r.GET("/live", s.Live())
	return r
}

// Preload restores unexpired uploads from the store.
func (s *Server) Preload(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if n, err := s.store.PurgeExpired(ctx); err != nil {
		return err
	} else if n > 0 {
		s.log.Info().Int64("purged", n).Msg("expired datasets removed")
	}
	rows, err := s.store.ListDatasets(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, d := range rows {
		t, err := parser.ParseBytes(d.Name, d.Content, s.svc.Options())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.svc.Restore(&ingest.Dataset{ID: d.ID, Name: d.Name, Kind: d.Kind, Table: t, Size: int64(len(d.Content)), UploadedAt: d.UploadedAt})
	}
	s.log.Info().Int("datasets", len(rows)-len(errs)).Msg("datasets restored")
	s.Refresh(ctx)
	return errors.Join(errs...)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully and
// stops the simulator.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts end with ctx so open event streams return
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("http listening")

	select {
	case err := <-errCh:
		s.sim.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.sim.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return err
	}
	s.log.Info().Msg("http stopped")
	return nil
}

// Refresh recomposes from retained datasets and hands the result to the
// simulator.
func (s *Server) Refresh(ctx context.Context) *dashboard.Payload {
	p := s.comp.Compose(ctx, s.svc.Inputs())
	s.sim.SetPayload(p)
	return p
}

// StartSimulation starts live updates from a fresh composition. It reports
// false when they were already running.
func (s *Server) StartSimulation(ctx context.Context) bool {
	if s.sim.Running() {
		return false
	}
	s.Refresh(ctx)
	return s.sim.Start(nil, s.interval)
}

func requestLogger(l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
