package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/yigit/studentinfo/internal/app/services"
	"github.com/yigit/studentinfo/internal/bootstrap"
	"github.com/yigit/studentinfo/internal/config"
	"github.com/yigit/studentinfo/internal/db"
	"github.com/yigit/studentinfo/internal/seed"
)

// Server holds the state for the HTTP server.
type Server struct {
	config     *config.Config
	router     *gin.Engine
	database   *db.PostgresDB
	reconciler services.ReconcileService
	logger     zerolog.Logger
	http       *http.Server

	stopReconcile context.CancelFunc
	reconcileDone sync.WaitGroup
}

// NewServer creates and initializes a new server instance by calling bootstrap functions.
func NewServer(ctx context.Context) (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	database, err := bootstrap.SetupDatabase(ctx, cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	deps, err := bootstrap.BuildDependencies(cfg, database, prometheus.DefaultRegisterer, lgr)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	if cfg.Seed.SampleData {
		if err := seed.CreateSampleData(ctx, deps.StudentService, lgr); err != nil {
			// Sample data is a convenience; startup continues without it
			lgr.Error().Err(err).Msg("Failed to create sample data, proceeding anyway...")
		}
	}

	router := bootstrap.SetupRouter(cfg, deps, database, prometheus.DefaultGatherer, lgr)

	return &Server{
		config:     cfg,
		router:     router,
		database:   database,
		reconciler: deps.ReconcileService,
		logger:     lgr,
	}, nil
}

// Run starts the HTTP server and the orphan reconciler, and handles graceful shutdown.
func (s *Server) Run() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting server...")

	s.http = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  config.Duration(s.config.Server.ReadTimeout),
		WriteTimeout: config.Duration(s.config.Server.WriteTimeout),
		IdleTimeout:  120 * time.Second,
	}

	s.startReconciler()

	// Channel to listen for errors starting the server
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	// Channel to listen for OS signals
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("error starting server: %w", err)
		}
	case sig := <-osSignals:
		s.logger.Info().Str("signal", sig.String()).Msg("Received OS signal, initiating shutdown...")
	}

	if err := s.Shutdown(context.Background()); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// startReconciler runs one reconciliation pass immediately and then one per interval.
// A zero interval disables the loop.
func (s *Server) startReconciler() {
	interval := config.Duration(s.config.Artifacts.ReconcileInterval)
	grace := config.Duration(s.config.Artifacts.OrphanGracePeriod)
	if interval <= 0 {
		s.logger.Info().Msg("Orphan reconciliation disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopReconcile = cancel
	s.reconcileDone.Add(1)

	go func() {
		defer s.reconcileDone.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if _, err := s.reconciler.ReconcileOrphans(ctx, grace); err != nil && ctx.Err() == nil {
				s.logger.Error().Err(err).Msg("Orphan reconciliation failed")
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Shutdown gracefully stops the server and closes resources.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var shutdownErr error

	if s.http != nil {
		s.logger.Info().Msg("Shutting down HTTP server...")
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
			shutdownErr = errors.New("server shutdown completed with errors")
		} else {
			s.logger.Info().Msg("HTTP server gracefully stopped.")
		}
	}

	if s.stopReconcile != nil {
		s.stopReconcile()
		s.reconcileDone.Wait()
		s.logger.Info().Msg("Orphan reconciler stopped.")
	}

	if s.database != nil {
		s.logger.Info().Msg("Closing database connection pool...")
		s.database.Close()
		s.logger.Info().Msg("Database connection pool closed.")
	}

	s.logger.Info().Msg("Server shutdown process complete.")
	return shutdownErr
}
