package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Mnabil10/fasket-backend/api/handlers"
	"github.com/Mnabil10/fasket-backend/internal/cron"
	"github.com/Mnabil10/fasket-backend/pkg/config"
	"github.com/Mnabil10/fasket-backend/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// ServiceParams carries the worker's top-level components.
type ServiceParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Handler http.Handler
	Cron    *cron.Service
	Checks  []handlers.HealthCheck
}

// Service runs the HTTP ops surface and the cron loop side by side.
type Service struct {
	cfg     *config.Config
	logg    *logger.Logger
	handler http.Handler
	cron    *cron.Service
	checks  []handlers.HealthCheck
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Handler == nil {
		return nil, errors.New("http handler is required")
	}
	if params.Cron == nil {
		return nil, errors.New("cron service is required")
	}
	return &Service{
		cfg:     params.Config,
		logg:    params.Logger,
		handler: params.Handler,
		cron:    params.Cron,
		checks:  params.Checks,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, check := range s.checks {
		if check.Ping == nil {
			continue
		}
		if err := check.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", check.Name), err)
			return fmt.Errorf("%s ping failed: %w", check.Name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run blocks until the context is canceled or either loop fails.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:    ":" + s.cfg.App.Port,
		Handler: s.handler,
	}

	errCh := make(chan error, 2)
	go func() {
		s.logg.Info(s.logg.WithField(ctx, "addr", server.Addr), "http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	go func() {
		errCh <- s.cron.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "worker loop stopped unexpectedly", err)
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logg.Error(ctx, "http server shutdown failed", err)
	}
	return runErr
}
