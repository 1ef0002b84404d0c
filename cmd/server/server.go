package main

import (
	"time"

	"github.com/preclear-labs/preclear/internal/config"
	"github.com/preclear-labs/preclear/internal/infrastructure"
)

type Service struct {
	cfg     *config.Config
	infra   *infrastructure.Infrastructure
	systems *Systems
}

func NewService(cfg *config.Config) (*Service, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	systems := NewSystems(infra, cfg)

	infra.Logger.Info(
		"service initialized",
		"version", cfg.Version,
		"env", cfg.Env(),
	)

	return &Service{
		cfg:     cfg,
		infra:   infra,
		systems: systems,
	}, nil
}

func (s *Service) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	// The compliance dataset must be loaded before validation runs are
	// accepted; a load failure leaves the store uninitialized and every run
	// surfaces that as a distinct error.
	s.infra.Lifecycle.OnStartup(func() {
		ctx := s.infra.Lifecycle.Context()
		if err := s.systems.Dataset.Initialize(ctx, s.cfg.Pipeline.DatasetSource); err != nil {
			s.infra.Logger.Error(
				"compliance dataset load failed",
				"source", s.cfg.Pipeline.DatasetSource,
				"error", err,
			)
		}
	})

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Service) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
