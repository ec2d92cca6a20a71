package app

import (
	"context"
	"time"

	"github.com/adelarp/PraxisBack/internal/services"
	"go.uber.org/zap"
)

// Sweeper runs the renewal scan on a fixed interval so schedules renew even
// when nobody is using the API.
type Sweeper struct {
	renewals *services.RenewalService
	logger   *zap.Logger
	every    time.Duration
	stopChan chan struct{}
}

func NewSweeper(renewals *services.RenewalService, logger *zap.Logger, every time.Duration) *Sweeper {
	return &Sweeper{
		renewals: renewals,
		logger:   logger,
		every:    every,
		stopChan: make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting renewal sweeper", zap.Duration("interval", s.every))
	go s.run(ctx)
}

func (s *Sweeper) Stop() {
	s.logger.Info("Stopping renewal sweeper")
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Renewal sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Renewal sweeper cancelled")
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	results, err := s.renewals.RunRenewals(ctx)
	if err != nil {
		s.logger.Error("Renewal sweep failed", zap.Error(err))
		return
	}

	renewed := 0
	for _, result := range results {
		if result.Error == "" && result.SessionsCreated > 0 {
			renewed++
		}
	}
	if renewed > 0 {
		s.logger.Info("Renewal sweep completed", zap.Int("patients_renewed", renewed))
	}
}
