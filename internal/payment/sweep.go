// AngelaMos | 2026
// sweep.go

package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/autowds/server/internal/config"
)

// Sweeper schedules the reconciliation pass on a fixed interval.
type Sweeper struct {
	cron    *cron.Cron
	service *Service
	cfg     config.SweepConfig
	logger  *slog.Logger
}

func NewSweeper(
	service *Service,
	cfg config.SweepConfig,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		cron:    cron.New(),
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *Sweeper) Start() error {
	spec := fmt.Sprintf("@every %s", s.cfg.Interval)

	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(
			context.Background(), s.cfg.Interval,
		)
		defer cancel()

		s.service.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("payment sweep scheduled",
		"interval", s.cfg.Interval,
		"grace_window", s.cfg.GraceWindow,
	)

	return nil
}

// Stop waits for an in-flight pass to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return fmt.Errorf("sweep shutdown timed out")
	}
}
