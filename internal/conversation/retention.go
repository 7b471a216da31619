package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper deletes conversations that have not been updated for MaxAge.
type Sweeper struct {
	store  Store
	logger *slog.Logger
	maxAge time.Duration
	now    func() time.Time
	cron   *cron.Cron
}

func NewSweeper(log *slog.Logger, store Store, maxAge time.Duration) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		store:  store,
		logger: log.With(slog.String("component", "conversation_sweeper")),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Start schedules Sweep with a standard five-field cron spec. An empty spec
// leaves the sweeper disabled.
func (s *Sweeper) Start(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" || s.maxAge <= 0 {
		s.logger.Info("conversation retention disabled")
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			s.logger.Error("retention sweep failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("conversation retention scheduled", slog.String("schedule", spec), slog.Duration("max_age", s.maxAge))
	return nil
}

// Stop waits for a running sweep to finish or ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Sweep runs one retention pass.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.maxAge)
	n, err := s.store.DeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("inactive conversations removed", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	}
	return n, nil
}
