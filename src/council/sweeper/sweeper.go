package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Expirer settles every request whose lifetime has run out.
type Expirer interface {
	ExpireAll(ctx context.Context) (int, error)
}

// Observer is told about every sweep outcome.
type Observer interface {
	Sweep(err error)
}

// Sweeper runs the expiry sweep on a cron schedule.
type Sweeper struct {
	cron    *cron.Cron
	expirer Expirer
	obs     Observer
	log     *zap.Logger
	timeout time.Duration
}

func New(expirer Expirer, obs Observer, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	// overlapping ticks are skipped while a sweep is still running
	std, _ := zap.NewStdLogAt(log.Named("cron"), zap.DebugLevel)
	cronLog := cron.VerbosePrintfLogger(std)
	return &Sweeper{
		cron:    cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog))),
		expirer: expirer,
		obs:     obs,
		log:     log,
		timeout: time.Minute,
	}
}

// Start schedules the sweep and starts the cron loop.
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	s.log.Info("expiry sweeper started", zap.String("schedule", schedule))
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("expiry sweeper stopped")
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Warn("expiry sweep failed", zap.Error(err))
	}
}

// RunOnce performs one sweep immediately.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := s.expirer.ExpireAll(ctx)
	if s.obs != nil {
		s.obs.Sweep(err)
	}
	if n > 0 {
		s.log.Info("expired stale requests", zap.Int("count", n))
	}
	return n, err
}
