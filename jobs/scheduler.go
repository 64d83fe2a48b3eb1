package jobs

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler wraps a cron runner so jobs register declaratively and share
// panic-safe logging.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		logger: logger,
	}
}

// Register adds a named job on the given cron spec.
func (s *Scheduler) Register(name, spec string, fn func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Info("Running scheduled job", zap.String("job", name))
		fn()
	})
	if err != nil {
		return err
	}
	s.logger.Info("Registered scheduled job", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
