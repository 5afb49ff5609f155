package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/oem-ev-warranty/parts-service/internal/application"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
)

// Reconciler runs one ledger/registry reconciliation pass
type Reconciler interface {
	Run(ctx context.Context) (*application.ReconciliationReportDTO, error)
}

// Scheduler triggers reconciliation on a cron schedule. A run that is still
// going when the next tick fires makes that tick a no-op.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	spec       string
	timeout    time.Duration
	logger     *logging.Logger

	mu      sync.Mutex
	entryID cron.EntryID
	last    *application.ReconciliationReportDTO
}

// New creates a scheduler for spec, a standard five-field cron expression or
// a descriptor such as "@hourly".
func New(spec string, reconciler Reconciler, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("scheduler")

	adapter := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		reconciler: reconciler,
		spec:       spec,
		timeout:    2 * time.Minute,
		logger:     logger,
	}
}

// Start registers the job and starts the cron loop
func (s *Scheduler) Start() error {
	id, err := s.cron.AddFunc(s.spec, s.reconcile)
	if err != nil {
		return fmt.Errorf("schedule reconciliation %q: %w", s.spec, err)
	}

	s.mu.Lock()
	s.entryID = id
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("Reconciliation scheduled", "spec", s.spec)
	return nil
}

// Stop stops the cron loop and waits for a running job, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextRun is the next scheduled reconciliation, zero before Start
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	id := s.entryID
	s.mu.Unlock()
	if id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// LastReport is the report of the last successful run, nil if none
func (s *Scheduler) LastReport() *application.ReconciliationReportDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.reconciler.Run(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled reconciliation failed")
		return
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
}

// cronLogger adapts the service logger to cron.Logger
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).Error(msg, keysAndValues...)
}
