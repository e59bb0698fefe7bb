package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/service"
)

const staleRecoverySpec = "@every 5m"

// ErpSyncer runs the incremental ERP mirror sync.
type ErpSyncer interface {
	SyncIncremental(ctx context.Context, outletID int) (*service.ErpSyncResult, error)
}

// StorefrontSyncer runs the price+inventory pipeline.
type StorefrontSyncer interface {
	Run(ctx context.Context) (*domain.SyncStatus, error)
	RecoverStale(ctx context.Context) (int, error)
}

// Scheduler fires the sync jobs on their cron specs. Each firing gets its own
// context bounded by the configured timeout.
type Scheduler struct {
	cron       *cron.Cron
	erp        ErpSyncer
	storefront StorefrontSyncer
	timeout    time.Duration
	logger     *zap.Logger
}

// New registers the jobs. It fails on an unknown timezone or a malformed cron expression.
func New(cfg config.SyncConfig, erp ErpSyncer, storefront StorefrontSyncer, logger *zap.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid sync timezone %q: %w", cfg.Timezone, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}

	cl := cronLogger{logger: logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		erp:        erp,
		storefront: storefront,
		timeout:    timeout,
		logger:     logger,
	}

	jobs := []struct {
		name string
		spec string
		fn   func(ctx context.Context) error
	}{
		{"erp-sync", cfg.ERPCron, s.runERP},
		{"storefront-sync", cfg.StorefrontCron, s.runStorefront},
		{"storefront-sync-boundary", cfg.StorefrontBoundaryCron, s.runStorefront},
		{"storefront-stale-recovery", staleRecoverySpec, s.recoverStale},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(j.spec, s.wrap(j.name, j.fn)); err != nil {
			return nil, fmt.Errorf("invalid cron spec for %s (%q): %w", j.name, j.spec, err)
		}
		logger.Info("Scheduled job", zap.String("job", j.name), zap.String("spec", j.spec), zap.String("timezone", loc.String()))
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops firing jobs and returns a context done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries reports the registered jobs, mainly for tests and diagnostics.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) wrap(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			s.logger.Error("Scheduled job failed",
				zap.String("job", name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		s.logger.Info("Scheduled job finished", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Scheduler) runERP(ctx context.Context) error {
	_, err := s.erp.SyncIncremental(ctx, 0)
	return err
}

func (s *Scheduler) runStorefront(ctx context.Context) error {
	_, err := s.storefront.Run(ctx)
	return err
}

func (s *Scheduler) recoverStale(ctx context.Context) error {
	n, err := s.storefront.RecoverStale(ctx)
	if n > 0 {
		s.logger.Warn("Recovered stale storefront sync runs", zap.Int("count", n))
	}
	return err
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
