package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/service"
)

type stubErp struct {
	mu      sync.Mutex
	outlets []int
	err     error
}

func (s *stubErp) SyncIncremental(ctx context.Context, outletID int) (*service.ErpSyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outlets = append(s.outlets, outletID)
	return &service.ErpSyncResult{}, s.err
}

type stubStorefront struct {
	runs      int
	recovered int
	deadline  bool
}

func (s *stubStorefront) Run(ctx context.Context) (*domain.SyncStatus, error) {
	s.runs++
	_, s.deadline = ctx.Deadline()
	return &domain.SyncStatus{}, nil
}

func (s *stubStorefront) RecoverStale(ctx context.Context) (int, error) {
	s.recovered++
	return 2, nil
}

func validConfig() config.SyncConfig {
	return config.SyncConfig{
		ERPCron:                "*/15 * * * *",
		StorefrontCron:         "*/15 2-17 * * *",
		StorefrontBoundaryCron: "0,15,30 18 * * *",
		Timezone:               "Asia/Kolkata",
		Timeout:                time.Minute,
	}
}

func TestNew_RegistersJobs(t *testing.T) {
	s, err := New(validConfig(), &stubErp{}, &stubStorefront{}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 4)

	cfg := validConfig()
	cfg.StorefrontBoundaryCron = ""
	s, err = New(cfg, &stubErp{}, &stubStorefront{}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 3, "empty specs are not scheduled")
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Timezone = "Mars/Olympus_Mons"
	_, err := New(cfg, &stubErp{}, &stubStorefront{}, zap.NewNop())
	assert.ErrorContains(t, err, "invalid sync timezone")

	cfg = validConfig()
	cfg.ERPCron = "every fifteen minutes"
	_, err = New(cfg, &stubErp{}, &stubStorefront{}, zap.NewNop())
	assert.ErrorContains(t, err, "erp-sync")
}

func TestWrap_RunsJobsWithDeadline(t *testing.T) {
	erp := &stubErp{err: errors.New("erp down")}
	storefront := &stubStorefront{}
	s, err := New(validConfig(), erp, storefront, zap.NewNop())
	require.NoError(t, err)

	// failures are logged, never panic the cron goroutine
	s.wrap("erp-sync", s.runERP)()
	s.wrap("storefront-sync", s.runStorefront)()
	s.wrap("storefront-stale-recovery", s.recoverStale)()

	assert.Equal(t, []int{0}, erp.outlets, "scheduled ERP runs sweep every outlet")
	assert.Equal(t, 1, storefront.runs)
	assert.True(t, storefront.deadline)
	assert.Equal(t, 1, storefront.recovered)
}

func TestStop_ReturnsDoneContext(t *testing.T) {
	s, err := New(validConfig(), &stubErp{}, &stubStorefront{}, zap.NewNop())
	require.NoError(t, err)
	s.Start()

	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
