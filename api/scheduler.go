/*
scheduler.go - Deferred tenant-removal scheduler

PURPOSE:
  A cleared tenant's records are deleted only after a delay, giving the
  agent a window to undo a mistaken clearance. This scheduler persists
  one job per tenant, ticks on an interval, and runs any job whose time
  has come. Jobs survive restarts; Restore runs past-due jobs as soon as
  the process is back up.

DESIGN:
  - Implements clearance.RemovalScheduler: Schedule upserts the job row,
    Cancel deactivates it.
  - The actual deletion goes through the clearance service, so the
    no-open-periods precondition is re-checked at removal time.
  - A job that fails stays active and retries on the next tick.

USAGE:
  scheduler := api.NewRemovalScheduler(store, logger)
  // ... construct clearance.Service with scheduler
  scheduler.SetRemover(clearanceSvc)
  scheduler.Start()
  scheduler.Restore(ctx)
  // ... later
  scheduler.Stop()

SEE ALSO:
  - clearance/jobs.go: the persisted job row
  - clearance/service.go: RemoveTenant
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sleekabode/tenancy-engine/clearance"
	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

// TenantRemover performs the actual deletion when a job comes due.
type TenantRemover interface {
	RemoveTenant(ctx context.Context, tenantID tenancy.TenantID) error
}

// RemovalScheduler runs persisted tenant-removal jobs.
type RemovalScheduler struct {
	jobs          clearance.JobStore
	log           *zap.Logger
	CheckInterval time.Duration

	mu      sync.Mutex
	remover TenantRemover
	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewRemovalScheduler creates a scheduler over the given job store. The
// remover is attached separately because the clearance service and the
// scheduler reference each other.
func NewRemovalScheduler(jobs clearance.JobStore, log *zap.Logger) *RemovalScheduler {
	return &RemovalScheduler{
		jobs:          jobs,
		log:           log,
		CheckInterval: 10 * time.Minute,
		stop:          make(chan struct{}),
	}
}

// SetRemover attaches the deletion callback. Must be called before Start.
func (rs *RemovalScheduler) SetRemover(remover TenantRemover) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.remover = remover
}

// Schedule persists a removal job due no earlier than notAfter.
// Rescheduling an existing job replaces its run time.
func (rs *RemovalScheduler) Schedule(ctx context.Context, tenantID tenancy.TenantID, notAfter time.Time) error {
	return rs.jobs.UpsertJob(ctx, clearance.ScheduledJob{
		TenantID:  tenantID,
		RunAt:     notAfter,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
}

// Cancel deactivates the tenant's pending removal job.
func (rs *RemovalScheduler) Cancel(ctx context.Context, tenantID tenancy.TenantID) error {
	return rs.jobs.DeactivateJob(ctx, tenantID)
}

// Start begins the background tick loop.
func (rs *RemovalScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)
	go rs.run()

	rs.log.Info("removal scheduler started",
		zap.Duration("checkInterval", rs.CheckInterval))
}

// Stop halts the tick loop and waits for an in-flight sweep. The lock
// is released before waiting so the sweep can finish.
func (rs *RemovalScheduler) Stop() {
	rs.mu.Lock()
	ticker := rs.ticker
	rs.ticker = nil
	rs.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.log.Info("removal scheduler stopped")
	}
}

// Restore runs one sweep immediately, picking up jobs that came due
// while the process was down.
func (rs *RemovalScheduler) Restore(ctx context.Context) {
	rs.sweep(ctx)
}

func (rs *RemovalScheduler) run() {
	defer rs.wg.Done()
	for {
		select {
		case <-rs.ticker.C:
			rs.sweep(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// sweep runs every active job whose time has come.
func (rs *RemovalScheduler) sweep(ctx context.Context) {
	rs.mu.Lock()
	remover := rs.remover
	rs.mu.Unlock()
	if remover == nil {
		return
	}

	jobs, err := rs.jobs.ListActiveJobs(ctx)
	if err != nil {
		rs.log.Error("failed to list removal jobs", zap.Error(err))
		return
	}

	now := time.Now()
	for _, job := range jobs {
		if job.RunAt.After(now) {
			continue
		}

		err := remover.RemoveTenant(ctx, job.TenantID)
		switch {
		case err == nil, ledger.IsNotFound(err):
			// Removed, or already gone; either way the job is done.
			if err := rs.jobs.DeactivateJob(ctx, job.TenantID); err != nil {
				rs.log.Error("failed to deactivate removal job",
					zap.String("tenant", string(job.TenantID)), zap.Error(err))
			}
			rs.log.Info("tenant removal job completed",
				zap.String("tenant", string(job.TenantID)))
		default:
			// Stays active; retried on the next tick.
			rs.log.Warn("tenant removal job failed",
				zap.String("tenant", string(job.TenantID)), zap.Error(err))
		}
	}
}
