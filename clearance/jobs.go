// jobs.go - persisted deferred-removal jobs.
//
// A cleared tenant's records are deleted only after a delay. The job
// row survives restarts; the scheduler restores active jobs at startup
// and runs any that came due while the process was down.
package clearance

import (
	"context"
	"time"

	"github.com/sleekabode/tenancy-engine/tenancy"
)

type ScheduledJob struct {
	TenantID  tenancy.TenantID `json:"tenantId"`
	RunAt     time.Time        `json:"runAt"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"createdAt"`
}

// JobStore persists removal jobs keyed by tenant. Upsert reschedules.
type JobStore interface {
	UpsertJob(ctx context.Context, job ScheduledJob) error
	ListActiveJobs(ctx context.Context) ([]ScheduledJob, error)
	DeactivateJob(ctx context.Context, tenantID tenancy.TenantID) error
}
