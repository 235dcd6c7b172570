// store.go - persistence contract for billing period ledgers.
package billing

import (
	"context"

	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

// Store persists Payment records. Exactly one record may exist per
// (tenant, year, month); SavePayment enforces optimistic versioning and
// returns a ConflictError on a stale write.
type Store interface {
	SavePayment(ctx context.Context, p *Payment) error

	// SavePayments writes several ledgers as one atomic unit. Used by
	// operations that touch two or more of the same tenant's ledgers;
	// partial application is a correctness violation.
	SavePayments(ctx context.Context, ps []*Payment) error

	GetPayment(ctx context.Context, id PaymentID) (*Payment, error)
	GetPaymentByPeriod(ctx context.Context, tenantID tenancy.TenantID, period ledger.BillingMonth) (*Payment, error)
	ListPayments(ctx context.Context, tenantID tenancy.TenantID) ([]*Payment, error)
	ListUnclearedPayments(ctx context.Context, tenantID tenancy.TenantID) ([]*Payment, error)

	// MostRecentPayment returns the newest period's ledger by calendar
	// position, or a NotFoundError when the tenant has none.
	MostRecentPayment(ctx context.Context, tenantID tenancy.TenantID) (*Payment, error)
}
