/*
service.go - Billing orchestration

PURPOSE:
  The thin layer between pure ledger math and collaborators. Every
  operation follows the same shape: acquire the tenant's lock, load
  state, run the pure computation, persist all touched ledgers as one
  atomic unit. Only this layer touches the store.

CONCURRENCY:
  A keyed lock serializes all units of work per tenant. The store's
  version column backs this up: a stale write surfaces as a
  ConflictError and the caller retries the whole unit.
*/
package billing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

type Service struct {
	payments Store
	tenants  tenancy.Store
	locks    *ledger.KeyedLock
	log      *zap.Logger
}

func NewService(payments Store, tenants tenancy.Store, locks *ledger.KeyedLock, log *zap.Logger) *Service {
	return &Service{payments: payments, tenants: tenants, locks: locks, log: log}
}

// =============================================================================
// INITIAL PAYMENT
// =============================================================================

// RegisterInitialPayment opens a tenant's first billing period ledger
// explicitly and allocates the given amount to it.
func (s *Service) RegisterInitialPayment(ctx context.Context, tenantID tenancy.TenantID, period ledger.BillingMonth, amount ledger.Money, date time.Time, ref string) (*Payment, error) {
	unlock := s.locks.Lock(string(tenantID))
	defer unlock()

	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if existing, err := s.payments.GetPaymentByPeriod(ctx, tenantID, period); err == nil && existing != nil {
		return nil, &ledger.ValidationError{
			Field:   "period",
			Message: fmt.Sprintf("payment for %s already exists", period),
		}
	} else if err != nil && !ledger.IsNotFound(err) {
		return nil, err
	}

	p := NewPayment(tenantID, period, tenant.MonthlyRent, tenant.GarbageFee, ledger.Zero(), ref)
	if err := s.applyToPayment(p, amount, date, ref, "Initial rent payment registered"); err != nil {
		return nil, err
	}
	if err := s.payments.SavePayment(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("initial payment registered",
		zap.String("tenant", string(tenantID)),
		zap.String("period", period.String()))
	return p, nil
}

// applyToPayment runs the full waterfall on one period and parks any
// leftover as overpay.
func (s *Service) applyToPayment(p *Payment, amount ledger.Money, date time.Time, ref, why string) error {
	applied, leftover, err := ledger.Waterfall(p.Lines(), amount, date, ref)
	if err != nil {
		return err
	}
	p.TotalAmountPaid = p.TotalAmountPaid.Add(applied)
	p.RecordReference(ref, applied, date)
	p.AddOverpay(leftover, date)
	p.Recompute(date, why)
	return p.Validate()
}

// =============================================================================
// DEPOSITS
// =============================================================================

// RecordDeposit applies a single-amount deposit installment. When the
// installment clears the deposit ledger, the forwarded amount sweeps
// historical deficits and opens the first billing period, all in the
// same unit of work.
func (s *Service) RecordDeposit(ctx context.Context, tenantID tenancy.TenantID, amount ledger.Money, date time.Time, ref string) (*tenancy.Tenant, error) {
	unlock := s.locks.Lock(string(tenantID))
	defer unlock()

	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	result, err := tenant.Deposits.Allocate(amount, date, ref)
	if err != nil {
		return nil, err
	}
	if err := s.forwardCleared(ctx, tenant, result, date, ref); err != nil {
		return nil, err
	}
	if err := s.tenants.SaveTenant(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// RecordItemizedDeposit applies per-stage deposit amounts in one call.
func (s *Service) RecordItemizedDeposit(ctx context.Context, tenantID tenancy.TenantID, in tenancy.ItemizedDeposit, date time.Time, ref string) (*tenancy.Tenant, error) {
	unlock := s.locks.Lock(string(tenantID))
	defer unlock()

	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	result, err := tenant.Deposits.RecordItemized(in, date, ref)
	if err != nil {
		return nil, err
	}
	if err := s.forwardCleared(ctx, tenant, result, date, ref); err != nil {
		return nil, err
	}
	if err := s.tenants.SaveTenant(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

// forwardCleared turns a cleared deposit ledger's forward amount into
// the tenant's first billing payment, via the cross-period clearer.
func (s *Service) forwardCleared(ctx context.Context, tenant *tenancy.Tenant, result tenancy.DepositResult, date time.Time, ref string) error {
	if !result.Forward.IsPositive() {
		return nil
	}

	uncleared, err := s.payments.ListUnclearedPayments(ctx, tenant.ID)
	if err != nil {
		return err
	}
	remainder, err := ClearAcrossPeriods(uncleared, result.Forward, date, ref)
	if err != nil {
		return err
	}

	// The current period may already be in the swept set; a fresh fetch
	// would be a second copy of the same ledger and the batch save would
	// conflict with itself. Reuse the swept instance, and only create or
	// fetch when the period was not among the uncleared.
	period := periodOf(date)
	var first *Payment
	for _, p := range uncleared {
		if p.Period.Equal(period) {
			first = p
			break
		}
	}
	touched := uncleared
	if first == nil {
		first, err = s.payments.GetPaymentByPeriod(ctx, tenant.ID, period)
		if err != nil {
			if !ledger.IsNotFound(err) {
				return err
			}
			first = NewPayment(tenant.ID, period, tenant.MonthlyRent, tenant.GarbageFee, ledger.Zero(), ref)
		}
		touched = append(uncleared, first)
	}
	if err := s.applyToPayment(first, remainder, date, ref, "Deposit clearance forwarded as first rent payment"); err != nil {
		return err
	}
	if err := s.payments.SavePayments(ctx, touched); err != nil {
		return err
	}

	s.log.Info("deposit ledger cleared, first payment opened",
		zap.String("tenant", string(tenant.ID)),
		zap.String("period", period.String()),
		zap.String("forwarded", result.Forward.String()))
	return nil
}

func periodOf(date time.Time) ledger.BillingMonth {
	month, _ := ledger.MonthFromNumber(int(date.Month()))
	return ledger.NewBillingMonth(date.Year(), month)
}

// =============================================================================
// MONTHLY PROCESSING
// =============================================================================

// ProcessMonthly runs one billing cycle for the tenant.
func (s *Service) ProcessMonthly(ctx context.Context, tenantID tenancy.TenantID, in MonthlyInput) (*Payment, error) {
	unlock := s.locks.Lock(string(tenantID))
	defer unlock()

	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	history, err := s.payments.ListPayments(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result, err := processMonthly(tenant, history, in)
	if err != nil {
		return nil, err
	}
	if err := s.payments.SavePayments(ctx, result.Touched); err != nil {
		return nil, err
	}

	s.log.Info("monthly processing complete",
		zap.String("tenant", string(tenantID)),
		zap.String("period", in.Period.String()),
		zap.Bool("cleared", result.Current.IsCleared))
	return result.Current, nil
}

// =============================================================================
// EXPLICIT PAYMENT UPDATE
// =============================================================================

// ApplyPayment applies money to one named charge line of a period,
// drawing the most recent period's overpay into the pool first. Both
// ledgers persist in one atomic unit.
func (s *Service) ApplyPayment(ctx context.Context, paymentID PaymentID, category ledger.Category, amount ledger.Money, date time.Time, ref string) (*Payment, error) {
	if amount.IsNegative() {
		return nil, &ledger.ValidationError{Field: "amount", Message: "payment amount must not be negative"}
	}

	target, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(string(target.TenantID))
	defer unlock()

	// Reload under the lock; the first read raced other writers.
	target, err = s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	line, err := s.lineFor(target, category)
	if err != nil {
		return nil, err
	}

	touched := []*Payment{target}
	pool := amount

	// Pull the newest period's overpay into the pool.
	recent, err := s.payments.MostRecentPayment(ctx, target.TenantID)
	if err != nil && !ledger.IsNotFound(err) {
		return nil, err
	}
	if recent != nil && recent.ID != target.ID {
		drained := recent.DrainOverpay(date, fmt.Sprintf("Overpay pulled to settle %s on %s", category, target.Period))
		if drained.IsPositive() {
			pool = pool.Add(drained)
			touched = append(touched, recent)
		}
	}

	leftover, err := ledger.Allocate(line, pool, date, ref)
	if err != nil {
		return nil, err
	}
	applied := pool.Sub(leftover)
	target.TotalAmountPaid = target.TotalAmountPaid.Add(applied)
	target.RecordReference(ref, applied, date)

	// Remainder sweeps older open periods before parking as overpay.
	uncleared, err := s.payments.ListUnclearedPayments(ctx, target.TenantID)
	if err != nil {
		return nil, err
	}
	others := uncleared[:0]
	for _, p := range uncleared {
		if p.ID == target.ID {
			continue
		}
		// The drained instance is authoritative; the list copy of the
		// same period would resurrect the overpay just pulled into the
		// pool and the sweep's money would land on a ledger that never
		// persists.
		if recent != nil && p.ID == recent.ID {
			p = recent
		}
		others = append(others, p)
	}
	leftover, err = ClearAcrossPeriods(others, leftover, date, ref)
	if err != nil {
		return nil, err
	}
	touched = append(touched, others...)

	target.AddOverpay(leftover, date)
	target.Recompute(date, fmt.Sprintf("Payment applied to %s", category))
	if err := target.Validate(); err != nil {
		return nil, err
	}

	if err := s.payments.SavePayments(ctx, dedupe(touched)); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *Service) lineFor(p *Payment, category ledger.Category) (*ledger.ChargeLine, error) {
	switch category {
	case ledger.CategoryRent:
		return &p.Rent, nil
	case ledger.CategoryWater:
		return &p.WaterBill.ChargeLine, nil
	case ledger.CategoryGarbage:
		return &p.GarbageFee, nil
	case ledger.CategoryExtra:
		return &p.ExtraCharges, nil
	}
	return nil, &ledger.ValidationError{Field: "category", Message: "not a billing charge category: " + string(category)}
}

// =============================================================================
// EXTRA AMOUNT AND CORRECTIONS
// =============================================================================

// ApplyExtraAmount takes surplus money handed in mid-month, sweeps open
// periods oldest first, and parks any leftover on the newest period.
func (s *Service) ApplyExtraAmount(ctx context.Context, tenantID tenancy.TenantID, amount ledger.Money, date time.Time, ref string) (ledger.Money, error) {
	unlock := s.locks.Lock(string(tenantID))
	defer unlock()

	uncleared, err := s.payments.ListUnclearedPayments(ctx, tenantID)
	if err != nil {
		return ledger.Zero(), err
	}
	remainder, err := ClearAcrossPeriods(uncleared, amount, date, ref)
	if err != nil {
		return ledger.Zero(), err
	}

	touched := uncleared
	if remainder.IsPositive() {
		recent, err := s.payments.MostRecentPayment(ctx, tenantID)
		if err != nil {
			return ledger.Zero(), err
		}
		already := false
		for _, p := range touched {
			if p.ID == recent.ID {
				recent = p
				already = true
				break
			}
		}
		recent.AddOverpay(remainder, date)
		if !already {
			touched = append(touched, recent)
		}
	}

	if err := s.payments.SavePayments(ctx, touched); err != nil {
		return ledger.Zero(), err
	}
	return remainder, nil
}

// CorrectDeficit manually settles a period's deficits using the given
// amount plus the newest period's overpay.
func (s *Service) CorrectDeficit(ctx context.Context, paymentID PaymentID, amount ledger.Money, date time.Time, ref string) (*Payment, error) {
	if amount.IsNegative() {
		return nil, &ledger.ValidationError{Field: "amount", Message: "correction amount must not be negative"}
	}

	target, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(string(target.TenantID))
	defer unlock()

	target, err = s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	touched := []*Payment{target}
	pool := amount

	recent, err := s.payments.MostRecentPayment(ctx, target.TenantID)
	if err != nil && !ledger.IsNotFound(err) {
		return nil, err
	}
	if recent != nil && recent.ID != target.ID {
		drained := recent.DrainOverpay(date, fmt.Sprintf("Overpay pulled to correct deficits on %s", target.Period))
		if drained.IsPositive() {
			pool = pool.Add(drained)
			touched = append(touched, recent)
		}
	}

	applied, leftover, err := ledger.Waterfall(target.Lines(), pool, date, ref)
	if err != nil {
		return nil, err
	}
	target.TotalAmountPaid = target.TotalAmountPaid.Add(applied)
	target.RecordReference(ref, applied, date)
	target.AddOverpay(leftover, date)
	target.Recompute(date, "Manual deficit correction")
	if err := target.Validate(); err != nil {
		return nil, err
	}

	if err := s.payments.SavePayments(ctx, touched); err != nil {
		return nil, err
	}
	return target, nil
}

// =============================================================================
// READS
// =============================================================================

// ListUnpaid returns the tenant's open periods, oldest first.
func (s *Service) ListUnpaid(ctx context.Context, tenantID tenancy.TenantID) ([]*Payment, error) {
	if _, err := s.tenants.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	uncleared, err := s.payments.ListUnclearedPayments(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sortByPeriod(uncleared)
	return uncleared, nil
}

// ListPayments returns every period for the tenant, oldest first.
func (s *Service) ListPayments(ctx context.Context, tenantID tenancy.TenantID) ([]*Payment, error) {
	payments, err := s.payments.ListPayments(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sortByPeriod(payments)
	return payments, nil
}

func (s *Service) GetPayment(ctx context.Context, id PaymentID) (*Payment, error) {
	return s.payments.GetPayment(ctx, id)
}

func dedupe(ps []*Payment) []*Payment {
	seen := make(map[PaymentID]bool, len(ps))
	out := ps[:0]
	for _, p := range ps {
		if !seen[p.ID] {
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	return out
}
