/*
service.go - Exit settlement orchestration

PURPOSE:
  Runs the two exit paths and the eventual tenant removal:

  Settle: deposits fund the painting and miscellaneous fees. Blocked
  with PendingObligationsError while any billing period stays open; the
  check writes nothing.

  SettleFinalPeriod: the alternative path that bills the exit month's
  water, garbage, and extra charges as a final Payment funded from the
  water deposit then the rent deposit.

  Both paths flag the tenant ToBeCleared, hand the removal to the
  deferred scheduler, and fire the exit notice. Notification failure
  never blocks settlement.
*/
package clearance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sleekabode/tenancy-engine/billing"
	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

// Store persists clearance records.
type Store interface {
	SaveClearance(ctx context.Context, c *Clearance) error
	GetClearance(ctx context.Context, id ClearanceID) (*Clearance, error)
	ListClearances(ctx context.Context, tenantID tenancy.TenantID) ([]*Clearance, error)
	DeleteClearance(ctx context.Context, id ClearanceID) error
}

// Notifier sends the exit notice. Fire-and-forget from the engine's
// point of view.
type Notifier interface {
	SendExitNotice(ctx context.Context, tenant *tenancy.Tenant, c *Clearance) error
}

// RemovalScheduler guarantees a tenant-removal callback no earlier than
// the given instant, cancellable and reschedulable by tenant.
type RemovalScheduler interface {
	Schedule(ctx context.Context, tenantID tenancy.TenantID, notAfter time.Time) error
	Cancel(ctx context.Context, tenantID tenancy.TenantID) error
}

// DefaultRemovalDelay is how long a cleared tenant's records are kept
// before deletion becomes eligible.
const DefaultRemovalDelay = 48 * time.Hour

type Service struct {
	clearances Store
	payments   billing.Store
	tenants    tenancy.Store
	locks      *ledger.KeyedLock
	notifier   Notifier
	scheduler  RemovalScheduler
	delay      time.Duration
	log        *zap.Logger
}

func NewService(clearances Store, payments billing.Store, tenants tenancy.Store, locks *ledger.KeyedLock, notifier Notifier, scheduler RemovalScheduler, delay time.Duration, log *zap.Logger) *Service {
	if delay <= 0 {
		delay = DefaultRemovalDelay
	}
	return &Service{
		clearances: clearances,
		payments:   payments,
		tenants:    tenants,
		locks:      locks,
		notifier:   notifier,
		scheduler:  scheduler,
		delay:      delay,
		log:        log,
	}
}

// =============================================================================
// EXIT SETTLEMENT
// =============================================================================

// SettleInput is validated boundary input for an exit settlement.
type SettleInput struct {
	ExitDate    time.Time
	PaintingFee ledger.Money
	Misc        []MiscFee
}

// Settle reconciles a departing tenant's exit fees against remaining
// deposits. Historical deficits block it outright.
func (s *Service) Settle(ctx context.Context, tenantID tenancy.TenantID, in SettleInput) (*Clearance, error) {
	unlock := s.locks.Lock(string(tenantID))
	defer unlock()

	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.requireNoOpenPeriods(ctx, tenantID); err != nil {
		return nil, err
	}

	funds := tenant.Deposits.RemainingDeposits()
	c := NewClearance(tenantID, in.ExitDate, in.PaintingFee, in.Misc)

	leftover, err := c.Apply(funds, in.ExitDate, tenant.Deposits.ReferenceNumber)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	consumed := funds.Sub(leftover)
	tenant.Deposits.DrainForSettlement(consumed, in.ExitDate, "Consumed at exit settlement")
	tenant.ToBeCleared = true

	if err := s.clearances.SaveClearance(ctx, c); err != nil {
		return nil, err
	}
	if err := s.tenants.SaveTenant(ctx, tenant); err != nil {
		return nil, err
	}

	s.finishExit(ctx, tenant, c)
	return c, nil
}

// requireNoOpenPeriods returns PendingObligationsError, writing nothing,
// if any billing period remains uncleared.
func (s *Service) requireNoOpenPeriods(ctx context.Context, tenantID tenancy.TenantID) error {
	uncleared, err := s.payments.ListUnclearedPayments(ctx, tenantID)
	if err != nil {
		return err
	}
	if len(uncleared) > 0 {
		return &ledger.PendingObligationsError{
			TenantID: string(tenantID),
			Periods:  billing.UnclearedPeriods(uncleared),
		}
	}
	return nil
}

// finishExit schedules deferred removal and fires the notice. Neither
// failure rolls back the settlement.
func (s *Service) finishExit(ctx context.Context, tenant *tenancy.Tenant, c *Clearance) {
	notAfter := time.Now().Add(s.delay)
	if err := s.scheduler.Schedule(ctx, tenant.ID, notAfter); err != nil {
		s.log.Error("failed to schedule tenant removal",
			zap.String("tenant", string(tenant.ID)), zap.Error(err))
	}
	if err := s.notifier.SendExitNotice(ctx, tenant, c); err != nil {
		s.log.Warn("exit notice failed",
			zap.String("tenant", string(tenant.ID)), zap.Error(err))
	}
}

// =============================================================================
// CLEARANCE CORRECTION
// =============================================================================

// Update re-runs the settlement waterfall for a correction amount. Any
// deficits left in historical billing periods are swept first; the
// clearance keeps its delta history.
func (s *Service) Update(ctx context.Context, id ClearanceID, amount ledger.Money, date time.Time, ref string) (*Clearance, error) {
	if amount.IsNegative() {
		return nil, &ledger.ValidationError{Field: "amount", Message: "correction amount must not be negative"}
	}

	c, err := s.clearances.GetClearance(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(string(c.TenantID))
	defer unlock()

	c, err = s.clearances.GetClearance(ctx, id)
	if err != nil {
		return nil, err
	}

	uncleared, err := s.payments.ListUnclearedPayments(ctx, c.TenantID)
	if err != nil {
		return nil, err
	}
	remainder, err := billing.ClearAcrossPeriods(uncleared, amount, date, ref)
	if err != nil {
		return nil, err
	}

	if _, err := c.Apply(remainder, date, ref); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := s.payments.SavePayments(ctx, uncleared); err != nil {
		return nil, err
	}
	if err := s.clearances.SaveClearance(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// =============================================================================
// FINAL-PERIOD SETTLEMENT
// =============================================================================

// FinalPeriodInput bills the exit month itself.
type FinalPeriodInput struct {
	Period       ledger.BillingMonth
	Date         time.Time
	WaterBill    ledger.Money
	ExtraCharges ledger.Money
}

// SettleFinalPeriod creates the tenant's last billing ledger and funds
// it from the water deposit then the rent deposit. Any overpay sitting
// on the newest period is pulled back into the water deposit first.
func (s *Service) SettleFinalPeriod(ctx context.Context, tenantID tenancy.TenantID, in FinalPeriodInput) (*billing.Payment, error) {
	unlock := s.locks.Lock(string(tenantID))
	defer unlock()

	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.requireNoOpenPeriods(ctx, tenantID); err != nil {
		return nil, err
	}

	var touched []*billing.Payment
	recent, err := s.payments.MostRecentPayment(ctx, tenantID)
	if err != nil && !ledger.IsNotFound(err) {
		return nil, err
	}
	if recent != nil {
		pulled := recent.DrainOverpay(in.Date, "Overpay returned to water deposit at exit")
		if pulled.IsPositive() {
			tenant.Deposits.TopUpWaterDeposit(pulled, in.Date, "Billing overpay returned at exit")
			touched = append(touched, recent)
		}
	}

	final := billing.NewPayment(tenantID, in.Period, ledger.Zero(), tenant.GarbageFee, in.ExtraCharges, tenant.Deposits.ReferenceNumber)
	final.WaterBill.AddExpected(in.WaterBill, in.Date,
		fmt.Sprintf("Final water bill of %s for %s", in.WaterBill, in.Period))

	due := final.WaterBill.Deficit.Add(final.GarbageFee.Deficit).Add(final.ExtraCharges.Deficit)
	drained := tenant.Deposits.DrainForSettlement(due, in.Date, "Deposits consumed for final period settlement")

	applied, leftover, err := ledger.Waterfall(
		[]*ledger.ChargeLine{&final.WaterBill.ChargeLine, &final.GarbageFee, &final.ExtraCharges},
		drained, in.Date, tenant.Deposits.ReferenceNumber)
	if err != nil {
		return nil, err
	}
	final.TotalAmountPaid = final.TotalAmountPaid.Add(applied)
	final.RecordReference(tenant.Deposits.ReferenceNumber, applied, in.Date)
	final.AddOverpay(leftover, in.Date)
	final.Recompute(in.Date, "Final period settled from deposits")
	if err := final.Validate(); err != nil {
		return nil, err
	}
	touched = append(touched, final)

	tenant.ToBeCleared = true

	if err := s.payments.SavePayments(ctx, touched); err != nil {
		return nil, err
	}
	if err := s.tenants.SaveTenant(ctx, tenant); err != nil {
		return nil, err
	}

	s.finishExit(ctx, tenant, nil)
	return final, nil
}

// =============================================================================
// REMOVAL AND READS
// =============================================================================

// RemoveTenant deletes the tenant and everything they own, frees the
// house, and cancels any pending removal job. Blocked while periods
// remain open.
func (s *Service) RemoveTenant(ctx context.Context, tenantID tenancy.TenantID) error {
	unlock := s.locks.Lock(string(tenantID))
	defer unlock()

	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := s.requireNoOpenPeriods(ctx, tenantID); err != nil {
		return err
	}

	if err := s.tenants.DeleteTenant(ctx, tenantID); err != nil {
		return err
	}
	if err := s.tenants.SetOccupied(ctx, tenant.HouseID, false); err != nil {
		return err
	}
	if err := s.scheduler.Cancel(ctx, tenantID); err != nil {
		s.log.Warn("failed to cancel removal job",
			zap.String("tenant", string(tenantID)), zap.Error(err))
	}

	s.log.Info("tenant removed",
		zap.String("tenant", string(tenantID)),
		zap.String("house", string(tenant.HouseID)))
	return nil
}

func (s *Service) GetForTenant(ctx context.Context, tenantID tenancy.TenantID) ([]*Clearance, error) {
	return s.clearances.ListClearances(ctx, tenantID)
}

func (s *Service) Delete(ctx context.Context, id ClearanceID) error {
	if _, err := s.clearances.GetClearance(ctx, id); err != nil {
		return err
	}
	return s.clearances.DeleteClearance(ctx, id)
}
