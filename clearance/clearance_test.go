package clearance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sleekabode/tenancy-engine/billing"
	"github.com/sleekabode/tenancy-engine/clearance"
	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/store/memory"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

func exitDay(d int) time.Time {
	return time.Date(2025, time.June, d, 0, 0, 0, 0, time.UTC)
}

type recordingNotifier struct {
	mu      sync.Mutex
	calls   int
	tenants []tenancy.TenantID
}

func (n *recordingNotifier) SendExitNotice(_ context.Context, tenant *tenancy.Tenant, _ *clearance.Clearance) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.tenants = append(n.tenants, tenant.ID)
	return nil
}

type recordingScheduler struct {
	mu        sync.Mutex
	scheduled map[tenancy.TenantID]time.Time
	cancelled []tenancy.TenantID
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{scheduled: make(map[tenancy.TenantID]time.Time)}
}

func (r *recordingScheduler) Schedule(_ context.Context, id tenancy.TenantID, notAfter time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled[id] = notAfter
	return nil
}

func (r *recordingScheduler) Cancel(_ context.Context, id tenancy.TenantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, id)
	return nil
}

type fixture struct {
	store     *memory.Store
	svc       *clearance.Service
	notifier  *recordingNotifier
	scheduler *recordingScheduler
}

func newFixture() *fixture {
	store := memory.New()
	notifier := &recordingNotifier{}
	scheduler := newRecordingScheduler()
	svc := clearance.NewService(store, store, store, ledger.NewKeyedLock(),
		notifier, scheduler, 0, zap.NewNop())
	return &fixture{store: store, svc: svc, notifier: notifier, scheduler: scheduler}
}

// seedTenant stores an occupied house and a tenant whose deposit ledger
// is fully funded, so RemainingDeposits equals rentDeposit + waterDeposit.
func seedTenant(t *testing.T, f *fixture, rentDeposit, waterDeposit int) *tenancy.Tenant {
	t.Helper()
	ctx := context.Background()

	house := &tenancy.House{
		ID:           "house-1",
		ApartmentID:  "apt-1",
		Name:         "A1",
		RentPayable:  ledger.NewMoneyFromInt(10000),
		RentDeposit:  ledger.NewMoneyFromInt(rentDeposit),
		WaterDeposit: ledger.NewMoneyFromInt(waterDeposit),
		IsOccupied:   true,
	}
	require.NoError(t, f.store.SaveHouse(ctx, house))

	tenant := &tenancy.Tenant{
		ID:          "tenant-1",
		Name:        "Jane Wanjiku",
		NationalID:  "12345678",
		ApartmentID: "apt-1",
		HouseID:     "house-1",
		MonthlyRent: ledger.NewMoneyFromInt(10000),
		GarbageFee:  ledger.NewMoneyFromInt(150),
		Deposits:    tenancy.NewDepositLedger(house, ledger.NewMoneyFromInt(10000)),
	}
	funding := ledger.NewMoneyFromInt(rentDeposit + waterDeposit + 10000)
	_, err := tenant.Deposits.Allocate(funding, exitDay(1), "DEP-1")
	require.NoError(t, err)
	require.True(t, tenant.Deposits.IsCleared)
	require.NoError(t, f.store.SaveTenant(ctx, tenant))
	return tenant
}

// TestExitWaterfallShortfall covers deposits that cannot cover the exit
// fees: painting absorbs everything it can, later fees stay untouched.
func TestExitWaterfallShortfall(t *testing.T) {
	// GIVEN a painting fee of 3,000 and a key fee of 500
	c := clearance.NewClearance("tenant-1", exitDay(10), ledger.NewMoneyFromInt(3000),
		[]clearance.MiscFee{{Title: "keys", Amount: ledger.NewMoneyFromInt(500)}})

	// WHEN only 2,000 in deposits funds the settlement
	leftover, err := c.Apply(ledger.NewMoneyFromInt(2000), exitDay(10), "DEP-1")
	require.NoError(t, err)

	// THEN painting takes the full 2,000 and keeps a 1,000 deficit
	assert.True(t, c.PaintingFee.Amount.Equal(ledger.NewMoneyFromInt(2000)))
	assert.True(t, c.PaintingFee.Deficit.Equal(ledger.NewMoneyFromInt(1000)))

	// AND the key fee saw no money at all
	assert.True(t, c.Miscellaneous[0].Amount.IsZero())
	assert.True(t, c.Miscellaneous[0].Deficit.Equal(ledger.NewMoneyFromInt(500)))

	// AND the record stays open with the change on file
	assert.False(t, c.IsCleared)
	assert.True(t, leftover.IsZero())
	assert.True(t, c.GlobalDeficit.Equal(ledger.NewMoneyFromInt(1500)))
	require.Len(t, c.GlobalDeficitHistory, 1)
	assert.True(t, c.GlobalDeficitHistory[0].Amount.Equal(ledger.NewMoneyFromInt(2000)))
	require.NoError(t, c.Validate())
}

// TestExitWaterfallOverpay checks that money beyond every exit fee parks
// as overpay and the record clears.
func TestExitWaterfallOverpay(t *testing.T) {
	c := clearance.NewClearance("tenant-1", exitDay(10), ledger.NewMoneyFromInt(3000),
		[]clearance.MiscFee{{Title: "keys", Amount: ledger.NewMoneyFromInt(500)}})

	leftover, err := c.Apply(ledger.NewMoneyFromInt(4000), exitDay(10), "DEP-1")
	require.NoError(t, err)

	assert.True(t, c.IsCleared)
	assert.True(t, leftover.Equal(ledger.NewMoneyFromInt(500)))
	assert.True(t, c.Overpay.Equal(ledger.NewMoneyFromInt(500)))
	assert.True(t, c.GlobalDeficit.IsZero())
	require.NoError(t, c.Validate())
}

// TestSettleConsumesDeposits runs the full exit path: deposits fund the
// fees water-first, the tenant is flagged, removal is scheduled, and the
// notice fires.
func TestSettleConsumesDeposits(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := seedTenant(t, f, 10000, 2000)

	// WHEN the tenant exits owing painting 3,000 and keys 500
	c, err := f.svc.Settle(ctx, tenant.ID, clearance.SettleInput{
		ExitDate:    exitDay(15),
		PaintingFee: ledger.NewMoneyFromInt(3000),
		Misc:        []clearance.MiscFee{{Title: "keys", Amount: ledger.NewMoneyFromInt(500)}},
	})
	require.NoError(t, err)

	// THEN the 12,000 in deposits clears everything with 8,500 over
	assert.True(t, c.IsCleared)
	assert.True(t, c.Overpay.Equal(ledger.NewMoneyFromInt(8500)))

	// AND the deposits drained water-first
	stored, err := f.store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, stored.ToBeCleared)
	assert.True(t, stored.Deposits.WaterDeposit.Amount.IsZero())
	assert.True(t, stored.Deposits.RentDeposit.Amount.Equal(ledger.NewMoneyFromInt(8500)))
	assert.True(t, stored.Deposits.RemainingDeposits().Equal(ledger.NewMoneyFromInt(8500)))

	// AND removal is scheduled and the notice went out
	_, ok := f.scheduler.scheduled[tenant.ID]
	assert.True(t, ok)
	assert.Equal(t, 1, f.notifier.calls)
}

// TestSettleBlockedByOpenPeriod checks the precondition: any uncleared
// billing period blocks settlement before anything is written.
func TestSettleBlockedByOpenPeriod(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := seedTenant(t, f, 10000, 2000)

	open := billing.NewPayment(tenant.ID, ledger.NewBillingMonth(2025, ledger.May),
		ledger.NewMoneyFromInt(10000), ledger.NewMoneyFromInt(150), ledger.Zero(), "")
	require.NoError(t, f.store.SavePayment(ctx, open))

	_, err := f.svc.Settle(ctx, tenant.ID, clearance.SettleInput{
		ExitDate:    exitDay(15),
		PaintingFee: ledger.NewMoneyFromInt(3000),
	})

	var pending *ledger.PendingObligationsError
	require.ErrorAs(t, err, &pending)
	assert.Equal(t, []ledger.BillingMonth{ledger.NewBillingMonth(2025, ledger.May)}, pending.Periods)

	// Nothing was written: no clearance, tenant and deposits untouched.
	records, err := f.svc.GetForTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	stored, err := f.store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.False(t, stored.ToBeCleared)
	assert.True(t, stored.Deposits.RemainingDeposits().Equal(ledger.NewMoneyFromInt(12000)))
	assert.Equal(t, 0, f.notifier.calls)
}

// TestUpdateKeepsDeltaHistory covers a correction on an underfunded
// settlement: each event appends the change it produced, so the first
// delta survives the second.
func TestUpdateKeepsDeltaHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := seedTenant(t, f, 1500, 500)

	// GIVEN a settlement where 2,000 in deposits met 3,500 in fees
	c, err := f.svc.Settle(ctx, tenant.ID, clearance.SettleInput{
		ExitDate:    exitDay(15),
		PaintingFee: ledger.NewMoneyFromInt(3000),
		Misc:        []clearance.MiscFee{{Title: "keys", Amount: ledger.NewMoneyFromInt(500)}},
	})
	require.NoError(t, err)
	require.False(t, c.IsCleared)
	require.True(t, c.GlobalDeficit.Equal(ledger.NewMoneyFromInt(1500)))

	// WHEN the former tenant pays the remaining 1,500
	updated, err := f.svc.Update(ctx, c.ID, ledger.NewMoneyFromInt(1500), exitDay(20), "MPESA-77")
	require.NoError(t, err)

	// THEN the record clears and both deltas remain on file
	assert.True(t, updated.IsCleared)
	assert.True(t, updated.GlobalDeficit.IsZero())
	assert.True(t, updated.TotalAmountPaid.Equal(ledger.NewMoneyFromInt(3500)))
	require.Len(t, updated.GlobalDeficitHistory, 2)
	assert.True(t, updated.GlobalDeficitHistory[0].Amount.Equal(ledger.NewMoneyFromInt(2000)))
	assert.True(t, updated.GlobalDeficitHistory[1].Amount.Equal(ledger.NewMoneyFromInt(1500)))

	stored, err := f.store.GetClearance(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCleared)
}

// TestUpdateSweepsOpenPeriodsFirst checks that a correction clears any
// billing deficit that appeared after settlement before topping up the
// clearance itself.
func TestUpdateSweepsOpenPeriodsFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := seedTenant(t, f, 1500, 500)

	c, err := f.svc.Settle(ctx, tenant.ID, clearance.SettleInput{
		ExitDate:    exitDay(15),
		PaintingFee: ledger.NewMoneyFromInt(3000),
		Misc:        []clearance.MiscFee{{Title: "keys", Amount: ledger.NewMoneyFromInt(500)}},
	})
	require.NoError(t, err)

	// GIVEN a late billing charge of 1,000 surfaced after settlement
	period := ledger.NewBillingMonth(2025, ledger.June)
	late := billing.NewPayment(tenant.ID, period,
		ledger.NewMoneyFromInt(1000), ledger.Zero(), ledger.Zero(), "")
	require.NoError(t, f.store.SavePayment(ctx, late))

	// WHEN a 2,500 correction arrives
	updated, err := f.svc.Update(ctx, c.ID, ledger.NewMoneyFromInt(2500), exitDay(20), "MPESA-88")
	require.NoError(t, err)

	// THEN the billing period cleared first and 1,500 closed the clearance
	swept, err := f.store.GetPaymentByPeriod(ctx, tenant.ID, period)
	require.NoError(t, err)
	assert.True(t, swept.IsCleared)
	assert.True(t, updated.IsCleared)
	assert.True(t, updated.GlobalDeficit.IsZero())
}

// TestSettleFinalPeriod runs the exit path that bills the last month
// from deposits: recent overpay returns to the water deposit, then the
// water deposit funds the final water and garbage charges.
func TestSettleFinalPeriod(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := seedTenant(t, f, 10000, 2000)

	// GIVEN a cleared May period holding a 300 overpay
	may := billing.NewPayment(tenant.ID, ledger.NewBillingMonth(2025, ledger.May),
		ledger.NewMoneyFromInt(10000), ledger.NewMoneyFromInt(150), ledger.Zero(), "MPESA-1")
	_, err := billing.ClearAcrossPeriods([]*billing.Payment{may},
		ledger.NewMoneyFromInt(10150), exitDay(2), "MPESA-1")
	require.NoError(t, err)
	may.AddOverpay(ledger.NewMoneyFromInt(300), exitDay(2))
	require.NoError(t, f.store.SavePayment(ctx, may))

	// WHEN June is settled as the final period with a 650 water bill
	final, err := f.svc.SettleFinalPeriod(ctx, tenant.ID, clearance.FinalPeriodInput{
		Period:    ledger.NewBillingMonth(2025, ledger.June),
		Date:      exitDay(25),
		WaterBill: ledger.NewMoneyFromInt(650),
	})
	require.NoError(t, err)

	// THEN water and garbage are paid in full from deposits
	assert.True(t, final.IsCleared)
	assert.True(t, final.WaterBill.Amount.Equal(ledger.NewMoneyFromInt(650)))
	assert.True(t, final.GarbageFee.Amount.Equal(ledger.NewMoneyFromInt(150)))
	assert.True(t, final.TotalAmountPaid.Equal(ledger.NewMoneyFromInt(800)))
	assert.True(t, final.Overpay.IsZero())

	// AND the overpay moved into the water deposit before the drain:
	// 2,000 + 300 - 800 leaves 1,500, the rent deposit untouched
	stored, err := f.store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, stored.ToBeCleared)
	assert.True(t, stored.Deposits.WaterDeposit.Amount.Equal(ledger.NewMoneyFromInt(1500)))
	assert.True(t, stored.Deposits.RentDeposit.Amount.Equal(ledger.NewMoneyFromInt(10000)))

	swept, err := f.store.GetPaymentByPeriod(ctx, tenant.ID, ledger.NewBillingMonth(2025, ledger.May))
	require.NoError(t, err)
	assert.True(t, swept.Overpay.IsZero())

	_, ok := f.scheduler.scheduled[tenant.ID]
	assert.True(t, ok)
	assert.Equal(t, 1, f.notifier.calls)
}

// TestRemoveTenantCascades checks the deferred removal callback: records
// go, the house frees up, and the job deactivates.
func TestRemoveTenantCascades(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenant := seedTenant(t, f, 10000, 2000)

	_, err := f.svc.Settle(ctx, tenant.ID, clearance.SettleInput{
		ExitDate:    exitDay(15),
		PaintingFee: ledger.NewMoneyFromInt(3000),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveTenant(ctx, tenant.ID))

	_, err = f.store.GetTenant(ctx, tenant.ID)
	assert.True(t, ledger.IsNotFound(err))

	house, err := f.store.GetHouse(ctx, tenant.HouseID)
	require.NoError(t, err)
	assert.False(t, house.IsOccupied)

	records, err := f.svc.GetForTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Contains(t, f.scheduler.cancelled, tenant.ID)
}
