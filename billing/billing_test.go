package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

func billingDay(d int) time.Time {
	return time.Date(2025, time.April, d, 0, 0, 0, 0, time.UTC)
}

func testTenant() *tenancy.Tenant {
	return &tenancy.Tenant{
		ID:          "tenant-1",
		Name:        "Jane Wanjiku",
		MonthlyRent: ledger.NewMoneyFromInt(10000),
		GarbageFee:  ledger.NewMoneyFromInt(150),
	}
}

// paymentWithDeficit builds a period ledger carrying a deficit on one line.
func paymentWithDeficit(period ledger.BillingMonth, category ledger.Category, deficit int) *Payment {
	p := NewPayment("tenant-1", period, ledger.Zero(), ledger.Zero(), ledger.Zero(), "")
	switch category {
	case ledger.CategoryRent:
		p.Rent.AddExpected(ledger.NewMoneyFromInt(deficit), billingDay(1), "rent due")
	case ledger.CategoryWater:
		p.WaterBill.AddExpected(ledger.NewMoneyFromInt(deficit), billingDay(1), "water due")
	case ledger.CategoryGarbage:
		p.GarbageFee.AddExpected(ledger.NewMoneyFromInt(deficit), billingDay(1), "garbage due")
	}
	p.Recompute(billingDay(1), "opening deficit")
	return p
}

// TestClearerAppliesOldestFirst covers the deposit-arrival scenario: a
// prior period's water deficit is cleared before anything else sees the
// money.
func TestClearerAppliesOldestFirst(t *testing.T) {
	// GIVEN a prior unresolved period with a water deficit of 1,000
	old := paymentWithDeficit(ledger.NewBillingMonth(2025, ledger.February), ledger.CategoryWater, 1000)

	// WHEN 1,500 arrives
	remainder, err := ClearAcrossPeriods([]*Payment{old}, ledger.NewMoneyFromInt(1500), billingDay(2), "DEP-100")
	require.NoError(t, err)

	// THEN the old period clears fully and 500 flows onward
	assert.True(t, old.IsCleared)
	assert.True(t, old.WaterBill.Deficit.IsZero())
	assert.True(t, remainder.Equal(ledger.NewMoneyFromInt(500)))
}

// TestClearerOrdersByCalendarNotInsertion checks that the sweep follows
// (year, month), so no older period stays open while a newer one is fed.
func TestClearerOrdersByCalendarNotInsertion(t *testing.T) {
	// GIVEN open periods handed over newest first, spanning a year boundary
	newer := paymentWithDeficit(ledger.NewBillingMonth(2025, ledger.January), ledger.CategoryRent, 4000)
	older := paymentWithDeficit(ledger.NewBillingMonth(2024, ledger.December), ledger.CategoryRent, 3000)
	payments := []*Payment{newer, older}

	// WHEN only enough money for the older period arrives
	remainder, err := ClearAcrossPeriods(payments, ledger.NewMoneyFromInt(3000), billingDay(3), "REF-200")
	require.NoError(t, err)

	// THEN December 2024 cleared and January 2025 got nothing
	assert.True(t, older.IsCleared)
	assert.False(t, newer.IsCleared)
	assert.True(t, newer.Rent.Amount.IsZero())
	assert.True(t, remainder.IsZero())
}

// TestClearerConservation checks amount_in == applied + remainder across
// several periods.
func TestClearerConservation(t *testing.T) {
	a := paymentWithDeficit(ledger.NewBillingMonth(2025, ledger.January), ledger.CategoryRent, 2000)
	b := paymentWithDeficit(ledger.NewBillingMonth(2025, ledger.February), ledger.CategoryGarbage, 300)

	in := ledger.NewMoneyFromInt(2500)
	remainder, err := ClearAcrossPeriods([]*Payment{a, b}, in, billingDay(4), "REF-300")
	require.NoError(t, err)

	applied := a.TotalAmountPaid.Add(b.TotalAmountPaid)
	assert.True(t, applied.Add(remainder).Equal(in))
	assert.True(t, remainder.Equal(ledger.NewMoneyFromInt(200)))
}

// TestMonthlyRequiresAnchor: a cycle cannot run without the immediately
// preceding period's ledger.
func TestMonthlyRequiresAnchor(t *testing.T) {
	tenant := testTenant()

	_, err := processMonthly(tenant, nil, MonthlyInput{
		Period: ledger.NewBillingMonth(2025, ledger.April),
		Amount: ledger.NewMoneyFromInt(10000),
		Date:   billingDay(5),
	})

	require.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))
}

// TestMonthlyWaterLagsOneCycle: the meter reading folds into the PRIOR
// ledger and the current-period waterfall never touches water.
func TestMonthlyWaterLagsOneCycle(t *testing.T) {
	tenant := testTenant()

	// GIVEN a fully settled March ledger
	march := NewPayment(tenant.ID, ledger.NewBillingMonth(2025, ledger.March),
		ledger.NewMoneyFromInt(10000), ledger.NewMoneyFromInt(150), ledger.Zero(), "REF-M")
	_, _, err := ledger.Waterfall(march.Lines(), ledger.NewMoneyFromInt(10150), billingDay(1), "REF-M")
	require.NoError(t, err)
	march.Recompute(billingDay(1), "march settled")
	require.True(t, march.IsCleared)

	// WHEN April processes with 800 of metered water billed for March
	result, err := processMonthly(tenant, []*Payment{march}, MonthlyInput{
		Period:               ledger.NewBillingMonth(2025, ledger.April),
		Amount:               ledger.NewMoneyFromInt(10950),
		Date:                 billingDay(6),
		ReferenceNumber:      "REF-A",
		AccumulatedWaterBill: ledger.NewMoneyFromInt(800),
		WaterAccumulation:    ledger.NewMoneyFromInt(650),
	})
	require.NoError(t, err)

	// THEN the water obligation landed on March and was swept first
	assert.True(t, march.WaterBill.Expected.Equal(ledger.NewMoneyFromInt(800)))
	assert.True(t, march.WaterBill.Paid)
	assert.True(t, march.IsCleared)

	// AND April's own water line stays at zero expected, with the new
	// meter reading waiting for May
	current := result.Current
	assert.True(t, current.WaterBill.Expected.IsZero())
	assert.True(t, current.WaterBill.AccumulatedAmount.Equal(ledger.NewMoneyFromInt(650)))

	// AND the remaining 10,150 settled April's rent and garbage
	assert.True(t, current.Rent.Paid)
	assert.True(t, current.GarbageFee.Paid)
	assert.True(t, current.IsCleared)
	assert.True(t, current.Overpay.IsZero())
}

// TestMonthlyCarriesDeficitForward: a short payment leaves the current
// period open and the next cycle sweeps it before its own charges.
func TestMonthlyCarriesDeficitForward(t *testing.T) {
	tenant := testTenant()

	march := NewPayment(tenant.ID, ledger.NewBillingMonth(2025, ledger.March),
		ledger.NewMoneyFromInt(10000), ledger.NewMoneyFromInt(150), ledger.Zero(), "REF-M")
	_, _, err := ledger.Waterfall(march.Lines(), ledger.NewMoneyFromInt(10150), billingDay(1), "REF-M")
	require.NoError(t, err)
	march.Recompute(billingDay(1), "march settled")

	// GIVEN April processed with 4,150 short
	result, err := processMonthly(tenant, []*Payment{march}, MonthlyInput{
		Period:          ledger.NewBillingMonth(2025, ledger.April),
		Amount:          ledger.NewMoneyFromInt(6000),
		Date:            billingDay(7),
		ReferenceNumber: "REF-A",
	})
	require.NoError(t, err)
	april := result.Current
	require.False(t, april.IsCleared)
	require.True(t, april.Rent.Deficit.Equal(ledger.NewMoneyFromInt(4000)))
	require.True(t, april.GarbageFee.Deficit.Equal(ledger.NewMoneyFromInt(150)))

	// WHEN May processes with enough for the arrears and its own charges
	result, err = processMonthly(tenant, []*Payment{march, april}, MonthlyInput{
		Period:          ledger.NewBillingMonth(2025, ledger.May),
		Amount:          ledger.NewMoneyFromInt(14300),
		Date:            time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC),
		ReferenceNumber: "REF-MAY",
	})
	require.NoError(t, err)

	// THEN April cleared before May was funded
	assert.True(t, april.IsCleared)
	may := result.Current
	assert.True(t, may.Rent.Paid)
	assert.True(t, may.GarbageFee.Paid)
	assert.True(t, may.IsCleared)
}

// TestMonthlyOverpayParksOnCurrent: leftover beyond all obligations
// becomes overpay with an excess snapshot.
func TestMonthlyOverpayParksOnCurrent(t *testing.T) {
	tenant := testTenant()

	march := NewPayment(tenant.ID, ledger.NewBillingMonth(2025, ledger.March),
		ledger.NewMoneyFromInt(10000), ledger.NewMoneyFromInt(150), ledger.Zero(), "REF-M")
	_, _, err := ledger.Waterfall(march.Lines(), ledger.NewMoneyFromInt(10150), billingDay(1), "REF-M")
	require.NoError(t, err)
	march.Recompute(billingDay(1), "march settled")

	result, err := processMonthly(tenant, []*Payment{march}, MonthlyInput{
		Period:          ledger.NewBillingMonth(2025, ledger.April),
		Amount:          ledger.NewMoneyFromInt(11000),
		Date:            billingDay(8),
		ReferenceNumber: "REF-A",
	})
	require.NoError(t, err)

	current := result.Current
	assert.True(t, current.Overpay.Equal(ledger.NewMoneyFromInt(850)))
	require.Len(t, current.ExcessHistory, 1)
	assert.True(t, current.ExcessHistory[0].InitialOverpay.IsZero())
	assert.True(t, current.ExcessHistory[0].ExcessAmount.Equal(ledger.NewMoneyFromInt(850)))
}

// TestAuditHistoriesOnlyGrow: re-reading and validating ledgers never
// mutates history lengths.
func TestAuditHistoriesOnlyGrow(t *testing.T) {
	p := paymentWithDeficit(ledger.NewBillingMonth(2025, ledger.March), ledger.CategoryRent, 5000)
	_, err := ClearAcrossPeriods([]*Payment{p}, ledger.NewMoneyFromInt(2000), billingDay(9), "REF-G")
	require.NoError(t, err)

	txs := len(p.Rent.Transactions)
	defs := len(p.Rent.DeficitHistory)
	globals := len(p.GlobalDeficitHistory)

	require.NoError(t, p.Validate())
	_ = p.Lines()
	_ = UnclearedPeriods([]*Payment{p})

	assert.Equal(t, txs, len(p.Rent.Transactions))
	assert.Equal(t, defs, len(p.Rent.DeficitHistory))
	assert.Equal(t, globals, len(p.GlobalDeficitHistory))
}
