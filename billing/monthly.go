/*
monthly.go - Monthly processing state machine

PURPOSE:
  Runs one billing cycle for a tenant. The cycle cannot run without an
  anchor: the immediately preceding period's ledger must exist, found by
  calendar arithmetic with the December/January rollover.

PROCESSING ORDER:
  1. Fold carry-forward obligations into the PRIOR ledger: the water
     accumulated on its meter and any extra charges raised for that
     month after the fact. Water billing lags one cycle, so the prior
     period is where the meter reading becomes an obligation.
  2. Sweep the payment through the cross-period clearer.
  3. Allocate the remainder to the current period in rent -> garbage ->
     extra order. Water never appears in the current-period waterfall.
  4. Leftover parks as overpay on the current period.

The current period's ledger is created lazily on first processing.
*/
package billing

import (
	"fmt"
	"time"

	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

// MonthlyInput is validated boundary input for one billing cycle.
type MonthlyInput struct {
	Period          ledger.BillingMonth
	Amount          ledger.Money
	Date            time.Time
	ReferenceNumber string

	// AccumulatedWaterBill is the prior period's metered water, billed now.
	AccumulatedWaterBill ledger.Money

	// PrevMonthExtraCharges raises the prior period's extra charges.
	PrevMonthExtraCharges ledger.Money

	// ExtraCharges is the current period's expected extra charges.
	ExtraCharges ledger.Money

	// WaterAccumulation is this period's meter reading, carried on the
	// current ledger until the next cycle bills it.
	WaterAccumulation ledger.Money
}

// MonthlyResult reports the ledgers touched by one cycle. Every payment
// in Touched must persist in one atomic unit.
type MonthlyResult struct {
	Current *Payment
	Touched []*Payment
}

// processMonthly runs the cycle against loaded state. history holds all
// of the tenant's existing payment ledgers; the current period's ledger
// is created lazily if absent.
func processMonthly(tenant *tenancy.Tenant, history []*Payment, in MonthlyInput) (*MonthlyResult, error) {
	if in.Amount.IsNegative() {
		return nil, &ledger.ValidationError{Field: "amount", Message: "payment amount must not be negative"}
	}

	prevPeriod := in.Period.Prev()
	var prev, current *Payment
	for _, p := range history {
		switch {
		case p.Period.Equal(prevPeriod):
			prev = p
		case p.Period.Equal(in.Period):
			current = p
		}
	}
	if prev == nil {
		return nil, &ledger.NotFoundError{
			Kind: "payment",
			ID:   fmt.Sprintf("%s %s", tenant.ID, prevPeriod),
		}
	}

	// Step 1: carry-forward into the prior ledger.
	prev.WaterBill.AddExpected(in.AccumulatedWaterBill, in.Date,
		fmt.Sprintf("Accumulated water bill of %s carried into %s", in.AccumulatedWaterBill, prev.Period))
	prev.WaterBill.AccumulatedAmount = ledger.Zero()
	prev.ExtraCharges.AddExpected(in.PrevMonthExtraCharges, in.Date,
		fmt.Sprintf("Extra charges of %s raised for %s", in.PrevMonthExtraCharges, prev.Period))
	if in.AccumulatedWaterBill.IsPositive() || in.PrevMonthExtraCharges.IsPositive() {
		prev.Recompute(in.Date, "Carry-forward obligations folded into prior period")
	}

	touched := map[PaymentID]*Payment{prev.ID: prev}

	// Step 2: sweep historical deficits oldest first. The current period
	// is excluded; it gets the remainder in step 3.
	var uncleared []*Payment
	for _, p := range history {
		if !p.IsCleared && !p.Period.Equal(in.Period) {
			uncleared = append(uncleared, p)
		}
	}
	remainder, err := ClearAcrossPeriods(uncleared, in.Amount, in.Date, in.ReferenceNumber)
	if err != nil {
		return nil, err
	}
	for _, p := range uncleared {
		touched[p.ID] = p
	}

	// Step 3: current period, created lazily.
	if current == nil {
		current = NewPayment(tenant.ID, in.Period, tenant.MonthlyRent, tenant.GarbageFee, in.ExtraCharges, in.ReferenceNumber)
	} else {
		current.ExtraCharges.AddExpected(in.ExtraCharges, in.Date,
			fmt.Sprintf("Extra charges of %s added for %s", in.ExtraCharges, current.Period))
	}
	current.WaterBill.AccumulatedAmount = current.WaterBill.AccumulatedAmount.Add(in.WaterAccumulation)

	applied, leftover, err := ledger.Waterfall(current.CurrentCycleLines(), remainder, in.Date, in.ReferenceNumber)
	if err != nil {
		return nil, err
	}
	current.TotalAmountPaid = current.TotalAmountPaid.Add(applied)
	current.RecordReference(in.ReferenceNumber, applied, in.Date)

	// Step 4: leftover parks on the current period.
	current.AddOverpay(leftover, in.Date)
	current.Recompute(in.Date, fmt.Sprintf("Monthly processing for %s", in.Period))
	if err := current.Validate(); err != nil {
		return nil, err
	}
	touched[current.ID] = current

	result := &MonthlyResult{Current: current}
	for _, p := range touched {
		result.Touched = append(result.Touched, p)
	}
	return result, nil
}
