/*
deposit.go - The deposit allocation engine

PURPOSE:
  Distributes onboarding money across the deposit ledger's stages in
  fixed priority: rent deposit -> water deposit -> each named other
  deposit in declaration order -> initial rent payment -> excess.

REVISITABLE LEDGER:
  Unlike billing histories, the deposit ledger is not forward-only.
  Money parked in ExcessAmount is drawn back down to fill an earlier
  required stage when a later installment or correction arrives.

FORWARDING:
  Once every stage is satisfied the ledger clears, and the initial rent
  payment plus accumulated excess is handed back to the caller as a
  single amount to open the tenant's first billing period. ExcessAmount
  resets to zero with an audit entry.

SEE ALSO:
  - billing package: forwards the cleared amount through the
    cross-period deficit clearer
*/
package tenancy

import (
	"fmt"
	"time"

	"github.com/sleekabode/tenancy-engine/ledger"
)

// RemainingDeposits returns the refundable balance held against the
// tenant: water deposit plus rent deposit.
func (d *DepositLedger) RemainingDeposits() ledger.Money {
	return d.WaterDeposit.Amount.Add(d.RentDeposit.Amount)
}

// DrainForSettlement consumes up to want from the water deposit first,
// then the rent deposit, and returns the amount actually drained. The
// stage obligation shrinks with the balance so the accounting identity
// holds on the terminal ledger.
func (d *DepositLedger) DrainForSettlement(want ledger.Money, date time.Time, description string) ledger.Money {
	drained := drainStage(&d.WaterDeposit, want, date, description)
	drained = drained.Add(drainStage(&d.RentDeposit, want.Sub(drained), date, description))
	return drained
}

// TopUpWaterDeposit grows the water deposit balance, used when a billing
// overpay is pulled back into deposits at exit time.
func (d *DepositLedger) TopUpWaterDeposit(amount ledger.Money, date time.Time, description string) {
	if !amount.IsPositive() {
		return
	}
	d.WaterDeposit.Expected = d.WaterDeposit.Expected.Add(amount)
	d.WaterDeposit.Amount = d.WaterDeposit.Amount.Add(amount)
	d.WaterDeposit.Transactions = append(d.WaterDeposit.Transactions, ledger.Transaction{
		Amount:          amount,
		Expected:        d.WaterDeposit.Expected,
		Date:            date,
		ReferenceNumber: d.ReferenceNumber,
		Description:     description,
	})
}

func drainStage(line *ledger.ChargeLine, want ledger.Money, date time.Time, description string) ledger.Money {
	if !want.IsPositive() || !line.Amount.IsPositive() {
		return ledger.Zero()
	}
	take := want.Min(line.Amount)
	line.Amount = line.Amount.Sub(take)
	line.Expected = line.Expected.Sub(take)
	line.Transactions = append(line.Transactions, ledger.Transaction{
		Amount:      take.Neg(),
		Expected:    line.Expected,
		Date:        date,
		Description: description,
	})
	return take
}

// DepositResult reports what a deposit event did.
type DepositResult struct {
	// Forward is the amount to apply as the tenant's first billing
	// payment. Non-zero only on the event that clears the ledger.
	Forward ledger.Money

	// Cleared reports whether the ledger is satisfied after the event.
	Cleared bool
}

// Allocate applies a single incoming amount across the deposit stages.
func (d *DepositLedger) Allocate(amount ledger.Money, date time.Time, ref string) (DepositResult, error) {
	if amount.IsNegative() {
		return DepositResult{}, &ledger.ValidationError{Field: "amount", Message: "deposit amount must not be negative"}
	}
	if ref != "" {
		d.ReferenceNumber = ref
	}

	_, leftover, err := ledger.Waterfall(d.stages(), amount, date, ref)
	if err != nil {
		return DepositResult{}, err
	}
	ledger.RecordExcess(&d.ExcessAmount, &d.ExcessHistory, leftover, date,
		fmt.Sprintf("Excess deposit of %s parked", leftover))

	return d.finish(date)
}

// ItemizedDeposit carries per-stage amounts recorded in one call.
type ItemizedDeposit struct {
	RentDeposit   ledger.Money
	WaterDeposit  ledger.Money
	OtherDeposits map[string]ledger.Money // keyed by deposit title
	InitialRent   ledger.Money
}

// RecordItemized applies amounts to their named stages. Per-stage
// overshoot parks in ExcessAmount rather than being lost.
func (d *DepositLedger) RecordItemized(in ItemizedDeposit, date time.Time, ref string) (DepositResult, error) {
	if ref != "" {
		d.ReferenceNumber = ref
	}

	apply := func(line *ledger.ChargeLine, amount ledger.Money) error {
		if amount.IsZero() {
			return nil
		}
		leftover, err := ledger.Allocate(line, amount, date, ref)
		if err != nil {
			return err
		}
		ledger.RecordExcess(&d.ExcessAmount, &d.ExcessHistory, leftover, date,
			fmt.Sprintf("Excess on %s parked", line.Label()))
		return nil
	}

	if err := apply(&d.RentDeposit, in.RentDeposit); err != nil {
		return DepositResult{}, err
	}
	if err := apply(&d.WaterDeposit, in.WaterDeposit); err != nil {
		return DepositResult{}, err
	}
	for i := range d.OtherDeposits {
		amount, ok := in.OtherDeposits[d.OtherDeposits[i].Title]
		if !ok {
			continue
		}
		if err := apply(&d.OtherDeposits[i], amount); err != nil {
			return DepositResult{}, err
		}
	}
	for title := range in.OtherDeposits {
		if !d.hasOtherDeposit(title) {
			return DepositResult{}, &ledger.ValidationError{Field: "otherDeposits", Message: "unknown deposit title: " + title}
		}
	}
	if err := apply(&d.InitialRent, in.InitialRent); err != nil {
		return DepositResult{}, err
	}

	return d.finish(date)
}

func (d *DepositLedger) hasOtherDeposit(title string) bool {
	for i := range d.OtherDeposits {
		if d.OtherDeposits[i].Title == title {
			return true
		}
	}
	return false
}

// finish drains parked excess into any remaining shortfall, then settles
// the cleared state and the forward amount.
func (d *DepositLedger) finish(date time.Time) (DepositResult, error) {
	if !d.allSatisfied() && d.ExcessAmount.IsPositive() {
		draw := d.ExcessAmount
		_, leftover, err := ledger.Waterfall(d.stages(), draw, date, d.ReferenceNumber)
		if err != nil {
			return DepositResult{}, err
		}
		consumed := draw.Sub(leftover)
		if consumed.IsPositive() {
			d.ExcessAmount = leftover
			d.ExcessHistory = append(d.ExcessHistory, ledger.ExcessEntry{
				InitialOverpay: draw,
				ExcessAmount:   consumed.Neg(),
				Date:           date,
				Description:    fmt.Sprintf("Excess of %s drawn down to cover deposit shortfall", consumed),
			})
		}
	}

	wasCleared := d.IsCleared
	d.IsCleared = d.allSatisfied()

	result := DepositResult{Cleared: d.IsCleared}
	if d.IsCleared && !wasCleared {
		result.Forward = d.InitialRent.Amount.Add(d.ExcessAmount)
		if d.ExcessAmount.IsPositive() {
			d.ExcessHistory = append(d.ExcessHistory, ledger.ExcessEntry{
				InitialOverpay: d.ExcessAmount,
				ExcessAmount:   d.ExcessAmount.Neg(),
				Date:           date,
				Description:    "Excess forwarded to first rent payment",
			})
			d.ExcessAmount = ledger.Zero()
		}
	}
	return result, nil
}
