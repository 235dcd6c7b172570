/*
clearer.go - Cross-period deficit clearer

PURPOSE:
  Before any money touches the current period, it sweeps the tenant's
  uncleared historical periods oldest first. A tenant can never end up
  with an unresolved deficit in an older period while a newer period
  shows a surplus.

ORDERING:
  Periods are ordered by (year, month index), never by insertion time.
*/
package billing

import (
	"sort"
	"time"

	"github.com/sleekabode/tenancy-engine/ledger"
)

// ClearAcrossPeriods applies an incoming amount to the given uncleared
// payments, oldest first, running the waterfall inside each period in
// the fixed rent -> water -> garbage -> extra order. It mutates the
// payments in place and returns the remainder for the caller to apply
// to the triggering event. The caller persists every touched ledger in
// one atomic unit.
func ClearAcrossPeriods(payments []*Payment, amount ledger.Money, date time.Time, ref string) (ledger.Money, error) {
	if amount.IsNegative() {
		return ledger.Zero(), &ledger.ValidationError{Field: "amount", Message: "clearing amount must not be negative"}
	}

	sortByPeriod(payments)

	remaining := amount
	for _, p := range payments {
		if !remaining.IsPositive() {
			break
		}
		if p.IsCleared {
			continue
		}

		applied, leftover, err := ledger.Waterfall(p.Lines(), remaining, date, ref)
		if err != nil {
			return ledger.Zero(), err
		}
		if applied.IsPositive() {
			p.TotalAmountPaid = p.TotalAmountPaid.Add(applied)
			p.RecordReference(ref, applied, date)
			p.Recompute(date, "Deficit cleared from later payment sweep")
			if err := p.Validate(); err != nil {
				return ledger.Zero(), err
			}
		}
		remaining = leftover
	}
	return remaining, nil
}

func sortByPeriod(ps []*Payment) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].Period.Before(ps[j].Period)
	})
}

// UnclearedPeriods lists the periods still open, oldest first. Used to
// build PendingObligationsError details.
func UnclearedPeriods(payments []*Payment) []ledger.BillingMonth {
	var periods []ledger.BillingMonth
	for _, p := range payments {
		if !p.IsCleared {
			periods = append(periods, p.Period)
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	return periods
}
