/*
Package billing holds the per-month billing ledgers and the operations
that move money through them.

PURPOSE:
  One Payment record exists per tenant per calendar month. It aggregates
  the four house-level charge lines (rent, water, garbage, extra
  charges), the period's overpay, and the global audit histories.

KEY CONCEPTS IN THIS FILE (payment.go):
  - Payment: the billing period ledger
  - WaterCharge: a charge line plus the running meter accumulation that
    bills one cycle late
  - Recompute: re-derives the global deficit and cleared flag from the
    charge lines after every mutation

INVARIANTS:
  globalDeficit == rent.deficit + water.deficit + garbage.deficit +
  extra.deficit. isCleared is true exactly when every line is paid.
  Exactly one Payment per (tenant, year, month); the store enforces it.

SEE ALSO:
  - clearer.go: oldest-first sweep across uncleared periods
  - monthly.go: the monthly processing state machine
*/
package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

type PaymentID string

// WaterCharge bills one cycle behind the meter: AccumulatedAmount holds
// this period's metered usage, which monthly processing folds into the
// line as an obligation during the next cycle.
type WaterCharge struct {
	ledger.ChargeLine
	AccumulatedAmount ledger.Money `json:"accumulatedAmount"`
}

type Payment struct {
	ID              PaymentID           `json:"id"`
	TenantID        tenancy.TenantID    `json:"tenantId"`
	Period          ledger.BillingMonth `json:"period"`
	ReferenceNumber string              `json:"referenceNumber"`

	Rent         ledger.ChargeLine `json:"rent"`
	WaterBill    WaterCharge       `json:"waterBill"`
	GarbageFee   ledger.ChargeLine `json:"garbageFee"`
	ExtraCharges ledger.ChargeLine `json:"extraCharges"`

	Overpay              ledger.Money            `json:"overpay"`
	GlobalDeficit        ledger.Money            `json:"globalDeficit"`
	GlobalDeficitHistory []ledger.DeficitEntry   `json:"globalDeficitHistory"`
	GlobalTransactions   []ledger.Transaction    `json:"globalTransactions"`
	ExcessHistory        []ledger.ExcessEntry    `json:"excessHistory"`
	ReferenceNoHistory   []ledger.ReferenceEntry `json:"referenceNoHistory"`
	TotalAmountPaid      ledger.Money            `json:"totalAmountPaid"`
	IsCleared            bool                    `json:"isCleared"`

	CreatedAt time.Time `json:"createdAt"`
	Version   int       `json:"version"`
}

// NewPayment opens a billing period ledger with its expected charges.
// Water starts at zero expected; it is billed via carry-forward.
func NewPayment(tenantID tenancy.TenantID, period ledger.BillingMonth, rent, garbage, extra ledger.Money, ref string) *Payment {
	p := &Payment{
		ID:              PaymentID(uuid.NewString()),
		TenantID:        tenantID,
		Period:          period,
		ReferenceNumber: ref,
		Rent:            ledger.NewChargeLine(ledger.CategoryRent, rent),
		WaterBill:       WaterCharge{ChargeLine: ledger.NewChargeLine(ledger.CategoryWater, ledger.Zero())},
		GarbageFee:      ledger.NewChargeLine(ledger.CategoryGarbage, garbage),
		ExtraCharges:    ledger.NewChargeLine(ledger.CategoryExtra, extra),
		CreatedAt:       time.Now().UTC(),
	}
	p.GlobalDeficit = p.sumDeficits()
	p.IsCleared = p.allPaid()
	return p
}

// Lines returns the charge lines in waterfall priority order.
func (p *Payment) Lines() []*ledger.ChargeLine {
	return []*ledger.ChargeLine{
		&p.Rent, &p.WaterBill.ChargeLine, &p.GarbageFee, &p.ExtraCharges,
	}
}

// CurrentCycleLines excludes water, which bills via carry-forward only.
func (p *Payment) CurrentCycleLines() []*ledger.ChargeLine {
	return []*ledger.ChargeLine{&p.Rent, &p.GarbageFee, &p.ExtraCharges}
}

func (p *Payment) sumDeficits() ledger.Money {
	total := ledger.Zero()
	for _, line := range p.Lines() {
		total = total.Add(line.Deficit)
	}
	return total
}

func (p *Payment) allPaid() bool {
	for _, line := range p.Lines() {
		if !line.Paid {
			return false
		}
	}
	return true
}

// Recompute re-derives the global deficit and cleared flag, appending a
// snapshot entry describing what moved it.
func (p *Payment) Recompute(date time.Time, description string) {
	p.GlobalDeficit = p.sumDeficits()
	p.IsCleared = p.allPaid()
	p.GlobalDeficitHistory = append(p.GlobalDeficitHistory, ledger.DeficitEntry{
		Amount:      p.GlobalDeficit,
		Date:        date,
		Description: description,
	})
}

// RecordReference logs a payment reference against this period. The
// amount is the true sum attributed to the reference.
func (p *Payment) RecordReference(ref string, amount ledger.Money, date time.Time) {
	if ref == "" {
		return
	}
	p.ReferenceNumber = ref
	p.ReferenceNoHistory = append(p.ReferenceNoHistory, ledger.ReferenceEntry{
		ReferenceNumber: ref,
		Amount:          amount,
		Date:            date,
		Description:     fmt.Sprintf("Reference %s applied %s to %s", ref, amount, p.Period),
	})
}

// AddOverpay parks leftover money on the period with an excess snapshot.
func (p *Payment) AddOverpay(amount ledger.Money, date time.Time) {
	ledger.RecordExcess(&p.Overpay, &p.ExcessHistory, amount, date,
		fmt.Sprintf("Excess payment of %s added", amount))
}

// DrainOverpay removes the full overpay balance for reuse elsewhere,
// leaving an audit entry. Returns the drained amount.
func (p *Payment) DrainOverpay(date time.Time, reason string) ledger.Money {
	if !p.Overpay.IsPositive() {
		return ledger.Zero()
	}
	drained := p.Overpay
	p.ExcessHistory = append(p.ExcessHistory, ledger.ExcessEntry{
		InitialOverpay: drained,
		ExcessAmount:   drained.Neg(),
		Date:           date,
		Description:    reason,
	})
	p.Overpay = ledger.Zero()
	return drained
}

// Validate checks every line plus the ledger-level identities.
func (p *Payment) Validate() error {
	for _, line := range p.Lines() {
		if err := line.Validate(); err != nil {
			return err
		}
	}
	if !p.GlobalDeficit.Equal(p.sumDeficits()) {
		return &ledger.InvariantError{
			Line:    string(p.ID),
			Message: "global deficit disagrees with line deficits",
		}
	}
	if p.IsCleared != p.allPaid() {
		return &ledger.InvariantError{
			Line:    string(p.ID),
			Message: "cleared flag disagrees with line states",
		}
	}
	return nil
}
