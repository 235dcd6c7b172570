/*
Package clearance holds the exit settlement ledger.

PURPOSE:
  When a tenant leaves, remaining deposits settle the exit obligations:
  the painting fee and any named miscellaneous fees, in declared order.
  The Clearance record is structurally a billing ledger with those lines
  in place of the monthly charges, created once per tenant at exit.

GLOBAL DEFICIT HISTORY:
  Unlike the monthly ledgers, clearance corrections record the global
  deficit CHANGE each event produced, so a later correction preserves
  every previously recorded delta instead of overwriting a final value.

SEE ALSO:
  - service.go: settlement preconditions and orchestration
*/
package clearance

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

type ClearanceID string

// MiscFee is a frontend-declared exit fee. Order matters.
type MiscFee struct {
	Title  string
	Amount ledger.Money
}

type Clearance struct {
	ID       ClearanceID      `json:"id"`
	TenantID tenancy.TenantID `json:"tenantId"`
	Date     time.Time        `json:"date"`

	PaintingFee   ledger.ChargeLine   `json:"paintingFee"`
	Miscellaneous []ledger.ChargeLine `json:"miscellaneous"`

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

// NewClearance opens the exit settlement ledger with its expected fees.
func NewClearance(tenantID tenancy.TenantID, date time.Time, paintingFee ledger.Money, misc []MiscFee) *Clearance {
	lines := make([]ledger.ChargeLine, len(misc))
	for i, m := range misc {
		lines[i] = ledger.NewMiscLine(m.Title, m.Amount)
	}
	c := &Clearance{
		ID:            ClearanceID(uuid.NewString()),
		TenantID:      tenantID,
		Date:          date,
		PaintingFee:   ledger.NewChargeLine(ledger.CategoryPainting, paintingFee),
		Miscellaneous: lines,
		CreatedAt:     time.Now().UTC(),
	}
	c.GlobalDeficit = c.sumDeficits()
	c.IsCleared = c.allPaid()
	return c
}

// Lines returns the exit waterfall order: painting fee first, then each
// miscellaneous fee as declared.
func (c *Clearance) Lines() []*ledger.ChargeLine {
	lines := []*ledger.ChargeLine{&c.PaintingFee}
	for i := range c.Miscellaneous {
		lines = append(lines, &c.Miscellaneous[i])
	}
	return lines
}

func (c *Clearance) sumDeficits() ledger.Money {
	total := c.PaintingFee.Deficit
	for i := range c.Miscellaneous {
		total = total.Add(c.Miscellaneous[i].Deficit)
	}
	return total
}

func (c *Clearance) allPaid() bool {
	if !c.PaintingFee.Paid {
		return false
	}
	for i := range c.Miscellaneous {
		if !c.Miscellaneous[i].Paid {
			return false
		}
	}
	return true
}

// Apply runs the exit waterfall for an incoming amount and records the
// global deficit delta it produced. Returns the leftover beyond every
// fee, which also lands in Overpay.
func (c *Clearance) Apply(amount ledger.Money, date time.Time, ref string) (ledger.Money, error) {
	if amount.IsNegative() {
		return ledger.Zero(), &ledger.ValidationError{Field: "amount", Message: "settlement amount must not be negative"}
	}

	before := c.sumDeficits()
	applied, leftover, err := ledger.Waterfall(c.Lines(), amount, date, ref)
	if err != nil {
		return ledger.Zero(), err
	}

	c.GlobalDeficit = c.sumDeficits()
	change := before.Sub(c.GlobalDeficit)
	c.GlobalTransactions = append(c.GlobalTransactions, ledger.Transaction{
		Amount:          change,
		Expected:        c.GlobalDeficit,
		Date:            date,
		ReferenceNumber: ref,
		Description:     "Update to global deficit after clearing painting and miscellaneous deficits",
	})
	c.GlobalDeficitHistory = append(c.GlobalDeficitHistory, ledger.DeficitEntry{
		Amount:      change,
		Date:        date,
		Description: fmt.Sprintf("Global deficit adjusted by %s after payments", change),
	})
	if ref != "" {
		c.ReferenceNoHistory = append(c.ReferenceNoHistory, ledger.ReferenceEntry{
			ReferenceNumber: ref,
			Amount:          applied,
			Date:            date,
		})
	}

	c.TotalAmountPaid = c.TotalAmountPaid.Add(amount)
	ledger.RecordExcess(&c.Overpay, &c.ExcessHistory, leftover, date,
		fmt.Sprintf("Excess payment of %s added", leftover))
	c.IsCleared = c.allPaid()
	return leftover, nil
}

// Validate checks every line plus the ledger-level identities.
func (c *Clearance) Validate() error {
	for _, line := range c.Lines() {
		if err := line.Validate(); err != nil {
			return err
		}
	}
	if !c.GlobalDeficit.Equal(c.sumDeficits()) {
		return &ledger.InvariantError{
			Line:    string(c.ID),
			Message: "global deficit disagrees with line deficits",
		}
	}
	return nil
}
