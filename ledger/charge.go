/*
charge.go - Charge lines and append-only audit histories

PURPOSE:
  A ChargeLine tracks one billed obligation category (rent, water,
  garbage, extra charges, painting fee, or a named miscellaneous fee):
  the expected amount, what has been paid, the outstanding deficit, and
  the full audit trail of how it got there.

AUDIT MODEL:
  - Transaction entries record money applied. Never edited or removed.
  - DeficitEntry and ExcessEntry are point-in-time balance SNAPSHOTS
    taken after the event that produced them, not delta logs. Each one
    is a balance labeled with why it changed.

INVARIANT:
  After every reconciliation step, Amount + Deficit == Expected, with
  Deficit clamped to zero or above. Money beyond Expected is routed to
  the owning ledger's overpay, never left inside a charge line.
  Paid is true exactly when Deficit is zero or below.

SEE ALSO:
  - allocate.go: the only code that mutates a charge line
*/
package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// CHARGE CATEGORIES
// =============================================================================

type Category string

const (
	CategoryRent     Category = "rent"
	CategoryWater    Category = "waterBill"
	CategoryGarbage  Category = "garbageFee"
	CategoryExtra    Category = "extraCharges"
	CategoryPainting Category = "paintingFee"
	CategoryMisc     Category = "miscellaneous"
)

// ParseCategory validates a charge category from boundary input.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryRent, CategoryWater, CategoryGarbage, CategoryExtra,
		CategoryPainting, CategoryMisc:
		return Category(s), nil
	}
	return "", &ValidationError{Field: "category", Message: "unknown charge category: " + s}
}

// =============================================================================
// AUDIT ENTRIES - Append-only
// =============================================================================

// Transaction records money applied to a charge line or ledger.
type Transaction struct {
	Amount          Money     `json:"amount"`
	Expected        Money     `json:"expected"`
	Date            time.Time `json:"date"`
	ReferenceNumber string    `json:"referenceNumber,omitempty"`
	Description     string    `json:"description"`
}

// DeficitEntry snapshots a deficit balance after the event that moved it.
type DeficitEntry struct {
	Amount      Money     `json:"amount"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

// ExcessEntry snapshots an overpay balance: the balance before the event
// and the amount the event added.
type ExcessEntry struct {
	InitialOverpay Money     `json:"initialOverpay"`
	ExcessAmount   Money     `json:"excessAmount"`
	Date           time.Time `json:"date"`
	Description    string    `json:"description"`
}

// ReferenceEntry records a payment reference seen by a ledger, with the
// total amount attributed to it.
type ReferenceEntry struct {
	ReferenceNumber string    `json:"referenceNumber"`
	Amount          Money     `json:"amount"`
	Date            time.Time `json:"date"`
	Description     string    `json:"description,omitempty"`
}

// =============================================================================
// CHARGE LINE
// =============================================================================

type ChargeLine struct {
	Name           Category       `json:"name"`
	Title          string         `json:"title,omitempty"` // set for named miscellaneous fees
	Expected       Money          `json:"expected"`
	Amount         Money          `json:"amount"`
	Deficit        Money          `json:"deficit"`
	Paid           bool           `json:"paid"`
	Transactions   []Transaction  `json:"transactions"`
	DeficitHistory []DeficitEntry `json:"deficitHistory"`
}

// NewChargeLine opens a charge line for an expected amount. The full
// amount starts as deficit.
func NewChargeLine(name Category, expected Money) ChargeLine {
	return ChargeLine{
		Name:     name,
		Expected: expected,
		Amount:   Zero(),
		Deficit:  expected.Max(Zero()),
		Paid:     !expected.IsPositive(),
	}
}

// NewMiscLine opens a named miscellaneous charge line.
func NewMiscLine(title string, expected Money) ChargeLine {
	line := NewChargeLine(CategoryMisc, expected)
	line.Title = title
	return line
}

// AddExpected raises the obligation on an open line, growing the deficit
// by the same amount. Used for carried-forward charges.
func (c *ChargeLine) AddExpected(amount Money, date time.Time, description string) {
	if !amount.IsPositive() {
		return
	}
	c.Expected = c.Expected.Add(amount)
	c.Deficit = c.Deficit.Add(amount)
	c.Paid = !c.Deficit.IsPositive()
	c.DeficitHistory = append(c.DeficitHistory, DeficitEntry{
		Amount:      c.Deficit,
		Date:        date,
		Description: description,
	})
}

// Label returns the display name, preferring the miscellaneous title.
func (c *ChargeLine) Label() string {
	if c.Title != "" {
		return c.Title
	}
	return string(c.Name)
}

// Validate checks the accounting identity at rest.
func (c *ChargeLine) Validate() error {
	if c.Deficit.IsNegative() {
		return &InvariantError{Line: c.Label(), Message: "negative deficit"}
	}
	if !c.Amount.Add(c.Deficit).Equal(c.Expected) {
		return &InvariantError{
			Line: c.Label(),
			Message: fmt.Sprintf("amount %s + deficit %s != expected %s",
				c.Amount, c.Deficit, c.Expected),
		}
	}
	if c.Paid != !c.Deficit.IsPositive() {
		return &InvariantError{Line: c.Label(), Message: "paid flag disagrees with deficit"}
	}
	return nil
}
