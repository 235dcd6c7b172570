/*
allocate.go - The allocation waterfall

PURPOSE:
  The single generic allocation step used everywhere money moves: monthly
  billing, deposit recording, cross-period clearing, and exit settlement
  all call Allocate with a charge line and an amount. There is no
  category-specific allocation logic anywhere else.

ALGORITHM (per line):
  due       = max(expected - paid, 0)
  applied   = min(incoming, due)
  amount'   = paid + applied
  deficit'  = due - applied
  remainder = incoming - applied

  One Transaction is appended when applied > 0. One DeficitEntry snapshot
  of deficit' is always appended for a positive incoming amount, labeled
  full clear / partial / no change.

CONSERVATION:
  incoming == applied + remainder on every call. Across a Waterfall pass,
  incoming == sum(applied per line) + leftover.

SEE ALSO:
  - charge.go: ChargeLine and invariants
  - billing package: fixed priority rent -> water -> garbage -> extra
  - clearance package: painting fee -> miscellaneous in listed order
*/
package ledger

import (
	"fmt"
	"time"
)

// Allocate applies an incoming amount to one charge line and returns the
// remainder. A zero incoming amount is a no-op; a negative one is a
// ValidationError, never silently clamped.
func Allocate(line *ChargeLine, incoming Money, date time.Time, ref string) (Money, error) {
	if incoming.IsNegative() {
		return Zero(), &ValidationError{Field: "amount", Message: "allocation amount must not be negative"}
	}
	if incoming.IsZero() {
		return Zero(), nil
	}

	due := line.Expected.Sub(line.Amount).Max(Zero())
	applied := incoming.Min(due)

	line.Amount = line.Amount.Add(applied)
	line.Deficit = due.Sub(applied)
	line.Paid = !line.Deficit.IsPositive()
	remainder := incoming.Sub(applied)

	if applied.IsPositive() {
		line.Transactions = append(line.Transactions, Transaction{
			Amount:          applied,
			Expected:        line.Expected,
			Date:            date,
			ReferenceNumber: ref,
			Description:     allocationDescription(line, applied, due),
		})
	}
	line.DeficitHistory = append(line.DeficitHistory, DeficitEntry{
		Amount:      line.Deficit,
		Date:        date,
		Description: deficitDescription(line, applied, due),
	})

	if err := line.Validate(); err != nil {
		return Zero(), err
	}
	return remainder, nil
}

func allocationDescription(line *ChargeLine, applied, due Money) string {
	if applied.Equal(due) {
		return fmt.Sprintf("Full payment clearing %s", line.Label())
	}
	return fmt.Sprintf("Partial payment towards %s", line.Label())
}

func deficitDescription(line *ChargeLine, applied, due Money) string {
	switch {
	case !due.IsPositive():
		return fmt.Sprintf("%s already settled, no deficit change", line.Label())
	case applied.Equal(due):
		return fmt.Sprintf("%s deficit fully cleared", line.Label())
	case applied.IsPositive():
		return fmt.Sprintf("Partial payment made for %s, deficit updated", line.Label())
	default:
		return fmt.Sprintf("No funds applied to %s, deficit unchanged", line.Label())
	}
}

// Waterfall runs Allocate over charge lines in the given priority order,
// carrying the remainder forward. It returns the total applied and the
// leftover after the last line.
func Waterfall(lines []*ChargeLine, incoming Money, date time.Time, ref string) (Money, Money, error) {
	if incoming.IsNegative() {
		return Zero(), Zero(), &ValidationError{Field: "amount", Message: "allocation amount must not be negative"}
	}
	remaining := incoming
	applied := Zero()
	for _, line := range lines {
		if !remaining.IsPositive() {
			break
		}
		rem, err := Allocate(line, remaining, date, ref)
		if err != nil {
			return Zero(), Zero(), err
		}
		applied = applied.Add(remaining.Sub(rem))
		remaining = rem
	}
	return applied, remaining, nil
}

// RecordExcess adds leftover money to an overpay balance with an
// ExcessEntry snapshot capturing the balance before the event.
func RecordExcess(overpay *Money, history *[]ExcessEntry, amount Money, date time.Time, description string) {
	if !amount.IsPositive() {
		return
	}
	before := *overpay
	*overpay = overpay.Add(amount)
	*history = append(*history, ExcessEntry{
		InitialOverpay: before,
		ExcessAmount:   amount,
		Date:           date,
		Description:    description,
	})
}
