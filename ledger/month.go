/*
month.go - Billing month arithmetic

PURPOSE:
  Billing periods are keyed by (year, month name), one ledger per tenant
  per calendar month. This file provides parsing, ordering, and the
  previous/next month calculation with December/January year rollover.

SEE ALSO:
  - billing package: orders uncleared periods oldest first
*/
package ledger

import (
	"fmt"
	"strings"
)

// =============================================================================
// MONTH NAMES
// =============================================================================

type MonthName string

const (
	January   MonthName = "January"
	February  MonthName = "February"
	March     MonthName = "March"
	April     MonthName = "April"
	May       MonthName = "May"
	June      MonthName = "June"
	July      MonthName = "July"
	August    MonthName = "August"
	September MonthName = "September"
	October   MonthName = "October"
	November  MonthName = "November"
	December  MonthName = "December"
)

var monthOrder = []MonthName{
	January, February, March, April, May, June,
	July, August, September, October, November, December,
}

// ParseMonthName validates a month name from boundary input. Case does
// not matter.
func ParseMonthName(s string) (MonthName, error) {
	for _, m := range monthOrder {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", &ValidationError{Field: "month", Message: "unknown month name: " + s}
}

// MonthFromNumber converts a 1-based month number to its name.
func MonthFromNumber(n int) (MonthName, error) {
	if n < 1 || n > 12 {
		return "", &ValidationError{Field: "month", Message: fmt.Sprintf("month number out of range: %d", n)}
	}
	return monthOrder[n-1], nil
}

// Index returns the 1-based position of the month within the year.
func (m MonthName) Index() int {
	for i, name := range monthOrder {
		if name == m {
			return i + 1
		}
	}
	return 0
}

// =============================================================================
// BILLING MONTH
// =============================================================================

type BillingMonth struct {
	Year  int       `json:"year"`
	Month MonthName `json:"month"`
}

func NewBillingMonth(year int, month MonthName) BillingMonth {
	return BillingMonth{Year: year, Month: month}
}

// Prev returns the immediately preceding billing month. January rolls back
// into December of the previous year.
func (b BillingMonth) Prev() BillingMonth {
	if b.Month == January {
		return BillingMonth{Year: b.Year - 1, Month: December}
	}
	return BillingMonth{Year: b.Year, Month: monthOrder[b.Month.Index()-2]}
}

// Next returns the following billing month. December rolls into January of
// the next year.
func (b BillingMonth) Next() BillingMonth {
	if b.Month == December {
		return BillingMonth{Year: b.Year + 1, Month: January}
	}
	return BillingMonth{Year: b.Year, Month: monthOrder[b.Month.Index()]}
}

// Before orders billing months by calendar position, not insertion time.
func (b BillingMonth) Before(other BillingMonth) bool {
	if b.Year != other.Year {
		return b.Year < other.Year
	}
	return b.Month.Index() < other.Month.Index()
}

func (b BillingMonth) Equal(other BillingMonth) bool {
	return b.Year == other.Year && b.Month == other.Month
}

func (b BillingMonth) String() string {
	return fmt.Sprintf("%s %d", b.Month, b.Year)
}
