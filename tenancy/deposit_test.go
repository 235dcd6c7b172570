package tenancy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleekabode/tenancy-engine/ledger"
)

func testHouse() *House {
	return &House{
		ID:           "house-1",
		ApartmentID:  "apt-1",
		Name:         "A1",
		Floor:        "ground",
		RentPayable:  ledger.NewMoneyFromInt(10000),
		RentDeposit:  ledger.NewMoneyFromInt(10000),
		WaterDeposit: ledger.NewMoneyFromInt(2000),
		OtherDeposits: []RequiredDeposit{
			{Title: "key deposit", Amount: ledger.NewMoneyFromInt(500)},
			{Title: "electricity deposit", Amount: ledger.NewMoneyFromInt(1000)},
		},
	}
}

func depositDay(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

// TestDepositPriorityOrder checks the fixed funding order: rent deposit,
// water deposit, other deposits as declared, then initial rent.
func TestDepositPriorityOrder(t *testing.T) {
	// GIVEN a fresh deposit ledger requiring 23,500 in total
	d := NewDepositLedger(testHouse(), ledger.NewMoneyFromInt(10000))

	// WHEN 12,300 arrives in one installment
	res, err := d.Allocate(ledger.NewMoneyFromInt(12300), depositDay(1), "DEP-001")
	require.NoError(t, err)

	// THEN rent deposit fills first, water takes the rest
	assert.True(t, d.RentDeposit.Paid)
	assert.True(t, d.WaterDeposit.Amount.Equal(ledger.NewMoneyFromInt(2000)))
	assert.True(t, d.OtherDeposits[0].Amount.Equal(ledger.NewMoneyFromInt(300)))
	assert.True(t, d.OtherDeposits[0].Deficit.Equal(ledger.NewMoneyFromInt(200)))
	assert.True(t, d.OtherDeposits[1].Amount.IsZero())
	assert.True(t, d.InitialRent.Amount.IsZero())
	assert.False(t, res.Cleared)
	assert.False(t, d.IsCleared)
}

// TestDepositClearsAndForwards checks that satisfying every stage forwards
// the initial rent plus excess as the first billing payment.
func TestDepositClearsAndForwards(t *testing.T) {
	// GIVEN all stages require 23,500 total
	d := NewDepositLedger(testHouse(), ledger.NewMoneyFromInt(10000))

	// WHEN 24,000 arrives (500 beyond every requirement)
	res, err := d.Allocate(ledger.NewMoneyFromInt(24000), depositDay(2), "DEP-002")
	require.NoError(t, err)

	// THEN the ledger clears and forwards initial rent plus the excess
	assert.True(t, res.Cleared)
	assert.True(t, d.IsCleared)
	assert.True(t, res.Forward.Equal(ledger.NewMoneyFromInt(10500)))
	assert.True(t, d.ExcessAmount.IsZero())

	// AND the reset left an audit entry
	var found bool
	for _, e := range d.ExcessHistory {
		if e.ExcessAmount.IsNegative() {
			found = true
		}
	}
	assert.True(t, found, "expected an excess reset entry")
}

// TestItemizedDepositRetroactiveFill checks that excess parked by an
// itemized overshoot is drawn back to fill an earlier stage's shortfall.
func TestItemizedDepositRetroactiveFill(t *testing.T) {
	// GIVEN a ledger where water was overpaid but rent is short
	d := NewDepositLedger(testHouse(), ledger.NewMoneyFromInt(10000))
	_, err := d.RecordItemized(ItemizedDeposit{
		RentDeposit:  ledger.NewMoneyFromInt(8000),
		WaterDeposit: ledger.NewMoneyFromInt(3500), // 1,500 over
	}, depositDay(3), "DEP-003")
	require.NoError(t, err)

	// THEN the overshoot was drawn straight into the rent shortfall
	assert.True(t, d.WaterDeposit.Paid)
	assert.True(t, d.RentDeposit.Amount.Equal(ledger.NewMoneyFromInt(9500)))
	assert.True(t, d.RentDeposit.Deficit.Equal(ledger.NewMoneyFromInt(500)))
	assert.True(t, d.ExcessAmount.IsZero())

	// WHEN the remaining shortfalls are paid off
	res, err := d.Allocate(ledger.NewMoneyFromInt(12000), depositDay(4), "DEP-004")
	require.NoError(t, err)

	// THEN the ledger clears: 500 rent + 1,500 others + 10,000 initial rent
	assert.True(t, res.Cleared)
	assert.True(t, res.Forward.Equal(ledger.NewMoneyFromInt(10000)))
}

func TestItemizedDepositRejectsUnknownTitle(t *testing.T) {
	d := NewDepositLedger(testHouse(), ledger.NewMoneyFromInt(10000))

	_, err := d.RecordItemized(ItemizedDeposit{
		OtherDeposits: map[string]ledger.Money{"parking": ledger.NewMoneyFromInt(100)},
	}, depositDay(5), "DEP-005")

	require.Error(t, err)
	assert.True(t, ledger.IsClientError(err))
}

func TestDepositRejectsNegative(t *testing.T) {
	d := NewDepositLedger(testHouse(), ledger.NewMoneyFromInt(10000))

	_, err := d.Allocate(ledger.NewMoneyFromInt(-100), depositDay(6), "DEP-006")

	require.Error(t, err)
	assert.True(t, ledger.IsClientError(err))
	assert.True(t, d.RentDeposit.Amount.IsZero())
}

// TestDepositForwardOnlyOnce checks that money arriving after clearance
// parks as excess instead of re-triggering the forward.
func TestDepositForwardOnlyOnce(t *testing.T) {
	d := NewDepositLedger(testHouse(), ledger.NewMoneyFromInt(10000))
	res, err := d.Allocate(ledger.NewMoneyFromInt(23500), depositDay(7), "DEP-007")
	require.NoError(t, err)
	require.True(t, res.Cleared)
	require.True(t, res.Forward.Equal(ledger.NewMoneyFromInt(10000)))

	res, err = d.Allocate(ledger.NewMoneyFromInt(700), depositDay(8), "DEP-008")
	require.NoError(t, err)

	assert.True(t, res.Forward.IsZero())
	assert.True(t, d.ExcessAmount.Equal(ledger.NewMoneyFromInt(700)))
}
