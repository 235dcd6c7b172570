package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

// TestAllocatePartialThenFull covers the partial-payment lifecycle:
// a shortfall becomes a deficit, a later payment clears it exactly.
func TestAllocatePartialThenFull(t *testing.T) {
	// GIVEN rent due 10,000
	rent := NewChargeLine(CategoryRent, NewMoneyFromInt(10000))

	// WHEN a payment of 6,000 arrives
	rem, err := Allocate(&rent, NewMoneyFromInt(6000), day(1), "MPESA-001")
	require.NoError(t, err)

	// THEN 6,000 is applied, 4,000 remains as deficit, nothing left over
	assert.True(t, rem.IsZero())
	assert.True(t, rent.Amount.Equal(NewMoneyFromInt(6000)))
	assert.True(t, rent.Deficit.Equal(NewMoneyFromInt(4000)))
	assert.False(t, rent.Paid)

	// WHEN a later payment of 4,000 arrives
	rem, err = Allocate(&rent, NewMoneyFromInt(4000), day(15), "MPESA-002")
	require.NoError(t, err)

	// THEN the line is fully paid with no overpay
	assert.True(t, rem.IsZero())
	assert.True(t, rent.Amount.Equal(NewMoneyFromInt(10000)))
	assert.True(t, rent.Deficit.IsZero())
	assert.True(t, rent.Paid)
}

// TestWaterfallSpillover checks that a single payment spills from a fully
// cleared line into the next one in priority order.
func TestWaterfallSpillover(t *testing.T) {
	// GIVEN rent due 10,000 and garbage due 500
	rent := NewChargeLine(CategoryRent, NewMoneyFromInt(10000))
	garbage := NewChargeLine(CategoryGarbage, NewMoneyFromInt(500))

	// WHEN a single payment of 10,300 runs the waterfall
	applied, leftover, err := Waterfall(
		[]*ChargeLine{&rent, &garbage},
		NewMoneyFromInt(10300), day(1), "MPESA-003")
	require.NoError(t, err)

	// THEN rent is fully paid and garbage gets the remaining 300
	assert.True(t, rent.Paid)
	assert.True(t, rent.Amount.Equal(NewMoneyFromInt(10000)))
	assert.True(t, garbage.Amount.Equal(NewMoneyFromInt(300)))
	assert.True(t, garbage.Deficit.Equal(NewMoneyFromInt(200)))
	assert.False(t, garbage.Paid)

	// AND conservation holds with no leftover
	assert.True(t, applied.Equal(NewMoneyFromInt(10300)))
	assert.True(t, leftover.IsZero())
}

// TestWaterfallConservation checks amount_in == sum(applied) + leftover
// when the payment exceeds every obligation.
func TestWaterfallConservation(t *testing.T) {
	rent := NewChargeLine(CategoryRent, NewMoneyFromInt(7000))
	water := NewChargeLine(CategoryWater, NewMoneyFromInt(1200))
	garbage := NewChargeLine(CategoryGarbage, NewMoneyFromInt(150))

	in := NewMoneyFromInt(9000)
	applied, leftover, err := Waterfall(
		[]*ChargeLine{&rent, &water, &garbage}, in, day(2), "REF-9")
	require.NoError(t, err)

	assert.True(t, applied.Add(leftover).Equal(in))
	assert.True(t, leftover.Equal(NewMoneyFromInt(650)))
	for _, line := range []*ChargeLine{&rent, &water, &garbage} {
		require.NoError(t, line.Validate())
		assert.True(t, line.Paid)
	}
}

func TestAllocateZeroIsNoOp(t *testing.T) {
	rent := NewChargeLine(CategoryRent, NewMoneyFromInt(5000))

	rem, err := Allocate(&rent, Zero(), day(3), "REF-0")
	require.NoError(t, err)

	assert.True(t, rem.IsZero())
	assert.True(t, rent.Amount.IsZero())
	assert.Empty(t, rent.Transactions)
	assert.Empty(t, rent.DeficitHistory)
}

func TestAllocateRejectsNegative(t *testing.T) {
	rent := NewChargeLine(CategoryRent, NewMoneyFromInt(5000))

	_, err := Allocate(&rent, NewMoneyFromInt(-1), day(3), "REF-N")

	require.Error(t, err)
	assert.True(t, IsClientError(err))
	// no mutation on rejection
	assert.True(t, rent.Deficit.Equal(NewMoneyFromInt(5000)))
	assert.Empty(t, rent.DeficitHistory)
}

// TestAllocateSettledLine checks that money offered to an already-paid
// line passes through untouched, with only a snapshot appended.
func TestAllocateSettledLine(t *testing.T) {
	rent := NewChargeLine(CategoryRent, NewMoneyFromInt(1000))
	_, err := Allocate(&rent, NewMoneyFromInt(1000), day(1), "REF-1")
	require.NoError(t, err)
	require.True(t, rent.Paid)

	rem, err := Allocate(&rent, NewMoneyFromInt(400), day(2), "REF-2")
	require.NoError(t, err)

	assert.True(t, rem.Equal(NewMoneyFromInt(400)))
	assert.True(t, rent.Amount.Equal(NewMoneyFromInt(1000)))
	assert.Len(t, rent.Transactions, 1)
	assert.Len(t, rent.DeficitHistory, 2)
}

func TestRecordExcessSnapshotsBalanceBefore(t *testing.T) {
	overpay := NewMoneyFromInt(250)
	var history []ExcessEntry

	RecordExcess(&overpay, &history, NewMoneyFromInt(100), day(4), "Excess payment of 100 added")

	require.Len(t, history, 1)
	assert.True(t, history[0].InitialOverpay.Equal(NewMoneyFromInt(250)))
	assert.True(t, history[0].ExcessAmount.Equal(NewMoneyFromInt(100)))
	assert.True(t, overpay.Equal(NewMoneyFromInt(350)))
}

func TestAddExpectedGrowsDeficit(t *testing.T) {
	water := NewChargeLine(CategoryWater, NewMoneyFromInt(500))
	_, err := Allocate(&water, NewMoneyFromInt(500), day(1), "REF-W")
	require.NoError(t, err)
	require.True(t, water.Paid)

	water.AddExpected(NewMoneyFromInt(300), day(5), "Accumulated water bill carried forward")

	assert.True(t, water.Expected.Equal(NewMoneyFromInt(800)))
	assert.True(t, water.Deficit.Equal(NewMoneyFromInt(300)))
	assert.False(t, water.Paid)
	require.NoError(t, water.Validate())
}
