/*
Package tenancy holds tenants, houses, and the onboarding deposit ledger.

PURPOSE:
  A Tenant occupies exactly one House inside an Apartment and owns one
  DepositLedger recorded at onboarding. Monthly billing ledgers live in
  the billing package and reference the tenant by identifier.

KEY CONCEPTS IN THIS FILE (types.go):
  - Apartment/House/Tenant: the property hierarchy
  - House.IsOccupied: the mutual-exclusion gate for onboarding; enforced
    by the house registry, never by the ledger engine
  - DepositLedger: rent deposit, water deposit, named other deposits, and
    the initial rent payment, each tracked as a charge line

SEE ALSO:
  - deposit.go: the deposit allocation engine
  - store.go: persistence interfaces
*/
package tenancy

import (
	"time"

	"github.com/sleekabode/tenancy-engine/ledger"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ApartmentID string
type HouseID string
type TenantID string

// =============================================================================
// PROPERTY HIERARCHY
// =============================================================================

type Apartment struct {
	ID        ApartmentID `json:"id"`
	Name      string      `json:"name"`
	Location  string      `json:"location"`
	CreatedAt time.Time   `json:"createdAt"`
}

// RequiredDeposit names a deposit a house demands beyond rent and water,
// e.g. a key or electricity deposit. Declaration order matters: the
// deposit allocation engine funds them in this order.
type RequiredDeposit struct {
	Title  string       `json:"title"`
	Amount ledger.Money `json:"amount"`
}

type House struct {
	ID            HouseID           `json:"id"`
	ApartmentID   ApartmentID       `json:"apartmentId"`
	Name          string            `json:"name"`
	Floor         string            `json:"floor"`
	RentPayable   ledger.Money      `json:"rentPayable"`
	RentDeposit   ledger.Money      `json:"rentDeposit"`
	WaterDeposit  ledger.Money      `json:"waterDeposit"`
	OtherDeposits []RequiredDeposit `json:"otherDeposits"`
	IsOccupied    bool              `json:"isOccupied"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// =============================================================================
// TENANT
// =============================================================================

// DefaultGarbageFee applies when onboarding input leaves the fee blank.
var DefaultGarbageFee = ledger.NewMoneyFromInt(150)

type Tenant struct {
	ID          TenantID      `json:"id"`
	Name        string        `json:"name"`
	NationalID  string        `json:"nationalId"`
	PhoneNumber string        `json:"phoneNumber"`
	Email       string        `json:"email"`
	ApartmentID ApartmentID   `json:"apartmentId"`
	HouseID     HouseID       `json:"houseId"`
	MonthlyRent ledger.Money  `json:"monthlyRent"`
	GarbageFee  ledger.Money  `json:"garbageFee"`
	Deposits    DepositLedger `json:"deposits"`
	ToBeCleared bool          `json:"toBeCleared"`
	CreatedAt   time.Time     `json:"createdAt"`

	// Version implements optimistic concurrency at the store boundary.
	Version int `json:"version"`
}

// =============================================================================
// DEPOSIT LEDGER
// =============================================================================

// DepositLedger tracks onboarding money. Every stage is a charge line so
// the deposit engine reuses the generic allocation math.
type DepositLedger struct {
	ReferenceNumber string               `json:"referenceNumber"`
	RentDeposit     ledger.ChargeLine    `json:"rentDeposit"`
	WaterDeposit    ledger.ChargeLine    `json:"waterDeposit"`
	OtherDeposits   []ledger.ChargeLine  `json:"otherDeposits"`
	InitialRent     ledger.ChargeLine    `json:"initialRentPayment"`
	ExcessAmount    ledger.Money         `json:"excessAmount"`
	ExcessHistory   []ledger.ExcessEntry `json:"excessHistory"`
	IsCleared       bool                 `json:"isCleared"`
}

// NewDepositLedger opens all required stages from the house definition.
// Everything starts as deficit.
func NewDepositLedger(house *House, monthlyRent ledger.Money) DepositLedger {
	others := make([]ledger.ChargeLine, len(house.OtherDeposits))
	for i, rd := range house.OtherDeposits {
		others[i] = ledger.NewMiscLine(rd.Title, rd.Amount)
	}
	return DepositLedger{
		RentDeposit:   ledger.NewMiscLine("rent deposit", house.RentDeposit),
		WaterDeposit:  ledger.NewMiscLine("water deposit", house.WaterDeposit),
		OtherDeposits: others,
		InitialRent:   ledger.NewMiscLine("initial rent payment", monthlyRent),
		ExcessAmount:  ledger.Zero(),
	}
}

// stages returns the funding priority order: rent deposit, water deposit,
// other deposits in declaration order, then the initial rent payment.
func (d *DepositLedger) stages() []*ledger.ChargeLine {
	lines := []*ledger.ChargeLine{&d.RentDeposit, &d.WaterDeposit}
	for i := range d.OtherDeposits {
		lines = append(lines, &d.OtherDeposits[i])
	}
	return append(lines, &d.InitialRent)
}

func (d *DepositLedger) allSatisfied() bool {
	for _, line := range d.stages() {
		if !line.Paid {
			return false
		}
	}
	return true
}
