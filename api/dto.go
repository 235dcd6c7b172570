/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal ledger model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO: Response types returned to clients

MONEY:
  Amounts travel as JSON strings ("10500" or "10500.50") and are parsed
  into exact decimals at the boundary. An empty string means zero for
  optional amounts.

VALIDATION:
  Struct tags drive validation (go-playground/validator). Handlers run
  the validator before any domain call.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/money.go: ParseMoney and DefaultMoney
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

var validate = validator.New()

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// PROPERTY REQUESTS
// =============================================================================

// RegisterApartmentRequest creates an apartment building.
type RegisterApartmentRequest struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location"`
}

// RequiredDepositRequest names a deposit a house demands beyond rent and
// water. Order in the request is the funding order.
type RequiredDepositRequest struct {
	Title  string `json:"title" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

// RegisterHouseRequest creates a rentable unit inside an apartment.
type RegisterHouseRequest struct {
	ApartmentID   string                   `json:"apartmentId" validate:"required"`
	Name          string                   `json:"name" validate:"required"`
	Floor         string                   `json:"floor"`
	RentPayable   string                   `json:"rentPayable" validate:"required"`
	RentDeposit   string                   `json:"rentDeposit"`
	WaterDeposit  string                   `json:"waterDeposit"`
	OtherDeposits []RequiredDepositRequest `json:"otherDeposits" validate:"dive"`
}

// =============================================================================
// TENANT REQUESTS
// =============================================================================

// OnboardTenantRequest creates a tenant into an available house.
type OnboardTenantRequest struct {
	Name        string `json:"name" validate:"required"`
	NationalID  string `json:"nationalId" validate:"required"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email" validate:"omitempty,email"`
	ApartmentID string `json:"apartmentId" validate:"required"`
	HouseFloor  string `json:"houseFloor"`
	HouseName   string `json:"houseName"`
	GarbageFee  string `json:"garbageFee"`
}

// DepositRequest records a single-amount deposit installment.
type DepositRequest struct {
	Amount          string `json:"amount" validate:"required"`
	Date            string `json:"date"`
	ReferenceNumber string `json:"referenceNumber"`
}

// ItemizedDepositRequest records per-stage deposit amounts in one call.
// OtherDeposits is keyed by the deposit title declared on the house.
type ItemizedDepositRequest struct {
	RentDeposit     string            `json:"rentDeposit"`
	WaterDeposit    string            `json:"waterDeposit"`
	OtherDeposits   map[string]string `json:"otherDeposits"`
	InitialRent     string            `json:"initialRentPayment"`
	Date            string            `json:"date"`
	ReferenceNumber string            `json:"referenceNumber"`
}

// =============================================================================
// PAYMENT REQUESTS
// =============================================================================

// InitialPaymentRequest registers the tenant's first billing period.
type InitialPaymentRequest struct {
	Year            int    `json:"year" validate:"required"`
	Month           string `json:"month" validate:"required"`
	Amount          string `json:"amount" validate:"required"`
	Date            string `json:"date"`
	ReferenceNumber string `json:"referenceNumber"`
}

// MonthlyPaymentRequest runs one billing cycle. AccumulatedWaterBill is
// the prior month's metered usage; WaterAccumulation is this month's,
// which bills next cycle.
type MonthlyPaymentRequest struct {
	Year                  int    `json:"year" validate:"required"`
	Month                 string `json:"month" validate:"required"`
	Amount                string `json:"amount"`
	Date                  string `json:"date"`
	ReferenceNumber       string `json:"referenceNumber"`
	AccumulatedWaterBill  string `json:"accumulatedWaterBill"`
	PrevMonthExtraCharges string `json:"prevMonthExtraCharges"`
	ExtraCharges          string `json:"extraCharges"`
	WaterAccumulation     string `json:"waterAccumulation"`
}

// ExtraAmountRequest hands in surplus money mid-month.
type ExtraAmountRequest struct {
	Amount          string `json:"amount" validate:"required"`
	Date            string `json:"date"`
	ReferenceNumber string `json:"referenceNumber"`
}

// UpdatePaymentRequest applies money to one named charge line.
type UpdatePaymentRequest struct {
	Category        string `json:"category" validate:"required"`
	Amount          string `json:"amount" validate:"required"`
	Date            string `json:"date"`
	ReferenceNumber string `json:"referenceNumber"`
}

// DeficitCorrectionRequest manually settles a period's deficits.
type DeficitCorrectionRequest struct {
	Amount          string `json:"amount" validate:"required"`
	Date            string `json:"date"`
	ReferenceNumber string `json:"referenceNumber"`
}

// =============================================================================
// CLEARANCE REQUESTS
// =============================================================================

// MiscFeeRequest is a named exit fee. Order in the request is the
// settlement order.
type MiscFeeRequest struct {
	Title  string `json:"title" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

// SettleRequest runs the deposit-funded exit settlement.
type SettleRequest struct {
	ExitDate    string           `json:"exitDate"`
	PaintingFee string           `json:"paintingFee" validate:"required"`
	Misc        []MiscFeeRequest `json:"miscellaneous" validate:"dive"`
}

// FinalPeriodRequest bills the exit month from deposits.
type FinalPeriodRequest struct {
	Year         int    `json:"year" validate:"required"`
	Month        string `json:"month" validate:"required"`
	Date         string `json:"date"`
	WaterBill    string `json:"waterBill"`
	ExtraCharges string `json:"extraCharges"`
}

// ClearanceUpdateRequest applies a correction to an existing clearance.
type ClearanceUpdateRequest struct {
	Amount          string `json:"amount" validate:"required"`
	Date            string `json:"date"`
	ReferenceNumber string `json:"referenceNumber"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// TenantDTO represents a tenant in API responses. The deposit ledger is
// embedded whole; clients render its histories directly.
type TenantDTO struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	NationalID  string                `json:"nationalId"`
	PhoneNumber string                `json:"phoneNumber,omitempty"`
	Email       string                `json:"email,omitempty"`
	ApartmentID string                `json:"apartmentId"`
	HouseID     string                `json:"houseId"`
	MonthlyRent string                `json:"monthlyRent"`
	GarbageFee  string                `json:"garbageFee"`
	Deposits    tenancy.DepositLedger `json:"deposits"`
	ToBeCleared bool                  `json:"toBeCleared"`
	CreatedAt   string                `json:"createdAt"`
}

func toTenantDTO(t *tenancy.Tenant) TenantDTO {
	return TenantDTO{
		ID:          string(t.ID),
		Name:        t.Name,
		NationalID:  t.NationalID,
		PhoneNumber: t.PhoneNumber,
		Email:       t.Email,
		ApartmentID: string(t.ApartmentID),
		HouseID:     string(t.HouseID),
		MonthlyRent: t.MonthlyRent.String(),
		GarbageFee:  t.GarbageFee.String(),
		Deposits:    t.Deposits,
		ToBeCleared: t.ToBeCleared,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

// UnpaidPeriodDTO summarizes one open billing period.
type UnpaidPeriodDTO struct {
	PaymentID     string `json:"paymentId"`
	Period        string `json:"period"`
	GlobalDeficit string `json:"globalDeficit"`
}

// parseMoney converts an optional amount string, empty meaning zero.
func parseMoney(field, s string) (ledger.Money, error) {
	m, err := ledger.DefaultMoney(s)
	if err != nil {
		return ledger.Zero(), &ledger.ValidationError{Field: field, Message: err.Error()}
	}
	return m, nil
}

// parseDate accepts YYYY-MM-DD or RFC3339; empty means now.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &ledger.ValidationError{Field: "date", Message: "use YYYY-MM-DD or RFC3339"}
	}
	return t, nil
}

// parsePeriod builds a billing month from year plus month name.
func parsePeriod(year int, month string) (ledger.BillingMonth, error) {
	name, err := ledger.ParseMonthName(month)
	if err != nil {
		return ledger.BillingMonth{}, &ledger.ValidationError{Field: "month", Message: err.Error()}
	}
	return ledger.NewBillingMonth(year, name), nil
}
