/*
handlers.go - HTTP API handlers for the tenancy ledger engine

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Tenants:
    POST   /api/tenants                        Onboard tenant
    GET    /api/tenants                        List tenants by apartment
    GET    /api/tenants/{id}                   Get tenant with deposit ledger
    DELETE /api/tenants/{id}                   Manual removal

  Deposits:
    POST   /api/tenants/{id}/deposits          Single-amount installment
    POST   /api/tenants/{id}/deposits/itemized Itemized deposits

  Payments:
    GET    /api/tenants/{id}/payments          All periods
    GET    /api/tenants/{id}/payments/unpaid   Open periods
    POST   /api/tenants/{id}/payments/initial  First billing payment
    POST   /api/tenants/{id}/payments/monthly  Monthly processing
    POST   /api/tenants/{id}/payments/extra    Extra amount mid-month
    PUT    /api/payments/{id}                  Explicit payment update
    PUT    /api/payments/{id}/deficit          Deficit correction

  Clearance:
    POST   /api/tenants/{id}/clearance         Exit settlement
    POST   /api/tenants/{id}/clearance/final   Final-period settlement
    GET    /api/tenants/{id}/clearance         Clearance records
    PUT    /api/clearances/{id}                Clearance correction
    DELETE /api/clearances/{id}                Delete clearance record

  Property:
    POST   /api/apartments                     Register apartment
    GET    /api/apartments                     List apartments
    POST   /api/houses                         Register house
    GET    /api/houses                         List houses by apartment

ERROR HANDLING:
  Domain errors map to HTTP status by taxonomy:
  - 400: validation errors
  - 404: missing records
  - 409: version conflicts and pending obligations
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sleekabode/tenancy-engine/billing"
	"github.com/sleekabode/tenancy-engine/clearance"
	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the service layer behind every endpoint.
type Handler struct {
	Tenancy   *tenancy.Service
	Billing   *billing.Service
	Clearance *clearance.Service
}

// NewHandler wires the three services into one HTTP surface.
func NewHandler(tenancySvc *tenancy.Service, billingSvc *billing.Service, clearanceSvc *clearance.Service) *Handler {
	return &Handler{Tenancy: tenancySvc, Billing: billingSvc, Clearance: clearanceSvc}
}

// =============================================================================
// PROPERTY HANDLERS
// =============================================================================

// RegisterApartment creates an apartment building.
func (h *Handler) RegisterApartment(w http.ResponseWriter, r *http.Request) {
	var req RegisterApartmentRequest
	if !decode(w, r, &req) {
		return
	}

	apartment, err := h.Tenancy.RegisterApartment(r.Context(), &tenancy.Apartment{
		Name:     req.Name,
		Location: req.Location,
	})
	if err != nil {
		writeDomainError(w, err, "Failed to register apartment")
		return
	}
	writeJSON(w, http.StatusCreated, apartment)
}

// ListApartments returns every apartment building.
func (h *Handler) ListApartments(w http.ResponseWriter, r *http.Request) {
	apartments, err := h.Tenancy.ListApartments(r.Context())
	if err != nil {
		writeDomainError(w, err, "Failed to list apartments")
		return
	}
	writeJSON(w, http.StatusOK, apartments)
}

// RegisterHouse creates a rentable unit with its required deposits.
func (h *Handler) RegisterHouse(w http.ResponseWriter, r *http.Request) {
	var req RegisterHouseRequest
	if !decode(w, r, &req) {
		return
	}

	rent, err := parseMoney("rentPayable", req.RentPayable)
	if err != nil {
		writeDomainError(w, err, "Invalid rent")
		return
	}
	rentDeposit, err := parseMoney("rentDeposit", req.RentDeposit)
	if err != nil {
		writeDomainError(w, err, "Invalid rent deposit")
		return
	}
	waterDeposit, err := parseMoney("waterDeposit", req.WaterDeposit)
	if err != nil {
		writeDomainError(w, err, "Invalid water deposit")
		return
	}
	others := make([]tenancy.RequiredDeposit, len(req.OtherDeposits))
	for i, rd := range req.OtherDeposits {
		amount, err := parseMoney("otherDeposits."+rd.Title, rd.Amount)
		if err != nil {
			writeDomainError(w, err, "Invalid deposit amount")
			return
		}
		others[i] = tenancy.RequiredDeposit{Title: rd.Title, Amount: amount}
	}

	house, err := h.Tenancy.RegisterHouse(r.Context(), &tenancy.House{
		ApartmentID:   tenancy.ApartmentID(req.ApartmentID),
		Name:          req.Name,
		Floor:         req.Floor,
		RentPayable:   rent,
		RentDeposit:   rentDeposit,
		WaterDeposit:  waterDeposit,
		OtherDeposits: others,
	})
	if err != nil {
		writeDomainError(w, err, "Failed to register house")
		return
	}
	writeJSON(w, http.StatusCreated, house)
}

// ListHouses returns houses for the apartment in the query string.
func (h *Handler) ListHouses(w http.ResponseWriter, r *http.Request) {
	apartmentID := tenancy.ApartmentID(r.URL.Query().Get("apartment_id"))
	houses, err := h.Tenancy.ListHouses(r.Context(), apartmentID)
	if err != nil {
		writeDomainError(w, err, "Failed to list houses")
		return
	}
	writeJSON(w, http.StatusOK, houses)
}

// =============================================================================
// TENANT HANDLERS
// =============================================================================

// OnboardTenant creates a tenant occupying an available house.
func (h *Handler) OnboardTenant(w http.ResponseWriter, r *http.Request) {
	var req OnboardTenantRequest
	if !decode(w, r, &req) {
		return
	}

	var garbageFee *ledger.Money
	if req.GarbageFee != "" {
		fee, err := parseMoney("garbageFee", req.GarbageFee)
		if err != nil {
			writeDomainError(w, err, "Invalid garbage fee")
			return
		}
		garbageFee = &fee
	}

	tenant, err := h.Tenancy.Onboard(r.Context(), tenancy.OnboardInput{
		Name:        req.Name,
		NationalID:  req.NationalID,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		ApartmentID: tenancy.ApartmentID(req.ApartmentID),
		HouseFloor:  req.HouseFloor,
		HouseName:   req.HouseName,
		GarbageFee:  garbageFee,
	})
	if err != nil {
		writeDomainError(w, err, "Failed to onboard tenant")
		return
	}
	writeJSON(w, http.StatusCreated, toTenantDTO(tenant))
}

// GetTenant returns the tenant with the full deposit ledger.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id := tenancy.TenantID(chi.URLParam(r, "id"))
	tenant, err := h.Tenancy.GetTenant(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to get tenant")
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(tenant))
}

// ListTenants returns tenants for the apartment in the query string.
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	apartmentID := tenancy.ApartmentID(r.URL.Query().Get("apartment_id"))
	tenants, err := h.Tenancy.ListTenants(r.Context(), apartmentID)
	if err != nil {
		writeDomainError(w, err, "Failed to list tenants")
		return
	}
	dtos := make([]TenantDTO, len(tenants))
	for i, t := range tenants {
		dtos[i] = toTenantDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RemoveTenant deletes a tenant and all their records immediately. The
// same precondition as scheduled removal applies: no open periods.
func (h *Handler) RemoveTenant(w http.ResponseWriter, r *http.Request) {
	id := tenancy.TenantID(chi.URLParam(r, "id"))
	if err := h.Clearance.RemoveTenant(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to remove tenant")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DEPOSIT HANDLERS
// =============================================================================

// RecordDeposit applies a single-amount deposit installment.
func (h *Handler) RecordDeposit(w http.ResponseWriter, r *http.Request) {
	id := tenancy.TenantID(chi.URLParam(r, "id"))
	var req DepositRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := parseMoney("amount", req.Amount)
	if err != nil {
		writeDomainError(w, err, "Invalid amount")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, err, "Invalid date")
		return
	}

	tenant, err := h.Billing.RecordDeposit(r.Context(), id, amount, date, req.ReferenceNumber)
	if err != nil {
		writeDomainError(w, err, "Failed to record deposit")
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(tenant))
}

// RecordItemizedDeposit applies per-stage deposit amounts in one call.
func (h *Handler) RecordItemizedDeposit(w http.ResponseWriter, r *http.Request) {
	id := tenancy.TenantID(chi.URLParam(r, "id"))
	var req ItemizedDepositRequest
	if !decode(w, r, &req) {
		return
	}

	rentDeposit, err := parseMoney("rentDeposit", req.RentDeposit)
	if err != nil {
		writeDomainError(w, err, "Invalid rent deposit")
		return
	}
	waterDeposit, err := parseMoney("waterDeposit", req.WaterDeposit)
	if err != nil {
		writeDomainError(w, err, "Invalid water deposit")
		return
	}
	initialRent, err := parseMoney("initialRentPayment", req.InitialRent)
	if err != nil {
		writeDomainError(w, err, "Invalid initial rent")
		return
	}
	others := make(map[string]ledger.Money, len(req.OtherDeposits))
	for title, s := range req.OtherDeposits {
		amount, err := parseMoney("otherDeposits."+title, s)
		if err != nil {
			writeDomainError(w, err, "Invalid deposit amount")
			return
		}
		others[title] = amount
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, err, "Invalid date")
		return
	}

	tenant, err := h.Billing.RecordItemizedDeposit(r.Context(), id, tenancy.ItemizedDeposit{
		RentDeposit:   rentDeposit,
		WaterDeposit:  waterDeposit,
		OtherDeposits: others,
		InitialRent:   initialRent,
	}, date, req.ReferenceNumber)
	if err != nil {
		writeDomainError(w, err, "Failed to record itemized deposit")
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(tenant))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns every billing period, oldest first.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id := tenancy.TenantID(chi.URLParam(r, "id"))
	payments, err := h.Billing.ListPayments(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to list payments")
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// ListUnpaid summarizes the tenant's open periods, oldest first.
func (h *Handler) ListUnpaid(w http.ResponseWriter, r *http.Request) {
	id := tenancy.TenantID(chi.URLParam(r, "id"))
	unpaid, err := h.Billing.ListUnpaid(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to list unpaid periods")
		return
	}
	dtos := make([]UnpaidPeriodDTO, len(unpaid))
	for i, p := range unpaid {
		dtos[i] = UnpaidPeriodDTO{
			PaymentID:     string(p.ID),
			Period:        p.Period.String(),
			GlobalDeficit: p.GlobalDeficit.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RegisterInitialPayment opens the tenant's first billing period.
func (h *Handler) RegisterInitialPayment(w http.ResponseWriter, r *http.Request) {
	id := tenancy.TenantID(chi.URLParam(r, "id"))
	var req InitialPaymentRequest
	if !decode(w, r, &req) {
		return
	}
	period, err := parsePeriod(req.Year, req.Month)
	if err != nil {
		writeDomainError(w, err, "Invalid period")
		return
	}
	amount, err := parseMoney("amount", req.Amount)
	if err != nil {
		writeDomainError(w, err, "Invalid amount")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, err, "Invalid date")
		return
	}

	payment, err := h.Billing.RegisterInitialPayment(r.Context(), id, period, amount, date, req.ReferenceNumber)
	if err != nil {
		writeDomainError(w, err, "Failed to register initial payment")
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

// ProcessMonthly runs one billing cycle for the tenant.
func (h *Handler) ProcessMonthly(w http.ResponseWriter, r *http.Request) {
	id := tenancy.TenantID(chi.URLParam(r, "id"))
	var req MonthlyPaymentRequest
	if !decode(w, r, &req) {
		return
	}

	period, err := parsePeriod(req.Year, req.Month)
	if err != nil {
		writeDomainError(w, err, "Invalid period")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, err, "Invalid date")
		return
	}
	in := billing.MonthlyInput{
		Period:          period,
		Date:            date,
		ReferenceNumber: req.ReferenceNumber,
	}
	if in.Amount, err = parseMoney("amount", req.Amount); err != nil {
		writeDomainError(w, err, "Invalid amount")
		return
	}
	if in.AccumulatedWaterBill, err = parseMoney("accumulatedWaterBill", req.AccumulatedWaterBill); err != nil {
		writeDomainError(w, err, "Invalid water bill")
		return
	}
	if in.PrevMonthExtraCharges, err = parseMoney("prevMonthExtraCharges", req.PrevMonthExtraCharges); err != nil {
		writeDomainError(w, err, "Invalid extra charges")
		return
	}
	if in.ExtraCharges, err = parseMoney("extraCharges", req.ExtraCharges); err != nil {
		writeDomainError(w, err, "Invalid extra charges")
		return
	}
	if in.WaterAccumulation, err = parseMoney("waterAccumulation", req.WaterAccumulation); err != nil {
		writeDomainError(w, err, "Invalid water accumulation")
		return
	}

	payment, err := h.Billing.ProcessMonthly(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, err, "Failed to process monthly payment")
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// ApplyExtraAmount sweeps open periods with mid-month surplus money.
func (h *Handler) ApplyExtraAmount(w http.ResponseWriter, r *http.Request) {
	id := tenancy.TenantID(chi.URLParam(r, "id"))
	var req ExtraAmountRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := parseMoney("amount", req.Amount)
	if err != nil {
		writeDomainError(w, err, "Invalid amount")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, err, "Invalid date")
		return
	}

	remainder, err := h.Billing.ApplyExtraAmount(r.Context(), id, amount, date, req.ReferenceNumber)
	if err != nil {
		writeDomainError(w, err, "Failed to apply extra amount")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"applied":   amount.Sub(remainder).String(),
		"remainder": remainder.String(),
	})
}

// UpdatePayment applies money to one named charge line of a period.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id := billing.PaymentID(chi.URLParam(r, "id"))
	var req UpdatePaymentRequest
	if !decode(w, r, &req) {
		return
	}
	category, err := ledger.ParseCategory(req.Category)
	if err != nil {
		writeDomainError(w, &ledger.ValidationError{Field: "category", Message: err.Error()}, "Invalid category")
		return
	}
	amount, err := parseMoney("amount", req.Amount)
	if err != nil {
		writeDomainError(w, err, "Invalid amount")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, err, "Invalid date")
		return
	}

	payment, err := h.Billing.ApplyPayment(r.Context(), id, category, amount, date, req.ReferenceNumber)
	if err != nil {
		writeDomainError(w, err, "Failed to update payment")
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// CorrectDeficit manually settles a period's deficits.
func (h *Handler) CorrectDeficit(w http.ResponseWriter, r *http.Request) {
	id := billing.PaymentID(chi.URLParam(r, "id"))
	var req DeficitCorrectionRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := parseMoney("amount", req.Amount)
	if err != nil {
		writeDomainError(w, err, "Invalid amount")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, err, "Invalid date")
		return
	}

	payment, err := h.Billing.CorrectDeficit(r.Context(), id, amount, date, req.ReferenceNumber)
	if err != nil {
		writeDomainError(w, err, "Failed to correct deficit")
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// =============================================================================
// CLEARANCE HANDLERS
// =============================================================================

// SettleTenant runs the deposit-funded exit settlement.
func (h *Handler) SettleTenant(w http.ResponseWriter, r *http.Request) {
	id := tenancy.TenantID(chi.URLParam(r, "id"))
	var req SettleRequest
	if !decode(w, r, &req) {
		return
	}
	paintingFee, err := parseMoney("paintingFee", req.PaintingFee)
	if err != nil {
		writeDomainError(w, err, "Invalid painting fee")
		return
	}
	exitDate, err := parseDate(req.ExitDate)
	if err != nil {
		writeDomainError(w, err, "Invalid exit date")
		return
	}
	misc := make([]clearance.MiscFee, len(req.Misc))
	for i, m := range req.Misc {
		amount, err := parseMoney("miscellaneous."+m.Title, m.Amount)
		if err != nil {
			writeDomainError(w, err, "Invalid fee amount")
			return
		}
		misc[i] = clearance.MiscFee{Title: m.Title, Amount: amount}
	}

	record, err := h.Clearance.Settle(r.Context(), id, clearance.SettleInput{
		ExitDate:    exitDate,
		PaintingFee: paintingFee,
		Misc:        misc,
	})
	if err != nil {
		writeDomainError(w, err, "Failed to settle tenant")
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// SettleFinalPeriod bills the exit month from deposits.
func (h *Handler) SettleFinalPeriod(w http.ResponseWriter, r *http.Request) {
	id := tenancy.TenantID(chi.URLParam(r, "id"))
	var req FinalPeriodRequest
	if !decode(w, r, &req) {
		return
	}
	period, err := parsePeriod(req.Year, req.Month)
	if err != nil {
		writeDomainError(w, err, "Invalid period")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, err, "Invalid date")
		return
	}
	waterBill, err := parseMoney("waterBill", req.WaterBill)
	if err != nil {
		writeDomainError(w, err, "Invalid water bill")
		return
	}
	extra, err := parseMoney("extraCharges", req.ExtraCharges)
	if err != nil {
		writeDomainError(w, err, "Invalid extra charges")
		return
	}

	payment, err := h.Clearance.SettleFinalPeriod(r.Context(), id, clearance.FinalPeriodInput{
		Period:       period,
		Date:         date,
		WaterBill:    waterBill,
		ExtraCharges: extra,
	})
	if err != nil {
		writeDomainError(w, err, "Failed to settle final period")
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

// GetClearances returns the tenant's clearance records.
func (h *Handler) GetClearances(w http.ResponseWriter, r *http.Request) {
	id := tenancy.TenantID(chi.URLParam(r, "id"))
	records, err := h.Clearance.GetForTenant(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to get clearances")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// UpdateClearance applies a correction to an existing clearance.
func (h *Handler) UpdateClearance(w http.ResponseWriter, r *http.Request) {
	id := clearance.ClearanceID(chi.URLParam(r, "id"))
	var req ClearanceUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := parseMoney("amount", req.Amount)
	if err != nil {
		writeDomainError(w, err, "Invalid amount")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, err, "Invalid date")
		return
	}

	record, err := h.Clearance.Update(r.Context(), id, amount, date, req.ReferenceNumber)
	if err != nil {
		writeDomainError(w, err, "Failed to update clearance")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// DeleteClearance removes a clearance record.
func (h *Handler) DeleteClearance(w http.ResponseWriter, r *http.Request) {
	id := clearance.ClearanceID(chi.URLParam(r, "id"))
	if err := h.Clearance.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to delete clearance")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates the request body, writing the 400 itself
// on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error, message string) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrPendingObligations):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
