/*
service.go - Onboarding orchestration

PURPOSE:
  Creates tenants against available houses. Pure checks first, then
  persistence; the deposit money itself flows through the billing
  service so the forward-to-first-payment step stays in one atomic unit.
*/
package tenancy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sleekabode/tenancy-engine/ledger"
)

type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// OnboardInput is validated boundary input for tenant creation.
type OnboardInput struct {
	Name        string
	NationalID  string
	PhoneNumber string
	Email       string
	ApartmentID ApartmentID
	HouseFloor  string
	HouseName   string
	GarbageFee  *ledger.Money // nil means the default fee applies
}

// Onboard creates a tenant occupying an available house. The house's
// required deposits seed the deposit ledger, all as open deficits.
func (s *Service) Onboard(ctx context.Context, in OnboardInput) (*Tenant, error) {
	if in.Name == "" || in.NationalID == "" {
		return nil, &ledger.ValidationError{Field: "tenant", Message: "name and national ID are required"}
	}

	if existing, err := s.store.GetTenantByNationalID(ctx, in.NationalID); err == nil && existing != nil {
		return nil, &ledger.ValidationError{Field: "nationalId", Message: "tenant with this national ID already exists"}
	} else if err != nil && !ledger.IsNotFound(err) {
		return nil, err
	}

	house, err := s.store.FindAvailableHouse(ctx, in.ApartmentID, in.HouseFloor, in.HouseName)
	if err != nil {
		return nil, err
	}

	garbageFee := DefaultGarbageFee
	if in.GarbageFee != nil {
		garbageFee = *in.GarbageFee
	}

	tenant := &Tenant{
		ID:          TenantID(uuid.NewString()),
		Name:        in.Name,
		NationalID:  in.NationalID,
		PhoneNumber: in.PhoneNumber,
		Email:       in.Email,
		ApartmentID: house.ApartmentID,
		HouseID:     house.ID,
		MonthlyRent: house.RentPayable,
		GarbageFee:  garbageFee,
		Deposits:    NewDepositLedger(house, house.RentPayable),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.SetOccupied(ctx, house.ID, true); err != nil {
		return nil, err
	}
	if err := s.store.SaveTenant(ctx, tenant); err != nil {
		// release the house so a failed save does not strand it
		if relErr := s.store.SetOccupied(ctx, house.ID, false); relErr != nil {
			s.log.Error("failed to release house after tenant save error",
				zap.String("house", string(house.ID)), zap.Error(relErr))
		}
		return nil, err
	}

	s.log.Info("tenant onboarded",
		zap.String("tenant", string(tenant.ID)),
		zap.String("house", string(house.ID)))
	return tenant, nil
}

// RegisterHouse adds a house to an apartment.
func (s *Service) RegisterHouse(ctx context.Context, h *House) (*House, error) {
	if h.Name == "" {
		return nil, &ledger.ValidationError{Field: "house", Message: "house name is required"}
	}
	if _, err := s.store.GetApartment(ctx, h.ApartmentID); err != nil {
		return nil, err
	}
	if h.ID == "" {
		h.ID = HouseID(uuid.NewString())
	}
	h.CreatedAt = time.Now().UTC()
	if err := s.store.SaveHouse(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// RegisterApartment adds an apartment.
func (s *Service) RegisterApartment(ctx context.Context, a *Apartment) (*Apartment, error) {
	if a.Name == "" {
		return nil, &ledger.ValidationError{Field: "apartment", Message: "apartment name is required"}
	}
	if a.ID == "" {
		a.ID = ApartmentID(uuid.NewString())
	}
	a.CreatedAt = time.Now().UTC()
	if err := s.store.SaveApartment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetTenant(ctx context.Context, id TenantID) (*Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

func (s *Service) ListApartments(ctx context.Context) ([]*Apartment, error) {
	return s.store.ListApartments(ctx)
}

func (s *Service) ListHouses(ctx context.Context, apartmentID ApartmentID) ([]*House, error) {
	return s.store.ListHouses(ctx, apartmentID)
}

func (s *Service) ListTenants(ctx context.Context, apartmentID ApartmentID) ([]*Tenant, error) {
	return s.store.ListTenantsByApartment(ctx, apartmentID)
}
