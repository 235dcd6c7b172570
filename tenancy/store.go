/*
store.go - Persistence and registry interfaces for tenancy records

PURPOSE:
  Implementation-agnostic contracts. The sqlite store implements them for
  production, the memory store for tests.

OCCUPANCY:
  The house registry owns the IsOccupied mutual exclusion: at most one
  active tenant per house, enforced where houses are stored, not in the
  ledger engine.
*/
package tenancy

import "context"

// Store persists apartments, houses, and tenants.
type Store interface {
	HouseRegistry

	SaveApartment(ctx context.Context, a *Apartment) error
	GetApartment(ctx context.Context, id ApartmentID) (*Apartment, error)
	ListApartments(ctx context.Context) ([]*Apartment, error)

	// SaveTenant performs an optimistic-version upsert. A stale Version
	// yields a ConflictError and the caller retries the whole unit.
	SaveTenant(ctx context.Context, t *Tenant) error
	GetTenant(ctx context.Context, id TenantID) (*Tenant, error)
	GetTenantByNationalID(ctx context.Context, nationalID string) (*Tenant, error)
	ListTenantsByApartment(ctx context.Context, apartmentID ApartmentID) ([]*Tenant, error)

	// DeleteTenant cascades: billing ledgers, clearances, and the deposit
	// ledger go with the tenant.
	DeleteTenant(ctx context.Context, id TenantID) error
}

// HouseRegistry is the occupancy gate consulted at onboarding and exit.
type HouseRegistry interface {
	SaveHouse(ctx context.Context, h *House) error
	GetHouse(ctx context.Context, id HouseID) (*House, error)
	ListHouses(ctx context.Context, apartmentID ApartmentID) ([]*House, error)
	FindAvailableHouse(ctx context.Context, apartmentID ApartmentID, floor, name string) (*House, error)
	SetOccupied(ctx context.Context, id HouseID, occupied bool) error
}
