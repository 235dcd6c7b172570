/*
Package memory provides an in-memory implementation of every storage
interface, for tests and local development.

PURPOSE:
  Mirrors the sqlite store's semantics, including optimistic versioning:
  a stale Version yields a ConflictError, exactly as production would.
  Records are deep-copied on the way in and out so callers never share
  state with the store.
*/
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sleekabode/tenancy-engine/billing"
	"github.com/sleekabode/tenancy-engine/clearance"
	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

type Store struct {
	mu         sync.RWMutex
	apartments map[tenancy.ApartmentID]tenancy.Apartment
	houses     map[tenancy.HouseID]tenancy.House
	tenants    map[tenancy.TenantID]tenancy.Tenant
	payments   map[billing.PaymentID]billing.Payment
	clearances map[clearance.ClearanceID]clearance.Clearance
	jobs       map[tenancy.TenantID]clearance.ScheduledJob
}

func New() *Store {
	return &Store{
		apartments: make(map[tenancy.ApartmentID]tenancy.Apartment),
		houses:     make(map[tenancy.HouseID]tenancy.House),
		tenants:    make(map[tenancy.TenantID]tenancy.Tenant),
		payments:   make(map[billing.PaymentID]billing.Payment),
		clearances: make(map[clearance.ClearanceID]clearance.Clearance),
		jobs:       make(map[tenancy.TenantID]clearance.ScheduledJob),
	}
}

// clone deep-copies a record through JSON so stored state never aliases
// caller state.
func clone[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return out
}

// =============================================================================
// APARTMENTS AND HOUSES
// =============================================================================

func (s *Store) SaveApartment(_ context.Context, a *tenancy.Apartment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apartments[a.ID] = clone(*a)
	return nil
}

func (s *Store) GetApartment(_ context.Context, id tenancy.ApartmentID) (*tenancy.Apartment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apartments[id]
	if !ok {
		return nil, &ledger.NotFoundError{Kind: "apartment", ID: string(id)}
	}
	out := clone(a)
	return &out, nil
}

func (s *Store) ListApartments(_ context.Context) ([]*tenancy.Apartment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*tenancy.Apartment
	for _, a := range s.apartments {
		c := clone(a)
		out = append(out, &c)
	}
	return out, nil
}

func (s *Store) SaveHouse(_ context.Context, h *tenancy.House) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.houses[h.ID] = clone(*h)
	return nil
}

func (s *Store) GetHouse(_ context.Context, id tenancy.HouseID) (*tenancy.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.houses[id]
	if !ok {
		return nil, &ledger.NotFoundError{Kind: "house", ID: string(id)}
	}
	out := clone(h)
	return &out, nil
}

func (s *Store) ListHouses(_ context.Context, apartmentID tenancy.ApartmentID) ([]*tenancy.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*tenancy.House
	for _, h := range s.houses {
		if h.ApartmentID == apartmentID {
			c := clone(h)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) FindAvailableHouse(_ context.Context, apartmentID tenancy.ApartmentID, floor, name string) (*tenancy.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.houses {
		if h.ApartmentID != apartmentID || h.IsOccupied {
			continue
		}
		if floor != "" && h.Floor != floor {
			continue
		}
		if name != "" && h.Name != name {
			continue
		}
		out := clone(h)
		return &out, nil
	}
	return nil, &ledger.NotFoundError{Kind: "house", ID: "available in " + string(apartmentID)}
}

func (s *Store) SetOccupied(_ context.Context, id tenancy.HouseID, occupied bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.houses[id]
	if !ok {
		return &ledger.NotFoundError{Kind: "house", ID: string(id)}
	}
	h.IsOccupied = occupied
	s.houses[id] = h
	return nil
}

// =============================================================================
// TENANTS
// =============================================================================

func (s *Store) SaveTenant(_ context.Context, t *tenancy.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tenants[t.ID]
	if ok && existing.Version != t.Version {
		return &ledger.ConflictError{Kind: "tenant", ID: string(t.ID)}
	}
	t.Version++
	s.tenants[t.ID] = clone(*t)
	return nil
}

func (s *Store) GetTenant(_ context.Context, id tenancy.TenantID) (*tenancy.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, &ledger.NotFoundError{Kind: "tenant", ID: string(id)}
	}
	out := clone(t)
	return &out, nil
}

func (s *Store) GetTenantByNationalID(_ context.Context, nationalID string) (*tenancy.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tenants {
		if t.NationalID == nationalID {
			out := clone(t)
			return &out, nil
		}
	}
	return nil, &ledger.NotFoundError{Kind: "tenant", ID: nationalID}
}

func (s *Store) ListTenantsByApartment(_ context.Context, apartmentID tenancy.ApartmentID) ([]*tenancy.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*tenancy.Tenant
	for _, t := range s.tenants {
		if t.ApartmentID == apartmentID {
			c := clone(t)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) DeleteTenant(_ context.Context, id tenancy.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[id]; !ok {
		return &ledger.NotFoundError{Kind: "tenant", ID: string(id)}
	}
	delete(s.tenants, id)
	for pid, p := range s.payments {
		if p.TenantID == id {
			delete(s.payments, pid)
		}
	}
	for cid, c := range s.clearances {
		if c.TenantID == id {
			delete(s.clearances, cid)
		}
	}
	delete(s.jobs, id)
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) SavePayment(_ context.Context, p *billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savePaymentLocked(p)
}

func (s *Store) SavePayments(_ context.Context, ps []*billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check everything before writing anything: all or nothing. A
	// duplicate ID in one batch means two copies of the same ledger;
	// rejecting it up front keeps the second copy from failing its
	// version check after the first already wrote.
	seen := make(map[billing.PaymentID]bool, len(ps))
	for _, p := range ps {
		if seen[p.ID] {
			return &ledger.ConflictError{Kind: "payment", ID: string(p.ID)}
		}
		seen[p.ID] = true
		if existing, ok := s.payments[p.ID]; ok && existing.Version != p.Version {
			return &ledger.ConflictError{Kind: "payment", ID: string(p.ID)}
		}
	}
	for _, p := range ps {
		if err := s.savePaymentLocked(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) savePaymentLocked(p *billing.Payment) error {
	existing, ok := s.payments[p.ID]
	if ok && existing.Version != p.Version {
		return &ledger.ConflictError{Kind: "payment", ID: string(p.ID)}
	}
	if !ok {
		for _, other := range s.payments {
			if other.TenantID == p.TenantID && other.Period.Equal(p.Period) {
				return &ledger.ValidationError{
					Field:   "period",
					Message: "payment already exists for " + p.Period.String(),
				}
			}
		}
	}
	p.Version++
	s.payments[p.ID] = clone(*p)
	return nil
}

func (s *Store) GetPayment(_ context.Context, id billing.PaymentID) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, &ledger.NotFoundError{Kind: "payment", ID: string(id)}
	}
	out := clone(p)
	return &out, nil
}

func (s *Store) GetPaymentByPeriod(_ context.Context, tenantID tenancy.TenantID, period ledger.BillingMonth) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.payments {
		if p.TenantID == tenantID && p.Period.Equal(period) {
			out := clone(p)
			return &out, nil
		}
	}
	return nil, &ledger.NotFoundError{Kind: "payment", ID: string(tenantID) + " " + period.String()}
}

func (s *Store) ListPayments(_ context.Context, tenantID tenancy.TenantID) ([]*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*billing.Payment
	for _, p := range s.payments {
		if p.TenantID == tenantID {
			c := clone(p)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) ListUnclearedPayments(_ context.Context, tenantID tenancy.TenantID) ([]*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*billing.Payment
	for _, p := range s.payments {
		if p.TenantID == tenantID && !p.IsCleared {
			c := clone(p)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) MostRecentPayment(_ context.Context, tenantID tenancy.TenantID) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *billing.Payment
	for _, p := range s.payments {
		if p.TenantID != tenantID {
			continue
		}
		if best == nil || best.Period.Before(p.Period) {
			c := clone(p)
			best = &c
		}
	}
	if best == nil {
		return nil, &ledger.NotFoundError{Kind: "payment", ID: string(tenantID)}
	}
	return best, nil
}

// =============================================================================
// CLEARANCES
// =============================================================================

func (s *Store) SaveClearance(_ context.Context, c *clearance.Clearance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.clearances[c.ID]
	if ok && existing.Version != c.Version {
		return &ledger.ConflictError{Kind: "clearance", ID: string(c.ID)}
	}
	c.Version++
	s.clearances[c.ID] = clone(*c)
	return nil
}

func (s *Store) GetClearance(_ context.Context, id clearance.ClearanceID) (*clearance.Clearance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clearances[id]
	if !ok {
		return nil, &ledger.NotFoundError{Kind: "clearance", ID: string(id)}
	}
	out := clone(c)
	return &out, nil
}

func (s *Store) ListClearances(_ context.Context, tenantID tenancy.TenantID) ([]*clearance.Clearance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*clearance.Clearance
	for _, c := range s.clearances {
		if c.TenantID == tenantID {
			cc := clone(c)
			out = append(out, &cc)
		}
	}
	return out, nil
}

func (s *Store) DeleteClearance(_ context.Context, id clearance.ClearanceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clearances[id]; !ok {
		return &ledger.NotFoundError{Kind: "clearance", ID: string(id)}
	}
	delete(s.clearances, id)
	return nil
}

// =============================================================================
// SCHEDULED JOBS
// =============================================================================

func (s *Store) UpsertJob(_ context.Context, job clearance.ScheduledJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.TenantID] = job
	return nil
}

func (s *Store) ListActiveJobs(_ context.Context) ([]clearance.ScheduledJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []clearance.ScheduledJob
	for _, j := range s.jobs {
		if j.Active {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *Store) DeactivateJob(_ context.Context, tenantID tenancy.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[tenantID]
	if !ok {
		return nil
	}
	j.Active = false
	s.jobs[tenantID] = j
	return nil
}
