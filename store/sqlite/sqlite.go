/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements tenancy.Store, billing.Store, clearance.Store, and
  clearance.JobStore using SQLite. In production the same patterns apply
  to PostgreSQL with minor dialect differences.

DOCUMENT COLUMNS:
  Ledger aggregates nest deeply (charge lines with transaction, deficit,
  and excess histories). Each aggregate serializes whole into a doc_json
  column; the scalar columns next to it exist for lookups and ordering
  only. The JSON is the source of truth.

OPTIMISTIC VERSIONING:
  Every aggregate row carries a version column. Updates match on the
  version read; zero rows affected surfaces as a ConflictError and the
  caller retries the whole unit of work. Multi-ledger writes run in one
  SQL transaction, all or nothing.

KEY TABLES:
  apartments, houses: the property hierarchy
  tenants:            tenant plus deposit ledger document
  payments:           one row per (tenant, year, month), UNIQUE enforced
  clearances:         exit settlement documents
  scheduled_jobs:     deferred tenant-removal jobs, keyed by tenant

WAL MODE:
  Opened with WAL for better concurrency; readers never block the
  single writer.

SEE ALSO:
  - store/memory: the in-memory twin used in tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sleekabode/tenancy-engine/billing"
	"github.com/sleekabode/tenancy-engine/clearance"
	"github.com/sleekabode/tenancy-engine/ledger"
	"github.com/sleekabode/tenancy-engine/tenancy"
)

type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS apartments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS houses (
		id TEXT PRIMARY KEY,
		apartment_id TEXT NOT NULL,
		name TEXT NOT NULL,
		floor TEXT,
		is_occupied BOOLEAN NOT NULL DEFAULT FALSE,
		doc_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_houses_apartment
		ON houses(apartment_id);
	CREATE INDEX IF NOT EXISTS idx_houses_availability
		ON houses(apartment_id, is_occupied);

	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		national_id TEXT NOT NULL UNIQUE,
		apartment_id TEXT NOT NULL,
		house_id TEXT NOT NULL,
		to_be_cleared BOOLEAN NOT NULL DEFAULT FALSE,
		doc_json TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tenants_apartment
		ON tenants(apartment_id);

	-- One billing ledger per tenant per calendar month
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month_index INTEGER NOT NULL,
		is_cleared BOOLEAN NOT NULL DEFAULT FALSE,
		doc_json TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(tenant_id, year, month_index)
	);

	CREATE INDEX IF NOT EXISTS idx_payments_tenant
		ON payments(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_payments_tenant_open
		ON payments(tenant_id, is_cleared);
	CREATE INDEX IF NOT EXISTS idx_payments_tenant_period
		ON payments(tenant_id, year DESC, month_index DESC);

	CREATE TABLE IF NOT EXISTS clearances (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		is_cleared BOOLEAN NOT NULL DEFAULT FALSE,
		doc_json TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clearances_tenant
		ON clearances(tenant_id);

	CREATE TABLE IF NOT EXISTS scheduled_jobs (
		tenant_id TEXT PRIMARY KEY,
		run_at TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// APARTMENTS AND HOUSES
// =============================================================================

func (s *Store) SaveApartment(ctx context.Context, a *tenancy.Apartment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO apartments (id, name, location, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, location = excluded.location`,
		a.ID, a.Name, a.Location, a.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func (s *Store) GetApartment(ctx context.Context, id tenancy.ApartmentID) (*tenancy.Apartment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, location, created_at FROM apartments WHERE id = ?`, id)
	var a tenancy.Apartment
	var created string
	if err := row.Scan(&a.ID, &a.Name, &a.Location, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ledger.NotFoundError{Kind: "apartment", ID: string(id)}
		}
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &a, nil
}

func (s *Store) ListApartments(ctx context.Context) ([]*tenancy.Apartment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, location, created_at FROM apartments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*tenancy.Apartment
	for rows.Next() {
		var a tenancy.Apartment
		var created string
		if err := rows.Scan(&a.ID, &a.Name, &a.Location, &created); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *Store) SaveHouse(ctx context.Context, h *tenancy.House) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := json.Marshal(h)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO houses (id, apartment_id, name, floor, is_occupied, doc_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, floor = excluded.floor,
			is_occupied = excluded.is_occupied, doc_json = excluded.doc_json`,
		h.ID, h.ApartmentID, h.Name, h.Floor, h.IsOccupied, string(doc),
		h.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func (s *Store) GetHouse(ctx context.Context, id tenancy.HouseID) (*tenancy.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanHouse(s.db.QueryRowContext(ctx,
		`SELECT doc_json FROM houses WHERE id = ?`, id), string(id))
}

func (s *Store) scanHouse(row *sql.Row, id string) (*tenancy.House, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ledger.NotFoundError{Kind: "house", ID: id}
		}
		return nil, err
	}
	var h tenancy.House
	if err := json.Unmarshal([]byte(doc), &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Store) ListHouses(ctx context.Context, apartmentID tenancy.ApartmentID) ([]*tenancy.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_json FROM houses WHERE apartment_id = ? ORDER BY name`, apartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*tenancy.House
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var h tenancy.House
		if err := json.Unmarshal([]byte(doc), &h); err != nil {
			return nil, err
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

func (s *Store) FindAvailableHouse(ctx context.Context, apartmentID tenancy.ApartmentID, floor, name string) (*tenancy.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query := `SELECT doc_json FROM houses WHERE apartment_id = ? AND is_occupied = FALSE`
	args := []any{apartmentID}
	if floor != "" {
		query += ` AND floor = ?`
		args = append(args, floor)
	}
	if name != "" {
		query += ` AND name = ?`
		args = append(args, name)
	}
	query += ` LIMIT 1`
	return s.scanHouse(s.db.QueryRowContext(ctx, query, args...), "available in "+string(apartmentID))
}

func (s *Store) SetOccupied(ctx context.Context, id tenancy.HouseID, occupied bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE houses
		SET is_occupied = ?,
		    doc_json = json_set(doc_json, '$.isOccupied', json(CASE WHEN ? THEN 'true' ELSE 'false' END))
		WHERE id = ?`,
		occupied, occupied, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Kind: "house", ID: string(id)}
	}
	return nil
}

// =============================================================================
// TENANTS
// =============================================================================

func (s *Store) SaveTenant(ctx context.Context, t *tenancy.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Version == 0 {
		t.Version = 1
		doc, err := json.Marshal(t)
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO tenants (id, national_id, apartment_id, house_id, to_be_cleared, doc_json, version, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.NationalID, t.ApartmentID, t.HouseID, t.ToBeCleared,
			string(doc), t.Version, t.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			t.Version = 0
		}
		return err
	}

	readVersion := t.Version
	t.Version++
	doc, err := json.Marshal(t)
	if err != nil {
		t.Version = readVersion
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE tenants
		SET to_be_cleared = ?, doc_json = ?, version = ?
		WHERE id = ? AND version = ?`,
		t.ToBeCleared, string(doc), t.Version, t.ID, readVersion)
	if err != nil {
		t.Version = readVersion
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		t.Version = readVersion
		return &ledger.ConflictError{Kind: "tenant", ID: string(t.ID)}
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, id tenancy.TenantID) (*tenancy.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanTenant(s.db.QueryRowContext(ctx,
		`SELECT doc_json FROM tenants WHERE id = ?`, id), string(id))
}

func (s *Store) GetTenantByNationalID(ctx context.Context, nationalID string) (*tenancy.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanTenant(s.db.QueryRowContext(ctx,
		`SELECT doc_json FROM tenants WHERE national_id = ?`, nationalID), nationalID)
}

func scanTenant(row *sql.Row, id string) (*tenancy.Tenant, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ledger.NotFoundError{Kind: "tenant", ID: id}
		}
		return nil, err
	}
	var t tenancy.Tenant
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTenantsByApartment(ctx context.Context, apartmentID tenancy.ApartmentID) ([]*tenancy.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_json FROM tenants WHERE apartment_id = ?`, apartmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*tenancy.Tenant
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var t tenancy.Tenant
		if err := json.Unmarshal([]byte(doc), &t); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// DeleteTenant cascades payments, clearances, and the removal job in
// one SQL transaction.
func (s *Store) DeleteTenant(ctx context.Context, id tenancy.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Kind: "tenant", ID: string(id)}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE tenant_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM clearances WHERE tenant_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE tenant_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// PAYMENTS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func savePaymentTx(ctx context.Context, ex execer, p *billing.Payment) error {
	if p.Version == 0 {
		p.Version = 1
		doc, err := json.Marshal(p)
		if err != nil {
			return err
		}
		_, err = ex.ExecContext(ctx, `
			INSERT INTO payments (id, tenant_id, year, month_index, is_cleared, doc_json, version, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.TenantID, p.Period.Year, p.Period.Month.Index(), p.IsCleared,
			string(doc), p.Version, p.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			p.Version = 0
		}
		return err
	}

	readVersion := p.Version
	p.Version++
	doc, err := json.Marshal(p)
	if err != nil {
		p.Version = readVersion
		return err
	}
	res, err := ex.ExecContext(ctx, `
		UPDATE payments
		SET is_cleared = ?, doc_json = ?, version = ?
		WHERE id = ? AND version = ?`,
		p.IsCleared, string(doc), p.Version, p.ID, readVersion)
	if err != nil {
		p.Version = readVersion
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		p.Version = readVersion
		return &ledger.ConflictError{Kind: "payment", ID: string(p.ID)}
	}
	return nil
}

func (s *Store) SavePayment(ctx context.Context, p *billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePaymentTx(ctx, s.db, p)
}

// SavePayments writes every ledger in one SQL transaction: a version
// conflict on any of them rolls all of them back.
func (s *Store) SavePayments(ctx context.Context, ps []*billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	versions := make([]int, len(ps))
	for i, p := range ps {
		versions[i] = p.Version
	}
	for i, p := range ps {
		if err := savePaymentTx(ctx, tx, p); err != nil {
			for j := 0; j <= i; j++ {
				ps[j].Version = versions[j]
			}
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		for i, p := range ps {
			p.Version = versions[i]
		}
		return err
	}
	return nil
}

func scanPaymentDoc(doc string) (*billing.Payment, error) {
	var p billing.Payment
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetPayment(ctx context.Context, id billing.PaymentID) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_json FROM payments WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, &ledger.NotFoundError{Kind: "payment", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	return scanPaymentDoc(doc)
}

func (s *Store) GetPaymentByPeriod(ctx context.Context, tenantID tenancy.TenantID, period ledger.BillingMonth) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_json FROM payments
		WHERE tenant_id = ? AND year = ? AND month_index = ?`,
		tenantID, period.Year, period.Month.Index()).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, &ledger.NotFoundError{Kind: "payment", ID: string(tenantID) + " " + period.String()}
	}
	if err != nil {
		return nil, err
	}
	return scanPaymentDoc(doc)
}

func (s *Store) listPayments(ctx context.Context, query string, args ...any) ([]*billing.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*billing.Payment
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		p, err := scanPaymentDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListPayments(ctx context.Context, tenantID tenancy.TenantID) ([]*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPayments(ctx, `
		SELECT doc_json FROM payments
		WHERE tenant_id = ?
		ORDER BY year, month_index`, tenantID)
}

func (s *Store) ListUnclearedPayments(ctx context.Context, tenantID tenancy.TenantID) ([]*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPayments(ctx, `
		SELECT doc_json FROM payments
		WHERE tenant_id = ? AND is_cleared = FALSE
		ORDER BY year, month_index`, tenantID)
}

func (s *Store) MostRecentPayment(ctx context.Context, tenantID tenancy.TenantID) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_json FROM payments
		WHERE tenant_id = ?
		ORDER BY year DESC, month_index DESC
		LIMIT 1`, tenantID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, &ledger.NotFoundError{Kind: "payment", ID: string(tenantID)}
	}
	if err != nil {
		return nil, err
	}
	return scanPaymentDoc(doc)
}

// =============================================================================
// CLEARANCES
// =============================================================================

func (s *Store) SaveClearance(ctx context.Context, c *clearance.Clearance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Version == 0 {
		c.Version = 1
		doc, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO clearances (id, tenant_id, is_cleared, doc_json, version, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.TenantID, c.IsCleared, string(doc), c.Version,
			c.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			c.Version = 0
		}
		return err
	}

	readVersion := c.Version
	c.Version++
	doc, err := json.Marshal(c)
	if err != nil {
		c.Version = readVersion
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE clearances
		SET is_cleared = ?, doc_json = ?, version = ?
		WHERE id = ? AND version = ?`,
		c.IsCleared, string(doc), c.Version, c.ID, readVersion)
	if err != nil {
		c.Version = readVersion
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		c.Version = readVersion
		return &ledger.ConflictError{Kind: "clearance", ID: string(c.ID)}
	}
	return nil
}

func (s *Store) GetClearance(ctx context.Context, id clearance.ClearanceID) (*clearance.Clearance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_json FROM clearances WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, &ledger.NotFoundError{Kind: "clearance", ID: string(id)}
	}
	if err != nil {
		return nil, err
	}
	var c clearance.Clearance
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListClearances(ctx context.Context, tenantID tenancy.TenantID) ([]*clearance.Clearance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_json FROM clearances
		WHERE tenant_id = ?
		ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*clearance.Clearance
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var c clearance.Clearance
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteClearance(ctx context.Context, id clearance.ClearanceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM clearances WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Kind: "clearance", ID: string(id)}
	}
	return nil
}

// =============================================================================
// SCHEDULED JOBS
// =============================================================================

func (s *Store) UpsertJob(ctx context.Context, job clearance.ScheduledJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (tenant_id, run_at, active, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET run_at = excluded.run_at, active = excluded.active`,
		job.TenantID, job.RunAt.Format(time.RFC3339Nano), job.Active,
		job.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func (s *Store) ListActiveJobs(ctx context.Context) ([]clearance.ScheduledJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT tenant_id, run_at, active, created_at
		FROM scheduled_jobs WHERE active = TRUE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []clearance.ScheduledJob
	for rows.Next() {
		var j clearance.ScheduledJob
		var runAt, created string
		if err := rows.Scan(&j.TenantID, &runAt, &j.Active, &created); err != nil {
			return nil, err
		}
		j.RunAt, _ = time.Parse(time.RFC3339Nano, runAt)
		j.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) DeactivateJob(ctx context.Context, tenantID tenancy.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET active = FALSE WHERE tenant_id = ?`, tenantID)
	return err
}
