package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "github.com/lib/pq"
)

// Postgres error classes the write paths translate into domain errors.
const (
	pgUniqueViolation    = pq.ErrorCode("23505")
	pgExclusionViolation = pq.ErrorCode("23P01")
)

func isPGError(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

// validUUIDs drops ids that cannot be uuids. They can never match a row, and
// passing them through the ::uuid[] cast would turn a caller typo into a cast
// error, which the read path would then mask as a degraded result.
func validUUIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if uuid.Validate(id) == nil {
			out = append(out, id)
		}
	}
	return out
}

type Repository struct {
	db *sqlx.DB
}

func NewConnection(databaseURL string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Ping() error {
	return r.db.Ping()
}

func statusStrings(statuses []ReservationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// FindOverlapping returns every reservation for the tenant whose interval
// intersects [start, end] under the closed-interval rule
// (stored.start <= end AND stored.end >= start) and whose status is in the
// given set. Results are ordered by start_date so conflict lists are stable.
func (r *Repository) FindOverlapping(ctx context.Context, tenantID string, resourceIDs []string, start, end time.Time, statuses []ReservationStatus) ([]*Reservation, error) {
	reservations := []*Reservation{}

	ids := validUUIDs(resourceIDs)
	if len(ids) == 0 {
		return reservations, nil
	}

	query := `
        SELECT * FROM reservations
        WHERE tenant_id = $1
          AND resource_id = ANY($2::uuid[])
          AND status = ANY($3::text[])
          AND start_date <= $4
          AND end_date >= $5
        ORDER BY start_date, id`

	err := r.db.SelectContext(ctx, &reservations, query,
		tenantID, pq.Array(ids), pq.Array(statusStrings(statuses)), end, start)
	return reservations, err
}

// CreateReservation inserts a reservation after re-running the overlap check
// inside the same transaction. The availability endpoints are advisory; this
// is the authoritative check for the no-overlap invariant. On conflict the
// blocking reservations are returned alongside ErrReservationConflict.
func (r *Repository) CreateReservation(ctx context.Context, res *Reservation) ([]*Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// FOR UPDATE locks only existing rows, so when the conflict set is empty
	// two concurrent inserts for the same resource would both see zero
	// conflicts and both commit. The advisory lock serializes writers per
	// (tenant, resource) for the duration of the transaction.
	lock := `SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2::text))`
	if _, err := tx.ExecContext(ctx, lock, res.TenantID, res.ResourceID); err != nil {
		return nil, fmt.Errorf("failed to lock resource: %w", err)
	}

	conflicts := []*Reservation{}
	query := `
        SELECT * FROM reservations
        WHERE tenant_id = $1
          AND resource_id = $2
          AND status = ANY($3::text[])
          AND start_date <= $4
          AND end_date >= $5
        ORDER BY start_date, id
        FOR UPDATE`

	err = tx.SelectContext(ctx, &conflicts, query,
		res.TenantID, res.ResourceID, pq.Array(statusStrings(ActiveStatuses)), res.EndDate, res.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to check for conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		return conflicts, ErrReservationConflict
	}

	now := time.Now()
	res.CreatedAt = now
	res.UpdatedAt = now

	insert := `
        INSERT INTO reservations (
            id, tenant_id, resource_id, customer_id, pet_id, service_id,
            start_date, end_date, status, notes, created_at, updated_at
        ) VALUES (
            :id, :tenant_id, :resource_id, :customer_id, :pet_id, :service_id,
            :start_date, :end_date, :status, :notes, :created_at, :updated_at
        )`

	if _, err := tx.NamedExecContext(ctx, insert, res); err != nil {
		// reservations_no_overlap firing means an active overlapping row
		// slipped past the re-check; the constraint is the final word.
		if isPGError(err, pgExclusionViolation) {
			return nil, ErrReservationConflict
		}
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}
	return nil, nil
}

func (r *Repository) GetReservation(ctx context.Context, id, tenantID string) (*Reservation, error) {
	var res Reservation
	query := `SELECT * FROM reservations WHERE id = $1 AND tenant_id = $2`
	err := r.db.GetContext(ctx, &res, query, id, tenantID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *Repository) GetReservationsByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Reservation, error) {
	reservations := []*Reservation{}
	query := `
        SELECT * FROM reservations
        WHERE tenant_id = $1
        ORDER BY start_date DESC
        LIMIT $2 OFFSET $3`

	err := r.db.SelectContext(ctx, &reservations, query, tenantID, limit, offset)
	return reservations, err
}

func (r *Repository) CountReservationsByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reservations WHERE tenant_id = $1`, tenantID)
	return count, err
}

// UpdateReservationStatus moves a reservation from one lifecycle state to
// another as a compare-and-swap: the update only applies while the row still
// holds the status the caller validated against. Zero rows affected means the
// status moved concurrently (callers resolve the reservation first, so the
// row exists) and surfaces as ErrInvalidTransition.
func (r *Repository) UpdateReservationStatus(ctx context.Context, id, tenantID string, from, to ReservationStatus) error {
	query := `UPDATE reservations SET status = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, to, time.Now(), id, tenantID, from)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Resource inventory (read side)

func (r *Repository) ResourcesByTenant(ctx context.Context, tenantID string) ([]*Resource, error) {
	resources := []*Resource{}
	query := `SELECT * FROM resources WHERE tenant_id = $1 AND active = true ORDER BY name`
	err := r.db.SelectContext(ctx, &resources, query, tenantID)
	return resources, err
}

func (r *Repository) ResourcesByService(ctx context.Context, tenantID, serviceID string) ([]*Resource, error) {
	resources := []*Resource{}
	query := `SELECT * FROM resources WHERE tenant_id = $1 AND service_id = $2 AND active = true ORDER BY name`
	err := r.db.SelectContext(ctx, &resources, query, tenantID, serviceID)
	return resources, err
}

func (r *Repository) GetService(ctx context.Context, id, tenantID string) (*Service, error) {
	var svc Service
	query := `SELECT * FROM services WHERE id = $1 AND tenant_id = $2`
	err := r.db.GetContext(ctx, &svc, query, id, tenantID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &svc, nil
}
