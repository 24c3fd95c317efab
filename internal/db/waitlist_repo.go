package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Waitlist operations. Priority assignment and promotion both run inside
// transactions so concurrent joins or cancellations cannot hand the same slot
// to two customers.

// CreateWaitlistEntry persists a new entry with the next sequential priority
// in its (tenant, service, date range) bucket. Lower priority is served first.
// A join that loses the priority race to a concurrent join retries once and
// takes the next position.
func (r *Repository) CreateWaitlistEntry(ctx context.Context, e *WaitlistEntry) error {
	err := r.insertWaitlistEntry(ctx, e)
	if isPGError(err, pgUniqueViolation) {
		err = r.insertWaitlistEntry(ctx, e)
	}
	return err
}

func (r *Repository) insertWaitlistEntry(ctx context.Context, e *WaitlistEntry) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var maxPriority int
	query := `
        SELECT COALESCE(MAX(priority), 0) FROM waitlist_entries
        WHERE tenant_id = $1 AND service_id = $2 AND start_date = $3 AND end_date = $4`

	if err := tx.GetContext(ctx, &maxPriority, query, e.TenantID, e.ServiceID, e.StartDate, e.EndDate); err != nil {
		return fmt.Errorf("failed to read bucket priority: %w", err)
	}

	now := time.Now()
	e.Priority = maxPriority + 1
	e.Status = WaitlistWaiting
	e.CreatedAt = now
	e.UpdatedAt = now

	// The unique index on (tenant_id, service_id, start_date, end_date,
	// priority) turns a lost race into a unique violation instead of a
	// duplicate position; the caller retries on it.
	insert := `
        INSERT INTO waitlist_entries (
            id, tenant_id, customer_id, service_id, start_date, end_date,
            number_of_pets, contact_email, contact_phone, notes, priority,
            status, created_at, updated_at
        ) VALUES (
            :id, :tenant_id, :customer_id, :service_id, :start_date, :end_date,
            :number_of_pets, :contact_email, :contact_phone, :notes, :priority,
            :status, :created_at, :updated_at
        )`

	if _, err := tx.NamedExecContext(ctx, insert, e); err != nil {
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}

	return tx.Commit()
}

// PromoteNextWaiting moves the highest-priority waiting entry whose requested
// range overlaps [start, end] into the notified state and stamps its
// confirmation deadline. FOR UPDATE SKIP LOCKED keeps two promoters off the
// same row, and the NOT EXISTS guard skips buckets with a committed
// notification. Neither sees a concurrent promoter's uncommitted 'notified'
// row, so the partial unique index idx_waitlist_one_notified is the real
// arbiter: the losing update blocks on it and fails once the winner commits,
// surfacing here as ErrNoWaitingEntry.
func (r *Repository) PromoteNextWaiting(ctx context.Context, tenantID, serviceID string, start, end, notifyUntil time.Time) (*WaitlistEntry, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var entry WaitlistEntry
	query := `
        SELECT * FROM waitlist_entries w
        WHERE w.tenant_id = $1
          AND w.service_id = $2
          AND w.status = 'waiting'
          AND w.start_date <= $3
          AND w.end_date >= $4
          AND NOT EXISTS (
              SELECT 1 FROM waitlist_entries n
              WHERE n.tenant_id = w.tenant_id
                AND n.service_id = w.service_id
                AND n.start_date = w.start_date
                AND n.end_date = w.end_date
                AND n.status = 'notified'
          )
        ORDER BY w.priority
        LIMIT 1
        FOR UPDATE SKIP LOCKED`

	err = tx.GetContext(ctx, &entry, query, tenantID, serviceID, end, start)
	if err == sql.ErrNoRows {
		return nil, ErrNoWaitingEntry
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select waiting entry: %w", err)
	}

	now := time.Now()
	update := `
        UPDATE waitlist_entries
        SET status = 'notified', notify_expires_at = $1, updated_at = $2
        WHERE id = $3`

	if _, err := tx.ExecContext(ctx, update, notifyUntil, now, entry.ID); err != nil {
		if isPGError(err, pgUniqueViolation) {
			return nil, ErrNoWaitingEntry
		}
		return nil, fmt.Errorf("failed to notify waitlist entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit promotion: %w", err)
	}

	entry.Status = WaitlistNotified
	entry.NotifyExpiresAt = &notifyUntil
	entry.UpdatedAt = now
	return &entry, nil
}

// ExpireOverdueWaitlist transitions every notified entry whose confirmation
// window has lapsed to expired and returns the affected entries so the caller
// can promote each bucket's successor.
func (r *Repository) ExpireOverdueWaitlist(ctx context.Context, now time.Time) ([]*WaitlistEntry, error) {
	expired := []*WaitlistEntry{}
	query := `
        UPDATE waitlist_entries
        SET status = 'expired', updated_at = $1
        WHERE status = 'notified' AND notify_expires_at < $1
        RETURNING *`

	err := r.db.SelectContext(ctx, &expired, query, now)
	return expired, err
}

// ConvertWaitlistEntry marks a notified entry as converted once the customer
// confirms and a reservation has been written for them.
func (r *Repository) ConvertWaitlistEntry(ctx context.Context, id, tenantID string) error {
	query := `
        UPDATE waitlist_entries
        SET status = 'converted', updated_at = $1
        WHERE id = $2 AND tenant_id = $3 AND status = 'notified'`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id, tenantID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) WaitlistByService(ctx context.Context, tenantID, serviceID string) ([]*WaitlistEntry, error) {
	entries := []*WaitlistEntry{}
	query := `
        SELECT * FROM waitlist_entries
        WHERE tenant_id = $1 AND service_id = $2 AND status IN ('waiting', 'notified')
        ORDER BY start_date, priority`

	err := r.db.SelectContext(ctx, &entries, query, tenantID, serviceID)
	return entries, err
}
