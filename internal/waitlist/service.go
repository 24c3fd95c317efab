// Package waitlist implements FIFO waitlist enrollment and the
// promotion/expiration state machine: waiting -> notified -> converted, or
// expired with the next entry in priority order promoted in its place.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawsuite/resort-api/internal/db"
	"github.com/pawsuite/resort-api/internal/metrics"
	"github.com/pawsuite/resort-api/internal/queue"
)

var (
	ErrMissingTenant   = errors.New("tenant context required")
	ErrMissingCustomer = errors.New("customer id is required")
	ErrMissingService  = errors.New("service id is required")
	ErrInvalidContact  = errors.New("contact email and phone are both required")
	ErrInvalidRange    = errors.New("endDate must not be before startDate")
	ErrInvalidPets     = errors.New("numberOfPets must be positive")
)

// Store is the persistence contract; *db.Repository satisfies it.
type Store interface {
	CreateWaitlistEntry(ctx context.Context, e *db.WaitlistEntry) error
	PromoteNextWaiting(ctx context.Context, tenantID, serviceID string, start, end, notifyUntil time.Time) (*db.WaitlistEntry, error)
	ExpireOverdueWaitlist(ctx context.Context, now time.Time) ([]*db.WaitlistEntry, error)
	ConvertWaitlistEntry(ctx context.Context, id, tenantID string) error
	WaitlistByService(ctx context.Context, tenantID, serviceID string) ([]*db.WaitlistEntry, error)
}

// Notifier delivers promotion notifications out of process.
type Notifier interface {
	Push(ctx context.Context, job *queue.Job) error
}

type JoinRequest struct {
	TenantID     string
	CustomerID   string
	ServiceID    string
	StartDate    time.Time
	EndDate      time.Time
	NumberOfPets int
	ContactEmail string
	ContactPhone string
	Notes        string
}

type Service struct {
	store         Store
	notifier      Notifier
	confirmWindow time.Duration
	logger        *zap.Logger
	metrics       *metrics.Collector
	now           func() time.Time
}

func NewService(store Store, notifier Notifier, confirmWindow time.Duration, logger *zap.Logger, collector *metrics.Collector) *Service {
	if confirmWindow <= 0 {
		confirmWindow = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:         store,
		notifier:      notifier,
		confirmWindow: confirmWindow,
		logger:        logger,
		metrics:       collector,
		now:           time.Now,
	}
}

// Join validates the request and enrolls the customer at the back of the
// (tenant, service, range) bucket. The UI enforces contact details too, but
// they are re-validated here: a waitlist entry nobody can be reached on is
// dead weight.
func (s *Service) Join(ctx context.Context, req *JoinRequest) (*db.WaitlistEntry, error) {
	if req.TenantID == "" {
		return nil, ErrMissingTenant
	}
	if req.CustomerID == "" {
		return nil, ErrMissingCustomer
	}
	if req.ServiceID == "" {
		return nil, ErrMissingService
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, ErrInvalidRange
	}
	if req.NumberOfPets <= 0 {
		return nil, ErrInvalidPets
	}
	if err := validateContact(req.ContactEmail, req.ContactPhone); err != nil {
		return nil, err
	}

	entry := &db.WaitlistEntry{
		ID:           uuid.New().String(),
		TenantID:     req.TenantID,
		CustomerID:   req.CustomerID,
		ServiceID:    req.ServiceID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		NumberOfPets: req.NumberOfPets,
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		Notes:        req.Notes,
	}

	if err := s.store.CreateWaitlistEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to join waitlist: %w", err)
	}

	s.logger.Info("Waitlist entry created",
		zap.String("entry_id", entry.ID),
		zap.String("tenant_id", entry.TenantID),
		zap.String("service_id", entry.ServiceID),
		zap.Int("priority", entry.Priority),
	)
	if s.metrics != nil {
		s.metrics.RecordWaitlistJoin(entry.TenantID)
	}
	return entry, nil
}

// HandleCancellation offers a freed slot to the highest-priority waiting
// entry overlapping the cancelled reservation's range. The store-side lock
// guarantees at most one winner even when several cancellations race.
func (s *Service) HandleCancellation(ctx context.Context, res *db.Reservation) error {
	notifyUntil := s.now().Add(s.confirmWindow)

	entry, err := s.store.PromoteNextWaiting(ctx, res.TenantID, res.ServiceID, res.StartDate, res.EndDate, notifyUntil)
	if errors.Is(err, db.ErrNoWaitingEntry) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to promote waitlist entry: %w", err)
	}

	s.logger.Info("Waitlist entry promoted",
		zap.String("entry_id", entry.ID),
		zap.String("tenant_id", entry.TenantID),
		zap.String("freed_reservation_id", res.ID),
		zap.Time("notify_until", notifyUntil),
	)
	if s.metrics != nil {
		s.metrics.RecordWaitlistPromotion("cancellation")
	}
	s.notify(ctx, entry)
	return nil
}

// ExpireOverdue runs one sweep of the promotion loop: entries whose
// confirmation window lapsed become expired, and each affected bucket's next
// waiting entry is notified. Returns the number of expired entries.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now()

	expired, err := s.store.ExpireOverdueWaitlist(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire waitlist entries: %w", err)
	}
	if s.metrics != nil && len(expired) > 0 {
		s.metrics.RecordWaitlistExpired(len(expired))
	}

	for _, e := range expired {
		s.logger.Info("Waitlist entry expired",
			zap.String("entry_id", e.ID),
			zap.String("tenant_id", e.TenantID),
		)

		next, err := s.store.PromoteNextWaiting(ctx, e.TenantID, e.ServiceID, e.StartDate, e.EndDate, now.Add(s.confirmWindow))
		if errors.Is(err, db.ErrNoWaitingEntry) {
			continue
		}
		if err != nil {
			s.logger.Error("Failed to promote successor after expiry",
				zap.Error(err),
				zap.String("expired_entry_id", e.ID),
			)
			continue
		}
		if s.metrics != nil {
			s.metrics.RecordWaitlistPromotion("expiry")
		}
		s.notify(ctx, next)
	}
	return len(expired), nil
}

// Convert marks a notified entry as converted once its reservation is booked.
func (s *Service) Convert(ctx context.Context, entryID, tenantID string) error {
	if tenantID == "" {
		return ErrMissingTenant
	}
	if err := s.store.ConvertWaitlistEntry(ctx, entryID, tenantID); err != nil {
		return fmt.Errorf("failed to convert waitlist entry: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, tenantID, serviceID string) ([]*db.WaitlistEntry, error) {
	if tenantID == "" {
		return nil, ErrMissingTenant
	}
	if serviceID == "" {
		return nil, ErrMissingService
	}
	entries, err := s.store.WaitlistByService(ctx, tenantID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	return entries, nil
}

func (s *Service) notify(ctx context.Context, entry *db.WaitlistEntry) {
	if s.notifier == nil {
		return
	}

	job := &queue.Job{
		ID:           fmt.Sprintf("%s_%s_%d", queue.TypeWaitlistNotify, entry.ID, s.now().Unix()),
		Type:         queue.TypeWaitlistNotify,
		TenantID:     entry.TenantID,
		EntryID:      entry.ID,
		CustomerID:   entry.CustomerID,
		ServiceID:    entry.ServiceID,
		ContactEmail: entry.ContactEmail,
		ContactPhone: entry.ContactPhone,
		Priority:     entry.Priority,
		CreatedAt:    s.now(),
	}
	if entry.NotifyExpiresAt != nil {
		job.NotifyUntil = *entry.NotifyExpiresAt
	}

	// Notification delivery is best effort; the entry is already notified in
	// the store and the expiry sweep will move the queue along regardless.
	if err := s.notifier.Push(ctx, job); err != nil {
		s.logger.Error("Failed to enqueue waitlist notification",
			zap.Error(err),
			zap.String("entry_id", entry.ID),
		)
	}
}

func validateContact(email, phone string) error {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if email == "" || phone == "" {
		return ErrInvalidContact
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidContact
	}
	return nil
}
