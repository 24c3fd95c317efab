package db

import (
	"errors"
	"time"
)

type ReservationStatus string

const (
	StatusPending        ReservationStatus = "pending"
	StatusConfirmed      ReservationStatus = "confirmed"
	StatusCheckedIn      ReservationStatus = "checked_in"
	StatusPendingPayment ReservationStatus = "pending_payment"
	StatusPartiallyPaid  ReservationStatus = "partially_paid"
	StatusCheckedOut     ReservationStatus = "checked_out"
	StatusCancelled      ReservationStatus = "cancelled"
)

// ActiveStatuses is the single source of truth for which reservation states
// occupy a resource. Both the single and batch availability paths consume this
// set so the no-overlap invariant cannot drift between them.
var ActiveStatuses = []ReservationStatus{
	StatusConfirmed,
	StatusCheckedIn,
	StatusPendingPayment,
	StatusPartiallyPaid,
}

// statusTransitions encodes the allowed reservation lifecycle. Cancellation is
// possible until the pet is checked in.
var statusTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:        {StatusConfirmed, StatusPendingPayment, StatusCancelled},
	StatusPendingPayment: {StatusPartiallyPaid, StatusConfirmed, StatusCancelled},
	StatusPartiallyPaid:  {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn:      {StatusCheckedOut},
	StatusCheckedOut:     {},
	StatusCancelled:      {},
}

func (s ReservationStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Reservation struct {
	ID         string            `json:"id" db:"id"`
	TenantID   string            `json:"-" db:"tenant_id"`
	ResourceID string            `json:"resource_id" db:"resource_id"`
	CustomerID string            `json:"customer_id" db:"customer_id"`
	PetID      string            `json:"pet_id" db:"pet_id"`
	ServiceID  string            `json:"service_id" db:"service_id"`
	StartDate  time.Time         `json:"start_date" db:"start_date"`
	EndDate    time.Time         `json:"end_date" db:"end_date"`
	Status     ReservationStatus `json:"status" db:"status"`
	Notes      string            `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" db:"updated_at"`
}

// Resource is a bookable physical unit (kennel, suite, grooming slot) tracked
// independently for occupancy.
type Resource struct {
	ID          string    `json:"id" db:"id"`
	TenantID    string    `json:"-" db:"tenant_id"`
	ServiceID   string    `json:"service_id" db:"service_id"`
	Name        string    `json:"name" db:"name"`
	Type        string    `json:"type" db:"type"`
	NightlyRate float64   `json:"nightly_rate" db:"nightly_rate"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Service struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"-" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	BaseRate  float64   `json:"base_rate" db:"base_rate"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type WaitlistStatus string

const (
	WaitlistWaiting   WaitlistStatus = "waiting"
	WaitlistNotified  WaitlistStatus = "notified"
	WaitlistExpired   WaitlistStatus = "expired"
	WaitlistConverted WaitlistStatus = "converted"
	WaitlistCancelled WaitlistStatus = "cancelled"
)

type WaitlistEntry struct {
	ID              string         `json:"id" db:"id"`
	TenantID        string         `json:"-" db:"tenant_id"`
	CustomerID      string         `json:"customer_id" db:"customer_id"`
	ServiceID       string         `json:"service_id" db:"service_id"`
	StartDate       time.Time      `json:"start_date" db:"start_date"`
	EndDate         time.Time      `json:"end_date" db:"end_date"`
	NumberOfPets    int            `json:"number_of_pets" db:"number_of_pets"`
	ContactEmail    string         `json:"contact_email" db:"contact_email"`
	ContactPhone    string         `json:"contact_phone" db:"contact_phone"`
	Notes           string         `json:"notes,omitempty" db:"notes"`
	Priority        int            `json:"priority" db:"priority"`
	Status          WaitlistStatus `json:"status" db:"status"`
	NotifyExpiresAt *time.Time     `json:"notify_expires_at,omitempty" db:"notify_expires_at"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

var (
	ErrNotFound = errors.New("record not found")

	// ErrReservationConflict is returned by the write path when the
	// transactional re-check finds an active overlapping reservation.
	ErrReservationConflict = errors.New("reservation conflicts with an existing booking")

	// ErrNoWaitingEntry is returned by waitlist promotion when the bucket has
	// no entry left in the waiting state.
	ErrNoWaitingEntry = errors.New("no waiting entry for slot")

	ErrInvalidTransition = errors.New("invalid reservation status transition")
)
