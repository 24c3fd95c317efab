package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	// Availability
	availabilityChecks   *prometheus.CounterVec
	availabilityDegraded *prometheus.CounterVec
	batchSize            prometheus.Histogram

	// Reservations
	reservationConflicts *prometheus.CounterVec
	reservationsCreated  *prometheus.CounterVec

	// Waitlist
	waitlistJoins      *prometheus.CounterVec
	waitlistPromotions *prometheus.CounterVec
	waitlistExpired    prometheus.Counter

	// Alternatives
	alternativesSuggested prometheus.Histogram
}

func NewCollector() *Collector {
	return &Collector{
		availabilityChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "resort_availability_checks_total",
			Help: "Availability checks evaluated, by tenant and outcome",
		}, []string{"tenant_id", "available"}),

		// Degraded results are genuine "availability unknown, defaulted to
		// available" responses. Kept separate so they are never mistaken for
		// real availability in dashboards.
		availabilityDegraded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "resort_availability_degraded_total",
			Help: "Availability checks answered in degraded mode after a store failure",
		}, []string{"tenant_id"}),

		batchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "resort_availability_batch_size",
			Help:    "Number of resources per batch availability check",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		}),

		reservationConflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "resort_reservation_conflicts_total",
			Help: "Reservation writes rejected by the transactional overlap re-check",
		}, []string{"tenant_id"}),

		reservationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "resort_reservations_created_total",
			Help: "Reservations successfully created",
		}, []string{"tenant_id"}),

		waitlistJoins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "resort_waitlist_joins_total",
			Help: "Waitlist enrollments",
		}, []string{"tenant_id"}),

		waitlistPromotions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "resort_waitlist_promotions_total",
			Help: "Waitlist entries promoted to notified, by trigger",
		}, []string{"trigger"}),

		waitlistExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "resort_waitlist_expired_total",
			Help: "Notified waitlist entries whose confirmation window lapsed",
		}),

		alternativesSuggested: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "resort_alternatives_suggested",
			Help:    "Number of alternative date suggestions returned per request",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		}),
	}
}

func (c *Collector) RecordAvailabilityCheck(tenantID string, available bool) {
	outcome := "false"
	if available {
		outcome = "true"
	}
	c.availabilityChecks.WithLabelValues(tenantID, outcome).Inc()
}

func (c *Collector) RecordDegradedCheck(tenantID string) {
	c.availabilityDegraded.WithLabelValues(tenantID).Inc()
}

func (c *Collector) RecordBatchSize(n int) {
	c.batchSize.Observe(float64(n))
}

func (c *Collector) RecordReservationConflict(tenantID string) {
	c.reservationConflicts.WithLabelValues(tenantID).Inc()
}

func (c *Collector) RecordReservationCreated(tenantID string) {
	c.reservationsCreated.WithLabelValues(tenantID).Inc()
}

func (c *Collector) RecordWaitlistJoin(tenantID string) {
	c.waitlistJoins.WithLabelValues(tenantID).Inc()
}

func (c *Collector) RecordWaitlistPromotion(trigger string) {
	c.waitlistPromotions.WithLabelValues(trigger).Inc()
}

func (c *Collector) RecordWaitlistExpired(n int) {
	c.waitlistExpired.Add(float64(n))
}

func (c *Collector) RecordAlternatives(n int) {
	c.alternativesSuggested.Observe(float64(n))
}
