package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keramika",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keramika",
			Name:      "bookings_created_total",
			Help:      "Created bookings by technique.",
		},
		[]string{"technique"},
	)

	giftcardConsumes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keramika",
			Name:      "giftcard_consumes_total",
			Help:      "Giftcard consume attempts by outcome.",
		},
		[]string{"outcome"},
	)

	overridesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "keramika",
			Name:      "booking_overrides_total",
			Help:      "Admin override records written.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, giftcardConsumes, overridesRecorded)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingCreated increments the bookings counter for a technique.
func IncBookingCreated(technique string) {
	bookingsCreated.WithLabelValues(technique).Inc()
}

// IncGiftcardConsume records a consume attempt outcome
// (ok, insufficient_funds, hold_not_found, error).
func IncGiftcardConsume(outcome string) {
	giftcardConsumes.WithLabelValues(outcome).Inc()
}

// IncOverrideRecorded counts a persisted admin override.
func IncOverrideRecorded() {
	overridesRecorded.Inc()
}
