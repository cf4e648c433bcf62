package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionsnap",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsReserved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sessionsnap",
			Name:      "bookings_reserved_total",
			Help:      "Hourly bookings created by reservations.",
		},
	)

	reservationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sessionsnap",
			Name:      "reservation_conflicts_total",
			Help:      "Reservations rejected because a slot was no longer available.",
		},
	)

	costErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionsnap",
			Name:      "cost_errors_total",
			Help:      "Cost computations that failed, by operation.",
		},
		[]string{"operation"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsReserved, reservationConflicts, costErrors)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func AddBookingsReserved(n int) {
	bookingsReserved.Add(float64(n))
}

func IncReservationConflict() {
	reservationConflicts.Inc()
}

// IncCostError counts a failed billing projection such as "project_cost" or "recipe".
func IncCostError(operation string) {
	costErrors.WithLabelValues(operation).Inc()
}
