package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	holdCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomreserve",
			Name:      "hold_created_total",
			Help:      "Count of hold attempts by outcome.",
		},
		[]string{"outcome"},
	)

	reservationConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomreserve",
			Name:      "reservation_confirmed_total",
			Help:      "Count of reservations confirmed.",
		},
	)

	reservationCancelled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomreserve",
			Name:      "reservation_cancelled_total",
			Help:      "Count of reservations cancelled by reason.",
		},
		[]string{"reason"},
	)

	sweepRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomreserve",
			Name:      "sweep_runs_total",
			Help:      "Count of sweeper passes.",
		},
	)

	sweepCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomreserve",
			Name:      "sweep_cancelled_total",
			Help:      "Count of expired holds cancelled by the sweeper.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomreserve",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(holdCreated, reservationConfirmed, reservationCancelled,
			sweepRuns, sweepCancelled, httpRequests)
	})
}

func IncHoldCreated(outcome string) {
	holdCreated.WithLabelValues(outcome).Inc()
}

func IncConfirmed() {
	reservationConfirmed.Inc()
}

func IncCancelled(reason string) {
	reservationCancelled.WithLabelValues(reason).Inc()
}

func IncSweepRun() {
	sweepRuns.Inc()
}

func AddSweepCancelled(n int) {
	sweepCancelled.Add(float64(n))
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
