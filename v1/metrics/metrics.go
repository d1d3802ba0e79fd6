package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquireAttempts tracks the number of acquire attempts.
	AcquireAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hasp_acquire_attempts_total",
		Help: "Total number of lock acquire attempts",
	})
	// Acquired tracks the number of successful acquisitions.
	Acquired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hasp_acquired_total",
		Help: "Total number of successful lock acquisitions",
	})
	// Conflicts tracks conditional writes lost to a concurrent update.
	Conflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hasp_version_conflicts_total",
		Help: "Total number of conditional writes lost to a concurrent update",
	})
	// Takeovers tracks acquisitions of an expired or released lock.
	Takeovers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hasp_expired_takeovers_total",
		Help: "Total number of takeovers of an expired or released lock",
	})
	// Released tracks the number of releases.
	Released = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hasp_released_total",
		Help: "Total number of lock releases",
	})
	// Renewals tracks the number of lease renewals.
	Renewals = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hasp_renewals_total",
		Help: "Total number of lock lease renewals",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoordinatorMetrics registers lock coordinator metrics on the
// provided registry.
func RegisterCoordinatorMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AcquireAttempts, Acquired, Conflicts, Takeovers, Released, Renewals)
}
