package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Auth lifecycle metrics.
var (
	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	logoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authcore_logouts_total",
		Help: "Local logouts, explicit or timeout-driven.",
	})

	sessionWarningsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authcore_session_warnings_total",
		Help: "Expiry warning notifications delivered.",
	})

	sessionTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authcore_session_timeouts_total",
		Help: "Sessions ended by token expiry.",
	})

	sessionExtensionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authcore_session_extensions_total",
			Help: "Session extension attempts by result.",
		},
		[]string{"result"},
	)

	stateRecoveriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authcore_state_recoveries_total",
		Help: "Credential purges triggered by inconsistent or corrupt state.",
	})

	schedulerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "authcore_scheduler_state",
		Help: "Current session scheduler state (0 idle, 1 active, 2 warning).",
	})
)

var initOnce sync.Once

// Init registers the auth core metrics in the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			loginsTotal,
			logoutsTotal,
			sessionWarningsTotal,
			sessionTimeoutsTotal,
			sessionExtensionsTotal,
			stateRecoveriesTotal,
			schedulerState,
		)
	})
}

// Result labels shared by login and extension counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

func RecordLogin(result string)     { loginsTotal.WithLabelValues(result).Inc() }
func RecordLogout()                 { logoutsTotal.Inc() }
func RecordSessionWarning()         { sessionWarningsTotal.Inc() }
func RecordSessionTimeout()         { sessionTimeoutsTotal.Inc() }
func RecordExtension(result string) { sessionExtensionsTotal.WithLabelValues(result).Inc() }
func RecordStateRecovery()          { stateRecoveriesTotal.Inc() }

// SetSchedulerState publishes the scheduler's current state for dashboards.
func SetSchedulerState(v float64) { schedulerState.Set(v) }
