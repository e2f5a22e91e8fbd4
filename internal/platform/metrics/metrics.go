package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the session core.
type Metrics struct {
	ValidationResults  *prometheus.CounterVec
	DataCallRetries    prometheus.Counter
	RealtimeReconnects prometheus.Counter
	RealtimeDropped    prometheus.Counter
	RealtimeMessages   prometheus.Counter
}

// New creates and registers all metrics against reg. Passing nil skips
// registration, which keeps tests free of duplicate-registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ValidationResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "portalcore_session_validations_total",
			Help: "Session validation outcomes by result.",
		}, []string{"result"}),
		DataCallRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "portalcore_data_call_retries_total",
			Help: "Retries performed for steady-state data calls.",
		}),
		RealtimeReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "portalcore_realtime_reconnects_total",
			Help: "Reconnection attempts made by the realtime channel.",
		}),
		RealtimeDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "portalcore_realtime_dropped_frames_total",
			Help: "Inbound realtime frames dropped because they failed to decode.",
		}),
		RealtimeMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "portalcore_realtime_messages_total",
			Help: "Inbound realtime frames decoded successfully.",
		}),
	}
}
