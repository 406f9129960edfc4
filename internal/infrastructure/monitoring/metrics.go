package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
//
// Every recording method is safe on a nil *Metrics so components can run
// without instrumentation in tests.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// Session metrics
	SessionsActive   *prometheus.GaugeVec
	SessionsCreated  *prometheus.CounterVec
	SessionsAttached prometheus.Counter
	SessionExits     *prometheus.CounterVec
	BytesOut         prometheus.Counter
	BytesIn          prometheus.Counter

	// Multiplexer metrics
	TmuxCommands  *prometheus.CounterVec
	OrphansSwept  prometheus.Counter
	SweepFailures prometheus.Counter

	// Descriptor metrics
	DescriptorsSaved    prometheus.Counter
	DescriptorsRestored prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time
}

// NewMetrics creates a metrics collector registered with reg. A nil reg uses
// the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyhost_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ptyhost_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		// Service metrics
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyhost_service_calls_total",
				Help: "Total number of tool executions",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ptyhost_service_duration_seconds",
				Help:    "Tool execution duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),
		ServiceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyhost_service_errors_total",
				Help: "Total number of failed tool executions",
			},
			[]string{"service", "method", "error_type"},
		),

		// Session metrics
		SessionsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ptyhost_sessions_active",
				Help: "Number of tracked terminal sessions",
			},
			[]string{"backend"},
		),
		SessionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyhost_sessions_created_total",
				Help: "Total number of terminal sessions created",
			},
			[]string{"backend"},
		),
		SessionsAttached: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyhost_sessions_attached_total",
				Help: "Total number of reattachments to multiplexer sessions",
			},
		),
		SessionExits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyhost_session_exits_total",
				Help: "Total number of exit events published",
			},
			[]string{"code_known"},
		),
		BytesOut: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyhost_output_bytes_total",
				Help: "Bytes read from session terminals",
			},
		),
		BytesIn: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyhost_input_bytes_total",
				Help: "Bytes written to session terminals",
			},
		),

		// Multiplexer metrics
		TmuxCommands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyhost_tmux_commands_total",
				Help: "Total number of tmux control commands",
			},
			[]string{"command", "status"},
		),
		OrphansSwept: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyhost_orphans_swept_total",
				Help: "Multiplexer sessions killed by the orphan sweep",
			},
		),
		SweepFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyhost_orphan_sweep_failures_total",
				Help: "Orphaned multiplexer sessions the sweep failed to kill",
			},
		),

		// Descriptor metrics
		DescriptorsSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyhost_descriptors_saved_total",
				Help: "Total number of session descriptors saved",
			},
		),
		DescriptorsRestored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ptyhost_descriptors_restored_total",
				Help: "Total number of session descriptors restored",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ptyhost_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ptyhost_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ptyhost_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordServiceCall records a tool execution
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordServiceError records a failed tool execution
func (m *Metrics) RecordServiceError(service, method, errorType string) {
	if m == nil {
		return
	}
	m.ServiceErrors.WithLabelValues(service, method, errorType).Inc()
}

// SetSessionsActive sets the tracked session count for a backend kind
func (m *Metrics) SetSessionsActive(backend string, count int) {
	if m == nil {
		return
	}
	m.SessionsActive.WithLabelValues(backend).Set(float64(count))
}

// IncSessionsCreated counts a newly created session
func (m *Metrics) IncSessionsCreated(backend string) {
	if m == nil {
		return
	}
	m.SessionsCreated.WithLabelValues(backend).Inc()
}

// IncSessionsAttached counts a reattachment
func (m *Metrics) IncSessionsAttached() {
	if m == nil {
		return
	}
	m.SessionsAttached.Inc()
}

// RecordExit counts a published exit event
func (m *Metrics) RecordExit(codeKnown bool) {
	if m == nil {
		return
	}
	label := "false"
	if codeKnown {
		label = "true"
	}
	m.SessionExits.WithLabelValues(label).Inc()
}

// AddBytesOut counts terminal output bytes
func (m *Metrics) AddBytesOut(n int) {
	if m == nil {
		return
	}
	m.BytesOut.Add(float64(n))
}

// AddBytesIn counts terminal input bytes
func (m *Metrics) AddBytesIn(n int) {
	if m == nil {
		return
	}
	m.BytesIn.Add(float64(n))
}

// RecordTmuxCommand counts a tmux control command by subcommand
func (m *Metrics) RecordTmuxCommand(command string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.TmuxCommands.WithLabelValues(command, status).Inc()
}

// RecordSweep records the outcome of an orphan sweep
func (m *Metrics) RecordSweep(killed, failed int) {
	if m == nil {
		return
	}
	m.OrphansSwept.Add(float64(killed))
	m.SweepFailures.Add(float64(failed))
}

// AddDescriptorsSaved counts saved descriptors
func (m *Metrics) AddDescriptorsSaved(n int) {
	if m == nil {
		return
	}
	m.DescriptorsSaved.Add(float64(n))
}

// AddDescriptorsRestored counts restored descriptors
func (m *Metrics) AddDescriptorsRestored(n int) {
	if m == nil {
		return
	}
	m.DescriptorsRestored.Add(float64(n))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}
