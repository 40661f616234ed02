package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics (ops endpoints)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fileshare_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Bot metrics
	UpdatesHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_updates_handled_total",
			Help: "Total inbound updates handled",
		},
		[]string{"kind"}, // text, command, media, callback, other
	)

	HandlerPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fileshare_handler_panics_total",
			Help: "Total panics recovered while handling updates",
		},
	)

	// Business metrics
	GateChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_gate_checks_total",
			Help: "Total membership gate evaluations",
		},
		[]string{"result"}, // admitted, denied
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_deliveries_total",
			Help: "Total batch delivery requests",
		},
		[]string{"outcome"}, // delivered, blocked, not_found
	)

	RelayedFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_relayed_files_total",
			Help: "Total archive files relayed to users",
		},
		[]string{"result"}, // success, failure
	)

	BatchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fileshare_batches_created_total",
			Help: "Total batches created",
		},
	)

	ArchivedFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_archived_files_total",
			Help: "Total files forwarded into the archive",
		},
		[]string{"kind"},
	)

	BroadcastRecipients = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileshare_broadcast_recipients_total",
			Help: "Total broadcast recipients by result",
		},
		[]string{"result"}, // success, blocked, failed
	)

	// Infrastructure metrics
	RelayLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fileshare_relay_latency_seconds",
			Help:    "Latency of a single message relay",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)
