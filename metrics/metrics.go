package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchMetrics represents the telemetry of the two-stage fan-out
	DispatchMetrics = struct {
		Batches       *prometheus.CounterVec
		ModuleCalls   *prometheus.CounterVec
		ModuleLatency *prometheus.HistogramVec
		Actions       prometheus.Counter
		Results       prometheus.Counter
	}{
		Batches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spectroscope_dispatch_batches_total",
			Help: "Number of batches dispatched, by originating driver",
		}, []string{"driver"}),
		ModuleCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spectroscope_dispatch_module_calls_total",
			Help: "Module consume calls by stage, module and outcome (ok, skipped, failed)",
		}, []string{"stage", "module", "outcome"}),
		ModuleLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spectroscope_dispatch_module_seconds",
			Help:    "Time spent in a module consume call in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "module"}),
		Actions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spectroscope_dispatch_actions_total",
			Help: "Actions emitted by subscribers",
		}),
		Results: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spectroscope_dispatch_results_total",
			Help: "Results returned by plugins",
		}),
	}

	// WatchListMetrics represents the telemetry of the streamed validator set
	WatchListMetrics = struct {
		Size   prometheus.Gauge
		Misses prometheus.Gauge
	}{
		Size: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "spectroscope_watchlist_size",
			Help: "Number of validator keys being streamed",
		}),
		Misses: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "spectroscope_watchlist_misses",
			Help: "Total removals of keys that were not in the watch-list",
		}),
	}

	// StreamMetrics represents the telemetry of the streaming driver
	StreamMetrics = struct {
		Connected  prometheus.Gauge
		Messages   prometheus.Counter
		Reconnects prometheus.Counter
	}{
		Connected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "spectroscope_stream_connected",
			Help: "Stream connection status (1 for connected, 0 for disconnected)",
		}),
		Messages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spectroscope_stream_messages_total",
			Help: "Validator messages received from the stream",
		}),
		Reconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spectroscope_stream_reconnects_total",
			Help: "Stream reconnect attempts",
		}),
	}

	// CommandMetrics represents the telemetry of the command driver
	CommandMetrics = struct {
		Requests *prometheus.CounterVec
	}{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "spectroscope_command_requests_total",
			Help: "Commands handled by request kind",
		}, []string{"request"}),
	}

	// MemoryUsage represents the resident memory of the process in bytes
	MemoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spectroscope_memory_usage_bytes",
		Help: "Current resident memory usage in bytes",
	})
)
