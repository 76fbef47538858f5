package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "firealert_"

	ResultOK         = "ok"
	ResultSuppressed = "suppressed"
	ResultAlert      = "alert"
	ResultError      = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	alertEvents *prometheus.CounterVec

	streamClients prometheus.Gauge
	streamDrops   prometheus.Counter
)

// Init registers the service metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total device ingest requests by result",
			},
			[]string{"result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Device ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		alertEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_events_total",
				Help: "Alert lifecycle events by type",
			},
			[]string{"type"},
		)
		streamClients = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stream_clients",
				Help: "Currently connected live-update subscribers",
			},
		)
		streamDrops = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "stream_dropped_events_total",
				Help: "Events dropped because a subscriber buffer was full",
			},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestLatency,
			alertEvents,
			streamClients,
			streamDrops,
		)
	})
}

// ObserveIngest records one ingest request.
func ObserveIngest(result string, seconds float64) {
	if ingestRequests == nil {
		return
	}
	ingestRequests.WithLabelValues(result).Inc()
	ingestLatency.WithLabelValues(result).Observe(seconds)
}

// IncAlertEvent counts an alert lifecycle event.
func IncAlertEvent(eventType string) {
	if alertEvents == nil {
		return
	}
	alertEvents.WithLabelValues(eventType).Inc()
}

// IncStreamClients tracks a subscriber connect.
func IncStreamClients() {
	if streamClients != nil {
		streamClients.Inc()
	}
}

// DecStreamClients tracks a subscriber disconnect.
func DecStreamClients() {
	if streamClients != nil {
		streamClients.Dec()
	}
}

// IncStreamDrop counts a dropped fan-out event.
func IncStreamDrop() {
	if streamDrops != nil {
		streamDrops.Inc()
	}
}
