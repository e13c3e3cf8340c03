package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksIngested   *prometheus.CounterVec
	ticksPublished  *prometheus.CounterVec
	barsSealed      *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	alertsTriggered *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairwatch_ticks_ingested_total",
				Help: "Total number of ticks accepted into the store",
			},
			[]string{"source", "symbol"},
		),
		ticksPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairwatch_ticks_published_total",
				Help: "Total number of ticks teed to the publisher",
			},
			[]string{"topic", "symbol"},
		),
		barsSealed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairwatch_bars_sealed_total",
				Help: "Total number of sealed bars, synthetic gap fills included",
			},
			[]string{"symbol", "interval"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairwatch_errors_total",
				Help: "Total number of errors and rejections by kind",
			},
			[]string{"type"},
		),
		alertsTriggered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pairwatch_alerts_triggered_total",
				Help: "Total number of alert rule firings",
			},
			[]string{"rule"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pairwatch_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pairwatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTickIngested counts a tick accepted into the store.
func (r *Recorder) RecordTickIngested(source, symbol string) {
	r.ticksIngested.WithLabelValues(source, symbol).Inc()
}

// RecordTickPublished counts a tick teed to the publisher.
func (r *Recorder) RecordTickPublished(topic, symbol string) {
	r.ticksPublished.WithLabelValues(topic, symbol).Inc()
}

// RecordBarsSealed counts bars sealed for a (symbol, interval) series.
func (r *Recorder) RecordBarsSealed(symbol, interval string, count int) {
	r.barsSealed.WithLabelValues(symbol, interval).Add(float64(count))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordAlertTriggered counts an alert rule firing.
func (r *Recorder) RecordAlertTriggered(rule string) {
	r.alertsTriggered.WithLabelValues(rule).Inc()
}
