// Package metrics exposes Prometheus collectors for the HTTP server and the forecaster.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Forecast request outcomes.
const (
	OutcomeOK               = "ok"
	OutcomeInvalidRequest   = "invalid_request"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeRateLimited      = "rate_limited"
	OutcomeError            = "error"
)

// Metrics owns a private registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	forecastRequests *prometheus.CounterVec
	fitDuration      *prometheus.HistogramVec
	datasetRecords   prometheus.Gauge
	datasetCrops     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "HTTP requests by path, method and status"},
			[]string{"path", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: []float64{0.005, 0.02, 0.1, 0.3, 1, 2, 5},
			},
			[]string{"path"},
		),
		forecastRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "forecast_requests_total", Help: "Forecast requests by outcome"},
			[]string{"outcome"},
		),
		fitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecast_fit_duration_seconds",
				Help:    "Model fitting latency",
				Buckets: []float64{0.001, 0.005, 0.02, 0.1, 0.3, 1, 3},
			},
			[]string{"success"},
		),
		datasetRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "dataset_records", Help: "Sales records loaded at startup"},
		),
		datasetCrops: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "dataset_crops", Help: "Distinct crops in the dataset"},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.forecastRequests,
		m.fitDuration,
		m.datasetRecords,
		m.datasetCrops,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(path, method string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path).Observe(d.Seconds())
}

// RecordForecast counts a forecast request by outcome.
func (m *Metrics) RecordForecast(outcome string) {
	m.forecastRequests.WithLabelValues(outcome).Inc()
}

// ObserveFit records model fitting latency. Crop is not a label to keep cardinality bounded.
func (m *Metrics) ObserveFit(_ string, d time.Duration, err error) {
	m.fitDuration.WithLabelValues(strconv.FormatBool(err == nil)).Observe(d.Seconds())
}

// SetDataset publishes the dataset size.
func (m *Metrics) SetDataset(records, crops int) {
	m.datasetRecords.Set(float64(records))
	m.datasetCrops.Set(float64(crops))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
