// Package metrics exposes Prometheus collectors for imports, insights, jobs
// and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spend_insight"

// Recorder holds the service collectors.
type Recorder struct {
	gatherer prometheus.Gatherer

	importsTotal         *prometheus.CounterVec
	transactionsImported *prometheus.CounterVec
	insightsTotal        *prometheus.CounterVec
	remoteFailures       *prometheus.CounterVec
	remoteLatency        prometheus.Histogram
	jobsTotal            *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		gatherer: reg,
		importsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Total number of file imports by source and outcome",
			},
			[]string{"source", "status"},
		),
		transactionsImported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_imported_total",
				Help:      "Total number of transactions produced by imports",
			},
			[]string{"source"},
		),
		insightsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "insights_total",
				Help:      "Total number of insights returned by source",
			},
			[]string{"source"},
		),
		remoteFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_insight_failures_total",
				Help:      "Total number of remote insight failures by reason",
			},
			[]string{"reason"},
		),
		remoteLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_insight_duration_seconds",
				Help:      "Latency of successful remote insight calls",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15},
			},
		),
		jobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Total number of background jobs by type and outcome",
			},
			[]string{"type", "status"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// RecordImport counts one import and the transactions it produced.
func (r *Recorder) RecordImport(source string, transactions int) {
	status := "ok"
	if transactions == 0 {
		status = "empty"
	}
	r.importsTotal.WithLabelValues(source, status).Inc()
	r.transactionsImported.WithLabelValues(source).Add(float64(transactions))
}

// RecordInsight counts one insight by source (local or remote).
func (r *Recorder) RecordInsight(source string) {
	r.insightsTotal.WithLabelValues(source).Inc()
}

// RecordRemoteFailure counts one failed remote insight call.
func (r *Recorder) RecordRemoteFailure(reason string) {
	r.remoteFailures.WithLabelValues(reason).Inc()
}

// ObserveRemoteLatency records the duration of a successful remote call.
func (r *Recorder) ObserveRemoteLatency(d time.Duration) {
	r.remoteLatency.Observe(d.Seconds())
}

// RecordJob counts one finished background job.
func (r *Recorder) RecordJob(jobType, status string) {
	r.jobsTotal.WithLabelValues(jobType, status).Inc()
}

// ObserveHTTP records one served request.
func (r *Recorder) ObserveHTTP(method string, status int, d time.Duration) {
	r.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}
