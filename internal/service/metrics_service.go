package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the assessment flow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheLookups    *prometheus.CounterVec

	sessionsStarted       prometheus.Counter
	sessionsFinalized     *prometheus.CounterVec
	tokenRejections       *prometheus.CounterVec
	tokensIssued          prometheus.Counter
	tokensPurged          prometheus.Counter
	insufficientQuestions prometheus.Counter
	reaperSweeps          *prometheus.CounterVec
	eventsPublished       *prometheus.CounterVec
	eventsDiscarded       *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_sessions_started_total",
			Help: "Test sessions started",
		}),
		sessionsFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_sessions_finalized_total",
			Help: "Test sessions finalized by session status and application outcome",
		}, []string{"status", "outcome"}),
		tokenRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_token_rejections_total",
			Help: "Token verify or consume attempts rejected, by reason",
		}, []string{"reason"}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_tokens_issued_total",
			Help: "Test tokens issued",
		}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_tokens_purged_total",
			Help: "Expired unused tokens deleted by the reaper",
		}),
		insufficientQuestions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_insufficient_questions_total",
			Help: "Session starts refused because the question bank could not satisfy the selection",
		}),
		reaperSweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_reaper_sweeps_total",
			Help: "Reaper sweeps by result",
		}, []string{"result"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_events_published_total",
			Help: "Notification events by type and result",
		}, []string{"type", "result"}),
		eventsDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_events_discarded_total",
			Help: "Notification events dropped after exhausting delivery attempts",
		}, []string{"type"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency, m.cacheLookups,
		m.sessionsStarted, m.sessionsFinalized, m.tokenRejections, m.tokensIssued, m.tokensPurged,
		m.insufficientQuestions, m.reaperSweeps, m.eventsPublished, m.eventsDiscarded, goroutines)

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

func (m *MetricsService) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *MetricsService) SessionFinalized(status, outcome string) {
	if m == nil {
		return
	}
	m.sessionsFinalized.WithLabelValues(status, outcome).Inc()
}

func (m *MetricsService) TokenRejected(reason string) {
	if m == nil {
		return
	}
	m.tokenRejections.WithLabelValues(reason).Inc()
}

func (m *MetricsService) TokenIssued() {
	if m == nil {
		return
	}
	m.tokensIssued.Inc()
}

func (m *MetricsService) TokensPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensPurged.Add(float64(n))
}

func (m *MetricsService) InsufficientQuestions() {
	if m == nil {
		return
	}
	m.insufficientQuestions.Inc()
}

func (m *MetricsService) ReaperSweep(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.reaperSweeps.WithLabelValues("ok").Inc()
		return
	}
	m.reaperSweeps.WithLabelValues("error").Inc()
}

func (m *MetricsService) EventPublished(eventType string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(eventType, result).Inc()
}

func (m *MetricsService) EventDiscarded(eventType string) {
	if m == nil {
		return
	}
	m.eventsDiscarded.WithLabelValues(eventType).Inc()
}
