package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/michaelkatsweb/Heronix-Scheduler-sub015/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface, the solver and the allocator.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	solveDuration     *prometheus.HistogramVec
	sectionsAssigned  *prometheus.GaugeVec
	sectionsBlocked   *prometheus.GaugeVec
	solveSoftPenalty  *prometheus.GaugeVec
	decisionsTotal    *prometheus.CounterVec
	promotionsTotal   prometheus.Counter
	waitlistDepth     *prometheus.GaugeVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	solveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solve_duration_seconds",
		Help:    "Duration of timetable solve passes",
		Buckets: []float64{0.05, 0.25, 1, 5, 15, 30, 60},
	}, []string{"mode"})

	sectionsAssigned := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schedule_sections_assigned",
		Help: "Sections placed by the latest solve per term",
	}, []string{"term"})

	sectionsBlocked := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schedule_sections_unassigned",
		Help: "Sections the latest solve could not place per term",
	}, []string{"term"})

	solveSoftPenalty := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "schedule_soft_penalty",
		Help: "Soft-constraint penalty of the latest solve per term",
	}, []string{"term"})

	decisionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_decisions_total",
		Help: "Allocator decisions by resulting status",
	}, []string{"status"})

	promotionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollment_promotions_total",
		Help: "Waitlist promotions granted",
	})

	waitlistDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "enrollment_waitlist_depth",
		Help: "Current waitlist length per section",
	}, []string{"section"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, solveDuration, sectionsAssigned,
		sectionsBlocked, solveSoftPenalty, decisionsTotal, promotionsTotal, waitlistDepth, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		solveDuration:    solveDuration,
		sectionsAssigned: sectionsAssigned,
		sectionsBlocked:  sectionsBlocked,
		solveSoftPenalty: solveSoftPenalty,
		decisionsTotal:   decisionsTotal,
		promotionsTotal:  promotionsTotal,
		waitlistDepth:    waitlistDepth,
	}
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

// ObserveSolve records the outcome of a solve or incremental re-solve pass.
func (m *MetricsService) ObserveSolve(mode, termID string, assigned, unassigned int, softPenalty float64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.solveDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	m.sectionsAssigned.WithLabelValues(termID).Set(float64(assigned))
	m.sectionsBlocked.WithLabelValues(termID).Set(float64(unassigned))
	m.solveSoftPenalty.WithLabelValues(termID).Set(softPenalty)
}

// ObserveDecisions counts allocator transitions by status.
func (m *MetricsService) ObserveDecisions(decisions []models.Decision) {
	if m == nil {
		return
	}
	for _, d := range decisions {
		m.decisionsTotal.WithLabelValues(string(d.Status)).Inc()
		if d.Status == models.RequestStatusApproved && d.PromotedFrom > 0 {
			m.promotionsTotal.Inc()
		}
	}
}

// SetWaitlistDepth reports the current waitlist length for a section.
func (m *MetricsService) SetWaitlistDepth(sectionID string, depth int) {
	if m == nil {
		return
	}
	m.waitlistDepth.WithLabelValues(sectionID).Set(float64(depth))
}
