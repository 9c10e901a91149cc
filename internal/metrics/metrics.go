package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pingboard/internal/models"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pingboard_http_requests_total",
			Help: "Total number of HTTP requests by method, route, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pingboard_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	emailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pingboard_alert_emails_total",
			Help: "Alert emails dispatched, by outcome.",
		},
		[]string{"status"},
	)
)

// StatusSource is the subset of the monitor needed to collect device
// metrics on scrape.
type StatusSource interface {
	List() []models.Device
	Statuses([]models.Device) map[string]models.StatusSnapshot
}

// deviceCollector queries the monitor on each scrape and reports per-device
// up/down state and bandwidth.
type deviceCollector struct {
	source        StatusSource
	upDesc        *prometheus.Desc
	bandwidthDesc *prometheus.Desc
}

func (c *deviceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.upDesc
	ch <- c.bandwidthDesc
}

func (c *deviceCollector) Collect(ch chan<- prometheus.Metric) {
	devices := c.source.List()
	statuses := c.source.Statuses(devices)
	for _, d := range devices {
		s := statuses[d.Name]
		up := 0.0
		if s.PingStatus != nil && *s.PingStatus {
			up = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.upDesc, prometheus.GaugeValue, up, d.Name, d.IP)
		if s.BandwidthUsage != nil {
			ch <- prometheus.MustNewConstMetric(c.bandwidthDesc, prometheus.GaugeValue, *s.BandwidthUsage, d.Name, d.IP)
		}
	}
}

// Register registers all metrics with the default Prometheus registry.
// Call once at startup after the monitor is wired up.
func Register(source StatusSource) {
	prometheus.MustRegister(
		// Standard Go runtime and process metrics
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),

		// HTTP service metrics
		httpRequestsTotal,
		httpRequestDuration,
		emailsTotal,

		// Device metrics
		&deviceCollector{
			source: source,
			upDesc: prometheus.NewDesc(
				"pingboard_device_up",
				"Whether the device answered its last ping probe.",
				[]string{"device", "ip"},
				nil,
			),
			bandwidthDesc: prometheus.NewDesc(
				"pingboard_device_bandwidth_mbps",
				"Most recent bandwidth reading in Mbps.",
				[]string{"device", "ip"},
				nil,
			),
		},
	)
}

// CountEmail records the outcome of one alert email dispatch.
func CountEmail(status string) {
	emailsTotal.WithLabelValues(status).Inc()
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the response status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware wraps an http.Handler to record HTTP metrics. pattern should
// be the route pattern string so the path label has bounded cardinality.
func Middleware(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			status := strconv.Itoa(rw.status)
			httpRequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		}()
		next.ServeHTTP(rw, r)
	})
}
