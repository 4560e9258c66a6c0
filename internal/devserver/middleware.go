package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Logging writes one structured entry per request.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
			)
		})
	}
}

const metricsNamespace = "stockroom_dev"

// serverMetrics are the series exported on /metrics: request counts and
// latency by route pattern, accepted product mutations by kind, and the
// current catalog size.
type serverMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	mutations *prometheus.CounterVec
	products  prometheus.GaugeFunc
}

// newServerMetrics builds unregistered collectors. service is attached as a
// constant label so several dev servers can share one Prometheus.
func newServerMetrics(service string, store *MemStore) *serverMetrics {
	constLabels := prometheus.Labels{"service": service}
	return &serverMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "http_requests_total",
			Help:        "Products API requests by method, route and status.",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Name:        "http_request_duration_seconds",
			Help:        "Products API latency by method and route.",
			ConstLabels: constLabels,
			Buckets:     []float64{.0005, .001, .005, .01, .05, .1, .5},
		}, []string{"method", "path"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "product_mutations_total",
			Help:        "Accepted creates, updates and deletes.",
			ConstLabels: constLabels,
		}, []string{"op"}),
		products: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "products",
			Help:        "Products currently held in memory.",
			ConstLabels: constLabels,
		}, func() float64 { return float64(store.Len()) }),
	}
}

func (m *serverMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(m.requests, m.latency, m.mutations, m.products)
}

// middleware observes every request under its chi route pattern.
func (m *serverMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		path := routePattern(r)
		m.latency.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
	})
}

// routePattern keeps metric cardinality bounded: /products/{id} rather than
// one label per product.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if rp := rc.RoutePattern(); rp != "" {
			return rp
		}
	}
	return r.URL.Path
}
