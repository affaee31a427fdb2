package http

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	deploysTotal      *prometheus.CounterVec
	accessDeniedTotal *prometheus.CounterVec
	magicLinksTotal   prometheus.Counter
)

// RegisterMetrics inicializa las métricas y devuelve el handler de /metrics.
func RegisterMetrics(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método y ruta",
		}, []string{"method", "path"})

		deploysTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "app_deploys_total",
			Help: "Despliegues de bundles por resultado",
		}, []string{"result"}) // result: ok|rejected|failed

		accessDeniedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "app_access_denied_total",
			Help: "Accesos denegados al viewer por motivo",
		}, []string{"reason"})

		magicLinksTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magic_links_sent_total",
			Help: "Magic links emitidos",
		})

		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration, httpInflight,
			deploysTotal, accessDeniedTotal, magicLinksTotal,
		} {
			if err := registerCollector(registry, c); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}
	return promhttp.Handler(), nil
}

func registerCollector(registry prometheus.Registerer, c prometheus.Collector) error {
	if err := registry.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// ObserveDeploy registra el resultado de un despliegue.
func ObserveDeploy(result string) {
	if deploysTotal != nil {
		deploysTotal.WithLabelValues(result).Inc()
	}
}

// ObserveAccessDenied registra un acceso denegado con su motivo.
func ObserveAccessDenied(reason string) {
	if accessDeniedTotal != nil {
		accessDeniedTotal.WithLabelValues(reason).Inc()
	}
}

// ObserveMagicLink registra un magic link emitido.
func ObserveMagicLink() {
	if magicLinksTotal != nil {
		magicLinksTotal.Inc()
	}
}

var idSegment = regexp.MustCompile(`^[0-9a-fA-F-]{8,}$`)

// normalizePath colapsa identificadores para no explotar la cardinalidad.
// /api/apps/3f1c.../star → /api/apps/:id/star ; /a/mi-app/img/x.png → /a/:app/*
func normalizePath(p string) string {
	if strings.HasPrefix(p, "/a/") {
		return "/a/:app/*"
	}
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if idSegment.MatchString(s) {
			segs[i] = ":id"
		}
	}
	return strings.Join(segs, "/")
}

type metricsRecorder struct {
	http.ResponseWriter
	status int
}

func (m *metricsRecorder) WriteHeader(code int) {
	if m.status == 0 {
		m.status = code
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *metricsRecorder) Write(b []byte) (int, error) {
	if m.status == 0 {
		m.status = http.StatusOK
	}
	return m.ResponseWriter.Write(b)
}

// WithMetrics instrumenta requests con contadores, latencia e inflight.
func WithMetrics(next http.Handler) http.Handler {
	if httpRequestsTotal == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		pathLabel := normalizePath(r.URL.Path)

		httpInflight.WithLabelValues(method, pathLabel).Inc()
		start := time.Now()

		rec := &metricsRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		httpInflight.WithLabelValues(method, pathLabel).Dec()
		httpRequestDuration.WithLabelValues(method, pathLabel).Observe(time.Since(start).Seconds())
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(method, pathLabel, strconv.Itoa(status)).Inc()
	})
}
