package adapthttp

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotadash_http_requests_total",
		Help: "HTTP requests by method, path, and status.",
	}, []string{"method", "path", "status"})
	reg.MustRegister(requests)
	return &metrics{registry: reg, requests: requests}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// metricPath maps a request path to its label value. Paths the router
// does not know collapse into "other" so arbitrary URLs cannot grow
// the label set.
func (s *Server) metricPath(p string) string {
	switch p {
	case "/api/usage", "/api/health":
		return p
	}
	if rest, ok := strings.CutPrefix(p, s.basePath+"/"); ok {
		switch rest {
		case "signup", "login", "logout", "me", "request-password-reset", "reset-password":
			return p
		}
	}
	return "other"
}

// metricsMiddleware counts requests by method, routed path, and status.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.requests.WithLabelValues(r.Method, s.metricPath(r.URL.Path), strconv.Itoa(rec.status)).Inc()
	})
}
