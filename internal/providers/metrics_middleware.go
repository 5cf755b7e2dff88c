package providers

import (
	"net/http"
	"time"
)

// UnmatchedEndpoint labels requests that hit no registered route.
const UnmatchedEndpoint = "unmatched"

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// MetricsMiddleware records count and latency of requests served by next under
// the route pattern endpoint, never the raw path, so dashboard query strings and
// stray URLs cannot grow the label set. Every request is logged on the channel
// of its HTTP method; server errors at warn level.
func MetricsMiddleware(metrics MetricsProviderInterface, logger Logger, endpoint string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		metrics.IncRequestsTotal(endpoint, sw.status)
		metrics.ObserveRequestDuration(endpoint, duration)

		logType := GetLogTypeByRequestType(r.Method)
		if sw.status >= http.StatusInternalServerError {
			logger.Warnf(logType, "%s %s -> %d in %s", r.Method, r.URL.RequestURI(), sw.status, duration)
			return
		}
		logger.Debugf(logType, "%s %s -> %d in %s", r.Method, r.URL.RequestURI(), sw.status, duration)
	})
}
