package middleware

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/metrics"
)

// RequestLogger logs every routed request and records its latency. It must be installed
// with Router.Use so the matched route template is known.
func RequestLogger(logger *zap.Logger, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeTemplate(r)
			snoop := httpsnoop.CaptureMetrics(next, w, r)

			m.ObserveHTTP(r.Method, route, snoop.Code, snoop.Duration)
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", snoop.Code),
				zap.Duration("duration", snoop.Duration),
				zap.Int64("bytes", snoop.Written),
			}
			if snoop.Code >= http.StatusInternalServerError {
				logger.Warn("http request", fields...)
				return
			}
			logger.Info("http request", fields...)
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
