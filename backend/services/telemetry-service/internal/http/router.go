package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"fleetpower/backend/services/telemetry-service/internal/http/handlers"
	"fleetpower/backend/services/telemetry-service/internal/http/middleware"
)

// Routes defines HTTP endpoints. Nil optional handlers are not mounted.
type Routes struct {
	Readings  *handlers.ReadingsHandlers
	Analytics *handlers.AnalyticsHandlers
	Health    http.Handler
	Metrics   http.Handler
	OCPP      http.Handler

	// IngestLimit wraps the POST endpoints.
	IngestLimit func(http.Handler) http.Handler
	// RequestLogger sees the matched route.
	RequestLogger mux.MiddlewareFunc
}

// NewRouter sets up HTTP routing.
func NewRouter(routes Routes) *mux.Router {
	r := mux.NewRouter()
	if routes.RequestLogger != nil {
		r.Use(routes.RequestLogger)
	}

	ingest := func(h http.HandlerFunc) http.Handler {
		if routes.IngestLimit == nil {
			return h
		}
		return middleware.Chain(h, routes.IngestLimit)
	}

	r.Handle("/meter-readings", ingest(routes.Readings.CreateMeterReading)).Methods(http.MethodPost)
	r.HandleFunc("/meter-readings/status", routes.Readings.ChargerStatuses).Methods(http.MethodGet)
	r.Handle("/vehicle-readings", ingest(routes.Readings.CreateVehicleReading)).Methods(http.MethodPost)
	r.HandleFunc("/vehicle-readings/status", routes.Readings.VehicleStatuses).Methods(http.MethodGet)
	r.HandleFunc("/analytics/performance/{vehicleId}", routes.Analytics.VehiclePerformance).Methods(http.MethodGet)

	if routes.Health != nil {
		r.Handle("/health", routes.Health).Methods(http.MethodGet)
	}
	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics).Methods(http.MethodGet)
	}
	if routes.OCPP != nil {
		r.Handle("/ocpp/ws", routes.OCPP).Methods(http.MethodGet)
	}
	return r
}
