package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

// PerformanceReader computes vehicle analytics.
type PerformanceReader interface {
	VehiclePerformance(ctx context.Context, vehicleID string) (*models.VehiclePerformance, error)
}

type AnalyticsHandlers struct {
	analytics PerformanceReader
	logger    *zap.Logger
}

func NewAnalyticsHandlers(analytics PerformanceReader, logger *zap.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{analytics: analytics, logger: logger}
}

// VehiclePerformance handles GET /analytics/performance/{vehicleId}.
func (h *AnalyticsHandlers) VehiclePerformance(w http.ResponseWriter, r *http.Request) {
	result, err := h.analytics.VehiclePerformance(r.Context(), mux.Vars(r)["vehicleId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
