package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/models"
	"fleetpower/backend/services/telemetry-service/internal/service"
)

// ReadingIngester is the write path behind the POST endpoints.
type ReadingIngester interface {
	IngestMeterReading(ctx context.Context, in service.MeterReadingInput) (*models.MeterReading, error)
	IngestVehicleReading(ctx context.Context, in service.VehicleReadingInput) (*models.VehicleReading, error)
}

// StatusLister reads the current-status projections.
type StatusLister interface {
	ChargerStatuses(ctx context.Context) ([]models.ChargerCurrentStatus, error)
	VehicleStatuses(ctx context.Context) ([]models.VehicleCurrentStatus, error)
}

// ReadingsHandlers serves meter and vehicle reading ingestion plus status listing.
type ReadingsHandlers struct {
	ingester ReadingIngester
	statuses StatusLister
	logger   *zap.Logger
}

// NewReadingsHandlers returns handler.
func NewReadingsHandlers(ingester ReadingIngester, statuses StatusLister, logger *zap.Logger) *ReadingsHandlers {
	return &ReadingsHandlers{ingester: ingester, statuses: statuses, logger: logger}
}

// CreateMeterReading handles POST /meter-readings.
func (h *ReadingsHandlers) CreateMeterReading(w http.ResponseWriter, r *http.Request) {
	var req service.MeterReadingRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.writeDecodeError(w, err)
		return
	}
	input, err := req.ToInput()
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	reading, err := h.ingester.IngestMeterReading(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

// CreateVehicleReading handles POST /vehicle-readings.
func (h *ReadingsHandlers) CreateVehicleReading(w http.ResponseWriter, r *http.Request) {
	var req service.VehicleReadingRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.writeDecodeError(w, err)
		return
	}
	input, err := req.ToInput()
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	reading, err := h.ingester.IngestVehicleReading(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reading)
}

// ChargerStatuses handles GET /meter-readings/status.
func (h *ReadingsHandlers) ChargerStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.statuses.ChargerStatuses(r.Context())
	if err != nil {
		h.logger.Error("list charger statuses failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load charger status")
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

// VehicleStatuses handles GET /vehicle-readings/status.
func (h *ReadingsHandlers) VehicleStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.statuses.VehicleStatuses(r.Context())
	if err != nil {
		h.logger.Error("list vehicle statuses failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load vehicle status")
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (h *ReadingsHandlers) writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errInvalidBody) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	writeServiceError(w, h.logger, err)
}
