package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/metrics"
	"fleetpower/backend/services/telemetry-service/internal/models"
)

// StatusProjector keeps the current-status rows of chargers and vehicles.
type StatusProjector struct {
	chargers ChargerStatusStore
	vehicles VehicleStatusStore
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewStatusProjector returns a projector over the given status stores. m may be nil.
func NewStatusProjector(chargers ChargerStatusStore, vehicles VehicleStatusStore, m *metrics.Metrics, logger *zap.Logger) *StatusProjector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusProjector{
		chargers: chargers,
		vehicles: vehicles,
		metrics:  m,
		logger:   logger,
	}
}

// ProjectMeterReading replaces the charger's status row with the reading's values.
func (p *StatusProjector) ProjectMeterReading(ctx context.Context, reading *models.MeterReading) error {
	applied, err := p.chargers.UpsertChargerStatus(ctx, models.ChargerStatusFromReading(reading))
	if err != nil {
		return fmt.Errorf("upsert charger status %s: %w", reading.ChargerID, err)
	}
	if !applied {
		p.metrics.ProjectionSkipped(string(models.StreamMeter))
		p.logger.Debug("charger status kept newer reading",
			zap.String("charger_id", reading.ChargerID),
			zap.Time("timestamp", reading.Timestamp),
		)
	}
	return nil
}

// ProjectVehicleReading replaces the vehicle's status row with the reading's values.
func (p *StatusProjector) ProjectVehicleReading(ctx context.Context, reading *models.VehicleReading) error {
	applied, err := p.vehicles.UpsertVehicleStatus(ctx, models.VehicleStatusFromReading(reading))
	if err != nil {
		return fmt.Errorf("upsert vehicle status %s: %w", reading.VehicleID, err)
	}
	if !applied {
		p.metrics.ProjectionSkipped(string(models.StreamVehicle))
		p.logger.Debug("vehicle status kept newer reading",
			zap.String("vehicle_id", reading.VehicleID),
			zap.Time("timestamp", reading.Timestamp),
		)
	}
	return nil
}

// ChargerStatuses lists every charger status, newest timestamp first.
func (p *StatusProjector) ChargerStatuses(ctx context.Context) ([]models.ChargerCurrentStatus, error) {
	return p.chargers.ListChargerStatuses(ctx)
}

// VehicleStatuses lists every vehicle status, newest timestamp first.
func (p *StatusProjector) VehicleStatuses(ctx context.Context) ([]models.VehicleCurrentStatus, error) {
	return p.vehicles.ListVehicleStatuses(ctx)
}
