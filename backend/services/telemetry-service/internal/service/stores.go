package service

import (
	"context"
	"time"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

// MeterLedger is the append-only meter reading history.
type MeterLedger interface {
	InsertMeterReading(ctx context.Context, reading *models.MeterReading) error
	// ListMeterReadings returns readings of the given chargers with timestamp in [from, to],
	// ascending by timestamp.
	ListMeterReadings(ctx context.Context, chargerIDs []string, from, to time.Time) ([]models.MeterReading, error)
}

// VehicleLedger is the append-only vehicle reading history.
type VehicleLedger interface {
	InsertVehicleReading(ctx context.Context, reading *models.VehicleReading) error
	// ListVehicleReadings returns readings of the vehicle with timestamp in [from, to],
	// ascending by timestamp.
	ListVehicleReadings(ctx context.Context, vehicleID string, from, to time.Time) ([]models.VehicleReading, error)
}

// ChargerStatusStore keeps one row per charger. Upserts report false when the store's
// ordering policy kept the existing row.
type ChargerStatusStore interface {
	UpsertChargerStatus(ctx context.Context, status *models.ChargerCurrentStatus) (bool, error)
	ListChargerStatuses(ctx context.Context) ([]models.ChargerCurrentStatus, error)
}

// VehicleStatusStore keeps one row per vehicle.
type VehicleStatusStore interface {
	UpsertVehicleStatus(ctx context.Context, status *models.VehicleCurrentStatus) (bool, error)
	ListVehicleStatuses(ctx context.Context) ([]models.VehicleCurrentStatus, error)
}

// Transactor runs fn inside one store transaction carried by the context passed to fn.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher appends ingested readings to the event log consumed by the projector.
type EventPublisher interface {
	PublishMeterReading(ctx context.Context, reading *models.MeterReading) error
	PublishVehicleReading(ctx context.Context, reading *models.VehicleReading) error
}
