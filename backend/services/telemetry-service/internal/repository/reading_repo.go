package repository

import (
	"context"
	"database/sql"
	"time"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

// ReadingRepository persists the append-only meter and vehicle ledgers.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository returns repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// InsertMeterReading appends a meter reading.
func (r *ReadingRepository) InsertMeterReading(ctx context.Context, reading *models.MeterReading) error {
	const query = `
		INSERT INTO meter_readings (id, charger_id, kwh_consumed_ac, voltage, timestamp, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		reading.ID,
		reading.ChargerID,
		reading.KwhConsumedAC,
		reading.Voltage,
		reading.Timestamp,
		reading.RecordedAt,
	)
	return err
}

// ListMeterReadings returns readings of the chargers within [from, to], oldest first.
func (r *ReadingRepository) ListMeterReadings(ctx context.Context, chargerIDs []string, from, to time.Time) ([]models.MeterReading, error) {
	if len(chargerIDs) == 0 {
		return nil, nil
	}

	const query = `
		SELECT id, charger_id, kwh_consumed_ac, voltage, timestamp, recorded_at
		FROM meter_readings
		WHERE charger_id = ANY($1)
		  AND timestamp BETWEEN $2 AND $3
		ORDER BY timestamp ASC
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, chargerIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.MeterReading
	for rows.Next() {
		var m models.MeterReading
		if err := rows.Scan(&m.ID, &m.ChargerID, &m.KwhConsumedAC, &m.Voltage, &m.Timestamp, &m.RecordedAt); err != nil {
			return nil, err
		}
		m.Timestamp = m.Timestamp.UTC()
		m.RecordedAt = m.RecordedAt.UTC()
		readings = append(readings, m)
	}
	return readings, rows.Err()
}

// InsertVehicleReading appends a vehicle reading.
func (r *ReadingRepository) InsertVehicleReading(ctx context.Context, reading *models.VehicleReading) error {
	const query = `
		INSERT INTO vehicle_readings (id, vehicle_id, charger_id, soc, kwh_delivered_dc, battery_temp, timestamp, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		reading.ID,
		reading.VehicleID,
		reading.ChargerID,
		reading.SoC,
		reading.KwhDeliveredDC,
		reading.BatteryTemp,
		reading.Timestamp,
		reading.RecordedAt,
	)
	return err
}

// ListVehicleReadings returns readings of the vehicle within [from, to], oldest first.
func (r *ReadingRepository) ListVehicleReadings(ctx context.Context, vehicleID string, from, to time.Time) ([]models.VehicleReading, error) {
	const query = `
		SELECT id, vehicle_id, charger_id, soc, kwh_delivered_dc, battery_temp, timestamp, recorded_at
		FROM vehicle_readings
		WHERE vehicle_id = $1
		  AND timestamp BETWEEN $2 AND $3
		ORDER BY timestamp ASC
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []models.VehicleReading
	for rows.Next() {
		var v models.VehicleReading
		if err := rows.Scan(&v.ID, &v.VehicleID, &v.ChargerID, &v.SoC, &v.KwhDeliveredDC, &v.BatteryTemp, &v.Timestamp, &v.RecordedAt); err != nil {
			return nil, err
		}
		v.Timestamp = v.Timestamp.UTC()
		v.RecordedAt = v.RecordedAt.UTC()
		readings = append(readings, v)
	}
	return readings, rows.Err()
}
