package repository

import (
	"context"
	"database/sql"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

const (
	upsertChargerStatus = `
		INSERT INTO charger_current_status (meter_id, kwh_consumed_ac, voltage, timestamp, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (meter_id) DO UPDATE SET
			kwh_consumed_ac = EXCLUDED.kwh_consumed_ac,
			voltage = EXCLUDED.voltage,
			timestamp = EXCLUDED.timestamp,
			updated_at = EXCLUDED.updated_at
	`
	upsertVehicleStatus = `
		INSERT INTO vehicle_current_status (vehicle_id, charger_id, soc, kwh_delivered_dc, battery_temp, timestamp, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (vehicle_id) DO UPDATE SET
			charger_id = EXCLUDED.charger_id,
			soc = EXCLUDED.soc,
			kwh_delivered_dc = EXCLUDED.kwh_delivered_dc,
			battery_temp = EXCLUDED.battery_temp,
			timestamp = EXCLUDED.timestamp,
			updated_at = EXCLUDED.updated_at
	`
)

// StatusRepository persists the one-row-per-key current status projections.
type StatusRepository struct {
	db            *sql.DB
	chargerUpsert string
	vehicleUpsert string
}

// NewStatusRepository returns repository. With OrderingTimestamp an upsert carrying an older
// timestamp than the stored row leaves the row untouched.
func NewStatusRepository(db *sql.DB, ordering models.Ordering) *StatusRepository {
	repo := &StatusRepository{
		db:            db,
		chargerUpsert: upsertChargerStatus,
		vehicleUpsert: upsertVehicleStatus,
	}
	if ordering == models.OrderingTimestamp {
		repo.chargerUpsert += ` WHERE charger_current_status.timestamp <= EXCLUDED.timestamp`
		repo.vehicleUpsert += ` WHERE vehicle_current_status.timestamp <= EXCLUDED.timestamp`
	}
	return repo
}

// UpsertChargerStatus replaces the charger's row. It reports false when the row was kept.
func (r *StatusRepository) UpsertChargerStatus(ctx context.Context, status *models.ChargerCurrentStatus) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, r.chargerUpsert,
		status.MeterID,
		status.KwhConsumedAC,
		status.Voltage,
		status.Timestamp,
		status.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	return applied(res)
}

// ListChargerStatuses returns all charger rows, newest timestamp first.
func (r *StatusRepository) ListChargerStatuses(ctx context.Context) ([]models.ChargerCurrentStatus, error) {
	const query = `
		SELECT meter_id, kwh_consumed_ac, voltage, timestamp, updated_at
		FROM charger_current_status
		ORDER BY timestamp DESC, meter_id ASC
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make([]models.ChargerCurrentStatus, 0)
	for rows.Next() {
		var s models.ChargerCurrentStatus
		if err := rows.Scan(&s.MeterID, &s.KwhConsumedAC, &s.Voltage, &s.Timestamp, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Timestamp = s.Timestamp.UTC()
		s.UpdatedAt = s.UpdatedAt.UTC()
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// UpsertVehicleStatus replaces the vehicle's row. It reports false when the row was kept.
func (r *StatusRepository) UpsertVehicleStatus(ctx context.Context, status *models.VehicleCurrentStatus) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, r.vehicleUpsert,
		status.VehicleID,
		status.ChargerID,
		status.SoC,
		status.KwhDeliveredDC,
		status.BatteryTemp,
		status.Timestamp,
		status.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	return applied(res)
}

// ListVehicleStatuses returns all vehicle rows, newest timestamp first.
func (r *StatusRepository) ListVehicleStatuses(ctx context.Context) ([]models.VehicleCurrentStatus, error) {
	const query = `
		SELECT vehicle_id, charger_id, soc, kwh_delivered_dc, battery_temp, timestamp, updated_at
		FROM vehicle_current_status
		ORDER BY timestamp DESC, vehicle_id ASC
	`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make([]models.VehicleCurrentStatus, 0)
	for rows.Next() {
		var s models.VehicleCurrentStatus
		if err := rows.Scan(&s.VehicleID, &s.ChargerID, &s.SoC, &s.KwhDeliveredDC, &s.BatteryTemp, &s.Timestamp, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Timestamp = s.Timestamp.UTC()
		s.UpdatedAt = s.UpdatedAt.UTC()
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

func applied(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
