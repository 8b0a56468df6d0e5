package db

import (
	"context"
	"database/sql"
	"fmt"

	libdb "fleetpower/backend/libs/db"
)

// NewPostgres opens the telemetry database pool.
func NewPostgres(dsn string) (*sql.DB, error) {
	return libdb.NewPostgresDB(dsn)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS meter_readings (
		id TEXT PRIMARY KEY,
		charger_id TEXT NOT NULL,
		kwh_consumed_ac DOUBLE PRECISION NOT NULL,
		voltage DOUBLE PRECISION NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meter_readings_charger_ts ON meter_readings (charger_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_meter_readings_ts ON meter_readings (timestamp)`,
	`CREATE TABLE IF NOT EXISTS vehicle_readings (
		id TEXT PRIMARY KEY,
		vehicle_id TEXT NOT NULL,
		charger_id TEXT NOT NULL,
		soc DOUBLE PRECISION NOT NULL CHECK (soc >= 0 AND soc <= 100),
		kwh_delivered_dc DOUBLE PRECISION NOT NULL,
		battery_temp DOUBLE PRECISION NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vehicle_readings_vehicle_ts ON vehicle_readings (vehicle_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_vehicle_readings_charger_ts ON vehicle_readings (charger_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_vehicle_readings_ts ON vehicle_readings (timestamp)`,
	`CREATE TABLE IF NOT EXISTS charger_current_status (
		meter_id TEXT PRIMARY KEY,
		kwh_consumed_ac DOUBLE PRECISION NOT NULL,
		voltage DOUBLE PRECISION NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS vehicle_current_status (
		vehicle_id TEXT PRIMARY KEY,
		charger_id TEXT NOT NULL,
		soc DOUBLE PRECISION NOT NULL,
		kwh_delivered_dc DOUBLE PRECISION NOT NULL,
		battery_temp DOUBLE PRECISION NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the ledger and projection tables when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
