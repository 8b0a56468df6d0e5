package models

import "time"

// Stream identifies which ledger a reading belongs to.
type Stream string

const (
	StreamMeter   Stream = "meter"
	StreamVehicle Stream = "vehicle"
)

// MeterReading is an immutable AC meter ledger row reported by a charger.
type MeterReading struct {
	ID            string    `db:"id" json:"id"`
	ChargerID     string    `db:"charger_id" json:"chargerId"`
	KwhConsumedAC float64   `db:"kwh_consumed_ac" json:"kwhConsumedAc"`
	Voltage       float64   `db:"voltage" json:"voltage"`
	Timestamp     time.Time `db:"timestamp" json:"timestamp"`
	RecordedAt    time.Time `db:"recorded_at" json:"recordedAt"`
}

// VehicleReading is an immutable DC charging ledger row reported by a vehicle.
type VehicleReading struct {
	ID             string    `db:"id" json:"id"`
	VehicleID      string    `db:"vehicle_id" json:"vehicleId"`
	ChargerID      string    `db:"charger_id" json:"chargerId"`
	SoC            float64   `db:"soc" json:"soc"`
	KwhDeliveredDC float64   `db:"kwh_delivered_dc" json:"kwhDeliveredDc"`
	BatteryTemp    float64   `db:"battery_temp" json:"batteryTemp"`
	Timestamp      time.Time `db:"timestamp" json:"timestamp"`
	RecordedAt     time.Time `db:"recorded_at" json:"recordedAt"`
}
