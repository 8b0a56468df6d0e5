package models

import "time"

// ChargerCurrentStatus is the latest known state of a charger. MeterID is the charger id.
type ChargerCurrentStatus struct {
	MeterID       string    `db:"meter_id" json:"meterId"`
	KwhConsumedAC float64   `db:"kwh_consumed_ac" json:"kwhConsumedAc"`
	Voltage       float64   `db:"voltage" json:"voltage"`
	Timestamp     time.Time `db:"timestamp" json:"timestamp"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// VehicleCurrentStatus is the latest known state of a vehicle.
type VehicleCurrentStatus struct {
	VehicleID      string    `db:"vehicle_id" json:"vehicleId"`
	ChargerID      string    `db:"charger_id" json:"chargerId"`
	SoC            float64   `db:"soc" json:"soc"`
	KwhDeliveredDC float64   `db:"kwh_delivered_dc" json:"kwhDeliveredDc"`
	BatteryTemp    float64   `db:"battery_temp" json:"batteryTemp"`
	Timestamp      time.Time `db:"timestamp" json:"timestamp"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// ChargerStatusFromReading projects a meter reading onto its charger status row.
func ChargerStatusFromReading(r *MeterReading) *ChargerCurrentStatus {
	return &ChargerCurrentStatus{
		MeterID:       r.ChargerID,
		KwhConsumedAC: r.KwhConsumedAC,
		Voltage:       r.Voltage,
		Timestamp:     r.Timestamp,
		UpdatedAt:     r.RecordedAt,
	}
}

// VehicleStatusFromReading projects a vehicle reading onto its vehicle status row.
func VehicleStatusFromReading(r *VehicleReading) *VehicleCurrentStatus {
	return &VehicleCurrentStatus{
		VehicleID:      r.VehicleID,
		ChargerID:      r.ChargerID,
		SoC:            r.SoC,
		KwhDeliveredDC: r.KwhDeliveredDC,
		BatteryTemp:    r.BatteryTemp,
		Timestamp:      r.Timestamp,
		UpdatedAt:      r.RecordedAt,
	}
}
