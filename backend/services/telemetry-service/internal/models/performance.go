package models

import "time"

// TimeRange is an inclusive [Start, End] window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether ts falls inside the window, bounds included.
func (r TimeRange) Contains(ts time.Time) bool {
	return !ts.Before(r.Start) && !ts.After(r.End)
}

// VehiclePerformance summarises a vehicle's charging over a window.
type VehiclePerformance struct {
	VehicleID              string    `json:"vehicleId"`
	TimeRange              TimeRange `json:"timeRange"`
	TotalEnergyConsumedAC  float64   `json:"totalEnergyConsumedAc"`
	TotalEnergyDeliveredDC float64   `json:"totalEnergyDeliveredDc"`
	EfficiencyRatio        float64   `json:"efficiencyRatio"`
	AvgBatteryTemperature  float64   `json:"avgBatteryTemperature"`
	DataPoints             int       `json:"dataPoints"`
}
