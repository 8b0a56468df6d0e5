package service

import (
	"math"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp accepts ISO-8601 date-times. Values without a zone are read as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &ValidationError{Field: "timestamp", Reason: "is required"}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, &ValidationError{Field: "timestamp", Reason: "must be an ISO-8601 date string"}
}

// MeterReadingInput is a charger meter sample accepted for ingestion.
type MeterReadingInput struct {
	MeterID       string
	KwhConsumedAC float64
	Voltage       float64
	Timestamp     time.Time
}

// Validate enforces the field rules of a meter reading.
func (in MeterReadingInput) Validate() error {
	if strings.TrimSpace(in.MeterID) == "" {
		return &ValidationError{Field: "meterId", Reason: "should not be empty"}
	}
	if err := nonNegative("kwhConsumedAc", in.KwhConsumedAC); err != nil {
		return err
	}
	if err := nonNegative("voltage", in.Voltage); err != nil {
		return err
	}
	if in.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "is required"}
	}
	return nil
}

// VehicleReadingInput is a vehicle charging sample accepted for ingestion.
type VehicleReadingInput struct {
	VehicleID      string
	ChargerID      string
	SoC            float64
	KwhDeliveredDC float64
	BatteryTemp    float64
	Timestamp      time.Time
}

// Validate enforces the field rules of a vehicle reading.
func (in VehicleReadingInput) Validate() error {
	if strings.TrimSpace(in.VehicleID) == "" {
		return &ValidationError{Field: "vehicleId", Reason: "should not be empty"}
	}
	if strings.TrimSpace(in.ChargerID) == "" {
		return &ValidationError{Field: "chargerId", Reason: "should not be empty"}
	}
	if !finite(in.SoC) || in.SoC < 0 || in.SoC > 100 {
		return &ValidationError{Field: "soc", Reason: "must be between 0 and 100"}
	}
	if err := nonNegative("kwhDeliveredDc", in.KwhDeliveredDC); err != nil {
		return err
	}
	if !finite(in.BatteryTemp) {
		return &ValidationError{Field: "batteryTemp", Reason: "must be a number"}
	}
	if in.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "is required"}
	}
	return nil
}

func nonNegative(field string, v float64) error {
	if !finite(v) {
		return &ValidationError{Field: field, Reason: "must be a number"}
	}
	if v < 0 {
		return &ValidationError{Field: field, Reason: "must not be less than 0"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
