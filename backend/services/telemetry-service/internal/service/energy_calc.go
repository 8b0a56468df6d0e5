package service

import "strings"

// CalculateDeltaEnergy computes incremental energy based on previous and current meter values.
// A register that went backwards (meter reset or replacement) contributes nothing.
func CalculateDeltaEnergy(prev, current float64) float64 {
	if current < prev {
		return 0
	}
	return current - prev
}

// ToKWh converts an energy value in the given unit to kWh. Unknown or empty units are read as Wh,
// the OCPP default.
func ToKWh(value float64, unit string) float64 {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "kwh":
		return value
	default:
		return value / 1000
	}
}
