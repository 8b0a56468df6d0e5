package service

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	for _, raw := range []string{
		"2024-05-01T10:30:00Z",
		"2024-05-01T12:30:00+02:00",
		"2024-05-01T10:30:00.000Z",
		"2024-05-01T10:30:00",
		" 2024-05-01T10:30 ",
	} {
		got, err := ParseTimestamp(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Fatalf("parse %q: got %s", raw, got)
		}
	}

	for _, raw := range []string{"", "yesterday", "2024-13-01T00:00:00Z"} {
		if _, err := ParseTimestamp(raw); !errors.Is(err, ErrValidation) {
			t.Fatalf("parse %q: expected validation error, got %v", raw, err)
		}
	}
}

func TestMeterReadingInputValidate(t *testing.T) {
	valid := MeterReadingInput{MeterID: "C1", KwhConsumedAC: 0, Voltage: 230, Timestamp: time.Now()}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}

	cases := map[string]MeterReadingInput{
		"meterId":       {MeterID: "  ", Voltage: 1, Timestamp: time.Now()},
		"kwhConsumedAc": {MeterID: "C1", KwhConsumedAC: -1, Timestamp: time.Now()},
		"voltage":       {MeterID: "C1", Voltage: math.NaN(), Timestamp: time.Now()},
		"timestamp":     {MeterID: "C1"},
	}
	for field, in := range cases {
		var vErr *ValidationError
		if err := in.Validate(); !errors.As(err, &vErr) || vErr.Field != field {
			t.Fatalf("expected %s validation error, got %v", field, err)
		}
	}
}

func TestVehicleReadingInputValidate(t *testing.T) {
	valid := VehicleReadingInput{VehicleID: "V1", ChargerID: "C1", SoC: 100, KwhDeliveredDC: 5, BatteryTemp: -10, Timestamp: time.Now()}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}

	cases := map[string]VehicleReadingInput{
		"vehicleId":      {ChargerID: "C1", Timestamp: time.Now()},
		"chargerId":      {VehicleID: "V1", Timestamp: time.Now()},
		"soc":            {VehicleID: "V1", ChargerID: "C1", SoC: -0.5, Timestamp: time.Now()},
		"kwhDeliveredDc": {VehicleID: "V1", ChargerID: "C1", KwhDeliveredDC: -2, Timestamp: time.Now()},
		"batteryTemp":    {VehicleID: "V1", ChargerID: "C1", BatteryTemp: math.Inf(1), Timestamp: time.Now()},
		"timestamp":      {VehicleID: "V1", ChargerID: "C1"},
	}
	for field, in := range cases {
		var vErr *ValidationError
		if err := in.Validate(); !errors.As(err, &vErr) || vErr.Field != field {
			t.Fatalf("expected %s validation error, got %v", field, err)
		}
	}
}

func TestVehicleReadingRequestRequiresEveryField(t *testing.T) {
	str := func(v string) *string { return &v }
	num := func(v float64) *float64 { return &v }
	full := func() VehicleReadingRequest {
		return VehicleReadingRequest{
			VehicleID: str("V1"), ChargerID: str("C1"), SoC: num(0), KwhDeliveredDC: num(0),
			BatteryTemp: num(0), Timestamp: str("2024-05-01T10:00:00Z"),
		}
	}
	in, err := full().ToInput()
	if err != nil || in.VehicleID != "V1" || in.SoC != 0 {
		t.Fatalf("expected explicit zeros to convert, got %+v %v", in, err)
	}

	cases := map[string]func(r *VehicleReadingRequest){
		"vehicleId":      func(r *VehicleReadingRequest) { r.VehicleID = nil },
		"chargerId":      func(r *VehicleReadingRequest) { r.ChargerID = nil },
		"soc":            func(r *VehicleReadingRequest) { r.SoC = nil },
		"kwhDeliveredDc": func(r *VehicleReadingRequest) { r.KwhDeliveredDC = nil },
		"batteryTemp":    func(r *VehicleReadingRequest) { r.BatteryTemp = nil },
		"timestamp":      func(r *VehicleReadingRequest) { r.Timestamp = nil },
	}
	for field, drop := range cases {
		req := full()
		drop(&req)
		var vErr *ValidationError
		if _, err := req.ToInput(); !errors.As(err, &vErr) || vErr.Field != field {
			t.Fatalf("expected %s required error, got %v", field, err)
		}
	}
}

func TestMeterReadingRequestRequiresVoltage(t *testing.T) {
	id, kwh, ts := "C1", 1.5, "2024-05-01T10:00:00Z"
	var vErr *ValidationError
	_, err := MeterReadingRequest{MeterID: &id, KwhConsumedAC: &kwh, Timestamp: &ts}.ToInput()
	if !errors.As(err, &vErr) || vErr.Field != "voltage" {
		t.Fatalf("expected voltage required error, got %v", err)
	}
}

func TestCalculateDeltaEnergy(t *testing.T) {
	if got := CalculateDeltaEnergy(10, 12.5); got != 2.5 {
		t.Fatalf("expected 2.5, got %v", got)
	}
	if got := CalculateDeltaEnergy(12, 3); got != 0 {
		t.Fatalf("expected reset to yield 0, got %v", got)
	}
	if got := ToKWh(1500, "Wh"); got != 1.5 {
		t.Fatalf("expected 1.5 kWh, got %v", got)
	}
	if got := ToKWh(2, "kWh"); got != 2 {
		t.Fatalf("expected 2 kWh, got %v", got)
	}
}
