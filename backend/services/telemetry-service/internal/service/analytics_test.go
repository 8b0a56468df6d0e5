package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

func seedAnalytics(t *testing.T, now time.Time) (*fakeStore, *AnalyticsService) {
	t.Helper()
	store := newFakeStore()
	svc := NewAnalyticsService(store, store, nil, nil)
	svc.now = fixedClock(now)
	return store, svc
}

func TestVehiclePerformanceScenario(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store, svc := seedAnalytics(t, now)
	ingest := newTestIngestion(t, store, ConsistencySequential)

	if _, err := ingest.IngestVehicleReading(context.Background(), VehicleReadingInput{VehicleID: "V1", ChargerID: "C1", SoC: 50, KwhDeliveredDC: 10, BatteryTemp: 30, Timestamp: now}); err != nil {
		t.Fatalf("ingest vehicle: %v", err)
	}
	if _, err := ingest.IngestMeterReading(context.Background(), MeterReadingInput{MeterID: "C1", KwhConsumedAC: 12, Voltage: 400, Timestamp: now}); err != nil {
		t.Fatalf("ingest meter: %v", err)
	}

	perf, err := svc.VehiclePerformance(context.Background(), "V1")
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	want := &models.VehiclePerformance{
		VehicleID:              "V1",
		TimeRange:              models.TimeRange{Start: now.Add(-24 * time.Hour), End: now},
		TotalEnergyConsumedAC:  12,
		TotalEnergyDeliveredDC: 10,
		EfficiencyRatio:        0.833,
		AvgBatteryTemperature:  30,
		DataPoints:             2,
	}
	if !reflect.DeepEqual(perf, want) {
		t.Fatalf("unexpected performance:\n got %+v\nwant %+v", perf, want)
	}
}

func TestVehiclePerformanceUnknownVehicle(t *testing.T) {
	_, svc := seedAnalytics(t, time.Now())

	_, err := svc.VehiclePerformance(context.Background(), "V_unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err.Error() != "No data found for vehicle V_unknown in the last 24 hours" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestVehiclePerformanceWindowBounds(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store, svc := seedAnalytics(t, now)
	store.vehicles = []models.VehicleReading{
		{ID: "old", VehicleID: "V1", ChargerID: "C1", BatteryTemp: 90, KwhDeliveredDC: 100, Timestamp: now.Add(-25 * time.Hour)},
		{ID: "edge", VehicleID: "V1", ChargerID: "C1", BatteryTemp: 20, KwhDeliveredDC: 1, Timestamp: now.Add(-24 * time.Hour)},
		{ID: "mid", VehicleID: "V1", ChargerID: "C1", BatteryTemp: 40, KwhDeliveredDC: 2, Timestamp: now.Add(-time.Hour)},
		{ID: "future", VehicleID: "V1", ChargerID: "C1", BatteryTemp: 99, KwhDeliveredDC: 50, Timestamp: now.Add(time.Minute)},
	}

	perf, err := svc.VehiclePerformance(context.Background(), "V1")
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if perf.AvgBatteryTemperature != 30 {
		t.Fatalf("expected mean over in-window rows only, got %v", perf.AvgBatteryTemperature)
	}
	if perf.TotalEnergyDeliveredDC != 3 || perf.DataPoints != 2 {
		t.Fatalf("unexpected totals: %+v", perf)
	}
	if perf.EfficiencyRatio != 0 || perf.TotalEnergyConsumedAC != 0 {
		t.Fatalf("expected zero AC and ratio without meter rows, got %+v", perf)
	}
}

func TestVehiclePerformanceJoinsAllUsedChargers(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store, svc := seedAnalytics(t, now)
	store.vehicles = []models.VehicleReading{
		{VehicleID: "V1", ChargerID: "C1", KwhDeliveredDC: 5, BatteryTemp: 25, Timestamp: now.Add(-3 * time.Hour)},
		{VehicleID: "V1", ChargerID: "C2", KwhDeliveredDC: 5, BatteryTemp: 25, Timestamp: now.Add(-2 * time.Hour)},
		{VehicleID: "V1", ChargerID: "C1", KwhDeliveredDC: 5, BatteryTemp: 25, Timestamp: now.Add(-time.Hour)},
		{VehicleID: "V2", ChargerID: "C3", KwhDeliveredDC: 5, BatteryTemp: 25, Timestamp: now.Add(-time.Hour)},
	}
	store.meters = []models.MeterReading{
		{ChargerID: "C1", KwhConsumedAC: 8, Timestamp: now.Add(-3 * time.Hour)},
		{ChargerID: "C2", KwhConsumedAC: 8, Timestamp: now.Add(-2 * time.Hour)},
		{ChargerID: "C3", KwhConsumedAC: 100, Timestamp: now.Add(-time.Hour)},
		{ChargerID: "C1", KwhConsumedAC: 100, Timestamp: now.Add(-30 * time.Hour)},
	}

	perf, err := svc.VehiclePerformance(context.Background(), "V1")
	if err != nil {
		t.Fatalf("performance: %v", err)
	}
	if want := []string{"C1", "C2"}; !reflect.DeepEqual(store.lastMeterQuery, want) {
		t.Fatalf("expected distinct chargers %v, got %v", want, store.lastMeterQuery)
	}
	if perf.TotalEnergyConsumedAC != 16 || perf.TotalEnergyDeliveredDC != 15 {
		t.Fatalf("unexpected totals: %+v", perf)
	}
	if perf.EfficiencyRatio != 0.938 {
		t.Fatalf("expected ratio 0.938, got %v", perf.EfficiencyRatio)
	}
	if perf.DataPoints != 5 {
		t.Fatalf("expected 5 data points, got %d", perf.DataPoints)
	}
}

func TestVehiclePerformanceStoreError(t *testing.T) {
	store, svc := seedAnalytics(t, time.Now())
	store.listErr = errStoreDown

	_, err := svc.VehiclePerformance(context.Background(), "V1")
	if !errors.Is(err, errStoreDown) || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestComputePerformanceRounding(t *testing.T) {
	window := models.TimeRange{}
	perf := ComputePerformance("V1", window,
		[]models.VehicleReading{{BatteryTemp: 36.005, KwhDeliveredDC: 1}},
		[]models.MeterReading{{KwhConsumedAC: 12.34567}},
	)
	if perf.TotalEnergyConsumedAC != 12.346 {
		t.Fatalf("expected 12.346, got %v", perf.TotalEnergyConsumedAC)
	}
	if perf.AvgBatteryTemperature != 36.01 {
		t.Fatalf("expected 36.01, got %v", perf.AvgBatteryTemperature)
	}
	if perf.EfficiencyRatio != 0.081 {
		t.Fatalf("expected 0.081, got %v", perf.EfficiencyRatio)
	}

	negative := ComputePerformance("V1", window, []models.VehicleReading{{BatteryTemp: -2.345}}, nil)
	if negative.AvgBatteryTemperature != -2.35 {
		t.Fatalf("expected half away from zero -2.35, got %v", negative.AvgBatteryTemperature)
	}
}

func TestComputePerformanceSumsWithoutFloatDrift(t *testing.T) {
	vehicles := []models.VehicleReading{{KwhDeliveredDC: 0.1}, {KwhDeliveredDC: 0.2}}
	perf := ComputePerformance("V1", models.TimeRange{}, vehicles, []models.MeterReading{{KwhConsumedAC: 0.3}})
	if perf.TotalEnergyDeliveredDC != 0.3 || perf.EfficiencyRatio != 1 {
		t.Fatalf("unexpected totals: %+v", perf)
	}
}
