package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/metrics"
	"fleetpower/backend/services/telemetry-service/internal/models"
)

// PerformanceWindow is the trailing range covered by a performance query.
const PerformanceWindow = 24 * time.Hour

const (
	energyPlaces      = 3
	temperaturePlaces = 2
)

// AnalyticsService answers vehicle performance queries from the two ledgers.
type AnalyticsService struct {
	vehicles VehicleLedger
	meters   MeterLedger
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalyticsService returns an analytics engine. m may be nil.
func NewAnalyticsService(vehicles VehicleLedger, meters MeterLedger, m *metrics.Metrics, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		vehicles: vehicles,
		meters:   meters,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// VehiclePerformance computes the vehicle's performance over the window ending now.
func (s *AnalyticsService) VehiclePerformance(ctx context.Context, vehicleID string) (*models.VehiclePerformance, error) {
	return s.VehiclePerformanceAt(ctx, vehicleID, s.now())
}

// VehiclePerformanceAt computes the vehicle's performance over [now-24h, now].
func (s *AnalyticsService) VehiclePerformanceAt(ctx context.Context, vehicleID string, now time.Time) (*models.VehiclePerformance, error) {
	if strings.TrimSpace(vehicleID) == "" {
		s.metrics.AnalyticsRequest("invalid")
		return nil, &ValidationError{Field: "vehicleId", Reason: "should not be empty"}
	}

	now = now.UTC()
	window := models.TimeRange{Start: now.Add(-PerformanceWindow), End: now}

	vehicleRows, err := s.vehicles.ListVehicleReadings(ctx, vehicleID, window.Start, window.End)
	if err != nil {
		s.metrics.AnalyticsRequest("error")
		return nil, fmt.Errorf("list vehicle readings: %w", err)
	}
	if len(vehicleRows) == 0 {
		s.metrics.AnalyticsRequest("not_found")
		return nil, &NotFoundError{VehicleID: vehicleID}
	}

	meterRows, err := s.meters.ListMeterReadings(ctx, DistinctChargers(vehicleRows), window.Start, window.End)
	if err != nil {
		s.metrics.AnalyticsRequest("error")
		return nil, fmt.Errorf("list meter readings: %w", err)
	}

	result := ComputePerformance(vehicleID, window, vehicleRows, meterRows)
	s.metrics.AnalyticsRequest("ok")
	s.logger.Debug("vehicle performance computed",
		zap.String("vehicle_id", vehicleID),
		zap.Int("data_points", result.DataPoints),
	)
	return result, nil
}

// DistinctChargers returns the charger ids referenced by the readings in first-seen order.
func DistinctChargers(readings []models.VehicleReading) []string {
	seen := make(map[string]struct{}, len(readings))
	out := make([]string, 0, len(readings))
	for _, r := range readings {
		if _, ok := seen[r.ChargerID]; ok {
			continue
		}
		seen[r.ChargerID] = struct{}{}
		out = append(out, r.ChargerID)
	}
	return out
}

// ComputePerformance derives the window metrics from already-filtered readings.
// Energy totals and the ratio are rounded to 3 places, temperature to 2, half away from zero.
// An empty vehicle slice yields zero metrics.
func ComputePerformance(vehicleID string, window models.TimeRange, vehicles []models.VehicleReading, meters []models.MeterReading) *models.VehiclePerformance {
	dc := decimal.Zero
	temp := decimal.Zero
	for _, r := range vehicles {
		dc = dc.Add(decimal.NewFromFloat(r.KwhDeliveredDC))
		temp = temp.Add(decimal.NewFromFloat(r.BatteryTemp))
	}

	ac := decimal.Zero
	for _, r := range meters {
		ac = ac.Add(decimal.NewFromFloat(r.KwhConsumedAC))
	}

	ratio := decimal.Zero
	if ac.IsPositive() {
		ratio = dc.Div(ac)
	}

	avgTemp := decimal.Zero
	if len(vehicles) > 0 {
		avgTemp = temp.Div(decimal.NewFromInt(int64(len(vehicles))))
	}

	return &models.VehiclePerformance{
		VehicleID:              vehicleID,
		TimeRange:              window,
		TotalEnergyConsumedAC:  ac.Round(energyPlaces).InexactFloat64(),
		TotalEnergyDeliveredDC: dc.Round(energyPlaces).InexactFloat64(),
		EfficiencyRatio:        ratio.Round(energyPlaces).InexactFloat64(),
		AvgBatteryTemperature:  avgTemp.Round(temperaturePlaces).InexactFloat64(),
		DataPoints:             len(vehicles) + len(meters),
	}
}
