package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/ocpp"
	"fleetpower/backend/services/telemetry-service/internal/ocpp/protocol"
	"fleetpower/backend/services/telemetry-service/internal/service"
)

// MeterIngester stores one MeterValues batch. It reports how many leading readings are
// committed when it fails.
type MeterIngester interface {
	IngestMeterBatch(ctx context.Context, ins []service.MeterReadingInput) (int, error)
}

// NewMeterValuesHandler turns every meterValue entry into one meter reading for the charger.
func NewMeterValuesHandler(ingester MeterIngester, state *ocpp.StationState, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.MeterValuesRequest](payload)
		if err != nil {
			return nil, err
		}
		if len(req.MeterValue) == 0 {
			return nil, ocpp.NewCallError(protocol.ErrorFormationViolation, "meterValue must not be empty")
		}

		register, hasRegister := state.LastRegister(stationID)
		inputs := make([]service.MeterReadingInput, 0, len(req.MeterValue))
		registers := make([]*float64, 0, len(req.MeterValue))
		for i, mv := range req.MeterValue {
			sample, err := readSample(mv)
			if err != nil {
				return nil, ocpp.NewCallError(protocol.ErrorFormationViolation, fmt.Sprintf("meterValue[%d]: %v", i, err))
			}

			kwh := sample.intervalKWh
			if sample.registerKWh != nil {
				if hasRegister && !sample.hasInterval {
					kwh = service.CalculateDeltaEnergy(register, *sample.registerKWh)
				}
				register, hasRegister = *sample.registerKWh, true
			}

			in := service.MeterReadingInput{
				MeterID:       stationID,
				KwhConsumedAC: kwh,
				Voltage:       sample.voltage,
				Timestamp:     mv.Timestamp.UTC(),
			}
			if err := in.Validate(); err != nil {
				return nil, ocpp.NewCallError(protocol.ErrorFormationViolation, fmt.Sprintf("meterValue[%d]: %v", i, err))
			}
			inputs = append(inputs, in)
			registers = append(registers, sample.registerKWh)
		}

		committed, err := ingester.IngestMeterBatch(ctx, inputs)
		for i := 0; i < committed; i++ {
			if registers[i] != nil {
				state.SetRegister(stationID, *registers[i])
			}
		}
		if err != nil {
			var vErr *service.ValidationError
			if errors.As(err, &vErr) {
				return nil, ocpp.NewCallError(protocol.ErrorFormationViolation, vErr.Error())
			}
			logger.Error("ingest charger meter values",
				zap.String("station_id", stationID),
				zap.Int("committed", committed),
				zap.Int("samples", len(inputs)),
				zap.Error(err),
			)
			return nil, ocpp.NewCallError(protocol.ErrorInternalError, "failed to store meter value")
		}
		state.Touch(stationID)

		return protocol.MeterValuesResponse{}, nil
	}
}

type sample struct {
	intervalKWh float64
	hasInterval bool
	registerKWh *float64
	voltage     float64
}

// readSample extracts energy and voltage from one meterValue. A sampledValue without a
// measurand is an energy register, the OCPP default.
func readSample(mv protocol.MeterValue) (sample, error) {
	var out sample
	if mv.Timestamp.IsZero() {
		return out, errors.New("timestamp is required")
	}
	for _, sv := range mv.SampledValue {
		measurand := strings.TrimSpace(sv.Measurand)
		if measurand == "" {
			measurand = protocol.MeasurandEnergyRegister
		}
		switch measurand {
		case protocol.MeasurandEnergyRegister, protocol.MeasurandEnergyInterval, protocol.MeasurandVoltage:
		default:
			continue
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(sv.Value), 64)
		if err != nil {
			return out, fmt.Errorf("%s value %q is not a number", measurand, sv.Value)
		}
		if value < 0 {
			return out, fmt.Errorf("%s value must not be negative", measurand)
		}

		switch measurand {
		case protocol.MeasurandEnergyInterval:
			out.intervalKWh += service.ToKWh(value, sv.Unit)
			out.hasInterval = true
		case protocol.MeasurandEnergyRegister:
			kwh := service.ToKWh(value, sv.Unit)
			out.registerKWh = &kwh
		case protocol.MeasurandVoltage:
			out.voltage = value
		}
	}
	return out, nil
}
