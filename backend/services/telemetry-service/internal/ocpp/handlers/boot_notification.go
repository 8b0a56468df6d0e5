package handlers

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/ocpp"
	"fleetpower/backend/services/telemetry-service/internal/ocpp/protocol"
)

const heartbeatIntervalSeconds = 30

// NewBootNotificationHandler accepts every charger and remembers its identity.
func NewBootNotificationHandler(state *ocpp.StationState, logger *zap.Logger) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.BootNotificationRequest](payload)
		if err != nil {
			return nil, err
		}

		state.Boot(stationID, req.ChargePointVendor, req.ChargePointModel, protocol.ConnectorAvailable)
		logger.Info("charger booted",
			zap.String("station_id", stationID),
			zap.String("vendor", req.ChargePointVendor),
			zap.String("model", req.ChargePointModel),
		)

		return protocol.BootNotificationResponse{
			CurrentTime: time.Now().UTC(),
			Interval:    heartbeatIntervalSeconds,
			Status:      protocol.RegistrationAccepted,
		}, nil
	}
}
