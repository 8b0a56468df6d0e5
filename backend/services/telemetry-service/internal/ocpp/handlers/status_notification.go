package handlers

import (
	"context"
	"encoding/json"

	"fleetpower/backend/services/telemetry-service/internal/ocpp"
	"fleetpower/backend/services/telemetry-service/internal/ocpp/protocol"
)

// NewStatusNotificationHandler updates station/connector status.
func NewStatusNotificationHandler(state *ocpp.StationState) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.StatusNotificationRequest](payload)
		if err != nil {
			return nil, err
		}

		if req.ConnectorStatus == "" {
			req.ConnectorStatus = protocol.ConnectorAvailable
		}

		if req.ConnectorID > 0 {
			state.UpdateConnector(stationID, req.ConnectorID, req.ConnectorStatus)
		} else {
			state.UpdateStation(stationID, req.ConnectorStatus)
		}

		return protocol.StatusNotificationResponse{}, nil
	}
}
