package handlers

import (
	"context"
	"encoding/json"
	"time"

	"fleetpower/backend/services/telemetry-service/internal/ocpp"
	"fleetpower/backend/services/telemetry-service/internal/ocpp/protocol"
)

// NewHeartbeatHandler returns ack with current time.
func NewHeartbeatHandler(state *ocpp.StationState) ocpp.HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error) {
		state.Touch(stationID)
		return protocol.HeartbeatResponse{
			CurrentTime: time.Now().UTC(),
		}, nil
	}
}
