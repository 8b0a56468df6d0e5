// Package events carries ingested readings over kafka so the status projection can be applied
// by a consumer group instead of the request path.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

// EventType tags the reading carried by an Event.
type EventType string

const (
	EventMeterReading   EventType = "meter_reading"
	EventVehicleReading EventType = "vehicle_reading"
)

// Event is the wire payload written to the readings topic.
type Event struct {
	Type    EventType              `json:"type"`
	Meter   *models.MeterReading   `json:"meter,omitempty"`
	Vehicle *models.VehicleReading `json:"vehicle,omitempty"`
}

// Key returns the entity key used for partitioning, so one charger or vehicle stays on one
// partition and its events are applied in publish order.
func (e Event) Key() string {
	switch {
	case e.Meter != nil:
		return "charger:" + e.Meter.ChargerID
	case e.Vehicle != nil:
		return "vehicle:" + e.Vehicle.VehicleID
	default:
		return ""
	}
}

// Decode parses and checks a payload read from the topic.
func Decode(data []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	switch evt.Type {
	case EventMeterReading:
		if evt.Meter == nil {
			return Event{}, errors.New("meter event without reading")
		}
	case EventVehicleReading:
		if evt.Vehicle == nil {
			return Event{}, errors.New("vehicle event without reading")
		}
	default:
		return Event{}, fmt.Errorf("unknown event type %q", evt.Type)
	}
	return evt, nil
}
