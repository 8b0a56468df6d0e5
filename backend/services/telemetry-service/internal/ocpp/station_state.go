package ocpp

import (
	"sync"
	"time"
)

// ConnectorState holds minimal connector info.
type ConnectorState struct {
	Status string `json:"status"`
}

// StationRuntimeState keeps runtime info per charger.
type StationRuntimeState struct {
	Vendor     string                 `json:"vendor,omitempty"`
	Model      string                 `json:"model,omitempty"`
	Status     string                 `json:"status"`
	LastSeen   time.Time              `json:"lastSeen"`
	Connectors map[int]ConnectorState `json:"connectors"`

	register    float64
	hasRegister bool
}

// StationState keeps in-memory charger data, including the last energy register seen per
// charger for interval derivation.
type StationState struct {
	mu       sync.RWMutex
	stations map[string]*StationRuntimeState
	now      func() time.Time
}

// NewStationState returns state store.
func NewStationState() *StationState {
	return &StationState{
		stations: make(map[string]*StationRuntimeState),
		now:      time.Now,
	}
}

func (s *StationState) station(stationID string) *StationRuntimeState {
	state, ok := s.stations[stationID]
	if !ok {
		state = &StationRuntimeState{Connectors: make(map[int]ConnectorState)}
		s.stations[stationID] = state
	}
	state.LastSeen = s.now().UTC()
	return state
}

// Boot records the charger's identity.
func (s *StationState) Boot(stationID, vendor, model, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.station(stationID)
	state.Vendor = vendor
	state.Model = model
	state.Status = status
}

// Touch refreshes the charger's last-seen time.
func (s *StationState) Touch(stationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.station(stationID)
}

// UpdateStation updates station status.
func (s *StationState) UpdateStation(stationID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.station(stationID).Status = status
}

// UpdateConnector updates connector-level status.
func (s *StationState) UpdateConnector(stationID string, connectorID int, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.station(stationID).Connectors[connectorID] = ConnectorState{Status: status}
}

// LastRegister returns the last energy register in kWh seen for the charger.
func (s *StationState) LastRegister(stationID string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.stations[stationID]
	if !ok || !state.hasRegister {
		return 0, false
	}
	return state.register, true
}

// SetRegister stores the charger's energy register in kWh.
func (s *StationState) SetRegister(stationID string, kwh float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.station(stationID)
	state.register = kwh
	state.hasRegister = true
}

// Snapshot returns a copy of current state map.
func (s *StationState) Snapshot() map[string]StationRuntimeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]StationRuntimeState, len(s.stations))
	for id, st := range s.stations {
		copyState := *st
		copyState.Connectors = make(map[int]ConnectorState, len(st.Connectors))
		for cid, conn := range st.Connectors {
			copyState.Connectors[cid] = conn
		}
		result[id] = copyState
	}
	return result
}
