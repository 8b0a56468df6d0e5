package simulator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/ocpp/protocol"
)

type meterCall struct {
	registerWh float64
	voltage    float64
}

type fakeCharger struct {
	id         string
	bootStatus string

	mu     sync.Mutex
	status []string
	meters []meterCall
	closed bool
}

func (c *fakeCharger) StationID() string { return c.id }

func (c *fakeCharger) BootNotification(context.Context, string, string) (*protocol.BootNotificationResponse, error) {
	return &protocol.BootNotificationResponse{Status: c.bootStatus, Interval: 30}, nil
}

func (c *fakeCharger) StatusNotification(_ context.Context, _ int, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = append(c.status, status)
	return nil
}

func (c *fakeCharger) SendMeterValues(_ context.Context, _ int, registerWh, voltage float64, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meters = append(c.meters, meterCall{registerWh, voltage})
	return nil
}

func (c *fakeCharger) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

type fakeSink struct {
	mu       sync.Mutex
	readings []VehicleReading
	err      error
	closed   bool
}

func (s *fakeSink) PublishVehicleReading(_ context.Context, r VehicleReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.readings = append(s.readings, r)
	return nil
}

func (s *fakeSink) Close() { s.closed = true }

func newTestFleet(t *testing.T, chargers, vehicles int, sink *fakeSink) (*Fleet, map[string]*fakeCharger) {
	t.Helper()
	dialed := make(map[string]*fakeCharger)
	dial := func(_ context.Context, id string) (Charger, error) {
		c := &fakeCharger{id: id, bootStatus: protocol.RegistrationAccepted}
		dialed[id] = c
		return c, nil
	}
	fleet, err := NewFleet(FleetConfig{Chargers: chargers, Vehicles: vehicles, Seed: 7}, dial, sink, zap.NewNop())
	if err != nil {
		t.Fatalf("new fleet: %v", err)
	}
	return fleet, dialed
}

func TestFleetConnectAssignsVehicles(t *testing.T) {
	sink := &fakeSink{}
	fleet, dialed := newTestFleet(t, 2, 3, sink)
	if err := fleet.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if len(dialed) != 2 || dialed["CP-001"] == nil || dialed["CP-002"] == nil {
		t.Fatalf("unexpected chargers %v", dialed)
	}
	if got := dialed["CP-001"].status; len(got) != 1 || got[0] != protocol.ConnectorCharging {
		t.Fatalf("unexpected status notifications %v", got)
	}
	if got := dialed["CP-001"].meters; len(got) != 1 || got[0].registerWh != 0 {
		t.Fatalf("expected an opening register of 0, got %v", got)
	}

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := fleet.Step(context.Background(), now); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(sink.readings) != 3 {
		t.Fatalf("expected 3 vehicle readings, got %d", len(sink.readings))
	}
	wantCharger := map[string]string{"EV-001": "CP-001", "EV-002": "CP-002", "EV-003": "CP-001"}
	for _, r := range sink.readings {
		if r.ChargerID != wantCharger[r.VehicleID] {
			t.Fatalf("%s charged on %s", r.VehicleID, r.ChargerID)
		}
		if r.Timestamp != "2024-05-01T10:00:00Z" {
			t.Fatalf("unexpected timestamp %s", r.Timestamp)
		}
	}
	if len(dialed["CP-001"].meters) != 3 || len(dialed["CP-002"].meters) != 2 {
		t.Fatalf("unexpected meter value counts")
	}

	fleet.Close()
	if !dialed["CP-001"].closed || !sink.closed {
		t.Fatalf("expected chargers and sink to be closed")
	}
}

func TestFleetStepKeepsEfficiencyBelowOne(t *testing.T) {
	sink := &fakeSink{}
	fleet, dialed := newTestFleet(t, 1, 1, sink)
	if err := fleet.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var prevRegister, prevSoC float64
	for i := 0; i < 5; i++ {
		if err := fleet.Step(context.Background(), start.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		meter := dialed["CP-001"].meters[i+1]
		reading := sink.readings[i]

		deltaKWh := (meter.registerWh - prevRegister) / 1000
		if deltaKWh <= reading.KwhDeliveredDC {
			t.Fatalf("step %d: AC %.3f should exceed DC %.3f", i, deltaKWh, reading.KwhDeliveredDC)
		}
		if reading.SoC <= prevSoC || reading.SoC > 100 {
			t.Fatalf("step %d: soc %.2f after %.2f", i, reading.SoC, prevSoC)
		}
		if meter.voltage < 395 || meter.voltage > 405 {
			t.Fatalf("step %d: voltage %.1f out of range", i, meter.voltage)
		}
		prevRegister, prevSoC = meter.registerWh, reading.SoC
	}
}

func TestFleetConnectRejectedBoot(t *testing.T) {
	dial := func(_ context.Context, id string) (Charger, error) {
		return &fakeCharger{id: id, bootStatus: protocol.RegistrationRejected}, nil
	}
	fleet, err := NewFleet(FleetConfig{Chargers: 1, Vehicles: 1}, dial, &fakeSink{}, nil)
	if err != nil {
		t.Fatalf("new fleet: %v", err)
	}
	if err := fleet.Connect(context.Background()); err == nil {
		t.Fatalf("expected rejected boot to fail connect")
	}
}

func TestFleetStepSinkFailure(t *testing.T) {
	sink := &fakeSink{err: errors.New("broker down")}
	fleet, _ := newTestFleet(t, 1, 1, sink)
	if err := fleet.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := fleet.Step(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected step to fail")
	}
}

func TestNewFleetRequiresChargersAndVehicles(t *testing.T) {
	if _, err := NewFleet(FleetConfig{Chargers: 0, Vehicles: 1}, nil, &fakeSink{}, nil); err == nil {
		t.Fatalf("expected error without chargers")
	}
}
