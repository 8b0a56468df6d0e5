package simulator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/ocpp/protocol"
)

// Charger is the OCPP surface the fleet drives.
type Charger interface {
	StationID() string
	BootNotification(ctx context.Context, vendor, model string) (*protocol.BootNotificationResponse, error)
	StatusNotification(ctx context.Context, connectorID int, status string) error
	SendMeterValues(ctx context.Context, connectorID int, registerWh, voltage float64, ts time.Time) error
	Close()
}

// DialFunc opens a charger session.
type DialFunc func(ctx context.Context, stationID string) (Charger, error)

type FleetConfig struct {
	Chargers int
	Vehicles int
	Interval time.Duration
	// BatteryKWh is the pack size used to turn delivered energy into state of charge.
	BatteryKWh float64
	Seed       int64
}

type chargerSim struct {
	client     Charger
	registerWh float64
	voltage    float64
}

type vehicleSim struct {
	id      string
	charger *chargerSim
	soc     float64
	temp    float64
}

// Fleet charges every vehicle on a charger and reports both sides of each session.
type Fleet struct {
	cfg      FleetConfig
	dial     DialFunc
	sink     VehicleSink
	logger   *zap.Logger
	rnd      *rand.Rand
	chargers []*chargerSim
	vehicles []*vehicleSim
}

func NewFleet(cfg FleetConfig, dial DialFunc, sink VehicleSink, logger *zap.Logger) (*Fleet, error) {
	if cfg.Chargers <= 0 || cfg.Vehicles <= 0 {
		return nil, fmt.Errorf("simulator: need at least one charger and one vehicle")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatteryKWh <= 0 {
		cfg.BatteryKWh = 75
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fleet{cfg: cfg, dial: dial, sink: sink, logger: logger, rnd: rand.New(rand.NewSource(cfg.Seed))}, nil
}

// Connect boots every charger and plugs the vehicles in round robin.
func (f *Fleet) Connect(ctx context.Context) error {
	for i := 0; i < f.cfg.Chargers; i++ {
		client, err := f.dial(ctx, fmt.Sprintf("CP-%03d", i+1))
		if err != nil {
			return err
		}
		sim := &chargerSim{client: client, voltage: 400}
		f.chargers = append(f.chargers, sim)

		boot, err := client.BootNotification(ctx, "FleetPower", "SIM-1")
		if err != nil {
			return fmt.Errorf("boot %s: %w", client.StationID(), err)
		}
		if boot.Status != protocol.RegistrationAccepted {
			return fmt.Errorf("boot %s: %s", client.StationID(), boot.Status)
		}
		if err := client.StatusNotification(ctx, 1, protocol.ConnectorCharging); err != nil {
			return fmt.Errorf("status %s: %w", client.StationID(), err)
		}
		// opening register so the first step already yields a delta
		if err := client.SendMeterValues(ctx, 1, sim.registerWh, sim.voltage, time.Now()); err != nil {
			return fmt.Errorf("meter start %s: %w", client.StationID(), err)
		}
	}
	for i := 0; i < f.cfg.Vehicles; i++ {
		f.vehicles = append(f.vehicles, &vehicleSim{
			id:      fmt.Sprintf("EV-%03d", i+1),
			charger: f.chargers[i%len(f.chargers)],
			soc:     10 + f.rnd.Float64()*40,
			temp:    25 + f.rnd.Float64()*5,
		})
	}
	f.logger.Info("fleet connected", zap.Int("chargers", len(f.chargers)), zap.Int("vehicles", len(f.vehicles)))
	return nil
}

// Step advances every charging session by one interval and reports it.
func (f *Fleet) Step(ctx context.Context, now time.Time) error {
	for _, v := range f.vehicles {
		if v.soc >= 100 {
			continue
		}
		deliveredKWh := round(0.5+f.rnd.Float64()*1.5, 3)
		efficiency := 0.85 + f.rnd.Float64()*0.1
		v.charger.registerWh += round(deliveredKWh/efficiency*1000, 1)
		v.charger.voltage = round(395+f.rnd.Float64()*10, 1)
		v.soc = math.Min(100, round(v.soc+deliveredKWh/f.cfg.BatteryKWh*100, 2))
		v.temp = round(v.temp+(f.rnd.Float64()-0.4)*0.5, 2)

		if err := v.charger.client.SendMeterValues(ctx, 1, v.charger.registerWh, v.charger.voltage, now); err != nil {
			return fmt.Errorf("meter values %s: %w", v.charger.client.StationID(), err)
		}
		err := f.sink.PublishVehicleReading(ctx, VehicleReading{
			VehicleID:      v.id,
			ChargerID:      v.charger.client.StationID(),
			SoC:            v.soc,
			KwhDeliveredDC: deliveredKWh,
			BatteryTemp:    v.temp,
			Timestamp:      now.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return fmt.Errorf("vehicle reading %s: %w", v.id, err)
		}
	}
	return nil
}

// Run steps the fleet every interval until ctx is done. Failed steps are logged and retried
// on the next tick.
func (f *Fleet) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			if err := f.Step(ctx, t); err != nil {
				f.logger.Warn("simulation step failed", zap.Error(err))
			}
		}
	}
}

// Close ends every charger session and the vehicle sink.
func (f *Fleet) Close() {
	for _, c := range f.chargers {
		c.client.Close()
	}
	f.sink.Close()
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
