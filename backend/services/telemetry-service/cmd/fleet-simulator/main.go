package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"fleetpower/backend/libs/logging"
	"fleetpower/backend/services/telemetry-service/internal/simulator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := simulator.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger("fleet-simulator")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var sink simulator.VehicleSink
	if cfg.MQTTBroker != "" {
		sink, err = simulator.NewMQTTSink(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic, 1)
		if err != nil {
			logger.Fatal("failed to connect to mqtt broker", zap.Error(err))
		}
	} else {
		sink = simulator.NewHTTPSink(cfg.TelemetryURL, nil)
	}

	dial := func(ctx context.Context, stationID string) (simulator.Charger, error) {
		return simulator.DialCharger(ctx, cfg.OCPPURL, stationID, cfg.CallTimeout(), logger)
	}
	fleet, err := simulator.NewFleet(cfg.Fleet(), dial, sink, logger)
	if err != nil {
		logger.Fatal("invalid fleet", zap.Error(err))
	}
	defer fleet.Close()

	if err := fleet.Connect(ctx); err != nil {
		logger.Error("failed to connect fleet", zap.Error(err))
		fleet.Close()
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("fleet simulator running",
		zap.String("ocpp_url", cfg.OCPPURL),
		zap.Bool("mqtt", cfg.MQTTBroker != ""),
		zap.Duration("interval", cfg.Interval()),
	)
	_ = fleet.Run(ctx)
}
