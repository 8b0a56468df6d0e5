package simulator

import (
	"os"
	"testing"
	"time"
)

func clearSimEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENV_FILE", "")
	for _, key := range []string{"SIM_TELEMETRY_URL", "SIM_OCPP_URL", "SIM_CHARGERS", "SIM_VEHICLES", "SIM_INTERVAL_SECONDS", "SIM_MQTT_BROKER"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	clearSimEnv(t)
	t.Setenv("SIM_CHARGERS", "10")
	t.Setenv("SIM_INTERVAL_SECONDS", "2")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	fleet := cfg.Fleet()
	if fleet.Chargers != 10 || fleet.Vehicles != 5 || fleet.Interval != 2*time.Second || fleet.BatteryKWh != 75 {
		t.Fatalf("unexpected fleet config %+v", fleet)
	}
	if cfg.OCPPURL != "ws://localhost:8084/ocpp/ws" || cfg.MQTTTopic != "fleet/+/vehicle-readings" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigRejectsEmptyFleet(t *testing.T) {
	clearSimEnv(t)
	t.Setenv("SIM_VEHICLES", "0")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for zero vehicles")
	}
}
