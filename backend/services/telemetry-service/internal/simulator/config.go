package simulator

import (
	"errors"
	"time"

	libconfig "fleetpower/backend/libs/config"
)

// Config drives cmd/fleet-simulator. Vehicle readings go over MQTT when MQTTBroker is set and
// over REST otherwise.
type Config struct {
	TelemetryURL    string  `yaml:"telemetryUrl" env:"SIM_TELEMETRY_URL"`
	OCPPURL         string  `yaml:"ocppUrl" env:"SIM_OCPP_URL"`
	Chargers        int     `yaml:"chargers" env:"SIM_CHARGERS"`
	Vehicles        int     `yaml:"vehicles" env:"SIM_VEHICLES"`
	IntervalSeconds int     `yaml:"intervalSeconds" env:"SIM_INTERVAL_SECONDS"`
	BatteryKWh      float64 `yaml:"batteryKwh" env:"SIM_BATTERY_KWH"`
	CallTimeoutSecs int     `yaml:"callTimeoutSeconds" env:"SIM_CALL_TIMEOUT_SECONDS"`
	MQTTBroker      string  `yaml:"mqttBroker" env:"SIM_MQTT_BROKER"`
	MQTTTopic       string  `yaml:"mqttTopic" env:"SIM_MQTT_TOPIC"`
	MQTTClientID    string  `yaml:"mqttClientId" env:"SIM_MQTT_CLIENT_ID"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		TelemetryURL:    "http://localhost:8084",
		OCPPURL:         "ws://localhost:8084/ocpp/ws",
		Chargers:        3,
		Vehicles:        5,
		IntervalSeconds: 5,
		BatteryKWh:      75,
		CallTimeoutSecs: 30,
		MQTTTopic:       "fleet/+/vehicle-readings",
		MQTTClientID:    "fleet-simulator",
	}
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Chargers <= 0 || cfg.Vehicles <= 0 {
		return nil, errors.New("simulator: chargers and vehicles must be positive")
	}
	if cfg.OCPPURL == "" {
		return nil, errors.New("simulator: ocpp url is required")
	}
	if cfg.MQTTBroker == "" && cfg.TelemetryURL == "" {
		return nil, errors.New("simulator: telemetry url or mqtt broker is required")
	}
	return cfg, nil
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSecs) * time.Second
}

func (c *Config) Fleet() FleetConfig {
	return FleetConfig{
		Chargers:   c.Chargers,
		Vehicles:   c.Vehicles,
		Interval:   c.Interval(),
		BatteryKWh: c.BatteryKWh,
	}
}
