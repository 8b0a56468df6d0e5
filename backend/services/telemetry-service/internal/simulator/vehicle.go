package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// VehicleReading is the body accepted by POST /vehicle-readings and the MQTT subscriber.
type VehicleReading struct {
	VehicleID      string  `json:"vehicleId"`
	ChargerID      string  `json:"chargerId"`
	SoC            float64 `json:"soc"`
	KwhDeliveredDC float64 `json:"kwhDeliveredDc"`
	BatteryTemp    float64 `json:"batteryTemp"`
	Timestamp      string  `json:"timestamp"`
}

// VehicleSink delivers vehicle readings to the service.
type VehicleSink interface {
	PublishVehicleReading(ctx context.Context, reading VehicleReading) error
	Close()
}

// MQTTSink publishes readings on a per-vehicle topic.
type MQTTSink struct {
	client  mqtt.Client
	pattern string
	qos     byte
	timeout time.Duration
}

// NewMQTTSink connects to broker. In pattern, "+" is replaced by the vehicle id.
func NewMQTTSink(broker, clientID, pattern string, qos byte) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID).SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10*time.Second) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return &MQTTSink{client: client, pattern: pattern, qos: qos, timeout: 5 * time.Second}, nil
}

func (s *MQTTSink) PublishVehicleReading(ctx context.Context, reading VehicleReading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	token := s.client.Publish(VehicleTopic(s.pattern, reading.VehicleID), s.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-time.After(s.timeout):
		return errors.New("mqtt publish timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}

// VehicleTopic fills the single-level wildcard of pattern with vehicleID.
func VehicleTopic(pattern, vehicleID string) string {
	return strings.Replace(pattern, "+", vehicleID, 1)
}

// HTTPDoer is the subset of *http.Client used by HTTPSink.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPSink posts readings to the REST API.
type HTTPSink struct {
	baseURL string
	client  HTTPDoer
}

func NewHTTPSink(baseURL string, client HTTPDoer) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSink{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *HTTPSink) PublishVehicleReading(ctx context.Context, reading VehicleReading) error {
	body, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/vehicle-readings", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("post vehicle reading: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (s *HTTPSink) Close() {}
