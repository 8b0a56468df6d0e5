// Package mqttsub ingests vehicle telemetry published by on-board units over MQTT.
package mqttsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/models"
	"fleetpower/backend/services/telemetry-service/internal/service"
)

// VehicleIngester is the write path for vehicle readings.
type VehicleIngester interface {
	IngestVehicleReading(ctx context.Context, in service.VehicleReadingInput) (*models.VehicleReading, error)
}

type Config struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
}

// Subscriber feeds every message on Topic through the ingestion coordinator.
type Subscriber struct {
	cfg      Config
	ingester VehicleIngester
	logger   *zap.Logger
}

func NewSubscriber(cfg Config, ingester VehicleIngester, logger *zap.Logger) (*Subscriber, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, errors.New("mqtt: broker required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("mqtt: topic required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{cfg: cfg, ingester: ingester, logger: logger}, nil
}

// Run connects, subscribes on every (re)connect and blocks until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
			s.Handle(ctx, msg.Topic(), msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			s.logger.Error("mqtt subscribe failed", zap.String("topic", s.cfg.Topic), zap.Error(token.Error()))
			return
		}
		s.logger.Info("mqtt subscribed", zap.String("broker", s.cfg.Broker), zap.String("topic", s.cfg.Topic))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn("mqtt connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect %s: %w", s.cfg.Broker, err)
		}
	case <-ctx.Done():
	}

	<-ctx.Done()
	client.Disconnect(250)
	return nil
}

// Handle ingests one message. Bad payloads are logged and dropped; MQTT has no reply channel.
func (s *Subscriber) Handle(ctx context.Context, topic string, payload []byte) {
	in, err := s.decode(topic, payload)
	if err != nil {
		s.logger.Warn("mqtt reading rejected", zap.String("topic", topic), zap.Error(err))
		return
	}
	reading, err := s.ingester.IngestVehicleReading(ctx, in)
	if err != nil {
		s.logger.Error("mqtt reading ingestion failed",
			zap.String("topic", topic),
			zap.String("vehicle_id", in.VehicleID),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("mqtt reading ingested", zap.String("id", reading.ID), zap.String("vehicle_id", reading.VehicleID))
}

// decode reads the REST body shape. A missing vehicleId is taken from the topic.
func (s *Subscriber) decode(topic string, payload []byte) (service.VehicleReadingInput, error) {
	var req service.VehicleReadingRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return service.VehicleReadingInput{}, fmt.Errorf("decode payload: %w", err)
	}
	if req.VehicleID == nil || *req.VehicleID == "" {
		if id := wildcardSegment(s.cfg.Topic, topic); id != "" {
			req.VehicleID = &id
		}
	}
	in, err := req.ToInput()
	if err != nil {
		return service.VehicleReadingInput{}, err
	}
	return in, in.Validate()
}

// wildcardSegment returns the topic level matched by the first '+' in pattern.
func wildcardSegment(pattern, topic string) string {
	want := strings.Split(pattern, "/")
	got := strings.Split(topic, "/")
	for i, level := range want {
		if level == "+" && i < len(got) {
			return got[i]
		}
	}
	return ""
}
