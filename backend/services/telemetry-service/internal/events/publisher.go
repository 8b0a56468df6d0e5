package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

// Config groups the kafka settings shared by the publisher and the consumer.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes reading events synchronously so the caller learns about delivery failures.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewPublisher builds a kafka writer keyed by entity with the hash balancer.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("events: at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("events: topic must not be empty")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisherWithWriter(writer, cfg.Topic, logger), nil
}

func newPublisherWithWriter(writer messageWriter, topic string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		writer: writer,
		topic:  topic,
		logger: logger.With(zap.String("component", "event_publisher")),
	}
}

// PublishMeterReading appends a meter reading event.
func (p *Publisher) PublishMeterReading(ctx context.Context, reading *models.MeterReading) error {
	return p.publish(ctx, Event{Type: EventMeterReading, Meter: reading})
}

// PublishVehicleReading appends a vehicle reading event.
func (p *Publisher) PublishVehicleReading(ctx context.Context, reading *models.VehicleReading) error {
	return p.publish(ctx, Event{Type: EventVehicleReading, Vehicle: reading})
}

func (p *Publisher) publish(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(evt.Key()), Value: value}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("publish reading event failed",
			zap.String("topic", p.topic),
			zap.String("key", evt.Key()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
