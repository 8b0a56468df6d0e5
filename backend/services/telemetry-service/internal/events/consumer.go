package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 10 * time.Second
)

// Applier applies a reading to the current-status projection. Applying the same reading twice
// leaves the same row, so redelivered events are harmless.
type Applier interface {
	ProjectMeterReading(ctx context.Context, reading *models.MeterReading) error
	ProjectVehicleReading(ctx context.Context, reading *models.VehicleReading) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads the readings topic as part of a consumer group and updates the projection.
type Consumer struct {
	reader  messageReader
	applier Applier
	logger  *zap.Logger
	backoff time.Duration
}

// NewConsumer builds a group reader for the readings topic.
func NewConsumer(cfg Config, applier Applier, logger *zap.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("events: at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" || strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("events: topic and group id are required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newConsumerWithReader(reader, applier, logger), nil
}

func newConsumerWithReader(reader messageReader, applier Applier, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		reader:  reader,
		applier: applier,
		logger:  logger.With(zap.String("component", "projection_consumer")),
		backoff: initialBackoff,
	}
}

// Run consumes until ctx is cancelled. A message is committed only after it was applied or
// found undecodable; apply failures are retried with backoff so a partition never skips ahead.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Warn("close reader", zap.Error(err))
		}
	}()

	backoff := c.backoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("fetch message", zap.Error(err))
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = c.backoff

		if !c.handle(ctx, msg) {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit message", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// handle returns false when ctx ended before the message was applied.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	evt, err := Decode(msg.Value)
	if err != nil {
		c.logger.Error("skip undecodable event",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return true
	}

	backoff := c.backoff
	for {
		err := c.apply(ctx, evt)
		if err == nil {
			return true
		}
		c.logger.Error("apply event failed",
			zap.String("key", evt.Key()),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		if !sleep(ctx, backoff) {
			return false
		}
		backoff = nextBackoff(backoff)
	}
}

func (c *Consumer) apply(ctx context.Context, evt Event) error {
	switch evt.Type {
	case EventMeterReading:
		return c.applier.ProjectMeterReading(ctx, evt.Meter)
	case EventVehicleReading:
		return c.applier.ProjectVehicleReading(ctx, evt.Vehicle)
	default:
		return fmt.Errorf("unknown event type %q", evt.Type)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
