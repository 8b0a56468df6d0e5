package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.mu.Lock()
		if len(r.pending) > 0 {
			msg := r.pending[0]
			r.pending = r.pending[1:]
			r.mu.Unlock()
			return msg, nil
		}
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type fakeApplier struct {
	mu       sync.Mutex
	meters   []string
	vehicles []string
	failures int
}

func (a *fakeApplier) ProjectMeterReading(_ context.Context, r *models.MeterReading) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failures > 0 {
		a.failures--
		return errors.New("store unavailable")
	}
	a.meters = append(a.meters, r.ID)
	return nil
}

func (a *fakeApplier) ProjectVehicleReading(_ context.Context, r *models.VehicleReading) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.vehicles = append(a.vehicles, r.ID)
	return nil
}

func (a *fakeApplier) applied() ([]string, []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.meters...), append([]string(nil), a.vehicles...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestPublisherKeysByEntity(t *testing.T) {
	writer := &fakeWriter{}
	pub := newPublisherWithWriter(writer, "telemetry.readings", nil)

	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := pub.PublishMeterReading(context.Background(), &models.MeterReading{ID: "m1", ChargerID: "C1", KwhConsumedAC: 12, Timestamp: ts}); err != nil {
		t.Fatalf("publish meter: %v", err)
	}
	if err := pub.PublishVehicleReading(context.Background(), &models.VehicleReading{ID: "v1", VehicleID: "V1", ChargerID: "C1", Timestamp: ts}); err != nil {
		t.Fatalf("publish vehicle: %v", err)
	}

	if len(writer.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(writer.msgs))
	}
	if string(writer.msgs[0].Key) != "charger:C1" || string(writer.msgs[1].Key) != "vehicle:V1" {
		t.Fatalf("unexpected keys %q %q", writer.msgs[0].Key, writer.msgs[1].Key)
	}

	evt, err := Decode(writer.msgs[0].Value)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Type != EventMeterReading || evt.Meter.ID != "m1" || evt.Meter.KwhConsumedAC != 12 || !evt.Meter.Timestamp.Equal(ts) {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

func TestPublisherReturnsWriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	pub := newPublisherWithWriter(writer, "telemetry.readings", nil)
	if err := pub.PublishMeterReading(context.Background(), &models.MeterReading{ID: "m1", ChargerID: "C1"}); err == nil {
		t.Fatalf("expected write error")
	}
}

func TestDecodeRejectsMalformedEvents(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"type":"meter_reading"}`,
		`{"type":"vehicle_reading"}`,
		`{"type":"unknown","meter":{"id":"x"}}`,
	} {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func encode(t *testing.T, evt Event) []byte {
	t.Helper()
	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestConsumerAppliesRetriesAndCommits(t *testing.T) {
	reader := &fakeReader{pending: []kafka.Message{
		{Offset: 1, Value: encode(t, Event{Type: EventMeterReading, Meter: &models.MeterReading{ID: "m1", ChargerID: "C1"}})},
		{Offset: 2, Value: []byte(`garbage`)},
		{Offset: 3, Value: encode(t, Event{Type: EventVehicleReading, Vehicle: &models.VehicleReading{ID: "v1", VehicleID: "V1"}})},
	}}
	applier := &fakeApplier{failures: 2}
	consumer := newConsumerWithReader(reader, applier, nil)
	consumer.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	waitFor(t, time.Second, func() bool { return len(reader.committedOffsets()) == 3 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	meters, vehicles := applier.applied()
	if len(meters) != 1 || meters[0] != "m1" || len(vehicles) != 1 || vehicles[0] != "v1" {
		t.Fatalf("unexpected applied readings: meters=%v vehicles=%v", meters, vehicles)
	}
	if got := reader.committedOffsets(); got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected in-order commits, got %v", got)
	}
	reader.mu.Lock()
	closed := reader.closed
	reader.mu.Unlock()
	if !closed {
		t.Fatalf("expected reader to be closed on shutdown")
	}
}

func TestNewPublisherValidatesConfig(t *testing.T) {
	if _, err := NewPublisher(Config{Topic: "t"}, nil); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}}, nil); err == nil {
		t.Fatalf("expected error without topic")
	}
	if _, err := NewConsumer(Config{Brokers: []string{"localhost:9092"}, Topic: "t"}, &fakeApplier{}, nil); err == nil {
		t.Fatalf("expected error without group id")
	}
}
