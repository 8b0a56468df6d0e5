package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fleetpower/backend/services/telemetry-service/internal/metrics"
	"fleetpower/backend/services/telemetry-service/internal/models"
)

// ConsistencyMode selects how the ledger append and the projection update relate.
type ConsistencyMode string

const (
	// ConsistencySequential appends then upserts as two independent store calls.
	ConsistencySequential ConsistencyMode = "sequential"
	// ConsistencyAtomic runs both writes in one store transaction.
	ConsistencyAtomic ConsistencyMode = "atomic"
	// ConsistencyAsync appends then publishes an event; a consumer updates the projection.
	ConsistencyAsync ConsistencyMode = "async"
)

// ParseConsistencyMode maps a config value to a mode. Empty selects sequential.
func ParseConsistencyMode(raw string) (ConsistencyMode, error) {
	switch ConsistencyMode(raw) {
	case "", ConsistencySequential:
		return ConsistencySequential, nil
	case ConsistencyAtomic:
		return ConsistencyAtomic, nil
	case ConsistencyAsync:
		return ConsistencyAsync, nil
	default:
		return "", fmt.Errorf("unknown consistency mode %q", raw)
	}
}

var newID = uuid.NewString

// IngestionService is the write path: ledger append plus current-status projection.
type IngestionService struct {
	meters    MeterLedger
	vehicles  VehicleLedger
	projector *StatusProjector
	tx        Transactor
	publisher EventPublisher
	mode      ConsistencyMode
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// IngestionOption customises an IngestionService.
type IngestionOption func(*IngestionService)

// WithTransactor supplies the transaction runner required by ConsistencyAtomic.
func WithTransactor(tx Transactor) IngestionOption {
	return func(s *IngestionService) { s.tx = tx }
}

// WithPublisher supplies the event publisher required by ConsistencyAsync.
func WithPublisher(p EventPublisher) IngestionOption {
	return func(s *IngestionService) { s.publisher = p }
}

// WithIngestionMetrics records ingestion counters.
func WithIngestionMetrics(m *metrics.Metrics) IngestionOption {
	return func(s *IngestionService) { s.metrics = m }
}

// WithClock overrides the clock used for recordedAt.
func WithClock(now func() time.Time) IngestionOption {
	return func(s *IngestionService) { s.now = now }
}

// NewIngestionService wires the coordinator. It fails when the mode lacks its collaborator.
func NewIngestionService(meters MeterLedger, vehicles VehicleLedger, projector *StatusProjector, mode ConsistencyMode, logger *zap.Logger, opts ...IngestionOption) (*IngestionService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &IngestionService{
		meters:    meters,
		vehicles:  vehicles,
		projector: projector,
		mode:      mode,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch s.mode {
	case ConsistencySequential:
	case ConsistencyAtomic:
		if s.tx == nil {
			return nil, errors.New("atomic consistency requires a transactor")
		}
	case ConsistencyAsync:
		if s.publisher == nil {
			return nil, errors.New("async consistency requires an event publisher")
		}
	default:
		return nil, fmt.Errorf("unknown consistency mode %q", s.mode)
	}
	return s, nil
}

// Mode reports the configured consistency mode.
func (s *IngestionService) Mode() ConsistencyMode {
	return s.mode
}

// IngestMeterReading stores a charger meter reading and returns the ledger row.
func (s *IngestionService) IngestMeterReading(ctx context.Context, in MeterReadingInput) (*models.MeterReading, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	reading := &models.MeterReading{
		ID:            newID(),
		ChargerID:     in.MeterID,
		KwhConsumedAC: in.KwhConsumedAC,
		Voltage:       in.Voltage,
		Timestamp:     in.Timestamp.UTC(),
		RecordedAt:    s.now().UTC(),
	}

	err := s.dualWrite(ctx, models.StreamMeter, reading.ID,
		func(ctx context.Context) error { return s.meters.InsertMeterReading(ctx, reading) },
		func(ctx context.Context) error { return s.projector.ProjectMeterReading(ctx, reading) },
		func(ctx context.Context) error { return s.publisher.PublishMeterReading(ctx, reading) },
		zap.String("charger_id", reading.ChargerID),
	)
	if err != nil {
		return nil, err
	}
	return reading, nil
}

// IngestMeterBatch ingests readings in order and reports how many are committed. In atomic
// mode the batch commits or rolls back as a whole; otherwise readings before the failing one
// stay in history.
func (s *IngestionService) IngestMeterBatch(ctx context.Context, ins []MeterReadingInput) (int, error) {
	if s.mode != ConsistencyAtomic {
		for i, in := range ins {
			if _, err := s.IngestMeterReading(ctx, in); err != nil {
				return i, err
			}
		}
		return len(ins), nil
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, in := range ins {
			if _, err := s.IngestMeterReading(ctx, in); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		return len(ins), nil
	}
	var ingErr *IngestionError
	var vErr *ValidationError
	if !errors.As(err, &ingErr) && !errors.As(err, &vErr) {
		s.metrics.IngestionFailed(string(models.StreamMeter), string(StageCommit))
		err = &IngestionError{Stream: models.StreamMeter, Stage: StageCommit, Err: err}
	}
	return 0, err
}

// IngestVehicleReading stores a vehicle charging reading and returns the ledger row.
func (s *IngestionService) IngestVehicleReading(ctx context.Context, in VehicleReadingInput) (*models.VehicleReading, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	reading := &models.VehicleReading{
		ID:             newID(),
		VehicleID:      in.VehicleID,
		ChargerID:      in.ChargerID,
		SoC:            in.SoC,
		KwhDeliveredDC: in.KwhDeliveredDC,
		BatteryTemp:    in.BatteryTemp,
		Timestamp:      in.Timestamp.UTC(),
		RecordedAt:     s.now().UTC(),
	}

	err := s.dualWrite(ctx, models.StreamVehicle, reading.ID,
		func(ctx context.Context) error { return s.vehicles.InsertVehicleReading(ctx, reading) },
		func(ctx context.Context) error { return s.projector.ProjectVehicleReading(ctx, reading) },
		func(ctx context.Context) error { return s.publisher.PublishVehicleReading(ctx, reading) },
		zap.String("vehicle_id", reading.VehicleID),
	)
	if err != nil {
		return nil, err
	}
	return reading, nil
}

type writeFunc func(ctx context.Context) error

func (s *IngestionService) dualWrite(ctx context.Context, stream models.Stream, recordID string, appendRow, project, publish writeFunc, key zap.Field) error {
	fail := func(stage Stage, committed bool, err error) error {
		s.metrics.IngestionFailed(string(stream), string(stage))
		ingErr := &IngestionError{Stream: stream, Stage: stage, RecordID: recordID, Committed: committed, Err: err}
		if committed {
			s.logger.Warn("ledger row committed but follow-up write failed",
				zap.String("stream", string(stream)),
				zap.String("stage", string(stage)),
				zap.String("record_id", recordID),
				key,
				zap.Error(err),
			)
		} else {
			s.logger.Error("ingestion failed",
				zap.String("stream", string(stream)),
				zap.String("stage", string(stage)),
				key,
				zap.Error(err),
			)
		}
		return ingErr
	}

	switch s.mode {
	case ConsistencyAtomic:
		stage := StageLedger
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := appendRow(ctx); err != nil {
				return err
			}
			stage = StageProjection
			if err := project(ctx); err != nil {
				return err
			}
			stage = StageCommit
			return nil
		})
		if err != nil {
			return fail(stage, false, err)
		}
	case ConsistencyAsync:
		if err := appendRow(ctx); err != nil {
			return fail(StageLedger, false, err)
		}
		s.metrics.ReadingIngested(string(stream))
		if err := publish(ctx); err != nil {
			return fail(StagePublish, true, err)
		}
		return nil
	default:
		if err := appendRow(ctx); err != nil {
			return fail(StageLedger, false, err)
		}
		s.metrics.ReadingIngested(string(stream))
		if err := project(ctx); err != nil {
			return fail(StageProjection, true, err)
		}
		return nil
	}

	s.metrics.ReadingIngested(string(stream))
	return nil
}
