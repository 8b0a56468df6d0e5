package service

import (
	"errors"
	"fmt"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

var (
	// ErrValidation marks input rejected before it reaches ingestion.
	ErrValidation = errors.New("telemetry: validation failed")
	// ErrNotFound marks analytics queries without data in the window.
	ErrNotFound = errors.New("telemetry: not found")
	// ErrIngestion marks store failures while ingesting a reading.
	ErrIngestion = errors.New("telemetry: ingestion failed")
)

// ValidationError describes a malformed, missing or out-of-range input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError is returned when a vehicle has no readings in the analytics window.
type NotFoundError struct {
	VehicleID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No data found for vehicle %s in the last 24 hours", e.VehicleID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Stage names the write that failed during ingestion.
type Stage string

const (
	StageLedger     Stage = "ledger"
	StageProjection Stage = "projection"
	StagePublish    Stage = "publish"
	// StageCommit is a failed commit after both writes of an atomic ingest succeeded.
	StageCommit Stage = "commit"
)

// IngestionError wraps a store failure. When Committed is true the ledger row identified by
// RecordID is part of history even though the call failed.
type IngestionError struct {
	Stream    models.Stream
	Stage     Stage
	RecordID  string
	Committed bool
	Err       error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s reading: %s write: %v", e.Stream, e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

func (e *IngestionError) Is(target error) bool {
	return target == ErrIngestion
}
