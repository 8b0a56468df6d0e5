// Package memstore is an in-process Record Store holding both ledgers and both status
// projections. It backs storage.backend=memory and the handler tests.
//
// Transactions are serialised and readers wait for the running one to finish, so a
// List never returns rows that a failing transaction is about to revert.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

type Store struct {
	mu sync.RWMutex

	// Ledgers, in insertion order
	meterReadings   []models.MeterReading
	vehicleReadings []models.VehicleReading

	// Projections
	chargerStatus map[string]models.ChargerCurrentStatus
	vehicleStatus map[string]models.VehicleCurrentStatus

	ordering models.Ordering

	// Held exclusively by RunInTx and shared by readers outside it. Taken before mu.
	txMu sync.RWMutex
}

func New(ordering models.Ordering) *Store {
	if ordering == "" {
		ordering = models.OrderingArrival
	}
	return &Store{
		chargerStatus: make(map[string]models.ChargerCurrentStatus),
		vehicleStatus: make(map[string]models.VehicleCurrentStatus),
		ordering:      ordering,
	}
}

type txKey struct{}

// tx collects undo steps for writes made inside RunInTx.
type tx struct {
	undo []func()
}

func record(ctx context.Context, undo func()) {
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		t.undo = append(t.undo, undo)
	}
}

// readTx blocks until no transaction is running, unless ctx belongs to one.
func (s *Store) readTx(ctx context.Context) func() {
	if _, ok := ctx.Value(txKey{}).(*tx); ok {
		return func() {}
	}
	s.txMu.RLock()
	return s.txMu.RUnlock
}

// RunInTx serialises transactions and reverts their writes when fn fails.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*tx); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	t := &tx{}
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		s.mu.Lock()
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Meter ledger
func (s *Store) InsertMeterReading(ctx context.Context, r *models.MeterReading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meterReadings = append(s.meterReadings, *r)
	n := len(s.meterReadings) - 1
	record(ctx, func() { s.meterReadings = s.meterReadings[:n] })
	return nil
}

func (s *Store) ListMeterReadings(ctx context.Context, chargerIDs []string, from, to time.Time) ([]models.MeterReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer s.readTx(ctx)()
	window := models.TimeRange{Start: from, End: to}
	wanted := make(map[string]struct{}, len(chargerIDs))
	for _, id := range chargerIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.MeterReading
	for _, r := range s.meterReadings {
		if _, ok := wanted[r.ChargerID]; ok && window.Contains(r.Timestamp) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Vehicle ledger
func (s *Store) InsertVehicleReading(ctx context.Context, r *models.VehicleReading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vehicleReadings = append(s.vehicleReadings, *r)
	n := len(s.vehicleReadings) - 1
	record(ctx, func() { s.vehicleReadings = s.vehicleReadings[:n] })
	return nil
}

func (s *Store) ListVehicleReadings(ctx context.Context, vehicleID string, from, to time.Time) ([]models.VehicleReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer s.readTx(ctx)()
	window := models.TimeRange{Start: from, End: to}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.VehicleReading
	for _, r := range s.vehicleReadings {
		if r.VehicleID == vehicleID && window.Contains(r.Timestamp) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Charger projection
func (s *Store) UpsertChargerStatus(ctx context.Context, status *models.ChargerCurrentStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.chargerStatus[status.MeterID]
	if existed && !s.replaces(prev.Timestamp, status.Timestamp) {
		return false, nil
	}
	s.chargerStatus[status.MeterID] = *status
	record(ctx, func() {
		if existed {
			s.chargerStatus[status.MeterID] = prev
		} else {
			delete(s.chargerStatus, status.MeterID)
		}
	})
	return true, nil
}

func (s *Store) ListChargerStatuses(ctx context.Context) ([]models.ChargerCurrentStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer s.readTx(ctx)()
	s.mu.RLock()
	out := make([]models.ChargerCurrentStatus, 0, len(s.chargerStatus))
	for _, st := range s.chargerStatus {
		out = append(out, st)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].MeterID < out[j].MeterID
	})
	return out, nil
}

// Vehicle projection
func (s *Store) UpsertVehicleStatus(ctx context.Context, status *models.VehicleCurrentStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.vehicleStatus[status.VehicleID]
	if existed && !s.replaces(prev.Timestamp, status.Timestamp) {
		return false, nil
	}
	s.vehicleStatus[status.VehicleID] = *status
	record(ctx, func() {
		if existed {
			s.vehicleStatus[status.VehicleID] = prev
		} else {
			delete(s.vehicleStatus, status.VehicleID)
		}
	})
	return true, nil
}

func (s *Store) ListVehicleStatuses(ctx context.Context) ([]models.VehicleCurrentStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer s.readTx(ctx)()
	s.mu.RLock()
	out := make([]models.VehicleCurrentStatus, 0, len(s.vehicleStatus))
	for _, st := range s.vehicleStatus {
		out = append(out, st)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].VehicleID < out[j].VehicleID
	})
	return out, nil
}

// Ping reports the store as always reachable.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) replaces(stored, incoming time.Time) bool {
	if s.ordering == models.OrderingTimestamp {
		return !incoming.Before(stored)
	}
	return true
}
