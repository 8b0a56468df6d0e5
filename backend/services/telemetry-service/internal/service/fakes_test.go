package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

type fakeStore struct {
	mu             sync.Mutex
	meters         []models.MeterReading
	vehicles       []models.VehicleReading
	chargerStatus  map[string]models.ChargerCurrentStatus
	vehicleStatus  map[string]models.VehicleCurrentStatus
	byTimestamp    bool
	insertErr      error
	upsertErr      error
	listErr        error
	lastMeterQuery []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		chargerStatus: make(map[string]models.ChargerCurrentStatus),
		vehicleStatus: make(map[string]models.VehicleCurrentStatus),
	}
}

func inRange(ts, from, to time.Time) bool {
	return !ts.Before(from) && !ts.After(to)
}

func (f *fakeStore) InsertMeterReading(_ context.Context, r *models.MeterReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.meters = append(f.meters, *r)
	return nil
}

func (f *fakeStore) ListMeterReadings(_ context.Context, chargerIDs []string, from, to time.Time) ([]models.MeterReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.lastMeterQuery = append([]string(nil), chargerIDs...)
	wanted := make(map[string]bool, len(chargerIDs))
	for _, id := range chargerIDs {
		wanted[id] = true
	}
	var out []models.MeterReading
	for _, r := range f.meters {
		if wanted[r.ChargerID] && inRange(r.Timestamp, from, to) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *fakeStore) InsertVehicleReading(_ context.Context, r *models.VehicleReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.vehicles = append(f.vehicles, *r)
	return nil
}

func (f *fakeStore) ListVehicleReadings(_ context.Context, vehicleID string, from, to time.Time) ([]models.VehicleReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.VehicleReading
	for _, r := range f.vehicles {
		if r.VehicleID == vehicleID && inRange(r.Timestamp, from, to) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *fakeStore) UpsertChargerStatus(_ context.Context, s *models.ChargerCurrentStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	if cur, ok := f.chargerStatus[s.MeterID]; ok && f.byTimestamp && s.Timestamp.Before(cur.Timestamp) {
		return false, nil
	}
	f.chargerStatus[s.MeterID] = *s
	return true, nil
}

func (f *fakeStore) ListChargerStatuses(_ context.Context) ([]models.ChargerCurrentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ChargerCurrentStatus, 0, len(f.chargerStatus))
	for _, s := range f.chargerStatus {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (f *fakeStore) UpsertVehicleStatus(_ context.Context, s *models.VehicleCurrentStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	if cur, ok := f.vehicleStatus[s.VehicleID]; ok && f.byTimestamp && s.Timestamp.Before(cur.Timestamp) {
		return false, nil
	}
	f.vehicleStatus[s.VehicleID] = *s
	return true, nil
}

func (f *fakeStore) ListVehicleStatuses(_ context.Context) ([]models.VehicleCurrentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.VehicleCurrentStatus, 0, len(f.vehicleStatus))
	for _, s := range f.vehicleStatus {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// RunInTx restores the ledgers and status maps when fn fails.
func (f *fakeStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	meters := append([]models.MeterReading(nil), f.meters...)
	vehicles := append([]models.VehicleReading(nil), f.vehicles...)
	chargerStatus := make(map[string]models.ChargerCurrentStatus, len(f.chargerStatus))
	for k, v := range f.chargerStatus {
		chargerStatus[k] = v
	}
	vehicleStatus := make(map[string]models.VehicleCurrentStatus, len(f.vehicleStatus))
	for k, v := range f.vehicleStatus {
		vehicleStatus[k] = v
	}
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.meters, f.vehicles = meters, vehicles
		f.chargerStatus, f.vehicleStatus = chargerStatus, vehicleStatus
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) meterCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.meters)
}

func (f *fakeStore) vehicleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.vehicles)
}

type fakePublisher struct {
	mu       sync.Mutex
	meters   []models.MeterReading
	vehicles []models.VehicleReading
	err      error
}

func (p *fakePublisher) PublishMeterReading(_ context.Context, r *models.MeterReading) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.meters = append(p.meters, *r)
	return nil
}

func (p *fakePublisher) PublishVehicleReading(_ context.Context, r *models.VehicleReading) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.vehicles = append(p.vehicles, *r)
	return nil
}
