package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"fleetpower/backend/services/telemetry-service/internal/models"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, ordering models.Ordering) *StatusStore {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatusStore(client, ordering)
}

func TestChargerStatusOverwriteAndOrder(t *testing.T) {
	store := newTestStore(t, models.OrderingArrival)
	ctx := context.Background()

	upserts := []models.ChargerCurrentStatus{
		{MeterID: "C1", KwhConsumedAC: 1, Voltage: 230, Timestamp: base, UpdatedAt: base},
		{MeterID: "C2", KwhConsumedAC: 2, Voltage: 400, Timestamp: base.Add(time.Hour), UpdatedAt: base},
		{MeterID: "C1", KwhConsumedAC: 3, Voltage: 231, Timestamp: base.Add(2 * time.Hour), UpdatedAt: base},
	}
	for i := range upserts {
		ok, err := store.UpsertChargerStatus(ctx, &upserts[i])
		if err != nil || !ok {
			t.Fatalf("upsert %d: applied=%v err=%v", i, ok, err)
		}
	}

	list, err := store.ListChargerStatuses(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected one row per charger, got %d", len(list))
	}
	if list[0].MeterID != "C1" || list[0].KwhConsumedAC != 3 || !list[0].Timestamp.Equal(base.Add(2*time.Hour)) {
		t.Fatalf("unexpected newest row: %+v", list[0])
	}
	if list[1].MeterID != "C2" {
		t.Fatalf("expected C2 second, got %+v", list[1])
	}
}

func TestVehicleStatusArrivalOrderAcceptsOlderTimestamp(t *testing.T) {
	store := newTestStore(t, models.OrderingArrival)
	ctx := context.Background()

	_, _ = store.UpsertVehicleStatus(ctx, &models.VehicleCurrentStatus{VehicleID: "V1", ChargerID: "C1", SoC: 50, Timestamp: base})
	ok, err := store.UpsertVehicleStatus(ctx, &models.VehicleCurrentStatus{VehicleID: "V1", ChargerID: "C1", SoC: 60, Timestamp: base.Add(-time.Hour)})
	if err != nil || !ok {
		t.Fatalf("expected arrival upsert to apply: applied=%v err=%v", ok, err)
	}

	list, _ := store.ListVehicleStatuses(ctx)
	if len(list) != 1 || list[0].SoC != 60 {
		t.Fatalf("expected soc 60, got %+v", list)
	}
}

func TestVehicleStatusTimestampGuard(t *testing.T) {
	store := newTestStore(t, models.OrderingTimestamp)
	ctx := context.Background()

	_, _ = store.UpsertVehicleStatus(ctx, &models.VehicleCurrentStatus{VehicleID: "V1", SoC: 50, Timestamp: base})
	ok, err := store.UpsertVehicleStatus(ctx, &models.VehicleCurrentStatus{VehicleID: "V1", SoC: 60, Timestamp: base.Add(-time.Minute)})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if ok {
		t.Fatalf("expected older reading to be skipped")
	}
	ok, _ = store.UpsertVehicleStatus(ctx, &models.VehicleCurrentStatus{VehicleID: "V1", SoC: 70, Timestamp: base})
	if !ok {
		t.Fatalf("expected equal timestamp to apply")
	}

	list, _ := store.ListVehicleStatuses(ctx)
	if len(list) != 1 || list[0].SoC != 70 {
		t.Fatalf("expected soc 70, got %+v", list)
	}
}

func TestListEmpty(t *testing.T) {
	store := newTestStore(t, models.OrderingArrival)
	list, err := store.ListChargerStatuses(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", list)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
