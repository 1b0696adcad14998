package tracking

import (
	"testing"
	"time"

	"fleet-service/internal/model"

	"gorm.io/datatypes"
)

func floatPtr(f float64) *float64 { return &f }
func uintPtr(u uint) *uint        { return &u }

func TestApplyPingActiveRoute(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	rec := &model.Tracking{UserID: 7}
	routeID := uintPtr(42)

	ApplyPing(rec, Ping{
		IsAuthenticated: true,
		Latitude:        19.4,
		Longitude:       -99.1,
		SuperiorAccount: "admin@acme.mx",
		Progress: &ProgressUpdate{
			Percentage:       35,
			TotalDistance:    120,
			TraveledDistance: 42,
		},
	}, routeID, now)

	if rec.Status != model.TrackingActive {
		t.Errorf("status = %q, want Active", rec.Status)
	}
	loc := rec.Location.Data()
	if loc.Latitude != 19.4 || loc.Longitude != -99.1 || !loc.Timestamp.Equal(now) {
		t.Errorf("location = %+v, want ping coordinates at now", loc)
	}
	progress := rec.RouteProgress.Data()
	if progress.ActiveRouteID == nil || *progress.ActiveRouteID != 42 {
		t.Errorf("activeRouteId = %v, want 42", progress.ActiveRouteID)
	}
	// First creation: omitted original total falls back to the total.
	if progress.OriginalTotalDistance != 120 {
		t.Errorf("originalTotalDistance = %v, want 120", progress.OriginalTotalDistance)
	}
}

func TestApplyPingPreservesAccumulation(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	rec := &model.Tracking{
		UserID: 7,
		RouteProgress: datatypes.NewJSONType(model.RouteProgress{
			AccumulatedDistance:   80,
			OriginalTotalDistance: 150,
		}),
	}

	// Caller omits the accumulation-sensitive fields.
	ApplyPing(rec, Ping{
		IsAuthenticated: true,
		Latitude:        19.5,
		Longitude:       -99.2,
		Progress: &ProgressUpdate{
			Percentage:       60,
			TotalDistance:    130,
			TraveledDistance: 78,
		},
	}, uintPtr(42), now)

	progress := rec.RouteProgress.Data()
	if progress.AccumulatedDistance != 80 {
		t.Errorf("accumulatedDistance = %v, want previous 80 kept", progress.AccumulatedDistance)
	}
	if progress.OriginalTotalDistance != 150 {
		t.Errorf("originalTotalDistance = %v, want previous 150 kept", progress.OriginalTotalDistance)
	}

	// Explicit values overwrite.
	ApplyPing(rec, Ping{
		IsAuthenticated: true,
		Latitude:        19.5,
		Longitude:       -99.2,
		Progress: &ProgressUpdate{
			Percentage:          61,
			AccumulatedDistance: floatPtr(95),
		},
	}, uintPtr(42), now)

	if got := rec.RouteProgress.Data().AccumulatedDistance; got != 95 {
		t.Errorf("accumulatedDistance = %v, want explicit 95", got)
	}
}

func TestApplyPingIdleDriver(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	rec := &model.Tracking{
		UserID: 7,
		Status: model.TrackingActive,
		RouteProgress: datatypes.NewJSONType(model.RouteProgress{
			Percentage: 100, AccumulatedDistance: 80,
		}),
	}

	ApplyPing(rec, Ping{IsAuthenticated: true, Latitude: 19.4, Longitude: -99.1}, nil, now)

	if rec.Status != model.TrackingAvailable {
		t.Errorf("status = %q, want Available for authenticated idle driver", rec.Status)
	}
	if got := rec.RouteProgress.Data().Percentage; got != 0 {
		t.Errorf("progress percentage = %v, want reset after route ends", got)
	}
}

func TestApplyPingUnauthenticatedKeepsLocation(t *testing.T) {
	lastSeen := time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)
	rec := &model.Tracking{
		UserID: 7,
		Status: model.TrackingAvailable,
		Location: datatypes.NewJSONType(model.Location{
			Latitude: 19.4, Longitude: -99.1, Timestamp: lastSeen,
		}),
	}

	ApplyPing(rec, Ping{IsAuthenticated: false, Latitude: 0, Longitude: 0}, nil, lastSeen.Add(time.Minute))

	if rec.Status != model.TrackingOffline {
		t.Errorf("status = %q, want Offline", rec.Status)
	}
	loc := rec.Location.Data()
	if loc.Latitude != 19.4 || !loc.Timestamp.Equal(lastSeen) {
		t.Errorf("location = %+v, want last known position retained", loc)
	}
}

func TestIsStale(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	threshold := 90 * time.Second

	record := func(status string, age time.Duration, authenticated bool) *model.Tracking {
		return &model.Tracking{
			IsAuthenticated: authenticated,
			Status:          status,
			Location: datatypes.NewJSONType(model.Location{
				Latitude: 19.4, Longitude: -99.1, Timestamp: now.Add(-age),
			}),
		}
	}

	cases := []struct {
		name string
		rec  *model.Tracking
		want bool
	}{
		{"active 91s silent", record(model.TrackingActive, 91*time.Second, true), true},
		{"active 89s silent", record(model.TrackingActive, 89*time.Second, true), false},
		{"available past threshold", record(model.TrackingAvailable, 2*time.Minute, true), true},
		{"already offline", record(model.TrackingOffline, time.Hour, true), false},
		{"unauthenticated", record(model.TrackingActive, time.Hour, false), false},
	}

	for _, tc := range cases {
		if got := IsStale(tc.rec, now, threshold); got != tc.want {
			t.Errorf("%s: IsStale = %v, want %v", tc.name, got, tc.want)
		}
	}
}
