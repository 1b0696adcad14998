// Package tracking derives a driver's presence status and merges
// route-progress snapshots from location pings. Persistence stays with
// the caller; everything here is pure so the merge rules are testable.
package tracking

import (
	"time"

	"fleet-service/internal/model"

	"gorm.io/datatypes"
)

// ProgressUpdate is the caller-supplied slice of a route-progress
// snapshot. Accumulation-sensitive fields are pointers: nil means "keep
// the previous value", not "reset to zero".
type ProgressUpdate struct {
	Percentage            float64  `json:"percentage"`
	ETAMinutes            *float64 `json:"etaMinutes"`
	TotalDistance         float64  `json:"totalDistance"`
	TraveledDistance      float64  `json:"traveledDistance"`
	AccumulatedDistance   *float64 `json:"accumulatedDistance"`
	OriginalTotalDistance *float64 `json:"originalTotalDistance"`
}

// Ping is one location report from a driver device.
type Ping struct {
	IsAuthenticated bool
	Latitude        float64
	Longitude       float64
	SuperiorAccount string
	Progress        *ProgressUpdate
}

// ApplyPing folds a ping into the driver's tracking record.
// activeRouteID is the route the driver currently has in progress, nil
// when idle. Unauthenticated pings flip the record offline but keep the
// last known location.
func ApplyPing(rec *model.Tracking, ping Ping, activeRouteID *uint, now time.Time) {
	rec.IsAuthenticated = ping.IsAuthenticated
	rec.SuperiorAccount = ping.SuperiorAccount

	if !ping.IsAuthenticated {
		rec.Status = model.TrackingOffline
		return
	}

	rec.Location = datatypes.NewJSONType(model.Location{
		Latitude:  ping.Latitude,
		Longitude: ping.Longitude,
		Timestamp: now,
	})

	if activeRouteID == nil {
		rec.Status = model.TrackingAvailable
		rec.RouteProgress = datatypes.NewJSONType(model.RouteProgress{LastUpdated: now})
		return
	}

	rec.Status = model.TrackingActive
	if ping.Progress == nil {
		return
	}

	previous := rec.RouteProgress.Data()
	next := model.RouteProgress{
		Percentage:       ping.Progress.Percentage,
		ETAMinutes:       ping.Progress.ETAMinutes,
		TotalDistance:    ping.Progress.TotalDistance,
		TraveledDistance: ping.Progress.TraveledDistance,
		ActiveRouteID:    activeRouteID,
		LastUpdated:      now,
	}

	if ping.Progress.AccumulatedDistance != nil {
		next.AccumulatedDistance = *ping.Progress.AccumulatedDistance
	} else {
		next.AccumulatedDistance = previous.AccumulatedDistance
	}

	switch {
	case ping.Progress.OriginalTotalDistance != nil:
		next.OriginalTotalDistance = *ping.Progress.OriginalTotalDistance
	case previous.OriginalTotalDistance != 0:
		next.OriginalTotalDistance = previous.OriginalTotalDistance
	default:
		next.OriginalTotalDistance = ping.Progress.TotalDistance
	}

	rec.RouteProgress = datatypes.NewJSONType(next)
}

// IsStale reports whether an authenticated, non-offline record has gone
// silent past the threshold and should be swept offline.
func IsStale(rec *model.Tracking, now time.Time, threshold time.Duration) bool {
	if !rec.IsAuthenticated {
		return false
	}
	if rec.Status != model.TrackingActive && rec.Status != model.TrackingAvailable {
		return false
	}
	ts := rec.Location.Data().Timestamp
	if ts.IsZero() {
		return false
	}
	return now.Sub(ts) > threshold
}
