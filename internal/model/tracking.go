package model

import (
	"time"

	"gorm.io/datatypes"
)

// Tracking statuses. Active means the driver is authenticated and owns a
// route currently in progress; Available means authenticated but idle;
// Offline covers signed-out drivers and ones gone silent past the
// staleness threshold.
const (
	TrackingAvailable = "Available"
	TrackingActive    = "Active"
	TrackingOffline   = "Offline"
)

// Location is the driver's last known position.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// RouteProgress is the live snapshot of how far along the active route the
// driver is. AccumulatedDistance and OriginalTotalDistance survive pings
// that omit them so reroutes don't reset the odometer.
type RouteProgress struct {
	Percentage            float64   `json:"percentage"`
	ETAMinutes            *float64  `json:"etaMinutes"`
	TotalDistance         float64   `json:"totalDistance"`
	TraveledDistance      float64   `json:"traveledDistance"`
	ActiveRouteID         *uint     `json:"activeRouteId"`
	AccumulatedDistance   float64   `json:"accumulatedDistance"`
	OriginalTotalDistance float64   `json:"originalTotalDistance"`
	LastUpdated           time.Time `json:"lastUpdated"`
}

// Tracking is the single live presence record per driver.
type Tracking struct {
	ID              uint                              `json:"id" gorm:"primaryKey"`
	UserID          uint                              `json:"userId" gorm:"uniqueIndex"`
	IsAuthenticated bool                              `json:"isAuthenticated"`
	Location        datatypes.JSONType[Location]      `json:"location"`
	SuperiorAccount string                            `json:"superior_account" gorm:"type:varchar(100);index"`
	Status          string                            `json:"status" gorm:"type:varchar(20);index;default:Offline"`
	RouteProgress   datatypes.JSONType[RouteProgress] `json:"routeProgress"`
	CreatedAt       time.Time                         `json:"createdAt"`
	UpdatedAt       time.Time                         `json:"updatedAt"`
}

// TableName keeps the collection-style singular name used by the clients.
func (Tracking) TableName() string {
	return "tracking"
}
