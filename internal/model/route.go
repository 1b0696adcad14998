package model

import (
	"time"

	"gorm.io/datatypes"
)

// Route statuses. Sweeps and driver actions only ever move a route forward
// along this chain; the terminal three are never left automatically.
const (
	RouteStatusFuture     = "Ruta futura"
	RouteStatusNotStarted = "Ruta no iniciada"
	RouteStatusInProgress = "Ruta en curso"
	RouteStatusCompleted  = "Completado"
	RouteStatusExpired    = "Ruta expirada"
	RouteStatusOverdue    = "Ruta vencida"
)

// Point statuses. A point only reaches PointStatusCompleted through a Task.
const (
	PointStatusPending   = "pending"
	PointStatusCompleted = "Completado"
)

// Deviation event types.
const (
	DeviationDetected       = "DEVIATION_DETECTED"
	DeviationOriginalRoute  = "ORIGINAL_ROUTE"
	DeviationNewDestination = "NEW_DESTINATION"
)

// Point is a stop on a route: the origin, a waypoint or the destination.
// Load/Unload are tonnes, Duration/Minutes describe the leg ending here.
type Point struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Load     float64 `json:"load"`
	Unload   float64 `json:"unload"`
	Duration float64 `json:"duration"`
	Minutes  float64 `json:"minutes"`
	Status   string  `json:"status"`
}

// AssignedBy is a snapshot of who created the route, kept on the route so
// it survives later changes to that account.
type AssignedBy struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RouteSection is one leg of a (re)calculated route polyline.
type RouteSection struct {
	Polyline      string  `json:"polyline"`
	DepartureTime string  `json:"departureTime,omitempty"`
	ArrivalTime   string  `json:"arrivalTime,omitempty"`
	Distance      float64 `json:"distance,omitempty"`
	Duration      float64 `json:"duration,omitempty"`
}

// RecalculatedRoute carries the replacement geometry produced after a
// deviation.
type RecalculatedRoute struct {
	Polyline  string         `json:"polyline,omitempty"`
	Sections  []RouteSection `json:"sections,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// Deviation is an append-only off-route event. ID is assigned server side
// so admins can acknowledge individual events.
type Deviation struct {
	ID                string             `json:"id"`
	Type              string             `json:"type"`
	Lat               float64            `json:"lat"`
	Lng               float64            `json:"lng"`
	Timestamp         time.Time          `json:"timestamp"`
	SeenByAdmin       bool               `json:"seenByAdmin"`
	Address           string             `json:"address,omitempty"`
	RecalculatedRoute *RecalculatedRoute `json:"recalculatedRoute,omitempty"`
}

// AvoidArea is a polygon the routing engine should keep out of.
type AvoidArea struct {
	Name   string       `json:"name"`
	Points [][2]float64 `json:"points"`
	Color  string       `json:"color,omitempty"`
}

// Route is a planned or in-progress trip for one driver. Point, deviation
// and preference data keep their document shape in JSONB columns.
type Route struct {
	ID             uint                             `json:"id" gorm:"primaryKey"`
	CodeRoute      string                           `json:"codeRoute" gorm:"type:varchar(40);uniqueIndex"`
	URL            string                           `json:"url" gorm:"type:text"`
	SelectedOption int                              `json:"selectedOption"`
	Origin         datatypes.JSONType[Point]        `json:"origin"`
	Waypoints      datatypes.JSONSlice[Point]       `json:"waypoints"`
	Destination    datatypes.JSONType[Point]        `json:"destination"`
	TollsTotal     float64                          `json:"tolls_total"`
	DriverID       uint                             `json:"driverId" gorm:"index"`
	Driver         *User                            `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	CustomerID     uint                             `json:"customerId" gorm:"index"`
	Customer       *User                            `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	AssignedBy     datatypes.JSONType[AssignedBy]   `json:"assignedBy"`
	DepartureTime  time.Time                        `json:"departureTime" gorm:"index"`
	ArrivalTime    time.Time                        `json:"arrivalTime"`
	Distance       float64                          `json:"distance"`
	DurationTrip   string                           `json:"durationTrip" gorm:"type:varchar(60)"`
	Status         string                           `json:"status" gorm:"type:varchar(30);index"`
	ReminderSent   bool                             `json:"reminderSent"`
	StartSent      bool                             `json:"startNotificationSent" gorm:"column:start_notification_sent"`
	Deviations     datatypes.JSONSlice[Deviation]   `json:"deviations"`

	// Routing preferences, echoed back to the planner as provided.
	AvoidAreas             datatypes.JSONSlice[AvoidArea] `json:"avoidAreas"`
	AvoidParameters        datatypes.JSONSlice[string]    `json:"avoidParameters"`
	AvoidHighways          datatypes.JSONSlice[string]    `json:"avoidHighways"`
	Transportation         string                         `json:"transportation" gorm:"type:varchar(20);default:truck"`
	Mode                   string                         `json:"mode" gorm:"type:varchar(20);default:fast"`
	Traffic                bool                           `json:"traffic"`
	TimeType               string                         `json:"timeType" gorm:"type:varchar(30)"`
	ScheduledTime          string                         `json:"scheduledTime,omitempty" gorm:"type:varchar(30)"`
	DeviationAlertEnabled  bool                           `json:"deviationAlertEnabled"`
	DeviationAlertDistance float64                        `json:"deviationAlertDistance" gorm:"default:50"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AllPoints returns origin, waypoints and destination in travel order.
func (r *Route) AllPoints() []Point {
	points := make([]Point, 0, len(r.Waypoints)+2)
	points = append(points, r.Origin.Data())
	points = append(points, r.Waypoints...)
	points = append(points, r.Destination.Data())
	return points
}
