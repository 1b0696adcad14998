// Package lifecycle owns the route status state machine: the initial
// status at creation, the monotonic sweep transitions, point completion
// through tasks and the schedule resolution in the civil time zone.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fleet-service/internal/model"

	"gorm.io/datatypes"
)

// ErrPointNotFound is returned when a task names a point that does not
// exist on the route.
var ErrPointNotFound = errors.New("point not found in route")

// ActiveStatuses are the states a driver still has work in.
var ActiveStatuses = []string{
	model.RouteStatusNotStarted,
	model.RouteStatusFuture,
	model.RouteStatusInProgress,
}

// TerminalStatuses are never left by any sweep.
var TerminalStatuses = []string{
	model.RouteStatusCompleted,
	model.RouteStatusExpired,
	model.RouteStatusOverdue,
}

// IsTerminal reports whether a status is final.
func IsTerminal(status string) bool {
	for _, s := range TerminalStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// civilDate reduces an instant to its calendar day in loc.
func civilDate(t time.Time, loc *time.Location) (int, time.Month, int) {
	return t.In(loc).Date()
}

// afterToday reports whether t falls on a later civil day than now.
func afterToday(t, now time.Time, loc *time.Location) bool {
	ty, tm, td := civilDate(t, loc)
	ny, nm, nd := civilDate(now, loc)
	if ty != ny {
		return ty > ny
	}
	if tm != nm {
		return tm > nm
	}
	return td > nd
}

// InitialStatus decides the status of a newly created route: future when
// the departure's civil day is strictly after today's, otherwise not
// started.
func InitialStatus(departure, now time.Time, loc *time.Location) string {
	if afterToday(departure, now, loc) {
		return model.RouteStatusFuture
	}
	return model.RouteStatusNotStarted
}

// NextSweepStatus computes the transition the periodic sweep should
// apply to a route, if any. Transitions are one way: future routes
// become startable on their departure day, unstarted routes expire once
// the grace window after departure has passed, and routes still in
// progress become overdue after the abandonment window. Terminal states
// are never touched.
func NextSweepStatus(status string, departure, now time.Time, loc *time.Location, grace, abandon time.Duration) (string, bool) {
	switch status {
	case model.RouteStatusFuture:
		if !afterToday(departure, now, loc) {
			return model.RouteStatusNotStarted, true
		}
	case model.RouteStatusNotStarted:
		if now.Sub(departure) > grace {
			return model.RouteStatusExpired, true
		}
	case model.RouteStatusInProgress:
		if now.Sub(departure) > abandon {
			return model.RouteStatusOverdue, true
		}
	}
	return status, false
}

// StartOfNextCivilDay returns the instant the next calendar day begins
// in loc. Routes departing before it are departing today or earlier.
func StartOfNextCivilDay(now time.Time, loc *time.Location) time.Time {
	y, m, d := civilDate(now, loc)
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// CompletePoint marks the named waypoint or destination of the route as
// completed. When every waypoint and the destination are completed the
// route itself transitions to completed; the origin is not required.
// The returned bool reports whether the route closed in this call.
func CompletePoint(route *model.Route, pointName string) (bool, error) {
	updated := false

	waypoints := []model.Point(route.Waypoints)
	for i := range waypoints {
		if waypoints[i].Name == pointName {
			waypoints[i].Status = model.PointStatusCompleted
			updated = true
		}
	}
	route.Waypoints = waypoints

	destination := route.Destination.Data()
	if destination.Name == pointName {
		destination.Status = model.PointStatusCompleted
		route.Destination = datatypes.NewJSONType(destination)
		updated = true
	}

	if !updated {
		return false, fmt.Errorf("%w: %q", ErrPointNotFound, pointName)
	}

	for _, p := range waypoints {
		if p.Status != model.PointStatusCompleted {
			return false, nil
		}
	}
	if route.Destination.Data().Status != model.PointStatusCompleted {
		return false, nil
	}

	route.Status = model.RouteStatusCompleted
	return true, nil
}

// GenerateRouteCode builds the unique route code from the creation
// instant plus the creator's and driver's initials.
func GenerateRouteCode(now time.Time, assignedByName, driverName string) string {
	timestamp := now.UTC().Format("20060102T150405")
	return fmt.Sprintf("%s-%s-%s", timestamp, initial(assignedByName), initial(driverName))
}

func initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "X"
	}
	runes := []rune(name)
	return strings.ToUpper(string(runes[0]))
}

// scheduledLayouts are the wall-clock formats planners send.
var scheduledLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ResolveSchedule turns the planner's provisional departure/arrival
// estimates into the authoritative instants. When a scheduled wall-clock
// string is supplied it is interpreted in the civil zone and becomes the
// departure; the provisional trip duration is preserved when shifting
// the arrival. Without a scheduled time the estimates stand as given.
func ResolveSchedule(provDeparture, provArrival time.Time, scheduled string, loc *time.Location) (time.Time, time.Time, error) {
	if scheduled == "" {
		return provDeparture, provArrival, nil
	}

	var departure time.Time
	var err error
	for _, layout := range scheduledLayouts {
		departure, err = time.ParseInLocation(layout, scheduled, loc)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid scheduled time %q: %w", scheduled, err)
	}

	arrival := departure.Add(provArrival.Sub(provDeparture))
	return departure, arrival, nil
}
