package lifecycle

import (
	"errors"
	"testing"
	"time"

	"fleet-service/internal/model"

	"gorm.io/datatypes"
)

var mexicoCity = func() *time.Location {
	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		panic(err)
	}
	return loc
}()

func point(name, status string) model.Point {
	return model.Point{Name: name, Lat: 19.4, Lng: -99.1, Status: status}
}

func testRoute(waypointStatuses []string, destStatus string) *model.Route {
	waypoints := make([]model.Point, len(waypointStatuses))
	for i, s := range waypointStatuses {
		waypoints[i] = point("wp"+string(rune('A'+i)), s)
	}
	return &model.Route{
		CodeRoute:   "20240101T090000-A-B",
		Status:      model.RouteStatusInProgress,
		Origin:      datatypes.NewJSONType(point("origin", model.PointStatusPending)),
		Waypoints:   datatypes.NewJSONSlice(waypoints),
		Destination: datatypes.NewJSONType(point("dest", destStatus)),
	}
}

func TestInitialStatus(t *testing.T) {
	// Wednesday 14:00 local.
	now := time.Date(2026, 3, 4, 14, 0, 0, 0, mexicoCity)

	cases := []struct {
		name      string
		departure time.Time
		want      string
	}{
		{"tomorrow morning", time.Date(2026, 3, 5, 9, 0, 0, 0, mexicoCity), model.RouteStatusFuture},
		{"today earlier", time.Date(2026, 3, 4, 9, 0, 0, 0, mexicoCity), model.RouteStatusNotStarted},
		{"today later", time.Date(2026, 3, 4, 20, 0, 0, 0, mexicoCity), model.RouteStatusNotStarted},
		{"yesterday", time.Date(2026, 3, 3, 9, 0, 0, 0, mexicoCity), model.RouteStatusNotStarted},
		{"next month", time.Date(2026, 4, 1, 9, 0, 0, 0, mexicoCity), model.RouteStatusFuture},
	}

	for _, tc := range cases {
		if got := InitialStatus(tc.departure, now, mexicoCity); got != tc.want {
			t.Errorf("%s: InitialStatus = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestInitialStatusUsesCivilDayNotUTC(t *testing.T) {
	// 23:00 local on March 4 is already March 5 in UTC. A departure on
	// March 5 local must still count as a future route.
	now := time.Date(2026, 3, 4, 23, 0, 0, 0, mexicoCity)
	departure := time.Date(2026, 3, 5, 9, 0, 0, 0, mexicoCity)

	if got := InitialStatus(departure.UTC(), now.UTC(), mexicoCity); got != model.RouteStatusFuture {
		t.Errorf("InitialStatus = %q, want %q", got, model.RouteStatusFuture)
	}
}

func TestNextSweepStatus(t *testing.T) {
	grace := 12 * time.Hour
	abandon := 72 * time.Hour
	departure := time.Date(2026, 3, 4, 9, 0, 0, 0, mexicoCity)

	cases := []struct {
		name    string
		status  string
		now     time.Time
		want    string
		changed bool
	}{
		{
			"future becomes startable on departure day",
			model.RouteStatusFuture,
			time.Date(2026, 3, 4, 0, 30, 0, 0, mexicoCity),
			model.RouteStatusNotStarted, true,
		},
		{
			"future stays future the day before",
			model.RouteStatusFuture,
			time.Date(2026, 3, 3, 23, 30, 0, 0, mexicoCity),
			model.RouteStatusFuture, false,
		},
		{
			"not started expires past the grace window",
			model.RouteStatusNotStarted,
			departure.Add(grace + time.Minute),
			model.RouteStatusExpired, true,
		},
		{
			"not started holds within the grace window",
			model.RouteStatusNotStarted,
			departure.Add(grace - time.Minute),
			model.RouteStatusNotStarted, false,
		},
		{
			"in progress becomes overdue past the abandonment window",
			model.RouteStatusInProgress,
			departure.Add(abandon + time.Minute),
			model.RouteStatusOverdue, true,
		},
		{
			"in progress holds within the abandonment window",
			model.RouteStatusInProgress,
			departure.Add(abandon - time.Hour),
			model.RouteStatusInProgress, false,
		},
	}

	for _, tc := range cases {
		got, changed := NextSweepStatus(tc.status, departure, tc.now, mexicoCity, grace, abandon)
		if got != tc.want || changed != tc.changed {
			t.Errorf("%s: NextSweepStatus = (%q, %v), want (%q, %v)", tc.name, got, changed, tc.want, tc.changed)
		}
	}
}

func TestSweepNeverLeavesTerminalStates(t *testing.T) {
	grace := 12 * time.Hour
	abandon := 72 * time.Hour
	departure := time.Date(2026, 3, 4, 9, 0, 0, 0, mexicoCity)
	farFuture := departure.Add(30 * 24 * time.Hour)

	for _, status := range TerminalStatuses {
		got, changed := NextSweepStatus(status, departure, farFuture, mexicoCity, grace, abandon)
		if changed || got != status {
			t.Errorf("terminal status %q changed to %q by sweep", status, got)
		}
	}
}

func TestCompletePoint(t *testing.T) {
	route := testRoute([]string{model.PointStatusPending, model.PointStatusPending}, model.PointStatusPending)

	closed, err := CompletePoint(route, "wpA")
	if err != nil {
		t.Fatalf("CompletePoint(wpA): %v", err)
	}
	if closed {
		t.Error("route closed with pending points remaining")
	}
	if route.Waypoints[0].Status != model.PointStatusCompleted {
		t.Errorf("wpA status = %q, want completed", route.Waypoints[0].Status)
	}
	if route.Status != model.RouteStatusInProgress {
		t.Errorf("route status = %q, want unchanged", route.Status)
	}
}

func TestCompletePointClosure(t *testing.T) {
	// N waypoints plus destination: completing all N+1 closes the route.
	route := testRoute([]string{model.PointStatusCompleted, model.PointStatusPending}, model.PointStatusCompleted)

	closed, err := CompletePoint(route, "wpB")
	if err != nil {
		t.Fatalf("CompletePoint(wpB): %v", err)
	}
	if !closed {
		t.Fatal("route did not close after last point completed")
	}
	if route.Status != model.RouteStatusCompleted {
		t.Errorf("route status = %q, want %q", route.Status, model.RouteStatusCompleted)
	}
}

func TestCompletePointOriginNotRequired(t *testing.T) {
	route := testRoute([]string{model.PointStatusCompleted}, model.PointStatusPending)

	closed, err := CompletePoint(route, "dest")
	if err != nil {
		t.Fatalf("CompletePoint(dest): %v", err)
	}
	if !closed {
		t.Error("route must close when waypoints and destination are done, regardless of origin")
	}
}

func TestCompletePointUnknownName(t *testing.T) {
	route := testRoute([]string{model.PointStatusPending}, model.PointStatusPending)

	if _, err := CompletePoint(route, "nowhere"); !errors.Is(err, ErrPointNotFound) {
		t.Errorf("expected ErrPointNotFound, got %v", err)
	}
}

func TestGenerateRouteCode(t *testing.T) {
	now := time.Date(2026, 3, 4, 9, 5, 6, 0, time.UTC)
	got := GenerateRouteCode(now, "maria", "pedro")
	want := "20260304T090506-M-P"
	if got != want {
		t.Errorf("GenerateRouteCode = %q, want %q", got, want)
	}
}

func TestResolveSchedulePreservesDuration(t *testing.T) {
	provDep := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	provArr := provDep.Add(2*time.Hour + 30*time.Minute)

	dep, arr, err := ResolveSchedule(provDep, provArr, "2026-03-10 08:00", mexicoCity)
	if err != nil {
		t.Fatalf("ResolveSchedule: %v", err)
	}

	wantDep := time.Date(2026, 3, 10, 8, 0, 0, 0, mexicoCity)
	if !dep.Equal(wantDep) {
		t.Errorf("departure = %v, want %v", dep, wantDep)
	}
	if got := arr.Sub(dep); got != 2*time.Hour+30*time.Minute {
		t.Errorf("trip duration = %v, want 2h30m preserved", got)
	}
}

func TestResolveScheduleWithoutScheduledTime(t *testing.T) {
	provDep := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	provArr := provDep.Add(time.Hour)

	dep, arr, err := ResolveSchedule(provDep, provArr, "", mexicoCity)
	if err != nil {
		t.Fatalf("ResolveSchedule: %v", err)
	}
	if !dep.Equal(provDep) || !arr.Equal(provArr) {
		t.Errorf("estimates must stand when no scheduled time is given")
	}
}

func TestResolveScheduleRejectsGarbage(t *testing.T) {
	if _, _, err := ResolveSchedule(time.Now(), time.Now(), "mañana temprano", mexicoCity); err == nil {
		t.Error("expected error for unparseable scheduled time")
	}
}
