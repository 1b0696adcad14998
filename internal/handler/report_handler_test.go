package handler

import (
	"testing"
	"time"

	"fleet-service/internal/model"

	"gorm.io/datatypes"
)

func TestParseTripDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"45 min", 45},
		{"2 hrs", 120},
		{"1 hr 30 min", 90},
		{"1 día 2 hrs 30 min", 1590},
		{"2 días", 2880},
		{"3 días 5 min", 4325},
		{"", 0},
		{"pronto", 0},
	}
	for _, tc := range cases {
		if got := parseTripDuration(tc.in); got != tc.want {
			t.Errorf("parseTripDuration(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatMinutesDHM(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0 min"},
		{45, "45 min"},
		{60, "1 hr"},
		{90, "1 hr 30 min"},
		{1440, "1 día"},
		{1590, "1 día 2 hrs 30 min"},
		{2880, "2 días"},
		{4325, "3 días 5 min"},
	}
	for _, tc := range cases {
		if got := formatMinutesDHM(tc.in); got != tc.want {
			t.Errorf("formatMinutesDHM(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDurationRoundTrip(t *testing.T) {
	for _, minutes := range []int{1, 59, 60, 1439, 1440, 1500, 10000} {
		formatted := formatMinutesDHM(minutes)
		if got := parseTripDuration(formatted); got != minutes {
			t.Errorf("parseTripDuration(formatMinutesDHM(%d)) = %d via %q", minutes, got, formatted)
		}
	}
}

func TestCivilDayBounds(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}
	prev := civilZone
	civilZone = loc
	defer func() { civilZone = prev }()

	start, end, err := civilDayBounds("2025-03-10", "2025-03-12")
	if err != nil {
		t.Fatalf("civilDayBounds: %v", err)
	}
	wantStart := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2025, 3, 12, 23, 59, 59, 0, loc)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", end, wantEnd)
	}

	if _, _, err := civilDayBounds("10/03/2025", "2025-03-12"); err == nil {
		t.Error("expected error for malformed start date")
	}
}

func TestSummarizeTrips(t *testing.T) {
	routes := []model.Route{
		{
			Origin:       datatypes.NewJSONType(model.Point{Name: "CDMX", Unload: 2}),
			Destination:  datatypes.NewJSONType(model.Point{Name: "Puebla", Unload: 5}),
			Waypoints:    datatypes.JSONSlice[model.Point]{{Name: "Tlaxcala", Unload: 3}},
			Distance:     120,
			DurationTrip: "2 hrs",
		},
		{
			Origin:       datatypes.NewJSONType(model.Point{Name: "Puebla"}),
			Destination:  datatypes.NewJSONType(model.Point{Name: "CDMX", Unload: 10}),
			Distance:     130,
			DurationTrip: "2 hrs",
		},
	}

	summary := summarizeTrips(routes)

	if summary.TotalTrips != 2 {
		t.Errorf("TotalTrips = %d, want 2", summary.TotalTrips)
	}
	if summary.TotalDistance != 250 {
		t.Errorf("TotalDistance = %v, want 250", summary.TotalDistance)
	}
	if summary.TotalTonnes != 20 {
		t.Errorf("TotalTonnes = %v, want 20", summary.TotalTonnes)
	}
	if summary.TotalMinutes != 240 {
		t.Errorf("TotalMinutes = %d, want 240", summary.TotalMinutes)
	}
	if summary.AverageSpeedAll != "62.50" {
		t.Errorf("AverageSpeedAll = %q, want %q", summary.AverageSpeedAll, "62.50")
	}
	if summary.Rows[0].AverageSpeed != "60.00" {
		t.Errorf("row speed = %q, want %q", summary.Rows[0].AverageSpeed, "60.00")
	}
	if summary.Rows[0].Waypoints != 1 || summary.Rows[1].Waypoints != 0 {
		t.Errorf("waypoint counts = %d,%d, want 1,0", summary.Rows[0].Waypoints, summary.Rows[1].Waypoints)
	}
}

func TestSummarizeTripsZeroDuration(t *testing.T) {
	routes := []model.Route{{
		Origin:       datatypes.NewJSONType(model.Point{Name: "A"}),
		Destination:  datatypes.NewJSONType(model.Point{Name: "B"}),
		Distance:     50,
		DurationTrip: "",
	}}

	summary := summarizeTrips(routes)
	if summary.Rows[0].AverageSpeed != "0.00" {
		t.Errorf("speed with zero duration = %q, want %q", summary.Rows[0].AverageSpeed, "0.00")
	}
	if summary.AverageSpeedAll != "0.00" {
		t.Errorf("overall speed with zero duration = %q, want %q", summary.AverageSpeedAll, "0.00")
	}
}
