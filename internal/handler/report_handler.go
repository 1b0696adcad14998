package handler

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"fleet-service/internal/model"
	"fleet-service/pkg/database"
	"fleet-service/pkg/logger"
	"fleet-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Report endpoints answer 200 with an error field instead of an HTTP
// error when input is missing, so dashboard widgets can render an empty
// state without special casing.

var durationToken = regexp.MustCompile(`(\d+)\s*(día|hr|min)`)

// parseTripDuration converts a trip duration like "1 día 2 hrs 30 min"
// into total minutes. Unrecognized text counts as zero.
func parseTripDuration(s string) int {
	total := 0
	for _, m := range durationToken.FindAllStringSubmatch(s, -1) {
		value, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch m[2] {
		case "día":
			total += value * 1440
		case "hr":
			total += value * 60
		case "min":
			total += value
		}
	}
	return total
}

// formatMinutesDHM renders minutes back into the "N días N hrs N min"
// display format.
func formatMinutesDHM(minutes int) string {
	days := minutes / 1440
	hours := (minutes % 1440) / 60
	mins := minutes % 60

	out := ""
	if days > 0 {
		out += strconv.Itoa(days) + " día"
		if days > 1 {
			out += "s"
		}
	}
	if hours > 0 {
		if out != "" {
			out += " "
		}
		out += strconv.Itoa(hours) + " hr"
		if hours > 1 {
			out += "s"
		}
	}
	if mins > 0 || out == "" {
		if out != "" {
			out += " "
		}
		out += strconv.Itoa(mins) + " min"
	}
	return out
}

// civilDayBounds expands "YYYY-MM-DD" start and end dates to the full
// civil days they name.
func civilDayBounds(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02", startDate, civilZone)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endDay, err := time.ParseInLocation("2006-01-02", endDate, civilZone)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := endDay.Add(24*time.Hour - time.Second)
	return start, end, nil
}

// totalUnload sums the tonnes unloaded across every point of the route.
func totalUnload(route *model.Route) float64 {
	total := 0.0
	for _, p := range route.AllPoints() {
		total += p.Unload
	}
	return total
}

type tripRow struct {
	OriginName      string    `json:"originName"`
	DepartureTime   time.Time `json:"departureTime"`
	ArrivalTime     time.Time `json:"arrivalTime"`
	DestinationName string    `json:"destinationName"`
	Waypoints       int       `json:"waypoints"`
	TripDuration    string    `json:"tripDuration"`
	Distance        float64   `json:"distance"`
	AverageSpeed    string    `json:"averageSpeed"`
	TotalUnload     float64   `json:"totalUnload"`
}

type tripSummary struct {
	Rows            []tripRow
	TotalTrips      int
	TotalDistance   float64
	TotalTonnes     float64
	TotalMinutes    int
	AverageSpeedAll string
}

// summarizeTrips aggregates completed routes into per-trip rows plus
// fleet-level totals.
func summarizeTrips(routes []model.Route) tripSummary {
	summary := tripSummary{Rows: make([]tripRow, 0, len(routes)), TotalTrips: len(routes)}

	for i := range routes {
		route := &routes[i]
		unloaded := totalUnload(route)
		minutes := parseTripDuration(route.DurationTrip)

		summary.TotalTonnes += unloaded
		summary.TotalDistance += route.Distance
		summary.TotalMinutes += minutes

		speed := 0.0
		if minutes > 0 {
			speed = route.Distance / (float64(minutes) / 60)
		}

		summary.Rows = append(summary.Rows, tripRow{
			OriginName:      route.Origin.Data().Name,
			DepartureTime:   route.DepartureTime,
			ArrivalTime:     route.ArrivalTime,
			DestinationName: route.Destination.Data().Name,
			Waypoints:       len(route.Waypoints),
			TripDuration:    route.DurationTrip,
			Distance:        route.Distance,
			AverageSpeed:    fmt.Sprintf("%.2f", speed),
			TotalUnload:     unloaded,
		})
	}

	overall := 0.0
	if summary.TotalMinutes > 0 {
		overall = summary.TotalDistance / (float64(summary.TotalMinutes) / 60)
	}
	summary.AverageSpeedAll = fmt.Sprintf("%.2f", overall)
	return summary
}

// GetReportByDriver summarizes a driver's completed trips in a date
// window.
func GetReportByDriver(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		UserID    uint   `json:"userId"`
	}
	if err := c.Bind(&req); err != nil || req.StartDate == "" || req.EndDate == "" || req.UserID == 0 {
		return c.JSON(http.StatusOK, echo.Map{"error": "missing required fields", "results": []tripRow{}})
	}

	start, end, err := civilDayBounds(req.StartDate, req.EndDate)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"error": "invalid date format", "results": []tripRow{}})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	var routes []model.Route
	err = db.Where("driver_id = ? AND departure_time >= ? AND arrival_time <= ? AND status = ?",
		req.UserID, start, end, model.RouteStatusCompleted).
		Find(&routes).Error
	if err != nil {
		log.Error("Failed to load driver report routes", zap.Uint("driver_id", req.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	driverName := "Unknown"
	var driver model.User
	if err := db.First(&driver, req.UserID).Error; err == nil {
		driverName = driver.Name
	}

	summary := summarizeTrips(routes)
	return c.JSON(http.StatusOK, echo.Map{
		"driverName":            driverName,
		"totalTrips":            summary.TotalTrips,
		"totalDistance":         summary.TotalDistance,
		"totalDownloadedTonnes": summary.TotalTonnes,
		"totalDuration":         formatMinutesDHM(summary.TotalMinutes),
		"averageSpeedOverall":   summary.AverageSpeedAll,
		"results":               summary.Rows,
	})
}

// GetReportByCustomer summarizes the completed trips delivered to a
// customer in a date window.
func GetReportByCustomer(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		UserID    uint   `json:"userId"`
	}
	if err := c.Bind(&req); err != nil || req.StartDate == "" || req.EndDate == "" || req.UserID == 0 {
		return c.JSON(http.StatusOK, echo.Map{"error": "missing required fields", "results": []tripRow{}})
	}

	start, end, err := civilDayBounds(req.StartDate, req.EndDate)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"error": "invalid date format", "results": []tripRow{}})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	var routes []model.Route
	err = db.Where("customer_id = ? AND departure_time >= ? AND arrival_time <= ? AND status = ?",
		req.UserID, start, end, model.RouteStatusCompleted).
		Find(&routes).Error
	if err != nil {
		log.Error("Failed to load customer report routes", zap.Uint("customer_id", req.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	customerName := "Unknown"
	var customer model.User
	if err := db.First(&customer, req.UserID).Error; err == nil {
		customerName = customer.Name
	}

	summary := summarizeTrips(routes)
	return c.JSON(http.StatusOK, echo.Map{
		"customerName":          customerName,
		"totalTrips":            summary.TotalTrips,
		"totalDistance":         summary.TotalDistance,
		"totalDownloadedTonnes": summary.TotalTonnes,
		"totalDuration":         formatMinutesDHM(summary.TotalMinutes),
		"averageSpeedOverall":   summary.AverageSpeedAll,
		"results":               summary.Rows,
	})
}

// GetReportByStatus lists routes in a date window, optionally narrowed
// to one driver or one status.
func GetReportByStatus(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		UserID    *uint  `json:"userId"`
		Status    string `json:"status"`
	}
	if err := c.Bind(&req); err != nil || req.StartDate == "" || req.EndDate == "" {
		return c.JSON(http.StatusOK, echo.Map{"error": "missing required fields", "results": []echo.Map{}})
	}

	start, end, err := civilDayBounds(req.StartDate, req.EndDate)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"error": "invalid date format", "results": []echo.Map{}})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	query := db.Where("departure_time >= ? AND arrival_time <= ?", start, end)
	if req.UserID != nil && *req.UserID != 0 {
		query = query.Where("driver_id = ?", *req.UserID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var routes []model.Route
	if err := query.Order("departure_time ASC").Preload("Driver").Find(&routes).Error; err != nil {
		log.Error("Failed to load status report routes", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	results := make([]echo.Map, 0, len(routes))
	for i := range routes {
		route := &routes[i]
		driverName := "Unknown"
		if route.Driver != nil {
			driverName = route.Driver.Name
		}
		results = append(results, echo.Map{
			"routeId":         route.ID,
			"driverName":      driverName,
			"codeRoute":       route.CodeRoute,
			"originName":      route.Origin.Data().Name,
			"departureTime":   route.DepartureTime,
			"arrivalTime":     route.ArrivalTime,
			"destinationName": route.Destination.Data().Name,
			"waypoints":       len(route.Waypoints),
			"tripDuration":    route.DurationTrip,
			"distance":        route.Distance,
			"status":          route.Status,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"results": results})
}

// GetReportByCodeRoute returns the proof-of-delivery records of a route
// together with its summary.
func GetReportByCodeRoute(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		CodeRoute string `json:"codeRoute"`
	}
	if err := c.Bind(&req); err != nil || req.CodeRoute == "" {
		return c.JSON(http.StatusOK, echo.Map{
			"error":   "missing required field: codeRoute",
			"results": []echo.Map{},
		})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("query")(time.Now())

	var tasks []model.Task
	if err := db.Where("code_route = ?", req.CodeRoute).Find(&tasks).Error; err != nil {
		log.Error("Failed to load tasks", zap.String("code_route", req.CodeRoute), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	if len(tasks) == 0 {
		return c.JSON(http.StatusOK, echo.Map{
			"error":   "no tasks found for the given codeRoute",
			"results": []echo.Map{},
		})
	}

	var route model.Route
	if err := db.Where("code_route = ?", req.CodeRoute).Preload("Driver").Preload("Customer").First(&route).Error; err != nil {
		return c.JSON(http.StatusOK, echo.Map{
			"error":   "no route found for the given codeRoute",
			"results": []echo.Map{},
		})
	}

	results := make([]echo.Map, 0, len(tasks))
	for _, task := range tasks {
		results = append(results, echo.Map{
			"signature":      task.Signature,
			"taskStatus":     task.TaskStatus,
			"comments":       task.Comments,
			"images":         task.Images,
			"point":          task.Point,
			"deliveryStatus": task.DeliveryStatus,
			"createdAt":      task.CreatedAt,
		})
	}

	driverName := "Unknown"
	if route.Driver != nil {
		driverName = route.Driver.Name
	}
	customerName := "Unknown"
	if route.Customer != nil {
		customerName = route.Customer.Name
	}

	return c.JSON(http.StatusOK, echo.Map{
		"results":         results,
		"driverName":      driverName,
		"customerName":    customerName,
		"originName":      route.Origin.Data().Name,
		"departureTime":   route.DepartureTime,
		"arrivalTime":     route.ArrivalTime,
		"destinationName": route.Destination.Data().Name,
		"tripDuration":    route.DurationTrip,
		"distance":        route.Distance,
		"assignedByName":  route.AssignedBy.Data().Name,
		"createdAt":       route.CreatedAt,
	})
}
