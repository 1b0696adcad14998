package handler

import (
	"fmt"
	"net/http"
	"time"

	"fleet-service/internal/lifecycle"
	"fleet-service/internal/model"
	"fleet-service/pkg/database"
	"fleet-service/pkg/logger"
	"fleet-service/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// createRouteRequest is the planner payload for a new route.
type createRouteRequest struct {
	URL                    string            `json:"url"`
	SelectedOption         int               `json:"selectedOption"`
	Origin                 model.Point       `json:"origin"`
	Waypoints              []model.Point     `json:"waypoints"`
	Destination            model.Point       `json:"destination"`
	TollsTotal             float64           `json:"tolls_total"`
	DriverID               uint              `json:"driverId"`
	CustomerID             uint              `json:"customerId"`
	AssignedBy             model.AssignedBy  `json:"assignedBy"`
	DepartureTime          time.Time         `json:"departureTime"`
	ArrivalTime            time.Time         `json:"arrivalTime"`
	Distance               float64           `json:"distance"`
	DurationTrip           string            `json:"durationTrip"`
	Status                 string            `json:"status"`
	AvoidAreas             []model.AvoidArea `json:"avoidAreas"`
	AvoidParameters        []string          `json:"avoidParameters"`
	AvoidHighways          []string          `json:"avoidHighways"`
	Transportation         string            `json:"transportation"`
	Mode                   string            `json:"mode"`
	Traffic                bool              `json:"traffic"`
	TimeType               string            `json:"timeType"`
	ScheduledTime          string            `json:"scheduledTime"`
	DeviationAlertEnabled  *bool             `json:"deviationAlertEnabled"`
	DeviationAlertDistance *float64          `json:"deviationAlertDistance"`
}

// CreateRoute registers a new planned route for a driver. The route code,
// effective schedule and initial status are derived server side.
func CreateRoute(c echo.Context) error {
	log := logger.FromContext(c)

	var req createRouteRequest
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAPIError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var driver model.User
	if err := db.First(&driver, req.DriverID).Error; err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "driver not found"})
	}

	now := time.Now()
	codeRoute := lifecycle.GenerateRouteCode(now, req.AssignedBy.Name, driver.Name)

	departure, arrival, err := lifecycle.ResolveSchedule(req.DepartureTime, req.ArrivalTime, req.ScheduledTime, civilZone)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid scheduledTime: " + err.Error()})
	}

	status := req.Status
	if status == "" {
		status = lifecycle.InitialStatus(departure, now, civilZone)
	}

	route := model.Route{
		CodeRoute:       codeRoute,
		URL:             req.URL,
		SelectedOption:  req.SelectedOption,
		Origin:          datatypes.NewJSONType(defaultPointStatus(req.Origin)),
		Waypoints:       datatypes.JSONSlice[model.Point](defaultPointStatuses(req.Waypoints)),
		Destination:     datatypes.NewJSONType(defaultPointStatus(req.Destination)),
		TollsTotal:      req.TollsTotal,
		DriverID:        req.DriverID,
		CustomerID:      req.CustomerID,
		AssignedBy:      datatypes.NewJSONType(req.AssignedBy),
		DepartureTime:   departure,
		ArrivalTime:     arrival,
		Distance:        req.Distance,
		DurationTrip:    req.DurationTrip,
		Status:          status,
		AvoidAreas:      datatypes.JSONSlice[model.AvoidArea](req.AvoidAreas),
		AvoidParameters: datatypes.JSONSlice[string](req.AvoidParameters),
		AvoidHighways:   datatypes.JSONSlice[string](req.AvoidHighways),
		Transportation:  defaultString(req.Transportation, "truck"),
		Mode:            defaultString(req.Mode, "fast"),
		Traffic:         req.Traffic,
		TimeType:        defaultString(req.TimeType, "Salir ahora"),
		ScheduledTime:   req.ScheduledTime,
	}
	if req.DeviationAlertEnabled != nil {
		route.DeviationAlertEnabled = *req.DeviationAlertEnabled
	}
	if req.DeviationAlertDistance != nil {
		route.DeviationAlertDistance = *req.DeviationAlertDistance
	}

	if err := db.Create(&route).Error; err != nil {
		log.Error("Failed to create route", zap.String("code_route", codeRoute), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	prometheus.RecordRouteOperation("create")
	log.Info("Route created",
		zap.String("code_route", codeRoute),
		zap.Uint("driver_id", req.DriverID),
		zap.String("status", status))

	return c.JSON(http.StatusCreated, echo.Map{"message": "route created successfully", "route": route})
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultPointStatus(p model.Point) model.Point {
	if p.Status == "" {
		p.Status = model.PointStatusPending
	}
	return p
}

func defaultPointStatuses(points []model.Point) []model.Point {
	out := make([]model.Point, len(points))
	for i, p := range points {
		out[i] = defaultPointStatus(p)
	}
	return out
}

// GetRouteByCode returns the routes matching a route code. The response
// stays a list for client compatibility even though codes are unique.
func GetRouteByCode(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var routes []model.Route
	err := database.GetDB().
		Where("code_route = ?", c.Param("codeRoute")).
		Preload("Driver").Preload("Customer").
		Find(&routes).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	if len(routes) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "route not found"})
	}
	return c.JSON(http.StatusOK, routes)
}

// GetRouteByID returns a single route by primary key, used by the editor.
func GetRouteByID(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var route model.Route
	err := database.GetDB().
		Preload("Driver").Preload("Customer").
		First(&route, c.Param("routeId")).Error
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "route not found"})
	}
	return c.JSON(http.StatusOK, route)
}

// GetRoutesByDriver lists a driver's pending and in-progress routes.
func GetRoutesByDriver(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var routes []model.Route
	err := database.GetDB().
		Where("driver_id = ? AND status IN ?", c.Param("driverId"), lifecycle.ActiveStatuses).
		Preload("Driver").Preload("Customer").
		Find(&routes).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	if len(routes) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "routes not found"})
	}
	return c.JSON(http.StatusOK, routes)
}

// GetRouteHistoryByDriver lists a driver's finished routes. An empty
// history is a normal answer, not an error.
func GetRouteHistoryByDriver(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var routes []model.Route
	err := database.GetDB().
		Where("driver_id = ? AND status IN ?", c.Param("driverId"), lifecycle.TerminalStatuses).
		Order("departure_time DESC").
		Preload("Driver").Preload("Customer").
		Find(&routes).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, routes)
}

// UpdateRouteStatus marks the route as started. The operation is
// idempotent; repeating it leaves an already started route in progress.
func UpdateRouteStatus(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("update")(time.Now())
	db := database.GetDB()

	var route model.Route
	if err := db.Where("code_route = ?", c.Param("codeRoute")).First(&route).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "route not found"})
	}

	if err := db.Model(&route).Update("status", model.RouteStatusInProgress).Error; err != nil {
		log.Error("Failed to start route", zap.String("code_route", route.CodeRoute), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	db.Preload("Driver").Preload("Customer").First(&route, route.ID)

	prometheus.RecordRouteOperation("start")
	log.Info("Route started", zap.String("code_route", route.CodeRoute))
	return c.JSON(http.StatusOK, echo.Map{"message": "route status updated successfully", "route": route})
}

// updateRouteRequest carries the editable route fields. Nil means leave
// the stored value alone.
type updateRouteRequest struct {
	URL             *string            `json:"url"`
	SelectedOption  *int               `json:"selectedOption"`
	Origin          *model.Point       `json:"origin"`
	Waypoints       *[]model.Point     `json:"waypoints"`
	Destination     *model.Point       `json:"destination"`
	TollsTotal      *float64           `json:"tolls_total"`
	DriverID        *uint              `json:"driverId"`
	CustomerID      *uint              `json:"customerId"`
	DepartureTime   *time.Time         `json:"departureTime"`
	ArrivalTime     *time.Time         `json:"arrivalTime"`
	Distance        *float64           `json:"distance"`
	DurationTrip    *string            `json:"durationTrip"`
	AvoidAreas      *[]model.AvoidArea `json:"avoidAreas"`
	AvoidParameters *[]string          `json:"avoidParameters"`
	AvoidHighways   *[]string          `json:"avoidHighways"`
	Transportation  *string            `json:"transportation"`
	Mode            *string            `json:"mode"`
	Traffic         *bool              `json:"traffic"`
	TimeType        *string            `json:"timeType"`
	ScheduledTime   *string            `json:"scheduledTime"`
}

// UpdateRoute edits a planned route. Reassigning the driver notifies the
// new driver; the route status is never changed here.
func UpdateRoute(c echo.Context) error {
	log := logger.FromContext(c)

	db := database.GetDB()
	var route model.Route
	if err := db.First(&route, c.Param("routeId")).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "route not found"})
	}

	var req updateRouteRequest
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAPIError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request"})
	}

	var newDriver *model.User
	if req.DriverID != nil && *req.DriverID != route.DriverID {
		var driver model.User
		if err := db.First(&driver, *req.DriverID).Error; err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "driver not found"})
		}
		newDriver = &driver
		route.DriverID = driver.ID
	}

	if req.URL != nil {
		route.URL = *req.URL
	}
	if req.SelectedOption != nil {
		route.SelectedOption = *req.SelectedOption
	}
	if req.Origin != nil {
		route.Origin = datatypes.NewJSONType(defaultPointStatus(*req.Origin))
	}
	if req.Waypoints != nil {
		route.Waypoints = datatypes.JSONSlice[model.Point](defaultPointStatuses(*req.Waypoints))
	}
	if req.Destination != nil {
		route.Destination = datatypes.NewJSONType(defaultPointStatus(*req.Destination))
	}
	if req.TollsTotal != nil {
		route.TollsTotal = *req.TollsTotal
	}
	if req.CustomerID != nil {
		route.CustomerID = *req.CustomerID
	}
	if req.DepartureTime != nil {
		route.DepartureTime = *req.DepartureTime
	}
	if req.ArrivalTime != nil {
		route.ArrivalTime = *req.ArrivalTime
	}
	if req.Distance != nil {
		route.Distance = *req.Distance
	}
	if req.DurationTrip != nil {
		route.DurationTrip = *req.DurationTrip
	}
	if req.AvoidAreas != nil {
		route.AvoidAreas = datatypes.JSONSlice[model.AvoidArea](*req.AvoidAreas)
	}
	if req.AvoidParameters != nil {
		route.AvoidParameters = datatypes.JSONSlice[string](*req.AvoidParameters)
	}
	if req.AvoidHighways != nil {
		route.AvoidHighways = datatypes.JSONSlice[string](*req.AvoidHighways)
	}
	if req.Transportation != nil {
		route.Transportation = *req.Transportation
	}
	if req.Mode != nil {
		route.Mode = *req.Mode
	}
	if req.Traffic != nil {
		route.Traffic = *req.Traffic
	}
	if req.TimeType != nil {
		route.TimeType = *req.TimeType
	}
	if req.ScheduledTime != nil {
		route.ScheduledTime = *req.ScheduledTime
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := db.Save(&route).Error; err != nil {
		log.Error("Failed to update route", zap.Uint("route_id", route.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	if newDriver != nil {
		notifyReassignment(c, &route, newDriver)
	}

	db.Preload("Driver").Preload("Customer").First(&route, route.ID)

	prometheus.RecordRouteOperation("update")
	return c.JSON(http.StatusOK, echo.Map{"message": "route updated successfully", "route": route})
}

// notifyReassignment pushes the assignment to the new driver. Delivery is
// best effort; a push failure never fails the route update.
func notifyReassignment(c echo.Context, route *model.Route, driver *model.User) {
	log := logger.FromContext(c)

	if driver.FCMToken == "" {
		prometheus.RecordNotification("reassignment", "skipped")
		log.Warn("Driver has no FCM token, skipping reassignment push",
			zap.Uint("driver_id", driver.ID))
		return
	}

	departure := route.DepartureTime.In(civilZone).Format("02/01/2006 15:04")
	err := notifier.Send(c.Request().Context(), driver.FCMToken,
		"Nueva ruta asignada",
		fmt.Sprintf("Se te ha asignado la ruta %s con salida el %s", route.CodeRoute, departure),
		map[string]string{
			"type":      "route_assigned",
			"codeRoute": route.CodeRoute,
		})
	if err != nil {
		prometheus.RecordNotification("reassignment", "failure")
		log.Error("Failed to send reassignment push",
			zap.String("code_route", route.CodeRoute),
			zap.Uint("driver_id", driver.ID),
			zap.Error(err))
		return
	}
	prometheus.RecordNotification("reassignment", "success")
}

// ReportRouteDeviation appends an off-route event to the route. The
// deviation ID and timestamp are assigned server side.
func ReportRouteDeviation(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Type              string                   `json:"type"`
		Lat               *float64                 `json:"lat"`
		Lng               *float64                 `json:"lng"`
		Address           string                   `json:"address"`
		RecalculatedRoute *model.RecalculatedRoute `json:"recalculatedRoute"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAPIError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request"})
	}

	switch req.Type {
	case model.DeviationDetected, model.DeviationOriginalRoute, model.DeviationNewDestination:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid deviation type"})
	}
	if req.Lat == nil || req.Lng == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "lat and lng are required"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("update")(time.Now())

	var route model.Route
	if err := db.Where("code_route = ?", c.Param("codeRoute")).First(&route).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "route not found"})
	}

	deviation := model.Deviation{
		ID:                uuid.NewString(),
		Type:              req.Type,
		Lat:               *req.Lat,
		Lng:               *req.Lng,
		Timestamp:         time.Now().UTC(),
		Address:           req.Address,
		RecalculatedRoute: req.RecalculatedRoute,
	}
	route.Deviations = append(route.Deviations, deviation)

	if err := db.Save(&route).Error; err != nil {
		log.Error("Failed to record deviation",
			zap.String("code_route", route.CodeRoute), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	prometheus.RecordRouteOperation("deviation")
	log.Info("Deviation recorded",
		zap.String("code_route", route.CodeRoute),
		zap.String("type", deviation.Type),
		zap.String("deviation_id", deviation.ID))

	return c.JSON(http.StatusCreated, echo.Map{"message": "deviation recorded", "deviation": deviation})
}

// pendingDeviation is one unreviewed deviation joined with its route.
type pendingDeviation struct {
	RouteID    uint            `json:"routeId"`
	CodeRoute  string          `json:"codeRoute"`
	DriverName string          `json:"driverName"`
	Deviation  model.Deviation `json:"deviation"`
}

// GetPendingDeviations lists every deviation not yet reviewed by an
// admin, newest first.
func GetPendingDeviations(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var routes []model.Route
	err := database.GetDB().
		Where("jsonb_typeof(deviations) = 'array' AND jsonb_array_length(deviations) > 0").
		Preload("Driver").
		Find(&routes).Error
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	pending := make([]pendingDeviation, 0)
	for _, route := range routes {
		driverName := "Unknown"
		if route.Driver != nil {
			driverName = route.Driver.Name
		}
		for _, dev := range route.Deviations {
			if dev.SeenByAdmin {
				continue
			}
			pending = append(pending, pendingDeviation{
				RouteID:    route.ID,
				CodeRoute:  route.CodeRoute,
				DriverName: driverName,
				Deviation:  dev,
			})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"results": pending})
}

// MarkDeviationSeen flags a single deviation as reviewed.
func MarkDeviationSeen(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		CodeRoute   string `json:"codeRoute"`
		DeviationID string `json:"deviationId"`
	}
	if err := c.Bind(&req); err != nil || req.CodeRoute == "" || req.DeviationID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "codeRoute and deviationId are required"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("update")(time.Now())

	var route model.Route
	if err := db.Where("code_route = ?", req.CodeRoute).First(&route).Error; err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "route not found"})
	}

	found := false
	deviations := []model.Deviation(route.Deviations)
	for i := range deviations {
		if deviations[i].ID == req.DeviationID {
			deviations[i].SeenByAdmin = true
			found = true
		}
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "deviation not found"})
	}
	route.Deviations = deviations

	if err := db.Save(&route).Error; err != nil {
		log.Error("Failed to mark deviation as seen",
			zap.String("code_route", route.CodeRoute), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "deviation marked as seen"})
}
