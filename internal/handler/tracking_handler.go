package handler

import (
	"errors"
	"net/http"
	"time"

	"fleet-service/internal/model"
	"fleet-service/internal/tracking"
	"fleet-service/pkg/database"
	"fleet-service/pkg/logger"
	"fleet-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TrackDriverLocation upserts the driver's live presence record from one
// location ping.
func TrackDriverLocation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.TrackingPingCounter.Inc()

	var req struct {
		UserID          uint                     `json:"userId"`
		IsAuthenticated bool                     `json:"isAuthenticated"`
		Latitude        *float64                 `json:"latitude"`
		Longitude       *float64                 `json:"longitude"`
		SuperiorAccount string                   `json:"superior_account"`
		RouteProgress   *tracking.ProgressUpdate `json:"routeProgress"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAPIError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request"})
	}
	if req.Latitude == nil || req.Longitude == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid latitude or longitude"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("upsert")(time.Now())

	// A route in progress owned by the driver turns the status Active.
	var activeRouteID *uint
	var route model.Route
	err := db.Select("id").
		Where("driver_id = ? AND status = ?", req.UserID, model.RouteStatusInProgress).
		First(&route).Error
	switch {
	case err == nil:
		activeRouteID = &route.ID
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		log.Error("Failed to look up active route", zap.Uint("user_id", req.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	var rec model.Tracking
	err = db.Where("user_id = ?", req.UserID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = model.Tracking{UserID: req.UserID}
	} else if err != nil {
		log.Error("Failed to load tracking record", zap.Uint("user_id", req.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	tracking.ApplyPing(&rec, tracking.Ping{
		IsAuthenticated: req.IsAuthenticated,
		Latitude:        *req.Latitude,
		Longitude:       *req.Longitude,
		SuperiorAccount: req.SuperiorAccount,
		Progress:        req.RouteProgress,
	}, activeRouteID, time.Now())

	if err := db.Save(&rec).Error; err != nil {
		log.Error("Failed to save tracking record", zap.Uint("user_id", req.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	log.Debug("Location ping applied",
		zap.Uint("user_id", req.UserID),
		zap.String("status", rec.Status))

	return c.JSON(http.StatusOK, echo.Map{"tracking": rec})
}
