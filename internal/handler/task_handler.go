package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fleet-service/internal/lifecycle"
	"fleet-service/internal/model"
	"fleet-service/pkg/database"
	"fleet-service/pkg/logger"
	"fleet-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// CreateTask records the proof of delivery for one route point. The
// request is multipart form data; the point and images fields arrive as
// JSON-encoded strings. Completing the last pending point closes the
// route.
func CreateTask(c echo.Context) error {
	log := logger.FromContext(c)

	signature := c.FormValue("signature")
	taskStatus := c.FormValue("taskStatus")
	deliveryStatus := c.FormValue("deliveryStatus")
	comments := c.FormValue("comments")
	codeRoute := c.FormValue("codeRoute")
	pointRaw := c.FormValue("point")
	imagesRaw := c.FormValue("images")

	if pointRaw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "field 'point' is required"})
	}

	var points []model.TaskPoint
	if err := json.Unmarshal([]byte(pointRaw), &points); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON format for point"})
	}
	if len(points) == 0 || points[0].Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "point name is missing inside point object"})
	}
	pointName := points[0].Name

	images := []model.TaskImage{}
	if imagesRaw != "" {
		if err := json.Unmarshal([]byte(imagesRaw), &images); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON format for images"})
		}
		for _, img := range images {
			if img.ImageURL == "" {
				return c.JSON(http.StatusBadRequest, echo.Map{
					"message": `images should have the format [{"imageUrl": "..."}]`,
				})
			}
		}
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var route model.Route
	if err := db.Where("code_route = ?", codeRoute).First(&route).Error; err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "route not found"})
	}

	closed, err := lifecycle.CompletePoint(&route, pointName)
	if err != nil {
		if errors.Is(err, lifecycle.ErrPointNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"message": "point name '" + pointName + "' not found in the route",
			})
		}
		log.Error("Failed to complete point", zap.String("code_route", codeRoute), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	task := model.Task{
		Signature:      signature,
		TaskStatus:     taskStatus,
		DeliveryStatus: deliveryStatus,
		Comments:       comments,
		CodeRoute:      codeRoute,
		Images:         datatypes.JSONSlice[model.TaskImage](images),
		Point:          datatypes.JSONSlice[model.TaskPoint](points),
	}

	// The task insert and the route update are separate writes; a crash
	// between them leaves a task whose point is still pending.
	if err := db.Create(&task).Error; err != nil {
		log.Error("Failed to create task", zap.String("code_route", codeRoute), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	if err := db.Save(&route).Error; err != nil {
		log.Error("Failed to update route after task",
			zap.String("code_route", codeRoute), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}

	prometheus.TaskCreatedCounter.Inc()
	if closed {
		prometheus.RecordRouteOperation("complete")
		log.Info("Route completed", zap.String("code_route", codeRoute))
	}
	log.Info("Task created",
		zap.String("code_route", codeRoute),
		zap.String("point", pointName))

	return c.JSON(http.StatusCreated, echo.Map{"message": "task created successfully", "task": task})
}
