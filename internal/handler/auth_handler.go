package handler

import (
	"net/http"
	"time"

	"fleet-service/internal/model"
	"fleet-service/pkg/database"
	"fleet-service/pkg/jwtutil"
	"fleet-service/pkg/logger"
	"fleet-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// provisionalPassword is the fixed password set by an admin-triggered
// reset. The user is expected to change it on next login.
const provisionalPassword = "111111"

func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAPIError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request"})
	}

	// Find user in database - track DB operation duration
	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().Preload("Role").Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		log.Error("User not found", zap.String("email", req.Email))
		prometheus.RecordAPIError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid email or password"})
	}

	// Verify password
	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password))
	if err != nil {
		log.Error("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAPIError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid email or password"})
	}

	token, err := jwtutil.GenerateToken(user.Email, user.ID, user.TypeUser, user.Superior())
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAPIError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "token error"})
	}

	roleName := user.TypeUser
	if user.Role != nil {
		roleName = user.Role.Name
	}

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.String("role", roleName))

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user": echo.Map{
			"id":               user.ID,
			"superior_account": user.SuperiorAccount,
			"email":            user.Email,
			"name":             user.Name,
			"role":             roleName,
		},
	})
}

// ResetPassword sets the user's password back to the provisional one.
func ResetPassword(c echo.Context) error {
	log := logger.FromContext(c)

	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid or missing user ID"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var user model.User
	if err := database.GetDB().First(&user, id).Error; err != nil {
		log.Warn("User not found for password reset", zap.String("id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(provisionalPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash provisional password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to reset password"})
	}

	if err := database.GetDB().Model(&user).Update("password", string(hashed)).Error; err != nil {
		log.Error("Failed to reset password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to reset password"})
	}

	prometheus.RecordUserOperation("reset_password")
	log.Info("Password reset successful", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset successful"})
}

// UpdateFCMToken registers the device push token for a user.
func UpdateFCMToken(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		UserID   uint   `json:"userId"`
		FCMToken string `json:"fcmToken"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == 0 || req.FCMToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "userId and fcmToken are required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := database.GetDB().Model(&model.User{}).
		Where("id = ?", req.UserID).
		Update("fcm_token", req.FCMToken)
	if result.Error != nil {
		log.Error("Failed to update FCM token", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to update FCM token"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	}

	log.Debug("FCM token updated", zap.Uint("user_id", req.UserID))
	return c.JSON(http.StatusOK, echo.Map{"message": "FCM token updated successfully"})
}
