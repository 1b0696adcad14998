package main

import (
	"context"

	"fleet-service/internal/handler"
	"fleet-service/internal/middleware"
	"fleet-service/internal/notification"
	"fleet-service/internal/scheduler"
	"fleet-service/pkg/config"
	"fleet-service/pkg/database"
	"fleet-service/pkg/jwtutil"
	"fleet-service/pkg/logger"
	"fleet-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting fleet service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Resolve the civil time zone used for schedules and reports
	loc, err := cfg.Schedule.Location()
	if err != nil {
		log.Fatal("Failed to load schedule time zone",
			zap.String("time_zone", cfg.Schedule.TimeZone), zap.Error(err))
	}

	// Push notifier and handler wiring
	notifier := notification.New(&cfg.Notify, log)
	handler.Configure(cfg, loc, notifier)

	// Background sweeps: route statuses, reminders and tracking staleness
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched := scheduler.New(database.GetDB(), scheduler.SystemClock{}, loc, cfg.Schedule, notifier, log)
	sched.Start(ctx)
	log.Info("Scheduler started",
		zap.Duration("route_sweep_interval", cfg.Schedule.RouteSweepInterval),
		zap.Duration("reminder_interval", cfg.Schedule.ReminderInterval),
		zap.Duration("tracking_sweep_interval", cfg.Schedule.TrackingSweepInterval))

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.POST("/login", handler.Login)

	// Device endpoints used before a session exists
	e.POST("/track", handler.TrackDriverLocation)
	e.POST("/user/fcm-token", handler.UpdateFCMToken)

	// API routes - all require authentication
	api := e.Group("")
	api.Use(middleware.AuthMiddleware)

	// User management
	api.GET("/users", handler.GetUsers)
	api.GET("/users/admin", handler.GetUsersAdmin)
	api.GET("/users/driver", handler.GetUsersDriver)
	api.GET("/user/:id", handler.GetUserByID)
	api.POST("/users", handler.CreateUser)
	api.PUT("/user/:id", handler.UpdateUser)
	api.DELETE("/user/:id", handler.DeleteUser)
	api.POST("/move-account", handler.MoveAccount)
	api.POST("/reset-password/:id", handler.ResetPassword)

	// Route management
	api.POST("/routes", handler.CreateRoute)
	api.GET("/route/:codeRoute", handler.GetRouteByCode)
	api.GET("/route/edit/:routeId", handler.GetRouteByID)
	api.GET("/route/driver/:driverId", handler.GetRoutesByDriver)
	api.GET("/route/driver/:driverId/history", handler.GetRouteHistoryByDriver)
	api.PUT("/route/:routeId", handler.UpdateRoute)
	api.PATCH("/route/status/:codeRoute", handler.UpdateRouteStatus)
	api.POST("/route/deviation/:codeRoute", handler.ReportRouteDeviation)

	// Deviation review
	api.GET("/reports/deviations/pending", handler.GetPendingDeviations)
	api.PUT("/report/deviation/seen", handler.MarkDeviationSeen)

	// Proof of delivery
	api.POST("/task", handler.CreateTask)

	// Reports
	api.POST("/report/details/driver", handler.GetReportByDriver)
	api.POST("/report/details/status", handler.GetReportByStatus)
	api.POST("/report/details/customer", handler.GetReportByCustomer)
	api.POST("/report/details/codeRoute", handler.GetReportByCodeRoute)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
