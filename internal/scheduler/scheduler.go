// Package scheduler owns the periodic sweeps: route lifecycle
// transitions, departure reminders and tracking staleness. Each job runs
// on its own fixed-interval ticker; filters only match records still in
// the source state, so overlapping runs are harmless.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"fleet-service/internal/lifecycle"
	"fleet-service/internal/model"
	"fleet-service/internal/notification"
	"fleet-service/internal/tracking"
	"fleet-service/pkg/config"
	"fleet-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Clock abstracts time.Now so tests can drive the sweeps deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Scheduler runs the periodic jobs against the database.
type Scheduler struct {
	db       *gorm.DB
	clock    Clock
	loc      *time.Location
	cfg      config.ScheduleConfig
	notifier *notification.Notifier
	log      *zap.Logger
}

// New builds a Scheduler. loc is the civil time zone used for all
// day-boundary decisions.
func New(db *gorm.DB, clock Clock, loc *time.Location, cfg config.ScheduleConfig, notifier *notification.Notifier, log *zap.Logger) *Scheduler {
	return &Scheduler{
		db:       db,
		clock:    clock,
		loc:      loc,
		cfg:      cfg,
		notifier: notifier,
		log:      log,
	}
}

// Start launches the three sweep loops. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, "route_status", s.cfg.RouteSweepInterval, s.SweepRouteStatuses)
	go s.loop(ctx, "reminders", s.cfg.ReminderInterval, s.SweepReminders)
	go s.loop(ctx, "tracking", s.cfg.TrackingSweepInterval, s.SweepTracking)
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, job func() error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("sweep started", zap.String("job", name), zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweep stopped", zap.String("job", name))
			return
		case <-ticker.C:
			start := time.Now()
			if err := job(); err != nil {
				s.log.Error("sweep failed", zap.String("job", name), zap.Error(err))
			}
			prometheus.ObserveSweep(name, time.Since(start))
		}
	}
}

// SweepRouteStatuses applies the time-driven lifecycle transitions. All
// three are monotonic; a route already past the matched state is simply
// not matched again.
func (s *Scheduler) SweepRouteStatuses() error {
	now := s.clock.Now()
	startOfTomorrow := lifecycle.StartOfNextCivilDay(now, s.loc)

	// Future routes whose departure day has arrived become startable.
	res := s.db.Model(&model.Route{}).
		Where("status = ? AND departure_time < ?", model.RouteStatusFuture, startOfTomorrow).
		Update("status", model.RouteStatusNotStarted)
	if res.Error != nil {
		return fmt.Errorf("promoting future routes: %w", res.Error)
	}
	prometheus.RecordRouteTransition("future_to_not_started", res.RowsAffected)

	// Unstarted routes past the grace window expire.
	res = s.db.Model(&model.Route{}).
		Where("status = ? AND departure_time < ?", model.RouteStatusNotStarted, now.Add(-s.cfg.ExpireAfter)).
		Update("status", model.RouteStatusExpired)
	if res.Error != nil {
		return fmt.Errorf("expiring unstarted routes: %w", res.Error)
	}
	prometheus.RecordRouteTransition("not_started_to_expired", res.RowsAffected)

	// Routes still in progress far past departure are abandoned.
	res = s.db.Model(&model.Route{}).
		Where("status = ? AND departure_time < ?", model.RouteStatusInProgress, now.Add(-s.cfg.AbandonAfter)).
		Update("status", model.RouteStatusOverdue)
	if res.Error != nil {
		return fmt.Errorf("abandoning in-progress routes: %w", res.Error)
	}
	prometheus.RecordRouteTransition("in_progress_to_overdue", res.RowsAffected)

	return nil
}

// SweepReminders sends the departure reminder shortly before a route
// starts and the start notification once departure has passed. Both are
// one-shot; sent flags keep re-runs from spamming drivers.
func (s *Scheduler) SweepReminders() error {
	now := s.clock.Now()

	var upcoming []model.Route
	err := s.db.Preload("Driver").
		Where("status IN ? AND departure_time >= ? AND departure_time <= ? AND reminder_sent = ?",
			[]string{model.RouteStatusNotStarted, model.RouteStatusFuture}, now, now.Add(s.cfg.ReminderLead), false).
		Find(&upcoming).Error
	if err != nil {
		return fmt.Errorf("loading upcoming routes: %w", err)
	}

	for i := range upcoming {
		route := &upcoming[i]
		if route.Driver == nil || route.Driver.FCMToken == "" {
			continue
		}

		departure := route.DepartureTime.In(s.loc).Format("15:04")
		body := fmt.Sprintf("Tu ruta %s inicia a las %s. ¡Prepárate!", route.CodeRoute, departure)
		err := s.notifier.Send(context.Background(), route.Driver.FCMToken, "¡Prepárate para tu ruta!", body, map[string]string{
			"type":      "route_reminder",
			"codeRoute": route.CodeRoute,
			"routeId":   fmt.Sprint(route.ID),
		})
		if err != nil {
			prometheus.RecordNotification("reminder", "failure")
			s.log.Warn("reminder delivery failed",
				zap.String("code_route", route.CodeRoute), zap.Error(err))
			continue
		}
		prometheus.RecordNotification("reminder", "success")

		if err := s.db.Model(route).Update("reminder_sent", true).Error; err != nil {
			return fmt.Errorf("marking reminder sent: %w", err)
		}
	}

	var started []model.Route
	err = s.db.Preload("Driver").
		Where("status = ? AND departure_time <= ? AND start_notification_sent = ?",
			model.RouteStatusNotStarted, now, false).
		Find(&started).Error
	if err != nil {
		return fmt.Errorf("loading started routes: %w", err)
	}

	for i := range started {
		route := &started[i]
		if route.Driver == nil || route.Driver.FCMToken == "" {
			continue
		}

		body := fmt.Sprintf("Tu ruta %s ya debería estar en curso.", route.CodeRoute)
		err := s.notifier.Send(context.Background(), route.Driver.FCMToken, "Tu ruta debe iniciar", body, map[string]string{
			"type":      "route_start",
			"codeRoute": route.CodeRoute,
			"routeId":   fmt.Sprint(route.ID),
		})
		if err != nil {
			prometheus.RecordNotification("start", "failure")
			s.log.Warn("start notification delivery failed",
				zap.String("code_route", route.CodeRoute), zap.Error(err))
			continue
		}
		prometheus.RecordNotification("start", "success")

		if err := s.db.Model(route).Update("start_notification_sent", true).Error; err != nil {
			return fmt.Errorf("marking start notification sent: %w", err)
		}
	}

	return nil
}

// SweepTracking flips authenticated records that have gone silent past
// the staleness threshold to offline. This is the only way a client
// disappearing without a sign-off is detected.
func (s *Scheduler) SweepTracking() error {
	now := s.clock.Now()

	var candidates []model.Tracking
	err := s.db.
		Where("is_authenticated = ? AND status IN ?", true,
			[]string{model.TrackingActive, model.TrackingAvailable}).
		Find(&candidates).Error
	if err != nil {
		return fmt.Errorf("loading tracking candidates: %w", err)
	}

	var stale []uint
	var active int64
	for i := range candidates {
		if tracking.IsStale(&candidates[i], now, s.cfg.TrackingStaleAfter) {
			stale = append(stale, candidates[i].ID)
		} else if candidates[i].Status == model.TrackingActive {
			active++
		}
	}
	prometheus.UpdateActiveDrivers(active)

	if len(stale) == 0 {
		return nil
	}

	res := s.db.Model(&model.Tracking{}).
		Where("id IN ?", stale).
		Update("status", model.TrackingOffline)
	if res.Error != nil {
		return fmt.Errorf("marking stale trackers offline: %w", res.Error)
	}

	prometheus.RecordTrackingSwept(res.RowsAffected)
	s.log.Info("stale tracking records marked offline", zap.Int64("count", res.RowsAffected))
	return nil
}
