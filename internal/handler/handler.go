package handler

import (
	"time"

	"fleet-service/internal/hierarchy"
	"fleet-service/internal/notification"
	"fleet-service/pkg/config"
)

var (
	appConfig *config.Config
	civilZone *time.Location
	notifier  *notification.Notifier
)

// Configure wires the handler package with the loaded configuration, the
// civil time zone used for schedule interpretation and the push notifier.
// Must be called once before registering routes.
func Configure(cfg *config.Config, loc *time.Location, n *notification.Notifier) {
	appConfig = cfg
	civilZone = loc
	notifier = n
}

func visibilityPolicy() hierarchy.Policy {
	return hierarchy.Policy{CustomerDriverVisibility: appConfig.Policy.CustomerDriverVisibility}
}
