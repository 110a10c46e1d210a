package worker

import (
	"github.com/spec-kit/isp-support/internal/events"
	"github.com/spec-kit/isp-support/internal/service"
)

// StartNotificationWorker registers notification handlers and, when a dashboard
// service is given, the cache invalidation subscriber.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, dashboard *service.DashboardService) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if dashboard != nil && dispatcher != nil {
		dashboard.InvalidateOnChanges(dispatcher)
	}
}
