package worker

import (
	"github.com/xl-support/helpdesk/internal/service"
)

// StartNotificationWorker registers the audit notification handlers. The
// dispatcher is synchronous, so there is no goroutine to stop.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
