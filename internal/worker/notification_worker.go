package worker

import (
	"github.com/push-hr/helpdesk/internal/events"
	"github.com/push-hr/helpdesk/internal/service"
)

// StartNotificationWorker registers the fan-out handlers on the dispatcher.
func StartNotificationWorker(fanout *service.FanoutService, dispatcher events.Dispatcher) {
	if fanout == nil {
		return
	}
	fanout.RegisterHandlers(dispatcher)
}
