package worker

import (
	"go.uber.org/zap"

	"github.com/personahub/chat-backend/internal/config"
	"github.com/personahub/chat-backend/internal/events"
	"github.com/personahub/chat-backend/internal/service"
)

// StartNotificationWorker subscribes the redis forwarder to every domain
// event on bus. Without a publisher events are only logged.
func StartNotificationWorker(bus events.Dispatcher, publisher service.Publisher, cfg config.RedisConfig, logger *zap.Logger) *service.NotificationService {
	if bus == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := service.NewNotificationService(bus, publisher, cfg.NotifyChannel, logger.Named("notifications"))
	notifier.RegisterHandlers()

	if publisher == nil {
		logger.Warn("no redis publisher; domain events are logged only")
	} else {
		logger.Info("forwarding domain events", zap.String("channel", cfg.NotifyChannel), zap.Int("event_types", len(events.AllTypes)))
	}
	return notifier
}
