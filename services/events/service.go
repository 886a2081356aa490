package events

import (
	"context"

	"github.com/wahajws/amast-crm-sub001/config"
	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
)

// NewEventPublisher connects to RabbitMQ, or returns a publisher that only
// logs when RABBITMQ_URL is not set.
func NewEventPublisher(cfg *config.AppConfig, log logger.Logger, publisherConfig *PublisherConfig) (interfaces.EventPublisher, error) {
	if cfg.RabbitMQURL == "" {
		log.Warn("RABBITMQ_URL not set, events will not be published")
		return NewNoopPublisher(log), nil
	}
	return NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.AppSource, log, publisherConfig)
}

type noopPublisher struct {
	log logger.Logger
}

func NewNoopPublisher(log logger.Logger) interfaces.EventPublisher {
	return &noopPublisher{log: log}
}

func (p *noopPublisher) PublishLabelSyncCompleted(ctx context.Context, event dto.LabelSyncCompleted) error {
	p.log.Debugf("label sync completed for user %s label %s: synced=%d skipped=%d failed=%d",
		event.UserID, event.Result.LabelID, event.Result.EmailsSynced, event.Result.EmailsSkipped, event.Result.EmailsFailed)
	return nil
}

func (p *noopPublisher) PublishCampaignStatusChanged(ctx context.Context, event dto.CampaignStatusChanged) error {
	p.log.Debugf("campaign %s for contact %s: %s -> %s", event.CampaignID, event.ContactID, event.PreviousStatus, event.Status)
	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}
