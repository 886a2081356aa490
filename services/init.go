package services

import (
	"github.com/wahajws/amast-crm-sub001/config"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
	"github.com/wahajws/amast-crm-sub001/internal/repository"
	"github.com/wahajws/amast-crm-sub001/services/aggregator"
	"github.com/wahajws/amast-crm-sub001/services/campaign"
	"github.com/wahajws/amast-crm-sub001/services/domain_matcher"
	"github.com/wahajws/amast-crm-sub001/services/email"
	"github.com/wahajws/amast-crm-sub001/services/entity_resolver"
	"github.com/wahajws/amast-crm-sub001/services/events"
	"github.com/wahajws/amast-crm-sub001/services/mail_provider"
	"github.com/wahajws/amast-crm-sub001/services/mail_sync"
	"github.com/wahajws/amast-crm-sub001/services/message_parser"
)

type Services struct {
	Events            interfaces.EventPublisher
	MailProviders     interfaces.MailProviderFactory
	SyncService       interfaces.SyncService
	CampaignService   interfaces.CampaignService
	AggregatorService interfaces.AggregatorService
	EmailService      interfaces.EmailService
}

// InitServices wires every service from its collaborators. storeAttachments
// reports whether object storage is configured.
func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories, matcher *domain_matcher.Matcher, storeAttachments bool) (*Services, error) {
	publisher, err := events.NewEventPublisher(cfg.AppConfig, log, events.DefaultPublisherConfig())
	if err != nil {
		return nil, err
	}

	providers := mail_provider.NewMailProviderFactory(log, cfg.GmailConfig, repos.MailAccountRepository)
	resolver := entity_resolver.NewEntityResolver(repos.Directory, matcher)

	return &Services{
		Events:        publisher,
		MailProviders: providers,
		SyncService: mail_sync.NewSyncService(log, cfg.SyncConfig, repos, providers,
			message_parser.NewParser(), resolver, publisher, storeAttachments),
		CampaignService:   campaign.NewCampaignService(log, cfg.CampaignConfig, repos, publisher),
		AggregatorService: aggregator.NewAggregatorService(log, repos, matcher),
		EmailService:      email.NewEmailService(log, cfg.SyncConfig, repos, providers),
	}, nil
}

func (s *Services) Close() error {
	if s.Events != nil {
		return s.Events.Close()
	}
	return nil
}
