package campaign

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/wahajws/amast-crm-sub001/config"
	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/repository"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

const (
	defaultRecommendationLimit = 10
	maxRecommendationLimit     = 100
)

type campaignService struct {
	log         logger.Logger
	staleWindow time.Duration
	campaigns   interfaces.EmailCampaignRepository
	directory   interfaces.Directory
	events      interfaces.EventPublisher
	now         func() time.Time
}

func NewCampaignService(log logger.Logger, cfg *config.CampaignConfig, repos *repository.Repositories, events interfaces.EventPublisher) interfaces.CampaignService {
	return &campaignService{
		log:         log,
		staleWindow: cfg.StaleWindow(),
		campaigns:   repos.EmailCampaignRepository,
		directory:   repos.Directory,
		events:      events,
		now:         utils.Now,
	}
}

// GetStatus reports the stored status, or a derived one when the contact
// has no campaign yet.
func (s *campaignService) GetStatus(ctx context.Context, contactID string) (*dto.CampaignStatusView, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CampaignService.GetStatus")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, contactID)

	campaign, err := s.campaigns.GetByContactID(ctx, contactID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if campaign != nil {
		return &dto.CampaignStatusView{
			ContactID:            contactID,
			Status:               campaign.Status,
			CommunicationStarted: campaign.CommunicationStarted,
			Campaign:             campaign,
		}, nil
	}

	contact, err := s.getContact(ctx, contactID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	status := enum.CampaignNoEmail
	if contact.HasOutreachTemplate() {
		status = enum.CampaignNotCreated
	}
	return &dto.CampaignStatusView{ContactID: contactID, Status: status}, nil
}

// MarkAsSent moves the contact's campaign to SENT, creating it from the
// contact's template when missing. Later statuses are kept.
func (s *campaignService) MarkAsSent(ctx context.Context, contactID, senderID string) (*models.EmailCampaign, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CampaignService.MarkAsSent")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, contactID)

	campaign, err := s.markAsSent(ctx, contactID, senderID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return campaign, nil
}

func (s *campaignService) markAsSent(ctx context.Context, contactID, senderID string) (*models.EmailCampaign, error) {
	if strings.TrimSpace(contactID) == "" {
		return nil, errors.Wrap(mailerrors.ErrMissingCampaignField, "contact id")
	}
	now := s.now()

	return s.mutate(ctx, contactID, func(contact *models.Contact) *models.EmailCampaign {
		fresh := newCampaign(contact, enum.CampaignSourceManual)
		fresh.MarkSent(senderID, now)
		return fresh
	}, func(campaign *models.EmailCampaign) {
		campaign.MarkSent(senderID, now)
	})
}

// ToggleCommunicationStarted sets the engagement flag. Starting
// communication on a PENDING campaign also marks it sent.
func (s *campaignService) ToggleCommunicationStarted(ctx context.Context, contactID string, started bool, actorID string) (*models.EmailCampaign, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CampaignService.ToggleCommunicationStarted")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, contactID)
	span.SetTag("started", started)

	if strings.TrimSpace(contactID) == "" {
		return nil, errors.Wrap(mailerrors.ErrMissingCampaignField, "contact id")
	}
	now := s.now()

	apply := func(campaign *models.EmailCampaign) {
		campaign.CommunicationStarted = started
		if started && campaign.Status == enum.CampaignPending {
			campaign.MarkSent(actorID, now)
		}
	}

	campaign, err := s.mutate(ctx, contactID, func(contact *models.Contact) *models.EmailCampaign {
		fresh := newCampaign(contact, enum.CampaignSourceManual)
		apply(fresh)
		return fresh
	}, apply)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return campaign, nil
}

// BulkMarkAsSent handles each contact on its own. One failure never stops
// the others and the call itself does not fail.
func (s *campaignService) BulkMarkAsSent(ctx context.Context, contactIDs []string, senderID string) []dto.BulkMarkResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CampaignService.BulkMarkAsSent")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("contacts", len(contactIDs))

	results := make([]dto.BulkMarkResult, 0, len(contactIDs))
	failed := 0
	for _, contactID := range contactIDs {
		campaign, err := s.markAsSent(ctx, contactID, senderID)
		if err != nil {
			failed++
			s.log.Warnf("bulk mark as sent: contact %s: %v", contactID, err)
			results = append(results, dto.BulkMarkResult{ContactID: contactID, Error: err.Error()})
			continue
		}
		results = append(results, dto.BulkMarkResult{ContactID: contactID, Success: true, Status: campaign.Status})
	}
	span.SetTag("failed", failed)

	return results
}

// SaveOutreachTemplate stores a generated template on the contact and
// refreshes the snapshot of a campaign that has not been sent yet.
func (s *campaignService) SaveOutreachTemplate(ctx context.Context, contactID, subject, body string) (*models.Contact, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CampaignService.SaveOutreachTemplate")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, contactID)

	if err := requireFields(map[string]string{"contactId": contactID, "subject": subject, "body": body}); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	contact, err := s.directory.SaveContactTemplate(ctx, contactID, subject, body)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if contact == nil {
		return nil, errors.Wrapf(mailerrors.ErrContactNotFound, "contact %s", contactID)
	}

	campaign, err := s.campaigns.GetByContactID(ctx, contactID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if campaign != nil && campaign.Status == enum.CampaignPending {
		campaign.Subject = subject
		campaign.Body = body
		if err := s.campaigns.Update(ctx, campaign); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	return contact, nil
}

// UpsertCampaign is the bulk-import and lead-generation write path. All
// input is validated before anything is written; an existing campaign
// keeps its status.
func (s *campaignService) UpsertCampaign(ctx context.Context, input dto.CampaignUpsert) (*models.EmailCampaign, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CampaignService.UpsertCampaign")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, input.ContactID)

	if err := requireFields(map[string]string{"contactId": input.ContactID, "subject": input.Subject, "body": input.Body}); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if input.Priority == "" {
		input.Priority = enum.PriorityMedium
	}
	if !input.Priority.IsValid() {
		err := errors.Wrapf(mailerrors.ErrInvalidCampaignInput, "priority %q", input.Priority)
		tracing.TraceErr(span, err)
		return nil, err
	}
	if input.Source == "" {
		input.Source = enum.CampaignSourceBulkImport
	}

	apply := func(campaign *models.EmailCampaign) {
		campaign.Priority = input.Priority
		campaign.Source = input.Source
		if campaign.Status == enum.CampaignPending {
			campaign.Subject = input.Subject
			campaign.Body = input.Body
		}
	}

	campaign, err := s.mutate(ctx, input.ContactID, func(contact *models.Contact) *models.EmailCampaign {
		fresh := newCampaign(contact, input.Source)
		if input.OwnerID != "" {
			fresh.OwnerID = input.OwnerID
		}
		apply(fresh)
		return fresh
	}, apply)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return campaign, nil
}

// mutate loads the live campaign and applies update, or creates one with
// create. When a concurrent writer wins the insert, update is applied to
// the winner instead.
func (s *campaignService) mutate(ctx context.Context, contactID string,
	create func(*models.Contact) *models.EmailCampaign,
	update func(*models.EmailCampaign),
) (*models.EmailCampaign, error) {
	campaign, err := s.campaigns.GetByContactID(ctx, contactID)
	if err != nil {
		return nil, err
	}

	if campaign == nil {
		contact, err := s.getContact(ctx, contactID)
		if err != nil {
			return nil, err
		}
		stored, created, err := s.campaigns.CreateIfAbsent(ctx, create(contact))
		if err != nil {
			return nil, err
		}
		if created {
			s.publishChange(ctx, stored, "")
			return stored, nil
		}
		campaign = stored
	}

	previous := campaign.Status
	update(campaign)
	if err := s.campaigns.Update(ctx, campaign); err != nil {
		return nil, err
	}
	if campaign.Status != previous {
		s.publishChange(ctx, campaign, previous)
	}
	return campaign, nil
}

func (s *campaignService) getContact(ctx context.Context, contactID string) (*models.Contact, error) {
	contact, err := s.directory.GetContact(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, errors.Wrapf(mailerrors.ErrContactNotFound, "contact %s", contactID)
	}
	return contact, nil
}

func (s *campaignService) publishChange(ctx context.Context, campaign *models.EmailCampaign, previous enum.CampaignStatus) {
	if s.events == nil {
		return
	}
	err := s.events.PublishCampaignStatusChanged(ctx, dto.CampaignStatusChanged{
		CampaignID:           campaign.ID,
		ContactID:            campaign.ContactID,
		PreviousStatus:       previous,
		Status:               campaign.Status,
		CommunicationStarted: campaign.CommunicationStarted,
	})
	if err != nil {
		s.log.Warnf("failed to publish campaign change for contact %s: %v", campaign.ContactID, err)
	}
}

func newCampaign(contact *models.Contact, source enum.CampaignSource) *models.EmailCampaign {
	return &models.EmailCampaign{
		ContactID: contact.ID,
		OwnerID:   contact.OwnerID,
		Subject:   contact.OutreachSubject,
		Body:      contact.OutreachBody,
		Status:    enum.CampaignPending,
		Priority:  enum.PriorityMedium,
		Source:    source,
	}
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return errors.Wrap(mailerrors.ErrMissingCampaignField, strings.Join(missing, ", "))
}
