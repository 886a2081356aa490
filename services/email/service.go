package email

import (
	"context"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/wahajws/amast-crm-sub001/config"
	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/repository"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

const maxUnlinkedPageSize = 100

var (
	ErrAttachmentDoesNotExist = errors.New("attachment does not exist")
	ErrAccountDoesNotExist    = errors.New("account does not exist")
	ErrLinkNotAllowed         = errors.New("record belongs to another user")
)

type emailService struct {
	log         logger.Logger
	cfg         *config.SyncConfig
	emails      interfaces.EmailRepository
	attachments interfaces.EmailAttachmentRepository
	directory   interfaces.Directory
	providers   interfaces.MailProviderFactory
}

func NewEmailService(log logger.Logger, cfg *config.SyncConfig, repos *repository.Repositories, providers interfaces.MailProviderFactory) interfaces.EmailService {
	return &emailService{
		log:         log,
		cfg:         cfg,
		emails:      repos.EmailRepository,
		attachments: repos.EmailAttachmentRepository,
		directory:   repos.Directory,
		providers:   providers,
	}
}

func (s *emailService) SetRead(ctx context.Context, userID, emailID string, isRead bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.SetRead")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, emailID)

	if _, err := s.getEmail(ctx, userID, emailID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return s.emails.SetRead(ctx, userID, emailID, isRead)
}

func (s *emailService) SetStarred(ctx context.Context, userID, emailID string, isStarred bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.SetStarred")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, emailID)

	if _, err := s.getEmail(ctx, userID, emailID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return s.emails.SetStarred(ctx, userID, emailID, isStarred)
}

// Link attaches the email to a contact and/or account chosen by the user.
// A nil or empty id clears that side. Linking a contact without an account
// takes the contact's account.
func (s *emailService) Link(ctx context.Context, userID, emailID string, contactID, accountID *string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.Link")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, emailID)

	if _, err := s.getEmail(ctx, userID, emailID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	contactID = blankToNil(contactID)
	accountID = blankToNil(accountID)
	seesAll := utils.HasAnyRole(ctx, utils.RoleAdmin, utils.RoleManager)

	if contactID != nil {
		contact, err := s.directory.GetContact(ctx, *contactID)
		if err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		if contact == nil {
			return errors.Wrapf(mailerrors.ErrContactNotFound, "contact %s", *contactID)
		}
		if contact.OwnerID != userID && !seesAll {
			return errors.Wrapf(ErrLinkNotAllowed, "contact %s", *contactID)
		}
		if accountID == nil && contact.AccountID != nil {
			accountID = utils.StringPtr(*contact.AccountID)
		}
	}

	if accountID != nil {
		filter := dto.AccountFilter{IDs: []string{*accountID}}
		if !seesAll {
			filter.OwnerID = &userID
		}
		accounts, err := s.directory.FindAccounts(ctx, filter)
		if err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		if len(accounts) == 0 {
			return errors.Wrapf(ErrAccountDoesNotExist, "account %s", *accountID)
		}
	}

	if err := s.emails.SetLinks(ctx, userID, emailID, contactID, accountID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (s *emailService) Delete(ctx context.Context, userID, emailID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.Delete")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, emailID)

	if _, err := s.getEmail(ctx, userID, emailID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return s.emails.SoftDelete(ctx, userID, emailID)
}

func (s *emailService) ListUnlinked(ctx context.Context, userID string, limit, offset int) ([]*models.Email, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.ListUnlinked")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if userID == "" {
		return nil, 0, mailerrors.ErrUserIdMissing
	}
	if limit < 1 || limit > maxUnlinkedPageSize || offset < 0 {
		return nil, 0, errors.Wrapf(mailerrors.ErrInvalidPagination, "limit %d offset %d", limit, offset)
	}
	return s.emails.ListUnlinked(ctx, userID, limit, offset)
}

// GetAttachmentData returns the attachment bytes from object storage, or
// from the mail provider when only a provider reference was recorded.
func (s *emailService) GetAttachmentData(ctx context.Context, userID, attachmentID string) (*models.EmailAttachment, []byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "EmailService.GetAttachmentData")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, attachmentID)

	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, err
	}
	if attachment == nil {
		return nil, nil, ErrAttachmentDoesNotExist
	}

	// ownership is checked through the parent email
	email, err := s.getEmail(ctx, userID, attachment.EmailID)
	if err != nil {
		if errors.Is(err, mailerrors.ErrEmailNotFound) {
			return nil, nil, ErrAttachmentDoesNotExist
		}
		tracing.TraceErr(span, err)
		return nil, nil, err
	}

	if attachment.IsStored() {
		data, err := s.attachments.GetData(ctx, attachment.ID)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, nil, err
		}
		return attachment, data, nil
	}

	if attachment.ProviderAttachmentID == "" {
		return nil, nil, errors.Wrap(ErrAttachmentDoesNotExist, "no download reference")
	}
	s.log.Debugf("attachment %s not stored, fetching from provider", attachment.ID)
	provider, err := s.providers.ForUser(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, err
	}
	defer provider.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	data, err := provider.GetAttachment(fetchCtx, email.ProviderMessageID, attachment.ProviderAttachmentID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, errors.Wrap(err, "failed to fetch attachment from provider")
	}
	return attachment, data, nil
}

func (s *emailService) getEmail(ctx context.Context, userID, emailID string) (*models.Email, error) {
	if userID == "" {
		return nil, mailerrors.ErrUserIdMissing
	}
	email, err := s.emails.GetByID(ctx, userID, emailID)
	if err != nil {
		return nil, err
	}
	if email == nil {
		return nil, errors.Wrapf(mailerrors.ErrEmailNotFound, "email %s", emailID)
	}
	return email, nil
}

func blankToNil(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	return &trimmed
}
