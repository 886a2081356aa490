package mail_sync

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
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

const maxSyncLogPageSize = 100

type syncService struct {
	log              logger.Logger
	cfg              *config.SyncConfig
	repos            *repository.Repositories
	providers        interfaces.MailProviderFactory
	parser           interfaces.MessageParser
	resolver         interfaces.EntityResolver
	events           interfaces.EventPublisher
	storeAttachments bool
}

// NewSyncService wires the label sync pipeline. When storeAttachments is
// false only attachment metadata is recorded and bytes stay with the
// provider.
func NewSyncService(
	log logger.Logger,
	cfg *config.SyncConfig,
	repos *repository.Repositories,
	providers interfaces.MailProviderFactory,
	parser interfaces.MessageParser,
	resolver interfaces.EntityResolver,
	events interfaces.EventPublisher,
	storeAttachments bool,
) interfaces.SyncService {
	if cfg == nil {
		cfg = &config.SyncConfig{}
	}
	return &syncService{
		log:              log,
		cfg:              cfg,
		repos:            repos,
		providers:        providers,
		parser:           parser,
		resolver:         resolver,
		events:           events,
		storeAttachments: storeAttachments,
	}
}

// SyncLabelEmails pulls every message of one label and persists the ones
// not seen before. Exactly one sync log row is written per call once the
// user id is valid. The returned result is non-nil whenever that row
// exists, including for failed runs.
func (s *syncService) SyncLabelEmails(ctx context.Context, userID, labelID string, trigger enum.SyncTrigger) (*dto.LabelSyncResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.SyncLabelEmails")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagLabel(span, labelID)
	span.SetTag("trigger", trigger.String())

	if userID == "" {
		tracing.TraceErr(span, mailerrors.ErrUserIdMissing)
		return nil, mailerrors.ErrUserIdMissing
	}
	if trigger == "" {
		trigger = enum.SyncTriggerManual
	}

	run := &labelRun{
		log: &models.SyncLog{
			RunID:       uuid.New().String(),
			UserID:      userID,
			LabelID:     labelID,
			TriggerType: trigger,
			Status:      enum.SyncStatusRunning,
			StartedAt:   utils.Now(),
		},
	}
	if err := s.repos.SyncLogRepository.Start(ctx, run.log); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to start sync log")
	}
	span.SetTag("run.id", run.log.RunID)

	runErr := s.runLabel(ctx, run)

	result := s.finish(ctx, run, runErr)
	if runErr != nil {
		tracing.TraceErr(span, runErr)
		return result, runErr
	}
	return result, nil
}

// labelRun carries the mutable state of one SyncLabelEmails call.
type labelRun struct {
	log       *models.SyncLog
	labelName string
	pages     int
}

func (s *syncService) runLabel(ctx context.Context, run *labelRun) error {
	userID, labelID := run.log.UserID, run.log.LabelID

	provider, resolverLabel, err := s.setup(ctx, run)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := provider.Close(); closeErr != nil {
			s.log.Warnf("closing mail provider for user %s: %v", userID, closeErr)
		}
	}()

	pageToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "sync cancelled")
		}

		page, err := s.fetchPage(ctx, provider, labelID, pageToken)
		if err != nil {
			return errors.Wrapf(err, "failed to list messages for label %s", labelID)
		}
		run.pages++

		for _, ref := range page.Messages {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "sync cancelled")
			}
			outcome, err := s.processMessage(ctx, provider, userID, resolverLabel, ref.ID)
			switch outcome {
			case outcomeSynced:
				run.log.EmailsSynced++
			case outcomeSkipped:
				run.log.EmailsSkipped++
			case outcomeFailed:
				run.log.EmailsFailed++
				s.log.Warnf("label sync %s: dropping message %s for user %s: %v", run.log.RunID, ref.ID, userID, err)
			case outcomeAbort:
				return err
			}
		}

		if page.NextPageToken == "" {
			return nil
		}
		pageToken = page.NextPageToken
	}
}

// setup resolves the label setting and the user's provider under the setup
// timeout. Any failure here aborts the run before paging.
func (s *syncService) setup(ctx context.Context, run *labelRun) (interfaces.MailProvider, string, error) {
	setupCtx, cancel := withTimeout(ctx, s.cfg.SetupTimeout)
	defer cancel()

	setting, err := s.repos.LabelSyncSettingRepository.Get(setupCtx, run.log.UserID, run.log.LabelID)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to load label settings")
	}
	if setting == nil {
		return nil, "", errors.Wrapf(mailerrors.ErrLabelNotConfigured, "label %s", run.log.LabelID)
	}
	run.labelName = setting.LabelName

	provider, err := s.providers.ForUser(setupCtx, run.log.UserID)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to resolve mail provider")
	}

	// system labels such as INBOX say nothing about the counterpart
	resolverLabel := setting.LabelName
	if setting.LabelType == enum.LabelTypeSystem {
		resolverLabel = ""
	}
	return provider, resolverLabel, nil
}

func (s *syncService) fetchPage(ctx context.Context, provider interfaces.MailProvider, labelID, pageToken string) (*dto.MessagePage, error) {
	fetchCtx, cancel := s.fetchContext(ctx)
	defer cancel()
	return provider.ListMessages(fetchCtx, labelID, s.cfg.EffectivePageSize(), pageToken)
}

func (s *syncService) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, s.cfg.FetchTimeout)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

type messageOutcome int

const (
	outcomeSynced messageOutcome = iota
	outcomeSkipped
	outcomeFailed
	outcomeAbort
)

// processMessage runs one message through dedupe, fetch, parse, resolve and
// persist. Only directory failures abort the run; everything else drops the
// message.
func (s *syncService) processMessage(ctx context.Context, provider interfaces.MailProvider, userID, labelName, messageID string) (messageOutcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.processMessage")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagEntity(span, messageID)

	exists, err := s.repos.EmailRepository.ExistsByProviderMessageID(ctx, userID, messageID)
	if err != nil {
		tracing.TraceErr(span, err)
		return outcomeFailed, errors.Wrap(err, "existence check")
	}
	if exists {
		span.SetTag("skipped", true)
		return outcomeSkipped, nil
	}

	fetchCtx, cancel := s.fetchContext(ctx)
	message, err := provider.GetMessage(fetchCtx, messageID)
	cancel()
	if err != nil {
		tracing.TraceErr(span, err)
		return outcomeFailed, errors.Wrap(err, "fetch message")
	}

	parsed, err := s.parser.Parse(message, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return outcomeFailed, err
	}

	resolution, err := s.resolver.Resolve(ctx, parsed.Email, userID, labelName)
	if err != nil {
		tracing.TraceErr(span, err)
		return outcomeAbort, errors.Wrap(err, "entity resolution failed")
	}
	span.SetTag("match.source", string(resolution.Source))

	created, err := s.repos.EmailRepository.Create(ctx, parsed.Email)
	if err != nil {
		tracing.TraceErr(span, err)
		return outcomeFailed, errors.Wrap(err, "persist email")
	}
	if !created {
		// stored by a concurrent run after the existence check
		span.SetTag("duplicate", true)
		return outcomeSkipped, nil
	}

	for _, ref := range parsed.Attachments {
		if err := s.saveAttachment(ctx, provider, parsed.Email, ref); err != nil {
			tracing.TraceErr(span, err)
			s.log.Warnf("attachment %s (%s) of message %s not saved: %v", ref.Filename, ref.AttachmentID, messageID, err)
		}
	}

	return outcomeSynced, nil
}

func (s *syncService) saveAttachment(ctx context.Context, provider interfaces.MailProvider, email *models.Email, ref dto.AttachmentRef) error {
	attachment := &models.EmailAttachment{
		EmailID:              email.ID,
		ProviderAttachmentID: ref.AttachmentID,
		Filename:             ref.Filename,
		ContentType:          utils.NormalizeContentType(ref.MimeType),
		Size:                 ref.Size,
	}

	if !s.storeAttachments {
		return s.repos.EmailAttachmentRepository.Create(ctx, attachment)
	}

	fetchCtx, cancel := s.fetchContext(ctx)
	data, err := provider.GetAttachment(fetchCtx, email.ProviderMessageID, ref.AttachmentID)
	cancel()
	if err != nil {
		return errors.Wrap(err, "fetch attachment")
	}
	return s.repos.EmailAttachmentRepository.Store(ctx, attachment, data)
}

// finish completes the sync log, stamps the label on success and publishes
// the completion event. It runs detached from ctx cancellation so an
// aborted run is still recorded.
func (s *syncService) finish(ctx context.Context, run *labelRun, runErr error) *dto.LabelSyncResult {
	ctx = context.WithoutCancel(ctx)
	finishedAt := utils.Now()

	run.log.FinishedAt = &finishedAt
	run.log.Details = models.JSONMap{
		"labelName": run.labelName,
		"pages":     run.pages,
	}
	if runErr != nil {
		run.log.Status = enum.SyncStatusFailed
		run.log.ErrorMessage = runErr.Error()
	} else {
		run.log.Status = enum.SyncStatusSuccess
	}

	if err := s.repos.SyncLogRepository.Complete(ctx, run.log); err != nil {
		s.log.Errorf("failed to complete sync log %s: %v", run.log.ID, err)
	}

	if runErr == nil {
		if err := s.repos.LabelSyncSettingRepository.MarkSynced(ctx, run.log.UserID, run.log.LabelID, finishedAt); err != nil {
			s.log.Errorf("failed to stamp last sync for label %s: %v", run.log.LabelID, err)
		}
	}

	result := dto.LabelSyncResult{
		LabelID:       run.log.LabelID,
		LabelName:     run.labelName,
		SyncLogID:     run.log.ID,
		Success:       runErr == nil,
		EmailsSynced:  run.log.EmailsSynced,
		EmailsSkipped: run.log.EmailsSkipped,
		EmailsFailed:  run.log.EmailsFailed,
		Error:         run.log.ErrorMessage,
	}

	s.log.Infof("label sync %s finished for user %s label %s: status=%s synced=%d skipped=%d failed=%d",
		run.log.RunID, run.log.UserID, run.log.LabelID, run.log.Status, result.EmailsSynced, result.EmailsSkipped, result.EmailsFailed)

	if s.events != nil {
		event := dto.LabelSyncCompleted{UserID: run.log.UserID, Result: result}
		if err := s.events.PublishLabelSyncCompleted(ctx, event); err != nil {
			s.log.Warnf("failed to publish sync completion for %s: %v", run.log.RunID, err)
		}
	}

	return &result
}

// SyncAllLabels syncs every label the user has switched on, one after the
// other. A failing label does not stop the rest.
func (s *syncService) SyncAllLabels(ctx context.Context, userID string, trigger enum.SyncTrigger) (*dto.SyncAllResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.SyncAllLabels")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if userID == "" {
		return nil, mailerrors.ErrUserIdMissing
	}

	settings, err := s.repos.LabelSyncSettingRepository.ListSyncing(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list syncing labels")
	}
	span.SetTag("labels", len(settings))

	all := &dto.SyncAllResult{UserID: userID, Results: make([]dto.LabelSyncResult, 0, len(settings))}
	for _, setting := range settings {
		result, err := s.SyncLabelEmails(ctx, userID, setting.LabelID, trigger)
		if result == nil {
			result = &dto.LabelSyncResult{LabelID: setting.LabelID, LabelName: setting.LabelName}
			if err != nil {
				result.Error = err.Error()
			}
		}
		all.Results = append(all.Results, *result)
	}

	return all, nil
}

// RefreshLabels caches the provider's label names and types. Syncing
// flags of known labels are kept.
func (s *syncService) RefreshLabels(ctx context.Context, userID string) ([]*models.LabelSyncSetting, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.RefreshLabels")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if userID == "" {
		return nil, mailerrors.ErrUserIdMissing
	}

	setupCtx, cancel := withTimeout(ctx, s.cfg.SetupTimeout)
	defer cancel()

	provider, err := s.providers.ForUser(setupCtx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to resolve mail provider")
	}
	defer provider.Close()

	labels, err := provider.ListLabels(setupCtx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list provider labels")
	}

	for _, label := range labels {
		labelType := enum.LabelTypeUser
		if strings.EqualFold(label.Type, string(enum.LabelTypeSystem)) {
			labelType = enum.LabelTypeSystem
		}
		setting := &models.LabelSyncSetting{
			UserID:    userID,
			LabelID:   label.ID,
			LabelName: label.Name,
			LabelType: labelType,
		}
		if err := s.repos.LabelSyncSettingRepository.Upsert(ctx, setting); err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrapf(err, "failed to save label %s", label.ID)
		}
	}

	return s.repos.LabelSyncSettingRepository.ListByUser(ctx, userID)
}

func (s *syncService) ListLabels(ctx context.Context, userID string) ([]*models.LabelSyncSetting, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.ListLabels")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if userID == "" {
		return nil, mailerrors.ErrUserIdMissing
	}
	return s.repos.LabelSyncSettingRepository.ListByUser(ctx, userID)
}

func (s *syncService) SetLabelSyncing(ctx context.Context, userID, labelID string, isSyncing bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.SetLabelSyncing")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagLabel(span, labelID)

	if userID == "" {
		return mailerrors.ErrUserIdMissing
	}
	if strings.TrimSpace(labelID) == "" {
		return errors.Wrap(mailerrors.ErrLabelNotConfigured, "label id is empty")
	}

	if err := s.repos.LabelSyncSettingRepository.SetSyncing(ctx, userID, labelID, isSyncing); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (s *syncService) ListSyncLogs(ctx context.Context, userID, labelID string, limit, offset int) ([]*models.SyncLog, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.ListSyncLogs")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if userID == "" {
		return nil, 0, mailerrors.ErrUserIdMissing
	}
	if limit < 1 || limit > maxSyncLogPageSize || offset < 0 {
		err := errors.Wrapf(mailerrors.ErrInvalidPagination, "limit %d offset %d", limit, offset)
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	return s.repos.SyncLogRepository.List(ctx, userID, labelID, limit, offset)
}
