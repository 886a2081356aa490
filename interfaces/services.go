package interfaces

import (
	"context"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/models"
)

type MessageParser interface {
	Parse(message *dto.ProviderMessage, userID string) (*dto.ParsedMessage, error)
}

type EntityResolver interface {
	Resolve(ctx context.Context, email *models.Email, userID, labelName string) (*dto.Resolution, error)
}

type SyncService interface {
	SyncLabelEmails(ctx context.Context, userID, labelID string, trigger enum.SyncTrigger) (*dto.LabelSyncResult, error)
	SyncAllLabels(ctx context.Context, userID string, trigger enum.SyncTrigger) (*dto.SyncAllResult, error)
	RefreshLabels(ctx context.Context, userID string) ([]*models.LabelSyncSetting, error)
	ListLabels(ctx context.Context, userID string) ([]*models.LabelSyncSetting, error)
	SetLabelSyncing(ctx context.Context, userID, labelID string, isSyncing bool) error
	ListSyncLogs(ctx context.Context, userID, labelID string, limit, offset int) ([]*models.SyncLog, int64, error)
}

type CampaignService interface {
	GetStatus(ctx context.Context, contactID string) (*dto.CampaignStatusView, error)
	MarkAsSent(ctx context.Context, contactID, senderID string) (*models.EmailCampaign, error)
	ToggleCommunicationStarted(ctx context.Context, contactID string, started bool, actorID string) (*models.EmailCampaign, error)
	BulkMarkAsSent(ctx context.Context, contactIDs []string, senderID string) []dto.BulkMarkResult
	SaveOutreachTemplate(ctx context.Context, contactID, subject, body string) (*models.Contact, error)
	UpsertCampaign(ctx context.Context, input dto.CampaignUpsert) (*models.EmailCampaign, error)
	GetAnalytics(ctx context.Context, ownerID string) (*dto.CampaignAnalytics, error)
	GetUrgentRecommendations(ctx context.Context, ownerID string, limit int) ([]dto.CampaignRecommendation, error)
}

type AggregatorService interface {
	GetAccountsWithEmailCounts(ctx context.Context, userID string, scope dto.AccountScope, includeZero bool) ([]dto.AccountEmailCount, error)
}

type EmailService interface {
	SetRead(ctx context.Context, userID, emailID string, isRead bool) error
	SetStarred(ctx context.Context, userID, emailID string, isStarred bool) error
	Link(ctx context.Context, userID, emailID string, contactID, accountID *string) error
	Delete(ctx context.Context, userID, emailID string) error
	ListUnlinked(ctx context.Context, userID string, limit, offset int) ([]*models.Email, int64, error)
	GetAttachmentData(ctx context.Context, userID, attachmentID string) (*models.EmailAttachment, []byte, error)
}
