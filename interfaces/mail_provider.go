package interfaces

import (
	"context"

	"github.com/wahajws/amast-crm-sub001/dto"
)

type MailProvider interface {
	ListLabels(ctx context.Context) ([]dto.ProviderLabel, error)
	ListMessages(ctx context.Context, labelID string, pageSize int64, pageToken string) (*dto.MessagePage, error)
	GetMessage(ctx context.Context, messageID string) (*dto.ProviderMessage, error)
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
	Close() error
}

type MailProviderFactory interface {
	ForUser(ctx context.Context, userID string) (MailProvider, error)
}
