package interfaces

import (
	"context"

	"github.com/wahajws/amast-crm-sub001/dto"
)

type EventPublisher interface {
	PublishLabelSyncCompleted(ctx context.Context, event dto.LabelSyncCompleted) error
	PublishCampaignStatusChanged(ctx context.Context, event dto.CampaignStatusChanged) error
	Close() error
}
