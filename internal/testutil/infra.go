package testutil

import (
	"context"
	"sync"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
)

// EventRecorder captures published events.
type EventRecorder struct {
	mu               sync.Mutex
	SyncCompleted    []dto.LabelSyncCompleted
	CampaignsChanged []dto.CampaignStatusChanged
}

func (r *EventRecorder) PublishLabelSyncCompleted(ctx context.Context, event dto.LabelSyncCompleted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SyncCompleted = append(r.SyncCompleted, event)
	return nil
}

func (r *EventRecorder) PublishCampaignStatusChanged(ctx context.Context, event dto.CampaignStatusChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CampaignsChanged = append(r.CampaignsChanged, event)
	return nil
}

func (r *EventRecorder) Close() error {
	return nil
}

// Logger returns a development logger for tests.
func Logger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true, LogLevel: "debug"})
	appLogger.InitLogger()
	return appLogger
}
