package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wahajws/amast-crm-sub001/config"
	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/testutil"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

func TestNewEvent_Envelope(t *testing.T) {
	ctx := utils.WithCustomContext(context.Background(), &utils.CustomContext{UserId: "user_1", UserEmail: "ana@acme.com"})
	span := opentracing.StartSpan("test")
	defer span.Finish()

	payload := dto.CampaignStatusChanged{
		CampaignID:     "camp_1",
		ContactID:      "cont_1",
		PreviousStatus: enum.CampaignPending,
		Status:         enum.CampaignSent,
	}
	event := NewEvent(ctx, span, "crm-mailsync", "camp_1", enum.EMAIL_CAMPAIGN, &payload)

	assert.Equal(t, "CampaignStatusChanged", event.Event.EventType)
	assert.Equal(t, "camp_1", event.Event.EntityId)
	assert.Equal(t, enum.EMAIL_CAMPAIGN, event.Event.EntityType)
	assert.Regexp(t, `^event_`, event.Event.Id)
	assert.Equal(t, "user_1", event.Metadata.UserId)
	assert.Equal(t, "ana@acme.com", event.Metadata.UserEmail)
	assert.Equal(t, "crm-mailsync", event.Metadata.AppSource)
	assert.NotEmpty(t, event.Metadata.Timestamp)

	body, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status":"SENT"`)
	assert.Contains(t, string(body), `"previousStatus":"PENDING"`)
}

func TestNewEventPublisher_NoopWithoutURL(t *testing.T) {
	publisher, err := NewEventPublisher(&config.AppConfig{}, testutil.Logger(), nil)
	require.NoError(t, err)

	assert.NoError(t, publisher.PublishLabelSyncCompleted(context.Background(), dto.LabelSyncCompleted{
		UserID: "user_1",
		Result: dto.LabelSyncResult{LabelID: "Label_1", Success: true, EmailsSynced: 3},
	}))
	assert.NoError(t, publisher.PublishCampaignStatusChanged(context.Background(), dto.CampaignStatusChanged{CampaignID: "camp_1"}))
	assert.NoError(t, publisher.Close())
}

func TestDefaultPublisherConfig(t *testing.T) {
	cfg := DefaultPublisherConfig()
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultMessageTTL, cfg.MessageTTL)
}
