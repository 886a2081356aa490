package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wahajws/amast-crm-sub001/config"
	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/testutil"
)

const (
	ownerID  = "user_1"
	senderID = "user_2"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*campaignService, *testutil.Fakes, *testutil.EventRecorder) {
	t.Helper()
	fakes := testutil.NewFakes()
	events := &testutil.EventRecorder{}
	svc := NewCampaignService(testutil.Logger(), &config.CampaignConfig{StalePendingDays: 7}, fakes.Repositories(), events).(*campaignService)
	svc.now = func() time.Time { return fixedNow }
	return svc, fakes, events
}

func addContact(fakes *testutil.Fakes, id string, withTemplate bool) *models.Contact {
	contact := &models.Contact{ID: id, OwnerID: ownerID, FirstName: id}
	if withTemplate {
		contact.OutreachSubject = "Hello " + id
		contact.OutreachBody = "Body for " + id
	}
	return fakes.Directory.AddContact(contact)
}

func seedCampaign(fakes *testutil.Fakes, campaign *models.EmailCampaign) *models.EmailCampaign {
	if campaign.ID == "" {
		campaign.ID = "camp_" + campaign.ContactID
	}
	if campaign.OwnerID == "" {
		campaign.OwnerID = ownerID
	}
	fakes.Campaigns.Campaigns = append(fakes.Campaigns.Campaigns, campaign)
	return campaign
}

func TestGetStatus_DerivedStatuses(t *testing.T) {
	svc, fakes, _ := newService(t)
	addContact(fakes, "c_template", true)
	addContact(fakes, "c_blank", false)
	addContact(fakes, "c_sent", true)
	seedCampaign(fakes, &models.EmailCampaign{ContactID: "c_sent", Status: enum.CampaignSent, Priority: enum.PriorityLow})

	view, err := svc.GetStatus(context.Background(), "c_template")
	require.NoError(t, err)
	assert.Equal(t, enum.CampaignNotCreated, view.Status)
	assert.Nil(t, view.Campaign)

	view, err = svc.GetStatus(context.Background(), "c_blank")
	require.NoError(t, err)
	assert.Equal(t, enum.CampaignNoEmail, view.Status)

	view, err = svc.GetStatus(context.Background(), "c_sent")
	require.NoError(t, err)
	assert.Equal(t, enum.CampaignSent, view.Status)
	require.NotNil(t, view.Campaign)

	_, err = svc.GetStatus(context.Background(), "c_missing")
	assert.True(t, errors.Is(err, mailerrors.ErrContactNotFound))
}

func TestToggleCommunicationStarted_CreatesSentRowWhenMissing(t *testing.T) {
	svc, fakes, events := newService(t)
	addContact(fakes, "c_1", true)

	campaign, err := svc.ToggleCommunicationStarted(context.Background(), "c_1", true, senderID)
	require.NoError(t, err)

	assert.Equal(t, enum.CampaignSent, campaign.Status)
	assert.True(t, campaign.CommunicationStarted)
	require.NotNil(t, campaign.SentAt)
	assert.Equal(t, fixedNow, *campaign.SentAt)
	assert.Equal(t, senderID, *campaign.SentBy)
	assert.Equal(t, "Hello c_1", campaign.Subject)
	assert.Equal(t, ownerID, campaign.OwnerID)
	assert.Len(t, fakes.Campaigns.Campaigns, 1)

	require.Len(t, events.CampaignsChanged, 1)
	assert.Equal(t, enum.CampaignSent, events.CampaignsChanged[0].Status)
	assert.Empty(t, events.CampaignsChanged[0].PreviousStatus)
}

func TestToggleCommunicationStarted_StoppedCreatesPendingRow(t *testing.T) {
	svc, fakes, _ := newService(t)
	addContact(fakes, "c_1", true)

	campaign, err := svc.ToggleCommunicationStarted(context.Background(), "c_1", false, senderID)
	require.NoError(t, err)

	assert.Equal(t, enum.CampaignPending, campaign.Status)
	assert.False(t, campaign.CommunicationStarted)
	assert.Nil(t, campaign.SentAt)
}

func TestToggleCommunicationStarted_PromotesPending(t *testing.T) {
	svc, fakes, events := newService(t)
	addContact(fakes, "c_1", true)
	seedCampaign(fakes, &models.EmailCampaign{ContactID: "c_1", Status: enum.CampaignPending, Priority: enum.PriorityMedium})

	campaign, err := svc.ToggleCommunicationStarted(context.Background(), "c_1", true, senderID)
	require.NoError(t, err)

	assert.Equal(t, enum.CampaignSent, campaign.Status)
	assert.True(t, campaign.CommunicationStarted)
	require.Len(t, events.CampaignsChanged, 1)
	assert.Equal(t, enum.CampaignPending, events.CampaignsChanged[0].PreviousStatus)

	campaign, err = svc.ToggleCommunicationStarted(context.Background(), "c_1", false, senderID)
	require.NoError(t, err)
	assert.Equal(t, enum.CampaignSent, campaign.Status)
	assert.False(t, campaign.CommunicationStarted)
	assert.Len(t, events.CampaignsChanged, 1)
}

func TestMarkAsSent_KeepsLaterStatus(t *testing.T) {
	svc, fakes, events := newService(t)
	addContact(fakes, "c_1", true)
	seedCampaign(fakes, &models.EmailCampaign{ContactID: "c_1", Status: enum.CampaignReplied, Priority: enum.PriorityMedium})

	campaign, err := svc.MarkAsSent(context.Background(), "c_1", senderID)
	require.NoError(t, err)

	assert.Equal(t, enum.CampaignReplied, campaign.Status)
	assert.Empty(t, events.CampaignsChanged)
}

func TestBulkMarkAsSent_PartialFailure(t *testing.T) {
	svc, fakes, _ := newService(t)
	addContact(fakes, "c_valid", true)

	results := svc.BulkMarkAsSent(context.Background(), []string{"c_valid", "c_missing"}, senderID)

	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.Equal(t, enum.CampaignSent, results[0].Status)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, mailerrors.ErrContactNotFound.Error())
	assert.Len(t, fakes.Campaigns.Campaigns, 1)
}

func TestBulkMarkAsSent_StoreFailureIsIsolated(t *testing.T) {
	svc, fakes, _ := newService(t)
	addContact(fakes, "c_1", true)
	addContact(fakes, "c_2", true)
	fakes.Campaigns.FailContacts["c_1"] = errors.New("deadlock detected")

	results := svc.BulkMarkAsSent(context.Background(), []string{"c_1", "c_2"}, senderID)

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "deadlock")
	assert.True(t, results[1].Success)
}

func TestDuplicateCreateLeavesSingleRow(t *testing.T) {
	svc, fakes, _ := newService(t)
	addContact(fakes, "c_1", true)

	_, err := svc.ToggleCommunicationStarted(context.Background(), "c_1", false, senderID)
	require.NoError(t, err)
	_, err = svc.UpsertCampaign(context.Background(), dto.CampaignUpsert{ContactID: "c_1", Subject: "s", Body: "b"})
	require.NoError(t, err)
	_, err = svc.MarkAsSent(context.Background(), "c_1", senderID)
	require.NoError(t, err)

	// a writer that lost the insert race gets the stored row back
	stored, created, err := fakes.Campaigns.CreateIfAbsent(context.Background(), &models.EmailCampaign{ContactID: "c_1", Status: enum.CampaignPending})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, enum.CampaignSent, stored.Status)

	assert.Len(t, fakes.Campaigns.Campaigns, 1)
}

func TestUpsertCampaign_ValidatesBeforeWriting(t *testing.T) {
	svc, fakes, _ := newService(t)
	addContact(fakes, "c_1", true)

	_, err := svc.UpsertCampaign(context.Background(), dto.CampaignUpsert{ContactID: "c_1", Subject: "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, mailerrors.ErrMissingCampaignField))
	assert.Contains(t, err.Error(), "body, subject")

	_, err = svc.UpsertCampaign(context.Background(), dto.CampaignUpsert{ContactID: "c_1", Subject: "s", Body: "b", Priority: "CRITICAL"})
	assert.True(t, errors.Is(err, mailerrors.ErrInvalidCampaignInput))

	assert.Empty(t, fakes.Campaigns.Campaigns)
}

func TestUpsertCampaign_CreatesThenUpdatesWithoutDowngrade(t *testing.T) {
	svc, fakes, _ := newService(t)
	addContact(fakes, "c_1", false)

	campaign, err := svc.UpsertCampaign(context.Background(), dto.CampaignUpsert{
		ContactID: "c_1", Subject: "Intro", Body: "Hi there", Source: enum.CampaignSourceLeadGeneration,
	})
	require.NoError(t, err)
	assert.Equal(t, enum.CampaignPending, campaign.Status)
	assert.Equal(t, enum.PriorityMedium, campaign.Priority)
	assert.Equal(t, enum.CampaignSourceLeadGeneration, campaign.Source)
	assert.Equal(t, "Intro", campaign.Subject)

	_, err = svc.MarkAsSent(context.Background(), "c_1", senderID)
	require.NoError(t, err)

	campaign, err = svc.UpsertCampaign(context.Background(), dto.CampaignUpsert{
		ContactID: "c_1", Subject: "Second intro", Body: "Hi again", Priority: enum.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, enum.CampaignSent, campaign.Status)
	assert.Equal(t, enum.PriorityHigh, campaign.Priority)
	assert.Equal(t, "Intro", campaign.Subject)
	assert.Len(t, fakes.Campaigns.Campaigns, 1)
}

func TestSaveOutreachTemplate_RefreshesPendingSnapshot(t *testing.T) {
	svc, fakes, _ := newService(t)
	addContact(fakes, "c_1", false)
	campaign := seedCampaign(fakes, &models.EmailCampaign{ContactID: "c_1", Status: enum.CampaignPending, Subject: "old", Body: "old"})

	contact, err := svc.SaveOutreachTemplate(context.Background(), "c_1", "new subject", "new body")
	require.NoError(t, err)

	assert.True(t, contact.HasOutreachTemplate())
	assert.NotNil(t, contact.OutreachGeneratedAt)
	assert.Equal(t, "new subject", campaign.Subject)
	assert.Equal(t, "new body", campaign.Body)

	_, err = svc.SaveOutreachTemplate(context.Background(), "c_missing", "s", "b")
	assert.True(t, errors.Is(err, mailerrors.ErrContactNotFound))
}

func TestGetUrgentRecommendations_Ordering(t *testing.T) {
	svc, fakes, _ := newService(t)
	seedCampaign(fakes, &models.EmailCampaign{ContactID: "c_low_old", Status: enum.CampaignPending, Priority: enum.PriorityLow, CreatedAt: fixedNow.AddDate(0, 0, -10)})
	seedCampaign(fakes, &models.EmailCampaign{ContactID: "c_urgent_new", Status: enum.CampaignPending, Priority: enum.PriorityUrgent, CreatedAt: fixedNow.AddDate(0, 0, -1)})
	seedCampaign(fakes, &models.EmailCampaign{ContactID: "c_medium_new", Status: enum.CampaignPending, Priority: enum.PriorityMedium, CreatedAt: fixedNow.AddDate(0, 0, -1)})
	seedCampaign(fakes, &models.EmailCampaign{ContactID: "c_sent_silent", Status: enum.CampaignSent, Priority: enum.PriorityMedium, CreatedAt: fixedNow.AddDate(0, 0, -3)})
	seedCampaign(fakes, &models.EmailCampaign{ContactID: "c_sent_talking", Status: enum.CampaignSent, Priority: enum.PriorityMedium, CommunicationStarted: true, CreatedAt: fixedNow.AddDate(0, 0, -3)})
	seedCampaign(fakes, &models.EmailCampaign{ContactID: "c_other_owner", OwnerID: "user_9", Status: enum.CampaignPending, Priority: enum.PriorityUrgent})

	recommendations, err := svc.GetUrgentRecommendations(context.Background(), ownerID, 0)
	require.NoError(t, err)

	require.Len(t, recommendations, 3)
	assert.Equal(t, "c_urgent_new", recommendations[0].Campaign.ContactID)
	assert.Equal(t, "c_sent_silent", recommendations[1].Campaign.ContactID)
	assert.Equal(t, "c_low_old", recommendations[2].Campaign.ContactID)
	assert.Equal(t, []string{reasonStale}, recommendations[2].Reasons)

	limited, err := svc.GetUrgentRecommendations(context.Background(), ownerID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = svc.GetUrgentRecommendations(context.Background(), ownerID, -1)
	assert.True(t, errors.Is(err, mailerrors.ErrInvalidPagination))
}

func TestGetAnalytics(t *testing.T) {
	svc, fakes, _ := newService(t)
	addContact(fakes, "c_pending", true)
	addContact(fakes, "c_waiting", true)
	addContact(fakes, "c_also_waiting", true)
	addContact(fakes, "c_no_template", false)
	seedCampaign(fakes, &models.EmailCampaign{ContactID: "c_pending", Status: enum.CampaignPending, Priority: enum.PriorityHigh, CreatedAt: fixedNow})
	seedCampaign(fakes, &models.EmailCampaign{ContactID: "c_replied", Status: enum.CampaignReplied, Priority: enum.PriorityLow, CommunicationStarted: true, CreatedAt: fixedNow})

	analytics, err := svc.GetAnalytics(context.Background(), ownerID)
	require.NoError(t, err)

	assert.Equal(t, 2, analytics.Total)
	assert.Equal(t, 1, analytics.ByStatus[enum.CampaignPending])
	assert.Equal(t, 1, analytics.ByStatus[enum.CampaignReplied])
	assert.Equal(t, 1, analytics.ByPriority[enum.PriorityHigh])
	assert.Equal(t, 1, analytics.CommunicationStarted)
	assert.Equal(t, 1, analytics.Urgent)
	assert.Equal(t, 2, analytics.NotCreated)
}
