package mail_sync

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wahajws/amast-crm-sub001/config"
	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/testutil"
	"github.com/wahajws/amast-crm-sub001/services/domain_matcher"
	"github.com/wahajws/amast-crm-sub001/services/entity_resolver"
	"github.com/wahajws/amast-crm-sub001/services/message_parser"
)

const (
	userID  = "user_1"
	labelID = "Label_7"
)

type fixture struct {
	fakes    *testutil.Fakes
	provider *testutil.MailProvider
	factory  *testutil.MailProviderFactory
	events   *testutil.EventRecorder
	service  interfaces.SyncService
}

func newFixture(t *testing.T, storeAttachments bool) *fixture {
	t.Helper()

	fakes := testutil.NewFakes()
	fakes.LabelSettings.Settings = []*models.LabelSyncSetting{
		{UserID: userID, LabelID: labelID, LabelName: "Jane Doe", LabelType: enum.LabelTypeUser, IsSyncing: true},
	}
	provider := testutil.NewMailProvider()
	factory := &testutil.MailProviderFactory{Provider: provider}
	events := &testutil.EventRecorder{}

	cfg := &config.SyncConfig{PageSize: 2, FetchTimeout: time.Second, SetupTimeout: time.Second}
	resolver := entity_resolver.NewEntityResolver(fakes.Directory, domain_matcher.NewMatcher(domain_matcher.DefaultPolicy))

	return &fixture{
		fakes:    fakes,
		provider: provider,
		factory:  factory,
		events:   events,
		service: NewSyncService(testutil.Logger(), cfg, fakes.Repositories(), factory,
			message_parser.NewParser(), resolver, events, storeAttachments),
	}
}

func providerMessage(id, from string, labels []string, parts ...*dto.MessagePart) *dto.ProviderMessage {
	if len(parts) == 0 {
		parts = []*dto.MessagePart{{MimeType: "text/plain", Body: &dto.PartBody{Data: []byte("body of " + id)}}}
	}
	return &dto.ProviderMessage{
		ID:           id,
		ThreadID:     "thread-" + id,
		LabelIDs:     labels,
		InternalDate: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Payload: &dto.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []dto.Header{
				{Name: "From", Value: from},
				{Name: "Subject", Value: "About " + id},
			},
			Parts: parts,
		},
	}
}

func (f *fixture) addMessages(ids ...string) {
	for _, id := range ids {
		f.provider.AddMessage(providerMessage(id, "someone@elsewhere.com", []string{labelID}))
	}
}

func (f *fixture) setting() *models.LabelSyncSetting {
	return f.fakes.LabelSettings.Settings[0]
}

func TestSyncLabelEmails_ResyncIsIdempotent(t *testing.T) {
	f := newFixture(t, false)
	f.addMessages("m1", "m2", "m3")

	first, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerManual)
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, 3, first.EmailsSynced)
	assert.Equal(t, 0, first.EmailsSkipped)

	second, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 0, second.EmailsSynced)
	assert.Equal(t, 3, second.EmailsSkipped)

	assert.Len(t, f.fakes.Emails.Emails, 3)
	for _, id := range []string{"m1", "m2", "m3"} {
		assert.Equal(t, 1, f.provider.GetCalls[id], "message %s fetched more than once", id)
	}
}

func TestSyncLabelEmails_WritesExactlyOneLogPerRun(t *testing.T) {
	f := newFixture(t, false)
	f.addMessages("m1", "m2", "m3", "m4", "m5")

	result, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerManual)
	require.NoError(t, err)

	require.Len(t, f.fakes.SyncLogs.Logs, 1)
	log := f.fakes.SyncLogs.Logs[0]
	assert.Equal(t, log.ID, result.SyncLogID)
	assert.Equal(t, 1, f.fakes.SyncLogs.Completed[log.ID])
	assert.Equal(t, enum.SyncStatusSuccess, log.Status)
	assert.Equal(t, 5, log.EmailsSynced)
	assert.NotEmpty(t, log.RunID)
	assert.NotNil(t, log.FinishedAt)
	assert.Equal(t, 3, log.Details["pages"])
	assert.Equal(t, 3, f.provider.ListCalls)
}

func TestSyncLabelEmails_PerMessageFailuresAreIsolated(t *testing.T) {
	f := newFixture(t, false)
	f.addMessages("m1", "m2", "m3")
	f.provider.GetErr["m2"] = errors.Wrap(mailerrors.ErrProviderTransient, "503")
	f.provider.AddMessage(&dto.ProviderMessage{ID: "broken", LabelIDs: []string{labelID}})

	result, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerManual)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.EmailsSynced)
	assert.Equal(t, 2, result.EmailsFailed)
	assert.NotNil(t, f.setting().LastSyncedAt)
	assert.Equal(t, enum.SyncStatusSuccess, f.fakes.SyncLogs.Logs[0].Status)
}

func TestSyncLabelEmails_UnconfiguredLabelAbortsBeforePaging(t *testing.T) {
	f := newFixture(t, false)
	f.addMessages("m1")

	result, err := f.service.SyncLabelEmails(context.Background(), userID, "unknown", enum.SyncTriggerManual)
	require.Error(t, err)
	assert.True(t, errors.Is(err, mailerrors.ErrLabelNotConfigured))

	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, 0, f.provider.ListCalls)
	require.Len(t, f.fakes.SyncLogs.Logs, 1)
	assert.Equal(t, enum.SyncStatusFailed, f.fakes.SyncLogs.Logs[0].Status)
	assert.NotEmpty(t, f.fakes.SyncLogs.Logs[0].ErrorMessage)
}

func TestSyncLabelEmails_ProviderFailureLeavesLastSyncedUntouched(t *testing.T) {
	f := newFixture(t, false)
	f.addMessages("m1")
	f.provider.ListErr = errors.New("gmail unavailable")

	result, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerScheduled)
	require.Error(t, err)

	assert.False(t, result.Success)
	assert.Nil(t, f.setting().LastSyncedAt)
	assert.Equal(t, enum.SyncStatusFailed, f.fakes.SyncLogs.Logs[0].Status)
	require.Len(t, f.events.SyncCompleted, 1)
	assert.False(t, f.events.SyncCompleted[0].Result.Success)
}

func TestSyncLabelEmails_MissingMailAccount(t *testing.T) {
	f := newFixture(t, false)
	f.factory.Err = mailerrors.ErrMailAccountNotFound

	result, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerManual)
	require.Error(t, err)
	assert.True(t, errors.Is(err, mailerrors.ErrMailAccountNotFound))
	assert.False(t, result.Success)
}

func TestSyncLabelEmails_LinksByLabelName(t *testing.T) {
	f := newFixture(t, false)
	contact := f.fakes.Directory.AddContact(&models.Contact{ID: "c_jane", OwnerID: userID, FirstName: "Jane", LastName: "Doe"})
	f.addMessages("m1")

	_, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerManual)
	require.NoError(t, err)

	require.Len(t, f.fakes.Emails.Emails, 1)
	email := f.fakes.Emails.Emails[0]
	require.NotNil(t, email.ContactID)
	assert.Equal(t, contact.ID, *email.ContactID)
}

func TestSyncLabelEmails_SystemLabelIsNotUsedForMatching(t *testing.T) {
	f := newFixture(t, false)
	f.setting().LabelName = "Jane"
	f.setting().LabelType = enum.LabelTypeSystem
	f.fakes.Directory.AddContact(&models.Contact{ID: "c_jane", OwnerID: userID, FirstName: "Jane"})
	f.addMessages("m1")

	_, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerManual)
	require.NoError(t, err)

	assert.False(t, f.fakes.Emails.Emails[0].IsLinked())
}

func TestSyncLabelEmails_DirectoryFailureAbortsRun(t *testing.T) {
	f := newFixture(t, false)
	f.fakes.Directory.Err = errors.New("directory unreachable")
	f.addMessages("m1", "m2")

	result, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerManual)
	require.Error(t, err)

	assert.False(t, result.Success)
	assert.Empty(t, f.fakes.Emails.Emails)
	assert.Equal(t, 1, f.provider.GetCalls["m1"])
	assert.Equal(t, 0, f.provider.GetCalls["m2"])
}

func attachmentPart(filename, attachmentID string) *dto.MessagePart {
	return &dto.MessagePart{
		MimeType: "application/pdf",
		Filename: filename,
		Body:     &dto.PartBody{AttachmentID: attachmentID, Size: 3},
	}
}

func TestSyncLabelEmails_StoresAttachmentBytes(t *testing.T) {
	f := newFixture(t, true)
	f.provider.AddMessage(providerMessage("m1", "a@b.com", []string{labelID},
		&dto.MessagePart{MimeType: "text/plain", Body: &dto.PartBody{Data: []byte("see attached")}},
		attachmentPart("deck.pdf", "att-ok"),
		attachmentPart("missing.pdf", "att-missing"),
	))
	f.provider.Attachments["att-ok"] = []byte("pdf")
	f.provider.AttachmentErr["att-missing"] = errors.New("gone")

	result, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, result.EmailsSynced)

	email := f.fakes.Emails.Emails[0]
	assert.Equal(t, 2, email.AttachmentCount)
	require.Len(t, f.fakes.Attachments.Attachments, 1)
	stored := f.fakes.Attachments.Attachments[0]
	assert.Equal(t, email.ID, stored.EmailID)
	assert.Equal(t, "deck.pdf", stored.Filename)
	assert.Equal(t, []byte("pdf"), f.fakes.Attachments.Data[stored.ID])
}

func TestSyncLabelEmails_ConcurrentInsertCountsAsSkipped(t *testing.T) {
	f := newFixture(t, false)
	f.addMessages("m1")
	f.provider.AddMessage(providerMessage("m2", "a@b.com", []string{labelID},
		&dto.MessagePart{MimeType: "text/plain", Body: &dto.PartBody{Data: []byte("see attached")}},
		attachmentPart("deck.pdf", "att-ok"),
	))
	f.fakes.Emails.InsertedConcurrently["m2"] = true

	result, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerManual)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.EmailsSynced)
	assert.Equal(t, 1, result.EmailsSkipped)
	assert.Equal(t, 0, result.EmailsFailed)

	require.Len(t, f.fakes.Emails.Emails, 1)
	assert.Equal(t, "m1", f.fakes.Emails.Emails[0].ProviderMessageID)
	assert.Empty(t, f.fakes.Attachments.Attachments)
}

func TestSyncLabelEmails_RecordsAttachmentReferencesWithoutStorage(t *testing.T) {
	f := newFixture(t, false)
	f.provider.AddMessage(providerMessage("m1", "a@b.com", []string{labelID},
		&dto.MessagePart{MimeType: "text/plain", Body: &dto.PartBody{Data: []byte("see attached")}},
		attachmentPart("deck.pdf", "att-ok"),
	))

	_, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerManual)
	require.NoError(t, err)

	require.Len(t, f.fakes.Attachments.Attachments, 1)
	attachment := f.fakes.Attachments.Attachments[0]
	assert.Equal(t, "att-ok", attachment.ProviderAttachmentID)
	assert.False(t, attachment.IsStored())
	assert.Empty(t, f.fakes.Attachments.Data)
}

func TestSyncAllLabels_RunsEverySyncingLabel(t *testing.T) {
	f := newFixture(t, false)
	f.fakes.LabelSettings.Settings = append(f.fakes.LabelSettings.Settings,
		&models.LabelSyncSetting{UserID: userID, LabelID: "Label_8", LabelName: "Globex", IsSyncing: true},
		&models.LabelSyncSetting{UserID: userID, LabelID: "Label_9", LabelName: "Muted", IsSyncing: false},
	)
	f.addMessages("m1", "m2")
	f.provider.AddMessage(providerMessage("m3", "x@globex.com", []string{"Label_8", "Label_9"}))

	result, err := f.service.SyncAllLabels(context.Background(), userID, enum.SyncTriggerScheduled)
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.Equal(t, labelID, result.Results[0].LabelID)
	assert.Equal(t, "Label_8", result.Results[1].LabelID)
	assert.Equal(t, 3, result.TotalSynced())
	assert.Len(t, f.fakes.SyncLogs.Logs, 2)
	for _, log := range f.fakes.SyncLogs.Logs {
		assert.Equal(t, enum.SyncTriggerScheduled, log.TriggerType)
	}
}

func TestRefreshLabels_KeepsSyncingFlag(t *testing.T) {
	f := newFixture(t, false)
	f.provider.Labels = []dto.ProviderLabel{
		{ID: labelID, Name: "Jane Doe (renamed)", Type: "user"},
		{ID: "INBOX", Name: "INBOX", Type: "system"},
	}

	settings, err := f.service.RefreshLabels(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, settings, 2)

	assert.True(t, f.setting().IsSyncing)
	assert.Equal(t, "Jane Doe (renamed)", f.setting().LabelName)
	assert.Equal(t, enum.LabelTypeSystem, settings[1].LabelType)
	assert.False(t, settings[1].IsSyncing)
}

func TestSetLabelSyncing(t *testing.T) {
	f := newFixture(t, false)

	require.NoError(t, f.service.SetLabelSyncing(context.Background(), userID, labelID, false))
	assert.False(t, f.setting().IsSyncing)

	err := f.service.SetLabelSyncing(context.Background(), userID, " ", true)
	assert.True(t, errors.Is(err, mailerrors.ErrLabelNotConfigured))
}

func TestListSyncLogs_ValidatesPagination(t *testing.T) {
	f := newFixture(t, false)
	f.addMessages("m1")
	_, err := f.service.SyncLabelEmails(context.Background(), userID, labelID, enum.SyncTriggerManual)
	require.NoError(t, err)

	for _, tc := range []struct{ limit, offset int }{{0, 0}, {101, 0}, {10, -1}} {
		_, _, err := f.service.ListSyncLogs(context.Background(), userID, "", tc.limit, tc.offset)
		assert.True(t, errors.Is(err, mailerrors.ErrInvalidPagination), "limit=%d offset=%d", tc.limit, tc.offset)
	}

	logs, total, err := f.service.ListSyncLogs(context.Background(), userID, labelID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, logs, 1)
}

func TestSyncLabelEmails_RequiresUser(t *testing.T) {
	f := newFixture(t, false)

	result, err := f.service.SyncLabelEmails(context.Background(), "", labelID, enum.SyncTriggerManual)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, mailerrors.ErrUserIdMissing))
	assert.Empty(t, f.fakes.SyncLogs.Logs)
}
