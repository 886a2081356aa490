package cron

import (
	"context"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes"

	"github.com/wahajws/amast-crm-sub001/dto"
	cron_config "github.com/wahajws/amast-crm-sub001/internal/cron/config"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/testutil"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

type mockSyncService struct {
	mock.Mock
}

func (m *mockSyncService) SyncLabelEmails(ctx context.Context, userID, labelID string, trigger enum.SyncTrigger) (*dto.LabelSyncResult, error) {
	args := m.Called(ctx, userID, labelID, trigger)
	return args.Get(0).(*dto.LabelSyncResult), args.Error(1)
}

func (m *mockSyncService) SyncAllLabels(ctx context.Context, userID string, trigger enum.SyncTrigger) (*dto.SyncAllResult, error) {
	args := m.Called(ctx, userID, trigger)
	result, _ := args.Get(0).(*dto.SyncAllResult)
	return result, args.Error(1)
}

func (m *mockSyncService) RefreshLabels(ctx context.Context, userID string) ([]*models.LabelSyncSetting, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*models.LabelSyncSetting), args.Error(1)
}

func (m *mockSyncService) ListLabels(ctx context.Context, userID string) ([]*models.LabelSyncSetting, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*models.LabelSyncSetting), args.Error(1)
}

func (m *mockSyncService) SetLabelSyncing(ctx context.Context, userID, labelID string, isSyncing bool) error {
	return m.Called(ctx, userID, labelID, isSyncing).Error(0)
}

func (m *mockSyncService) ListSyncLogs(ctx context.Context, userID, labelID string, limit, offset int) ([]*models.SyncLog, int64, error) {
	args := m.Called(ctx, userID, labelID, limit, offset)
	return args.Get(0).([]*models.SyncLog), args.Get(1).(int64), args.Error(2)
}

func testConfig() *cron_config.Config {
	return &cron_config.Config{
		CronScheduleHeartbeat:  "0 * * * * *",
		CronScheduleSyncLabels: "0 */15 * * * *",
		LeaseName:              "crm-mailsync-cron-leader",
		LeaseNamespace:         "default",
	}
}

func TestNewCronManager(t *testing.T) {
	cfg := testConfig()
	log := testutil.Logger()
	k8s := &mockKubernetesInterface{}

	cm := NewCronManager(cfg, log, k8s, nil, nil)

	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	cm := NewCronManager(testConfig(), testutil.Logger(), nil, nil, nil)

	require.NoError(t, cm.registerJobs(cronv3.New(cronv3.WithSeconds())))
	assert.Len(t, cm.jobIDs, 2)
	assert.Contains(t, cm.jobIDs, "sync_labels")

	cfg := testConfig()
	cfg.CronScheduleSyncLabels = "not a schedule"
	cm = NewCronManager(cfg, testutil.Logger(), nil, nil, nil)
	assert.Error(t, cm.registerJobs(cronv3.New(cronv3.WithSeconds())))
}

func TestCronManager_Stop(t *testing.T) {
	cm := NewCronManager(testConfig(), testutil.Logger(), &mockKubernetesInterface{}, nil, nil)

	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	cm.Stop()
	cm.Stop()

	select {
	case <-cm.stopCh:
	default:
		t.Error("Stop channel was not closed")
	}
}

func TestSyncAllUsers_ScheduledTriggerPerUser(t *testing.T) {
	settings := testutil.NewLabelSyncSettingRepository(
		&models.LabelSyncSetting{UserID: "user_b", LabelID: "Label_1", IsSyncing: true},
		&models.LabelSyncSetting{UserID: "user_a", LabelID: "Label_2", IsSyncing: true},
		&models.LabelSyncSetting{UserID: "user_c", LabelID: "Label_3", IsSyncing: false},
	)
	syncService := &mockSyncService{}
	userInContext := mock.MatchedBy(func(ctx context.Context) bool {
		return utils.GetUserIdFromContext(ctx) != ""
	})
	syncService.On("SyncAllLabels", userInContext, "user_a", enum.SyncTriggerScheduled).
		Return(nil, assert.AnError).Once()
	syncService.On("SyncAllLabels", userInContext, "user_b", enum.SyncTriggerScheduled).
		Return(&dto.SyncAllResult{UserID: "user_b", Results: []dto.LabelSyncResult{{LabelID: "Label_1", Success: true}}}, nil).Once()

	cm := NewCronManager(testConfig(), testutil.Logger(), nil, settings, syncService)
	cm.syncAllUsers(context.Background())

	syncService.AssertExpectations(t)
	syncService.AssertNotCalled(t, "SyncAllLabels", mock.Anything, "user_c", mock.Anything)
}

func TestSyncAllUsers_ListFailureSyncsNothing(t *testing.T) {
	settings := testutil.NewLabelSyncSettingRepository()
	settings.Err = assert.AnError
	syncService := &mockSyncService{}

	cm := NewCronManager(testConfig(), testutil.Logger(), nil, settings, syncService)
	cm.syncAllUsers(context.Background())

	syncService.AssertNotCalled(t, "SyncAllLabels", mock.Anything, mock.Anything, mock.Anything)
}
