package cron

import (
	"context"
	"os"
	"sync"
	"time"

	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/wahajws/amast-crm-sub001/interfaces"
	cron_config "github.com/wahajws/amast-crm-sub001/internal/cron/config"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/logger"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

const (
	// GroupMailSync serializes jobs that touch provider mailboxes
	GroupMailSync = "mailsync"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second

	cronAppSource = "cron"
)

var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupMailSync: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg      *cron_config.Config
	log      logger.Logger
	cron     *cronv3.Cron
	k8s      kubernetes.Interface
	stopCh   chan struct{}
	stopOnce sync.Once
	jobIDs   map[string]cronv3.EntryID
	settings interfaces.LabelSyncSettingRepository
	sync     interfaces.SyncService
}

func NewCronManager(cfg *cron_config.Config, log logger.Logger, k8s kubernetes.Interface,
	settings interfaces.LabelSyncSettingRepository, syncService interfaces.SyncService) *CronManager {
	return &CronManager{
		cfg:      cfg,
		log:      log,
		k8s:      k8s,
		stopCh:   make(chan struct{}),
		jobIDs:   make(map[string]cronv3.EntryID),
		settings: settings,
		sync:     syncService,
	}
}

// Start runs the scheduler under a kubernetes lease so only one replica
// syncs. Without a k8s client it starts in local mode.
func (cm *CronManager) Start(podName string) error {
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		cm.StartCron()
		return nil
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      cm.cfg.LeaseName,
			Namespace: cm.cfg.LeaseNamespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					cm.StartCron()
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-cm.stopCh
			cancel()
		}()
		le.Run(ctx)
	}()

	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop waits for running jobs and stops the scheduler. Safe to call twice.
func (cm *CronManager) Stop() {
	cm.stopOnce.Do(func() {
		if cm.cron != nil {
			cm.log.Info("Stopping cron manager")
			ctx := cm.cron.Stop()
			<-ctx.Done()
		}
		close(cm.stopCh)
	})
}

func (cm *CronManager) registerJobs(c *cronv3.Cron) error {
	if cm.cfg.CronScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		id, err := c.AddFunc(cm.cfg.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			return err
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cm.cfg.CronScheduleHeartbeat)
	}

	if cm.cfg.CronScheduleSyncLabels != "" {
		id, err := c.AddFunc(cm.cfg.CronScheduleSyncLabels, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupMailSync].Lock()
			defer jobLocks.locks[GroupMailSync].Unlock()
			cm.syncAllUsers(context.Background())
		})
		if err != nil {
			return err
		}
		cm.jobIDs["sync_labels"] = id
		cm.log.Infof("Registered label sync job with schedule: %s", cm.cfg.CronScheduleSyncLabels)
	}

	return nil
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	c := cronv3.New(
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	)
	if err := cm.registerJobs(c); err != nil {
		cm.log.Fatalf("Could not register cron jobs: %v", err)
	}
	c.Start()
	cm.cron = c
}

// syncAllUsers runs a scheduled sync of every syncing label, one user after
// another. A failing user does not stop the others.
func (cm *CronManager) syncAllUsers(ctx context.Context) {
	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.syncAllUsers")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	users, err := cm.settings.ListUsersWithSyncingLabels(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to list users with syncing labels: %v", err)
		return
	}
	span.LogKV("users", len(users))

	for _, userID := range users {
		select {
		case <-cm.stopCh:
			cm.log.Info("Cron manager stopping, aborting scheduled sync")
			return
		default:
		}

		userCtx := utils.WithCustomContext(ctx, &utils.CustomContext{UserId: userID, AppSource: cronAppSource})
		result, err := cm.sync.SyncAllLabels(userCtx, userID, enum.SyncTriggerScheduled)
		if err != nil {
			tracing.TraceErr(span, err)
			cm.log.Errorf("Scheduled sync failed for user %s: %v", userID, err)
			continue
		}

		failed := 0
		for _, r := range result.Results {
			if !r.Success {
				failed++
			}
		}
		cm.log.Infof("Scheduled sync for user %s: %d labels, %d failed", userID, len(result.Results), failed)
	}
}
