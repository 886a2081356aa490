package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Scheduled label sync for every user with syncing labels, every 15 minutes
	CronScheduleSyncLabels string `env:"CRON_SCHEDULE_SYNC_LABELS" envDefault:"0 */15 * * * *"`
	// Leader election lease, used only when running inside kubernetes
	LeaseName      string `env:"CRON_LEASE_NAME" envDefault:"crm-mailsync-cron-leader"`
	LeaseNamespace string `env:"CRON_LEASE_NAMESPACE" envDefault:"default"`
}
