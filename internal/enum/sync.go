package enum

type SyncTrigger string

const (
	SyncTriggerManual    SyncTrigger = "manual"
	SyncTriggerScheduled SyncTrigger = "scheduled"
)

func (t SyncTrigger) String() string {
	return string(t)
}

type SyncStatus string

const (
	SyncStatusRunning SyncStatus = "running"
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
)

func (s SyncStatus) String() string {
	return string(s)
}
