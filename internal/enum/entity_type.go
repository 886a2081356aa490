package enum

type EntityType string

const (
	EMAIL          EntityType = "EMAIL"
	EMAIL_CAMPAIGN EntityType = "EMAIL_CAMPAIGN"
	SYNC_LOG       EntityType = "SYNC_LOG"
)

func (entityType EntityType) String() string {
	return string(entityType)
}
