package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

// EmailCampaign tracks outreach state for a single contact. At most one
// non-deleted row exists per contact.
type EmailCampaign struct {
	ID                   string                `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	ContactID            string                `gorm:"column:contact_id;type:varchar(50);not null;uniqueIndex:idx_email_campaigns_active_contact,where:deleted_at IS NULL" json:"contactId"`
	OwnerID              string                `gorm:"column:owner_id;type:varchar(50);index" json:"ownerId"`
	Subject              string                `gorm:"column:subject;type:varchar(1000)" json:"subject"`
	Body                 string                `gorm:"column:body;type:text" json:"body"`
	Status               enum.CampaignStatus   `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	Priority             enum.CampaignPriority `gorm:"column:priority;type:varchar(20);index;not null;default:MEDIUM" json:"priority"`
	Source               enum.CampaignSource   `gorm:"column:source;type:varchar(30)" json:"source"`
	CommunicationStarted bool                  `gorm:"column:communication_started;not null;default:false" json:"communicationStarted"`
	SentAt               *time.Time            `gorm:"column:sent_at;type:timestamp" json:"sentAt"`
	SentBy               *string               `gorm:"column:sent_by;type:varchar(50)" json:"sentBy"`
	CreatedAt            time.Time             `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt            time.Time             `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt            gorm.DeletedAt        `gorm:"column:deleted_at;index" json:"-"`
}

func (EmailCampaign) TableName() string {
	return "email_campaigns"
}

func (c *EmailCampaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = utils.GenerateNanoIDWithPrefix("camp", 16)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.Now()
	}
	if c.Priority == "" {
		c.Priority = enum.PriorityMedium
	}
	return nil
}

// MarkSent moves the campaign to SENT unless it already progressed further.
func (c *EmailCampaign) MarkSent(senderID string, at time.Time) {
	if c.Status.Rank() < enum.CampaignSent.Rank() {
		c.Status = enum.CampaignSent
	}
	if c.SentAt == nil {
		c.SentAt = &at
	}
	if senderID != "" {
		c.SentBy = &senderID
	}
}
