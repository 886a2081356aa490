package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Contact is a directory record owned by the wider CRM. Only the columns
// read or written by matching and outreach are mapped here.
type Contact struct {
	ID                  string         `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	OwnerID             string         `gorm:"column:owner_id;type:varchar(50);index" json:"ownerId"`
	AccountID           *string        `gorm:"column:account_id;type:varchar(50);index" json:"accountId"`
	FirstName           string         `gorm:"column:first_name;type:varchar(255)" json:"firstName"`
	LastName            string         `gorm:"column:last_name;type:varchar(255)" json:"lastName"`
	Email               string         `gorm:"column:email;type:varchar(255);index" json:"email"`
	OutreachSubject     string         `gorm:"column:outreach_subject;type:varchar(1000)" json:"outreachSubject"`
	OutreachBody        string         `gorm:"column:outreach_body;type:text" json:"outreachBody"`
	OutreachGeneratedAt *time.Time     `gorm:"column:outreach_generated_at;type:timestamp" json:"outreachGeneratedAt"`
	CreatedAt           time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt           gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Contact) TableName() string {
	return "contacts"
}

func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// HasOutreachTemplate reports whether a subject and body were generated.
func (c *Contact) HasOutreachTemplate() bool {
	return strings.TrimSpace(c.OutreachSubject) != "" && strings.TrimSpace(c.OutreachBody) != ""
}
