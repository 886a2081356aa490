package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

// Email is a mailbox message ingested from a mail provider and optionally
// linked to a CRM contact and account.
type Email struct {
	ID                string         `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	UserID            string         `gorm:"column:user_id;type:varchar(50);not null;uniqueIndex:idx_emails_user_provider_message" json:"userId"`
	ProviderMessageID string         `gorm:"column:provider_message_id;type:varchar(255);not null;uniqueIndex:idx_emails_user_provider_message" json:"providerMessageId"`
	ThreadID          string         `gorm:"column:thread_id;type:varchar(255);index" json:"threadId"`
	LabelIDs          pq.StringArray `gorm:"column:label_ids;type:text[]" json:"labelIds"`

	Subject      string         `gorm:"column:subject;type:varchar(1000)" json:"subject"`
	FromAddress  string         `gorm:"column:from_address;type:varchar(255);index" json:"fromAddress"`
	FromName     string         `gorm:"column:from_name;type:varchar(255)" json:"fromName"`
	ToAddresses  pq.StringArray `gorm:"column:to_addresses;type:text[]" json:"toAddresses"`
	CcAddresses  pq.StringArray `gorm:"column:cc_addresses;type:text[]" json:"ccAddresses"`
	BccAddresses pq.StringArray `gorm:"column:bcc_addresses;type:text[]" json:"bccAddresses"`

	SentAt     *time.Time `gorm:"column:sent_at;type:timestamp;index" json:"sentAt"`
	ReceivedAt *time.Time `gorm:"column:received_at;type:timestamp;index" json:"receivedAt"`

	BodyText        string `gorm:"column:body_text;type:text" json:"bodyText"`
	BodyHTML        string `gorm:"column:body_html;type:text" json:"bodyHtml"`
	Snippet         string `gorm:"column:snippet;type:varchar(500)" json:"snippet"`
	HasAttachment   bool   `gorm:"column:has_attachment;default:false" json:"hasAttachment"`
	AttachmentCount int    `gorm:"column:attachment_count;default:0" json:"attachmentCount"`

	IsRead    bool `gorm:"column:is_read;default:false" json:"isRead"`
	IsStarred bool `gorm:"column:is_starred;default:false" json:"isStarred"`

	ContactID *string `gorm:"column:contact_id;type:varchar(50);index" json:"contactId"`
	AccountID *string `gorm:"column:account_id;type:varchar(50);index" json:"accountId"`

	Attachments []EmailAttachment `gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	e.CreatedAt = utils.Now()
	return nil
}

func (e *Email) HasLabel(labelID string) bool {
	return utils.IsStringInSlice(labelID, e.LabelIDs)
}

// IsLinked reports whether the resolver attached a contact or account.
func (e *Email) IsLinked() bool {
	return e.ContactID != nil || e.AccountID != nil
}

// ApplyLabelFlags derives read/starred state from provider labels.
func (e *Email) ApplyLabelFlags() {
	e.IsRead = !e.HasLabel(enum.LabelUnread)
	e.IsStarred = e.HasLabel(enum.LabelStarred)
}
