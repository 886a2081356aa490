package dto

import "github.com/wahajws/amast-crm-sub001/internal/models"

// ParsedMessage is the parser output: an unsaved email row plus the
// attachments still to be fetched.
type ParsedMessage struct {
	Email       *models.Email
	Attachments []AttachmentRef
}

type AttachmentRef struct {
	AttachmentID string
	Filename     string
	MimeType     string
	Size         int64
}

type MatchSource string

const (
	MatchNone           MatchSource = "none"
	MatchLabelAccount   MatchSource = "label_account"
	MatchLabelContact   MatchSource = "label_contact"
	MatchSenderEmail    MatchSource = "sender_email"
	MatchAccountWebsite MatchSource = "account_website"
)

type Resolution struct {
	ContactID *string
	AccountID *string
	Source    MatchSource
}
