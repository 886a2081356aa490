package dto

import (
	"time"

	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/models"
)

type CampaignStatusView struct {
	ContactID            string                `json:"contactId"`
	Status               enum.CampaignStatus   `json:"status"`
	CommunicationStarted bool                  `json:"communicationStarted"`
	Campaign             *models.EmailCampaign `json:"campaign,omitempty"`
}

type BulkMarkResult struct {
	ContactID string              `json:"contactId"`
	Success   bool                `json:"success"`
	Status    enum.CampaignStatus `json:"status,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// CampaignUpsert is the import/lead-generation write path.
type CampaignUpsert struct {
	ContactID string                `json:"contactId"`
	OwnerID   string                `json:"ownerId"`
	Subject   string                `json:"subject"`
	Body      string                `json:"body"`
	Priority  enum.CampaignPriority `json:"priority"`
	Source    enum.CampaignSource   `json:"source"`
}

type CampaignAnalytics struct {
	Total                int                           `json:"total"`
	ByStatus             map[enum.CampaignStatus]int   `json:"byStatus"`
	ByPriority           map[enum.CampaignPriority]int `json:"byPriority"`
	CommunicationStarted int                           `json:"communicationStarted"`
	Urgent               int                           `json:"urgent"`
	NotCreated           int                           `json:"notCreated"`
}

type CampaignRecommendation struct {
	Campaign *models.EmailCampaign `json:"campaign"`
	Reasons  []string              `json:"reasons"`
	Age      time.Duration         `json:"-"`
}
