package dto

import "github.com/wahajws/amast-crm-sub001/internal/enum"

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id         string          `json:"id"`
	EntityId   string          `json:"entityId"`
	EntityType enum.EntityType `json:"entityType"`
	EventType  string          `json:"eventType"`
	Data       interface{}     `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	UserId      string `json:"userId"`
	UserEmail   string `json:"userEmail"`
	Timestamp   string `json:"timestamp"`
}

type LabelSyncCompleted struct {
	UserID string          `json:"userId"`
	Result LabelSyncResult `json:"result"`
}

type CampaignStatusChanged struct {
	CampaignID           string              `json:"campaignId"`
	ContactID            string              `json:"contactId"`
	PreviousStatus       enum.CampaignStatus `json:"previousStatus,omitempty"`
	Status               enum.CampaignStatus `json:"status"`
	CommunicationStarted bool                `json:"communicationStarted"`
}
