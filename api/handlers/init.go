package handlers

import "github.com/wahajws/amast-crm-sub001/services"

type APIHandlers struct {
	Sync      *SyncHandler
	Emails    *EmailsHandler
	Campaigns *CampaignsHandler
	Accounts  *AccountsHandler
}

func InitHandlers(s *services.Services) *APIHandlers {
	return &APIHandlers{
		Sync:      NewSyncHandler(s.SyncService),
		Emails:    NewEmailsHandler(s.EmailService),
		Campaigns: NewCampaignsHandler(s.CampaignService),
		Accounts:  NewAccountsHandler(s.AggregatorService),
	}
}
