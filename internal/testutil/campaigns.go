package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

// EmailCampaignRepository keeps at most one live campaign per contact.
// FailContacts makes every write for the listed contacts fail.
type EmailCampaignRepository struct {
	mu           sync.Mutex
	Campaigns    []*models.EmailCampaign
	FailContacts map[string]error
}

func NewEmailCampaignRepository(campaigns ...*models.EmailCampaign) *EmailCampaignRepository {
	return &EmailCampaignRepository{Campaigns: campaigns, FailContacts: map[string]error{}}
}

func (r *EmailCampaignRepository) live(contactID string) *models.EmailCampaign {
	for _, campaign := range r.Campaigns {
		if campaign.ContactID == contactID && !campaign.DeletedAt.Valid {
			return campaign
		}
	}
	return nil
}

func (r *EmailCampaignRepository) GetByContactID(ctx context.Context, contactID string) (*models.EmailCampaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailContacts[contactID]; err != nil {
		return nil, err
	}
	return r.live(contactID), nil
}

func (r *EmailCampaignRepository) CreateIfAbsent(ctx context.Context, campaign *models.EmailCampaign) (*models.EmailCampaign, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailContacts[campaign.ContactID]; err != nil {
		return nil, false, err
	}
	if existing := r.live(campaign.ContactID); existing != nil {
		return existing, false, nil
	}
	if err := campaign.BeforeCreate(nil); err != nil {
		return nil, false, err
	}
	campaign.UpdatedAt = campaign.CreatedAt
	r.Campaigns = append(r.Campaigns, campaign)
	return campaign, true, nil
}

func (r *EmailCampaignRepository) Update(ctx context.Context, campaign *models.EmailCampaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailContacts[campaign.ContactID]; err != nil {
		return err
	}
	campaign.UpdatedAt = utils.Now()
	return nil
}

func (r *EmailCampaignRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.EmailCampaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.EmailCampaign
	for _, campaign := range r.Campaigns {
		if campaign.OwnerID == ownerID && !campaign.DeletedAt.Valid {
			result = append(result, campaign)
		}
	}
	return result, nil
}

func (r *EmailCampaignRepository) ListContactIDsWithCampaign(ctx context.Context, contactIDs []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []string
	for _, contactID := range contactIDs {
		if r.live(contactID) != nil {
			result = append(result, contactID)
		}
	}
	return result, nil
}

type MailAccountRepository struct {
	mu       sync.Mutex
	Accounts map[string]*models.MailAccount
}

func NewMailAccountRepository(accounts ...*models.MailAccount) *MailAccountRepository {
	repo := &MailAccountRepository{Accounts: map[string]*models.MailAccount{}}
	for _, account := range accounts {
		repo.Accounts[account.UserID] = account
	}
	return repo
}

func (r *MailAccountRepository) GetByUserID(ctx context.Context, userID string) (*models.MailAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Accounts[userID], nil
}

func (r *MailAccountRepository) Save(ctx context.Context, account *models.MailAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Accounts[account.UserID] = account
	return nil
}

func (r *MailAccountRepository) UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string, expiry *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.Accounts[userID]
	if !ok {
		return nil
	}
	account.AccessToken = accessToken
	if refreshToken != "" {
		account.RefreshToken = refreshToken
	}
	account.TokenExpiry = expiry
	return nil
}
