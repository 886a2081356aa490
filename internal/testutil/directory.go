package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
	"github.com/wahajws/amast-crm-sub001/services/domain_matcher"
)

// Directory is an in-memory contact/account directory. Set Err to make
// every lookup fail.
type Directory struct {
	mu       sync.Mutex
	Contacts []*models.Contact
	Accounts []*models.Account
	Err      error
	matcher  *domain_matcher.Matcher
}

func NewDirectory() *Directory {
	return &Directory{matcher: domain_matcher.NewMatcher(domain_matcher.DefaultPolicy)}
}

func (d *Directory) AddContact(contact *models.Contact) *models.Contact {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Contacts = append(d.Contacts, contact)
	return contact
}

func (d *Directory) AddAccount(account *models.Account) *models.Account {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Accounts = append(d.Accounts, account)
	return account
}

func (d *Directory) ownedContacts(userID string) []*models.Contact {
	var result []*models.Contact
	for _, contact := range d.Contacts {
		if contact.OwnerID == userID {
			result = append(result, contact)
		}
	}
	return result
}

func (d *Directory) ownedAccounts(userID string) []*models.Account {
	var result []*models.Account
	for _, account := range d.Accounts {
		if account.OwnerID == userID {
			result = append(result, account)
		}
	}
	return result
}

func (d *Directory) FindContactByExactEmail(ctx context.Context, email, userID string) (*models.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	for _, contact := range d.ownedContacts(userID) {
		if strings.EqualFold(contact.Email, email) {
			return contact, nil
		}
	}
	return nil, nil
}

func (d *Directory) FindContactByFuzzyName(ctx context.Context, name, userID string) (*models.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	return d.matcher.SelectContactByName(d.ownedContacts(userID), name), nil
}

func (d *Directory) FindAccountByFuzzyName(ctx context.Context, name, userID string) (*models.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	return d.matcher.SelectAccountByName(d.ownedAccounts(userID), name), nil
}

func (d *Directory) FindAccountsForUser(ctx context.Context, userID string) ([]*models.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	return d.ownedAccounts(userID), nil
}

func (d *Directory) FindAccounts(ctx context.Context, filter dto.AccountFilter) ([]*models.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var result []*models.Account
	for _, account := range d.Accounts {
		if filter.OwnerID != nil && account.OwnerID != *filter.OwnerID {
			continue
		}
		if len(filter.IDs) > 0 && !utils.IsStringInSlice(account.ID, filter.IDs) {
			continue
		}
		if filter.WithWebsite && account.Website == "" {
			continue
		}
		result = append(result, account)
	}
	return result, nil
}

func (d *Directory) GetContact(ctx context.Context, contactID string) (*models.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	for _, contact := range d.Contacts {
		if contact.ID == contactID {
			return contact, nil
		}
	}
	return nil, nil
}

func (d *Directory) SaveContactTemplate(ctx context.Context, contactID, subject, body string) (*models.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	for _, contact := range d.Contacts {
		if contact.ID == contactID {
			now := utils.Now()
			contact.OutreachSubject = subject
			contact.OutreachBody = body
			contact.OutreachGeneratedAt = &now
			return contact, nil
		}
	}
	return nil, nil
}

func (d *Directory) ListContactIDsWithTemplate(ctx context.Context, ownerID string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var ids []string
	for _, contact := range d.ownedContacts(ownerID) {
		if contact.HasOutreachTemplate() {
			ids = append(ids, contact.ID)
		}
	}
	return ids, nil
}
