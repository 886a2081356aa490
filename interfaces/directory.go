package interfaces

import (
	"context"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/internal/models"
)

// Directory is the contact/account lookup capability used by matching and
// campaign reconciliation. Lookups return nil, nil when nothing matches.
type Directory interface {
	FindContactByExactEmail(ctx context.Context, email, userID string) (*models.Contact, error)
	FindContactByFuzzyName(ctx context.Context, name, userID string) (*models.Contact, error)
	FindAccountByFuzzyName(ctx context.Context, name, userID string) (*models.Account, error)
	FindAccountsForUser(ctx context.Context, userID string) ([]*models.Account, error)
	FindAccounts(ctx context.Context, filter dto.AccountFilter) ([]*models.Account, error)
	GetContact(ctx context.Context, contactID string) (*models.Contact, error)
	SaveContactTemplate(ctx context.Context, contactID, subject, body string) (*models.Contact, error)
	ListContactIDsWithTemplate(ctx context.Context, ownerID string) ([]string, error)
}
