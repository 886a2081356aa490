package entity_resolver

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/testutil"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
	"github.com/wahajws/amast-crm-sub001/services/domain_matcher"
)

const userID = "user_1"

func newResolver(directory *testutil.Directory) *entityResolver {
	return NewEntityResolver(directory, domain_matcher.NewMatcher(domain_matcher.DefaultPolicy)).(*entityResolver)
}

func TestResolve_LabelContactWinsOverSenderMatch(t *testing.T) {
	directory := testutil.NewDirectory()
	acme := directory.AddAccount(&models.Account{ID: "acc_acme", OwnerID: userID, Name: "Acme"})
	directory.AddContact(&models.Contact{ID: "c_jane", OwnerID: userID, FirstName: "Jane", LastName: "Doe", AccountID: &acme.ID})
	directory.AddContact(&models.Contact{ID: "c_bob", OwnerID: userID, FirstName: "Bob", LastName: "Stone", Email: "unknown@x.com"})

	email := &models.Email{FromAddress: "unknown@x.com"}
	resolution, err := newResolver(directory).Resolve(context.Background(), email, userID, "Jane Doe")
	require.NoError(t, err)

	assert.Equal(t, dto.MatchLabelContact, resolution.Source)
	assert.Equal(t, "c_jane", *email.ContactID)
	assert.Equal(t, "acc_acme", *email.AccountID)
}

func TestResolve_LabelContactFallsBackToLabelAccount(t *testing.T) {
	directory := testutil.NewDirectory()
	directory.AddAccount(&models.Account{ID: "acc_acme", OwnerID: userID, Name: "Acme Corp"})
	directory.AddContact(&models.Contact{ID: "c_acme", OwnerID: userID, FirstName: "Acme"})

	email := &models.Email{FromAddress: "someone@elsewhere.com"}
	resolution, err := newResolver(directory).Resolve(context.Background(), email, userID, "Acme")
	require.NoError(t, err)

	assert.Equal(t, dto.MatchLabelContact, resolution.Source)
	assert.Equal(t, "c_acme", *email.ContactID)
	assert.Equal(t, "acc_acme", *email.AccountID)
}

func TestResolve_LabelAccountOnly(t *testing.T) {
	directory := testutil.NewDirectory()
	directory.AddAccount(&models.Account{ID: "acc_globex", OwnerID: userID, Name: "Globex"})

	email := &models.Email{FromAddress: "hank@globex.com"}
	resolution, err := newResolver(directory).Resolve(context.Background(), email, userID, "Clients/Globex")
	require.NoError(t, err)

	assert.Equal(t, dto.MatchLabelAccount, resolution.Source)
	assert.Nil(t, email.ContactID)
	assert.Equal(t, "acc_globex", *email.AccountID)
}

func TestResolve_SenderExactEmail(t *testing.T) {
	directory := testutil.NewDirectory()
	accountID := "acc_initech"
	directory.AddContact(&models.Contact{ID: "c_peter", OwnerID: userID, FirstName: "Peter", Email: "peter@initech.com", AccountID: &accountID})

	email := &models.Email{FromAddress: "Peter@Initech.com"}
	resolution, err := newResolver(directory).Resolve(context.Background(), email, userID, "")
	require.NoError(t, err)

	assert.Equal(t, dto.MatchSenderEmail, resolution.Source)
	assert.Equal(t, "c_peter", *email.ContactID)
	assert.Equal(t, accountID, *email.AccountID)
}

func TestResolve_AccountWebsite(t *testing.T) {
	directory := testutil.NewDirectory()
	directory.AddAccount(&models.Account{ID: "acc_other", OwnerID: userID, Name: "Other", Website: "https://other.io"})
	directory.AddAccount(&models.Account{ID: "acc_umbrella", OwnerID: userID, Name: "Umbrella", Website: "https://www.umbrella.com"})

	email := &models.Email{FromAddress: "alice@umbrella.com"}
	resolution, err := newResolver(directory).Resolve(context.Background(), email, userID, "INBOX-not-a-match")
	require.NoError(t, err)

	assert.Equal(t, dto.MatchAccountWebsite, resolution.Source)
	assert.Nil(t, email.ContactID)
	assert.Equal(t, "acc_umbrella", *email.AccountID)
}

func TestResolve_OtherUsersRecordsAreIgnored(t *testing.T) {
	directory := testutil.NewDirectory()
	directory.AddContact(&models.Contact{ID: "c_x", OwnerID: "someone_else", Email: "a@b.com"})

	email := &models.Email{FromAddress: "a@b.com"}
	resolution, err := newResolver(directory).Resolve(context.Background(), email, userID, "")
	require.NoError(t, err)

	assert.Equal(t, dto.MatchNone, resolution.Source)
	assert.False(t, email.IsLinked())
}

func TestResolve_DirectoryErrorPropagates(t *testing.T) {
	directory := testutil.NewDirectory()
	directory.Err = errors.New("connection refused")

	email := &models.Email{FromAddress: "a@b.com", ContactID: utils.StringPtr("stale")}
	_, err := newResolver(directory).Resolve(context.Background(), email, userID, "Acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "stale", *email.ContactID)
}
