package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wahajws/amast-crm-sub001/dto"
	mailerrors "github.com/wahajws/amast-crm-sub001/internal/errors"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/testutil"
	"github.com/wahajws/amast-crm-sub001/services/domain_matcher"
)

const userID = "user_1"

func newFixture(t *testing.T) (*aggregatorService, *testutil.Fakes) {
	t.Helper()
	fakes := testutil.NewFakes()

	fakes.Directory.AddAccount(&models.Account{ID: "acc_acme", OwnerID: userID, Name: "Acme Solutions"})
	fakes.Directory.AddAccount(&models.Account{ID: "acc_globex", OwnerID: userID, Name: "Globex"})
	fakes.Directory.AddAccount(&models.Account{ID: "acc_zeta", OwnerID: userID, Name: "Zeta"})
	fakes.Directory.AddAccount(&models.Account{ID: "acc_blank", OwnerID: userID, Name: "Inc."})
	fakes.Directory.AddAccount(&models.Account{ID: "acc_initech", OwnerID: "user_9", Name: "Initech"})

	at := func(day int) *time.Time {
		ts := time.Date(2026, 2, day, 9, 0, 0, 0, time.UTC)
		return &ts
	}
	fakes.Emails.Emails = []*models.Email{
		{ID: "e1", UserID: userID, FromAddress: "sales@acme.com", ReceivedAt: at(1)},
		{ID: "e2", UserID: userID, FromAddress: "Sales@Acme.com", ReceivedAt: at(5)},
		{ID: "e3", UserID: userID, FromAddress: "bob@acmesolutions.io", SentAt: at(3)},
		{ID: "e4", UserID: userID, FromAddress: "hank@globex.com", ReceivedAt: at(2)},
		{ID: "e5", UserID: userID, FromAddress: "x@unrelated.org"},
		{ID: "e6", UserID: userID, FromAddress: "not-an-address"},
		{ID: "e7", UserID: "user_2", FromAddress: "sales@acme.com"},
	}

	svc := NewAggregatorService(testutil.Logger(), fakes.Repositories(), domain_matcher.NewMatcher(domain_matcher.DefaultPolicy)).(*aggregatorService)
	return svc, fakes
}

func accountIDs(counts []dto.AccountEmailCount) []string {
	ids := make([]string, 0, len(counts))
	for _, count := range counts {
		ids = append(ids, count.AccountID)
	}
	return ids
}

func TestGetAccountsWithEmailCounts_RankedByCount(t *testing.T) {
	svc, _ := newFixture(t)

	counts, err := svc.GetAccountsWithEmailCounts(context.Background(), userID, dto.AccountScope{OwnerID: userID}, false)
	require.NoError(t, err)

	require.Equal(t, []string{"acc_acme", "acc_globex"}, accountIDs(counts))
	assert.Equal(t, 3, counts[0].EmailCount)
	assert.Equal(t, 1, counts[1].EmailCount)
	require.NotNil(t, counts[0].LastEmailAt)
	assert.Equal(t, 5, counts[0].LastEmailAt.Day())
}

func TestGetAccountsWithEmailCounts_IncludeZero(t *testing.T) {
	svc, _ := newFixture(t)

	counts, err := svc.GetAccountsWithEmailCounts(context.Background(), userID, dto.AccountScope{OwnerID: userID}, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"acc_acme", "acc_globex", "acc_zeta"}, accountIDs(counts))
	assert.Nil(t, counts[2].LastEmailAt)
}

func TestGetAccountsWithEmailCounts_AllAccountsScope(t *testing.T) {
	svc, _ := newFixture(t)

	counts, err := svc.GetAccountsWithEmailCounts(context.Background(), userID, dto.AccountScope{OwnerID: userID, AllAccounts: true}, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"acc_acme", "acc_globex", "acc_initech", "acc_zeta"}, accountIDs(counts))
}

func TestGetAccountsWithEmailCounts_Errors(t *testing.T) {
	svc, fakes := newFixture(t)

	_, err := svc.GetAccountsWithEmailCounts(context.Background(), "", dto.AccountScope{}, false)
	assert.ErrorIs(t, err, mailerrors.ErrUserIdMissing)

	fakes.Directory.Err = assert.AnError
	_, err = svc.GetAccountsWithEmailCounts(context.Background(), userID, dto.AccountScope{OwnerID: userID}, false)
	assert.ErrorIs(t, err, assert.AnError)
}
