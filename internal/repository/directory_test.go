package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/internal/models"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=crm dbname=crm sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestAccountsQuery_EmptyOwnerStillScopes(t *testing.T) {
	owner := ""
	var accounts []*models.Account
	stmt := accountsQuery(dryRunDB(t), dto.AccountFilter{OwnerID: &owner}).Find(&accounts).Statement

	assert.Contains(t, stmt.SQL.String(), "owner_id = $1")
	assert.Equal(t, []interface{}{""}, stmt.Vars)
}

func TestAccountsQuery_OwnerAndWebsite(t *testing.T) {
	owner := "user-1"
	var accounts []*models.Account
	stmt := accountsQuery(dryRunDB(t), dto.AccountFilter{OwnerID: &owner, WithWebsite: true}).Find(&accounts).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "owner_id = $1")
	assert.Contains(t, sql, "website IS NOT NULL")
	assert.Contains(t, sql, "ORDER BY created_at ASC")
	assert.Equal(t, []interface{}{"user-1"}, stmt.Vars)
}

func TestAccountsQuery_NoOwnerIsUnscoped(t *testing.T) {
	var accounts []*models.Account
	stmt := accountsQuery(dryRunDB(t), dto.AccountFilter{}).Find(&accounts).Statement

	assert.NotContains(t, stmt.SQL.String(), "owner_id")
	assert.Empty(t, stmt.Vars)
}

func TestAccountScope_EmptyOwnerFiltersByOwner(t *testing.T) {
	filter := dto.AccountScope{}.Filter()
	require.NotNil(t, filter.OwnerID)
	assert.Equal(t, "", *filter.OwnerID)

	assert.Nil(t, dto.AccountScope{OwnerID: "user-1", AllAccounts: true}.Filter().OwnerID)
}
