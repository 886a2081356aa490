package database

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/wahajws/amast-crm-sub001/internal/models"
)

func InitCRMDatabase(dbConfig *DatabaseConfig) (*gorm.DB, error) {
	db, err := NewConnection(dbConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to the CRM database")
	}
	return db, nil
}

// MigrateDB creates or updates the tables owned by this service. Contact
// and account tables belong to the wider CRM and are migrated only when
// includeDirectory is set, for local development.
func MigrateDB(db *gorm.DB, includeDirectory bool) error {
	tables := []interface{}{
		&models.MailAccount{},
		&models.LabelSyncSetting{},
		&models.SyncLog{},
		&models.Email{},
		&models.EmailAttachment{},
		&models.EmailCampaign{},
	}
	if includeDirectory {
		tables = append([]interface{}{&models.Account{}, &models.Contact{}}, tables...)
	}

	for _, table := range tables {
		if err := db.AutoMigrate(table); err != nil {
			return errors.Wrapf(err, "migrate %T", table)
		}
	}
	return nil
}
