package repository

import (
	"context"
	"errors"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

type mailAccountRepository struct {
	db *gorm.DB
}

func NewMailAccountRepository(db *gorm.DB) interfaces.MailAccountRepository {
	return &mailAccountRepository{db: db}
}

func (r *mailAccountRepository) GetByUserID(ctx context.Context, userID string) (*models.MailAccount, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailAccountRepository.GetByUserID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var account models.MailAccount
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &account, nil
}

func (r *mailAccountRepository) Save(ctx context.Context, account *models.MailAccount) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailAccountRepository.Save")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	account.UpdatedAt = utils.Now()
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(account).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// UpdateTokens persists a refreshed OAuth token. An empty refresh token
// keeps the stored one.
func (r *mailAccountRepository) UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string, expiry *time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailAccountRepository.UpdateTokens")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	values := map[string]interface{}{
		"access_token": accessToken,
		"token_expiry": expiry,
		"updated_at":   utils.Now(),
	}
	if refreshToken != "" {
		values["refresh_token"] = refreshToken
	}

	err := r.db.WithContext(ctx).Model(&models.MailAccount{}).
		Where("user_id = ?", userID).
		Updates(values).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
