package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{
		db: db,
	}
}

// Create inserts the email unless the user already has one with the same
// provider message id. An existing row is never overwritten; created is
// false in that case and email.ID does not refer to a stored row.
func (r *emailRepository) Create(ctx context.Context, email *models.Email) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider_message_id"}},
			DoNothing: true,
		}).
		Omit("Attachments").
		Create(email)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		span.SetTag("duplicate", true)
		return false, nil
	}

	return true, nil
}

func (r *emailRepository) GetByID(ctx context.Context, userID, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	var email models.Email
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

// ExistsByProviderMessageID includes soft-deleted rows, so a deleted email
// is not re-ingested by the next sync.
func (r *emailRepository) ExistsByProviderMessageID(ctx context.Context, userID, providerMessageID string) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ExistsByProviderMessageID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Email{}).
		Where("user_id = ? AND provider_message_id = ?", userID, providerMessageID).
		Count(&count).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return false, err
	}
	return count > 0, nil
}

// ListByUser returns the sender columns only; it feeds aggregation.
func (r *emailRepository) ListByUser(ctx context.Context, userID string) ([]*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListByUser")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var emails []*models.Email
	err := r.db.WithContext(ctx).
		Select("id", "user_id", "from_address", "received_at", "sent_at", "contact_id", "account_id").
		Where("user_id = ?", userID).
		Find(&emails).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return emails, nil
}

func (r *emailRepository) ListUnlinked(ctx context.Context, userID string, limit, offset int) ([]*models.Email, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListUnlinked")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var emails []*models.Email
	var count int64

	query := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("user_id = ? AND contact_id IS NULL AND account_id IS NULL", userID)

	if err := query.Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	if err := query.
		Order("received_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	return emails, count, nil
}

func (r *emailRepository) SetRead(ctx context.Context, userID, id string, isRead bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.SetRead")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	return r.update(ctx, span, userID, id, map[string]interface{}{"is_read": isRead})
}

func (r *emailRepository) SetStarred(ctx context.Context, userID, id string, isStarred bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.SetStarred")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	return r.update(ctx, span, userID, id, map[string]interface{}{"is_starred": isStarred})
}

func (r *emailRepository) SetLinks(ctx context.Context, userID, id string, contactID, accountID *string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.SetLinks")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	return r.update(ctx, span, userID, id, map[string]interface{}{
		"contact_id": contactID,
		"account_id": accountID,
	})
}

func (r *emailRepository) SoftDelete(ctx context.Context, userID, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.SoftDelete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Email{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *emailRepository) update(ctx context.Context, span opentracing.Span, userID, id string, values map[string]interface{}) error {
	tracing.TagEntity(span, id)
	values["updated_at"] = utils.Now()

	err := r.db.WithContext(ctx).Model(&models.Email{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(values).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
