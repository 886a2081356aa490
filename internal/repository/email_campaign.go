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

type emailCampaignRepository struct {
	db *gorm.DB
}

func NewEmailCampaignRepository(db *gorm.DB) interfaces.EmailCampaignRepository {
	return &emailCampaignRepository{db: db}
}

func (r *emailCampaignRepository) GetByContactID(ctx context.Context, contactID string) (*models.EmailCampaign, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailCampaignRepository.GetByContactID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, contactID)

	return getLiveCampaign(r.db.WithContext(ctx), span, contactID)
}

// CreateIfAbsent re-checks for a live row and inserts inside one
// transaction. The partial unique index on contact_id makes a concurrent
// insert a no-op, after which the winner is reloaded.
func (r *emailCampaignRepository) CreateIfAbsent(ctx context.Context, campaign *models.EmailCampaign) (*models.EmailCampaign, bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailCampaignRepository.CreateIfAbsent")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, campaign.ContactID)

	var stored *models.EmailCampaign
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := getLiveCampaign(tx, span, campaign.ContactID)
		if err != nil {
			return err
		}
		if existing != nil {
			stored = existing
			return nil
		}

		result := tx.Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "contact_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "deleted_at IS NULL"}}},
			DoNothing:   true,
		}).Create(campaign)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 1 {
			stored = campaign
			created = true
			return nil
		}

		stored, err = getLiveCampaign(tx, span, campaign.ContactID)
		if err == nil && stored == nil {
			err = errors.New("campaign insert lost race but no live row found")
		}
		return err
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, false, err
	}

	span.SetTag("created", created)
	return stored, created, nil
}

func (r *emailCampaignRepository) Update(ctx context.Context, campaign *models.EmailCampaign) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailCampaignRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, campaign.ID)

	campaign.UpdatedAt = utils.Now()
	err := r.db.WithContext(ctx).Model(&models.EmailCampaign{}).
		Where("id = ?", campaign.ID).
		Updates(map[string]interface{}{
			"subject":               campaign.Subject,
			"body":                  campaign.Body,
			"status":                campaign.Status,
			"priority":              campaign.Priority,
			"source":                campaign.Source,
			"communication_started": campaign.CommunicationStarted,
			"sent_at":               campaign.SentAt,
			"sent_by":               campaign.SentBy,
			"updated_at":            campaign.UpdatedAt,
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *emailCampaignRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.EmailCampaign, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailCampaignRepository.ListByOwner")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var campaigns []*models.EmailCampaign
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&campaigns).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return campaigns, nil
}

func (r *emailCampaignRepository) ListContactIDsWithCampaign(ctx context.Context, contactIDs []string) ([]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailCampaignRepository.ListContactIDsWithCampaign")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if len(contactIDs) == 0 {
		return []string{}, nil
	}

	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.EmailCampaign{}).
		Where("contact_id IN ?", contactIDs).
		Pluck("contact_id", &ids).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return ids, nil
}

func getLiveCampaign(db *gorm.DB, span opentracing.Span, contactID string) (*models.EmailCampaign, error) {
	var campaign models.EmailCampaign
	if err := db.Where("contact_id = ?", contactID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &campaign, nil
}
