package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
	"github.com/wahajws/amast-crm-sub001/services/domain_matcher"
)

// directoryRepository reads the CRM contact and account tables. Fuzzy
// lookups load the user's candidates and rank them with the matcher, so
// results agree with the in-process matching rules.
type directoryRepository struct {
	db      *gorm.DB
	matcher *domain_matcher.Matcher
}

func NewDirectoryRepository(db *gorm.DB, matcher *domain_matcher.Matcher) interfaces.Directory {
	return &directoryRepository{db: db, matcher: matcher}
}

func (r *directoryRepository) FindContactByExactEmail(ctx context.Context, email, userID string) (*models.Contact, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "directoryRepository.FindContactByExactEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var contact models.Contact
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND LOWER(email) = ?", userID, utils.NormalizeEmailAddress(email)).
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &contact, nil
}

func (r *directoryRepository) FindContactByFuzzyName(ctx context.Context, name, userID string) (*models.Contact, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "directoryRepository.FindContactByFuzzyName")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if strings.TrimSpace(name) == "" {
		return nil, nil
	}

	var contacts []*models.Contact
	err := r.db.WithContext(ctx).
		Select("id", "owner_id", "account_id", "first_name", "last_name", "email").
		Where("owner_id = ?", userID).
		Order("created_at ASC").
		Find(&contacts).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return r.matcher.SelectContactByName(contacts, name), nil
}

func (r *directoryRepository) FindAccountByFuzzyName(ctx context.Context, name, userID string) (*models.Account, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "directoryRepository.FindAccountByFuzzyName")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if strings.TrimSpace(name) == "" {
		return nil, nil
	}

	accounts, err := r.FindAccountsForUser(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return r.matcher.SelectAccountByName(accounts, name), nil
}

func (r *directoryRepository) FindAccountsForUser(ctx context.Context, userID string) ([]*models.Account, error) {
	return r.FindAccounts(ctx, dto.AccountFilter{OwnerID: &userID})
}

func (r *directoryRepository) FindAccounts(ctx context.Context, filter dto.AccountFilter) ([]*models.Account, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "directoryRepository.FindAccounts")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var accounts []*models.Account
	if err := accountsQuery(r.db.WithContext(ctx), filter).Find(&accounts).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return accounts, nil
}

// accountsQuery applies filter as explicit predicates. A set OwnerID always
// scopes the query, even when empty.
func accountsQuery(db *gorm.DB, filter dto.AccountFilter) *gorm.DB {
	query := db.Model(&models.Account{})
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.WithWebsite {
		query = query.Where("website IS NOT NULL AND website <> ''")
	}
	return query.Order("created_at ASC")
}

func (r *directoryRepository) GetContact(ctx context.Context, contactID string) (*models.Contact, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "directoryRepository.GetContact")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, contactID)

	var contact models.Contact
	if err := r.db.WithContext(ctx).Where("id = ?", contactID).First(&contact).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &contact, nil
}

func (r *directoryRepository) SaveContactTemplate(ctx context.Context, contactID, subject, body string) (*models.Contact, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "directoryRepository.SaveContactTemplate")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, contactID)

	now := utils.Now()
	result := r.db.WithContext(ctx).Model(&models.Contact{}).
		Where("id = ?", contactID).
		Updates(map[string]interface{}{
			"outreach_subject":      subject,
			"outreach_body":         body,
			"outreach_generated_at": now,
			"updated_at":            now,
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetContact(ctx, contactID)
}

func (r *directoryRepository) ListContactIDsWithTemplate(ctx context.Context, ownerID string) ([]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "directoryRepository.ListContactIDsWithTemplate")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Contact{}).
		Where("owner_id = ?", ownerID).
		Where("COALESCE(TRIM(outreach_subject), '') <> '' AND COALESCE(TRIM(outreach_body), '') <> ''").
		Pluck("id", &ids).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return ids, nil
}
