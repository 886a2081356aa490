package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

type labelSyncSettingRepository struct {
	db *gorm.DB
}

func NewLabelSyncSettingRepository(db *gorm.DB) interfaces.LabelSyncSettingRepository {
	return &labelSyncSettingRepository{db: db}
}

func (r *labelSyncSettingRepository) Get(ctx context.Context, userID, labelID string) (*models.LabelSyncSetting, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "labelSyncSettingRepository.Get")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagLabel(span, labelID)

	var setting models.LabelSyncSetting
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND label_id = ?", userID, labelID).
		First(&setting)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get label sync setting: %w", result.Error)
	}

	return &setting, nil
}

func (r *labelSyncSettingRepository) ListByUser(ctx context.Context, userID string) ([]*models.LabelSyncSetting, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "labelSyncSettingRepository.ListByUser")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var settings []*models.LabelSyncSetting
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("label_name ASC").
		Find(&settings).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list label sync settings: %w", err)
	}
	return settings, nil
}

func (r *labelSyncSettingRepository) ListSyncing(ctx context.Context, userID string) ([]*models.LabelSyncSetting, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "labelSyncSettingRepository.ListSyncing")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var settings []*models.LabelSyncSetting
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_syncing = ?", userID, true).
		Order("label_name ASC").
		Find(&settings).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list syncing labels: %w", err)
	}
	return settings, nil
}

func (r *labelSyncSettingRepository) ListUsersWithSyncingLabels(ctx context.Context) ([]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "labelSyncSettingRepository.ListUsersWithSyncingLabels")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var userIDs []string
	if err := r.db.WithContext(ctx).Model(&models.LabelSyncSetting{}).
		Where("is_syncing = ?", true).
		Distinct().
		Order("user_id").
		Pluck("user_id", &userIDs).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return userIDs, nil
}

// Upsert refreshes the cached label name and type. The syncing flag and
// last-synced time of an existing row are left untouched.
func (r *labelSyncSettingRepository) Upsert(ctx context.Context, setting *models.LabelSyncSetting) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "labelSyncSettingRepository.Upsert")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagLabel(span, setting.LabelID)

	now := utils.Now()
	setting.UpdatedAt = now
	if setting.CreatedAt.IsZero() {
		setting.CreatedAt = now
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "label_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"label_name", "label_type", "updated_at"}),
		}).
		Create(setting).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to upsert label sync setting: %w", err)
	}
	return nil
}

func (r *labelSyncSettingRepository) SetSyncing(ctx context.Context, userID, labelID string, isSyncing bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "labelSyncSettingRepository.SetSyncing")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagLabel(span, labelID)

	now := utils.Now()
	setting := &models.LabelSyncSetting{
		UserID:    userID,
		LabelID:   labelID,
		LabelName: labelID,
		IsSyncing: isSyncing,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "label_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_syncing", "updated_at"}),
		}).
		Create(setting).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to set label syncing: %w", err)
	}
	return nil
}

func (r *labelSyncSettingRepository) MarkSynced(ctx context.Context, userID, labelID string, at time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "labelSyncSettingRepository.MarkSynced")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagLabel(span, labelID)

	result := r.db.WithContext(ctx).
		Model(&models.LabelSyncSetting{}).
		Where("user_id = ? AND label_id = ?", userID, labelID).
		Updates(map[string]interface{}{
			"last_synced_at": at,
			"updated_at":     utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to mark label synced: %w", result.Error)
	}
	return nil
}
