package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
)

type syncLogRepository struct {
	db *gorm.DB
}

func NewSyncLogRepository(db *gorm.DB) interfaces.SyncLogRepository {
	return &syncLogRepository{db: db}
}

func (r *syncLogRepository) Start(ctx context.Context, log *models.SyncLog) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncLogRepository.Start")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagLabel(span, log.LabelID)

	log.Status = enum.SyncStatusRunning
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// Complete writes the final counters. Only a running row is updated, so a
// finished log is never rewritten.
func (r *syncLogRepository) Complete(ctx context.Context, log *models.SyncLog) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncLogRepository.Complete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, log.ID)

	result := r.db.WithContext(ctx).Model(&models.SyncLog{}).
		Where("id = ? AND status = ?", log.ID, enum.SyncStatusRunning).
		Updates(map[string]interface{}{
			"status":         log.Status,
			"emails_synced":  log.EmailsSynced,
			"emails_skipped": log.EmailsSkipped,
			"emails_failed":  log.EmailsFailed,
			"error_message":  log.ErrorMessage,
			"details":        log.Details,
			"finished_at":    log.FinishedAt,
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		err := errors.New("sync log is not running")
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *syncLogRepository) GetByID(ctx context.Context, id string) (*models.SyncLog, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncLogRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var log models.SyncLog
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&log).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &log, nil
}

func (r *syncLogRepository) List(ctx context.Context, userID, labelID string, limit, offset int) ([]*models.SyncLog, int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncLogRepository.List")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var logs []*models.SyncLog
	var count int64

	query := r.db.WithContext(ctx).Model(&models.SyncLog{}).Where("user_id = ?", userID)
	if labelID != "" {
		query = query.Where("label_id = ?", labelID)
	}

	if err := query.Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	if err := query.
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, 0, err
	}

	return logs, count, nil
}
