package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

type emailAttachmentRepository struct {
	db      *gorm.DB
	storage interfaces.StorageService
	service string
}

// NewEmailAttachmentRepository wires attachment metadata to object storage.
// storageService may be nil, in which case Store and GetData fail and only
// provider references are recorded.
func NewEmailAttachmentRepository(db *gorm.DB, storageService interfaces.StorageService, storageName string) interfaces.EmailAttachmentRepository {
	return &emailAttachmentRepository{
		db:      db,
		storage: storageService,
		service: storageName,
	}
}

func (r *emailAttachmentRepository) Create(ctx context.Context, attachment *models.EmailAttachment) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *emailAttachmentRepository) GetByID(ctx context.Context, id string) (*models.EmailAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var attachment models.EmailAttachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&attachment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &attachment, nil
}

func (r *emailAttachmentRepository) ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.ListByEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var attachments []*models.EmailAttachment
	err := r.db.WithContext(ctx).
		Where("email_id = ?", emailID).
		Find(&attachments).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return attachments, nil
}

// Store uploads the bytes and creates the metadata row in one step. The
// row is only written once the upload succeeded.
func (r *emailAttachmentRepository) Store(ctx context.Context, attachment *models.EmailAttachment, data []byte) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.Store")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if r.storage == nil {
		err := errors.New("attachment storage is not configured")
		tracing.TraceErr(span, err)
		return err
	}

	if attachment.ID == "" {
		attachment.ID = utils.GenerateNanoIDWithPrefix("file", 12)
	}
	if attachment.StorageKey == "" {
		attachment.StorageKey = fmt.Sprintf("%s/%s.%s", attachment.EmailID, attachment.ID,
			utils.GetFileExtension(attachment.Filename, attachment.ContentType))
	}

	sum := sha256.Sum256(data)
	attachment.ContentHash = hex.EncodeToString(sum[:])
	attachment.Size = int64(len(data))
	attachment.StorageService = r.service
	attachment.StorageBucket = r.storage.BucketName()

	if err := r.storage.Upload(ctx, attachment.StorageKey, data, attachment.ContentType); err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to upload attachment: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *emailAttachmentRepository) GetData(ctx context.Context, id string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.GetData")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	attachment, err := r.GetByID(ctx, id)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if attachment == nil || !attachment.IsStored() {
		err = errors.New("attachment not found in storage")
		tracing.TraceErr(span, err)
		return nil, err
	}
	if r.storage == nil {
		err = errors.New("attachment storage is not configured")
		tracing.TraceErr(span, err)
		return nil, err
	}

	data, err := r.storage.Download(ctx, attachment.StorageKey)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to download attachment: %w", err)
	}

	return data, nil
}
