package storage

import (
	"github.com/wahajws/amast-crm-sub001/config"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/services/storage/aws_client"
)

// ServiceNameR2 is recorded on stored attachment rows.
const ServiceNameR2 = "r2"

// NewAttachmentStorage returns the attachment bucket on Cloudflare R2, or
// nil when R2 is not configured.
func NewAttachmentStorage(cfg *config.R2StorageConfig) interfaces.StorageService {
	if !cfg.Enabled() {
		return nil
	}
	client := aws_client.NewR2Client(aws_client.R2Config{
		AccountID:       cfg.AccountID,
		AccessKeyID:     cfg.AccessKeyID,
		AccessKeySecret: cfg.AccessKeySecret,
	})
	return NewStorageService(client, StorageConfig{BucketName: cfg.EmailAttachmentBucket})
}
