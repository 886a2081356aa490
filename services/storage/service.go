package storage

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/services/storage/aws_client"
)

// ObjectStorageService implements StorageService on one private bucket.
type ObjectStorageService struct {
	client     aws_client.S3Client
	bucketName string
	cdnDomain  string
}

type StorageConfig struct {
	BucketName string
	CDNDomain  string // optional, enables GetPublicURL
}

func NewStorageService(client aws_client.S3Client, config StorageConfig) interfaces.StorageService {
	return &ObjectStorageService{
		client:     client,
		bucketName: config.BucketName,
		cdnDomain:  config.CDNDomain,
	}
}

func (s *ObjectStorageService) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if key == "" {
		return errors.New("storage key is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	err := s.client.Upload(ctx, s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to upload %s to %s", key, s.bucketName)
	}
	return nil
}

func (s *ObjectStorageService) Download(ctx context.Context, key string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Download")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	content, err := s.client.Download(ctx, s.bucketName, key)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to download %s from %s", key, s.bucketName)
	}
	return content, nil
}

func (s *ObjectStorageService) Delete(ctx context.Context, key string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Delete")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := s.client.Delete(ctx, s.bucketName, key); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to delete %s from %s", key, s.bucketName)
	}
	return nil
}

// GetPublicURL is empty unless a CDN domain fronts the bucket.
func (s *ObjectStorageService) GetPublicURL(key string) string {
	if s.cdnDomain != "" {
		return "https://" + s.cdnDomain + "/" + key
	}
	return ""
}

func (s *ObjectStorageService) BucketName() string {
	return s.bucketName
}
