package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	dicomerrors "github.com/dicomnet/dicomnet/errors"
)

// S3Config configures the S3-compatible backend. Path-style addressing
// is always used so custom endpoints (e.g. MinIO) work without DNS-based
// virtual-hosted bucket routing.
type S3Config struct {
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Region          string
}

// S3Backend implements Backend against an S3-compatible object store.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend builds an S3 client from cfg and verifies bucket access
// with a HeadBucket call before returning. The bucket must already
// exist; this does not create it.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: S3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	backend := &S3Backend{client: client, bucket: cfg.Bucket}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("storage: accessing bucket %q: %w", cfg.Bucket, err)
	}

	return backend, nil
}

// Get implements Backend.
func (b *S3Backend) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, dicomerrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", dicomerrors.ErrBackendUnavailable, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dicomerrors.ErrBackendUnavailable, err)
	}
	return data, nil
}

// Put implements Backend.
func (b *S3Backend) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", dicomerrors.ErrBackendUnavailable, err)
	}
	return nil
}

// List implements Backend. Folder marker keys (ending in "/") are
// excluded; objects without a ".dcm" suffix are not filtered — rejecting
// non-DICOM payloads is the inspector's job, not the backend's.
func (b *S3Backend) List(ctx context.Context, prefix string) <-chan Entry {
	out := make(chan Entry)
	go func() {
		defer close(out)
		paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(b.bucket),
			Prefix: aws.String(prefix),
		})
		for paginator.HasMorePages() {
			if ctx.Err() != nil {
				out <- Entry{Err: ctx.Err()}
				return
			}
			page, err := paginator.NextPage(ctx)
			if err != nil {
				out <- Entry{Err: fmt.Errorf("%w: %v", dicomerrors.ErrBackendUnavailable, err)}
				return
			}
			for _, obj := range page.Contents {
				if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") {
					continue
				}
				select {
				case out <- Entry{Key: *obj.Key}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
