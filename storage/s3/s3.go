// Package s3 implements storage.Backend on top of AWS S3 or an
// S3-compatible store such as MinIO.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/lust-img/lust/lerrors"
	"github.com/lust-img/lust/storage"
)

// Config configures the S3 backend. UsePathStyle is required for MinIO.
type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Backend stores variants as S3 objects keyed by their variant path.
type Backend struct {
	client *s3.Client
	bucket string
}

// New builds a Backend from cfg.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 storage: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Backend{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
	}, nil
}

func (b *Backend) Put(ctx context.Context, path string, r io.Reader, size int64) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
		Body:   r,
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return lerrors.Wrap(lerrors.StorageFailure, "s3.put", err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, path string) (io.ReadCloser, bool, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, lerrors.Wrap(lerrors.StorageFailure, "s3.get", err)
	}
	return out.Body, true, nil
}

func (b *Backend) DeletePrefix(ctx context.Context, prefix string) error {
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return lerrors.Wrap(lerrors.StorageFailure, "s3.delete_prefix.list", err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}

		_, err = b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return lerrors.Wrap(lerrors.StorageFailure, "s3.delete_prefix.delete", err)
		}
	}
	return nil
}

// List delegates pagination to S3's own continuation tokens, passed through
// unmodified as storage.Page.NextPage. Entries are returned in whatever
// order S3 lists them, which for a standard bucket is lexicographic by key.
func (b *Backend) List(ctx context.Context, bucket string, filter storage.Filter, page string) (storage.Page, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(bucket + "/"),
		MaxKeys: aws.Int32(storage.PageSize),
	}
	if page != "" {
		input.ContinuationToken = aws.String(page)
	}

	out, err := b.client.ListObjectsV2(ctx, input)
	if err != nil {
		return storage.Page{}, lerrors.Wrap(lerrors.StorageFailure, "s3.list", err)
	}

	result := storage.Page{Items: make([]storage.Entry, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		entry := storage.Entry{
			Path: aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
		}
		if obj.LastModified != nil {
			entry.CreatedAt = *obj.LastModified
		}
		if filter.Kind == storage.FilterByCreationDate {
			if !filter.From.IsZero() && entry.CreatedAt.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && entry.CreatedAt.After(filter.To) {
				continue
			}
		}
		result.Items = append(result.Items, entry)
	}
	if out.IsTruncated != nil && *out.IsTruncated {
		result.NextPage = aws.ToString(out.NextContinuationToken)
	}
	return result, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey")
}

var _ storage.Backend = (*Backend)(nil)
