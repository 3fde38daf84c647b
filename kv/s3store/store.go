// Package s3store implements the key-value backend on an S3-compatible blob store.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dreamplay/rewards/kv"
)

// Sentinel errors for store operations
var (
	ErrMissingBucket = errors.New("s3 bucket required")
	ErrGetFailed     = errors.New("s3 get failed")
	ErrSetFailed     = errors.New("s3 set failed")
	ErrListFailed    = errors.New("s3 list failed")
)

const contentTypeJSON = "application/json"

// API is the subset of the S3 client used by the store. *s3.Client satisfies it.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// Config locates the bucket. Endpoint is set for S3-compatible services (MinIO, R2)
// and switches the client to path-style addressing.
type Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// Store implements kv.Store with one object per key under an optional prefix
type Store struct {
	client API
	bucket string
	prefix string
}

var _ kv.Store = (*Store)(nil)

// New creates a store on an existing client.
func New(client API, bucket, prefix string) (*Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, ErrMissingBucket
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}, nil
}

// NewFromConfig builds an S3 client from the default credential chain and cfg.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, cfg.Bucket, cfg.Prefix)
}

func (s *Store) objectKey(key string) string {
	return s.prefix + key
}

// Get returns the object body stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrGetFailed, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrGetFailed, err)
	}
	return body, nil
}

// Set writes value as a JSON object under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
		ContentType:   aws.String(contentTypeJSON),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSetFailed, err)
	}
	return nil
}

// List pages through every object under prefix and returns the keys in ascending order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.objectKey(prefix)),
	})

	keys := []string{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrListFailed, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), s.prefix))
		}
	}

	slices.Sort(keys)
	return keys, nil
}
