// Package export writes snapshots of published documents and themes to
// object storage so CDNs and static renderers can serve them without
// reaching the document store.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/document"
)

// Client is the subset of the S3 API the exporter uses. *s3.Client
// satisfies it.
type Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Exporter mirrors published documents to an S3 bucket:
//
//	<prefix>/<store>/<kind>/<key>.json   published documents
//	<prefix>/<store>/theme.json          published theme
//
// It implements document.Hook.
type S3Exporter struct {
	client Client
	bucket string
	prefix string
	logger *slog.Logger
}

// Option configures an S3Exporter.
type Option func(*S3Exporter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *S3Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewS3Exporter creates an exporter writing to bucket under prefix.
func NewS3Exporter(client Client, bucket, prefix string, opts ...Option) *S3Exporter {
	e := &S3Exporter{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ClientConfig describes how to reach the bucket.
type ClientConfig struct {
	Region       string
	Endpoint     string // S3-compatible endpoint, empty for AWS
	UsePathStyle bool
}

// NewS3Client builds an S3 client from cfg. Credentials come from
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
func NewS3Client(cfg ClientConfig) *s3.Client {
	return s3.New(s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.UsePathStyle,
		BaseEndpoint: optional(cfg.Endpoint),
		Credentials:  aws.NewCredentialsCache(envCredentials{}),
	})
}

type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	return aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// DocumentKey returns the object key for a published document.
func (e *S3Exporter) DocumentKey(storeID string, kind document.Kind, key string) string {
	return path.Join(e.prefix, storeID, string(kind), key+".json")
}

// ThemeKey returns the object key for a published theme.
func (e *S3Exporter) ThemeKey(storeID string) string {
	return path.Join(e.prefix, storeID, "theme.json")
}

// OnEvent writes or removes the snapshot ev refers to.
func (e *S3Exporter) OnEvent(ctx context.Context, ev document.Event) error {
	switch ev.Type {
	case document.EventPublished:
		if ev.Document == nil {
			return nil
		}
		return e.put(ctx, e.DocumentKey(ev.StoreID, ev.Kind, ev.Key), ev.Document, ev.Version)
	case document.EventThemePublished:
		if ev.Theme == nil {
			return nil
		}
		return e.put(ctx, e.ThemeKey(ev.StoreID), ev.Theme, ev.Version)
	case document.EventUnpublished:
		key := e.DocumentKey(ev.StoreID, ev.Kind, ev.Key)
		_, err := e.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(e.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return sferrors.New("E701").WithDetailf("delete s3://%s/%s", e.bucket, key).Wrap(err)
		}
		e.logger.Debug("snapshot removed", "bucket", e.bucket, "key", key)
	}
	return nil
}

func (e *S3Exporter) put(ctx context.Context, key string, v any, version int64) error {
	body, err := json.Marshal(v)
	if err != nil {
		return sferrors.New("E701").WithDetailf("encode %s", key).Wrap(err)
	}
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"storefront-version": strconv.FormatInt(version, 10),
		},
	})
	if err != nil {
		return sferrors.New("E701").WithDetailf("put s3://%s/%s", e.bucket, key).Wrap(err)
	}
	e.logger.Debug("snapshot exported", "bucket", e.bucket, "key", key, "version", version)
	return nil
}
