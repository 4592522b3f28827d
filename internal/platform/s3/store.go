// Package s3 implements the storage.ObjectStore interface against any
// S3-compatible backend (AWS S3, DigitalOcean Spaces).
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/lasprendas/tryon-api/internal/config"
	"github.com/lasprendas/tryon-api/internal/storage"
)

// Store is the S3 implementation of storage.ObjectStore. Objects are
// uploaded public-read; the public URL uses virtual-host addressing.
type Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// Ensure Store implements storage.ObjectStore interface
var _ storage.ObjectStore = (*Store)(nil)

// New creates a Store from the application storage configuration. When an
// endpoint is configured (non-AWS backends), it is used as the base endpoint;
// otherwise the default AWS endpoint for the region applies.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	var baseURL string
	if cfg.Endpoint != "" {
		endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
		baseURL = strings.Replace(endpoint, "https://", "https://"+cfg.Bucket+".", 1)
	} else {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	logger.Info("object storage client initialized",
		"bucket", cfg.Bucket,
		"region", cfg.Region)

	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: baseURL,
		logger:  logger.With("component", "s3_store"),
	}, nil
}

// Put uploads the bytes under the given key and returns the public URL.
func (s *Store) Put(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		s.logger.Error("failed to upload object",
			"key", key,
			"error", err)
		return "", fmt.Errorf("failed to upload object %q: %w", key, err)
	}

	return s.URL(key), nil
}

// Get downloads the object stored under the given key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("failed to download object",
			"key", key,
			"error", err)
		return nil, fmt.Errorf("failed to download object %q: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body for %q: %w", key, err)
	}

	return data, nil
}

// URL returns the public virtual-host URL for a key.
func (s *Store) URL(key string) string {
	return s.baseURL + "/" + strings.TrimPrefix(key, "/")
}

// KeyFromURL recovers the storage key from a public URL. Both virtual-host
// URLs (bucket in the host) and path-style URLs (bucket as the first path
// segment) are handled.
func (s *Store) KeyFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid storage URL %q: %w", rawURL, err)
	}

	key := strings.TrimPrefix(parsed.Path, "/")
	key = strings.TrimPrefix(key, s.bucket+"/")

	if key == "" {
		return "", fmt.Errorf("storage URL %q contains no key", rawURL)
	}

	return key, nil
}
