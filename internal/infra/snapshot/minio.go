package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/content-digest/internal/domain/digest"
)

// ObjectStore archives normalized sources in an S3 compatible bucket
// (MinIO, Cloudflare R2, AWS S3).
type ObjectStore struct {
	client *minio.Client
	bucket string
	region string
	logger *slog.Logger

	mu          sync.Mutex
	bucketReady bool
}

// Options configures the object store connection.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

// NewObjectStore constructs the storage adapter.
func NewObjectStore(opts Options, logger *slog.Logger) (*ObjectStore, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("snapshot bucket is required")
	}
	client, err := minio.New(sanitizeEndpoint(opts.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       useSSL(opts.Endpoint),
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage client: %w", err)
	}
	return &ObjectStore{client: client, bucket: opts.Bucket, region: opts.Region, logger: logger.With("component", "snapshot.objectstore")}, nil
}

// ensureBucket creates the bucket on first use. Failures are retried on the
// next call.
func (s *ObjectStore) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucketReady {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil || !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
		if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
			return err
		}
	}
	s.bucketReady = true
	return nil
}

// Put uploads data under key.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte, mimeType string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:      mimeType,
		DisableMultipart: len(data) < 5*1024*1024,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	s.logger.Debug("snapshot stored", "key", key, "size", info.Size)
	return nil
}

var _ digest.SnapshotStore = (*ObjectStore)(nil)

func useSSL(endpoint string) bool {
	return !strings.HasPrefix(strings.ToLower(strings.TrimSpace(endpoint)), "http://")
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if idx := strings.Index(raw, "/"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}
