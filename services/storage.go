package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"ethics-submission-api/config"

	"github.com/minio/minio-go/v7"
)

// ErrObjectExists is returned when an upload would overwrite an existing
// object. Generated document paths carry a timestamp, so a collision means
// something went wrong upstream.
var ErrObjectExists = errors.New("object already exists at path")

// BlobStore is the object storage surface the workflows depend on. Uploads
// never overwrite; removal of stale blobs is best-effort at the call sites.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	PublicURL(key string) string
}

// MinioStore implements BlobStore against the shared minio client.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	if client == nil {
		client = config.Storage
	}
	if bucket == "" {
		bucket = config.StorageBucket
	}
	return &MinioStore{client: client, bucket: bucket}
}

func (s *MinioStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	// Overwrites are an error, not a silent replace.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil {
		return fmt.Errorf("%w: %s", ErrObjectExists, key)
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (s *MinioStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", key, err)
	}
	return u.String(), nil
}

func (s *MinioStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, strings.TrimPrefix(key, "/"))
}
