// Package minio stores review images in an S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/msomdec/field-review/internal/domain"
)

// objectAPI is the subset of *minio.Client the store uses.
type objectAPI interface {
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObjects(ctx context.Context, bucket string, objects <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError
}

// Config holds connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicBaseURL overrides the endpoint when building object URLs,
	// e.g. when a CDN fronts the bucket.
	PublicBaseURL string
}

// Store implements domain.ObjectStore on MinIO or any S3-compatible service.
type Store struct {
	client  objectAPI
	baseURL string
}

// New connects to the configured endpoint.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		base = client.EndpointURL().String()
	}
	return &Store{client: client, baseURL: strings.TrimRight(base, "/")}, nil
}

// Upload writes data under key. S3 has no create-only put here, so the key is
// stat'ed first; random keys make the remaining race window irrelevant.
func (s *Store) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, key, domain.ErrObjectExists)
	}
	if !isNotFound(err) {
		return fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}

	_, err = s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Remove deletes keys in one batch request. Every per-object failure is
// logged; the first one is returned.
func (s *Store) Remove(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	var first error
	for rerr := range s.client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		slog.Warn("remove object", "bucket", bucket, "key", rerr.ObjectName, "error", rerr.Err)
		if first == nil {
			first = fmt.Errorf("remove %s/%s: %w", bucket, rerr.ObjectName, rerr.Err)
		}
	}
	return first
}

// Get reads an object back. Used by tests and the blob proxy.
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if isNotFound(err) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj); err != nil {
		return nil, "", fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	return buf.Bytes(), info.ContentType, nil
}

func (s *Store) PublicURL(bucket, key string) string {
	return s.baseURL + "/" + url.PathEscape(bucket) + "/" + escapeKey(key)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return true
	}
	var er minio.ErrorResponse
	return errors.As(err, &er) && er.Code == "NoSuchKey"
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
