// Package gcs stores review images in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/msomdec/field-review/internal/domain"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultBaseURL = "https://storage.googleapis.com"

// Store implements domain.ObjectStore on GCS.
type Store struct {
	client  *storage.Client
	baseURL string
}

// New creates a client using application default credentials, or the
// given credentials file when set.
func New(ctx context.Context, credentialsFile, publicBaseURL string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return NewWithClient(client, publicBaseURL), nil
}

func NewWithClient(client *storage.Client, publicBaseURL string) *Store {
	if publicBaseURL == "" {
		publicBaseURL = defaultBaseURL
	}
	return &Store{client: client, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Upload writes data with a DoesNotExist precondition, so an existing key is
// reported as domain.ErrObjectExists instead of being replaced.
func (s *Store) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	oh := s.client.Bucket(bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	w := oh.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return classify(bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return classify(bucket, key, err)
	}
	return nil
}

// Remove deletes each key. Missing objects count as removed.
func (s *Store) Remove(ctx context.Context, bucket string, keys []string) error {
	bh := s.client.Bucket(bucket)
	var errs []error
	for _, k := range keys {
		if err := bh.Object(k).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			slog.Warn("remove object", "bucket", bucket, "key", k, "error", err)
			errs = append(errs, fmt.Errorf("remove %s/%s: %w", bucket, k, err))
		}
	}
	return errors.Join(errs...)
}

// Get reads an object back.
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, string, error) {
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	return data, r.Attrs.ContentType, nil
}

func (s *Store) PublicURL(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + url.PathEscape(bucket) + "/" + strings.Join(parts, "/")
}

func (s *Store) Close() error { return s.client.Close() }

func classify(bucket, key string, err error) error {
	if isPreconditionFailed(err) {
		return fmt.Errorf("upload %s/%s: %w", bucket, key, domain.ErrObjectExists)
	}
	return fmt.Errorf("upload %s/%s: %w", bucket, key, err)
}

// isPreconditionFailed reports a 412, which is how GCS rejects a
// DoesNotExist write over an existing object.
func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusPreconditionFailed
	}
	return false
}
