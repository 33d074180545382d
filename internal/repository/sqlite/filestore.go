package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/msomdec/field-review/internal/domain"
)

// ObjectStore implements domain.ObjectStore and domain.ObjectReader using
// SQLite BLOBs keyed by (bucket, key). Objects are served by the app itself
// under /storage/.
type ObjectStore struct {
	db      *sql.DB
	baseURL string
}

func (s *ObjectStore) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO object_blobs (bucket_name, object_key, content_type, data) VALUES (?, ?, ?, ?)",
		bucket, key, contentType, data,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s/%s", domain.ErrObjectExists, bucket, key)
		}
		return fmt.Errorf("save object blob: %w", err)
	}
	return nil
}

func (s *ObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, string, error) {
	var data []byte
	var contentType string
	err := s.db.QueryRowContext(ctx,
		"SELECT data, content_type FROM object_blobs WHERE bucket_name = ? AND object_key = ?", bucket, key,
	).Scan(&data, &contentType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", fmt.Errorf("get object blob: %w", err)
	}
	return data, contentType, nil
}

// Remove deletes the given keys. Missing keys are not an error.
func (s *ObjectStore) Remove(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, 0, len(keys)+1)
	args = append(args, bucket)
	for _, k := range keys {
		args = append(args, k)
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM object_blobs WHERE bucket_name = ? AND object_key IN ("+placeholders(len(keys))+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("delete object blobs: %w", err)
	}
	return nil
}

func (s *ObjectStore) PublicURL(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/storage/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
