package domain

import (
	"context"
	"time"
)

// ImageRecord links a stored object to a review along with display metadata.
// Its existence is the only signal that an object belongs to a review.
type ImageRecord struct {
	ID           int64
	ReviewID     int64
	FileID       int64
	Bucket       string
	Path         string
	Size         int64
	MimeType     string
	OriginalName string
	Ext          string
	Caption      string
	Width        int
	Height       int
	SortOrder    int
	CreatedAt    time.Time
}

// StoredObject addresses a blob in object storage.
type StoredObject struct {
	Bucket string
	Key    string
}

// CreateImageParams is the argument set for the create-file-and-link procedure.
type CreateImageParams struct {
	Bucket       string
	Path         string
	Size         int64
	MimeType     string
	OriginalName string
	Ext          string
	ReviewID     int64
	Caption      string
	Width        int
	Height       int
	SortOrder    int
}

// DeletedImage is one row returned by the bulk delete procedure. FileID,
// Bucket and Path are zero when the file row is still referenced by another
// image and was therefore kept.
type DeletedImage struct {
	ImageID int64
	FileID  int64
	Bucket  string
	Path    string
}

// ImageBackend is the transactional persistence boundary for review images.
// Implementations either run the hosted stored procedures or emulate them
// locally; callers never decide on their own whether a file is still in use.
type ImageBackend interface {
	CreateFileAndReviewImage(ctx context.Context, params CreateImageParams) (*ImageRecord, error)
	DeleteReviewImagesAndFiles(ctx context.Context, imageIDs []int64) ([]DeletedImage, error)
	ListByReview(ctx context.Context, reviewID int64) ([]ImageRecord, error)
}

// ObjectStore abstracts a bucketed blob store. Upload must never overwrite an
// existing key and returns ErrObjectExists on collision.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Remove(ctx context.Context, bucket string, keys []string) error
	PublicURL(bucket, key string) string
}

// ObjectReader is implemented by stores that can serve their own bytes.
type ObjectReader interface {
	Get(ctx context.Context, bucket, key string) ([]byte, string, error)
}
