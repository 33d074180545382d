package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/field-review/internal/domain"
)

// UploadItem is one prepared image in a batch, in submission order.
type UploadItem struct {
	Filename    string
	ContentType string
	Data        []byte
	Caption     string
	Width       int
	Height      int
}

// Progress counts how far a batch got.
type Progress struct {
	Succeeded int
	Total     int
}

// IngestService writes image batches to object storage and links each
// stored object to its review.
type IngestService struct {
	store   domain.ObjectStore
	backend domain.ImageBackend
	bucket  string
	newKey  func(reviewID int64, ext string) string
}

// NewIngestService creates an IngestService writing to bucket.
func NewIngestService(store domain.ObjectStore, backend domain.ImageBackend, bucket string) *IngestService {
	return &IngestService{store: store, backend: backend, bucket: bucket, newKey: storageKey}
}

// UploadBatch processes items strictly one after another. Each item is
// uploaded, then linked; if linking fails the object is removed again and the
// batch stops. Items linked before the failure stay persisted.
func (s *IngestService) UploadBatch(ctx context.Context, reviewID int64, items []UploadItem) (Progress, error) {
	progress := Progress{Total: len(items)}

	if reviewID <= 0 {
		return progress, fmt.Errorf("%w: review id is required", domain.ErrInvalidInput)
	}
	if len(items) == 0 {
		return progress, fmt.Errorf("%w: no files to upload", domain.ErrInvalidInput)
	}
	for _, it := range items {
		if it.Width <= 0 || it.Height <= 0 {
			return progress, fmt.Errorf("%w: %s has no dimensions", domain.ErrInvalidInput, it.Filename)
		}
		if !isImageType(it.ContentType) {
			return progress, fmt.Errorf("%w: %s is not an image", domain.ErrInvalidInput, it.Filename)
		}
	}

	for i, it := range items {
		if !isImageType(it.ContentType) {
			return progress, fmt.Errorf("%w: %s is not an image", domain.ErrInvalidInput, it.Filename)
		}

		ext := extensionFor(it.Filename, it.ContentType)
		key := s.newKey(reviewID, ext)

		if err := s.store.Upload(ctx, s.bucket, key, it.Data, it.ContentType); err != nil {
			return progress, fmt.Errorf("upload %s: %w", it.Filename, err)
		}

		_, err := s.backend.CreateFileAndReviewImage(ctx, domain.CreateImageParams{
			Bucket:       s.bucket,
			Path:         key,
			Size:         int64(len(it.Data)),
			MimeType:     it.ContentType,
			OriginalName: it.Filename,
			Ext:          ext,
			ReviewID:     reviewID,
			Caption:      it.Caption,
			Width:        it.Width,
			Height:       it.Height,
			SortOrder:    i,
		})
		if err != nil {
			rmCtx, cancel := cleanupContext(ctx)
			rmErr := s.store.Remove(rmCtx, s.bucket, []string{key})
			cancel()
			if rmErr != nil {
				slog.Error("remove orphaned object", "bucket", s.bucket, "path", key, "error", rmErr)
			}
			return progress, &LinkError{Err: err}
		}

		progress.Succeeded++
	}

	slog.Info("image batch uploaded", "review_id", reviewID, "count", progress.Succeeded)
	return progress, nil
}

// LinkError reports that an object was stored but could not be linked to its
// review. The object has already been removed on a best-effort basis.
type LinkError struct {
	Err error
}

func (e *LinkError) Error() string { return "DB insert failed: " + e.Err.Error() }

func (e *LinkError) Unwrap() error { return e.Err }

// UploadMessage is the user-facing summary of a successful batch.
func UploadMessage(n int) string {
	if n == 1 {
		return "1 image uploaded"
	}
	return fmt.Sprintf("%d images uploaded", n)
}

// IsLinkError reports whether err came from the link step.
func IsLinkError(err error) bool {
	var le *LinkError
	return errors.As(err, &le)
}

// cleanupTimeout bounds storage cleanup that must outlive the request.
const cleanupTimeout = 30 * time.Second

// cleanupContext detaches from the caller's cancellation so an object is
// still removed after the client goes away.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

func storageKey(reviewID int64, ext string) string {
	return fmt.Sprintf("reviews/%d/%s.%s", reviewID, uuid.NewString(), ext)
}

var mimeExtensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/avif":    "avif",
	"image/heic":    "heic",
	"image/svg+xml": "svg",
	"image/tiff":    "tiff",
	"image/bmp":     "bmp",
}

// extensionFor takes the extension from the filename, else from the MIME
// type, else "bin".
func extensionFor(filename, contentType string) string {
	if ext := strings.TrimPrefix(path.Ext(filename), "."); ext != "" && isAlnum(ext) {
		return strings.ToLower(ext)
	}
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ext, ok := mimeExtensions[mt]; ok {
		return ext
	}
	if sub, ok := strings.CutPrefix(mt, "image/"); ok && sub != "" && isAlnum(sub) {
		return sub
	}
	return "bin"
}

func isImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
