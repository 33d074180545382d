package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/msomdec/field-review/internal/domain"
)

// DeleteResult tallies a bulk delete.
type DeleteResult struct {
	DeletedImages   int
	DeletedFiles    int
	StorageAttempts int
	StorageRemoved  int
}

// Message is the user-facing summary of the delete.
func (r DeleteResult) Message() string {
	return fmt.Sprintf("Deleted %d %s and %d %s; removed %d/%d storage objects",
		r.DeletedImages, plural(r.DeletedImages, "image", "images"),
		r.DeletedFiles, plural(r.DeletedFiles, "file", "files"),
		r.StorageRemoved, r.StorageAttempts)
}

// DeletionService removes review images through the backend and then
// cleans up whatever storage objects the backend released.
type DeletionService struct {
	backend domain.ImageBackend
	store   domain.ObjectStore
}

func NewDeletionService(backend domain.ImageBackend, store domain.ObjectStore) *DeletionService {
	return &DeletionService{backend: backend, store: store}
}

// Delete removes the given images. The backend delete is authoritative:
// if it fails nothing is removed from storage, and storage failures after
// it succeeds are logged and counted but never returned.
func (s *DeletionService) Delete(ctx context.Context, imageIDs []int64) (DeleteResult, error) {
	var res DeleteResult
	if len(imageIDs) == 0 {
		return res, fmt.Errorf("%w: no image ids", domain.ErrInvalidInput)
	}
	for _, id := range imageIDs {
		if id <= 0 {
			return res, fmt.Errorf("%w: image id %d", domain.ErrInvalidInput, id)
		}
	}

	deleted, err := s.backend.DeleteReviewImagesAndFiles(ctx, imageIDs)
	if err != nil {
		return res, fmt.Errorf("delete images: %w", err)
	}

	res.DeletedImages = len(deleted)
	files := make(map[int64]struct{})
	byBucket := make(map[string][]string)
	seen := make(map[string]map[string]struct{})
	for _, d := range deleted {
		if d.FileID != 0 {
			files[d.FileID] = struct{}{}
		}
		if d.Bucket == "" || d.Path == "" {
			continue
		}
		if seen[d.Bucket] == nil {
			seen[d.Bucket] = make(map[string]struct{})
		}
		if _, dup := seen[d.Bucket][d.Path]; dup {
			continue
		}
		seen[d.Bucket][d.Path] = struct{}{}
		byBucket[d.Bucket] = append(byBucket[d.Bucket], d.Path)
	}
	res.DeletedFiles = len(files)

	buckets := make([]string, 0, len(byBucket))
	for b := range byBucket {
		buckets = append(buckets, b)
	}
	slices.Sort(buckets)

	for _, bucket := range buckets {
		paths := byBucket[bucket]
		res.StorageAttempts += len(paths)
		rmCtx, cancel := cleanupContext(ctx)
		err := s.store.Remove(rmCtx, bucket, paths)
		cancel()
		if err != nil {
			slog.Error("remove storage objects", "bucket", bucket, "paths", paths, "error", err)
			continue
		}
		res.StorageRemoved += len(paths)
	}

	slog.Info("review images deleted",
		"images", res.DeletedImages,
		"files", res.DeletedFiles,
		"storage_removed", res.StorageRemoved,
		"storage_attempted", res.StorageAttempts,
	)
	return res, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
