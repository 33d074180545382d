package service

import (
	"context"
	"fmt"

	"github.com/msomdec/field-review/internal/domain"
)

// GalleryImage is an image record with a URL the browser can load.
type GalleryImage struct {
	domain.ImageRecord
	URL string
}

// GalleryService lists review images for display.
type GalleryService struct {
	backend domain.ImageBackend
	store   domain.ObjectStore
	reviews domain.ReviewRepository
}

func NewGalleryService(backend domain.ImageBackend, store domain.ObjectStore, reviews domain.ReviewRepository) *GalleryService {
	return &GalleryService{backend: backend, store: store, reviews: reviews}
}

// ListByReview returns the review's images ordered by sort order, newest
// first among equal sort orders.
func (s *GalleryService) ListByReview(ctx context.Context, reviewID int64) ([]GalleryImage, error) {
	records, err := s.backend.ListByReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list review images: %w", err)
	}
	images := make([]GalleryImage, len(records))
	for i, r := range records {
		images[i] = GalleryImage{ImageRecord: r, URL: s.store.PublicURL(r.Bucket, r.Path)}
	}
	return images, nil
}

// GetReview returns a single review.
func (s *GalleryService) GetReview(ctx context.Context, id int64) (*domain.Review, error) {
	return s.reviews.GetByID(ctx, id)
}

// ListReviews returns one page of reviews and the total matching count.
func (s *GalleryService) ListReviews(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, int, error) {
	reviews, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	total, err := s.reviews.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	return reviews, total, nil
}
