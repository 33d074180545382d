package domain

import (
	"context"
	"time"
)

type ReviewStatus string

const (
	ReviewStatusOpen       ReviewStatus = "open"
	ReviewStatusInProgress ReviewStatus = "in_progress"
	ReviewStatusComplete   ReviewStatus = "complete"
)

// Review is a field inspection task on a parcel. It owns images.
type Review struct {
	ID        int64
	ParcelID  int64
	Title     string
	Status    ReviewStatus
	CreatedAt time.Time
}

// ReviewFilter narrows a review listing.
type ReviewFilter struct {
	Status ReviewStatus
	Query  string
	Limit  int
	Offset int
}

type ReviewRepository interface {
	Create(ctx context.Context, review *Review) error
	GetByID(ctx context.Context, id int64) (*Review, error)
	List(ctx context.Context, filter ReviewFilter) ([]Review, error)
	Count(ctx context.Context, filter ReviewFilter) (int, error)
}
