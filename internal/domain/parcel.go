package domain

import "context"

// Parcel is an assessed property.
type Parcel struct {
	ID           int64
	ParcelNumber string
	Address      string
}

type ParcelRepository interface {
	Create(ctx context.Context, parcel *Parcel) error
	// FindByNumbers returns the parcels whose numbers appear in numbers.
	// Unknown numbers are simply absent from the result.
	FindByNumbers(ctx context.Context, numbers []string) ([]Parcel, error)
}
