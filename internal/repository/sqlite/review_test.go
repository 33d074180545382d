package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/msomdec/field-review/internal/domain"
)

func TestReviewRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	parcel := &domain.Parcel{ParcelNumber: "12-345-678", Address: "1 Main St"}
	if err := db.Parcels().Create(ctx, parcel); err != nil {
		t.Fatalf("Create parcel: %v", err)
	}

	rv := &domain.Review{ParcelID: parcel.ID, Title: "Deck permit"}
	if err := db.Reviews().Create(ctx, rv); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rv.Status != domain.ReviewStatusOpen {
		t.Fatalf("expected default status open, got %q", rv.Status)
	}

	got, err := db.Reviews().GetByID(ctx, rv.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ParcelID != parcel.ID || got.Title != "Deck permit" {
		t.Fatalf("unexpected review: %+v", got)
	}

	if _, err := db.Reviews().GetByID(ctx, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReviewRepository_ListFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	parcel := &domain.Parcel{ParcelNumber: "99-000-111"}
	if err := db.Parcels().Create(ctx, parcel); err != nil {
		t.Fatalf("Create parcel: %v", err)
	}
	for _, rv := range []*domain.Review{
		{Title: "Roof", Status: domain.ReviewStatusOpen},
		{Title: "Pool", Status: domain.ReviewStatusComplete},
		{Title: "Shed", Status: domain.ReviewStatusOpen, ParcelID: parcel.ID},
	} {
		if err := db.Reviews().Create(ctx, rv); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	open, err := db.Reviews().List(ctx, domain.ReviewFilter{Status: domain.ReviewStatusOpen})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open reviews, got %d", len(open))
	}

	byParcel, err := db.Reviews().List(ctx, domain.ReviewFilter{Query: "99-000"})
	if err != nil {
		t.Fatalf("List by parcel: %v", err)
	}
	if len(byParcel) != 1 || byParcel[0].Title != "Shed" {
		t.Fatalf("expected Shed, got %+v", byParcel)
	}

	page, err := db.Reviews().List(ctx, domain.ReviewFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List page: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 review on second page, got %d", len(page))
	}

	n, err := db.Reviews().Count(ctx, domain.ReviewFilter{Status: domain.ReviewStatusOpen})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected count 2, got %d", n)
	}
}

func TestParcelRepository_FindByNumbers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, n := range []string{"A-1", "A-2", "A-3"} {
		if err := db.Parcels().Create(ctx, &domain.Parcel{ParcelNumber: n}); err != nil {
			t.Fatalf("Create %s: %v", n, err)
		}
	}
	if err := db.Parcels().Create(ctx, &domain.Parcel{ParcelNumber: "A-1"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate parcel, got %v", err)
	}

	found, err := db.Parcels().FindByNumbers(ctx, []string{"A-1", "A-3", "Z-9"})
	if err != nil {
		t.Fatalf("FindByNumbers: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 parcels, got %+v", found)
	}

	none, err := db.Parcels().FindByNumbers(ctx, nil)
	if err != nil {
		t.Fatalf("FindByNumbers(nil): %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no parcels, got %d", len(none))
	}
}
