package sqlite_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/msomdec/field-review/internal/domain"
)

func TestObjectStore_UploadGetRemove(t *testing.T) {
	store := newTestDB(t).ObjectStore("http://localhost:8080/")
	ctx := context.Background()

	data := []byte{0xff, 0xd8, 0xff}
	if err := store.Upload(ctx, "review-images", "reviews/1/a.jpg", data, "image/jpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	got, contentType, err := store.Get(ctx, "review-images", "reviews/1/a.jpg")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) || contentType != "image/jpeg" {
		t.Fatalf("unexpected object: %v %q", got, contentType)
	}

	if err := store.Remove(ctx, "review-images", []string{"reviews/1/a.jpg", "reviews/1/missing.jpg"}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, _, err := store.Get(ctx, "review-images", "reviews/1/a.jpg"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}

func TestObjectStore_UploadNeverOverwrites(t *testing.T) {
	store := newTestDB(t).ObjectStore("")
	ctx := context.Background()

	if err := store.Upload(ctx, "b", "k", []byte("first"), "image/png"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	err := store.Upload(ctx, "b", "k", []byte("second"), "image/png")
	if !errors.Is(err, domain.ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}

	got, _, err := store.Get(ctx, "b", "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "first" {
		t.Fatalf("object was overwritten: %q", got)
	}

	// Same key in another bucket is a different object.
	if err := store.Upload(ctx, "other", "k", []byte("x"), "image/png"); err != nil {
		t.Fatalf("Upload other bucket: %v", err)
	}
}

func TestObjectStore_PublicURL(t *testing.T) {
	store := newTestDB(t).ObjectStore("https://reviews.example.gov/")
	got := store.PublicURL("review-images", "reviews/12/a b.jpg")
	want := "https://reviews.example.gov/storage/review-images/reviews/12/a%20b.jpg"
	if got != want {
		t.Fatalf("PublicURL = %q, want %q", got, want)
	}
}
