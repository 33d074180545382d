package service_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	"github.com/msomdec/field-review/internal/domain"
)

// fakeStore is an in-memory domain.ObjectStore.
type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	removeErr map[string]error
	removes   []removeCall
}

type removeCall struct {
	Bucket string
	Keys   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte), removeErr: make(map[string]error)}
}

func (f *fakeStore) Upload(_ context.Context, bucket, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	if _, ok := f.objects[bucket+"/"+key]; ok {
		return domain.ErrObjectExists
	}
	f.objects[bucket+"/"+key] = data
	return nil
}

func (f *fakeStore) Remove(ctx context.Context, bucket string, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, removeCall{Bucket: bucket, Keys: append([]string(nil), keys...)})
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.removeErr[bucket]; err != nil {
		return err
	}
	for _, k := range keys {
		delete(f.objects, bucket+"/"+k)
	}
	return nil
}

func (f *fakeStore) PublicURL(bucket, key string) string {
	return "https://cdn.test/" + bucket + "/" + key
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakeBackend records link calls and can fail on the Nth one.
type fakeBackend struct {
	mu        sync.Mutex
	created   []domain.CreateImageParams
	failOn    int // 1-based call number; 0 never fails
	failErr   error
	calls     int
	deleted   []domain.DeletedImage
	deleteErr error
	deleteIDs []int64
	listed    []domain.ImageRecord
	// beforeReturn runs inside each backend call, before it answers.
	beforeReturn func()
}

func (f *fakeBackend) CreateFileAndReviewImage(_ context.Context, p domain.CreateImageParams) (*domain.ImageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.beforeReturn != nil {
		f.beforeReturn()
	}
	if f.calls == f.failOn {
		err := f.failErr
		if err == nil {
			err = errors.New("insert rejected")
		}
		return nil, err
	}
	f.created = append(f.created, p)
	return &domain.ImageRecord{ID: int64(len(f.created)), ReviewID: p.ReviewID, Bucket: p.Bucket, Path: p.Path}, nil
}

func (f *fakeBackend) DeleteReviewImagesAndFiles(_ context.Context, ids []int64) ([]domain.DeletedImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteIDs = append(f.deleteIDs, ids...)
	if f.beforeReturn != nil {
		f.beforeReturn()
	}
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return f.deleted, nil
}

func (f *fakeBackend) ListByReview(context.Context, int64) ([]domain.ImageRecord, error) {
	return f.listed, nil
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return img
}

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
