package minio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/msomdec/field-review/internal/domain"
)

type fakeAPI struct {
	objects map[string][]byte
	statErr error
	failKey string
	puts    int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{objects: make(map[string][]byte)}
}

func (f *fakeAPI) StatObject(_ context.Context, bucket, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if f.statErr != nil {
		return minio.ObjectInfo{}, f.statErr
	}
	if _, ok := f.objects[bucket+"/"+key]; ok {
		return minio.ObjectInfo{Key: key}, nil
	}
	return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
}

func (f *fakeAPI) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.puts++
	f.objects[bucket+"/"+key] = data
	return minio.UploadInfo{Bucket: bucket, Key: key}, nil
}

func (f *fakeAPI) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return nil, errors.New("not supported")
}

func (f *fakeAPI) RemoveObjects(_ context.Context, bucket string, objects <-chan minio.ObjectInfo, _ minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError {
	errs := make(chan minio.RemoveObjectError, 8)
	go func() {
		defer close(errs)
		for o := range objects {
			if o.Key == f.failKey {
				errs <- minio.RemoveObjectError{ObjectName: o.Key, Err: errors.New("access denied")}
				continue
			}
			delete(f.objects, bucket+"/"+o.Key)
		}
	}()
	return errs
}

func TestUpload_NeverOverwrites(t *testing.T) {
	api := newFakeAPI()
	s := &Store{client: api, baseURL: "http://localhost:9000"}
	ctx := context.Background()

	if err := s.Upload(ctx, "review-images", "reviews/1/a.jpg", []byte("one"), "image/jpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	err := s.Upload(ctx, "review-images", "reviews/1/a.jpg", []byte("two"), "image/jpeg")
	if !errors.Is(err, domain.ErrObjectExists) {
		t.Fatalf("expected ErrObjectExists, got %v", err)
	}
	if got := string(api.objects["review-images/reviews/1/a.jpg"]); got != "one" {
		t.Fatalf("object overwritten: %q", got)
	}
	if api.puts != 1 {
		t.Fatalf("expected 1 put, got %d", api.puts)
	}
}

func TestUpload_StatFailureSkipsPut(t *testing.T) {
	api := newFakeAPI()
	api.statErr = minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}
	s := &Store{client: api, baseURL: "http://localhost:9000"}

	if err := s.Upload(context.Background(), "b", "k", []byte("x"), "image/png"); err == nil {
		t.Fatal("expected error")
	}
	if api.puts != 0 {
		t.Fatalf("expected no put, got %d", api.puts)
	}
}

func TestRemove_ReportsFailures(t *testing.T) {
	api := newFakeAPI()
	api.objects["b/k1"] = []byte("1")
	api.objects["b/k2"] = []byte("2")
	api.failKey = "k2"
	s := &Store{client: api, baseURL: "http://localhost:9000"}

	err := s.Remove(context.Background(), "b", []string{"k1", "k2"})
	if err == nil || !strings.Contains(err.Error(), "k2") {
		t.Fatalf("expected failure naming k2, got %v", err)
	}
	if _, ok := api.objects["b/k1"]; ok {
		t.Fatal("k1 should be removed")
	}
}

func TestRemove_Empty(t *testing.T) {
	s := &Store{client: newFakeAPI()}
	if err := s.Remove(context.Background(), "b", nil); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}

func TestPublicURL(t *testing.T) {
	s := &Store{baseURL: "https://cdn.example.org"}
	got := s.PublicURL("review-images", "reviews/7/a b.jpg")
	want := "https://cdn.example.org/review-images/reviews/7/a%20b.jpg"
	if got != want {
		t.Fatalf("PublicURL = %q, want %q", got, want)
	}
}
