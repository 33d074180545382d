package handler_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/handler"
	"github.com/msomdec/field-review/internal/repository/sqlite"
	"github.com/msomdec/field-review/internal/service"
)

const (
	testJWTSecret = "test-secret-for-handler-tests-0123456789"
	testBucket    = "review-images"
)

type testEnv struct {
	db    *sqlite.DB
	auth  *service.AuthService
	mux   *http.ServeMux
	token string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := db.ObjectStore("http://localhost:8080")
	auth := service.NewAuthService(testJWTSecret)
	ingest := service.NewIngestService(store, db.Images(), testBucket)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Services{
		DB:       db,
		Auth:     auth,
		Ingest:   ingest,
		Deletion: service.NewDeletionService(db.Images(), store),
		Gallery:  service.NewGalleryService(db.Images(), store, db.Reviews()),
		Staging:  service.NewStagingService(t.Context(), ingest, 1600, 85),
		Parcels:  service.NewParcelService(db.Parcels()),
		Blobs:    store,
	})

	token, err := auth.IssueToken(domain.Staff{ID: "staff-1", Email: "pat@county.gov", DisplayName: "Pat"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return &testEnv{db: db, auth: auth, mux: mux, token: token}
}

func (e *testEnv) seedReview(t *testing.T, title string) int64 {
	t.Helper()
	r := &domain.Review{Title: title}
	if err := e.db.Reviews().Create(context.Background(), r); err != nil {
		t.Fatalf("create review: %v", err)
	}
	return r.ID
}

func (e *testEnv) authorize(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: e.token})
	return req
}

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 5), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// multipartBody builds a multipart form with repeated values and files.
func multipartBody(t *testing.T, values map[string][]string, files []formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range values {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				t.Fatalf("write field: %v", err)
			}
		}
	}
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		hdr.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		part.Write(f.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}
