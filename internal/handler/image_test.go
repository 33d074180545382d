package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/msomdec/field-review/internal/handler"
)

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) handler.ActionResult {
	t.Helper()
	var res handler.ActionResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode action result: %v", err)
	}
	return res
}

func (e *testEnv) upload(t *testing.T, reviewID int64, values map[string][]string, files []formFile, accept string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, values, files)
	req := httptest.NewRequest(http.MethodPost, "/reviews/"+strconv.FormatInt(reviewID, 10)+"/images", body)
	req.Header.Set("Content-Type", ct)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, e.authorize(req))
	return w
}

func twoFiles(t *testing.T) []formFile {
	return []formFile{
		{field: "files", filename: "north.png", contentType: "image/png", data: makePNG(t, 40, 30)},
		{field: "files", filename: "south.png", contentType: "image/png", data: makePNG(t, 40, 30)},
	}
}

func TestUpload_JSONSuccess(t *testing.T) {
	env := newTestEnv(t)
	reviewID := env.seedReview(t, "Deck")

	w := env.upload(t, reviewID, map[string][]string{
		"review_id": {strconv.FormatInt(reviewID, 10)},
		"captions":  {"north side", "south side"},
		"widths":    {"40", "40"},
		"heights":   {"30", "30"},
	}, twoFiles(t), "application/json")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if res := decodeResult(t, w); res.Success != "2 images uploaded" || res.Error != "" {
		t.Fatalf("unexpected result %+v", res)
	}

	images, err := env.db.Images().ListByReview(context.Background(), reviewID)
	if err != nil {
		t.Fatalf("ListByReview: %v", err)
	}
	if len(images) != 2 || images[0].Caption != "north side" || images[1].SortOrder != 1 {
		t.Fatalf("unexpected images %+v", images)
	}
}

func TestUpload_RedirectsToRevalidatePath(t *testing.T) {
	env := newTestEnv(t)
	reviewID := env.seedReview(t, "Deck")
	path := "/reviews/" + strconv.FormatInt(reviewID, 10)

	w := env.upload(t, reviewID, map[string][]string{
		"widths":          {"40", "40"},
		"heights":         {"30", "30"},
		"revalidate_path": {path},
	}, twoFiles(t), "")

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != path {
		t.Fatalf("expected redirect to %s, got %s", path, loc)
	}
}

func TestUpload_IgnoresOffsiteRevalidatePath(t *testing.T) {
	env := newTestEnv(t)
	reviewID := env.seedReview(t, "Deck")

	w := env.upload(t, reviewID, map[string][]string{
		"widths":          {"40", "40"},
		"heights":         {"30", "30"},
		"revalidate_path": {"//evil.example.com/"},
	}, twoFiles(t), "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected JSON 200, got %d", w.Code)
	}
}

func TestUpload_MisalignedArrays(t *testing.T) {
	env := newTestEnv(t)
	reviewID := env.seedReview(t, "Deck")

	w := env.upload(t, reviewID, map[string][]string{
		"widths":  {"40"},
		"heights": {"30", "30"},
	}, twoFiles(t), "application/json")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if res := decodeResult(t, w); !strings.Contains(res.Error, "widths and heights") {
		t.Fatalf("unexpected error %q", res.Error)
	}
}

func TestUpload_ReviewIDMismatch(t *testing.T) {
	env := newTestEnv(t)
	reviewID := env.seedReview(t, "Deck")

	w := env.upload(t, reviewID, map[string][]string{
		"review_id": {"12345"},
		"widths":    {"40", "40"},
		"heights":   {"30", "30"},
	}, twoFiles(t), "application/json")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpload_NonImageAbortsBatch(t *testing.T) {
	env := newTestEnv(t)
	reviewID := env.seedReview(t, "Deck")

	files := twoFiles(t)
	files[1] = formFile{field: "files", filename: "notes.txt", contentType: "text/plain", data: []byte("hello")}
	w := env.upload(t, reviewID, map[string][]string{
		"widths":  {"40", "1"},
		"heights": {"30", "1"},
	}, files, "application/json")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if res := decodeResult(t, w); !strings.Contains(res.Error, "notes.txt") {
		t.Fatalf("error should name the file, got %q", res.Error)
	}
	images, _ := env.db.Images().ListByReview(context.Background(), reviewID)
	if len(images) != 0 {
		t.Fatalf("nothing should be stored, got %d", len(images))
	}
}

func TestUpload_UnknownReviewReportsInsertFailure(t *testing.T) {
	env := newTestEnv(t)

	w := env.upload(t, 4242, map[string][]string{
		"widths":  {"40", "40"},
		"heights": {"30", "30"},
	}, twoFiles(t), "application/json")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if res := decodeResult(t, w); !strings.HasPrefix(res.Error, "DB insert failed: ") {
		t.Fatalf("unexpected error %q", res.Error)
	}

	var blobs int
	if err := env.db.SqlDB.QueryRow("SELECT COUNT(*) FROM object_blobs").Scan(&blobs); err != nil {
		t.Fatalf("count blobs: %v", err)
	}
	if blobs != 0 {
		t.Fatalf("expected compensating delete, %d blobs remain", blobs)
	}
}

func TestDelete_UnionsIDSources(t *testing.T) {
	env := newTestEnv(t)
	reviewID := env.seedReview(t, "Deck")

	files := append(twoFiles(t), formFile{field: "files", filename: "east.png", contentType: "image/png", data: makePNG(t, 40, 30)})
	w := env.upload(t, reviewID, map[string][]string{
		"widths":  {"40", "40", "40"},
		"heights": {"30", "30", "30"},
	}, files, "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	images, _ := env.db.Images().ListByReview(context.Background(), reviewID)
	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(images))
	}
	a, b, c := images[0].ID, images[1].ID, images[2].ID

	form := url.Values{
		"ids_json":  {"[" + strconv.FormatInt(a, 10) + ", \"" + strconv.FormatInt(b, 10) + "\"]"},
		"image_ids": {strconv.FormatInt(b, 10), "0", "nope"},
		"image_id":  {strconv.FormatInt(c, 10)},
	}
	req := httptest.NewRequest(http.MethodPost, "/images/delete", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	w = httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authorize(req))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decodeResult(t, w)
	if res.Success != "Deleted 3 images and 3 files; removed 3/3 storage objects" {
		t.Fatalf("unexpected result %+v", res)
	}
	images, _ = env.db.Images().ListByReview(context.Background(), reviewID)
	if len(images) != 0 {
		t.Fatalf("expected all images deleted, got %d", len(images))
	}
}

func TestDelete_MalformedJSONIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	reviewID := env.seedReview(t, "Deck")
	env.upload(t, reviewID, map[string][]string{
		"widths":  {"40", "40"},
		"heights": {"30", "30"},
	}, twoFiles(t), "application/json")
	images, _ := env.db.Images().ListByReview(context.Background(), reviewID)

	form := url.Values{
		"ids_json": {"[1, 2"},
		"image_id": {strconv.FormatInt(images[0].ID, 10)},
	}
	req := httptest.NewRequest(http.MethodPost, "/images/delete", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authorize(req))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if res := decodeResult(t, w); !strings.HasPrefix(res.Success, "Deleted 1 image ") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDelete_NoIDs(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/images/delete", strings.NewReader("ids_json=%5B%5D"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authorize(req))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestStorage_ServesUploadedBlob(t *testing.T) {
	env := newTestEnv(t)
	reviewID := env.seedReview(t, "Deck")
	env.upload(t, reviewID, map[string][]string{
		"widths":  {"40", "40"},
		"heights": {"30", "30"},
	}, twoFiles(t), "application/json")

	req := env.authorize(httptest.NewRequest(http.MethodGet, "/api/reviews/"+strconv.FormatInt(reviewID, 10)+"/images", nil))
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)
	var body struct {
		Images []handler.ImageDTO `json:"images"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode images: %v", err)
	}
	if len(body.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(body.Images))
	}

	u, err := url.Parse(body.Images[0].URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	w = httptest.NewRecorder()
	env.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, u.Path, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %s", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "\x89PNG") {
		t.Fatal("expected PNG bytes")
	}
}

func TestDelete_OversizedBodyRejected(t *testing.T) {
	env := newTestEnv(t)
	reviewID := env.seedReview(t, "Deck")
	env.upload(t, reviewID, map[string][]string{
		"widths":  {"40", "40"},
		"heights": {"30", "30"},
	}, twoFiles(t), "application/json")
	images, _ := env.db.Images().ListByReview(context.Background(), reviewID)
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}

	body := "image_id=" + strconv.FormatInt(images[0].ID, 10) + "&pad=" + strings.Repeat("x", 2<<20)
	req := httptest.NewRequest(http.MethodPost, "/images/delete", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authorize(req))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	left, _ := env.db.Images().ListByReview(context.Background(), reviewID)
	if len(left) != 2 {
		t.Fatalf("nothing should be deleted, %d images left", len(left))
	}
}
