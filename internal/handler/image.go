package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/service"
)

const (
	maxUploadBytes  = 200 << 20
	maxUploadMemory = 32 << 20
	// Delete forms only carry ids.
	maxDeleteBytes = 1 << 20
)

// ImageHandler serves the upload and delete form actions.
type ImageHandler struct {
	ingest   *service.IngestService
	deletion *service.DeletionService
}

func NewImageHandler(ingest *service.IngestService, deletion *service.DeletionService) *ImageHandler {
	return &ImageHandler{ingest: ingest, deletion: deletion}
}

// HandleUpload stores a batch of already-prepared images for a review.
// files, captions, widths and heights are index-aligned.
// POST /reviews/{id}/images
func (h *ImageHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Upload is too large or not a multipart form.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	reviewID, err := uploadReviewID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := uploadItems(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	progress, err := h.ingest.UploadBatch(r.Context(), reviewID, items)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		slog.Error("upload review images", "review_id", reviewID,
			"succeeded", progress.Succeeded, "total", progress.Total, "error", err)
		writeError(w, status, err.Error())
		return
	}

	finishAction(w, r, service.UploadMessage(progress.Succeeded))
}

// HandleDelete removes images by id. Ids are read from ids_json, repeated
// image_ids and image_id, in that order, and merged.
// POST /images/delete
func (h *ImageHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDeleteBytes)
	if err := r.ParseMultipartForm(maxDeleteBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, "Invalid form.")
		return
	}

	ids := imageIDs(r)
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "No images selected.")
		return
	}

	res, err := h.deletion.Delete(r.Context(), ids)
	if err != nil {
		slog.Error("delete review images", "ids", ids, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	finishAction(w, r, res.Message())
}

// uploadReviewID takes the review from the path, and rejects a form
// review_id that disagrees with it.
func uploadReviewID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid review id")
	}
	if v := strings.TrimSpace(r.FormValue("review_id")); v != "" {
		formID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || formID != id {
			return 0, errors.New("review_id does not match the review")
		}
	}
	return id, nil
}

func uploadItems(form *multipart.Form) ([]service.UploadItem, error) {
	files := form.File["files"]
	if len(files) == 0 {
		return nil, errors.New("no files provided")
	}
	captions := form.Value["captions"]
	widths := form.Value["widths"]
	heights := form.Value["heights"]

	if len(widths) != len(files) || len(heights) != len(files) {
		return nil, fmt.Errorf("expected %d widths and heights, got %d and %d", len(files), len(widths), len(heights))
	}
	if len(captions) != 0 && len(captions) != len(files) {
		return nil, fmt.Errorf("expected %d captions, got %d", len(files), len(captions))
	}

	items := make([]service.UploadItem, len(files))
	for i, fh := range files {
		width, err := strconv.Atoi(strings.TrimSpace(widths[i]))
		if err != nil {
			return nil, fmt.Errorf("invalid width for %s", fh.Filename)
		}
		height, err := strconv.Atoi(strings.TrimSpace(heights[i]))
		if err != nil {
			return nil, fmt.Errorf("invalid height for %s", fh.Filename)
		}

		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("could not read %s", fh.Filename)
		}

		item := service.UploadItem{
			Filename:    fh.Filename,
			ContentType: partContentType(fh, data),
			Data:        data,
			Width:       width,
			Height:      height,
		}
		if len(captions) > 0 {
			item.Caption = strings.TrimSpace(captions[i])
		}
		items[i] = item
	}
	return items, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// partContentType trusts the part's declared type unless it is missing or
// generic, in which case the bytes are sniffed.
func partContentType(fh *multipart.FileHeader, data []byte) string {
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		return http.DetectContentType(data)
	}
	return ct
}

// imageIDs unions every id source into unique positive ids, keeping first
// occurrence order. A malformed ids_json is logged and skipped.
func imageIDs(r *http.Request) []int64 {
	var ids []int64
	seen := make(map[int64]struct{})
	add := func(id int64) {
		if id <= 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if raw := strings.TrimSpace(r.FormValue("ids_json")); raw != "" {
		var parsed []json.Number
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&parsed); err != nil {
			slog.Warn("ignoring malformed ids_json", "value", raw, "error", err)
		} else {
			for _, n := range parsed {
				if id, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
					add(id)
				}
			}
		}
	}

	for _, key := range []string{"image_ids", "image_id"} {
		for _, v := range r.Form[key] {
			if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				add(id)
			}
		}
	}
	return ids
}
