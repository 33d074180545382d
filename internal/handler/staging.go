package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/imageprep"
	"github.com/msomdec/field-review/internal/service"
	"github.com/msomdec/field-review/internal/view"
	"github.com/starfederation/datastar-go/datastar"
)

// StagingHandler drives the upload panel. Every mutating endpoint answers
// with SSE patches of the panel.
type StagingHandler struct {
	staging *service.StagingService
	gallery *service.GalleryService
}

func NewStagingHandler(staging *service.StagingService, gallery *service.GalleryService) *StagingHandler {
	return &StagingHandler{staging: staging, gallery: gallery}
}

// HandleOpen starts an upload session for a review.
// POST /reviews/{id}/staging
func (h *StagingHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	staff := StaffFromContext(r.Context())
	if staff == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	reviewID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if _, err := h.gallery.GetReview(r.Context(), reviewID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		slog.Error("get review", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess, err := h.staging.Open(staff.ID, reviewID)
	if err != nil {
		slog.Error("open staging session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	patchPanel(datastar.NewSSE(w, r), sess, view.StagingNotice{})
}

// HandleAddFiles stages the selected files. Files that are not images or
// cannot be decoded come back as warnings.
// POST /staging/{sid}/files
func (h *StagingHandler) HandleAddFiles(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "Upload is too large or not a multipart form.", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var files []imageprep.SourceFile
	for _, fh := range r.MultipartForm.File["files"] {
		data, err := readPart(fh)
		if err != nil {
			slog.Warn("read staged file", "filename", fh.Filename, "error", err)
			continue
		}
		files = append(files, imageprep.SourceFile{
			Filename:    fh.Filename,
			ContentType: partContentType(fh, data),
			Data:        data,
		})
	}

	warnings, err := sess.Add(files)
	notice := view.StagingNotice{Warnings: warnings}
	if err != nil {
		notice.Error = stagingMessage(err)
	}
	patchPanel(datastar.NewSSE(w, r), sess, notice)
}

// HandleUpdateItem changes a staged item's caption and/or target width.
// POST /staging/{sid}/items/{index}
func (h *StagingHandler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var err error
	if _, has := r.PostForm["caption"]; has {
		err = sess.SetCaption(index, strings.TrimSpace(r.PostFormValue("caption")))
	}
	if v := r.PostFormValue("target_width"); v != "" && err == nil {
		width, convErr := strconv.Atoi(v)
		if convErr != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		_, err = sess.SetTargetWidth(index, width)
	}

	var notice view.StagingNotice
	if err != nil {
		notice.Error = stagingMessage(err)
	}
	patchPanel(datastar.NewSSE(w, r), sess, notice)
}

// HandleMaxWidth changes the session-wide maximum width.
// POST /staging/{sid}/max-width
func (h *StagingHandler) HandleMaxWidth(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	width, err := strconv.Atoi(r.FormValue("max_width"))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var notice view.StagingNotice
	if err := sess.SetGlobalMaxWidth(width); err != nil {
		notice.Error = stagingMessage(err)
	}
	patchPanel(datastar.NewSSE(w, r), sess, notice)
}

// HandleRemove drops one staged item.
// POST /staging/{sid}/items/{index}/remove
func (h *StagingHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}

	var notice view.StagingNotice
	if err := sess.Remove(index); err != nil {
		notice.Error = stagingMessage(err)
	}
	patchPanel(datastar.NewSSE(w, r), sess, notice)
}

// HandlePreview serves the staged bytes of one item.
// GET /staging/{sid}/items/{index}/preview
func (h *StagingHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := itemIndex(w, r)
	if !ok {
		return
	}

	data, contentType, err := sess.Preview(index)
	if err != nil || data == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// HandleSubmit uploads the staged batch and refreshes the gallery.
// POST /staging/{sid}/submit
func (h *StagingHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	staff := StaffFromContext(r.Context())
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	progress, err := h.staging.Submit(r.Context(), staff.ID, sess.ID)
	sse := datastar.NewSSE(w, r)
	if err != nil {
		var notice view.StagingNotice
		if sess.State() != imageprep.StateFailed {
			notice.Error = stagingMessage(err)
		}
		patchPanel(sse, sess, notice)
		if progress.Succeeded == 0 {
			return
		}
		// Earlier items were stored before the failure; show them.
	} else {
		patchPanel(sse, sess, view.StagingNotice{Success: service.UploadMessage(progress.Succeeded)})
	}

	images, err := h.gallery.ListByReview(r.Context(), sess.ReviewID)
	if err != nil {
		slog.Error("list images after upload", "review_id", sess.ReviewID, "error", err)
		return
	}
	if err := sse.PatchElementTempl(
		view.Gallery(sess.ReviewID, images),
		datastar.WithSelectorID(view.GalleryID),
		datastar.WithModeInner(),
	); err != nil {
		slog.Error("patch gallery", "error", err)
	}
}

// HandleCancel discards the session.
// POST /staging/{sid}/cancel
func (h *StagingHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	staff := StaffFromContext(r.Context())
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var notice view.StagingNotice
	if err := h.staging.Cancel(staff.ID, sess.ID); err != nil {
		notice.Error = stagingMessage(err)
	} else {
		notice.Success = "Upload cancelled."
	}
	patchPanel(datastar.NewSSE(w, r), sess, notice)
}

func (h *StagingHandler) session(w http.ResponseWriter, r *http.Request) (*imageprep.Session, bool) {
	staff := StaffFromContext(r.Context())
	if staff == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	sess, err := h.staging.Get(staff.ID, r.PathValue("sid"))
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func itemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}

func patchPanel(sse *datastar.ServerSentEventGenerator, sess *imageprep.Session, notice view.StagingNotice) {
	if err := sse.PatchElementTempl(
		view.StagingPanel(sess.Snapshot(), notice),
		datastar.WithSelectorID(view.StagingPanelID),
		datastar.WithModeInner(),
	); err != nil {
		slog.Error("patch staging panel", "session", sess.ID, "error", err)
	}
}

func stagingMessage(err error) string {
	switch {
	case errors.Is(err, imageprep.ErrSubmitting):
		return "An upload is already in progress."
	case errors.Is(err, imageprep.ErrNoItem):
		return "That photo is no longer staged."
	case errors.Is(err, imageprep.ErrInvalidTransition):
		return "That action is not available right now."
	default:
		return err.Error()
	}
}

