package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/service"
	"github.com/msomdec/field-review/internal/view"
)

// ReviewHandler renders review lists and review pages.
type ReviewHandler struct {
	gallery *service.GalleryService
}

func NewReviewHandler(gallery *service.GalleryService) *ReviewHandler {
	return &ReviewHandler{gallery: gallery}
}

// HandleList renders the filtered review list.
// GET /reviews
func (h *ReviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := ParseReviewFilter(r.URL.Query())

	reviews, total, err := h.gallery.ListReviews(r.Context(), filter.domain())
	if err != nil {
		slog.Error("list reviews", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	pages := (total + filter.PageSize - 1) / filter.PageSize
	data := view.ReviewListData{
		Reviews: reviews,
		Total:   total,
		Status:  string(filter.Status),
		Query:   filter.Query,
		Page:    filter.Page,
		Pages:   pages,
	}
	if filter.Page > 1 {
		data.PrevURL = filter.WithPage(filter.Page - 1).URL("/reviews")
	}
	if filter.Page < pages {
		data.NextURL = filter.WithPage(filter.Page + 1).URL("/reviews")
	}

	page := view.Page("Reviews", StaffFromContext(r.Context()), view.ReviewList(data))
	if err := page.Render(r.Context(), w); err != nil {
		slog.Error("render review list", "error", err)
	}
}

// HandleView renders one review with its gallery.
// GET /reviews/{id}
func (h *ReviewHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	review, images, ok := h.load(w, r)
	if !ok {
		return
	}
	page := view.Page(review.Title, StaffFromContext(r.Context()), view.ReviewDetail(review, images))
	if err := page.Render(r.Context(), w); err != nil {
		slog.Error("render review", "error", err)
	}
}

// HandleImages returns the review's images as JSON.
// GET /api/reviews/{id}/images
func (h *ReviewHandler) HandleImages(w http.ResponseWriter, r *http.Request) {
	_, images, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": toImageDTOs(images)})
}

func (h *ReviewHandler) load(w http.ResponseWriter, r *http.Request) (*domain.Review, []service.GalleryImage, bool) {
	reviewID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || reviewID <= 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return nil, nil, false
	}

	review, err := h.gallery.GetReview(r.Context(), reviewID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return nil, nil, false
		}
		slog.Error("get review", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil, false
	}

	images, err := h.gallery.ListByReview(r.Context(), reviewID)
	if err != nil {
		slog.Error("list review images", "review_id", reviewID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil, false
	}
	return review, images, true
}
