package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/service"
)

const maxCSVBytes = 5 << 20

// ParcelHandler checks uploaded parcel lists.
type ParcelHandler struct {
	parcels *service.ParcelService
}

func NewParcelHandler(parcels *service.ParcelService) *ParcelHandler {
	return &ParcelHandler{parcels: parcels}
}

// HandleVerify reads a CSV upload and reports which parcels exist.
// POST /parcels/verify
func (h *ParcelHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCSVBytes)
	if err := r.ParseMultipartForm(maxCSVBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Upload a CSV file.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No CSV file provided.")
		return
	}
	defer file.Close()

	ids, err := h.parcels.ExtractIDs(file)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("extract parcel ids", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "The file contains no parcel ids.")
		return
	}

	check, err := h.parcels.Verify(r.Context(), ids)
	if err != nil {
		slog.Error("verify parcels", "count", len(ids), "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}
	writeJSON(w, http.StatusOK, toParcelCheckDTO(len(ids), check))
}
