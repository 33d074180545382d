package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/msomdec/field-review/internal/domain"
)

// HandleStorage serves blobs from a store that keeps its own bytes. Keys are
// random and never reused, so responses are cached as immutable.
// GET /storage/{bucket}/{key...}
func HandleStorage(blobs domain.ObjectReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bucket, key := r.PathValue("bucket"), r.PathValue("key")
		if bucket == "" || key == "" {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}

		data, contentType, err := blobs.Get(r.Context(), bucket, key)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Not Found", http.StatusNotFound)
				return
			}
			slog.Error("serve blob", "bucket", bucket, "key", key, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}
}
