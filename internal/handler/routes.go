package handler

import (
	"net/http"

	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/service"
)

// Services bundles what the routes need.
type Services struct {
	DB       domain.Database
	Auth     *service.AuthService
	Ingest   *service.IngestService
	Deletion *service.DeletionService
	Gallery  *service.GalleryService
	Staging  *service.StagingService
	Parcels  *service.ParcelService
	// Blobs serves /storage when the object store keeps its own bytes.
	Blobs         domain.ObjectReader
	UploadLimiter *service.TokenBucket
	CookieSecure  bool
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, s Services) {
	authHandler := NewAuthHandler(s.Auth, s.CookieSecure)
	reviewHandler := NewReviewHandler(s.Gallery)
	imageHandler := NewImageHandler(s.Ingest, s.Deletion)
	stagingHandler := NewStagingHandler(s.Staging, s.Gallery)
	parcelHandler := NewParcelHandler(s.Parcels)

	requireAuth := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(s.Auth, h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		if s.UploadLimiter == nil {
			return requireAuth(h)
		}
		return RequireAuth(s.Auth, RateLimit(s.UploadLimiter, h))
	}

	mux.HandleFunc("GET /healthz", HandleHealthz(s.DB))

	mux.HandleFunc("POST /api/auth/session", authHandler.HandleSession)
	mux.HandleFunc("POST /api/auth/logout", authHandler.HandleLogout)
	mux.Handle("GET /api/auth/me", requireAuth(authHandler.HandleMe))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/reviews", http.StatusSeeOther)
	})
	mux.Handle("GET /reviews", requireAuth(reviewHandler.HandleList))
	mux.Handle("GET /reviews/{id}", requireAuth(reviewHandler.HandleView))
	mux.Handle("GET /api/reviews/{id}/images", requireAuth(reviewHandler.HandleImages))

	mux.Handle("POST /reviews/{id}/images", limited(imageHandler.HandleUpload))
	mux.Handle("POST /images/delete", requireAuth(imageHandler.HandleDelete))

	mux.Handle("POST /reviews/{id}/staging", requireAuth(stagingHandler.HandleOpen))
	mux.Handle("POST /staging/{sid}/files", requireAuth(stagingHandler.HandleAddFiles))
	mux.Handle("POST /staging/{sid}/items/{index}", requireAuth(stagingHandler.HandleUpdateItem))
	mux.Handle("POST /staging/{sid}/max-width", requireAuth(stagingHandler.HandleMaxWidth))
	mux.Handle("POST /staging/{sid}/items/{index}/remove", requireAuth(stagingHandler.HandleRemove))
	mux.Handle("GET /staging/{sid}/items/{index}/preview", requireAuth(stagingHandler.HandlePreview))
	mux.Handle("POST /staging/{sid}/submit", limited(stagingHandler.HandleSubmit))
	mux.Handle("POST /staging/{sid}/cancel", requireAuth(stagingHandler.HandleCancel))

	mux.Handle("POST /parcels/verify", requireAuth(parcelHandler.HandleVerify))

	if s.Blobs != nil {
		mux.HandleFunc("GET /storage/{bucket}/{key...}", HandleStorage(s.Blobs))
	}
}
