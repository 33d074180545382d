package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/field-review/internal/config"
	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/handler"
	"github.com/msomdec/field-review/internal/repository/postgres"
	"github.com/msomdec/field-review/internal/repository/sqlite"
	"github.com/msomdec/field-review/internal/service"
	"github.com/msomdec/field-review/internal/storage/gcs"
	"github.com/msomdec/field-review/internal/storage/minio"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The local database is always opened because it also serves as the
	// blob store when STORAGE=sqlite.
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	var (
		images  domain.ImageBackend     = db.Images()
		reviews domain.ReviewRepository = db.Reviews()
		parcels domain.ParcelRepository = db.Parcels()
		health  domain.Database         = db
	)
	if cfg.Backend == config.BackendPostgres {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to backend", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		images, reviews, parcels, health = pg.Images(), pg.Reviews(), pg.Parcels(), pg
		slog.Info("using hosted image backend")
	}

	store, blobs, closeStore, err := openStore(ctx, cfg, db)
	if err != nil {
		slog.Error("failed to open object storage", "storage", cfg.Storage, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	authService := service.NewAuthService(cfg.JWTSecret)
	ingestService := service.NewIngestService(store, images, cfg.StorageBucket)
	deletionService := service.NewDeletionService(images, store)
	galleryService := service.NewGalleryService(images, store, reviews)
	stagingService := service.NewStagingService(ctx, ingestService, cfg.ImageMaxWidth, cfg.ImageQuality)
	parcelService := service.NewParcelService(parcels)

	// One batch every 2 seconds per staff member, bursts of 5.
	uploadLimiter := service.NewTokenBucket(ctx, 0.5, 5)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Services{
		DB:            health,
		Auth:          authService,
		Ingest:        ingestService,
		Deletion:      deletionService,
		Gallery:       galleryService,
		Staging:       stagingService,
		Parcels:       parcelService,
		Blobs:         blobs,
		UploadLimiter: uploadLimiter,
		CookieSecure:  cfg.CookieSecure,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.SecurityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "backend", cfg.Backend, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore returns the configured object store and, when the store can
// serve its own bytes through this server, the reader for /storage.
func openStore(ctx context.Context, cfg *config.Config, db *sqlite.DB) (domain.ObjectStore, domain.ObjectReader, func(), error) {
	noop := func() {}
	switch cfg.Storage {
	case config.StorageMinio:
		s, err := minio.New(minio.Config{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			UseSSL:        cfg.MinioUseSSL,
			PublicBaseURL: cfg.PublicStorageURL,
		})
		return s, nil, noop, err
	case config.StorageGCS:
		s, err := gcs.New(ctx, cfg.GCSCredentialsFile, cfg.PublicStorageURL)
		if err != nil {
			return nil, nil, noop, err
		}
		return s, nil, func() { s.Close() }, nil
	default:
		s := db.ObjectStore(cfg.PublicBaseURL)
		return s, s, noop, nil
	}
}
