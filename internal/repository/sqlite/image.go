package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/msomdec/field-review/internal/domain"
)

// ImageBackend runs the review image procedures as local SQL transactions.
// It mirrors create_file_and_field_review_image and
// delete_field_review_images_and_files on the hosted database.
type ImageBackend struct {
	db *sql.DB
}

func (b *ImageBackend) CreateFileAndReviewImage(ctx context.Context, p domain.CreateImageParams) (*domain.ImageRecord, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM field_reviews WHERE id = ?", p.ReviewID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.BackendError{Message: fmt.Sprintf("field review %d does not exist", p.ReviewID)}
		}
		return nil, fmt.Errorf("check review: %w", err)
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO files (bucket_name, path, size, mime_type, original_name, ext, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Bucket, p.Path, p.Size, p.MimeType, p.OriginalName, p.Ext, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, &domain.BackendError{Message: "file already registered", Details: p.Bucket + "/" + p.Path}
		}
		return nil, fmt.Errorf("insert file: %w", err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get file id: %w", err)
	}

	res, err = tx.ExecContext(ctx,
		`INSERT INTO field_review_images (review_id, file_id, caption, width, height, sort_order, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ReviewID, fileID, p.Caption, p.Width, p.Height, p.SortOrder, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert field review image: %w", err)
	}
	imageID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get image id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &domain.ImageRecord{
		ID:           imageID,
		ReviewID:     p.ReviewID,
		FileID:       fileID,
		Bucket:       p.Bucket,
		Path:         p.Path,
		Size:         p.Size,
		MimeType:     p.MimeType,
		OriginalName: p.OriginalName,
		Ext:          p.Ext,
		Caption:      p.Caption,
		Width:        p.Width,
		Height:       p.Height,
		SortOrder:    p.SortOrder,
		CreatedAt:    now,
	}, nil
}

// DeleteReviewImagesAndFiles removes the image rows and, for each file no
// longer referenced by any image, the file row. Only rows that existed are
// returned. File fields are left empty when the file is still in use.
func (b *ImageBackend) DeleteReviewImagesAndFiles(ctx context.Context, imageIDs []int64) ([]domain.DeletedImage, error) {
	ids := slices.Clone(imageIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var deleted []domain.DeletedImage
	for _, id := range ids {
		var fileID int64
		var bucket, path string
		err := tx.QueryRowContext(ctx,
			`SELECT f.id, f.bucket_name, f.path FROM field_review_images i
			 JOIN files f ON f.id = i.file_id WHERE i.id = ?`, id,
		).Scan(&fileID, &bucket, &path)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("load image %d: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM field_review_images WHERE id = ?", id); err != nil {
			return nil, fmt.Errorf("delete image %d: %w", id, err)
		}

		row := domain.DeletedImage{ImageID: id}

		var refs int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM field_review_images WHERE file_id = ?", fileID,
		).Scan(&refs); err != nil {
			return nil, fmt.Errorf("count file references: %w", err)
		}
		if refs == 0 {
			if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", fileID); err != nil {
				return nil, fmt.Errorf("delete file %d: %w", fileID, err)
			}
			row.FileID = fileID
			row.Bucket = bucket
			row.Path = path
		}
		deleted = append(deleted, row)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return deleted, nil
}

// ListByReview returns a review's images by sort_order, newest first among
// ties, with unordered rows last.
func (b *ImageBackend) ListByReview(ctx context.Context, reviewID int64) ([]domain.ImageRecord, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT i.id, i.review_id, f.id, f.bucket_name, f.path, f.size, f.mime_type, f.original_name, f.ext,
		        i.caption, i.width, i.height, COALESCE(i.sort_order, 0), i.created_at
		 FROM field_review_images i JOIN files f ON f.id = i.file_id
		 WHERE i.review_id = ?
		 ORDER BY i.sort_order IS NULL, i.sort_order, i.created_at DESC, i.id DESC`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list review images: %w", err)
	}
	defer rows.Close()

	var images []domain.ImageRecord
	for rows.Next() {
		var img domain.ImageRecord
		if err := rows.Scan(&img.ID, &img.ReviewID, &img.FileID, &img.Bucket, &img.Path, &img.Size,
			&img.MimeType, &img.OriginalName, &img.Ext, &img.Caption, &img.Width, &img.Height,
			&img.SortOrder, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
