package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/msomdec/field-review/internal/domain"
)

// ImageBackend implements domain.ImageBackend by calling the hosted
// procedures.
type ImageBackend struct {
	db *sql.DB
}

func (b *ImageBackend) CreateFileAndReviewImage(ctx context.Context, p domain.CreateImageParams) (*domain.ImageRecord, error) {
	rec := &domain.ImageRecord{
		ReviewID:     p.ReviewID,
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
	}
	err := b.db.QueryRowContext(ctx,
		`SELECT image_id, file_id, created_at
		 FROM create_file_and_field_review_image($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.Bucket, p.Path, p.Size, p.MimeType, p.OriginalName, p.Ext,
		p.ReviewID, p.Caption, p.Width, p.Height, p.SortOrder,
	).Scan(&rec.ID, &rec.FileID, &rec.CreatedAt)
	if err != nil {
		return nil, backendError("create_file_and_field_review_image", err)
	}
	return rec, nil
}

func (b *ImageBackend) DeleteReviewImagesAndFiles(ctx context.Context, imageIDs []int64) ([]domain.DeletedImage, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT deleted_image_id, deleted_file_id, bucket_name, path
		 FROM delete_field_review_images_and_files($1)`,
		pq.Array(imageIDs),
	)
	if err != nil {
		return nil, backendError("delete_field_review_images_and_files", err)
	}
	defer rows.Close()

	var deleted []domain.DeletedImage
	for rows.Next() {
		var d domain.DeletedImage
		var fileID sql.NullInt64
		var bucket, path sql.NullString
		if err := rows.Scan(&d.ImageID, &fileID, &bucket, &path); err != nil {
			return nil, backendError("scan deleted image", err)
		}
		d.FileID = fileID.Int64
		d.Bucket = bucket.String
		d.Path = path.String
		deleted = append(deleted, d)
	}
	if err := rows.Err(); err != nil {
		return nil, backendError("delete_field_review_images_and_files", err)
	}
	return deleted, nil
}

func (b *ImageBackend) ListByReview(ctx context.Context, reviewID int64) ([]domain.ImageRecord, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT i.id, i.review_id, f.id, f.bucket_name, f.path, f.size, f.mime_type,
		        f.original_name, f.ext, i.caption, i.width, i.height,
		        COALESCE(i.sort_order, 0), i.created_at
		 FROM field_review_images i JOIN files f ON f.id = i.file_id
		 WHERE i.review_id = $1
		 ORDER BY i.sort_order ASC NULLS LAST, i.created_at DESC, i.id DESC`, reviewID)
	if err != nil {
		return nil, backendError("list review images", err)
	}
	defer rows.Close()

	var images []domain.ImageRecord
	for rows.Next() {
		var img domain.ImageRecord
		if err := rows.Scan(&img.ID, &img.ReviewID, &img.FileID, &img.Bucket, &img.Path, &img.Size,
			&img.MimeType, &img.OriginalName, &img.Ext, &img.Caption, &img.Width, &img.Height,
			&img.SortOrder, &img.CreatedAt); err != nil {
			return nil, backendError("scan review image", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}
