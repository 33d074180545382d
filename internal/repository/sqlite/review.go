package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/msomdec/field-review/internal/domain"
)

// ReviewRepository implements domain.ReviewRepository using SQLite.
type ReviewRepository struct {
	db *sql.DB
}

func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if review.Status == "" {
		review.Status = domain.ReviewStatusOpen
	}
	var parcelID any
	if review.ParcelID != 0 {
		parcelID = review.ParcelID
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO field_reviews (parcel_id, title, status, created_at) VALUES (?, ?, ?, ?)",
		parcelID, review.Title, string(review.Status), now,
	)
	if err != nil {
		return fmt.Errorf("insert field review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	review.ID = id
	review.CreatedAt = now
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	var rv domain.Review
	var parcelID sql.NullInt64
	var status string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, parcel_id, title, status, created_at FROM field_reviews WHERE id = ?", id,
	).Scan(&rv.ID, &parcelID, &rv.Title, &status, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get field review: %w", err)
	}
	rv.ParcelID = parcelID.Int64
	rv.Status = domain.ReviewStatus(status)
	return &rv, nil
}

func (r *ReviewRepository) List(ctx context.Context, f domain.ReviewFilter) ([]domain.Review, error) {
	where, args := reviewWhere(f)
	query := `SELECT r.id, r.parcel_id, r.title, r.status, r.created_at
		FROM field_reviews r LEFT JOIN parcels p ON p.id = r.parcel_id` + where +
		" ORDER BY r.created_at DESC, r.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list field reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		var parcelID sql.NullInt64
		var status string
		if err := rows.Scan(&rv.ID, &parcelID, &rv.Title, &status, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan field review: %w", err)
		}
		rv.ParcelID = parcelID.Int64
		rv.Status = domain.ReviewStatus(status)
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *ReviewRepository) Count(ctx context.Context, f domain.ReviewFilter) (int, error) {
	where, args := reviewWhere(f)
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM field_reviews r LEFT JOIN parcels p ON p.id = r.parcel_id"+where, args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count field reviews: %w", err)
	}
	return count, nil
}

func reviewWhere(f domain.ReviewFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "r.status = ?")
		args = append(args, string(f.Status))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		clauses = append(clauses, "(r.title LIKE ? OR p.parcel_number LIKE ?)")
		args = append(args, like, like)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
