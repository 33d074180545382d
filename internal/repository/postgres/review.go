package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/msomdec/field-review/internal/domain"
)

// ReviewRepository reads and writes field_reviews on the hosted database.
type ReviewRepository struct {
	db *sql.DB
}

func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if review.Status == "" {
		review.Status = domain.ReviewStatusOpen
	}
	var parcelID sql.NullInt64
	if review.ParcelID != 0 {
		parcelID = sql.NullInt64{Int64: review.ParcelID, Valid: true}
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO field_reviews (parcel_id, title, status) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		parcelID, review.Title, string(review.Status),
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return backendError("insert field review", err)
	}
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	var rv domain.Review
	var parcelID sql.NullInt64
	var status string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, parcel_id, title, status, created_at FROM field_reviews WHERE id = $1", id,
	).Scan(&rv.ID, &parcelID, &rv.Title, &status, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, backendError("get field review", err)
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
		n := len(args)
		query += " LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, backendError("list field reviews", err)
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
		return 0, backendError("count field reviews", err)
	}
	return count, nil
}

func reviewWhere(f domain.ReviewFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.Status != "" {
		args = append(args, string(f.Status))
		clauses = append(clauses, "r.status = $"+strconv.Itoa(len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := strconv.Itoa(len(args))
		clauses = append(clauses, "(r.title ILIKE $"+n+" OR p.parcel_number ILIKE $"+n+")")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ParcelRepository reads and writes parcels on the hosted database.
type ParcelRepository struct {
	db *sql.DB
}

func (r *ParcelRepository) Create(ctx context.Context, parcel *domain.Parcel) error {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO parcels (parcel_number, address) VALUES ($1, $2) RETURNING id",
		parcel.ParcelNumber, parcel.Address,
	).Scan(&parcel.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: parcel %s already exists", domain.ErrInvalidInput, parcel.ParcelNumber)
		}
		return backendError("insert parcel", err)
	}
	return nil
}

// FindByNumbers sends the whole list as one array parameter.
func (r *ParcelRepository) FindByNumbers(ctx context.Context, numbers []string) ([]domain.Parcel, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, parcel_number, COALESCE(address, '') FROM parcels WHERE parcel_number = ANY($1)",
		pq.Array(numbers),
	)
	if err != nil {
		return nil, backendError("find parcels", err)
	}
	defer rows.Close()

	var parcels []domain.Parcel
	for rows.Next() {
		var p domain.Parcel
		if err := rows.Scan(&p.ID, &p.ParcelNumber, &p.Address); err != nil {
			return nil, fmt.Errorf("scan parcel: %w", err)
		}
		parcels = append(parcels, p)
	}
	return parcels, rows.Err()
}
