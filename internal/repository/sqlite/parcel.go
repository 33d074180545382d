package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/msomdec/field-review/internal/domain"
)

// ParcelRepository implements domain.ParcelRepository using SQLite.
type ParcelRepository struct {
	db *sql.DB
}

func (r *ParcelRepository) Create(ctx context.Context, parcel *domain.Parcel) error {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO parcels (parcel_number, address) VALUES (?, ?)",
		parcel.ParcelNumber, parcel.Address,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: parcel %s already exists", domain.ErrInvalidInput, parcel.ParcelNumber)
		}
		return fmt.Errorf("insert parcel: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	parcel.ID = id
	return nil
}

// maxParcelArgs keeps IN lists well below SQLite's variable limit.
const maxParcelArgs = 500

func (r *ParcelRepository) FindByNumbers(ctx context.Context, numbers []string) ([]domain.Parcel, error) {
	var parcels []domain.Parcel
	for start := 0; start < len(numbers); start += maxParcelArgs {
		chunk := numbers[start:min(start+maxParcelArgs, len(numbers))]
		args := make([]any, len(chunk))
		for i, n := range chunk {
			args[i] = n
		}

		rows, err := r.db.QueryContext(ctx,
			"SELECT id, parcel_number, address FROM parcels WHERE parcel_number IN ("+placeholders(len(chunk))+")",
			args...,
		)
		if err != nil {
			return nil, fmt.Errorf("find parcels: %w", err)
		}
		for rows.Next() {
			var p domain.Parcel
			if err := rows.Scan(&p.ID, &p.ParcelNumber, &p.Address); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan parcel: %w", err)
			}
			parcels = append(parcels, p)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate parcels: %w", err)
		}
	}
	return parcels, nil
}
