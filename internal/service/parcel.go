package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/msomdec/field-review/internal/domain"
)

// maxParcelIDs bounds a single verification request.
const maxParcelIDs = 10000

var parcelHeaders = []string{"parcel_id", "parcel", "parcel_number", "pin"}

// ParcelCheck is the outcome of verifying a list of parcel numbers.
type ParcelCheck struct {
	Found   []domain.Parcel
	Missing []string
}

// ParcelService extracts parcel numbers from CSV uploads and checks them
// against the parcel table.
type ParcelService struct {
	parcels domain.ParcelRepository
}

func NewParcelService(parcels domain.ParcelRepository) *ParcelService {
	return &ParcelService{parcels: parcels}
}

// ExtractIDs reads parcel numbers from CSV. A header row naming one of the
// known parcel columns selects that column; otherwise the first column is
// used, and the first row counts as data unless its first cell has no digits. Values are trimmed, blanks
// dropped and duplicates removed, keeping first-seen order.
func (s *ParcelService) ExtractIDs(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	col := 0
	first := true
	seen := make(map[string]struct{})
	var ids []string

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %v", domain.ErrInvalidInput, err)
		}

		if first {
			first = false
			if idx, ok := headerColumn(rec); ok {
				col = idx
				continue
			}
			if len(rec) > 0 && !hasDigit(rec[0]) {
				continue
			}
		}

		if col >= len(rec) {
			continue
		}
		id := strings.TrimSpace(rec[col])
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) > maxParcelIDs {
			return nil, fmt.Errorf("%w: more than %d parcel ids", domain.ErrInvalidInput, maxParcelIDs)
		}
	}
	return ids, nil
}

// Verify splits ids into parcels that exist and numbers that do not. Missing
// keeps the input order.
func (s *ParcelService) Verify(ctx context.Context, ids []string) (*ParcelCheck, error) {
	found, err := s.parcels.FindByNumbers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find parcels: %w", err)
	}

	known := make(map[string]struct{}, len(found))
	for _, p := range found {
		known[p.ParcelNumber] = struct{}{}
	}
	check := &ParcelCheck{Found: found}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			check.Missing = append(check.Missing, id)
		}
	}
	return check, nil
}

func headerColumn(rec []string) (int, bool) {
	for i, h := range rec {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if slices.Contains(parcelHeaders, name) {
			return i, true
		}
	}
	return 0, false
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}
