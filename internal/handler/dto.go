package handler

import (
	"time"

	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/service"
)

// StaffDTO is the JSON representation of the signed-in staff member.
type StaffDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func toStaffDTO(s *domain.Staff) StaffDTO {
	return StaffDTO{ID: s.ID, Email: s.Email, DisplayName: s.DisplayName}
}

// ImageDTO is the JSON representation of a review image.
type ImageDTO struct {
	ID        int64  `json:"id"`
	ReviewID  int64  `json:"reviewId"`
	URL       string `json:"url"`
	Caption   string `json:"caption"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SortOrder int    `json:"sortOrder"`
	MimeType  string `json:"mimeType"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"createdAt"`
}

func toImageDTOs(images []service.GalleryImage) []ImageDTO {
	out := make([]ImageDTO, len(images))
	for i, img := range images {
		out[i] = ImageDTO{
			ID:        img.ID,
			ReviewID:  img.ReviewID,
			URL:       img.URL,
			Caption:   img.Caption,
			Width:     img.Width,
			Height:    img.Height,
			SortOrder: img.SortOrder,
			MimeType:  img.MimeType,
			Size:      img.Size,
			CreatedAt: img.CreatedAt.Format(time.RFC3339),
		}
	}
	return out
}

// ParcelDTO is the JSON representation of a parcel.
type ParcelDTO struct {
	ID           int64  `json:"id"`
	ParcelNumber string `json:"parcelNumber"`
	Address      string `json:"address"`
}

// ParcelCheckDTO reports which uploaded parcel numbers are known.
type ParcelCheckDTO struct {
	Total   int         `json:"total"`
	Found   []ParcelDTO `json:"found"`
	Missing []string    `json:"missing"`
}

func toParcelCheckDTO(total int, c *service.ParcelCheck) ParcelCheckDTO {
	dto := ParcelCheckDTO{Total: total, Found: make([]ParcelDTO, len(c.Found)), Missing: c.Missing}
	for i, p := range c.Found {
		dto.Found[i] = ParcelDTO{ID: p.ID, ParcelNumber: p.ParcelNumber, Address: p.Address}
	}
	if dto.Missing == nil {
		dto.Missing = []string{}
	}
	return dto
}
