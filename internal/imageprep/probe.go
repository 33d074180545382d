// Package imageprep turns user-selected files into upload-ready variants:
// it probes dimensions, clamps target widths, and downsamples without ever
// upscaling.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned for files whose MIME type is not image/*.
var ErrNotImage = errors.New("not an image")

// Dimensions are intrinsic pixel dimensions.
type Dimensions struct {
	Width  int
	Height int
}

// IsImageType reports whether contentType declares an image.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// Probe decodes just enough of data to read its dimensions.
func Probe(contentType string, data []byte) (Dimensions, error) {
	if !IsImageType(contentType) {
		return Dimensions{}, ErrNotImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Dimensions{}, fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Dimensions{}, fmt.Errorf("decode image config: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// Decode checks that data decodes in full, not only its header, and returns
// its dimensions. Truncated files pass Probe but fail here.
func Decode(contentType string, data []byte) (Dimensions, error) {
	dims, err := Probe(contentType, data)
	if err != nil {
		return Dimensions{}, err
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return Dimensions{}, fmt.Errorf("decode image: %w", err)
	}
	return dims, nil
}
