//go:build !webp

package imageprep

import (
	"errors"
	"image"
	"io"
)

// The libwebp encoder needs cgo; builds without the webp tag re-encode webp
// sources as jpeg.
var errWebPUnavailable = errors.New("webp encoder unavailable")

func encodeWebP(io.Writer, image.Image, int) error {
	return errWebPUnavailable
}
