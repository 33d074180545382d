package imageprep

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"github.com/disintegration/gift"
)

const (
	// MinTargetWidth is the smallest width a variant may be scaled to.
	MinTargetWidth = 50
	DefaultQuality = 85
)

// ClampWidth bounds target to [MinTargetWidth, min(width, globalMax)].
// When the image itself is narrower than MinTargetWidth the upper bound wins,
// since a variant is never wider than its source.
func ClampWidth(target, width, globalMax int) int {
	upper := width
	if globalMax > 0 && globalMax < upper {
		upper = globalMax
	}
	if upper < MinTargetWidth {
		return upper
	}
	return max(MinTargetWidth, min(target, upper))
}

// ScaledHeight returns the height that keeps the aspect ratio at targetWidth.
func ScaledHeight(width, height, targetWidth int) int {
	if width <= 0 {
		return height
	}
	h := int(math.Round(float64(height) * float64(targetWidth) / float64(width)))
	return max(h, 1)
}

// Output is a variant ready for upload.
type Output struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Resized     bool
}

// Resize downsamples data to targetWidth. If targetWidth is not smaller than
// the source width the original bytes are returned untouched.
func Resize(data []byte, contentType string, width, height, targetWidth, quality int) (Output, error) {
	if targetWidth >= width || targetWidth <= 0 {
		return Output{Data: data, ContentType: contentType, Width: width, Height: height}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Output{}, fmt.Errorf("decode image: %w", err)
	}

	th := ScaledHeight(width, height, targetWidth)
	g := gift.New(gift.Resize(targetWidth, th, gift.LanczosResampling))
	dst := image.NewNRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)

	outType := OutputType(contentType)
	encoded, outType, err := encode(dst, outType, quality)
	if err != nil {
		return Output{}, err
	}

	b := dst.Bounds()
	return Output{
		Data:        encoded,
		ContentType: outType,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Resized:     true,
	}, nil
}

// OutputType picks the encoding for a resized variant: the source type when
// it is jpeg, png or webp, jpeg otherwise.
func OutputType(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/png":
		return "image/png"
	case "image/webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func encode(img image.Image, contentType string, quality int) ([]byte, string, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	switch contentType {
	case "image/png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), contentType, nil
	case "image/webp":
		err := encodeWebP(&buf, img, quality)
		if err == nil {
			return buf.Bytes(), contentType, nil
		}
		if err != errWebPUnavailable {
			return nil, "", fmt.Errorf("encode webp: %w", err)
		}
		buf.Reset()
	}

	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
