// Package processor derives the normalized variant stored next to every
// uploaded photograph.
package processor

import (
	"bytes"
	"fmt"

	apperrors "github.com/anime-shed/brand-inspector-go/internal/errors"

	"github.com/disintegration/imaging"
)

// DefaultWidth is the width of the processed variant when none is configured.
const DefaultWidth = 500

// JPEGQuality is used when the processed variant is re-encoded as JPEG.
const JPEGQuality = 90

// ImageProcessor produces the processed variant of an uploaded image.
type ImageProcessor interface {
	// Process decodes raw, normalizes it and re-encodes it in the format
	// implied by filename's extension.
	Process(raw []byte, filename string) ([]byte, error)
}

// imagingProcessor implements ImageProcessor using the imaging library.
type imagingProcessor struct {
	width int
}

// NewImagingProcessor returns a processor that resizes images to width
// pixels (height follows the aspect ratio) and converts them to grayscale.
func NewImagingProcessor(width int) ImageProcessor {
	if width <= 0 {
		width = DefaultWidth
	}
	return &imagingProcessor{width: width}
}

func (p *imagingProcessor) Process(raw []byte, filename string) ([]byte, error) {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return nil, apperrors.NewValidationError("unsupported image format", err).WithDetails(filename)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to decode image", err).WithDetails(filename)
	}
	if img.Bounds().Empty() {
		return nil, apperrors.NewDecodeError("failed to decode image", fmt.Errorf("image has no pixels")).WithDetails(filename)
	}

	processed := imaging.Grayscale(imaging.Resize(img, p.width, 0, imaging.Lanczos))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, processed, format, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, apperrors.NewInternalError("failed to encode processed image", err)
	}
	return buf.Bytes(), nil
}
