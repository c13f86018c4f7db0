package analyzer

import "github.com/anime-shed/brand-inspector-go/pkg/models"

// PixelBuffer is a single-channel rendering of an image: one 8-bit intensity
// per pixel, row-major, length width*height.
type PixelBuffer []uint8

// MetricsCalculator turns grayscale pixel data into a metric record.
type MetricsCalculator interface {
	// Extract computes sharpness, brightness and contrast for pixels.
	// sourceID identifies the image in the record and in any error.
	Extract(sourceID string, pixels PixelBuffer) (models.MetricRecord, error)
}

// GrayscaleDecoder renders encoded image bytes to a PixelBuffer.
type GrayscaleDecoder interface {
	ToGrayscale(raw []byte) (PixelBuffer, error)
}

// GrayscaleFunc adapts a plain function to GrayscaleDecoder.
type GrayscaleFunc func(raw []byte) (PixelBuffer, error)

// ToGrayscale calls f(raw).
func (f GrayscaleFunc) ToGrayscale(raw []byte) (PixelBuffer, error) {
	return f(raw)
}
