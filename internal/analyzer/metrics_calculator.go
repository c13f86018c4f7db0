package analyzer

import (
	"sync"

	apperrors "github.com/anime-shed/brand-inspector-go/internal/errors"
	"github.com/anime-shed/brand-inspector-go/pkg/models"

	"gonum.org/v1/gonum/stat"
)

const histogramBins = 256

// metricsCalculator implements MetricsCalculator with Gonum statistics
type metricsCalculator struct {
	slicePool sync.Pool
}

// NewMetricsCalculator creates a new metrics calculator using Gonum
func NewMetricsCalculator() MetricsCalculator {
	return &metricsCalculator{
		slicePool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, 1024)
			},
		},
	}
}

// Extract computes the metric record of a grayscale image.
//
// brightness is the population mean, sharpness the population variance
// computed in a second pass over the samples, and contrast the number of
// non-empty bins in a 256-bin histogram. Samples are accumulated in index
// order so identical buffers always produce bit-identical records.
func (mc *metricsCalculator) Extract(sourceID string, pixels PixelBuffer) (models.MetricRecord, error) {
	if len(pixels) == 0 {
		return models.MetricRecord{}, apperrors.NewInvalidInputError("empty pixel buffer", sourceID)
	}

	samples := mc.slicePool.Get().([]float64)[:0]
	if cap(samples) < len(pixels) {
		samples = make([]float64, 0, len(pixels))
	}
	defer func() { mc.slicePool.Put(samples[:0]) }()

	var histogram [histogramBins]int
	for _, p := range pixels {
		samples = append(samples, float64(p))
		histogram[p]++
	}

	// Integer samples sum exactly in float64, so the mean does not depend
	// on the summation order used by gonum.
	brightness := stat.Mean(samples, nil)

	var sumSquares float64
	for _, v := range samples {
		d := v - brightness
		sumSquares += d * d
	}
	sharpness := sumSquares / float64(len(samples))

	contrast := 0
	for _, count := range histogram {
		if count > 0 {
			contrast++
		}
	}

	return models.MetricRecord{
		SourceID:   sourceID,
		Sharpness:  sharpness,
		Brightness: brightness,
		Contrast:   contrast,
	}, nil
}
