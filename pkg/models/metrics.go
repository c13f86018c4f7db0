package models

import (
	"fmt"
	"math"
)

// MaxContrast is the number of intensity bins in an 8-bit histogram.
const MaxContrast = 256

// MaxSharpness is the largest variance 8-bit intensities can have: half the
// pixels at 0 and half at 255, i.e. 127.5².
const MaxSharpness = 127.5 * 127.5

// MetricRecord holds the quality metrics of a single grayscale image.
// Values are fixed at construction; nothing in the pipeline mutates them.
type MetricRecord struct {
	SourceID string `json:"sourceId"`

	// Sharpness is the population variance of the pixel intensities.
	Sharpness float64 `json:"sharpness"`
	// Brightness is the mean pixel intensity (0-255).
	Brightness float64 `json:"brightness"`
	// Contrast is the number of occupied bins in a 256-bin histogram.
	Contrast int `json:"contrast"`
}

// Validate reports the first invariant the record violates.
func (r MetricRecord) Validate() error {
	switch {
	case math.IsNaN(r.Sharpness) || r.Sharpness < 0 || r.Sharpness > MaxSharpness:
		return fmt.Errorf("sharpness must be within [0, %v] (got %v)", MaxSharpness, r.Sharpness)
	case math.IsNaN(r.Brightness) || r.Brightness < 0 || r.Brightness > 255:
		return fmt.Errorf("brightness must be within [0, 255] (got %v)", r.Brightness)
	case r.Contrast < 0 || r.Contrast > MaxContrast:
		return fmt.Errorf("contrast must be within [0, %d] (got %d)", MaxContrast, r.Contrast)
	}
	return nil
}

// GroupedRecord pairs a metric record with the group it is aggregated under.
type GroupedRecord struct {
	GroupKey string
	Record   MetricRecord
}

// GroupSummary is the per-group reduction consumed by tables, charts and
// CSV export. Field order is part of the export contract.
type GroupSummary struct {
	GroupKey          string  `json:"brand"`
	AverageSharpness  float64 `json:"averageSharpness"`
	AverageBrightness float64 `json:"averageBrightness"`
	AverageContrast   float64 `json:"averageContrast"`
}
