// Package aggregator reduces per-image metric records into per-group
// summaries ordered by descending sharpness.
package aggregator

import (
	"sort"

	apperrors "github.com/anime-shed/brand-inspector-go/internal/errors"
	"github.com/anime-shed/brand-inspector-go/pkg/models"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Places is the number of decimal places every average is rounded to.
const Places = 2

type partition struct {
	key        string
	sharpness  []float64
	brightness []float64
	contrast   []float64
}

// Aggregate groups entries by key and returns one summary per key.
//
// Averages are rounded half away from zero to two decimals. The result is
// sorted by descending average sharpness; keys with equal sharpness keep the
// order in which they were first encountered. An empty input yields an empty
// slice. If any record is invalid no summary is produced at all.
func Aggregate(entries []models.GroupedRecord) ([]models.GroupSummary, error) {
	for _, e := range entries {
		if err := e.Record.Validate(); err != nil {
			return nil, apperrors.NewInvalidInputError(err.Error(), e.Record.SourceID)
		}
	}

	index := make(map[string]int)
	var parts []*partition
	for _, e := range entries {
		i, ok := index[e.GroupKey]
		if !ok {
			i = len(parts)
			index[e.GroupKey] = i
			parts = append(parts, &partition{key: e.GroupKey})
		}
		p := parts[i]
		p.sharpness = append(p.sharpness, e.Record.Sharpness)
		p.brightness = append(p.brightness, e.Record.Brightness)
		p.contrast = append(p.contrast, float64(e.Record.Contrast))
	}

	summaries := make([]models.GroupSummary, 0, len(parts))
	for _, p := range parts {
		summaries = append(summaries, models.GroupSummary{
			GroupKey:          p.key,
			AverageSharpness:  Round(stat.Mean(p.sharpness, nil)),
			AverageBrightness: Round(stat.Mean(p.brightness, nil)),
			AverageContrast:   Round(stat.Mean(p.contrast, nil)),
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].AverageSharpness > summaries[j].AverageSharpness
	})
	return summaries, nil
}

// Round rounds v to Places decimals, half away from zero.
func Round(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(Places).Float64()
	return f
}
