// Package export renders brand summaries for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/anime-shed/brand-inspector-go/pkg/models"

	"github.com/shopspring/decimal"
)

// CSVFilename is the suggested name of the downloaded report.
const CSVFilename = "sharpness-report.csv"

// CSVHeader lists the report columns in order.
var CSVHeader = []string{"brand", "averageSharpness", "averageBrightness", "averageContrast"}

// WriteCSV writes one row per summary, in the given order, with every
// average formatted to two decimals.
func WriteCSV(w io.Writer, summaries []models.GroupSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, s := range summaries {
		row := []string{
			s.GroupKey,
			fixed(s.AverageSharpness),
			fixed(s.AverageBrightness),
			fixed(s.AverageContrast),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", s.GroupKey, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
