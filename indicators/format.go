package indicators

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/patrickcap/exploronomics/errors"
	"github.com/patrickcap/exploronomics/logging"
)

const (
	// SeriesNameColumn labels the indicator measured by a row
	SeriesNameColumn = "Series Name"
	// CountryNameColumn holds the display name of the country
	CountryNameColumn = "Country Name"
	// FirstYearColumn starts the block of yearly observations
	FirstYearColumn = "1999 [YR1999]"

	GDPSeries         = "GDP (current US$)"
	GDPBillionsSeries = "GDP (current US$B)"

	// MissingValue is written for any cell that is not numeric
	MissingValue = ""

	GDPScale = 1e9
	Decimals = 3
)

// Stats summarizes one formatting pass
type Stats struct {
	Rows     int `json:"rows"`
	Rescaled int `json:"rescaled"`
	Missing  int `json:"missing"`
}

// Format rewrites t in place. GDP rows are converted to billions and
// relabelled, then every year cell in every row is rounded to Decimals
// places. Cells that are not numeric become MissingValue. Columns before
// the year block are left as they are.
func Format(t *Table) (Stats, error) {
	seriesIdx, ok := t.Column(SeriesNameColumn)
	if !ok {
		return Stats{}, errors.NewMissingColumnError(SeriesNameColumn)
	}
	start, err := t.YearBlock()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Rows: len(t.Rows)}

	for _, row := range t.Rows {
		if row[seriesIdx] != GDPSeries {
			continue
		}
		stats.Missing += normalizeBlock(row[start:], GDPScale)
		row[seriesIdx] = GDPBillionsSeries
		stats.Rescaled++
	}

	// Second pass covers every row, GDP rows included. Re-rounding an
	// already rounded cell leaves it unchanged.
	for _, row := range t.Rows {
		stats.Missing += normalizeBlock(row[start:], 1)
	}

	return stats, nil
}

// normalizeBlock normalizes cells in place and returns how many non-empty
// cells were turned into MissingValue
func normalizeBlock(cells []string, scale float64) int {
	missing := 0
	for i, cell := range cells {
		out, ok := normalize(cell, scale)
		if !ok && cell != MissingValue {
			missing++
		}
		cells[i] = out
	}
	return missing
}

// FormatFile reads input, formats it and writes the result to output.
// Nothing is written when the input cannot be read or lacks the expected
// columns.
func FormatFile(input, output string) (Stats, error) {
	timer := logging.GetLogger().StartTimer("indicators", "format")

	t, err := ReadTableFile(input)
	if err != nil {
		return Stats{}, err
	}

	stats, err := Format(t)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			appErr.WithContext("path", input)
		}
		return Stats{}, err
	}

	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Stats{}, errors.Wrapf(errors.ErrPermissionDenied, err, "failed to create output directory '%s'", dir)
		}
	}

	if err := WriteTableFile(output, t); err != nil {
		return Stats{}, err
	}

	timer.End(fmt.Sprintf("Formatted %d rows (%d GDP rows rescaled, %d cells missing)", stats.Rows, stats.Rescaled, stats.Missing))
	return stats, nil
}

// SavedMessage is the confirmation printed after a successful format
func SavedMessage(output string) string {
	return fmt.Sprintf("Formatted CSV has been saved to %s.", output)
}
