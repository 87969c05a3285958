package frame

import (
	"encoding/csv"
	"fmt"
	"io"

	"prep/internal/record"
)

// FormatValue renders a cell for text output. nil becomes the empty string.
func FormatValue(v any) string {
	return record.ScalarText(v)
}

// WriteCSV writes f as CSV with a header row.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return fmt.Errorf("frame: write header: %w", err)
	}

	rec := make([]string, len(f.Columns))
	for i, row := range f.Rows {
		for j := range rec {
			rec[j] = FormatValue(row[j])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("frame: write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
