package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ironsheep/lesion-features/internal/features"
)

// Header returns the CSV header. gaborResponses is the number of Gabor
// kernels whose mean and variance get their own columns; 0 omits them.
func Header(gaborResponses int) []string {
	header := []string{"id", "label"}
	header = append(header, features.Keys()...)
	for k := 0; k < gaborResponses; k++ {
		header = append(header, fmt.Sprintf("gabor_%d_mean", k), fmt.Sprintf("gabor_%d_var", k))
	}
	return append(header, "error")
}

// WriteCSV writes one row per result in the given order. Failed samples keep
// their id and label, leave every value empty and carry the error message.
func WriteCSV(w io.Writer, results []Result, gaborResponses int) error {
	cw := csv.NewWriter(w)
	header := Header(gaborResponses)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, res := range results {
		row := make([]string, len(header))
		row[0] = res.Entry.ID
		row[1] = res.Entry.Label
		if res.Err != nil {
			row[len(row)-1] = res.Err.Error()
		} else if res.Record != nil {
			col := 2
			for _, v := range res.Record.Values() {
				row[col] = formatFloat(v)
				col++
			}
			for k := 0; k < gaborResponses && k < len(res.Record.Gabor); k++ {
				row[col] = formatFloat(res.Record.Gabor[k].Mean)
				row[col+1] = formatFloat(res.Record.Gabor[k].Variance)
				col += 2
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %s: %w", res.Entry.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
