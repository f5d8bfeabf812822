package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"lumator/internal/errs"
)

// ReportHeader returns the CSV header for t.
func (t Table) ReportHeader() []string {
	return append([]string{"carrier", "sort_code", "cpt_time"}, t.Columns...)
}

// WriteReport exports t as comma-separated values to path, replacing any
// previous report. Null totals are written as empty cells.
func WriteReport(path string, t Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: create report directory: %v", errs.ErrIO, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create report %s: %v", errs.ErrIO, path, err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(t.ReportHeader()); err != nil {
		file.Close()
		return fmt.Errorf("%w: write report header: %v", errs.ErrIO, err)
	}

	record := make([]string, 3+len(t.Columns))
	for _, row := range t.Rows {
		record[0] = row.Carrier
		record[1] = row.SortCode
		record[2] = row.CPTTime
		for i, total := range row.Totals {
			record[3+i] = ""
			if total.Valid {
				record[3+i] = strconv.FormatInt(total.Packages, 10)
			}
		}
		if err := w.Write(record); err != nil {
			file.Close()
			return fmt.Errorf("%w: write report row: %v", errs.ErrIO, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return fmt.Errorf("%w: flush report: %v", errs.ErrIO, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close report: %v", errs.ErrIO, err)
	}
	return nil
}
