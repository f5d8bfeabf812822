package results

import (
	"cmp"
	"slices"
	"time"

	"lumator/internal/calendar"
)

// CPTLayout formats the CPT bucket of a raw row.
const CPTLayout = "15:04"

// RawRow is one long-format line of simulator output.
type RawRow struct {
	Carrier  string
	SortCode string
	CPT      time.Time
	Packages int64
}

// Total is one date cell of the wide table. Valid is false when no raw row
// contributed to the cell.
type Total struct {
	Packages int64 `json:"packages"`
	Valid    bool  `json:"valid"`
}

// Row is one (carrier, sort code, CPT time) line with a total per date.
type Row struct {
	Carrier  string  `json:"carrier"`
	SortCode string  `json:"sort_code"`
	CPTTime  string  `json:"cpt_time"`
	Totals   []Total `json:"totals"`
}

// Table is the reconstructed calendar: Columns[i] labels the totals for Dates[i].
type Table struct {
	Dates   []time.Time `json:"dates"`
	Columns []string    `json:"columns"`
	Rows    []Row       `json:"rows"`
}

type rowKey struct {
	carrier  string
	sortCode string
	cptTime  string
}

// Reconstruct pivots raw rows into one row per (carrier, sort code, CPT time)
// and one column per date from start+1 to start+numDays. Every row carries
// exactly numDays totals regardless of how sparse the raw data is.
func Reconstruct(raw []RawRow, start time.Time, numDays int) Table {
	dates := calendar.DaysAfter(start, numDays)
	columns := make([]string, len(dates))
	index := make(map[string]int, len(dates))
	for i, d := range dates {
		columns[i] = calendar.ColumnLabel(d)
		index[calendar.Format(d)] = i
	}

	rows := make(map[rowKey]*Row)
	for _, r := range raw {
		key := rowKey{carrier: r.Carrier, sortCode: r.SortCode, cptTime: r.CPT.Format(CPTLayout)}
		row, ok := rows[key]
		if !ok {
			row = &Row{
				Carrier:  key.carrier,
				SortCode: key.sortCode,
				CPTTime:  key.cptTime,
				Totals:   make([]Total, len(dates)),
			}
			rows[key] = row
		}

		i, ok := index[calendar.Format(r.CPT)]
		if !ok {
			continue
		}
		row.Totals[i].Packages += r.Packages
		row.Totals[i].Valid = true
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	slices.SortFunc(out, func(a, b Row) int {
		return cmp.Or(
			cmp.Compare(a.Carrier, b.Carrier),
			cmp.Compare(a.SortCode, b.SortCode),
			cmp.Compare(a.CPTTime, b.CPTTime),
		)
	})

	return Table{Dates: dates, Columns: columns, Rows: out}
}
