package simfile

import (
	"bufio"
	"strconv"
	"strings"

	"lumator/internal/demand"
)

// DemandColumns is the header of the simulator demand file, in column order.
var DemandColumns = []string{
	"warehouse",
	"sog",
	"order_or_slam_day",
	"order_or_slam_month",
	"order_or_slam_year",
	"nb_packages",
	"units",
}

// WriteDemandFile truncates path and writes the header plus one tab-separated
// line per record. Output depends only on the records.
func WriteDemandFile(path string, records []demand.DemandRecord) error {
	return writeFile(path, func(w *bufio.Writer) error {
		return encodeDemand(w, records)
	})
}

func encodeDemand(w *bufio.Writer, records []demand.DemandRecord) error {
	if _, err := w.WriteString(strings.Join(DemandColumns, "\t") + "\n"); err != nil {
		return err
	}
	fields := make([]string, len(DemandColumns))
	for _, r := range records {
		fields[0] = r.Warehouse
		fields[1] = string(r.Group)
		fields[2] = strconv.Itoa(r.Day)
		fields[3] = strconv.Itoa(r.Month)
		fields[4] = strconv.Itoa(r.Year)
		fields[5] = strconv.FormatInt(r.Packages, 10)
		fields[6] = strconv.FormatInt(r.Units, 10)
		if _, err := w.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return err
		}
	}
	return nil
}
