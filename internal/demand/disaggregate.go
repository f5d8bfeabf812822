package demand

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lumator/internal/calendar"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Disaggregator splits aggregate forecast rows into per-SOG demand records.
type Disaggregator struct {
	ratios           RatioSource
	unitsPerPackage  decimal.Decimal
	now              func() time.Time
	largestRemainder bool
}

// Option configures a Disaggregator.
type Option func(*Disaggregator)

// WithClock overrides the source of "today" used for sample-date selection.
func WithClock(now func() time.Time) Option {
	return func(d *Disaggregator) {
		d.now = now
	}
}

// WithUnitsPerPackage sets the package to unit conversion factor (default 1).
func WithUnitsPerPackage(units float64) Option {
	return func(d *Disaggregator) {
		d.unitsPerPackage = decimal.NewFromFloat(units)
	}
}

// WithLargestRemainder makes the per-group packages of a row sum to the rounded
// aggregate by handing the rounding remainder to the largest fractional parts.
func WithLargestRemainder() Option {
	return func(d *Disaggregator) {
		d.largestRemainder = true
	}
}

func NewDisaggregator(ratios RatioSource, opts ...Option) *Disaggregator {
	d := &Disaggregator{
		ratios:          ratios,
		unitsPerPackage: decimal.NewFromInt(1),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Disaggregate emits one record per (row, ratio) pair, preserving row order and
// canonical group order within a row. Any ratio failure aborts the whole batch.
//
// Packages are rounded half-to-even per group, so without WithLargestRemainder
// the per-row sum may drift from the aggregate by a few packages.
func (d *Disaggregator) Disaggregate(ctx context.Context, rows []ForecastRow) ([]DemandRecord, error) {
	today := calendar.Day(d.now())
	var records []DemandRecord

	for i, row := range rows {
		if row.AggregatePackages < 0 {
			return nil, fmt.Errorf("forecast row %d (%s %s): negative aggregate %v",
				i, row.Warehouse, calendar.Format(row.TargetDate), row.AggregatePackages)
		}

		sample := calendar.SampleDate(row.TargetDate, today)
		ratios, err := d.ratios.Ratios(ctx, sample, row.Warehouse)
		if err != nil {
			return nil, fmt.Errorf("disaggregate %s %s: %w", row.Warehouse, calendar.Format(row.TargetDate), err)
		}

		packages := d.allocate(row.AggregatePackages, ratios)
		for j, r := range ratios {
			records = append(records, d.record(row, r.Group, packages[j]))
		}

		log.Debug().
			Str("warehouse", row.Warehouse).
			Str("target_date", calendar.Format(row.TargetDate)).
			Str("sample_date", calendar.Format(sample)).
			Float64("aggregate", row.AggregatePackages).
			Int("groups", len(ratios)).
			Msg("Disaggregated forecast row")
	}

	return records, nil
}

func (d *Disaggregator) record(row ForecastRow, g Group, packages int64) DemandRecord {
	target := row.TargetDate
	return DemandRecord{
		Warehouse: row.Warehouse,
		Group:     g,
		Day:       target.Day(),
		Month:     int(target.Month()),
		Year:      target.Year(),
		Packages:  packages,
		Units:     d.unitsPerPackage.Mul(decimal.NewFromInt(packages)).RoundBank(0).IntPart(),
	}
}

func (d *Disaggregator) allocate(aggregate float64, ratios []GroupRatio) []int64 {
	agg := decimal.NewFromFloat(aggregate)
	out := make([]int64, len(ratios))

	if !d.largestRemainder {
		for i, r := range ratios {
			out[i] = agg.Mul(decimal.NewFromFloat(r.Proportion)).RoundBank(0).IntPart()
		}
		return out
	}

	type share struct {
		idx  int
		frac decimal.Decimal
	}
	shares := make([]share, len(ratios))
	var assigned int64
	for i, r := range ratios {
		exact := agg.Mul(decimal.NewFromFloat(r.Proportion))
		floor := exact.Floor()
		out[i] = floor.IntPart()
		assigned += out[i]
		shares[i] = share{idx: i, frac: exact.Sub(floor)}
	}

	remainder := agg.RoundBank(0).IntPart() - assigned
	if remainder <= 0 {
		return out
	}
	sort.SliceStable(shares, func(a, b int) bool {
		return shares[a].frac.GreaterThan(shares[b].frac)
	})
	for k := 0; k < len(shares) && remainder > 0; k++ {
		out[shares[k].idx]++
		remainder--
	}
	return out
}
