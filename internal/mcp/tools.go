package mcp

import (
	"context"
	"fmt"
	"time"

	"lumator/internal/calendar"
	"lumator/internal/demand"
	"lumator/internal/results"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type SampleDateInput struct {
	TargetDate string `json:"target_date" jsonschema:"forecast target date, YYYY-MM-DD"`
	Today      string `json:"today,omitempty" jsonschema:"reference date, YYYY-MM-DD; defaults to the current date"`
}

type SampleDateOutput struct {
	TargetDate string `json:"target_date"`
	Today      string `json:"today"`
	SampleDate string `json:"sample_date"`
	Weekday    string `json:"weekday"`
	DaysBack   int    `json:"days_back"`
}

type RatiosInput struct {
	TargetDate string `json:"target_date" jsonschema:"forecast target date, YYYY-MM-DD"`
	Warehouse  string `json:"warehouse,omitempty" jsonschema:"warehouse id; defaults to the configured warehouse"`
}

type RatiosOutput struct {
	Warehouse  string              `json:"warehouse"`
	SampleDate string              `json:"sample_date"`
	Ratios     []demand.GroupRatio `json:"ratios"`
	Guidance   []string            `json:"guidance,omitempty"`
}

type PreviewInput struct {
	TargetDate        string  `json:"target_date" jsonschema:"forecast target date, YYYY-MM-DD"`
	AggregatePackages float64 `json:"aggregate_packages" jsonschema:"forecast packages for the target date"`
	Warehouse         string  `json:"warehouse,omitempty" jsonschema:"warehouse id; defaults to the configured warehouse"`
}

type PreviewOutput struct {
	SampleDate string                `json:"sample_date"`
	Records    []demand.DemandRecord `json:"records"`
	Total      int64                 `json:"total_packages"`
	Guidance   []string              `json:"guidance,omitempty"`
}

type ResultsInput struct {
	Title     string `json:"simulation_title" jsonschema:"simulation title, e.g. TR-2024-03-10"`
	StartDate string `json:"start_date" jsonschema:"run start date, YYYY-MM-DD; columns begin the day after"`
	Days      int    `json:"days" jsonschema:"number of date columns"`
}

type ResultsOutput struct {
	Columns []string    `json:"columns"`
	Rows    []ResultRow `json:"rows"`
}

// ResultRow carries one report line; a nil entry is a day without output.
type ResultRow struct {
	Carrier  string   `json:"carrier"`
	SortCode string   `json:"sort_code"`
	CPTTime  string   `json:"cpt_time"`
	Packages []*int64 `json:"packages"`
}

func resultsOutput(t results.Table) ResultsOutput {
	out := ResultsOutput{Columns: t.Columns, Rows: make([]ResultRow, 0, len(t.Rows))}
	for _, r := range t.Rows {
		row := ResultRow{Carrier: r.Carrier, SortCode: r.SortCode, CPTTime: r.CPTTime, Packages: make([]*int64, len(r.Totals))}
		for i, total := range r.Totals {
			if total.Valid {
				n := total.Packages
				row.Packages[i] = &n
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func (s *Server) handleSampleDate(_ context.Context, _ *sdk.CallToolRequest, in SampleDateInput) (*sdk.CallToolResult, SampleDateOutput, error) {
	target, err := calendar.ParseDate(in.TargetDate)
	if err != nil {
		return nil, SampleDateOutput{}, err
	}
	today := calendar.Day(s.now())
	if in.Today != "" {
		if today, err = calendar.ParseDate(in.Today); err != nil {
			return nil, SampleDateOutput{}, err
		}
	}

	sample := calendar.SampleDate(target, today)
	return nil, SampleDateOutput{
		TargetDate: calendar.Format(target),
		Today:      calendar.Format(today),
		SampleDate: calendar.Format(sample),
		Weekday:    sample.Weekday().String(),
		DaysBack:   int(today.Sub(sample).Hours() / 24),
	}, nil
}

func (s *Server) handleRatios(ctx context.Context, _ *sdk.CallToolRequest, in RatiosInput) (*sdk.CallToolResult, RatiosOutput, error) {
	target, err := calendar.ParseDate(in.TargetDate)
	if err != nil {
		return nil, RatiosOutput{}, err
	}
	wh := s.warehouse(in.Warehouse)
	sample := calendar.SampleDate(target, calendar.Day(s.now()))

	ratios, err := s.ratios.Ratios(ctx, sample, wh)
	if err != nil {
		log.Warn().Err(err).Str("warehouse", wh).Str("sample_date", calendar.Format(sample)).Msg("Ratio lookup failed")
		return nil, RatiosOutput{}, err
	}

	out := RatiosOutput{Warehouse: wh, SampleDate: calendar.Format(sample), Ratios: ratios}
	if len(ratios) < len(demand.CanonicalGroups) {
		out.Guidance = append(out.Guidance, fmt.Sprintf("Only %d of %d groups shipped on the sample date; the others receive no demand.", len(ratios), len(demand.CanonicalGroups)))
	}
	return nil, out, nil
}

func (s *Server) handlePreview(ctx context.Context, _ *sdk.CallToolRequest, in PreviewInput) (*sdk.CallToolResult, PreviewOutput, error) {
	target, err := calendar.ParseDate(in.TargetDate)
	if err != nil {
		return nil, PreviewOutput{}, err
	}

	opts := []demand.Option{demand.WithClock(s.now)}
	if s.cfg.UnitsPerPackage > 0 {
		opts = append(opts, demand.WithUnitsPerPackage(s.cfg.UnitsPerPackage))
	}
	if s.cfg.Rebalance {
		opts = append(opts, demand.WithLargestRemainder())
	}
	d := demand.NewDisaggregator(s.ratios, opts...)

	row := demand.ForecastRow{
		Warehouse:         s.warehouse(in.Warehouse),
		TargetDate:        target,
		AggregatePackages: in.AggregatePackages,
	}
	records, err := d.Disaggregate(ctx, []demand.ForecastRow{row})
	if err != nil {
		return nil, PreviewOutput{}, err
	}

	out := PreviewOutput{
		SampleDate: calendar.Format(calendar.SampleDate(target, calendar.Day(s.now()))),
		Records:    records,
	}
	for _, r := range records {
		out.Total += r.Packages
	}
	if rounded := decimal.NewFromFloat(in.AggregatePackages).RoundBank(0).IntPart(); out.Total != rounded {
		out.Guidance = append(out.Guidance, fmt.Sprintf("Per-group rounding moved the total from %d to %d packages.", rounded, out.Total))
	}
	return nil, out, nil
}

func (s *Server) handleResults(ctx context.Context, _ *sdk.CallToolRequest, in ResultsInput) (*sdk.CallToolResult, ResultsOutput, error) {
	start, err := calendar.ParseDate(in.StartDate)
	if err != nil {
		return nil, ResultsOutput{}, err
	}
	if in.Days < 1 || in.Days > 60 {
		return nil, ResultsOutput{}, fmt.Errorf("days must be between 1 and 60, got %d", in.Days)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	raw, err := s.results.RawResults(ctx, in.Title, start, in.Days)
	if err != nil {
		return nil, ResultsOutput{}, err
	}
	return nil, resultsOutput(results.Reconstruct(raw, start, in.Days)), nil
}
