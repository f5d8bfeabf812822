package engine

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"lumator/internal/demand"
)

func testConfig(scenario string) GeneratorConfig {
	return GeneratorConfig{
		Scenario:     scenario,
		Distribution: "uniform",
		Warehouse:    "XTRA",
		LegalEntity:  141,
		HistoryDays:  14,
		ForecastDays: 3,
		BaseVolume:   500,
		Title:        "TR-2024-03-10",
		Seed:         7,
		Now:          time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	}
}

func groupCounts(ds Dataset, day time.Time) []demand.GroupCount {
	byOption := map[string]string{}
	for _, o := range shipOptions {
		byOption[o.option] = o.group
	}
	counts := map[string]int64{}
	for _, s := range ds.Shipments {
		if s.ShipDay.Equal(day) {
			counts[byOption[s.ShipOption]]++
		}
	}
	var out []demand.GroupCount
	for g, n := range counts {
		out = append(out, demand.GroupCount{RawGroup: g, Count: n})
	}
	return out
}

func TestGenerate_MildMixMatchesRatios(t *testing.T) {
	cfg := testConfig("mild")
	ds := Generate(cfg)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	ratios, err := demand.Proportions(groupCounts(ds, day))
	if err != nil {
		t.Fatalf("Proportions() error = %v", err)
	}
	if len(ratios) != len(mildMix) {
		t.Fatalf("got %d groups, want %d", len(ratios), len(mildMix))
	}
	for i, r := range ratios {
		if math.Abs(r.Proportion-mildMix[i]) > 0.01 {
			t.Errorf("%s proportion = %.3f, want ~%.2f", r.Group, r.Proportion, mildMix[i])
		}
	}
}

func TestGenerate_Shape(t *testing.T) {
	ds := Generate(testConfig("mild"))

	if len(ds.Forecast) != 4 {
		t.Errorf("forecast rows = %d, want 4 (today plus 3 days)", len(ds.Forecast))
	}
	// 3 carriers: DPD 2x2, UPS 1x1, EVRI 2x2 per day.
	if want := 9 * 3; len(ds.Output) != want {
		t.Errorf("output rows = %d, want %d", len(ds.Output), want)
	}
	for _, s := range ds.Shipments {
		if !s.ShipDay.Before(testConfig("mild").Now) {
			t.Fatalf("shipment on %v is not in the past", s.ShipDay)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(testConfig("chaos"))
	b := Generate(testConfig("chaos"))
	if len(a.Shipments) != len(b.Shipments) || len(a.Output) != len(b.Output) {
		t.Errorf("same seed produced different datasets")
	}
}

func TestWriteSQL(t *testing.T) {
	cfg := testConfig("mild")
	cfg.HistoryDays = 1
	cfg.BaseVolume = 10
	ds := Generate(cfg)

	var buf bytes.Buffer
	if err := WriteSQL(&buf, cfg, ds); err != nil {
		t.Fatalf("WriteSQL() error = %v", err)
	}
	sql := buf.String()

	for _, want := range []string{
		"BEGIN;",
		"INSERT INTO eunpsa.daily_forecast_tr",
		"'Forecasted Customer Shipments'",
		"INSERT INTO lumis.output_raw",
		"'IST,1'",
		"'TR-2024-03-10'",
		"COMMIT;",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("seed script missing %q", want)
		}
	}
}

func TestQuote(t *testing.T) {
	if got := quote("O'Neil"); got != "'O''Neil'" {
		t.Errorf("quote() = %s, want 'O''Neil'", got)
	}
}
