package engine

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lumator/internal/calendar"
	"lumator/internal/demand"
	"lumator/internal/results"
)

type GeneratorConfig struct {
	Scenario     string // "mild", "chaos" or "drift"
	Distribution string // "uniform" or "weibull"
	Warehouse    string
	LegalEntity  int
	HistoryDays  int
	ForecastDays int
	BaseVolume   int // packages per historical day
	Title        string
	Seed         int64
	Now          time.Time
}

// Shipment is one outbound package of the shipment history.
type Shipment struct {
	ShipDay    time.Time
	ShipmentID string
	PackageID  string
	ShipOption string
}

// Dataset is everything a development warehouse needs for end-to-end runs.
type Dataset struct {
	Forecast  []demand.ForecastRow
	Shipments []Shipment
	Output    []results.RawRow
}

// shipOptions maps generated ship options onto their raw group names.
var shipOptions = []struct {
	option string
	group  string
}{
	{"same-day", "PREMIUM-SAME"},
	{"next-day", "PREMIUM-NEXT"},
	{"std-eu", "STANDARD"},
	{"eco-eu", "ECONOMY"},
	{"two-day", "PREMIUM-TWO"},
}

var mildMix = []float64{0.08, 0.27, 0.45, 0.15, 0.05}

var carriers = []struct {
	name      string
	sortCodes []string
	cpts      []string
}{
	{"DPD", []string{"A1", "A2"}, []string{"16:00", "18:30"}},
	{"UPS", []string{"U1"}, []string{"17:15"}},
	{"EVRI", []string{"IST,1", "LON"}, []string{"15:00", "21:45"}},
}

func Generate(cfg GeneratorConfig) Dataset {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	today := calendar.Day(cfg.Now)

	var ds Dataset
	for d := cfg.HistoryDays; d >= 1; d-- {
		day := today.AddDate(0, 0, -d)
		progress := 1 - float64(d)/float64(cfg.HistoryDays)
		volume := sampleVolume(rng, cfg, progress)
		mix := groupMix(rng, cfg.Scenario, progress)

		for g, share := range mix {
			n := int(math.Round(float64(volume) * share))
			for i := 0; i < n; i++ {
				ds.Shipments = append(ds.Shipments, Shipment{
					ShipDay:    day,
					ShipmentID: fmt.Sprintf("S%s%d%04d", day.Format("0102"), g, i),
					PackageID:  fmt.Sprintf("P%d", i%3),
					ShipOption: shipOptions[g].option,
				})
			}
		}
	}

	for d := 0; d <= cfg.ForecastDays; d++ {
		target := today.AddDate(0, 0, d)
		ds.Forecast = append(ds.Forecast, demand.ForecastRow{
			Region:            "EU",
			Org:               "EU",
			ForecastDate:      today,
			TargetDate:        target,
			Warehouse:         cfg.Warehouse,
			Flow:              "OUTBOUND",
			MetricName:        "Forecasted Customer Shipments",
			AggregatePackages: float64(sampleVolume(rng, cfg, 1)),
		})
	}

	for d := 1; d <= cfg.ForecastDays; d++ {
		day := today.AddDate(0, 0, d)
		for _, c := range carriers {
			for _, sc := range c.sortCodes {
				for _, cpt := range c.cpts {
					// Chaos leaves holes in the calendar.
					if cfg.Scenario == "chaos" && rng.Float64() < 0.25 {
						continue
					}
					at, _ := time.Parse(results.CPTLayout, cpt)
					ds.Output = append(ds.Output, results.RawRow{
						Carrier:  c.name,
						SortCode: sc,
						CPT:      day.Add(time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute),
						Packages: int64(20 + rng.Intn(200)),
					})
				}
			}
		}
	}
	return ds
}

func sampleVolume(rng *rand.Rand, cfg GeneratorConfig, progress float64) int {
	base := float64(cfg.BaseVolume)
	var v float64
	if cfg.Distribution == "weibull" {
		k := 2.5
		if cfg.Scenario == "chaos" {
			k = 0.8
		}
		v = base * weibullSample(rng, k, 1.0)
	} else {
		v = base * (0.8 + rng.Float64()*0.4)
	}
	if cfg.Scenario == "drift" {
		v *= 1 + progress
	}
	return int(math.Max(0, math.Round(v)))
}

// groupMix returns per-group shares in shipOptions order.
func groupMix(rng *rand.Rand, scenario string, progress float64) []float64 {
	mix := append([]float64(nil), mildMix...)
	switch scenario {
	case "chaos":
		total := 0.0
		for i := range mix {
			mix[i] = rng.Float64()
			if rng.Float64() < 0.2 {
				mix[i] = 0
			}
			total += mix[i]
		}
		if total == 0 {
			return mildMix
		}
		for i := range mix {
			mix[i] /= total
		}
	case "drift":
		// Premium takes share from standard over the history window.
		shift := 0.2 * progress
		mix[1] += shift
		mix[2] -= shift
	}
	return mix
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

// WriteSQL renders ds as INSERT statements for the warehouse tables.
func WriteSQL(w io.Writer, cfg GeneratorConfig, ds Dataset) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
	}

	p("-- generated by mockgen: scenario=%s distribution=%s seed=%d\n", cfg.Scenario, cfg.Distribution, cfg.Seed)
	p("BEGIN;\n\n")

	for _, o := range shipOptions {
		p("INSERT INTO bits.nship_option_groupings (ship_option, region, legal_entity_id, group_type_name, group_name) VALUES (%s, 'EU', %d, 'SHIP_OPTION_GROUP_OB', %s);\n",
			quote(o.option), cfg.LegalEntity, quote(o.group))
	}
	p("\n")

	for _, s := range ds.Shipments {
		p("INSERT INTO bits.d_outbound_ship_items_eu (warehouse_id, ship_day, region_id, legal_entity_id, fulfillment_shipment_id, package_id, ordering_ship_option, pkg_ship_method) VALUES (%s, '%s', 'EU', %d, %s, %s, %s, 'GROUND');\n",
			quote(cfg.Warehouse), calendar.Format(s.ShipDay), cfg.LegalEntity, quote(s.ShipmentID), quote(s.PackageID), quote(s.ShipOption))
	}
	p("\n")

	for _, f := range ds.Forecast {
		p("INSERT INTO eunpsa.daily_forecast_tr (region, org, forecast_date, target_date, fc, flow, metric_name, metric_value) VALUES (%s, %s, '%s', '%s', %s, %s, %s, %.0f);\n",
			quote(f.Region), quote(f.Org), calendar.Format(f.ForecastDate), calendar.Format(f.TargetDate),
			quote(f.Warehouse), quote(f.Flow), quote(f.MetricName), f.AggregatePackages)
	}
	p("\n")

	for _, o := range ds.Output {
		p("INSERT INTO lumis.output_raw (simulation_title, scenario_id, carrier, sort_code, cpt_datetime, nb_packages) VALUES (%s, 'scenario', %s, %s, '%s', %d);\n",
			quote(cfg.Title), quote(o.Carrier), quote(o.SortCode), o.CPT.Format("2006-01-02 15:04:05"), o.Packages)
	}

	p("\nCOMMIT;\n")
	return bw.Flush()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Save writes the seed script to outDir/<name>.sql.
func Save(outDir, name string, cfg GeneratorConfig, ds Dataset) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, name+".sql")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := WriteSQL(f, cfg, ds); err != nil {
		return "", err
	}
	return path, f.Close()
}
