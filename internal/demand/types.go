package demand

import (
	"context"
	"time"
)

// Group is a canonical shipping-option group (SOG).
type Group string

const (
	GroupSame       Group = "SAME"
	GroupPremium    Group = "PREMIUM"
	GroupStandard   Group = "STANDARD"
	GroupEconomy    Group = "ECONOMY"
	GroupPremiumTwo Group = "PREMIUM-TWO"
)

// CanonicalGroups is the closed set of groups in emission order.
var CanonicalGroups = []Group{GroupSame, GroupPremium, GroupStandard, GroupEconomy, GroupPremiumTwo}

// rawGroupNames maps warehouse ship-option grouping names onto canonical groups.
var rawGroupNames = map[string]Group{
	"PREMIUM-SAME": GroupSame,
	"PREMIUM-NEXT": GroupPremium,
	"STANDARD":     GroupStandard,
	"ECONOMY":      GroupEconomy,
	"PREMIUM-TWO":  GroupPremiumTwo,
}

// CanonicalGroup resolves a raw grouping name. Unmapped names return false.
func CanonicalGroup(raw string) (Group, bool) {
	g, ok := rawGroupNames[raw]
	return g, ok
}

// ForecastRow is one aggregate forecast line for a warehouse and target date.
type ForecastRow struct {
	Region            string    `json:"region"`
	Org               string    `json:"org"`
	ForecastDate      time.Time `json:"forecast_date"`
	TargetDate        time.Time `json:"target_date"`
	Warehouse         string    `json:"warehouse"`
	Flow              string    `json:"flow"`
	MetricName        string    `json:"metric_name"`
	AggregatePackages float64   `json:"aggregate_package_count"`
}

// GroupCount is a raw historical shipment count as returned by the warehouse.
type GroupCount struct {
	RawGroup string
	Count    int64
}

// GroupRatio is the share of one canonical group on a sample date.
type GroupRatio struct {
	Group      Group   `json:"shipping_option_group"`
	Proportion float64 `json:"proportion"`
}

// DemandRecord is one disaggregated line of the simulator demand file.
type DemandRecord struct {
	Warehouse string `json:"warehouse"`
	Group     Group  `json:"sog"`
	Day       int    `json:"order_or_slam_day"`
	Month     int    `json:"order_or_slam_month"`
	Year      int    `json:"order_or_slam_year"`
	Packages  int64  `json:"nb_packages"`
	Units     int64  `json:"units"`
}

// ShipmentHistory returns raw per-group shipment counts for a warehouse and ship day.
type ShipmentHistory interface {
	GroupCounts(ctx context.Context, warehouse string, day time.Time) ([]GroupCount, error)
}

// RatioSource provides the SOG ratios for a sample date.
type RatioSource interface {
	Ratios(ctx context.Context, sampleDate time.Time, warehouse string) ([]GroupRatio, error)
}
