package warehouse

import (
	"context"
	"fmt"
	"time"

	"lumator/internal/calendar"
	"lumator/internal/demand"
	"lumator/internal/errs"
	"lumator/internal/results"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// ForecastMetric is the forecast measure disaggregated by a run.
const ForecastMetric = "Forecasted Customer Shipments"

// ScenarioID selects the scenario run in the simulator output.
const ScenarioID = "scenario"

// Querier is the subset of pgxpool.Pool used by the repository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository reads forecasts, shipment history and simulator output.
type Repository struct {
	db            Querier
	retry         RetryPolicy
	legalEntityID int
}

var _ demand.ShipmentHistory = (*Repository)(nil)

func NewRepository(db Querier, retry RetryPolicy, legalEntityID int) *Repository {
	return &Repository{db: db, retry: retry, legalEntityID: legalEntityID}
}

const forecastQuery = `
	SELECT
	    region,
	    org,
	    forecast_date,
	    target_date,
	    fc,
	    flow,
	    metric_name,
	    metric_value::float8
	FROM eunpsa.daily_forecast_tr
	WHERE target_date BETWEEN $1 AND $2
	  AND metric_name = $3
	  AND fc = $4
	GROUP BY 1, 2, 3, 4, 5, 6, 7, 8
	ORDER BY target_date, fc`

// Forecast returns the aggregate forecast rows for warehouse with target dates
// in [from, to]. An empty result is ErrDataUnavailable.
func (r *Repository) Forecast(ctx context.Context, warehouse string, from, to time.Time) ([]demand.ForecastRow, error) {
	var out []demand.ForecastRow
	err := r.retry.do(ctx, "forecast", func(ctx context.Context) error {
		out = out[:0]
		rows, err := r.db.Query(ctx, forecastQuery, calendar.Day(from), calendar.Day(to), ForecastMetric, warehouse)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var row demand.ForecastRow
			if err := rows.Scan(
				&row.Region,
				&row.Org,
				&row.ForecastDate,
				&row.TargetDate,
				&row.Warehouse,
				&row.Flow,
				&row.MetricName,
				&row.AggregatePackages,
			); err != nil {
				return permanent(fmt.Errorf("scan: %w", err))
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("warehouse.Forecast: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("warehouse.Forecast: %w: no forecast for %s between %s and %s",
			errs.ErrDataUnavailable, warehouse, calendar.Format(from), calendar.Format(to))
	}

	log.Debug().Str("warehouse", warehouse).Int("rows", len(out)).Msg("Loaded demand forecast")
	return out, nil
}

const groupCountsQuery = `
	SELECT
	    COALESCE(sog.group_name, '') AS ship_option_group,
	    COUNT(DISTINCT osp.fulfillment_shipment_id || osp.package_id) AS sub_total
	FROM bits.d_outbound_ship_items_eu osp
	LEFT JOIN bits.nship_method_groupings smg
	    ON osp.pkg_ship_method = smg.ship_method
	   AND osp.region_id = smg.region
	   AND osp.legal_entity_id = smg.legal_entity_id
	LEFT JOIN bits.nship_option_groupings sog
	    ON osp.ordering_ship_option = sog.ship_option
	   AND osp.region_id = sog.region
	   AND osp.legal_entity_id = sog.legal_entity_id
	WHERE osp.warehouse_id = $1
	  AND osp.ship_day = $2
	  AND sog.group_type_name = 'SHIP_OPTION_GROUP_OB'
	  AND osp.legal_entity_id = $3
	GROUP BY 1`

// GroupCounts returns distinct package counts per raw ship-option group for one
// ship day. Mapping onto canonical groups is left to the demand package.
func (r *Repository) GroupCounts(ctx context.Context, warehouse string, day time.Time) ([]demand.GroupCount, error) {
	var out []demand.GroupCount
	err := r.retry.do(ctx, "group_counts", func(ctx context.Context) error {
		out = out[:0]
		rows, err := r.db.Query(ctx, groupCountsQuery, warehouse, calendar.Day(day), r.legalEntityID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c demand.GroupCount
			if err := rows.Scan(&c.RawGroup, &c.Count); err != nil {
				return permanent(fmt.Errorf("scan: %w", err))
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("warehouse.GroupCounts: %w", err)
	}
	return out, nil
}

const rawResultsQuery = `
	SELECT
	    carrier,
	    sort_code,
	    cpt_datetime,
	    COALESCE(nb_packages, 0)::bigint
	FROM lumis.output_raw
	WHERE simulation_title = $1
	  AND scenario_id = $2
	  AND cpt_datetime >= $3
	  AND cpt_datetime < $4`

// RawResults returns simulator output rows of a simulation with a CPT on one of
// the numDays dates after start.
func (r *Repository) RawResults(ctx context.Context, title string, start time.Time, numDays int) ([]results.RawRow, error) {
	from := calendar.Day(start).AddDate(0, 0, 1)
	to := from.AddDate(0, 0, numDays)

	var out []results.RawRow
	err := r.retry.do(ctx, "raw_results", func(ctx context.Context) error {
		out = out[:0]
		rows, err := r.db.Query(ctx, rawResultsQuery, title, ScenarioID, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var row results.RawRow
			if err := rows.Scan(&row.Carrier, &row.SortCode, &row.CPT, &row.Packages); err != nil {
				return permanent(fmt.Errorf("scan: %w", err))
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("warehouse.RawResults: %w", err)
	}

	log.Debug().Str("simulation_title", title).Int("rows", len(out)).Msg("Loaded simulator output")
	return out, nil
}
