package demand

import (
	"context"
	"fmt"
	"time"

	"lumator/internal/calendar"
	"lumator/internal/errs"

	"github.com/rs/zerolog/log"
)

// RatioCalculator turns historical shipment counts into SOG proportions.
type RatioCalculator struct {
	history ShipmentHistory
}

var _ RatioSource = (*RatioCalculator)(nil)

func NewRatioCalculator(history ShipmentHistory) *RatioCalculator {
	return &RatioCalculator{history: history}
}

// Ratios queries the counts for sampleDate and returns one ratio per canonical
// group with a nonzero count, in canonical order.
func (c *RatioCalculator) Ratios(ctx context.Context, sampleDate time.Time, warehouse string) ([]GroupRatio, error) {
	day := calendar.Day(sampleDate)
	log.Debug().
		Str("warehouse", warehouse).
		Str("sample_date", calendar.Format(day)).
		Str("weekday", day.Weekday().String()).
		Msg("Sampling historic date")

	counts, err := c.history.GroupCounts(ctx, warehouse, day)
	if err != nil {
		return nil, fmt.Errorf("shipment counts for %s on %s: %w", warehouse, calendar.Format(day), err)
	}

	ratios, err := Proportions(counts)
	if err != nil {
		return nil, fmt.Errorf("ratios for %s on %s: %w", warehouse, calendar.Format(day), err)
	}
	return ratios, nil
}

// Proportions maps raw counts onto canonical groups and normalizes them.
// Unmapped groups are excluded from numerator and denominator.
func Proportions(counts []GroupCount) ([]GroupRatio, error) {
	byGroup := make(map[Group]int64, len(CanonicalGroups))
	var total int64
	for _, c := range counts {
		g, ok := CanonicalGroup(c.RawGroup)
		if !ok {
			log.Trace().Str("raw_group", c.RawGroup).Int64("count", c.Count).Msg("Dropping unmapped shipping option group")
			continue
		}
		if c.Count < 0 {
			return nil, fmt.Errorf("negative count %d for group %s", c.Count, c.RawGroup)
		}
		byGroup[g] += c.Count
		total += c.Count
	}

	if total == 0 {
		return nil, fmt.Errorf("%w: no historical shipments in canonical groups", errs.ErrDataUnavailable)
	}

	ratios := make([]GroupRatio, 0, len(byGroup))
	for _, g := range CanonicalGroups {
		n := byGroup[g]
		if n == 0 {
			continue
		}
		ratios = append(ratios, GroupRatio{
			Group:      g,
			Proportion: float64(n) / float64(total),
		})
	}
	return ratios, nil
}
