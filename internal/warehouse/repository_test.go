package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"lumator/internal/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRows replays fixed values through the pgx.Rows interface.
type fakeRows struct {
	data [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		var ok bool
		switch p := d.(type) {
		case *string:
			*p, ok = row[i].(string)
		case *time.Time:
			*p, ok = row[i].(time.Time)
		case *float64:
			*p, ok = row[i].(float64)
		case *int64:
			*p, ok = row[i].(int64)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
		if !ok {
			return fmt.Errorf("scan: cannot assign %T to %T in column %d", row[i], d, i)
		}
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

type fakeQuerier struct {
	responses []func() (pgx.Rows, error)
	calls     []call
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.calls = append(q.calls, call{sql: sql, args: args})
	i := len(q.calls) - 1
	if i >= len(q.responses) {
		i = len(q.responses) - 1
	}
	return q.responses[i]()
}

func rowsOf(data ...[]any) func() (pgx.Rows, error) {
	return func() (pgx.Rows, error) {
		return &fakeRows{data: data}, nil
	}
}

func failWith(err error) func() (pgx.Rows, error) {
	return func() (pgx.Rows, error) {
		return nil, err
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var fastRetry = RetryPolicy{Attempts: 3, Backoff: time.Millisecond}

func TestForecast(t *testing.T) {
	q := &fakeQuerier{responses: []func() (pgx.Rows, error){
		rowsOf(
			[]any{"EU", "TR", day(2024, 3, 10), day(2024, 3, 11), "XTRA", "OUTBOUND", ForecastMetric, 1000.0},
			[]any{"EU", "TR", day(2024, 3, 10), day(2024, 3, 12), "XTRA", "OUTBOUND", ForecastMetric, 1200.0},
		),
	}}
	repo := NewRepository(q, fastRetry, 141)

	rows, err := repo.Forecast(context.Background(), "XTRA", day(2024, 3, 10), day(2024, 3, 13))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, day(2024, 3, 11), rows[0].TargetDate)
	assert.Equal(t, 1200.0, rows[1].AggregatePackages)

	require.Len(t, q.calls, 1)
	assert.Equal(t, []any{day(2024, 3, 10), day(2024, 3, 13), ForecastMetric, "XTRA"}, q.calls[0].args)
	assert.NotContains(t, q.calls[0].sql, "XTRA", "values are bound, never interpolated")
	assert.NotContains(t, q.calls[0].sql, "2024")
}

func TestForecast_EmptyIsDataUnavailable(t *testing.T) {
	q := &fakeQuerier{responses: []func() (pgx.Rows, error){rowsOf()}}
	_, err := NewRepository(q, fastRetry, 141).Forecast(context.Background(), "XTRA", day(2024, 3, 10), day(2024, 3, 13))
	assert.ErrorIs(t, err, errs.ErrDataUnavailable)
	assert.Len(t, q.calls, 1, "empty results are not retried")
}

func TestGroupCounts(t *testing.T) {
	q := &fakeQuerier{responses: []func() (pgx.Rows, error){
		rowsOf([]any{"PREMIUM-SAME", int64(12)}, []any{"STANDARD", int64(40)}),
	}}
	counts, err := NewRepository(q, fastRetry, 141).GroupCounts(context.Background(), "XTRA", time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "PREMIUM-SAME", counts[0].RawGroup)
	assert.Equal(t, int64(40), counts[1].Count)
	assert.Equal(t, []any{"XTRA", day(2024, 3, 4), 141}, q.calls[0].args)
}

func TestGroupCounts_RetriesTransientErrors(t *testing.T) {
	q := &fakeQuerier{responses: []func() (pgx.Rows, error){
		failWith(errors.New("connection reset by peer")),
		rowsOf([]any{"ECONOMY", int64(3)}),
	}}
	counts, err := NewRepository(q, fastRetry, 141).GroupCounts(context.Background(), "XTRA", day(2024, 3, 4))
	require.NoError(t, err)
	assert.Len(t, counts, 1)
	assert.Len(t, q.calls, 2)
}

func TestGroupCounts_DoesNotRetryServerErrors(t *testing.T) {
	q := &fakeQuerier{responses: []func() (pgx.Rows, error){
		failWith(&pgconn.PgError{Code: "42P01", Message: "relation does not exist"}),
	}}
	_, err := NewRepository(q, fastRetry, 141).GroupCounts(context.Background(), "XTRA", day(2024, 3, 4))
	require.Error(t, err)
	assert.Len(t, q.calls, 1)
}

func TestGroupCounts_DoesNotRetryScanErrors(t *testing.T) {
	q := &fakeQuerier{responses: []func() (pgx.Rows, error){
		rowsOf([]any{"STANDARD", "fifty"}),
	}}
	_, err := NewRepository(q, fastRetry, 141).GroupCounts(context.Background(), "XTRA", day(2024, 3, 4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan")
	assert.Len(t, q.calls, 1, "a row that does not fit fails the same way on every attempt")
}

func TestGroupCounts_GivesUpAfterAttempts(t *testing.T) {
	q := &fakeQuerier{responses: []func() (pgx.Rows, error){failWith(errors.New("timeout"))}}
	_, err := NewRepository(q, fastRetry, 141).GroupCounts(context.Background(), "XTRA", day(2024, 3, 4))
	require.Error(t, err)
	assert.Len(t, q.calls, 3)
}

func TestGroupCounts_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q := &fakeQuerier{responses: []func() (pgx.Rows, error){failWith(context.Canceled)}}
	_, err := NewRepository(q, fastRetry, 141).GroupCounts(ctx, "XTRA", day(2024, 3, 4))
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, q.calls, 1)
}

func TestRawResults_Window(t *testing.T) {
	q := &fakeQuerier{responses: []func() (pgx.Rows, error){
		rowsOf([]any{"ARAS", "IST1", time.Date(2024, 3, 11, 14, 30, 0, 0, time.UTC), int64(15)}),
	}}
	raw, err := NewRepository(q, fastRetry, 141).RawResults(context.Background(), "TR-2024-03-10", day(2024, 3, 10), 3)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "ARAS", raw[0].Carrier)

	args := q.calls[0].args
	assert.Equal(t, "TR-2024-03-10", args[0])
	assert.Equal(t, ScenarioID, args[1])
	assert.Equal(t, day(2024, 3, 11), args[2], "window starts the day after start")
	assert.Equal(t, day(2024, 3, 14), args[3], "window end is exclusive")
	assert.True(t, strings.Contains(q.calls[0].sql, "$4"))
}
