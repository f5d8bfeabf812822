package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"lumator/internal/calendar"
	"lumator/internal/demand"
	"lumator/internal/results"
	"lumator/internal/simfile"
	"lumator/internal/simulator"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Step names, also used as metric labels.
const (
	StepForecast     = "forecast"
	StepDisaggregate = "disaggregate"
	StepWriteFiles   = "write_files"
	StepStage        = "stage"
	StepSimulate     = "simulate"
	StepExtract      = "extract"
	StepReport       = "report"
	StepMail         = "mail"
)

// ForecastSource provides the aggregate forecast.
type ForecastSource interface {
	Forecast(ctx context.Context, warehouse string, from, to time.Time) ([]demand.ForecastRow, error)
}

// Disaggregator splits forecast rows into per-group demand records.
type Disaggregator interface {
	Disaggregate(ctx context.Context, rows []demand.ForecastRow) ([]demand.DemandRecord, error)
}

// ResultSource provides raw simulator output.
type ResultSource interface {
	RawResults(ctx context.Context, title string, start time.Time, numDays int) ([]results.RawRow, error)
}

// Simulator runs the baseline and scenario phases.
type Simulator interface {
	Run(ctx context.Context) ([]simulator.Result, error)
}

// Mailer delivers the report.
type Mailer interface {
	Send(ctx context.Context, reportPath string) error
}

// Recorder receives run metrics.
type Recorder interface {
	RecordStep(step string, d time.Duration, err error)
	RecordDemand(records int, packages int64)
	RecordReport(rows int)
	MarkSuccess(at time.Time)
}

// Settings are the fixed locations and simulator parameters of a deployment.
type Settings struct {
	Warehouse           string
	WorkDir             string
	DemandFile          string
	ParameterFile       string
	SimulatorDir        string
	ReportPath          string
	CountryID           string
	ActualsExtractionID string
	LoadInputChangers   bool
	ActivateF2PLight    bool
}

// Options control a single run.
type Options struct {
	StartDate     time.Time // zero means today
	DaysAhead     int
	Title         string // empty means DefaultTitle(start)
	RunID         string // empty means a fresh UUID
	SkipSimulator bool
	NoMail        bool
}

// Report summarizes a run.
type Report struct {
	RunID         string
	Title         string
	StartDate     time.Time
	Records       int
	Packages      int64
	DemandPath    string
	ParameterPath string
	Simulator     []simulator.Result
	Table         results.Table
	ReportPath    string
	Mailed        bool
}

// DefaultTitle is the simulation title used when none is given.
func DefaultTitle(start time.Time) string {
	return "TR-" + calendar.Format(start)
}

// Runner executes the forecast-to-report pipeline.
type Runner struct {
	settings      Settings
	forecasts     ForecastSource
	disaggregator Disaggregator
	results       ResultSource
	simulator     Simulator
	mailer        Mailer
	metrics       Recorder
	now           func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithMailer enables step 8.
func WithMailer(m Mailer) Option {
	return func(r *Runner) { r.mailer = m }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(m Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithClock overrides the clock used for default dates.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func NewRunner(s Settings, forecasts ForecastSource, d Disaggregator, res ResultSource, sim Simulator, opts ...Option) *Runner {
	r := &Runner{
		settings:      s,
		forecasts:     forecasts,
		disaggregator: d,
		results:       res,
		simulator:     sim,
		metrics:       nopRecorder{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the full pipeline, aborting on the first error.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	rep := r.newReport(opts)
	start := rep.StartDate
	logger := log.With().Str("run_id", rep.RunID).Str("simulation_title", rep.Title).Logger()
	logger.Info().
		Str("start_date", calendar.Format(start)).
		Int("days_ahead", opts.DaysAhead).
		Str("warehouse", r.settings.Warehouse).
		Msg("Pipeline started")

	var rows []demand.ForecastRow
	err := r.step(ctx, StepForecast, func(ctx context.Context) (err error) {
		rows, err = r.forecasts.Forecast(ctx, r.settings.Warehouse, start, start.AddDate(0, 0, opts.DaysAhead))
		return err
	})
	if err != nil {
		return rep, err
	}

	var records []demand.DemandRecord
	err = r.step(ctx, StepDisaggregate, func(ctx context.Context) (err error) {
		records, err = r.disaggregator.Disaggregate(ctx, rows)
		return err
	})
	if err != nil {
		return rep, err
	}
	rep.Records = len(records)
	for _, rec := range records {
		rep.Packages += rec.Packages
	}
	r.metrics.RecordDemand(rep.Records, rep.Packages)

	rep.DemandPath = filepath.Join(r.settings.WorkDir, r.settings.DemandFile)
	rep.ParameterPath = filepath.Join(r.settings.WorkDir, r.settings.ParameterFile)
	err = r.step(ctx, StepWriteFiles, func(context.Context) error {
		if err := simfile.WriteDemandFile(rep.DemandPath, records); err != nil {
			return err
		}
		return simfile.WriteParameterFile(rep.ParameterPath, r.parameters(rep))
	})
	if err != nil {
		return rep, err
	}

	err = r.step(ctx, StepStage, func(context.Context) error {
		return simfile.Stage(r.settings.SimulatorDir, rep.DemandPath, rep.ParameterPath)
	})
	if err != nil {
		return rep, err
	}

	if opts.SkipSimulator {
		logger.Info().Str("demand_file", rep.DemandPath).Msg("Simulator skipped, input files staged")
		r.metrics.MarkSuccess(r.now())
		return rep, nil
	}

	err = r.step(ctx, StepSimulate, func(ctx context.Context) (err error) {
		rep.Simulator, err = r.simulator.Run(ctx)
		return err
	})
	if err != nil {
		return rep, err
	}

	if err := r.extract(ctx, rep, opts); err != nil {
		return rep, err
	}

	logger.Info().
		Int("records", rep.Records).
		Int64("packages", rep.Packages).
		Str("report", rep.ReportPath).
		Bool("mailed", rep.Mailed).
		Msg("Pipeline finished")
	r.metrics.MarkSuccess(r.now())
	return rep, nil
}

// Reconstruct re-runs result extraction, report writing and delivery for a
// simulation that already ran.
func (r *Runner) Reconstruct(ctx context.Context, opts Options) (*Report, error) {
	rep := r.newReport(opts)
	if err := r.extract(ctx, rep, opts); err != nil {
		return rep, err
	}
	r.metrics.MarkSuccess(r.now())
	return rep, nil
}

func (r *Runner) extract(ctx context.Context, rep *Report, opts Options) error {
	err := r.step(ctx, StepExtract, func(ctx context.Context) error {
		raw, err := r.results.RawResults(ctx, rep.Title, rep.StartDate, opts.DaysAhead)
		if err != nil {
			return err
		}
		rep.Table = results.Reconstruct(raw, rep.StartDate, opts.DaysAhead)
		return nil
	})
	if err != nil {
		return err
	}
	r.metrics.RecordReport(len(rep.Table.Rows))

	rep.ReportPath = r.settings.ReportPath
	err = r.step(ctx, StepReport, func(context.Context) error {
		return results.WriteReport(rep.ReportPath, rep.Table)
	})
	if err != nil {
		return err
	}

	if opts.NoMail || r.mailer == nil {
		log.Info().Str("report", rep.ReportPath).Msg("Mail delivery skipped")
		return nil
	}
	err = r.step(ctx, StepMail, func(ctx context.Context) error {
		return r.mailer.Send(ctx, rep.ReportPath)
	})
	if err != nil {
		return err
	}
	rep.Mailed = true
	return nil
}

func (r *Runner) newReport(opts Options) *Report {
	start := calendar.Day(opts.StartDate)
	if opts.StartDate.IsZero() {
		start = calendar.Day(r.now())
	}
	rep := &Report{RunID: opts.RunID, Title: opts.Title, StartDate: start}
	if rep.RunID == "" {
		rep.RunID = uuid.NewString()
	}
	if rep.Title == "" {
		rep.Title = DefaultTitle(start)
	}
	return rep
}

func (r *Runner) parameters(rep *Report) simfile.Parameters {
	return simfile.Parameters{
		SimulationTitle:     rep.Title,
		RunID:               rep.RunID,
		CountryID:           r.settings.CountryID,
		ActualsExtractionID: r.settings.ActualsExtractionID,
		LoadInputChangers:   r.settings.LoadInputChangers,
		ActivateF2PLight:    r.settings.ActivateF2PLight,
	}
}

func (r *Runner) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	started := time.Now()
	log.Info().Str("step", name).Msg("Step started")
	err := fn(ctx)
	elapsed := time.Since(started)
	r.metrics.RecordStep(name, elapsed, err)

	if err != nil {
		log.Error().Err(err).Str("step", name).Dur("duration", elapsed).Msg("Step failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Info().Str("step", name).Dur("duration", elapsed).Msg("Step finished")
	return nil
}

type nopRecorder struct{}

func (nopRecorder) RecordStep(string, time.Duration, error) {}
func (nopRecorder) RecordDemand(int, int64)                 {}
func (nopRecorder) RecordReport(int)                        {}
func (nopRecorder) MarkSuccess(time.Time)                   {}
