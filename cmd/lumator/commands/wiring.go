package commands

import (
	"context"
	"fmt"

	"lumator/internal/config"
	"lumator/internal/demand"
	"lumator/internal/metrics"
	"lumator/internal/notify"
	"lumator/internal/pipeline"
	"lumator/internal/ratiocache"
	"lumator/internal/simulator"
	"lumator/internal/warehouse"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// services are the long-lived collaborators of one command invocation.
type services struct {
	pool    *pgxpool.Pool
	redis   *redis.Client
	repo    *warehouse.Repository
	ratios  *ratiocache.Cache
	metrics *metrics.Recorder
}

func openServices(ctx context.Context, c *config.AppConfig) (*services, error) {
	pool, err := warehouse.NewPool(ctx, c.Warehouse.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to warehouse: %w", err)
	}

	s := &services{pool: pool, metrics: metrics.New()}
	s.repo = warehouse.NewRepository(pool, warehouse.RetryPolicy{
		Timeout:  c.Warehouse.QueryTimeout,
		Attempts: c.Warehouse.QueryRetries,
		Backoff:  c.Warehouse.RetryBackoff,
	}, c.Warehouse.LegalEntityID)

	var cacheOpts []ratiocache.Option
	if c.Cache.RedisAddr != "" {
		s.redis = redis.NewClient(&redis.Options{Addr: c.Cache.RedisAddr, DB: c.Cache.RedisDB})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", c.Cache.RedisAddr).Msg("Redis unavailable, ratios are cached for this run only")
		}
		cacheOpts = append(cacheOpts, ratiocache.WithRedis(s.redis, c.Cache.TTL))
	}
	s.ratios = ratiocache.New(demand.NewRatioCalculator(s.repo), cacheOpts...)
	return s, nil
}

func (s *services) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	s.pool.Close()
}

// pushMetrics records cache statistics and pushes the registry when configured.
func (s *services) pushMetrics(c *config.AppConfig, runID string) {
	s.metrics.RecordRatioCache(s.ratios.Stats())
	if err := s.metrics.Push(c.Metrics.PushgatewayURL, c.Metrics.Job, runID); err != nil {
		log.Warn().Err(err).Msg("Failed to push metrics")
	}
}

func disaggregator(c *config.AppConfig, ratios demand.RatioSource) *demand.Disaggregator {
	opts := []demand.Option{demand.WithUnitsPerPackage(c.Demand.UnitsPerPackage)}
	if c.Demand.Rebalance {
		opts = append(opts, demand.WithLargestRemainder())
	}
	return demand.NewDisaggregator(ratios, opts...)
}

func simulatorRunner(c *config.AppConfig) *simulator.Runner {
	return simulator.NewRunner(simulator.Config{
		Dir:            c.Simulator.Dir,
		Interpreter:    c.Simulator.Interpreter,
		BaselineScript: c.Simulator.BaselineScript,
		ScenarioScript: c.Simulator.ScenarioScript,
		Timeout:        c.Simulator.Timeout,
	})
}

// mailer returns nil when no relay or recipient is configured. to overrides
// the configured recipients.
func mailer(c *config.AppConfig, to []string) *notify.Mailer {
	eff := *c
	if len(to) > 0 {
		eff.Mail.To = to
	}
	if !eff.MailEnabled() {
		return nil
	}
	return notify.NewSMTPMailer(notify.Config{
		From:     c.Mail.From,
		To:       eff.Mail.To,
		Subject:  c.Mail.Subject,
		BodyFile: c.Mail.BodyFile,
	}, c.Mail.Host, c.Mail.Port, c.Mail.Username, c.Mail.Password)
}

func settings(c *config.AppConfig) pipeline.Settings {
	return pipeline.Settings{
		Warehouse:           c.Demand.Warehouse,
		WorkDir:             c.Paths.WorkDir,
		DemandFile:          c.Paths.DemandFile,
		ParameterFile:       c.Paths.ParameterFile,
		SimulatorDir:        c.Simulator.Dir,
		ReportPath:          c.Paths.ReportPath,
		CountryID:           c.Simulator.CountryID,
		ActualsExtractionID: c.Simulator.ActualsExtractionID,
		LoadInputChangers:   c.Simulator.LoadInputChangers,
		ActivateF2PLight:    c.Simulator.ActivateF2PLight,
	}
}

func newPipeline(c *config.AppConfig, s *services, to []string) *pipeline.Runner {
	opts := []pipeline.Option{pipeline.WithRecorder(s.metrics)}
	if m := mailer(c, to); m != nil {
		opts = append(opts, pipeline.WithMailer(m))
	}
	return pipeline.NewRunner(settings(c), s.repo, disaggregator(c, s.ratios), s.repo, simulatorRunner(c), opts...)
}
