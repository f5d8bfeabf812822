package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// WarehouseConfig controls the Redshift/Postgres connection.
type WarehouseConfig struct {
	DSN           string        `mapstructure:"dsn"`
	QueryTimeout  time.Duration `mapstructure:"query_timeout" default:"5m" validate:"gt=0"`
	QueryRetries  int           `mapstructure:"query_retries" default:"3" validate:"gte=1,lte=10"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff" default:"2s"`
	LegalEntityID int           `mapstructure:"legal_entity_id" default:"141" validate:"gt=0"`
}

// SimulatorConfig describes the external simulator and its run parameters.
type SimulatorConfig struct {
	Dir                 string        `mapstructure:"dir" default:"simulator"`
	Interpreter         string        `mapstructure:"interpreter" default:"python3" validate:"required"`
	BaselineScript      string        `mapstructure:"baseline_script" default:"Lumis.py" validate:"required"`
	ScenarioScript      string        `mapstructure:"scenario_script" default:"Lumis_scenario.py" validate:"required"`
	Timeout             time.Duration `mapstructure:"timeout" default:"2h" validate:"gt=0"`
	Title               string        `mapstructure:"title"`
	RunID               string        `mapstructure:"run_id"`
	CountryID           string        `mapstructure:"country_id" default:"EU" validate:"required"`
	ActualsExtractionID string        `mapstructure:"actuals_extraction_id" default:"DEFAULT"`
	LoadInputChangers   bool          `mapstructure:"load_input_changers" default:"false"`
	ActivateF2PLight    bool          `mapstructure:"activate_f2p_light" default:"false"`
}

// DemandConfig controls disaggregation.
type DemandConfig struct {
	Warehouse       string  `mapstructure:"warehouse" default:"XTRA" validate:"required"`
	DaysAhead       int     `mapstructure:"days_ahead" default:"3" validate:"gte=1,lte=60"`
	UnitsPerPackage float64 `mapstructure:"units_per_package" default:"1" validate:"gt=0"`
	Rebalance       bool    `mapstructure:"rebalance" default:"false"`
}

// PathsConfig holds file locations.
type PathsConfig struct {
	DataPath      string `mapstructure:"data_path"`
	WorkDir       string `mapstructure:"work_dir"`
	ReportPath    string `mapstructure:"report_path"`
	DemandFile    string `mapstructure:"demand_file" default:"__demand.txt"`
	ParameterFile string `mapstructure:"parameter_file" default:"__parameters.txt"`
}

// MailConfig describes the SMTP relay and the report message.
type MailConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port" default:"25" validate:"gt=0,lte=65535"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from" validate:"required_with=Host,omitempty,email"`
	To       []string `mapstructure:"to" validate:"dive,email"`
	Subject  string   `mapstructure:"subject" default:"Lumis Forecast"`
	BodyFile string   `mapstructure:"body_file" default:"email_body.txt"`
}

// CacheConfig enables the Redis ratio layer when Addr is set.
type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db" default:"0"`
	TTL       time.Duration `mapstructure:"ttl" default:"720h"`
}

// MetricsConfig enables Pushgateway delivery when URL is set.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url" validate:"omitempty,url"`
	Job            string `mapstructure:"job" default:"lumator"`
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Demand    DemandConfig    `mapstructure:"demand"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Mail      MailConfig      `mapstructure:"mail"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// envBindings maps configuration keys onto their environment variables.
var envBindings = map[string]string{
	"warehouse.dsn":             "WAREHOUSE_DSN",
	"warehouse.query_timeout":   "QUERY_TIMEOUT",
	"warehouse.query_retries":   "QUERY_RETRIES",
	"warehouse.retry_backoff":   "QUERY_RETRY_BACKOFF",
	"warehouse.legal_entity_id": "LEGAL_ENTITY_ID",

	"simulator.dir":                   "SIMULATOR_DIR",
	"simulator.interpreter":           "SIMULATOR_INTERPRETER",
	"simulator.baseline_script":       "SIMULATOR_BASELINE_SCRIPT",
	"simulator.scenario_script":       "SIMULATOR_SCENARIO_SCRIPT",
	"simulator.timeout":               "SIMULATOR_TIMEOUT",
	"simulator.title":                 "SIMULATION_TITLE",
	"simulator.run_id":                "RUN_ID",
	"simulator.country_id":            "COUNTRY_ID",
	"simulator.actuals_extraction_id": "ACTUALS_EXTRACTION_ID",
	"simulator.load_input_changers":   "LOAD_INPUT_CHANGERS",
	"simulator.activate_f2p_light":    "ACTIVATE_F2P_LIGHT",

	"demand.warehouse":         "WAREHOUSE_ID",
	"demand.days_ahead":        "DAYS_AHEAD",
	"demand.units_per_package": "UNITS_PER_PACKAGE",
	"demand.rebalance":         "REBALANCE_ROUNDING",

	"paths.data_path":   "DATA_PATH",
	"paths.work_dir":    "WORK_DIR",
	"paths.report_path": "REPORT_PATH",

	"mail.host":      "MAIL_HOST",
	"mail.port":      "MAIL_PORT",
	"mail.username":  "MAIL_USERNAME",
	"mail.password":  "MAIL_PASSWORD",
	"mail.from":      "MAIL_FROM",
	"mail.to":        "MAIL_TO",
	"mail.subject":   "MAIL_SUBJECT",
	"mail.body_file": "MAIL_BODY_FILE",

	"cache.redis_addr": "REDIS_ADDR",
	"cache.redis_db":   "REDIS_DB",
	"cache.ttl":        "RATIO_CACHE_TTL",

	"metrics.pushgateway_url": "PUSHGATEWAY_URL",
	"metrics.job":             "PUSHGATEWAY_JOB",
}

// MailEnabled reports whether a relay and at least one recipient are configured.
func (c *AppConfig) MailEnabled() bool {
	return c.Mail.Host != "" && len(c.Mail.To) > 0
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	return FromEnv(exeDir)
}

// FromEnv builds the configuration from the process environment only.
// Unset variables keep their defaults; MAIL_TO is comma separated.
func FromEnv(exeDir string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	v := viper.New()
	// An explicitly empty variable still overrides, so WAREHOUSE_ID= fails validation.
	v.AllowEmptyEnv(true)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config bind %s: %w", env, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}

	// Resolve data paths
	p := &cfg.Paths
	if p.DataPath == "" {
		if exeDir != "" {
			p.DataPath = exeDir
		} else {
			p.DataPath = "."
		}
	}
	if p.WorkDir == "" {
		p.WorkDir = filepath.Join(p.DataPath, "work")
	}
	if p.ReportPath == "" {
		p.ReportPath = filepath.Join(p.DataPath, "output", "forecast_out.csv")
	}
	if !filepath.IsAbs(cfg.Simulator.Dir) {
		cfg.Simulator.Dir = filepath.Join(p.DataPath, cfg.Simulator.Dir)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(p.WorkDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", p.WorkDir).Msg("Failed to create directory")
	}

	return cfg, nil
}
