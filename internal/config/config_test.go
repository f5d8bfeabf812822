package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
)

func TestFromEnv_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)

	cfg, err := FromEnv("")
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"warehouse", cfg.Demand.Warehouse, "XTRA"},
		{"days ahead", cfg.Demand.DaysAhead, 3},
		{"country", cfg.Simulator.CountryID, "EU"},
		{"actuals extraction", cfg.Simulator.ActualsExtractionID, "DEFAULT"},
		{"legal entity", cfg.Warehouse.LegalEntityID, 141},
		{"baseline script", cfg.Simulator.BaselineScript, "Lumis.py"},
		{"scenario script", cfg.Simulator.ScenarioScript, "Lumis_scenario.py"},
		{"subject", cfg.Mail.Subject, "Lumis Forecast"},
		{"mail port", cfg.Mail.Port, 25},
		{"query timeout", cfg.Warehouse.QueryTimeout, 5 * time.Minute},
		{"report path", cfg.Paths.ReportPath, filepath.Join(dir, "output", "forecast_out.csv")},
		{"simulator dir", cfg.Simulator.Dir, filepath.Join(dir, "simulator")},
		{"demand file", cfg.Paths.DemandFile, "__demand.txt"},
		{"mail disabled", cfg.MailEnabled(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if _, err := os.Stat(cfg.Paths.WorkDir); err != nil {
		t.Errorf("work directory not created: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Errorf("logs directory created under DATA_PATH, stat err = %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("WAREHOUSE_ID", "XTRB")
	t.Setenv("LOAD_INPUT_CHANGERS", "true")
	t.Setenv("UNITS_PER_PACKAGE", "2.5")
	t.Setenv("SIMULATOR_TIMEOUT", "90m")
	t.Setenv("MAIL_HOST", "relay.local")
	t.Setenv("MAIL_FROM", "lumis@example.com")
	t.Setenv("MAIL_TO", "a@example.com,b@example.com")

	cfg, err := FromEnv("")
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Demand.Warehouse != "XTRB" {
		t.Errorf("Warehouse = %q, want XTRB", cfg.Demand.Warehouse)
	}
	if !cfg.Simulator.LoadInputChangers {
		t.Error("LoadInputChangers = false, want true")
	}
	if cfg.Demand.UnitsPerPackage != 2.5 {
		t.Errorf("UnitsPerPackage = %v, want 2.5", cfg.Demand.UnitsPerPackage)
	}
	if cfg.Simulator.Timeout != 90*time.Minute {
		t.Errorf("Timeout = %v, want 90m", cfg.Simulator.Timeout)
	}
	if len(cfg.Mail.To) != 2 || cfg.Mail.To[1] != "b@example.com" {
		t.Errorf("To = %v, want two recipients", cfg.Mail.To)
	}
	if cfg.Mail.From != "lumis@example.com" {
		t.Errorf("From = %q, want lumis@example.com", cfg.Mail.From)
	}
	if !cfg.MailEnabled() {
		t.Error("MailEnabled() = false, want true")
	}
}

func TestFromEnv_RelayRequiresSender(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("MAIL_HOST", "relay.local")
	t.Setenv("MAIL_TO", "a@example.com")

	if _, err := FromEnv(""); err == nil {
		t.Fatal("FromEnv() with MAIL_HOST and no MAIL_FROM succeeded, want error")
	}

	t.Setenv("MAIL_FROM", "lumis@example.com")
	if _, err := FromEnv(""); err != nil {
		t.Errorf("FromEnv() with MAIL_FROM set error = %v", err)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad bool", "ACTIVATE_F2P_LIGHT", "maybe"},
		{"bad duration", "QUERY_TIMEOUT", "soon"},
		{"zero days", "DAYS_AHEAD", "0"},
		{"bad recipient", "MAIL_TO", "not-an-address"},
		{"bad port", "MAIL_PORT", "smtp"},
		{"empty warehouse", "WAREHOUSE_ID", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATA_PATH", t.TempDir())
			t.Setenv(tt.key, tt.value)
			if _, err := FromEnv(""); err == nil {
				t.Errorf("FromEnv() with %s=%q succeeded, want error", tt.key, tt.value)
			}
		})
	}
}

func TestGodotenvQuoting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `MAIL_SUBJECT='Lumis "Forecast"'`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("Error reading env: %v", err)
	}

	expected := `Lumis "Forecast"`
	if env["MAIL_SUBJECT"] != expected {
		t.Errorf("Expected %s, got %s", expected, env["MAIL_SUBJECT"])
	}
}
