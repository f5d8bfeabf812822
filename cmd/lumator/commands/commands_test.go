package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lumator/internal/config"
)

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("LOGS_FOLDER", filepath.Join(dir, "logs"))
}

func TestSampleDateCommand(t *testing.T) {
	setupEnv(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"sample-date", "--today", "2024-03-13", "2024-03-18", "2024-03-24"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := "2024-03-18\t2024-03-04\tMonday\n2024-03-24\t2024-03-10\tSunday\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestSampleDateCommand_BadDate(t *testing.T) {
	setupEnv(t)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"sample-date", "--today", "", "18.03.2024"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "18.03.2024") {
		t.Errorf("Execute() error = %v, want parse error naming the input", err)
	}
}

func TestRunFlagsOptions(t *testing.T) {
	setupEnv(t)
	var err error
	cfg, err = config.FromEnv("")
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	cfg.Simulator.Title = "TR-configured"

	tests := []struct {
		name      string
		flags     runFlags
		wantDays  int
		wantTitle string
		wantStart time.Time
	}{
		{"defaults", runFlags{}, 3, "TR-configured", time.Time{}},
		{"overrides", runFlags{daysAhead: 5, title: "TR-x", startDate: "2024-03-10"}, 5, "TR-x", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := tt.flags.options()
			if err != nil {
				t.Fatalf("options() error = %v", err)
			}
			if opts.DaysAhead != tt.wantDays {
				t.Errorf("DaysAhead = %d, want %d", opts.DaysAhead, tt.wantDays)
			}
			if opts.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", opts.Title, tt.wantTitle)
			}
			if !opts.StartDate.Equal(tt.wantStart) {
				t.Errorf("StartDate = %v, want %v", opts.StartDate, tt.wantStart)
			}
		})
	}

	if _, err := (&runFlags{startDate: "tomorrow"}).options(); err == nil {
		t.Error("options() with bad start date succeeded, want error")
	}
}

func TestMailer(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		to     []string
		flagTo []string
		want   bool
	}{
		{"no relay", "", []string{"a@example.com"}, nil, false},
		{"no recipients", "relay.local", nil, nil, false},
		{"configured recipients", "relay.local", []string{"a@example.com"}, nil, true},
		{"flag recipients", "relay.local", nil, []string{"b@example.com"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &config.AppConfig{}
			c.Mail.Host = tt.host
			c.Mail.Port = 25
			c.Mail.From = "lumis@example.com"
			c.Mail.To = tt.to

			if got := mailer(c, tt.flagTo) != nil; got != tt.want {
				t.Errorf("mailer() != nil = %v, want %v", got, tt.want)
			}
			if len(c.Mail.To) != len(tt.to) {
				t.Errorf("mailer() changed configured recipients to %v", c.Mail.To)
			}
		})
	}
}
