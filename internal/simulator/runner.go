package simulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"lumator/internal/errs"

	"github.com/rs/zerolog/log"
)

// Phase names one simulator invocation.
type Phase string

const (
	PhaseBaseline Phase = "baseline"
	PhaseScenario Phase = "scenario"
)

// Config describes the simulator installation and how to launch it.
type Config struct {
	Dir             string
	Interpreter     string
	InterpreterArgs []string
	BaselineScript  string
	ScenarioScript  string
	Timeout         time.Duration // per phase; zero means no limit
	Env             []string      // appended to the inherited environment
}

// Result is the outcome of one phase.
type Result struct {
	Phase    Phase         `json:"phase"`
	Command  []string      `json:"command"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports a clean exit.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Runner executes the baseline and scenario phases.
type Runner struct {
	cfg Config
}

func NewRunner(cfg Config) *Runner {
	return &Runner{cfg: cfg}
}

// Run executes baseline then scenario. It stops at the first failing phase and
// returns the results gathered so far with an error wrapping ErrExternalProcess.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	phases := []struct {
		phase  Phase
		script string
	}{
		{PhaseBaseline, r.cfg.BaselineScript},
		{PhaseScenario, r.cfg.ScenarioScript},
	}

	results := make([]Result, 0, len(phases))
	for _, p := range phases {
		res, err := r.runPhase(ctx, p.phase, p.script)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (r *Runner) runPhase(ctx context.Context, phase Phase, script string) (Result, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, r.cfg.InterpreterArgs...), filepath.Join(r.cfg.Dir, script))
	cmd := exec.CommandContext(ctx, r.cfg.Interpreter, args...)
	cmd.Dir = r.cfg.Dir
	if len(r.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), r.cfg.Env...)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	res := Result{Phase: phase, Command: append([]string{r.cfg.Interpreter}, args...)}
	log.Info().Str("phase", string(phase)).Strs("command", res.Command).Msg("Running simulator")

	start := time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(start)
	res.Output = out.String()
	res.ExitCode = exitCode(cmd, runErr)

	if runErr != nil {
		log.Error().
			Str("phase", string(phase)).
			Int("exit_code", res.ExitCode).
			Dur("duration", res.Duration).
			Str("output_tail", tail(res.Output, 2048)).
			Err(runErr).
			Msg("Simulator phase failed")

		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%w: %s phase: %v", errs.ErrExternalProcess, phase, ctxErr)
		}
		return res, fmt.Errorf("%w: %s phase exited with status %d: %v", errs.ErrExternalProcess, phase, res.ExitCode, runErr)
	}

	log.Info().Str("phase", string(phase)).Dur("duration", res.Duration).Msg("Simulator phase finished")
	return res, nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		return -1
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return 0
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
