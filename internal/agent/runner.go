// Package agent wraps the external coding-agent CLI. All code reasoning is
// delegated through this boundary; the rest of the system only sees a
// normalized Result.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/kaizen/internal/config"
	"github.com/Iron-Ham/kaizen/internal/logging"
)

// Request describes one agent invocation.
type Request struct {
	Prompt       string
	Model        string
	MaxTurns     int
	AllowedTools []string
	WorkingDir   string
}

// Result is the normalized outcome of an invocation. Failures that would
// otherwise surface as process errors (missing binary, timeout) land here
// as Success=false with a populated Stderr.
type Result struct {
	Output   string
	ExitCode int
	Success  bool
	Stderr   string
}

// Runner invokes the external coding agent.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// Executor abstracts process execution so the command construction and
// result normalization can be tested without a real agent binary.
type Executor interface {
	// Execute runs the command and returns stdout, stderr, and the exit
	// code. A non-zero exit is not an error; err is reserved for failures
	// to run at all (missing binary, context deadline).
	Execute(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// turnBudgetSentinels mark output produced by an agent that ran out of
// turns before finishing; such output is not trustworthy as a phase result.
var turnBudgetSentinels = []string{
	"max turns reached",
	"maximum number of turns",
}

// rateLimitSignals in stderr indicate a transient provider-side rejection
// worth one retry after backoff.
var rateLimitSignals = []string{
	"rate limit",
	"rate_limit",
	"429",
	"overloaded",
}

// CLIRunner shells out to the agent CLI in one-shot print mode.
type CLIRunner struct {
	cfg      config.AgentConfig
	executor Executor
	logger   *logging.Logger
	sleep    func(time.Duration)
}

// NewCLIRunner creates a runner over the configured agent command.
func NewCLIRunner(cfg config.AgentConfig, logger *logging.Logger) *CLIRunner {
	return &CLIRunner{
		cfg:      cfg,
		executor: &systemExecutor{},
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// SetExecutor replaces the process executor, for tests.
func (r *CLIRunner) SetExecutor(e Executor) { r.executor = e }

// SetSleep replaces the backoff sleep, for tests.
func (r *CLIRunner) SetSleep(f func(time.Duration)) { r.sleep = f }

// Run invokes the agent once, retrying exactly once after a fixed backoff
// if stderr carries a rate-limit signal.
func (r *CLIRunner) Run(ctx context.Context, req Request) (Result, error) {
	timeout := time.Duration(r.cfg.TimeoutMinutes) * time.Minute
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := r.runOnce(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if !result.Success && isRateLimited(result.Stderr) {
		backoff := time.Duration(r.cfg.RateLimitBackoffSeconds) * time.Second
		r.logger.Warn("agent rate limited, backing off",
			"backoff_seconds", r.cfg.RateLimitBackoffSeconds)
		r.sleep(backoff)
		return r.runOnce(ctx, req)
	}
	return result, nil
}

func (r *CLIRunner) runOnce(ctx context.Context, req Request) (Result, error) {
	args := []string{"--print"}
	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}
	if req.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(req.MaxTurns))
	}
	if len(req.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(req.AllowedTools, ","))
	}
	args = append(args, req.Prompt)

	started := time.Now()
	stdout, stderr, exitCode, err := r.executor.Execute(ctx, req.WorkingDir, r.cfg.Command, args...)
	elapsed := time.Since(started)

	switch {
	case err == nil:
		// normal completion, zero or not
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.logger.Error("agent timed out", "elapsed", elapsed.Round(time.Second).String())
		return Result{
			ExitCode: -1,
			Stderr:   fmt.Sprintf("agent timed out after %s", elapsed.Round(time.Second)),
		}, nil
	case isMissingBinary(err):
		return Result{
			ExitCode: -1,
			Stderr:   fmt.Sprintf("agent command not found: %s", r.cfg.Command),
		}, nil
	default:
		return Result{}, fmt.Errorf("running agent: %w", err)
	}

	result := Result{
		Output:   strings.TrimSpace(stdout),
		ExitCode: exitCode,
		Stderr:   stderr,
	}
	result.Success = exitCode == 0 && result.Output != "" && !turnBudgetExhausted(result.Output)

	r.logger.Debug("agent run complete",
		"exit_code", exitCode,
		"success", result.Success,
		"output_bytes", len(result.Output),
		"elapsed", elapsed.Round(time.Millisecond).String())
	return result, nil
}

func turnBudgetExhausted(output string) bool {
	lower := strings.ToLower(output)
	for _, sentinel := range turnBudgetSentinels {
		if strings.Contains(lower, sentinel) {
			return true
		}
	}
	return false
}

func isRateLimited(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, signal := range rateLimitSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}

func isMissingBinary(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// systemExecutor runs commands on the host.
type systemExecutor struct{}

func (systemExecutor) Execute(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		if ctx.Err() != nil {
			return stdout.String(), stderr.String(), -1, ctx.Err()
		}
		return stdout.String(), stderr.String(), -1, err
	}
	return stdout.String(), stderr.String(), 0, nil
}
