package orchestrator

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/Iron-Ham/kaizen/internal/config"
	kerrors "github.com/Iron-Ham/kaizen/internal/errors"
	"github.com/Iron-Ham/kaizen/internal/logging"
)

// Verifier runs the configured build and test commands after Execute.
// An absent command means that check automatically passes.
type Verifier struct {
	dir    string
	cfg    config.VerifyConfig
	logger *logging.Logger
	run    func(ctx context.Context, dir, command string) (string, error)
}

// NewVerifier creates a Verifier for the project directory.
func NewVerifier(dir string, cfg config.VerifyConfig, logger *logging.Logger) *Verifier {
	return &Verifier{
		dir:    dir,
		cfg:    cfg,
		logger: logger.WithPhase("verify"),
		run:    runShell,
	}
}

// SetRun replaces the command runner, for tests.
func (v *Verifier) SetRun(run func(ctx context.Context, dir, command string) (string, error)) {
	v.run = run
}

// Verify runs the build check then the test check, each bounded by its own
// timeout. The first failure is returned as a VerifyError.
func (v *Verifier) Verify(ctx context.Context) error {
	if err := v.check(ctx, "build", v.cfg.BuildCommand); err != nil {
		return err
	}
	return v.check(ctx, "test", v.cfg.TestCommand)
}

func (v *Verifier) check(ctx context.Context, name, command string) error {
	if command == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout())
	defer cancel()

	v.logger.Info("running check", "check", name, "command", command)
	output, err := v.run(ctx, v.dir, command)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return kerrors.NewVerifyError(name, command, output, kerrors.ErrTimeout)
		}
		return kerrors.NewVerifyError(name, command, output, err)
	}
	return nil
}

func runShell(ctx context.Context, dir, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}
