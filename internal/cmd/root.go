// Package cmd defines the kaizen command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/kaizen/internal/config"
	"github.com/Iron-Ham/kaizen/internal/lock"
	"github.com/Iron-Ham/kaizen/internal/logging"
	"github.com/Iron-Ham/kaizen/internal/state"
)

var rootCmd = &cobra.Command{
	Use:   "kaizen",
	Short: "Autonomous continuous code improvement",
	Long: `Kaizen repeatedly selects a behavioral lens (a persona, optionally
paired with an adversarial challenge), delegates an Observe, Plan, Execute,
Verify cycle to an external coding agent, and durably records the outcome,
adjusting future selection from historical success and failure.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("project", "p", "", "project directory (default: current directory)")
}

// projectDir resolves the target project directory from the --project flag.
func projectDir(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("project")
	if err != nil {
		return "", err
	}
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// runContext bundles everything a run command needs, built once per command.
type runContext struct {
	dir    string
	paths  state.Paths
	cfg    *config.Config
	logger *logging.Logger
	lock   *lock.Lock
}

// newRunContext resolves config, opens the log, and acquires the project
// lock. overrides are runtime config overrides (the highest tier).
func newRunContext(cmd *cobra.Command, overrides map[string]string) (*runContext, error) {
	dir, err := projectDir(cmd)
	if err != nil {
		return nil, err
	}

	paths := state.NewPaths(dir)
	if err := paths.EnsureLayout(); err != nil {
		return nil, err
	}

	cfg, err := config.NewResolver(paths.ConfigFile()).Load(overrides)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(paths.LogFile(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, err
	}

	projectLock, err := lock.Acquire(paths.LockFile(), logger)
	if err != nil {
		logger.Close()
		return nil, err
	}

	return &runContext{dir: dir, paths: paths, cfg: cfg, logger: logger, lock: projectLock}, nil
}

// close releases the lock and the log file.
func (rc *runContext) close() {
	if err := rc.lock.Release(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: releasing lock: %v\n", err)
	}
	rc.logger.Close()
}
