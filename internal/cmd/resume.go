package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/kaizen/internal/orchestrator"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue a cautious-mode run from its paused plan",
	RunE:  runResume,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Discard the paused cautious-mode session",
	RunE:  runCancel,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(cancelCmd)
}

func runResume(cmd *cobra.Command, _ []string) error {
	rc, err := newRunContext(cmd, nil)
	if err != nil {
		return err
	}
	defer rc.close()

	orch := orchestrator.New(rc.dir, rc.cfg, rc.logger)
	summary, err := orch.Resume(cmd.Context())
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func runCancel(cmd *cobra.Command, _ []string) error {
	rc, err := newRunContext(cmd, nil)
	if err != nil {
		return err
	}
	defer rc.close()

	orch := orchestrator.New(rc.dir, rc.cfg, rc.logger)
	if err := orch.Cancel(); err != nil {
		return err
	}

	fmt.Println("Pending session cleared. No changes were made.")
	return nil
}
