package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/kaizen/internal/orchestrator"
)

var improveCmd = &cobra.Command{
	Use:   "improve [proposal-id]",
	Short: "Implement a pending proposal",
	Long: `Improve takes one pending proposal (the given id, or the highest
priority one) and uses its body as the literal plan for an execute and
verify pass. The proposal is archived on success.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImprove,
}

func init() {
	rootCmd.AddCommand(improveCmd)
}

func runImprove(cmd *cobra.Command, args []string) error {
	rc, err := newRunContext(cmd, nil)
	if err != nil {
		return err
	}
	defer rc.close()

	var id string
	if len(args) == 1 {
		id = args[0]
	}

	orch := orchestrator.New(rc.dir, rc.cfg, rc.logger)
	summary, err := orch.RunImprove(cmd.Context(), id)
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}
