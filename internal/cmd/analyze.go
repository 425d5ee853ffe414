package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/kaizen/internal/orchestrator"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Observe only: turn findings into reviewable proposals",
	Long: `Analyze runs the observe phase without changing any code. Every
improvement it identifies becomes a pending proposal under the state
directory, ready for review and later implementation via "kaizen improve".`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("persona", "", "analyze with one persona id (default: every enabled persona)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	rc, err := newRunContext(cmd, nil)
	if err != nil {
		return err
	}
	defer rc.close()

	persona, _ := cmd.Flags().GetString("persona")

	orch := orchestrator.New(rc.dir, rc.cfg, rc.logger)
	summary, err := orch.RunAnalyze(cmd.Context(), orchestrator.AnalyzeOptions{Persona: persona})
	if err != nil {
		return err
	}

	fmt.Printf("%s %d persona(s) ran, %s\n",
		headerStyle.Render("Analysis complete:"),
		summary.PersonasRun,
		okStyle.Render(fmt.Sprintf("%d proposal(s) created", summary.ProposalsCreated)))
	if summary.ProposalsCreated > 0 {
		fmt.Println(mutedStyle.Render("Review them under " + rc.paths.ProposalsDir() +
			" and apply one with \"kaizen improve\"."))
	}
	return nil
}
