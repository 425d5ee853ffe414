package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/kaizen/internal/orchestrator"
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Run autonomous improvement cycles",
	Long: `Evolve runs up to the budgeted number of improvement cycles against
the project: each cycle selects a persona, observes the codebase, plans one
change, executes it through the coding agent, verifies it, and commits or
reverts.`,
	RunE: runEvolve,
}

func init() {
	evolveCmd.Flags().Int("cycles", 0, "override the configured cycle budget")
	evolveCmd.Flags().String("persona", "", "pin every cycle to this persona id")
	evolveCmd.Flags().String("adversarial", "", "force an adversarial id, or \"none\"")
	evolveCmd.Flags().String("model", "", "override the agent model")
	evolveCmd.Flags().String("level", "", "override the active level preset")
	evolveCmd.Flags().Bool("cautious", false, "pause after each plan for confirmation")
	rootCmd.AddCommand(evolveCmd)
}

func runEvolve(cmd *cobra.Command, _ []string) error {
	overrides := map[string]string{}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		overrides["model"] = model
	}
	if level, _ := cmd.Flags().GetString("level"); level != "" {
		overrides["level"] = level
	}
	if cautious, _ := cmd.Flags().GetBool("cautious"); cautious {
		overrides["cautious"] = strconv.FormatBool(cautious)
	}

	rc, err := newRunContext(cmd, overrides)
	if err != nil {
		return err
	}
	defer rc.close()

	cycles, _ := cmd.Flags().GetInt("cycles")
	persona, _ := cmd.Flags().GetString("persona")
	adversarial, _ := cmd.Flags().GetString("adversarial")

	orch := orchestrator.New(rc.dir, rc.cfg, rc.logger)
	summary, err := orch.RunEvolve(cmd.Context(), orchestrator.EvolveOptions{
		MaxCycles:        cycles,
		ForcePersona:     persona,
		ForceAdversarial: adversarial,
	})
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func printSummary(s orchestrator.Summary) {
	if s.Paused {
		fmt.Println(warnStyle.Render("Paused after plan (cautious mode)."))
		fmt.Println("Review the pending session, then run " + emphStyle.Render("kaizen resume") +
			" or " + emphStyle.Render("kaizen cancel") + ".")
		return
	}

	fmt.Printf("%s %d cycle(s): %s, %s, %d no-op, %d skipped\n",
		headerStyle.Render("Run complete:"),
		s.CyclesRun,
		okStyle.Render(fmt.Sprintf("%d succeeded", s.Successes)),
		errStyle.Render(fmt.Sprintf("%d failed", s.Failures)),
		s.NoOps, s.Skipped)
	if s.StoppedBy == "plan" {
		fmt.Println(mutedStyle.Render("Stopped early: the plan phase reported no improvements needed."))
	}
}
