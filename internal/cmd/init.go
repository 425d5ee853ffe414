package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/kaizen/internal/state"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the state directory skeleton for a project",
	Long: `Init creates the per-project state directory with a commented default
config and an identity file describing the project. Run it once from the
repository root before the first evolve.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

const defaultConfigTemplate = `{
  // Model passed to the coding agent.
  "model": "sonnet",
  // Level preset: light, standard, or thorough.
  "level": "standard",
  // Cycles attempted per evolve run.
  "max_cycles": 10,
  // Chance [0,1] of layering an adversarial challenge onto a cycle.
  "adversarial_probability": 0.3,
  // "commit" for direct commits, "pr" for branch + pull request.
  "code_output": "commit",
  "verify": {
    // Commands run after each execute; empty means the check passes.
    "build_command": "",
    "test_command": ""
  }
}
`

const identityTemplate = `# %s

Describe this project in a few sentences: what it is, who uses it, and
what "better" means for it. The observe phase reads this file to stay
oriented, so concrete constraints (supported platforms, compatibility
promises, performance budgets) are worth writing down.
`

func runInit(cmd *cobra.Command, _ []string) error {
	dir, err := projectDir(cmd)
	if err != nil {
		return err
	}

	paths := state.NewPaths(dir)
	if err := paths.EnsureLayout(); err != nil {
		return err
	}

	created := 0
	if _, err := os.Stat(paths.ConfigFile()); os.IsNotExist(err) {
		if err := os.WriteFile(paths.ConfigFile(), []byte(defaultConfigTemplate), 0o644); err != nil {
			return err
		}
		created++
	}
	if _, err := os.Stat(paths.IdentityFile()); os.IsNotExist(err) {
		identity := fmt.Sprintf(identityTemplate, filepath.Base(dir))
		if err := os.WriteFile(paths.IdentityFile(), []byte(identity), 0o644); err != nil {
			return err
		}
		created++
	}

	if created == 0 {
		fmt.Println("Already initialized:", paths.Root)
		return nil
	}
	fmt.Println(okStyle.Render("Initialized ") + paths.Root)
	fmt.Println(mutedStyle.Render("Edit " + paths.IdentityFile() + " to describe the project, then run \"kaizen evolve\"."))
	return nil
}
