package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/kaizen/internal/config"
	"github.com/Iron-Ham/kaizen/internal/state"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the project configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a resolved config value (or the full config)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a config value to the project file",
	Long: `Set writes a dot-separated key into the project config file, e.g.
"kaizen config set turns.execute 50" or "kaizen config set personas.newcomer false".`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(cmd)
	if err != nil {
		return err
	}
	paths := state.NewPaths(dir)

	resolver := config.NewResolver(paths.ConfigFile())
	cfg, err := resolver.Load(nil)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		data, merr := json.MarshalIndent(cfg, "", "  ")
		if merr != nil {
			return merr
		}
		fmt.Println(string(data))
		return nil
	}

	value, err := resolver.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(cmd)
	if err != nil {
		return err
	}
	paths := state.NewPaths(dir)
	if err := paths.EnsureLayout(); err != nil {
		return err
	}

	resolver := config.NewResolver(paths.ConfigFile())
	if _, err := resolver.Load(nil); err != nil {
		return err
	}
	if err := resolver.Save(args[0], args[1]); err != nil {
		return err
	}

	fmt.Printf("%s = %s\n", args[0], args[1])
	return nil
}
