package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leanspec/leanspec/internal/session"
)

func init() {
	runnerCmd.AddCommand(runnerListCmd, runnerShowCmd, runnerValidateCmd, runnerConfigCmd)
	rootCmd.AddCommand(runnerCmd)
}

var runnerCmd = &cobra.Command{
	Use:   "runner",
	Short: "Inspect the runner registry",
}

var runnerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every available runner",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := session.Load(projectPath)
		if err != nil {
			return err
		}
		for _, def := range registry.List() {
			marker := " "
			if def.ID == registry.Default() {
				marker = "*"
			}
			fmt.Printf("%s %-10s %-18s %s\n", marker, def.ID, def.DisplayName(), def.Command)
		}
		return nil
	},
}

var runnerShowCmd = &cobra.Command{
	Use:  "show <id>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := session.Load(projectPath)
		if err != nil {
			return err
		}
		def, ok := registry.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown runner: %s", args[0])
		}
		out, _ := json.MarshalIndent(def, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var runnerValidateCmd = &cobra.Command{
	Use:  "validate <id>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := session.Load(projectPath)
		if err != nil {
			return err
		}
		if err := registry.Validate(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s: ok\n", args[0])
		return nil
	},
}

var runnerConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the default runners.json schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := json.MarshalIndent(session.DefaultRunnersFile(), "", "  ")
		fmt.Println(string(out))
		return nil
	},
}
