package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "skip confirmation prompts")
	initCmd.Flags().StringVar(&initTemplate, "template", "", "path to a custom spec template; defaults to the built-in one")
}

var (
	initYes      bool
	initTemplate string
)

const defaultSpecTemplate = `# {{title}}

## Overview

TODO

## Requirements

- [ ] TODO

## Acceptance Criteria

- [ ] TODO
`

const defaultAgentsDoc = `# AGENTS.md

This project's specs live under ` + "`specs/`" + `, one numbered directory per spec
with a ` + "`README.md`" + ` carrying YAML frontmatter (status, priority, tags,
dependencies) and a markdown body.

Useful commands:

- ` + "`leanspec list`" + ` — see every spec and its status
- ` + "`leanspec view <spec>`" + ` — read one spec in full
- ` + "`leanspec create <name>`" + ` — scaffold a new spec
- ` + "`leanspec search <query>`" + ` — full-text and field search
- ` + "`leanspec validate`" + ` — check frontmatter, structure, and token budget
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold .lean-spec/ and AGENTS.md in the current project",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(projectPath)
		if err != nil {
			return err
		}
		leanSpecDir := filepath.Join(root, ".lean-spec")
		templatesDir := filepath.Join(leanSpecDir, "templates")
		specsDir := filepath.Join(root, "specs")

		for _, dir := range []string{leanSpecDir, templatesDir, specsDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}
		}

		configPath := filepath.Join(leanSpecDir, "config.json")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			const defaultConfig = `{
  "specs_dir": "specs",
  "validation": {
    "max_lines": 400,
    "max_tokens": 3500,
    "warn_tokens": 2000,
    "required_sections": ["Overview", "Requirements"],
    "enforce_completion_checklist": true,
    "allow_completion_override": true
  }
}
`
			if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
				return err
			}
		}

		templatePath := filepath.Join(templatesDir, "spec-template.md")
		if initTemplate != "" {
			data, err := os.ReadFile(initTemplate)
			if err != nil {
				return fmt.Errorf("reading --template %s: %w", initTemplate, err)
			}
			if err := os.WriteFile(templatePath, data, 0o644); err != nil {
				return err
			}
		} else if _, err := os.Stat(templatePath); os.IsNotExist(err) {
			if err := os.WriteFile(templatePath, []byte(defaultSpecTemplate), 0o644); err != nil {
				return err
			}
		}

		agentsPath := filepath.Join(root, "AGENTS.md")
		if _, err := os.Stat(agentsPath); os.IsNotExist(err) {
			if err := os.WriteFile(agentsPath, []byte(defaultAgentsDoc), 0o644); err != nil {
				return err
			}
		}

		fmt.Printf("initialized leanspec project at %s\n", root)
		return nil
	},
}
