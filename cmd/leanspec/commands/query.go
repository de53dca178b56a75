package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leanspec/leanspec/internal/search"
	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/leanspec/leanspec/internal/validate"
)

func init() {
	rootCmd.AddCommand(searchCmd, validateCmd, boardCmd, statsCmd, tokensCmd)
}

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search specs with the boolean/field/fuzzy/phrase query language",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := specEngine()
		if err != nil {
			return err
		}
		query := args[0]
		if err := search.Validate(query); err != nil {
			return err
		}
		specs, err := eng.Loader.LoadAll()
		if err != nil {
			return err
		}
		results := search.Search(specs, query, searchLimit)
		for _, r := range results {
			fmt.Println(r.Path)
		}
		fmt.Fprintf(os.Stderr, "%d result(s)\n", len(results))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [spec]",
	Short: "Run the full validation suite against one spec, or all specs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := specEngine()
		if err != nil {
			return err
		}

		type target struct {
			Path, FilePath string
			Doc            *specfm.Document
		}
		var list []target
		if len(args) == 1 {
			spec, err := eng.Loader.LoadStrict(args[0])
			if err != nil {
				return err
			}
			list = append(list, target{Path: spec.Path, FilePath: spec.FilePath, Doc: &specfm.Document{Frontmatter: spec.Frontmatter, Body: spec.Content}})
		} else {
			all, err := eng.Loader.LoadAll()
			if err != nil {
				return err
			}
			for _, spec := range all {
				list = append(list, target{Path: spec.Path, FilePath: spec.FilePath, Doc: &specfm.Document{Frontmatter: spec.Frontmatter, Body: spec.Content}})
			}
		}

		allValid := true
		for _, t := range list {
			result := validate.ValidateSpec(t.Doc, t.FilePath, validate.Options{})
			if !result.IsValid() {
				allValid = false
			}
			for _, issue := range result.Issues {
				fmt.Printf("%s: [%s] %s: %s\n", t.Path, issue.Severity, issue.Code, issue.Message)
			}
		}
		if !allValid {
			os.Exit(exitValidation)
		}
		return nil
	},
}

var boardGroupBy string

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Group specs into a board",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := specEngine()
		if err != nil {
			return err
		}
		all, err := eng.Loader.LoadAll()
		if err != nil {
			return err
		}
		groupBy := boardGroupBy
		if groupBy == "" {
			groupBy = "status"
		}
		columns := map[string][]string{}
		var order []string
		place := func(key, path string) {
			if key == "" {
				key = "(none)"
			}
			if _, ok := columns[key]; !ok {
				order = append(order, key)
			}
			columns[key] = append(columns[key], path)
		}
		for _, s := range all {
			switch groupBy {
			case "priority":
				place(s.Frontmatter.Priority, s.Path)
			case "assignee":
				place(s.Frontmatter.Assignee, s.Path)
			case "tag":
				if len(s.Frontmatter.Tags) == 0 {
					place("", s.Path)
					continue
				}
				for _, t := range s.Frontmatter.Tags {
					place(t, s.Path)
				}
			default:
				place(s.Frontmatter.Status, s.Path)
			}
		}
		for _, key := range order {
			fmt.Printf("## %s (%d)\n", key, len(columns[key]))
			for _, p := range columns[key] {
				fmt.Printf("  - %s\n", p)
			}
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report corpus-wide aggregates",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := specEngine()
		if err != nil {
			return err
		}
		all, err := eng.Loader.LoadAllIncludingArchived()
		if err != nil {
			return err
		}
		byStatus := map[string]int{}
		byPriority := map[string]int{}
		for _, s := range all {
			byStatus[s.Frontmatter.Status]++
			if s.Frontmatter.Priority != "" {
				byPriority[s.Frontmatter.Priority]++
			}
		}
		out, _ := json.MarshalIndent(map[string]any{
			"total":      len(all),
			"byStatus":   byStatus,
			"byPriority": byPriority,
		}, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var tokensCmd = &cobra.Command{
	Use:   "tokens [spec]",
	Short: "Estimate the token budget of one spec, or all specs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := specEngine()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			spec, err := eng.Loader.LoadStrict(args[0])
			if err != nil {
				return err
			}
			est := validate.EstimateTokens(spec.Content)
			fmt.Printf("%s: ~%d tokens (%s)\n", spec.Path, est.Count, est.Level)
			return nil
		}
		all, err := eng.Loader.LoadAll()
		if err != nil {
			return err
		}
		total := 0
		for _, spec := range all {
			est := validate.EstimateTokens(spec.Content)
			fmt.Printf("%-28s ~%-6d %s\n", spec.Path, est.Count, est.Level)
			total += est.Count
		}
		fmt.Printf("total: ~%d tokens\n", total)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max results; 0 means unlimited")
	boardCmd.Flags().StringVar(&boardGroupBy, "group-by", "status", "status|priority|assignee|tag")
}
