package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leanspec/leanspec/internal/depgraph"
	"github.com/leanspec/leanspec/internal/relationships"
	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/leanspec/leanspec/internal/specstore"
)

func init() {
	rootCmd.AddCommand(createCmd, viewCmd, listCmd, updateCmd, linkCmd, unlinkCmd, relCmd, archiveCmd)
}

var (
	createTitle, createStatus, createPriority, createParent string
	createTags, createDependsOn                             []string
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new numbered spec from the template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := specEngine()
		if err != nil {
			return err
		}
		name := args[0]

		status := createStatus
		if status == "" {
			status = string(specfm.StatusPlanned)
		}
		if !specfm.Status(status).Valid() {
			return fmt.Errorf("invalid status: %s", status)
		}

		if len(createDependsOn) > 0 || createParent != "" {
			all, err := eng.Loader.LoadAll()
			if err != nil {
				return err
			}
			refs := make([]relationships.SpecRef, 0, len(all))
			for _, s := range all {
				refs = append(refs, relationships.SpecRef{Path: s.Path, Parent: s.Frontmatter.Parent, DependsOn: s.Frontmatter.DependsOn})
			}
			if createParent != "" {
				if err := relationships.ValidateParentAssignment(name, createParent, refs); err != nil {
					return err
				}
			}
			for _, dep := range createDependsOn {
				if err := relationships.ValidateDependencyAddition(name, dep, refs); err != nil {
					return err
				}
			}
		}

		title := createTitle
		if title == "" {
			title = titleCase(name)
		}

		fm := specfm.Frontmatter{
			Status:    status,
			Created:   time.Now().UTC().Format("2006-01-02"),
			Priority:  createPriority,
			Tags:      createTags,
			Parent:    createParent,
			DependsOn: createDependsOn,
		}
		body := fmt.Sprintf("# %s\n\n## Overview\n\nTODO\n\n## Requirements\n\n- [ ] TODO\n", title)

		spec, err := eng.Writer.CreateSpec(name, fm, body)
		if err != nil {
			return err
		}
		fmt.Printf("created %s\n", spec.Path)
		return nil
	},
}

func titleCase(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var viewCmd = &cobra.Command{
	Use:   "view <spec>",
	Short: "Render a spec's frontmatter and body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := specEngine()
		if err != nil {
			return err
		}
		spec, err := eng.Loader.LoadStrict(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("# %s (%s)\n\nstatus: %s\n", spec.Path, spec.Title, spec.Frontmatter.Status)
		if spec.Frontmatter.Priority != "" {
			fmt.Printf("priority: %s\n", spec.Frontmatter.Priority)
		}
		if len(spec.Frontmatter.Tags) > 0 {
			fmt.Printf("tags: %s\n", strings.Join(spec.Frontmatter.Tags, ", "))
		}
		fmt.Println()
		fmt.Print(spec.Content)
		return nil
	},
}

var (
	listStatus, listPriority, listTags, listAssignee string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List specs, optionally filtered",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := specEngine()
		if err != nil {
			return err
		}
		specs, err := eng.Loader.LoadAll()
		if err != nil {
			return err
		}
		var want []string
		if listTags != "" {
			want = strings.Split(listTags, ",")
		}
		for _, s := range specs {
			if listStatus != "" && !strings.EqualFold(s.Frontmatter.Status, listStatus) {
				continue
			}
			if listPriority != "" && !strings.EqualFold(s.Frontmatter.Priority, listPriority) {
				continue
			}
			if listAssignee != "" && !strings.EqualFold(s.Frontmatter.Assignee, listAssignee) {
				continue
			}
			if len(want) > 0 && !hasAllTags(s.Frontmatter.Tags, want) {
				continue
			}
			fmt.Printf("%-28s %-12s %s\n", s.Path, s.Frontmatter.Status, s.Title)
		}
		return nil
	},
}

func hasAllTags(tags, want []string) bool {
	set := map[string]bool{}
	for _, t := range tags {
		set[strings.ToLower(strings.TrimSpace(t))] = true
	}
	for _, w := range want {
		if !set[strings.ToLower(strings.TrimSpace(w))] {
			return false
		}
	}
	return true
}

var (
	updStatus, updPriority, updTags, updAssignee string
	updForce                                     bool
)

var updateCmd = &cobra.Command{
	Use:   "update <spec>",
	Short: "Edit a spec's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := specEngine()
		if err != nil {
			return err
		}
		upd := specfm.MetadataUpdate{}
		if cmd.Flags().Changed("status") {
			upd.Status = &updStatus
		}
		if cmd.Flags().Changed("priority") {
			upd.Priority = &updPriority
		}
		if cmd.Flags().Changed("tags") {
			tags := strings.Split(updTags, ",")
			upd.Tags = &tags
		}
		if cmd.Flags().Changed("assignee") {
			upd.Assignee = &updAssignee
		}
		updated, err := eng.Writer.UpdateMetadata(args[0], upd, specstore.UpdateOptions{Force: updForce})
		if err != nil {
			return err
		}
		fmt.Printf("updated %s (status=%s)\n", updated.Path, updated.Frontmatter.Status)
		return nil
	},
}

var linkDeps []string

var linkCmd = &cobra.Command{
	Use:   "link <spec>",
	Short: "Add dependencies to a spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editDeps(args[0], linkDeps, nil)
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <spec>",
	Short: "Remove dependencies from a spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editDeps(args[0], nil, linkDeps)
	},
}

func editDeps(specID string, add, remove []string) error {
	eng, _, _, err := specEngine()
	if err != nil {
		return err
	}
	spec, err := eng.Loader.LoadStrict(specID)
	if err != nil {
		return err
	}
	all, err := eng.Loader.LoadAll()
	if err != nil {
		return err
	}
	refs := make([]relationships.SpecRef, 0, len(all))
	for _, s := range all {
		refs = append(refs, relationships.SpecRef{Path: s.Path, Parent: s.Frontmatter.Parent, DependsOn: s.Frontmatter.DependsOn})
	}
	for _, dep := range add {
		if err := relationships.ValidateDependencyAddition(spec.Path, dep, refs); err != nil {
			return err
		}
	}

	deps := append([]string(nil), spec.Frontmatter.DependsOn...)
	for _, dep := range add {
		deps = append(deps, dep)
	}
	if len(remove) > 0 {
		kept := make([]string, 0, len(deps))
		removeSet := map[string]bool{}
		for _, r := range remove {
			removeSet[r] = true
		}
		for _, d := range deps {
			if !removeSet[d] {
				kept = append(kept, d)
			}
		}
		deps = kept
	}

	updated, err := eng.Writer.UpdateMetadata(spec.Path, specfm.MetadataUpdate{DependsOn: &deps}, specstore.UpdateOptions{})
	if err != nil {
		return err
	}
	fmt.Printf("%s depends_on: %s\n", updated.Path, strings.Join(updated.Frontmatter.DependsOn, ", "))
	return nil
}

var relDepth int

var relCmd = &cobra.Command{
	Use:   "rel view|add|rm <spec> [target]",
	Short: "Unified relationship operations",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, specID := args[0], args[1]
		switch action {
		case "view":
			return relView(specID)
		case "add":
			if len(args) < 3 {
				return fmt.Errorf("rel add requires a target")
			}
			return editDeps(specID, []string{args[2]}, nil)
		case "rm":
			if len(args) < 3 {
				return fmt.Errorf("rel rm requires a target")
			}
			return editDeps(specID, nil, []string{args[2]})
		default:
			return fmt.Errorf("unknown rel action: %s", action)
		}
	},
}

func relView(specID string) error {
	eng, _, _, err := specEngine()
	if err != nil {
		return err
	}
	spec, err := eng.Loader.LoadStrict(specID)
	if err != nil {
		return err
	}
	all, err := eng.Loader.LoadAll()
	if err != nil {
		return err
	}
	nodes := make([]depgraph.Node, 0, len(all))
	for _, s := range all {
		nodes = append(nodes, depgraph.Node{Path: s.Path, DependsOn: s.Frontmatter.DependsOn})
	}
	graph := depgraph.New(nodes)
	complete, _ := graph.CompleteGraphFor(spec.Path)

	result := map[string]any{
		"path":       spec.Path,
		"parent":     spec.Frontmatter.Parent,
		"dependsOn":  complete.DependsOn,
		"requiredBy": complete.RequiredBy,
		"hasCycle":   graph.HasCircularDependency(spec.Path),
	}
	if relDepth > 0 {
		if radius, ok := graph.ImpactRadiusFor(spec.Path, relDepth); ok {
			result["upstream"] = radius.Upstream
			result["downstream"] = radius.Downstream
		}
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	return nil
}

var archiveCmd = &cobra.Command{
	Use:   "archive <spec>",
	Short: "Archive a spec (status-only or move to archived/)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, _, err := specEngine()
		if err != nil {
			return err
		}
		spec, err := eng.Writer.Archive(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("archived %s\n", spec.Path)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createTitle, "title", "", "spec title")
	createCmd.Flags().StringVar(&createStatus, "status", "", "initial status")
	createCmd.Flags().StringVar(&createPriority, "priority", "", "priority")
	createCmd.Flags().StringSliceVar(&createTags, "tags", nil, "tags")
	createCmd.Flags().StringVar(&createParent, "parent", "", "parent spec path")
	createCmd.Flags().StringSliceVar(&createDependsOn, "depends-on", nil, "dependency spec paths")

	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&listPriority, "priority", "", "filter by priority")
	listCmd.Flags().StringVar(&listTags, "tags", "", "comma-separated tags, all must match")
	listCmd.Flags().StringVar(&listAssignee, "assignee", "", "filter by assignee")

	updateCmd.Flags().StringVar(&updStatus, "status", "", "new status")
	updateCmd.Flags().StringVar(&updPriority, "priority", "", "new priority")
	updateCmd.Flags().StringVar(&updTags, "tags", "", "comma-separated tags")
	updateCmd.Flags().StringVar(&updAssignee, "assignee", "", "new assignee")
	updateCmd.Flags().BoolVar(&updForce, "force", false, "bypass the completion gate")

	linkCmd.Flags().StringSliceVar(&linkDeps, "depends-on", nil, "dependency spec paths to add")
	unlinkCmd.Flags().StringSliceVar(&linkDeps, "depends-on", nil, "dependency spec paths to remove")

	relCmd.Flags().IntVar(&relDepth, "depth", 0, "transitive depth for rel view")
}
