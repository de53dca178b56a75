package leanspec

import (
	"context"
	"encoding/json"

	"github.com/leanspec/leanspec/internal/depgraph"
	"github.com/leanspec/leanspec/internal/mcp"
	"github.com/leanspec/leanspec/internal/relationships"
	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/leanspec/leanspec/internal/specstore"
)

type relationshipsParams struct {
	Spec   string `json:"spec"`
	Action string `json:"action,omitempty"` // "view" (default), "add-dep", "rm-dep", "set-parent", "clear-parent"
	Target string `json:"target,omitempty"`
	Depth  int    `json:"depth,omitempty"`
}

// Relationships implements the "relationships" tool: inspect or edit a
// spec's parent/depends-on edges, mirroring the CLI's "rel" verb.
type Relationships struct{ engine *Engine }

// NewRelationships creates a Relationships tool.
func NewRelationships(engine *Engine) *Relationships { return &Relationships{engine: engine} }

func (t *Relationships) Name() string { return "relationships" }

func (t *Relationships) Description() string {
	return "View a spec's dependency graph and impact radius, or edit its parent/dependsOn edges (action: view|add-dep|rm-dep|set-parent|clear-parent)."
}

func (t *Relationships) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "spec": {"type": "string"},
    "action": {"type": "string", "enum": ["view", "add-dep", "rm-dep", "set-parent", "clear-parent"]},
    "target": {"type": "string", "description": "Dependency or parent path; required for add-dep/rm-dep/set-parent"},
    "depth": {"type": "integer", "description": "Transitive depth for the view action; 0 means direct edges only"}
  },
  "required": ["spec"]
}`)
}

func (t *Relationships) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p relationshipsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcp.ErrorResult("invalid parameters: " + err.Error()), nil
	}
	if p.Spec == "" {
		return mcp.ErrorResult("spec is required"), nil
	}
	action := p.Action
	if action == "" {
		action = "view"
	}

	spec, err := t.engine.Loader.LoadStrict(p.Spec)
	if err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}

	if action == "view" {
		return t.view(spec, p.Depth)
	}

	if p.Target == "" && action != "clear-parent" {
		return mcp.ErrorResult("target is required for " + action), nil
	}

	all, err := t.engine.Loader.LoadAll()
	if err != nil {
		return nil, err
	}
	refs := allSpecRefs(all)

	switch action {
	case "add-dep":
		if err := relationships.ValidateDependencyAddition(spec.Path, p.Target, refs); err != nil {
			return mcp.ErrorResult(err.Error()), nil
		}
		deps := append(append([]string(nil), spec.Frontmatter.DependsOn...), p.Target)
		return t.applyDependsOn(spec, deps)
	case "rm-dep":
		deps := make([]string, 0, len(spec.Frontmatter.DependsOn))
		for _, d := range spec.Frontmatter.DependsOn {
			if d != p.Target {
				deps = append(deps, d)
			}
		}
		return t.applyDependsOn(spec, deps)
	case "set-parent":
		if err := relationships.ValidateParentAssignment(spec.Path, p.Target, refs); err != nil {
			return mcp.ErrorResult(err.Error()), nil
		}
		return t.applyParent(spec, p.Target)
	case "clear-parent":
		return t.applyParent(spec, "")
	default:
		return mcp.ErrorResult("unknown action: " + action), nil
	}
}

func (t *Relationships) applyDependsOn(spec *specstore.Spec, deps []string) (*mcp.ToolsCallResult, error) {
	updated, err := t.engine.Writer.UpdateMetadata(spec.Path, specfm.MetadataUpdate{DependsOn: &deps}, specstore.UpdateOptions{})
	if err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}
	return mcp.JSONResult(map[string]any{"path": updated.Path, "dependsOn": updated.Frontmatter.DependsOn})
}

func (t *Relationships) applyParent(spec *specstore.Spec, parent string) (*mcp.ToolsCallResult, error) {
	updated, err := t.engine.Writer.UpdateMetadata(spec.Path, specfm.MetadataUpdate{Parent: &parent}, specstore.UpdateOptions{})
	if err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}
	return mcp.JSONResult(map[string]any{"path": updated.Path, "parent": updated.Frontmatter.Parent})
}

func (t *Relationships) view(spec *specstore.Spec, depth int) (*mcp.ToolsCallResult, error) {
	all, err := t.engine.Loader.LoadAll()
	if err != nil {
		return nil, err
	}
	graph := depgraph.New(depgraphNodes(all))

	complete, _ := graph.CompleteGraphFor(spec.Path)
	result := map[string]any{
		"path":       spec.Path,
		"parent":     spec.Frontmatter.Parent,
		"dependsOn":  complete.DependsOn,
		"requiredBy": complete.RequiredBy,
		"hasCycle":   graph.HasCircularDependency(spec.Path),
	}
	if depth > 0 {
		if radius, ok := graph.ImpactRadiusFor(spec.Path, depth); ok {
			result["upstream"] = radius.Upstream
			result["downstream"] = radius.Downstream
		}
	}
	return mcp.JSONResult(result)
}
