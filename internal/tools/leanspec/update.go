package leanspec

import (
	"context"
	"encoding/json"

	"github.com/leanspec/leanspec/internal/mcp"
	"github.com/leanspec/leanspec/internal/relationships"
	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/leanspec/leanspec/internal/specstore"
)

type updateParams struct {
	Spec                string    `json:"spec"`
	Status              *string   `json:"status,omitempty"`
	Priority            *string   `json:"priority,omitempty"`
	Tags                *[]string `json:"tags,omitempty"`
	DependsOn           *[]string `json:"dependsOn,omitempty"`
	Parent              *string   `json:"parent,omitempty"`
	Assignee            *string   `json:"assignee,omitempty"`
	Force               bool      `json:"force,omitempty"`
	ExpectedContentHash string    `json:"expectedContentHash,omitempty"`
}

// Update implements the "update" tool: a metadata edit with optimistic
// concurrency and the completion gate.
type Update struct{ engine *Engine }

// NewUpdate creates an Update tool.
func NewUpdate(engine *Engine) *Update { return &Update{engine: engine} }

func (t *Update) Name() string { return "update" }

func (t *Update) Description() string {
	return "Edit a spec's metadata (status, priority, tags, dependencies, parent, assignee). force bypasses the completion gate."
}

func (t *Update) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "spec": {"type": "string"},
    "status": {"type": "string"},
    "priority": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "dependsOn": {"type": "array", "items": {"type": "string"}},
    "parent": {"type": "string"},
    "assignee": {"type": "string"},
    "force": {"type": "boolean"},
    "expectedContentHash": {"type": "string", "description": "Optimistic-concurrency token from a prior view"}
  },
  "required": ["spec"]
}`)
}

func (t *Update) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p updateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcp.ErrorResult("invalid parameters: " + err.Error()), nil
	}
	if p.Spec == "" {
		return mcp.ErrorResult("spec is required"), nil
	}

	spec, err := t.engine.Loader.LoadStrict(p.Spec)
	if err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}

	if p.Parent != nil || p.DependsOn != nil {
		all, err := t.engine.Loader.LoadAll()
		if err != nil {
			return nil, err
		}
		refs := allSpecRefs(all)
		if p.Parent != nil && *p.Parent != "" {
			if err := relationships.ValidateParentAssignment(spec.Path, *p.Parent, refs); err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}
		}
		if p.DependsOn != nil {
			for _, dep := range *p.DependsOn {
				if err := relationships.ValidateDependencyAddition(spec.Path, dep, refs); err != nil {
					return mcp.ErrorResult(err.Error()), nil
				}
			}
		}
	}

	upd := specfm.MetadataUpdate{
		Status:    p.Status,
		Priority:  p.Priority,
		Tags:      p.Tags,
		DependsOn: p.DependsOn,
		Parent:    p.Parent,
		Assignee:  p.Assignee,
	}

	updated, err := t.engine.Writer.UpdateMetadata(p.Spec, upd, specstore.UpdateOptions{
		Force:               p.Force,
		ExpectedContentHash: p.ExpectedContentHash,
	})
	if err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}

	return mcp.JSONResult(map[string]any{
		"path":        updated.Path,
		"frontmatter": updated.Frontmatter,
		"contentHash": specfm.ContentHash(updated.Content),
	})
}

// allSpecRefs builds relationship refs from every loaded spec, including
// the spec being edited: ValidateDependencyAddition/ValidateParentAssignment
// both need the editing spec's own current Parent/DependsOn present in the
// slice to check hierarchy conflicts and dependency cycles against it —
// omitting it makes those checks silently no-op.
func allSpecRefs(all []*specstore.Spec) []relationships.SpecRef {
	refs := make([]relationships.SpecRef, 0, len(all))
	for _, s := range all {
		parent := s.ParentSpec
		if parent == "" {
			parent = s.Frontmatter.Parent
		}
		refs = append(refs, relationships.SpecRef{Path: s.Path, Parent: parent, DependsOn: s.Frontmatter.DependsOn})
	}
	return refs
}
