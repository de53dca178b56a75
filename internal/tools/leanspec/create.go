package leanspec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/leanspec/leanspec/internal/mcp"
	"github.com/leanspec/leanspec/internal/relationships"
	"github.com/leanspec/leanspec/internal/specfm"
)

type createParams struct {
	Name      string   `json:"name"`
	Title     string   `json:"title,omitempty"`
	Status    string   `json:"status,omitempty"`
	Priority  string   `json:"priority,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Parent    string   `json:"parent,omitempty"`
	DependsOn []string `json:"dependsOn,omitempty"`
}

// Create implements the "create" tool: scaffold a new numbered spec.
type Create struct{ engine *Engine }

// NewCreate creates a Create tool.
func NewCreate(engine *Engine) *Create { return &Create{engine: engine} }

func (t *Create) Name() string { return "create" }

func (t *Create) Description() string {
	return "Create a new numbered spec from the template, with optional parent and dependencies."
}

func (t *Create) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "name": {"type": "string", "description": "Kebab-case slug, e.g. 'add-login-flow'"},
    "title": {"type": "string", "description": "Spec title; defaults to a title-cased name"},
    "status": {"type": "string", "description": "Initial status; defaults to 'planned'"},
    "priority": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "parent": {"type": "string", "description": "Parent spec path"},
    "dependsOn": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["name"]
}`)
}

func (t *Create) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p createParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcp.ErrorResult("invalid parameters: " + err.Error()), nil
	}
	if p.Name == "" {
		return mcp.ErrorResult("name is required"), nil
	}

	status := p.Status
	if status == "" {
		status = string(specfm.StatusPlanned)
	}
	if !specfm.Status(status).Valid() {
		return mcp.ErrorResult(fmt.Sprintf("invalid status: %s", status)), nil
	}

	if len(p.DependsOn) > 0 || p.Parent != "" {
		all, err := t.engine.Loader.LoadAll()
		if err != nil {
			return nil, err
		}
		refs := specRefs(all)
		if p.Parent != "" {
			if err := relationships.ValidateParentAssignment(p.Name, p.Parent, refs); err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}
		}
		for _, dep := range p.DependsOn {
			if err := relationships.ValidateDependencyAddition(p.Name, dep, refs); err != nil {
				return mcp.ErrorResult(err.Error()), nil
			}
		}
	}

	title := p.Title
	if title == "" {
		title = titleCase(p.Name)
	}

	fm := specfm.Frontmatter{
		Status:    status,
		Created:   time.Now().UTC().Format("2006-01-02"),
		Priority:  p.Priority,
		Tags:      p.Tags,
		Parent:    p.Parent,
		DependsOn: p.DependsOn,
	}

	body := fmt.Sprintf("# %s\n\n## Overview\n\nTODO\n\n## Requirements\n\n- [ ] TODO\n", title)

	spec, err := t.engine.Writer.CreateSpec(p.Name, fm, body)
	if err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}

	return mcp.JSONResult(map[string]any{
		"path":        spec.Path,
		"title":       spec.Title,
		"frontmatter": spec.Frontmatter,
		"message":     fmt.Sprintf("created %s", spec.Path),
	})
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
