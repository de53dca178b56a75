package leanspec

import (
	"context"
	"encoding/json"

	"github.com/leanspec/leanspec/internal/mcp"
	"github.com/leanspec/leanspec/internal/specfm"
)

type viewParams struct {
	Spec string `json:"spec"`
}

// View implements the "view" tool: render a single spec's full detail.
type View struct{ engine *Engine }

// NewView creates a View tool.
func NewView(engine *Engine) *View { return &View{engine: engine} }

func (t *View) Name() string { return "view" }

func (t *View) Description() string {
	return "Render a spec's frontmatter and full markdown body."
}

func (t *View) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "spec": {"type": "string", "description": "Spec path, number, or unambiguous prefix"}
  },
  "required": ["spec"]
}`)
}

func (t *View) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p viewParams
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

	all, err := t.engine.Loader.LoadAll()
	if err != nil {
		return nil, err
	}
	var requiredBy []string
	for _, s := range all {
		for _, dep := range s.Frontmatter.DependsOn {
			if dep == spec.Path {
				requiredBy = append(requiredBy, s.Path)
			}
		}
	}

	return mcp.JSONResult(map[string]any{
		"path":        spec.Path,
		"title":       spec.Title,
		"frontmatter": spec.Frontmatter,
		"content":     spec.Content,
		"contentHash": specfm.ContentHash(spec.Content),
		"requiredBy":  requiredBy,
		"isSubSpec":   spec.IsSubSpec,
		"archived":    spec.Archived,
	})
}
