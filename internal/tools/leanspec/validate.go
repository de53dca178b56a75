package leanspec

import (
	"context"
	"encoding/json"

	"github.com/leanspec/leanspec/internal/mcp"
	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/leanspec/leanspec/internal/specstore"
	"github.com/leanspec/leanspec/internal/validate"
)

type validateParams struct {
	Spec string `json:"spec,omitempty"`
}

// Validate implements the "validate" tool: run the frontmatter, structure,
// and token-budget validators against one spec, or every spec when none is
// given. Checklist completion is not checked.
type Validate struct{ engine *Engine }

// NewValidate creates a Validate tool.
func NewValidate(engine *Engine) *Validate { return &Validate{engine: engine} }

func (t *Validate) Name() string { return "validate" }

func (t *Validate) Description() string {
	return "Run frontmatter, structure, and token-budget validation against one spec, or all specs if none is given. Checklist completion is not checked."
}

func (t *Validate) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "spec": {"type": "string", "description": "Spec path; omit to validate every spec"}
  }
}`)
}

func (t *Validate) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p validateParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return mcp.ErrorResult("invalid parameters: " + err.Error()), nil
		}
	}

	var targets []*specstore.Spec
	if p.Spec != "" {
		spec, err := t.engine.Loader.LoadStrict(p.Spec)
		if err != nil {
			return mcp.ErrorResult(err.Error()), nil
		}
		targets = []*specstore.Spec{spec}
	} else {
		all, err := t.engine.Loader.LoadAll()
		if err != nil {
			return nil, err
		}
		targets = all
	}

	type specResult struct {
		Path    string          `json:"path"`
		IsValid bool            `json:"isValid"`
		Issues  []validate.Issue `json:"issues"`
	}

	var results []specResult
	allValid := true
	for _, spec := range targets {
		doc := &specfm.Document{Frontmatter: spec.Frontmatter, Body: spec.Content}
		result := validate.ValidateSpec(doc, spec.FilePath, validate.Options{})
		if !result.IsValid() {
			allValid = false
		}
		results = append(results, specResult{Path: spec.Path, IsValid: result.IsValid(), Issues: result.Issues})
	}

	return mcp.JSONResult(map[string]any{"isValid": allValid, "results": results})
}
