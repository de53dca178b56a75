package leanspec

import (
	"context"
	"encoding/json"

	"github.com/leanspec/leanspec/internal/mcp"
	"github.com/leanspec/leanspec/internal/validate"
)

type tokensParams struct {
	Spec string `json:"spec,omitempty"`
}

// Tokens implements the "tokens" tool: estimate context-window cost for one
// spec, or every spec when none is given.
type Tokens struct{ engine *Engine }

// NewTokens creates a Tokens tool.
func NewTokens(engine *Engine) *Tokens { return &Tokens{engine: engine} }

func (t *Tokens) Name() string { return "tokens" }

func (t *Tokens) Description() string {
	return "Estimate the token budget of one spec, or all specs if none is given, with optimal/good/warning/excessive levels."
}

func (t *Tokens) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "spec": {"type": "string", "description": "Spec path; omit to estimate every spec"}
  }
}`)
}

type tokenReport struct {
	Path  string             `json:"path"`
	Count int                `json:"count"`
	Level validate.TokenLevel `json:"level"`
}

func (t *Tokens) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p tokensParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return mcp.ErrorResult("invalid parameters: " + err.Error()), nil
		}
	}

	if p.Spec != "" {
		spec, err := t.engine.Loader.LoadStrict(p.Spec)
		if err != nil {
			return mcp.ErrorResult(err.Error()), nil
		}
		est := validate.EstimateTokens(spec.Content)
		return mcp.JSONResult(tokenReport{Path: spec.Path, Count: est.Count, Level: est.Level})
	}

	all, err := t.engine.Loader.LoadAll()
	if err != nil {
		return nil, err
	}
	reports := make([]tokenReport, 0, len(all))
	total := 0
	for _, spec := range all {
		est := validate.EstimateTokens(spec.Content)
		reports = append(reports, tokenReport{Path: spec.Path, Count: est.Count, Level: est.Level})
		total += est.Count
	}
	return mcp.JSONResult(map[string]any{"specs": reports, "total": total})
}
