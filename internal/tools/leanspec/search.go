package leanspec

import (
	"context"
	"encoding/json"

	"github.com/leanspec/leanspec/internal/mcp"
	"github.com/leanspec/leanspec/internal/search"
)

type searchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Search implements the "search" tool over the boolean/field/fuzzy/phrase
// query language.
type Search struct{ engine *Engine }

// NewSearch creates a Search tool.
func NewSearch(engine *Engine) *Search { return &Search{engine: engine} }

func (t *Search) Name() string { return "search" }

func (t *Search) Description() string {
	return "Search specs with a boolean/field/fuzzy/phrase query (e.g. 'auth AND security', 'status:planned', \"exact phrase\", 'word~2')."
}

func (t *Search) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string"},
    "limit": {"type": "integer", "description": "Max results; 0 means unlimited"}
  },
  "required": ["query"]
}`)
}

func (t *Search) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p searchParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcp.ErrorResult("invalid parameters: " + err.Error()), nil
	}
	if p.Query == "" {
		return mcp.ErrorResult("query is required"), nil
	}
	if err := search.Validate(p.Query); err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}

	specs, err := t.engine.Loader.LoadAll()
	if err != nil {
		return nil, err
	}

	results := search.Search(specs, p.Query, p.Limit)
	return mcp.JSONResult(map[string]any{"results": results, "total": len(results), "query": p.Query})
}
