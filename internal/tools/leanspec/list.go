package leanspec

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/leanspec/leanspec/internal/mcp"
)

type listParams struct {
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Tags     string `json:"tags,omitempty"`
	Assignee string `json:"assignee,omitempty"`
}

// List implements the "list" tool: a filtered listing of specs.
type List struct{ engine *Engine }

// NewList creates a List tool.
func NewList(engine *Engine) *List { return &List{engine: engine} }

func (t *List) Name() string { return "list" }

func (t *List) Description() string {
	return "List specs, optionally filtered by status, priority, tags, or assignee."
}

func (t *List) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "status": {"type": "string", "description": "Filter by status (planned|in-progress|complete|archived)"},
    "priority": {"type": "string", "description": "Filter by priority"},
    "tags": {"type": "string", "description": "Comma-separated tags; a spec must have all of them"},
    "assignee": {"type": "string", "description": "Filter by assignee"}
  }
}`)
}

func (t *List) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p listParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return mcp.ErrorResult("invalid parameters: " + err.Error()), nil
		}
	}

	specs, err := t.engine.Loader.LoadAll()
	if err != nil {
		return nil, err
	}

	var wantTags []string
	if p.Tags != "" {
		wantTags = strings.Split(p.Tags, ",")
		for i := range wantTags {
			wantTags[i] = strings.TrimSpace(wantTags[i])
		}
	}

	var filtered []summary
	for _, s := range specs {
		if p.Status != "" && !strings.EqualFold(s.Frontmatter.Status, p.Status) {
			continue
		}
		if p.Priority != "" && !strings.EqualFold(s.Frontmatter.Priority, p.Priority) {
			continue
		}
		if p.Assignee != "" && !strings.EqualFold(s.Frontmatter.Assignee, p.Assignee) {
			continue
		}
		if len(wantTags) > 0 && !hasAllTags(s.Frontmatter.Tags, wantTags) {
			continue
		}
		filtered = append(filtered, toSummary(s))
	}

	return mcp.JSONResult(map[string]any{"specs": filtered, "total": len(filtered)})
}

func hasAllTags(tags, want []string) bool {
	set := map[string]bool{}
	for _, t := range tags {
		set[strings.ToLower(t)] = true
	}
	for _, w := range want {
		if !set[strings.ToLower(w)] {
			return false
		}
	}
	return true
}
