package leanspec

import (
	"context"
	"encoding/json"

	"github.com/leanspec/leanspec/internal/mcp"
)

type boardParams struct {
	GroupBy string `json:"groupBy,omitempty"`
}

// Board implements the "board" tool: specs grouped by status, priority,
// assignee, or tag, mirroring the CLI's --group-by flag.
type Board struct{ engine *Engine }

// NewBoard creates a Board tool.
func NewBoard(engine *Engine) *Board { return &Board{engine: engine} }

func (t *Board) Name() string { return "board" }

func (t *Board) Description() string {
	return "Group specs into a board by status, priority, assignee, or tag (default: status)."
}

func (t *Board) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "groupBy": {"type": "string", "enum": ["status", "priority", "assignee", "tag"], "description": "Defaults to status"}
  }
}`)
}

func (t *Board) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p boardParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return mcp.ErrorResult("invalid parameters: " + err.Error()), nil
		}
	}
	groupBy := p.GroupBy
	if groupBy == "" {
		groupBy = "status"
	}

	all, err := t.engine.Loader.LoadAll()
	if err != nil {
		return nil, err
	}

	columns := map[string][]summary{}
	var order []string
	place := func(key string, s summary) {
		if key == "" {
			key = "(none)"
		}
		if _, ok := columns[key]; !ok {
			order = append(order, key)
		}
		columns[key] = append(columns[key], s)
	}

	for _, s := range all {
		sum := toSummary(s)
		switch groupBy {
		case "priority":
			place(s.Frontmatter.Priority, sum)
		case "assignee":
			place(s.Frontmatter.Assignee, sum)
		case "tag":
			if len(s.Frontmatter.Tags) == 0 {
				place("", sum)
				continue
			}
			for _, tag := range s.Frontmatter.Tags {
				place(tag, sum)
			}
		default:
			place(s.Frontmatter.Status, sum)
		}
	}

	board := make([]map[string]any, 0, len(order))
	for _, key := range order {
		board = append(board, map[string]any{"group": key, "specs": columns[key], "total": len(columns[key])})
	}

	return mcp.JSONResult(map[string]any{"groupBy": groupBy, "columns": board})
}
