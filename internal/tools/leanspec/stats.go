package leanspec

import (
	"context"
	"encoding/json"

	"github.com/leanspec/leanspec/internal/mcp"
	"github.com/leanspec/leanspec/internal/validate"
)

// Stats implements the "stats" tool: corpus-wide aggregates across status,
// priority, assignee, and token health.
type Stats struct{ engine *Engine }

// NewStats creates a Stats tool.
func NewStats(engine *Engine) *Stats { return &Stats{engine: engine} }

func (t *Stats) Name() string { return "stats" }

func (t *Stats) Description() string {
	return "Report corpus-wide aggregates: counts by status, priority, assignee, and token-budget health."
}

func (t *Stats) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *Stats) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	all, err := t.engine.Loader.LoadAllIncludingArchived()
	if err != nil {
		return nil, err
	}

	byStatus := map[string]int{}
	byPriority := map[string]int{}
	byAssignee := map[string]int{}
	byTokenLevel := map[validate.TokenLevel]int{}
	archived := 0
	subSpecs := 0

	for _, s := range all {
		byStatus[s.Frontmatter.Status]++
		if s.Frontmatter.Priority != "" {
			byPriority[s.Frontmatter.Priority]++
		}
		if s.Frontmatter.Assignee != "" {
			byAssignee[s.Frontmatter.Assignee]++
		}
		if s.Archived {
			archived++
		}
		if s.IsSubSpec {
			subSpecs++
		}
		byTokenLevel[validate.EstimateTokens(s.Content).Level]++
	}

	return mcp.JSONResult(map[string]any{
		"total":        len(all),
		"archived":     archived,
		"subSpecs":     subSpecs,
		"byStatus":     byStatus,
		"byPriority":   byPriority,
		"byAssignee":   byAssignee,
		"byTokenLevel": byTokenLevel,
	})
}
