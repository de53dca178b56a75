package leanspec

import (
	"context"
	"testing"

	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_Aggregates(t *testing.T) {
	eng, writer := testEngine(t)
	mustCreateSpec(t, writer, "a", specfm.Frontmatter{Status: "planned", Created: "2026-01-01", Priority: "high", Assignee: "dana"}, "body")
	mustCreateSpec(t, writer, "b", specfm.Frontmatter{Status: "planned", Created: "2026-01-01"}, "body")
	mustCreateSpec(t, writer, "c", specfm.Frontmatter{Status: "complete", Created: "2026-01-01"}, "body")

	tool := NewStats(eng)
	result, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)

	var out struct {
		Total      int            `json:"total"`
		ByStatus   map[string]int `json:"byStatus"`
		ByPriority map[string]int `json:"byPriority"`
		ByAssignee map[string]int `json:"byAssignee"`
	}
	decodeResult(t, result, &out)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.ByStatus["planned"])
	assert.Equal(t, 1, out.ByStatus["complete"])
	assert.Equal(t, 1, out.ByPriority["high"])
	assert.Equal(t, 1, out.ByAssignee["dana"])
}
