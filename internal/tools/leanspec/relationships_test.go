package leanspec

import (
	"context"
	"testing"

	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationships_View(t *testing.T) {
	eng, writer := testEngine(t)
	mustCreateSpec(t, writer, "base", specfm.Frontmatter{Status: "planned", Created: "2026-01-01"}, "body")
	mustCreateSpec(t, writer, "dependent", specfm.Frontmatter{
		Status: "planned", Created: "2026-01-01", DependsOn: []string{"001-base"},
	}, "body")

	tool := NewRelationships(eng)
	result, err := tool.Execute(context.Background(), []byte(`{"spec":"001-base"}`))
	require.NoError(t, err)

	var out struct {
		Path       string   `json:"path"`
		RequiredBy []string `json:"requiredBy"`
		HasCycle   bool     `json:"hasCycle"`
	}
	decodeResult(t, result, &out)
	assert.Equal(t, "001-base", out.Path)
	assert.Contains(t, out.RequiredBy, "002-dependent")
	assert.False(t, out.HasCycle)
}

func TestRelationships_AddDepRejectsSelfDependency(t *testing.T) {
	eng, writer := testEngine(t)
	mustCreateSpec(t, writer, "solo", specfm.Frontmatter{Status: "planned", Created: "2026-01-01"}, "body")

	tool := NewRelationships(eng)
	result, err := tool.Execute(context.Background(), []byte(`{"spec":"001-solo","action":"add-dep","target":"001-solo"}`))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// Regression: add-dep must reject a dependency that would close a cycle
// through the real engine call path, not just in relationships package unit
// tests that hand-build a specs slice including the editing spec.
func TestRelationships_AddDepRejectsCycle(t *testing.T) {
	eng, writer := testEngine(t)
	mustCreateSpec(t, writer, "base", specfm.Frontmatter{Status: "planned", Created: "2026-01-01"}, "body")
	mustCreateSpec(t, writer, "mid", specfm.Frontmatter{
		Status: "planned", Created: "2026-01-01", DependsOn: []string{"001-base"},
	}, "body")
	mustCreateSpec(t, writer, "ui", specfm.Frontmatter{
		Status: "planned", Created: "2026-01-01", DependsOn: []string{"002-mid"},
	}, "body")

	tool := NewRelationships(eng)
	result, err := tool.Execute(context.Background(), []byte(`{"spec":"001-base","action":"add-dep","target":"003-ui"}`))
	require.NoError(t, err)
	require.True(t, result.IsError, "expected add-dep to reject a cycle-closing dependency")

	spec, err := eng.Loader.LoadStrict("001-base")
	require.NoError(t, err)
	assert.Empty(t, spec.Frontmatter.DependsOn)
}

func TestRelationships_AddDepPersists(t *testing.T) {
	eng, writer := testEngine(t)
	mustCreateSpec(t, writer, "base", specfm.Frontmatter{Status: "planned", Created: "2026-01-01"}, "body")
	mustCreateSpec(t, writer, "leaf", specfm.Frontmatter{Status: "planned", Created: "2026-01-01"}, "body")

	tool := NewRelationships(eng)
	result, err := tool.Execute(context.Background(), []byte(`{"spec":"002-leaf","action":"add-dep","target":"001-base"}`))
	require.NoError(t, err)

	var out struct {
		DependsOn []string `json:"dependsOn"`
	}
	decodeResult(t, result, &out)
	assert.Equal(t, []string{"001-base"}, out.DependsOn)

	spec, err := eng.Loader.LoadStrict("002-leaf")
	require.NoError(t, err)
	assert.Equal(t, []string{"001-base"}, spec.Frontmatter.DependsOn)
}
