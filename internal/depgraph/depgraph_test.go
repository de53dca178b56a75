package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteGraphFor_SimpleDependency(t *testing.T) {
	g := New([]Node{
		{Path: "001-base"},
		{Path: "002-feature", DependsOn: []string{"001-base"}},
	})

	feature, ok := g.CompleteGraphFor("002-feature")
	require.True(t, ok)
	require.Len(t, feature.DependsOn, 1)
	assert.Equal(t, "001-base", feature.DependsOn[0])

	base, ok := g.CompleteGraphFor("001-base")
	require.True(t, ok)
	require.Len(t, base.RequiredBy, 1)
	assert.Equal(t, "002-feature", base.RequiredBy[0])
}

func TestUpstreamDownstream_Transitive(t *testing.T) {
	g := New([]Node{
		{Path: "001-base"},
		{Path: "002-middle", DependsOn: []string{"001-base"}},
		{Path: "003-top", DependsOn: []string{"002-middle"}},
	})

	upstream := g.Upstream("003-top", 3)
	assert.Len(t, upstream, 2)

	downstream := g.Downstream("001-base", 3)
	assert.Len(t, downstream, 2)
}

func TestUpstream_RespectsMaxDepth(t *testing.T) {
	g := New([]Node{
		{Path: "001-base"},
		{Path: "002-middle", DependsOn: []string{"001-base"}},
		{Path: "003-top", DependsOn: []string{"002-middle"}},
	})

	upstream := g.Upstream("003-top", 1)
	assert.Equal(t, []string{"002-middle"}, upstream)
}

func TestHasCircularDependency(t *testing.T) {
	g := New([]Node{
		{Path: "001-a", DependsOn: []string{"002-b"}},
		{Path: "002-b", DependsOn: []string{"001-a"}},
	})

	assert.True(t, g.HasCircularDependency("001-a"))
	assert.True(t, g.HasCircularDependency("002-b"))
}

func TestHasCircularDependency_NoCycle(t *testing.T) {
	g := New([]Node{
		{Path: "001-a"},
		{Path: "002-b", DependsOn: []string{"001-a"}},
	})
	assert.False(t, g.HasCircularDependency("002-b"))
}

func TestFindAllCycles(t *testing.T) {
	g := New([]Node{
		{Path: "001-a", DependsOn: []string{"002-b"}},
		{Path: "002-b", DependsOn: []string{"001-a"}},
		{Path: "003-c"},
	})
	cycles := g.FindAllCycles()
	require.NotEmpty(t, cycles)
}

func TestTopologicalSort(t *testing.T) {
	g := New([]Node{
		{Path: "003-top", DependsOn: []string{"002-middle"}},
		{Path: "001-base"},
		{Path: "002-middle", DependsOn: []string{"001-base"}},
	})

	sorted, ok := g.TopologicalSort()
	require.True(t, ok)

	index := func(p string) int {
		for i, s := range sorted {
			if s == p {
				return i
			}
		}
		return -1
	}

	assert.Less(t, index("001-base"), index("002-middle"))
	assert.Less(t, index("002-middle"), index("003-top"))
}

func TestTopologicalSort_CycleReturnsFalse(t *testing.T) {
	g := New([]Node{
		{Path: "001-a", DependsOn: []string{"002-b"}},
		{Path: "002-b", DependsOn: []string{"001-a"}},
	})
	_, ok := g.TopologicalSort()
	assert.False(t, ok)
}

func TestImpactRadiusFor_UnknownPath(t *testing.T) {
	g := New([]Node{{Path: "001-a"}})
	_, ok := g.ImpactRadiusFor("999-missing", 3)
	assert.False(t, ok)
}
