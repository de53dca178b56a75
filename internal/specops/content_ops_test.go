package specops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const body = `# My Spec

## Overview

Intro text.

## Plan

- [ ] Step one
- [x] Step two
`

func TestApplyReplacements_Unique(t *testing.T) {
	out, results, err := ApplyReplacements(body, []Replacement{
		{Old: "Intro text.", New: "Updated intro.", Mode: ModeUnique},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Updated intro.")
	assert.Equal(t, []int{5}, results[0].Lines)
}

func TestApplyReplacements_UniqueFailsOnMultipleMatches(t *testing.T) {
	_, _, err := ApplyReplacements("foo bar foo", []Replacement{
		{Old: "foo", New: "baz", Mode: ModeUnique},
	})
	require.Error(t, err)
}

func TestApplyReplacements_EmptyOldRejected(t *testing.T) {
	_, _, err := ApplyReplacements(body, []Replacement{{Old: "", New: "x", Mode: ModeAll}})
	require.Error(t, err)
}

func TestApplyReplacements_All(t *testing.T) {
	out, results, err := ApplyReplacements("a a a", []Replacement{{Old: "a", New: "b", Mode: ModeAll}})
	require.NoError(t, err)
	assert.Equal(t, "b b b", out)
	assert.Len(t, results[0].Lines, 3)
}

func TestApplySectionUpdates_Replace(t *testing.T) {
	out, err := ApplySectionUpdates(body, []SectionUpdate{
		{Heading: "Overview", Content: "New overview.", Mode: SectionReplace},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "New overview.")
	assert.NotContains(t, out, "Intro text.")
	assert.Contains(t, out, "## Plan")
}

func TestApplySectionUpdates_MissingSection(t *testing.T) {
	_, err := ApplySectionUpdates(body, []SectionUpdate{
		{Heading: "Nonexistent", Content: "x", Mode: SectionReplace},
	})
	require.Error(t, err)
}

func TestApplySectionUpdates_Append(t *testing.T) {
	out, err := ApplySectionUpdates(body, []SectionUpdate{
		{Heading: "overview", Content: "Appended line.", Mode: SectionAppend},
	})
	require.NoError(t, err)
	idx := indexOf(out, "Intro text.")
	idx2 := indexOf(out, "Appended line.")
	require.True(t, idx >= 0 && idx2 > idx)
}

func TestApplyChecklistToggles(t *testing.T) {
	out, results, err := ApplyChecklistToggles(body, []ChecklistToggle{
		{ItemText: "Step one", Checked: true},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "[x] Step one")
	assert.Equal(t, 8, results[0].Line)
}

func TestApplyChecklistToggles_MissingItem(t *testing.T) {
	_, _, err := ApplyChecklistToggles(body, []ChecklistToggle{{ItemText: "nope", Checked: true}})
	require.Error(t, err)
}

func TestPreserveTitleHeading_RestoresRemovedTitle(t *testing.T) {
	mutated := "# Different Title\n\nbody"
	out := PreserveTitleHeading(body, mutated)
	assert.Contains(t, out, "# My Spec")
}

func TestPreserveTitleHeading_NoopWhenUnchanged(t *testing.T) {
	out := PreserveTitleHeading(body, body)
	assert.Equal(t, body, out)
}

func TestApplyUpdate_WholeBodyIgnoresOthers(t *testing.T) {
	content := "New body without title"
	out, _, err := ApplyUpdate(body, &content, []Replacement{{Old: "x", New: "y", Mode: ModeAll}}, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "# My Spec") // title restored as prefix
	assert.Contains(t, out, "New body without title")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
