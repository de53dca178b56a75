package specfm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `---
status: planned
created: 2026-01-01
priority: high
tags:
  - api
  - backend
depends_on:
  - 001-base
owner: jamie
---

# My Spec

## Overview

Some text.
`

func TestParse_Basic(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "planned", doc.Frontmatter.Status)
	assert.Equal(t, "2026-01-01", doc.Frontmatter.Created)
	assert.Equal(t, "high", doc.Frontmatter.Priority)
	assert.Equal(t, []string{"api", "backend"}, doc.Frontmatter.Tags)
	assert.Equal(t, []string{"001-base"}, doc.Frontmatter.DependsOn)
	assert.Equal(t, "jamie", doc.Frontmatter.Custom["owner"])
	assert.Contains(t, doc.Body, "# My Spec")
}

func TestParse_NoFrontmatter(t *testing.T) {
	_, err := Parse([]byte("# Just a heading\n"))
	require.Error(t, err)
	var fmErr *FrontmatterError
	require.ErrorAs(t, err, &fmErr)
	assert.Equal(t, "no_frontmatter", fmErr.Kind)
}

func TestParse_MissingRequiredField(t *testing.T) {
	_, err := Parse([]byte("---\nstatus: planned\n---\n\nbody\n"))
	require.Error(t, err)
	var fmErr *FrontmatterError
	require.ErrorAs(t, err, &fmErr)
	assert.Equal(t, "missing_field", fmErr.Kind)
	assert.Equal(t, "created", fmErr.Field)
}

func TestParse_InvalidCreatedDate(t *testing.T) {
	_, err := Parse([]byte("---\nstatus: planned\ncreated: not-a-date\n---\n\nbody\n"))
	require.Error(t, err)
	var fmErr *FrontmatterError
	require.ErrorAs(t, err, &fmErr)
	assert.Equal(t, "invalid_value", fmErr.Kind)
}

func TestRoundTrip(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	out, err := Render(doc)
	require.NoError(t, err)

	doc2, err := Parse(out)
	require.NoError(t, err)

	assert.Equal(t, doc.Frontmatter.Status, doc2.Frontmatter.Status)
	assert.Equal(t, doc.Frontmatter.Created, doc2.Frontmatter.Created)
	assert.Equal(t, doc.Frontmatter.Tags, doc2.Frontmatter.Tags)
	assert.Equal(t, doc.Frontmatter.DependsOn, doc2.Frontmatter.DependsOn)
	assert.Equal(t, doc.Frontmatter.Custom, doc2.Frontmatter.Custom)
	assert.Equal(t, doc.Body, doc2.Body)
}

func TestUpdate_SetsUpdatedAt(t *testing.T) {
	status := "in-progress"
	out, err := Update([]byte(sample), MetadataUpdate{Status: &status})
	require.NoError(t, err)

	doc, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "in-progress", doc.Frontmatter.Status)
	assert.NotEmpty(t, doc.Frontmatter.UpdatedAt)
	assert.Empty(t, doc.Frontmatter.CompletedAt)
}

func TestUpdate_CompleteSetsCompletedAtOnce(t *testing.T) {
	status := "complete"
	out, err := Update([]byte(sample), MetadataUpdate{Status: &status})
	require.NoError(t, err)
	doc, err := Parse(out)
	require.NoError(t, err)
	firstCompletedAt := doc.Frontmatter.CompletedAt
	assert.NotEmpty(t, firstCompletedAt)

	// Re-applying complete (already complete) must not clear/advance completed_at.
	out2, err := Update(out, MetadataUpdate{Status: &status})
	require.NoError(t, err)
	doc2, err := Parse(out2)
	require.NoError(t, err)
	assert.Equal(t, firstCompletedAt, doc2.Frontmatter.CompletedAt)
}

func TestUpdate_InvalidStatusRejected(t *testing.T) {
	bad := "not-a-status"
	_, err := Update([]byte(sample), MetadataUpdate{Status: &bad})
	require.Error(t, err)
}

func TestUpdate_PreservesCustomFields(t *testing.T) {
	priority := "low"
	out, err := Update([]byte(sample), MetadataUpdate{Priority: &priority})
	require.NoError(t, err)
	doc, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "jamie", doc.Frontmatter.Custom["owner"])
}

func TestContentHash_StableAcrossLineEndings(t *testing.T) {
	a := ContentHash("line one\nline two\n")
	b := ContentHash("line one\r\nline two\r\n")
	assert.Equal(t, a, b)
}

func TestContentHash_DiffersOnContentChange(t *testing.T) {
	a := ContentHash("hello")
	b := ContentHash("hello!")
	assert.NotEqual(t, a, b)
}
