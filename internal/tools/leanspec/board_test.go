package leanspec

import (
	"context"
	"testing"

	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_GroupsByStatusByDefault(t *testing.T) {
	eng, writer := testEngine(t)
	mustCreateSpec(t, writer, "a", specfm.Frontmatter{Status: "planned", Created: "2026-01-01"}, "body")
	mustCreateSpec(t, writer, "b", specfm.Frontmatter{Status: "complete", Created: "2026-01-01"}, "body")

	tool := NewBoard(eng)
	result, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)

	var out struct {
		GroupBy string `json:"groupBy"`
		Columns []struct {
			Group string    `json:"group"`
			Specs []summary `json:"specs"`
			Total int       `json:"total"`
		} `json:"columns"`
	}
	decodeResult(t, result, &out)
	assert.Equal(t, "status", out.GroupBy)
	assert.Len(t, out.Columns, 2)
}

func TestBoard_TagGroupingDuplicatesAcrossColumns(t *testing.T) {
	eng, writer := testEngine(t)
	mustCreateSpec(t, writer, "multi", specfm.Frontmatter{
		Status: "planned", Created: "2026-01-01", Tags: []string{"infra", "urgent"},
	}, "body")

	tool := NewBoard(eng)
	result, err := tool.Execute(context.Background(), []byte(`{"groupBy":"tag"}`))
	require.NoError(t, err)

	var out struct {
		Columns []struct {
			Group string    `json:"group"`
			Specs []summary `json:"specs"`
		} `json:"columns"`
	}
	decodeResult(t, result, &out)
	require.Len(t, out.Columns, 2)
	for _, col := range out.Columns {
		assert.Len(t, col.Specs, 1)
	}
}

func TestBoard_UntaggedBucketsIntoNone(t *testing.T) {
	eng, writer := testEngine(t)
	mustCreateSpec(t, writer, "bare", specfm.Frontmatter{Status: "planned", Created: "2026-01-01"}, "body")

	tool := NewBoard(eng)
	result, err := tool.Execute(context.Background(), []byte(`{"groupBy":"tag"}`))
	require.NoError(t, err)

	var out struct {
		Columns []struct {
			Group string `json:"group"`
		} `json:"columns"`
	}
	decodeResult(t, result, &out)
	require.Len(t, out.Columns, 1)
	assert.Equal(t, "(none)", out.Columns[0].Group)
}
