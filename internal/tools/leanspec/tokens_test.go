package leanspec

import (
	"context"
	"testing"

	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/leanspec/leanspec/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_SingleSpec(t *testing.T) {
	eng, writer := testEngine(t)
	mustCreateSpec(t, writer, "short", specfm.Frontmatter{Status: "planned", Created: "2026-01-01"}, "short body")

	tool := NewTokens(eng)
	result, err := tool.Execute(context.Background(), []byte(`{"spec":"001-short"}`))
	require.NoError(t, err)

	var report tokenReport
	decodeResult(t, result, &report)
	assert.Equal(t, "001-short", report.Path)
	assert.Equal(t, validate.TokenOptimal, report.Level)
}

func TestTokens_AllSpecs(t *testing.T) {
	eng, writer := testEngine(t)
	mustCreateSpec(t, writer, "a", specfm.Frontmatter{Status: "planned", Created: "2026-01-01"}, "aaaa")
	mustCreateSpec(t, writer, "b", specfm.Frontmatter{Status: "planned", Created: "2026-01-01"}, "bbbb")

	tool := NewTokens(eng)
	result, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)

	var out struct {
		Specs []tokenReport `json:"specs"`
		Total int           `json:"total"`
	}
	decodeResult(t, result, &out)
	assert.Len(t, out.Specs, 2)
	assert.Greater(t, out.Total, 0)
}

func TestTokens_UnknownSpec(t *testing.T) {
	eng, _ := testEngine(t)
	tool := NewTokens(eng)
	result, err := tool.Execute(context.Background(), []byte(`{"spec":"999-missing"}`))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
