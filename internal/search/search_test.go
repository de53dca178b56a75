package search

import (
	"testing"

	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/leanspec/leanspec/internal/specstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec(path, title string, tags []string, content, status, priority, created string) *specstore.Spec {
	return &specstore.Spec{
		Path:    path,
		Title:   title,
		Content: content,
		Frontmatter: specfm.Frontmatter{
			Status:   status,
			Priority: priority,
			Created:  created,
			Tags:     tags,
		},
	}
}

func testSpecs() []*specstore.Spec {
	return []*specstore.Spec{
		testSpec("001-auth-system", "User Authentication", []string{"security", "api"},
			"Implements login and token refresh.", "in-progress", "high", "2025-11-03"),
		testSpec("002-cli-refactor", "CLI Command Refactor", []string{"cli"},
			"Improve command parsing and help output.", "planned", "medium", "2025-10-12"),
		testSpec("003-frontend-polish", "Frontend UX Improvements", []string{"ui", "frontend"},
			"Navigation and responsive layout updates.", "complete", "low", "2025-09-22"),
	}
}

func TestSearch_BooleanAndOrNot(t *testing.T) {
	specs := testSpecs()

	and := Search(specs, "auth AND security", 10)
	require.Len(t, and, 1)
	assert.Equal(t, "001-auth-system", and[0].Path)

	or := Search(specs, "frontend OR cli", 10)
	assert.Len(t, or, 2)

	not := Search(specs, "auth NOT cli", 10)
	require.Len(t, not, 1)
	assert.Equal(t, "001-auth-system", not[0].Path)
}

func TestSearch_FieldFilters(t *testing.T) {
	specs := testSpecs()

	assert.Len(t, Search(specs, "status:in-progress", 10), 1)
	assert.Len(t, Search(specs, "tag:cli", 10), 1)
	assert.Len(t, Search(specs, "priority:high", 10), 1)
	assert.Len(t, Search(specs, "title:refactor", 10), 1)
}

func TestSearch_DateFilters(t *testing.T) {
	specs := testSpecs()

	gt := Search(specs, "created:>2025-10", 10)
	require.Len(t, gt, 1)
	assert.Equal(t, "001-auth-system", gt[0].Path)

	lte := Search(specs, "created:<=2025-10-12", 10)
	assert.Len(t, lte, 2)
}

func TestSearch_PhraseAndFuzzy(t *testing.T) {
	specs := testSpecs()

	phrase := Search(specs, `"token refresh"`, 10)
	assert.Len(t, phrase, 1)

	fuzzy := Search(specs, "authetication~", 10)
	require.Len(t, fuzzy, 1)
	assert.Equal(t, "001-auth-system", fuzzy[0].Path)
}

func TestSearch_MultiTermIsAnd(t *testing.T) {
	specs := testSpecs()
	results := Search(specs, "user auth", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "001-auth-system", results[0].Path)
}

func TestSearch_InvalidQueryReturnsEmpty(t *testing.T) {
	specs := testSpecs()
	assert.Empty(t, Search(specs, "auth AND", 10))
	assert.Error(t, Validate("auth AND"))
}

func TestParseTerms_ExcludesFieldsAndOperators(t *testing.T) {
	terms := ParseTerms(`tag:api status:planned "token refresh" auth`)
	assert.Equal(t, []string{"token refresh", "auth"}, terms)
}

func TestFindContentSnippet(t *testing.T) {
	content := "First line\nSecond line with keyword here\nThird line"
	snippet, ok := FindContentSnippet(content, []string{"keyword"}, 100)
	require.True(t, ok)
	assert.Contains(t, snippet, "keyword")
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("tag:")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing value")

	_, err = Parse("foo:bar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown field")

	_, err = Parse(`"unterminated`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unterminated quote")
}

func TestSearch_ScoringSortsDescending(t *testing.T) {
	specs := testSpecs()
	results := Search(specs, "auth", 10)
	require.NotEmpty(t, results)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestParse_OperatorOnlyQueryFails(t *testing.T) {
	_, err := Parse("AND")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unexpected operator")
}
