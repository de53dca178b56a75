package validate

import (
	"testing"

	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFrontmatter_SelfDependency(t *testing.T) {
	fm := specfm.Frontmatter{Status: "planned", Created: "2026-01-01", DependsOn: []string{"042-self"}}
	r := ValidateFrontmatter(fm, "042-self", FrontmatterOptions{})
	require.False(t, r.IsValid())
	assertHasCode(t, r, "self_dependency")
}

func TestValidateFrontmatter_EmptyDependsOnEntry(t *testing.T) {
	fm := specfm.Frontmatter{Status: "planned", Created: "2026-01-01", DependsOn: []string{""}}
	r := ValidateFrontmatter(fm, "001-a", FrontmatterOptions{})
	assertHasCode(t, r, "empty_depends_on_entry")
}

func TestValidateFrontmatter_MalformedCreatedDate(t *testing.T) {
	fm := specfm.Frontmatter{Status: "planned", Created: "01/01/2026"}
	r := ValidateFrontmatter(fm, "001-a", FrontmatterOptions{})
	assertHasCode(t, r, "invalid_created_date")
}

func TestValidateFrontmatter_InProgressNoAssignee(t *testing.T) {
	fm := specfm.Frontmatter{Status: "in-progress", Created: "2026-01-01"}
	r := ValidateFrontmatter(fm, "001-a", FrontmatterOptions{})
	assertHasCode(t, r, "in_progress_no_assignee")
	assert.True(t, r.IsValid()) // info-level only, doesn't invalidate
}

func TestValidateFrontmatter_CompletedNoDate(t *testing.T) {
	fm := specfm.Frontmatter{Status: "complete", Created: "2026-01-01"}
	r := ValidateFrontmatter(fm, "001-a", FrontmatterOptions{})
	assertHasCode(t, r, "completed_no_date")
}

func TestValidateFrontmatter_MissingRequiredField(t *testing.T) {
	fm := specfm.Frontmatter{Status: "planned", Created: "2026-01-01"}
	r := ValidateFrontmatter(fm, "001-a", FrontmatterOptions{RequiredFields: []string{"assignee"}})
	assertHasCode(t, r, "missing_required_field")
}

func TestValidateFrontmatter_UnknownField(t *testing.T) {
	fm := specfm.Frontmatter{Status: "planned", Created: "2026-01-01", Custom: map[string]interface{}{"sprint": "12"}}
	r := ValidateFrontmatter(fm, "001-a", FrontmatterOptions{WarnUnknownFields: true})
	assertHasCode(t, r, "unknown_field")
}

func TestValidateStructure_MissingTitle(t *testing.T) {
	r := ValidateStructure("## Overview\n\nsome text\n", StructureOptions{})
	assertHasCode(t, r, "missing_title")
}

func TestValidateStructure_MultipleTitles(t *testing.T) {
	r := ValidateStructure("# One\n\n# Two\n\nbody\n", StructureOptions{})
	assertHasCode(t, r, "multiple_titles")
}

func TestValidateStructure_OrphanSubsection(t *testing.T) {
	r := ValidateStructure("# Title\n\n### Orphan\n\ntext\n", StructureOptions{})
	assertHasCode(t, r, "orphan_subsection")
}

func TestValidateStructure_MissingRecommendedSection(t *testing.T) {
	r := ValidateStructure("# Title\n\n## Overview\n\ntext\n", StructureOptions{RecommendedSections: []string{"Acceptance Criteria"}})
	assertHasCode(t, r, "missing_recommended_section")
}

func TestValidateStructure_EmptySection(t *testing.T) {
	r := ValidateStructure("# Title\n\n## Overview\n\n## Next\n\ncontent\n", StructureOptions{})
	assertHasCode(t, r, "empty_section")
}

func TestVerifyCompletion_AllChecked(t *testing.T) {
	body := "# Title\n\n## Tasks\n\n- [x] one\n- [X] two\n"
	result := VerifyCompletion(body)
	assert.True(t, result.IsComplete)
	assert.Empty(t, result.Outstanding)
	assert.Equal(t, 100.0, result.Progress.Percentage)
}

func TestVerifyCompletion_Outstanding(t *testing.T) {
	body := "# Title\n\n## Tasks\n\n- [x] one\n- [ ] two\n"
	result := VerifyCompletion(body)
	require.False(t, result.IsComplete)
	require.Len(t, result.Outstanding, 1)
	assert.Equal(t, "two", result.Outstanding[0].Text)
	assert.Equal(t, "Tasks", result.Outstanding[0].Section)
	assert.NotEmpty(t, result.Suggestions)
}

func TestVerifyCompletion_NoChecklistIsComplete(t *testing.T) {
	result := VerifyCompletion("# Title\n\nno checklist here\n")
	assert.True(t, result.IsComplete)
	assert.Equal(t, 0, result.Progress.Total)
}

func TestVerifyUmbrellaCompletion(t *testing.T) {
	r := VerifyUmbrellaCompletion([]string{"complete", "in-progress"})
	assert.False(t, r.IsComplete)
	require.Len(t, r.Outstanding, 1)
}

func TestEstimateTokens_LevelThresholds(t *testing.T) {
	small := EstimateTokens("short body")
	assert.Equal(t, TokenOptimal, small.Level)
}

func TestValidateTokenBudget_Excessive(t *testing.T) {
	huge := make([]byte, 25000)
	for i := range huge {
		huge[i] = 'a'
	}
	r := ValidateTokenBudget(string(huge))
	assertHasCode(t, r, "token_budget_excessive")
	assert.False(t, r.IsValid())
}

func assertHasCode(t *testing.T, r Result, code string) {
	t.Helper()
	for _, i := range r.Issues {
		if i.Code == code {
			return
		}
	}
	t.Fatalf("expected issue code %q, got %+v", code, r.Issues)
}
