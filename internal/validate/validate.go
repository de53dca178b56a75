package validate

import "github.com/leanspec/leanspec/internal/specfm"

// Options bundles every validator's configuration for ValidateSpec.
type Options struct {
	Frontmatter FrontmatterOptions
	Structure   StructureOptions
}

// ValidateSpec runs the frontmatter, structure, and token-budget validators
// against one spec document and merges their issues, per SPEC_FULL.md §4.6's
// "validate" operation.
func ValidateSpec(doc *specfm.Document, specPath string, opts Options) Result {
	var r Result
	r.Merge(ValidateFrontmatter(doc.Frontmatter, specPath, opts.Frontmatter))
	r.Merge(ValidateStructure(doc.Body, opts.Structure))
	r.Merge(ValidateTokenBudget(doc.Body))
	return r
}
