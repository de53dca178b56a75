package validate

import (
	"fmt"
	"strings"

	"github.com/leanspec/leanspec/internal/specfm"
)

// FrontmatterOptions configures the frontmatter validator. Grounded on
// original_source/rust/leanspec-core/src/validators/frontmatter.rs's
// FrontmatterOptions.
type FrontmatterOptions struct {
	// RequiredFields beyond status/created (already enforced by the codec).
	RequiredFields []string
	// WarnUnknownFields, when true, emits a warning for every custom key not
	// present in KnownCustomFields.
	WarnUnknownFields bool
	// KnownCustomFields declares custom-field name -> type, per SPEC_FULL.md
	// §6 config's frontmatter.custom map.
	KnownCustomFields map[string]string
}

// ValidateFrontmatter checks a spec's frontmatter for the frontmatter-level
// issues in SPEC_FULL.md §4.6.
func ValidateFrontmatter(fm specfm.Frontmatter, specPath string, opts FrontmatterOptions) Result {
	var r Result

	if !dateShapeOK(fm.Created) {
		r.addField(SeverityError, "invalid_created_date", "created", "created date is malformed, expected YYYY-MM-DD")
	}

	for _, dep := range fm.DependsOn {
		if dep == "" {
			r.add(SeverityError, "empty_depends_on_entry", "depends_on contains an empty entry")
			continue
		}
		if dep == specPath {
			r.add(SeverityError, "self_dependency", "spec depends on itself")
		}
	}

	emptyTags := 0
	for _, tag := range fm.Tags {
		if strings.TrimSpace(tag) == "" {
			emptyTags++
			continue
		}
		if strings.Contains(tag, " ") {
			r.addField(SeverityWarning, "tag_has_spaces", "tags", fmt.Sprintf("tag %q contains spaces", tag))
		}
	}
	if emptyTags > 0 {
		r.addField(SeverityWarning, "empty_tags", "tags", "one or more tags are empty")
	}

	if fm.Status == string(specfm.StatusInProgress) && fm.Assignee == "" {
		r.addField(SeverityInfo, "in_progress_no_assignee", "assignee", "spec is in-progress but has no assignee")
	}
	if fm.Status == string(specfm.StatusComplete) && fm.CompletedAt == "" && fm.Completed == "" {
		r.addField(SeverityInfo, "completed_no_date", "completed", "spec is complete but has no completion date")
	}

	for _, field := range opts.RequiredFields {
		if !fieldPresent(fm, field) {
			r.addField(SeverityError, "missing_required_field", field, "required field is missing")
		}
	}

	if opts.WarnUnknownFields {
		for key := range fm.Custom {
			if _, known := opts.KnownCustomFields[key]; !known {
				r.addField(SeverityWarning, "unknown_field", key, "unrecognized custom field")
			}
		}
	}

	return r
}

func dateShapeOK(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i, c := range s {
		switch i {
		case 4, 7:
			if c != '-' {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

func fieldPresent(fm specfm.Frontmatter, field string) bool {
	switch field {
	case "priority":
		return fm.Priority != ""
	case "assignee":
		return fm.Assignee != ""
	case "reviewer":
		return fm.Reviewer != ""
	case "tags":
		return len(fm.Tags) > 0
	default:
		_, ok := fm.Custom[field]
		return ok
	}
}
