package search

import (
	"strings"

	"github.com/leanspec/leanspec/internal/specstore"
)

// matchesField evaluates a single field:value filter against a spec. Not
// transcribed from original_source (search/filters.rs was not present in
// the retrieved pack; see DESIGN.md), written to the field-filter behavior
// SPEC_FULL.md §4.5 and the original's own tests describe: status/priority
// match by exact (case-insensitive) value, tag by exact membership, title by
// substring, and created by a ">", ">=", "<", "<=", or exact string
// comparison against the YYYY-MM-DD (or YYYY-MM) created date.
func matchesField(spec *specstore.Spec, field Field, value string) bool {
	switch field {
	case FieldStatus:
		return strings.EqualFold(spec.Frontmatter.Status, value)
	case FieldPriority:
		return strings.EqualFold(spec.Frontmatter.Priority, value)
	case FieldTag:
		for _, tag := range spec.Frontmatter.Tags {
			if strings.EqualFold(tag, value) {
				return true
			}
		}
		return false
	case FieldTitle:
		return strings.Contains(strings.ToLower(spec.Title), value)
	case FieldCreated:
		return matchesCreated(spec.Frontmatter.Created, value)
	default:
		return false
	}
}

// matchesCreated compares spec's created date against a "created:" filter
// value. The comparison is precision-matched: a filter of "2025-10"
// (year-month) compares only the year-month prefix of created, so a spec
// created on 2025-10-12 is neither before nor after the "2025-10" cutoff —
// it's within that month, not relative to it. A fully-qualified
// "2025-10-12" filter compares the full date.
func matchesCreated(created, value string) bool {
	op, rhs := splitDateOperator(value)
	comparable := created
	if len(comparable) > len(rhs) {
		comparable = comparable[:len(rhs)]
	}
	switch op {
	case ">=":
		return comparable >= rhs
	case "<=":
		return comparable <= rhs
	case ">":
		return comparable > rhs
	case "<":
		return comparable < rhs
	default:
		return created == rhs || strings.HasPrefix(created, rhs)
	}
}

func splitDateOperator(value string) (op, rhs string) {
	switch {
	case strings.HasPrefix(value, ">="):
		return ">=", value[2:]
	case strings.HasPrefix(value, "<="):
		return "<=", value[2:]
	case strings.HasPrefix(value, ">"):
		return ">", value[1:]
	case strings.HasPrefix(value, "<"):
		return "<", value[1:]
	default:
		return "", value
	}
}
