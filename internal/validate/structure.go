package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// StructureOptions configures the structure validator's recommended-section
// check, grounded on original_source/rust/leanspec-core/src/validators/
// structure.rs's RECOMMENDED_SECTIONS list (made configurable rather than
// hardcoded, per SPEC_FULL.md §6 config.validation.recommended_sections).
type StructureOptions struct {
	RecommendedSections []string
}

var structureHeadingRe = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+?)\s*$`)

type heading struct {
	level int
	text  string
	line  int
}

func extractHeadings(body string) []heading {
	var out []heading
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		m := structureHeadingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, heading{level: len(m[1]), text: strings.TrimSpace(m[2]), line: i + 1})
	}
	return out
}

// ValidateStructure checks heading structure and section presence.
func ValidateStructure(body string, opts StructureOptions) Result {
	var r Result

	headings := extractHeadings(body)

	h1Count := 0
	for _, h := range headings {
		if h.level == 1 {
			h1Count++
		}
	}
	if h1Count == 0 {
		r.add(SeverityError, "missing_title", "document has no H1 title heading")
	} else if h1Count > 1 {
		r.add(SeverityWarning, "multiple_titles", fmt.Sprintf("document has %d H1 headings, expected exactly one", h1Count))
	}

	for i, h := range headings {
		if h.level != 3 {
			continue
		}
		hasH2Parent := false
		for j := i - 1; j >= 0; j-- {
			if headings[j].level == 2 {
				hasH2Parent = true
				break
			}
			if headings[j].level < 2 {
				break
			}
		}
		if !hasH2Parent {
			r.add(SeverityWarning, "orphan_subsection", fmt.Sprintf("### %s at line %d has no preceding ## section", h.text, h.line))
		}
	}

	present := make(map[string]bool, len(headings))
	for _, h := range headings {
		present[strings.ToLower(h.text)] = true
	}
	for _, want := range opts.RecommendedSections {
		if !present[strings.ToLower(want)] {
			r.add(SeverityWarning, "missing_recommended_section", fmt.Sprintf("missing recommended section %q", want))
		}
	}

	for i, h := range headings {
		if h.level < 2 {
			continue
		}
		end := len(body)
		lines := strings.Split(body, "\n")
		if i+1 < len(headings) {
			end = headings[i+1].line - 1
		} else {
			end = len(lines)
		}
		start := h.line
		empty := true
		for ln := start; ln < end && ln < len(lines); ln++ {
			if strings.TrimSpace(lines[ln]) != "" {
				empty = false
				break
			}
		}
		if empty {
			r.add(SeverityWarning, "empty_section", fmt.Sprintf("section %q at line %d has no content", h.text, h.line))
		}
	}

	return r
}
