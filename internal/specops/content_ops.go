// Package specops implements structured mutation of a spec's markdown body:
// anchored string replacement, section-scoped edits, and checklist toggles.
//
// Grounded on
// original_source/rust/leanspec-core/src/utils/content_ops.rs for exact mode
// semantics (unique/first/all replacement, replace/append/prepend section
// update, title-heading preservation, line-number reporting).
package specops

import (
	"fmt"
	"regexp"
	"strings"
)

// MatchMode selects how a string Replacement is applied across its matches.
type MatchMode string

const (
	ModeUnique MatchMode = "unique"
	ModeFirst  MatchMode = "first"
	ModeAll    MatchMode = "all"
)

// Replacement is one {old, new, mode} edit instruction.
type Replacement struct {
	Old  string
	New  string
	Mode MatchMode
}

// ReplacementResult reports one applied Replacement: its old and new text and
// the line numbers of every match of Old found before it was applied (in
// first mode only the first of those matches is replaced).
type ReplacementResult struct {
	Old   string
	New   string
	Lines []int
}

// SectionMode selects how a SectionUpdate's content is merged into a section.
type SectionMode string

const (
	SectionReplace SectionMode = "replace"
	SectionAppend  SectionMode = "append"
	SectionPrepend SectionMode = "prepend"
)

// SectionUpdate targets the unique "## <Heading>" section.
type SectionUpdate struct {
	Heading string
	Content string
	Mode    SectionMode
}

// ChecklistToggle flips a single "- [ ]"/"- [x]" line identified by a
// case-insensitive substring of its text.
type ChecklistToggle struct {
	ItemText string
	Checked  bool
}

// ChecklistToggleResult reports the line a toggle landed on.
type ChecklistToggleResult struct {
	ItemText string
	Checked  bool
	Line     int
	LineText string
}

var titleLineRe = regexp.MustCompile(`(?m)^# .+$`)

// ExtractTitleLine returns the first "# Title" heading line in body, if any.
func ExtractTitleLine(body string) (string, bool) {
	loc := titleLineRe.FindString(body)
	if loc == "" {
		return "", false
	}
	return loc, true
}

// PreserveTitleHeading restores the original body's first "# Title" heading
// as a prefix of mutated if mutated no longer starts with (or contains) the
// same heading line.
func PreserveTitleHeading(original, mutated string) string {
	title, ok := ExtractTitleLine(original)
	if !ok {
		return mutated
	}
	if mTitle, mOk := ExtractTitleLine(mutated); mOk && mTitle == title {
		return mutated
	}
	trimmed := strings.TrimLeft(mutated, "\n")
	if trimmed == "" {
		return title + "\n"
	}
	return title + "\n\n" + trimmed
}

// findMatches returns the byte offsets of every non-overlapping occurrence
// of substr in s.
func findMatches(s, substr string) []int {
	var offsets []int
	if substr == "" {
		return offsets
	}
	start := 0
	for {
		idx := strings.Index(s[start:], substr)
		if idx == -1 {
			break
		}
		offsets = append(offsets, start+idx)
		start = start + idx + len(substr)
	}
	return offsets
}

func lineNumberAt(s string, offset int) int {
	if offset > len(s) {
		offset = len(s)
	}
	return strings.Count(s[:offset], "\n") + 1
}

func replaceFirst(s, old, new string) string {
	idx := strings.Index(s, old)
	if idx == -1 {
		return s
	}
	return s[:idx] + new + s[idx+len(old):]
}

func formatLineList(lines []int) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprintf("%d", l)
	}
	return strings.Join(parts, ", ")
}

// ApplyReplacements applies a sequence of Replacements to body, each seeing
// the prior ones' edits.
func ApplyReplacements(body string, reps []Replacement) (string, []ReplacementResult, error) {
	current := body
	results := make([]ReplacementResult, 0, len(reps))

	for _, r := range reps {
		if r.Old == "" {
			return body, nil, fmt.Errorf("replacement 'old' must not be empty")
		}
		offsets := findMatches(current, r.Old)
		if len(offsets) == 0 {
			return body, nil, fmt.Errorf("no match found for %q", r.Old)
		}
		lines := make([]int, len(offsets))
		for i, off := range offsets {
			lines[i] = lineNumberAt(current, off)
		}

		switch r.Mode {
		case ModeUnique:
			if len(offsets) != 1 {
				return body, nil, fmt.Errorf("expected a unique match for %q, found %d at lines %s", r.Old, len(offsets), formatLineList(lines))
			}
			current = replaceFirst(current, r.Old, r.New)
		case ModeFirst:
			current = replaceFirst(current, r.Old, r.New)
		case ModeAll:
			current = strings.ReplaceAll(current, r.Old, r.New)
		default:
			return body, nil, fmt.Errorf("unknown replacement mode %q", r.Mode)
		}

		results = append(results, ReplacementResult{Old: r.Old, New: r.New, Lines: lines})
	}

	return current, results, nil
}

var sectionHeadingRe = regexp.MustCompile(`(?m)^##[ \t]+(.+?)[ \t]*$`)

type headingMatch struct {
	title      string
	lineStart  int // byte offset of the start of the heading's own line
	lineEnd    int // byte offset just past the heading line's trailing newline (or EOF)
}

func findSectionHeadings(body string) []headingMatch {
	locs := sectionHeadingRe.FindAllStringSubmatchIndex(body, -1)
	out := make([]headingMatch, 0, len(locs))
	for _, loc := range locs {
		lineStart := loc[0]
		lineEnd := loc[1]
		if lineEnd < len(body) && body[lineEnd] == '\n' {
			lineEnd++
		}
		out = append(out, headingMatch{
			title:     body[loc[2]:loc[3]],
			lineStart: lineStart,
			lineEnd:   lineEnd,
		})
	}
	return out
}

func normalizeBlock(content string) string {
	return "\n" + strings.Trim(content, "\n") + "\n\n"
}

// ApplySectionUpdates applies a sequence of SectionUpdates to body.
func ApplySectionUpdates(body string, updates []SectionUpdate) (string, error) {
	current := body
	for _, u := range updates {
		var err error
		current, err = applyOneSectionUpdate(current, u)
		if err != nil {
			return body, err
		}
	}
	return current, nil
}

func applyOneSectionUpdate(body string, u SectionUpdate) (string, error) {
	headings := findSectionHeadings(body)
	target := strings.ToLower(strings.TrimSpace(u.Heading))

	matchIdx := -1
	matchCount := 0
	for i, h := range headings {
		if strings.ToLower(strings.TrimSpace(h.title)) == target {
			matchCount++
			matchIdx = i
		}
	}
	if matchCount == 0 {
		return body, fmt.Errorf("section %q not found", u.Heading)
	}
	if matchCount > 1 {
		return body, fmt.Errorf("section %q is ambiguous (%d matches)", u.Heading, matchCount)
	}

	sectionStart := headings[matchIdx].lineEnd
	sectionEnd := len(body)
	if matchIdx+1 < len(headings) {
		sectionEnd = headings[matchIdx+1].lineStart
	}

	before := body[:sectionStart]
	existing := body[sectionStart:sectionEnd]
	after := body[sectionEnd:]

	var newRegion string
	switch u.Mode {
	case SectionReplace:
		newRegion = normalizeBlock(u.Content)
	case SectionAppend:
		newRegion = strings.TrimRight(existing, "\n") + "\n" + normalizeBlock(u.Content)
	case SectionPrepend:
		newRegion = normalizeBlock(u.Content) + strings.TrimLeft(existing, "\n")
	default:
		return body, fmt.Errorf("unknown section mode %q", u.Mode)
	}

	return before + newRegion + after, nil
}

var checklistLineRe = regexp.MustCompile(`^(\s*-\s*\[)([ xX])(\]\s*)(.*)$`)

// ApplyChecklistToggles flips the first matching "- [ ]" line for each
// toggle, in order.
func ApplyChecklistToggles(body string, toggles []ChecklistToggle) (string, []ChecklistToggleResult, error) {
	lines := strings.Split(body, "\n")
	results := make([]ChecklistToggleResult, 0, len(toggles))

	for _, t := range toggles {
		found := false
		for i, line := range lines {
			m := checklistLineRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			text := m[4]
			if !strings.Contains(strings.ToLower(text), strings.ToLower(t.ItemText)) {
				continue
			}
			mark := " "
			if t.Checked {
				mark = "x"
			}
			newLine := m[1] + mark + m[3] + m[4]
			lines[i] = newLine
			results = append(results, ChecklistToggleResult{
				ItemText: t.ItemText,
				Checked:  t.Checked,
				Line:     i + 1,
				LineText: newLine,
			})
			found = true
			break
		}
		if !found {
			return body, nil, fmt.Errorf("checklist item not found: %q", t.ItemText)
		}
	}

	return strings.Join(lines, "\n"), results, nil
}

// ComposeResult aggregates what a composed Update touched.
type ComposeResult struct {
	Replacements []ReplacementResult
	Checklist    []ChecklistToggleResult
}

// ApplyUpdate composes a whole-body replace (if content != nil), then
// replacements, section updates, and checklist toggles, always preserving
// the original first "# Title" heading. If content is non-nil, the other
// three inputs are ignored, per SPEC_FULL.md §4.2 Compose.
func ApplyUpdate(body string, content *string, reps []Replacement, sections []SectionUpdate, toggles []ChecklistToggle) (string, *ComposeResult, error) {
	if content != nil {
		return PreserveTitleHeading(body, *content), &ComposeResult{}, nil
	}

	current := body
	result := &ComposeResult{}

	if len(reps) > 0 {
		next, rr, err := ApplyReplacements(current, reps)
		if err != nil {
			return body, nil, err
		}
		current = next
		result.Replacements = rr
	}

	if len(sections) > 0 {
		next, err := ApplySectionUpdates(current, sections)
		if err != nil {
			return body, nil, err
		}
		current = next
	}

	if len(toggles) > 0 {
		next, tr, err := ApplyChecklistToggles(current, toggles)
		if err != nil {
			return body, nil, err
		}
		current = next
		result.Checklist = tr
	}

	return PreserveTitleHeading(body, current), result, nil
}
