package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// CompletionItem is a single checklist entry found while verifying
// completion readiness.
type CompletionItem struct {
	Line    int    `json:"line"`
	Text    string `json:"text"`
	Section string `json:"section,omitempty"`
	Checked bool   `json:"checked"`
}

// CompletionProgress summarizes checklist completion as a fraction.
type CompletionProgress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// CompletionResult is the outcome of VerifyCompletion.
type CompletionResult struct {
	IsComplete  bool              `json:"is_complete"`
	Outstanding []CompletionItem  `json:"outstanding"`
	Progress    CompletionProgress `json:"progress"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

var (
	completionHeadingRe  = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*$`)
	completionChecklistRe = regexp.MustCompile(`^\s*-\s*\[([ xX])\]\s*(.*)$`)
)

// VerifyCompletion scans body for Markdown checklist items ("- [ ] ..." /
// "- [x] ...") and reports whether every item is checked, grounded on
// SPEC_FULL.md §4.6's completion gate used by the "complete" status
// transition. A spec with no checklist items at all is considered complete
// (there is nothing outstanding to block it).
func VerifyCompletion(body string) CompletionResult {
	var (
		items       []CompletionItem
		outstanding []CompletionItem
		section     string
	)

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if m := completionHeadingRe.FindStringSubmatch(line); m != nil {
			section = m[1]
			continue
		}
		m := completionChecklistRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		checked := m[1] == "x" || m[1] == "X"
		item := CompletionItem{
			Line:    i + 1,
			Text:    strings.TrimSpace(m[2]),
			Section: section,
			Checked: checked,
		}
		items = append(items, item)
		if !checked {
			outstanding = append(outstanding, item)
		}
	}

	total := len(items)
	completed := total - len(outstanding)
	progress := CompletionProgress{Completed: completed, Total: total}
	if total > 0 {
		progress.Percentage = float64(completed) / float64(total) * 100
	} else {
		progress.Percentage = 100
	}

	var suggestions []string
	for _, item := range outstanding {
		if item.Section != "" {
			suggestions = append(suggestions, fmt.Sprintf("complete %q in section %q", item.Text, item.Section))
		} else {
			suggestions = append(suggestions, fmt.Sprintf("complete %q", item.Text))
		}
	}

	return CompletionResult{
		IsComplete:  len(outstanding) == 0,
		Outstanding: outstanding,
		Progress:    progress,
		Suggestions: suggestions,
	}
}

// VerifyUmbrellaCompletion reports whether every child spec's status equals
// "complete", for the umbrella-spec completion gate in SPEC_FULL.md §4.6.
func VerifyUmbrellaCompletion(childStatuses []string) CompletionResult {
	var outstanding []CompletionItem
	for _, st := range childStatuses {
		if st != "complete" {
			outstanding = append(outstanding, CompletionItem{Text: fmt.Sprintf("child spec has status %q", st)})
		}
	}
	total := len(childStatuses)
	completed := total - len(outstanding)
	progress := CompletionProgress{Completed: completed, Total: total}
	if total > 0 {
		progress.Percentage = float64(completed) / float64(total) * 100
	} else {
		progress.Percentage = 100
	}
	var suggestions []string
	for _, item := range outstanding {
		suggestions = append(suggestions, item.Text)
	}
	return CompletionResult{
		IsComplete:  len(outstanding) == 0,
		Outstanding: outstanding,
		Progress:    progress,
		Suggestions: suggestions,
	}
}
