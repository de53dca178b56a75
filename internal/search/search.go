package search

import (
	"sort"
	"strings"

	"github.com/leanspec/leanspec/internal/specstore"
)

// Result is a single matched spec with its relevance score.
type Result struct {
	Path   string   `json:"path"`
	Title  string   `json:"title"`
	Status string   `json:"status"`
	Score  float64  `json:"score"`
	Tags   []string `json:"tags,omitempty"`
}

// Options customizes Search's result set.
type Options struct {
	Limit    int     // 0 means unlimited
	MinScore float64 // results scoring below this are excluded
}

// Search runs query against specs and returns matches ordered by descending
// score, truncated to limit (0 = unlimited). An invalid query returns an
// empty result set; use Validate for explicit query error reporting.
func Search(specs []*specstore.Spec, query string, limit int) []Result {
	return SearchWithOptions(specs, query, Options{Limit: limit})
}

// SearchWithOptions is Search with a minimum-score cutoff.
func SearchWithOptions(specs []*specstore.Spec, query string, opts Options) []Result {
	parsed, err := Parse(query)
	if err != nil {
		return nil
	}
	return searchParsed(specs, parsed, opts)
}

func searchParsed(specs []*specstore.Spec, parsed *Query, opts Options) []Result {
	if len(parsed.Clauses) == 0 {
		return nil
	}

	var results []Result
	for _, spec := range specs {
		if !Matches(spec, parsed) {
			continue
		}
		score := Score(spec, parsed)
		if score < opts.MinScore {
			continue
		}
		results = append(results, Result{
			Path:   spec.Path,
			Title:  spec.Title,
			Status: spec.Frontmatter.Status,
			Score:  score,
			Tags:   spec.Frontmatter.Tags,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

// FindContentSnippet returns the line holding the first occurrence of the
// first term (in terms order) found in lowercased content, quoted (or cut to
// maxLen bytes with "..." appended if longer), or ("", false) if no term
// occurs.
func FindContentSnippet(content string, terms []string, maxLen int) (string, bool) {
	lower := strings.ToLower(content)

	for _, term := range terms {
		pos := strings.Index(lower, term)
		if pos < 0 {
			continue
		}

		start := 0
		if nl := strings.LastIndex(content[:pos], "\n"); nl >= 0 {
			start = nl + 1
		}
		end := len(content)
		if nl := strings.Index(content[pos:], "\n"); nl >= 0 {
			end = pos + nl
		}
		line := content[start:end]

		if len(line) > maxLen {
			return strings.TrimSpace(line[:maxLen]) + "...", true
		}
		return "\"" + strings.TrimSpace(line) + "\"", true
	}

	return "", false
}
