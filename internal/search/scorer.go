package search

import (
	"strings"

	"github.com/leanspec/leanspec/internal/specstore"
)

// specText is the lowercased, pre-joined view of a spec the scorer matches
// against, mirroring the teacher-adjacent Rust's SpecText.
type specText struct {
	title    string
	path     string
	tags     []string
	tagsText string
	content  string
}

func newSpecText(spec *specstore.Spec) specText {
	tags := make([]string, len(spec.Frontmatter.Tags))
	for i, t := range spec.Frontmatter.Tags {
		tags[i] = strings.ToLower(t)
	}
	return specText{
		title:    strings.ToLower(spec.Title),
		path:     strings.ToLower(spec.Path),
		tags:     tags,
		tagsText: strings.Join(tags, " "),
		content:  strings.ToLower(spec.Content),
	}
}

// Matches reports whether spec satisfies the boolean combination of clauses
// in query.
func Matches(spec *specstore.Spec, query *Query) bool {
	text := newSpecText(spec)

	acc := false
	currentGroup := false

	for i, clause := range query.Clauses {
		matched := matchesTerm(spec, text, clause.Term)
		if clause.Negated {
			matched = !matched
		}

		if i == 0 {
			currentGroup = matched
			continue
		}

		switch clause.Connector {
		case And:
			currentGroup = currentGroup && matched
		case Or:
			acc = acc || currentGroup
			currentGroup = matched
		}
	}

	return acc || currentGroup
}

// Score computes spec's relevance score for query. Callers should call
// Matches first; Score assumes the spec already matches.
func Score(spec *specstore.Spec, query *Query) float64 {
	text := newSpecText(spec)
	score := 0.0
	textTermCount := 0
	titleTermCount := 0

	for _, clause := range query.Clauses {
		if clause.Negated {
			continue
		}

		switch clause.Term.Kind {
		case TermWord:
			value := clause.Term.Value
			if clause.Term.Fuzzy != nil {
				score += scoreFuzzy(value, *clause.Term.Fuzzy, text)
				textTermCount++
			} else if strings.Contains(text.title, value) || strings.Contains(text.path, value) ||
				tagsContain(text.tags, value) || strings.Contains(text.content, value) {
				termScore := scorePlainWord(value, text)
				if strings.Contains(text.title, value) {
					titleTermCount++
				}
				score += termScore
				textTermCount++
			}
		case TermPhrase:
			value := clause.Term.Value
			if matchesPhrase(value, text) {
				score += scorePhrase(value, text)
				textTermCount++
				if strings.Contains(text.title, value) {
					titleTermCount++
				}
			}
		case TermField:
			if matchesField(spec, clause.Term.Field, clause.Term.Value) {
				score += 2.0
			}
		}
	}

	if titleTermCount > 1 {
		score += float64(titleTermCount) * 2.0
	}

	if textTermCount == 0 {
		if score < 1.0 {
			return 1.0
		}
		return score
	}
	return score
}

func matchesTerm(spec *specstore.Spec, text specText, term Term) bool {
	switch term.Kind {
	case TermWord:
		if term.Fuzzy != nil {
			return matchesFuzzy(term.Value, *term.Fuzzy, text)
		}
		return strings.Contains(text.title, term.Value) || strings.Contains(text.path, term.Value) ||
			tagsContain(text.tags, term.Value) || strings.Contains(text.content, term.Value)
	case TermPhrase:
		return matchesPhrase(term.Value, text)
	case TermField:
		return matchesField(spec, term.Field, term.Value)
	default:
		return false
	}
}

func tagsContain(tags []string, value string) bool {
	for _, t := range tags {
		if strings.Contains(t, value) {
			return true
		}
	}
	return false
}

func matchesPhrase(value string, text specText) bool {
	return strings.Contains(text.title, value) || strings.Contains(text.path, value) ||
		strings.Contains(text.tagsText, value) || strings.Contains(text.content, value)
}

func matchesFuzzy(value string, threshold int, text specText) bool {
	if strings.Contains(text.title, value) || strings.Contains(text.path, value) ||
		tagsContain(text.tags, value) || strings.Contains(text.content, value) {
		return true
	}

	within := func(haystack string) bool {
		d, ok := bestMatchDistanceInText(haystack, value)
		return ok && d <= threshold
	}
	return within(text.title) || within(text.path) || within(text.tagsText) || within(text.content)
}

func scorePlainWord(value string, text specText) float64 {
	score := 0.0

	if strings.Contains(text.title, value) {
		score += 10.0
		for _, w := range strings.Fields(text.title) {
			if w == value {
				score += 5.0
				break
			}
		}
	}

	if strings.Contains(text.path, value) {
		score += 8.0
	}

	if tagsContain(text.tags, value) {
		score += 6.0
		for _, t := range text.tags {
			if t == value {
				score += 3.0
				break
			}
		}
	}

	if n := strings.Count(text.content, value); n > 0 {
		fn := float64(n)
		if fn > 5.0 {
			fn = 5.0
		}
		score += fn
	}

	return score
}

func scorePhrase(value string, text specText) float64 {
	score := 0.0

	if strings.Contains(text.title, value) {
		score += 14.0
	}
	if strings.Contains(text.path, value) {
		score += 10.0
	}
	if strings.Contains(text.tagsText, value) {
		score += 8.0
	}

	if n := strings.Count(text.content, value); n > 0 {
		fn := float64(n) * 2.0
		if fn > 8.0 {
			fn = 8.0
		}
		score += fn
	}

	return score
}

func scoreFuzzy(value string, threshold int, text specText) float64 {
	score := 0.0

	if d, ok := bestMatchDistanceInText(text.title, value); ok && d <= threshold {
		score += 8.0 - float64(d)
	}
	if d, ok := bestMatchDistanceInText(text.path, value); ok && d <= threshold {
		score += 6.0 - float64(d)
	}
	if d, ok := bestMatchDistanceInText(text.tagsText, value); ok && d <= threshold {
		score += 4.0 - float64(d)
	}
	if d, ok := bestMatchDistanceInText(text.content, value); ok && d <= threshold {
		score += 2.0 - float64(d)*0.5
	}

	if score < 0 {
		return 0
	}
	return score
}
