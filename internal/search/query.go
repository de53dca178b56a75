// Package search implements the boolean/field/fuzzy/phrase query language
// used to find specs: tokenizer, parser, matcher, and relevance scorer.
// Grounded line-for-line on
// original_source/rust/leanspec-core/src/search/{mod,query,scorer}.rs.
package search

import (
	"fmt"
	"strconv"
	"strings"
)

// LogicalConnector joins one query clause to the next.
type LogicalConnector int

const (
	And LogicalConnector = iota
	Or
)

// Field is one of the recognized field-filter keys ("status:", "tag:", ...).
type Field int

const (
	FieldStatus Field = iota
	FieldTag
	FieldPriority
	FieldCreated
	FieldTitle
)

// TermKind discriminates the three term shapes a clause's Term can hold.
type TermKind int

const (
	TermWord TermKind = iota
	TermPhrase
	TermField
)

// Term is a single parsed query atom: a bare word (optionally fuzzy), a
// quoted phrase, or a field:value filter.
type Term struct {
	Kind  TermKind
	Value string
	Fuzzy *int // only set when Kind == TermWord and a "~N" suffix was present
	Field Field
}

// Clause is one query term plus how it joins the running match.
type Clause struct {
	Connector LogicalConnector
	Negated   bool
	Term      Term
}

// Query is a fully parsed search expression.
type Query struct {
	Clauses   []Clause
	TextTerms []string
}

// QueryError is returned by Parse on malformed query syntax.
type QueryError struct{ Message string }

func (e *QueryError) Error() string { return e.Message }

// Validate reports whether query parses, without returning the parsed form.
func Validate(query string) error {
	_, err := Parse(query)
	return err
}

// Parse tokenizes and parses a query string into a Query.
func Parse(query string) (*Query, error) {
	tokens, err := tokenize(query)
	if err != nil {
		return nil, err
	}
	return parseTokens(tokens)
}

// ParseTerms returns the plain free-text terms of query (words, phrases,
// and title: filter values), ignoring operators and other field filters.
// Invalid queries fall back to a permissive whitespace split rather than
// returning an error, matching the teacher's parse_query_terms behavior.
func ParseTerms(query string) []string {
	if parsed, err := Parse(query); err == nil {
		return parsed.TextTerms
	}

	var terms []string
	for _, t := range strings.Fields(query) {
		upper := strings.ToUpper(t)
		if upper == "AND" || upper == "OR" || upper == "NOT" || strings.Contains(t, ":") {
			continue
		}
		terms = append(terms, strings.ToLower(t))
	}
	return terms
}

type tokenKind int

const (
	tokenRaw tokenKind = iota
	tokenPhrase
)

type token struct {
	kind  tokenKind
	value string
}

func tokenize(query string) ([]token, error) {
	var tokens []token
	runes := []rune(query)
	var current strings.Builder

	flush := func() {
		if trimmed := strings.TrimSpace(current.String()); trimmed != "" {
			tokens = append(tokens, token{kind: tokenRaw, value: trimmed})
		}
		current.Reset()
	}

	i := 0
	for i < len(runes) {
		ch := runes[i]
		switch {
		case ch == '"':
			flush()
			j := i + 1
			var phrase strings.Builder
			closed := false
			for j < len(runes) {
				if runes[j] == '"' {
					closed = true
					break
				}
				phrase.WriteRune(runes[j])
				j++
			}
			if !closed {
				return nil, &QueryError{Message: "Unterminated quote in query"}
			}
			p := strings.TrimSpace(phrase.String())
			if p == "" {
				return nil, &QueryError{Message: "Empty quoted phrase is not allowed"}
			}
			tokens = append(tokens, token{kind: tokenPhrase, value: strings.ToLower(p)})
			i = j + 1
			continue
		case isSpace(ch):
			flush()
		default:
			current.WriteRune(ch)
		}
		i++
	}
	flush()

	if len(tokens) == 0 {
		return nil, &QueryError{Message: "Empty search query"}
	}
	return tokens, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func parseTokens(tokens []token) (*Query, error) {
	var clauses []Clause
	var textTerms []string

	connector := And
	negated := false
	expectTerm := true

	for _, tok := range tokens {
		switch tok.kind {
		case tokenRaw:
			upper := strings.ToUpper(tok.value)

			if upper == "AND" || upper == "OR" {
				if expectTerm {
					return nil, &QueryError{Message: fmt.Sprintf("Unexpected operator '%s'", tok.value)}
				}
				if upper == "OR" {
					connector = Or
				} else {
					connector = And
				}
				expectTerm = true
				continue
			}

			if upper == "NOT" {
				if !expectTerm {
					connector = And
				}
				negated = !negated
				expectTerm = true
				continue
			}

			term, err := parseTerm(tok.value)
			if err != nil {
				return nil, err
			}
			addTextTerms(&textTerms, term)
			clauses = append(clauses, Clause{Connector: connector, Negated: negated, Term: term})

			connector = And
			negated = false
			expectTerm = false

		case tokenPhrase:
			term := Term{Kind: TermPhrase, Value: tok.value}
			textTerms = append(textTerms, tok.value)
			clauses = append(clauses, Clause{Connector: connector, Negated: negated, Term: term})

			connector = And
			negated = false
			expectTerm = false
		}
	}

	if expectTerm {
		return nil, &QueryError{Message: "Query ends with an operator"}
	}
	if len(clauses) == 0 {
		return nil, &QueryError{Message: "Empty search query"}
	}

	return &Query{Clauses: clauses, TextTerms: textTerms}, nil
}

func addTextTerms(textTerms *[]string, term Term) {
	switch term.Kind {
	case TermWord:
		*textTerms = append(*textTerms, term.Value)
	case TermPhrase:
		*textTerms = append(*textTerms, term.Value)
	case TermField:
		if term.Field == FieldTitle {
			*textTerms = append(*textTerms, term.Value)
		}
	}
}

func parseTerm(raw string) (Term, error) {
	if idx := strings.Index(raw, ":"); idx >= 0 {
		fieldName := raw[:idx]
		value := strings.ToLower(strings.TrimSpace(raw[idx+1:]))
		key := strings.ToLower(fieldName)
		if value == "" {
			return Term{}, &QueryError{Message: fmt.Sprintf("Missing value for field '%s:'", fieldName)}
		}

		var field Field
		switch key {
		case "status":
			field = FieldStatus
		case "tag":
			field = FieldTag
		case "priority":
			field = FieldPriority
		case "created":
			field = FieldCreated
		case "title":
			field = FieldTitle
		default:
			return Term{}, &QueryError{Message: fmt.Sprintf("Unknown field '%s:'", fieldName)}
		}

		return Term{Kind: TermField, Field: field, Value: value}, nil
	}

	lower := strings.ToLower(raw)
	value, fuzzy, err := parseFuzzy(lower)
	if err != nil {
		return Term{}, err
	}
	return Term{Kind: TermWord, Value: value, Fuzzy: fuzzy}, nil
}

func parseFuzzy(raw string) (string, *int, error) {
	idx := strings.LastIndex(raw, "~")
	if idx < 0 {
		return raw, nil, nil
	}

	base := strings.TrimSpace(raw[:idx])
	if base == "" {
		return "", nil, &QueryError{Message: "Invalid fuzzy token"}
	}

	threshold := 1
	if idx+1 < len(raw) {
		n, err := strconv.Atoi(raw[idx+1:])
		if err != nil {
			return "", nil, &QueryError{Message: "Invalid fuzzy threshold; expected number"}
		}
		threshold = n
	}

	return base, &threshold, nil
}
