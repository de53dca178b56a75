// Package specfm implements the frontmatter codec: lossless parse/serialize
// of a spec's leading YAML block plus its Markdown body, and a typed,
// strict-parsing update path used by the writer.
//
// Grounded on original_source/rust/leanspec-core/src/parsers/frontmatter.rs
// for field semantics and the round-trip law, and on
// _examples/jra3-linear-fuse/internal/marshal/frontmatter.go for the Go
// split/parse/render shape.
package specfm

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leanspec/leanspec/internal/lserr"
)

const delimiter = "---"

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Status is the closed set of recognized spec lifecycle states.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
	StatusArchived   Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusComplete, StatusArchived:
		return true
	}
	return false
}

// Priority is the closed set of recognized priority levels.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Transition records a single status change with its timestamp.
type Transition struct {
	Status string `yaml:"status"`
	At     string `yaml:"at"`
}

// Frontmatter is the structured metadata of a spec. Recognized fields are
// named struct fields; everything else observed in the YAML document is
// preserved verbatim in Custom (and CustomOrder records the order keys were
// first seen, so re-serialization is stable).
type Frontmatter struct {
	Status    string       `yaml:"status"`
	Created   string       `yaml:"created"`
	Priority  string       `yaml:"priority,omitempty"`
	Tags      []string     `yaml:"tags,omitempty"`
	DependsOn []string     `yaml:"depends_on,omitempty"`
	Parent    string       `yaml:"parent,omitempty"`
	Assignee  string       `yaml:"assignee,omitempty"`
	Reviewer  string       `yaml:"reviewer,omitempty"`
	Issue     string       `yaml:"issue,omitempty"`
	PR        string       `yaml:"pr,omitempty"`
	Epic      string       `yaml:"epic,omitempty"`
	Breaking  bool         `yaml:"breaking,omitempty"`
	Due       string       `yaml:"due,omitempty"`
	Updated   string       `yaml:"updated,omitempty"`
	Completed string       `yaml:"completed,omitempty"`

	CreatedAt   string `yaml:"created_at,omitempty"`
	UpdatedAt   string `yaml:"updated_at,omitempty"`
	CompletedAt string `yaml:"completed_at,omitempty"`

	Transitions []Transition `yaml:"transitions,omitempty"`

	Custom      map[string]interface{} `yaml:"-"`
	CustomOrder []string                `yaml:"-"`
}

// Document is a parsed spec file: its frontmatter and markdown body.
type Document struct {
	Frontmatter Frontmatter
	Body        string
}

// FrontmatterError is the structured error kind returned by Parse/Update.
type FrontmatterError struct {
	Kind   string // no_frontmatter | invalid_format | missing_field | invalid_value | yaml_error
	Field  string
	Value  string
	Reason string
}

func (e *FrontmatterError) Error() string {
	switch e.Kind {
	case "no_frontmatter":
		return "no frontmatter block found"
	case "missing_field":
		return fmt.Sprintf("missing required field %q", e.Field)
	case "invalid_value":
		return fmt.Sprintf("invalid value for field %q: %q (%s)", e.Field, e.Value, e.Reason)
	case "yaml_error":
		return fmt.Sprintf("yaml error: %s", e.Reason)
	default:
		return fmt.Sprintf("invalid frontmatter: %s", e.Reason)
	}
}

func (e *FrontmatterError) Unwrap() error { return lserr.Parse }

var recognizedKeys = map[string]bool{
	"status": true, "created": true, "priority": true, "tags": true,
	"depends_on": true, "parent": true, "assignee": true, "reviewer": true,
	"issue": true, "pr": true, "epic": true, "breaking": true, "due": true,
	"updated": true, "completed": true, "created_at": true, "updated_at": true,
	"completed_at": true, "transitions": true,
}

// Parse splits a spec file's raw bytes into frontmatter and body.
func Parse(content []byte) (*Document, error) {
	text := string(content)
	trimmed := strings.TrimLeft(text, " \t\r\n")
	leadingWS := text[:len(text)-len(trimmed)]

	if !strings.HasPrefix(trimmed, delimiter) {
		return nil, &FrontmatterError{Kind: "no_frontmatter"}
	}

	rest := trimmed[len(delimiter):]
	// The opening delimiter must be followed by a newline (or be exactly "---").
	if len(rest) > 0 && rest[0] != '\n' && rest[0] != '\r' {
		return nil, &FrontmatterError{Kind: "invalid_format", Reason: "opening delimiter not on its own line"}
	}
	rest = strings.TrimPrefix(rest, "\r\n")
	rest = strings.TrimPrefix(rest, "\n")

	closeIdx := findClosingDelimiter(rest)
	if closeIdx == -1 {
		return nil, &FrontmatterError{Kind: "invalid_format", Reason: "unclosed frontmatter block"}
	}

	yamlBlock := rest[:closeIdx]
	afterClose := rest[closeIdx:]
	// afterClose begins with the "---" line; skip it and its newline.
	afterClose = strings.TrimPrefix(afterClose, delimiter)
	afterClose = strings.TrimPrefix(afterClose, "\r\n")
	afterClose = strings.TrimPrefix(afterClose, "\n")
	// At most one additional leading newline is consumed from the body.
	body := strings.TrimPrefix(afterClose, "\n")

	_ = leadingWS

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(yamlBlock), &node); err != nil {
		return nil, &FrontmatterError{Kind: "yaml_error", Reason: err.Error()}
	}

	fm := Frontmatter{Custom: map[string]interface{}{}}
	if len(node.Content) > 0 {
		mapping := node.Content[0]
		if mapping.Kind != yaml.MappingNode {
			return nil, &FrontmatterError{Kind: "invalid_format", Reason: "frontmatter is not a YAML mapping"}
		}
		if err := decodeMapping(mapping, &fm); err != nil {
			return nil, err
		}
	}

	if fm.Status == "" {
		return nil, &FrontmatterError{Kind: "missing_field", Field: "status"}
	}
	if fm.Created == "" {
		return nil, &FrontmatterError{Kind: "missing_field", Field: "created"}
	}
	if !dateRe.MatchString(fm.Created) {
		return nil, &FrontmatterError{Kind: "invalid_value", Field: "created", Value: fm.Created, Reason: "expected YYYY-MM-DD"}
	}

	return &Document{Frontmatter: fm, Body: body}, nil
}

// findClosingDelimiter returns the index within s at which a line containing
// exactly "---" begins, scanning from the start of s (s is everything after
// the opening delimiter's newline).
func findClosingDelimiter(s string) int {
	offset := 0
	for {
		idx := strings.Index(s[offset:], delimiter)
		if idx == -1 {
			return -1
		}
		abs := offset + idx
		lineStart := abs == 0 || s[abs-1] == '\n'
		lineEnd := abs+len(delimiter) == len(s) ||
			s[abs+len(delimiter)] == '\n' || s[abs+len(delimiter)] == '\r'
		if lineStart && lineEnd {
			return abs
		}
		offset = abs + len(delimiter)
	}
}

func decodeMapping(mapping *yaml.Node, fm *Frontmatter) error {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode := mapping.Content[i]
		valNode := mapping.Content[i+1]
		key := keyNode.Value

		if !recognizedKeys[key] {
			var v interface{}
			if err := valNode.Decode(&v); err != nil {
				return &FrontmatterError{Kind: "yaml_error", Reason: err.Error()}
			}
			fm.Custom[key] = v
			fm.CustomOrder = append(fm.CustomOrder, key)
			continue
		}

		switch key {
		case "status":
			fm.Status = valNode.Value
		case "created":
			fm.Created = scalarOrFirst(valNode)
		case "priority":
			fm.Priority = valNode.Value
		case "tags":
			tags, err := decodeStringList(valNode)
			if err != nil {
				return err
			}
			fm.Tags = tags
		case "depends_on":
			deps, err := decodeStringList(valNode)
			if err != nil {
				return err
			}
			fm.DependsOn = deps
		case "parent":
			fm.Parent = valNode.Value
		case "assignee":
			fm.Assignee = valNode.Value
		case "reviewer":
			fm.Reviewer = valNode.Value
		case "issue":
			fm.Issue = valNode.Value
		case "pr":
			fm.PR = valNode.Value
		case "epic":
			fm.Epic = valNode.Value
		case "breaking":
			var b bool
			if err := valNode.Decode(&b); err != nil {
				return &FrontmatterError{Kind: "invalid_value", Field: "breaking", Value: valNode.Value, Reason: "expected boolean"}
			}
			fm.Breaking = b
		case "due":
			fm.Due = scalarOrFirst(valNode)
		case "updated":
			fm.Updated = scalarOrFirst(valNode)
		case "completed":
			fm.Completed = scalarOrFirst(valNode)
		case "created_at":
			fm.CreatedAt = valNode.Value
		case "updated_at":
			fm.UpdatedAt = valNode.Value
		case "completed_at":
			fm.CompletedAt = valNode.Value
		case "transitions":
			var ts []Transition
			if err := valNode.Decode(&ts); err != nil {
				return &FrontmatterError{Kind: "invalid_value", Field: "transitions", Reason: err.Error()}
			}
			fm.Transitions = ts
		}
	}
	return nil
}

func scalarOrFirst(n *yaml.Node) string {
	return n.Value
}

// decodeStringList accepts a YAML sequence, a comma-separated scalar string,
// or a JSON-array-looking scalar string ("[a, b]"), matching the original
// parser's tolerance for tags/depends_on supplied as plain strings on input.
func decodeStringList(n *yaml.Node) ([]string, error) {
	if n.Kind == yaml.SequenceNode {
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			out = append(out, item.Value)
		}
		return out, nil
	}
	if n.Kind == yaml.ScalarNode {
		s := strings.TrimSpace(n.Value)
		if s == "" {
			return nil, nil
		}
		if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
			s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(strings.Trim(p, `"'`))
			if p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return nil, &FrontmatterError{Kind: "invalid_value", Reason: "expected a list or comma-separated string"}
}

// Render serializes a Document back to file bytes: "---\n<yaml>---\n\n<body>".
// Declaration order of recognized fields is fixed (status, created, then
// optionals, then custom); empty optional collections are omitted.
func Render(doc *Document) ([]byte, error) {
	node, err := buildNode(&doc.Frontmatter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter)
	buf.WriteString("\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, &FrontmatterError{Kind: "yaml_error", Reason: err.Error()}
	}
	enc.Close()

	buf.WriteString(delimiter)
	buf.WriteString("\n\n")
	buf.WriteString(doc.Body)

	return buf.Bytes(), nil
}

func buildNode(fm *Frontmatter) (*yaml.Node, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	add := func(key string, val interface{}) {
		k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
		v := &yaml.Node{}
		_ = v.Encode(val)
		mapping.Content = append(mapping.Content, k, v)
	}

	add("status", fm.Status)
	add("created", fm.Created)
	if fm.Priority != "" {
		add("priority", fm.Priority)
	}
	if len(fm.Tags) > 0 {
		add("tags", fm.Tags)
	}
	if len(fm.DependsOn) > 0 {
		add("depends_on", fm.DependsOn)
	}
	if fm.Parent != "" {
		add("parent", fm.Parent)
	}
	if fm.Assignee != "" {
		add("assignee", fm.Assignee)
	}
	if fm.Reviewer != "" {
		add("reviewer", fm.Reviewer)
	}
	if fm.Issue != "" {
		add("issue", fm.Issue)
	}
	if fm.PR != "" {
		add("pr", fm.PR)
	}
	if fm.Epic != "" {
		add("epic", fm.Epic)
	}
	if fm.Breaking {
		add("breaking", fm.Breaking)
	}
	if fm.Due != "" {
		add("due", fm.Due)
	}
	if fm.Updated != "" {
		add("updated", fm.Updated)
	}
	if fm.Completed != "" {
		add("completed", fm.Completed)
	}
	if fm.CreatedAt != "" {
		add("created_at", fm.CreatedAt)
	}
	if fm.UpdatedAt != "" {
		add("updated_at", fm.UpdatedAt)
	}
	if fm.CompletedAt != "" {
		add("completed_at", fm.CompletedAt)
	}
	if len(fm.Transitions) > 0 {
		add("transitions", fm.Transitions)
	}
	for _, key := range fm.CustomOrder {
		if v, ok := fm.Custom[key]; ok {
			add(key, v)
		}
	}

	return mapping, nil
}

// MetadataUpdate is a typed set of overrides applied by Update. Pointer
// fields distinguish "not supplied" from "supplied as zero value".
type MetadataUpdate struct {
	Status    *string
	Priority  *string
	Tags      *[]string
	DependsOn *[]string
	Parent    *string
	Assignee  *string
	Reviewer  *string
	Issue     *string
	PR        *string
	Epic      *string
	Breaking  *bool
	Due       *string
	Custom    map[string]interface{}
}

// Now is overridable in tests.
var Now = func() time.Time { return time.Now().UTC() }

// Update parses content, applies typed overrides, stamps updated_at (and
// completed_at on a fresh transition to complete), and re-serializes.
func Update(content []byte, upd MetadataUpdate) ([]byte, error) {
	doc, err := Parse(content)
	if err != nil {
		return nil, err
	}

	fm := &doc.Frontmatter
	wasComplete := fm.Status == string(StatusComplete)

	if upd.Status != nil {
		s := Status(*upd.Status)
		if !s.Valid() {
			return nil, &FrontmatterError{Kind: "invalid_value", Field: "status", Value: *upd.Status, Reason: "must be one of planned|in-progress|complete|archived"}
		}
		fm.Status = string(s)
	}
	if upd.Priority != nil {
		p := Priority(*upd.Priority)
		if !p.Valid() {
			return nil, &FrontmatterError{Kind: "invalid_value", Field: "priority", Value: *upd.Priority, Reason: "must be one of low|medium|high|critical"}
		}
		fm.Priority = *upd.Priority
	}
	if upd.Tags != nil {
		fm.Tags = *upd.Tags
	}
	if upd.DependsOn != nil {
		fm.DependsOn = *upd.DependsOn
	}
	if upd.Parent != nil {
		fm.Parent = *upd.Parent
	}
	if upd.Assignee != nil {
		fm.Assignee = *upd.Assignee
	}
	if upd.Reviewer != nil {
		fm.Reviewer = *upd.Reviewer
	}
	if upd.Issue != nil {
		fm.Issue = *upd.Issue
	}
	if upd.PR != nil {
		fm.PR = *upd.PR
	}
	if upd.Epic != nil {
		fm.Epic = *upd.Epic
	}
	if upd.Breaking != nil {
		fm.Breaking = *upd.Breaking
	}
	if upd.Due != nil {
		fm.Due = *upd.Due
	}
	for k, v := range upd.Custom {
		if fm.Custom == nil {
			fm.Custom = map[string]interface{}{}
		}
		if _, seen := fm.Custom[k]; !seen {
			fm.CustomOrder = append(fm.CustomOrder, k)
		}
		fm.Custom[k] = v
	}

	now := Now().Format(time.RFC3339)
	fm.UpdatedAt = now
	if fm.Status == string(StatusComplete) && !wasComplete && fm.CompletedAt == "" {
		fm.CompletedAt = now
	}

	return Render(doc)
}

// ContentHash computes the optimistic-concurrency fingerprint of a spec
// body: the hash of the body after frontmatter strip, with line endings
// normalized to "\n". This rule must be identical everywhere a hash is
// computed or compared (writer, HTTP conflict check) — see SPEC_FULL.md §9.
func ContentHash(body string) string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	sum := fnv1a(normalized)
	return strconv.FormatUint(sum, 16)
}

// fnv1a is a tiny, dependency-free 64-bit FNV-1a hash. No pack example
// vendors a content-hashing library for this narrow a need, and the
// specification only requires a stable fingerprint, not cryptographic
// strength.
func fnv1a(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	var h uint64 = offset64
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
