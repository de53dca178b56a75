// Package leanspec implements the MCP tool surface over the Spec Engine
// core: list, view, create, update, search, validate, tokens, board, stats,
// relationships, run_subagent. Grounded on the teacher's
// internal/tools/workflow/spec_new.go Tool-implementation shape (Name/
// Description/InputSchema/Execute, JSON-marshalled ToolsCallResult), with
// every call against internal/specstore/internal/search/internal/validate
// instead of an emergent.Client.
package leanspec

import (
	"sort"

	"github.com/leanspec/leanspec/internal/depgraph"
	"github.com/leanspec/leanspec/internal/relationships"
	"github.com/leanspec/leanspec/internal/session"
	"github.com/leanspec/leanspec/internal/specstore"
)

// Engine bundles the dependencies every tool in this package needs: the
// spec loader/writer pair and the session manager for run_subagent.
type Engine struct {
	Loader   *specstore.Loader
	Writer   *specstore.Writer
	Sessions *session.Manager
}

// NewEngine constructs an Engine from its component parts.
func NewEngine(loader *specstore.Loader, writer *specstore.Writer, sessions *session.Manager) *Engine {
	return &Engine{Loader: loader, Writer: writer, Sessions: sessions}
}

// specRefs converts loaded specs into relationships.SpecRef for cycle
// checks.
func specRefs(specs []*specstore.Spec) []relationships.SpecRef {
	refs := make([]relationships.SpecRef, 0, len(specs))
	for _, s := range specs {
		parent := s.ParentSpec
		if parent == "" {
			parent = s.Frontmatter.Parent
		}
		refs = append(refs, relationships.SpecRef{Path: s.Path, Parent: parent, DependsOn: s.Frontmatter.DependsOn})
	}
	return refs
}

// depgraphNodes converts loaded specs into depgraph.Node.
func depgraphNodes(specs []*specstore.Spec) []depgraph.Node {
	nodes := make([]depgraph.Node, 0, len(specs))
	for _, s := range specs {
		nodes = append(nodes, depgraph.Node{Path: s.Path, DependsOn: s.Frontmatter.DependsOn})
	}
	return nodes
}

// findSpec returns the spec with the given path from a loaded slice, or nil.
func findSpec(specs []*specstore.Spec, path string) *specstore.Spec {
	for _, s := range specs {
		if s.Path == path {
			return s
		}
	}
	return nil
}

// summary is the compact shape returned by list/board/search for a single
// spec — full content is left to view.
type summary struct {
	Path     string   `json:"path"`
	Title    string   `json:"title"`
	Status   string   `json:"status"`
	Priority string   `json:"priority,omitempty"`
	Assignee string   `json:"assignee,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

func toSummary(s *specstore.Spec) summary {
	return summary{
		Path:     s.Path,
		Title:    s.Title,
		Status:   s.Frontmatter.Status,
		Priority: s.Frontmatter.Priority,
		Assignee: s.Frontmatter.Assignee,
		Tags:     s.Frontmatter.Tags,
	}
}

func sortedSummaries(specs []*specstore.Spec) []summary {
	out := make([]summary, 0, len(specs))
	for _, s := range specs {
		out = append(out, toSummary(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
