// Package specstore implements the spec loader, writer, and archiver: the
// filesystem-backed store described in SPEC_FULL.md §4.3.
//
// Grounded on
// original_source/rust/leanspec-core/src/utils/{spec_loader,spec_writer,spec_archiver}.rs
// for exact walk/atomic-write/archive semantics.
package specstore

import (
	"github.com/leanspec/leanspec/internal/specfm"
)

// Spec is a loaded specification: a directory under the specs root plus its
// parsed frontmatter and body.
type Spec struct {
	Path        string // directory name, e.g. "170-cli-mcp"
	Number      int
	Title       string
	FilePath    string // absolute path to README.md
	Frontmatter specfm.Frontmatter
	Content     string // markdown body
	IsSubSpec   bool
	ParentSpec  string // parent spec's directory name, if IsSubSpec
	Archived    bool
}

// Clone returns a deep copy of s: the struct itself plus its mutable
// Frontmatter slices/map, so a *Spec handed out by the path cache doesn't
// alias the cached copy (§3 Ownership: callers get an independent
// snapshot).
func (s *Spec) Clone() *Spec {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Frontmatter.Tags = append([]string(nil), s.Frontmatter.Tags...)
	cp.Frontmatter.DependsOn = append([]string(nil), s.Frontmatter.DependsOn...)
	cp.Frontmatter.Transitions = append([]specfm.Transition(nil), s.Frontmatter.Transitions...)
	cp.Frontmatter.CustomOrder = append([]string(nil), s.Frontmatter.CustomOrder...)
	if s.Frontmatter.Custom != nil {
		custom := make(map[string]interface{}, len(s.Frontmatter.Custom))
		for k, v := range s.Frontmatter.Custom {
			custom[k] = v
		}
		cp.Frontmatter.Custom = custom
	}
	return &cp
}
