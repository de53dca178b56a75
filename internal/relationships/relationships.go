// Package relationships validates parent/child and dependency edits before
// they are written, catching self-references, hierarchy/dependency
// conflicts, and cycles. Grounded on original_source's relationships.rs.
package relationships

import (
	"fmt"

	"github.com/leanspec/leanspec/internal/lserr"
)

// SpecRef is the minimal view of a spec this package needs: its path, its
// declared parent (if any), and its declared dependencies.
type SpecRef struct {
	Path      string
	Parent    string
	DependsOn []string
}

func formatPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " → "
		}
		out += p
	}
	return out
}

// ValidateParentAssignment checks that assigning newParent as childSpec's
// parent would not create a cycle in the parent hierarchy. Returns a
// *lserr.RelationshipError on violation, nil otherwise.
func ValidateParentAssignment(childSpec, newParent string, specs []SpecRef) error {
	if childSpec == newParent {
		path := []string{childSpec, childSpec}
		return &lserr.RelationshipError{
			Kind:    "parent_cycle",
			Path:    path,
			Message: fmt.Sprintf("cannot set parent - would create cycle: %s", formatPath(path)),
		}
	}

	parentByChild := make(map[string]string, len(specs))
	for _, s := range specs {
		if s.Parent != "" {
			parentByChild[s.Path] = s.Parent
		}
	}

	seen := map[string]bool{}
	current := newParent
	path := []string{childSpec, newParent}

	for {
		parent, ok := parentByChild[current]
		if !ok {
			return nil
		}
		if seen[parent] {
			return nil
		}
		seen[parent] = true

		if parent == childSpec {
			path = append(path, childSpec)
			return &lserr.RelationshipError{
				Kind:    "parent_cycle",
				Path:    path,
				Message: fmt.Sprintf("cannot set parent - would create cycle: %s", formatPath(path)),
			}
		}

		path = append(path, parent)
		current = parent
	}
}

// ValidateDependencyAddition checks that adding newDep as a dependency of
// spec would not self-reference, conflict with the parent/child hierarchy,
// or create a dependency cycle. specs must include spec's own current
// SpecRef (its existing Parent/DependsOn) alongside every other spec in the
// corpus — the hierarchy-conflict and cycle checks below look spec up in
// specs and silently pass if it isn't there, so a caller that excludes spec
// from specs disables this function entirely.
func ValidateDependencyAddition(spec, newDep string, specs []SpecRef) error {
	if spec == newDep {
		return &lserr.RelationshipError{
			Kind:    "self_dependency",
			Path:    []string{spec},
			Message: fmt.Sprintf("cannot add dependency - spec cannot depend on itself: %s", spec),
		}
	}

	var specInfo *SpecRef
	for i := range specs {
		if specs[i].Path == spec {
			specInfo = &specs[i]
			break
		}
	}
	if specInfo == nil {
		return nil
	}

	if specInfo.Parent == newDep {
		return &lserr.RelationshipError{
			Kind: "depends_on_parent",
			Path: []string{spec, newDep},
			Message: fmt.Sprintf(
				"cannot add dependency - spec already has hierarchy relationship:\n  %s has parent %s, cannot also depend on %s\n  Use hierarchy (parent/child) OR dependency, not both for same spec pair.",
				spec, newDep, newDep,
			),
		}
	}

	for _, s := range specs {
		if s.Parent == spec && s.Path == newDep {
			return &lserr.RelationshipError{
				Kind: "depends_on_child",
				Path: []string{spec, newDep},
				Message: fmt.Sprintf(
					"cannot add dependency - target is a child of this spec:\n  %s is parent of %s, cannot depend on its own child",
					spec, newDep,
				),
			}
		}
	}

	depMap := make(map[string][]string, len(specs))
	for _, s := range specs {
		depMap[s.Path] = s.DependsOn
	}
	if path := findDependencyPath(newDep, spec, depMap); path != nil {
		cyclePath := append([]string{spec}, path...)
		return &lserr.RelationshipError{
			Kind:    "dependency_cycle",
			Path:    cyclePath,
			Message: fmt.Sprintf("cannot add dependency - would create cycle: %s", formatPath(cyclePath)),
		}
	}

	return nil
}

// findDependencyPath does a breadth-first search from start looking for
// target in the dependency graph, returning the path start..target if found.
func findDependencyPath(start, target string, depMap map[string][]string) []string {
	queue := []string{start}
	visited := map[string]bool{start: true}
	parentOf := map[string]string{}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, dep := range depMap[node] {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			parentOf[dep] = node

			if dep == target {
				return buildPath(parentOf, start, target)
			}
			queue = append(queue, dep)
		}
	}
	return nil
}

func buildPath(parentOf map[string]string, start, target string) []string {
	path := []string{target}
	current := target
	for current != start {
		parent, ok := parentOf[current]
		if !ok {
			return nil
		}
		current = parent
		path = append(path, current)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
