// Package lserr defines the LeanSpec error taxonomy: a small set of sentinel
// kinds that every layer (engine, HTTP, MCP) wraps and branches on with
// errors.Is/errors.As instead of inventing ad hoc error types per package.
package lserr

import "errors"

// Kinds, not types — see SPEC_FULL.md §7.
var (
	NotFound               = errors.New("not found")
	Conflict               = errors.New("conflict")
	Validation             = errors.New("validation")
	Parse                  = errors.New("parse")
	RelationshipViolation  = errors.New("relationship violation")
	IO                     = errors.New("io")
	Runner                 = errors.New("runner")
	Protocol               = errors.New("protocol")
)

// ConflictError carries the content hash mismatch detail for an optimistic
// concurrency failure.
type ConflictError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Path + ": expected hash " + e.Expected + ", got " + e.Actual
}

func (e *ConflictError) Unwrap() error { return Conflict }

// RelationshipError carries the offending path chain for a cycle or
// hierarchy/dependency conflict.
type RelationshipError struct {
	Kind    string // "self_dependency", "depends_on_parent", "depends_on_child", "dependency_cycle", "parent_cycle"
	Path    []string
	Message string
}

func (e *RelationshipError) Error() string { return e.Message }

func (e *RelationshipError) Unwrap() error { return RelationshipViolation }

// ParseError carries the path and underlying reason for an unrecoverable
// frontmatter/markdown parse failure.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string { return "parse error: " + e.Path + ": " + e.Reason }

func (e *ParseError) Unwrap() error { return Parse }

// ValidationError wraps a validation issue at the error-returning boundary
// (e.g. the completion gate on update --status complete).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return Validation }
