package specstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leanspec/leanspec/internal/lserr"
	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/leanspec/leanspec/internal/validate"
)

// UpdateOptions modifies how UpdateMetadata applies an update.
type UpdateOptions struct {
	// Force bypasses the completion gate when transitioning to status=complete.
	Force bool
	// ExpectedContentHash, if non-empty, must equal specfm.ContentHash(spec.Content)
	// or the write is rejected with a Conflict error (optimistic concurrency).
	ExpectedContentHash string
}

// Writer applies metadata and content mutations to specs owned by a Loader,
// via atomic replace (write to "<path>.tmp", then rename).
type Writer struct {
	loader *Loader
}

// NewWriter creates a Writer bound to the given Loader.
func NewWriter(loader *Loader) *Writer {
	return &Writer{loader: loader}
}

// atomicWriteFile writes data to path via a temporary file and rename, per
// SPEC_FULL.md §4.3/§5 writer atomicity.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("%w: writing temp file %s: %v", lserr.IO, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: renaming %s to %s: %v", lserr.IO, tmp, path, err)
	}
	return nil
}

// UpdateMetadata resolves specID strictly, applies upd through the
// frontmatter codec, enforces the completion gate unless Force is set or
// the target status isn't "complete", and writes the result atomically.
func (w *Writer) UpdateMetadata(specID string, upd specfm.MetadataUpdate, opts UpdateOptions) (*Spec, error) {
	spec, err := w.loader.LoadStrict(specID)
	if err != nil {
		return nil, err
	}

	if opts.ExpectedContentHash != "" {
		actual := specfm.ContentHash(spec.Content)
		if actual != opts.ExpectedContentHash {
			return nil, &lserr.ConflictError{Path: spec.FilePath, Expected: opts.ExpectedContentHash, Actual: actual}
		}
	}

	if upd.Status != nil && *upd.Status == string(specfm.StatusComplete) && !opts.Force {
		if err := w.checkCompletionGate(spec); err != nil {
			return nil, err
		}
	}

	raw, err := os.ReadFile(spec.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", lserr.IO, spec.FilePath, err)
	}

	newContent, err := specfm.Update(raw, upd)
	if err != nil {
		return nil, err
	}

	if err := atomicWriteFile(spec.FilePath, newContent, 0o644); err != nil {
		return nil, err
	}
	InvalidateCachedPath(spec.FilePath)

	return w.loader.LoadStrict(spec.Path)
}

func (w *Writer) checkCompletionGate(spec *Spec) error {
	result := validate.VerifyCompletion(spec.Content)
	if !result.IsComplete {
		return &lserr.ValidationError{Message: fmt.Sprintf(
			"spec %q has %d outstanding checklist item(s); use force to override",
			spec.Path, len(result.Outstanding),
		)}
	}

	all, err := w.loader.LoadAll()
	if err != nil {
		return err
	}
	var childStatuses []string
	for _, s := range all {
		if s.ParentSpec == spec.Path || s.Frontmatter.Parent == spec.Path {
			childStatuses = append(childStatuses, s.Frontmatter.Status)
		}
	}
	if len(childStatuses) > 0 {
		for _, st := range childStatuses {
			if st != string(specfm.StatusComplete) {
				return &lserr.ValidationError{Message: fmt.Sprintf(
					"spec %q is an umbrella spec with incomplete children; use force to override",
					spec.Path,
				)}
			}
		}
	}

	return nil
}

// WriteBody overwrites a spec's body (e.g. from the content-ops engine),
// preserving the existing frontmatter, via the same atomic-replace path.
func (w *Writer) WriteBody(specID, newBody string, opts UpdateOptions) (*Spec, error) {
	spec, err := w.loader.LoadStrict(specID)
	if err != nil {
		return nil, err
	}
	if opts.ExpectedContentHash != "" {
		actual := specfm.ContentHash(spec.Content)
		if actual != opts.ExpectedContentHash {
			return nil, &lserr.ConflictError{Path: spec.FilePath, Expected: opts.ExpectedContentHash, Actual: actual}
		}
	}

	doc := specfm.Document{Frontmatter: spec.Frontmatter, Body: newBody}
	out, err := specfm.Render(&doc)
	if err != nil {
		return nil, err
	}
	if err := atomicWriteFile(spec.FilePath, out, 0o644); err != nil {
		return nil, err
	}
	InvalidateCachedPath(spec.FilePath)

	return w.loader.LoadStrict(spec.Path)
}

// CreateSpec allocates the next available spec number, scaffolds a new
// directory with README.md from the given template, and returns the
// resulting Spec. Grounded on spec_loader.rs's create_spec / spec_writer.rs
// conventions: the path is "<NNN>-<slug>".
func (w *Writer) CreateSpec(slug string, fm specfm.Frontmatter, template string) (*Spec, error) {
	all, err := w.loader.LoadAllIncludingArchived()
	if err != nil {
		return nil, err
	}
	next := 1
	for _, s := range all {
		if s.Number >= next {
			next = s.Number + 1
		}
	}

	dirName := fmt.Sprintf("%03d-%s", next, slug)
	dir := filepath.Join(w.loader.Root(), dirName)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: spec directory %s already exists", lserr.Conflict, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", lserr.IO, dir, err)
	}

	doc := specfm.Document{Frontmatter: fm, Body: template}
	out, err := specfm.Render(&doc)
	if err != nil {
		return nil, err
	}
	readme := filepath.Join(dir, "README.md")
	if err := atomicWriteFile(readme, out, 0o644); err != nil {
		return nil, err
	}

	return w.loader.LoadStrict(dirName)
}
