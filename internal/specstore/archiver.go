package specstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leanspec/leanspec/internal/lserr"
	"github.com/leanspec/leanspec/internal/specfm"
)

// Archive renames the spec's directory into archived/<name> and then sets
// its status to "archived" at the new location. Fails if the destination
// already exists.
func (w *Writer) Archive(specID string) (*Spec, error) {
	spec, err := w.loader.LoadStrict(specID)
	if err != nil {
		return nil, err
	}

	srcDir := filepath.Dir(spec.FilePath)
	dstDir := filepath.Join(w.loader.Root(), "archived", spec.Path)

	if _, err := os.Stat(dstDir); err == nil {
		return nil, fmt.Errorf("%w: archive destination %s already exists", lserr.Conflict, dstDir)
	}

	if err := os.MkdirAll(filepath.Dir(dstDir), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating archived/: %v", lserr.IO, err)
	}
	if err := os.Rename(srcDir, dstDir); err != nil {
		return nil, fmt.Errorf("%w: archiving %s: %v", lserr.IO, srcDir, err)
	}
	InvalidateCachedPath(spec.FilePath)

	archivedReadme := filepath.Join(dstDir, "README.md")
	raw, err := os.ReadFile(archivedReadme)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", lserr.IO, archivedReadme, err)
	}
	status := string(specfm.StatusArchived)
	newContent, err := specfm.Update(raw, specfm.MetadataUpdate{Status: &status})
	if err != nil {
		return nil, err
	}
	if err := atomicWriteFile(archivedReadme, newContent, 0o644); err != nil {
		return nil, err
	}
	InvalidateCachedPath(archivedReadme)

	return w.loader.LoadStrict(spec.Path)
}

// Unarchive is the reverse of Archive: it moves the spec's directory out of
// archived/ and resets its status to "planned" unconditionally.
func (w *Writer) Unarchive(specID string) (*Spec, error) {
	all, err := w.loader.LoadAllIncludingArchived()
	if err != nil {
		return nil, err
	}
	var spec *Spec
	for _, s := range all {
		if s.Path == specID && s.Archived {
			spec = s
			break
		}
	}
	if spec == nil {
		return nil, fmt.Errorf("%w: archived spec %q", lserr.NotFound, specID)
	}

	srcDir := filepath.Dir(spec.FilePath)
	dstDir := filepath.Join(w.loader.Root(), spec.Path)

	if _, err := os.Stat(dstDir); err == nil {
		return nil, fmt.Errorf("%w: unarchive destination %s already exists", lserr.Conflict, dstDir)
	}

	if err := os.Rename(srcDir, dstDir); err != nil {
		return nil, fmt.Errorf("%w: unarchiving %s: %v", lserr.IO, srcDir, err)
	}
	InvalidateCachedPath(spec.FilePath)

	readme := filepath.Join(dstDir, "README.md")
	raw, err := os.ReadFile(readme)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", lserr.IO, readme, err)
	}
	status := string(specfm.StatusPlanned)
	newContent, err := specfm.Update(raw, specfm.MetadataUpdate{Status: &status})
	if err != nil {
		return nil, err
	}
	if err := atomicWriteFile(readme, newContent, 0o644); err != nil {
		return nil, err
	}
	InvalidateCachedPath(readme)

	return w.loader.LoadStrict(spec.Path)
}
