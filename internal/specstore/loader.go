package specstore

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/leanspec/leanspec/internal/lserr"
	"github.com/leanspec/leanspec/internal/specfm"
)

const archivedDirName = "archived"
const maxWalkDepth = 3

var leadingNumberRe = regexp.MustCompile(`^(\d+)`)

// Loader walks a specs root directory and parses README.md files into Specs,
// backed by the process-global path cache.
type Loader struct {
	root   string
	logger *slog.Logger
}

// NewLoader creates a Loader bound to the given specs root directory.
func NewLoader(root string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{root: root, logger: logger}
}

// Root returns the specs root directory this loader is bound to.
func (l *Loader) Root() string { return l.root }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// LoadAll walks the specs tree to depth 3, parsing every accepted
// README.md. Results are sorted by spec number ascending, lexical tiebreak.
func (l *Loader) LoadAll() ([]*Spec, error) {
	return l.loadAll(false)
}

// LoadAllIncludingArchived also walks the archived/ subtree.
func (l *Loader) LoadAllIncludingArchived() ([]*Spec, error) {
	return l.loadAll(true)
}

func (l *Loader) loadAll(includeArchived bool) ([]*Spec, error) {
	var specs []*Spec

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}

		rel, relErr := filepath.Rel(l.root, path)
		if relErr != nil {
			return relErr
		}
		depth := 0
		if rel != "." {
			depth = strings.Count(rel, string(filepath.Separator)) + 1
		}

		if d.IsDir() {
			if path != l.root && filepath.Dir(path) == l.root && d.Name() == archivedDirName {
				if includeArchived {
					return nil
				}
				return filepath.SkipDir
			}
			if depth > maxWalkDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Name() != "README.md" || depth > maxWalkDepth {
			return nil
		}

		specDir := filepath.Dir(path)
		parentDirName := filepath.Base(specDir)
		if specDir == l.root {
			return nil // project-level README, not a spec
		}
		if len(parentDirName) == 0 || !isDigit(parentDirName[0]) {
			return nil
		}

		spec, perr := l.parseSpecFile(path, parentDirName)
		if perr != nil {
			return &lserr.ParseError{Path: path, Reason: perr.Error()}
		}
		spec.Archived = isUnderArchived(l.root, path)
		specs = append(specs, spec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(specs, func(i, j int) bool {
		if specs[i].Number != specs[j].Number {
			return specs[i].Number < specs[j].Number
		}
		return specs[i].Path < specs[j].Path
	})

	return specs, nil
}

func isUnderArchived(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	return len(parts) > 0 && parts[0] == archivedDirName
}

func (l *Loader) parseSpecFile(path, dirName string) (*Spec, error) {
	return globalCache.fill(path, func() (*Spec, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		doc, err := specfm.Parse(raw)
		if err != nil {
			return nil, err
		}

		m := leadingNumberRe.FindString(dirName)
		num, _ := strconv.Atoi(m)

		title := specTitle(doc.Body, dirName)

		specDir := filepath.Dir(path)
		grandDir := filepath.Dir(specDir)
		grandBase := filepath.Base(grandDir)
		isSub := grandDir != l.root && grandBase != archivedDirName && len(grandBase) > 0 && isDigit(grandBase[0])

		spec := &Spec{
			Path:        dirName,
			Number:      num,
			Title:       title,
			FilePath:    path,
			Frontmatter: doc.Frontmatter,
			Content:     doc.Body,
		}
		if isSub {
			spec.IsSubSpec = true
			spec.ParentSpec = grandBase
		}
		return spec, nil
	})
}

var titleHeadingRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

func specTitle(body, fallback string) string {
	m := titleHeadingRe.FindStringSubmatch(body)
	if len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return fallback
}

// Load resolves spec_id against the loaded corpus: exact directory-name
// match first, then a prefix match, then a substring ("fuzzy") match; for
// prefix and substring the first matching directory (in sorted order) wins,
// even when several match. This is the
// permissive resolution path; see LoadStrict for exact/prefix-only callers.
func (l *Loader) Load(specID string) (*Spec, error) {
	all, err := l.LoadAll()
	if err != nil {
		return nil, err
	}
	if s := findExact(all, specID); s != nil {
		return s, nil
	}
	if s := findFirstPrefix(all, specID); s != nil {
		return s, nil
	}
	if s := findFirstSubstring(all, specID); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: spec %q", lserr.NotFound, specID)
}

// LoadStrict resolves spec_id by exact match or unique prefix match only; it
// rejects ambiguous or substring-only ("fuzzy") resolution. Commands whose
// effect is hard to undo (archive, link, update --status complete) should
// use this, per the resolved Open Question in SPEC_FULL.md §9.
func (l *Loader) LoadStrict(specID string) (*Spec, error) {
	all, err := l.LoadAll()
	if err != nil {
		return nil, err
	}
	if s := findExact(all, specID); s != nil {
		return s, nil
	}
	var matches []*Spec
	for _, s := range all {
		if strings.HasPrefix(s.Path, specID) {
			matches = append(matches, s)
		}
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("%w: spec id %q is ambiguous (%d matches)", lserr.NotFound, specID, len(matches))
	}
	return nil, fmt.Errorf("%w: spec %q", lserr.NotFound, specID)
}

func findExact(specs []*Spec, id string) *Spec {
	for _, s := range specs {
		if s.Path == id {
			return s
		}
	}
	return nil
}

func findFirstPrefix(specs []*Spec, id string) *Spec {
	for _, s := range specs {
		if strings.HasPrefix(s.Path, id) {
			return s
		}
	}
	return nil
}

func findFirstSubstring(specs []*Spec, id string) *Spec {
	for _, s := range specs {
		if strings.Contains(s.Path, id) {
			return s
		}
	}
	return nil
}
