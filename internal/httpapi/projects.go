// Package httpapi exposes LeanSpec's Spec Engine over a REST+WebSocket+SSE
// HTTP surface, for a web UI and cloud-sync collaborators. Grounded on the
// teacher's internal/mcp/http.go stdlib net/http.ServeMux routing style (no
// router library appears anywhere in the example pack).
package httpapi

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/leanspec/leanspec/internal/session"
	"github.com/leanspec/leanspec/internal/specstore"
	"github.com/leanspec/leanspec/internal/tools/leanspec"
)

// Project is one registered local project root.
type Project struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// ProjectRegistry tracks the set of project roots this daemon knows about,
// persisted to <home>/.lean-spec/projects.json per SPEC_FULL.md §6's global
// state layout, and lazily builds a Spec Engine per registered project.
type ProjectRegistry struct {
	mu       sync.Mutex
	path     string
	logger   *slog.Logger
	sessions *session.Manager
	projects map[string]Project
	engines  map[string]*leanspec.Engine
}

// DefaultProjectsPath returns "<home>/.lean-spec/projects.json", the global
// state location SPEC_FULL.md's §6 layout specifies for the project list.
func DefaultProjectsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".lean-spec", "projects.json")
}

// NewProjectRegistry loads (or creates) the projects.json file at path,
// sharing a single session.Manager across every registered project.
func NewProjectRegistry(path string, sessions *session.Manager, logger *slog.Logger) (*ProjectRegistry, error) {
	reg := &ProjectRegistry{
		path:     path,
		logger:   logger,
		sessions: sessions,
		projects: map[string]Project{},
		engines:  map[string]*leanspec.Engine{},
	}
	if err := reg.load(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *ProjectRegistry) load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", r.path, err)
	}
	var list []Project
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parsing %s: %w", r.path, err)
	}
	for _, p := range list {
		r.projects[p.ID] = p
	}
	return nil
}

func (r *ProjectRegistry) persist() error {
	list := make([]Project, 0, len(r.projects))
	for _, p := range r.projects {
		list = append(list, p)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}

// Add registers path as a project, keyed by a stable short hash of its
// absolute form, and returns the resulting Project.
func (r *ProjectRegistry) Add(path string) (Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Project{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := projectID(abs)
	p := Project{ID: id, Path: abs}
	r.projects[id] = p
	if err := r.persist(); err != nil {
		return Project{}, err
	}
	return p, nil
}

// List returns every registered project.
func (r *ProjectRegistry) List() []Project {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	return out
}

// Get returns the project with the given id, or false.
func (r *ProjectRegistry) Get(id string) (Project, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	return p, ok
}

// Engine returns the (lazily constructed, cached) Spec Engine for a
// registered project id.
func (r *ProjectRegistry) Engine(id string) (*leanspec.Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[id]
	if !ok {
		return nil, false
	}
	if eng, ok := r.engines[id]; ok {
		return eng, true
	}

	loader := specstore.NewLoader(filepath.Join(p.Path, "specs"), r.logger)
	writer := specstore.NewWriter(loader)
	eng := leanspec.NewEngine(loader, writer, r.sessions)
	r.engines[id] = eng
	return eng, true
}

func projectID(absPath string) string {
	sum := sha1.Sum([]byte(absPath))
	return hex.EncodeToString(sum[:])[:12]
}
