package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/leanspec/leanspec/internal/depgraph"
	"github.com/leanspec/leanspec/internal/lserr"
	"github.com/leanspec/leanspec/internal/search"
	"github.com/leanspec/leanspec/internal/session"
	"github.com/leanspec/leanspec/internal/specfm"
	leanspecengine "github.com/leanspec/leanspec/internal/tools/leanspec"
	"github.com/leanspec/leanspec/internal/validate"
)

// Server is the REST+WebSocket+SSE HTTP surface over a ProjectRegistry.
type Server struct {
	projects *ProjectRegistry
	sessions *session.Manager
	watch    *Watchdog
	cors     string
	logger   *slog.Logger
}

// NewServer builds a Server. corsOrigins is a comma-separated allow-list, or
// "" to disable CORS headers entirely (opt-in per SPEC_FULL.md §6).
func NewServer(projects *ProjectRegistry, sessions *session.Manager, watch *Watchdog, corsOrigins string, logger *slog.Logger) *Server {
	return &Server{projects: projects, sessions: sessions, watch: watch, cors: corsOrigins, logger: logger}
}

// Handler builds the routed http.Handler for every endpoint in SPEC_FULL.md
// §6's HTTP surface table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/api/projects", s.handleProjects)
	mux.HandleFunc("/api/projects/", s.handleProjectScoped)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/deps/", s.handleDeps)
	mux.HandleFunc("/api/validate", s.handleValidate)
	mux.HandleFunc("/api/validate/", s.handleValidate)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionScoped)
	mux.HandleFunc("/ws/sessions/", s.handleSessionLogsWS)

	return s.withCORS(mux)
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cors != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.cors)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.watch.ServeSSE(w, r)
}

// handleProjects serves GET /api/projects and POST /api/projects {path}.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"projects": s.projects.List()})
	case http.MethodPost:
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
			writeError(w, http.StatusBadRequest, errors.New("path is required"))
			return
		}
		p, err := s.projects.Add(body.Path)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if s.watch != nil {
			s.watch.AddRoot(p.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{"project": p})
	default:
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}
}

// handleProjectScoped routes /api/projects/:id/specs[...] requests.
func (s *Server) handleProjectScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 2 || parts[1] != "specs" {
		writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	id := parts[0]
	eng, ok := s.projects.Engine(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown project"))
		return
	}

	if len(parts) == 2 || parts[2] == "" {
		s.listSpecs(w, r, eng)
		return
	}
	s.viewSpec(w, r, eng, parts[2])
}

func (s *Server) listSpecs(w http.ResponseWriter, r *http.Request, eng *leanspecengine.Engine) {
	specs, err := eng.Loader.LoadAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	status := r.URL.Query().Get("status")
	type item struct {
		Path     string `json:"path"`
		Title    string `json:"title"`
		Status   string `json:"status"`
		Priority string `json:"priority,omitempty"`
	}
	out := make([]item, 0, len(specs))
	for _, sp := range specs {
		if status != "" && !strings.EqualFold(sp.Frontmatter.Status, status) {
			continue
		}
		out = append(out, item{Path: sp.Path, Title: sp.Title, Status: sp.Frontmatter.Status, Priority: sp.Frontmatter.Priority})
	}
	writeJSON(w, http.StatusOK, map[string]any{"specs": out, "total": len(out)})
}

// resolveEngine picks the project the request targets: an explicit
// "projectId" query parameter, or the sole registered project when exactly
// one exists. SPEC_FULL.md's abridged /api/search, /api/stats, /api/deps,
// and /api/validate routes carry no :id segment, so a single-project
// daemon needs no disambiguation; a multi-project one must pass projectId.
func (s *Server) resolveEngine(r *http.Request) (*leanspecengine.Engine, error) {
	id := r.URL.Query().Get("projectId")
	if id != "" {
		eng, ok := s.projects.Engine(id)
		if !ok {
			return nil, errors.New("unknown project")
		}
		return eng, nil
	}
	all := s.projects.List()
	if len(all) == 1 {
		eng, _ := s.projects.Engine(all[0].ID)
		return eng, nil
	}
	return nil, errors.New("projectId is required when more than one project is registered")
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	eng, err := s.resolveEngine(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Query == "" {
		writeError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}
	if err := search.Validate(body.Query); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	specs, err := eng.Loader.LoadAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	results := search.Search(specs, body.Query, body.Limit)
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "total": len(results), "query": body.Query})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	eng, err := s.resolveEngine(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	all, err := eng.Loader.LoadAllIncludingArchived()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	byStatus := map[string]int{}
	byPriority := map[string]int{}
	for _, sp := range all {
		byStatus[sp.Frontmatter.Status]++
		if sp.Frontmatter.Priority != "" {
			byPriority[sp.Frontmatter.Priority]++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(all), "byStatus": byStatus, "byPriority": byPriority})
}

func (s *Server) handleDeps(w http.ResponseWriter, r *http.Request) {
	eng, err := s.resolveEngine(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	specPath := strings.TrimPrefix(r.URL.Path, "/api/deps/")
	if specPath == "" {
		writeError(w, http.StatusBadRequest, errors.New("spec path is required"))
		return
	}
	all, err := eng.Loader.LoadAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	nodes := make([]depgraph.Node, 0, len(all))
	for _, sp := range all {
		nodes = append(nodes, depgraph.Node{Path: sp.Path, DependsOn: sp.Frontmatter.DependsOn})
	}
	graph := depgraph.New(nodes)
	complete, ok := graph.CompleteGraphFor(specPath)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown spec: "+specPath))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dependsOn": complete.DependsOn, "requiredBy": complete.RequiredBy})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	eng, err := s.resolveEngine(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	specPath := strings.TrimPrefix(r.URL.Path, "/api/validate/")
	if specPath == "/api/validate" {
		specPath = ""
	}

	var targets []*specfm.Document
	var paths []string
	if specPath != "" {
		sp, err := eng.Loader.LoadStrict(specPath)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		targets = append(targets, &specfm.Document{Frontmatter: sp.Frontmatter, Body: sp.Content})
		paths = append(paths, sp.FilePath)
	} else {
		all, err := eng.Loader.LoadAll()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		for _, sp := range all {
			targets = append(targets, &specfm.Document{Frontmatter: sp.Frontmatter, Body: sp.Content})
			paths = append(paths, sp.FilePath)
		}
	}

	type specResult struct {
		Path    string          `json:"path"`
		IsValid bool            `json:"isValid"`
		Issues  []validate.Issue `json:"issues"`
	}
	allValid := true
	results := make([]specResult, 0, len(targets))
	for i, doc := range targets {
		result := validate.ValidateSpec(doc, paths[i], validate.Options{})
		if !result.IsValid() {
			allValid = false
		}
		results = append(results, specResult{Path: paths[i], IsValid: result.IsValid(), Issues: result.Issues})
	}
	writeJSON(w, http.StatusOK, map[string]any{"isValid": allValid, "issues": results})
}

func (s *Server) viewSpec(w http.ResponseWriter, r *http.Request, eng *leanspecengine.Engine, specPath string) {
	spec, err := eng.Loader.LoadStrict(specPath)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	all, err := eng.Loader.LoadAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var requiredBy []string
	for _, other := range all {
		for _, dep := range other.Frontmatter.DependsOn {
			if dep == spec.Path {
				requiredBy = append(requiredBy, other.Path)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":        spec.Path,
		"title":       spec.Title,
		"frontmatter": spec.Frontmatter,
		"contentMd":   spec.Content,
		"contentHash": specfm.ContentHash(spec.Content),
		"requiredBy":  requiredBy,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeEngineError maps the lserr taxonomy onto HTTP status codes per
// SPEC_FULL.md §7's "HTTP server returns 409 Conflict on optimistic
// failures" policy.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lserr.NotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, lserr.Conflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, lserr.Validation), errors.Is(err, lserr.RelationshipViolation):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, lserr.Parse), errors.Is(err, lserr.Protocol):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// atoiOr returns fallback on an empty or malformed integer query parameter
// instead of failing the whole request.
func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
