// Package session supervises external AI-assistant processes ("runners")
// spawned to work a spec: starting, reading their stdout/stderr, and
// persisting their lifecycle to SQLite. Grounded on
// original_source/rust/leanspec-core/src/sessions/runner.rs (the runner
// registry/interpolation/merge semantics) and the teacher's
// internal/scheduler package (the goroutine-supervision idiom, generalized
// from a single cron loop to per-session process supervision).
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

const runnersSchemaURL = "https://leanspec.dev/schemas/runners.json"

// RunnerConfig is a partial runner override, as read from a runners.json
// file: every field is optional and merges onto (or creates) a
// RunnerDefinition.
type RunnerConfig struct {
	Name    *string           `json:"name,omitempty"`
	Command *string           `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// RunnersFile is the on-disk shape of a runners.json file.
type RunnersFile struct {
	Schema  string                  `json:"$schema,omitempty"`
	Runners map[string]RunnerConfig `json:"runners,omitempty"`
	Default string                  `json:"default,omitempty"`
}

// RunnerDefinition is a fully resolved runner: enough to build an
// *exec.Cmd.
type RunnerDefinition struct {
	ID      string
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

// DisplayName returns Name, falling back to ID.
func (r RunnerDefinition) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// ValidateCommand reports whether r.Command resolves on PATH.
func (r RunnerDefinition) ValidateCommand() error {
	if _, err := exec.LookPath(r.Command); err != nil {
		return fmt.Errorf("runner command not found: %s", r.Command)
	}
	return nil
}

// BuildCommand constructs the *exec.Cmd for a run of this runner against
// workingDir, with extraArgs appended after the runner's own args and
// extraEnv layered over the runner's (after ${VAR} interpolation).
func (r RunnerDefinition) BuildCommand(workingDir string, extraArgs []string, extraEnv map[string]string) (*exec.Cmd, error) {
	args := append(append([]string(nil), r.Args...), extraArgs...)
	cmd := exec.Command(r.Command, args...)
	if workingDir != "" {
		cmd.Dir = workingDir
	}

	env := os.Environ()
	for key, value := range r.Env {
		resolved, err := interpolateEnv(value)
		if err != nil {
			return nil, err
		}
		env = append(env, key+"="+resolved)
	}
	for key, value := range extraEnv {
		env = append(env, key+"="+value)
	}
	cmd.Env = env

	return cmd, nil
}

var envRefRe = regexp.MustCompile(`\$\{([^}]*)\}`)

// interpolateEnv expands every "${VAR}" reference in value against the
// process environment, erroring if a referenced variable is unset or the
// reference is empty ("${}").
func interpolateEnv(value string) (string, error) {
	var missing, empty bool
	result := envRefRe.ReplaceAllStringFunc(value, func(match string) string {
		name := envRefRe.FindStringSubmatch(match)[1]
		if name == "" {
			empty = true
			return ""
		}
		v, ok := os.LookupEnv(name)
		if !ok {
			missing = true
			return ""
		}
		return v
	})
	if empty {
		return "", fmt.Errorf("empty environment variable reference")
	}
	if missing {
		return "", fmt.Errorf("environment variable not set")
	}
	return result, nil
}

// RunnerRegistry holds the resolved set of available runners, layering
// built-in defaults with global and project runners.json overrides.
type RunnerRegistry struct {
	runners map[string]RunnerDefinition
	order   []string
	dflt    string
}

// Builtins returns the registry's built-in runner catalog: Claude Code,
// GitHub Copilot, Codex CLI, OpenCode, Aider, and Cline, matching the
// catalog in runner.rs.
func Builtins() *RunnerRegistry {
	reg := &RunnerRegistry{runners: map[string]RunnerDefinition{}, dflt: "claude"}
	reg.add(RunnerDefinition{ID: "claude", Name: "Claude Code", Command: "claude",
		Args: []string{"--dangerously-skip-permissions", "--print"},
		Env:  map[string]string{"ANTHROPIC_API_KEY": "${ANTHROPIC_API_KEY}"}})
	reg.add(RunnerDefinition{ID: "copilot", Name: "GitHub Copilot", Command: "gh",
		Args: []string{"copilot", "suggest"}})
	reg.add(RunnerDefinition{ID: "codex", Name: "Codex CLI", Command: "codex"})
	reg.add(RunnerDefinition{ID: "opencode", Name: "OpenCode", Command: "opencode"})
	reg.add(RunnerDefinition{ID: "aider", Name: "Aider", Command: "aider",
		Args: []string{"--no-auto-commits"},
		Env:  map[string]string{"OPENAI_API_KEY": "${OPENAI_API_KEY}"}})
	reg.add(RunnerDefinition{ID: "cline", Name: "Cline", Command: "cline"})
	return reg
}

func (r *RunnerRegistry) add(def RunnerDefinition) {
	r.runners[def.ID] = def
	r.order = append(r.order, def.ID)
}

// Load returns the built-in registry overlaid with global
// (~/.lean-spec/runners.json) and project (.lean-spec/runners.json)
// overrides, project taking precedence.
func Load(projectPath string) (*RunnerRegistry, error) {
	reg := Builtins()

	if home, err := os.UserHomeDir(); err == nil {
		if file, err := readRunnersFile(filepath.Join(home, ".lean-spec", "runners.json")); err != nil {
			return nil, err
		} else if file != nil {
			if err := reg.applyConfig(*file); err != nil {
				return nil, err
			}
		}
	}

	if file, err := readRunnersFile(filepath.Join(projectPath, ".lean-spec", "runners.json")); err != nil {
		return nil, err
	} else if file != nil {
		if err := reg.applyConfig(*file); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// Get returns the runner definition for id.
func (r *RunnerRegistry) Get(id string) (RunnerDefinition, bool) {
	def, ok := r.runners[id]
	return def, ok
}

// List returns every runner definition, in registration order (builtins
// first, then IDs added by overrides; IDs added by the same runners.json
// file come in no defined order).
func (r *RunnerRegistry) List() []RunnerDefinition {
	out := make([]RunnerDefinition, 0, len(r.runners))
	seen := map[string]bool{}
	for _, id := range r.order {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, r.runners[id])
	}
	return out
}

// Default returns the registry's default runner ID, if any.
func (r *RunnerRegistry) Default() string { return r.dflt }

// ListAvailable returns every runner whose command resolves on PATH.
func (r *RunnerRegistry) ListAvailable() []RunnerDefinition {
	var out []RunnerDefinition
	for _, def := range r.List() {
		if def.ValidateCommand() == nil {
			out = append(out, def)
		}
	}
	return out
}

// Validate checks that id names a known runner whose command resolves.
func (r *RunnerRegistry) Validate(id string) error {
	def, ok := r.runners[id]
	if !ok {
		return fmt.Errorf("unknown runner: %s", id)
	}
	return def.ValidateCommand()
}

func (r *RunnerRegistry) applyConfig(file RunnersFile) error {
	for id, override := range file.Runners {
		if existing, ok := r.runners[id]; ok {
			r.runners[id] = mergeRunner(existing, override)
		} else {
			if override.Command == nil {
				return fmt.Errorf("runner %q missing required command", id)
			}
			def := RunnerDefinition{ID: id, Command: *override.Command, Env: override.Env}
			if override.Name != nil {
				def.Name = *override.Name
			}
			if override.Args != nil {
				def.Args = override.Args
			}
			r.add(def)
		}
	}
	if file.Default != "" {
		r.dflt = file.Default
	}
	return nil
}

func mergeRunner(base RunnerDefinition, override RunnerConfig) RunnerDefinition {
	if override.Name != nil {
		base.Name = *override.Name
	}
	if override.Command != nil {
		base.Command = *override.Command
	}
	if override.Args != nil {
		base.Args = override.Args
	}
	if override.Env != nil {
		base.Env = override.Env
	}
	return base
}

func readRunnersFile(path string) (*RunnersFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading runners file %s: %w", path, err)
	}
	var file RunnersFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing runners file %s: %w", path, err)
	}
	return &file, nil
}

// DefaultRunnersFile returns an empty runners.json skeleton, schema-stamped,
// suitable for a project to copy and customize.
func DefaultRunnersFile() RunnersFile {
	return RunnersFile{Schema: runnersSchemaURL, Runners: map[string]RunnerConfig{}}
}

// WriteRunnersFile writes file to path, schema-stamping it if absent and
// creating parent directories as needed.
func WriteRunnersFile(path string, file RunnersFile) error {
	if file.Schema == "" {
		file.Schema = runnersSchemaURL
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating runners dir: %w", err)
	}
	out, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing runners file: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing runners file: %w", err)
	}
	return nil
}

// sanitizeID lowercases and dash-joins a runner display name into an ID,
// used when a CLI command needs to derive an ID from free-form input.
func sanitizeID(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}
