package leanspec

import (
	"context"
	"encoding/json"

	"github.com/leanspec/leanspec/internal/mcp"
	"github.com/leanspec/leanspec/internal/session"
)

type runSubagentParams struct {
	ProjectPath   string            `json:"projectPath"`
	Spec          string            `json:"spec,omitempty"`
	Tool          string            `json:"tool,omitempty"`
	Mode          string            `json:"mode,omitempty"`
	MaxIterations int               `json:"maxIterations,omitempty"`
	WorkingDir    string            `json:"workingDir,omitempty"`
	EnvVars       map[string]string `json:"envVars,omitempty"`
	ToolArgs      []string          `json:"toolArgs,omitempty"`
}

// RunSubagent implements the "run_subagent" tool: launch an external
// AI-assistant process supervised by the session manager.
type RunSubagent struct{ engine *Engine }

// NewRunSubagent creates a RunSubagent tool.
func NewRunSubagent(engine *Engine) *RunSubagent { return &RunSubagent{engine: engine} }

func (t *RunSubagent) Name() string { return "run_subagent" }

func (t *RunSubagent) Description() string {
	return "Start an external AI-assistant process against a spec, supervised and logged by the session manager."
}

func (t *RunSubagent) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "projectPath": {"type": "string"},
    "spec": {"type": "string", "description": "Spec path the subagent should work from"},
    "tool": {"type": "string", "description": "Runner name; defaults to claude"},
    "mode": {"type": "string", "enum": ["guided", "autonomous", "ralph"], "description": "Defaults to autonomous"},
    "maxIterations": {"type": "integer"},
    "workingDir": {"type": "string"},
    "envVars": {"type": "object", "additionalProperties": {"type": "string"}},
    "toolArgs": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["projectPath"]
}`)
}

func (t *RunSubagent) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p runSubagentParams
	if err := json.Unmarshal(params, &p); err != nil {
		return mcp.ErrorResult("invalid parameters: " + err.Error()), nil
	}
	if p.ProjectPath == "" {
		return mcp.ErrorResult("projectPath is required"), nil
	}

	cfg := session.DefaultConfig()
	cfg.ProjectPath = p.ProjectPath
	cfg.SpecID = p.Spec
	if p.Tool != "" {
		cfg.Tool = p.Tool
	}
	if p.Mode != "" {
		mode := session.Mode(p.Mode)
		if !mode.Valid() {
			return mcp.ErrorResult("invalid mode: " + p.Mode), nil
		}
		cfg.Mode = mode
	}
	cfg.MaxIterations = p.MaxIterations
	cfg.WorkingDir = p.WorkingDir
	if p.EnvVars != nil {
		cfg.EnvVars = p.EnvVars
	}
	cfg.ToolArgs = p.ToolArgs

	sess, err := t.engine.Sessions.Start(ctx, cfg)
	if err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}

	return mcp.JSONResult(map[string]any{
		"sessionId": sess.ID,
		"status":    sess.Status,
		"tool":      sess.Tool,
		"mode":      sess.Mode,
	})
}
