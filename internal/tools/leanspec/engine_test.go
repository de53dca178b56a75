package leanspec

import (
	"encoding/json"
	"testing"

	"github.com/leanspec/leanspec/internal/mcp"
	"github.com/leanspec/leanspec/internal/specfm"
	"github.com/leanspec/leanspec/internal/specstore"
	"github.com/stretchr/testify/require"
)

// testEngine builds an Engine over a throwaway specs tree. A nil session
// manager is fine: none of the tools exercised in this package's tests
// (tokens/board/stats/relationships) touch Sessions.
func testEngine(t *testing.T) (*Engine, *specstore.Writer) {
	t.Helper()
	dir := t.TempDir()
	loader := specstore.NewLoader(dir, nil)
	writer := specstore.NewWriter(loader)
	return NewEngine(loader, writer, nil), writer
}

func mustCreateSpec(t *testing.T, w *specstore.Writer, slug string, fm specfm.Frontmatter, body string) *specstore.Spec {
	t.Helper()
	spec, err := w.CreateSpec(slug, fm, body)
	require.NoError(t, err)
	return spec
}

// decodeResult unmarshals a tool's JSON text result into v, failing the
// test if the result reports an error or isn't valid JSON.
func decodeResult(t *testing.T, result *mcp.ToolsCallResult, v any) {
	t.Helper()
	require.NotNil(t, result)
	require.False(t, result.IsError, "unexpected tool error: %s", textOf(result))
	require.NoError(t, json.Unmarshal([]byte(textOf(result)), v))
}

func textOf(result *mcp.ToolsCallResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	return result.Content[0].Text
}
