package mcp

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRedactMCPBodyCredentials verifies credential fields are masked in MCP requests.
func TestRedactMCPBodyCredentials(t *testing.T) {
	payload := map[string]any{
		"method": "tools/call",
		"params": map[string]any{
			"name": "search",
			"arguments": map[string]any{
				"query":   "onboarding guide",
				"api_key": "secret-key",
			},
		},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	redacted := redactMCPBody(string(data))
	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(redacted), &parsed))

	params := parsed["params"].(map[string]any)
	args := params["arguments"].(map[string]any)
	require.Equal(t, redactedPlaceholder, args["api_key"])
	require.Equal(t, "onboarding guide", args["query"])
}

// TestRedactMCPBodyTrimsBulkyContent verifies page-sized fields are trimmed in responses.
func TestRedactMCPBodyTrimsBulkyContent(t *testing.T) {
	payload := map[string]any{
		"result": map[string]any{
			"markdown": strings.Repeat("m", maxLoggedValueChars+100),
			"title":    "Install Guide",
		},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	redacted := redactMCPBody(string(data))
	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(redacted), &parsed))

	result := parsed["result"].(map[string]any)
	markdown := result["markdown"].(string)
	require.True(t, strings.HasSuffix(markdown, "...(truncated)"))
	require.Len(t, []rune(markdown), maxLoggedValueChars+len("...(truncated)"))
	require.Equal(t, "Install Guide", result["title"])
}

func TestRedactMCPBodyPassesThroughInvalidJSON(t *testing.T) {
	raw := "not json at all"
	require.Equal(t, raw, redactMCPBody(raw))
	require.Empty(t, redactMCPBody(""))
}

func TestRedactToolArguments(t *testing.T) {
	require.Nil(t, redactToolArguments(nil))

	args := map[string]any{
		"Authorization": "Bearer abc",
		"query":         "roadmap",
		"nested": map[string]any{
			"session_key": "sess-1",
		},
	}
	redacted := redactToolArguments(args)
	require.Equal(t, redactedPlaceholder, redacted["Authorization"])
	require.Equal(t, "roadmap", redacted["query"])

	nested, ok := redacted["nested"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, redactedPlaceholder, nested["session_key"])

	// The input map stays untouched.
	require.Equal(t, "Bearer abc", args["Authorization"])
}

func TestRedactHookPayload(t *testing.T) {
	redacted := redactHookPayload(map[string]any{"token": "abc", "method": "tools/list"})
	require.Contains(t, redacted, redactedPlaceholder)
	require.NotContains(t, redacted, "abc")
	require.Contains(t, redacted, "tools/list")
}
