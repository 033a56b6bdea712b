package mcp

import (
	"encoding/json"
	"strings"
)

// redactedPlaceholder replaces credential values in logged payloads.
const redactedPlaceholder = "[REDACTED]"

// maxLoggedValueChars caps how much of a page-sized content field
// reaches the log stream.
const maxLoggedValueChars = 512

// sensitiveLogKeys lists payload keys whose values never reach logs.
var sensitiveLogKeys = map[string]bool{
	"authorization": true,
	"api_key":       true,
	"apikey":        true,
	"auth_token":    true,
	"session_key":   true,
	"token":         true,
}

// bulkyLogKeys lists payload keys that carry page-sized content.
var bulkyLogKeys = map[string]bool{
	"content":  true,
	"html":     true,
	"markdown": true,
	"text":     true,
}

// redactMCPBody redacts credentials and trims bulky content fields from
// an MCP payload rendered as JSON. Unparsable input passes through.
func redactMCPBody(raw string) string {
	if raw == "" {
		return raw
	}
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return raw
	}
	redacted := redactMCPValue(payload)
	out, err := json.Marshal(redacted)
	if err != nil {
		return raw
	}
	return string(out)
}

// redactMCPValue recursively redacts nested payloads.
func redactMCPValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return redactMCPMap(v)
	case []any:
		result := make([]any, 0, len(v))
		for _, item := range v {
			result = append(result, redactMCPValue(item))
		}
		return result
	default:
		return value
	}
}

// redactMCPMap applies key-based redaction to a JSON object.
func redactMCPMap(input map[string]any) map[string]any {
	output := make(map[string]any, len(input))
	for key, value := range input {
		normalized := strings.ToLower(key)
		switch {
		case sensitiveLogKeys[normalized]:
			output[key] = redactedPlaceholder
		case bulkyLogKeys[normalized]:
			if text, ok := value.(string); ok {
				output[key] = truncateLoggedValue(text)
			} else {
				output[key] = redactMCPValue(value)
			}
		default:
			output[key] = redactMCPValue(value)
		}
	}
	return output
}

// redactToolArguments prepares tool call arguments for the call log.
func redactToolArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	return redactMCPMap(args)
}

// redactHookPayload renders a redacted JSON string for hook logging.
func redactHookPayload(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return redactMCPBody(string(data))
}

// truncateLoggedValue cuts an oversized string on a rune boundary and
// marks the cut.
func truncateLoggedValue(text string) string {
	if len(text) <= maxLoggedValueChars {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLoggedValueChars {
		return text
	}
	return string(runes[:maxLoggedValueChars]) + "...(truncated)"
}
