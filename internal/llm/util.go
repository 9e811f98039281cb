package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// Models sometimes wrap JSON in ```json ... ``` even in JSON mode.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Drop a language tag such as "json" on the fence line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		tag := text[:idx]
		if len(tag) < 20 && !strings.ContainsAny(tag, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// DecodeObject parses a model answer into a generic JSON object.
func DecodeObject(text string) (map[string]any, error) {
	text = CleanJSONBlock(text)
	if text == "" {
		return nil, fmt.Errorf("empty model response")
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return obj, nil
}

// StringList reads obj[key] as a list of trimmed strings, trying each key in order.
// Non-string items are formatted with %v; blank items are dropped; a value that is
// not a list yields an empty result. At most limit items are returned (limit <= 0 means all).
func StringList(obj map[string]any, limit int, keys ...string) []string {
	out := []string{}
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok || raw == nil {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			return out
		}
		for _, item := range items {
			s := strings.TrimSpace(Stringify(item))
			if s == "" {
				continue
			}
			out = append(out, s)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return out
	}
	return out
}

// String reads obj[key] as a trimmed string, trying each key in order.
func String(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if raw, ok := obj[key]; ok && raw != nil {
			if s := strings.TrimSpace(Stringify(raw)); s != "" {
				return s
			}
		}
	}
	return ""
}

// Stringify formats a decoded JSON value as text.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
