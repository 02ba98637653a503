package recommend

import (
	"encoding/json"
	"strings"
)

// ParseRaw pulls the analysis JSON out of a model reply.
// It tolerates <think> blocks, markdown code fences and prose around the
// object. A bare top-level array is treated as the item list. When nothing
// parseable is found it returns nil, which Validate turns into an empty analysis.
func ParseRaw(content string) interface{} {
	content = stripThinking(content)
	content = stripCodeFence(content)
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var whole interface{}
	if err := json.Unmarshal([]byte(content), &whole); err == nil {
		switch v := whole.(type) {
		case map[string]interface{}:
			return v
		case []interface{}:
			return map[string]interface{}{"items": v}
		}
	}

	obj := extractObject(content)
	if obj == "" {
		return nil
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return nil
	}
	return parsed
}

func stripThinking(content string) string {
	if start := strings.Index(content, "<think>"); start != -1 {
		if end := strings.Index(content, "</think>"); end > start {
			return content[:start] + content[end+len("</think>"):]
		}
	}
	return content
}

func stripCodeFence(content string) string {
	start := strings.Index(content, "```")
	if start == -1 {
		return content
	}
	rest := content[start+3:]
	// Skip an optional language tag such as ```json
	if nl := strings.Index(rest, "\n"); nl != -1 && isLangTag(strings.TrimSpace(rest[:nl])) {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end != -1 {
		return rest[:end]
	}
	return rest
}

func isLangTag(s string) bool {
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum && r != '-' && r != '_' && r != '+' {
			return false
		}
	}
	return true
}

// extractObject returns the first balanced {...} span, ignoring braces inside
// string literals.
func extractObject(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}
