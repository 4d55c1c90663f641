package tabular

import (
	"fmt"
	"strings"
)

// normalizeChat returns a copy of a chat conversation where every message
// has a tool_calls field, which is null when the message had none.
// ok is false if the value isn't a list of messages.
func normalizeChat(v any) (messages []any, ok bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]any, 0, len(list))
	for _, m := range list {
		msg, isMap := m.(map[string]any)
		if !isMap {
			return nil, false
		}
		cp := make(map[string]any, len(msg)+1)
		for k, val := range msg {
			cp[k] = val
		}
		if _, has := cp["tool_calls"]; !has {
			cp["tool_calls"] = nil
		}
		out = append(out, cp)
	}
	return out, true
}

// Transcript renders a conversation as one "role: content" line per turn
func Transcript(messages []any) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		msg, ok := m.(map[string]any)
		if !ok {
			continue
		}
		role, _ := msg["role"].(string)
		content := msg["content"]
		var text string
		switch c := content.(type) {
		case string:
			text = c
		case nil:
			text = ""
		default:
			text = cellString(c)
		}
		lines = append(lines, fmt.Sprintf("%v: %v", role, text))
	}
	return strings.Join(lines, "\n")
}
