package ai

import (
	"slices"
	"strings"
)

// BuildMessages puts the system prompt, the slots collected so far and the
// user's question into one conversation.
func BuildMessages(slots map[string]string, question string) []Message {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(choreSystemPrompt))

	if len(slots) > 0 {
		keys := make([]string, 0, len(slots))
		for k := range slots {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		b.WriteString("\n\nAlready collected:\n")
		for _, k := range keys {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(slots[k])
			b.WriteString("\n")
		}
	}

	return []Message{
		{Role: "system", Content: b.String()},
		{Role: "user", Content: strings.TrimSpace(question)},
	}
}
