package audiobook

import "strings"

// RewriteInstructions is the system prompt for chat-style rewrite providers.
const RewriteInstructions = "You are an audiobook editor. " +
	"Rewrite the user's text so it reads naturally when narrated aloud. " +
	"Keep the meaning, facts, and language of the original. " +
	"Do not add headings, lists, stage directions, or commentary. " +
	"Reply with the rewritten text only."

// WordCount returns a basic word count for the given text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// IsBlank reports whether text has nothing but whitespace.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
