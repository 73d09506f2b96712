// Package chunking windows a conversation into the snippets sent to the
// classification oracle. Each chunk ends at its anchor message, which is the
// message under classification; earlier messages are context only.
package chunking

import (
	"fmt"
	"strings"

	"github.com/JaimeStill/emoclassify/internal/conversation"
)

const (
	// StartMarker prefixes a rendered chunk that begins at the first message.
	StartMarker = "(This is the start of the conversation.)"
	// TruncationMarker replaces the dropped middle of a truncated message.
	TruncationMarker = "[[...Long Message Truncated...]]"
	// MaxMessageLength is the rune count above which truncation applies.
	MaxMessageLength = 1500
)

// Chunk is an immutable window of a conversation.
type Chunk struct {
	messages     []conversation.Message
	touchesStart bool
}

// New builds the chunk anchored at anchor with up to nContext preceding messages.
// The window is clamped at the start of the conversation. The caller guarantees
// 0 <= anchor < len(c) and nContext >= 0.
func New(c conversation.Conversation, anchor, nContext int) Chunk {
	start := max(0, anchor-nContext)
	return Chunk{
		messages:     c.Clone(start, anchor+1),
		touchesStart: start == 0,
	}
}

// Whole builds a chunk spanning the entire conversation.
func Whole(c conversation.Conversation) Chunk {
	return Chunk{
		messages:     c.Clone(0, len(c)),
		touchesStart: true,
	}
}

// Messages returns a copy of the chunk's messages.
func (c Chunk) Messages() []conversation.Message {
	out := make([]conversation.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the chunk.
func (c Chunk) Len() int {
	return len(c.messages)
}

// TouchesStart reports whether the chunk begins at the conversation's first message.
func (c Chunk) TouchesStart() bool {
	return c.touchesStart
}

// Last returns the anchor message.
func (c Chunk) Last() conversation.Message {
	return c.messages[len(c.messages)-1]
}

// HasRole reports whether any message in the window was sent by role.
func (c Chunk) HasRole(role conversation.Role) bool {
	for _, m := range c.messages {
		if m.Role == role {
			return true
		}
	}
	return false
}

// String renders the chunk without truncation.
func (c Chunk) String() string {
	return c.Render(false)
}

// Render formats the chunk as the snippet embedded in classification prompts.
// The final message's role tag is wrapped in asterisks.
func (c Chunk) Render(truncate bool) string {
	lines := make([]string, 0, len(c.messages)+1)
	if c.touchesStart {
		lines = append(lines, StartMarker)
	}

	for i, m := range c.messages {
		content := strings.TrimSpace(m.Content)
		if truncate {
			content = Truncate(content, MaxMessageLength, TruncationMarker)
		}

		marker := ""
		if i == len(c.messages)-1 {
			marker = "*"
		}

		lines = append(lines, fmt.Sprintf(
			`[%s%s%s] "%s"`,
			marker, strings.ToUpper(string(m.Role)), marker, content,
		))
	}

	return strings.Join(lines, "\n")
}

// Truncate keeps the first and last maxLen/2 runes of s joined by sep when s
// is longer than maxLen runes.
func Truncate(s string, maxLen int, sep string) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	half := maxLen / 2
	return string(runes[:half]) + sep + string(runes[len(runes)-half:])
}
