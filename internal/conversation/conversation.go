// Package conversation defines the transcript types consumed by the classification
// pipeline and decodes them from line-delimited JSON.
package conversation

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
)

// Role identifies the speaker of a message.
type Role string

// Conversation participants.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrInvalidRole is returned when a decoded message carries an unknown role.
var ErrInvalidRole = errors.New("role must be user or assistant")

// IsValid reports whether r is a known participant role.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single conversational turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered, read-only sequence of messages.
type Conversation []Message

// Validate reports the first message with an unknown role.
func (c Conversation) Validate() error {
	for i, m := range c {
		if !m.Role.IsValid() {
			return fmt.Errorf("message %d: %w: %q", i, ErrInvalidRole, m.Role)
		}
	}
	return nil
}

// Clone returns a copy of the message slice in [from, to).
func (c Conversation) Clone(from, to int) []Message {
	return slices.Clone(c[from:to])
}

type envelope struct {
	Messages Conversation `json:"messages"`
}

// UnmarshalJSON accepts either a bare array of messages or an object
// carrying the array under "messages".
func (c *Conversation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return err
		}
		*c = env.Messages
		return nil
	}

	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return err
	}
	*c = msgs
	return nil
}

// maxLineSize bounds a single JSONL record; long transcripts are common.
const maxLineSize = 64 * 1024 * 1024

// Decode reads one conversation per non-empty line. Line numbers in errors are 1-based.
func Decode(r io.Reader) ([]Conversation, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var out []Conversation
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var c Conversation
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read conversations: %w", err)
	}

	return out, nil
}
