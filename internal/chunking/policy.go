package chunking

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/JaimeStill/emoclassify/internal/conversation"
)

// DefaultContext is the number of preceding messages included with each anchor.
const DefaultContext = 3

// ErrUnknownPolicy is returned for a chunker identifier outside the supported set.
var ErrUnknownPolicy = errors.New("unknown chunking policy")

// Policy selects how a conversation is windowed.
type Policy string

// Supported chunking policies.
const (
	// UserMessage anchors a chunk on every user message.
	UserMessage Policy = "user_message"
	// AssistantMessage anchors a chunk on every assistant message.
	AssistantMessage Policy = "assistant_message"
	// UserAssistantExchange anchors on assistant messages whose window contains a user message.
	UserAssistantExchange Policy = "u_a_exchange"
	// AssistantUserExchange anchors on user messages whose window contains an assistant message.
	AssistantUserExchange Policy = "a_u_exchange"
	// WholeConversation emits a single chunk spanning the conversation.
	WholeConversation Policy = "whole"
)

var policies = []Policy{
	UserMessage,
	AssistantMessage,
	UserAssistantExchange,
	AssistantUserExchange,
	WholeConversation,
}

// Policies returns the supported chunking policies.
func Policies() []Policy {
	return policies
}

// ParsePolicy validates s as a known chunking policy.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(s)
	if !slices.Contains(policies, p) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
	return p, nil
}

// UnmarshalJSON validates that the decoded string is a known policy.
func (p *Policy) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParsePolicy(raw)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Chunk windows c under policy. Keys are anchor message indices (0 for the
// whole-conversation policy) and need not be contiguous.
func (p Policy) Chunk(c conversation.Conversation, nContext int) (map[int]Chunk, error) {
	if nContext < 0 {
		nContext = 0
	}

	switch p {
	case UserMessage:
		return byRole(c, conversation.RoleUser, nContext), nil
	case AssistantMessage:
		return byRole(c, conversation.RoleAssistant, nContext), nil
	case UserAssistantExchange:
		return byExchange(c, conversation.RoleAssistant, conversation.RoleUser, nContext), nil
	case AssistantUserExchange:
		return byExchange(c, conversation.RoleUser, conversation.RoleAssistant, nContext), nil
	case WholeConversation:
		return whole(c), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, string(p))
	}
}

func byRole(c conversation.Conversation, role conversation.Role, nContext int) map[int]Chunk {
	chunks := make(map[int]Chunk)
	for i, m := range c {
		if m.Role == role {
			chunks[i] = New(c, i, nContext)
		}
	}
	return chunks
}

func byExchange(c conversation.Conversation, anchor, other conversation.Role, nContext int) map[int]Chunk {
	chunks := make(map[int]Chunk)
	for i, m := range c {
		if m.Role != anchor {
			continue
		}
		candidate := New(c, i, nContext)
		if !candidate.HasRole(other) {
			continue
		}
		chunks[i] = candidate
	}
	return chunks
}

func whole(c conversation.Conversation) map[int]Chunk {
	if len(c) == 0 {
		return map[int]Chunk{}
	}
	return map[int]Chunk{0: Whole(c)}
}
