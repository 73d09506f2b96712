package orchestrator

import "fmt"

// State is a conversation's position in a hierarchical run.
type State int

const (
	Pending State = iota
	Tier1Running
	Tier1Done
	Tier2Running
	Done
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Tier1Running:
		return "tier1_running"
	case Tier1Done:
		return "tier1_done"
	case Tier2Running:
		return "tier2_running"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Observer is notified of every state a conversation enters. It is called
// from the conversation's goroutine and must be safe for concurrent use.
type Observer func(index int, s State)

// tracker enforces the linear state order for one conversation.
type tracker struct {
	index    int
	state    State
	observer Observer
}

func (t *tracker) advance(to State) error {
	if to != t.state+1 {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, t.state, to)
	}
	t.state = to
	if t.observer != nil {
		t.observer(t.index, to)
	}
	return nil
}
