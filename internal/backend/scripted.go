package backend

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedBackend is a test double that replays canned replies in order.
type ScriptedBackend struct {
	mu      sync.Mutex
	replies []Reply
	errs    []error
	next    int

	// Calls records every Send invocation's message list.
	Calls [][]Message
	// Tools records the tool descriptors offered on each call.
	Tools [][]ToolDescriptor
}

// NewScriptedBackend creates a backend that replays the given replies.
func NewScriptedBackend(replies ...Reply) *ScriptedBackend {
	return &ScriptedBackend{replies: replies}
}

// FailWith schedules err for the call at index i.
func (s *ScriptedBackend) FailWith(i int, err error) *ScriptedBackend {
	for len(s.errs) <= i {
		s.errs = append(s.errs, nil)
	}
	s.errs[i] = err
	return s
}

func (s *ScriptedBackend) Name() string      { return "scripted" }
func (s *ScriptedBackend) ModelName() string { return "scripted-model" }

func (s *ScriptedBackend) Send(_ context.Context, messages []Message, tools []ToolDescriptor) (*Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.next
	s.next++
	s.Calls = append(s.Calls, messages)
	s.Tools = append(s.Tools, tools)

	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i >= len(s.replies) {
		return nil, fmt.Errorf("scripted backend exhausted after %d replies", len(s.replies))
	}
	r := s.replies[i]
	return &r, nil
}
