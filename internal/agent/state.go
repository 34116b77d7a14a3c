package agent

import (
	"fmt"

	"krishi/internal/llm"
)

// State is the working memory of a single turn. It is owned by one Run call
// and never shared.
type State struct {
	Transcript string
	Language   string
	Messages   []llm.Message
	Response   string
	Done       bool
}

func NewState(transcript, language string) *State {
	return &State{
		Transcript: transcript,
		Language:   language,
		Messages:   []llm.Message{llm.User(transcript)},
	}
}

func (s *State) append(m llm.Message) {
	s.Messages = append(s.Messages, m)
}

func (s *State) finish(response string) {
	s.Response = response
	s.Done = true
}

func (s *State) last() (llm.Message, bool) {
	if len(s.Messages) == 0 {
		return llm.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// PendingCalls returns the tool calls of the last message when it is an
// assistant request that has not been answered yet.
func (s *State) PendingCalls() []llm.ToolCall {
	m, ok := s.last()
	if !ok || m.Role != llm.RoleAssistant {
		return nil
	}
	return m.ToolCalls
}

func (s *State) HasToolResults() bool {
	for _, m := range s.Messages {
		if m.Role == llm.RoleTool {
			return true
		}
	}
	return false
}

// ToolOutputs returns every tool result text in history order.
func (s *State) ToolOutputs() []string {
	var out []string
	for _, m := range s.Messages {
		if m.Role == llm.RoleTool {
			out = append(out, m.Text)
		}
	}
	return out
}

// Validate checks that each tool result answers a call made earlier in the
// history.
func (s *State) Validate() error {
	seen := map[string]bool{}
	for i, m := range s.Messages {
		switch m.Role {
		case llm.RoleAssistant:
			for _, c := range m.ToolCalls {
				seen[c.ID] = true
			}
		case llm.RoleTool:
			if !seen[m.CallID] {
				return fmt.Errorf("message %d: tool result for unknown call %q", i, m.CallID)
			}
		}
	}
	return nil
}
