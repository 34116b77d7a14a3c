package agent

import "krishi/internal/llm"

type Step int

const (
	StepDone Step = iota
	StepConverse
	StepExecuteTools
	StepSynthesize
)

func (s Step) String() string {
	switch s {
	case StepDone:
		return "done"
	case StepConverse:
		return "converse"
	case StepExecuteTools:
		return "execute_tools"
	case StepSynthesize:
		return "synthesize"
	default:
		return "unknown"
	}
}

// Route picks the node that runs after the conversational or tool step.
// Rules are checked in order; the first match wins.
func Route(s *State) Step {
	m, ok := s.last()
	if !ok {
		return StepDone
	}
	if m.Role == llm.RoleAssistant && len(m.ToolCalls) > 0 {
		return StepExecuteTools
	}
	if !s.Done && s.HasToolResults() {
		return StepSynthesize
	}
	return StepDone
}
