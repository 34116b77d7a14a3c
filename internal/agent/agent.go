// Package agent runs one conversational turn: a model call that may request
// tools, concurrent tool execution, and a synthesis call that turns tool
// output into a spoken answer.
package agent

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"krishi/internal/llm"
)

// Toolbox is satisfied by *tools.Registry.
type Toolbox interface {
	Specs() []llm.ToolSpec
	Call(ctx context.Context, name string, args map[string]any) (string, error)
}

const (
	DefaultMaxParallelTools = 4
	DefaultTurnTimeout      = 90 * time.Second

	// converse, execute, synthesize, plus slack for a misbehaving router
	maxSteps = 8
)

type Options struct {
	SystemPrompt     string
	MaxParallelTools int
	TurnTimeout      time.Duration // 0 disables the per-turn deadline
}

func (o *Options) defaults() {
	if strings.TrimSpace(o.SystemPrompt) == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
	if o.MaxParallelTools <= 0 {
		o.MaxParallelTools = DefaultMaxParallelTools
	}
	if o.TurnTimeout < 0 {
		o.TurnTimeout = 0
	}
}

// Agent is immutable after New and may serve concurrent turns.
type Agent struct {
	model llm.Model
	tools Toolbox
	opt   Options
}

// New wires the agent. tools may be nil, in which case no tools are offered.
func New(model llm.Model, tools Toolbox, opt Options) *Agent {
	opt.defaults()
	return &Agent{model: model, tools: tools, opt: opt}
}

// Respond runs a turn and returns only the response text. It never returns
// an empty string.
func (a *Agent) Respond(ctx context.Context, transcript, language string) string {
	return a.Run(ctx, transcript, language).Response
}

// Run executes a full turn and returns the final state for inspection.
func (a *Agent) Run(ctx context.Context, transcript, language string) *State {
	st := NewState(transcript, language)
	if strings.TrimSpace(transcript) == "" {
		log.Warn("Empty transcript, skipping model")
		st.finish(Apology(language))
		return st
	}

	if a.opt.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opt.TurnTimeout)
		defer cancel()
	}

	started := time.Now()
	step := StepConverse
	for n := 0; step != StepDone; n++ {
		if n >= maxSteps {
			log.Error("Turn exceeded step ceiling", "steps", n)
			st.finish(Apology(language))
			break
		}
		log.Debug("Turn step", "step", step)
		a.run(ctx, step, st)
		step = Route(st)
	}

	if strings.TrimSpace(st.Response) == "" {
		st.finish(Apology(language))
	}
	log.Info("Turn complete",
		"language", language,
		"tools", len(st.ToolOutputs()),
		"elapsed", time.Since(started).Round(time.Millisecond))
	return st
}

func (a *Agent) run(ctx context.Context, step Step, st *State) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Turn step panicked", "step", step, "panic", r)
			if step == StepSynthesize {
				st.finish(SynthesisApology)
			} else {
				st.finish(Apology(st.Language))
			}
		}
	}()

	switch step {
	case StepConverse:
		a.converse(ctx, st)
	case StepExecuteTools:
		a.executeTools(ctx, st)
	case StepSynthesize:
		a.synthesize(ctx, st)
	default:
		panic(fmt.Sprintf("unknown step %d", step))
	}
}

func (a *Agent) specs() []llm.ToolSpec {
	if a.tools == nil {
		return nil
	}
	return a.tools.Specs()
}
