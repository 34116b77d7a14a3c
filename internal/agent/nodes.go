package agent

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"krishi/internal/llm"
	"krishi/internal/tools"
)

const toolSeparator = " | "

func (a *Agent) converse(ctx context.Context, st *State) {
	history := append([]llm.Message{llm.System(a.opt.SystemPrompt)}, st.Messages...)

	reply, err := a.model.Complete(ctx, history, a.specs())
	switch {
	case err != nil:
		log.Warn("Model call failed, answering directly", "err", err)
	case reply.HasToolCalls():
		names := make([]string, len(reply.ToolCalls))
		for i, c := range reply.ToolCalls {
			names[i] = c.Name
		}
		log.Info("Model requested tools", "tools", names)
		st.append(llm.Assistant(reply.Text, reply.ToolCalls...))
		return
	}

	raw, err := a.directAnswer(ctx, st.Transcript, st.Language)
	if err != nil {
		log.Error("Direct answer failed", "err", err)
		st.finish(Apology(st.Language))
		return
	}
	text, err := ParseReply(raw)
	if err != nil {
		log.Debug("Using raw reply", "err", err, "raw", raw)
		text = raw
	}
	st.finish(text)
}

func (a *Agent) directAnswer(ctx context.Context, transcript, language string) (string, error) {
	reply, err := a.model.Complete(ctx, []llm.Message{llm.User(DirectAnswerPrompt(transcript, language))}, nil)
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// executeTools runs every pending call concurrently and appends the results
// in request order. Failures become result text; nothing escapes.
func (a *Agent) executeTools(ctx context.Context, st *State) {
	calls := st.PendingCalls()
	results := make([]string, len(calls))

	var g errgroup.Group
	g.SetLimit(a.opt.MaxParallelTools)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = a.invoke(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	for i, call := range calls {
		st.append(llm.ToolResult(call.ID, results[i]))
	}
}

func (a *Agent) invoke(ctx context.Context, call llm.ToolCall) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Tool panicked", "tool", call.Name, "panic", r)
			out = fmt.Sprintf("error: tool %s panicked: %v", call.Name, r)
		}
	}()

	if a.tools == nil {
		return "error: " + (&tools.Error{Tool: call.Name, Err: tools.ErrUnregistered}).Error()
	}
	res, err := a.tools.Call(ctx, call.Name, call.Arguments)
	if err != nil {
		log.Warn("Tool failed", "tool", call.Name, "err", err)
		return "error: " + err.Error()
	}
	log.Debug("Tool result", "tool", call.Name, "result", res)
	return res
}

func (a *Agent) synthesize(ctx context.Context, st *State) {
	joined := strings.Join(st.ToolOutputs(), toolSeparator)
	prompt := st.Transcript + "\n\nAdditional information: " + joined

	raw, err := a.directAnswer(ctx, prompt, st.Language)
	if err != nil {
		log.Error("Synthesis failed", "err", err)
		st.finish(SynthesisApology)
		return
	}
	text, err := ParseReply(raw)
	if err != nil {
		log.Debug("Synthesis reply unparsable, using tool output", "err", err)
		text = joined
	}
	st.finish(text)
}
