package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
)

var ErrNoChoices = errors.New("no choices in response")

type Options struct {
	Model       string
	Temperature float64 // 0 = provider default
}

// OpenAI talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, Groq, local gateways).
type OpenAI struct {
	client openai.Client
	opt    Options
}

func NewOpenAI(client openai.Client, opt Options) *OpenAI {
	return &OpenAI{client: client, opt: opt}
}

func (o *OpenAI) Complete(ctx context.Context, messages []Message, tools []ToolSpec) (Reply, error) {
	params := openai.ChatCompletionNewParams{
		Messages: toParams(messages),
		Model:    o.opt.Model,
	}
	if o.opt.Temperature > 0 {
		params.Temperature = openai.Float(o.opt.Temperature)
	}
	for _, t := range tools {
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.Parameters),
		}))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, ErrNoChoices
	}

	msg := resp.Choices[0].Message
	log.Debug("Model replied", "content", msg.Content, "tool_calls", len(msg.ToolCalls))

	reply := Reply{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		if tc.Type != "" && tc.Type != "function" {
			log.Warn("Skipping non-function tool call", "type", tc.Type)
			continue
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			ID:        callID(tc.ID),
			Name:      tc.Function.Name,
			Arguments: decodeArguments(tc.Function.Name, tc.Function.Arguments),
		})
	}
	return reply, nil
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Text))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Text))
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Text, m.CallID))
		case RoleAssistant:
			out = append(out, assistantParam(m))
		}
	}
	return out
}

func assistantParam(m Message) openai.ChatCompletionMessageParamUnion {
	if len(m.ToolCalls) == 0 {
		return openai.AssistantMessage(m.Text)
	}

	var p openai.ChatCompletionAssistantMessageParam
	if m.Text != "" {
		p.Content.OfString = openai.String(m.Text)
	}
	for _, tc := range m.ToolCalls {
		args, err := json.Marshal(tc.Arguments)
		if err != nil || tc.Arguments == nil {
			args = []byte("{}")
		}
		p.ToolCalls = append(p.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: string(args),
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &p}
}

func callID(id string) string {
	if id != "" {
		return id
	}
	return "call_" + uuid.NewString()
}

// decodeArguments never fails: malformed JSON becomes an empty object and
// is left for the tool's schema validation to reject.
func decodeArguments(name, raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		log.Warn("Malformed tool arguments", "tool", name, "raw", raw, "err", err)
		return map[string]any{}
	}
	return args
}
