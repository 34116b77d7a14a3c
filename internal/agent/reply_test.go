package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krishi/internal/llm"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		err  bool
	}{
		{name: "strict", raw: `{"response": "Sure."}`, want: "Sure."},
		{name: "padded", raw: "\n  {\"response\": \"Sure.\"}\n", want: "Sure."},
		{name: "unicode", raw: `{"response": "टमाटर ₹1800"}`, want: "टमाटर ₹1800"},
		{name: "escaped quote", raw: `{"response": "He said \"hi\""}`, want: `He said "hi"`},
		{name: "code fence", raw: "```json\n{\"response\": \"Fenced.\"}\n```", want: "Fenced."},
		{name: "chatter", raw: `Okay! {"response": "Inner.", "note": 1} hope this helps`, want: "Inner."},
		{name: "first wins", raw: `{"response": "one"} {"response": "two"}`, want: "one"},
		{name: "truncated", raw: `{"response": "Hello! How can`, err: true},
		{name: "empty field", raw: `{"response": ""}`, err: true},
		{name: "number", raw: `{"response": 5}`, err: true},
		{name: "other key", raw: `{"answer": "nope"}`, err: true},
		{name: "plain", raw: "Just text", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply(tt.raw)
			if tt.err {
				require.ErrorIs(t, err, ErrUnparsableReply)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoute(t *testing.T) {
	assert.Equal(t, StepDone, Route(&State{}))

	st := NewState("price?", "english")
	assert.Equal(t, StepDone, Route(st))

	st.append(llm.Assistant("", llm.ToolCall{ID: "c1", Name: "get_market_price"}))
	assert.Equal(t, StepExecuteTools, Route(st))

	st.append(llm.ToolResult("c1", "₹1800"))
	assert.Equal(t, StepSynthesize, Route(st))

	st.finish("done")
	assert.Equal(t, StepDone, Route(st))
}

func TestValidate(t *testing.T) {
	st := NewState("price?", "english")
	st.append(llm.Assistant("", llm.ToolCall{ID: "c1", Name: "get_market_price"}))
	st.append(llm.ToolResult("c1", "ok"))
	require.NoError(t, st.Validate())

	st.append(llm.ToolResult("c9", "orphan"))
	require.ErrorContains(t, st.Validate(), `"c9"`)
}

func TestApology(t *testing.T) {
	assert.Equal(t, apologyHindi, Apology("HINDI"))
	assert.Equal(t, apologyEnglish, Apology("marathi"))
	assert.Contains(t, DirectAnswerPrompt("hi", ""), "in english.")
	assert.Contains(t, DirectAnswerPrompt("bonjour", "french"), "in french.")
	assert.Empty(t, NewState("hi", "").Language)
}
