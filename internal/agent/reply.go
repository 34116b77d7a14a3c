package agent

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var ErrUnparsableReply = errors.New("unparsable structured reply")

// ParseReply pulls the response text out of a {"response": "..."} reply.
//
// The whole reply is decoded strictly first. Models often wrap the object in
// a code fence or add chatter around it, so when that fails the first
// complete "response" string found anywhere in the text is used instead.
func ParseReply(raw string) (string, error) {
	var r struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &r); err == nil && strings.TrimSpace(r.Response) != "" {
		return r.Response, nil
	}
	if s, ok := extractResponseField(raw); ok {
		return s, nil
	}
	return "", ErrUnparsableReply
}

var responseField = regexp.MustCompile(`"response"\s*:\s*("(?:[^"\\]|\\.)*")`)

// extractResponseField returns the first "response" value whose string
// literal is closed. Truncated replies never match.
func extractResponseField(s string) (string, bool) {
	m := responseField.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	var v string
	if err := json.Unmarshal([]byte(m[1]), &v); err != nil {
		return "", false
	}
	if strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}
