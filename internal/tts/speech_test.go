package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opt Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := openai.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
	return New(c, opt)
}

func TestSynthesize(t *testing.T) {
	var req map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake-mp3"))
	}, Options{Instructions: DefaultInstructions})

	audio, err := c.Synthesize(context.Background(), "  टमाटर ₹1800 प्रति क्विंटल ", "hindi")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3fake-mp3"), audio)

	assert.Equal(t, "टमाटर ₹1800 प्रति क्विंटल", req["input"])
	assert.Equal(t, DefaultModel, req["model"])
	assert.Equal(t, DefaultVoice, req["voice"])
	assert.Equal(t, "mp3", req["response_format"])
	assert.Contains(t, req["instructions"], "Speak in hindi")
}

func TestSynthesizeEmptyText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, Options{})

	audio, err := c.Synthesize(context.Background(), "   ", "english")
	require.NoError(t, err)
	assert.Nil(t, audio)
}

func TestSynthesizeErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.NotContains(t, req, "instructions")
		w.WriteHeader(http.StatusOK)
	}, Options{})

	_, err := c.Synthesize(context.Background(), "hello", "english")
	require.ErrorIs(t, err, ErrEmptyAudio)

	failing := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad voice"}}`, http.StatusBadRequest)
	}, Options{})
	_, err = failing.Synthesize(context.Background(), "hello", "english")
	require.Error(t, err)
}

func TestInstructions(t *testing.T) {
	assert.Equal(t, "Speak in english.", instructions("Speak in %s.", ""))
	assert.Equal(t, "Be calm.", instructions("Be calm.", "hindi"))
}
