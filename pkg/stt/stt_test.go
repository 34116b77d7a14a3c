package stt

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

	"krishi/pkg/audioconv"
)

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "hindi", LanguageName("hi"))
	assert.Equal(t, "hindi", LanguageName(" Hindi "))
	assert.Equal(t, "tamil", LanguageName("TA"))
	assert.Equal(t, "english", LanguageName(""))
	assert.Equal(t, "english", LanguageName("auto"))
	assert.Equal(t, "xx", LanguageName("xx"))

	for code, want := range map[string]string{
		"fr": "french",
		"de": "german",
		"es": "spanish",
		"zh": "chinese",
		"ja": "japanese",
	} {
		assert.Equal(t, want, LanguageName(code), code)
	}
	assert.Equal(t, "bhojpuri", LanguageName("Bhojpuri"))
}

func transcriptionServer(t *testing.T, body map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-large-v3", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		_, fh, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "q.wav", fh.Filename)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func remoteFor(srv *httptest.Server) *Remote {
	client := openai.NewClient(
		option.WithBaseURL(srv.URL+"/"),
		option.WithAPIKey("test"),
		option.WithMaxRetries(0),
	)
	return NewRemote(client, RemoteOptions{})
}

func wavClip(t *testing.T) []byte {
	t.Helper()
	data, err := audioconv.EncodeWAV(make([]float32, 1600), audioconv.SampleRate)
	require.NoError(t, err)
	return data
}

func TestRemoteTranscribe(t *testing.T) {
	srv := transcriptionServer(t, map[string]any{
		"text":     " टमाटर का भाव क्या है? ",
		"language": "hindi",
		"segments": []map[string]any{{"id": 0, "start": 0.0, "end": 1.5, "text": " टमाटर का भाव क्या है?"}},
	})
	defer srv.Close()

	res, err := remoteFor(srv).TranscribeAudio(context.Background(), "q.wav", wavClip(t))
	require.NoError(t, err)
	assert.Equal(t, "टमाटर का भाव क्या है?", res.Text)
	assert.Equal(t, "hindi", LanguageName(res.Language))
	require.Len(t, res.Segments, 1)
	assert.Equal(t, 1.5, res.Segments[0].EndSec)
}

func TestRemoteNoSpeech(t *testing.T) {
	srv := transcriptionServer(t, map[string]any{"text": "  ", "language": "english"})
	defer srv.Close()

	_, err := remoteFor(srv).TranscribeAudio(context.Background(), "q.wav", wavClip(t))
	require.ErrorIs(t, err, ErrNoSpeech)
}

func TestRemoteRejectsUnknownFormat(t *testing.T) {
	r := NewRemote(openai.NewClient(option.WithAPIKey("test")), RemoteOptions{})
	_, err := r.TranscribeAudio(context.Background(), "notes.txt", []byte("hello"))
	require.ErrorIs(t, err, audioconv.ErrUnsupportedFormat)
}
