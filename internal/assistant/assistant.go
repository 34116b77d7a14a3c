// Package assistant runs a complete spoken turn: transcription, the agent
// turn, and speech synthesis of the answer.
package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"krishi/pkg/stt"
)

var ErrNoTranscriber = errors.New("no transcriber configured")

type Transcriber interface {
	TranscribeAudio(ctx context.Context, name string, data []byte) (stt.Result, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Responder is satisfied by *agent.Agent.
type Responder interface {
	Respond(ctx context.Context, transcript, language string) string
}

type Answer struct {
	Transcript string
	Language   string
	Response   string
	Audio      []byte // mp3, nil when speech is disabled or failed
	SpeechErr  error
}

type Assistant struct {
	agent Responder
	stt   Transcriber
	tts   Synthesizer
}

// New wires the pipeline. stt and tts may be nil.
func New(agent Responder, stt Transcriber, tts Synthesizer) *Assistant {
	return &Assistant{agent: agent, stt: stt, tts: tts}
}

// Ask answers a text question. A speech failure is recorded on the Answer
// and does not hide the text response.
func (a *Assistant) Ask(ctx context.Context, transcript, language string) Answer {
	ans := Answer{
		Transcript: transcript,
		Language:   language,
		Response:   a.agent.Respond(ctx, transcript, language),
	}
	log.Info("Answer ready", "language", language, "response", ans.Response)

	if a.tts == nil {
		return ans
	}
	started := time.Now()
	ans.Audio, ans.SpeechErr = a.tts.Synthesize(ctx, ans.Response, language)
	if ans.SpeechErr != nil {
		log.Error("Speech synthesis failed", "err", ans.SpeechErr)
	} else {
		log.Debug("Speech ready", "bytes", len(ans.Audio), "elapsed", time.Since(started).Round(time.Millisecond))
	}
	return ans
}

// Listen transcribes an audio clip and answers it in the detected language.
func (a *Assistant) Listen(ctx context.Context, name string, data []byte) (Answer, error) {
	if a.stt == nil {
		return Answer{}, ErrNoTranscriber
	}
	res, err := a.stt.TranscribeAudio(ctx, name, data)
	if err != nil {
		return Answer{}, fmt.Errorf("transcribe: %w", err)
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return Answer{}, fmt.Errorf("transcribe: %w", stt.ErrNoSpeech)
	}

	language := stt.LanguageName(res.Language)
	log.Info("Transcribed", "language", language, "text", text)
	return a.Ask(ctx, text, language), nil
}
