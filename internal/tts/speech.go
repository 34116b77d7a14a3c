// Package tts turns answers into mp3 speech through an OpenAI-compatible
// /audio/speech endpoint.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

const (
	DefaultModel = "gpt-4o-mini-tts"
	DefaultVoice = "alloy"

	// %s is the answer language, e.g. "hindi".
	DefaultInstructions = "Speak in %s with a warm, clear and unhurried voice, like a helpful village extension officer."
)

var ErrEmptyAudio = errors.New("empty audio")

type Options struct {
	Model        string
	Voice        string
	Instructions string // empty disables voice instructions
	Speed        float64
}

type Client struct {
	client openai.Client
	opt    Options
}

func New(client openai.Client, opt Options) *Client {
	if opt.Model == "" {
		opt.Model = DefaultModel
	}
	if opt.Voice == "" {
		opt.Voice = DefaultVoice
	}
	return &Client{client: client, opt: opt}
}

// Synthesize returns mp3 audio for text. Empty text yields no audio and no
// error.
func (c *Client) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          c.opt.Model,
		Voice:          openai.AudioSpeechNewParamsVoice(c.opt.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}
	if c.opt.Instructions != "" {
		params.Instructions = openai.String(instructions(c.opt.Instructions, language))
	}
	if c.opt.Speed > 0 {
		params.Speed = openai.Float(c.opt.Speed)
	}

	resp, err := c.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech: HTTP %d", resp.StatusCode)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	log.Debug("Synthesized speech", "chars", len(text), "bytes", len(audio))
	return audio, nil
}

func instructions(tmpl, language string) string {
	language = strings.TrimSpace(language)
	if language == "" {
		language = "english"
	}
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}
	return fmt.Sprintf(tmpl, language)
}
