package stt

import (
	"bytes"
	"context"
	"fmt"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"

	"krishi/pkg/audioconv"
)

const DefaultRemoteModel = "whisper-large-v3"

type RemoteOptions struct {
	Model    string
	Language string // ISO code; empty lets the server detect it
	Prompt   string
}

// Remote transcribes through an OpenAI-compatible /audio/transcriptions
// endpoint (Groq or OpenAI).
type Remote struct {
	client openai.Client
	opt    RemoteOptions
}

func NewRemote(client openai.Client, opt RemoteOptions) *Remote {
	if opt.Model == "" {
		opt.Model = DefaultRemoteModel
	}
	return &Remote{client: client, opt: opt}
}

func (r *Remote) TranscribeAudio(ctx context.Context, name string, data []byte) (Result, error) {
	format := audioconv.Sniff(data, name)
	if format == audioconv.FormatUnknown {
		return Result{}, fmt.Errorf("%w: %s", audioconv.ErrUnsupportedFormat, name)
	}
	if name == "" {
		name = "audio." + format.String()
	}

	params := openai.AudioTranscriptionNewParams{
		File:           openai.File(bytes.NewReader(data), name, format.ContentType()),
		Model:          r.opt.Model,
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	}
	if r.opt.Language != "" {
		params.Language = openai.String(r.opt.Language)
	}
	if r.opt.Prompt != "" {
		params.Prompt = openai.String(r.opt.Prompt)
	}

	resp, err := r.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("transcription: %w", err)
	}

	res := Result{Text: strings.TrimSpace(resp.Text), Language: resp.Language}
	for _, s := range resp.Segments {
		res.Segments = append(res.Segments, Segment{
			Text:     strings.TrimSpace(s.Text),
			StartSec: s.Start,
			EndSec:   s.End,
		})
	}
	if res.Language == "" {
		res.Language = r.opt.Language
	}
	log.Debug("Transcribed", "file", name, "language", res.Language, "segments", len(res.Segments))

	if res.Text == "" {
		return Result{}, ErrNoSpeech
	}
	return res, nil
}
