// Package notify plays the listening chime and synthesized answers on the
// default output device.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const outputRate beep.SampleRate = 44100

var (
	initOnce sync.Once
	initErr  error
	playMu   sync.Mutex
)

func initSpeaker() error {
	initOnce.Do(func() {
		initErr = speaker.Init(outputRate, outputRate.N(time.Second/10))
	})
	return initErr
}

// Chime plays an mp3 file, typically the "listening" cue.
func Chime(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open chime: %w", err)
	}
	return play(ctx, f)
}

// Play blocks until the mp3 clip finishes or ctx is cancelled.
func Play(ctx context.Context, clip []byte) error {
	if len(clip) == 0 {
		return nil
	}
	return play(ctx, io.NopCloser(bytes.NewReader(clip)))
}

func play(ctx context.Context, rc io.ReadCloser) error {
	streamer, format, err := mp3.Decode(rc)
	if err != nil {
		rc.Close()
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	if err := initSpeaker(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	playMu.Lock()
	defer playMu.Unlock()

	var s beep.Streamer = streamer
	if format.SampleRate != outputRate {
		s = beep.Resample(4, format.SampleRate, outputRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() { close(done) })))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
