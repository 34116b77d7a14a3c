package audio

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"

	"krishi/pkg/audioconv"
)

var ErrNoAudio = errors.New("no audio recorded")

type Options struct {
	SilenceRMS float64       // frames below this level count as silence
	Silence    time.Duration // trailing silence that ends an utterance
	MaxLength  time.Duration
}

func (o *Options) defaults() {
	if o.SilenceRMS <= 0 {
		o.SilenceRMS = 0.015
	}
	if o.Silence <= 0 {
		o.Silence = 800 * time.Millisecond
	}
	if o.MaxLength <= 0 {
		o.MaxLength = 15 * time.Second
	}
}

// Recorder captures mono 16 kHz audio from the default input device.
type Recorder struct {
	opt Options
}

func NewRecorder(opt Options) *Recorder {
	opt.defaults()
	return &Recorder{opt: opt}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// RecordUtterance records until the speaker pauses, the length limit is
// hit, or ctx is cancelled. Leading silence is dropped.
func (r *Recorder) RecordUtterance(ctx context.Context) ([]float32, error) {
	const frameSize = audioconv.SampleRate / 50 // 20ms

	var (
		gate = newSilenceGate(r.opt.SilenceRMS, int(r.opt.Silence/(20*time.Millisecond)))
		out  = make([]float32, 0, audioconv.SampleRate*3)
	)
	err := r.capture(ctx, frameSize, func(frame []float32) bool {
		keep, done := gate.feed(frame)
		if keep {
			out = append(out, frame...)
		}
		return done
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoAudio
	}
	return out, nil
}

// RecordUntil records everything until stop fires, ctx ends, or the length
// limit is reached.
func (r *Recorder) RecordUntil(ctx context.Context, stop <-chan struct{}) ([]float32, error) {
	out := make([]float32, 0, audioconv.SampleRate*3)
	err := r.capture(ctx, 1024, func(frame []float32) bool {
		out = append(out, frame...)
		select {
		case <-stop:
			return true
		default:
			return false
		}
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoAudio
	}
	return out, nil
}

// capture feeds frames to fn until fn reports done. Cancellation returns
// what was captured so far.
func (r *Recorder) capture(ctx context.Context, frameSize int, fn func([]float32) bool) error {
	buf := make([]float32, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(audioconv.SampleRate), len(buf), buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return err
	}
	defer stream.Stop()

	deadline := time.Now().Add(r.opt.MaxLength)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return nil
		}
		if err := stream.Read(); err != nil {
			return err
		}
		if fn(buf) {
			return nil
		}
	}
	return nil
}

// silenceGate tracks speech onset and the trailing silence after it.
type silenceGate struct {
	threshold float64
	maxQuiet  int
	speaking  bool
	quiet     int
}

func newSilenceGate(threshold float64, maxQuiet int) *silenceGate {
	return &silenceGate{threshold: threshold, maxQuiet: max(maxQuiet, 1)}
}

func (g *silenceGate) feed(frame []float32) (keep, done bool) {
	if frameRMS(frame) > g.threshold {
		g.speaking = true
		g.quiet = 0
		return true, false
	}
	if !g.speaking {
		return false, false
	}
	g.quiet++
	return true, g.quiet >= g.maxQuiet
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s / float64(len(f)))
}
