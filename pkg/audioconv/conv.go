// Package audioconv turns uploaded or recorded audio into the 16 kHz mono
// float32 PCM that whisper expects, and back into WAV for remote engines.
package audioconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const SampleRate = 16000

var ErrUnsupportedFormat = errors.New("unsupported audio format")

type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
	FormatOgg
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	case FormatOgg:
		return "ogg"
	default:
		return "unknown"
	}
}

// ContentType is the MIME type used when uploading audio of this format.
func (f Format) ContentType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	case FormatOgg:
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

type Options struct {
	MaxSamples int // 0 = unlimited
}

// Sniff identifies the container from its magic bytes, falling back to the
// file extension of name.
func Sniff(head []byte, name string) Format {
	switch {
	case bytes.HasPrefix(head, []byte("RIFF")):
		return FormatWAV
	case bytes.HasPrefix(head, []byte("OggS")):
		return FormatOgg
	case bytes.HasPrefix(head, []byte("ID3")),
		len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return FormatMP3
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	case ".ogg", ".oga", ".opus":
		return FormatOgg
	}
	return FormatUnknown
}

func DecodeFile(_ context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, filepath.Base(path), opt)
}

func DecodeBytes(data []byte, name string, opt Options) ([]float32, error) {
	return Decode(bytes.NewReader(data), name, opt)
}

// Decode reads a whole WAV, MP3 or Ogg (Vorbis or Opus) stream and returns
// mono PCM at SampleRate.
func Decode(r io.ReadSeeker, name string, opt Options) ([]float32, error) {
	head := make([]byte, 4)
	n, _ := io.ReadFull(r, head)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var (
		s   stream
		err error
	)
	switch format := Sniff(head[:n], name); format {
	case FormatWAV:
		s, err = decodeWAV(r)
	case FormatMP3:
		s, err = decodeMP3(r)
	case FormatOgg:
		s, err = decodeOgg(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, err
	}
	return s.mono16k(opt), nil
}

// stream is decoded interleaved audio before normalization.
type stream struct {
	samples  []float32
	rate     int
	channels int
}

func (s stream) mono16k(opt Options) []float32 {
	x := downmix(s.samples, s.channels)
	x = resample(x, s.rate, SampleRate)
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}
