package audioconv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

func decodeWAV(r io.ReadSeeker) (stream, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return stream{}, errors.New("invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return stream{}, fmt.Errorf("read wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return stream{}, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	s := stream{samples: intsToFloat(buf.Data, depth), rate: int(dec.SampleRate), channels: int(dec.NumChans)}
	if f := buf.Format; f != nil && f.SampleRate > 0 && f.NumChannels > 0 {
		s.rate, s.channels = f.SampleRate, f.NumChannels
	}
	return s, nil
}

// go-mp3 always produces 16-bit little-endian stereo.
func decodeMP3(r io.Reader) (stream, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return stream{}, fmt.Errorf("open mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return stream{}, fmt.Errorf("read mp3: %w", err)
	}
	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return stream{samples: int16sToFloat(pcm), rate: dec.SampleRate(), channels: 2}, nil
}

// decodeOgg tries Vorbis first and rewinds for Opus.
func decodeOgg(r io.ReadSeeker) (stream, error) {
	s, verr := decodeVorbis(r)
	if verr == nil {
		return s, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return stream{}, err
	}
	s, oerr := decodeOpus(r)
	if oerr != nil {
		return stream{}, fmt.Errorf("ogg is neither vorbis (%v) nor opus (%w)", verr, oerr)
	}
	return s, nil
}

func decodeVorbis(r io.Reader) (stream, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return stream{}, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return stream{}, errors.New("invalid vorbis stream")
	}
	return stream{samples: pcm, rate: format.SampleRate, channels: format.Channels}, nil
}

// Opus always decodes at 48 kHz.
func decodeOpus(r io.ReadSeeker) (stream, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return stream{}, err
	}
	defer dec.Destroy()

	ch := max(dec.ChannelCount(), 1)
	buf := make([]int16, 24_000*ch)
	var pcm []float32
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16sToFloat(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return stream{}, err
		}
	}
	if len(pcm) == 0 {
		return stream{}, errors.New("empty opus stream")
	}
	return stream{samples: pcm, rate: 48000, channels: ch}, nil
}
