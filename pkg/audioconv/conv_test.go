package audioconv

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n, rate int, hz float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*hz*float64(i)/float64(rate)))
	}
	return out
}

func TestSniff(t *testing.T) {
	assert.Equal(t, FormatWAV, Sniff([]byte("RIFF"), "x.bin"))
	assert.Equal(t, FormatOgg, Sniff([]byte("OggS"), ""))
	assert.Equal(t, FormatMP3, Sniff([]byte("ID3\x04"), ""))
	assert.Equal(t, FormatMP3, Sniff([]byte{0xFF, 0xFB, 0x90, 0x00}, ""))
	assert.Equal(t, FormatOgg, Sniff(nil, "voice.OPUS"))
	assert.Equal(t, FormatUnknown, Sniff([]byte("%PDF"), "doc.pdf"))
	assert.Equal(t, "audio/mpeg", FormatMP3.ContentType())
}

func TestEncodeDecodeWAV(t *testing.T) {
	in := sine(8000, 8000, 440)
	data, err := EncodeWAV(in, 8000)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("RIFF")))

	out, err := DecodeBytes(data, "clip.wav", Options{})
	require.NoError(t, err)
	// one second at 8 kHz becomes one second at 16 kHz
	assert.InDelta(t, SampleRate, len(out), 2)
	assert.InDelta(t, in[100], out[200], 0.01)

	capped, err := DecodeBytes(data, "clip.wav", Options{MaxSamples: 100})
	require.NoError(t, err)
	assert.Len(t, capped, 100)
}

func TestDecodeRejectsUnknown(t *testing.T) {
	_, err := DecodeBytes([]byte("hello world"), "note.txt", Options{})
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = EncodeWAV(nil, SampleRate)
	require.Error(t, err)
}

func TestDownmixResample(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, downmix([]float32{1, 0, 0.5, -0.5}, 2))

	up := resample([]float32{0, 1}, 1, 2)
	assert.Equal(t, []float32{0, 0.5, 1, 1}, up)

	same := []float32{1, 2}
	assert.Equal(t, same, resample(same, SampleRate, SampleRate))
}

func TestSeekBuffer(t *testing.T) {
	var b seekBuffer
	_, _ = b.Write([]byte("abcdef"))
	_, err := b.Seek(2, 0)
	require.NoError(t, err)
	_, _ = b.Write([]byte("XY"))
	assert.Equal(t, "abXYef", string(b.buf))
}
