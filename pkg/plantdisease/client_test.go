package plantdisease

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func logitsFor(label string, score float64) []float64 {
	out := make([]float64, len(Labels))
	for i, l := range Labels {
		if l == label {
			out[i] = score
		}
	}
	return out
}

func predictor(t *testing.T, logits []float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		_ = json.NewEncoder(w).Encode(map[string]any{"logits": logits})
	}))
}

func TestLabels(t *testing.T) {
	require.Len(t, Labels, 38)

	crop, cond := SplitLabel("Corn_(maize)___Common_rust_")
	assert.Equal(t, "Corn (maize)", crop)
	assert.Equal(t, "Common rust", cond)

	crop, cond = SplitLabel("Pepper,_bell___Bacterial_spot")
	assert.Equal(t, "Pepper, bell", crop)
	assert.Equal(t, "Bacterial spot", cond)
}

func TestClassifyDisease(t *testing.T) {
	srv := predictor(t, logitsFor("Tomato___Late_blight", 12))
	defer srv.Close()

	p, err := NewClient(srv.Client(), srv.URL).Classify(context.Background(), leafPNG(t))
	require.NoError(t, err)
	assert.Equal(t, "Tomato___Late_blight", p.Label)
	assert.Equal(t, "Tomato", p.Crop)
	assert.Equal(t, "Late blight", p.Condition)
	assert.False(t, p.Healthy)
	assert.Greater(t, p.Confidence, 0.99)
	assert.Contains(t, p.String(), "Detected Late blight on Tomato")
}

func TestClassifyFileHealthy(t *testing.T) {
	srv := predictor(t, logitsFor("Potato___healthy", 9))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "leaf.png")
	require.NoError(t, os.WriteFile(path, leafPNG(t), 0o644))

	p, err := NewClient(srv.Client(), srv.URL).ClassifyFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, p.Healthy)
	assert.Contains(t, p.String(), "Potato leaf looks healthy")
}

func TestClassifyRejectsNonImage(t *testing.T) {
	_, err := NewClient(nil, "http://unused").Classify(context.Background(), []byte("not an image"))
	require.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestClassifyLabelMismatch(t *testing.T) {
	srv := predictor(t, []float64{1, 2, 3})
	defer srv.Close()

	_, err := NewClient(srv.Client(), srv.URL).Classify(context.Background(), leafPNG(t))
	require.ErrorIs(t, err, ErrLabelMismatch)
}

func TestSoftmax(t *testing.T) {
	p := Softmax([]float64{1000, 1000})
	assert.InDelta(t, 0.5, p[0], 1e-9)
	assert.InDelta(t, 0.5, p[1], 1e-9)
	assert.Nil(t, Softmax(nil))
}
