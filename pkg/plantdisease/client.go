// Package plantdisease classifies leaf photos into PlantVillage disease classes
// using a remote model server (ResNet-50 fine-tuned on PlantVillage, served
// behind a TorchServe-style prediction endpoint that returns raw logits).
package plantdisease

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

const maxImageBytes = 10 << 20

var (
	ErrUnsupportedImage = errors.New("unsupported image")
	ErrLabelMismatch    = errors.New("logit count does not match label set")
)

type Prediction struct {
	Label      string
	Crop       string
	Condition  string
	Healthy    bool
	Confidence float64 // softmax probability of the top class
}

func (p Prediction) String() string {
	if p.Healthy {
		return fmt.Sprintf("The %s leaf looks healthy (%.1f%% confidence)", p.Crop, p.Confidence*100)
	}
	return fmt.Sprintf("Detected %s on %s (%.1f%% confidence)", p.Condition, p.Crop, p.Confidence*100)
}

type Client struct {
	http     *http.Client
	endpoint string
	labels   []string
}

func NewClient(httpClient *http.Client, endpoint string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: httpClient, endpoint: endpoint, labels: Labels}
}

func (c *Client) ClassifyFile(ctx context.Context, path string) (Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return Prediction{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return Prediction{}, err
	}
	return c.Classify(ctx, data)
}

func (c *Client) Classify(ctx context.Context, img []byte) (Prediction, error) {
	if len(img) > maxImageBytes {
		return Prediction{}, fmt.Errorf("%w: larger than %d bytes", ErrUnsupportedImage, maxImageBytes)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(img))
	if err != nil {
		return Prediction{}, err
	}
	req.Header.Set("Content-Type", "image/"+format)

	resp, err := c.http.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("predict: HTTP %d", resp.StatusCode)
	}

	var out struct {
		Logits []float64 `json:"logits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	return c.top(out.Logits)
}

func (c *Client) top(logits []float64) (Prediction, error) {
	if len(logits) != len(c.labels) {
		return Prediction{}, fmt.Errorf("%w: got %d, want %d", ErrLabelMismatch, len(logits), len(c.labels))
	}

	probs := Softmax(logits)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	label := c.labels[best]
	crop, condition := SplitLabel(label)
	return Prediction{
		Label:      label,
		Crop:       crop,
		Condition:  condition,
		Healthy:    condition == "healthy",
		Confidence: probs[best],
	}, nil
}

// Softmax is shifted by the max logit to stay finite.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxv := logits[0]
	for _, v := range logits[1:] {
		maxv = math.Max(maxv, v)
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - maxv)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
