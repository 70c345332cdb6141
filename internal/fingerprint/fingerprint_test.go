package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     uint64
		expected int
	}{
		{"identical", 0x0, 0x0, 0},
		{"completely different", 0xFFFFFFFFFFFFFFFF, 0x0, 64},
		{"one bit", 0x1, 0x0, 1},
		{"half", 0xFFFFFFFF00000000, 0x0, 32},
		{"alternating", 0xAAAAAAAAAAAAAAAA, 0x5555555555555555, 64},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, HammingDistance(tc.a, tc.b))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(42, 42))
	assert.Equal(t, 0.0, Similarity(0xFFFFFFFFFFFFFFFF, 0))
	assert.InDelta(t, 1-16.0/64, Similarity(0xFFFF, 0), 1e-9)
}

func TestComputeHashes_Deterministic(t *testing.T) {
	data := encodePNG(t, gradient(64, 48))
	h1, err := ComputeHashes(data)
	require.NoError(t, err)
	h2, err := ComputeHashes(data)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1.PHashHex(), 16)
	assert.Len(t, h1.DHashHex(), 16)
}

func TestHashImage_DifferentContent(t *testing.T) {
	a := HashImage(gradient(64, 64))
	b := HashImage(reverseGradient(64, 64))
	assert.Greater(t, HammingDistance(a.DHash, b.DHash), 32)
	assert.Less(t, Similarity(a.PHash, b.PHash), Similarity(a.PHash, a.PHash))
}

func TestComputeHashes_JPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(100, 80), &jpeg.Options{Quality: 90}))
	_, err := ComputeHashes(buf.Bytes())
	assert.NoError(t, err)
}

func TestComputeHashes_InvalidImage(t *testing.T) {
	_, err := ComputeHashes([]byte("not an image"))
	assert.Error(t, err)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 0.0, median(nil))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"length mismatch", []float32{1}, []float32{1, 2}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, CosineSimilarity(tc.a, tc.b), 1e-6)
		})
	}
}

func TestDetectMIMEType(t *testing.T) {
	assert.Equal(t, "image/jpeg", DetectMIMEType([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}))
	assert.Equal(t, "image/png", DetectMIMEType(encodePNG(t, gradient(2, 2))))
	assert.Equal(t, "image/gif", DetectMIMEType([]byte("GIF89a\x00\x00")))
	assert.Equal(t, "image/webp", DetectMIMEType([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")))
	assert.Equal(t, "application/octet-stream", DetectMIMEType([]byte("abc")))
}

func TestComputeEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed/image", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.NotEmpty(t, data)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dim":        3,
			"embedding":  []float32{0.1, 0.2, 0.3},
			"model":      "ViT-B-32",
			"pretrained": "openai",
		})
	}))
	defer srv.Close()

	client := NewEmbeddingClient(srv.URL+"/", "")
	emb, err := client.ComputeEmbedding(context.Background(), encodePNG(t, gradient(8, 8)))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, emb.Vector)
	assert.Equal(t, "ViT-B-32", emb.Model)
	assert.Equal(t, 3, emb.Dim)
	assert.Equal(t, "clip", client.Model())
}

func TestComputeEmbedding_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"server error", http.StatusInternalServerError, "boom", "status 500"},
		{"empty embedding", http.StatusOK, `{"embedding":[]}`, "empty embedding"},
		{"bad json", http.StatusOK, `{`, "parse response"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewEmbeddingClient(srv.URL, "clip").ComputeEmbedding(context.Background(), []byte("x"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := uint8((x * 255) / max(w-1, 1))
			img.Set(x, y, color.RGBA{R: v, G: uint8((y * 255) / max(h-1, 1)), B: v, A: 255})
		}
	}
	return img
}

func reverseGradient(w, h int) *image.RGBA {
	img := gradient(w, h)
	out := image.NewRGBA(img.Bounds())
	for y := range h {
		for x := range w {
			out.Set(w-1-x, y, img.At(x, y))
		}
	}
	return out
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
