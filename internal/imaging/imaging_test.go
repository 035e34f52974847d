package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func filled(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func createTestJPEG(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, filled(w, h, color.RGBA{255, 0, 0, 255}), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, filled(w, h, color.RGBA{0, 0, 255, 255}))
	return buf.Bytes()
}

func createTestGIF(w, h int) []byte {
	var buf bytes.Buffer
	gif.Encode(&buf, filled(w, h, color.RGBA{0, 255, 0, 255}), nil)
	return buf.Bytes()
}

func decodedSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg output, got %s", format)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestProcessFormats(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"jpeg", createTestJPEG(100, 80)},
		{"png", createTestPNG(100, 80)},
		{"gif", createTestGIF(100, 80)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Process(tt.data)
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			w, h := decodedSize(t, result.Data)
			if w != 100 || h != 80 || result.Width != 100 || result.Height != 80 {
				t.Errorf("expected 100x80, got %dx%d", w, h)
			}
		})
	}
}

func TestProcessDownscale(t *testing.T) {
	result, err := Process(createTestJPEG(2048, 1024))
	if err != nil {
		t.Fatalf("Process large image: %v", err)
	}

	w, h := decodedSize(t, result.Data)
	if w != MaxDimension || h != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, w, h)
	}
}

func TestProcessInvalid(t *testing.T) {
	tests := map[string][]byte{
		"text":          []byte("not an image"),
		"truncated gif": []byte("GIF89a..."),
		"truncated png": createTestPNG(10, 10)[:20],
		"empty":         nil,
	}

	for name, data := range tests {
		_, err := Process(data)
		if !errors.Is(err, ErrInvalidImage) {
			t.Errorf("%s: expected ErrInvalidImage, got %v", name, err)
		}
	}
}
