package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessImageScalesDown(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2000, 1000))
	for y := range 1000 {
		for x := range 2000 {
			src.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}

	out, err := ProcessImage(pngBytes(t, src))
	require.NoError(t, err)

	decoded, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1024, decoded.Bounds().Dx())
	assert.Equal(t, 512, decoded.Bounds().Dy())
}

func TestProcessImageKeepsSmallImages(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 320, 240))

	out, err := ProcessImage(pngBytes(t, src))
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, 320, decoded.Bounds().Dx())
	assert.Equal(t, 240, decoded.Bounds().Dy())
}

func TestProcessImageFlattensTransparency(t *testing.T) {
	// Fully transparent source should come out white, not black
	src := image.NewRGBA(image.Rect(0, 0, 64, 64))

	out, err := ProcessImage(pngBytes(t, src))
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	r, g, b, _ := decoded.At(32, 32).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestProcessImageRejectsGarbage(t *testing.T) {
	_, err := ProcessImage([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, max int
		wantW     int
		wantH     int
	}{
		{2048, 1024, 1024, 1024, 512},
		{1024, 2048, 1024, 512, 1024},
		{800, 600, 1024, 800, 600},
		{1024, 1024, 1024, 1024, 1024},
		{3000, 3000, 1024, 1024, 1024},
	}

	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}
