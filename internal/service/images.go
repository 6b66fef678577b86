package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	xdraw "golang.org/x/image/draw"
)

const maxImageDim = 1024

// ProcessImage normalizes an uploaded photo for the vision model. The
// image is flattened onto a white background, contrast and brightness
// are lifted slightly, and anything larger than 1024px is scaled down.
// The result is always a JPEG.
func ProcessImage(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image, %w", err)
	}

	bounds := src.Bounds()

	// Transparent PNGs come out black in JPEG without this
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(rgba, bounds, src, bounds.Min, draw.Over)

	enhance(rgba, 1.2, 1.1)

	w, h := fitWithin(bounds.Dx(), bounds.Dy(), maxImageDim)
	if w != bounds.Dx() || h != bounds.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), rgba, rgba.Bounds(), xdraw.Over, nil)
		rgba = scaled
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, rgba, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg, %w", err)
	}

	return out.Bytes(), nil
}

// enhance applies contrast around the image's own gray mean, then a
// brightness multiplier.
func enhance(img *image.RGBA, contrast, brightness float64) {
	pix := img.Pix

	var sum, count float64
	for i := 0; i < len(pix); i += 4 {
		sum += 0.299*float64(pix[i]) + 0.587*float64(pix[i+1]) + 0.114*float64(pix[i+2])
		count++
	}

	mean := 128.0
	if count > 0 {
		mean = sum / count
	}

	for i := 0; i < len(pix); i += 4 {
		for j := range 3 {
			v := float64(pix[i+j])
			v = (v-mean)*contrast + mean
			v *= brightness
			pix[i+j] = clamp8(v)
		}
	}
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func fitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}

	if w > h {
		return max, h * max / w
	}
	return w * max / h, max
}
