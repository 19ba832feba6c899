// Package cursor builds the WM-owned overlay window for the mouse cursor
// from an embedded BMP asset. The spec treats the BMP decoder only as a
// consumer of its output pixel stream (§1); golang.org/x/image/bmp fills
// that role here, the same decoder family the reference tree pulls in
// transitively through golang.org/x/image (see cogentcore-core's
// base/iox/imagex wrapper in the examples for the idiom this follows).
package cursor

import (
	"bytes"
	"embed"
	"fmt"
	"image"

	"golang.org/x/image/bmp"

	"opalwm/internal/fb"
)

//go:embed cursor.bmp
var assetFS embed.FS

// Load decodes the embedded cursor bitmap into a row-major BGRA pixel
// buffer plus its dimensions, ready to back a Window.
func Load() ([]fb.Pixel, int, int, error) {
	raw, err := assetFS.ReadFile("cursor.bmp")
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read embedded cursor asset: %w", err)
	}
	img, err := bmp.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode cursor bmp: %w", err)
	}
	return toPixels(img), img.Bounds().Dx(), img.Bounds().Dy(), nil
}

func toPixels(img image.Image) []fb.Pixel {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	px := make([]fb.Pixel, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			px[y*w+x] = fb.NewPixel(uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8))
		}
	}
	return px
}
