// Package fb owns the mapped framebuffer pixel array: primitive rectangle
// draws, alpha blending, and selective present. The ioctl/mmap plumbing is
// grounded on the DRM dumb-buffer dance in api/pkg/drm/ioctl_linux.go and
// api/cmd/drm-flipper/main.go of the reference tree — a raw linear
// framebuffer device plays the role DRM dumb buffers play there.
package fb

import "unsafe"

// Pixel is one BGRA8888 framebuffer texel, stored in memory order blue,
// green, red, alpha — matching the device's native layout so a Pixel slice
// can be memcpy'd straight into the mapped buffer.
type Pixel struct {
	B, G, R, A uint8
}

// NewPixel reorders (r, g, b, a) into the device's BGRA memory layout.
func NewPixel(r, g, b, a uint8) Pixel {
	return Pixel{B: b, G: g, R: r, A: a}
}

// NewOpaquePixel builds a fully opaque pixel from RGB channels.
func NewOpaquePixel(r, g, b uint8) Pixel {
	return NewPixel(r, g, b, 0xFF)
}

// PixelFromHex reinterprets a packed 0xAARRGGBB constant directly as the
// BGRA byte layout: out = (alpha<<24)|(red<<16)|(green<<8)|blue.
func PixelFromHex(hex uint32) Pixel {
	return Pixel{
		B: uint8(hex),
		G: uint8(hex >> 8),
		R: uint8(hex >> 16),
		A: uint8(hex >> 24),
	}
}

// Background is the compositor's clear color: opaque 0x282828.
var Background = PixelFromHex(0xFF282828)

// PixelsFromBytes reinterprets a raw byte buffer — typically a shared-memory
// region a client writes its frame into — as a Pixel slice of the given
// length, the same reinterpret-in-place trick framebuffer_linux.go uses for
// the mapped device memory. count*4 bytes must be available in data.
func PixelsFromBytes(data []byte, count int) []Pixel {
	if count == 0 {
		return nil
	}
	return unsafe.Slice((*Pixel)(unsafe.Pointer(&data[0])), count)
}

// blendChan computes one 8-bit output channel of source-over compositing.
// Intermediate terms are widened to u32: the worst case
// (255*255 + 255*255*255) exceeds u16 range.
func blendChan(sc, sa, dc, da uint32) uint8 {
	return uint8((sc*sa + dc*da*(255-sa)/255) / 255)
}

// Blend composites source s over destination d using the standard
// "source over" alpha formula, per channel in {r,g,b}, with a combined
// output alpha.
func Blend(s, d Pixel) Pixel {
	sa := uint32(s.A)
	da := uint32(d.A)
	return Pixel{
		R: blendChan(uint32(s.R), sa, uint32(d.R), da),
		G: blendChan(uint32(s.G), sa, uint32(d.G), da),
		B: blendChan(uint32(s.B), sa, uint32(d.B), da),
		A: uint8(sa + da - (sa*da)/255),
	}
}
