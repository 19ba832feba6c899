package fb

import "testing"

func TestPixelFromHex(t *testing.T) {
	p := PixelFromHex(0x11223344)
	if p.A != 0x11 || p.R != 0x22 || p.G != 0x33 || p.B != 0x44 {
		t.Fatalf("unexpected pixel %#v", p)
	}
}

func TestBlendOpaqueSourceWins(t *testing.T) {
	s := NewOpaquePixel(10, 20, 30)
	d := NewOpaquePixel(200, 200, 200)
	out := Blend(s, d)
	// s.a = 255: formula reduces to out.c = s.c (modulo rounding in low bits).
	if out.R != s.R || out.G != s.G || out.B != s.B {
		t.Fatalf("opaque source should win: got %#v want rgb %d,%d,%d", out, s.R, s.G, s.B)
	}
}

func TestBlendTransparentSourceIsNoop(t *testing.T) {
	s := NewPixel(10, 20, 30, 0)
	d := NewOpaquePixel(200, 150, 100)
	out := Blend(s, d)
	if out.R != d.R || out.G != d.G || out.B != d.B || out.A != d.A {
		t.Fatalf("transparent source should leave dest unchanged: got %#v want %#v", out, d)
	}
}

func TestDrawRectFilledOutOfRangeRowsDiscarded(t *testing.T) {
	f := &Framebuffer{info: Info{Width: 4, Height: 4, BitsPerPixel: 32}, pixels: make([]Pixel, 16)}
	// A rect starting past the last row must not panic or corrupt memory.
	f.DrawRectFilled(0, 10, 4, 4, NewOpaquePixel(1, 2, 3))
	for _, p := range f.pixels {
		if p != (Pixel{}) {
			t.Fatalf("expected untouched buffer, got %#v", p)
		}
	}
}

func TestDrawRectWithinClipsToBothRects(t *testing.T) {
	f := &Framebuffer{info: Info{Width: 4, Height: 4, BitsPerPixel: 32}, pixels: make([]Pixel, 16)}
	src := make([]Pixel, 2*2)
	for i := range src {
		src[i] = NewOpaquePixel(9, 9, 9)
	}
	// Destination near the edge: w clipped by framebuffer bound implicitly
	// via rowOK/column bound, not by this call's explicit w/h clip (those
	// clip against the *source* rectangle only).
	f.DrawRectWithin(3, 3, 2, 2, src, 2, 2, 0, 0)
	if f.pixels[3*4+3] != (Pixel{R: 9, G: 9, B: 9, A: 255}) {
		t.Fatalf("expected blended pixel at last cell, got %#v", f.pixels[3*4+3])
	}
}
