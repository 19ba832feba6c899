package fb

import "fmt"

// Device commands understood by the framebuffer device file, per §6.
const (
	CmdReceiveInfo = 1
	CmdSyncPixels  = 2
)

// Info describes the framebuffer geometry, received once at startup.
type Info struct {
	Width, Height uint32
	BitsPerPixel  uint32 // always 32
	BGR           bool   // always false
}

// syncRect mirrors the device-side {off_x, off_y, w, h} struct passed to
// CmdSyncPixels.
type syncRect struct {
	OffX, OffY, W, H uint32
}

// Framebuffer owns the mapped pixel array for the lifetime of the process.
// All methods assume the caller already holds the process-wide framebuffer
// lock (§5); Framebuffer itself does no locking.
type Framebuffer struct {
	info   Info
	pixels []Pixel // len == info.Width*info.Height, row-major
	dev    device
}

// device abstracts the platform-specific open/mmap/ioctl sequence so
// Framebuffer's drawing logic is platform-independent. See
// framebuffer_linux.go and framebuffer_other.go.
type device interface {
	sync(r syncRect) error
	close() error
}

// Open performs the startup sequence from §4.2: opens the device, reads
// FramebufferInfo, validates the only supported layout, and maps the pixel
// array.
func Open(path string) (*Framebuffer, error) {
	info, pixels, dev, err := openDevice(path)
	if err != nil {
		return nil, err
	}
	if info.BitsPerPixel != 32 || info.BGR {
		dev.close()
		return nil, fmt.Errorf("unsupported framebuffer layout: bpp=%d bgr=%v", info.BitsPerPixel, info.BGR)
	}
	return &Framebuffer{info: info, pixels: pixels, dev: dev}, nil
}

// Info returns the framebuffer's geometry.
func (f *Framebuffer) Info() Info { return f.info }

func (f *Framebuffer) rowOK(y int) bool {
	return y >= 0 && y*int(f.info.Width) < len(f.pixels)
}

// DrawRectFilled overwrites a rectangle with a single pixel, without
// blending. Rows that would start at or past the end of the pixel array
// are silently skipped rather than written out of range (§4.2 bounds
// policy) — this matches draw_rect_filled_with in the reference window
// store (original_source/src/window.rs).
func (f *Framebuffer) DrawRectFilled(x, y, w, h int, p Pixel) {
	width := int(f.info.Width)
	for row := 0; row < h; row++ {
		py := y + row
		if !f.rowOK(py) {
			continue
		}
		base := py*width + x
		for col := 0; col < w; col++ {
			idx := base + col
			if idx < 0 || idx >= len(f.pixels) || x+col >= width {
				continue
			}
			f.pixels[idx] = p
		}
	}
}

// DrawRectWithin blends src[srcX:srcX+w, srcY:srcY+h] onto the framebuffer
// at (dstX, dstY), clipping w and h to stay inside both the source and the
// destination rectangle.
func (f *Framebuffer) DrawRectWithin(dstX, dstY, w, h int, src []Pixel, srcW, srcH, srcX, srcY int) {
	if w > srcW-srcX {
		w = srcW - srcX
	}
	if h > srcH-srcY {
		h = srcH - srcY
	}
	if w <= 0 || h <= 0 {
		return
	}

	dstWidth := int(f.info.Width)
	for row := 0; row < h; row++ {
		py := dstY + row
		if !f.rowOK(py) {
			continue
		}
		srcBase := (srcY+row)*srcW + srcX
		dstBase := py*dstWidth + dstX
		for col := 0; col < w; col++ {
			dx := dstX + col
			if dx < 0 || dx >= dstWidth {
				continue
			}
			si := srcBase + col
			di := dstBase + col
			if si < 0 || si >= len(src) || di < 0 || di >= len(f.pixels) {
				continue
			}
			f.pixels[di] = Blend(src[si], f.pixels[di])
		}
	}
}

// Sync issues CMD_SYNC_PIXELS, asking the device to present the given
// rectangle.
func (f *Framebuffer) Sync(x, y, w, h int) error {
	return f.dev.sync(syncRect{OffX: uint32(x), OffY: uint32(y), W: uint32(w), H: uint32(h)})
}

// Close releases the device mapping.
func (f *Framebuffer) Close() error {
	return f.dev.close()
}

// nullDevice backs a synthetic, in-memory Framebuffer used by tests and by
// the --fake-fb demo mode; it has no real device to sync or close.
type nullDevice struct{}

func (nullDevice) sync(syncRect) error { return nil }
func (nullDevice) close() error        { return nil }

// NewSynthetic builds a Framebuffer over a plain Go slice instead of a
// mapped device, for tests and for running the compositor without
// real framebuffer hardware.
func NewSynthetic(width, height int) *Framebuffer {
	return &Framebuffer{
		info:   Info{Width: uint32(width), Height: uint32(height), BitsPerPixel: 32},
		pixels: make([]Pixel, width*height),
		dev:    nullDevice{},
	}
}

// Pixels exposes the backing pixel array, read-only access for tests and
// diagnostic dumps.
func (f *Framebuffer) Pixels() []Pixel { return f.pixels }
