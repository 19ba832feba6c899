// Package compositor implements the window store and compositor: a
// Z-ordered set of windows, damage accumulation, rectangle intersection,
// and alpha-blended redraw against the framebuffer.
//
// The store's shape — a mutex-guarded struct with maps and id pools,
// mutated by request handlers and read back by a redraw step — is grounded
// on the Manager in api/pkg/drm/manager.go of the reference tree, adapted
// from DRM scanout-lease bookkeeping to on-screen window bookkeeping.
package compositor

import (
	"opalwm/internal/fb"
	"opalwm/internal/wire"
)

// WindowID identifies a live window. Drawn from a fixed 1024-entry pool.
type WindowID uint16

// MaxWindowID bounds the id pool (§3).
const MaxWindowID = 1024

// Kind distinguishes ordinary windows from the always-on-top overlay class.
type Kind int

const (
	Normal Kind = iota
	Overlay
)

// EventSender delivers an asynchronous event to the client that owns a
// window. Implemented by *session.Session; declared here so the compositor
// package does not need to import session (which itself depends on the
// compositor's Store).
type EventSender interface {
	SendEvent(kind wire.EventKind, payload any)
}

// Window is a single on-screen surface, owned by the compositor.
type Window struct {
	PosX, PosY    int
	Width, Height int
	Pixels        []fb.Pixel // len == Width*Height, row-major
	ShmKey        uint64
	Kind          Kind
	Client        EventSender // nil for WM-owned windows (cursor, demo windows)
}

// rect returns the window's rectangle in framebuffer coordinates,
// half-open on the bottom-right per §3/§4.3.
func (w *Window) rect() DamageRegion {
	return DamageRegion{X: w.PosX, Y: w.PosY, W: w.Width, H: w.Height}
}
