package compositor

import (
	"errors"
	"sync"

	"opalwm/internal/fb"
	"opalwm/internal/wire"
)

// ErrUnknownWindow is returned by any store operation that names a
// WindowID not currently live.
var ErrUnknownWindow = errors.New("unknown window")

// Store is the window store and compositor: the single process-wide
// authority over window identity, Z-order, focus, and damage. Every
// mutation path that touches damage or Z-order must hold mu, matching the
// WINDOWS lock described in §5. fbMu is the separate FRAMEBUFFER lock,
// acquired only during Redraw and never while mu is held. The reference
// Manager in api/pkg/drm/manager.go likewise keeps its bookkeeping under one
// mutex and its DRM device handle outside it; Store adds a second mutex of
// its own for the framebuffer.
type Store struct {
	mu sync.Mutex

	ids     idAllocator
	windows map[WindowID]*Window
	normal  []WindowID // back-to-front; last is topmost
	overlay []WindowID
	focused *WindowID

	damage        []DamageRegion
	shouldRedraw  bool

	fbMu sync.Mutex
	fbuf *fb.Framebuffer
}

// New creates an empty window store bound to fbuf for redraw.
func New(fbuf *fb.Framebuffer) *Store {
	return &Store{
		windows: make(map[WindowID]*Window),
		fbuf:    fbuf,
	}
}

// AddWindow allocates an id for w, installs it in the matching Z-list, and
// (for Normal windows) makes it the focused window. Returns ok=false if
// the id pool is exhausted.
func (s *Store) AddWindow(w *Window, kind Kind) (WindowID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.ids.add()
	if !ok {
		return 0, false
	}
	w.Kind = kind
	s.windows[id] = w

	switch kind {
	case Normal:
		s.normal = append(s.normal, id)
		s.setFocusedLocked(id)
	case Overlay:
		s.overlay = append(s.overlay, id)
		s.pushDamageLocked(w.rect())
	}
	return id, true
}

// RemoveWindow removes id from the store, clearing focus if it was
// focused, and records its rectangle as damage.
func (s *Store) RemoveWindow(id WindowID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[id]
	if !ok {
		return ErrUnknownWindow
	}

	delete(s.windows, id)
	s.ids.remove(id)

	switch w.Kind {
	case Normal:
		s.normal = removeID(s.normal, id)
	case Overlay:
		s.overlay = removeID(s.overlay, id)
	}

	if s.focused != nil && *s.focused == id {
		s.focused = nil
	}
	s.pushDamageLocked(w.rect())
	return nil
}

// DamageWindow clips (x, y, w, h) into id's local rectangle, translates it
// to framebuffer coordinates, and records it as damage.
func (s *Store) DamageWindow(id WindowID, x, y, w, h int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	win, ok := s.windows[id]
	if !ok {
		return ErrUnknownWindow
	}

	cx, cy, cw, ch := clipToWindow(x, y, w, h, win.Width, win.Height)
	if cw <= 0 || ch <= 0 {
		return nil
	}
	s.pushDamageLocked(DamageRegion{X: win.PosX + cx, Y: win.PosY + cy, W: cw, H: ch})
	return nil
}

// MoveBy clamps id's new position to stay within the framebuffer and
// records damage for both the old and new rectangle if it actually moved.
// A (0, 0) delta is a no-op and never touches the damage log.
func (s *Store) MoveBy(id WindowID, dx, dy int) (newX, newY int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	win, exists := s.windows[id]
	if !exists {
		return 0, 0, false
	}
	if dx == 0 && dy == 0 {
		return win.PosX, win.PosY, true
	}

	before := win.rect()
	maxX := int(s.fbuf.Info().Width) - win.Width
	maxY := int(s.fbuf.Info().Height) - win.Height

	win.PosX = clampAdd(win.PosX, dx, maxX)
	win.PosY = clampAdd(win.PosY, dy, maxY)

	if win.PosX == before.X && win.PosY == before.Y {
		return win.PosX, win.PosY, true
	}

	s.pushDamageLocked(before)
	s.pushDamageLocked(win.rect())
	return win.PosX, win.PosY, true
}

func clampAdd(pos, delta, max int) int {
	v := pos + delta // saturating in spirit: delta is always a small i16-derived value
	if v > max {
		v = max
	}
	if v < 0 {
		v = 0
	}
	return v
}

// SetFocused transfers focus to id. Idempotent if id is already focused.
// Moves id to the end of its Z-list — the `normal` list if Normal,
// otherwise `overlay` (removing it from `normal` first if present, so an
// overlay window is never a focus candidate again).
func (s *Store) SetFocused(id WindowID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.windows[id]
	if !ok {
		return false
	}
	return s.setFocusedLocked(id)
}

func (s *Store) setFocusedLocked(id WindowID) bool {
	if s.focused != nil && *s.focused == id {
		return true
	}

	prev := s.focused
	s.focused = &id

	if prev != nil {
		s.sendEventLocked(*prev, wire.EventWindowUnfocused, nil)
	}

	win := s.windows[id]
	switch win.Kind {
	case Normal:
		s.normal = removeID(s.normal, id)
		s.normal = append(s.normal, id)
	case Overlay:
		s.normal = removeID(s.normal, id)
		s.overlay = removeID(s.overlay, id)
		s.overlay = append(s.overlay, id)
	}

	s.sendEventLocked(id, wire.EventWindowFocused, nil)
	s.pushDamageLocked(win.rect())
	return true
}

// UnfocusCurrent clears focus, if any, notifying the formerly-focused
// window and recording damage for its rectangle.
func (s *Store) UnfocusCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focused == nil {
		return
	}
	id := *s.focused
	s.focused = nil
	s.sendEventLocked(id, wire.EventWindowUnfocused, nil)
	if win, ok := s.windows[id]; ok {
		s.pushDamageLocked(win.rect())
	}
}

// Focused returns the currently focused window id, if any.
func (s *Store) Focused() (WindowID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focused == nil {
		return 0, false
	}
	return *s.focused, true
}

// WindowInContact iterates the normal Z-list topmost-first and returns the
// first window whose rectangle intersects the probe rectangle. Overlay
// windows are never candidates — they are ineligible for focus and mouse
// contact per §4.3.
func (s *Store) WindowInContact(x, y, w, h int) (WindowID, IntersectionPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	probe := DamageRegion{X: x, Y: y, W: w, H: h}
	for i := len(s.normal) - 1; i >= 0; i-- {
		id := s.normal[i]
		win := s.windows[id]
		if pt, ok := Intersect(probe, win.rect()); ok {
			return id, pt, true
		}
	}
	return 0, IntersectionPoint{}, false
}

// SendEvent dispatches ev through id's owning client session.
func (s *Store) SendEvent(id WindowID, kind wire.EventKind, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.windows[id]; !ok {
		return ErrUnknownWindow
	}
	s.sendEventLocked(id, kind, payload)
	return nil
}

func (s *Store) sendEventLocked(id WindowID, kind wire.EventKind, payload any) {
	win, ok := s.windows[id]
	if !ok || win.Client == nil {
		return
	}
	win.Client.SendEvent(kind, payload)
}

func (s *Store) pushDamageLocked(r DamageRegion) {
	s.damage = append(s.damage, r)
	s.shouldRedraw = true
}

// ShouldRedraw reports whether damage has accumulated since the last
// Redraw call.
func (s *Store) ShouldRedraw() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldRedraw
}

func removeID(list []WindowID, id WindowID) []WindowID {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
