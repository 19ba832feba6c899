package compositor

import "opalwm/internal/fb"

// drawItem is a snapshot of one window's geometry and pixel buffer taken
// under mu, so Redraw's compositing pass needs no synchronization with
// concurrent store mutations beyond the snapshot itself. The pixel slice
// still aliases client shared memory — per §5, there is deliberately no
// handshake protecting a half-drawn client frame, so the bytes read here
// may be mid-write from the client's perspective.
type drawItem struct {
	rect          DamageRegion
	pixels        []fb.Pixel
	width, height int
}

// Redraw drains the accumulated damage and replays it onto the
// framebuffer: clear each damaged region to the background color, then
// blend every window's damaged sub-rectangle back on top (normal windows
// first, then overlays), and finally present exactly the damaged
// rectangles. It is a no-op if nothing is damaged.
func (s *Store) Redraw() {
	s.mu.Lock()
	damage := s.damage
	s.damage = nil
	s.shouldRedraw = false

	items := make([]drawItem, 0, len(s.normal)+len(s.overlay))
	for _, id := range s.normal {
		items = append(items, snapshot(s.windows[id]))
	}
	for _, id := range s.overlay {
		items = append(items, snapshot(s.windows[id]))
	}
	s.mu.Unlock()

	if len(damage) == 0 {
		return
	}

	s.fbMu.Lock()
	defer s.fbMu.Unlock()

	for _, r := range damage {
		s.fbuf.DrawRectFilled(r.X, r.Y, r.W, r.H, fb.Background)
	}

	for _, item := range items {
		pts := make([]IntersectionPoint, 0, len(damage))
		for _, r := range damage {
			if pt, ok := Intersect(r, item.rect); ok {
				pts = append(pts, pt)
			}
		}
		union := UnionAll(pts)
		if union.IsNone() {
			continue
		}
		offX := item.rect.X + union.X0
		offY := item.rect.Y + union.Y0
		s.fbuf.DrawRectWithin(offX, offY, union.Width(), union.Height(), item.pixels, item.width, item.height, union.X0, union.Y0)
	}

	for _, r := range damage {
		s.fbuf.Sync(r.X, r.Y, r.W, r.H)
	}
}

func snapshot(w *Window) drawItem {
	return drawItem{rect: w.rect(), pixels: w.Pixels, width: w.Width, height: w.Height}
}
