package compositor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalwm/internal/fb"
	"opalwm/internal/wire"
)

type recordingClient struct {
	events []wire.EventKind
}

func (c *recordingClient) SendEvent(kind wire.EventKind, payload any) {
	c.events = append(c.events, kind)
}

func newTestStore(w, h int) *Store {
	return New(fb.NewSynthetic(w, h))
}

func solidWindow(x, y, w, h int) *Window {
	px := make([]fb.Pixel, w*h)
	for i := range px {
		px[i] = fb.NewOpaquePixel(255, 0, 0)
	}
	return &Window{PosX: x, PosY: y, Width: w, Height: h, Pixels: px}
}

func TestAddWindowFocusesNormalNotOverlay(t *testing.T) {
	s := newTestStore(200, 200)
	client := &recordingClient{}
	w := solidWindow(10, 20, 100, 80)
	w.Client = client

	id, ok := s.AddWindow(w, Normal)
	require.True(t, ok)

	focused, has := s.Focused()
	require.True(t, has)
	assert.Equal(t, id, focused)
	assert.Contains(t, client.events, wire.EventWindowFocused)

	overlayClient := &recordingClient{}
	ov := solidWindow(0, 0, 16, 16)
	ov.Client = overlayClient
	_, ok = s.AddWindow(ov, Overlay)
	require.True(t, ok)

	// Installing an overlay must not change focus.
	stillFocused, _ := s.Focused()
	assert.Equal(t, id, stillFocused)
	assert.NotContains(t, overlayClient.events, wire.EventWindowFocused)
}

func TestRemoveWindowUnknown(t *testing.T) {
	s := newTestStore(200, 200)
	err := s.RemoveWindow(999)
	assert.ErrorIs(t, err, ErrUnknownWindow)
}

func TestDamageWindowUnknownReturnsErr(t *testing.T) {
	// S5: DamageWindow on an id that never existed must error.
	s := newTestStore(200, 200)
	err := s.DamageWindow(42, 0, 0, 10, 10)
	assert.ErrorIs(t, err, ErrUnknownWindow)
}

func TestMoveByClampsToFramebuffer(t *testing.T) {
	s := newTestStore(100, 100)
	w := solidWindow(90, 90, 20, 20)
	id, _ := s.AddWindow(w, Normal)

	x, y, ok := s.MoveBy(id, 50, 50)
	require.True(t, ok)
	assert.Equal(t, 80, x) // fb.w(100) - win.w(20)
	assert.Equal(t, 80, y)
}

func TestMoveByZeroDeltaIsNoop(t *testing.T) {
	s := newTestStore(100, 100)
	w := solidWindow(10, 10, 20, 20)
	id, _ := s.AddWindow(w, Normal)
	s.Redraw() // drain the add-window damage first

	x, y, ok := s.MoveBy(id, 0, 0)
	require.True(t, ok)
	assert.Equal(t, 10, x)
	assert.Equal(t, 10, y)
	assert.False(t, s.ShouldRedraw())
}

func TestFocusSwitchByClick(t *testing.T) {
	// S4: two normal windows, clicking the one not on top refocuses it
	// and moves it to the end of the Z-list.
	s := newTestStore(200, 200)
	clientA := &recordingClient{}
	a := solidWindow(0, 0, 100, 100)
	a.Client = clientA
	idA, _ := s.AddWindow(a, Normal)

	clientB := &recordingClient{}
	b := solidWindow(50, 50, 100, 100)
	b.Client = clientB
	idB, _ := s.AddWindow(b, Normal)

	focused, _ := s.Focused()
	require.Equal(t, idB, focused)

	contactID, _, ok := s.WindowInContact(10, 10, 16, 16)
	require.True(t, ok)
	assert.Equal(t, idA, contactID)

	ok = s.SetFocused(contactID)
	require.True(t, ok)

	newFocused, _ := s.Focused()
	assert.Equal(t, idA, newFocused)
	assert.Contains(t, clientB.events, wire.EventWindowUnfocused)
	assert.Contains(t, clientA.events, wire.EventWindowFocused)
	assert.Equal(t, []WindowID{idB, idA}, s.normal)
}

func TestOverlayNeverInContact(t *testing.T) {
	s := newTestStore(200, 200)
	ov := solidWindow(0, 0, 50, 50)
	s.AddWindow(ov, Overlay)

	_, _, ok := s.WindowInContact(10, 10, 1, 1)
	assert.False(t, ok)
}

func TestIDReuseAfterRemoval(t *testing.T) {
	s := newTestStore(200, 200)
	id1, _ := s.AddWindow(solidWindow(0, 0, 10, 10), Normal)
	require.NoError(t, s.RemoveWindow(id1))

	id2, ok := s.AddWindow(solidWindow(0, 0, 10, 10), Normal)
	require.True(t, ok)
	assert.Equal(t, id1, id2)
}

func TestDamageDrainedAfterRedraw(t *testing.T) {
	s := newTestStore(200, 200)
	s.AddWindow(solidWindow(10, 10, 10, 10), Normal)
	require.True(t, s.ShouldRedraw())
	s.Redraw()
	assert.False(t, s.ShouldRedraw())
}

func TestIntersectHalfOpenOverlap(t *testing.T) {
	d := DamageRegion{X: 5, Y: 5, W: 10, H: 10} // covers [5,15)
	w := DamageRegion{X: 10, Y: 10, W: 10, H: 10}
	pt, ok := Intersect(d, w)
	require.True(t, ok)
	assert.Equal(t, IntersectionPoint{X0: 0, Y0: 0, X1: 5, Y1: 5}, pt)
}

func TestIntersectNoOverlapIsIdentity(t *testing.T) {
	d := DamageRegion{X: 0, Y: 0, W: 5, H: 5}
	w := DamageRegion{X: 100, Y: 100, W: 5, H: 5}
	_, ok := Intersect(d, w)
	assert.False(t, ok)
}

func TestUnionIdentityIsNeutral(t *testing.T) {
	p := IntersectionPoint{X0: 1, Y0: 1, X1: 5, Y1: 5}
	assert.Equal(t, p, p.Union(none))
	assert.Equal(t, p, none.Union(p))
}

func TestUnionCommutativeAndAssociative(t *testing.T) {
	a := IntersectionPoint{X0: 0, Y0: 0, X1: 3, Y1: 3}
	b := IntersectionPoint{X0: 2, Y0: 2, X1: 6, Y1: 6}
	c := IntersectionPoint{X0: 5, Y0: 0, X1: 8, Y1: 2}

	assert.Equal(t, a.Union(b), b.Union(a))
	assert.Equal(t, a.Union(b).Union(c), a.Union(b.Union(c)))
}

func TestRedrawBlendsWindowOverBackground(t *testing.T) {
	// S2-style: creating a window damages its rectangle, so after redraw
	// the framebuffer there shows its pixels blended over the background.
	surface := fb.NewSynthetic(100, 100)
	surface.DrawRectFilled(0, 0, 100, 100, fb.Background)
	s := New(surface)

	w := solidWindow(10, 20, 4, 4)
	s.AddWindow(w, Normal)
	s.Redraw()

	got := surface.Pixels()[20*100+10]
	assert.Equal(t, fb.NewOpaquePixel(255, 0, 0), got)

	// An untouched pixel stays the background color.
	bg := surface.Pixels()[0]
	assert.Equal(t, fb.Background, bg)
}
