package input

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalwm/internal/compositor"
	"opalwm/internal/wire"
)

type fakeStore struct {
	pos        map[compositor.WindowID][2]int
	focused    *compositor.WindowID
	contact    *compositor.WindowID
	contactPt  compositor.IntersectionPoint
	events     []wire.EventKind
	eventTargs []compositor.WindowID
}

func newFakeStore() *fakeStore {
	return &fakeStore{pos: map[compositor.WindowID][2]int{}}
}

func (f *fakeStore) MoveBy(id compositor.WindowID, dx, dy int) (int, int, bool) {
	p := f.pos[id]
	p[0] += dx
	p[1] += dy
	f.pos[id] = p
	return p[0], p[1], true
}

func (f *fakeStore) WindowInContact(x, y, w, h int) (compositor.WindowID, compositor.IntersectionPoint, bool) {
	if f.contact == nil {
		return 0, compositor.IntersectionPoint{}, false
	}
	return *f.contact, f.contactPt, true
}

func (f *fakeStore) SetFocused(id compositor.WindowID) bool {
	f.focused = &id
	return true
}

func (f *fakeStore) UnfocusCurrent() { f.focused = nil }

func (f *fakeStore) Focused() (compositor.WindowID, bool) {
	if f.focused == nil {
		return 0, false
	}
	return *f.focused, true
}

func (f *fakeStore) SendEvent(id compositor.WindowID, kind wire.EventKind, payload any) error {
	f.events = append(f.events, kind)
	f.eventTargs = append(f.eventTargs, id)
	return nil
}

func (f *fakeStore) ShouldRedraw() bool { return false }
func (f *fakeStore) Redraw()            {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestHandleChangeMovesCursor(t *testing.T) {
	store := newFakeStore()
	store.pos[1] = [2]int{100, 100}
	d := NewDispatcher(store, discardLogger(), 1, 100, 100, 16, 16)

	d.handleChange(Record{Kind: KindChange, Buttons: 0, XRel: 5, YRel: -3})
	assert.Equal(t, 105, d.x)
	assert.Equal(t, 103, d.y)
}

func TestHandleChangeDragMovesFocusedWindow(t *testing.T) {
	// S3: LEFT already held drags the focused window by the same delta.
	store := newFakeStore()
	focused := compositor.WindowID(9)
	store.focused = &focused
	d := NewDispatcher(store, discardLogger(), 1, 10, 20, 16, 16)
	d.lastButtons = ButtonLeft

	d.handleChange(Record{Kind: KindChange, Buttons: ButtonLeft, XRel: 5, YRel: 3})

	assert.Equal(t, [2]int{5, -3}, store.pos[9])
}

func TestHandleChangeEnterThenChange(t *testing.T) {
	store := newFakeStore()
	win := compositor.WindowID(3)
	store.contact = &win
	store.contactPt = compositor.IntersectionPoint{X0: 1, Y0: 2, X1: 5, Y1: 6}

	d := NewDispatcher(store, discardLogger(), 1, 0, 0, 16, 16)
	d.handleChange(Record{Kind: KindChange, Buttons: 0, XRel: 1, YRel: 0})
	require.Len(t, store.events, 1)
	assert.Equal(t, wire.EventMouseEnter, store.events[0])
	assert.Equal(t, win, store.eventTargs[0])

	// Second record over the same window: Change, not another Enter.
	d.handleChange(Record{Kind: KindChange, Buttons: ButtonLeft, XRel: 1, YRel: 0})
	require.Len(t, store.events, 2)
	assert.Equal(t, wire.EventMouseChange, store.events[1])
}

func TestHandleChangeFocusOnRisingLeftEdge(t *testing.T) {
	// S4: a rising LEFT edge with no motion focuses whatever is contacted.
	store := newFakeStore()
	win := compositor.WindowID(4)
	store.contact = &win

	d := NewDispatcher(store, discardLogger(), 1, 0, 0, 16, 16)
	d.handleChange(Record{Kind: KindChange, Buttons: ButtonLeft, XRel: 0, YRel: 0})

	focused, ok := store.Focused()
	require.True(t, ok)
	assert.Equal(t, win, focused)
}

func TestHandleChangeUnfocusWhenNoContactOnClick(t *testing.T) {
	store := newFakeStore()
	d := NewDispatcher(store, discardLogger(), 1, 0, 0, 16, 16)
	f := compositor.WindowID(1)
	store.focused = &f

	d.handleChange(Record{Kind: KindChange, Buttons: ButtonLeft, XRel: 0, YRel: 0})
	_, ok := store.Focused()
	assert.False(t, ok)
}
