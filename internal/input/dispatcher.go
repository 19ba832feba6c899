package input

import (
	"log/slog"

	"opalwm/internal/compositor"
	"opalwm/internal/wire"
)

// Store is the subset of *compositor.Store the dispatcher needs.
type Store interface {
	MoveBy(id compositor.WindowID, dx, dy int) (int, int, bool)
	WindowInContact(x, y, w, h int) (compositor.WindowID, compositor.IntersectionPoint, bool)
	SetFocused(id compositor.WindowID) bool
	UnfocusCurrent()
	Focused() (compositor.WindowID, bool)
	SendEvent(id compositor.WindowID, kind wire.EventKind, payload any) error
	ShouldRedraw() bool
	Redraw()
}

// Dispatcher runs the §4.5 state machine: one dedicated cursor overlay
// window, driven by a stream of mouse records.
type Dispatcher struct {
	store    Store
	log      *slog.Logger
	cursorID compositor.WindowID
	cursorW  int
	cursorH  int

	x, y         int
	lastButtons  uint8
	prevContact  *compositor.WindowID
}

// NewDispatcher binds the dispatcher to an already-installed cursor window
// (cursorID), at its initial on-screen position and size.
func NewDispatcher(store Store, log *slog.Logger, cursorID compositor.WindowID, startX, startY, w, h int) *Dispatcher {
	return &Dispatcher{
		store:    store,
		log:      log,
		cursorID: cursorID,
		cursorW:  w,
		cursorH:  h,
		x:        startX,
		y:        startY,
	}
}

// Run drains dev until it returns an error, applying every Change record to
// the store. It never returns on a clean stream; callers run it on its own
// goroutine per §5 ("one thread for the input dispatcher").
func (d *Dispatcher) Run(dev *Device) error {
	for {
		rec, err := dev.ReadRecord()
		if err != nil {
			return err
		}
		switch rec.Kind {
		case KindChange:
			d.handleChange(rec)
		case KindNull:
			d.log.Warn("unreachable mouse record kind", "kind", rec.Kind)
		default:
			d.log.Warn("unknown mouse record kind", "kind", rec.Kind)
		}
		if d.store.ShouldRedraw() {
			d.store.Redraw()
		}
	}
}

// handleChange implements the six numbered steps of §4.5.
func (d *Dispatcher) handleChange(rec Record) {
	dx := int(rec.XRel)
	dy := -int(rec.YRel)

	// 1. Move the cursor and update the cached position.
	newX, newY, _ := d.store.MoveBy(d.cursorID, dx, dy)
	d.x, d.y = newX, newY

	prevContact := d.prevContact
	prevLeft := d.lastButtons&ButtonLeft != 0
	leftNow := rec.Buttons&ButtonLeft != 0

	// 3. Drag-move: while LEFT was already held, the focused window tracks
	// the cursor's motion.
	if prevLeft {
		if focusedID, ok := d.store.Focused(); ok {
			d.store.MoveBy(focusedID, dx, dy)
		}
	}

	// 4. Recompute who the cursor is over now.
	currID, currPt, hasContact := d.store.WindowInContact(d.x, d.y, d.cursorW, d.cursorH)
	isEnter := hasContact && (prevContact == nil || *prevContact != currID)

	switch {
	case hasContact && isEnter:
		// 5 Enter/Leave: notify the old window it was left, then the new
		// window it was entered.
		if prevContact != nil {
			d.store.SendEvent(*prevContact, wire.EventMouseLeave, nil)
		}
		d.store.SendEvent(currID, wire.EventMouseEnter, wire.MouseEnterEvent{
			PosX: uint32(currPt.X0),
			PosY: uint32(currPt.Y0),
		})
	case hasContact:
		// 5 Change: same window as last time, report the button/position delta.
		d.store.SendEvent(currID, wire.EventMouseChange, wire.MouseChangeEvent{
			ButtonsChanged: boolToU8(rec.Buttons != d.lastButtons),
			HeldButtons:    rec.Buttons,
			PosX:           uint32(currPt.X0),
			PosY:           uint32(currPt.Y0),
		})
	default:
		if prevContact != nil {
			d.store.SendEvent(*prevContact, wire.EventMouseLeave, nil)
		}
	}

	// 5 Focus: a rising LEFT edge transfers focus to whatever is under the
	// cursor, or clears focus if nothing is.
	if leftNow && !prevLeft {
		if hasContact {
			if focusedID, ok := d.store.Focused(); !ok || focusedID != currID {
				d.store.SetFocused(currID)
			}
		} else {
			d.store.UnfocusCurrent()
		}
	}

	// 6. Persist state for the next record.
	d.lastButtons = rec.Buttons
	if hasContact {
		id := currID
		d.prevContact = &id
	} else {
		d.prevContact = nil
	}
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
