// Package session implements the per-connection client worker (§4.4): one
// goroutine per accepted socket, decoding requests through wire, mutating
// the window store, and replying — plus an asynchronous event path used by
// the compositor and the input dispatcher.
//
// The goroutine-per-connection shape and its use of log/slog follow the
// DRM manager's handleClient in the reference tree's api/pkg/drm/manager.go;
// the split send/receive locking is this package's own addition, required
// by §4.4 and absent from that reference (which never writes unprompted to
// its client socket).
package session

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"

	"opalwm/internal/compositor"
	"opalwm/internal/fb"
	"opalwm/internal/shm"
	"opalwm/internal/wire"
)

// Store is the subset of *compositor.Store a session needs. Declared here
// so tests can substitute a fake.
type Store interface {
	AddWindow(w *compositor.Window, kind compositor.Kind) (compositor.WindowID, bool)
	RemoveWindow(id compositor.WindowID) error
	DamageWindow(id compositor.WindowID, x, y, w, h int) error
	ShouldRedraw() bool
	Redraw()
}

// Session owns one accepted client connection. The zero value is not
// usable; construct with New.
type Session struct {
	conn net.Conn
	log  *slog.Logger
	store Store

	// recvMu and sendMu are independent, per §4.4/§9: the receive side
	// blocks in a request read while the send side must remain free for
	// asynchronous event delivery from the compositor or input dispatcher.
	recvMu sync.Mutex
	sendMu sync.Mutex

	mu      sync.Mutex // guards ownedWindows only
	ownedWindows map[compositor.WindowID]*shm.Region
}

// New wraps an accepted connection. log should already be scoped with any
// per-connection fields the caller wants (remote address, sequence number).
func New(conn net.Conn, store Store, log *slog.Logger) *Session {
	return &Session{
		conn:         conn,
		store:        store,
		log:          log,
		ownedWindows: make(map[compositor.WindowID]*shm.Region),
	}
}

// Serve runs the request/response loop until the connection closes or a
// non-orderly read error occurs, then cleans up every window this session
// created (§4.4 disconnection, §8 S6).
func (s *Session) Serve() {
	defer s.cleanup()
	buf := make([]byte, wire.MaxPacketSize)
	for {
		n, err := s.readPacket(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || isOrderlyClose(err) {
				return
			}
			s.log.Warn("session read error", "err", err)
			return
		}

		req, decodeErr := wire.DecodeRequest(buf[:n])
		var resp []byte
		if decodeErr != nil {
			resp = wire.EncodeErr(wire.FromDecodeErr(decodeErr))
		} else {
			resp = s.handle(req)
		}

		if err := s.writePacket(resp); err != nil {
			s.log.Warn("session write error", "err", err)
			return
		}
	}
}

func (s *Session) readPacket(buf []byte) (int, error) {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()
	return s.conn.Read(buf)
}

func (s *Session) writePacket(buf []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	_, err := s.conn.Write(buf)
	return err
}

// handle dispatches one decoded request and builds its reply (§4.4 step 2).
func (s *Session) handle(req wire.Request) []byte {
	switch req.Kind {
	case wire.KindPing:
		return wire.EncodeOk(wire.OkSuccess, nil)

	case wire.KindCreateWindow:
		return s.handleCreateWindow(req.CreateWindow)

	case wire.KindDamageWindow:
		return s.handleDamageWindow(req.DamageWindow)

	default:
		return wire.EncodeErr(wire.RespInvalidRequestKind)
	}
}

func (s *Session) handleCreateWindow(req wire.CreateWindowReq) []byte {
	width, height := int(req.Width), int(req.Height)
	size := width * height * 4
	key, region, err := shm.Create(size)
	if err != nil {
		s.log.Error("shm create failed", "err", err)
		return wire.EncodeErr(wire.RespUnknownFatalError)
	}

	win := &compositor.Window{
		PosX: int(req.X), PosY: int(req.Y),
		Width: width, Height: height,
		Pixels: pixelsFromRegion(region, width*height),
		ShmKey: key,
		Client: s,
	}

	id, ok := s.store.AddWindow(win, compositor.Normal)
	if !ok {
		region.Destroy()
		return wire.EncodeErr(wire.RespUnknownFatalError)
	}

	s.mu.Lock()
	s.ownedWindows[id] = region
	s.mu.Unlock()

	s.redrawIfNeeded()
	return wire.EncodeOk(wire.OkWindowCreated, wire.WindowCreatedPayload{
		ShmKey: key,
		WinID:  uint16(id),
	})
}

func (s *Session) handleDamageWindow(req wire.DamageWindowReq) []byte {
	id := compositor.WindowID(req.WinID)
	err := s.store.DamageWindow(id, int(req.X), int(req.Y), int(req.Width), int(req.Height))
	if err != nil {
		return wire.EncodeErr(wire.RespUnknownWindow)
	}
	s.redrawIfNeeded()
	return wire.EncodeOk(wire.OkSuccess, nil)
}

// redrawIfNeeded performs a redraw cycle on whichever thread most recently
// mutated the store, per §5's "redraw is performed by whichever thread most
// recently mutated the store, under the framebuffer lock".
func (s *Session) redrawIfNeeded() {
	if s.store.ShouldRedraw() {
		s.store.Redraw()
	}
}

// SendEvent implements compositor.EventSender. Delivery is best-effort:
// ConnectionAborted/ConnectionReset style failures are dropped silently, any
// other error is logged and the event is still dropped (§4.4, §7).
func (s *Session) SendEvent(kind wire.EventKind, payload any) {
	buf := wire.EncodeEvent(kind, payload)
	if err := s.writePacket(buf); err != nil {
		if isOrderlyClose(err) {
			return
		}
		s.log.Warn("event delivery failed", "kind", kind, "err", err)
	}
}

// cleanup removes every window this session created, releasing its shared
// memory, then closes the connection (§4.4, §8 S6).
func (s *Session) cleanup() {
	s.mu.Lock()
	owned := s.ownedWindows
	s.ownedWindows = nil
	s.mu.Unlock()

	for id, region := range owned {
		if err := s.store.RemoveWindow(id); err != nil {
			s.log.Warn("remove window on disconnect", "win_id", id, "err", err)
		}
		if err := region.Destroy(); err != nil {
			s.log.Warn("destroy shm on disconnect", "win_id", id, "err", err)
		}
	}
	s.conn.Close()
}

// isOrderlyClose reports whether err corresponds to the §4.4/§7
// ConnectionAborted/ConnectionReset cases: an orderly or client-initiated
// disconnect that should not be logged as a failure.
func isOrderlyClose(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE)
}

func pixelsFromRegion(r *shm.Region, count int) []fb.Pixel {
	return fb.PixelsFromBytes(r.Bytes(), count)
}
