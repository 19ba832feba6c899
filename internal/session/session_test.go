package session

import (
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalwm/internal/compositor"
	"opalwm/internal/wire"
)

type fakeStore struct {
	added   []*compositor.Window
	removed []compositor.WindowID
	damaged []compositor.WindowID
	nextID  compositor.WindowID
	failAdd bool
	unknown map[compositor.WindowID]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{unknown: map[compositor.WindowID]bool{}}
}

func (f *fakeStore) AddWindow(w *compositor.Window, kind compositor.Kind) (compositor.WindowID, bool) {
	if f.failAdd {
		return 0, false
	}
	id := f.nextID
	f.nextID++
	f.added = append(f.added, w)
	return id, true
}

func (f *fakeStore) RemoveWindow(id compositor.WindowID) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeStore) DamageWindow(id compositor.WindowID, x, y, w, h int) error {
	if f.unknown[id] {
		return compositor.ErrUnknownWindow
	}
	f.damaged = append(f.damaged, id)
	return nil
}

func (f *fakeStore) ShouldRedraw() bool { return false }
func (f *fakeStore) Redraw()            {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestServePing(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	s := New(server, newFakeStore(), discardLogger())
	go s.Serve()

	req := wire.EncodeRequest(wire.Request{Kind: wire.KindPing})
	_, err := client.Write(req)
	require.NoError(t, err)

	buf := make([]byte, wire.MaxPacketSize)
	n, err := client.Read(buf)
	require.NoError(t, err)

	resp, err := wire.DecodeResponse(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, wire.ClassOk, resp.Class)
	assert.Equal(t, wire.OkSuccess, resp.OkKind)
}

func TestServeDamageWindowUnknown(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	store := newFakeStore()
	store.unknown[7] = true
	s := New(server, store, discardLogger())
	go s.Serve()

	req := wire.EncodeRequest(wire.Request{
		Kind: wire.KindDamageWindow,
		DamageWindow: wire.DamageWindowReq{
			WinID: 7, X: 0, Y: 0, Width: 4, Height: 4,
		},
	})
	_, err := client.Write(req)
	require.NoError(t, err)

	buf := make([]byte, wire.MaxPacketSize)
	n, err := client.Read(buf)
	require.NoError(t, err)

	resp, err := wire.DecodeResponse(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, wire.ClassErr, resp.Class)
	assert.Equal(t, wire.RespUnknownWindow, resp.ErrKind)
}

func TestServeMalformedRequestDoesNotDisconnect(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	s := New(server, newFakeStore(), discardLogger())
	go s.Serve()

	// Bad magic: decode error, but the session keeps serving.
	_, err := client.Write([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)

	buf := make([]byte, wire.MaxPacketSize)
	n, err := client.Read(buf)
	require.NoError(t, err)
	resp, err := wire.DecodeResponse(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, wire.RespInvalidMagic, resp.ErrKind)

	// Connection is still alive: a Ping now gets a normal reply.
	req := wire.EncodeRequest(wire.Request{Kind: wire.KindPing})
	_, err = client.Write(req)
	require.NoError(t, err)
	n, err = client.Read(buf)
	require.NoError(t, err)
	resp, err = wire.DecodeResponse(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, wire.ClassOk, resp.Class)
}

func TestSendEventAfterCloseIsDropped(t *testing.T) {
	client, server := net.Pipe()

	s := New(server, newFakeStore(), discardLogger())
	client.Close()
	server.Close()

	assert.NotPanics(t, func() {
		s.SendEvent(wire.EventWindowFocused, nil)
	})
}
