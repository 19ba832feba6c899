package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingRoundTrip(t *testing.T) {
	// S1: client sends the 8-byte Ping request, WM replies Ok(Success)
	// padded to 256 bytes.
	encoded := EncodeRequest(Request{Kind: KindPing})
	assert.Equal(t, []byte{0xAD, 0xED, 0xFE, 0xBC, 0x00, 0x00, 0x00, 0x00}, encoded)

	req, err := DecodeRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, KindPing, req.Kind)

	resp := EncodeOk(OkSuccess, nil)
	require.Len(t, resp, MaxPacketSize)
	want := make([]byte, MaxPacketSize)
	copy(want, []byte{0xDD, 0x00, 0xEF, 0xA1, 0x00, 0x00, 0x00, 0x00})
	assert.Equal(t, want, resp)
}

func TestCreateWindowRoundTrip(t *testing.T) {
	req := Request{Kind: KindCreateWindow, CreateWindow: CreateWindowReq{X: 10, Y: 20, Width: 100, Height: 80}}
	encoded := EncodeRequest(req)
	decoded, err := DecodeRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
}

func TestDamageWindowRoundTrip(t *testing.T) {
	req := Request{Kind: KindDamageWindow, DamageWindow: DamageWindowReq{X: 0, Y: 0, Width: 100, Height: 80, WinID: 7}}
	encoded := EncodeRequest(req)
	decoded, err := DecodeRequest(encoded)
	require.NoError(t, err)
	assert.Equal(t, req, decoded)
}

func TestDecodeRequestErrors(t *testing.T) {
	_, err := DecodeRequest([]byte{1, 2, 3})
	assert.Equal(t, ErrPacketTooShort, err)

	bad := EncodeRequest(Request{Kind: KindPing})
	bad[0] = 0x00
	_, err = DecodeRequest(bad)
	assert.Equal(t, ErrInvalidMagic, err)

	unknownKind := EncodeRequest(Request{Kind: KindPing})
	unknownKind[4] = 0xFF
	_, err = DecodeRequest(unknownKind)
	assert.Equal(t, ErrInvalidRequestKind, err)

	short := EncodeRequest(Request{Kind: KindCreateWindow, CreateWindow: CreateWindowReq{Width: 1, Height: 1}})
	short = short[:10]
	_, err = DecodeRequest(short)
	assert.Equal(t, ErrPacketTooShort, err)
}

// DecodeRequest must never panic, regardless of input: it must always
// return either a valid request or one of the known decode errors.
func TestDecodeRequestNeverPanics(t *testing.T) {
	sizes := []int{0, 1, 4, 7, 8, 9, 16, 32, 255, 256}
	for _, n := range sizes {
		buf := bytes.Repeat([]byte{0x42}, n)
		assert.NotPanics(t, func() {
			_, _ = DecodeRequest(buf)
		})
	}
}

func TestEventRoundTrip(t *testing.T) {
	enc := EncodeEvent(EventMouseEnter, MouseEnterEvent{PosX: 3, PosY: 4})
	require.Len(t, enc, MaxPacketSize)

	dec, err := DecodeResponse(enc)
	require.NoError(t, err)
	assert.Equal(t, ClassEvent, dec.Class)
	assert.Equal(t, EventMouseEnter, dec.EventKind)
	assert.Equal(t, uint32(3), dec.MouseEnter.PosX)
	assert.Equal(t, uint32(4), dec.MouseEnter.PosY)
}

func TestWindowCreatedRoundTrip(t *testing.T) {
	enc := EncodeOk(OkWindowCreated, WindowCreatedPayload{ShmKey: 0xCAFEBABE, WinID: 42})
	dec, err := DecodeResponse(enc)
	require.NoError(t, err)
	assert.Equal(t, ClassOk, dec.Class)
	assert.Equal(t, OkWindowCreated, dec.OkKind)
	assert.Equal(t, uint64(0xCAFEBABE), dec.WindowCreated.ShmKey)
	assert.Equal(t, uint16(42), dec.WindowCreated.WinID)
}

func TestMouseChangeRoundTrip(t *testing.T) {
	enc := EncodeEvent(EventMouseChange, MouseChangeEvent{
		ButtonsChanged: 1,
		HeldButtons:    ButtonLeft,
		PosX:           7,
		PosY:           9,
	})
	require.Len(t, enc, MaxPacketSize)

	dec, err := DecodeResponse(enc)
	require.NoError(t, err)
	assert.Equal(t, ClassEvent, dec.Class)
	assert.Equal(t, EventMouseChange, dec.EventKind)
	assert.Equal(t, uint8(1), dec.MouseChange.ButtonsChanged)
	assert.Equal(t, ButtonLeft, dec.MouseChange.HeldButtons)
	assert.Equal(t, uint32(7), dec.MouseChange.PosX)
	assert.Equal(t, uint32(9), dec.MouseChange.PosY)
}

func TestErrRoundTrip(t *testing.T) {
	enc := EncodeErr(RespUnknownWindow)
	dec, err := DecodeResponse(enc)
	require.NoError(t, err)
	assert.Equal(t, ClassErr, dec.Class)
	assert.Equal(t, RespUnknownWindow, dec.ErrKind)
}
