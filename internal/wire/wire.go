// Package wire implements the OpalWM packet codec: the fixed-size,
// little-endian request/response/event framing exchanged between clients
// and the window manager over a SOCK_SEQPACKET local socket.
//
// The layout mirrors the helix-drm-manager lease protocol
// (api/pkg/drm/manager.go, api/pkg/drm/protocol.go in the reference tree):
// a magic-prefixed header followed by a fixed struct payload, marshaled with
// encoding/binary rather than unsafe casts.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MaxPacketSize is the largest packet the WM will read or write on the
// client socket.
const MaxPacketSize = 256

// Magic numbers identifying each packet class. Bit-exact per the wire spec.
const (
	MagicRequest uint32 = 0xBCFEEDAD
	MagicOk      uint32 = 0xA1EF00DD
	MagicErr     uint32 = 0xBADF00DD
	MagicEvent   uint32 = 0xADFEEDBC
)

// Mouse button bitmask values, carried in MouseChange events.
const (
	ButtonLeft   uint8 = 1
	ButtonMiddle uint8 = 2
	ButtonRight  uint8 = 4
)

// RequestKind discriminates the payload carried by a Request.
type RequestKind uint32

const (
	KindPing RequestKind = iota
	KindCreateWindow
	KindDamageWindow
)

func (k RequestKind) String() string {
	switch k {
	case KindPing:
		return "Ping"
	case KindCreateWindow:
		return "CreateWindow"
	case KindDamageWindow:
		return "DamageWindow"
	default:
		return fmt.Sprintf("RequestKind(%d)", uint32(k))
	}
}

// CreateWindowReq asks the WM to allocate a new top-level window.
type CreateWindowReq struct {
	Flags  uint32
	X      uint32
	Y      uint32
	Width  uint32
	Height uint32
}

// DamageWindowReq reports a dirty sub-rectangle of an existing window, in
// the window's local coordinates.
type DamageWindowReq struct {
	X      uint32
	Y      uint32
	Width  uint32
	Height uint32
	WinID  uint16
	_      uint16
}

// Request is a decoded client request. Only the field matching Kind is
// meaningful.
type Request struct {
	Kind         RequestKind
	CreateWindow CreateWindowReq
	DamageWindow DamageWindowReq
}

// DecodeErr enumerates the ways a packet can fail to decode. These map
// directly onto the ErrorKind values returned to the client.
type DecodeErr int

const (
	ErrInvalidMagic DecodeErr = iota
	ErrInvalidRequestKind
	ErrPacketTooShort
	ErrInvalidData
)

func (e DecodeErr) Error() string {
	switch e {
	case ErrInvalidMagic:
		return "invalid magic"
	case ErrInvalidRequestKind:
		return "invalid request kind"
	case ErrPacketTooShort:
		return "packet too short"
	case ErrInvalidData:
		return "invalid data"
	default:
		return "unknown decode error"
	}
}

// payloadSize returns the encoded size of a request kind's payload, or -1
// for an unrecognized kind.
func payloadSize(kind RequestKind) int {
	switch kind {
	case KindPing:
		return 0
	case KindCreateWindow:
		return 20 // 5 * uint32
	case KindDamageWindow:
		return 20 // 4 * uint32 + 2 * uint16
	default:
		return -1
	}
}

// EncodeRequest marshals a request into its wire form: magic, kind, then
// the kind's payload. The result is never padded to MaxPacketSize — callers
// write exactly these bytes to the socket, one write per packet.
func EncodeRequest(req Request) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(8 + payloadSizeOrZero(req.Kind))
	binary.Write(buf, binary.LittleEndian, MagicRequest)
	binary.Write(buf, binary.LittleEndian, uint32(req.Kind))

	switch req.Kind {
	case KindCreateWindow:
		binary.Write(buf, binary.LittleEndian, req.CreateWindow)
	case KindDamageWindow:
		binary.Write(buf, binary.LittleEndian, req.DamageWindow)
	case KindPing:
		// empty payload
	}
	return buf.Bytes()
}

func payloadSizeOrZero(kind RequestKind) int {
	if n := payloadSize(kind); n > 0 {
		return n
	}
	return 0
}

// DecodeRequest parses a raw packet received from the client socket.
// It never panics: malformed input is reported as one of the DecodeErr
// values, matching the "decode any buffer -> valid packet or known error"
// round-trip law.
func DecodeRequest(buf []byte) (Request, error) {
	if len(buf) < 8 {
		return Request{}, ErrPacketTooShort
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != MagicRequest {
		return Request{}, ErrInvalidMagic
	}
	kind := RequestKind(binary.LittleEndian.Uint32(buf[4:8]))
	need := payloadSize(kind)
	if need < 0 {
		return Request{}, ErrInvalidRequestKind
	}
	rest := buf[8:]
	if len(rest) < need {
		return Request{}, ErrPacketTooShort
	}

	req := Request{Kind: kind}
	r := bytes.NewReader(rest[:need])
	switch kind {
	case KindPing:
		// nothing to read
	case KindCreateWindow:
		if err := binary.Read(r, binary.LittleEndian, &req.CreateWindow); err != nil {
			return Request{}, ErrInvalidData
		}
	case KindDamageWindow:
		if err := binary.Read(r, binary.LittleEndian, &req.DamageWindow); err != nil {
			return Request{}, ErrInvalidData
		}
	}
	return req, nil
}
