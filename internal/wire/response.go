package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// OkKind discriminates the payload of a successful response.
type OkKind uint32

const (
	OkSuccess OkKind = iota
	OkWindowCreated
)

func (k OkKind) String() string {
	switch k {
	case OkSuccess:
		return "Success"
	case OkWindowCreated:
		return "WindowCreated"
	default:
		return fmt.Sprintf("OkKind(%d)", uint32(k))
	}
}

// WindowCreatedPayload is returned from a successful CreateWindow request.
// ShmKey is the opaque handle the client attaches to in order to map the
// window's pixel buffer.
type WindowCreatedPayload struct {
	ShmKey uint64
	WinID  uint16
	_      uint16
	_      uint32
}

// ErrorKind enumerates the error taxonomy surfaced to clients (§7).
type ErrorKind uint32

const (
	RespInvalidMagic ErrorKind = iota
	RespInvalidRequestKind
	RespPacketTooShort
	RespInvalidData
	RespUnknownFatalError
	RespUnknownWindow
)

func (e ErrorKind) String() string {
	switch e {
	case RespInvalidMagic:
		return "InvalidMagic"
	case RespInvalidRequestKind:
		return "InvalidRequestKind"
	case RespPacketTooShort:
		return "PacketTooShort"
	case RespInvalidData:
		return "InvalidData"
	case RespUnknownFatalError:
		return "UnknownFatalError"
	case RespUnknownWindow:
		return "UnknownWindow"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint32(e))
	}
}

// FromDecodeErr maps a packet decode failure onto its response error kind.
func FromDecodeErr(err error) ErrorKind {
	switch err {
	case ErrInvalidMagic:
		return RespInvalidMagic
	case ErrInvalidRequestKind:
		return RespInvalidRequestKind
	case ErrPacketTooShort:
		return RespPacketTooShort
	default:
		return RespInvalidData
	}
}

// EventKind discriminates the payload of an asynchronous event packet.
type EventKind uint32

const (
	EventMouseChange EventKind = iota
	EventMouseLeave
	EventMouseEnter
	EventWindowFocused
	EventWindowUnfocused
)

func (k EventKind) String() string {
	switch k {
	case EventMouseChange:
		return "MouseChange"
	case EventMouseLeave:
		return "MouseLeave"
	case EventMouseEnter:
		return "MouseEnter"
	case EventWindowFocused:
		return "WindowFocused"
	case EventWindowUnfocused:
		return "WindowUnfocused"
	default:
		return fmt.Sprintf("EventKind(%d)", uint32(k))
	}
}

// MouseChangeEvent is delivered whenever the cursor moves or its button
// mask changes while hovering the same window.
type MouseChangeEvent struct {
	ButtonsChanged uint8
	HeldButtons    uint8
	_              uint16
	PosX           uint32
	PosY           uint32
}

// MouseEnterEvent is delivered when the cursor starts hovering a window,
// in that window's local coordinates.
type MouseEnterEvent struct {
	PosX uint32
	PosY uint32
}

// newResponseBuffer returns an empty buffer with room for a full
// MaxPacketSize packet; padTo zero-fills whatever the payload leaves unused.
func newResponseBuffer() *bytes.Buffer {
	buf := new(bytes.Buffer)
	buf.Grow(MaxPacketSize)
	return buf
}

func padTo(buf *bytes.Buffer, size int) []byte {
	out := make([]byte, size)
	copy(out, buf.Bytes())
	return out
}

// EncodeOk marshals a successful response. The result is always exactly
// MaxPacketSize bytes, zero-padded.
func EncodeOk(kind OkKind, payload any) []byte {
	buf := newResponseBuffer()
	binary.Write(buf, binary.LittleEndian, MagicOk)
	binary.Write(buf, binary.LittleEndian, uint32(kind))
	if payload != nil {
		binary.Write(buf, binary.LittleEndian, payload)
	}
	return padTo(buf, MaxPacketSize)
}

// EncodeErr marshals an error response. Always exactly MaxPacketSize bytes.
func EncodeErr(kind ErrorKind) []byte {
	buf := newResponseBuffer()
	binary.Write(buf, binary.LittleEndian, MagicErr)
	binary.Write(buf, binary.LittleEndian, uint32(kind))
	return padTo(buf, MaxPacketSize)
}

// EncodeEvent marshals an asynchronous event. Always exactly MaxPacketSize
// bytes.
func EncodeEvent(kind EventKind, payload any) []byte {
	buf := newResponseBuffer()
	binary.Write(buf, binary.LittleEndian, MagicEvent)
	binary.Write(buf, binary.LittleEndian, uint32(kind))
	if payload != nil {
		binary.Write(buf, binary.LittleEndian, payload)
	}
	return padTo(buf, MaxPacketSize)
}

// ResponseClass distinguishes which of the three response magics a packet
// carried, for client-side decoding.
type ResponseClass int

const (
	ClassOk ResponseClass = iota
	ClassErr
	ClassEvent
)

// OkErrEvent carries the decoded payload for whichever class the packet
// turned out to be; only the relevant fields are populated.
type OkErrEvent struct {
	Class         ResponseClass
	OkKind        OkKind
	WindowCreated WindowCreatedPayload
	ErrKind       ErrorKind
	EventKind     EventKind
	MouseChange   MouseChangeEvent
	MouseEnter    MouseEnterEvent
}

// DecodeResponse parses a packet written by the WM. Used by clients (and by
// tests exercising the round-trip law); the WM itself never needs to decode
// its own responses.
func DecodeResponse(buf []byte) (OkErrEvent, error) {
	if len(buf) < 8 {
		return OkErrEvent{}, ErrPacketTooShort
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	disc := binary.LittleEndian.Uint32(buf[4:8])
	rest := buf[8:]

	switch magic {
	case MagicOk:
		out := OkErrEvent{Class: ClassOk, OkKind: OkKind(disc)}
		if out.OkKind == OkWindowCreated {
			if len(rest) < 16 {
				return OkErrEvent{}, ErrPacketTooShort
			}
			r := bytes.NewReader(rest[:16])
			if err := binary.Read(r, binary.LittleEndian, &out.WindowCreated); err != nil {
				return OkErrEvent{}, ErrInvalidData
			}
		}
		return out, nil
	case MagicErr:
		return OkErrEvent{Class: ClassErr, ErrKind: ErrorKind(disc)}, nil
	case MagicEvent:
		out := OkErrEvent{Class: ClassEvent, EventKind: EventKind(disc)}
		switch out.EventKind {
		case EventMouseChange:
			if len(rest) < 12 {
				return OkErrEvent{}, ErrPacketTooShort
			}
			r := bytes.NewReader(rest[:12])
			if err := binary.Read(r, binary.LittleEndian, &out.MouseChange); err != nil {
				return OkErrEvent{}, ErrInvalidData
			}
		case EventMouseEnter:
			if len(rest) < 8 {
				return OkErrEvent{}, ErrPacketTooShort
			}
			r := bytes.NewReader(rest[:8])
			if err := binary.Read(r, binary.LittleEndian, &out.MouseEnter); err != nil {
				return OkErrEvent{}, ErrInvalidData
			}
		case EventMouseLeave, EventWindowFocused, EventWindowUnfocused:
			// empty payloads
		}
		return out, nil
	default:
		return OkErrEvent{}, ErrInvalidMagic
	}
}
