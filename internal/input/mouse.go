// Package input implements the mouse device reader and the input dispatch
// state machine (§4.5): translating relative motion and button-edge records
// into cursor movement, drag-move, and enter/leave/change/focus events.
//
// The device-read loop is grounded on mice_poll in original_source/src/mice.rs
// (buffered fixed-size-record reads, ignore zero-length reads); the
// dispatcher state machine itself is this package's Go rendering of the
// richer transition table in §4.5, which original_source's mice.rs predates.
package input

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Mouse button bitmask, per §6.
const (
	ButtonLeft   = 1 << 0
	ButtonMiddle = 1 << 1
	ButtonRight  = 1 << 2
)

// Record kinds understood on the wire from the mouse device.
const (
	KindNull   uint8 = 0
	KindChange uint8 = 1
)

// recordSize is sizeof(MouseRecord): kind(1) + buttons(1) + x_rel(2) + y_rel(2).
const recordSize = 6

// Record is one fixed-size mouse device record (§4.5).
type Record struct {
	Kind    uint8
	Buttons uint8
	XRel    int16
	YRel    int16
}

// decodeRecord parses a recordSize-byte buffer into a Record.
func decodeRecord(buf []byte) Record {
	return Record{
		Kind:    buf[0],
		Buttons: buf[1],
		XRel:    int16(binary.LittleEndian.Uint16(buf[2:4])),
		YRel:    int16(binary.LittleEndian.Uint16(buf[4:6])),
	}
}

// Device is a buffered reader over the mouse device file.
type Device struct {
	r *bufio.Reader
	f *os.File
}

// OpenDevice opens path (conventionally dev:/inmice) for buffered record
// reads, mirroring mice_poll's BufReader::with_capacity(size_of::<MiceEvent>()).
func OpenDevice(path string) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mouse device: %w", err)
	}
	return &Device{r: bufio.NewReaderSize(f, recordSize), f: f}, nil
}

// ReadRecord blocks for one record. A short read of 0 bytes is ignored and
// retried, per §6 ("unblocked reads of 0 bytes are ignored").
func (d *Device) ReadRecord() (Record, error) {
	buf := make([]byte, recordSize)
	for {
		n, err := io.ReadFull(d.r, buf)
		if n == 0 && (err == nil || err == io.EOF) {
			continue
		}
		if err != nil {
			return Record{}, err
		}
		return decodeRecord(buf), nil
	}
}

// Close releases the underlying device file.
func (d *Device) Close() error { return d.f.Close() }
