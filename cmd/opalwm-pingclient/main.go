// opalwm-pingclient is a minimal diagnostic client for opalwmd: it dials
// the abstract client socket, sends a Ping, and prints the decoded reply.
// Build: go build -o /tmp/opalwm-pingclient ./cmd/opalwm-pingclient
package main

import (
	"fmt"
	"net"
	"os"

	"opalwm/internal/wire"
)

func main() {
	socket := "opal_wm::connect"
	if len(os.Args) > 1 {
		socket = os.Args[1]
	}

	conn, err := net.Dial("unixpacket", "@"+socket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", socket, err)
		os.Exit(1)
	}
	defer conn.Close()

	req := wire.EncodeRequest(wire.Request{Kind: wire.KindPing})
	if _, err := conn.Write(req); err != nil {
		fmt.Fprintf(os.Stderr, "write ping: %v\n", err)
		os.Exit(1)
	}

	buf := make([]byte, wire.MaxPacketSize)
	n, err := conn.Read(buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read reply: %v\n", err)
		os.Exit(1)
	}

	resp, err := wire.DecodeResponse(buf[:n])
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode reply: %v\n", err)
		os.Exit(1)
	}

	switch resp.Class {
	case wire.ClassOk:
		fmt.Printf("Ok(%s)\n", resp.OkKind)
	case wire.ClassErr:
		fmt.Printf("Err(%s)\n", resp.ErrKind)
	default:
		fmt.Printf("unexpected response class %d\n", resp.Class)
	}
}
