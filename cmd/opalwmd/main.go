// opalwmd is the OpalWM compositing window manager server.
//
// It opens the framebuffer device, installs the cursor overlay and any
// demo windows, spawns the bundled hello-world client, then runs the input
// dispatcher and the client listener concurrently, per §6's process
// lifecycle.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
