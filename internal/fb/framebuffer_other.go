//go:build !linux

package fb

import "fmt"

// On non-Linux build targets there is no framebuffer device to mmap; the
// WM can still be compiled (e.g. to run its unit tests) but Open always
// fails. Mirrors the reference tree's ioctl_other.go stub for non-Linux
// platforms.
func openDevice(path string) (Info, []Pixel, device, error) {
	return Info{}, nil, nil, fmt.Errorf("framebuffer device unsupported on this platform")
}
