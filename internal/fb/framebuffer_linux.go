//go:build linux

package fb

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// rawInfo mirrors the FramebufferInfo struct the device fills via
// CMD_RECEIVE_FB_INFO. Field order and widths match the wire contract
// in §3; ioctl numbering follows the _IOR/_IOW convention documented in
// the reference tree's ioctl_linux.go.
type rawInfo struct {
	Width, Height, Bpp uint32
	Bgr                uint8
	_pad               [3]uint8
}

const (
	ioctlReceiveFBInfo = 0x80104601 // _IOR('F', 1, struct fb_info)  (16-byte payload)
	ioctlSyncPixels    = 0x40104602 // _IOW('F', 2, struct sync_rect)
)

type linuxDevice struct {
	file *os.File
	mmap []byte
}

func openDevice(path string) (Info, []Pixel, device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return Info{}, nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	var raw rawInfo
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(ioctlReceiveFBInfo), uintptr(unsafe.Pointer(&raw))); errno != 0 {
		f.Close()
		return Info{}, nil, nil, fmt.Errorf("CMD_RECEIVE_FB_INFO: %w", errno)
	}
	info := Info{Width: raw.Width, Height: raw.Height, BitsPerPixel: raw.Bpp, BGR: raw.Bgr != 0}

	pageSize := 4096
	byteLen := int(info.Width) * int(info.Height) * 4
	pages := (byteLen + pageSize - 1) / pageSize
	mapLen := pages * pageSize

	data, err := unix.Mmap(int(f.Fd()), 0, mapLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return Info{}, nil, nil, fmt.Errorf("mmap framebuffer: %w", err)
	}

	pixels := reinterpretPixels(data, int(info.Width)*int(info.Height))
	return info, pixels, &linuxDevice{file: f, mmap: data}, nil
}

// reinterpretPixels views the mapped byte slice as a []Pixel without
// copying, mirroring the reference driver's "reinterpret the mapping as
// [Pixel; w*h] with 'static lifetime" startup step (§4.2 step 4). The
// mapping outlives the process, so there is no use-after-free risk in
// holding this view for the program's lifetime.
func reinterpretPixels(data []byte, count int) []Pixel {
	if count == 0 {
		return nil
	}
	return unsafe.Slice((*Pixel)(unsafe.Pointer(&data[0])), count)
}

func (d *linuxDevice) sync(r syncRect) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), uintptr(ioctlSyncPixels), uintptr(unsafe.Pointer(&r)))
	if errno != 0 {
		return fmt.Errorf("CMD_SYNC_PIXELS: %w", errno)
	}
	return nil
}

func (d *linuxDevice) close() error {
	unix.Munmap(d.mmap)
	return d.file.Close()
}
