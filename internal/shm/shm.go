// Package shm allocates the shared-memory regions backing window pixel
// buffers (§4.2, §5): a client writes its frame into the region named by
// shm_key, and the WM attaches the same region (read-write) into its own
// address space and reads it for compositing, with no handshake on either
// side's writes.
//
// This uses SysV shared memory (golang.org/x/sys/unix's Sysv* wrappers;
// golang.org/x/sys is a direct requirement of the reference tree) rather than POSIX shm_open: a SysV segment id is exactly the
// "opaque integer" the wire protocol's shm_key field describes, attachable
// by any process holding the id, with no shared name to agree on up front.
package shm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Region is one mapped shared-memory segment, owned by the WM side of the
// CreateWindow contract.
type Region struct {
	id   int
	data []byte
}

// Create allocates a new segment of size bytes (rounded up to the kernel's
// page size by shmget) and attaches it into the WM's address space. The
// returned key is the SysV segment id — the same value the client attaches
// to with its own SysvShmAttach call.
func Create(size int) (key uint64, region *Region, err error) {
	id, err := unix.SysvShmGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|0600)
	if err != nil {
		return 0, nil, fmt.Errorf("shmget: %w", err)
	}
	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return 0, nil, fmt.Errorf("shmat: %w", err)
	}
	return uint64(id), &Region{id: id, data: data}, nil
}

// Bytes exposes the raw mapped region.
func (r *Region) Bytes() []byte { return r.data }

// Destroy detaches the WM's mapping and marks the segment for removal. The
// segment is actually freed once every attached process — including any
// client that never cleanly detached — has released it, matching the
// "unmaps and releases" step of the §4.2 destroy sequence.
func (r *Region) Destroy() error {
	if err := unix.SysvShmDetach(r.data); err != nil {
		return fmt.Errorf("shmdt: %w", err)
	}
	_, err := unix.SysvShmCtl(r.id, unix.IPC_RMID, nil)
	if err != nil {
		return fmt.Errorf("shmctl(IPC_RMID): %w", err)
	}
	return nil
}
