//go:build linux || darwin || freebsd

package arena

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map returns an arena backed by an anonymous private mapping. The pages are
// zero-filled and page-aligned, and live outside the Go heap, so the garbage
// collector neither scans nor moves them.
func Map(size int) (*Arena, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	data, err := unix.Mmap(
		-1,
		0,
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
	if err != nil {
		return nil, fmt.Errorf("arena: mmap %d bytes: %w", size, err)
	}
	return &Arena{
		data:   data,
		raw:    data,
		mapped: true,
	}, nil
}

// MapFile creates (or truncates) the file at path to size bytes and maps it
// shared and writable, so the arena image, free list included, lands in the
// file. Sync flushes it; Close syncs and unmaps.
func MapFile(path string, size int) (*Arena, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close() // the mapping keeps the pages alive

	if err := f.Truncate(int64(size)); err != nil {
		return nil, fmt.Errorf("arena: truncate %s: %w", path, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("arena: mmap %s: %w", path, err)
	}
	return &Arena{
		data:   data,
		raw:    data,
		path:   path,
		mapped: true,
		shared: true,
	}, nil
}

// Sync flushes a file-backed arena to disk. No-op for other arenas.
func (a *Arena) Sync() error {
	if a.closed {
		return ErrClosed
	}
	if !a.shared {
		return nil
	}
	if err := unix.Msync(a.raw, unix.MS_SYNC); err != nil {
		return fmt.Errorf("arena: msync %s: %w", a.path, err)
	}
	return nil
}

// Discard tells the kernel the arena's pages are no longer needed. Their
// contents become undefined (zero for anonymous mappings on Linux), so any
// allocator over the arena must be Reset before reuse. No-op for heap-backed
// arenas.
func (a *Arena) Discard() error {
	if a.closed {
		return ErrClosed
	}
	if !a.mapped {
		return nil
	}
	return unix.Madvise(a.raw, unix.MADV_DONTNEED)
}

func (a *Arena) release() error {
	if !a.mapped {
		return nil
	}
	var syncErr error
	if a.shared {
		syncErr = unix.Msync(a.raw, unix.MS_SYNC)
	}
	if err := unix.Munmap(a.raw); err != nil {
		return errors.Join(syncErr, fmt.Errorf("arena: munmap: %w", err))
	}
	return syncErr
}
