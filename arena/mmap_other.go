//go:build !linux && !darwin && !freebsd

package arena

import "os"

// Map falls back to a heap-backed arena on platforms without mmap support.
func Map(size int) (*Arena, error) {
	return New(size)
}

// MapFile falls back to a heap-backed arena whose image is written to path
// by Sync and Close.
func MapFile(path string, size int) (*Arena, error) {
	a, err := New(size)
	if err != nil {
		return nil, err
	}
	a.path = path
	a.shared = true
	if err := a.Sync(); err != nil {
		return nil, err
	}
	return a, nil
}

// Sync writes a file-backed arena's image to its path.
func (a *Arena) Sync() error {
	if a.closed {
		return ErrClosed
	}
	if !a.shared {
		return nil
	}
	return os.WriteFile(a.path, a.data, 0o644)
}

// Discard is a no-op for heap-backed arenas.
func (a *Arena) Discard() error {
	if a.closed {
		return ErrClosed
	}
	return nil
}

func (a *Arena) release() error {
	if !a.shared {
		return nil
	}
	return os.WriteFile(a.path, a.data, 0o644)
}
