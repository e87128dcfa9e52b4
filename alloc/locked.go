package alloc

import "sync"

// Locked serializes access to an Allocator with a mutex. The Allocator itself
// stays lock-free for single-goroutine use; Locked is the wrapper for shared use.
type Locked struct {
	mu sync.Mutex
	a  *Allocator
}

// NewLocked wraps a. The caller must not use a directly afterwards.
func NewLocked(a *Allocator) *Locked {
	return &Locked{a: a}
}

// Allocate is Allocator.Allocate under the lock.
func (l *Locked) Allocate(size, align uint32) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Allocate(size, align)
}

// Free is Allocator.Free under the lock.
func (l *Locked) Free(h Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Free(h)
}

// Stats is Allocator.Stats under the lock.
func (l *Locked) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Stats()
}

// With runs fn with exclusive access to the wrapped allocator, for reads and
// writes through Bytes or View that must not race with Free.
func (l *Locked) With(fn func(a *Allocator)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.a)
}

var _ Interface = (*Locked)(nil)
