package shm

import (
	"sync"

	"github.com/pkg/errors"
)

// Region is a contiguous byte region addressed by offset, either heap
// memory or a shared mapping.
//
// The lock only keeps copies made by this process from racing each other
// (the status endpoint reads while the loops write). An external reader of
// a mapped region is not coordinated with and may observe torn records.
type Region struct {
	mu    sync.RWMutex
	buf   []byte
	unmap func() error
}

// NewRegion allocates a zeroed heap region.
func NewRegion(size int) *Region {
	if size <= 0 {
		size = RegionSize
	}
	return &Region{buf: make([]byte, size)}
}

func (r *Region) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buf)
}

func (r *Region) ReadAt(p []byte, off int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(len(p), off); err != nil {
		return 0, err
	}
	return copy(p, r.buf[off:]), nil
}

func (r *Region) WriteAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(len(p), off); err != nil {
		return 0, err
	}
	return copy(r.buf[off:], p), nil
}

func (r *Region) check(n int, off int64) error {
	if r.buf == nil {
		return errors.New("shm: region closed")
	}
	if off < 0 || off+int64(n) > int64(len(r.buf)) {
		return errors.Errorf("shm: access [0x%X,0x%X) outside region of 0x%X bytes", off, off+int64(n), len(r.buf))
	}
	return nil
}

// Close releases a mapped region. Heap regions just drop their buffer.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.unmap != nil {
		err = r.unmap()
		r.unmap = nil
	}
	r.buf = nil
	return err
}
