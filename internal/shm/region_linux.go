//go:build linux

package shm

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// OpenMapped maps size bytes at offset of path (a file under /dev/shm, or a
// device node exposing the external RAM window) as a shared region.
// Regular files are grown to cover the mapping.
func OpenMapped(path string, offset int64, size int) (*Region, error) {
	if size <= 0 {
		return nil, errors.Errorf("shm: invalid region size %d", size)
	}
	if offset < 0 {
		return nil, errors.Errorf("shm: invalid region offset %d", offset)
	}
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o660)
	if err != nil {
		return nil, errors.Wrap(err, "shm: open")
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil && st.Mode().IsRegular() && st.Size() < offset+int64(size) {
		if err := f.Truncate(offset + int64(size)); err != nil {
			return nil, errors.Wrapf(err, "shm: grow %s", path)
		}
	}

	// mmap offsets must be page aligned.
	page := int64(os.Getpagesize())
	base := offset &^ (page - 1)
	skip := int(offset - base)

	mem, err := unix.Mmap(int(f.Fd()), base, skip+size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "shm: mmap %s", path)
	}
	return &Region{
		buf:   mem[skip : skip+size],
		unmap: func() error { return unix.Munmap(mem) },
	}, nil
}
