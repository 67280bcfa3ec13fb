//go:build linux

package flash

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// OpenFile maps a single-page image file standing in for the page at addr.
// A missing or short file is created erased.
func OpenFile(path string, addr uint32, pageSize int) (*Device, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "flash: open page image")
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "flash: stat page image")
	}
	if st.Size() < int64(pageSize) {
		erased := make([]byte, int64(pageSize)-st.Size())
		for i := range erased {
			erased[i] = Erased
		}
		if _, err := f.WriteAt(erased, st.Size()); err != nil {
			return nil, errors.Wrap(err, "flash: erase page image")
		}
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, pageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "flash: mmap %s", path)
	}
	d := newDevice(addr, pageSize, mem)
	d.flush = func() error { return unix.Msync(mem, unix.MS_SYNC) }
	d.closer = func() error { return unix.Munmap(mem) }
	return d, nil
}
