// Package flash models the MCU's embedded flash controller: page lock bits,
// full-page programming, and reads through the mapped address space.
package flash

import (
	"sync"

	"github.com/pkg/errors"
)

// SAM3 embedded flash geometry.
const (
	DefaultBase     uint32 = 0x00080000
	DefaultSize     uint32 = 0x00080000
	DefaultPageSize        = 256
)

// Erased is the value of unprogrammed flash bytes.
const Erased byte = 0xFF

// Controller is the unlock/write/lock surface the calibration store needs.
type Controller interface {
	Unlock(start, end uint32) error
	Lock(start, end uint32) error
	Write(addr uint32, data []byte) error
	Read(addr uint32, dst []byte) error
}

// LastPage returns the address of the final page of a flash bank.
func LastPage(base, size uint32, pageSize int) uint32 {
	return base + size - uint32(pageSize)
}

// Device is a Controller over a byte slice covering whole pages. Pages start
// locked.
type Device struct {
	mu       sync.Mutex
	base     uint32
	pageSize int
	mem      []byte
	locked   []bool
	writes   int
	flush    func() error
	closer   func() error
}

// NewMemory returns a heap-backed device of n erased pages starting at base.
func NewMemory(base uint32, pageSize, pages int) *Device {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pages <= 0 {
		pages = 1
	}
	mem := make([]byte, pageSize*pages)
	for i := range mem {
		mem[i] = Erased
	}
	return newDevice(base, pageSize, mem)
}

func newDevice(base uint32, pageSize int, mem []byte) *Device {
	locked := make([]bool, len(mem)/pageSize)
	for i := range locked {
		locked[i] = true
	}
	return &Device{base: base, pageSize: pageSize, mem: mem, locked: locked}
}

func (d *Device) PageSize() int { return d.pageSize }

// Writes reports how many page programs have been performed.
func (d *Device) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

// Locked reports whether the page containing addr is locked.
func (d *Device) Locked(addr uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.page(addr)
	if err != nil {
		return false
	}
	return d.locked[p]
}

func (d *Device) Unlock(start, end uint32) error {
	return d.setLock(start, end, false)
}

func (d *Device) Lock(start, end uint32) error {
	return d.setLock(start, end, true)
}

func (d *Device) setLock(start, end uint32, lock bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if end <= start {
		return errors.Errorf("flash: empty lock range [0x%X,0x%X)", start, end)
	}
	first, err := d.page(start)
	if err != nil {
		return err
	}
	last, err := d.page(end - 1)
	if err != nil {
		return err
	}
	for p := first; p <= last; p++ {
		d.locked[p] = lock
	}
	return nil
}

// Write programs exactly one full, unlocked page.
func (d *Device) Write(addr uint32, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mem == nil {
		return errors.New("flash: device closed")
	}
	p, err := d.page(addr)
	if err != nil {
		return err
	}
	if (addr-d.base)%uint32(d.pageSize) != 0 {
		return errors.Errorf("flash: write at 0x%X not page aligned", addr)
	}
	if len(data) != d.pageSize {
		return errors.Errorf("flash: write of %d bytes, page program needs %d", len(data), d.pageSize)
	}
	if d.locked[p] {
		return errors.Errorf("flash: page at 0x%X is locked", addr)
	}
	copy(d.mem[p*d.pageSize:], data)
	d.writes++
	if d.flush != nil {
		if err := d.flush(); err != nil {
			return errors.Wrap(err, "flash: sync")
		}
	}
	return nil
}

// Read copies from the mapped flash contents; lock state does not matter.
func (d *Device) Read(addr uint32, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mem == nil {
		return errors.New("flash: device closed")
	}
	if addr < d.base || uint64(addr-d.base)+uint64(len(dst)) > uint64(len(d.mem)) {
		return errors.Errorf("flash: read [0x%X,+%d) out of range", addr, len(dst))
	}
	copy(dst, d.mem[addr-d.base:])
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	if d.closer != nil {
		err = d.closer()
		d.closer = nil
	}
	d.mem = nil
	return err
}

func (d *Device) page(addr uint32) (int, error) {
	if d.mem == nil {
		return 0, errors.New("flash: device closed")
	}
	if addr < d.base || addr-d.base >= uint32(len(d.mem)) {
		return 0, errors.Errorf("flash: address 0x%X outside [0x%X,0x%X)", addr, d.base, d.base+uint32(len(d.mem)))
	}
	return int(addr-d.base) / d.pageSize, nil
}
