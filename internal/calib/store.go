// Package calib persists magnetometer offsets on one flash page.
//
// The page holds three consecutive little-endian int32 offsets in persisted
// units (value x 1000). What is on the page is what gets applied: callers
// re-read after every lock rather than trusting the last requested value.
package calib

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"creator-mcu/internal/flash"
)

// Scale converts between sensor offset units and persisted integers.
const Scale = 1000

const dataLen = 12

// Data is three persisted magnetometer offsets.
type Data struct {
	X, Y, Z int32
}

// Erased reports whether d is what a never-programmed page reads back as.
func (d Data) Erased() bool {
	return d == Data{X: -1, Y: -1, Z: -1}
}

// Offsets converts persisted units to sensor units. An erased page applies
// no offset.
func (d Data) Offsets() [3]float64 {
	if d.Erased() {
		return [3]float64{}
	}
	return [3]float64{
		float64(d.X) / Scale,
		float64(d.Y) / Scale,
		float64(d.Z) / Scale,
	}
}

// Encode converts a sensor-unit offset to persisted units, truncating.
func Encode(v float64) int32 {
	p := v * Scale
	if p > math.MaxInt32 {
		return math.MaxInt32
	}
	if p < math.MinInt32 {
		return math.MinInt32
	}
	return int32(p)
}

// FromOffsets encodes three sensor-unit offsets.
func FromOffsets(o [3]float64) Data {
	return Data{X: Encode(o[0]), Y: Encode(o[1]), Z: Encode(o[2])}
}

// Store owns exactly one flash page.
type Store struct {
	ctl      flash.Controller
	addr     uint32
	pageSize int
}

func New(ctl flash.Controller, addr uint32, pageSize int) (*Store, error) {
	if ctl == nil {
		return nil, errors.New("calib: flash controller is nil")
	}
	if pageSize < dataLen {
		return nil, errors.Errorf("calib: page size %d too small", pageSize)
	}
	return &Store{ctl: ctl, addr: addr, pageSize: pageSize}, nil
}

func (s *Store) Addr() uint32 { return s.addr }

// Unlock opens the calibration page for programming.
func (s *Store) Unlock() error {
	if err := s.ctl.Unlock(s.addr, s.addr+uint32(s.pageSize)); err != nil {
		return errors.Wrap(err, "calib: unlock")
	}
	return nil
}

// Program writes d as one full page: three little-endian int32 followed by
// erased bytes. The page must already be unlocked.
func (s *Store) Program(d Data) error {
	page := make([]byte, s.pageSize)
	for i := range page {
		page[i] = flash.Erased
	}
	binary.LittleEndian.PutUint32(page[0:4], uint32(d.X))
	binary.LittleEndian.PutUint32(page[4:8], uint32(d.Y))
	binary.LittleEndian.PutUint32(page[8:12], uint32(d.Z))
	if err := s.ctl.Write(s.addr, page); err != nil {
		return errors.Wrap(err, "calib: write")
	}
	return nil
}

// Lock re-locks the page. Safe to call whether or not a commit happened.
func (s *Store) Lock() error {
	if err := s.ctl.Lock(s.addr, s.addr+uint32(s.pageSize)); err != nil {
		return errors.Wrap(err, "calib: lock")
	}
	return nil
}

// Load reads the persisted offsets back from the page.
func (s *Store) Load() (Data, error) {
	var b [dataLen]byte
	if err := s.ctl.Read(s.addr, b[:]); err != nil {
		return Data{}, errors.Wrap(err, "calib: read")
	}
	return Data{
		X: int32(binary.LittleEndian.Uint32(b[0:4])),
		Y: int32(binary.LittleEndian.Uint32(b[4:8])),
		Z: int32(binary.LittleEndian.Uint32(b[8:12])),
	}, nil
}
