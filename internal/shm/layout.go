package shm

import (
	"fmt"
	"sort"
)

// Kind identifies one record slot in the shared region.
type Kind int

const (
	KindIMU Kind = iota
	KindHumidity
	KindPressure
	KindUV
	KindCalibration
	KindControl
	KindMCU

	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindIMU:
		return "imu"
	case KindHumidity:
		return "humidity"
	case KindPressure:
		return "pressure"
	case KindUV:
		return "uv"
	case KindCalibration:
		return "imu-calibration"
	case KindControl:
		return "imu-control"
	case KindMCU:
		return "mcu-info"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Slot is the byte range a record occupies.
type Slot struct {
	Offset int64
	Size   int
}

func (s Slot) End() int64 { return s.Offset + int64(s.Size) }

// RegionSize is the span addressed by the MCU (8-bit offsets).
const RegionSize = 0x100

// slots is the wire contract with the FPGA image. Changing an entry is a
// breaking protocol change.
var slots = [numKinds]Slot{
	KindIMU:         {Offset: 0x00, Size: 48},
	KindHumidity:    {Offset: 0x30, Size: 8},
	KindPressure:    {Offset: 0x40, Size: 12},
	KindUV:          {Offset: 0x50, Size: 4},
	KindCalibration: {Offset: 0x60, Size: 12},
	KindControl:     {Offset: 0x80, Size: 4},
	KindMCU:         {Offset: 0x90, Size: 8},
}

// Kinds lists every record kind in offset order.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return slots[out[i]].Offset < slots[out[j]].Offset })
	return out
}

// ValidateLayout checks that no two slots overlap and all fit in a region of
// the given size.
func ValidateLayout(regionSize int) error {
	ks := Kinds()
	for i, k := range ks {
		s := slots[k]
		if s.Offset < 0 || s.Size <= 0 {
			return fmt.Errorf("shm: %s slot invalid (offset=%d size=%d)", k, s.Offset, s.Size)
		}
		if s.End() > int64(regionSize) {
			return fmt.Errorf("shm: %s slot ends at 0x%X beyond region size 0x%X", k, s.End(), regionSize)
		}
		if i > 0 {
			prev := ks[i-1]
			if slots[prev].End() > s.Offset {
				return fmt.Errorf("shm: %s overlaps %s", prev, k)
			}
		}
	}
	return nil
}

func kindOf[T Record]() Kind {
	var zero T
	switch any(zero).(type) {
	case MCUData:
		return KindMCU
	case PressureData:
		return KindPressure
	case HumidityData:
		return KindHumidity
	case UVData:
		return KindUV
	case IMUData:
		return KindIMU
	case IMUControl:
		return KindControl
	case IMUCalibrationData:
		return KindCalibration
	}
	// Unreachable: Record's type set matches the cases above.
	panic("shm: unknown record type")
}

// SlotOf returns the slot for record type T.
func SlotOf[T Record]() Slot {
	return slots[kindOf[T]()]
}
