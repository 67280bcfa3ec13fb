package veml6070

import (
	"fmt"

	"creator-mcu/internal/i2c"
)

// Minimal VEML6070 driver. The part has no registers: commands are written
// to 0x38, and the 16-bit count is read as two single-byte reads, MSB from
// 0x39 and LSB from 0x38.

const (
	addrCmdLSB = 0x38
	addrMSB    = 0x39

	// IT=1T, reserved bit set, SD=0 (running).
	cmdRun = 0x06

	// Counts per UV index step at IT=1T with Rset=270k.
	countsPerIndex = 187.0
)

type rawIO interface {
	Write(p []byte) error
	Read(p []byte) error
}

type Device struct {
	cmd rawIO
	msb rawIO
}

func New(bus *i2c.Bus) (*Device, error) {
	if bus == nil {
		return nil, fmt.Errorf("veml6070: bus is nil")
	}
	return newWithIO(bus.Dev(addrCmdLSB), bus.Dev(addrMSB)), nil
}

func newWithIO(cmd, msb rawIO) *Device {
	return &Device{cmd: cmd, msb: msb}
}

func (d *Device) Begin() error {
	if err := d.cmd.Write([]byte{cmdRun}); err != nil {
		return fmt.Errorf("veml6070: command write failed: %w", err)
	}
	return nil
}

// Raw returns the 16-bit UV count.
func (d *Device) Raw() (uint16, error) {
	var hi, lo [1]byte
	if err := d.msb.Read(hi[:]); err != nil {
		return 0, fmt.Errorf("veml6070: read msb failed: %w", err)
	}
	if err := d.cmd.Read(lo[:]); err != nil {
		return 0, fmt.Errorf("veml6070: read lsb failed: %w", err)
	}
	return uint16(hi[0])<<8 | uint16(lo[0]), nil
}

// UV returns the UV index.
func (d *Device) UV() (float64, error) {
	raw, err := d.Raw()
	if err != nil {
		return 0, err
	}
	return float64(raw) / countsPerIndex, nil
}
