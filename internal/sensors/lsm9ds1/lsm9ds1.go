package lsm9ds1

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"creator-mcu/internal/i2c"
	"creator-mcu/internal/sensors"
)

var sleep = time.Sleep

// Minimal LSM9DS1 driver: accel/gyro core at one address, magnetometer at
// another. Full-scale ranges are fixed at 245 dps, 2 g and 4 gauss.

const (
	addrAGDefault = 0x6A
	addrMDefault  = 0x1C

	// Accel/gyro core.
	regWhoAmIAG = 0x0F
	whoAmIAGVal = 0x68
	regCtrl1G   = 0x10
	regOutXLG   = 0x18
	regCtrl4    = 0x1E
	regCtrl5XL  = 0x1F
	regCtrl6XL  = 0x20
	regCtrl8    = 0x22
	regOutXLXL  = 0x28

	// Magnetometer.
	regWhoAmIM = 0x0F
	whoAmIMVal = 0x3D
	regCtrl1M  = 0x20
	regCtrl2M  = 0x21
	regCtrl3M  = 0x22
	regCtrl4M  = 0x23
	regOutXLM  = 0x28
	// Mag sub-addresses need bit 7 set to auto-increment.
	magAutoInc = 0x80

	ctrl8Reset = 0x05

	gyroRes  = 0.00875  // dps/LSB at 245 dps
	accelRes = 0.000061 // g/LSB at 2 g
	magRes   = 0.00014  // gauss/LSB at 4 gauss
)

func DefaultAddresses() (ag, m uint16) { return addrAGDefault, addrMDefault }

type Device struct {
	ag sensors.RegIO
	m  sensors.RegIO

	mu        sync.Mutex
	magOffset r3.Vector
}

func New(ag, m *i2c.Dev) (*Device, error) {
	if ag == nil || m == nil {
		return nil, fmt.Errorf("lsm9ds1: dev is nil")
	}
	return newWithIO(ag, m), nil
}

func newWithIO(ag, m sensors.RegIO) *Device {
	return &Device{ag: ag, m: m}
}

func (d *Device) Begin() error {
	who, err := d.ag.ReadRegU8(regWhoAmIAG)
	if err != nil {
		return fmt.Errorf("lsm9ds1: ag whoami read failed: %w", err)
	}
	if who != whoAmIAGVal {
		return fmt.Errorf("lsm9ds1: ag whoami=0x%02X want 0x%02X", who, whoAmIAGVal)
	}
	who, err = d.m.ReadRegU8(regWhoAmIM)
	if err != nil {
		return fmt.Errorf("lsm9ds1: mag whoami read failed: %w", err)
	}
	if who != whoAmIMVal {
		return fmt.Errorf("lsm9ds1: mag whoami=0x%02X want 0x%02X", who, whoAmIMVal)
	}

	// Software reset, keeping register auto-increment on.
	_ = d.ag.WriteReg(regCtrl8, ctrl8Reset)
	sleep(10 * time.Millisecond)

	writes := []struct {
		dev  sensors.RegIO
		reg  byte
		val  byte
		what string
	}{
		{d.ag, regCtrl1G, 0x60, "gyro odr"},    // 119 Hz, 245 dps
		{d.ag, regCtrl4, 0x38, "gyro axes"},    // X/Y/Z enabled
		{d.ag, regCtrl5XL, 0x38, "accel axes"}, // X/Y/Z enabled
		{d.ag, regCtrl6XL, 0x60, "accel odr"},  // 119 Hz, 2 g
		{d.m, regCtrl1M, 0x7C, "mag odr"},      // ultra-high XY, 80 Hz
		{d.m, regCtrl2M, 0x00, "mag scale"},    // 4 gauss
		{d.m, regCtrl3M, 0x00, "mag mode"},     // continuous
		{d.m, regCtrl4M, 0x0C, "mag z"},        // ultra-high Z
	}
	for _, w := range writes {
		if err := w.dev.WriteReg(w.reg, w.val); err != nil {
			return fmt.Errorf("lsm9ds1: %s write failed: %w", w.what, err)
		}
	}
	return nil
}

// SetMagOffset sets offsets (gauss) subtracted from subsequent mag reads.
func (d *Device) SetMagOffset(offset r3.Vector) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.magOffset = offset
}

func (d *Device) MagOffset() r3.Vector {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.magOffset
}

func (d *Device) ReadGyro() (r3.Vector, error) {
	v, err := readVec(d.ag, regOutXLG, gyroRes)
	if err != nil {
		return r3.Vector{}, fmt.Errorf("lsm9ds1: read gyro failed: %w", err)
	}
	return v, nil
}

func (d *Device) ReadAccel() (r3.Vector, error) {
	v, err := readVec(d.ag, regOutXLXL, accelRes)
	if err != nil {
		return r3.Vector{}, fmt.Errorf("lsm9ds1: read accel failed: %w", err)
	}
	return v, nil
}

func (d *Device) ReadMag() (r3.Vector, error) {
	v, err := readVec(d.m, regOutXLM|magAutoInc, magRes)
	if err != nil {
		return r3.Vector{}, fmt.Errorf("lsm9ds1: read mag failed: %w", err)
	}
	return v.Sub(d.MagOffset()), nil
}

func readVec(dev sensors.RegIO, reg byte, res float64) (r3.Vector, error) {
	var b [6]byte
	if err := dev.ReadReg(reg, b[:]); err != nil {
		return r3.Vector{}, err
	}
	x := int16(uint16(b[1])<<8 | uint16(b[0]))
	y := int16(uint16(b[3])<<8 | uint16(b[2]))
	z := int16(uint16(b[5])<<8 | uint16(b[4]))
	return r3.Vector{X: float64(x) * res, Y: float64(y) * res, Z: float64(z) * res}, nil
}
