package hts221

import (
	"encoding/binary"
	"fmt"

	"creator-mcu/internal/i2c"
	"creator-mcu/internal/sensors"
)

// Minimal HTS221 driver: one-time calibration read, then linear
// interpolation of the raw humidity/temperature outputs.

const (
	addrDefault = 0x5F

	regWhoAmI = 0x0F
	whoAmIVal = 0xBC
	regCtrl1  = 0x20
	regHumOut = 0x28
	regCalib  = 0x30
	calibLen  = 16

	// Multi-byte reads need the auto-increment bit on the sub-address.
	autoInc = 0x80

	// PD=1, BDU=1, ODR=1Hz.
	ctrl1Run = 0x85
)

type calibration struct {
	h0rH, h1rH   float64
	t0C, t1C     float64
	h0Out, h1Out int16
	t0Out, t1Out int16
}

type Device struct {
	dev sensors.RegIO
	cal calibration
	ok  bool
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("hts221: dev is nil")
	}
	return newWithIO(dev), nil
}

func newWithIO(dev sensors.RegIO) *Device {
	return &Device{dev: dev}
}

func (d *Device) Begin() error {
	who, err := d.dev.ReadRegU8(regWhoAmI)
	if err != nil {
		return fmt.Errorf("hts221: whoami read failed: %w", err)
	}
	if who != whoAmIVal {
		return fmt.Errorf("hts221: whoami=0x%02X want 0x%02X", who, whoAmIVal)
	}
	if err := d.dev.WriteReg(regCtrl1, ctrl1Run); err != nil {
		return fmt.Errorf("hts221: ctrl1 write failed: %w", err)
	}

	buf := make([]byte, calibLen)
	if err := d.dev.ReadReg(regCalib|autoInc, buf); err != nil {
		return fmt.Errorf("hts221: read calib failed: %w", err)
	}
	d.cal = parseCalibration(buf)
	if d.cal.h1Out == d.cal.h0Out || d.cal.t1Out == d.cal.t0Out {
		return fmt.Errorf("hts221: calibration invalid")
	}
	d.ok = true
	return nil
}

func parseCalibration(b []byte) calibration {
	le := binary.LittleEndian
	t1t0msb := uint16(b[5])
	return calibration{
		h0rH:  float64(b[0]) / 2,
		h1rH:  float64(b[1]) / 2,
		t0C:   float64((t1t0msb&0x03)<<8|uint16(b[2])) / 8,
		t1C:   float64((t1t0msb&0x0C)<<6|uint16(b[3])) / 8,
		h0Out: int16(le.Uint16(b[6:8])),
		h1Out: int16(le.Uint16(b[10:12])),
		t0Out: int16(le.Uint16(b[12:14])),
		t1Out: int16(le.Uint16(b[14:16])),
	}
}

// Read returns relative humidity (%, clamped to 0..100) and temperature (C).
func (d *Device) Read() (humidity, tempC float64, err error) {
	if !d.ok {
		return 0, 0, fmt.Errorf("hts221: not initialised")
	}
	var b [4]byte
	if err := d.dev.ReadReg(regHumOut|autoInc, b[:]); err != nil {
		return 0, 0, fmt.Errorf("hts221: read data failed: %w", err)
	}
	hOut := int16(binary.LittleEndian.Uint16(b[0:2]))
	tOut := int16(binary.LittleEndian.Uint16(b[2:4]))

	c := d.cal
	humidity = sensors.MapRange(float64(hOut), float64(c.h0Out), float64(c.h1Out), c.h0rH, c.h1rH)
	tempC = sensors.MapRange(float64(tOut), float64(c.t0Out), float64(c.t1Out), c.t0C, c.t1C)
	humidity = sensors.Clamp(humidity, 0, 100)
	return humidity, tempC, nil
}
