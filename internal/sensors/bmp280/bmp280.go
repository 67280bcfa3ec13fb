// Package bmp280 is an alternative barometer for boards fitted with a
// BMP280 instead of the MPL3115A2.
package bmp280

import (
	"encoding/binary"
	"fmt"
	"time"

	"creator-mcu/internal/i2c"
	"creator-mcu/internal/sensors"
)

var sleep = time.Sleep

const (
	addrDefault = 0x77

	regID        = 0xD0
	chipIDBMP280 = 0x58

	regReset = 0xE0
	resetCmd = 0xB6

	regCalib00 = 0x88
	calibLen   = 24

	regCtrlMeas = 0xF4
	regConfig   = 0xF5
	regPressMsb = 0xF7

	// osrs_t x2, osrs_p x16, normal mode.
	ctrlMeasNormal = 0x02<<5 | 0x05<<2 | 0x03
)

var _ sensors.Pressure = (*Device)(nil)

// trim holds the factory compensation words.
type trim struct {
	t1         uint16
	t2, t3     int16
	p1         uint16
	p2, p3, p4 int16
	p5, p6, p7 int16
	p8, p9     int16
}

func parseTrim(b []byte) trim {
	u := func(i int) uint16 { return binary.LittleEndian.Uint16(b[i : i+2]) }
	s := func(i int) int16 { return int16(u(i)) }
	return trim{
		t1: u(0), t2: s(2), t3: s(4),
		p1: u(6), p2: s(8), p3: s(10), p4: s(12),
		p5: s(14), p6: s(16), p7: s(18),
		p8: s(20), p9: s(22),
	}
}

type Device struct {
	dev  sensors.RegIO
	trim trim
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("bmp280: dev is nil")
	}
	return newWithIO(dev), nil
}

func newWithIO(dev sensors.RegIO) *Device {
	return &Device{dev: dev}
}

// Begin checks the chip id, resets the part and loads its trim words. The
// trim NVM is copied after reset and reads back as zeros for a few ms, so
// the load is retried.
func (d *Device) Begin() error {
	id, err := d.dev.ReadRegU8(regID)
	if err != nil {
		return fmt.Errorf("bmp280: id read failed: %w", err)
	}
	if id != chipIDBMP280 {
		return fmt.Errorf("bmp280: chip id=0x%02X want 0x%02X", id, chipIDBMP280)
	}

	_ = d.dev.WriteReg(regReset, resetCmd)
	sleep(5 * time.Millisecond)

	var loadErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			sleep(5 * time.Millisecond)
		}
		buf := make([]byte, calibLen)
		if err := d.dev.ReadReg(regCalib00, buf); err != nil {
			loadErr = fmt.Errorf("bmp280: read calib failed: %w", err)
			continue
		}
		tr := parseTrim(buf)
		if tr.t1 == 0 || tr.p1 == 0 {
			loadErr = fmt.Errorf("bmp280: calibration invalid (t1=%d p1=%d)", tr.t1, tr.p1)
			continue
		}
		d.trim, loadErr = tr, nil
		break
	}
	if loadErr != nil {
		return loadErr
	}

	_ = d.dev.WriteReg(regConfig, 0x00)
	if err := d.dev.WriteReg(regCtrlMeas, ctrlMeasNormal); err != nil {
		return fmt.Errorf("bmp280: ctrl_meas write failed: %w", err)
	}
	return nil
}

// sample burst-reads one pressure/temperature conversion.
func (d *Device) sample() (tempC, pressPa float64, err error) {
	var b [6]byte
	if err := d.dev.ReadReg(regPressMsb, b[:]); err != nil {
		return 0, 0, fmt.Errorf("bmp280: read data failed: %w", err)
	}
	adcP := int32(b[0])<<12 | int32(b[1])<<4 | int32(b[2])>>4
	adcT := int32(b[3])<<12 | int32(b[4])<<4 | int32(b[5])>>4

	tFine, tempC := d.trim.temperature(adcT)
	return tempC, d.trim.pressure(adcP, tFine), nil
}

func (d *Device) Pressure() (float64, error) {
	_, p, err := d.sample()
	return p, err
}

func (d *Device) Temperature() (float64, error) {
	t, _, err := d.sample()
	return t, err
}

// Altitude is the ISA altitude for the measured pressure, in meters.
func (d *Device) Altitude() (float64, error) {
	_, p, err := d.sample()
	if err != nil {
		return 0, err
	}
	return sensors.PressureToAltitude(p), nil
}

// temperature is the datasheet floating point compensation.
func (c trim) temperature(adcT int32) (tFine float64, tempC float64) {
	v1 := (float64(adcT)/16384.0 - float64(c.t1)/1024.0) * float64(c.t2)
	v2 := float64(adcT)/131072.0 - float64(c.t1)/8192.0
	v2 = v2 * v2 * float64(c.t3)
	tFine = float64(int32(v1 + v2))
	return tFine, (v1 + v2) / 5120.0
}

func (c trim) pressure(adcP int32, tFine float64) float64 {
	v1 := tFine/2.0 - 64000.0
	v2 := v1 * v1 * float64(c.p6) / 32768.0
	v2 += v1 * float64(c.p5) * 2.0
	v2 = v2/4.0 + float64(c.p4)*65536.0
	v1 = (float64(c.p3)*v1*v1/524288.0 + float64(c.p2)*v1) / 524288.0
	v1 = (1.0 + v1/32768.0) * float64(c.p1)
	if v1 == 0 {
		return 0
	}
	p := 1048576.0 - float64(adcP)
	p = (p - v2/4096.0) * 6250.0 / v1
	v1 = float64(c.p9) * p * p / 2147483648.0
	v2 = p * float64(c.p8) / 32768.0
	return p + (v1+v2+float64(c.p7))/16.0
}
