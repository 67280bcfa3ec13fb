package mpl3115a2

import (
	"fmt"
	"time"

	"creator-mcu/internal/i2c"
	"creator-mcu/internal/sensors"
)

var sleep = time.Sleep

// Minimal MPL3115A2 driver: barometer mode, continuous sampling.
// Altitude is derived from pressure rather than switching the part into
// altimeter mode, so one register set serves all three readings.

const (
	addrDefault = 0x60

	regStatus   = 0x00
	regOutPMSB  = 0x01
	regOutTMSB  = 0x04
	regWhoAmI   = 0x0C
	whoAmIVal   = 0xC4
	regPTDataCf = 0x13
	regCtrl1    = 0x26

	ctrl1Reset  = 0x04
	ctrl1OS128  = 0x38
	ctrl1Active = 0x01

	ptDataAllEvents = 0x07
)

type Device struct {
	dev sensors.RegIO
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("mpl3115a2: dev is nil")
	}
	return newWithIO(dev), nil
}

func newWithIO(dev sensors.RegIO) *Device {
	return &Device{dev: dev}
}

func (d *Device) Begin() error {
	who, err := d.dev.ReadRegU8(regWhoAmI)
	if err != nil {
		return fmt.Errorf("mpl3115a2: whoami read failed: %w", err)
	}
	if who != whoAmIVal {
		return fmt.Errorf("mpl3115a2: whoami=0x%02X want 0x%02X", who, whoAmIVal)
	}

	// Reset drops the ack; ignore the error.
	_ = d.dev.WriteReg(regCtrl1, ctrl1Reset)
	sleep(10 * time.Millisecond)

	if err := d.dev.WriteReg(regCtrl1, ctrl1OS128); err != nil {
		return fmt.Errorf("mpl3115a2: ctrl1 write failed: %w", err)
	}
	if err := d.dev.WriteReg(regPTDataCf, ptDataAllEvents); err != nil {
		return fmt.Errorf("mpl3115a2: pt_data_cfg write failed: %w", err)
	}
	if err := d.dev.WriteReg(regCtrl1, ctrl1OS128|ctrl1Active); err != nil {
		return fmt.Errorf("mpl3115a2: activate failed: %w", err)
	}
	return nil
}

// Pressure returns pressure in Pa (Q18.2 in OUT_P).
func (d *Device) Pressure() (float64, error) {
	var b [3]byte
	if err := d.dev.ReadReg(regOutPMSB, b[:]); err != nil {
		return 0, fmt.Errorf("mpl3115a2: read pressure failed: %w", err)
	}
	raw := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	return float64(raw>>4) / 4.0, nil
}

// Temperature returns degrees C (signed Q8.4 in OUT_T).
func (d *Device) Temperature() (float64, error) {
	var b [2]byte
	if err := d.dev.ReadReg(regOutTMSB, b[:]); err != nil {
		return 0, fmt.Errorf("mpl3115a2: read temperature failed: %w", err)
	}
	raw := int16(uint16(b[0])<<8|uint16(b[1])) >> 4
	return float64(raw) / 16.0, nil
}

// Altitude returns ISA altitude in meters from the current pressure.
func (d *Device) Altitude() (float64, error) {
	p, err := d.Pressure()
	if err != nil {
		return 0, err
	}
	if p <= 0 {
		return 0, fmt.Errorf("mpl3115a2: pressure invalid (%v Pa)", p)
	}
	return sensors.PressureToAltitude(p), nil
}
