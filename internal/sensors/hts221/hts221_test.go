package hts221

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

type fakeI2C struct {
	regs map[byte][]byte
}

func (f *fakeI2C) ReadRegU8(reg byte) (byte, error) {
	b := f.regs[reg]
	if len(b) < 1 {
		return 0, errors.New("no reg")
	}
	return b[0], nil
}

func (f *fakeI2C) ReadReg(reg byte, dst []byte) error {
	b := f.regs[reg]
	if len(b) < len(dst) {
		return errors.New("short reg")
	}
	copy(dst, b)
	return nil
}

func (f *fakeI2C) WriteReg(reg, value byte) error { return nil }

func calibBlock() []byte {
	b := make([]byte, calibLen)
	b[0] = 40                                     // H0 = 20 %rH
	b[1] = 160                                    // H1 = 80 %rH
	b[2] = 80                                     // T0 = 10 C
	b[3] = 240                                    // T1 = 30 C
	binary.LittleEndian.PutUint16(b[6:8], 1000)   // H0_T0_OUT
	binary.LittleEndian.PutUint16(b[10:12], 7000) // H1_T0_OUT
	binary.LittleEndian.PutUint16(b[12:14], 200)  // T0_OUT
	binary.LittleEndian.PutUint16(b[14:16], 2200) // T1_OUT
	return b
}

func TestRead_Interpolates(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint16(data[0:2], 4000) // halfway -> 50 %rH
	binary.LittleEndian.PutUint16(data[2:4], 700)  // quarter -> 15 C

	f := &fakeI2C{regs: map[byte][]byte{
		regWhoAmI:           {whoAmIVal},
		regCalib | autoInc:  calibBlock(),
		regHumOut | autoInc: data,
	}}
	d := newWithIO(f)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	h, tc, err := d.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if math.Abs(h-50) > 1e-9 || math.Abs(tc-15) > 1e-9 {
		t.Fatalf("h=%v t=%v want 50,15", h, tc)
	}
}

func TestRead_ClampsHumidity(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint16(data[0:2], 20000)
	f := &fakeI2C{regs: map[byte][]byte{
		regWhoAmI:           {whoAmIVal},
		regCalib | autoInc:  calibBlock(),
		regHumOut | autoInc: data,
	}}
	d := newWithIO(f)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	h, _, err := d.Read()
	if err != nil || h != 100 {
		t.Fatalf("h=%v err=%v want 100", h, err)
	}
}

func TestRead_BeforeBegin(t *testing.T) {
	if _, _, err := newWithIO(&fakeI2C{}).Read(); err == nil {
		t.Fatalf("expected error before Begin")
	}
}

func TestBegin_FlatCalibration(t *testing.T) {
	f := &fakeI2C{regs: map[byte][]byte{
		regWhoAmI:          {whoAmIVal},
		regCalib | autoInc: make([]byte, calibLen),
	}}
	if err := newWithIO(f).Begin(); err == nil {
		t.Fatalf("expected invalid calibration error")
	}
}
