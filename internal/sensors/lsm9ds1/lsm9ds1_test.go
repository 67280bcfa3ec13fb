package lsm9ds1

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
)

type fakeI2C struct {
	regs   map[byte][]byte
	writes []writeOp
}

type writeOp struct {
	reg byte
	val byte
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

func (f *fakeI2C) WriteReg(reg, value byte) error {
	f.writes = append(f.writes, writeOp{reg: reg, val: value})
	return nil
}

func noSleep(t *testing.T) {
	t.Helper()
	old := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = old })
}

func le16(v int16) []byte { return []byte{byte(uint16(v)), byte(uint16(v) >> 8)} }

func vecBytes(x, y, z int16) []byte {
	return append(append(le16(x), le16(y)...), le16(z)...)
}

func near(a, b r3.Vector) bool { return a.Sub(b).Norm() < 1e-9 }

func TestBegin_ChecksBothCores(t *testing.T) {
	noSleep(t)
	ag := &fakeI2C{regs: map[byte][]byte{regWhoAmIAG: {whoAmIAGVal}}}
	m := &fakeI2C{regs: map[byte][]byte{regWhoAmIM: {0x00}}}
	if err := newWithIO(ag, m).Begin(); err == nil {
		t.Fatalf("expected mag whoami error")
	}

	m.regs[regWhoAmIM] = []byte{whoAmIMVal}
	if err := newWithIO(ag, m).Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if len(m.writes) != 4 {
		t.Fatalf("mag writes=%d want 4", len(m.writes))
	}
}

func TestReads_Scaled(t *testing.T) {
	ag := &fakeI2C{regs: map[byte][]byte{
		regOutXLG:  vecBytes(1000, -1000, 0),
		regOutXLXL: vecBytes(0, 0, 16393),
	}}
	m := &fakeI2C{regs: map[byte][]byte{
		regOutXLM | magAutoInc: vecBytes(-2000, 1000, 0),
	}}
	d := newWithIO(ag, m)

	g, err := d.ReadGyro()
	if err != nil || !near(g, r3.Vector{X: 8.75, Y: -8.75}) {
		t.Fatalf("gyro=%v err=%v", g, err)
	}
	a, err := d.ReadAccel()
	if err != nil || math.Abs(a.Z-1) > 1e-3 {
		t.Fatalf("accel=%v err=%v", a, err)
	}
	mag, err := d.ReadMag()
	if err != nil || !near(mag, r3.Vector{X: -0.28, Y: 0.14}) {
		t.Fatalf("mag=%v err=%v", mag, err)
	}

	d.SetMagOffset(r3.Vector{X: 0.1, Y: -0.2, Z: 0.3})
	mag, err = d.ReadMag()
	if err != nil || !near(mag, r3.Vector{X: -0.38, Y: 0.34, Z: -0.3}) {
		t.Fatalf("mag with offset=%v err=%v", mag, err)
	}
}
