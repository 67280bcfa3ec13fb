// Package sim provides deterministic stand-ins for the board sensors so the
// firmware loops can run on a bench host without an I2C bus.
package sim

import (
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"creator-mcu/internal/sensors"
)

var (
	_ sensors.Pressure = (*Pressure)(nil)
	_ sensors.Humidity = (*Humidity)(nil)
	_ sensors.UV       = (*UV)(nil)
	_ sensors.IMU      = (*IMU)(nil)
)

// phase returns the position in [0,1) of now within period.
func phase(now time.Time, period time.Duration) float64 {
	return float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())
}

// Pressure drifts sinusoidally around BasePa.
type Pressure struct {
	BasePa float64
	TempC  float64
	Period time.Duration
	Now    func() time.Time
}

func (p *Pressure) Begin() error { return nil }

func (p *Pressure) Pressure() (float64, error) {
	base := p.BasePa
	if base == 0 {
		base = sensors.SeaLevelPa
	}
	return base + 50*math.Sin(2*math.Pi*phase(p.now(), p.period())), nil
}

func (p *Pressure) Altitude() (float64, error) {
	pa, _ := p.Pressure()
	return sensors.PressureToAltitude(pa), nil
}

func (p *Pressure) Temperature() (float64, error) { return p.TempC, nil }

func (p *Pressure) now() time.Time { return nowOr(p.Now) }

func (p *Pressure) period() time.Duration { return periodOr(p.Period) }

// Humidity reports a fixed humidity and temperature.
type Humidity struct {
	RH    float64
	TempC float64
}

func (h *Humidity) Begin() error { return nil }

func (h *Humidity) Read() (float64, float64, error) { return h.RH, h.TempC, nil }

// UV reports a fixed index.
type UV struct {
	Index float64
}

func (u *UV) Begin() error { return nil }

func (u *UV) UV() (float64, error) { return u.Index, nil }

// IMU is a level board turning at a constant yaw rate in a horizontal
// magnetic field of FieldGauss.
type IMU struct {
	YawRateDps float64
	FieldGauss float64
	Now        func() time.Time

	mu     sync.Mutex
	start  time.Time
	offset r3.Vector
}

func (m *IMU) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.start = nowOr(m.Now)
	return nil
}

func (m *IMU) ReadGyro() (r3.Vector, error) {
	return r3.Vector{Z: m.YawRateDps}, nil
}

func (m *IMU) ReadAccel() (r3.Vector, error) {
	return r3.Vector{Z: 1}, nil
}

// ReadMag places the field so that atan2(my, -mx) equals the current yaw.
func (m *IMU) ReadMag() (r3.Vector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	field := m.FieldGauss
	if field == 0 {
		field = 0.4
	}
	yaw := m.YawRateDps * nowOr(m.Now).Sub(m.start).Seconds() * math.Pi / 180
	v := r3.Vector{X: -field * math.Cos(yaw), Y: field * math.Sin(yaw)}
	return v.Sub(m.offset), nil
}

func (m *IMU) SetMagOffset(offset r3.Vector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offset = offset
}

func nowOr(f func() time.Time) time.Time {
	if f != nil {
		return f()
	}
	return time.Now()
}

func periodOr(d time.Duration) time.Duration {
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}
