package orient

import (
	"math"
	"time"
)

// Trig is the stateless estimator: tilt from gravity, heading straight from
// the magnetometer with no tilt compensation.
type Trig struct{}

func (Trig) Name() string { return NameTrig }

func (Trig) Update(s Sample, _ time.Duration) Angles {
	a, m := s.Accel, s.Mag
	return Angles{
		Yaw:   deg(math.Atan2(m.Y, -m.X)),
		Pitch: deg(math.Atan2(-a.X, math.Sqrt(a.Y*a.Y+a.Z*a.Z))),
		Roll:  deg(math.Atan2(a.Y, a.Z)),
	}
}
