// Package orient turns raw 9-axis samples into yaw/pitch/roll.
package orient

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"
)

// Sample is one accel (g), gyro (deg/s) and mag (gauss) reading.
type Sample struct {
	Accel r3.Vector
	Gyro  r3.Vector
	Mag   r3.Vector
}

// Angles are in degrees.
type Angles struct {
	Yaw   float64
	Pitch float64
	Roll  float64
}

// Estimator consumes the latest sample plus the time since the previous one.
// Callers pass zero elapsed when no valid step is available.
type Estimator interface {
	Name() string
	Update(s Sample, elapsed time.Duration) Angles
}

// Estimator names accepted by New.
const (
	NameTrig = "trig"
	NameDCM  = "dcm"
)

// New returns the estimator registered under name.
func New(name string) (Estimator, error) {
	switch name {
	case NameTrig, "":
		return Trig{}, nil
	case NameDCM:
		return NewDCM(DefaultDCMConfig()), nil
	}
	return nil, fmt.Errorf("orient: unknown estimator %q", name)
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }

func rad(deg float64) float64 { return deg * math.Pi / 180 }
