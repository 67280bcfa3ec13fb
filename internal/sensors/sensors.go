// Package sensors defines the capabilities the sampling loops need from the
// board's sensor parts. Drivers live in subpackages.
package sensors

import (
	"math"

	"github.com/golang/geo/r3"
	"golang.org/x/exp/constraints"
)

// Pressure is a barometer that also reports altitude and die temperature.
type Pressure interface {
	Begin() error
	Altitude() (float64, error)    // m
	Pressure() (float64, error)    // Pa
	Temperature() (float64, error) // C
}

// Humidity reports relative humidity (%) and temperature (C).
type Humidity interface {
	Begin() error
	Read() (humidity, tempC float64, err error)
}

// UV reports a UV index.
type UV interface {
	Begin() error
	UV() (float64, error)
}

// IMU is a 9-axis part with separately read gyro (deg/s), magnetometer
// (gauss) and accelerometer (g). Magnetometer offsets are subtracted from
// subsequent mag readings.
type IMU interface {
	Begin() error
	ReadGyro() (r3.Vector, error)
	ReadMag() (r3.Vector, error)
	ReadAccel() (r3.Vector, error)
	SetMagOffset(offset r3.Vector)
}

// RegIO is the register access surface drivers use; *i2c.Dev satisfies it.
type RegIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

// SeaLevelPa is the ISA reference pressure.
const SeaLevelPa = 101325.0

// PressureToAltitude converts static pressure to ISA altitude in meters.
// h(m) = 44330 * (1 - (p/p0)^(1/5.255))
func PressureToAltitude(pressurePa float64) float64 {
	return 44330.0 * (1.0 - math.Pow(pressurePa/SeaLevelPa, 1.0/5.255))
}

// MapRange linearly maps value from [fromMin, fromMax] onto [toMin, toMax].
// Used for two-point factory calibrations.
func MapRange[T constraints.Float](value, fromMin, fromMax, toMin, toMax T) T {
	return (value-fromMin)/(fromMax-fromMin)*(toMax-toMin) + toMin
}

func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
