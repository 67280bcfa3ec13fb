package orient

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
)

// DCMConfig holds the PI drift-correction gains. Roll/pitch gains act on an
// accelerometer error measured in g; yaw gains act on the heading error.
type DCMConfig struct {
	KpRollPitch float64
	KiRollPitch float64
	KpYaw       float64
	KiYaw       float64
}

func DefaultDCMConfig() DCMConfig {
	return DCMConfig{
		KpRollPitch: 5.12,
		KiRollPitch: 0.00512,
		KpYaw:       1.2,
		KiYaw:       0.00002,
	}
}

// DCM integrates gyro rates into a direction cosine matrix and corrects
// drift against gravity (roll/pitch) and magnetic heading (yaw).
type DCM struct {
	cfg DCMConfig

	// m rows; m[2] is the gravity direction in the sensor frame.
	m      [3]r3.Vector
	omegaP r3.Vector
	omegaI r3.Vector

	seeded bool
	angles Angles
}

func NewDCM(cfg DCMConfig) *DCM {
	return &DCM{cfg: cfg}
}

func (d *DCM) Name() string { return NameDCM }

// Seeded reports whether Seed (or a first Update) has run.
func (d *DCM) Seeded() bool { return d.seeded }

// Seed initialises the matrix from accelerometer tilt and magnetic heading.
func (d *DCM) Seed(s Sample) {
	a := s.Accel
	pitch := -math.Atan2(a.X, math.Sqrt(a.Y*a.Y+a.Z*a.Z))
	roll := math.Atan2(a.Y, a.Z)
	yaw := heading(s.Mag, roll, pitch)

	d.m = fromEuler(roll, pitch, yaw)
	d.omegaP = r3.Vector{}
	d.omegaI = r3.Vector{}
	d.seeded = true
	d.angles = d.euler()
}

// Update runs one filter step. A non-positive elapsed time performs no
// integration and returns the previous angles.
func (d *DCM) Update(s Sample, elapsed time.Duration) Angles {
	if !d.seeded {
		d.Seed(s)
		return d.angles
	}
	dt := elapsed.Seconds()
	if dt <= 0 {
		return d.angles
	}

	prev := d.angles
	course := heading(s.Mag, rad(prev.Roll), rad(prev.Pitch))

	d.integrate(s.Gyro, dt)
	d.normalize()
	d.correctDrift(s.Accel, course)

	d.angles = d.euler()
	return d.angles
}

func (d *DCM) integrate(gyroDeg r3.Vector, dt float64) {
	w := r3.Vector{X: rad(gyroDeg.X), Y: rad(gyroDeg.Y), Z: rad(gyroDeg.Z)}
	w = w.Add(d.omegaI).Add(d.omegaP)

	// Each row r becomes r + (r x w)*dt, i.e. m += m*skew(w)*dt.
	for i := range d.m {
		d.m[i] = d.m[i].Add(d.m[i].Cross(w).Mul(dt))
	}
}

func (d *DCM) normalize() {
	e := -d.m[0].Dot(d.m[1]) * 0.5
	x := d.m[0].Add(d.m[1].Mul(e))
	y := d.m[1].Add(d.m[0].Mul(e))
	z := x.Cross(y)

	d.m[0] = renorm(x)
	d.m[1] = renorm(y)
	d.m[2] = renorm(z)
}

// renorm uses the first-order Taylor expansion of 1/|v|; rows stay close to
// unit length so this is accurate and avoids the square root.
func renorm(v r3.Vector) r3.Vector {
	return v.Mul(0.5 * (3 - v.Dot(v)))
}

func (d *DCM) correctDrift(accel r3.Vector, course float64) {
	// Trust the accelerometer only near 1g.
	weight := 1 - 2*math.Abs(1-accel.Norm())
	weight = math.Max(0, math.Min(1, weight))

	errRP := accel.Cross(d.m[2])
	d.omegaP = errRP.Mul(d.cfg.KpRollPitch * weight)
	d.omegaI = d.omegaI.Add(errRP.Mul(d.cfg.KiRollPitch * weight))

	errCourse := d.m[0].X*math.Sin(course) - d.m[1].X*math.Cos(course)
	errYaw := d.m[2].Mul(errCourse)
	d.omegaP = d.omegaP.Add(errYaw.Mul(d.cfg.KpYaw))
	d.omegaI = d.omegaI.Add(errYaw.Mul(d.cfg.KiYaw))
}

func (d *DCM) euler() Angles {
	return Angles{
		Yaw:   deg(math.Atan2(d.m[1].X, d.m[0].X)),
		Pitch: deg(-math.Asin(math.Max(-1, math.Min(1, d.m[2].X)))),
		Roll:  deg(math.Atan2(d.m[2].Y, d.m[2].Z)),
	}
}

// heading is the tilt-compensated magnetic heading in radians, using the
// same axis convention as Trig.
func heading(mag r3.Vector, roll, pitch float64) float64 {
	cr, sr := math.Cos(roll), math.Sin(roll)
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	mx := mag.X*cp + mag.Y*sr*sp + mag.Z*cr*sp
	my := mag.Y*cr - mag.Z*sr
	return math.Atan2(my, -mx)
}

func fromEuler(roll, pitch, yaw float64) [3]r3.Vector {
	c1, s1 := math.Cos(roll), math.Sin(roll)
	c2, s2 := math.Cos(pitch), math.Sin(pitch)
	c3, s3 := math.Cos(yaw), math.Sin(yaw)
	return [3]r3.Vector{
		{X: c2 * c3, Y: c3*s1*s2 - c1*s3, Z: s1*s3 + c1*c3*s2},
		{X: c2 * s3, Y: c1*c3 + s1*s2*s3, Z: c1*s2*s3 - c3*s1},
		{X: -s2, Y: c2 * s1, Z: c1 * c2},
	}
}
