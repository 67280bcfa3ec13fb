package sensors

import (
	"math"
	"testing"
)

func TestMapRange(t *testing.T) {
	// Two-point humidity calibration: raw -5000 -> 20%, raw 3000 -> 60%.
	if got := MapRange(-1000.0, -5000, 3000, 20, 60); got != 40 {
		t.Fatalf("got=%v want 40", got)
	}
	if got := MapRange(float32(3000), -5000, 3000, 20, 60); got != 60 {
		t.Fatalf("got=%v want 60", got)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(104.2, 0, 100) != 100 || Clamp(-1.0, 0, 100) != 0 || Clamp(55, 0, 100) != 55 {
		t.Fatalf("clamp wrong")
	}
}

func TestPressureToAltitude(t *testing.T) {
	if got := PressureToAltitude(SeaLevelPa); got != 0 {
		t.Fatalf("sea level altitude=%v want 0", got)
	}
	if got := PressureToAltitude(89874.6); math.Abs(got-1000) > 2 {
		t.Fatalf("altitude=%v want ~1000m", got)
	}
}
