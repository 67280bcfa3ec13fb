//go:build linux

package shm

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMapped_SharedWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psram")

	r, err := OpenMapped(path, 0x10, RegionSize)
	if err != nil {
		t.Fatalf("OpenMapped: %v", err)
	}
	hum := HumidityData{Humidity: 40.5, Temperature: 22}
	if err := Publish(r, &hum); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// A second mapping observes the same bytes.
	r2, err := OpenMapped(path, 0x10, RegionSize)
	if err != nil {
		t.Fatalf("OpenMapped second: %v", err)
	}
	var got HumidityData
	if err := Fetch(r2, &got); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got != hum {
		t.Fatalf("got=%+v want %+v", got, hum)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r2.Close(); err != nil {
		t.Fatalf("Close second: %v", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Size() != 0x10+RegionSize {
		t.Fatalf("size=%d want %d", st.Size(), 0x10+RegionSize)
	}
}
