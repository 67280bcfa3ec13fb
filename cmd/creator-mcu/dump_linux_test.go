//go:build linux

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"creator-mcu/internal/config"
	"creator-mcu/internal/shm"
)

func TestDumpRegion(t *testing.T) {
	cfg := config.Config{
		Sensors: config.SensorsConfig{Sim: true},
		PSRAM:   config.PSRAMConfig{Path: filepath.Join(t.TempDir(), "psram.bin")},
	}
	if err := config.DefaultAndValidate(&cfg); err != nil {
		t.Fatalf("DefaultAndValidate: %v", err)
	}

	r, err := shm.OpenMapped(cfg.PSRAM.Path, cfg.PSRAM.Offset, cfg.PSRAM.Size)
	if err != nil {
		t.Fatalf("OpenMapped: %v", err)
	}
	uv := shm.UVData{UV: 4.5}
	if err := shm.Publish(r, &uv); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var out bytes.Buffer
	if err := dumpRegion(cfg, &out); err != nil {
		t.Fatalf("dumpRegion: %v", err)
	}
	if !strings.Contains(out.String(), "uv: 4.5") {
		t.Fatalf("dump=%q", out.String())
	}
}

func TestDumpRegion_RequiresPath(t *testing.T) {
	if err := dumpRegion(config.Config{}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error")
	}
}
