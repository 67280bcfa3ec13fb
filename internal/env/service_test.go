package env

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"creator-mcu/internal/shm"
)

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakePin struct{ log *eventLog }

func (p fakePin) Set(v int) error { p.log.add(fmt.Sprintf("strobe=%d", v)); return nil }
func (p fakePin) Close() error    { return nil }

type loggingRegion struct {
	*shm.Region
	log *eventLog
}

func (r loggingRegion) WriteAt(p []byte, off int64) (int, error) {
	r.log.add(fmt.Sprintf("pub@0x%02X", off))
	return r.Region.WriteAt(p, off)
}

type fakePressure struct {
	alt, pa, temp float64
	err           error
	beginErr      error
}

func (f *fakePressure) Begin() error { return f.beginErr }
func (f *fakePressure) Altitude() (float64, error) {
	return f.alt, f.err
}
func (f *fakePressure) Pressure() (float64, error) {
	return f.pa, f.err
}
func (f *fakePressure) Temperature() (float64, error) {
	return f.temp, f.err
}

type fakeHumidity struct {
	rh, temp float64
	err      error
}

func (f *fakeHumidity) Begin() error { return nil }
func (f *fakeHumidity) Read() (float64, float64, error) {
	return f.rh, f.temp, f.err
}

type fakeUV struct {
	index    float64
	beginErr error
}

func (f *fakeUV) Begin() error         { return f.beginErr }
func (f *fakeUV) UV() (float64, error) { return f.index, nil }

type rig struct {
	svc    *Service
	log    *eventLog
	region *shm.Region
	p      *fakePressure
	h      *fakeHumidity
	u      *fakeUV
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		log:    &eventLog{},
		region: shm.NewRegion(shm.RegionSize),
		p:      &fakePressure{alt: 120, pa: 99900, temp: 21.5},
		h:      &fakeHumidity{rh: 45, temp: 22},
		u:      &fakeUV{index: 3},
	}
	svc, err := New(Config{}, Deps{
		Region:   loggingRegion{Region: r.region, log: r.log},
		Pressure: r.p,
		Humidity: r.h,
		UV:       r.u,
		Strobe:   fakePin{log: r.log},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.svc = svc
	return r
}

// stopAfter makes the loop's sleep return immediately and fail once n
// sleeps have been served.
func stopAfter(n int) func(context.Context, time.Duration) error {
	calls := 0
	return func(ctx context.Context, d time.Duration) error {
		calls++
		if calls > n {
			return context.Canceled
		}
		return nil
	}
}

func TestRun_OnePulsePerPublishCycle(t *testing.T) {
	r := newRig(t)
	r.svc.sleep = stopAfter(2 * 10)
	r.svc.run(context.Background())

	want := []string{"strobe=1", "strobe=0", "pub@0x90", "pub@0x40", "pub@0x30", "pub@0x50"}
	events := r.log.all()
	if len(events) != 10*len(want) {
		t.Fatalf("events=%d want %d: %v", len(events), 10*len(want), events)
	}
	for i, e := range events {
		if e != want[i%len(want)] {
			t.Fatalf("event[%d]=%q want %q", i, e, want[i%len(want)])
		}
	}
	if got := r.svc.Snapshot().Cycles; got != 10 {
		t.Fatalf("cycles=%d want 10", got)
	}
}

func TestRun_StopsDuringPulseLeavesStrobeLow(t *testing.T) {
	r := newRig(t)
	r.svc.sleep = stopAfter(1)
	r.svc.run(context.Background())

	events := r.log.all()
	if len(events) != 2 || events[0] != "strobe=1" || events[1] != "strobe=0" {
		t.Fatalf("events=%v want strobe=1,strobe=0", events)
	}
}

func TestCycle_PublishesRecords(t *testing.T) {
	r := newRig(t)
	r.svc.cycle()

	snap, err := shm.Dump(r.region)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if snap.MCU.ID != shm.FirmwareID || snap.MCU.Version != shm.FirmwareVersion {
		t.Fatalf("mcu=%+v", snap.MCU)
	}
	if snap.Pressure.Altitude != 120 || snap.Pressure.Pressure != 99900 || snap.Pressure.Temperature != 21.5 {
		t.Fatalf("pressure=%+v", snap.Pressure)
	}
	if snap.Humidity.Humidity != 45 || snap.Humidity.Temperature != 22 {
		t.Fatalf("humidity=%+v", snap.Humidity)
	}
	if snap.UV.UV != 3 {
		t.Fatalf("uv=%+v", snap.UV)
	}
}

func TestCycle_ReadErrorKeepsStaleValues(t *testing.T) {
	r := newRig(t)
	r.svc.cycle()

	r.p.alt, r.p.pa = 500, 95000
	r.p.err = errors.New("nack")
	r.h.rh = 60
	r.svc.cycle()

	snap, err := shm.Dump(r.region)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if snap.Pressure.Altitude != 120 || snap.Pressure.Pressure != 99900 {
		t.Fatalf("pressure=%+v want stale 120/99900", snap.Pressure)
	}
	if snap.Humidity.Humidity != 60 {
		t.Fatalf("humidity=%v want 60", snap.Humidity.Humidity)
	}
	s := r.svc.Snapshot()
	if s.LastError != "temperature: nack" {
		t.Fatalf("last error=%q", s.LastError)
	}
	if s.Cycles != 2 {
		t.Fatalf("cycles=%d want 2", s.Cycles)
	}
}

// captureLog redirects the standard logger for the rest of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev, flags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prev)
		log.SetFlags(flags)
	})
	return &buf
}

func logLines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

func TestCycle_DeadSensorLogsOncePerSource(t *testing.T) {
	r := newRig(t)
	buf := captureLog(t)

	r.p.err = errors.New("nack")
	for i := 0; i < 100; i++ {
		r.svc.cycle()
	}
	want := []string{"env: altitude: nack", "env: pressure: nack", "env: temperature: nack"}
	if got := logLines(buf); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("log=%q want %q", got, want)
	}
	if errs := r.svc.Snapshot().Errors; len(errs) != 3 || errs["pressure"] != "pressure: nack" {
		t.Fatalf("errors=%v", errs)
	}

	// A changed message is logged again.
	r.p.err = errors.New("timeout")
	r.svc.cycle()
	r.svc.cycle()
	if n := len(logLines(buf)); n != 6 {
		t.Fatalf("log lines=%d want 6", n)
	}

	// Recovery clears the source; a later failure is reported afresh.
	r.p.err = nil
	r.svc.cycle()
	if errs := r.svc.Snapshot().Errors; len(errs) != 0 {
		t.Fatalf("errors=%v want none after recovery", errs)
	}
	r.p.err = errors.New("timeout")
	r.svc.cycle()
	if n := len(logLines(buf)); n != 9 {
		t.Fatalf("log lines=%d want 9", n)
	}
}

func TestBegin_FailureIsNotFatal(t *testing.T) {
	r := newRig(t)
	r.u.beginErr = errors.New("absent")
	r.svc.begin()

	s := r.svc.Snapshot()
	if !s.PressureDetected || !s.HumidityDetected || s.UVDetected {
		t.Fatalf("detected=%v/%v/%v want true/true/false", s.PressureDetected, s.HumidityDetected, s.UVDetected)
	}
	if s.LastError != "uv init: absent" {
		t.Fatalf("last error=%q", s.LastError)
	}
}

func TestStartClose(t *testing.T) {
	r := newRig(t)
	r.svc.cfg.PreStrobe = time.Millisecond
	r.svc.cfg.StrobePulse = time.Millisecond
	if err := r.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for r.svc.Snapshot().Cycles == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no cycle completed")
		}
		time.Sleep(time.Millisecond)
	}
	r.svc.Close()
	select {
	case <-r.svc.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not stop")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}, Deps{}); err == nil {
		t.Fatalf("expected error without region")
	}
	if _, err := New(Config{}, Deps{Region: shm.NewRegion(shm.RegionSize)}); err == nil {
		t.Fatalf("expected error without sensors")
	}
}
