// Package env runs the environmental sampling loop: it strobes the sampling
// line, reads pressure, humidity and UV, and publishes them with the MCU
// identity record into the shared region.
package env

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"creator-mcu/internal/gpio"
	"creator-mcu/internal/sensors"
	"creator-mcu/internal/shm"
)

type Config struct {
	PreStrobe   time.Duration
	StrobePulse time.Duration

	FirmwareID      uint32
	FirmwareVersion uint32
}

// Deps are the collaborators the loop drives. Strobe may be nil.
type Deps struct {
	Region   io.WriterAt
	Pressure sensors.Pressure
	Humidity sensors.Humidity
	UV       sensors.UV
	Strobe   gpio.Pin
}

type Snapshot struct {
	Cycles uint64 `json:"cycles"`

	MCU      shm.MCUData      `json:"mcu"`
	Pressure shm.PressureData `json:"pressure"`
	Humidity shm.HumidityData `json:"humidity"`
	UV       shm.UVData       `json:"uv"`

	PressureDetected bool `json:"pressure_detected"`
	HumidityDetected bool `json:"humidity_detected"`
	UVDetected       bool `json:"uv_detected"`

	// Errors holds the current error of every failing source.
	Errors    map[string]string `json:"errors,omitempty"`
	LastError string            `json:"last_error,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type Service struct {
	cfg  Config
	deps Deps

	// sleep blocks for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error

	mu   sync.RWMutex
	snap Snapshot
	errs map[string]string

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Region == nil {
		return nil, fmt.Errorf("env: region is required")
	}
	if deps.Pressure == nil || deps.Humidity == nil || deps.UV == nil {
		return nil, fmt.Errorf("env: pressure, humidity and uv sensors are required")
	}
	if deps.Strobe == nil {
		deps.Strobe = gpio.Nop{}
	}
	if cfg.PreStrobe <= 0 {
		cfg.PreStrobe = 40 * time.Millisecond
	}
	if cfg.StrobePulse <= 0 {
		cfg.StrobePulse = 10 * time.Millisecond
	}
	if cfg.FirmwareID == 0 {
		cfg.FirmwareID = shm.FirmwareID
	}
	if cfg.FirmwareVersion == 0 {
		cfg.FirmwareVersion = shm.FirmwareVersion
	}
	s := &Service{
		cfg:    cfg,
		deps:   deps,
		sleep:  sleepCtx,
		errs:   make(map[string]string),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	s.snap.MCU = shm.MCUData{ID: cfg.FirmwareID, Version: cfg.FirmwareVersion}
	return s, nil
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	if len(s.errs) > 0 {
		snap.Errors = make(map[string]string, len(s.errs))
		for k, v := range s.errs {
			snap.Errors[k] = v
		}
	}
	return snap
}

// Done is closed once the loop has exited.
func (s *Service) Done() <-chan struct{} { return s.doneCh }

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Start brings up the sensors and launches the loop. Sensor init failures
// are logged and the loop still runs; reads from a dead part fail each cycle
// and leave the previous values published.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("env: service is nil")
	}
	s.begin()
	go s.run(ctx)
	return nil
}

func (s *Service) begin() {
	var det [3]bool
	for i, b := range []struct {
		src   string
		begin func() error
	}{
		{"pressure init", s.deps.Pressure.Begin},
		{"humidity init", s.deps.Humidity.Begin},
		{"uv init", s.deps.UV.Begin},
	} {
		err := b.begin()
		det[i] = err == nil
		s.report(b.src, err)
	}
	s.mu.Lock()
	s.snap.PressureDetected, s.snap.HumidityDetected, s.snap.UVDetected = det[0], det[1], det[2]
	s.mu.Unlock()
}

func (s *Service) run(ctx context.Context) {
	defer close(s.doneCh)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		if err := s.sleep(ctx, s.cfg.PreStrobe); err != nil {
			return
		}
		s.strobe(1)
		if err := s.sleep(ctx, s.cfg.StrobePulse); err != nil {
			s.strobe(0)
			return
		}
		s.strobe(0)
		s.cycle()
	}
}

func (s *Service) strobe(v int) {
	s.report("strobe", s.deps.Strobe.Set(v))
}

// cycle reads every sensor and publishes all four records. Fields whose
// read failed keep their previous value.
func (s *Service) cycle() {
	s.mu.RLock()
	p, h, u := s.snap.Pressure, s.snap.Humidity, s.snap.UV
	mcu := s.snap.MCU
	s.mu.RUnlock()

	rh, t, err := s.deps.Humidity.Read()
	if err == nil {
		h.Humidity, h.Temperature = float32(rh), float32(t)
	}
	s.report("humidity", err)

	v, err := s.deps.Pressure.Altitude()
	if err == nil {
		p.Altitude = float32(v)
	}
	s.report("altitude", err)
	if v, err = s.deps.Pressure.Pressure(); err == nil {
		p.Pressure = float32(v)
	}
	s.report("pressure", err)
	if v, err = s.deps.Pressure.Temperature(); err == nil {
		p.Temperature = float32(v)
	}
	s.report("temperature", err)

	if v, err = s.deps.UV.UV(); err == nil {
		u.UV = float32(v)
	}
	s.report("uv", err)

	s.report("publish mcu", shm.Publish(s.deps.Region, &mcu))
	s.report("publish pressure", shm.Publish(s.deps.Region, &p))
	s.report("publish humidity", shm.Publish(s.deps.Region, &h))
	s.report("publish uv", shm.Publish(s.deps.Region, &u))

	s.mu.Lock()
	s.snap.Cycles++
	s.snap.Pressure, s.snap.Humidity, s.snap.UV = p, h, u
	s.snap.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()
}

// report records err as the current error of src, or clears src when err
// is nil. An error is logged when it first appears for src or its text
// changes, so a dead part does not log every cycle.
func (s *Service) report(src string, err error) {
	s.mu.Lock()
	if err == nil {
		delete(s.errs, src)
		s.mu.Unlock()
		return
	}
	msg := fmt.Sprintf("%s: %v", src, err)
	repeat := s.errs[src] == msg
	s.errs[src] = msg
	s.snap.LastError = msg
	s.snap.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()
	if !repeat {
		log.Printf("env: %s", msg)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
