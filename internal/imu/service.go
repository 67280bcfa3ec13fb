// Package imu runs the IMU sampling loop: it services calibration commit
// requests from the shared region, applies the persisted magnetometer
// offsets, estimates orientation and publishes the result.
package imu

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"creator-mcu/internal/calib"
	"creator-mcu/internal/orient"
	"creator-mcu/internal/sensors"
	"creator-mcu/internal/shm"
	"creator-mcu/internal/watchdog"
)

type Config struct {
	Period  time.Duration
	MaxStep time.Duration
}

// Region is the shared telemetry region; the loop both reads requests from
// it and publishes into it.
type Region interface {
	io.ReaderAt
	io.WriterAt
}

// Deps are the collaborators the loop drives. Clock and Watchdog may be nil.
type Deps struct {
	Region    Region
	IMU       sensors.IMU
	Store     *calib.Store
	Estimator orient.Estimator
	Clock     orient.Clock
	Watchdog  watchdog.Kicker
}

type Snapshot struct {
	Cycles    uint64 `json:"cycles"`
	Commits   uint64 `json:"commits"`
	Estimator string `json:"estimator"`
	Detected  bool   `json:"detected"`

	Data        shm.IMUData            `json:"data"`
	Calibration shm.IMUCalibrationData `json:"calibration"`
	MagOffset   [3]float64             `json:"mag_offset"`

	// Errors holds the current error of every failing source.
	Errors    map[string]string `json:"errors,omitempty"`
	LastError string            `json:"last_error,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type Service struct {
	cfg     Config
	deps    Deps
	stepper *orient.Stepper

	// sleep blocks for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error

	sample orient.Sample

	mu   sync.RWMutex
	snap Snapshot
	errs map[string]string

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Region == nil {
		return nil, fmt.Errorf("imu: region is required")
	}
	if deps.IMU == nil {
		return nil, fmt.Errorf("imu: sensor is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("imu: calibration store is required")
	}
	if deps.Estimator == nil {
		deps.Estimator = orient.Trig{}
	}
	if deps.Clock == nil {
		deps.Clock = orient.NewMonotonicClock()
	}
	if deps.Watchdog == nil {
		deps.Watchdog = watchdog.Nop{}
	}
	if cfg.Period <= 0 {
		cfg.Period = 20 * time.Millisecond
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = 10 * cfg.Period
	}
	s := &Service{
		cfg:     cfg,
		deps:    deps,
		stepper: orient.NewStepper(deps.Clock, time.Millisecond, cfg.MaxStep),
		sleep:   sleepCtx,
		errs:    make(map[string]string),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	s.snap.Estimator = deps.Estimator.Name()
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

// Start initialises the IMU and launches the loop. An init failure is
// logged; the loop still runs so the watchdog keeps being serviced and
// calibration requests are still honoured.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("imu: service is nil")
	}
	err := s.deps.IMU.Begin()
	s.report("init", err)
	s.mu.Lock()
	s.snap.Detected = err == nil
	s.mu.Unlock()
	go s.run(ctx)
	return nil
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
		s.cycle()
		if err := s.sleep(ctx, s.cfg.Period); err != nil {
			return
		}
	}
}

// cycle is one pass of the loop, minus the trailing sleep.
func (s *Service) cycle() {
	committed := s.serviceRequest()

	// Lock every cycle, then trust only what the page holds.
	s.report("lock", s.deps.Store.Lock())
	persisted, loadErr := s.deps.Store.Load()
	s.report("load", loadErr)

	s.mu.RLock()
	cal := s.snap.Calibration
	offset := s.snap.MagOffset
	s.mu.RUnlock()

	if loadErr == nil {
		offset = persisted.Offsets()
		s.deps.IMU.SetMagOffset(r3.Vector{X: offset[0], Y: offset[1], Z: offset[2]})
		cal = shm.IMUCalibrationData{MagOffsetX: persisted.X, MagOffsetY: persisted.Y, MagOffsetZ: persisted.Z}
	}

	v, err := s.deps.IMU.ReadGyro()
	if err == nil {
		s.sample.Gyro = v
	}
	s.report("gyro", err)
	if v, err = s.deps.IMU.ReadMag(); err == nil {
		s.sample.Mag = v
	}
	s.report("mag", err)
	if v, err = s.deps.IMU.ReadAccel(); err == nil {
		s.sample.Accel = v
	}
	s.report("accel", err)

	elapsed, ok := s.stepper.Step()
	if !ok {
		elapsed = 0
	}
	a := s.deps.Estimator.Update(s.sample, elapsed)

	data := shm.IMUData{
		Yaw:    float32(a.Yaw),
		Pitch:  float32(a.Pitch),
		Roll:   float32(a.Roll),
		AccelX: float32(s.sample.Accel.X),
		AccelY: float32(s.sample.Accel.Y),
		AccelZ: float32(s.sample.Accel.Z),
		GyroX:  float32(s.sample.Gyro.X),
		GyroY:  float32(s.sample.Gyro.Y),
		GyroZ:  float32(s.sample.Gyro.Z),
		MagX:   float32(s.sample.Mag.X),
		MagY:   float32(s.sample.Mag.Y),
		MagZ:   float32(s.sample.Mag.Z),
	}
	s.report("publish data", shm.Publish(s.deps.Region, &data))
	s.report("publish calibration", shm.Publish(s.deps.Region, &cal))
	s.report("watchdog", s.deps.Watchdog.Kick())

	s.mu.Lock()
	s.snap.Cycles++
	if committed {
		s.snap.Commits++
	}
	s.snap.Data = data
	s.snap.Calibration = cal
	s.snap.MagOffset = offset
	s.snap.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()
}

// serviceRequest commits the staged calibration when the FPGA has raised
// the write flag. The flag is cleared before the page is programmed, so a
// request is serviced at most once.
func (s *Service) serviceRequest() bool {
	var ctl shm.IMUControl
	err := shm.Fetch(s.deps.Region, &ctl)
	s.report("control", err)
	if err != nil {
		return false
	}
	if ctl.MagOffsetWrFlag != shm.OffsetWriteEnable {
		return false
	}
	ctl.MagOffsetWrFlag = shm.OffsetWriteDisable

	var req shm.IMUCalibrationData
	fetchErr := shm.Fetch(s.deps.Region, &req)
	unlockErr := s.deps.Store.Unlock()
	s.report("clear request", shm.Publish(s.deps.Region, &ctl))
	s.report("request", fetchErr)
	s.report("unlock", unlockErr)
	if fetchErr != nil || unlockErr != nil {
		return false
	}
	d := calib.Data{X: req.MagOffsetX, Y: req.MagOffsetY, Z: req.MagOffsetZ}
	err = s.deps.Store.Program(d)
	s.report("program", err)
	if err != nil {
		return false
	}
	log.Printf("imu: calibration committed x=%d y=%d z=%d", d.X, d.Y, d.Z)
	return true
}

// report records err as the current error of src, or clears src when err
// is nil. An error is logged when it first appears for src or its text
// changes.
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
		log.Printf("imu: %s", msg)
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
