package web

import (
	"io"
	"sync/atomic"
	"time"

	"creator-mcu/internal/env"
	"creator-mcu/internal/imu"
	"creator-mcu/internal/shm"
)

// EnvSource and IMUSource are the sampling loops as seen by the status page.
type EnvSource interface {
	Snapshot() env.Snapshot
}

type IMUSource interface {
	Snapshot() imu.Snapshot
}

// Region is the shared telemetry region. Reads decode what the FPGA would
// see; writes stage calibration requests.
type Region interface {
	io.ReaderAt
	io.WriterAt
}

type Status struct {
	startUnixNano int64
	requests      uint64

	env    EnvSource
	imu    IMUSource
	region Region
}

// NewStatus aggregates the loops and the region. Any of them may be nil.
func NewStatus(region Region, e EnvSource, i IMUSource) *Status {
	s := &Status{env: e, imu: i, region: region}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	return s
}

type StatusSnapshot struct {
	Service   string `json:"service"`
	NowUTC    string `json:"now_utc"`
	UptimeSec int64  `json:"uptime_sec"`

	CalibrationRequests uint64 `json:"calibration_requests"`

	Env    *env.Snapshot `json:"env,omitempty"`
	IMU    *imu.Snapshot `json:"imu,omitempty"`
	Region *shm.Snapshot `json:"region,omitempty"`

	RegionError string `json:"region_error,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	snap := StatusSnapshot{
		Service:             serviceName,
		NowUTC:              nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:           int64(nowUTC.Sub(start).Seconds()),
		CalibrationRequests: atomic.LoadUint64(&s.requests),
	}
	if s.env != nil {
		e := s.env.Snapshot()
		snap.Env = &e
	}
	if s.imu != nil {
		i := s.imu.Snapshot()
		snap.IMU = &i
	}
	if s.region != nil {
		r, err := shm.Dump(s.region)
		if err != nil {
			snap.RegionError = err.Error()
		} else {
			snap.Region = &r
		}
	}
	return snap
}
