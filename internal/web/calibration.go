package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync/atomic"

	"creator-mcu/internal/calib"
	"creator-mcu/internal/shm"
)

// CalibrationRequest stages magnetometer offsets. Exactly one of Offsets
// (gauss) or Raw (persisted units, gauss x 1000) must be set.
type CalibrationRequest struct {
	Offsets *[3]float64 `json:"offsets"`
	Raw     *[3]int32   `json:"raw"`
}

type CalibrationResponse struct {
	OK  bool                   `json:"ok"`
	Raw shm.IMUCalibrationData `json:"raw"`
}

func decodeCalibrationRequest(body []byte) (shm.IMUCalibrationData, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var req CalibrationRequest
	if err := dec.Decode(&req); err != nil {
		return shm.IMUCalibrationData{}, fmt.Errorf("invalid json: %w", err)
	}
	if dec.More() {
		return shm.IMUCalibrationData{}, fmt.Errorf("invalid json: trailing data")
	}
	switch {
	case req.Offsets != nil && req.Raw != nil:
		return shm.IMUCalibrationData{}, fmt.Errorf("offsets and raw are mutually exclusive")
	case req.Offsets != nil:
		d := calib.FromOffsets(*req.Offsets)
		return shm.IMUCalibrationData{MagOffsetX: d.X, MagOffsetY: d.Y, MagOffsetZ: d.Z}, nil
	case req.Raw != nil:
		return shm.IMUCalibrationData{MagOffsetX: req.Raw[0], MagOffsetY: req.Raw[1], MagOffsetZ: req.Raw[2]}, nil
	}
	return shm.IMUCalibrationData{}, fmt.Errorf("offsets or raw is required")
}

// CalibrationHandler stages a request in the region and raises the write
// flag, the same two writes the FPGA performs. The IMU loop commits it on
// its next cycle.
func (s *Status) CalibrationHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.region == nil {
			http.Error(w, "region unavailable", http.StatusNotFound)
			return
		}
		if ct := strings.TrimSpace(r.Header.Get("Content-Type")); ct != "application/json" {
			http.Error(w, "content-type must be application/json", http.StatusUnsupportedMediaType)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, 4<<10)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("read failed: %v", err), http.StatusBadRequest)
			return
		}
		rec, err := decodeCalibrationRequest(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := shm.Publish(s.region, &rec); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		ctl := shm.IMUControl{MagOffsetWrFlag: shm.OffsetWriteEnable}
		if err := shm.Publish(s.region, &ctl); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		atomic.AddUint64(&s.requests, 1)
		log.Printf("web: calibration staged x=%d y=%d z=%d", rec.MagOffsetX, rec.MagOffsetY, rec.MagOffsetZ)

		b, err := json.MarshalIndent(CalibrationResponse{OK: true, Raw: rec}, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})
}
