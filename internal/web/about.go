package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	"creator-mcu/internal/shm"
)

type AboutResponse struct {
	Service         string `json:"service"`
	NowUTC          string `json:"now_utc"`
	FirmwareID      string `json:"firmware_id"`
	FirmwareVersion string `json:"firmware_version"`
	GoVersion       string `json:"go_version"`
	Commit          string `json:"commit,omitempty"`
	Dirty           bool   `json:"dirty,omitempty"`
}

func AboutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		resp := AboutResponse{
			Service:         serviceName,
			NowUTC:          time.Now().UTC().Format(time.RFC3339Nano),
			FirmwareID:      fmt.Sprintf("0x%X", shm.FirmwareID),
			FirmwareVersion: fmt.Sprintf("0x%X", shm.FirmwareVersion),
			GoVersion:       runtime.Version(),
		}
		if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
			for _, s := range bi.Settings {
				switch s.Key {
				case "vcs.revision":
					resp.Commit = s.Value
				case "vcs.modified":
					resp.Dirty = s.Value == "true"
				}
			}
		}

		b, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})
}
