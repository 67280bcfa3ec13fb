//go:build linux

package watchdog

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Device is a Linux watchdog character device (e.g. /dev/watchdog).
type Device struct {
	f *os.File
}

// Open arms the watchdog at path with the given timeout (rounded up to whole
// seconds). The countdown starts as soon as the device is opened.
func Open(path string, timeout time.Duration) (*Device, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, errors.Wrap(err, "watchdog: open")
	}
	if timeout > 0 {
		secs := int((timeout + time.Second - 1) / time.Second)
		if err := unix.IoctlSetPointerInt(int(f.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "watchdog: set timeout %ds", secs)
		}
	}
	return &Device{f: f}, nil
}

func (d *Device) Kick() error {
	if d == nil || d.f == nil {
		return errors.New("watchdog: device closed")
	}
	if err := unix.IoctlWatchdogKeepalive(int(d.f.Fd())); err != nil {
		return errors.Wrap(err, "watchdog: keepalive")
	}
	return nil
}

// Close disarms the watchdog via the magic close character, where the
// driver supports it.
func (d *Device) Close() error {
	if d == nil || d.f == nil {
		return nil
	}
	_, _ = d.f.Write([]byte("V"))
	err := d.f.Close()
	d.f = nil
	return err
}
