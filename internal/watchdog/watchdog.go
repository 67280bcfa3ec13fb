// Package watchdog services the hardware watchdog. If the IMU loop stops
// kicking it for longer than the timeout, the system resets.
package watchdog

// Kicker restarts the watchdog countdown.
type Kicker interface {
	Kick() error
}

// Nop is used when no watchdog is configured.
type Nop struct{}

func (Nop) Kick() error  { return nil }
func (Nop) Close() error { return nil }
