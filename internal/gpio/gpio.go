// Package gpio drives single output lines, such as the sampling strobe.
package gpio

// Pin is a digital output.
type Pin interface {
	Set(v int) error
	Close() error
}

// Nop is an unconnected pin.
type Nop struct{}

func (Nop) Set(int) error { return nil }
func (Nop) Close() error  { return nil }
