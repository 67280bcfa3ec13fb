//go:build !linux

package gpio

import "fmt"

func Open(chipPath string, offset int, lineName, consumer string) (Pin, error) {
	return nil, fmt.Errorf("gpio: unsupported on this platform")
}
