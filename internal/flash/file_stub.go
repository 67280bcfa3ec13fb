//go:build !linux

package flash

import "github.com/pkg/errors"

func OpenFile(path string, addr uint32, pageSize int) (*Device, error) {
	return nil, errors.New("flash: page image files unsupported on this OS (need linux)")
}
