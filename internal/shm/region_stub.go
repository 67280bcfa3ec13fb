//go:build !linux

package shm

import "github.com/pkg/errors"

func OpenMapped(path string, offset int64, size int) (*Region, error) {
	return nil, errors.New("shm: mapped regions unsupported on this OS (need linux)")
}
