//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Open requests a line on chipPath (e.g. /dev/gpiochip0) as an output
// driven low. lineName, when set, is looked up instead of using offset.
func Open(chipPath string, offset int, lineName, consumer string) (Pin, error) {
	chip, err := gpiocdev.NewChip(chipPath)
	if err != nil {
		return nil, fmt.Errorf("gpio: open %s: %w", chipPath, err)
	}
	if lineName != "" {
		offset, err = chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			return nil, fmt.Errorf("gpio: line %q not found on %s: %w", lineName, chipPath, err)
		}
	}
	if offset < 0 {
		_ = chip.Close()
		return nil, fmt.Errorf("gpio: invalid line offset %d", offset)
	}
	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
	if err != nil {
		_ = chip.Close()
		return nil, fmt.Errorf("gpio: request %s:%d: %w", chipPath, offset, err)
	}
	return &cdevPin{chip: chip, line: line}, nil
}

type cdevPin struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (p *cdevPin) Set(v int) error {
	if p == nil || p.line == nil {
		return fmt.Errorf("gpio: line not initialized")
	}
	if v != 0 {
		v = 1
	}
	return p.line.SetValue(v)
}

func (p *cdevPin) Close() error {
	if p == nil || p.line == nil {
		return nil
	}
	// Leave the strobe low.
	_ = p.line.SetValue(0)
	err := p.line.Close()
	p.line = nil
	if p.chip != nil {
		_ = p.chip.Close()
		p.chip = nil
	}
	return err
}
