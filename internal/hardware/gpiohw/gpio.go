// Package gpiohw drives the start switch and the relay board through the
// Linux GPIO character device.
package gpiohw

import (
	"errors"
	"fmt"

	"github.com/Agrid-Dev/puritank/internal/rig"
)

var (
	ErrUnsupported     = errors.New("gpio: not supported on this platform (requires Linux)")
	ErrMissingRelay    = errors.New("gpio: relay not configured")
	ErrDuplicateOffset = errors.New("gpio: line offset used twice")
)

// Pin is one GPIO line. ActiveLow lines are driven low (or read low) for the
// logical on state.
type Pin struct {
	Offset    int
	ActiveLow bool
}

type Config struct {
	Chip    string
	Trigger Pin
	Relays  map[rig.Actuator]Pin
}

func (c *Config) Validate() error {
	seen := map[int]bool{c.Trigger.Offset: true}
	for _, a := range rig.AllActuators {
		p, ok := c.Relays[a]
		if !ok {
			return fmt.Errorf("%v: %w", a, ErrMissingRelay)
		}
		if seen[p.Offset] {
			return fmt.Errorf("%v offset %d: %w", a, p.Offset, ErrDuplicateOffset)
		}
		seen[p.Offset] = true
	}
	return nil
}

// RawLevel converts a logical state to the value written on the line.
func RawLevel(on bool, p Pin) int {
	if on != p.ActiveLow {
		return 1
	}
	return 0
}

// Logical converts a raw line value to the logical state.
func Logical(raw int, p Pin) bool {
	return (raw != 0) != p.ActiveLow
}

// line is the subset of *gpiocdev.Line used here.
type line interface {
	Value() (int, error)
	SetValue(value int) error
	Close() error
}

// Device is the trigger input plus the eight relay outputs. It implements
// rig.Trigger and rig.Actuators.
type Device struct {
	cfg     Config
	trigger line
	relays  map[rig.Actuator]line
	close   func() error
}

func (d *Device) Read() (rig.Level, error) {
	raw, err := d.trigger.Value()
	if err != nil {
		return rig.LevelReleased, fmt.Errorf("read trigger line %d: %w", d.cfg.Trigger.Offset, err)
	}
	if Logical(raw, d.cfg.Trigger) {
		return rig.LevelPressed, nil
	}
	return rig.LevelReleased, nil
}

func (d *Device) Set(a rig.Actuator, on bool) error {
	l, ok := d.relays[a]
	if !ok {
		return fmt.Errorf("%v: %w", a, ErrMissingRelay)
	}
	p := d.cfg.Relays[a]
	if err := l.SetValue(RawLevel(on, p)); err != nil {
		return fmt.Errorf("set %v (line %d): %w", a, p.Offset, err)
	}
	return nil
}

// Close releases every line, then the chip.
func (d *Device) Close() error {
	var errs []error
	if d.trigger != nil {
		if err := d.trigger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trigger line: %w", err))
		}
	}
	for _, a := range rig.AllActuators {
		l, ok := d.relays[a]
		if !ok {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %v line: %w", a, err))
		}
	}
	if d.close != nil {
		if err := d.close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
