//go:build linux

package gpiohw

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/Agrid-Dev/puritank/internal/rig"
)

// Open requests the trigger and relay lines. Relays are requested already
// driven to the idle state.
func Open(cfg Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	d := &Device{cfg: cfg, relays: map[rig.Actuator]line{}, close: chip.Close}

	pull := gpiocdev.WithPullDown
	if cfg.Trigger.ActiveLow {
		pull = gpiocdev.WithPullUp
	}
	trig, err := chip.RequestLine(cfg.Trigger.Offset, gpiocdev.AsInput, pull)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("request trigger pin %d: %w", cfg.Trigger.Offset, err)
	}
	d.trigger = trig

	idle := rig.IdleOutputs()
	for _, a := range rig.AllActuators {
		p := cfg.Relays[a]
		l, err := chip.RequestLine(p.Offset, gpiocdev.AsOutput(RawLevel(idle.Get(a), p)))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("request %v pin %d: %w", a, p.Offset, err)
		}
		d.relays[a] = l
	}
	return d, nil
}
