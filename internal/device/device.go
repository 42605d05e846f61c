// Package device assembles the rig's sensors, actuators and start switch
// from the configured hardware backends.
package device

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Agrid-Dev/puritank/internal/hardware/gpiohw"
	"github.com/Agrid-Dev/puritank/internal/hardware/modbushw"
	"github.com/Agrid-Dev/puritank/internal/hardware/serialhw"
	"github.com/Agrid-Dev/puritank/internal/rig"
	"github.com/Agrid-Dev/puritank/internal/sim"
)

type Backend string

const (
	BackendSim    Backend = "sim"
	BackendSerial Backend = "serial"
	BackendModbus Backend = "modbus"
	BackendGPIO   Backend = "gpio"
)

var (
	ErrUnknownBackend     = errors.New("unknown hardware backend")
	ErrUnsupportedBackend = errors.New("backend cannot serve this role")
)

func (b Backend) Valid() bool {
	switch b {
	case BackendSim, BackendSerial, BackendModbus, BackendGPIO:
		return true
	default:
		return false
	}
}

type Config struct {
	Sensors   Backend
	Actuators Backend
	Trigger   Backend

	GPIO   gpiohw.Config
	Serial serialhw.Config
	Modbus modbushw.Config
	Sim    sim.Params
}

func (c *Config) Validate() error {
	for _, role := range []struct {
		name string
		b    Backend
	}{{"sensors", c.Sensors}, {"actuators", c.Actuators}, {"trigger", c.Trigger}} {
		if !role.b.Valid() {
			return fmt.Errorf("%s %q: %w", role.name, role.b, ErrUnknownBackend)
		}
	}
	// The GPIO header has no analog inputs.
	if c.Sensors == BackendGPIO {
		return fmt.Errorf("sensors %q: %w", c.Sensors, ErrUnsupportedBackend)
	}
	return nil
}

// Device is the assembled rig hardware. Backends shared by several roles
// are opened once.
type Device struct {
	ID  string
	IO  rig.IO
	Sim *sim.Rig // set when any role runs on the simulator

	gpio    *gpiohw.Device
	serial  *serialhw.Link
	modbus  *modbushw.Module
	closers []io.Closer
}

func Open(id string, cfg Config, clock rig.Clock, logger *zap.Logger) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Device{ID: id}

	sensors, err := d.backend(cfg.Sensors, cfg, clock, logger)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open sensors: %w", err)
	}
	actuators, err := d.backend(cfg.Actuators, cfg, clock, logger)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open actuators: %w", err)
	}
	trigger, err := d.backend(cfg.Trigger, cfg, clock, logger)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open trigger: %w", err)
	}

	d.IO = rig.IO{
		Sensors:   sensors.(rig.Sensors),
		Actuators: actuators.(rig.Actuators),
		Trigger:   trigger.(rig.Trigger),
	}
	logger.Info("hardware ready",
		zap.String("device_id", id),
		zap.String("sensors", string(cfg.Sensors)),
		zap.String("actuators", string(cfg.Actuators)),
		zap.String("trigger", string(cfg.Trigger)),
	)
	return d, nil
}

// backend returns the shared instance for b, opening it on first use.
// Every returned value implements the roles Validate allows for b.
func (d *Device) backend(b Backend, cfg Config, clock rig.Clock, logger *zap.Logger) (any, error) {
	switch b {
	case BackendSim:
		if d.Sim == nil {
			r, err := sim.NewRig(cfg.Sim, clock)
			if err != nil {
				return nil, err
			}
			d.Sim = r
		}
		return d.Sim, nil
	case BackendSerial:
		if d.serial == nil {
			l, err := serialhw.Open(cfg.Serial, clock, logger.Named("serial"))
			if err != nil {
				return nil, err
			}
			d.serial = l
			d.closers = append(d.closers, l)
		}
		return d.serial, nil
	case BackendModbus:
		if d.modbus == nil {
			m, err := modbushw.Dial(cfg.Modbus)
			if err != nil {
				return nil, err
			}
			d.modbus = m
			d.closers = append(d.closers, m)
		}
		return d.modbus, nil
	case BackendGPIO:
		if d.gpio == nil {
			g, err := gpiohw.Open(cfg.GPIO)
			if err != nil {
				return nil, err
			}
			d.gpio = g
			d.closers = append(d.closers, g)
		}
		return d.gpio, nil
	default:
		return nil, fmt.Errorf("%q: %w", b, ErrUnknownBackend)
	}
}

// Close releases every opened backend in reverse order.
func (d *Device) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
