// Package modbushw reads the rig through a Modbus I/O module.
//
// Register map (unit side):
//
//	input registers 0..2  TDS, turbidity, refractive index (raw counts)
//	input registers 3..4  Tank A, Tank C temperature (signed, °C x100)
//	discrete input 0      start switch (1 = pressed)
//	coils 0..7            actuators in rig.AllActuators order
package modbushw

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/goburrow/modbus"

	"github.com/Agrid-Dev/puritank/internal/rig"
)

const (
	RegTDS uint16 = iota
	RegTurbidity
	RegRefractive
	RegTankA
	RegTankC
)

const TemperatureScale = 100

var ErrShortResponse = errors.New("modbus: short response")

type Config struct {
	Addr     string // Modbus TCP host:port
	Device   string // serial device; selects Modbus RTU when set
	BaudRate int
	UnitID   byte
	Timeout  time.Duration
}

type handler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

// Module implements rig.Sensors, rig.Trigger and rig.Actuators.
type Module struct {
	handler handler
	client  modbus.Client
}

// Dial connects to the I/O module over TCP, or RTU when cfg.Device is set.
func Dial(cfg Config) (*Module, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	var h handler
	if cfg.Device != "" {
		rtu := modbus.NewRTUClientHandler(cfg.Device)
		rtu.BaudRate = cfg.BaudRate
		if rtu.BaudRate == 0 {
			rtu.BaudRate = 19200
		}
		rtu.DataBits = 8
		rtu.Parity = "N"
		rtu.StopBits = 1
		rtu.SlaveId = cfg.UnitID
		rtu.Timeout = cfg.Timeout
		h = rtu
	} else {
		tcp := modbus.NewTCPClientHandler(cfg.Addr)
		tcp.SlaveId = cfg.UnitID
		tcp.Timeout = cfg.Timeout
		h = tcp
	}
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus connect: %w", err)
	}
	return &Module{handler: h, client: modbus.NewClient(h)}, nil
}

func (m *Module) register(addr uint16) (uint16, error) {
	res, err := m.client.ReadInputRegisters(addr, 1)
	if err != nil {
		return 0, fmt.Errorf("read input register %d: %w", addr, err)
	}
	if len(res) < 2 {
		return 0, ErrShortResponse
	}
	return binary.BigEndian.Uint16(res[0:2]), nil
}

func (m *Module) counts(addr uint16) (float64, error) {
	v, err := m.register(addr)
	if err != nil {
		return 0, err
	}
	return float64(v), nil
}

func (m *Module) temperature(addr uint16) (float64, error) {
	v, err := m.register(addr)
	if err != nil {
		return 0, err
	}
	return DecodeTemperature(v), nil
}

func (m *Module) TDSProxy() (float64, error)         { return m.counts(RegTDS) }
func (m *Module) Turbidity() (float64, error)        { return m.counts(RegTurbidity) }
func (m *Module) RefractiveIndex() (float64, error)  { return m.counts(RegRefractive) }
func (m *Module) TankATemperature() (float64, error) { return m.temperature(RegTankA) }
func (m *Module) TankCTemperature() (float64, error) { return m.temperature(RegTankC) }

func (m *Module) Read() (rig.Level, error) {
	res, err := m.client.ReadDiscreteInputs(0, 1)
	if err != nil {
		return rig.LevelReleased, fmt.Errorf("read trigger input: %w", err)
	}
	if len(res) < 1 {
		return rig.LevelReleased, ErrShortResponse
	}
	if res[0]&0x01 != 0 {
		return rig.LevelPressed, nil
	}
	return rig.LevelReleased, nil
}

func (m *Module) Set(a rig.Actuator, on bool) error {
	if !a.Valid() {
		return fmt.Errorf("modbus: unknown actuator %d", int(a))
	}
	value := uint16(0x0000)
	if on {
		value = 0xFF00
	}
	if _, err := m.client.WriteSingleCoil(uint16(a.Index()), value); err != nil {
		return fmt.Errorf("write coil %d (%v): %w", a.Index(), a, err)
	}
	return nil
}

func (m *Module) Close() error {
	return m.handler.Close()
}

func DecodeTemperature(u uint16) float64 {
	return float64(int16(u)) / TemperatureScale
}

func EncodeTemperature(v float64) uint16 {
	r := min(max(int(math.Round(v*TemperatureScale)), math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}
