package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	mbserver "github.com/tbrandon/mbserver"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/puritank/internal/ports"
	"github.com/Agrid-Dev/puritank/internal/rig"
)

// Coil map: 0 = cycle active (write ON to request a start), 1..8 = actuator
// outputs in rig.AllActuators order.
const (
	CoilActive  = 0
	coilOutputs = 1
	coilCount   = coilOutputs + 8
)

// Input register map.
const (
	IRTDS = iota
	IRTurbidity
	IRRefractive
	IRTankA
	IRTankC
	IRExpected
	IRVerdict
	IRBand
	IRElapsed
	IRCompleted
	irCount
)

// Values reported for unreadable sensors.
const (
	InvalidCounts      uint16 = 0xFFFF
	InvalidTemperature uint16 = 0x8000
)

// Config for the Modbus controller.
type Config struct {
	DeviceID string
	Addr     string
	UnitID   byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
}

type Controller struct {
	svc ports.RigService
	cfg Config
	log *zap.Logger

	serv *mbserver.Server
}

func New(svc ports.RigService, cfg Config, logger *zap.Logger) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{svc: svc, cfg: cfg, log: logger}, nil
}

// Run starts the Modbus server with handlers that read directly from the rig
// service. It blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races inside mbserver
	// between handler registration and the server's goroutines.
	serv.RegisterFunctionHandler(1, c.readCoils)
	serv.RegisterFunctionHandler(4, c.readInputRegisters)
	serv.RegisterFunctionHandler(5, c.writeSingleCoil)

	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}

	// Block until ctx.Done()
	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

// Read Coils (function 1).
func (c *Controller) readCoils(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := int(binary.BigEndian.Uint16(data[0:2]))
	qty := int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > 2000 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	if start+qty > coilCount {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	coils := c.coils(c.svc.Get())
	byteCount := (qty + 7) / 8
	resp := make([]byte, 1+byteCount)
	resp[0] = byte(byteCount)
	for i := 0; i < qty; i++ {
		if coils[start+i] {
			resp[1+i/8] |= 1 << (i % 8)
		}
	}
	return resp, &mbserver.Success
}

func (c *Controller) coils(s rig.Snapshot) [coilCount]bool {
	var coils [coilCount]bool
	coils[CoilActive] = s.Active
	for i, a := range rig.AllActuators {
		coils[coilOutputs+i] = s.Outputs.Get(a)
	}
	return coils
}

// Read Input Registers (function 4).
func (c *Controller) readInputRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := int(binary.BigEndian.Uint16(data[0:2]))
	qty := int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > 125 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	if start+qty > irCount {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	regs := inputRegisters(c.svc.Get())
	byteCount := qty * 2
	resp := make([]byte, 1+byteCount)
	resp[0] = byte(byteCount)
	for i := 0; i < qty; i++ {
		binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], regs[start+i])
	}
	return resp, &mbserver.Success
}

func inputRegisters(s rig.Snapshot) [irCount]uint16 {
	var regs [irCount]uint16
	regs[IRTDS] = encodeCounts(s.Readings.TDS)
	regs[IRTurbidity] = encodeCounts(s.Readings.Turbidity)
	regs[IRRefractive] = encodeCounts(s.Readings.Refractive)
	regs[IRTankA] = encodeReadingTemp(s.Readings.TankA)
	regs[IRTankC] = encodeReadingTemp(s.Readings.TankC)
	regs[IRExpected] = clampUint16(s.Expected)
	regs[IRVerdict] = uint16(s.Decision.Verdict)
	regs[IRBand] = uint16(s.Band)
	if s.Active {
		regs[IRElapsed] = clampUint16(s.LastTick.Sub(s.Cycle.ActivatedAt).Seconds())
	}
	regs[IRCompleted] = uint16(min(s.CompletedCycles, math.MaxUint16))
	return regs
}

// Write Single Coil (function 5) - coil 0 ON requests a start.
func (c *Controller) writeSingleCoil(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	addr := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])

	if addr != CoilActive {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	if value != 0xFF00 {
		return []byte{}, &mbserver.IllegalDataValue
	}

	if err := c.svc.RequestStart(); err != nil {
		c.log.Info("start command rejected", zap.Error(err))
		if errors.Is(err, rig.ErrCycleActive) {
			return []byte{}, &mbserver.SlaveDeviceBusy
		}
		return []byte{}, &mbserver.SlaveDeviceFailure
	}
	c.log.Info("remote start requested", zap.String("source", "modbus"))

	// echo request (address + value)
	resp := make([]byte, 4)
	copy(resp, data[0:4])
	return resp, &mbserver.Success
}

const TemperatureScale int = 100

func encodeTemp(v float64) uint16 {
	r := min(max(int(math.Round(v*float64(TemperatureScale))), math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}

func decodeTemp(u uint16) float64 {
	i := int16(u)
	return float64(i) / float64(TemperatureScale)
}

func encodeReadingTemp(r rig.Reading) uint16 {
	if !r.Valid {
		return InvalidTemperature
	}
	return encodeTemp(r.Value)
}

func encodeCounts(r rig.Reading) uint16 {
	if !r.Valid {
		return InvalidCounts
	}
	// 0xFFFF is reserved for invalid readings.
	return uint16(min(max(math.Round(r.Value), 0), math.MaxUint16-1))
}

func clampUint16(v float64) uint16 {
	return uint16(min(max(math.Round(v), 0), math.MaxUint16))
}
