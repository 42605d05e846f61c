// Package serialhw talks to the analog front-end MCU over a serial line.
// The MCU streams sample frames and accepts actuator command lines.
package serialhw

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/puritank/internal/rig"
)

const (
	DefaultBaudRate   = 115200
	DefaultStaleAfter = time.Second
)

var (
	ErrBadFrame   = errors.New("serial: malformed frame")
	ErrNoFrame    = errors.New("serial: no frame received yet")
	ErrStaleFrame = errors.New("serial: last frame is stale")
	ErrClosed     = errors.New("serial: link closed")
)

type Config struct {
	Port       string
	BaudRate   int
	StaleAfter time.Duration
}

// Link implements rig.Sensors, rig.Trigger and rig.Actuators on top of the
// MCU line protocol.
type Link struct {
	conn       io.ReadWriteCloser
	clock      rig.Clock
	staleAfter time.Duration
	log        *zap.Logger

	mu     sync.RWMutex
	last   Frame
	have   bool
	closed bool

	wmu     sync.Mutex
	outputs rig.Outputs

	done chan struct{}
}

// Open opens the serial port and starts reading frames.
func Open(cfg Config, clock rig.Clock, logger *zap.Logger) (*Link, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}
	return NewLink(port, cfg, clock, logger), nil
}

// NewLink starts reading frames from conn. The link owns conn.
func NewLink(conn io.ReadWriteCloser, cfg Config, clock rig.Clock, logger *zap.Logger) *Link {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if clock == nil {
		clock = rig.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Link{
		conn:       conn,
		clock:      clock,
		staleAfter: cfg.StaleAfter,
		log:        logger,
		outputs:    rig.IdleOutputs(),
		done:       make(chan struct{}),
	}
	go l.readFrames()
	return l
}

func (l *Link) readFrames() {
	defer close(l.done)

	scanner := bufio.NewScanner(l.conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		f, err := ParseFrame(line)
		if err != nil {
			l.log.Debug("dropping frame", zap.Error(err))
			continue
		}
		f.At = l.clock.Now()

		l.mu.Lock()
		l.last, l.have = f, true
		l.mu.Unlock()
	}
	if err := scanner.Err(); err != nil && !l.isClosed() {
		l.log.Warn("serial read stopped", zap.Error(err))
	}
}

func (l *Link) isClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

// Frame returns the latest frame if it is fresh enough.
func (l *Link) Frame() (Frame, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return Frame{}, ErrClosed
	}
	if !l.have {
		return Frame{}, ErrNoFrame
	}
	if age := l.clock.Now().Sub(l.last.At); age > l.staleAfter {
		return Frame{}, fmt.Errorf("%w: %v old", ErrStaleFrame, age)
	}
	return l.last, nil
}

func (l *Link) field(get func(Frame) float64) (float64, error) {
	f, err := l.Frame()
	if err != nil {
		return 0, err
	}
	return get(f), nil
}

func (l *Link) TDSProxy() (float64, error) {
	return l.field(func(f Frame) float64 { return f.TDS })
}

func (l *Link) Turbidity() (float64, error) {
	return l.field(func(f Frame) float64 { return f.Turbidity })
}

func (l *Link) RefractiveIndex() (float64, error) {
	return l.field(func(f Frame) float64 { return f.Refractive })
}

func (l *Link) TankATemperature() (float64, error) {
	return l.field(func(f Frame) float64 { return f.TankA })
}

func (l *Link) TankCTemperature() (float64, error) {
	return l.field(func(f Frame) float64 { return f.TankC })
}

func (l *Link) Read() (rig.Level, error) {
	f, err := l.Frame()
	if err != nil {
		return rig.LevelReleased, err
	}
	return f.Trigger, nil
}

// Set updates one output and sends the full output state to the MCU.
func (l *Link) Set(a rig.Actuator, on bool) error {
	if !a.Valid() {
		return fmt.Errorf("serial: unknown actuator %d", int(a))
	}
	l.wmu.Lock()
	defer l.wmu.Unlock()

	next := l.outputs
	next.Set(a, on)
	if _, err := io.WriteString(l.conn, EncodeOutputs(next)); err != nil {
		return fmt.Errorf("failed to send %v command: %w", a, err)
	}
	l.outputs = next
	return nil
}

// Close closes the port and waits for the reader to stop.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	err := l.conn.Close()
	<-l.done
	return err
}
