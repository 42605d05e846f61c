package rig

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Cycle is one run from trigger activation to completion.
type Cycle struct {
	ID          string
	ActivatedAt time.Time
	Decided     bool
}

type Snapshot struct {
	Active          bool
	Cycle           Cycle
	Decision        Decision // kept after completion until the next cycle starts
	Expected        float64  // live compensated threshold, 0 while Tank A is unreadable
	Readings        Readings
	ZeroTimerArmed  bool
	ZeroTimerSince  time.Time
	Band            Band
	PumpOn          bool
	Outputs         Outputs
	CompletedCycles int
	LastTick        time.Time
}

type Controller struct {
	mu     sync.RWMutex
	params Params
	io     IO
	clock  Clock
	log    *zap.Logger

	debouncer  *Debouncer
	completion *CompletionDetector
	thermal    *ThermalRegulator

	active         bool
	startRequested bool
	desired        Outputs
	applied        Outputs
	synced         [8]bool
	s              Snapshot
}

// New validates params and builds an idle controller. A nil clock means the
// system clock; a nil logger discards logs.
func New(params Params, io IO, clock Clock, logger *zap.Logger) (*Controller, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if io.Sensors == nil || io.Actuators == nil || io.Trigger == nil {
		return nil, ErrMissingIO
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		params:     params,
		io:         io,
		clock:      clock,
		log:        logger,
		debouncer:  NewDebouncer(params.Debounce),
		completion: NewCompletionDetector(params.Completion),
		thermal:    NewThermalRegulator(params.Thermal, clock.Now()),
		desired:    IdleOutputs(),
	}
	c.s.Outputs = c.desired
	return c, nil
}

func (c *Controller) Get() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s
}

// RequestStart asks for a cycle to begin on the next tick, as if the switch
// had been pressed cleanly.
func (c *Controller) RequestStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active {
		return ErrCycleActive
	}
	c.startRequested = true
	return nil
}

func (c *Controller) ExpectedThreshold(temperature float64) float64 {
	return c.params.Purity.Table.Expected(c.params.Purity.ReferenceConcentration, temperature)
}

// Tick runs one control step at now: debounce, purity decision, completion,
// then thermal regulation.
func (c *Controller) Tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	level, err := c.io.Trigger.Read()
	if err != nil {
		c.log.Warn("trigger read failed", zap.Error(err))
		level = LevelReleased
	}
	pressed := c.debouncer.Update(level, now)
	if !c.active && (pressed || c.startRequested) {
		source := "trigger"
		if !pressed {
			source = "remote"
		}
		c.activate(now, source)
	}
	c.startRequested = false

	if c.active {
		c.process(now)
	}

	c.flush()
	c.s.LastTick = now
	c.s.Active = c.active
	c.s.Outputs = c.applied
	c.s.ZeroTimerArmed, c.s.ZeroTimerSince = c.completion.Armed()
	c.s.PumpOn = c.thermal.Pump().On
}

func (c *Controller) activate(now time.Time, source string) {
	c.active = true
	c.completion.Disarm()
	c.s.Cycle = Cycle{ID: uuid.NewString(), ActivatedAt: now}
	c.s.Decision = Decision{}
	c.log.Info("cycle started", zap.String("cycle_id", c.s.Cycle.ID), zap.String("source", source))
}

func (c *Controller) process(now time.Time) {
	r := Sample(c.io.Sensors)
	c.noteInvalid(r)
	c.s.Readings = r
	c.s.Expected = 0
	if r.TankA.Valid {
		c.s.Expected = c.ExpectedThreshold(r.TankA.Value)
	}

	elapsed := now.Sub(c.s.Cycle.ActivatedAt)

	if !c.s.Cycle.Decided && elapsed >= c.params.Purity.DecisionDelay {
		c.decide(r)
	}
	if c.completion.Update(r.TDS, now) {
		c.complete(elapsed)
	}
	// Runs on the completing tick too: the cycle was live when it was sampled.
	if elapsed >= c.params.Thermal.StartupDelay {
		c.regulate(r.TankC, now)
	}
}

func (c *Controller) decide(r Readings) {
	d := c.params.Purity.Decide(r)
	c.s.Cycle.Decided = true
	c.s.Decision = d

	switch d.Verdict {
	case VerdictPure:
		c.desired.PureIndicator = true
	case VerdictImpure:
		c.desired.ImpureIndicator = true
		c.desired.Alarm = true
	}
	c.desired.Transfer = false

	fields := []zap.Field{
		zap.String("cycle_id", c.s.Cycle.ID),
		zap.Stringer("verdict", d.Verdict),
		zap.Float64("expected", d.Expected),
		zap.Stringer("tds", r.TDS),
		zap.Stringer("turbidity", r.Turbidity),
		zap.Stringer("refractive", r.Refractive),
		zap.Stringer("tank_a", r.TankA),
	}
	if d.FailSafe {
		c.log.Warn("purity decided on invalid readings", fields...)
		return
	}
	c.log.Info("purity decided", fields...)
}

func (c *Controller) complete(elapsed time.Duration) {
	c.desired.Transfer = true
	c.desired.PureIndicator = false
	c.desired.ImpureIndicator = false
	c.desired.Alarm = false
	c.active = false
	c.s.CompletedCycles++
	c.log.Info("cycle completed",
		zap.String("cycle_id", c.s.Cycle.ID),
		zap.Stringer("verdict", c.s.Decision.Verdict),
		zap.Duration("elapsed", elapsed),
	)
}

func (c *Controller) regulate(tankC Reading, now time.Time) {
	out := c.thermal.Update(tankC, now)
	if out.Band != c.s.Band {
		c.log.Info("thermal band changed",
			zap.Stringer("from", c.s.Band),
			zap.Stringer("to", out.Band),
			zap.Stringer("tank_c", tankC),
		)
		c.s.Band = out.Band
	}

	c.desired.Heater = out.Heater
	c.desired.Cooler = out.Cooler
	if out.Suppressed {
		return
	}
	c.desired.Fan = out.Fan
	c.desired.Pump = out.Pump
}

// flush writes every output that differs from what the hardware last
// accepted. Failed writes are retried on the next tick.
func (c *Controller) flush() {
	for _, a := range AllActuators {
		i := a.Index()
		want := c.desired.Get(a)
		if c.synced[i] && c.applied.Get(a) == want {
			continue
		}
		if err := c.io.Actuators.Set(a, want); err != nil {
			c.synced[i] = false
			c.log.Warn("actuator write failed", zap.Stringer("actuator", a), zap.Bool("on", want), zap.Error(err))
			continue
		}
		c.applied.Set(a, want)
		c.synced[i] = true
	}
}

// noteInvalid logs sensors that just became unreadable.
func (c *Controller) noteInvalid(r Readings) {
	check := func(name string, prev, cur Reading) {
		if !cur.Valid && (prev.Valid || prev.Err == nil) {
			c.log.Warn("invalid reading", zap.String("sensor", name), zap.Error(cur.Err))
		}
	}
	check("tds", c.s.Readings.TDS, r.TDS)
	check("turbidity", c.s.Readings.Turbidity, r.Turbidity)
	check("refractive", c.s.Readings.Refractive, r.Refractive)
	check("tank_a", c.s.Readings.TankA, r.TankA)
	check("tank_c", c.s.Readings.TankC, r.TankC)
}

func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick(c.clock.Now())
		}
	}
}
