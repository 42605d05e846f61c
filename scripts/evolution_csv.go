package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Agrid-Dev/puritank/internal/rig"
	"github.com/Agrid-Dev/puritank/internal/sim"
)

type PressCommand struct {
	At       time.Duration
	Duration time.Duration
}

// SimulateRig drives a controller against the simulated plant with a manual
// clock and writes one CSV row per tick.
func SimulateRig(total, tick time.Duration, filename string, presses []PressCommand) error {
	clock := sim.NewClock(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC))
	start := clock.Now()

	simParams := sim.DefaultParams()
	simParams.TankCTemperature = 8 // start cold so the thermal bands move
	plant, err := sim.NewRig(simParams, clock)
	if err != nil {
		return fmt.Errorf("failed to create simulated rig: %v", err)
	}
	ctrl, err := rig.New(rig.DefaultParams(), rig.IO{Sensors: plant, Actuators: plant, Trigger: plant}, clock, nil)
	if err != nil {
		return fmt.Errorf("failed to create controller: %v", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Time", "Active", "TDS", "Expected", "TankC", "Band", "Verdict", "Completed"}
	for _, a := range rig.AllActuators {
		header = append(header, a.String())
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for elapsed := time.Duration(0); elapsed <= total; elapsed += tick {
		for _, p := range presses {
			if p.At == elapsed {
				plant.Press(p.Duration)
			}
		}

		ctrl.Tick(clock.Now())
		s := ctrl.Get()

		row := []string{
			fmt.Sprintf("%.2f", clock.Now().Sub(start).Seconds()),
			strconv.FormatBool(s.Active),
			fmt.Sprintf("%.2f", s.Readings.TDS.Value),
			fmt.Sprintf("%.2f", s.Expected),
			fmt.Sprintf("%.2f", s.Readings.TankC.Value),
			s.Band.String(),
			s.Decision.Verdict.String(),
			strconv.Itoa(s.CompletedCycles),
		}
		for _, a := range rig.AllActuators {
			row = append(row, strconv.FormatBool(s.Outputs.Get(a)))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %v", err)
		}

		plant.Step(tick)
		clock.Advance(tick)
	}

	return nil
}

func main() {
	presses := []PressCommand{
		{At: time.Second, Duration: 500 * time.Millisecond},
		{At: 2 * time.Minute, Duration: 500 * time.Millisecond},
	}
	if err := SimulateRig(4*time.Minute, 100*time.Millisecond, "puritank.csv", presses); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
