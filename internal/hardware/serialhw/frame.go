package serialhw

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Agrid-Dev/puritank/internal/rig"
)

// Frame is one sample line streamed by the front-end MCU.
type Frame struct {
	At         time.Time
	TDS        float64
	Turbidity  float64
	Refractive float64
	TankA      float64
	TankC      float64
	Trigger    rig.Level
}

// ParseFrame parses a sample line.
// Format: S,tds,turbidity,refractive,tankA,tankC,trigger
// Example: S,112,4088,3512,24.81,19.50,0
func ParseFrame(line string) (Frame, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 7 || parts[0] != "S" {
		return Frame{}, fmt.Errorf("%w: %q", ErrBadFrame, line)
	}

	var values [5]float64
	for i := range values {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: field %d: %v", ErrBadFrame, i+1, err)
		}
		values[i] = v
	}

	var trigger rig.Level
	switch parts[6] {
	case "0":
		trigger = rig.LevelReleased
	case "1":
		trigger = rig.LevelPressed
	default:
		return Frame{}, fmt.Errorf("%w: trigger %q", ErrBadFrame, parts[6])
	}

	return Frame{
		TDS:        values[0],
		Turbidity:  values[1],
		Refractive: values[2],
		TankA:      values[3],
		TankC:      values[4],
		Trigger:    trigger,
	}, nil
}

// EncodeOutputs builds the actuator command line, one digit per output in
// rig.AllActuators order.
// Example: O,00010010
func EncodeOutputs(o rig.Outputs) string {
	var b strings.Builder
	b.WriteString("O,")
	for _, a := range rig.AllActuators {
		if o.Get(a) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	b.WriteByte('\n')
	return b.String()
}
