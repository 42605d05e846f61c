package ports

import (
	"time"

	"github.com/Agrid-Dev/puritank/internal/rig"
)

// SnapshotDTO is the JSON view of a rig.Snapshot shared by the status
// controllers. Invalid readings are null.
type SnapshotDTO struct {
	DeviceID        string          `json:"device_id"`
	Active          bool            `json:"active"`
	CycleID         string          `json:"cycle_id,omitempty"`
	ActivatedAt     *time.Time      `json:"activated_at,omitempty"`
	ElapsedSeconds  float64         `json:"elapsed_s"`
	Verdict         string          `json:"verdict"`
	FailSafe        bool            `json:"fail_safe"`
	ExpectedTDS     float64         `json:"expected_tds"`
	Readings        ReadingsDTO     `json:"readings"`
	ZeroTimerArmed  bool            `json:"zero_timer_armed"`
	Band            string          `json:"band"`
	PumpOn          bool            `json:"pump_on"`
	Outputs         map[string]bool `json:"outputs"`
	CompletedCycles int             `json:"completed_cycles"`
}

type ReadingsDTO struct {
	TDS        *float64 `json:"tds"`
	Turbidity  *float64 `json:"turbidity"`
	Refractive *float64 `json:"refractive"`
	TankA      *float64 `json:"tank_a"`
	TankC      *float64 `json:"tank_c"`
}

func ToDTO(deviceID string, s rig.Snapshot) SnapshotDTO {
	dto := SnapshotDTO{
		DeviceID:        deviceID,
		Active:          s.Active,
		CycleID:         s.Cycle.ID,
		Verdict:         s.Decision.Verdict.String(),
		FailSafe:        s.Decision.FailSafe,
		ExpectedTDS:     s.Expected,
		ZeroTimerArmed:  s.ZeroTimerArmed,
		Band:            s.Band.String(),
		PumpOn:          s.PumpOn,
		Outputs:         make(map[string]bool, len(rig.AllActuators)),
		CompletedCycles: s.CompletedCycles,
		Readings: ReadingsDTO{
			TDS:        value(s.Readings.TDS),
			Turbidity:  value(s.Readings.Turbidity),
			Refractive: value(s.Readings.Refractive),
			TankA:      value(s.Readings.TankA),
			TankC:      value(s.Readings.TankC),
		},
	}
	if !s.Cycle.ActivatedAt.IsZero() {
		at := s.Cycle.ActivatedAt
		dto.ActivatedAt = &at
	}
	if s.Active {
		dto.ElapsedSeconds = s.LastTick.Sub(s.Cycle.ActivatedAt).Seconds()
	}
	for _, a := range rig.AllActuators {
		dto.Outputs[a.String()] = s.Outputs.Get(a)
	}
	return dto
}

func value(r rig.Reading) *float64 {
	if !r.Valid {
		return nil
	}
	v := r.Value
	return &v
}
