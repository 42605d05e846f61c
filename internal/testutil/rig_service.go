package testutil

import (
	"sync"
	"time"

	"github.com/Agrid-Dev/puritank/internal/rig"
)

// FakeRigService is a reusable fake implementing ports.RigService.
// Put ONLY what multiple test packages need here.
type FakeRigService struct {
	mu sync.Mutex
	S  rig.Snapshot

	RequestStartCalls int
	RequestStartErr   error

	Reference float64
	Table     rig.ThresholdTable
}

func NewFakeRigService() *FakeRigService {
	at := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	return &FakeRigService{
		S: rig.Snapshot{
			Active:   true,
			Cycle:    rig.Cycle{ID: "cycle-1", ActivatedAt: at},
			Expected: 450,
			Readings: rig.Readings{
				TDS:        rig.Reading{Value: 100, Valid: true},
				Turbidity:  rig.Reading{Value: 4085, Valid: true},
				Refractive: rig.Reading{Value: 3500, Valid: true},
				TankA:      rig.Reading{Value: 25, Valid: true},
				TankC:      rig.Reading{Value: 20, Valid: true},
			},
			Band:     rig.BandNormal,
			Outputs:  rig.IdleOutputs(),
			LastTick: at.Add(5 * time.Second),
		},
		Reference: 450,
		Table:     rig.DefaultThresholdTable(),
	}
}

func (f *FakeRigService) Get() rig.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.S
}

// Set replaces the snapshot returned by Get.
func (f *FakeRigService) Set(s rig.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.S = s
}

func (f *FakeRigService) RequestStart() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RequestStartCalls++
	return f.RequestStartErr
}

// FailStart makes later RequestStart calls return err.
func (f *FakeRigService) FailStart(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RequestStartErr = err
}

func (f *FakeRigService) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RequestStartCalls
}

func (f *FakeRigService) ExpectedThreshold(temperature float64) float64 {
	return f.Table.Expected(f.Reference, temperature)
}
