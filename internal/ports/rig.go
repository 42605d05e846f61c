package ports

import "github.com/Agrid-Dev/puritank/internal/rig"

// RigService is the control-plane port used by controllers (HTTP/MQTT/etc).
type RigService interface {
	Get() rig.Snapshot
	RequestStart() error
	ExpectedThreshold(temperature float64) float64
}
