package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Agrid-Dev/puritank/internal/device"
	"github.com/Agrid-Dev/puritank/internal/rig"
)

func TestEnvKeyTransform_TopLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DEVICE_ID", "device_id"},
		{"TICK_INTERVAL", "tick_interval"},
		{"ADDR", "addr"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvKeyTransform_Controllers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CONTROLLERS_HTTP_ADDR", "controllers.http.addr"},
		{"CONTROLLERS_MQTT_PUBLISH_INTERVAL", "controllers.mqtt.publish_interval"},
		{"CONTROLLERS_MODBUS_UNIT_ID", "controllers.modbus.unit_id"},
		{"CONTROLLERS_HTTP", "controllers_http"}, // not enough parts -> fallback
		{"controllers_HTTP_addr", "controllers.http.addr"},
		{"CONTROLLERS_MQTT_BROKER_URL", "controllers.mqtt.broker_url"},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvKeyTransform_RigSections(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TRIGGER_DEBOUNCE", "trigger.debounce"},
		{"PURITY_REFERENCE_CONCENTRATION", "purity.reference_concentration"},
		{"COMPLETION_ZERO_THRESHOLD", "completion.zero_threshold"},
		{"THERMAL_STARTUP_DELAY", "thermal.startup_delay"},
		{"THERMAL_COLD_PUMP_ON", "thermal.cold.pump_on"},
		{"THERMAL_HOT_FAN", "thermal.hot.fan"},
		{"LOGGING_LEVEL", "logging.level"},
		{"THERMAL", "thermal"}, // not enough parts -> passthrough
		{"PURITY", "purity"},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvKeyTransform_Hardware(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HARDWARE_SENSORS", "hardware.sensors"},
		{"HARDWARE_SERIAL_PORT", "hardware.serial.port"},
		{"HARDWARE_MODBUS_UNIT_ID", "hardware.modbus.unit_id"},
		{"HARDWARE_GPIO_CHIP", "hardware.gpio.chip"},
		{"HARDWARE_GPIO_TRIGGER_ACTIVE_LOW", "hardware.gpio.trigger.active_low"},
		{"HARDWARE_GPIO_RELAYS_PURE_INDICATOR_ACTIVE_LOW", "hardware.gpio.relays.pure_indicator.active_low"},
		{"HARDWARE_GPIO_RELAYS_PUMP_OFFSET", "hardware.gpio.relays.pump.offset"},
		{"HARDWARE_SIM_TANK_COEFFICIENT", "hardware.sim.tank.coefficient"},
		{"HARDWARE_SIM_SAMPLE_TDS", "hardware.sim.sample_tds"},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DeviceID != "default" {
		t.Errorf("DeviceID = %q", cfg.DeviceID)
	}
	if !cfg.Controllers.HTTP.Enabled || cfg.Controllers.HTTP.Addr != ":8080" {
		t.Errorf("HTTP = %+v", cfg.Controllers.HTTP)
	}
	if cfg.Hardware.Sensors != "sim" {
		t.Errorf("Hardware.Sensors = %q", cfg.Hardware.Sensors)
	}

	p, err := cfg.Params()
	if err != nil {
		t.Fatalf("Params() failed: %v", err)
	}
	want := rig.DefaultParams()
	if p.Debounce != want.Debounce || p.Purity.DecisionDelay != want.Purity.DecisionDelay {
		t.Errorf("timings = %v/%v", p.Debounce, p.Purity.DecisionDelay)
	}
	if len(p.Purity.Table) != len(want.Purity.Table) {
		t.Fatalf("table has %d breakpoints, want %d", len(p.Purity.Table), len(want.Purity.Table))
	}
	if p.Thermal.Cold != want.Thermal.Cold {
		t.Errorf("cold profile = %+v, want %+v", p.Thermal.Cold, want.Thermal.Cold)
	}

	d, err := cfg.Device()
	if err != nil {
		t.Fatalf("Device() failed: %v", err)
	}
	if d.Sensors != device.BackendSim || len(d.GPIO.Relays) != len(rig.AllActuators) {
		t.Errorf("device config = %+v", d)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puritank.yaml")
	data := `
device_id: bench-7
purity:
  decision_delay: 12s
  table:
    - {temperature: 10, multiplier: 1.0}
    - {temperature: 30, multiplier: 1.5}
thermal:
  cold:
    pump_on: 7s
hardware:
  gpio:
    relays:
      alarm: {offset: 6, active_low: true}
controllers:
  mqtt:
    enabled: true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PURITANK_CONTROLLERS_HTTP_ADDR", ":9090")
	t.Setenv("PURITANK_COMPLETION_HOLD", "3s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DeviceID != "bench-7" {
		t.Errorf("DeviceID = %q", cfg.DeviceID)
	}
	if cfg.Controllers.HTTP.Addr != ":9090" {
		t.Errorf("HTTP.Addr = %q, want env override", cfg.Controllers.HTTP.Addr)
	}
	if !cfg.Controllers.MQTT.Enabled {
		t.Error("MQTT should be enabled by the file")
	}
	if cfg.Completion.Hold != 3*time.Second {
		t.Errorf("Completion.Hold = %v", cfg.Completion.Hold)
	}
	if cfg.Thermal.Cold.PumpOn != 7*time.Second || !cfg.Thermal.Cold.Cooler {
		t.Errorf("cold profile = %+v, want file value merged over defaults", cfg.Thermal.Cold)
	}
	if got := cfg.Hardware.GPIO.Relays["alarm"]; got.Offset != 6 || !got.ActiveLow {
		t.Errorf("alarm relay = %+v", got)
	}
	if got := cfg.Hardware.GPIO.Relays["pump"]; got.Offset != 5 {
		t.Errorf("pump relay = %+v, want default kept", got)
	}

	p, err := cfg.Params()
	if err != nil {
		t.Fatalf("Params() failed: %v", err)
	}
	if p.Purity.DecisionDelay != 12*time.Second || len(p.Purity.Table) != 2 {
		t.Errorf("purity = %+v", p.Purity)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puritank.toml")
	if err := os.WriteFile(path, []byte("device_id = 'x'"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error")
	}
}

func TestParamsValidates(t *testing.T) {
	cfg := Default()
	cfg.Purity.Table = []BreakpointConfig{{Temperature: 20, Multiplier: 1}, {Temperature: 10, Multiplier: 1}}
	if _, err := cfg.Params(); err == nil {
		t.Fatal("expected an unsorted table to be rejected")
	}
}

func TestDeviceRejectsUnknownRelay(t *testing.T) {
	cfg := Default()
	cfg.Hardware.GPIO.Relays["valve"] = PinConfig{Offset: 2}
	if _, err := cfg.Device(); err == nil {
		t.Fatal("expected an error")
	}
}
