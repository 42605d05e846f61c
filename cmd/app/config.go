package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	modbusctrl "github.com/Agrid-Dev/puritank/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/puritank/internal/controllers/mqtt"
	"github.com/Agrid-Dev/puritank/internal/device"
	"github.com/Agrid-Dev/puritank/internal/hardware/gpiohw"
	"github.com/Agrid-Dev/puritank/internal/hardware/modbushw"
	"github.com/Agrid-Dev/puritank/internal/hardware/serialhw"
	"github.com/Agrid-Dev/puritank/internal/logging"
	"github.com/Agrid-Dev/puritank/internal/rig"
	"github.com/Agrid-Dev/puritank/internal/sim"
)

// EnvPrefix is stripped from environment variables before they are mapped to
// configuration keys.
const EnvPrefix = "PURITANK_"

var ErrUnsupportedExtension = errors.New("unsupported config extension")

type Config struct {
	DeviceID     string         `koanf:"device_id" yaml:"device_id"`
	TickInterval time.Duration  `koanf:"tick_interval" yaml:"tick_interval"`
	Logging      logging.Config `koanf:"logging" yaml:"logging"`

	Trigger    TriggerConfig    `koanf:"trigger" yaml:"trigger"`
	Purity     PurityConfig     `koanf:"purity" yaml:"purity"`
	Completion CompletionConfig `koanf:"completion" yaml:"completion"`
	Thermal    ThermalConfig    `koanf:"thermal" yaml:"thermal"`

	Hardware    HardwareConfig `koanf:"hardware" yaml:"hardware"`
	Controllers struct {
		HTTP   HTTPConfig   `koanf:"http" yaml:"http"`
		MQTT   MQTTConfig   `koanf:"mqtt" yaml:"mqtt"`
		MODBUS ModbusConfig `koanf:"modbus" yaml:"modbus"`
	} `koanf:"controllers" yaml:"controllers"`
}

type TriggerConfig struct {
	Debounce time.Duration `koanf:"debounce" yaml:"debounce"`
}

type BreakpointConfig struct {
	Temperature float64 `koanf:"temperature" yaml:"temperature"`
	Multiplier  float64 `koanf:"multiplier" yaml:"multiplier"`
}

type PurityConfig struct {
	DecisionDelay          time.Duration      `koanf:"decision_delay" yaml:"decision_delay"`
	ReferenceConcentration float64            `koanf:"reference_concentration" yaml:"reference_concentration"`
	TurbidityMin           float64            `koanf:"turbidity_min" yaml:"turbidity_min"`
	TurbidityMax           float64            `koanf:"turbidity_max" yaml:"turbidity_max"`
	RefractiveMin          float64            `koanf:"refractive_min" yaml:"refractive_min"`
	RefractiveMax          float64            `koanf:"refractive_max" yaml:"refractive_max"`
	Table                  []BreakpointConfig `koanf:"table" yaml:"table"`
}

type CompletionConfig struct {
	ZeroThreshold float64       `koanf:"zero_threshold" yaml:"zero_threshold"`
	Hold          time.Duration `koanf:"hold" yaml:"hold"`
}

type BandConfig struct {
	Heater  bool          `koanf:"heater" yaml:"heater"`
	Cooler  bool          `koanf:"cooler" yaml:"cooler"`
	Fan     bool          `koanf:"fan" yaml:"fan"`
	PumpOn  time.Duration `koanf:"pump_on" yaml:"pump_on"`
	PumpOff time.Duration `koanf:"pump_off" yaml:"pump_off"`
}

type ThermalConfig struct {
	StartupDelay time.Duration `koanf:"startup_delay" yaml:"startup_delay"`
	HeatBoundary float64       `koanf:"heat_boundary" yaml:"heat_boundary"`
	CoolBoundary float64       `koanf:"cool_boundary" yaml:"cool_boundary"`
	Cold         BandConfig    `koanf:"cold" yaml:"cold"`
	Normal       BandConfig    `koanf:"normal" yaml:"normal"`
	Hot          BandConfig    `koanf:"hot" yaml:"hot"`
}

type PinConfig struct {
	Offset    int  `koanf:"offset" yaml:"offset"`
	ActiveLow bool `koanf:"active_low" yaml:"active_low"`
}

type GPIOConfig struct {
	Chip    string               `koanf:"chip" yaml:"chip"`
	Trigger PinConfig            `koanf:"trigger" yaml:"trigger"`
	Relays  map[string]PinConfig `koanf:"relays" yaml:"relays"` // keyed by actuator name
}

type SerialConfig struct {
	Port       string        `koanf:"port" yaml:"port"`
	BaudRate   int           `koanf:"baud_rate" yaml:"baud_rate"`
	StaleAfter time.Duration `koanf:"stale_after" yaml:"stale_after"`
}

type ModbusModuleConfig struct {
	Addr     string        `koanf:"addr" yaml:"addr"`
	Device   string        `koanf:"device" yaml:"device"`
	BaudRate int           `koanf:"baud_rate" yaml:"baud_rate"`
	UnitID   byte          `koanf:"unit_id" yaml:"unit_id"`
	Timeout  time.Duration `koanf:"timeout" yaml:"timeout"`
}

type SimTankConfig struct {
	AmbientTemperature float64 `koanf:"ambient_temperature" yaml:"ambient_temperature"`
	Coefficient        float64 `koanf:"coefficient" yaml:"coefficient"`
	HeaterRate         float64 `koanf:"heater_rate" yaml:"heater_rate"`
	CoolerRate         float64 `koanf:"cooler_rate" yaml:"cooler_rate"`
}

type SimConfig struct {
	Tank             SimTankConfig `koanf:"tank" yaml:"tank"`
	TankCTemperature float64       `koanf:"tank_c_temperature" yaml:"tank_c_temperature"`
	TankATemperature float64       `koanf:"tank_a_temperature" yaml:"tank_a_temperature"`
	SampleTDS        float64       `koanf:"sample_tds" yaml:"sample_tds"`
	DrainRate        float64       `koanf:"drain_rate" yaml:"drain_rate"`
	Turbidity        float64       `koanf:"turbidity" yaml:"turbidity"`
	Refractive       float64       `koanf:"refractive" yaml:"refractive"`
	StepInterval     time.Duration `koanf:"step_interval" yaml:"step_interval"`
}

type HardwareConfig struct {
	Sensors   string             `koanf:"sensors" yaml:"sensors"`     // sim | serial | modbus
	Actuators string             `koanf:"actuators" yaml:"actuators"` // sim | serial | modbus | gpio
	Trigger   string             `koanf:"trigger" yaml:"trigger"`     // sim | serial | modbus | gpio
	GPIO      GPIOConfig         `koanf:"gpio" yaml:"gpio"`
	Serial    SerialConfig       `koanf:"serial" yaml:"serial"`
	Modbus    ModbusModuleConfig `koanf:"modbus" yaml:"modbus"`
	Sim       SimConfig          `koanf:"sim" yaml:"sim"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" yaml:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled" yaml:"enabled"`
	BrokerURL       string        `koanf:"broker_url" yaml:"broker_url"`
	ClientID        string        `koanf:"client_id" yaml:"client_id"`
	BaseTopic       string        `koanf:"base_topic" yaml:"base_topic"`
	QoS             byte          `koanf:"qos" yaml:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot" yaml:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval" yaml:"publish_interval"`
	Username        string        `koanf:"username" yaml:"username"`
	Password        string        `koanf:"password" yaml:"password"`
}

type ModbusConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" yaml:"addr"`
	UnitID  byte   `koanf:"unit_id" yaml:"unit_id"`
}

// Default returns the factory configuration: every role on the simulator and
// the HTTP status surface on :8080.
func Default() Config {
	p := rig.DefaultParams()
	s := sim.DefaultParams()

	cfg := Config{
		DeviceID:     "default",
		TickInterval: 10 * time.Millisecond,
		Logging:      logging.Config{Level: "info", Format: "json"},
		Trigger:      TriggerConfig{Debounce: p.Debounce},
		Purity: PurityConfig{
			DecisionDelay:          p.Purity.DecisionDelay,
			ReferenceConcentration: p.Purity.ReferenceConcentration,
			TurbidityMin:           p.Purity.TurbidityMin,
			TurbidityMax:           p.Purity.TurbidityMax,
			RefractiveMin:          p.Purity.RefractiveMin,
			RefractiveMax:          p.Purity.RefractiveMax,
		},
		Completion: CompletionConfig{
			ZeroThreshold: p.Completion.ZeroThreshold,
			Hold:          p.Completion.Hold,
		},
		Thermal: ThermalConfig{
			StartupDelay: p.Thermal.StartupDelay,
			HeatBoundary: p.Thermal.HeatBoundary,
			CoolBoundary: p.Thermal.CoolBoundary,
			Cold:         bandConfig(p.Thermal.Cold),
			Normal:       bandConfig(p.Thermal.Normal),
			Hot:          bandConfig(p.Thermal.Hot),
		},
		Hardware: HardwareConfig{
			Sensors:   string(device.BackendSim),
			Actuators: string(device.BackendSim),
			Trigger:   string(device.BackendSim),
			GPIO: GPIOConfig{
				Chip:    "gpiochip0",
				Trigger: PinConfig{Offset: 4, ActiveLow: true},
				Relays:  map[string]PinConfig{},
			},
			Serial: SerialConfig{
				BaudRate:   serialhw.DefaultBaudRate,
				StaleAfter: serialhw.DefaultStaleAfter,
			},
			Modbus: ModbusModuleConfig{
				UnitID:  1,
				Timeout: time.Second,
			},
			Sim: SimConfig{
				Tank: SimTankConfig{
					AmbientTemperature: s.Tank.AmbientTemperature,
					Coefficient:        s.Tank.Coefficient,
					HeaterRate:         s.Tank.HeaterRate,
					CoolerRate:         s.Tank.CoolerRate,
				},
				TankCTemperature: s.TankCTemperature,
				TankATemperature: s.TankATemperature,
				SampleTDS:        s.SampleTDS,
				DrainRate:        s.DrainRate,
				Turbidity:        s.Turbidity,
				Refractive:       s.Refractive,
				StepInterval:     100 * time.Millisecond,
			},
		},
	}
	for _, b := range p.Purity.Table {
		cfg.Purity.Table = append(cfg.Purity.Table, BreakpointConfig{Temperature: b.Temperature, Multiplier: b.Multiplier})
	}
	// Relay board wired to BCM 17, 18, 27, 22, 23, 24, 25, 5 in output order.
	for i, offset := range []int{17, 18, 27, 22, 23, 24, 25, 5} {
		cfg.Hardware.GPIO.Relays[rig.AllActuators[i].String()] = PinConfig{Offset: offset}
	}

	cfg.Controllers.HTTP = HTTPConfig{Enabled: true, Addr: ":8080"}
	cfg.Controllers.MQTT = MQTTConfig{
		BrokerURL:       "tcp://localhost:1883",
		QoS:             0,
		PublishInterval: time.Second,
	}
	cfg.Controllers.MODBUS = ModbusConfig{Addr: ":1502", UnitID: 1}
	return cfg
}

func bandConfig(p rig.BandProfile) BandConfig {
	return BandConfig{Heater: p.Heater, Cooler: p.Cooler, Fan: p.Fan, PumpOn: p.PumpOn, PumpOff: p.PumpOff}
}

func (b BandConfig) profile() rig.BandProfile {
	return rig.BandProfile{Heater: b.Heater, Cooler: b.Cooler, Fan: b.Fan, PumpOn: b.PumpOn, PumpOff: b.PumpOff}
}

// Load layers the defaults, the optional config file and PURITANK_*
// environment variables, in that order. A missing file is not an error.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			var parser koanf.Parser
			switch ext := strings.ToLower(filepath.Ext(path)); ext {
			case ".yaml", ".yml":
				parser = yaml.Parser()
			case ".json":
				parser = json.Parser()
			default:
				return Config{}, fmt.Errorf("%q: %w", ext, ErrUnsupportedExtension)
			}
			if err := k.Load(file.Provider(path), parser); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config: %w", err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, EnvPrefix)), value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// envSections are the nested configuration sections, most specific first.
var envSections = []string{
	"controllers.http",
	"controllers.mqtt",
	"controllers.modbus",
	"thermal.cold",
	"thermal.normal",
	"thermal.hot",
	"hardware.gpio.trigger",
	"hardware.gpio",
	"hardware.serial",
	"hardware.modbus",
	"hardware.sim.tank",
	"hardware.sim",
	"logging",
	"trigger",
	"purity",
	"completion",
	"thermal",
	"hardware",
}

const relaysPrefix = "hardware_gpio_relays_"

// envKeyTransform maps an unprefixed variable name to a configuration key:
// THERMAL_COLD_PUMP_ON becomes thermal.cold.pump_on. Names that match no
// section are lowercased and kept flat.
func envKeyTransform(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	// Actuator names contain underscores, so the field is split off the end.
	if rest, ok := strings.CutPrefix(s, relaysPrefix); ok {
		for _, field := range []string{"active_low", "offset"} {
			if name, ok := strings.CutSuffix(rest, "_"+field); ok && name != "" {
				return "hardware.gpio.relays." + name + "." + field
			}
		}
	}

	for _, section := range envSections {
		prefix := strings.ReplaceAll(section, ".", "_") + "_"
		if rest, ok := strings.CutPrefix(s, prefix); ok && rest != "" {
			return section + "." + rest
		}
	}
	return s
}

// Params converts the rig section of the configuration and validates it.
func (c Config) Params() (rig.Params, error) {
	if c.TickInterval <= 0 {
		return rig.Params{}, fmt.Errorf("tick_interval %v: %w", c.TickInterval, rig.ErrInvalidDuration)
	}
	p := rig.Params{
		Debounce: c.Trigger.Debounce,
		Purity: rig.PurityParams{
			DecisionDelay:          c.Purity.DecisionDelay,
			ReferenceConcentration: c.Purity.ReferenceConcentration,
			TurbidityMin:           c.Purity.TurbidityMin,
			TurbidityMax:           c.Purity.TurbidityMax,
			RefractiveMin:          c.Purity.RefractiveMin,
			RefractiveMax:          c.Purity.RefractiveMax,
		},
		Completion: rig.CompletionParams{
			ZeroThreshold: c.Completion.ZeroThreshold,
			Hold:          c.Completion.Hold,
		},
		Thermal: rig.ThermalParams{
			StartupDelay: c.Thermal.StartupDelay,
			HeatBoundary: c.Thermal.HeatBoundary,
			CoolBoundary: c.Thermal.CoolBoundary,
			Cold:         c.Thermal.Cold.profile(),
			Normal:       c.Thermal.Normal.profile(),
			Hot:          c.Thermal.Hot.profile(),
		},
	}
	for _, b := range c.Purity.Table {
		p.Purity.Table = append(p.Purity.Table, rig.Breakpoint{Temperature: b.Temperature, Multiplier: b.Multiplier})
	}
	if err := p.Validate(); err != nil {
		return rig.Params{}, err
	}
	return p, nil
}

// Device converts the hardware section to a device.Config.
func (c Config) Device() (device.Config, error) {
	h := c.Hardware
	relays := make(map[rig.Actuator]gpiohw.Pin, len(h.GPIO.Relays))
	for name, pin := range h.GPIO.Relays {
		a, err := rig.ParseActuator(name)
		if err != nil {
			return device.Config{}, fmt.Errorf("hardware.gpio.relays: %w", err)
		}
		relays[a] = gpiohw.Pin{Offset: pin.Offset, ActiveLow: pin.ActiveLow}
	}

	cfg := device.Config{
		Sensors:   device.Backend(h.Sensors),
		Actuators: device.Backend(h.Actuators),
		Trigger:   device.Backend(h.Trigger),
		GPIO: gpiohw.Config{
			Chip:    h.GPIO.Chip,
			Trigger: gpiohw.Pin{Offset: h.GPIO.Trigger.Offset, ActiveLow: h.GPIO.Trigger.ActiveLow},
			Relays:  relays,
		},
		Serial: serialhw.Config{
			Port:       h.Serial.Port,
			BaudRate:   h.Serial.BaudRate,
			StaleAfter: h.Serial.StaleAfter,
		},
		Modbus: modbushw.Config{
			Addr:     h.Modbus.Addr,
			Device:   h.Modbus.Device,
			BaudRate: h.Modbus.BaudRate,
			UnitID:   h.Modbus.UnitID,
			Timeout:  h.Modbus.Timeout,
		},
		Sim: sim.Params{
			Tank: sim.TankParams{
				AmbientTemperature: h.Sim.Tank.AmbientTemperature,
				Coefficient:        h.Sim.Tank.Coefficient,
				HeaterRate:         h.Sim.Tank.HeaterRate,
				CoolerRate:         h.Sim.Tank.CoolerRate,
			},
			TankCTemperature: h.Sim.TankCTemperature,
			TankATemperature: h.Sim.TankATemperature,
			SampleTDS:        h.Sim.SampleTDS,
			DrainRate:        h.Sim.DrainRate,
			Turbidity:        h.Sim.Turbidity,
			Refractive:       h.Sim.Refractive,
		},
	}
	if err := cfg.Validate(); err != nil {
		return device.Config{}, err
	}
	if h.Sim.StepInterval <= 0 {
		return device.Config{}, fmt.Errorf("hardware.sim.step_interval %v: %w", h.Sim.StepInterval, rig.ErrInvalidDuration)
	}
	return cfg, nil
}

func (c Config) MQTT() mqttctrl.Config {
	m := c.Controllers.MQTT
	return mqttctrl.Config{
		DeviceID:        c.DeviceID,
		BrokerURL:       m.BrokerURL,
		ClientID:        m.ClientID,
		BaseTopic:       m.BaseTopic,
		QoS:             m.QoS,
		RetainSnapshot:  m.RetainSnapshot,
		PublishInterval: m.PublishInterval,
		Username:        m.Username,
		Password:        m.Password,
	}
}

func (c Config) Modbus() modbusctrl.Config {
	return modbusctrl.Config{
		DeviceID: c.DeviceID,
		Addr:     c.Controllers.MODBUS.Addr,
		UnitID:   c.Controllers.MODBUS.UnitID,
	}
}
