package codegen

import (
	"time"

	"github.com/natheelic/iot-device-hub/internal/types"
)

// Template selectors understood by the generator. advanced_iot and
// relay_control currently alias basic_sensor for both families: they are
// registered names whose distinguishing logic does not exist yet, so
// callers must not assume distinct output per selector.
const (
	TemplateBasicSensor  = "basic_sensor"
	TemplateAdvancedIoT  = "advanced_iot"
	TemplateRelayControl = "relay_control"
)

type renderFunc func(g *Generator, p types.DeviceProfile) string

// Generator turns a device profile into ready-to-flash MicroPython source.
// Generation is a pure text transformation: no I/O, no stores, safe to call
// concurrently. The only non-deterministic output is the informational
// timestamp in the header comment, produced by the injected clock.
type Generator struct {
	templates map[types.HardwareFamily]map[string]renderFunc
	defaults  map[types.HardwareFamily]string
	now       func() time.Time
}

func New() *Generator {
	return &Generator{
		templates: map[types.HardwareFamily]map[string]renderFunc{
			types.FamilyESP32: {
				TemplateBasicSensor:  (*Generator).esp32BasicSensor,
				TemplateAdvancedIoT:  (*Generator).esp32BasicSensor,
				TemplateRelayControl: (*Generator).esp32BasicSensor,
			},
			types.FamilyPicoWH: {
				TemplateBasicSensor:  (*Generator).picoBasicSensor,
				TemplateAdvancedIoT:  (*Generator).picoBasicSensor,
				TemplateRelayControl: (*Generator).picoBasicSensor,
			},
		},
		defaults: map[types.HardwareFamily]string{
			types.FamilyESP32:  TemplateBasicSensor,
			types.FamilyPicoWH: TemplateBasicSensor,
		},
		now: time.Now,
	}
}

// Resolve applies the fallback policy: an unregistered selector resolves to
// the family default, and a family with no registered templates (ESP8266,
// or anything unrecognized) resolves to the global default family. Resolve
// never fails.
func (g *Generator) Resolve(family types.HardwareFamily, selector string) (types.HardwareFamily, string) {
	if _, ok := g.templates[family]; !ok {
		family = types.DefaultFamily
	}
	if _, ok := g.templates[family][selector]; !ok {
		selector = g.defaults[family]
	}
	return family, selector
}

// Generate renders firmware source for the profile. Total over all
// profiles: an unknown selector or family falls back per Resolve.
func (g *Generator) Generate(p types.DeviceProfile, selector string) string {
	family, selector := g.Resolve(p.DeviceType, selector)
	return g.templates[family][selector](g, p)
}

// timestamp is the header generation time. Informational only; nothing
// parses it back.
func (g *Generator) timestamp() string {
	return g.now().Format("2006-01-02 15:04:05")
}

// effectiveSensors interprets the profile's capability flags. A profile
// that enables nothing gets the stock sensor set rather than firmware that
// reads nothing.
func effectiveSensors(sc types.SensorConfig) types.SensorConfig {
	if sc == (types.SensorConfig{}) {
		return types.SensorConfig{Temperature: true, Humidity: true, Light: true}
	}
	return sc
}

func fallbackString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
