package codegen

import (
	"github.com/natheelic/iot-device-hub/internal/types"
)

// Per-family default pin assignments, used when a profile leaves a role
// unassigned. The Pico addresses its onboard LED by name, everything else
// is numeric.
var defaultPins = map[types.HardwareFamily]types.PinConfig{
	types.FamilyESP32: {
		types.RoleTemperaturePin: types.NumericPin(4),
		types.RoleLightPin:       types.NumericPin(32),
		types.RoleLEDPin:         types.NumericPin(2),
	},
	types.FamilyPicoWH: {
		types.RoleTemperaturePin: types.NumericPin(2),
		types.RoleLightPin:       types.NumericPin(26),
		types.RoleLEDPin:         types.NamedPin("LED"),
	},
}

// DefaultPins returns a copy of the default pin assignment for a family.
// Unrecognized families get the global default family's pins.
func DefaultPins(family types.HardwareFamily) types.PinConfig {
	defaults, ok := defaultPins[family]
	if !ok {
		defaults = defaultPins[types.DefaultFamily]
	}

	pins := make(types.PinConfig, len(defaults))
	for role, pin := range defaults {
		pins[role] = pin
	}
	return pins
}

// resolvePin picks the profile's pin for a role, falling back to the
// family default.
func resolvePin(p types.DeviceProfile, family types.HardwareFamily, role string) types.PinID {
	return p.PinConfig.Get(role, defaultPins[family][role])
}
