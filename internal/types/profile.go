package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// HardwareFamily identifies the microcontroller family a profile targets.
type HardwareFamily string

const (
	FamilyESP32   HardwareFamily = "ESP32"
	FamilyPicoWH  HardwareFamily = "PICO_WH"
	FamilyESP8266 HardwareFamily = "ESP8266"
)

// DefaultFamily is used whenever a profile carries an unrecognized family.
const DefaultFamily = FamilyESP32

// KnownFamilies lists every family the registry accepts for new profiles.
func KnownFamilies() []HardwareFamily {
	return []HardwareFamily{FamilyESP32, FamilyPicoWH, FamilyESP8266}
}

// ParseFamily normalizes a device_type string. Unknown values fall back
// to DefaultFamily, they never fail.
func ParseFamily(s string) HardwareFamily {
	if f := HardwareFamily(s); f.IsKnown() {
		return f
	}
	return DefaultFamily
}

// IsKnown reports whether the family is one the registry accepts.
func (f HardwareFamily) IsKnown() bool {
	for _, known := range KnownFamilies() {
		if f == known {
			return true
		}
	}
	return false
}

// PinID is a hardware pin identifier. ESP32-class boards address pins by
// number while the Pico uses named constants for some pins ("LED"), so a
// pin is either numeric or named, never both.
type PinID struct {
	number int
	name   string
	named  bool
}

func NumericPin(n int) PinID {
	return PinID{number: n}
}

func NamedPin(name string) PinID {
	return PinID{name: name, named: true}
}

func (p PinID) IsNamed() bool { return p.named }

func (p PinID) Number() int { return p.number }

func (p PinID) Name() string { return p.name }

// Literal renders the pin as a MicroPython expression: bare number for
// numeric pins, quoted string for named pins.
func (p PinID) Literal() string {
	if p.named {
		return strconv.Quote(p.name)
	}
	return strconv.Itoa(p.number)
}

func (p PinID) String() string {
	if p.named {
		return p.name
	}
	return strconv.Itoa(p.number)
}

// MarshalJSON emits a number for numeric pins and a string for named ones,
// matching what device configuration payloads carry on the wire.
func (p PinID) MarshalJSON() ([]byte, error) {
	if p.named {
		return json.Marshal(p.name)
	}
	return json.Marshal(p.number)
}

// UnmarshalJSON accepts either representation. A string holding digits is
// treated as numeric so profiles survive clients that stringify numbers.
func (p *PinID) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*p = NumericPin(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("pin must be a number or a string: %s", data)
	}
	if n, err := strconv.Atoi(s); err == nil {
		*p = NumericPin(n)
		return nil
	}
	*p = NamedPin(s)
	return nil
}

// Logical pin roles understood by the code generator.
const (
	RoleTemperaturePin = "temperature_pin"
	RoleLightPin       = "light_pin"
	RoleLEDPin         = "led_pin"
	RoleRelayPin       = "relay_pin"
)

// PinConfig maps a logical role to its assigned hardware pin.
type PinConfig map[string]PinID

// Get returns the pin assigned to role, or fallback when absent.
func (pc PinConfig) Get(role string, fallback PinID) PinID {
	if pin, ok := pc[role]; ok {
		return pin
	}
	return fallback
}

// SensorConfig holds the capability flags a profile enables. A capability
// may be enabled without a matching pin assignment; that is a configuration
// warning, not an error.
type SensorConfig struct {
	Temperature  bool `json:"temperature"`
	Humidity     bool `json:"humidity"`
	Light        bool `json:"light"`
	SoilMoisture bool `json:"soil_moisture"`
}

// MissingPins lists enabled capabilities that have no pin assigned.
func (sc SensorConfig) MissingPins(pins PinConfig) []string {
	var missing []string
	if sc.Temperature {
		if _, ok := pins[RoleTemperaturePin]; !ok {
			missing = append(missing, RoleTemperaturePin)
		}
	}
	if sc.Light {
		if _, ok := pins[RoleLightPin]; !ok {
			missing = append(missing, RoleLightPin)
		}
	}
	return missing
}

// DeviceProfile is one registered device configuration. DeviceName is
// unique among active profiles; DeviceType never changes after creation.
type DeviceProfile struct {
	ID              int64          `json:"id"`
	DeviceName      string         `json:"device_name"`
	DeviceType      HardwareFamily `json:"device_type"`
	Description     string         `json:"description,omitempty"`
	WifiSSID        string         `json:"wifi_ssid,omitempty"`
	WifiPassword    string         `json:"wifi_password,omitempty"`
	PinConfig       PinConfig      `json:"pin_config,omitempty"`
	SensorConfig    SensorConfig   `json:"sensor_config"`
	ProgramTemplate string         `json:"program_template"`
	IsActive        bool           `json:"is_active"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ProfileUpdate carries a partial update. Nil fields retain the stored
// value. Identity and hardware family are deliberately absent: neither is
// mutable after creation.
type ProfileUpdate struct {
	Description     *string       `json:"description"`
	WifiSSID        *string       `json:"wifi_ssid"`
	WifiPassword    *string       `json:"wifi_password"`
	PinConfig       *PinConfig    `json:"pin_config"`
	SensorConfig    *SensorConfig `json:"sensor_config"`
	ProgramTemplate *string       `json:"program_template"`
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Description == nil && u.WifiSSID == nil && u.WifiPassword == nil &&
		u.PinConfig == nil && u.SensorConfig == nil && u.ProgramTemplate == nil
}

// ProgramTemplate describes one registered generation template. The
// metadata is what dashboards list; the template logic itself lives in the
// codegen package.
type ProgramTemplate struct {
	Name              string         `json:"template_name"`
	DeviceType        HardwareFamily `json:"device_type"`
	Description       string         `json:"description"`
	RequiredLibraries []string       `json:"required_libraries"`
}
