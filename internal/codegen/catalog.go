package codegen

import (
	"github.com/natheelic/iot-device-hub/internal/types"
)

// TemplateCatalog lists the registered generation templates with the
// external libraries the generated firmware expects on the target runtime.
// This is the same metadata the store seeds into program_templates.
func TemplateCatalog() []types.ProgramTemplate {
	return []types.ProgramTemplate{
		{
			Name:              TemplateBasicSensor,
			DeviceType:        types.FamilyESP32,
			Description:       "Basic sensor reading with WiFi connectivity",
			RequiredLibraries: []string{"urequests", "dht", "machine", "network"},
		},
		{
			Name:              TemplateAdvancedIoT,
			DeviceType:        types.FamilyESP32,
			Description:       "Advanced IoT with deep sleep and OTA updates",
			RequiredLibraries: []string{"urequests", "dht", "machine", "network", "esp32"},
		},
		{
			Name:              TemplateRelayControl,
			DeviceType:        types.FamilyESP32,
			Description:       "Relay control system with web interface",
			RequiredLibraries: []string{"urequests", "socket", "machine", "network"},
		},
		{
			Name:              TemplateBasicSensor,
			DeviceType:        types.FamilyPicoWH,
			Description:       "Basic sensor reading for Raspberry Pi Pico WH",
			RequiredLibraries: []string{"urequests", "dht", "machine", "network"},
		},
	}
}
