package codegen

import (
	"fmt"
	"strings"

	"github.com/natheelic/iot-device-hub/internal/types"
)

// esp32BasicSensor renders the basic sensor firmware for ESP32 boards:
// connect to WiFi with the isconnected() polling idiom, then loop reading
// the enabled sensors and posting them, sleeping through individual
// failures rather than crashing the loop.
func (g *Generator) esp32BasicSensor(p types.DeviceProfile) string {
	deviceName := fallbackString(p.DeviceName, "ESP32_Device")
	ssid := fallbackString(p.WifiSSID, "YOUR_WIFI_SSID")
	password := fallbackString(p.WifiPassword, "YOUR_WIFI_PASSWORD")

	tempPin := resolvePin(p, types.FamilyESP32, types.RoleTemperaturePin)
	lightPin := resolvePin(p, types.FamilyESP32, types.RoleLightPin)
	ledPin := resolvePin(p, types.FamilyESP32, types.RoleLEDPin)

	sensors := effectiveSensors(p.SensorConfig)
	useDHT := sensors.Temperature || sensors.Humidity
	useLight := sensors.Light

	var init strings.Builder
	init.WriteString("led = Pin(LED_PIN, Pin.OUT)\n")
	if useDHT {
		init.WriteString("dht_sensor = dht.DHT22(Pin(TEMP_PIN))\n")
	}
	if useLight {
		init.WriteString("light_adc = ADC(Pin(LIGHT_PIN))\n")
		init.WriteString("light_adc.atten(ADC.ATTN_11DB)\n")
	}

	var fields strings.Builder
	if useDHT {
		fields.WriteString("            \"temperature\": 0.0,\n")
		fields.WriteString("            \"humidity\": 0.0,\n")
	}
	if useLight {
		fields.WriteString("            \"light\": 0.0,\n")
	}

	var reads strings.Builder
	if useDHT {
		reads.WriteString(`        try:
            dht_sensor.measure()
            time.sleep(0.5)
            data["temperature"] = dht_sensor.temperature()
            data["humidity"] = dht_sensor.humidity()
        except Exception as e:
            print(f"DHT Error: {e}")

`)
	}
	if useLight {
		reads.WriteString(`        try:
            light_raw = light_adc.read()
            data["light"] = (light_raw / 4095) * 1000
        except Exception as e:
            print(f"Light Error: {e}")

`)
	}

	return fmt.Sprintf(`# ESP32 Basic Sensor Code - Generated on %s
# Device: %s

import network
import urequests as requests
import ujson as json
import time
import machine
from machine import Pin, ADC
import dht

# Configuration
DEVICE_NAME = %s
WIFI_SSID = %s
WIFI_PASSWORD = %s
SERVER_URL = "http://YOUR_SERVER_IP:4000/api/esp32/data"

# Pin Setup
LED_PIN = %s
TEMP_PIN = %s
LIGHT_PIN = %s

# Initialize hardware
%s
class ESP32Sensor:
    def __init__(self):
        self.wifi = network.WLAN(network.STA_IF)
        self.connected = False

    def connect_wifi(self):
        print(f"Connecting to {WIFI_SSID}")
        self.wifi.active(True)
        self.wifi.connect(WIFI_SSID, WIFI_PASSWORD)

        timeout = 0
        while not self.wifi.isconnected() and timeout < 20:
            print(".", end="")
            time.sleep(1)
            timeout += 1

        if self.wifi.isconnected():
            self.connected = True
            print(f"\nConnected! IP: {self.wifi.ifconfig()[0]}")
            return True
        else:
            print("\nFailed to connect")
            return False

    def read_sensors(self):
        data = {
            "sensor_id": DEVICE_NAME,
%s        }

%s        return data

    def send_data(self, data):
        try:
            headers = {'Content-Type': 'application/json'}
            response = requests.post(SERVER_URL, data=json.dumps(data), headers=headers)

            if response.status_code == 200:
                print("Data sent successfully")
                return True
            else:
                print(f"HTTP Error: {response.status_code}")
                return False
        except Exception as e:
            print(f"Send error: {e}")
            return False

    def run(self):
        if not self.connect_wifi():
            return

        while True:
            try:
                sensor_data = self.read_sensors()
                self.send_data(sensor_data)
                time.sleep(30)
            except KeyboardInterrupt:
                break
            except Exception as e:
                print(f"Error: {e}")
                time.sleep(5)

# Run
if __name__ == "__main__":
    sensor = ESP32Sensor()
    sensor.run()
`,
		g.timestamp(), deviceName,
		pyString(deviceName), pyString(ssid), pyString(password),
		ledPin.Literal(), tempPin.Literal(), lightPin.Literal(),
		init.String(), fields.String(), reads.String())
}
