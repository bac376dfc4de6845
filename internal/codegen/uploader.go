package codegen

import (
	"fmt"

	"github.com/natheelic/iot-device-hub/internal/types"
)

// GenerateUploader wraps generated firmware in a self-contained Python
// deployment script. The firmware text is embedded through pyString so it
// round-trips byte for byte when the script writes it back out as main.py.
// The script locates a serial port by known vendor ids, then by common
// per-OS candidates, then by prompting; it reports success or failure and
// never swallows an upload error.
func (g *Generator) GenerateUploader(p types.DeviceProfile, firmware string) string {
	deviceName := fallbackString(p.DeviceName, "Device")
	family := p.DeviceType
	if !family.IsKnown() {
		family = types.DefaultFamily
	}

	return fmt.Sprintf(`#!/usr/bin/env python3
"""
Device Code Uploader for %s - %s
Generated on %s

Requirements:
    pip install esptool ampy pyserial

Usage:
    python uploader.py [PORT]
"""

import os
import sys
import subprocess
import time

# Configuration
DEVICE_TYPE = %s
DEVICE_NAME = %s
BAUD_RATE = 115200

# Device code to upload
DEVICE_CODE = %s

def find_device_port():
    """Find device port automatically"""
    import serial.tools.list_ports

    ports = serial.tools.list_ports.comports()
    for port in ports:
        if any(vid in port.hwid.upper() for vid in ['10C4:EA60', '1A86:7523']):
            print(f"Found device on: {port.device}")
            return port.device

    # Common ports
    common_ports = ['/dev/cu.usbserial-0001', '/dev/ttyUSB0', 'COM3']
    for port in common_ports:
        try:
            import serial
            ser = serial.Serial(port, BAUD_RATE, timeout=1)
            ser.close()
            return port
        except Exception:
            continue

    return None

def upload_code(port):
    """Upload code to device"""
    print(f"Uploading to {port}...")

    # Write code to file
    with open('main.py', 'w') as f:
        f.write(DEVICE_CODE)

    # Upload using ampy
    try:
        cmd = f"ampy --port {port} --baud {BAUD_RATE} put main.py"
        result = subprocess.run(cmd.split(), capture_output=True, text=True)

        if result.returncode == 0:
            print("Code uploaded successfully!")
            return True
        else:
            print(f"Upload failed: {result.stderr}")
            return False
    except Exception as e:
        print(f"Upload error: {e}")
        return False

def main():
    port = sys.argv[1] if len(sys.argv) > 1 else find_device_port()

    if not port:
        port = input("Enter device port: ")

    if port and upload_code(port):
        print(f"{DEVICE_NAME} is ready!")
    else:
        print("Upload failed!")

if __name__ == "__main__":
    main()
`,
		family, deviceName, g.timestamp(),
		pyString(string(family)), pyString(deviceName), pyString(firmware))
}
