package codegen

import (
	"strconv"
	"strings"
	"testing"

	"github.com/natheelic/iot-device-hub/internal/types"
)

// pyUnquote decodes a double-quoted Python string literal produced by
// pyString, so round-trip tests can compare the decoded bytes against the
// original input.
func pyUnquote(t *testing.T, lit string) string {
	t.Helper()
	if len(lit) < 2 || lit[0] != '"' || lit[len(lit)-1] != '"' {
		t.Fatalf("not a quoted literal: %q", lit)
	}
	body := lit[1 : len(lit)-1]

	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			t.Fatalf("dangling backslash in %q", lit)
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'x':
			if i+2 >= len(body) {
				t.Fatalf("truncated hex escape in %q", lit)
			}
			v, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
			if err != nil {
				t.Fatalf("bad hex escape in %q: %v", lit, err)
			}
			b.WriteByte(byte(v))
			i += 2
		default:
			t.Fatalf("unexpected escape \\%c in %q", body[i], lit)
		}
	}
	return b.String()
}

func TestPyStringEscaping(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{`back\slash`, `"back\\slash"`},
		{"line\nbreak", `"line\nbreak"`},
		{"tab\there", `"tab\there"`},
		{"bell\x07", `"bell\x07"`},
		{"", `""`},
	}
	for _, tc := range tests {
		if got := pyString(tc.in); got != tc.want {
			t.Errorf("pyString(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestPyStringRoundTrip(t *testing.T) {
	hostile := "print(\"hi\")\npath = 'C:\\\\dev'\ndata = {\"k\": 1}\r\n\ttail\x01"
	if got := pyUnquote(t, pyString(hostile)); got != hostile {
		t.Errorf("round trip mismatch:\n got %q\nwant %q", got, hostile)
	}
}

// The firmware embedded in an uploader script must decode back to the
// exact generated firmware text.
func TestUploaderEmbedsFirmwareVerbatim(t *testing.T) {
	g := fixedGenerator()
	p := types.DeviceProfile{
		DeviceName: "Greenhouse1",
		DeviceType: types.FamilyPicoWH,
		WifiSSID:   `net "A"`,
	}

	firmware := g.Generate(p, TemplateBasicSensor)
	script := g.GenerateUploader(p, firmware)

	var lit string
	for _, line := range strings.Split(script, "\n") {
		if rest, ok := strings.CutPrefix(line, "DEVICE_CODE = "); ok {
			lit = rest
			break
		}
	}
	if lit == "" {
		t.Fatal("DEVICE_CODE assignment not found in uploader script")
	}

	if got := pyUnquote(t, lit); got != firmware {
		t.Error("embedded firmware does not decode back to the generated source")
	}
}

func TestUploaderScriptContents(t *testing.T) {
	g := fixedGenerator()
	p := types.DeviceProfile{DeviceName: "FieldNode", DeviceType: types.FamilyESP32}

	script := g.GenerateUploader(p, g.Generate(p, TemplateBasicSensor))

	for _, want := range []string{
		"#!/usr/bin/env python3",
		"'10C4:EA60', '1A86:7523'",
		"'/dev/cu.usbserial-0001', '/dev/ttyUSB0', 'COM3'",
		"BAUD_RATE = 115200",
		`DEVICE_TYPE = "ESP32"`,
		`DEVICE_NAME = "FieldNode"`,
		"ampy --port {port} --baud {BAUD_RATE} put main.py",
		"with open('main.py', 'w') as f:",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("uploader script missing %q", want)
		}
	}
}

// Unknown families deploy as the default family rather than failing.
func TestUploaderFamilyFallback(t *testing.T) {
	g := fixedGenerator()
	p := types.DeviceProfile{DeviceName: "Mystery", DeviceType: types.HardwareFamily("ARDUINO_UNO")}

	script := g.GenerateUploader(p, g.Generate(p, TemplateBasicSensor))
	if !strings.Contains(script, `DEVICE_TYPE = "ESP32"`) {
		t.Error("unknown family should fall back to the default family")
	}
}
