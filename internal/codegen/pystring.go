package codegen

import (
	"fmt"
	"strings"
)

// pyString renders s as a double-quoted Python string literal. Backslashes,
// quotes, newlines and control characters are escaped so the decoded string
// round-trips byte for byte. The firmware text embedded in an uploader
// script may itself contain quotes, backslashes and braces.
func pyString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
