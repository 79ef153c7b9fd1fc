// Package codec renders raw device output with control bytes made visible
// and converts the bracketed token notation back into bytes.
package codec

import (
	"fmt"
	"strings"
)

// controlNames holds the names of the C0 control codes. 0x0C is NP, as on
// the devices' own documentation.
var controlNames = [32]string{
	"NUL", "SOH", "STX", "ETX", "EOT", "ENQ", "ACK", "BEL",
	"BS", "HT", "LF", "VT", "NP", "CR", "SO", "SI",
	"DLE", "DC1", "DC2", "DC3", "DC4", "NAK", "SYN", "ETB",
	"CAN", "EM", "SUB", "ESC", "FS", "GS", "RS", "US",
}

const del = 0x7f

// Tokens used by the framing grammars.
const (
	STX = "[STX]"
	ETX = "[ETX]"
	CR  = "[CR]"
	HT  = "[HT]"
	ACK = "[ACK]"
)

var byName = func() map[string]byte {
	m := make(map[string]byte, len(controlNames)+1)
	for i, name := range controlNames {
		m[name] = byte(i)
	}
	m["DEL"] = del
	return m
}()

// IsControl reports whether b is rendered as a token.
func IsControl(b byte) bool {
	return b < 0x20 || b == del
}

// Token returns the bracketed token for a control byte.
func Token(b byte) (string, bool) {
	if !IsControl(b) {
		return "", false
	}
	if b == del {
		return "[DEL]", true
	}
	if int(b) < len(controlNames) {
		return "[" + controlNames[b] + "]", true
	}
	return fmt.Sprintf("<0x%02X>", b), true
}

// Lookup returns the byte for a token name, with or without brackets.
func Lookup(token string) (byte, bool) {
	name := strings.TrimSuffix(strings.TrimPrefix(token, "["), "]")
	b, ok := byName[name]
	return b, ok
}

// Visualize replaces every control byte in s with its token. Multi-byte
// UTF-8 sequences never contain bytes below 0x80, so s is walked bytewise.
func Visualize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if tok, ok := Token(s[i]); ok {
			sb.WriteString(tok)
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// Expand is the inverse of Visualize: each known token becomes its byte,
// anything else in brackets is kept verbatim.
func Expand(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		if s[i] == '[' {
			if end := strings.IndexByte(s[i:], ']'); end > 0 {
				if b, ok := byName[s[i+1:i+end]]; ok {
					out = append(out, b)
					i += end + 1
					continue
				}
			}
		}
		out = append(out, s[i])
		i++
	}
	return out
}

// StripControls drops control bytes and trims surrounding whitespace.
func StripControls(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 || r == del {
			return -1
		}
		return r
	}, s))
}
