package yeelight

import (
	"fmt"
	"strconv"
	"strings"
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RGBToInt packs red, green and blue into the integer form used by set_rgb.
func RGBToInt(r, g, b int) int {
	return clamp(r, 0, 255)<<16 | clamp(g, 0, 255)<<8 | clamp(b, 0, 255)
}

// IntToRGB unpacks an rgb property value.
func IntToRGB(v int) (r, g, b int) {
	return (v >> 16) & 0xff, (v >> 8) & 0xff, v & 0xff
}

// ModelFromMDNSInstance extracts the model from a miio service instance name,
// e.g. "yeelink-light-color1_miio55412874" -> "color1".
func ModelFromMDNSInstance(instance string) string {
	name := UnescapeRFC6763Label(instance)
	if i := strings.Index(name, "_miio"); i >= 0 {
		name = name[:i]
	}
	if !strings.HasPrefix(name, "yeelink-light-") {
		return ""
	}
	return strings.TrimPrefix(name, "yeelink-light-")
}

// UnescapeRFC6763Label unescapes a DNS-SD label per RFC 6763 section 6.4
func UnescapeRFC6763Label(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			// \DDD decimal escape
			if i+3 < len(s) && isDigit(s[i+1]) && isDigit(s[i+2]) && isDigit(s[i+3]) {
				if val, err := strconv.Atoi(s[i+1 : i+4]); err == nil {
					b.WriteByte(byte(val))
					i += 3
					continue
				}
			}
			i++
			b.WriteByte(s[i])
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// formatValue renders a decoded JSON value the way get_prop reports it
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
