package slottime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LoadLocation resolves a display timezone given as an IANA name
// ("Europe/London") or a fixed offset ("+01:00", "-0530", "UTC+1").
// An empty name is UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utc") || name == "Z" {
		return time.UTC, nil
	}
	if offset, ok := parseOffset(name); ok {
		return time.FixedZone(name, offset), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("slottime: unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// parseOffset returns the offset in seconds for "+HH:MM", "+HHMM", "+HH",
// optionally prefixed with "UTC" or "GMT".
func parseOffset(s string) (int, bool) {
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"UTC", "GMT"} {
		if strings.HasPrefix(upper, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	if len(s) < 2 || (s[0] != '+' && s[0] != '-') {
		return 0, false
	}
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	digits := strings.ReplaceAll(s[1:], ":", "")

	var hours, minutes int
	var err error
	switch len(digits) {
	case 1, 2:
		hours, err = strconv.Atoi(digits)
	case 4:
		hours, err = strconv.Atoi(digits[:2])
		if err == nil {
			minutes, err = strconv.Atoi(digits[2:])
		}
	default:
		return 0, false
	}
	if err != nil || hours < 0 || hours > 14 || minutes < 0 || minutes > 59 {
		return 0, false
	}
	return sign * (hours*3600 + minutes*60), true
}
