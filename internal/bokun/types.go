// Package bokun contains the Bokun REST client, request signing, and the
// loosely typed slot payload it returns.
package bokun

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Credentials authenticate requests to the Bokun API.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Valid reports whether both keys are present.
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.AccessKey) != "" && strings.TrimSpace(c.SecretKey) != ""
}

// RawSlot is one availability record as returned by Bokun. Upstream field
// names and value types drift between products and API versions, so fields
// are read through the typed accessors below instead of a fixed struct.
type RawSlot map[string]any

// Number returns the value at key as an integer when it is a JSON number.
// Numeric strings are not numbers.
func (s RawSlot) Number(key string) (int64, bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

// String returns the trimmed string at key; empty strings report false.
func (s RawSlot) String(key string) (string, bool) {
	v, ok := s[key].(string)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Bool returns the boolean at key, or false when absent or not a boolean.
func (s RawSlot) Bool(key string) bool {
	b, _ := s[key].(bool)
	return b
}

// Int returns the integer at key, or 0 when absent.
func (s RawSlot) Int(key string) int {
	n, ok := s.Number(key)
	if !ok {
		return 0
	}
	return int(n)
}

// ID returns the slot identifier as a string whether upstream sent it as a
// number or a string.
func (s RawSlot) ID() string {
	if v, ok := s.String("id"); ok {
		return v
	}
	if n, ok := s.Number("id"); ok {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

// AvailabilityCount returns availabilityCount, defaulting to 0.
func (s RawSlot) AvailabilityCount() int {
	return s.Int("availabilityCount")
}

// SoldOut is true when either soldOut or unavailable is set.
func (s RawSlot) SoldOut() bool {
	return s.Bool("soldOut") || s.Bool("unavailable")
}

// ActivityTitle returns the upstream-supplied activity title, if any.
func (s RawSlot) ActivityTitle() string {
	v, _ := s.String("activityTitle")
	return v
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
