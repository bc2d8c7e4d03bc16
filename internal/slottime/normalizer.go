// Package slottime resolves the start instant of a Bokun availability slot.
//
// Upstream sends the start time in several shapes: epoch milliseconds, ISO
// 8601 strings with inconsistent UTC markers, a local calendar date plus an
// "HH:MM" time, or only a date. Resolve walks a fixed priority chain and
// reports which rule and field produced the instant, or that none did.
package slottime

import (
	"strings"
	"time"

	"github.com/wolfman30/tour-availability/internal/bokun"
)

// MinEpochMillis is the smallest numeric value accepted as epoch
// milliseconds. Upstream sometimes sends 0 or small counters in time fields.
const MinEpochMillis int64 = 1_000_000_000

// Layout serializes instants with an explicit numeric offset; unlike
// time.RFC3339 it never emits "Z".
const Layout = "2006-01-02T15:04:05-07:00"

// Rule names the step of the priority chain that resolved a slot.
type Rule string

const (
	RuleNone        Rule = "unresolvable"
	RuleEpoch       Rule = "epoch_millis"
	RuleISO         Rule = "iso8601"
	RuleDateClock   Rule = "date_local_time"
	RuleDateEpoch   Rule = "date_epoch_time"
	RuleDateDefault Rule = "date_default_time"
)

// Resolution is the outcome of resolving one slot. Start is only meaningful
// when Rule is not RuleNone.
type Resolution struct {
	Start  time.Time
	Rule   Rule
	Field  string
	Reason string
}

var (
	absoluteNumericKeys = []string{"startTimeUtc", "startTime"}
	absoluteStringKeys  = []string{"startTimeUtc", "startTime", "localStartTime"}
	localTimeKeys       = []string{"startTime", "localStartTime", "time"}

	offsetLayouts = []string{
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05-0700",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05-0700",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04-0700",
		"2006-01-02T15:04:05-07",
		"2006-01-02 15:04:05-07",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
)

// Normalizer resolves slot start times against a display timezone. It holds
// no mutable state and is safe for concurrent use.
type Normalizer struct {
	loc         *time.Location
	defaultHour int
}

// New returns a Normalizer for loc; nil means UTC. Date-only slots resolve
// to 12:00 local time.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc, defaultHour: 12}
}

// Location returns the display timezone.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Resolve returns the slot's start instant. ok is false when the slot has no
// usable time information; malformed fields never cause a panic or error.
func (n *Normalizer) Resolve(slot bokun.RawSlot) (res Resolution, ok bool) {
	for _, key := range absoluteNumericKeys {
		if ms, found := plausibleMillis(slot, key); found {
			return Resolution{Start: time.UnixMilli(ms).UTC(), Rule: RuleEpoch, Field: key}, true
		}
	}

	for _, key := range absoluteStringKeys {
		raw, found := slot.String(key)
		if !found {
			continue
		}
		if t, parsed := ParseISO(raw); parsed {
			return Resolution{Start: t, Rule: RuleISO, Field: key}, true
		}
	}

	year, month, day, found := n.localDate(slot)
	if !found {
		reason := "no time or date fields"
		if _, present := slot["date"]; present {
			reason = "date field unusable"
		}
		return Resolution{Rule: RuleNone, Reason: reason}, false
	}

	for _, key := range localTimeKeys {
		if ms, isEpoch := plausibleMillis(slot, key); isEpoch {
			return Resolution{Start: time.UnixMilli(ms).UTC(), Rule: RuleDateEpoch, Field: key}, true
		}
		raw, isString := slot.String(key)
		if !isString {
			continue
		}
		hour, minute, second, isClock := parseClock(raw)
		if !isClock {
			continue
		}
		start := time.Date(year, month, day, hour, minute, second, 0, n.loc)
		return Resolution{Start: start, Rule: RuleDateClock, Field: key}, true
	}

	start := time.Date(year, month, day, n.defaultHour, 0, 0, 0, n.loc)
	return Resolution{Start: start, Rule: RuleDateDefault, Field: "date"}, true
}

// localDate reads the slot's calendar date. String dates are truncated to
// their first ten characters because upstream sometimes appends a time.
// Numeric dates are converted in the display timezone, not UTC: local
// midnight in Europe/London is 23:00 UTC on the previous day.
func (n *Normalizer) localDate(slot bokun.RawSlot) (year int, month time.Month, day int, ok bool) {
	if raw, found := slot.String("date"); found {
		if len(raw) > 10 {
			raw = raw[:10]
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return 0, 0, 0, false
		}
		year, month, day = t.Date()
		return year, month, day, true
	}
	if ms, found := plausibleMillis(slot, "date"); found {
		year, month, day = time.UnixMilli(ms).In(n.loc).Date()
		return year, month, day, true
	}
	return 0, 0, 0, false
}

// ParseISO parses an ISO 8601 date-time longer than a bare date. A trailing
// "Z" or "+0000" is rewritten to "+00:00"; values without an offset are UTC.
func ParseISO(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if len(s) <= 10 {
		return time.Time{}, false
	}
	switch {
	case strings.HasSuffix(s, "Z"), strings.HasSuffix(s, "z"):
		s = s[:len(s)-1] + "+00:00"
	case strings.HasSuffix(s, "+0000"):
		s = s[:len(s)-5] + "+00:00"
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseClock accepts "HH:MM" and "HH:MM:SS".
func parseClock(raw string) (hour, minute, second int, ok bool) {
	s := strings.TrimSpace(raw)
	switch strings.Count(s, ":") {
	case 1:
		s += ":00"
	case 2:
	default:
		return 0, 0, 0, false
	}
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, 0, 0, false
	}
	return t.Hour(), t.Minute(), t.Second(), true
}

func plausibleMillis(slot bokun.RawSlot, key string) (int64, bool) {
	ms, ok := slot.Number(key)
	if !ok || ms <= MinEpochMillis {
		return 0, false
	}
	return ms, true
}

// Format renders t in loc using Layout.
func Format(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(Layout)
}
