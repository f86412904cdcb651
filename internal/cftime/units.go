package cftime

import (
	"fmt"
	"strconv"
	"strings"
)

// Units is a parsed CF time units attribute such as
// "days since 1900-01-01 00:00:00".
type Units struct {
	// Micros is the length of one unit in microseconds.
	Micros int64
	// Name is the canonical unit name ("days", "hours", ...).
	Name string
	// Ref is the reference date as written. A zone offset, if any, is
	// applied when values are converted.
	Ref DateTime
	// offsetMicros is the time zone offset to subtract from Ref.
	offsetMicros int64
}

const (
	microsPerSecond = 1_000_000
	microsPerDay    = 86_400 * microsPerSecond
)

var unitAliases = map[string]struct {
	name   string
	micros int64
}{
	"microseconds": {"microseconds", 1},
	"microsecond":  {"microseconds", 1},
	"us":           {"microseconds", 1},
	"usec":         {"microseconds", 1},
	"milliseconds": {"milliseconds", 1_000},
	"millisecond":  {"milliseconds", 1_000},
	"ms":           {"milliseconds", 1_000},
	"msec":         {"milliseconds", 1_000},
	"seconds":      {"seconds", microsPerSecond},
	"second":       {"seconds", microsPerSecond},
	"secs":         {"seconds", microsPerSecond},
	"sec":          {"seconds", microsPerSecond},
	"s":            {"seconds", microsPerSecond},
	"minutes":      {"minutes", 60 * microsPerSecond},
	"minute":       {"minutes", 60 * microsPerSecond},
	"mins":         {"minutes", 60 * microsPerSecond},
	"min":          {"minutes", 60 * microsPerSecond},
	"hours":        {"hours", 3_600 * microsPerSecond},
	"hour":         {"hours", 3_600 * microsPerSecond},
	"hrs":          {"hours", 3_600 * microsPerSecond},
	"hr":           {"hours", 3_600 * microsPerSecond},
	"h":            {"hours", 3_600 * microsPerSecond},
	"days":         {"days", microsPerDay},
	"day":          {"days", microsPerDay},
	"d":            {"days", microsPerDay},
}

// ParseUnits parses "<unit> since <date>[ <time>][ <zone>]". The zone may be
// "Z", "UTC", "GMT" or a numeric offset such as "+10:00" or "-3".
func ParseUnits(s string) (Units, error) {
	fields := strings.Fields(s)
	if len(fields) < 3 || !strings.EqualFold(fields[1], "since") {
		return Units{}, fmt.Errorf("%w: %q", ErrInvalidUnits, s)
	}
	alias, ok := unitAliases[strings.ToLower(fields[0])]
	if !ok {
		return Units{}, fmt.Errorf("%w: unsupported unit %q", ErrInvalidUnits, fields[0])
	}
	u := Units{Name: alias.name, Micros: alias.micros}

	rest := fields[2:]
	// "1900-01-01T00:00:00Z" arrives as a single field.
	if date, clock, ok := strings.Cut(rest[0], "T"); ok {
		rest = append([]string{date, strings.TrimSuffix(clock, "Z")}, rest[1:]...)
		if strings.HasSuffix(clock, "Z") {
			rest = append(rest, "Z")
		}
	}
	ref := DateTime{}
	if err := parseDate(rest[0], &ref); err != nil {
		return Units{}, fmt.Errorf("%w: reference date in %q", ErrInvalidUnits, s)
	}
	rest = rest[1:]
	if len(rest) > 0 && strings.Contains(rest[0], ":") && !isZone(rest[0]) {
		if err := parseClock(rest[0], &ref); err != nil {
			return Units{}, fmt.Errorf("%w: reference time in %q", ErrInvalidUnits, s)
		}
		rest = rest[1:]
	}
	if len(rest) > 0 {
		off, err := parseZone(rest[0])
		if err != nil || len(rest) > 1 {
			return Units{}, fmt.Errorf("%w: trailing %q", ErrInvalidUnits, strings.Join(rest, " "))
		}
		u.offsetMicros = off
	}
	u.Ref = ref
	return u, nil
}

// String renders the units in the canonical "<unit> since <ref>" form.
func (u Units) String() string {
	return u.Name + " since " + u.Ref.String()
}

func isZone(s string) bool {
	return strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-")
}

func parseZone(s string) (int64, error) {
	switch strings.ToUpper(s) {
	case "Z", "UTC", "GMT":
		return 0, nil
	}
	if !isZone(s) {
		return 0, fmt.Errorf("%w: zone %q", ErrInvalidUnits, s)
	}
	sign := int64(1)
	if s[0] == '-' {
		sign = -1
	}
	hh, mm, _ := strings.Cut(s[1:], ":")
	h, err := strconv.Atoi(hh)
	if err != nil || h > 14 {
		return 0, fmt.Errorf("%w: zone %q", ErrInvalidUnits, s)
	}
	m := 0
	if mm != "" {
		if m, err = strconv.Atoi(mm); err != nil || m > 59 {
			return 0, fmt.Errorf("%w: zone %q", ErrInvalidUnits, s)
		}
	}
	return sign * (int64(h)*3600 + int64(m)*60) * microsPerSecond, nil
}
