// Package cftime converts between raw numeric time values and calendar
// dates following the CF conventions used by netCDF model output.
//
// A raw value is a count of some unit since a reference date, e.g.
// "days since 0001-01-01 00:00:00". How that count maps onto dates depends
// on the calendar: model runs routinely use calendars that have no leap
// years, or 30-day months, so dates are represented by DateTime rather than
// time.Time. A DateTime is a plain field tuple; it is only meaningful
// together with the calendar it was decoded with.
//
// Resolution is one microsecond. Years use astronomical numbering (year 0
// exists) in every calendar.
package cftime

import (
	"fmt"
	"strconv"
	"strings"
)

// DateTime is a calendar-agnostic date and time of day.
//
// The zero value (month 0) is not a valid date in any calendar and is used
// to mean "unset".
type DateTime struct {
	Year        int
	Month       int
	Day         int
	Hour        int
	Minute      int
	Second      int
	Microsecond int
}

// Date returns a DateTime at midnight.
func Date(year, month, day int) DateTime {
	return DateTime{Year: year, Month: month, Day: day}
}

// IsZero reports whether d is the zero value.
func (d DateTime) IsZero() bool {
	return d == DateTime{}
}

// Compare returns -1, 0 or +1 comparing d and o field by field. The order
// agrees with chronological order in every calendar.
func (d DateTime) Compare(o DateTime) int {
	a := [...]int{d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second, d.Microsecond}
	b := [...]int{o.Year, o.Month, o.Day, o.Hour, o.Minute, o.Second, o.Microsecond}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Before reports whether d is earlier than o.
func (d DateTime) Before(o DateTime) bool { return d.Compare(o) < 0 }

// After reports whether d is later than o.
func (d DateTime) After(o DateTime) bool { return d.Compare(o) > 0 }

// String formats d as "YYYY-MM-DD HH:MM:SS", with a ".ffffff" suffix when
// the microsecond field is set. This is the layout the catalog stores and
// it sorts lexicographically for non-negative years.
func (d DateTime) String() string {
	s := fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second)
	if d.Microsecond != 0 {
		s += fmt.Sprintf(".%06d", d.Microsecond)
	}
	return s
}

// ParseDateTime parses "YYYY-MM-DD", "YYYY-MM-DD HH:MM[:SS[.ffffff]]" or the
// same with a "T" separator. Years may have fewer than four digits. Only the
// field ranges that hold in every calendar are checked (day <= 31); use
// Valid to check a date against a specific calendar.
func ParseDateTime(s string) (DateTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateTime{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	datePart, timePart, _ := strings.Cut(strings.Replace(s, "T", " ", 1), " ")
	var d DateTime
	if err := parseDate(datePart, &d); err != nil {
		return DateTime{}, err
	}
	if timePart = strings.TrimSpace(timePart); timePart != "" {
		if err := parseClock(timePart, &d); err != nil {
			return DateTime{}, err
		}
	}
	return d, nil
}

func parseDate(s string, d *DateTime) error {
	neg := strings.HasPrefix(s, "-")
	parts := strings.Split(strings.TrimPrefix(s, "-"), "-")
	if len(parts) != 3 {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	var vals [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		vals[i] = v
	}
	d.Year, d.Month, d.Day = vals[0], vals[1], vals[2]
	if neg {
		d.Year = -d.Year
	}
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return nil
}

func parseClock(s string, d *DateTime) error {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("%w: time of day %q", ErrInvalidDate, s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return fmt.Errorf("%w: time of day %q", ErrInvalidDate, s)
	}
	d.Hour, d.Minute = h, m
	if len(parts) == 3 {
		secStr, fracStr, hasFrac := strings.Cut(parts[2], ".")
		sec, err := strconv.Atoi(secStr)
		if err != nil {
			return fmt.Errorf("%w: time of day %q", ErrInvalidDate, s)
		}
		d.Second = sec
		if hasFrac && fracStr != "" {
			if len(fracStr) > 6 {
				fracStr = fracStr[:6]
			}
			us, err := strconv.Atoi(fracStr + strings.Repeat("0", 6-len(fracStr)))
			if err != nil {
				return fmt.Errorf("%w: time of day %q", ErrInvalidDate, s)
			}
			d.Microsecond = us
		}
	}
	if d.Hour < 0 || d.Hour > 23 || d.Minute < 0 || d.Minute > 59 || d.Second < 0 || d.Second > 59 {
		return fmt.Errorf("%w: time of day %q", ErrInvalidDate, s)
	}
	return nil
}

// clockMicros returns the microseconds elapsed since midnight.
func (d DateTime) clockMicros() int64 {
	return ((int64(d.Hour)*60+int64(d.Minute))*60+int64(d.Second))*1_000_000 + int64(d.Microsecond)
}

func (d DateTime) withClock(us int64) DateTime {
	d.Microsecond = int(us % 1_000_000)
	us /= 1_000_000
	d.Second = int(us % 60)
	us /= 60
	d.Minute = int(us % 60)
	d.Hour = int(us / 60)
	return d
}
