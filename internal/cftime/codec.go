package cftime

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownCalendar = errors.New("unknown calendar")
	ErrInvalidUnits    = errors.New("invalid time units")
	ErrInvalidDate     = errors.New("invalid date")
	ErrOutOfRange      = errors.New("time value out of range")
)

// DecodeError reports a failed conversion between raw values and dates.
// Op is "decode" or "encode".
type DecodeError struct {
	Op       string
	Units    string
	Calendar string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s time (units %q, calendar %q): %v", e.Op, e.Units, e.Calendar, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// maxMicros bounds the microsecond counts handled without overflow,
// roughly 146,000 years either side of the reference date.
const maxMicros = 1 << 62

type codec struct {
	cal    calendar
	units  Units
	origin int64 // reference instant in calendar microseconds
}

func newCodec(units, calendarName string) (codec, error) {
	cal, err := lookupCalendar(calendarName)
	if err != nil {
		return codec{}, err
	}
	u, err := ParseUnits(units)
	if err != nil {
		return codec{}, err
	}
	if !validDateTime(cal, u.Ref) {
		return codec{}, fmt.Errorf("%w: reference date %s does not exist in the %s calendar", ErrInvalidUnits, u.Ref, cal.name())
	}
	return codec{
		cal:    cal,
		units:  u,
		origin: cal.days(u.Ref.Year, u.Ref.Month, u.Ref.Day)*microsPerDay + u.Ref.clockMicros() - u.offsetMicros,
	}, nil
}

func (c codec) toDate(v float64) (DateTime, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DateTime{}, fmt.Errorf("%w: %v", ErrOutOfRange, v)
	}
	f := math.Round(v * float64(c.units.Micros))
	if math.Abs(f) >= maxMicros || math.Abs(float64(c.origin)+f) >= maxMicros {
		return DateTime{}, fmt.Errorf("%w: %v %s", ErrOutOfRange, v, c.units.Name)
	}
	total := c.origin + int64(f)
	day := floorDiv(total, microsPerDay)
	y, m, d := c.cal.date(day)
	return Date(y, m, d).withClock(total - day*microsPerDay), nil
}

func (c codec) toValue(d DateTime) (float64, error) {
	if !validDateTime(c.cal, d) {
		return 0, fmt.Errorf("%w: %s in the %s calendar", ErrInvalidDate, d, c.cal.name())
	}
	us := c.cal.days(d.Year, d.Month, d.Day)*microsPerDay + d.clockMicros()
	return float64(us-c.origin) / float64(c.units.Micros), nil
}

// Decode converts raw values in the given units and calendar to dates.
// Values are rounded to the nearest microsecond. Any failure, including a
// single out-of-range value, fails the whole slice with a *DecodeError.
func Decode(values []float64, units, calendarName string) ([]DateTime, error) {
	c, err := newCodec(units, calendarName)
	if err != nil {
		return nil, &DecodeError{Op: "decode", Units: units, Calendar: calendarName, Err: err}
	}
	out := make([]DateTime, len(values))
	for i, v := range values {
		if out[i], err = c.toDate(v); err != nil {
			return nil, &DecodeError{Op: "decode", Units: units, Calendar: calendarName, Err: fmt.Errorf("index %d: %w", i, err)}
		}
	}
	return out, nil
}

// Encode converts dates to raw values in the given units and calendar.
// Every date must exist in the calendar.
func Encode(dates []DateTime, units, calendarName string) ([]float64, error) {
	c, err := newCodec(units, calendarName)
	if err != nil {
		return nil, &DecodeError{Op: "encode", Units: units, Calendar: calendarName, Err: err}
	}
	out := make([]float64, len(dates))
	for i, d := range dates {
		if out[i], err = c.toValue(d); err != nil {
			return nil, &DecodeError{Op: "encode", Units: units, Calendar: calendarName, Err: fmt.Errorf("index %d: %w", i, err)}
		}
	}
	return out, nil
}

// Rebase re-expresses raw values from one set of units in another, keeping
// the calendar. It is Decode followed by Encode.
func Rebase(values []float64, from, to, calendarName string) ([]float64, error) {
	dates, err := Decode(values, from, calendarName)
	if err != nil {
		return nil, err
	}
	return Encode(dates, to, calendarName)
}
