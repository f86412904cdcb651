package cftime

import (
	"fmt"
	"strings"
)

// Calendar names understood by Decode and Encode.
const (
	Standard           = "standard"
	Gregorian          = "gregorian"
	ProlepticGregorian = "proleptic_gregorian"
	Julian             = "julian"
	NoLeap             = "noleap"
	Day365             = "365_day"
	AllLeap            = "all_leap"
	Day366             = "366_day"
	Day360             = "360_day"
)

// calendar maps dates to a day count and back. Day counts are only
// compared within one calendar, so each calendar picks its own origin.
type calendar interface {
	name() string
	valid(y, m, d int) bool
	days(y, m, d int) int64
	date(n int64) (y, m, d int)
}

// lookupCalendar resolves a CF calendar attribute. An empty name is the CF
// default, the standard calendar.
func lookupCalendar(name string) (calendar, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Standard, Gregorian:
		return mixedCalendar{}, nil
	case ProlepticGregorian:
		return gregorianCalendar{}, nil
	case Julian:
		return julianCalendar{}, nil
	case NoLeap, Day365:
		return fixedCalendar{label: NoLeap, leap: false}, nil
	case AllLeap, Day366:
		return fixedCalendar{label: AllLeap, leap: true}, nil
	case Day360:
		return calendar360{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCalendar, name)
}

// Valid reports whether d is a real date in the named calendar.
func Valid(d DateTime, calendarName string) bool {
	cal, err := lookupCalendar(calendarName)
	if err != nil {
		return false
	}
	return validDateTime(cal, d)
}

func validDateTime(cal calendar, d DateTime) bool {
	if d.Hour < 0 || d.Hour > 23 || d.Minute < 0 || d.Minute > 59 || d.Second < 0 || d.Second > 59 {
		return false
	}
	if d.Microsecond < 0 || d.Microsecond > 999_999 {
		return false
	}
	return cal.valid(d.Year, d.Month, d.Day)
}

var (
	commonMonths = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	leapMonths   = [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
)

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func monthsFor(leap bool) *[12]int {
	if leap {
		return &leapMonths
	}
	return &commonMonths
}

func dayOfYear(months *[12]int, m, d int) int64 {
	var n int64
	for i := 0; i < m-1; i++ {
		n += int64(months[i])
	}
	return n + int64(d-1)
}

func monthDay(months *[12]int, doy int64) (m, d int) {
	for i, l := range months {
		if doy < int64(l) {
			return i + 1, int(doy) + 1
		}
		doy -= int64(l)
	}
	return 12, 31
}

// yearCalendar implements days/date for calendars with a leap rule and
// standard month lengths. yearStart(y) is the day count of January 1st.
type yearCalendar struct {
	isLeap    func(y int64) bool
	yearStart func(y int64) int64
	meanYear  float64
}

func (c yearCalendar) valid(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 {
		return false
	}
	return d <= monthsFor(c.isLeap(int64(y)))[m-1]
}

func (c yearCalendar) days(y, m, d int) int64 {
	return c.yearStart(int64(y)) + dayOfYear(monthsFor(c.isLeap(int64(y))), m, d)
}

func (c yearCalendar) date(n int64) (int, int, int) {
	y := int64(float64(n)/c.meanYear) + 1
	for c.yearStart(y) > n {
		y--
	}
	for c.yearStart(y+1) <= n {
		y++
	}
	m, d := monthDay(monthsFor(c.isLeap(y)), n-c.yearStart(y))
	return int(y), m, d
}

func gregorianLeap(y int64) bool { return y%4 == 0 && (y%100 != 0 || y%400 == 0) }
func julianLeap(y int64) bool    { return y%4 == 0 }

var (
	gregorianYears = yearCalendar{
		isLeap: gregorianLeap,
		yearStart: func(y int64) int64 {
			p := y - 1
			return 365*p + floorDiv(p, 4) - floorDiv(p, 100) + floorDiv(p, 400)
		},
		meanYear: 365.2425,
	}
	julianYears = yearCalendar{
		isLeap: julianLeap,
		yearStart: func(y int64) int64 {
			p := y - 1
			return 365*p + floorDiv(p, 4)
		},
		meanYear: 365.25,
	}
)

type gregorianCalendar struct{}

func (gregorianCalendar) name() string                 { return ProlepticGregorian }
func (gregorianCalendar) valid(y, m, d int) bool       { return gregorianYears.valid(y, m, d) }
func (gregorianCalendar) days(y, m, d int) int64       { return gregorianYears.days(y, m, d) }
func (gregorianCalendar) date(n int64) (int, int, int) { return gregorianYears.date(n) }

type julianCalendar struct{}

func (julianCalendar) name() string                 { return Julian }
func (julianCalendar) valid(y, m, d int) bool       { return julianYears.valid(y, m, d) }
func (julianCalendar) days(y, m, d int) int64       { return julianYears.days(y, m, d) }
func (julianCalendar) date(n int64) (int, int, int) { return julianYears.date(n) }

// mixedCalendar is the CF standard calendar: Julian up to 1582-10-04,
// Gregorian from 1582-10-15. The ten days in between do not exist. Day
// counts follow the Gregorian numbering after the reform.
type mixedCalendar struct{}

var (
	reformDay = gregorianYears.days(1582, 10, 15)
	// julianShift maps Julian day counts onto the Gregorian numbering so
	// that 1582-10-04 (Julian) is the day before 1582-10-15 (Gregorian).
	julianShift = reformDay - 1 - julianYears.days(1582, 10, 4)
)

func beforeReform(y, m, d int) bool {
	return DateTime{Year: y, Month: m, Day: d}.Before(Date(1582, 10, 15))
}

func (mixedCalendar) name() string { return Standard }

func (mixedCalendar) valid(y, m, d int) bool {
	if y == 1582 && m == 10 && d > 4 && d < 15 {
		return false
	}
	if beforeReform(y, m, d) {
		return julianYears.valid(y, m, d)
	}
	return gregorianYears.valid(y, m, d)
}

func (mixedCalendar) days(y, m, d int) int64 {
	if beforeReform(y, m, d) {
		return julianYears.days(y, m, d) + julianShift
	}
	return gregorianYears.days(y, m, d)
}

func (mixedCalendar) date(n int64) (int, int, int) {
	if n >= reformDay {
		return gregorianYears.date(n)
	}
	return julianYears.date(n - julianShift)
}

// fixedCalendar has the same month lengths every year: 365 days (noleap)
// or 366 days (all_leap).
type fixedCalendar struct {
	label string
	leap  bool
}

func (c fixedCalendar) name() string { return c.label }

func (c fixedCalendar) yearLen() int64 {
	if c.leap {
		return 366
	}
	return 365
}

func (c fixedCalendar) valid(y, m, d int) bool {
	return m >= 1 && m <= 12 && d >= 1 && d <= monthsFor(c.leap)[m-1]
}

func (c fixedCalendar) days(y, m, d int) int64 {
	return int64(y-1)*c.yearLen() + dayOfYear(monthsFor(c.leap), m, d)
}

func (c fixedCalendar) date(n int64) (int, int, int) {
	y := floorDiv(n, c.yearLen())
	mo, d := monthDay(monthsFor(c.leap), n-y*c.yearLen())
	return int(y + 1), mo, d
}

// calendar360 has twelve 30-day months.
type calendar360 struct{}

func (calendar360) name() string { return Day360 }

func (calendar360) valid(y, m, d int) bool {
	return m >= 1 && m <= 12 && d >= 1 && d <= 30
}

func (calendar360) days(y, m, d int) int64 {
	return int64(y-1)*360 + int64(m-1)*30 + int64(d-1)
}

func (calendar360) date(n int64) (int, int, int) {
	y := floorDiv(n, 360)
	doy := n - y*360
	return int(y + 1), int(doy/30) + 1, int(doy%30) + 1
}
