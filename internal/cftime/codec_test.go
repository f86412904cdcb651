package cftime

import (
	"errors"
	"math"
	"testing"
)

func dt(y, mo, d, h, mi, s int) DateTime {
	return DateTime{Year: y, Month: mo, Day: d, Hour: h, Minute: mi, Second: s}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		units    string
		calendar string
		want     []DateTime
	}{
		{"gregorian days", []float64{0, 1, 31}, "days since 2000-01-01", ProlepticGregorian,
			[]DateTime{Date(2000, 1, 1), Date(2000, 1, 2), Date(2000, 2, 1)}},
		{"gregorian leap day", []float64{59}, "days since 2000-01-01", Standard,
			[]DateTime{Date(2000, 2, 29)}},
		{"noleap skips feb 29", []float64{59}, "days since 2000-01-01", NoLeap,
			[]DateTime{Date(2000, 3, 1)}},
		{"365_day alias", []float64{365}, "days since 2000-01-01", Day365,
			[]DateTime{Date(2001, 1, 1)}},
		{"all_leap", []float64{365}, "days since 2001-01-01", AllLeap,
			[]DateTime{Date(2001, 12, 31)}},
		{"360_day", []float64{30, 359, 360}, "days since 0001-01-01", Day360,
			[]DateTime{Date(1, 2, 1), Date(1, 12, 30), Date(2, 1, 1)}},
		{"julian 1900 is leap", []float64{59}, "days since 1900-01-01", Julian,
			[]DateTime{Date(1900, 2, 29)}},
		{"standard reform gap", []float64{1}, "days since 1582-10-04", Standard,
			[]DateTime{Date(1582, 10, 15)}},
		{"hours", []float64{36}, "hours since 1900-01-01 00:00:00", Gregorian,
			[]DateTime{dt(1900, 1, 2, 12, 0, 0)}},
		{"negative offset", []float64{-1}, "days since 2000-01-01", Standard,
			[]DateTime{Date(1999, 12, 31)}},
		{"standard has a year 0", []float64{-1, -366, -367}, "days since 0001-01-01", Standard,
			[]DateTime{Date(0, 12, 31), Date(0, 1, 1), Date(-1, 12, 31)}},
		{"julian year 0 is leap", []float64{-307}, "days since 0001-01-01", Julian,
			[]DateTime{Date(0, 2, 29)}},
		{"proleptic year 0", []float64{-1}, "days since 0001-01-01", ProlepticGregorian,
			[]DateTime{Date(0, 12, 31)}},
		{"fractional day", []float64{0.5}, "days since 2000-01-01", NoLeap,
			[]DateTime{dt(2000, 1, 1, 12, 0, 0)}},
		{"zone offset", []float64{0}, "hours since 2000-01-01 00:00:00 +10:00", Standard,
			[]DateTime{dt(1999, 12, 31, 14, 0, 0)}},
		{"empty calendar is standard", []float64{1}, "days since 1582-10-04", "",
			[]DateTime{Date(1582, 10, 15)}},
		{"calendar name case", []float64{59}, "days since 2000-01-01", "NOLEAP",
			[]DateTime{Date(2000, 3, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.values, tt.units, tt.calendar)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d dates, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] got %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEncodeKnownOrdinals(t *testing.T) {
	tests := []struct {
		calendar string
		want     float64
	}{
		{ProlepticGregorian, 693595},
		{Standard, 693597},
		{NoLeap, 693135},
		{Day360, 683640},
	}
	for _, tt := range tests {
		t.Run(tt.calendar, func(t *testing.T) {
			got, err := Encode([]DateTime{Date(1900, 1, 1)}, "days since 0001-01-01 00:00:00", tt.calendar)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if got[0] != tt.want {
				t.Errorf("got %v, want %v", got[0], tt.want)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		units    string
		calendar string
		want     error
	}{
		{"unknown calendar", []float64{0}, "days since 2000-01-01", "martian", ErrUnknownCalendar},
		{"months unsupported", []float64{0}, "months since 2000-01-01", Standard, ErrInvalidUnits},
		{"missing since", []float64{0}, "days 2000-01-01", Standard, ErrInvalidUnits},
		{"garbage units", []float64{0}, "not a unit", Standard, ErrInvalidUnits},
		{"ref date not in calendar", []float64{0}, "days since 2001-02-29", ProlepticGregorian, ErrInvalidUnits},
		{"nan", []float64{0, math.NaN()}, "days since 2000-01-01", Standard, ErrOutOfRange},
		{"inf", []float64{math.Inf(1)}, "days since 2000-01-01", Standard, ErrOutOfRange},
		{"huge", []float64{1e300}, "days since 2000-01-01", Standard, ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.values, tt.units, tt.calendar)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if de.Op != "decode" || de.Units != tt.units || de.Calendar != tt.calendar {
				t.Errorf("unexpected error fields: %+v", de)
			}
		})
	}
}

func TestEncodeRejectsMissingDates(t *testing.T) {
	tests := []struct {
		calendar string
		date     DateTime
	}{
		{NoLeap, Date(2000, 2, 29)},
		{Standard, Date(1582, 10, 10)},
		{ProlepticGregorian, Date(1900, 2, 29)},
		{Day360, Date(2000, 1, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.calendar, func(t *testing.T) {
			_, err := Encode([]DateTime{tt.date}, "days since 0001-01-01", tt.calendar)
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("got %v, want ErrInvalidDate", err)
			}
		})
	}
}

func TestRebase(t *testing.T) {
	got, err := Rebase([]float64{0, 1, 2}, "days since 2000-01-01", "hours since 1999-12-31 00:00:00", NoLeap)
	if err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	want := []float64{24, 48, 72}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	got, err := Decode(nil, "days since 2000-01-01", Standard)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no dates, got %v", got)
	}
}
