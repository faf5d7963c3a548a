package tzconvert

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		name  string
		hours float64
		want  string
	}{
		{"positive whole hours", 2, "+2h"},
		{"negative half hours", -3.5, "-3.5h"},
		{"zero", 0, "0h"},
		{"negative zero", math.Copysign(0, -1), "0h"},
		{"positive half hour", 0.5, "+0.5h"},
		{"slider maximum", 12, "+12h"},
		{"slider minimum", -12, "-12h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatOffset(tt.hours); got != tt.want {
				t.Errorf("FormatOffset(%v) = %q, want %q", tt.hours, got, tt.want)
			}
		})
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"2", 2, false},
		{"-3.5", -3.5, false},
		{" 0 ", 0, false},
		{"+1.5", 1.5, false},
		{"30", 30, false}, // outside the slider range, passed through
		{"", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseOffset(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOffset) {
					t.Fatalf("ParseOffset(%q) error = %v, want ErrInvalidOffset", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOffset(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseOffset(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(1.5); got != 90*time.Minute {
		t.Errorf("Duration(1.5) = %v, want 90m", got)
	}
	if got := Duration(-2); got != -2*time.Hour {
		t.Errorf("Duration(-2) = %v, want -2h", got)
	}
}

func TestUTCOffsetLabel(t *testing.T) {
	tests := []struct {
		iso  string
		want string
	}{
		{"2024-03-01T21:00:00+09:00", "UTC+09:00"},
		{"2024-03-01T07:00:00-05:00", "UTC-05:00"},
		{"2024-03-01T17:30:00+05:30", "UTC+05:30"},
		{"2024-03-01T12:00:00Z", "UTC+00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.iso, func(t *testing.T) {
			parsed, err := time.Parse(time.RFC3339, tt.iso)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.iso, err)
			}
			if got := UTCOffsetLabel(parsed); got != tt.want {
				t.Errorf("UTCOffsetLabel(%s) = %q, want %q", tt.iso, got, tt.want)
			}
		})
	}
}
