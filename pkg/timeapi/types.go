package timeapi

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimezone is reported when the time service rejects a time request.
var ErrInvalidTimezone = errors.New("invalid timezone")

// LocalTimeRequest is the body of POST /api/time/local.
type LocalTimeRequest struct {
	Timezone    string  `json:"timezone"`
	OffsetHours float64 `json:"offset_hours"`
}

// ConvertTimeRequest is the body of POST /api/time/convert.
type ConvertTimeRequest struct {
	FromTimezone string  `json:"from_timezone"`
	ToTimezone   string  `json:"to_timezone"`
	OffsetHours  float64 `json:"offset_hours"`
}

// TimeResponse is returned by both time endpoints.
type TimeResponse struct {
	Timezone           string  `json:"timezone"`
	DatetimeISO        string  `json:"datetime_iso"`
	Formatted          string  `json:"formatted,omitempty"`
	OffsetHoursApplied float64 `json:"offset_hours_applied,omitempty"`
}

// Time parses DatetimeISO, keeping the UTC offset it carries.
func (r *TimeResponse) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, r.DatetimeISO)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing datetime_iso %q: %w", r.DatetimeISO, err)
	}
	return t, nil
}

// StatusError is a non-2xx response from the time service.
type StatusError struct {
	Method string
	Path   string
	Body   string
	Code   int
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Temporary reports whether the request may succeed if sent again.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500
}
