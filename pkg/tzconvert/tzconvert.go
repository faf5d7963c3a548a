// Package tzconvert formats and parses the hour offsets and UTC offset labels
// shown by the clock. It never does timezone math itself: times arrive from the
// time service already resolved, and these helpers only present them.
package tzconvert

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidOffset is returned when an offset value is not a finite number.
var ErrInvalidOffset = errors.New("invalid offset")

// ParseOffset parses a slider value into a fractional hour offset.
// Example: ParseOffset("-3.5") returns -3.5.
//
// Values outside the slider range are returned as-is; the time service decides
// whether to accept them.
func ParseOffset(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidOffset)
	}

	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, raw)
	}
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, raw)
	}
	return hours, nil
}

// FormatOffset renders an hour offset as a signed label.
// Examples:
//   - 2 returns "+2h"
//   - -3.5 returns "-3.5h"
//   - 0 returns "0h"
func FormatOffset(hours float64) string {
	if hours == 0 {
		// Collapse negative zero so the label never reads "-0h".
		hours = 0
	}

	sign := ""
	if hours > 0 {
		sign = "+"
	}
	return sign + strconv.FormatFloat(hours, 'f', -1, 64) + "h"
}

// Duration converts a fractional hour offset to a time.Duration.
func Duration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

// UTCOffsetLabel returns the UTC offset carried by t in UTC±HH:MM format.
// Example: a time parsed from "2024-03-01T21:00:00+09:00" returns "UTC+09:00".
func UTCOffsetLabel(t time.Time) string {
	_, offset := t.Zone()

	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}

	hours := offset / 3600
	minutes := (offset % 3600) / 60

	return fmt.Sprintf("UTC%s%02d:%02d", sign, hours, minutes)
}
