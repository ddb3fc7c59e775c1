package rowmap

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ArrayStrategy selects how arrays are serialized into a single blob.
type ArrayStrategy int

const (
	// ArrayPlist stores arrays as binary property lists. It is the default.
	ArrayPlist ArrayStrategy = iota
	// ArrayJSON stores arrays as JSON text in a blob.
	ArrayJSON
)

func (s ArrayStrategy) String() string {
	switch s {
	case ArrayPlist:
		return "plist"
	case ArrayJSON:
		return "json"
	}
	return fmt.Sprintf("ArrayStrategy(%d)", int(s))
}

// ParseArrayStrategy accepts "plist" (or "bplist") and "json", ignoring case.
func ParseArrayStrategy(s string) (ArrayStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plist", "bplist":
		return ArrayPlist, nil
	case "json":
		return ArrayJSON, nil
	}
	return 0, fmt.Errorf("rowmap: unknown array strategy %q", s)
}

func (s ArrayStrategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ArrayStrategy) UnmarshalText(b []byte) error {
	v, err := ParseArrayStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DateStrategy selects how timestamps are stored.
type DateStrategy int

const (
	// DateInteger stores whole seconds since the Unix epoch. It is the default.
	DateInteger DateStrategy = iota
	// DateReal stores a fractional Julian day number.
	DateReal
	// DateText stores an RFC 3339 string in UTC with fractional seconds.
	DateText
)

func (s DateStrategy) String() string {
	switch s {
	case DateInteger:
		return "integer"
	case DateReal:
		return "real"
	case DateText:
		return "text"
	}
	return fmt.Sprintf("DateStrategy(%d)", int(s))
}

// ParseDateStrategy accepts "integer" (or "int", "unix"), "real" (or
// "julian") and "text" (or "iso8601"), ignoring case.
func ParseDateStrategy(s string) (DateStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int", "unix":
		return DateInteger, nil
	case "real", "julian":
		return DateReal, nil
	case "text", "iso8601":
		return DateText, nil
	}
	return 0, fmt.Errorf("rowmap: unknown date strategy %q", s)
}

func (s DateStrategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *DateStrategy) UnmarshalText(b []byte) error {
	v, err := ParseDateStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

const (
	unixEpochJulianDay = 2440587.5
	secondsPerDay      = 86400.0
)

// JulianDay converts t to a fractional Julian day number.
func JulianDay(t time.Time) float64 {
	secs := float64(t.Unix()) + float64(t.Nanosecond())/1e9
	return unixEpochJulianDay + secs/secondsPerDay
}

// FromJulianDay converts a fractional Julian day number to a UTC time.
func FromJulianDay(jd float64) time.Time {
	secs := (jd - unixEpochJulianDay) * secondsPerDay
	whole := math.Floor(secs)
	return time.Unix(int64(whole), int64((secs-whole)*1e9)).UTC()
}

// Layouts accepted when reading text timestamps. The first one is also the
// write format.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayouts[0]) }

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("rowmap: cannot parse %q as a timestamp", s)
}

var errStorageClass = errors.New("rowmap: incompatible storage class")

// timeValue is the value bound for t under the strategy.
func (s DateStrategy) timeValue(t time.Time) Value {
	switch s {
	case DateReal:
		return Float64(JulianDay(t))
	case DateText:
		return Text(formatTime(t))
	default:
		return Int64(t.Unix())
	}
}

// readTime decodes a non-NULL column under the strategy.
func (s DateStrategy) readTime(h Handle, col int, class StorageClass) (time.Time, error) {
	switch s {
	case DateReal:
		if class != ClassFloat && class != ClassInteger {
			return time.Time{}, errStorageClass
		}
		return FromJulianDay(h.ColumnFloat(col)), nil
	case DateText:
		if class != ClassText {
			return time.Time{}, errStorageClass
		}
		return parseTime(h.ColumnText(col))
	default:
		switch class {
		case ClassInteger:
			return time.Unix(h.ColumnInt64(col), 0).UTC(), nil
		case ClassFloat:
			return time.Unix(int64(h.ColumnFloat(col)), 0).UTC(), nil
		}
		return time.Time{}, errStorageClass
	}
}
