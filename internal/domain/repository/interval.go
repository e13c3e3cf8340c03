package repository

import (
	"fmt"
	"time"
)

// Interval is a resample bucket label ("1s", "1m", "5m", ...).
type Interval string

const (
	I1s Interval = "1s"
	I1m Interval = "1m"
	I5m Interval = "5m"
)

// DefaultInterval returns the default resolution for API requests.
func DefaultInterval() Interval { return I1m }

// ParseInterval converts a label to a bucket width.
func ParseInterval(s string) (time.Duration, error) {
	if s == "" {
		s = string(DefaultInterval())
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid interval %q: must be positive", s)
	}
	return d, nil
}

// FormatInterval renders a bucket width back to its compact label form
// (time.Duration.String would print "1m0s" for a minute).
func FormatInterval(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d >= time.Second && d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	default:
		return d.String()
	}
}
